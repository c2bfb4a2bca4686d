package repos

import (
	"context"
	"database/sql"

	"bookstore/internal/domain"

	"github.com/jmoiron/sqlx"
)

type GenreRepo struct{ db *sqlx.DB }

func NewGenreRepo(db *sqlx.DB) *GenreRepo { return &GenreRepo{db: db} }

const genreCols = `id, name, created_at, updated_at`

// List returns one page of active genres ordered by name, plus the total match count.
func (r *GenreRepo) List(ctx context.Context, name string, limit, offset int) ([]domain.Genre, int, error) {
	where := notDeleted("")
	args := []any{}
	if name != "" {
		where += ` AND ` + containsCI("name")
		args = append(args, contains(name))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM genres WHERE `+where), args...); err != nil {
		return nil, 0, err
	}

	out := []domain.Genre{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
	  SELECT `+genreCols+`
	  FROM genres
	  WHERE `+where+`
	  ORDER BY name, id
	  LIMIT ? OFFSET ?`), append(args, limit, offset)...)
	return out, total, err
}

func (r *GenreRepo) Get(ctx context.Context, id string) (domain.Genre, error) {
	var g domain.Genre
	err := r.db.GetContext(ctx, &g, r.db.Rebind(`SELECT `+genreCols+` FROM genres WHERE id = ? AND `+notDeleted("")), id)
	return g, err
}

// NameTaken reports whether another active genre uses name. exceptID may be empty.
func (r *GenreRepo) NameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`
	  SELECT COUNT(*) FROM genres
	  WHERE LOWER(name) = LOWER(?) AND id <> ? AND `+notDeleted("")), name, exceptID)
	return n > 0, err
}

func (r *GenreRepo) Create(ctx context.Context, g *domain.Genre) error {
	ts := now()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
	  INSERT INTO genres(id, name, created_at, updated_at) VALUES(?, ?, ?, ?)`),
		g.ID, g.Name, ts, ts)
	if err != nil {
		return err
	}
	g.CreatedAt, g.UpdatedAt = ts, ts
	return nil
}

// Rename returns sql.ErrNoRows when the genre is missing or deleted.
func (r *GenreRepo) Rename(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
	  UPDATE genres SET name = ?, updated_at = ? WHERE id = ? AND `+notDeleted("")), name, now(), id)
	return affectedOne(res, err)
}

// SoftDelete sets deleted_at; sql.ErrNoRows when the genre is missing or already deleted.
func (r *GenreRepo) SoftDelete(ctx context.Context, id string) error {
	ts := now()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
	  UPDATE genres SET deleted_at = ?, updated_at = ? WHERE id = ? AND `+notDeleted("")), ts, ts, id)
	return affectedOne(res, err)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
