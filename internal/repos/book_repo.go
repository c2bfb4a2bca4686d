package repos

import (
	"context"
	"database/sql"
	"fmt"

	"bookstore/internal/domain"

	"github.com/jmoiron/sqlx"
)

type BookRepo struct{ db *sqlx.DB }

func NewBookRepo(db *sqlx.DB) *BookRepo { return &BookRepo{db: db} }

type bookRow struct {
	domain.Book
	GenreName sql.NullString `db:"genre_name"`
}

func (r bookRow) book() domain.Book {
	b := r.Book
	if r.GenreName.Valid {
		b.Genre = &domain.GenreRef{ID: b.GenreID, Name: r.GenreName.String}
	}
	return b
}

func rowsToBooks(rows []bookRow) []domain.Book {
	out := make([]domain.Book, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.book())
	}
	return out
}

// selectBooks joins the genre only while it is active; a deleted genre leaves genre_name NULL.
var selectBooks = `
  SELECT
    b.id, b.genre_id, b.title, b.writer,
    COALESCE(b.publisher,'') AS publisher, b.publication_year,
    COALESCE(b.description,'') AS description,
    b.price, b.stock_quantity, b.created_at, b.updated_at,
    g.name AS genre_name
  FROM books b
  LEFT JOIN genres g ON g.id = b.genre_id AND ` + notDeleted("g")

// List returns one page of active books, newest first, plus the total match count.
func (r *BookRepo) List(ctx context.Context, title string, limit, offset int) ([]domain.Book, int, error) {
	where := notDeleted("b")
	args := []any{}
	if title != "" {
		where += ` AND ` + containsCI("b.title")
		args = append(args, contains(title))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM books b WHERE `+where), args...); err != nil {
		return nil, 0, err
	}

	var rows []bookRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(selectBooks+`
  WHERE `+where+`
  ORDER BY b.created_at DESC, b.id
  LIMIT ? OFFSET ?`), append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return rowsToBooks(rows), total, nil
}

// ListByGenres groups the active books of the given genres by genre id.
func (r *BookRepo) ListByGenres(ctx context.Context, genreIDs []string) (map[string][]domain.Book, error) {
	out := map[string][]domain.Book{}
	if len(genreIDs) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(selectBooks+`
  WHERE b.genre_id IN (?) AND `+notDeleted("b")+`
  ORDER BY b.title, b.id`, genreIDs)
	if err != nil {
		return nil, err
	}
	var rows []bookRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.GenreID] = append(out[row.GenreID], row.book())
	}
	return out, nil
}

// Get returns an active book; sql.ErrNoRows when missing or deleted.
func (r *BookRepo) Get(ctx context.Context, id string) (domain.Book, error) {
	var row bookRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(selectBooks+` WHERE b.id = ? AND `+notDeleted("b")), id)
	if err != nil {
		return domain.Book{}, err
	}
	return row.book(), nil
}

// TitleTaken reports whether another active book uses title. exceptID may be empty.
func (r *BookRepo) TitleTaken(ctx context.Context, title, exceptID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`
	  SELECT COUNT(*) FROM books
	  WHERE LOWER(title) = LOWER(?) AND id <> ? AND `+notDeleted("")), title, exceptID)
	return n > 0, err
}

func (r *BookRepo) Create(ctx context.Context, b *domain.Book) error {
	ts := now()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
	  INSERT INTO books
	    (id, genre_id, title, writer, publisher, publication_year, description, price, stock_quantity, created_at, updated_at)
	  VALUES
	    (?,  ?,        ?,     ?,      ?,         ?,                ?,           ?,     ?,              ?,          ?)`),
		b.ID, b.GenreID, b.Title, b.Writer, b.Publisher, b.PublicationYear, b.Description, b.Price, b.StockQuantity, ts, ts)
	if err != nil {
		return err
	}
	b.CreatedAt, b.UpdatedAt = ts, ts
	return nil
}

// Update writes every mutable column of an active book; sql.ErrNoRows when missing or deleted.
func (r *BookRepo) Update(ctx context.Context, b *domain.Book) error {
	ts := now()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
	  UPDATE books SET
	    genre_id = ?, title = ?, writer = ?, publisher = ?, publication_year = ?,
	    description = ?, price = ?, stock_quantity = ?, updated_at = ?
	  WHERE id = ? AND `+notDeleted("")),
		b.GenreID, b.Title, b.Writer, b.Publisher, b.PublicationYear,
		b.Description, b.Price, b.StockQuantity, ts, b.ID)
	if err := affectedOne(res, err); err != nil {
		return err
	}
	b.UpdatedAt = ts
	return nil
}

// SoftDelete sets deleted_at; sql.ErrNoRows when the book is missing or already deleted.
func (r *BookRepo) SoftDelete(ctx context.Context, id string) error {
	ts := now()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
	  UPDATE books SET deleted_at = ?, updated_at = ? WHERE id = ? AND `+notDeleted("")), ts, ts, id)
	return affectedOne(res, err)
}

// DecrementStock subtracts qty only if enough stock remains. It runs on ext so it can join
// the caller's transaction, and returns ErrStockConflict if the guard matched no row.
func (r *BookRepo) DecrementStock(ctx context.Context, ext sqlx.ExtContext, id string, qty int) error {
	res, err := ext.ExecContext(ctx, ext.Rebind(`
		UPDATE books
		SET stock_quantity = stock_quantity - ?, updated_at = ?
		WHERE id = ? AND stock_quantity >= ? AND `+notDeleted("")), qty, now(), id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("book %s: %w", id, ErrStockConflict)
	}
	return nil
}

