package repos

import (
	"context"

	"bookstore/internal/domain"

	"github.com/jmoiron/sqlx"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id, email, username, password_hash, created_at, updated_at`

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(`SELECT `+userCols+` FROM users WHERE LOWER(email)=LOWER(?)`), email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(`SELECT `+userCols+` FROM users WHERE id=?`), id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailTaken reports whether any user already registered the address (case-insensitive).
func (r *UserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, r.DB.Rebind(`SELECT COUNT(*) FROM users WHERE LOWER(email)=LOWER(?)`), email)
	return n > 0, err
}

// Create stores u and fills its timestamps.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	ts := now()
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		INSERT INTO users(id, email, username, password_hash, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)`),
		u.ID, u.Email, u.Username, u.Hash, ts, ts)
	if err != nil {
		return err
	}
	u.CreatedAt, u.UpdatedAt = ts, ts
	return nil
}
