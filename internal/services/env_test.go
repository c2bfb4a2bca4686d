package services_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bookstore/internal/domain"
	"bookstore/internal/repos"
	"bookstore/internal/services"
)

const testSecret = "test-secret"

type env struct {
	db      *sqlx.DB
	users   *repos.UserRepo
	genres  *repos.GenreRepo
	books   *repos.BookRepo
	orders  *repos.OrderRepo
	auth    *services.AuthService
	catalog *services.CatalogService
	order   *services.OrderService
}

// newEnv opens a fresh file-backed SQLite database so concurrent writers contend like they would in production.
func newEnv(t *testing.T) *env {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := repos.OpenDB("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{
		db:     db,
		users:  repos.NewUserRepo(db),
		genres: repos.NewGenreRepo(db),
		books:  repos.NewBookRepo(db),
		orders: repos.NewOrderRepo(db),
	}
	e.auth = services.NewAuthService(e.users, testSecret, time.Hour, bcrypt.MinCost)
	e.catalog = services.NewCatalogService(e.genres, e.books)
	e.order = services.NewOrderService(db, e.users, e.books, e.orders)
	return e
}

func (e *env) user(t *testing.T, email string) domain.Profile {
	t.Helper()
	p, err := e.auth.Register(context.Background(), email, "password123", nil)
	require.NoError(t, err)
	return p
}

func (e *env) genre(t *testing.T, name string) domain.Genre {
	t.Helper()
	g, err := e.catalog.CreateGenre(context.Background(), name)
	require.NoError(t, err)
	return g
}

func (e *env) book(t *testing.T, genreID, title, price string, stock int) domain.Book {
	t.Helper()
	p := decimal.RequireFromString(price)
	writer := "Some Writer"
	b, err := e.catalog.CreateBook(context.Background(), services.BookInput{
		Title: &title, Writer: &writer, Price: &p, StockQuantity: &stock, GenreID: &genreID,
	})
	require.NoError(t, err)
	return b
}

func (e *env) stock(t *testing.T, bookID string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.Get(&n, e.db.Rebind(`SELECT stock_quantity FROM books WHERE id = ?`), bookID))
	return n
}

func (e *env) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.Get(&n, `SELECT COUNT(*) FROM `+table))
	return n
}

func ptr[T any](v T) *T { return &v }

func ptrDecimal(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
