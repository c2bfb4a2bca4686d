package repos

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers "postgres"
	_ "modernc.org/sqlite"
)

// ErrStockConflict is returned when a conditional stock decrement matched no row.
var ErrStockConflict = errors.New("stock changed concurrently")

// OpenDB connects with the given driver ("sqlite", "postgres" or "pgx") and ensures the schema.
func OpenDB(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" && isMemoryDSN(dsn) {
		// every pooled connection to :memory: would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// EnsureSchema creates tables and indexes. The DDL is shared by SQLite and PostgreSQL.
func EnsureSchema(db *sqlx.DB) error {
	if db.DriverName() == "sqlite" {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			return err
		}
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  username TEXT,
  password_hash TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email))`,

		`CREATE TABLE IF NOT EXISTS genres(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  deleted_at TEXT
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_genres_name_active ON genres(LOWER(name)) WHERE deleted_at IS NULL`,

		`CREATE TABLE IF NOT EXISTS books(
  id TEXT PRIMARY KEY,
  genre_id TEXT NOT NULL REFERENCES genres(id),
  title TEXT NOT NULL,
  writer TEXT NOT NULL,
  publisher TEXT,
  publication_year INTEGER,
  description TEXT,
  price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
  stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  deleted_at TEXT
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_books_title_active ON books(LOWER(title)) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_books_genre ON books(genre_id)`,
		`CREATE INDEX IF NOT EXISTS idx_books_created_at ON books(created_at)`,

		`CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  total_price NUMERIC(14,2) NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)`,

		`CREATE TABLE IF NOT EXISTS order_items(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  book_id TEXT NOT NULL REFERENCES books(id),
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  unit_price NUMERIC(12,2) NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_book ON order_items(book_id)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// InTx runs fn inside one transaction and commits only if fn succeeds.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// notDeleted is the soft-delete predicate every read of genres and books goes through.
func notDeleted(alias string) string {
	if alias == "" {
		return "deleted_at IS NULL"
	}
	return alias + ".deleted_at IS NULL"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsCI is a case-insensitive substring match on col. Bind it with contains(s).
func containsCI(col string) string {
	return `LOWER(` + col + `) LIKE LOWER(?) ESCAPE '\'`
}

// contains turns s into a LIKE pattern that matches s literally anywhere.
func contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// IsUniqueViolation recognises unique-index failures from the SQLite and PostgreSQL drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// Timestamps are fixed-width so TEXT ordering matches time ordering.
const tsLayout = "2006-01-02T15:04:05.000000Z"

func now() string { return time.Now().UTC().Format(tsLayout) }

// SeedDemo inserts demo genres and books when the catalog is empty.
// Safe to run on every startup (idempotent).
func SeedDemo(ctx context.Context, db *sqlx.DB) error {
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM genres`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo genres/books")

	ts := now()
	return InTx(ctx, db, func(tx *sqlx.Tx) error {
		genres := [][2]string{
			{"g-programming", "Programming"},
			{"g-databases", "Databases"},
			{"g-networking", "Networking"},
		}
		for _, g := range genres {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO genres(id,name,created_at,updated_at) VALUES(?,?,?,?)`),
				g[0], g[1], ts, ts); err != nil {
				return err
			}
		}
		books := []struct {
			id, genre, title, writer, publisher, price string
			year, stock                                int
		}{
			{"b-gopl", "g-programming", "The Go Programming Language", "Alan Donovan", "Addison-Wesley", "39.99", 2015, 12},
			{"b-ddia", "g-databases", "Designing Data-Intensive Applications", "Martin Kleppmann", "O'Reilly", "45.50", 2017, 8},
			{"b-tcpip", "g-networking", "TCP/IP Illustrated", "W. Richard Stevens", "Addison-Wesley", "59.00", 1994, 3},
		}
		for _, b := range books {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO books(id,genre_id,title,writer,publisher,publication_year,description,price,stock_quantity,created_at,updated_at)
				VALUES(?,?,?,?,?,?,'',?,?,?,?)`),
				b.id, b.genre, b.title, b.writer, b.publisher, b.year, b.price, b.stock, ts, ts); err != nil {
				return err
			}
		}
		return nil
	})
}
