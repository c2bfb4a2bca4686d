package repos

import (
	"context"
	"database/sql"
	"errors"

	"bookstore/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// ---------- Writes (run inside the caller's transaction) ----------

// Insert stores the order header with its precomputed total.
func (r *OrderRepo) Insert(ctx context.Context, ext sqlx.ExtContext, o *domain.Order) error {
	ts := now()
	_, err := ext.ExecContext(ctx, ext.Rebind(`
	  INSERT INTO orders(id, user_id, total_price, created_at, updated_at)
	  VALUES(?, ?, ?, ?, ?)`), o.ID, o.UserID, o.TotalPrice, ts, ts)
	if err != nil {
		return err
	}
	o.CreatedAt, o.UpdatedAt = ts, ts
	return nil
}

// InsertItem stores a single line item.
func (r *OrderRepo) InsertItem(ctx context.Context, ext sqlx.ExtContext, it domain.OrderItem) error {
	_, err := ext.ExecContext(ctx, ext.Rebind(`
	  INSERT INTO order_items(id, order_id, book_id, quantity, unit_price)
	  VALUES(?, ?, ?, ?, ?)`), it.ID, it.OrderID, it.BookID, it.Quantity, it.UnitPrice)
	return err
}

// ---------- Reads ----------

type orderRow struct {
	ID         string          `db:"id"`
	UserID     string          `db:"user_id"`
	Email      string          `db:"email"`
	Username   *string         `db:"username"`
	TotalPrice decimal.Decimal `db:"total_price"`
	CreatedAt  string          `db:"created_at"`
}

type orderItemRow struct {
	ID        string          `db:"id"`
	OrderID   string          `db:"order_id"`
	BookID    string          `db:"book_id"`
	Quantity  int             `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	Title     string          `db:"title"`
	Writer    string          `db:"writer"`
	GenreID   string          `db:"genre_id"`
	GenreName sql.NullString  `db:"genre_name"`
}

const selectOrders = `
  SELECT o.id, o.user_id, u.email, u.username, o.total_price, o.created_at
  FROM orders o
  JOIN users u ON u.id = o.user_id`

// Item reads deliberately skip the soft-delete predicate: an order keeps
// showing the book and genre it was placed for.
const selectOrderItems = `
  SELECT oi.id, oi.order_id, oi.book_id, oi.quantity, oi.unit_price,
         b.title, b.writer, b.genre_id, g.name AS genre_name
  FROM order_items oi
  JOIN books b ON b.id = oi.book_id
  LEFT JOIN genres g ON g.id = b.genre_id`

// Get returns one order with its items; sql.ErrNoRows when unknown.
func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Transaction, error) {
	var o orderRow
	if err := r.db.GetContext(ctx, &o, r.db.Rebind(selectOrders+` WHERE o.id = ?`), id); err != nil {
		return domain.Transaction{}, err
	}
	var items []orderItemRow
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(selectOrderItems+`
	  WHERE oi.order_id = ?
	  ORDER BY b.title, oi.id`), id); err != nil {
		return domain.Transaction{}, err
	}
	return assemble(o, items), nil
}

// List returns every order, newest first, with items.
func (r *OrderRepo) List(ctx context.Context) ([]domain.Transaction, error) {
	var orders []orderRow
	if err := r.db.SelectContext(ctx, &orders, selectOrders+`
	  ORDER BY o.created_at DESC, o.id`); err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0, len(orders))
	if len(orders) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	q, args, err := sqlx.In(selectOrderItems+`
	  WHERE oi.order_id IN (?)
	  ORDER BY b.title, oi.id`, ids)
	if err != nil {
		return nil, err
	}
	var items []orderItemRow
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	byOrder := map[string][]orderItemRow{}
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for _, o := range orders {
		out = append(out, assemble(o, byOrder[o.ID]))
	}
	return out, nil
}

func assemble(o orderRow, items []orderItemRow) domain.Transaction {
	t := domain.Transaction{
		ID:         o.ID,
		User:       domain.UserSummary{ID: o.UserID, Email: o.Email, Username: o.Username},
		Items:      make([]domain.TransactionItem, 0, len(items)),
		TotalPrice: o.TotalPrice,
		CreatedAt:  o.CreatedAt,
	}
	for _, it := range items {
		ti := domain.TransactionItem{
			ID:        it.ID,
			BookID:    it.BookID,
			Title:     it.Title,
			Writer:    it.Writer,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
		}
		if it.GenreName.Valid {
			ti.Genre = &domain.GenreRef{ID: it.GenreID, Name: it.GenreName.String}
		}
		t.TotalQuantity += it.Quantity
		t.Items = append(t.Items, ti)
	}
	return t
}

// ---------- Statistics ----------

// Totals returns the order count and the average order total (zero when there are no orders).
func (r *OrderRepo) Totals(ctx context.Context) (int, decimal.Decimal, error) {
	var row struct {
		N   int                 `db:"n"`
		Avg decimal.NullDecimal `db:"avg_total"`
	}
	if err := r.db.GetContext(ctx, &row, `SELECT COUNT(*) AS n, AVG(total_price) AS avg_total FROM orders`); err != nil {
		return 0, decimal.Zero, err
	}
	if !row.Avg.Valid {
		return row.N, decimal.Zero, nil
	}
	return row.N, row.Avg.Decimal.Round(2), nil
}

// GenreByPopularity returns the active genre with the most (desc=true) or fewest order items
// among active books. Ties go to the alphabetically first name. Empty when nothing qualifies.
func (r *OrderRepo) GenreByPopularity(ctx context.Context, desc bool) (string, error) {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	var row struct {
		Name  string `db:"name"`
		Total int    `db:"total"`
	}
	err := r.db.GetContext(ctx, &row, `
	  SELECT g.name AS name, COUNT(oi.id) AS total
	  FROM order_items oi
	  JOIN books b ON b.id = oi.book_id AND `+notDeleted("b")+`
	  JOIN genres g ON g.id = b.genre_id AND `+notDeleted("g")+`
	  GROUP BY g.id, g.name
	  ORDER BY total `+dir+`, g.name ASC
	  LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return row.Name, err
}
