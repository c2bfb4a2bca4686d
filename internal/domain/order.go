package domain

import "github.com/shopspring/decimal"

type Order struct {
	ID         string          `db:"id"`
	UserID     string          `db:"user_id"`
	TotalPrice decimal.Decimal `db:"total_price"`
	CreatedAt  string          `db:"created_at"`
	UpdatedAt  string          `db:"updated_at"`
}

type OrderItem struct {
	ID        string          `db:"id"`
	OrderID   string          `db:"order_id"`
	BookID    string          `db:"book_id"`
	Quantity  int             `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
}

// Transaction is an order with its buyer and priced lines, as returned by the API.
type Transaction struct {
	ID            string            `json:"id"`
	User          UserSummary       `json:"user"`
	Items         []TransactionItem `json:"items"`
	TotalQuantity int               `json:"total_quantity"`
	TotalPrice    decimal.Decimal   `json:"total_price"`
	CreatedAt     string            `json:"created_at"`
}

type TransactionItem struct {
	ID        string          `json:"id"`
	BookID    string          `json:"book_id"`
	Title     string          `json:"title"`
	Writer    string          `json:"writer"`
	Genre     *GenreRef       `json:"genre"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Statistics struct {
	TotalTransaction   int             `json:"total_transaction"`
	AverageTransaction decimal.Decimal `json:"average_transaction"`
	MostPopularGenre   *string         `json:"most_popular_genre"`
	LeastPopularGenre  *string         `json:"least_popular_genre"`
}
