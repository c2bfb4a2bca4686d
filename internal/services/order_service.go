package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"bookstore/internal/apperr"
	"bookstore/internal/domain"
	"bookstore/internal/repos"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "bookstore/internal/services"

type TransactionItemInput struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

type TransactionInput struct {
	UserID string                 `json:"user_id"`
	Items  []TransactionItemInput `json:"items"`
}

type OrderService struct {
	DB     *sqlx.DB
	Users  *repos.UserRepo
	Books  *repos.BookRepo
	Orders *repos.OrderRepo
}

func NewOrderService(db *sqlx.DB, users *repos.UserRepo, books *repos.BookRepo, orders *repos.OrderRepo) *OrderService {
	return &OrderService{DB: db, Users: users, Books: books, Orders: orders}
}

// pricedLine is one validated request line.
type pricedLine struct {
	book domain.Book
	qty  int
}

// CreateTransaction validates every line against current stock, then inserts the order,
// its items and the stock decrements in one store transaction. Nothing is written
// unless every line passes.
func (s *OrderService) CreateTransaction(ctx context.Context, in TransactionInput) (domain.Transaction, error) {
	const op = "orders.create"
	ctx, span := otel.Tracer(tracerName).Start(ctx, op, trace.WithAttributes(
		attribute.Int("order.lines", len(in.Items)),
	))
	defer span.End()

	t, err := s.createTransaction(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.KindOf(err).String())
		return domain.Transaction{}, err
	}
	span.SetAttributes(
		attribute.String("order.id", t.ID),
		attribute.Int("order.total_quantity", t.TotalQuantity),
		attribute.String("order.total_price", t.TotalPrice.StringFixed(2)),
	)
	return t, nil
}

func (s *OrderService) createTransaction(ctx context.Context, in TransactionInput) (domain.Transaction, error) {
	const op = "orders.create"

	// 1. request shape
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		if id, ok := IdentityFromContext(ctx); ok {
			userID = id.ID
		}
	}
	if userID == "" {
		return domain.Transaction{}, apperr.Validation(op, "user_id is required")
	}
	if len(in.Items) == 0 {
		return domain.Transaction{}, apperr.Validation(op, "Transaction items cannot be empty")
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.BookID) == "" {
			return domain.Transaction{}, apperr.Validation(op, fmt.Sprintf("Item %d: book_id is required", i))
		}
		if it.Quantity <= 0 {
			return domain.Transaction{}, apperr.Validation(op, fmt.Sprintf("Item %d: quantity must be a positive integer", i))
		}
	}
	u, err := s.Users.ByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, apperr.NotFound(op, "User not found")
	}
	if err != nil {
		return domain.Transaction{}, apperr.Server(op, err)
	}

	// 2. validate and price, no writes
	lines, total, err := s.price(ctx, in.Items)
	if err != nil {
		return domain.Transaction{}, err
	}

	// 3. commit
	order := domain.Order{ID: uuid.NewString(), UserID: u.ID, TotalPrice: total}
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			ID: uuid.NewString(), OrderID: order.ID, BookID: l.book.ID, Quantity: l.qty, UnitPrice: l.book.Price,
		})
	}
	if err := s.commit(ctx, &order, items); err != nil {
		return domain.Transaction{}, apperr.Conflict(op, "Transaction could not be committed", err)
	}

	// 4. respond
	t := domain.Transaction{
		ID:         order.ID,
		User:       u.Summary(),
		Items:      make([]domain.TransactionItem, 0, len(lines)),
		TotalPrice: total,
		CreatedAt:  order.CreatedAt,
	}
	for i, l := range lines {
		t.Items = append(t.Items, domain.TransactionItem{
			ID:        items[i].ID,
			BookID:    l.book.ID,
			Title:     l.book.Title,
			Writer:    l.book.Writer,
			Genre:     l.book.Genre,
			Quantity:  l.qty,
			UnitPrice: l.book.Price,
			Subtotal:  l.book.Price.Mul(decimal.NewFromInt(int64(l.qty))),
		})
		t.TotalQuantity += l.qty
	}
	return t, nil
}

// price looks up each line's book in submitted order. Quantities for the same book
// accumulate, so split lines cannot oversell.
func (s *OrderService) price(ctx context.Context, in []TransactionItemInput) ([]pricedLine, decimal.Decimal, error) {
	const op = "orders.create"
	ctx, span := otel.Tracer(tracerName).Start(ctx, "orders.validate")
	defer span.End()

	books := map[string]domain.Book{}
	requested := map[string]int{}
	lines := make([]pricedLine, 0, len(in))
	total := decimal.Zero

	for _, it := range in {
		id := strings.TrimSpace(it.BookID)
		b, seen := books[id]
		if !seen {
			var err error
			b, err = s.Books.Get(ctx, id)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, decimal.Zero, apperr.NotFound(op, fmt.Sprintf("Book %s not found", id))
			}
			if err != nil {
				return nil, decimal.Zero, apperr.Server(op, err)
			}
			books[id] = b
		}
		// compared against what is left so the running sum cannot overflow
		if it.Quantity > b.StockQuantity-requested[id] {
			want := requested[id] + it.Quantity
			if want < requested[id] {
				want = math.MaxInt
			}
			return nil, decimal.Zero, apperr.InsufficientStock(op, apperr.StockShortage{
				BookID: b.ID, Title: b.Title, Requested: want, Available: b.StockQuantity,
			})
		}
		requested[id] += it.Quantity
		lines = append(lines, pricedLine{book: b, qty: it.Quantity})
		total = total.Add(b.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return lines, total, nil
}

// commit must only touch tx: an in-memory SQLite pool has a single connection.
func (s *OrderService) commit(ctx context.Context, o *domain.Order, items []domain.OrderItem) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "orders.commit")
	defer span.End()

	err := repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if err := s.Orders.Insert(ctx, tx, o); err != nil {
			return err
		}
		for _, it := range items {
			if err := s.Orders.InsertItem(ctx, tx, it); err != nil {
				return err
			}
			if err := s.Books.DecrementStock(ctx, tx, it.BookID, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rollback")
	}
	return err
}

func (s *OrderService) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	out, err := s.Orders.List(ctx)
	if err != nil {
		return nil, apperr.Server("orders.list", err)
	}
	return out, nil
}

func (s *OrderService) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	t, err := s.Orders.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, apperr.NotFound("orders.get", "Transaction not found")
	}
	if err != nil {
		return domain.Transaction{}, apperr.Server("orders.get", err)
	}
	return t, nil
}

// Statistics aggregates all orders. Genre popularity counts order items per active genre
// among active books; ties go to the alphabetically first name.
func (s *OrderService) Statistics(ctx context.Context) (domain.Statistics, error) {
	const op = "orders.statistics"
	n, avg, err := s.Orders.Totals(ctx)
	if err != nil {
		return domain.Statistics{}, apperr.Server(op, err)
	}
	most, err := s.Orders.GenreByPopularity(ctx, true)
	if err != nil {
		return domain.Statistics{}, apperr.Server(op, err)
	}
	least, err := s.Orders.GenreByPopularity(ctx, false)
	if err != nil {
		return domain.Statistics{}, apperr.Server(op, err)
	}
	return domain.Statistics{
		TotalTransaction:   n,
		AverageTransaction: avg,
		MostPopularGenre:   optional(most),
		LeastPopularGenre:  optional(least),
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
