package services_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore/internal/apperr"
	"bookstore/internal/repos"
	"bookstore/internal/services"
)

func TestCreateTransaction_Success(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "buyer@example.com")
	g := e.genre(t, "Fiction")
	a := e.book(t, g.ID, "Dune", "10.50", 5)
	b := e.book(t, g.ID, "Emma", "3.25", 2)

	tr, err := e.order.CreateTransaction(ctx, services.TransactionInput{
		UserID: u.ID,
		Items: []services.TransactionItemInput{
			{BookID: a.ID, Quantity: 2},
			{BookID: b.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "27.50", tr.TotalPrice.StringFixed(2))
	assert.Equal(t, 4, tr.TotalQuantity)
	assert.Equal(t, u.ID, tr.User.ID)
	require.Len(t, tr.Items, 2)
	assert.Equal(t, "21.00", tr.Items[0].Subtotal.StringFixed(2))
	assert.Equal(t, "Fiction", tr.Items[0].Genre.Name)

	assert.Equal(t, 3, e.stock(t, a.ID))
	assert.Equal(t, 0, e.stock(t, b.ID))

	got, err := e.order.GetTransaction(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, tr.TotalPrice.Equal(got.TotalPrice))
	assert.Equal(t, 4, got.TotalQuantity)
	assert.Equal(t, "buyer@example.com", got.User.Email)
}

func TestCreateTransaction_UserFromContext(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "buyer@example.com")
	g := e.genre(t, "Fiction")
	a := e.book(t, g.ID, "Dune", "1.00", 1)

	ctx := services.WithIdentity(context.Background(), services.Identity{ID: u.ID})
	tr, err := e.order.CreateTransaction(ctx, services.TransactionInput{
		Items: []services.TransactionItemInput{{BookID: a.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, tr.User.ID)
}

func TestCreateTransaction_RejectsWithoutWrites(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "buyer@example.com")
	g := e.genre(t, "Fiction")
	a := e.book(t, g.ID, "Dune", "10.00", 5)
	b := e.book(t, g.ID, "Emma", "3.00", 1)

	cases := []struct {
		name  string
		in    services.TransactionInput
		kind  apperr.Kind
		check func(t *testing.T, err error)
	}{
		{
			name: "empty items",
			in:   services.TransactionInput{UserID: u.ID},
			kind: apperr.KindValidation,
			check: func(t *testing.T, err error) {
				assert.Equal(t, "Transaction items cannot be empty", apperr.Message(err))
			},
		},
		{
			name: "zero quantity",
			in:   services.TransactionInput{UserID: u.ID, Items: []services.TransactionItemInput{{BookID: a.ID}}},
			kind: apperr.KindValidation,
		},
		{
			name: "unknown user",
			in:   services.TransactionInput{UserID: "nobody", Items: []services.TransactionItemInput{{BookID: a.ID, Quantity: 1}}},
			kind: apperr.KindNotFound,
		},
		{
			name: "unknown book after a valid line",
			in: services.TransactionInput{UserID: u.ID, Items: []services.TransactionItemInput{
				{BookID: a.ID, Quantity: 1}, {BookID: "missing", Quantity: 1},
			}},
			kind: apperr.KindNotFound,
			check: func(t *testing.T, err error) {
				assert.Equal(t, "Book missing not found", apperr.Message(err))
			},
		},
		{
			name: "second line exceeds stock",
			in: services.TransactionInput{UserID: u.ID, Items: []services.TransactionItemInput{
				{BookID: a.ID, Quantity: 2}, {BookID: b.ID, Quantity: 2},
			}},
			kind: apperr.KindInsufficientStock,
			check: func(t *testing.T, err error) {
				var ise *apperr.InsufficientStockError
				require.True(t, errors.As(err, &ise))
				assert.Equal(t, b.ID, ise.Shortage.BookID)
				assert.Equal(t, "Emma", ise.Shortage.Title)
				assert.Equal(t, 1, ise.Shortage.Available)
				assert.Equal(t, 400, apperr.Status(err))
			},
		},
		{
			name: "duplicate lines accumulate",
			in: services.TransactionInput{UserID: u.ID, Items: []services.TransactionItemInput{
				{BookID: a.ID, Quantity: 3}, {BookID: a.ID, Quantity: 3},
			}},
			kind: apperr.KindInsufficientStock,
		},
		{
			name: "huge duplicate line does not wrap around",
			in: services.TransactionInput{UserID: u.ID, Items: []services.TransactionItemInput{
				{BookID: a.ID, Quantity: 1}, {BookID: a.ID, Quantity: math.MaxInt},
			}},
			kind: apperr.KindInsufficientStock,
			check: func(t *testing.T, err error) {
				var ise *apperr.InsufficientStockError
				require.True(t, errors.As(err, &ise))
				assert.Equal(t, math.MaxInt, ise.Shortage.Requested)
				assert.Equal(t, 400, apperr.Status(err))
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.order.CreateTransaction(ctx, tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			if tc.check != nil {
				tc.check(t, err)
			}
			assert.Equal(t, 5, e.stock(t, a.ID))
			assert.Equal(t, 1, e.stock(t, b.ID))
			assert.Equal(t, 0, e.count(t, "orders"))
			assert.Equal(t, 0, e.count(t, "order_items"))
		})
	}
}

func TestCreateTransaction_DeletedBookIsNotFound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "buyer@example.com")
	g := e.genre(t, "Fiction")
	a := e.book(t, g.ID, "Dune", "10.00", 5)
	require.NoError(t, e.catalog.DeleteBook(ctx, a.ID))

	_, err := e.order.CreateTransaction(ctx, services.TransactionInput{
		UserID: u.ID, Items: []services.TransactionItemInput{{BookID: a.ID, Quantity: 1}},
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreateTransaction_ConcurrentBuyersCannotOversell(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "buyer@example.com")
	g := e.genre(t, "Fiction")
	a := e.book(t, g.ID, "Dune", "10.00", 3)

	const buyers = 2
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.order.CreateTransaction(ctx, services.TransactionInput{
				UserID: u.ID, Items: []services.TransactionItemInput{{BookID: a.ID, Quantity: 3}},
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		k := apperr.KindOf(err)
		assert.True(t, k == apperr.KindConflict || k == apperr.KindInsufficientStock, "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 0, e.stock(t, a.ID))
	assert.Equal(t, 1, e.count(t, "orders"))
}

func TestCommitFailureRollsBack(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "buyer@example.com")
	g := e.genre(t, "Fiction")
	a := e.book(t, g.ID, "Dune", "10.00", 5)
	b := e.book(t, g.ID, "Emma", "3.00", 5)

	drainOnOrderInsert(t, e, b.ID)
	_, err := e.order.CreateTransaction(ctx, services.TransactionInput{
		UserID: u.ID, Items: []services.TransactionItemInput{{BookID: a.ID, Quantity: 2}, {BookID: b.ID, Quantity: 2}},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "Transaction could not be committed", apperr.Message(err))
	assert.ErrorIs(t, err, repos.ErrStockConflict)

	assert.Equal(t, 5, e.stock(t, a.ID), "first line decrement rolled back")
	assert.Equal(t, 0, e.count(t, "orders"))
	assert.Equal(t, 0, e.count(t, "order_items"))
}

// drainOnOrderInsert empties the stock of id inside the commit, after validation has read it.
func drainOnOrderInsert(t *testing.T, e *env, id string) {
	t.Helper()
	_, err := e.db.Exec(`
		CREATE TRIGGER drain_after_order AFTER INSERT ON orders
		BEGIN UPDATE books SET stock_quantity = 0 WHERE id = '` + id + `'; END`)
	require.NoError(t, err)
}

func TestListTransactions_KeepsHistoryAfterDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "buyer@example.com")
	g := e.genre(t, "Fiction")
	a := e.book(t, g.ID, "Dune", "10.00", 5)

	_, err := e.order.CreateTransaction(ctx, services.TransactionInput{
		UserID: u.ID, Items: []services.TransactionItemInput{{BookID: a.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = e.catalog.UpdateBook(ctx, a.ID, services.BookInput{Price: ptrDecimal("99.00")})
	require.NoError(t, err)
	require.NoError(t, e.catalog.DeleteBook(ctx, a.ID))

	list, err := e.order.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Items, 1)
	assert.Equal(t, "Dune", list[0].Items[0].Title)
	assert.Equal(t, "10.00", list[0].Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "10.00", list[0].TotalPrice.StringFixed(2))

	_, err = e.order.GetTransaction(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "Transaction not found", apperr.Message(err))
}

func TestStatistics(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	st, err := e.order.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalTransaction)
	assert.True(t, st.AverageTransaction.IsZero())
	assert.Nil(t, st.MostPopularGenre)
	assert.Nil(t, st.LeastPopularGenre)

	u := e.user(t, "buyer@example.com")
	fiction := e.genre(t, "Fiction")
	art := e.genre(t, "Art")
	poetry := e.genre(t, "Poetry")
	f := e.book(t, fiction.ID, "Dune", "10.00", 10)
	a := e.book(t, art.ID, "Ways of Seeing", "20.00", 10)
	p := e.book(t, poetry.ID, "Odes", "5.00", 10)

	buy := func(lines ...services.TransactionItemInput) {
		_, err := e.order.CreateTransaction(ctx, services.TransactionInput{UserID: u.ID, Items: lines})
		require.NoError(t, err)
	}
	buy(services.TransactionItemInput{BookID: f.ID, Quantity: 1}, services.TransactionItemInput{BookID: a.ID, Quantity: 1})
	buy(services.TransactionItemInput{BookID: f.ID, Quantity: 1}, services.TransactionItemInput{BookID: a.ID, Quantity: 1})
	buy(services.TransactionItemInput{BookID: p.ID, Quantity: 4})

	st, err = e.order.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalTransaction)
	assert.Equal(t, "26.67", st.AverageTransaction.StringFixed(2))
	// Fiction and Art tie on two items each; the name decides
	require.NotNil(t, st.MostPopularGenre)
	assert.Equal(t, "Art", *st.MostPopularGenre)
	require.NotNil(t, st.LeastPopularGenre)
	assert.Equal(t, "Poetry", *st.LeastPopularGenre)

	require.NoError(t, e.catalog.DeleteGenre(ctx, art.ID))
	st, err = e.order.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Fiction", *st.MostPopularGenre)
}
