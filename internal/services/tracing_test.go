package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"bookstore/internal/services"
	"bookstore/internal/telemetry"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := telemetry.NewProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func spanNames(spans []sdktrace.ReadOnlySpan) []string {
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, s.Name())
	}
	return out
}

func TestCreateTransaction_Spans(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "buyer@example.com")
	g := e.genre(t, "Fiction")
	a := e.book(t, g.ID, "Dune", "10.00", 1)
	rec := recordSpans(t)

	_, err := e.order.CreateTransaction(ctx, services.TransactionInput{
		UserID: u.ID, Items: []services.TransactionItemInput{{BookID: a.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"orders.validate", "orders.commit", "orders.create"}, spanNames(rec.Ended()))

	_, err = e.order.CreateTransaction(ctx, services.TransactionInput{
		UserID: u.ID, Items: []services.TransactionItemInput{{BookID: a.ID, Quantity: 1}},
	})
	require.Error(t, err)
	ended := rec.Ended()
	last := ended[len(ended)-1]
	assert.Equal(t, "orders.create", last.Name())
	assert.Equal(t, codes.Error, last.Status().Code)
	assert.Equal(t, "insufficient_stock", last.Status().Description)
}
