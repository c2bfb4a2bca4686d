package handlers

import (
	"errors"

	"bookstore/internal/apperr"
	"bookstore/internal/log"
	"bookstore/internal/services"
	"bookstore/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	Orders *services.OrderService
}

func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	var in services.TransactionInput
	if err := parseBody(c, &in); err != nil {
		return renderErr(c, "orders.create.fail", err)
	}
	t, err := h.Orders.CreateTransaction(c.UserContext(), in)
	if err != nil {
		var ise *apperr.InsufficientStockError
		switch {
		case errors.As(err, &ise):
			log.Info(c, "orders.create.rejected", map[string]any{
				"book_id": ise.Shortage.BookID, "requested": ise.Shortage.Requested, "available": ise.Shortage.Available,
			})
		case apperr.Is(err, apperr.KindConflict):
			log.Error(c, "orders.create.conflict", err, nil)
		}
		return renderErr(c, "orders.create.fail", err)
	}
	log.Audit(c, "orders.create", map[string]any{
		"order_id": t.ID, "total_price": t.TotalPrice.StringFixed(2), "total_quantity": t.TotalQuantity,
	})
	return render(c, fiber.StatusCreated, "Transaction created successfully", t)
}

func (h *TransactionHandler) List(c *fiber.Ctx) error {
	list, err := h.Orders.ListTransactions(c.UserContext())
	if err != nil {
		return renderErr(c, "orders.list.fail", err)
	}
	return render(c, fiber.StatusOK, "Transactions retrieved successfully", list)
}

func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "transaction_id"})
		return renderErr(c, "orders.get.fail", apperr.NotFound("orders.id", "Transaction not found"))
	}
	t, err := h.Orders.GetTransaction(c.UserContext(), id)
	if err != nil {
		return renderErr(c, "orders.get.fail", err)
	}
	return render(c, fiber.StatusOK, "Transaction retrieved successfully", t)
}

func (h *TransactionHandler) Statistics(c *fiber.Ctx) error {
	st, err := h.Orders.Statistics(c.UserContext())
	if err != nil {
		return renderErr(c, "orders.statistics.fail", err)
	}
	return render(c, fiber.StatusOK, "Statistics retrieved successfully", st)
}
