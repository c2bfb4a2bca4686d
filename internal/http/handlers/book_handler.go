package handlers

import (
	"bookstore/internal/apperr"
	"bookstore/internal/log"
	"bookstore/internal/services"
	"bookstore/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type BookHandler struct {
	Catalog *services.CatalogService
}

// bookID rejects malformed ids as not found without touching the store.
func bookID(c *fiber.Ctx) (string, error) {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "book_id"})
		return "", apperr.NotFound("books.id", "Book not found")
	}
	return id, nil
}

func (h *BookHandler) Create(c *fiber.Ctx) error {
	var in services.BookInput
	if err := parseBody(c, &in); err != nil {
		return renderErr(c, "books.create.fail", err)
	}
	b, err := h.Catalog.CreateBook(c.UserContext(), in)
	if err != nil {
		return renderErr(c, "books.create.fail", err)
	}
	log.Audit(c, "books.create", map[string]any{"book_id": b.ID, "title": b.Title})
	return render(c, fiber.StatusCreated, "Book created successfully", b)
}

func (h *BookHandler) List(c *fiber.Ctx) error {
	page, size := validate.Page(c.Query("page"), c.Query("limit"), services.DefaultBookPageSize)
	books, meta, err := h.Catalog.ListBooks(c.UserContext(), c.Query("title"), page, size)
	if err != nil {
		return renderErr(c, "books.list.fail", err)
	}
	return renderPage(c, "Books retrieved successfully", books, meta)
}

func (h *BookHandler) Get(c *fiber.Ctx) error {
	id, err := bookID(c)
	if err != nil {
		return renderErr(c, "books.get.fail", err)
	}
	b, err := h.Catalog.GetBook(c.UserContext(), id)
	if err != nil {
		return renderErr(c, "books.get.fail", err)
	}
	return render(c, fiber.StatusOK, "Book retrieved successfully", b)
}

func (h *BookHandler) Update(c *fiber.Ctx) error {
	id, err := bookID(c)
	if err != nil {
		return renderErr(c, "books.update.fail", err)
	}
	var in services.BookInput
	if err := parseBody(c, &in); err != nil {
		return renderErr(c, "books.update.fail", err)
	}
	b, err := h.Catalog.UpdateBook(c.UserContext(), id, in)
	if err != nil {
		return renderErr(c, "books.update.fail", err)
	}
	log.Audit(c, "books.update", map[string]any{"book_id": id})
	return render(c, fiber.StatusOK, "Book updated successfully", b)
}

func (h *BookHandler) Delete(c *fiber.Ctx) error {
	id, err := bookID(c)
	if err != nil {
		return renderErr(c, "books.delete.fail", err)
	}
	if err := h.Catalog.DeleteBook(c.UserContext(), id); err != nil {
		return renderErr(c, "books.delete.fail", err)
	}
	log.Audit(c, "books.delete", map[string]any{"book_id": id})
	return render(c, fiber.StatusOK, "Book deleted successfully", nil)
}
