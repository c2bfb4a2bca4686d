package handlers

import (
	"bookstore/internal/apperr"
	"bookstore/internal/log"
	"bookstore/internal/services"
	"bookstore/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type GenreHandler struct {
	Catalog *services.CatalogService
}

type genreBody struct {
	Name string `json:"name"`
}

func genreID(c *fiber.Ctx) (string, error) {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "genre_id"})
		return "", apperr.NotFound("genres.id", "Genre not found")
	}
	return id, nil
}

func (h *GenreHandler) Create(c *fiber.Ctx) error {
	var in genreBody
	if err := parseBody(c, &in); err != nil {
		return renderErr(c, "genres.create.fail", err)
	}
	g, err := h.Catalog.CreateGenre(c.UserContext(), in.Name)
	if err != nil {
		return renderErr(c, "genres.create.fail", err)
	}
	log.Audit(c, "genres.create", map[string]any{"genre_id": g.ID, "name": g.Name})
	return render(c, fiber.StatusCreated, "Genre created successfully", g)
}

func (h *GenreHandler) List(c *fiber.Ctx) error {
	page, size := validate.Page(c.Query("page"), c.Query("limit"), services.DefaultGenrePageSize)
	genres, meta, err := h.Catalog.ListGenres(c.UserContext(), c.Query("name"), page, size)
	if err != nil {
		return renderErr(c, "genres.list.fail", err)
	}
	return renderPage(c, "Genres retrieved successfully", genres, meta)
}

func (h *GenreHandler) Get(c *fiber.Ctx) error {
	id, err := genreID(c)
	if err != nil {
		return renderErr(c, "genres.get.fail", err)
	}
	g, err := h.Catalog.GetGenre(c.UserContext(), id)
	if err != nil {
		return renderErr(c, "genres.get.fail", err)
	}
	return render(c, fiber.StatusOK, "Genre retrieved successfully", g)
}

func (h *GenreHandler) Update(c *fiber.Ctx) error {
	id, err := genreID(c)
	if err != nil {
		return renderErr(c, "genres.update.fail", err)
	}
	var in genreBody
	if err := parseBody(c, &in); err != nil {
		return renderErr(c, "genres.update.fail", err)
	}
	g, err := h.Catalog.UpdateGenre(c.UserContext(), id, in.Name)
	if err != nil {
		return renderErr(c, "genres.update.fail", err)
	}
	log.Audit(c, "genres.update", map[string]any{"genre_id": id, "name": g.Name})
	return render(c, fiber.StatusOK, "Genre updated successfully", g)
}

func (h *GenreHandler) Delete(c *fiber.Ctx) error {
	id, err := genreID(c)
	if err != nil {
		return renderErr(c, "genres.delete.fail", err)
	}
	if err := h.Catalog.DeleteGenre(c.UserContext(), id); err != nil {
		return renderErr(c, "genres.delete.fail", err)
	}
	log.Audit(c, "genres.delete", map[string]any{"genre_id": id})
	return render(c, fiber.StatusOK, "Genre deleted successfully", nil)
}
