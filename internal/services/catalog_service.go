package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bookstore/internal/apperr"
	"bookstore/internal/domain"
	"bookstore/internal/repos"
	"bookstore/internal/validate"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultBookPageSize  = 5
	DefaultGenrePageSize = 20
)

// BookInput carries book fields from a request body. A nil field was not sent:
// create requires the mandatory ones, update applies only what is present.
type BookInput struct {
	Title           *string          `json:"title"`
	Writer          *string          `json:"writer"`
	Publisher       *string          `json:"publisher"`
	PublicationYear *int             `json:"publication_year"`
	Description     *string          `json:"description"`
	Price           *decimal.Decimal `json:"price"`
	StockQuantity   *int             `json:"stock_quantity"`
	GenreID         *string          `json:"genre_id"`
}

type CatalogService struct {
	Genres *repos.GenreRepo
	Books  *repos.BookRepo
}

func NewCatalogService(genres *repos.GenreRepo, books *repos.BookRepo) *CatalogService {
	return &CatalogService{Genres: genres, Books: books}
}

// ---------- Books ----------

func (s *CatalogService) CreateBook(ctx context.Context, in BookInput) (domain.Book, error) {
	const op = "books.create"
	var missing []string
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		missing = append(missing, "title")
	}
	if in.Writer == nil || strings.TrimSpace(*in.Writer) == "" {
		missing = append(missing, "writer")
	}
	if in.Price == nil {
		missing = append(missing, "price")
	}
	if in.StockQuantity == nil {
		missing = append(missing, "stock_quantity")
	}
	if in.GenreID == nil || strings.TrimSpace(*in.GenreID) == "" {
		missing = append(missing, "genre_id")
	}
	if len(missing) > 0 {
		return domain.Book{}, apperr.Validation(op, "Missing required fields: "+strings.Join(missing, ", "))
	}

	b := domain.Book{ID: uuid.NewString()}
	if err := s.applyBook(ctx, op, &b, in); err != nil {
		return domain.Book{}, err
	}
	if err := s.Books.Create(ctx, &b); err != nil {
		if repos.IsUniqueViolation(err) {
			return domain.Book{}, apperr.Conflict(op, "Book with this title already exists", err)
		}
		return domain.Book{}, apperr.Server(op, err)
	}
	return s.GetBook(ctx, b.ID)
}

func (s *CatalogService) ListBooks(ctx context.Context, title string, page, size int) ([]domain.Book, domain.Page, error) {
	page, size = validate.Bounds(page, size, DefaultBookPageSize)
	books, total, err := s.Books.List(ctx, validate.Filter(title), size, (page-1)*size)
	if err != nil {
		return nil, domain.Page{}, apperr.Server("books.list", err)
	}
	return books, domain.NewPage(total, page, size), nil
}

func (s *CatalogService) GetBook(ctx context.Context, id string) (domain.Book, error) {
	b, err := s.Books.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Book{}, apperr.NotFound("books.get", "Book not found")
	}
	if err != nil {
		return domain.Book{}, apperr.Server("books.get", err)
	}
	return b, nil
}

func (s *CatalogService) UpdateBook(ctx context.Context, id string, in BookInput) (domain.Book, error) {
	const op = "books.update"
	b, err := s.GetBook(ctx, id)
	if err != nil {
		return domain.Book{}, err
	}
	if err := s.applyBook(ctx, op, &b, in); err != nil {
		return domain.Book{}, err
	}
	if err := s.Books.Update(ctx, &b); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.Book{}, apperr.NotFound(op, "Book not found")
		case repos.IsUniqueViolation(err):
			return domain.Book{}, apperr.Conflict(op, "Book with this title already exists", err)
		}
		return domain.Book{}, apperr.Server(op, err)
	}
	return s.GetBook(ctx, id)
}

func (s *CatalogService) DeleteBook(ctx context.Context, id string) error {
	err := s.Books.SoftDelete(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("books.delete", "Book not found")
	}
	if err != nil {
		return apperr.Server("books.delete", err)
	}
	return nil
}

// applyBook validates the present fields of in and copies them onto b.
func (s *CatalogService) applyBook(ctx context.Context, op string, b *domain.Book, in BookInput) error {
	if in.Title != nil {
		t, ok := validate.Name(*in.Title)
		if !ok {
			return apperr.Validation(op, "Title must be 1-255 characters")
		}
		taken, err := s.Books.TitleTaken(ctx, t, b.ID)
		if err != nil {
			return apperr.Server(op, err)
		}
		if taken {
			return apperr.Conflict(op, "Book with this title already exists", nil)
		}
		b.Title = t
	}
	if in.Writer != nil {
		w, ok := validate.Name(*in.Writer)
		if !ok {
			return apperr.Validation(op, "Writer must be 1-255 characters")
		}
		b.Writer = w
	}
	if in.Publisher != nil {
		b.Publisher = strings.TrimSpace(*in.Publisher)
	}
	if in.Description != nil {
		b.Description = strings.TrimSpace(*in.Description)
	}
	if in.PublicationYear != nil {
		if !validate.Year(*in.PublicationYear) {
			return apperr.Validation(op, fmt.Sprintf("Publication year %d is out of range", *in.PublicationYear))
		}
		y := *in.PublicationYear
		b.PublicationYear = &y
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return apperr.Validation(op, "Price must not be negative")
		}
		b.Price = in.Price.Round(2)
	}
	if in.StockQuantity != nil {
		if *in.StockQuantity < 0 {
			return apperr.Validation(op, "Stock quantity must not be negative")
		}
		b.StockQuantity = *in.StockQuantity
	}
	if in.GenreID != nil {
		gid := strings.TrimSpace(*in.GenreID)
		if _, err := s.Genres.Get(ctx, gid); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound(op, "Genre not found")
			}
			return apperr.Server(op, err)
		}
		b.GenreID = gid
	}
	return nil
}

// ---------- Genres ----------

func (s *CatalogService) CreateGenre(ctx context.Context, name string) (domain.Genre, error) {
	const op = "genres.create"
	n, ok := validate.Name(name)
	if !ok {
		return domain.Genre{}, apperr.Validation(op, "Name is required")
	}
	taken, err := s.Genres.NameTaken(ctx, n, "")
	if err != nil {
		return domain.Genre{}, apperr.Server(op, err)
	}
	if taken {
		return domain.Genre{}, apperr.Conflict(op, "Genre with this name already exists", nil)
	}
	g := domain.Genre{ID: uuid.NewString(), Name: n}
	if err := s.Genres.Create(ctx, &g); err != nil {
		if repos.IsUniqueViolation(err) {
			return domain.Genre{}, apperr.Conflict(op, "Genre with this name already exists", err)
		}
		return domain.Genre{}, apperr.Server(op, err)
	}
	return g, nil
}

// ListGenres returns a page of active genres with their active books nested.
func (s *CatalogService) ListGenres(ctx context.Context, name string, page, size int) ([]domain.Genre, domain.Page, error) {
	const op = "genres.list"
	page, size = validate.Bounds(page, size, DefaultGenrePageSize)
	genres, total, err := s.Genres.List(ctx, validate.Filter(name), size, (page-1)*size)
	if err != nil {
		return nil, domain.Page{}, apperr.Server(op, err)
	}
	ids := make([]string, 0, len(genres))
	for _, g := range genres {
		ids = append(ids, g.ID)
	}
	books, err := s.Books.ListByGenres(ctx, ids)
	if err != nil {
		return nil, domain.Page{}, apperr.Server(op, err)
	}
	for i := range genres {
		genres[i].Books = books[genres[i].ID]
	}
	return genres, domain.NewPage(total, page, size), nil
}

func (s *CatalogService) GetGenre(ctx context.Context, id string) (domain.Genre, error) {
	const op = "genres.get"
	g, err := s.Genres.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Genre{}, apperr.NotFound(op, "Genre not found")
	}
	if err != nil {
		return domain.Genre{}, apperr.Server(op, err)
	}
	books, err := s.Books.ListByGenres(ctx, []string{id})
	if err != nil {
		return domain.Genre{}, apperr.Server(op, err)
	}
	g.Books = books[id]
	return g, nil
}

func (s *CatalogService) UpdateGenre(ctx context.Context, id, name string) (domain.Genre, error) {
	const op = "genres.update"
	n, ok := validate.Name(name)
	if !ok {
		return domain.Genre{}, apperr.Validation(op, "Name is required")
	}
	if _, err := s.Genres.Get(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Genre{}, apperr.NotFound(op, "Genre not found")
		}
		return domain.Genre{}, apperr.Server(op, err)
	}
	taken, err := s.Genres.NameTaken(ctx, n, id)
	if err != nil {
		return domain.Genre{}, apperr.Server(op, err)
	}
	if taken {
		return domain.Genre{}, apperr.Conflict(op, "Genre with this name already exists", nil)
	}
	if err := s.Genres.Rename(ctx, id, n); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.Genre{}, apperr.NotFound(op, "Genre not found")
		case repos.IsUniqueViolation(err):
			return domain.Genre{}, apperr.Conflict(op, "Genre with this name already exists", err)
		}
		return domain.Genre{}, apperr.Server(op, err)
	}
	g, err := s.Genres.Get(ctx, id)
	if err != nil {
		return domain.Genre{}, apperr.Server(op, err)
	}
	return g, nil
}

func (s *CatalogService) DeleteGenre(ctx context.Context, id string) error {
	err := s.Genres.SoftDelete(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("genres.delete", "Genre not found")
	}
	if err != nil {
		return apperr.Server("genres.delete", err)
	}
	return nil
}
