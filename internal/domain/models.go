package domain

import "github.com/shopspring/decimal"

func init() {
	// prices go out as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

type Genre struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	CreatedAt string `db:"created_at" json:"created_at"`
	UpdatedAt string `db:"updated_at" json:"updated_at"`
	Books     []Book `db:"-" json:"books,omitempty"`
}

// GenreRef is the genre summary nested in books and order items.
type GenreRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Book struct {
	ID              string          `db:"id" json:"id"`
	GenreID         string          `db:"genre_id" json:"genre_id"`
	Title           string          `db:"title" json:"title"`
	Writer          string          `db:"writer" json:"writer"`
	Publisher       string          `db:"publisher" json:"publisher"`
	PublicationYear *int            `db:"publication_year" json:"publication_year"`
	Description     string          `db:"description" json:"description"`
	Price           decimal.Decimal `db:"price" json:"price"`
	StockQuantity   int             `db:"stock_quantity" json:"stock_quantity"`
	CreatedAt       string          `db:"created_at" json:"created_at"`
	UpdatedAt       string          `db:"updated_at" json:"updated_at"`
	Genre           *GenreRef       `db:"-" json:"genre"`
}

// Page describes one page of a listing.
type Page struct {
	CurrentPage  int `json:"current_page"`
	PageSize     int `json:"page_size"`
	LastPage     int `json:"last_page"`
	TotalRecords int `json:"total_records"`
}

// NewPage computes page metadata from the total row count.
func NewPage(total, page, size int) Page {
	last := 0
	if total > 0 && size > 0 {
		last = (total + size - 1) / size
	}
	return Page{CurrentPage: page, PageSize: size, LastPage: last, TotalRecords: total}
}
