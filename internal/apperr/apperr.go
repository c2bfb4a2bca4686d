// Package apperr holds the error taxonomy shared by services and handlers.
//
// Services return *Error values; handlers translate them into HTTP status
// codes with Status and never show the wrapped cause to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindConflict
	KindInsufficientStock
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInsufficientStock:
		return "insufficient_stock"
	default:
		return "server"
	}
}

// Error carries a client-safe Message and the underlying cause in Err.
type Error struct {
	Kind    Kind
	Op      string // e.g. "orders.create"
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Op != "":
		return e.Op + ": " + e.Message
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// StockShortage is attached to KindInsufficientStock errors.
type StockShortage struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStockError names the book and the quantity still available.
type InsufficientStockError struct {
	base     Error
	Shortage StockShortage
}

func (e *InsufficientStockError) Error() string { return e.base.Error() }

func (e *InsufficientStockError) Unwrap() error { return &e.base }

func Validation(op, msg string) *Error { return &Error{Kind: KindValidation, Op: op, Message: msg} }

func Auth(op, msg string, err error) *Error {
	return &Error{Kind: KindAuth, Op: op, Message: msg, Err: err}
}

func NotFound(op, msg string) *Error { return &Error{Kind: KindNotFound, Op: op, Message: msg} }

func Conflict(op, msg string, err error) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: msg, Err: err}
}

func Server(op string, err error) *Error {
	return &Error{Kind: KindServer, Op: op, Message: "Internal server error", Err: err}
}

func InsufficientStock(op string, s StockShortage) *InsufficientStockError {
	return &InsufficientStockError{
		base: Error{
			Kind:    KindInsufficientStock,
			Op:      op,
			Message: fmt.Sprintf("Insufficient stock for book %s: requested %d, available %d", s.BookID, s.Requested, s.Available),
		},
		Shortage: s,
	}
}

// KindOf reports the kind of err, KindServer for anything that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInsufficientStock:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindServer {
		return e.Message
	}
	return "Internal server error"
}
