// Package apperrors holds the error values shared by the stores, services and
// controllers. Stores return the sentinels, services wrap them with context and
// controllers translate them into HTTP responses.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrSlugExists        = errors.New("slug already exists")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidID         = errors.New("invalid id")
)

// ValidationError is returned before any write when an input field is rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StockIssue describes one cart line that cannot be served from current stock.
type StockIssue struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// StockError carries every line that failed a stock check or a stock reservation.
type StockError struct {
	Issues []StockIssue
}

func (e *StockError) Error() string {
	names := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		name := is.Name
		if name == "" {
			name = is.ProductID
		}
		names = append(names, fmt.Sprintf("%s (requested %d, available %d)", name, is.Requested, is.Available))
	}
	return "insufficient stock: " + strings.Join(names, ", ")
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NotFound wraps ErrNotFound with the entity name, e.g. "product not found".
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}
