// Package errors provides the error taxonomy shared by the catalog, cart, checkout and ledger packages.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrValidation = errors.New("validation failed")
var ErrNotFound = errors.New("not found")

var ErrStockExceeded = errors.New("stock exceeded")
var ErrInsufficientStock = errors.New("insufficient stock")

var ErrCorruptState = errors.New("corrupt stored state")

var ErrNoActiveUser = errors.New("no active user")
var ErrForbidden = errors.New("forbidden")
var ErrInvalidCredentials = errors.New("invalid username or password")
var ErrUsernameTaken = errors.New("username already exists")

var ErrEmptyCart = errors.New("cart is empty")
var ErrCheckoutInProgress = errors.New("checkout in progress")
var ErrInvalidTransition = errors.New("invalid checkout transition")

// ValidationError carries per-field rule failures. It matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, rule string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: rule}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StockExceededError is returned when a cart mutation would push a line above the known stock.
type StockExceededError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("%s: product %s. Available: %d, Requested: %d", ErrStockExceeded, e.ProductID, e.Available, e.Requested)
}

func (e *StockExceededError) Unwrap() error {
	return ErrStockExceeded
}

// Shortfall describes one cart line that live stock can no longer cover.
// Available is -1 when the product no longer exists.
type Shortfall struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStockError is the checkout-time re-validation failure.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		if s.Available < 0 {
			parts = append(parts, fmt.Sprintf("product %s no longer exists", s.ProductID))
			continue
		}
		parts = append(parts, fmt.Sprintf("product %s. Available: %d, Requested: %d", s.ProductID, s.Available, s.Requested))
	}
	return fmt.Sprintf("%s: %s", ErrInsufficientStock, strings.Join(parts, "; "))
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
