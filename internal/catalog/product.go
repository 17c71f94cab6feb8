// Package catalog owns the product list: seeding, schema migration, search, admin mutations and stock reservation.
package catalog

import (
	"github.com/shopspring/decimal"
)

// DefaultCategory is assigned to products created without a category.
const DefaultCategory = "General"

// Product is a sellable item. Price is never negative and Stock never drops below zero.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"        validate:"required,max=100"`
	Description string          `json:"description" validate:"max=2000"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"       validate:"min=0"`
	Category    string          `json:"category"    validate:"max=50"`
	Rating      float64         `json:"rating"      validate:"min=0,max=5"`
	ReviewCount int             `json:"reviewCount" validate:"min=0"`
	ImageRef    string          `json:"imageRef"`
}

// InStock reports whether at least one unit can be sold.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Draft holds the admin-supplied fields of a new product.
type Draft struct {
	Name        string          `json:"name"        validate:"required,max=100"`
	Description string          `json:"description" validate:"max=2000"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"       validate:"min=0"`
	Category    string          `json:"category"    validate:"max=50"`
	ImageRef    string          `json:"imageRef"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	Category    *string          `json:"category,omitempty"`
	ImageRef    *string          `json:"imageRef,omitempty"`
}

func (p Patch) apply(to Product) Product {
	if p.Name != nil {
		to.Name = *p.Name
	}
	if p.Description != nil {
		to.Description = *p.Description
	}
	if p.Price != nil {
		to.Price = *p.Price
	}
	if p.Stock != nil {
		to.Stock = *p.Stock
	}
	if p.Category != nil {
		to.Category = *p.Category
	}
	if p.ImageRef != nil {
		to.ImageRef = *p.ImageRef
	}
	return to
}

// Reservation asks for Quantity units of a product at commit time.
type Reservation struct {
	ProductID string
	Quantity  int
}
