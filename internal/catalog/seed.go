package catalog

import "github.com/shopspring/decimal"

const placeholderImage = "https://placehold.co/600x400/1e293b/94a3b8?text="

// SeedProducts returns the catalog installed when nothing usable is stored.
func SeedProducts() []Product {
	return []Product{
		{
			ID:          "1",
			Name:        "Quantum Laptop",
			Description: "A laptop from the future with holographic display.",
			Price:       decimal.RequireFromString("2499.99"),
			Stock:       10,
			Category:    "Electronics",
			Rating:      4.8,
			ReviewCount: 124,
			ImageRef:    placeholderImage + "Quantum+Laptop",
		},
		{
			ID:          "2",
			Name:        "Singularity Mouse",
			Description: "Control your cursor with the power of your mind.",
			Price:       decimal.RequireFromString("149.50"),
			Stock:       5,
			Category:    "Accessories",
			Rating:      4.2,
			ReviewCount: 45,
			ImageRef:    placeholderImage + "Singularity+Mouse",
		},
		{
			ID:          "3",
			Name:        "Galactic Keyboard",
			Description: "Keys are made of stardust. Types in any language.",
			Price:       decimal.RequireFromString("499.00"),
			Stock:       0,
			Category:    "Accessories",
			Rating:      4.9,
			ReviewCount: 89,
			ImageRef:    placeholderImage + "Galactic+Keyboard",
		},
		{
			ID:          "4",
			Name:        "Nebula Smartwatch",
			Description: "Tracks time across dimensions.",
			Price:       decimal.RequireFromString("299.99"),
			Stock:       15,
			Category:    "Wearables",
			Rating:      4.5,
			ReviewCount: 62,
			ImageRef:    placeholderImage + "Nebula+Watch",
		},
		{
			ID:          "5",
			Name:        "Void Noise Cancelling",
			Description: "Silence absolute. Hear the cosmos.",
			Price:       decimal.RequireFromString("349.00"),
			Stock:       8,
			Category:    "Electronics",
			Rating:      4.7,
			ReviewCount: 210,
			ImageRef:    placeholderImage + "Void+Headphones",
		},
		{
			ID:          "6",
			Name:        "Zero-G Chair",
			Description: "Floating ergonomic chair for deep focus.",
			Price:       decimal.RequireFromString("899.99"),
			Stock:       3,
			Category:    "Home",
			Rating:      4.9,
			ReviewCount: 34,
			ImageRef:    placeholderImage + "Zero-G+Chair",
		},
	}
}
