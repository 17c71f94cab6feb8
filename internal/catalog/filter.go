package catalog

import (
	"fmt"
	"strings"

	shoperrors "github.com/abgdnv/storesim/internal/errors"
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// Filter narrows a product listing. Zero values match everything.
type Filter struct {
	// Query is matched case-insensitively against name and description.
	Query       string
	Category    string
	InStockOnly bool
	// Expr is an optional boolean expression over a product, e.g. `price < 500 && category == "Home"`.
	Expr string
}

// productEnv is the variable set visible to filter expressions.
type productEnv struct {
	ID          string  `expr:"id"`
	Name        string  `expr:"name"`
	Description string  `expr:"description"`
	Price       float64 `expr:"price"`
	Stock       int     `expr:"stock"`
	Category    string  `expr:"category"`
	Rating      float64 `expr:"rating"`
	ReviewCount int     `expr:"reviewCount"`
	InStock     bool    `expr:"inStock"`
}

func envOf(p Product) productEnv {
	return productEnv{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Stock:       p.Stock,
		Category:    p.Category,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		InStock:     p.InStock(),
	}
}

type matcher struct {
	query       string
	category    string
	inStockOnly bool
	program     *exprvm.Program
}

// compile validates the filter once so every product is tested against the same program.
// A malformed expression is a *ValidationError on field "expr".
func (f Filter) compile() (*matcher, error) {
	m := &matcher{
		query:       strings.ToLower(strings.TrimSpace(f.Query)),
		category:    f.Category,
		inStockOnly: f.InStockOnly,
	}
	if strings.TrimSpace(f.Expr) == "" {
		return m, nil
	}
	program, err := exprlang.Compile(f.Expr, exprlang.Env(productEnv{}), exprlang.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", &shoperrors.ValidationError{
			Fields: map[string]string{"expr": err.Error()},
		})
	}
	m.program = program
	return m, nil
}

func (m *matcher) match(p Product) (bool, error) {
	if m.query != "" &&
		!strings.Contains(strings.ToLower(p.Name), m.query) &&
		!strings.Contains(strings.ToLower(p.Description), m.query) {
		return false, nil
	}
	if m.category != "" && p.Category != m.category {
		return false, nil
	}
	if m.inStockOnly && !p.InStock() {
		return false, nil
	}
	if m.program == nil {
		return true, nil
	}
	out, err := exprlang.Run(m.program, envOf(p))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter on product %s: %w", p.ID, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}
