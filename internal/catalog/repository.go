package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"

	shoperrors "github.com/abgdnv/storesim/internal/errors"
	"github.com/abgdnv/storesim/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ProductCatalog defines the catalog operations used by the cart, checkout and HTTP layers.
type ProductCatalog interface {
	// LoadOrSeed loads the stored catalog, migrating legacy records.
	// Installs the seed products when nothing usable is stored.
	LoadOrSeed(ctx context.Context) ([]Product, error)

	// List returns every product in catalog order.
	List(ctx context.Context) ([]Product, error)

	// FindByID returns a snapshot of one product.
	// Returns ErrNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (Product, error)

	// Search returns products matching the filter.
	// Returns a *ValidationError for a malformed filter expression.
	Search(ctx context.Context, f Filter) ([]Product, error)

	// Categories returns the distinct categories in catalog order.
	Categories(ctx context.Context) ([]string, error)

	// Related returns up to limit other products of the same category.
	// Returns ErrNotFound if the product does not exist.
	Related(ctx context.Context, id string, limit int) ([]Product, error)

	// Create validates and appends a new product with a fresh ID.
	Create(ctx context.Context, d Draft) (Product, error)

	// Update merges a patch into an existing product.
	// Returns ErrNotFound if the product does not exist; nothing is written on validation failure.
	Update(ctx context.Context, id string, p Patch) (Product, error)

	// Delete removes a product.
	// Returns ErrNotFound if the product does not exist.
	Delete(ctx context.Context, id string) error

	// Reserve decrements stock for every reservation or for none.
	// Returns *InsufficientStockError when any line cannot be covered by live stock.
	Reserve(ctx context.Context, items []Reservation) ([]Product, error)
}

// Repository implements ProductCatalog over a storage.Store.
// It is shared by all sessions of the process; mutations are serialized by its lock.
type Repository struct {
	mu       sync.RWMutex
	entity   *storage.Entity[[]Product]
	products []Product
	loaded   bool
	validate *validator.Validate
	logger   *slog.Logger
}

// NewRepository creates a catalog over store. rnd drives the legacy-record backfill and may be nil.
func NewRepository(store storage.Store, rnd *rand.Rand, logger *slog.Logger) *Repository {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Repository{
		entity:   storage.NewEntity[[]Product](store, storage.KindCatalog, migrateProducts(rnd)),
		validate: validator.New(),
		logger:   logger.With("component", "catalog"),
	}
}

func (r *Repository) LoadOrSeed(ctx context.Context) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(r.products), nil
}

// load reads the stored catalog into memory. The caller must hold the write lock.
func (r *Repository) load(ctx context.Context) error {
	products, found, err := r.entity.Load(ctx, "")
	if err != nil {
		if !errors.Is(err, shoperrors.ErrCorruptState) {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		r.logger.WarnContext(ctx, "Stored catalog is unreadable, reseeding", "error", err)
		found = false
	}
	if !found {
		products = SeedProducts()
		if err := r.entity.Save(ctx, "", products); err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
		r.logger.InfoContext(ctx, "Catalog seeded", "count", len(products))
	}
	if products == nil {
		products = []Product{}
	}
	r.products = products
	r.loaded = true
	return nil
}

// snapshot returns a copy of the in-memory catalog, loading it on first use.
func (r *Repository) snapshot(ctx context.Context) ([]Product, error) {
	r.mu.RLock()
	if r.loaded {
		out := slices.Clone(r.products)
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()
	return r.LoadOrSeed(ctx)
}

// mutate applies fn to a copy of the catalog, persists the result and only then publishes it.
func (r *Repository) mutate(ctx context.Context, fn func([]Product) ([]Product, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		if err := r.load(ctx); err != nil {
			return err
		}
	}
	next, err := fn(slices.Clone(r.products))
	if err != nil {
		return err
	}
	if err := r.entity.Save(ctx, "", next); err != nil {
		return fmt.Errorf("failed to persist catalog: %w", err)
	}
	r.products = next
	return nil
}

func (r *Repository) List(ctx context.Context) ([]Product, error) {
	return r.snapshot(ctx)
}

func (r *Repository) FindByID(ctx context.Context, id string) (Product, error) {
	products, err := r.snapshot(ctx)
	if err != nil {
		return Product{}, err
	}
	i := indexOf(products, id)
	if i < 0 {
		return Product{}, fmt.Errorf("product %s: %w", id, shoperrors.ErrNotFound)
	}
	return products[i], nil
}

func (r *Repository) Search(ctx context.Context, f Filter) ([]Product, error) {
	m, err := f.compile()
	if err != nil {
		return nil, err
	}
	products, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		ok, err := m.match(p)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	products, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range products {
		if p.Category != "" && !slices.Contains(out, p.Category) {
			out = append(out, p.Category)
		}
	}
	return out, nil
}

func (r *Repository) Related(ctx context.Context, id string, limit int) ([]Product, error) {
	products, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(products, id)
	if i < 0 {
		return nil, fmt.Errorf("product %s: %w", id, shoperrors.ErrNotFound)
	}
	category := products[i].Category
	out := make([]Product, 0)
	for _, p := range products {
		if limit > 0 && len(out) == limit {
			break
		}
		if p.ID != id && p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Repository) Create(ctx context.Context, d Draft) (Product, error) {
	if err := r.validateDraft(d); err != nil {
		return Product{}, err
	}
	created := Product{
		ID:          uuid.NewString(),
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Stock:       d.Stock,
		Category:    d.Category,
		ImageRef:    d.ImageRef,
	}
	if created.Category == "" {
		created.Category = DefaultCategory
	}
	err := r.mutate(ctx, func(products []Product) ([]Product, error) {
		return append(products, created), nil
	})
	if err != nil {
		return Product{}, err
	}
	r.logger.InfoContext(ctx, "Product created", "id", created.ID, "name", created.Name)
	return created, nil
}

func (r *Repository) Update(ctx context.Context, id string, patch Patch) (Product, error) {
	var updated Product
	err := r.mutate(ctx, func(products []Product) ([]Product, error) {
		i := indexOf(products, id)
		if i < 0 {
			return nil, fmt.Errorf("product %s: %w", id, shoperrors.ErrNotFound)
		}
		merged := patch.apply(products[i])
		if err := r.validateProduct(merged); err != nil {
			return nil, err
		}
		products[i] = merged
		updated = merged
		return products, nil
	})
	if err != nil {
		return Product{}, err
	}
	r.logger.InfoContext(ctx, "Product updated", "id", id)
	return updated, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	err := r.mutate(ctx, func(products []Product) ([]Product, error) {
		i := indexOf(products, id)
		if i < 0 {
			return nil, fmt.Errorf("product %s: %w", id, shoperrors.ErrNotFound)
		}
		return slices.Delete(products, i, i+1), nil
	})
	if err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Product deleted", "id", id)
	return nil
}

func (r *Repository) Reserve(ctx context.Context, items []Reservation) ([]Product, error) {
	var reserved []Product
	err := r.mutate(ctx, func(products []Product) ([]Product, error) {
		var shortfalls []shoperrors.Shortfall
		for _, item := range items {
			i := indexOf(products, item.ProductID)
			switch {
			case i < 0:
				shortfalls = append(shortfalls, shoperrors.Shortfall{ProductID: item.ProductID, Requested: item.Quantity, Available: -1})
			case item.Quantity > products[i].Stock:
				shortfalls = append(shortfalls, shoperrors.Shortfall{ProductID: item.ProductID, Requested: item.Quantity, Available: products[i].Stock})
			}
		}
		if len(shortfalls) > 0 {
			return nil, &shoperrors.InsufficientStockError{Shortfalls: shortfalls}
		}
		reserved = make([]Product, 0, len(items))
		for _, item := range items {
			i := indexOf(products, item.ProductID)
			products[i].Stock = max(0, products[i].Stock-item.Quantity)
			reserved = append(reserved, products[i])
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

func (r *Repository) validateDraft(d Draft) error {
	if err := r.validate.Struct(d); err != nil {
		return shoperrors.FromValidator(err)
	}
	if d.Price.IsNegative() {
		return shoperrors.NewValidationError("Price", "failed on rule: min")
	}
	return nil
}

func (r *Repository) validateProduct(p Product) error {
	if err := r.validate.Struct(p); err != nil {
		return shoperrors.FromValidator(err)
	}
	if p.Price.IsNegative() {
		return shoperrors.NewValidationError("Price", "failed on rule: min")
	}
	return nil
}

func indexOf(products []Product, id string) int {
	return slices.IndexFunc(products, func(p Product) bool { return p.ID == id })
}
