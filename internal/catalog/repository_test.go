package catalog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	shoperrors "github.com/abgdnv/storesim/internal/errors"
	"github.com/abgdnv/storesim/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestRepository(t *testing.T, store storage.Store) *Repository {
	t.Helper()
	return NewRepository(store, rand.New(rand.NewPCG(1, 2)), discardLogger)
}

func seededRepository(t *testing.T) (*Repository, storage.Store) {
	t.Helper()
	store := storage.NewInMemoryStore()
	repo := newTestRepository(t, store)
	_, err := repo.LoadOrSeed(context.Background())
	require.NoError(t, err)
	return repo, store
}

func Test_LoadOrSeed_Absent(t *testing.T) {
	// given
	store := storage.NewInMemoryStore()
	repo := newTestRepository(t, store)
	// when
	products, err := repo.LoadOrSeed(context.Background())
	// then
	require.NoError(t, err)
	require.Len(t, products, 6)
	assert.Equal(t, "Quantum Laptop", products[0].Name)
	assert.True(t, decimal.RequireFromString("2499.99").Equal(products[0].Price))

	raw, err := store.Get(context.Background(), storage.GlobalKey(storage.KindCatalog))
	require.NoError(t, err, "seed is persisted")
	var stored []Product
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Len(t, stored, 6)
}

func Test_LoadOrSeed_CorruptReseeds(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{name: "invalid json", raw: `{{{`},
		{name: "not a list", raw: `{"id":"1"}`},
		{name: "null entry", raw: `[null]`},
		{name: "null catalog", raw: `null`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			store := storage.NewInMemoryStore()
			require.NoError(t, store.Put(context.Background(), storage.GlobalKey(storage.KindCatalog), []byte(tc.raw)))
			repo := newTestRepository(t, store)
			// when
			products, err := repo.LoadOrSeed(context.Background())
			// then
			require.NoError(t, err)
			assert.Len(t, products, 6)
		})
	}
}

func Test_LoadOrSeed_StoredEmptyCatalogStaysEmpty(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.Put(context.Background(), storage.GlobalKey(storage.KindCatalog), []byte(`[]`)))
	repo := newTestRepository(t, store)

	products, err := repo.LoadOrSeed(context.Background())

	require.NoError(t, err)
	assert.Empty(t, products)
}

func Test_LoadOrSeed_MigratesLegacyRecords(t *testing.T) {
	// given
	store := storage.NewInMemoryStore()
	legacy := `[
		{"id": 7, "name": "Old Lamp", "description": "Bright", "price": 19.99, "stock": 4, "imageUrl": "lamp.png"},
		{"id": "8", "name": "Rated", "description": "", "price": 5, "stock": 1, "category": "Home", "rating": 0, "reviewCount": 0}
	]`
	require.NoError(t, store.Put(context.Background(), storage.GlobalKey(storage.KindCatalog), []byte(legacy)))
	repo := newTestRepository(t, store)
	// when
	products, err := repo.LoadOrSeed(context.Background())
	// then
	require.NoError(t, err)
	require.Len(t, products, 2)

	lamp := products[0]
	assert.Equal(t, "7", lamp.ID)
	assert.Equal(t, "lamp.png", lamp.ImageRef)
	assert.Contains(t, backfillCategories, lamp.Category)
	assert.GreaterOrEqual(t, lamp.Rating, 3.0)
	assert.LessOrEqual(t, lamp.Rating, 5.0)
	assert.GreaterOrEqual(t, lamp.ReviewCount, 5)
	assert.LessOrEqual(t, lamp.ReviewCount, 54)
	assert.True(t, decimal.RequireFromString("19.99").Equal(lamp.Price))

	rated := products[1]
	assert.Equal(t, "Home", rated.Category)
	assert.Zero(t, rated.Rating, "a stored zero rating is not backfilled")
	assert.Zero(t, rated.ReviewCount)

	// the migrated document was written back, so a fresh repository sees the same values
	again, err := NewRepository(store, rand.New(rand.NewPCG(99, 99)), discardLogger).LoadOrSeed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, products, again)
}

func Test_MigrateProducts_Idempotent(t *testing.T) {
	// given
	migrate := migrateProducts(rand.New(rand.NewPCG(3, 4)))
	legacy := []byte(`[{"id":1,"name":"A","description":"","price":1,"stock":1,"imageUrl":"a.png"},{"id":"2","name":"B","description":"","price":2,"stock":0}]`)
	// when
	once, changed, err := migrate(legacy)
	require.NoError(t, err)
	twice, changedAgain, err := migrate(once)
	// then
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, changedAgain)
	assert.Equal(t, string(once), string(twice))
}

func Test_MigrateProducts_CurrentSchemaUntouched(t *testing.T) {
	raw, err := json.Marshal(SeedProducts())
	require.NoError(t, err)

	out, changed, err := migrateProducts(rand.New(rand.NewPCG(1, 1)))(raw)

	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, raw, out)
}

func Test_FindByID(t *testing.T) {
	repo, _ := seededRepository(t)

	keyboard, err := repo.FindByID(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "Galactic Keyboard", keyboard.Name)
	assert.Zero(t, keyboard.Stock)
	assert.False(t, keyboard.InStock())

	_, err = repo.FindByID(context.Background(), "404")
	assert.ErrorIs(t, err, shoperrors.ErrNotFound)
}

func Test_Create(t *testing.T) {
	testCases := []struct {
		name        string
		draft       Draft
		expectError error
		fields      []string
	}{
		{
			name:  "Success - defaults applied",
			draft: Draft{Name: "Tea Cup", Price: decimal.RequireFromString("4.50"), Stock: 3},
		},
		{
			name:        "Error - missing name",
			draft:       Draft{Price: decimal.RequireFromString("1"), Stock: 1},
			expectError: shoperrors.ErrValidation,
			fields:      []string{"Name"},
		},
		{
			name:        "Error - negative stock",
			draft:       Draft{Name: "X", Price: decimal.RequireFromString("1"), Stock: -1},
			expectError: shoperrors.ErrValidation,
			fields:      []string{"Stock"},
		},
		{
			name:        "Error - negative price",
			draft:       Draft{Name: "X", Price: decimal.RequireFromString("-0.01"), Stock: 1},
			expectError: shoperrors.ErrValidation,
			fields:      []string{"Price"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			repo, store := seededRepository(t)
			before, err := store.Get(context.Background(), storage.GlobalKey(storage.KindCatalog))
			require.NoError(t, err)
			// when
			created, err := repo.Create(context.Background(), tc.draft)
			// then
			if tc.expectError != nil {
				require.ErrorIs(t, err, tc.expectError)
				var vErr *shoperrors.ValidationError
				require.ErrorAs(t, err, &vErr)
				for _, f := range tc.fields {
					assert.Contains(t, vErr.Fields, f)
				}
				after, err := store.Get(context.Background(), storage.GlobalKey(storage.KindCatalog))
				require.NoError(t, err)
				assert.Equal(t, before, after, "nothing is written on validation failure")
				return
			}
			require.NoError(t, err)
			_, parseErr := uuid.Parse(created.ID)
			assert.NoError(t, parseErr)
			assert.Equal(t, DefaultCategory, created.Category)
			assert.Zero(t, created.Rating)
			assert.Zero(t, created.ReviewCount)

			list, err := repo.List(context.Background())
			require.NoError(t, err)
			assert.Len(t, list, 7)
			assert.Equal(t, created, list[6])
		})
	}
}

func Test_Update(t *testing.T) {
	repo, _ := seededRepository(t)
	ctx := context.Background()
	newStock := 1
	newName := "Quantum Laptop Pro"

	updated, err := repo.Update(ctx, "1", Patch{Stock: &newStock, Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Stock)
	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, "Electronics", updated.Category, "unpatched fields are kept")

	negative := -3
	_, err = repo.Update(ctx, "1", Patch{Stock: &negative})
	assert.ErrorIs(t, err, shoperrors.ErrValidation)
	current, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, current.Stock, "failed update leaves the product unchanged")

	_, err = repo.Update(ctx, "404", Patch{Stock: &newStock})
	assert.ErrorIs(t, err, shoperrors.ErrNotFound)
}

func Test_Delete(t *testing.T) {
	repo, store := seededRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, "2"))
	_, err := repo.FindByID(ctx, "2")
	assert.ErrorIs(t, err, shoperrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "2"), shoperrors.ErrNotFound)

	reloaded, err := newTestRepository(t, store).LoadOrSeed(ctx)
	require.NoError(t, err)
	assert.Len(t, reloaded, 5)
}

func Test_Reserve(t *testing.T) {
	testCases := []struct {
		name       string
		items      []Reservation
		shortfalls []shoperrors.Shortfall
		stockAfter map[string]int
	}{
		{
			name:       "Success - decrements every line",
			items:      []Reservation{{ProductID: "1", Quantity: 2}, {ProductID: "6", Quantity: 3}},
			stockAfter: map[string]int{"1": 8, "6": 0},
		},
		{
			name:       "Error - one line short, nothing changes",
			items:      []Reservation{{ProductID: "1", Quantity: 2}, {ProductID: "2", Quantity: 6}},
			shortfalls: []shoperrors.Shortfall{{ProductID: "2", Requested: 6, Available: 5}},
			stockAfter: map[string]int{"1": 10, "2": 5},
		},
		{
			name:       "Error - product deleted",
			items:      []Reservation{{ProductID: "99", Quantity: 1}},
			shortfalls: []shoperrors.Shortfall{{ProductID: "99", Requested: 1, Available: -1}},
			stockAfter: map[string]int{"1": 10},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			repo, _ := seededRepository(t)
			ctx := context.Background()
			// when
			reserved, err := repo.Reserve(ctx, tc.items)
			// then
			if tc.shortfalls != nil {
				var stockErr *shoperrors.InsufficientStockError
				require.ErrorAs(t, err, &stockErr)
				assert.Equal(t, tc.shortfalls, stockErr.Shortfalls)
				assert.Nil(t, reserved)
			} else {
				require.NoError(t, err)
				assert.Len(t, reserved, len(tc.items))
			}
			for id, stock := range tc.stockAfter {
				p, err := repo.FindByID(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, stock, p.Stock, "stock of product %s", id)
			}
		})
	}
}

func Test_Search(t *testing.T) {
	testCases := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{name: "no filter", filter: Filter{}, expected: []string{"1", "2", "3", "4", "5", "6"}},
		{name: "query matches name case-insensitively", filter: Filter{Query: "MOUSE"}, expected: []string{"2"}},
		{name: "query matches description", filter: Filter{Query: "cosmos"}, expected: []string{"5"}},
		{name: "category", filter: Filter{Category: "Accessories"}, expected: []string{"2", "3"}},
		{name: "in stock only", filter: Filter{Category: "Accessories", InStockOnly: true}, expected: []string{"2"}},
		{name: "expression", filter: Filter{Expr: `price < 400 && rating >= 4.5`}, expected: []string{"4", "5"}},
		{name: "expression on stock", filter: Filter{Expr: `!inStock`}, expected: []string{"3"}},
	}

	repo, _ := seededRepository(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			found, err := repo.Search(context.Background(), tc.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(found))
			for _, p := range found {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tc.expected, ids)
		})
	}
}

func Test_Search_InvalidExpression(t *testing.T) {
	repo, _ := seededRepository(t)

	_, err := repo.Search(context.Background(), Filter{Expr: `price <`})
	assert.ErrorIs(t, err, shoperrors.ErrValidation)

	_, err = repo.Search(context.Background(), Filter{Expr: `name`})
	assert.ErrorIs(t, err, shoperrors.ErrValidation, "non-boolean expressions are rejected")
}

func Test_CategoriesAndRelated(t *testing.T) {
	repo, _ := seededRepository(t)
	ctx := context.Background()

	categories, err := repo.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Electronics", "Accessories", "Wearables", "Home"}, categories)

	related, err := repo.Related(ctx, "1", 4)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "5", related[0].ID)

	_, err = repo.Related(ctx, "404", 4)
	assert.ErrorIs(t, err, shoperrors.ErrNotFound)
}
