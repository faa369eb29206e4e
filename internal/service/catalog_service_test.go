package service

import (
	"context"
	"errors"
	"testing"

	"pos-checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalogAddsBaseStockToVariants(t *testing.T) {
	store := newFakeStore()
	store.addProduct(models.Product{ID: "harness", Name: "Harness", BasePrice: 80000, StockQuantity: 5},
		models.Variant{ID: "harness-s", Name: "S", StockQuantity: 0},
		models.Variant{ID: "harness-m", Name: "M", StockQuantity: 3},
	)
	store.addProduct(models.Product{ID: "treats", Name: "Treats", BasePrice: 12000, StockQuantity: 4})

	catalog, err := NewCatalogService(store).LoadCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	harness := catalog[0]
	assert.Len(t, harness.Variants, 2)
	assert.Equal(t, 8, harness.TotalStock)
	assert.False(t, harness.OutOfStock)

	treats := catalog[1]
	assert.NotNil(t, treats.Variants)
	assert.Empty(t, treats.Variants)
	assert.Equal(t, 4, treats.TotalStock)
}

func TestSummarizeOutOfStock(t *testing.T) {
	tests := []struct {
		name     string
		base     int
		variants []int
		out      bool
	}{
		{name: "plain in stock", base: 1, out: false},
		{name: "plain empty", base: 0, out: true},
		{name: "plain negative", base: -2, out: true},
		{name: "variants all empty", base: 0, variants: []int{0, 0}, out: true},
		{name: "variant in stock", base: 0, variants: []int{0, 2}, out: false},
		{name: "base bucket only", base: 2, variants: []int{0}, out: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.Product{ID: "p", StockQuantity: tt.base, HasVariants: len(tt.variants) > 0}
			var variants []models.Variant
			for _, qty := range tt.variants {
				variants = append(variants, models.Variant{ProductID: "p", StockQuantity: qty})
			}
			assert.Equal(t, tt.out, Summarize(p, variants).OutOfStock)
		})
	}
}

func TestLoadCatalogFailureReturnsNothing(t *testing.T) {
	store := newFakeStore()
	store.addProduct(models.Product{ID: "harness", StockQuantity: 5}, models.Variant{ID: "harness-s", StockQuantity: 1})
	store.variantsErr = errors.New("connection reset")

	catalog, err := NewCatalogService(store).LoadCatalog(context.Background())
	assert.Nil(t, catalog)

	var loadErr *CatalogLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, store.variantsErr)
}
