package cart

import (
	"fmt"

	"pos-checkout-service/internal/models"
)

// LineKey identifies a cart line: one product plus its variant, or its base bucket
type LineKey string

// Selection is what the cashier picked for a line. It is either BaseProduct or VariantOf.
type Selection interface {
	Base() models.Product
	UnitPrice() int64
	AvailableStock() int
	UnitWeightGrams() int
	StockRef() models.StockRef
	Key() LineKey
	isSelection()
}

// BaseProduct selects the product's own stock bucket
type BaseProduct struct {
	Product models.Product
}

// VariantOf selects one variant of a product
type VariantOf struct {
	Product models.Product
	Variant models.Variant
}

func (s BaseProduct) Base() models.Product { return s.Product }
func (s BaseProduct) UnitPrice() int64     { return s.Product.BasePrice }
func (s BaseProduct) AvailableStock() int  { return s.Product.StockQuantity }

func (s BaseProduct) UnitWeightGrams() int {
	if s.Product.UnitWeightGrams != nil {
		return *s.Product.UnitWeightGrams
	}
	return 0
}

func (s BaseProduct) StockRef() models.StockRef {
	return models.StockRef{Kind: models.StockKindProduct, ID: s.Product.ID}
}

func (s BaseProduct) Key() LineKey { return LineKey(s.Product.ID) }
func (BaseProduct) isSelection()   {}

func (s VariantOf) Base() models.Product { return s.Product }

func (s VariantOf) UnitPrice() int64 {
	return s.Product.BasePrice + s.Variant.PriceAdjustment
}

func (s VariantOf) AvailableStock() int { return s.Variant.StockQuantity }

// UnitWeightGrams falls back to the product weight when the variant has none
func (s VariantOf) UnitWeightGrams() int {
	if s.Variant.WeightGrams != nil {
		return *s.Variant.WeightGrams
	}
	return BaseProduct{Product: s.Product}.UnitWeightGrams()
}

func (s VariantOf) StockRef() models.StockRef {
	return models.StockRef{Kind: models.StockKindVariant, ID: s.Variant.ID}
}

func (s VariantOf) Key() LineKey {
	return LineKey(fmt.Sprintf("%s:%s", s.Product.ID, s.Variant.ID))
}

func (VariantOf) isSelection() {}

// VariantID returns the selected variant id, nil for the base bucket
func VariantID(s Selection) *string {
	if v, ok := s.(VariantOf); ok {
		id := v.Variant.ID
		return &id
	}
	return nil
}

// Describe returns a human readable label used in cashier-facing messages
func Describe(s Selection) string {
	if v, ok := s.(VariantOf); ok {
		return fmt.Sprintf("%s (%s)", v.Product.Name, v.Variant.Name)
	}
	return s.Base().Name
}
