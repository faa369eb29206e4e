package models

import "time"

// Product represents a sellable catalog item
type Product struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	BasePrice       int64     `db:"base_price" json:"base_price"`
	StockQuantity   int       `db:"stock_quantity" json:"stock_quantity"`
	UnitWeightGrams *int      `db:"unit_weight_grams" json:"unit_weight_grams,omitempty"`
	HasVariants     bool      `db:"has_variants" json:"has_variants"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Variant is a purchasable configuration of a product with its own stock and price delta
type Variant struct {
	ID              string    `db:"id" json:"id"`
	ProductID       string    `db:"product_id" json:"product_id"`
	Name            string    `db:"name" json:"name"`
	PriceAdjustment int64     `db:"price_adjustment" json:"price_adjustment"`
	StockQuantity   int       `db:"stock_quantity" json:"stock_quantity"`
	WeightGrams     *int      `db:"weight_grams" json:"weight_grams,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// ProductWithVariants is one entry of the catalog snapshot
type ProductWithVariants struct {
	Product
	Variants   []Variant `json:"variants"`
	TotalStock int       `json:"total_stock"`
	OutOfStock bool      `json:"out_of_stock"`
}

// StockKind identifies which stock bucket a stock read or write targets
type StockKind string

const (
	StockKindProduct StockKind = "product"
	StockKindVariant StockKind = "variant"
)

// StockRef addresses one stock bucket
type StockRef struct {
	Kind StockKind `json:"kind"`
	ID   string    `json:"id"`
}

// ShippingRate is the base rate of a courier for one destination
type ShippingRate struct {
	ID            int64  `db:"id" json:"id"`
	CourierID     string `db:"courier_id" json:"courier_id"`
	DestinationID string `db:"destination_id" json:"destination_id"`
	Cost          int64  `db:"cost" json:"cost"`
	EstimatedDays string `db:"estimated_days" json:"estimated_days"`
}
