package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported promotion mechanics
type DiscountType string

const (
	DiscountPercentage      DiscountType = "percentage"
	DiscountFixed           DiscountType = "fixed"
	DiscountBuyXGetY        DiscountType = "buy_x_get_y"
	DiscountBuyMoreSaveMore DiscountType = "buy_more_save_more"
	DiscountFreeShipping    DiscountType = "free_shipping"
)

// Promotion scopes
const (
	ScopeAllProducts      = "all_products"
	ScopeSpecificProducts = "specific_products"
)

// Promotion represents a discount rule configured in the back office
type Promotion struct {
	ID                string          `db:"id" json:"id"`
	Code              string          `db:"code" json:"code"`
	Name              string          `db:"name" json:"name"`
	DiscountType      DiscountType    `db:"discount_type" json:"discount_type"`
	DiscountValue     decimal.Decimal `db:"discount_value" json:"discount_value"`
	MinPurchaseAmount *int64          `db:"min_purchase_amount" json:"min_purchase_amount,omitempty"`
	StartDate         *time.Time      `db:"start_date" json:"start_date,omitempty"`
	EndDate           *time.Time      `db:"end_date" json:"end_date,omitempty"`
	IsActive          bool            `db:"is_active" json:"is_active"`
	AvailableInPOS    bool            `db:"available_in_pos" json:"available_in_pos"`
	ApplicableTo      string          `db:"applicable_to" json:"applicable_to"`
	ProductIDs        pq.StringArray  `db:"product_ids" json:"product_ids"`
	FreeShipping      bool            `db:"free_shipping" json:"free_shipping"`
	BuyQuantity       *int            `db:"buy_quantity" json:"buy_quantity,omitempty"`
	GetQuantity       *int            `db:"get_quantity" json:"get_quantity,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// AppliesTo reports whether productID falls inside the promotion scope
func (p *Promotion) AppliesTo(productID string) bool {
	if p.ApplicableTo != ScopeSpecificProducts {
		return true
	}
	for _, id := range p.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// WaivesShipping reports whether the promotion carries a free-shipping rider
func (p *Promotion) WaivesShipping() bool {
	return p.FreeShipping || p.DiscountType == DiscountFreeShipping
}

// PromotionTier is one quantity threshold of a buy-more-save-more promotion
type PromotionTier struct {
	ID              int64           `db:"id" json:"id"`
	PromotionID     string          `db:"promotion_id" json:"promotion_id"`
	MinQuantity     int             `db:"min_quantity" json:"min_quantity"`
	DiscountPercent decimal.Decimal `db:"discount_percent" json:"discount_percent"`
}
