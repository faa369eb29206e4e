package pricing

import (
	"time"

	"pos-checkout-service/internal/cart"
	"pos-checkout-service/internal/models"
	"pos-checkout-service/internal/promotion"
	"pos-checkout-service/internal/shipping"
)

// Payment is the payment part of the checkout form
type Payment struct {
	Method       string `json:"method" validate:"required,oneof=cash bank_transfer ewallet qris"`
	CashReceived int64  `json:"cash_received" validate:"gte=0"`
}

// Input is everything the pricing pipeline reads
type Input struct {
	Cart            *cart.Cart
	Promotions      []models.Promotion
	Tiers           map[string][]models.PromotionTier
	ManualPromotion *models.Promotion
	Courier         shipping.Selection
	Shipping        shipping.Cost
	ManualShipping  *int64
	Payment         Payment
	Now             time.Time
}

// Result is what the terminal shows the cashier
type Result struct {
	ItemCount        int                `json:"item_count"`
	TotalWeightGrams int                `json:"total_weight_grams"`
	Subtotal         int64              `json:"subtotal"`
	Discount         int64              `json:"discount"`
	Promotion        *promotion.Applied `json:"promotion,omitempty"`
	// ManualPromotionError is set when a manually entered code stopped qualifying
	ManualPromotionError string          `json:"manual_promotion_error,omitempty"`
	ShippingStatus       shipping.Status `json:"shipping_status"`
	ShippingPending      bool            `json:"shipping_pending"`
	ShippingCost         int64           `json:"shipping_cost"`
	ShippingWaived       int64           `json:"shipping_waived"`
	Total                int64           `json:"total"`
	Change               *int64          `json:"change,omitempty"`
	CanComplete          bool            `json:"can_complete"`
}

// Recompute derives the full pricing of a cart. It is pure and runs after every mutation.
func Recompute(in Input) Result {
	lines := in.Cart.Lines()
	subtotal := cart.Subtotal(lines)

	res := Result{
		ItemCount:        in.Cart.TotalQuantity(),
		TotalWeightGrams: in.Cart.TotalWeightGrams(),
		Subtotal:         subtotal,
	}

	shippingCost, pending := effectiveShipping(in)
	res.ShippingStatus = in.Shipping.Status
	res.ShippingPending = pending

	promoIn := promotion.Input{
		Lines:    lines,
		Subtotal: subtotal,
		Shipping: shippingCost,
		Tiers:    in.Tiers,
		Now:      in.Now,
	}

	if in.ManualPromotion != nil {
		if err := promotion.Validate(in.ManualPromotion, promoIn); err != nil {
			res.ManualPromotionError = err.Error()
		} else {
			res.Promotion = promotion.Apply(in.ManualPromotion, promoIn, true)
		}
	}
	if res.Promotion == nil && len(lines) > 0 {
		res.Promotion = promotion.SelectBest(in.Promotions, promoIn)
	}

	if res.Promotion != nil {
		res.Discount = min(res.Promotion.Discount, subtotal)
		if res.Promotion.FreeShipping {
			res.ShippingWaived = shippingCost
			shippingCost = 0
		}
	}

	res.ShippingCost = shippingCost
	res.Total = Total(subtotal, res.Discount, shippingCost)
	res.Change, res.CanComplete = Settle(in.Payment, res.Total)
	if len(lines) == 0 || pending {
		res.CanComplete = false
	}
	return res
}

// Total is subtotal less discount plus shipping
func Total(subtotal, discount, shippingCost int64) int64 {
	return subtotal - discount + shippingCost
}

// Settle computes the change for cash payments. Completion is blocked while the cash
// received does not cover the total. Other methods have no change.
func Settle(p Payment, total int64) (*int64, bool) {
	if p.Method != models.PaymentCash {
		return nil, p.Method != ""
	}
	change := p.CashReceived - total
	return &change, p.CashReceived >= total
}

func effectiveShipping(in Input) (int64, bool) {
	switch {
	case in.Courier.Kind == shipping.CourierPickup:
		return 0, false
	case in.Courier.Kind == shipping.CourierManual:
		if in.ManualShipping != nil {
			return *in.ManualShipping, false
		}
		return 0, false
	case in.Shipping.Status == shipping.StatusRated:
		return in.Shipping.Amount, false
	case in.Shipping.Status == shipping.StatusNoRateConfigured && in.ManualShipping != nil:
		return *in.ManualShipping, false
	default:
		return 0, true
	}
}
