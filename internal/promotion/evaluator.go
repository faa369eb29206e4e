package promotion

import (
	"errors"
	"sort"
	"strings"
	"time"

	"pos-checkout-service/internal/cart"
	"pos-checkout-service/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

var (
	ErrCodeRequired  = errors.New("promotion code is required")
	ErrCodeNotFound  = errors.New("promotion code not found or inactive")
	ErrNotStarted    = errors.New("promotion has not started yet")
	ErrExpired       = errors.New("promotion has expired")
	ErrMinPurchase   = errors.New("minimum purchase not met")
	ErrScopeMismatch = errors.New("no eligible products in cart")
)

// Input is the cart state a promotion is evaluated against
type Input struct {
	Lines    []cart.Line
	Subtotal int64
	// Shipping is the cost a free-shipping rider would waive
	Shipping int64
	Tiers    map[string][]models.PromotionTier
	Now      time.Time
}

// Applied is a promotion selected for the current cart
type Applied struct {
	Promotion    models.Promotion `json:"promotion"`
	Discount     int64            `json:"discount"`
	FreeShipping bool             `json:"free_shipping"`
	Manual       bool             `json:"manual"`
}

// NormalizeCode canonicalises a code for case-insensitive comparison
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks every eligibility condition in the order the cashier is told about them
func Validate(p *models.Promotion, in Input) error {
	if p == nil || !p.IsActive || !p.AvailableInPOS {
		return ErrCodeNotFound
	}
	if p.StartDate != nil && in.Now.Before(*p.StartDate) {
		return ErrNotStarted
	}
	if p.EndDate != nil && in.Now.After(*p.EndDate) {
		return ErrExpired
	}
	if p.MinPurchaseAmount != nil && in.Subtotal < *p.MinPurchaseAmount {
		return ErrMinPurchase
	}
	if p.ApplicableTo == models.ScopeSpecificProducts && len(scopedLines(p, in.Lines)) == 0 {
		return ErrScopeMismatch
	}
	return nil
}

// Discount computes the merchandise discount of a promotion, before the subtotal cap
func Discount(p *models.Promotion, in Input) int64 {
	lines := scopedLines(p, in.Lines)
	scoped := cart.Subtotal(lines)

	switch p.DiscountType {
	case models.DiscountPercentage:
		return percentOf(scoped, p.DiscountValue)
	case models.DiscountFixed:
		return min(p.DiscountValue.Floor().IntPart(), scoped)
	case models.DiscountBuyXGetY:
		return buyXGetY(p, in.Lines, lines)
	case models.DiscountBuyMoreSaveMore:
		return tiered(in.Tiers[p.ID], lines, scoped)
	default:
		return 0
	}
}

// Apply builds the applied result for a promotion, capping the discount at the subtotal
func Apply(p *models.Promotion, in Input, manual bool) *Applied {
	return &Applied{
		Promotion:    *p,
		Discount:     min(Discount(p, in), in.Subtotal),
		FreeShipping: p.WaivesShipping(),
		Manual:       manual,
	}
}

// SelectBest picks the eligible promotion worth the most to the customer.
// Ties keep the first one encountered. Returns nil when nothing qualifies.
func SelectBest(promos []models.Promotion, in Input) *Applied {
	var best *Applied
	var bestValue int64

	for i := range promos {
		p := &promos[i]
		if Validate(p, in) != nil {
			continue
		}

		applied := Apply(p, in, false)
		value := applied.Discount
		if applied.FreeShipping {
			value += in.Shipping
		}

		if best == nil || value > bestValue {
			best = applied
			bestValue = value
		}
	}
	return best
}

func scopedLines(p *models.Promotion, lines []cart.Line) []cart.Line {
	if p.ApplicableTo != models.ScopeSpecificProducts {
		return lines
	}
	out := make([]cart.Line, 0, len(lines))
	for _, l := range lines {
		if p.AppliesTo(l.Selection.Base().ID) {
			out = append(out, l)
		}
	}
	return out
}

// buyXGetY counts full sets of buy-quantity units over the whole cart and gives away
// get-quantity of the cheapest eligible units per set.
func buyXGetY(p *models.Promotion, all, eligible []cart.Line) int64 {
	if p.BuyQuantity == nil || *p.BuyQuantity <= 0 || p.GetQuantity == nil || *p.GetQuantity <= 0 {
		return 0
	}

	var total int
	for _, l := range all {
		total += l.Quantity
	}
	sets := total / *p.BuyQuantity
	if sets == 0 {
		return 0
	}

	units := make([]int64, 0, total)
	for _, l := range eligible {
		for i := 0; i < l.Quantity; i++ {
			units = append(units, l.UnitPrice)
		}
	}

	sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })
	free := min(sets*(*p.GetQuantity), len(units))

	var discount int64
	for _, price := range units[:free] {
		discount += price
	}
	return discount
}

func tiered(tiers []models.PromotionTier, lines []cart.Line, scoped int64) int64 {
	var qty int
	for _, l := range lines {
		qty += l.Quantity
	}

	var pct decimal.Decimal
	best := -1
	for _, t := range tiers {
		if t.MinQuantity <= qty && t.MinQuantity > best {
			best = t.MinQuantity
			pct = t.DiscountPercent
		}
	}
	if best < 0 {
		return 0
	}
	return percentOf(scoped, pct)
}

// percentOf rounds down to the whole currency unit
func percentOf(amount int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(pct).Div(hundred).Floor().IntPart()
}
