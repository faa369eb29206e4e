package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"pos-checkout-service/internal/cart"
	"pos-checkout-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func product(id string, price int64, stock int) models.Product {
	return models.Product{ID: id, Name: id, BasePrice: price, StockQuantity: stock}
}

func buildInput(t *testing.T, items map[string]int, prices map[string]int64, order ...string) Input {
	t.Helper()
	c := cart.New()
	for _, id := range order {
		sel := cart.BaseProduct{Product: product(id, prices[id], 100)}
		for i := 0; i < items[id]; i++ {
			require.NoError(t, c.Add(sel))
		}
	}
	return Input{Lines: c.Lines(), Subtotal: c.Subtotal(), Now: now}
}

func active(p models.Promotion) models.Promotion {
	p.IsActive = true
	p.AvailableInPOS = true
	if p.ApplicableTo == "" {
		p.ApplicableTo = models.ScopeAllProducts
	}
	return p
}

func TestSelectBestPicksGreatestDiscount(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 1}, map[string]int64{"a": 100000}, "a")
	promos := []models.Promotion{
		active(models.Promotion{ID: "fixed", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(8000)}),
		active(models.Promotion{ID: "pct", DiscountType: models.DiscountPercentage, DiscountValue: decimal.NewFromInt(10)}),
	}

	best := SelectBest(promos, in)
	require.NotNil(t, best)
	assert.Equal(t, "pct", best.Promotion.ID)
	assert.Equal(t, int64(10000), best.Discount)
	assert.False(t, best.Manual)
}

func TestSelectBestTieKeepsFirst(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 1}, map[string]int64{"a": 100000}, "a")
	promos := []models.Promotion{
		active(models.Promotion{ID: "first", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(10000)}),
		active(models.Promotion{ID: "second", DiscountType: models.DiscountPercentage, DiscountValue: decimal.NewFromInt(10)}),
	}

	best := SelectBest(promos, in)
	require.NotNil(t, best)
	assert.Equal(t, "first", best.Promotion.ID)
}

func TestSelectBestSkipsIneligible(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 1}, map[string]int64{"a": 50000}, "a")
	promos := []models.Promotion{
		{ID: "inactive", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(40000), AvailableInPOS: true},
		active(models.Promotion{ID: "online-only", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(40000)}),
		active(models.Promotion{ID: "future", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(30000), StartDate: ptr(now.Add(time.Hour))}),
		active(models.Promotion{ID: "past", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(30000), EndDate: ptr(now.Add(-time.Hour))}),
		active(models.Promotion{ID: "min", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(30000), MinPurchaseAmount: ptr(int64(60000))}),
		active(models.Promotion{ID: "scoped", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(30000), ApplicableTo: models.ScopeSpecificProducts, ProductIDs: []string{"z"}}),
		active(models.Promotion{ID: "ok", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(1000)}),
	}
	promos[1].AvailableInPOS = false

	best := SelectBest(promos, in)
	require.NotNil(t, best)
	assert.Equal(t, "ok", best.Promotion.ID)
}

func TestSelectBestNothingQualifies(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 1}, map[string]int64{"a": 50000}, "a")
	assert.Nil(t, SelectBest(nil, in))
}

func TestFixedDiscountCappedAtScopedSubtotal(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 1, "b": 1}, map[string]int64{"a": 30000, "b": 70000}, "a", "b")
	p := active(models.Promotion{
		ID: "fixed", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(50000),
		ApplicableTo: models.ScopeSpecificProducts, ProductIDs: []string{"a"},
	})

	assert.Equal(t, int64(30000), Discount(&p, in))
}

func TestAppliedDiscountCappedAtSubtotal(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 1}, map[string]int64{"a": 30000}, "a")
	p := active(models.Promotion{ID: "fixed", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(50000)})

	applied := Apply(&p, in, true)
	assert.Equal(t, int64(30000), applied.Discount)
	assert.True(t, applied.Manual)
}

func TestPercentageUsesScopedSubtotal(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 2, "b": 1}, map[string]int64{"a": 10000, "b": 50000}, "a", "b")
	p := active(models.Promotion{
		ID: "pct", DiscountType: models.DiscountPercentage, DiscountValue: decimal.NewFromInt(15),
		ApplicableTo: models.ScopeSpecificProducts, ProductIDs: []string{"a"},
	})

	assert.Equal(t, int64(3000), Discount(&p, in))
}

func TestPercentageIsExactForFractionalRates(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 1}, map[string]int64{"a": 1000}, "a")
	p := active(models.Promotion{ID: "pct", DiscountType: models.DiscountPercentage, DiscountValue: decimal.RequireFromString("32.3")})
	assert.Equal(t, int64(323), Discount(&p, in))

	tier := active(models.Promotion{ID: "tier", DiscountType: models.DiscountBuyMoreSaveMore})
	in.Tiers = map[string][]models.PromotionTier{
		"tier": {{PromotionID: "tier", MinQuantity: 1, DiscountPercent: decimal.RequireFromString("64.1")}},
	}
	assert.Equal(t, int64(641), Discount(&tier, in))
}

func TestFixedValueDropsFraction(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 1}, map[string]int64{"a": 10000}, "a")
	p := active(models.Promotion{ID: "fixed", DiscountType: models.DiscountFixed, DiscountValue: decimal.RequireFromString("2500.75")})
	assert.Equal(t, int64(2500), Discount(&p, in))
}

func TestBuyXGetYGivesCheapest(t *testing.T) {
	in := buildInput(t,
		map[string]int{"a": 1, "b": 1, "c": 1},
		map[string]int64{"a": 30000, "b": 10000, "c": 20000},
		"a", "b", "c")
	p := active(models.Promotion{ID: "b2g1", DiscountType: models.DiscountBuyXGetY, BuyQuantity: ptr(2), GetQuantity: ptr(1)})

	assert.Equal(t, int64(10000), Discount(&p, in))
}

func TestBuyXGetYMultipleSetsCappedAtUnits(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 4}, map[string]int64{"a": 5000}, "a")
	p := active(models.Promotion{ID: "b1g3", DiscountType: models.DiscountBuyXGetY, BuyQuantity: ptr(1), GetQuantity: ptr(3)})

	// four sets would free twelve units, only four exist
	assert.Equal(t, int64(20000), Discount(&p, in))
}

func TestBuyXGetYCountsSetsOverWholeCart(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 1, "b": 1}, map[string]int64{"a": 10000, "b": 5000}, "a", "b")
	p := active(models.Promotion{
		ID: "b2g1", DiscountType: models.DiscountBuyXGetY, BuyQuantity: ptr(2), GetQuantity: ptr(1),
		ApplicableTo: models.ScopeSpecificProducts, ProductIDs: []string{"a"},
	})

	require.NoError(t, Validate(&p, in))
	// b is cheaper but out of scope, so the free unit is a
	assert.Equal(t, int64(10000), Discount(&p, in))

	p.GetQuantity = ptr(2)
	assert.Equal(t, int64(10000), Discount(&p, in))
}

func TestBuyXGetYNotEnoughUnits(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 1}, map[string]int64{"a": 5000}, "a")
	p := active(models.Promotion{ID: "b2g1", DiscountType: models.DiscountBuyXGetY, BuyQuantity: ptr(2), GetQuantity: ptr(1)})
	assert.Zero(t, Discount(&p, in))

	p.BuyQuantity = nil
	assert.Zero(t, Discount(&p, in))
}

func TestBuyMoreSaveMoreUsesHighestReachedTier(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 5}, map[string]int64{"a": 10000}, "a")
	p := active(models.Promotion{ID: "tier", DiscountType: models.DiscountBuyMoreSaveMore})
	in.Tiers = map[string][]models.PromotionTier{
		"tier": {
			{PromotionID: "tier", MinQuantity: 2, DiscountPercent: decimal.NewFromInt(5)},
			{PromotionID: "tier", MinQuantity: 6, DiscountPercent: decimal.NewFromInt(20)},
			{PromotionID: "tier", MinQuantity: 4, DiscountPercent: decimal.NewFromInt(10)},
		},
	}

	assert.Equal(t, int64(5000), Discount(&p, in))

	in.Tiers["tier"] = in.Tiers["tier"][1:2]
	assert.Zero(t, Discount(&p, in))
}

func TestFreeShippingRankedByWaivedShipping(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 1}, map[string]int64{"a": 100000}, "a")
	in.Shipping = 25000
	promos := []models.Promotion{
		active(models.Promotion{ID: "pct", DiscountType: models.DiscountPercentage, DiscountValue: decimal.NewFromInt(10)}),
		active(models.Promotion{ID: "ship", DiscountType: models.DiscountFreeShipping}),
	}

	best := SelectBest(promos, in)
	require.NotNil(t, best)
	assert.Equal(t, "ship", best.Promotion.ID)
	assert.Zero(t, best.Discount)
	assert.True(t, best.FreeShipping)
}

func TestValidateDistinctFailures(t *testing.T) {
	in := buildInput(t, map[string]int{"a": 1}, map[string]int64{"a": 10000}, "a")

	cases := []struct {
		name  string
		promo *models.Promotion
		want  error
	}{
		{"missing", nil, ErrCodeNotFound},
		{"inactive", &models.Promotion{AvailableInPOS: true}, ErrCodeNotFound},
		{"not started", ptr(active(models.Promotion{StartDate: ptr(now.Add(time.Minute))})), ErrNotStarted},
		{"expired", ptr(active(models.Promotion{EndDate: ptr(now.Add(-time.Minute))})), ErrExpired},
		{"min purchase", ptr(active(models.Promotion{MinPurchaseAmount: ptr(int64(20000))})), ErrMinPurchase},
		{"scope", ptr(active(models.Promotion{ApplicableTo: models.ScopeSpecificProducts, ProductIDs: []string{"b"}})), ErrScopeMismatch},
		{"ok", ptr(active(models.Promotion{StartDate: ptr(now), EndDate: ptr(now)})), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.promo, in)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "MEOW10", NormalizeCode("  meow10 "))
}

type fakeSource struct {
	promos    []models.Promotion
	tiers     []models.PromotionTier
	err       error
	tierCalls int
}

func (f *fakeSource) ListActivePromotions(ctx context.Context, posOnly bool, now time.Time) ([]models.Promotion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.promos, nil
}

func (f *fakeSource) ListPromotionTiers(ctx context.Context, ids []string) ([]models.PromotionTier, error) {
	f.tierCalls++
	return f.tiers, nil
}

func TestCacheRefresh(t *testing.T) {
	src := &fakeSource{
		promos: []models.Promotion{
			{ID: "p1", DiscountType: models.DiscountPercentage},
			{ID: "p2", DiscountType: models.DiscountBuyMoreSaveMore},
		},
		tiers: []models.PromotionTier{{PromotionID: "p2", MinQuantity: 3, DiscountPercent: decimal.NewFromInt(10)}},
	}
	c := NewCache(src)

	require.NoError(t, c.Refresh(context.Background(), now))
	assert.Len(t, c.Promotions(), 2)
	assert.Len(t, c.Tiers()["p2"], 1)
	assert.Equal(t, now, c.LoadedAt())
	assert.Equal(t, 1, src.tierCalls)
}

func TestCacheRefreshKeepsPreviousOnError(t *testing.T) {
	src := &fakeSource{promos: []models.Promotion{{ID: "p1"}}}
	c := NewCache(src)
	require.NoError(t, c.Refresh(context.Background(), now))

	src.err = errors.New("timeout")
	assert.Error(t, c.Refresh(context.Background(), now.Add(time.Minute)))
	assert.Len(t, c.Promotions(), 1)
	assert.Equal(t, now, c.LoadedAt())
	assert.Zero(t, src.tierCalls)
}
