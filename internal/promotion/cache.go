package promotion

import (
	"context"
	"fmt"
	"time"

	"pos-checkout-service/internal/models"
)

// Source is the record store view the cache loads from
type Source interface {
	ListActivePromotions(ctx context.Context, posOnly bool, now time.Time) ([]models.Promotion, error)
	ListPromotionTiers(ctx context.Context, promotionIDs []string) ([]models.PromotionTier, error)
}

// Cache holds the promotions available to one terminal session.
// It is filled at session start and only changes on an explicit Refresh.
type Cache struct {
	source     Source
	promotions []models.Promotion
	tiers      map[string][]models.PromotionTier
	loadedAt   time.Time
}

// NewCache creates an empty cache over source
func NewCache(source Source) *Cache {
	return &Cache{
		source: source,
		tiers:  map[string][]models.PromotionTier{},
	}
}

// Refresh reloads promotions and their tiers. On error the previous contents are kept.
func (c *Cache) Refresh(ctx context.Context, now time.Time) error {
	promos, err := c.source.ListActivePromotions(ctx, true, now)
	if err != nil {
		return fmt.Errorf("failed to list promotions: %w", err)
	}

	var tiered []string
	for _, p := range promos {
		if p.DiscountType == models.DiscountBuyMoreSaveMore {
			tiered = append(tiered, p.ID)
		}
	}

	tiers := map[string][]models.PromotionTier{}
	if len(tiered) > 0 {
		rows, err := c.source.ListPromotionTiers(ctx, tiered)
		if err != nil {
			return fmt.Errorf("failed to list promotion tiers: %w", err)
		}
		for _, t := range rows {
			tiers[t.PromotionID] = append(tiers[t.PromotionID], t)
		}
	}

	c.promotions = promos
	c.tiers = tiers
	c.loadedAt = now
	return nil
}

// Promotions returns the cached promotions
func (c *Cache) Promotions() []models.Promotion {
	return c.promotions
}

// Tiers returns the cached tier tables keyed by promotion id
func (c *Cache) Tiers() map[string][]models.PromotionTier {
	return c.tiers
}

// AddTiers merges tier rows for a promotion loaded outside the cache, such as a manual code
func (c *Cache) AddTiers(promotionID string, tiers []models.PromotionTier) {
	c.tiers[promotionID] = tiers
}

// LoadedAt returns when the cache was last refreshed
func (c *Cache) LoadedAt() time.Time {
	return c.loadedAt
}
