package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pos-checkout-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const promotionColumns = `
	id, code, name, discount_type, discount_value, min_purchase_amount,
	start_date, end_date, is_active, available_in_pos, applicable_to,
	COALESCE(product_ids, '{}') AS product_ids, free_shipping,
	buy_quantity, get_quantity, created_at`

// ListActivePromotions retrieves active promotions that have not ended yet.
// Start dates are left to the evaluator so a long-lived cache picks them up once they begin.
func (s *Store) ListActivePromotions(ctx context.Context, posOnly bool, now time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := s.db.SelectContext(ctx, &promos, `
		SELECT`+promotionColumns+`
		FROM promotions
		WHERE is_active = TRUE
		  AND ($1 = FALSE OR available_in_pos = TRUE)
		  AND (end_date IS NULL OR end_date >= $2)
		ORDER BY created_at`, posOnly, now)
	return promos, err
}

// FindPromotionByCode looks a code up case-insensitively. Returns nil when no code matches.
func (s *Store) FindPromotionByCode(ctx context.Context, code string) (*models.Promotion, error) {
	var promo models.Promotion
	err := s.db.GetContext(ctx, &promo, `
		SELECT`+promotionColumns+`
		FROM promotions
		WHERE UPPER(code) = UPPER($1)
		LIMIT 1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// ListPromotionTiers retrieves the tier tables of the given promotions
func (s *Store) ListPromotionTiers(ctx context.Context, promotionIDs []string) ([]models.PromotionTier, error) {
	if len(promotionIDs) == 0 {
		return []models.PromotionTier{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, promotion_id, min_quantity, discount_percent
		FROM promotion_tiers
		WHERE promotion_id IN (?)
		ORDER BY promotion_id, min_quantity`, promotionIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var tiers []models.PromotionTier
	err = s.db.SelectContext(ctx, &tiers, query, args...)
	return tiers, err
}
