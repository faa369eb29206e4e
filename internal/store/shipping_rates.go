package store

import (
	"context"
	"database/sql"
	"errors"

	"pos-checkout-service/internal/models"
)

// GetShippingRate returns the base rate for a courier and destination, nil when none is configured
func (s *Store) GetShippingRate(ctx context.Context, courierID, destinationID string) (*models.ShippingRate, error) {
	var rate models.ShippingRate
	err := s.db.GetContext(ctx, &rate, `
		SELECT id, courier_id, destination_id, cost, COALESCE(estimated_days, '') AS estimated_days
		FROM shipping_rates
		WHERE courier_id = $1 AND destination_id = $2
		LIMIT 1`, courierID, destinationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}
