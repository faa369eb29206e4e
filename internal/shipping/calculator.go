package shipping

import (
	"context"
	"errors"
	"fmt"

	"pos-checkout-service/internal/models"
)

// CourierKind distinguishes rated couriers from the bypass options
type CourierKind string

const (
	CourierPickup CourierKind = "pickup"
	CourierManual CourierKind = "manual"
	CourierRated  CourierKind = "courier"
)

// Status describes how a shipping cost was obtained
type Status string

const (
	StatusBypassed         Status = "bypassed"
	StatusRated            Status = "rated"
	StatusNoRateConfigured Status = "no_rate_configured"
)

const gramsPerKg = 1000

var (
	ErrCourierRequired     = errors.New("courier selection is required")
	ErrDestinationRequired = errors.New("destination is required")
)

// Selection is the courier option picked at the terminal
type Selection struct {
	Kind      CourierKind `json:"kind"`
	CourierID string      `json:"courier_id,omitempty"`
}

// Bypassed reports whether the calculator is skipped for this selection
func (s Selection) Bypassed() bool {
	return s.Kind == CourierPickup || s.Kind == CourierManual
}

// Cost is the outcome of a shipping computation. Amount is only meaningful when Status is rated.
type Cost struct {
	Status        Status `json:"status"`
	Amount        int64  `json:"amount"`
	BaseRate      int64  `json:"base_rate,omitempty"`
	BilledKg      int    `json:"billed_kg,omitempty"`
	EstimatedDays string `json:"estimated_days,omitempty"`
}

// RateLookup returns the base rate for a courier and destination, or nil when none is configured
type RateLookup interface {
	GetShippingRate(ctx context.Context, courierID, destinationID string) (*models.ShippingRate, error)
}

// Compute derives the shipping cost for a shipment weight
func Compute(ctx context.Context, rates RateLookup, sel Selection, destinationID string, weightGrams int) (Cost, error) {
	if sel.Bypassed() {
		return Cost{Status: StatusBypassed}, nil
	}
	if sel.Kind != CourierRated || sel.CourierID == "" {
		return Cost{}, ErrCourierRequired
	}
	if destinationID == "" {
		return Cost{}, ErrDestinationRequired
	}

	rate, err := rates.GetShippingRate(ctx, sel.CourierID, destinationID)
	if err != nil {
		return Cost{}, fmt.Errorf("failed to get shipping rate: %w", err)
	}
	if rate == nil {
		return Cost{Status: StatusNoRateConfigured}, nil
	}

	amount, kg := Tiered(rate.Cost, weightGrams)
	return Cost{
		Status:        StatusRated,
		Amount:        amount,
		BaseRate:      rate.Cost,
		BilledKg:      kg,
		EstimatedDays: rate.EstimatedDays,
	}, nil
}

// Tiered applies the weight tiers to a base rate. Shipments under one kilogram pay the
// flat rate; heavier ones pay the rate per started kilogram.
func Tiered(baseRate int64, weightGrams int) (int64, int) {
	if weightGrams < gramsPerKg {
		return baseRate, 0
	}
	kg := (weightGrams + gramsPerKg - 1) / gramsPerKg
	return baseRate * int64(kg), kg
}
