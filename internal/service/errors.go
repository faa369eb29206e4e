package service

import (
	"errors"
	"fmt"
	"strings"

	"pos-checkout-service/internal/models"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrProductNotFound    = errors.New("product not found in catalog")
	ErrVariantNotFound    = errors.New("variant not found for product")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNotReady           = errors.New("checkout is not ready to complete")
	ErrCheckoutInProgress = errors.New("checkout already in progress for this session")
)

// CatalogLoadError means the catalog snapshot could not be built. No partial catalog is returned.
type CatalogLoadError struct {
	Err error
}

func (e *CatalogLoadError) Error() string {
	return fmt.Sprintf("failed to load catalog: %v", e.Err)
}

func (e *CatalogLoadError) Unwrap() error { return e.Err }

// Shortfall is one cart line the live stock can no longer cover
type Shortfall struct {
	Name      string          `json:"name"`
	Stock     models.StockRef `json:"stock"`
	Requested int             `json:"requested"`
	Available int             `json:"available"`
}

// ShortfallError aborts a checkout before anything was written
type ShortfallError struct {
	Lines []Shortfall
}

func (e *ShortfallError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", l.Name, l.Requested, l.Available))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// AbortError is a checkout failure that left stock untouched
type AbortError struct {
	Phase string
	// OrderID is set when the order header was written before the abort
	OrderID int64
	Err     error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("checkout aborted during %s: %v", e.Phase, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// PartialCommitError means stock debiting stopped after the order was written.
// Debited lines stay debited and the order needs manual reconciliation.
type PartialCommitError struct {
	OrderID     int64
	OrderNumber string
	Debited     []models.OrderItem
	Failed      models.OrderItem
	Pending     []models.OrderItem
	Err         error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("order %s saved but stock update failed for product %s after %d of %d lines; manual reconciliation required: %v",
		e.OrderNumber, e.Failed.ProductID, len(e.Debited), len(e.Debited)+1+len(e.Pending), e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }
