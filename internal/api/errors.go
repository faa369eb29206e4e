package api

import (
	"errors"
	"net/http"

	"pos-checkout-service/internal/cart"
	"pos-checkout-service/internal/promotion"
	"pos-checkout-service/internal/service"
	"pos-checkout-service/internal/shipping"
	"pos-checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps domain errors onto status codes and response bodies
func (h *Handler) writeError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.JSON(status, body)
}

func errorResponse(err error) (int, gin.H) {
	var (
		validation *util.ValidationError
		shortfall  *service.ShortfallError
		partial    *service.PartialCommitError
		abort      *service.AbortError
		catalog    *service.CatalogLoadError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, gin.H{
			"error":  "Validation failed",
			"fields": validation.Fields,
		}

	case errors.As(err, &shortfall):
		return http.StatusConflict, gin.H{
			"error":      "Insufficient stock",
			"details":    err.Error(),
			"shortfalls": shortfall.Lines,
		}

	case errors.As(err, &partial):
		return http.StatusInternalServerError, gin.H{
			"error":                   "Order saved but stock update incomplete",
			"details":                 err.Error(),
			"order_id":                partial.OrderID,
			"order_number":            partial.OrderNumber,
			"debited":                 partial.Debited,
			"failed":                  partial.Failed,
			"pending":                 partial.Pending,
			"requires_reconciliation": true,
		}

	case errors.As(err, &abort):
		body := gin.H{
			"error":                   "Checkout aborted",
			"details":                 err.Error(),
			"phase":                   abort.Phase,
			"requires_reconciliation": false,
		}
		// the order header was written before the lines failed
		if abort.OrderID != 0 {
			body["order_id"] = abort.OrderID
			body["requires_reconciliation"] = true
		}
		return http.StatusInternalServerError, body

	case errors.As(err, &catalog):
		return http.StatusServiceUnavailable, gin.H{
			"error":   "Catalog unavailable",
			"details": err.Error(),
		}

	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrVariantNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound, gin.H{"error": err.Error()}

	case errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrStockExceeded),
		errors.Is(err, service.ErrCheckoutInProgress):
		return http.StatusConflict, gin.H{"error": err.Error()}

	case errors.Is(err, promotion.ErrCodeRequired),
		errors.Is(err, shipping.ErrCourierRequired),
		errors.Is(err, shipping.ErrDestinationRequired):
		return http.StatusBadRequest, gin.H{"error": err.Error()}

	case errors.Is(err, promotion.ErrCodeNotFound),
		errors.Is(err, promotion.ErrNotStarted),
		errors.Is(err, promotion.ErrExpired),
		errors.Is(err, promotion.ErrMinPurchase),
		errors.Is(err, promotion.ErrScopeMismatch),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrNotReady):
		return http.StatusUnprocessableEntity, gin.H{"error": err.Error()}

	default:
		return http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"details": err.Error(),
		}
	}
}
