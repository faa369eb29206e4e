package service

import (
	"context"
	"time"

	"pos-checkout-service/internal/models"
	"pos-checkout-service/internal/promotion"
	"pos-checkout-service/internal/shipping"
)

// CatalogSource reads the active catalog
type CatalogSource interface {
	ListActiveProducts(ctx context.Context) ([]models.Product, error)
	ListVariantsForProducts(ctx context.Context, productIDs []string) ([]models.Variant, error)
}

// StockStore reads and overwrites single stock buckets. No locking is assumed.
type StockStore interface {
	GetStock(ctx context.Context, ref models.StockRef) (int, error)
	SetStock(ctx context.Context, ref models.StockRef, value int) error
}

// OrderWriter persists order headers and their lines
type OrderWriter interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderLines(ctx context.Context, orderID int64, items []models.OrderItem) error
}

// RecordStore is everything a terminal session needs from persistence
type RecordStore interface {
	CatalogSource
	StockStore
	OrderWriter
	promotion.Source
	shipping.RateLookup
	FindPromotionByCode(ctx context.Context, code string) (*models.Promotion, error)
}

// EventPublisher emits checkout events
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishCheckoutCompleted(ctx context.Context, event *models.CheckoutCompletedEvent) error
	PublishCheckoutPartialFailure(ctx context.Context, event *models.CheckoutPartialFailureEvent) error
}

// StockMirror caches the latest written stock levels
type StockMirror interface {
	MirrorStock(ctx context.Context, ref models.StockRef, qty int) error
}

// Locker provides named, owned, expiring locks
type Locker interface {
	AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
}
