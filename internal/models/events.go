package models

import "time"

// Event types
const (
	EventTypeOrderCreated           = "ORDER_CREATED"
	EventTypeCheckoutCompleted      = "CHECKOUT_COMPLETED"
	EventTypeCheckoutPartialFailure = "CHECKOUT_PARTIAL_FAILURE"
	EventTypePromotionsChanged      = "PROMOTIONS_CHANGED"
	EventTypeCatalogChanged         = "CATALOG_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published once the order and its lines are persisted
type OrderCreatedEvent struct {
	BaseEvent
	OrderID       int64           `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	SessionID     string          `json:"session_id"`
	CashierID     string          `json:"cashier_id"`
	Total         int64           `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	Items         []OrderItemData `json:"items"`
}

// CheckoutCompletedEvent published after every line has been debited
type CheckoutCompletedEvent struct {
	BaseEvent
	OrderID   int64           `json:"order_id"`
	SessionID string          `json:"session_id"`
	Items     []OrderItemData `json:"items"`
}

// CheckoutPartialFailureEvent published when stock debit stopped mid-way.
// Consumers use it to drive manual reconciliation.
type CheckoutPartialFailureEvent struct {
	BaseEvent
	OrderID   int64           `json:"order_id"`
	SessionID string          `json:"session_id"`
	Debited   []OrderItemData `json:"debited"`
	Failed    OrderItemData   `json:"failed"`
	Pending   []OrderItemData `json:"pending"`
	Reason    string          `json:"reason"`
}

// CatalogChangedEvent is produced by the back office when products or promotions change
type CatalogChangedEvent struct {
	BaseEvent
	EntityIDs []string `json:"entity_ids,omitempty"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice int64   `json:"unit_price"`
}
