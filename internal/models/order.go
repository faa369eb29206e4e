package models

import "time"

// Payment methods accepted at the terminal
const (
	PaymentCash         = "cash"
	PaymentBankTransfer = "bank_transfer"
	PaymentEWallet      = "ewallet"
	PaymentQRIS         = "qris"
)

// Order statuses
const (
	OrderStatusCompleted  = "completed"
	OrderStatusProcessing = "processing"
)

// Order sources
const (
	OrderSourcePOS = "pos"
)

// Order represents a committed sale
type Order struct {
	ID               int64     `db:"id" json:"id"`
	OrderNumber      string    `db:"order_number" json:"order_number"`
	Source           string    `db:"source" json:"source"`
	Status           string    `db:"status" json:"status"`
	CashierID        string    `db:"cashier_id" json:"cashier_id"`
	PromotionID      *string   `db:"promotion_id" json:"promotion_id,omitempty"`
	Subtotal         int64     `db:"subtotal" json:"subtotal"`
	DiscountAmount   int64     `db:"discount_amount" json:"discount_amount"`
	ShippingFee      int64     `db:"shipping_fee" json:"shipping_fee"`
	Total            int64     `db:"total" json:"total"`
	PaymentMethod    string    `db:"payment_method" json:"payment_method"`
	CashReceived     *int64    `db:"cash_received" json:"cash_received,omitempty"`
	ChangeAmount     *int64    `db:"change_amount" json:"change_amount,omitempty"`
	RecipientName    string    `db:"recipient_name" json:"recipient_name"`
	RecipientPhone   string    `db:"recipient_phone" json:"recipient_phone"`
	ShippingAddress  string    `db:"shipping_address" json:"shipping_address"`
	ShippingCourier  string    `db:"shipping_courier" json:"shipping_courier"`
	DestinationID    string    `db:"destination_id" json:"destination_id"`
	TotalWeightGrams int       `db:"total_weight_grams" json:"total_weight_grams"`
	Notes            string    `db:"notes" json:"notes"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// OrderItem is a point-in-time copy of one cart line
type OrderItem struct {
	ID              int64   `db:"id" json:"id"`
	OrderID         int64   `db:"order_id" json:"order_id"`
	ProductID       string  `db:"product_id" json:"product_id"`
	VariantID       *string `db:"variant_id" json:"variant_id,omitempty"`
	Quantity        int     `db:"quantity" json:"quantity"`
	PriceAtPurchase int64   `db:"price_at_purchase" json:"price_at_purchase"`
}
