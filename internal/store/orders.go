package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos-checkout-service/internal/models"
)

const orderColumns = `id, order_number, source, status, cashier_id, promotion_id,
	subtotal, discount_amount, shipping_fee, total, payment_method, cash_received, change_amount,
	recipient_name, recipient_phone, shipping_address, shipping_courier, destination_id,
	total_weight_grams, notes, created_at`

// CreateOrder inserts the order row and fills its id and creation time
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (
			order_number, source, status, cashier_id, promotion_id,
			subtotal, discount_amount, shipping_fee, total,
			payment_method, cash_received, change_amount,
			recipient_name, recipient_phone, shipping_address, shipping_courier,
			destination_id, total_weight_grams, notes
		)
		VALUES (
			:order_number, :source, :status, :cashier_id, :promotion_id,
			:subtotal, :discount_amount, :shipping_fee, :total,
			:payment_method, :cash_received, :change_amount,
			:recipient_name, :recipient_phone, :shipping_address, :shipping_courier,
			:destination_id, :total_weight_grams, :notes
		)
		RETURNING id, created_at`

	rows, err := s.db.NamedQueryContext(ctx, query, order)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return errors.New("insert order returned no row")
	}
	return rows.Scan(&order.ID, &order.CreatedAt)
}

// CreateOrderLines inserts all lines of an order in one statement
func (s *Store) CreateOrderLines(ctx context.Context, orderID int64, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([]models.OrderItem, len(items))
	for i, item := range items {
		item.OrderID = orderID
		rows[i] = item
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO order_items (order_id, product_id, variant_id, quantity, price_at_purchase)
		VALUES (:order_id, :product_id, :variant_id, :quantity, :price_at_purchase)`, rows)
	return err
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT id, order_id, product_id, variant_id, quantity, price_at_purchase FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}
