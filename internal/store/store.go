package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos-checkout-service/config"
	"pos-checkout-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a stock row addressed by id does not exist
var ErrNotFound = errors.New("record not found")

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(cfg config.DatabaseConfig) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewFromDB wraps an existing connection
func NewFromDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListActiveProducts retrieves every active product
func (s *Store) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, `
		SELECT id, name, base_price, stock_quantity, unit_weight_grams, has_variants, is_active, created_at
		FROM products
		WHERE is_active = TRUE
		ORDER BY name`)
	return products, err
}

// ListVariantsForProducts retrieves all variants of the given products, whatever their stock
func (s *Store) ListVariantsForProducts(ctx context.Context, productIDs []string) ([]models.Variant, error) {
	if len(productIDs) == 0 {
		return []models.Variant{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, product_id, name, price_adjustment, stock_quantity, weight_grams, created_at
		FROM product_variants
		WHERE product_id IN (?)
		ORDER BY product_id, created_at`, productIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var variants []models.Variant
	err = s.db.SelectContext(ctx, &variants, query, args...)
	return variants, err
}

func stockTable(kind models.StockKind) (string, error) {
	switch kind {
	case models.StockKindProduct:
		return "products", nil
	case models.StockKindVariant:
		return "product_variants", nil
	default:
		return "", fmt.Errorf("unknown stock kind: %q", kind)
	}
}

// GetStock reads the current stock of a product or variant
func (s *Store) GetStock(ctx context.Context, ref models.StockRef) (int, error) {
	table, err := stockTable(ref.Kind)
	if err != nil {
		return 0, err
	}

	var stock int
	err = s.db.GetContext(ctx, &stock,
		fmt.Sprintf("SELECT stock_quantity FROM %s WHERE id = $1", table), ref.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s %s", ErrNotFound, ref.Kind, ref.ID)
	}
	return stock, err
}

// SetStock overwrites the stock of a product or variant
func (s *Store) SetStock(ctx context.Context, ref models.StockRef, value int) error {
	table, err := stockTable(ref.Kind)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET stock_quantity = $1, updated_at = NOW() WHERE id = $2", table),
		value, ref.ID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, ref.Kind, ref.ID)
	}
	return nil
}
