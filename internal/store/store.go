package store

import (
	"context"
	"fmt"
	"time"

	"bundle-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// InitSchema creates the tables if they do not exist
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS order_lines (
		order_number        VARCHAR(50),
		created_date        TIMESTAMP,
		sku                 VARCHAR(50),
		item_title          VARCHAR(255),
		category            VARCHAR(100),
		brand               VARCHAR(100),
		quantity            BIGINT,
		original_unit_price DECIMAL(10,2),
		final_unit_price    DECIMAL(10,2),
		user_id             VARCHAR(50)
	);
	CREATE TABLE IF NOT EXISTS inventory (
		sku        VARCHAR(50) PRIMARY KEY,
		quantity   BIGINT,
		item_title VARCHAR(255),
		category   VARCHAR(100),
		brand      VARCHAR(100)
	);
	CREATE TABLE IF NOT EXISTS bundles (
		bundle_id    VARCHAR(50) PRIMARY KEY,
		name         VARCHAR(255),
		type         VARCHAR(50),
		status       VARCHAR(50),
		created_date TIMESTAMP,
		start_date   TIMESTAMP,
		end_date     TIMESTAMP,
		metadata     JSONB
	);
	CREATE TABLE IF NOT EXISTS bundle_items (
		bundle_id VARCHAR(50) REFERENCES bundles(bundle_id) ON DELETE CASCADE,
		sku       VARCHAR(50),
		quantity  BIGINT,
		discount  DECIMAL(5,2),
		PRIMARY KEY (bundle_id, sku)
	);
	CREATE INDEX IF NOT EXISTS idx_order_lines_sku ON order_lines(sku);
	CREATE INDEX IF NOT EXISTS idx_order_lines_date ON order_lines(created_date);
	CREATE INDEX IF NOT EXISTS idx_bundle_items_sku ON bundle_items(sku);`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// GetOrderLines retrieves the full order ledger, oldest first
func (s *Store) GetOrderLines(ctx context.Context) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines ORDER BY created_date, order_number")
	return lines, err
}

// ReplaceOrderLines swaps the order ledger for a fresh extract within a
// single transaction
func (s *Store) ReplaceOrderLines(ctx context.Context, lines []models.OrderLine) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_lines"); err != nil {
		return fmt.Errorf("failed to clear order ledger: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO order_lines (order_number, created_date, sku, item_title,
			category, brand, quantity, original_unit_price, final_unit_price, user_id)
		VALUES (:order_number, :created_date, :sku, :item_title,
			:category, :brand, :quantity, :original_unit_price, :final_unit_price, :user_id)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range lines {
		if _, err := stmt.ExecContext(ctx, lines[i]); err != nil {
			return fmt.Errorf("failed to insert order line %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// CountOrderLines returns the size of the current ledger
func (s *Store) CountOrderLines(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM order_lines")
	return count, err
}

// GetInventory retrieves all inventory rows
func (s *Store) GetInventory(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := s.db.SelectContext(ctx, &items, "SELECT * FROM inventory ORDER BY sku")
	return items, err
}

// GetInventoryBySKUs retrieves inventory for the given SKUs
func (s *Store) GetInventoryBySKUs(ctx context.Context, skus []string) ([]models.InventoryItem, error) {
	if len(skus) == 0 {
		return []models.InventoryItem{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM inventory WHERE sku IN (?)", skus)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.InventoryItem
	err = s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// UpsertInventory replaces the stock row for a SKU
func (s *Store) UpsertInventory(ctx context.Context, item *models.InventoryItem) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO inventory (sku, quantity, item_title, category, brand)
		VALUES (:sku, :quantity, :item_title, :category, :brand)
		ON CONFLICT (sku) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			item_title = EXCLUDED.item_title,
			category = EXCLUDED.category,
			brand = EXCLUDED.brand`, item)
	return err
}
