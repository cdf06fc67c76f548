package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bundle-service/internal/models"
)

// ErrBundleNotFound is returned when a bundle id does not exist.
var ErrBundleNotFound = errors.New("bundle not found")

// SaveBundle persists a bundle and its items atomically, replacing any
// existing bundle with the same id
func (s *Store) SaveBundle(ctx context.Context, bundle *models.SavedBundle, items []models.SavedBundleItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO bundles (bundle_id, name, type, status, created_date, start_date, end_date, metadata)
		VALUES (:bundle_id, :name, :type, :status, :created_date, :start_date, :end_date, :metadata)
		ON CONFLICT (bundle_id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			metadata = EXCLUDED.metadata`, bundle)
	if err != nil {
		return fmt.Errorf("failed to save bundle: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM bundle_items WHERE bundle_id = $1", bundle.BundleID); err != nil {
		return fmt.Errorf("failed to clear bundle items: %w", err)
	}

	for i := range items {
		items[i].BundleID = bundle.BundleID
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO bundle_items (bundle_id, sku, quantity, discount)
			VALUES (:bundle_id, :sku, :quantity, :discount)`, items[i])
		if err != nil {
			return fmt.Errorf("failed to save bundle item %s: %w", items[i].SKU, err)
		}
	}
	return tx.Commit()
}

// GetBundleByID retrieves a bundle and its items
func (s *Store) GetBundleByID(ctx context.Context, id string) (*models.SavedBundle, []models.SavedBundleItem, error) {
	var bundle models.SavedBundle
	err := s.db.GetContext(ctx, &bundle, "SELECT * FROM bundles WHERE bundle_id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("%w: %s", ErrBundleNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}

	var items []models.SavedBundleItem
	err = s.db.SelectContext(ctx, &items,
		"SELECT * FROM bundle_items WHERE bundle_id = $1 ORDER BY sku", id)
	if err != nil {
		return nil, nil, err
	}
	return &bundle, items, nil
}

// GetBundles retrieves saved bundles, optionally filtered by status
func (s *Store) GetBundles(ctx context.Context, status string) ([]models.SavedBundle, error) {
	var bundles []models.SavedBundle
	if status == "" {
		err := s.db.SelectContext(ctx, &bundles,
			"SELECT * FROM bundles ORDER BY created_date DESC")
		return bundles, err
	}
	err := s.db.SelectContext(ctx, &bundles,
		"SELECT * FROM bundles WHERE status = $1 ORDER BY created_date DESC", status)
	return bundles, err
}

// UpdateBundleStatus updates a bundle's lifecycle status
func (s *Store) UpdateBundleStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bundles SET status = $1 WHERE bundle_id = $2", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrBundleNotFound, id)
	}
	return nil
}

// DeleteBundle removes a bundle; items cascade
func (s *Store) DeleteBundle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bundles WHERE bundle_id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrBundleNotFound, id)
	}
	return nil
}
