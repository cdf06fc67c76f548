package models

import (
	"encoding/json"
	"time"
)

// OrderLine is a single line of a historical order, one row of the
// order ledger. Prices are in the shop currency, rounded to 2 decimals.
type OrderLine struct {
	OrderNumber       string    `db:"order_number" json:"order_number"`
	CreatedDate       time.Time `db:"created_date" json:"created_date"`
	SKU               string    `db:"sku" json:"sku"`
	ItemTitle         string    `db:"item_title" json:"item_title"`
	Category          string    `db:"category" json:"category"`
	Brand             string    `db:"brand" json:"brand"`
	Quantity          int       `db:"quantity" json:"quantity"`
	OriginalUnitPrice float64   `db:"original_unit_price" json:"original_unit_price"`
	FinalUnitPrice    float64   `db:"final_unit_price" json:"final_unit_price"`
	UserID            string    `db:"user_id" json:"user_id"`
}

// InventoryItem represents current stock for a SKU
type InventoryItem struct {
	SKU       string `db:"sku" json:"sku"`
	Quantity  int    `db:"quantity" json:"quantity"`
	ItemTitle string `db:"item_title" json:"item_title"`
	Category  string `db:"category" json:"category"`
	Brand     string `db:"brand" json:"brand"`
}

// SavedBundle is a bundle persisted by a caller, keyed by a
// caller-chosen identifier
type SavedBundle struct {
	BundleID    string          `db:"bundle_id" json:"bundle_id"`
	Name        string          `db:"name" json:"name"`
	Type        string          `db:"type" json:"type"`
	Status      string          `db:"status" json:"status"`
	CreatedDate time.Time       `db:"created_date" json:"created_date"`
	StartDate   *time.Time      `db:"start_date" json:"start_date,omitempty"`
	EndDate     *time.Time      `db:"end_date" json:"end_date,omitempty"`
	Metadata    json.RawMessage `db:"metadata" json:"metadata,omitempty"`
}

// SavedBundleItem is one SKU of a persisted bundle
type SavedBundleItem struct {
	BundleID string  `db:"bundle_id" json:"bundle_id"`
	SKU      string  `db:"sku" json:"sku"`
	Quantity int     `db:"quantity" json:"quantity"`
	Discount float64 `db:"discount" json:"discount"`
}

// Bundle types
const (
	BundleTypeMined         = "MINED"
	BundleTypeOptimized     = "OPTIMIZED"
	BundleTypeComplementary = "Complementary"
	BundleTypeVolume        = "Volume"
	BundleTypeThematic      = "Thematic"
	BundleTypeCrossSell     = "Cross-sell"
)

// Bundle statuses
const (
	BundleStatusDraft    = "DRAFT"
	BundleStatusActive   = "ACTIVE"
	BundleStatusArchived = "ARCHIVED"
)
