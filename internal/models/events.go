package models

import "time"

// Event types
const (
	EventTypeLedgerRefreshed   = "LEDGER_REFRESHED"
	EventTypeAnalysisRequested = "ANALYSIS_REQUESTED"
	EventTypeAnalysisCompleted = "ANALYSIS_COMPLETED"
	EventTypeAnalysisFailed    = "ANALYSIS_FAILED"
	EventTypeBundleSaved       = "BUNDLE_SAVED"
	EventTypeBundleDeleted     = "BUNDLE_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// LedgerRefreshedEvent published after the ledger snapshot is rebuilt
type LedgerRefreshedEvent struct {
	BaseEvent
	OrderCount int `json:"order_count"`
	LineCount  int `json:"line_count"`
	SKUCount   int `json:"sku_count"`
}

// AnalysisRequestedEvent asks the background worker for a full
// analysis run with the given parameters
type AnalysisRequestedEvent struct {
	BaseEvent
	RequestID      string   `json:"request_id"`
	ProductToClear string   `json:"product_to_clear,omitempty"`
	RelatedSKUs    []string `json:"related_skus,omitempty"`
	TargetDiscount int      `json:"target_discount,omitempty"`
	TopN           int      `json:"top_n,omitempty"`
}

// AnalysisCompletedEvent published when a background analysis run
// finishes
type AnalysisCompletedEvent struct {
	BaseEvent
	RequestID        string        `json:"request_id"`
	BundleCount      int           `json:"bundle_count"`
	OpportunityCount int           `json:"opportunity_count"`
	Duration         time.Duration `json:"duration_ns"`
}

// AnalysisFailedEvent published when a background analysis run fails
type AnalysisFailedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
}

// BundleSavedEvent published when a bundle is persisted
type BundleSavedEvent struct {
	BaseEvent
	BundleID string   `json:"bundle_id"`
	Type     string   `json:"type"`
	SKUs     []string `json:"skus"`
}

// BundleDeletedEvent published when a persisted bundle is removed
type BundleDeletedEvent struct {
	BaseEvent
	BundleID string `json:"bundle_id"`
}
