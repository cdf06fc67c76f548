package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"bundle-service/config"
	"bundle-service/internal/broker"
	"bundle-service/internal/bundler"
	"bundle-service/internal/ingest"
	"bundle-service/internal/ledger"
	"bundle-service/internal/models"
	"bundle-service/internal/redisclient"
	"bundle-service/internal/store"
	"bundle-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BundleService owns the ledger snapshot and the mining, pricing,
// selection and optimization pipeline. The snapshot and its priced
// tables are immutable once built; a refresh swaps them wholesale under
// the lock, there is no in-place mutation.
type BundleService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	cfg            config.AnalysisConfig
	logger         *zap.Logger

	mu     sync.RWMutex
	snap   *ledger.Snapshot
	tables map[int]bundler.Table
}

// NewBundleService creates a new bundle service
func NewBundleService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	cfg config.AnalysisConfig,
) *BundleService {
	return &BundleService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		cfg:            cfg,
		logger:         util.GetLogger(),
		tables:         make(map[int]bundler.Table),
	}
}

// discountRange builds the configured discount range, falling back to
// the defaults on an empty or inverted range
func (s *BundleService) discountRange() bundler.DiscountRange {
	r := bundler.DiscountRange{Low: s.cfg.DiscountLow, High: s.cfg.DiscountHigh}
	if r.Low <= 0 || r.High < r.Low {
		return bundler.DefaultDiscountRange
	}
	return r
}

// LoadExtract ingests a JSON order extract, replaces the persisted
// ledger and rebuilds the snapshot
func (s *BundleService) LoadExtract(ctx context.Context, r io.Reader, mapping ingest.ColumnMapping) (*ingest.Result, error) {
	ctx, span := util.StartSpan(ctx, "BundleService.LoadExtract")
	defer span.End()

	res, err := ingest.ParseExtract(r, mapping)
	if err != nil {
		return nil, err
	}
	util.LedgerLinesDropped.Add(float64(res.Dropped))

	if err := s.store.ReplaceOrderLines(ctx, res.Lines); err != nil {
		return nil, fmt.Errorf("failed to persist order lines: %w", err)
	}

	if err := s.RefreshLedger(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// RefreshLedger reloads the order ledger from the store and rebuilds
// the snapshot and every priced table
func (s *BundleService) RefreshLedger(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "BundleService.RefreshLedger")
	defer span.End()

	lines, err := s.store.GetOrderLines(ctx)
	if err != nil {
		return fmt.Errorf("failed to load order ledger: %w", err)
	}

	snap := ledger.BuildSnapshot(lines)

	sizes := make([]int, 0, bundler.MaxBundleSize-bundler.MinBundleSize+1)
	for n := bundler.MinBundleSize; n <= bundler.MaxBundleSize; n++ {
		sizes = append(sizes, n)
	}
	mined := bundler.MineItemsets(snap, sizes, s.cfg.MinSupport)

	tables := make(map[int]bundler.Table, len(mined))
	for size, itemsets := range mined {
		util.ItemsetsMinedTotal.WithLabelValues(strconv.Itoa(size)).Add(float64(len(itemsets)))
		table := bundler.PriceItemsets(itemsets, snap.Prices, snap.Titles, s.discountRange())
		table.Size = size
		tables[size] = table
	}

	s.mu.Lock()
	s.snap = snap
	s.tables = tables
	s.mu.Unlock()

	util.LedgerRefreshTotal.Inc()
	util.LedgerSnapshotSKUs.Set(float64(snap.SKUCount()))

	if err := s.redis.InvalidateAnalysis(ctx); err != nil {
		s.logger.Warn("Failed to invalidate analysis cache", zap.Error(err))
	}

	event := &models.LedgerRefreshedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeLedgerRefreshed,
			Timestamp: time.Now(),
		},
		OrderCount: len(snap.Orders),
		LineCount:  len(snap.Lines),
		SKUCount:   snap.SKUCount(),
	}
	if err := s.eventPublisher.PublishLedgerRefreshed(ctx, event); err != nil {
		s.logger.Error("Failed to publish LedgerRefreshed event", zap.Error(err))
	}

	s.logger.Info("Ledger refreshed",
		zap.Int("orders", len(snap.Orders)),
		zap.Int("lines", len(snap.Lines)),
		zap.Int("skus", snap.SKUCount()))
	return nil
}

// snapshot returns the current snapshot and tables, or an error if the
// ledger has never been loaded
func (s *BundleService) snapshot() (*ledger.Snapshot, map[int]bundler.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, nil, fmt.Errorf("ledger not loaded, refresh first")
	}
	return s.snap, s.tables, nil
}

// AnalyzeRequest describes one bundle analysis run
type AnalyzeRequest struct {
	ProductToClear string   `json:"product_to_clear,omitempty"`
	RelatedSKUs    []string `json:"related_skus,omitempty"`
	TargetDiscount int      `json:"target_discount,omitempty"`
	TopN           int      `json:"top_n,omitempty"`
}

// SizeSelection is the ranked candidates for one bundle size
type SizeSelection struct {
	Size       int                       `json:"bundle_size"`
	Candidates []bundler.BundleCandidate `json:"candidates"`
	Discount   int                       `json:"discount_percent"`
	Fallback   bool                      `json:"discount_fallback"`
}

// AnalysisResult is the outcome of one analysis run across all bundle
// sizes
type AnalysisResult struct {
	RequestID   string          `json:"request_id"`
	Selections  []SizeSelection `json:"selections"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// cacheKey derives a stable cache key from the request parameters
func (r *AnalyzeRequest) cacheKey() string {
	related := make([]string, len(r.RelatedSKUs))
	copy(related, r.RelatedSKUs)
	return fmt.Sprintf("%s|%s|%d|%d",
		r.ProductToClear, strings.Join(related, ","), r.TargetDiscount, r.TopN)
}

// Analyze selects ranked bundle candidates for every mined bundle size.
// Results are cached; a ledger refresh invalidates the cache.
func (s *BundleService) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalysisResult, error) {
	ctx, span := util.StartSpan(ctx, "BundleService.Analyze")
	defer span.End()

	key := req.cacheKey()
	var cached AnalysisResult
	if hit, err := s.redis.GetAnalysis(ctx, key, &cached); err != nil {
		s.logger.Warn("Analysis cache read failed", zap.Error(err))
	} else if hit {
		util.CacheHitsTotal.WithLabelValues("analysis").Inc()
		return &cached, nil
	}
	util.CacheMissesTotal.WithLabelValues("analysis").Inc()

	_, tables, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	discount := req.TargetDiscount
	if discount == 0 {
		discount = s.cfg.DefaultDiscount
	}
	topN := req.TopN
	if topN == 0 {
		topN = s.cfg.TopN
	}

	result := &AnalysisResult{
		RequestID:   uuid.New().String(),
		GeneratedAt: time.Now(),
	}
	for n := bundler.MinBundleSize; n <= bundler.MaxBundleSize; n++ {
		table, ok := tables[n]
		if !ok || len(table.Rows) == 0 {
			continue
		}

		sel, err := bundler.SelectBundles(table, bundler.SelectOptions{
			ProductToClear: req.ProductToClear,
			RelatedSKUs:    req.RelatedSKUs,
			TargetDiscount: discount,
			TopN:           topN,
		})
		if err != nil {
			return nil, err
		}

		util.BundlesSelectedTotal.Add(float64(len(sel.Candidates)))
		result.Selections = append(result.Selections, SizeSelection{
			Size:       n,
			Candidates: sel.Candidates,
			Discount:   sel.Discount,
			Fallback:   sel.Fallback,
		})
	}

	if err := s.redis.SetAnalysis(ctx, key, result); err != nil {
		s.logger.Warn("Analysis cache write failed", zap.Error(err))
	}
	return result, nil
}

// OptimizeRequest describes one local search run
type OptimizeRequest struct {
	SKUs           []string `json:"skus" binding:"required,min=2"`
	TargetDiscount int      `json:"target_discount,omitempty"`
}

// OptimizeBundle runs the local search starting from the given bundle.
// The universe, prices and historical frequencies come from the priced
// table matching the bundle's size.
func (s *BundleService) OptimizeBundle(ctx context.Context, req *OptimizeRequest) (*bundler.OptimizationResult, error) {
	ctx, span := util.StartSpan(ctx, "BundleService.OptimizeBundle")
	defer span.End()

	_, tables, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	size := len(req.SKUs)
	table, ok := tables[size]
	if !ok || len(table.Rows) == 0 {
		return nil, fmt.Errorf("no priced itemsets of size %d", size)
	}

	discount := req.TargetDiscount
	if discount == 0 {
		discount = s.cfg.DefaultDiscount
	}

	result := bundler.Optimize(
		req.SKUs,
		bundler.Universe(table),
		bundler.PriceMap(table, discount),
		bundler.FrequencyMap(table),
		bundler.TitleMap(table),
		bundler.OptimizeParams{
			TargetMargin: 1 - float64(discount)/100,
			MaxIters:     s.cfg.MaxIters,
			Alpha:        s.cfg.Alpha,
		},
	)

	util.OptimizationRunsTotal.Inc()
	util.OptimizationIterations.Observe(float64(result.Iterations))
	return &result, nil
}

// SaveBundleRequest describes a bundle to persist
type SaveBundleRequest struct {
	BundleID string                   `json:"bundle_id,omitempty"`
	Name     string                   `json:"name" binding:"required"`
	Type     string                   `json:"type" binding:"required"`
	Items    []models.SavedBundleItem `json:"items" binding:"required,min=1"`
	Metadata json.RawMessage          `json:"metadata,omitempty"`
}

// SaveBundle persists a bundle chosen by the caller and publishes a
// BundleSaved event
func (s *BundleService) SaveBundle(ctx context.Context, req *SaveBundleRequest) (*models.SavedBundle, error) {
	ctx, span := util.StartSpan(ctx, "BundleService.SaveBundle")
	defer span.End()

	bundle := &models.SavedBundle{
		BundleID:    req.BundleID,
		Name:        req.Name,
		Type:        req.Type,
		Status:      models.BundleStatusDraft,
		CreatedDate: time.Now().UTC(),
		Metadata:    req.Metadata,
	}
	if bundle.BundleID == "" {
		bundle.BundleID = uuid.New().String()
	}

	if err := s.store.SaveBundle(ctx, bundle, req.Items); err != nil {
		return nil, fmt.Errorf("failed to save bundle: %w", err)
	}
	util.BundlesSavedTotal.Inc()

	skus := make([]string, len(req.Items))
	for i, item := range req.Items {
		skus[i] = item.SKU
	}
	event := &models.BundleSavedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBundleSaved,
			Timestamp: time.Now(),
		},
		BundleID: bundle.BundleID,
		Type:     bundle.Type,
		SKUs:     skus,
	}
	if err := s.eventPublisher.PublishBundleSaved(ctx, event); err != nil {
		s.logger.Error("Failed to publish BundleSaved event", zap.Error(err))
	}

	s.logger.Info("Bundle saved",
		zap.String("bundle_id", bundle.BundleID),
		zap.Int("items", len(req.Items)))
	return bundle, nil
}

// GetBundle retrieves a persisted bundle with its items
func (s *BundleService) GetBundle(ctx context.Context, id string) (*models.SavedBundle, []models.SavedBundleItem, error) {
	return s.store.GetBundleByID(ctx, id)
}

// ListBundles retrieves persisted bundles, optionally by status
func (s *BundleService) ListBundles(ctx context.Context, status string) ([]models.SavedBundle, error) {
	return s.store.GetBundles(ctx, status)
}

// DeleteBundle removes a persisted bundle and publishes a BundleDeleted
// event
func (s *BundleService) DeleteBundle(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "BundleService.DeleteBundle")
	defer span.End()

	if err := s.store.DeleteBundle(ctx, id); err != nil {
		return err
	}

	event := &models.BundleDeletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBundleDeleted,
			Timestamp: time.Now(),
		},
		BundleID: id,
	}
	if err := s.eventPublisher.PublishBundleDeleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish BundleDeleted event", zap.Error(err))
	}
	return nil
}

// GetInventory returns the inventory snapshot, served from cache when
// fresh
func (s *BundleService) GetInventory(ctx context.Context) ([]models.InventoryItem, error) {
	var cached []models.InventoryItem
	if hit, err := s.redis.GetInventory(ctx, &cached); err != nil {
		s.logger.Warn("Inventory cache read failed", zap.Error(err))
	} else if hit {
		util.CacheHitsTotal.WithLabelValues("inventory").Inc()
		return cached, nil
	}
	util.CacheMissesTotal.WithLabelValues("inventory").Inc()

	items, err := s.store.GetInventory(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.redis.SetInventory(ctx, items); err != nil {
		s.logger.Warn("Inventory cache write failed", zap.Error(err))
	}
	return items, nil
}

// OrderLines exposes the raw lines of the current snapshot, used by the
// opportunity scorer
func (s *BundleService) OrderLines() ([]models.OrderLine, error) {
	snap, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Lines, nil
}
