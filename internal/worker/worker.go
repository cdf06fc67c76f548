package worker

import (
	"context"
	"fmt"
	"time"

	"bundle-service/internal/broker"
	"bundle-service/internal/models"
	"bundle-service/internal/redisclient"
	"bundle-service/internal/service"
	"bundle-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// analysisLockTTL bounds how long a request id stays claimed when a
// worker dies mid-run
const analysisLockTTL = 5 * time.Minute

// AnalysisWorker consumes AnalysisRequested events and runs the full
// pipeline in the background, publishing completion or failure events.
type AnalysisWorker struct {
	consumer      *broker.Consumer
	eventHandler  *broker.EventHandler
	bundles       *service.BundleService
	opportunities *service.OpportunityService
	redis         *redisclient.Client
	publisher     *broker.EventPublisher
	logger        *zap.Logger
}

// NewAnalysisWorker creates a new analysis worker
func NewAnalysisWorker(
	consumer *broker.Consumer,
	bundles *service.BundleService,
	opportunities *service.OpportunityService,
	redis *redisclient.Client,
	publisher *broker.EventPublisher,
) *AnalysisWorker {
	w := &AnalysisWorker{
		consumer:      consumer,
		bundles:       bundles,
		opportunities: opportunities,
		redis:         redis,
		publisher:     publisher,
		logger:        util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnAnalysisRequested(w.handleAnalysisRequested)
	w.eventHandler = eventHandler
	return w
}

// Start starts the worker
func (w *AnalysisWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting analysis worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AnalysisWorker) Stop() error {
	w.logger.Info("Stopping analysis worker")
	return w.consumer.Close()
}

// handleAnalysisRequested runs one analysis end to end. Requests are
// deduplicated across workers with a distributed lock on the request
// id.
func (w *AnalysisWorker) handleAnalysisRequested(ctx context.Context, event *models.AnalysisRequestedEvent) error {
	acquired, err := w.redis.AcquireLock(ctx, "analysis:"+event.RequestID, analysisLockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire analysis lock: %w", err)
	}
	if !acquired {
		w.logger.Info("Analysis request already claimed",
			zap.String("request_id", event.RequestID))
		return nil
	}
	defer func() {
		if err := w.redis.ReleaseLock(ctx, "analysis:"+event.RequestID); err != nil {
			w.logger.Warn("Failed to release analysis lock", zap.Error(err))
		}
	}()

	start := time.Now()
	w.logger.Info("Running background analysis",
		zap.String("request_id", event.RequestID),
		zap.String("product_to_clear", event.ProductToClear))

	result, err := w.bundles.Analyze(ctx, &service.AnalyzeRequest{
		ProductToClear: event.ProductToClear,
		RelatedSKUs:    event.RelatedSKUs,
		TargetDiscount: event.TargetDiscount,
		TopN:           event.TopN,
	})
	if err != nil {
		w.publishFailed(ctx, event.RequestID, err)
		util.AnalysisRunsTotal.WithLabelValues("failed").Inc()
		return err
	}

	report, err := w.opportunities.ScoreOpportunities(ctx, "")
	if err != nil {
		w.publishFailed(ctx, event.RequestID, err)
		util.AnalysisRunsTotal.WithLabelValues("failed").Inc()
		return err
	}

	duration := time.Since(start)
	util.AnalysisRunsTotal.WithLabelValues("completed").Inc()
	util.AnalysisDuration.Observe(duration.Seconds())

	bundleCount := 0
	for _, sel := range result.Selections {
		bundleCount += len(sel.Candidates)
	}

	completed := &models.AnalysisCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeAnalysisCompleted,
			Timestamp: time.Now(),
		},
		RequestID:        event.RequestID,
		BundleCount:      bundleCount,
		OpportunityCount: len(report.Bundles),
		Duration:         duration,
	}
	if err := w.publisher.PublishAnalysisCompleted(ctx, completed); err != nil {
		w.logger.Error("Failed to publish AnalysisCompleted event", zap.Error(err))
	}

	w.logger.Info("Background analysis completed",
		zap.String("request_id", event.RequestID),
		zap.Int("bundles", bundleCount),
		zap.Int("opportunities", len(report.Bundles)),
		zap.Duration("duration", duration))
	return nil
}

func (w *AnalysisWorker) publishFailed(ctx context.Context, requestID string, cause error) {
	event := &models.AnalysisFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeAnalysisFailed,
			Timestamp: time.Now(),
		},
		RequestID: requestID,
		Reason:    cause.Error(),
	}
	if err := w.publisher.PublishAnalysisFailed(ctx, event); err != nil {
		w.logger.Error("Failed to publish AnalysisFailed event", zap.Error(err))
	}
}
