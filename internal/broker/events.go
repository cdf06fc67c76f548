package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"bundle-service/internal/models"
	"bundle-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishLedgerRefreshed publishes a LedgerRefreshed event
func (ep *EventPublisher) PublishLedgerRefreshed(ctx context.Context, event *models.LedgerRefreshedEvent) error {
	return ep.producer.PublishEvent(ctx, "ledger", event)
}

// PublishAnalysisRequested publishes an AnalysisRequested event
func (ep *EventPublisher) PublishAnalysisRequested(ctx context.Context, event *models.AnalysisRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("analysis-%s", event.RequestID), event)
}

// PublishAnalysisCompleted publishes an AnalysisCompleted event
func (ep *EventPublisher) PublishAnalysisCompleted(ctx context.Context, event *models.AnalysisCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("analysis-%s", event.RequestID), event)
}

// PublishAnalysisFailed publishes an AnalysisFailed event
func (ep *EventPublisher) PublishAnalysisFailed(ctx context.Context, event *models.AnalysisFailedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("analysis-%s", event.RequestID), event)
}

// PublishBundleSaved publishes a BundleSaved event
func (ep *EventPublisher) PublishBundleSaved(ctx context.Context, event *models.BundleSavedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("bundle-%s", event.BundleID), event)
}

// PublishBundleDeleted publishes a BundleDeleted event
func (ep *EventPublisher) PublishBundleDeleted(ctx context.Context, event *models.BundleDeletedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("bundle-%s", event.BundleID), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onAnalysisRequested func(context.Context, *models.AnalysisRequestedEvent) error
	onLedgerRefreshed   func(context.Context, *models.LedgerRefreshedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnAnalysisRequested registers a handler for AnalysisRequested events
func (eh *EventHandler) OnAnalysisRequested(handler func(context.Context, *models.AnalysisRequestedEvent) error) {
	eh.onAnalysisRequested = handler
}

// OnLedgerRefreshed registers a handler for LedgerRefreshed events
func (eh *EventHandler) OnLedgerRefreshed(handler func(context.Context, *models.LedgerRefreshedEvent) error) {
	eh.onLedgerRefreshed = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log := util.GetLogger()
	log.Debug("handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeAnalysisRequested:
		if eh.onAnalysisRequested != nil {
			var event models.AnalysisRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal AnalysisRequested event: %w", err)
			}
			return eh.onAnalysisRequested(ctx, &event)
		}

	case models.EventTypeLedgerRefreshed:
		if eh.onLedgerRefreshed != nil {
			var event models.LedgerRefreshedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal LedgerRefreshed event: %w", err)
			}
			return eh.onLedgerRefreshed(ctx, &event)
		}

	default:
		log.Warn("unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
