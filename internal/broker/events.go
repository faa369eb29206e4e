package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pos-checkout-service/internal/models"
	"pos-checkout-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewBaseEvent stamps an event with a fresh id and the current time
func NewBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// EventPublisher handles publishing checkout events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event.EventType, event)
}

// PublishCheckoutCompleted publishes CheckoutCompleted event
func (ep *EventPublisher) PublishCheckoutCompleted(ctx context.Context, event *models.CheckoutCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event.EventType, event)
}

// PublishCheckoutPartialFailure publishes CheckoutPartialFailure event
func (ep *EventPublisher) PublishCheckoutPartialFailure(ctx context.Context, event *models.CheckoutPartialFailureEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event.EventType, event)
}

// EventHandler handles incoming catalog events
type EventHandler struct {
	onPromotionsChanged func(context.Context, *models.CatalogChangedEvent) error
	onCatalogChanged    func(context.Context, *models.CatalogChangedEvent) error
	logger              *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnPromotionsChanged registers a handler for PromotionsChanged events
func (eh *EventHandler) OnPromotionsChanged(handler func(context.Context, *models.CatalogChangedEvent) error) {
	eh.onPromotionsChanged = handler
}

// OnCatalogChanged registers a handler for CatalogChanged events
func (eh *EventHandler) OnCatalogChanged(handler func(context.Context, *models.CatalogChangedEvent) error) {
	eh.onCatalogChanged = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	var handler func(context.Context, *models.CatalogChangedEvent) error
	switch baseEvent.EventType {
	case models.EventTypePromotionsChanged:
		handler = eh.onPromotionsChanged
	case models.EventTypeCatalogChanged:
		handler = eh.onCatalogChanged
	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
		return nil
	}

	if handler == nil {
		return nil
	}

	var event models.CatalogChangedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
	}
	return handler(ctx, &event)
}
