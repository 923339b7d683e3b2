package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"marketplace-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher publishes ledger domain events. Events are emitted after
// the owning transaction commits; a publish failure never rolls anything
// back.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes an OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderReleased publishes an OrderReleased event
func (ep *EventPublisher) PublishOrderReleased(ctx context.Context, event *models.OrderReleasedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderRefunded publishes an OrderRefunded event
func (ep *EventPublisher) PublishOrderRefunded(ctx context.Context, event *models.OrderRefundedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishWithdrawalPaid publishes a WithdrawalPaid event
func (ep *EventPublisher) PublishWithdrawalPaid(ctx context.Context, event *models.WithdrawalPaidEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("seller-%d", event.SellerID), event)
}

// PublishFeeSettingsUpdated publishes a FeeSettingsUpdated event
func (ep *EventPublisher) PublishFeeSettingsUpdated(ctx context.Context, event *models.FeeSettingsUpdatedEvent) error {
	return ep.producer.PublishEvent(ctx, "settings", event)
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// EventHandler routes consumed ledger events to registered callbacks
type EventHandler struct {
	onOrderPlaced    func(context.Context, *models.OrderPlacedEvent) error
	onOrderReleased  func(context.Context, *models.OrderReleasedEvent) error
	onOrderRefunded  func(context.Context, *models.OrderRefundedEvent) error
	onWithdrawalPaid func(context.Context, *models.WithdrawalPaidEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderPlaced registers a handler for OrderPlaced events
func (eh *EventHandler) OnOrderPlaced(handler func(context.Context, *models.OrderPlacedEvent) error) {
	eh.onOrderPlaced = handler
}

// OnOrderReleased registers a handler for OrderReleased events
func (eh *EventHandler) OnOrderReleased(handler func(context.Context, *models.OrderReleasedEvent) error) {
	eh.onOrderReleased = handler
}

// OnOrderRefunded registers a handler for OrderRefunded events
func (eh *EventHandler) OnOrderRefunded(handler func(context.Context, *models.OrderRefundedEvent) error) {
	eh.onOrderRefunded = handler
}

// OnWithdrawalPaid registers a handler for WithdrawalPaid events
func (eh *EventHandler) OnWithdrawalPaid(handler func(context.Context, *models.WithdrawalPaidEvent) error) {
	eh.onWithdrawalPaid = handler
}

// HandleMessage routes messages to the appropriate handler
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeOrderPlaced:
		if eh.onOrderPlaced != nil {
			var event models.OrderPlacedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
			}
			return eh.onOrderPlaced(ctx, &event)
		}

	case models.EventTypeOrderReleased:
		if eh.onOrderReleased != nil {
			var event models.OrderReleasedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderReleased event: %w", err)
			}
			return eh.onOrderReleased(ctx, &event)
		}

	case models.EventTypeOrderRefunded:
		if eh.onOrderRefunded != nil {
			var event models.OrderRefundedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderRefunded event: %w", err)
			}
			return eh.onOrderRefunded(ctx, &event)
		}

	case models.EventTypeWithdrawalPaid:
		if eh.onWithdrawalPaid != nil {
			var event models.WithdrawalPaidEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal WithdrawalPaid event: %w", err)
			}
			return eh.onWithdrawalPaid(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
