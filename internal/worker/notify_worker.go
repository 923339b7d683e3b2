package worker

import (
	"context"
	"fmt"

	"marketplace-service/internal/broker"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

// Notification kinds
const (
	NotifyKindSale     = "SALE"
	NotifyKindReleased = "ESCROW_RELEASED"
	NotifyKindRefunded = "ORDER_REFUNDED"
	NotifyKindReversal = "SALE_REVERSED"
	NotifyKindPaidOut  = "WITHDRAWAL_PAID"
)

// NotifyWorker consumes ledger events and writes notification rows. It is
// fully decoupled from the money path: a lost or late notification never
// affects balances. Events are deduplicated by event ID so consumer
// redelivery produces at most one row per recipient.
type NotifyWorker struct {
	store    store.Store
	consumer *broker.Consumer
	logger   *zap.Logger
}

// NewNotifyWorker creates a new notify worker
func NewNotifyWorker(st store.Store, consumer *broker.Consumer) *NotifyWorker {
	return &NotifyWorker{
		store:    st,
		consumer: consumer,
		logger:   util.GetLogger(),
	}
}

// Start consumes events until the context is cancelled. Call in a
// goroutine.
func (w *NotifyWorker) Start(ctx context.Context) error {
	handler := broker.NewEventHandler()
	handler.OnOrderPlaced(w.handleOrderPlaced)
	handler.OnOrderReleased(w.handleOrderReleased)
	handler.OnOrderRefunded(w.handleOrderRefunded)
	handler.OnWithdrawalPaid(w.handleWithdrawalPaid)

	return w.consumer.StartConsuming(ctx, handler.HandleMessage)
}

// Close closes the underlying consumer
func (w *NotifyWorker) Close() error {
	return w.consumer.Close()
}

func (w *NotifyWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return w.once(ctx, event.EventID, event.EventType, func() error {
		return w.store.CreateNotification(ctx, &models.Notification{
			UserID:    event.SellerID,
			Kind:      NotifyKindSale,
			RefID:     event.OrderID,
			Message:   fmt.Sprintf("Order #%d sold for %s, funds held in escrow until %s", event.OrderID, formatCents(event.GrossAmountCents), event.HoldUntil.Format("2006-01-02 15:04")),
			CreatedAt: event.Timestamp,
		})
	})
}

func (w *NotifyWorker) handleOrderReleased(ctx context.Context, event *models.OrderReleasedEvent) error {
	return w.once(ctx, event.EventID, event.EventType, func() error {
		return w.store.CreateNotification(ctx, &models.Notification{
			UserID:    event.SellerID,
			Kind:      NotifyKindReleased,
			RefID:     event.OrderID,
			Message:   fmt.Sprintf("Escrow for order #%d released: %s is now available for withdrawal", event.OrderID, formatCents(event.NetAmountCents)),
			CreatedAt: event.Timestamp,
		})
	})
}

func (w *NotifyWorker) handleOrderRefunded(ctx context.Context, event *models.OrderRefundedEvent) error {
	return w.once(ctx, event.EventID, event.EventType, func() error {
		if err := w.store.CreateNotification(ctx, &models.Notification{
			UserID:    event.BuyerID,
			Kind:      NotifyKindRefunded,
			RefID:     event.OrderID,
			Message:   fmt.Sprintf("Order #%d was refunded: %s returned to your wallet", event.OrderID, formatCents(event.GrossAmountCents)),
			CreatedAt: event.Timestamp,
		}); err != nil {
			return err
		}
		return w.store.CreateNotification(ctx, &models.Notification{
			UserID:    event.SellerID,
			Kind:      NotifyKindReversal,
			RefID:     event.OrderID,
			Message:   fmt.Sprintf("Sale #%d was refunded by support; pending funds were reversed", event.OrderID),
			CreatedAt: event.Timestamp,
		})
	})
}

func (w *NotifyWorker) handleWithdrawalPaid(ctx context.Context, event *models.WithdrawalPaidEvent) error {
	return w.once(ctx, event.EventID, event.EventType, func() error {
		return w.store.CreateNotification(ctx, &models.Notification{
			UserID:    event.SellerID,
			Kind:      NotifyKindPaidOut,
			RefID:     event.WithdrawalID,
			Message:   fmt.Sprintf("Withdrawal %s paid: %s", event.ReceiptCode, formatCents(event.NetAmountCents)),
			CreatedAt: event.Timestamp,
		})
	})
}

// once runs fn only if the event has not been processed yet, then marks
// it processed. A failure in fn leaves the event unmarked so the broker
// redelivers it.
func (w *NotifyWorker) once(ctx context.Context, eventID, eventType string, fn func() error) error {
	processed, err := w.store.IsEventProcessed(ctx, eventID)
	if err != nil {
		return err
	}
	if processed {
		w.logger.Debug("Skipping already processed event", zap.String("event_id", eventID))
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	return w.store.MarkEventProcessed(ctx, eventID, eventType)
}

func formatCents(cents int64) string {
	return fmt.Sprintf("R$ %d.%02d", cents/100, cents%100)
}
