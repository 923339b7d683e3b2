// Package worker hosts the background tasks: the escrow release sweep
// and the notification consumer.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReleasedPublisher publishes the post-release event. Satisfied by
// broker.EventPublisher.
type ReleasedPublisher interface {
	PublishOrderReleased(ctx context.Context, event *models.OrderReleasedEvent) error
}

// ReleaseWorker periodically matures escrow holds past their deadline,
// moving gross out of the seller's pending balance, net into the
// seller's available balance, and the fee into the platform balance.
type ReleaseWorker struct {
	store     store.Store
	publisher ReleasedPublisher
	logger    *zap.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time
	stop      chan struct{}
	running   atomic.Bool
}

// NewReleaseWorker creates a release worker. The clock is replaceable so
// tests can advance time deterministically.
func NewReleaseWorker(st store.Store, publisher ReleasedPublisher, interval time.Duration, batchSize int) *ReleaseWorker {
	return &ReleaseWorker{
		store:     st,
		publisher: publisher,
		logger:    util.GetLogger(),
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
		stop:      make(chan struct{}, 1),
	}
}

// SetClock replaces the worker's clock. Call before Start.
func (w *ReleaseWorker) SetClock(now func() time.Time) {
	w.now = now
}

// Running reports whether the sweep loop is active
func (w *ReleaseWorker) Running() bool {
	return w.running.Load()
}

// Start runs the sweep loop until the context is cancelled or Stop is
// called. One sweep fires immediately, then every interval. Call in a
// goroutine.
func (w *ReleaseWorker) Start(ctx context.Context) {
	w.running.Store(true)
	defer w.running.Store(false)

	w.safeSweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.safeSweep(ctx)
		}
	}
}

// Stop signals the sweep loop to exit
func (w *ReleaseWorker) Stop() {
	select {
	case w.stop <- struct{}{}:
	default:
	}
}

func (w *ReleaseWorker) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Panic in release sweep", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	w.Sweep(ctx)
}

// Sweep runs one release pass and returns the number of orders released.
// Each order settles in its own transaction so one failure cannot block
// the batch; failed orders stay PAID_HOLD and are retried next tick.
func (w *ReleaseWorker) Sweep(ctx context.Context) int {
	start := time.Now()
	defer func() {
		util.ReleaseSweepDuration.Observe(time.Since(start).Seconds())
	}()

	now := w.now()
	matured, err := w.store.ListMaturedOrders(ctx, now, w.batchSize)
	if err != nil {
		w.logger.Error("Failed to list matured orders", zap.Error(err))
		return 0
	}
	util.ReleaseSweepBatch.Observe(float64(len(matured)))

	released := 0
	for _, o := range matured {
		order, ok, err := w.store.ReleaseOrderTx(ctx, o.ID, now)
		if err != nil {
			util.ReleaseFailuresTotal.Inc()
			w.logger.Error("Failed to release order",
				zap.Int64("order_id", o.ID),
				zap.Error(err))
			continue
		}
		if !ok {
			// Lost the race to a concurrent refund; nothing to undo.
			continue
		}

		released++
		util.OrdersReleasedTotal.Inc()
		w.logger.Info("Escrow released",
			zap.Int64("order_id", order.ID),
			zap.Int64("seller_id", order.SellerID),
			zap.Int64("net_cents", order.NetAmountCents),
			zap.Int64("fee_cents", order.FeeAmountCents))

		if w.publisher != nil {
			event := &models.OrderReleasedEvent{
				BaseEvent: models.BaseEvent{
					EventID:   uuid.New().String(),
					EventType: models.EventTypeOrderReleased,
					Timestamp: now,
				},
				OrderID:        order.ID,
				BuyerID:        order.BuyerID,
				SellerID:       order.SellerID,
				NetAmountCents: order.NetAmountCents,
				FeeAmountCents: order.FeeAmountCents,
			}
			if err := w.publisher.PublishOrderReleased(ctx, event); err != nil {
				w.logger.Error("Failed to publish OrderReleased event", zap.Error(err))
			}
		}
	}

	return released
}
