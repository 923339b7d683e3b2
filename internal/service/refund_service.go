package service

import (
	"context"
	"time"

	"marketplace-service/internal/identity"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RefundService reverses still-held orders on admin request
type RefundService struct {
	store     store.Store
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewRefundService creates a new refund service
func NewRefundService(st store.Store, publisher EventPublisher) *RefundService {
	return &RefundService{
		store:     st,
		publisher: publisher,
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

// Refund fully reverses an order still inside its hold window: status to
// REFUNDED, stock restored, buyer re-credited with gross, seller pending
// debited. A real admin is required regardless of who the session is
// impersonating.
func (s *RefundService) Refund(ctx context.Context, ident identity.ActingIdentity, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "RefundService.Refund")
	defer span.End()

	if !ident.IsAdmin() {
		util.RefundFailuresTotal.WithLabelValues("admin_required").Inc()
		return store.ErrAdminRequired
	}

	now := s.now()
	order, err := s.store.RefundOrderTx(ctx, orderID, ident.ActualAdminID, now)
	if err != nil {
		util.RefundFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		return err
	}

	util.RefundsTotal.Inc()
	s.logger.Info("Order refunded",
		zap.Int64("order_id", order.ID),
		zap.Int64("buyer_id", order.BuyerID),
		zap.Int64("seller_id", order.SellerID),
		zap.Int64("gross_cents", order.GrossAmountCents),
		zap.Int64("admin_id", ident.ActualAdminID))

	if s.publisher != nil {
		event := &models.OrderRefundedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderRefunded,
				Timestamp: now,
			},
			OrderID:          order.ID,
			BuyerID:          order.BuyerID,
			SellerID:         order.SellerID,
			GrossAmountCents: order.GrossAmountCents,
			AdminID:          ident.ActualAdminID,
		}
		if err := s.publisher.PublishOrderRefunded(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderRefunded event", zap.Error(err))
		}
	}

	return nil
}
