package service

import (
	"context"
	"fmt"
	"time"

	"marketplace-service/internal/fees"
	"marketplace-service/internal/identity"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"
	"marketplace-service/internal/validate"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Purchase quantity bounds per request
const (
	minPurchaseQty = 1
	maxPurchaseQty = 100
)

// PurchaseService executes buys against the escrow ledger
type PurchaseService struct {
	store        store.Store
	cache        SettingsCache
	publisher    EventPublisher
	logger       *zap.Logger
	holdDuration time.Duration
	now          func() time.Time
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(st store.Store, cache SettingsCache, publisher EventPublisher, holdDuration time.Duration) *PurchaseService {
	return &PurchaseService{
		store:        st,
		cache:        cache,
		publisher:    publisher,
		logger:       util.GetLogger(),
		holdDuration: holdDuration,
		now:          time.Now,
	}
}

// PurchaseResult is returned to the buyer after a successful purchase
type PurchaseResult struct {
	OrderID   int64     `json:"order_id"`
	HoldUntil time.Time `json:"hold_until"`
}

// Purchase validates and executes a buy. Prechecks here are fast-fail
// only; stock and wallet balance are re-validated inside the store
// transaction, which converts race losses into the same precondition
// errors.
func (s *PurchaseService) Purchase(ctx context.Context, ident identity.ActingIdentity, productID int64, qty int) (*PurchaseResult, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Purchase")
	defer span.End()

	qty = validate.ClampInt(qty, minPurchaseQty, maxPurchaseQty)

	if ident.IsBanned() {
		util.PurchaseFailuresTotal.WithLabelValues("banned").Inc()
		return nil, store.ErrBanned
	}

	product, err := s.store.GetActiveProduct(ctx, productID)
	if err != nil {
		util.PurchaseFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}
	if product.SellerID == ident.UserID() {
		util.PurchaseFailuresTotal.WithLabelValues("own_product").Inc()
		return nil, store.ErrCannotBuyOwnProduct
	}
	if product.Stock < qty {
		util.PurchaseFailuresTotal.WithLabelValues("out_of_stock").Inc()
		return nil, store.ErrOutOfStock
	}

	seller, err := s.store.GetUserByID(ctx, product.SellerID)
	if err != nil {
		util.PurchaseFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, fmt.Errorf("failed to load seller: %w", err)
	}

	settings, err := loadSettings(ctx, s.store, s.cache)
	if err != nil {
		util.PurchaseFailuresTotal.WithLabelValues("server_error").Inc()
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	// Fee tier follows the seller, and the computed amounts are frozen
	// on the order row; later settings changes never touch this order.
	gross := product.PriceCents * int64(qty)
	fee, net := fees.Compute(gross, seller.IsVip, settings)

	now := s.now()
	order, err := s.store.PurchaseTx(ctx, store.PurchaseParams{
		BuyerID:          ident.UserID(),
		SellerID:         product.SellerID,
		ProductID:        productID,
		Qty:              qty,
		GrossAmountCents: gross,
		FeeAmountCents:   fee,
		NetAmountCents:   net,
		Now:              now,
		HoldUntil:        now.Add(s.holdDuration),
	})
	if err != nil {
		util.PurchaseFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	util.PurchasesTotal.Inc()
	s.logger.Info("Purchase completed",
		zap.Int64("order_id", order.ID),
		zap.Int64("buyer_id", order.BuyerID),
		zap.Int64("seller_id", order.SellerID),
		zap.Int64("gross_cents", order.GrossAmountCents),
		zap.Time("hold_until", order.HoldUntil))

	if s.publisher != nil {
		event := &models.OrderPlacedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderPlaced,
				Timestamp: now,
			},
			OrderID:          order.ID,
			BuyerID:          order.BuyerID,
			SellerID:         order.SellerID,
			ProductID:        order.ProductID,
			Qty:              order.Qty,
			GrossAmountCents: order.GrossAmountCents,
			HoldUntil:        order.HoldUntil,
		}
		if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
		}
	}

	return &PurchaseResult{OrderID: order.ID, HoldUntil: order.HoldUntil}, nil
}

// GetOrder retrieves an order visible to the caller: the buyer, the
// seller, or an admin.
func (s *PurchaseService) GetOrder(ctx context.Context, ident identity.ActingIdentity, orderID int64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != ident.UserID() && order.SellerID != ident.UserID() && !ident.IsAdmin() {
		return nil, store.ErrNotFound
	}
	return order, nil
}

// ListMyOrders retrieves the caller's purchase history
func (s *PurchaseService) ListMyOrders(ctx context.Context, ident identity.ActingIdentity) ([]models.Order, error) {
	return s.store.ListOrdersByBuyer(ctx, ident.UserID(), 200)
}

// ListAllOrders retrieves the admin transactions view
func (s *PurchaseService) ListAllOrders(ctx context.Context, ident identity.ActingIdentity) ([]models.Order, error) {
	if !ident.IsAdmin() {
		return nil, store.ErrAdminRequired
	}
	return s.store.ListAllOrders(ctx, 500)
}
