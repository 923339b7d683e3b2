// Package service implements the ledger business logic: purchases,
// escrow refunds, withdrawals, wallet operations, and fee settings.
// Services validate preconditions and compute amounts; the store's
// transactions are the authority for every balance mutation.
package service

import (
	"context"
	"errors"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
)

// EventPublisher publishes domain events after a transaction commits.
// Implemented by broker.EventPublisher; tests use a recording fake.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderReleased(ctx context.Context, event *models.OrderReleasedEvent) error
	PublishOrderRefunded(ctx context.Context, event *models.OrderRefundedEvent) error
	PublishWithdrawalPaid(ctx context.Context, event *models.WithdrawalPaidEvent) error
	PublishFeeSettingsUpdated(ctx context.Context, event *models.FeeSettingsUpdatedEvent) error
}

// SettingsCache caches the platform settings between fee updates.
// Implemented by redisclient.Client; a nil cache means every read goes to
// the store.
type SettingsCache interface {
	GetSettings(ctx context.Context) (*models.PlatformSettings, bool)
	SetSettings(ctx context.Context, settings *models.PlatformSettings) error
	InvalidateSettings(ctx context.Context) error
}

// Locker guards against double-submits with short-lived locks.
// Implemented by redisclient.Client.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// loadSettings reads the platform settings through the cache when one is
// configured, falling back to the store on a miss.
func loadSettings(ctx context.Context, st store.Store, cache SettingsCache) (*models.PlatformSettings, error) {
	if cache != nil {
		if settings, ok := cache.GetSettings(ctx); ok {
			return settings, nil
		}
	}

	settings, err := st.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		_ = cache.SetSettings(ctx, settings)
	}
	return settings, nil
}

// failureReason maps a precondition error to a metrics label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, store.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, store.ErrInsufficientSellerBalance):
		return "insufficient_seller_balance"
	case errors.Is(err, store.ErrCannotBuyOwnProduct):
		return "own_product"
	case errors.Is(err, store.ErrBanned):
		return "banned"
	case errors.Is(err, store.ErrNotRefundable):
		return "not_refundable"
	case errors.Is(err, store.ErrHoldExpired):
		return "hold_expired"
	case errors.Is(err, store.ErrCPFRequired):
		return "cpf_required"
	case errors.Is(err, store.ErrAlreadyVip):
		return "already_vip"
	case errors.Is(err, store.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, store.ErrDuplicateRequest):
		return "duplicate"
	default:
		return "server_error"
	}
}
