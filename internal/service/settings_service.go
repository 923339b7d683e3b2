package service

import (
	"context"
	"time"

	"marketplace-service/internal/fees"
	"marketplace-service/internal/identity"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettingsService reads and updates the platform fee configuration.
// Callers always receive an explicit settings value; there is no
// process-wide mutable settings state.
type SettingsService struct {
	store     store.Store
	cache     SettingsCache
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewSettingsService creates a new settings service
func NewSettingsService(st store.Store, cache SettingsCache, publisher EventPublisher) *SettingsService {
	return &SettingsService{
		store:     st,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

// Get returns the current platform settings
func (s *SettingsService) Get(ctx context.Context) (*models.PlatformSettings, error) {
	return loadSettings(ctx, s.store, s.cache)
}

// UpdateFees writes a new settings version and invalidates the cache.
// Orders created before the update keep their frozen fee amounts.
func (s *SettingsService) UpdateFees(ctx context.Context, ident identity.ActingIdentity, feeBps, vipFeeBps int) (*models.PlatformSettings, error) {
	if !ident.IsAdmin() {
		return nil, store.ErrAdminRequired
	}
	if !fees.ValidBps(feeBps) || !fees.ValidBps(vipFeeBps) {
		return nil, store.ErrInvalidInput
	}

	now := s.now()
	settings, err := s.store.UpdateFeeSettingsTx(ctx, feeBps, vipFeeBps, ident.ActualAdminID, now)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateSettings(ctx); err != nil {
			s.logger.Warn("Failed to invalidate settings cache", zap.Error(err))
		}
	}

	s.logger.Info("Fee settings updated",
		zap.Int("fee_bps", feeBps),
		zap.Int("vip_fee_bps", vipFeeBps),
		zap.Int("version", settings.Version),
		zap.Int64("admin_id", ident.ActualAdminID))

	if s.publisher != nil {
		event := &models.FeeSettingsUpdatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeFeeSettingsUpdated,
				Timestamp: now,
			},
			FeeBps:    feeBps,
			VipFeeBps: vipFeeBps,
			Version:   settings.Version,
			AdminID:   ident.ActualAdminID,
		}
		if err := s.publisher.PublishFeeSettingsUpdated(ctx, event); err != nil {
			s.logger.Error("Failed to publish FeeSettingsUpdated event", zap.Error(err))
		}
	}

	return settings, nil
}
