package service

import (
	"context"
	"time"

	"marketplace-service/internal/identity"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"
	"marketplace-service/internal/validate"

	"go.uber.org/zap"
)

// Wallet top-up bounds per request (R$ 1,00 to R$ 5.000,00)
const (
	minTopUpCents = 100
	maxTopUpCents = 500000
)

// WalletService handles wallet top-ups and the VIP upgrade
type WalletService struct {
	store         store.Store
	cache         SettingsCache
	logger        *zap.Logger
	vipPriceCents int64
	now           func() time.Time
}

// NewWalletService creates a new wallet service
func NewWalletService(st store.Store, cache SettingsCache, vipPriceCents int64) *WalletService {
	return &WalletService{
		store:         st,
		cache:         cache,
		logger:        util.GetLogger(),
		vipPriceCents: vipPriceCents,
		now:           time.Now,
	}
}

// TopUp credits the caller's wallet. This is the ledger's only external
// value input; everything else conserves total value.
func (s *WalletService) TopUp(ctx context.Context, ident identity.ActingIdentity, amountCents int64) error {
	ctx, span := util.StartSpan(ctx, "WalletService.TopUp")
	defer span.End()

	if ident.IsBanned() {
		return store.ErrBanned
	}
	amountCents = validate.ClampInt64(amountCents, minTopUpCents, maxTopUpCents)

	if err := s.store.TopUpTx(ctx, ident.UserID(), amountCents, s.now()); err != nil {
		return err
	}

	util.TopUpsTotal.Inc()
	s.logger.Info("Wallet topped up",
		zap.Int64("user_id", ident.UserID()),
		zap.Int64("amount_cents", amountCents))
	return nil
}

// VipStatus describes the caller's VIP state and the current fee tiers
type VipStatus struct {
	IsVip         bool  `json:"is_vip"`
	VipPriceCents int64 `json:"vip_price_cents"`
	FeeBps        int   `json:"fee_bps"`
	VipFeeBps     int   `json:"vip_fee_bps"`
}

// GetVipStatus reports the caller's VIP flag alongside both fee tiers
func (s *WalletService) GetVipStatus(ctx context.Context, ident identity.ActingIdentity) (*VipStatus, error) {
	settings, err := loadSettings(ctx, s.store, s.cache)
	if err != nil {
		return nil, err
	}
	return &VipStatus{
		IsVip:         ident.User != nil && ident.User.IsVip,
		VipPriceCents: s.vipPriceCents,
		FeeBps:        settings.FeeBps,
		VipFeeBps:     settings.VipFeeBps,
	}, nil
}

// BuyVip debits the wallet for the fixed VIP price, which goes straight
// to the platform balance.
func (s *WalletService) BuyVip(ctx context.Context, ident identity.ActingIdentity) error {
	ctx, span := util.StartSpan(ctx, "WalletService.BuyVip")
	defer span.End()

	if ident.IsBanned() {
		return store.ErrBanned
	}

	if err := s.store.BuyVipTx(ctx, ident.UserID(), s.vipPriceCents, s.now()); err != nil {
		return err
	}

	s.logger.Info("VIP purchased",
		zap.Int64("user_id", ident.UserID()),
		zap.Int64("price_cents", s.vipPriceCents))
	return nil
}

// GetMe returns the caller's current ledger view
func (s *WalletService) GetMe(ctx context.Context, ident identity.ActingIdentity) (*models.User, error) {
	return s.store.GetUserByID(ctx, ident.UserID())
}
