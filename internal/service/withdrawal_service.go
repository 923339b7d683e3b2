package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketplace-service/internal/identity"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"
	"marketplace-service/internal/validate"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const withdrawLockTTL = 10 * time.Second

// WithdrawalService converts available seller balance into payout
// receipts. Pending escrow funds are never reachable here.
type WithdrawalService struct {
	store     store.Store
	locker    Locker
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(st store.Store, locker Locker, publisher EventPublisher) *WithdrawalService {
	return &WithdrawalService{
		store:     st,
		locker:    locker,
		publisher: publisher,
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

// Withdraw debits the seller's available balance and records a PAID
// payout receipt. Settlement is synchronous; there is no pending state.
func (s *WithdrawalService) Withdraw(ctx context.Context, ident identity.ActingIdentity, amountCents int64) (*models.Withdrawal, error) {
	ctx, span := util.StartSpan(ctx, "WithdrawalService.Withdraw")
	defer span.End()

	if amountCents < 1 {
		util.WithdrawalFailuresTotal.WithLabelValues("invalid_input").Inc()
		return nil, store.ErrInvalidInput
	}
	if ident.IsBanned() {
		util.WithdrawalFailuresTotal.WithLabelValues("banned").Inc()
		return nil, store.ErrBanned
	}

	if s.locker != nil {
		lockKey := fmt.Sprintf("withdraw:%d", ident.UserID())
		ok, err := s.locker.AcquireLock(ctx, lockKey, withdrawLockTTL)
		if err != nil {
			s.logger.Warn("Withdraw lock unavailable, proceeding on store authority",
				zap.Int64("seller_id", ident.UserID()), zap.Error(err))
		} else if !ok {
			util.WithdrawalFailuresTotal.WithLabelValues("duplicate").Inc()
			return nil, store.ErrDuplicateRequest
		} else {
			defer func() {
				if err := s.locker.ReleaseLock(ctx, lockKey); err != nil {
					s.logger.Warn("Failed to release withdraw lock", zap.Error(err))
				}
			}()
		}
	}

	now := s.now()
	w, err := s.store.WithdrawTx(ctx, store.WithdrawParams{
		SellerID:    ident.UserID(),
		AmountCents: amountCents,
		ReceiptCode: newReceiptCode(),
		Now:         now,
	})
	if err != nil {
		util.WithdrawalFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	util.WithdrawalsTotal.Inc()
	s.logger.Info("Withdrawal paid",
		zap.Int64("withdrawal_id", w.ID),
		zap.Int64("seller_id", w.SellerID),
		zap.Int64("net_cents", w.NetAmountCents),
		zap.String("receipt_code", w.ReceiptCode))

	if s.publisher != nil {
		event := &models.WithdrawalPaidEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeWithdrawalPaid,
				Timestamp: now,
			},
			WithdrawalID:   w.ID,
			SellerID:       w.SellerID,
			NetAmountCents: w.NetAmountCents,
			ReceiptCode:    w.ReceiptCode,
		}
		if err := s.publisher.PublishWithdrawalPaid(ctx, event); err != nil {
			s.logger.Error("Failed to publish WithdrawalPaid event", zap.Error(err))
		}
	}

	return w, nil
}

// RegisterPayoutCPF stores the caller's payout CPF after full validation
func (s *WithdrawalService) RegisterPayoutCPF(ctx context.Context, ident identity.ActingIdentity, cpf string) error {
	if ident.IsBanned() {
		return store.ErrBanned
	}
	normalized := validate.NormalizeCPF(cpf)
	if !validate.IsValidCPF(normalized) {
		return store.ErrInvalidInput
	}
	return s.store.SetUserCPF(ctx, ident.UserID(), normalized)
}

// ListMyWithdrawals retrieves the caller's payout history
func (s *WithdrawalService) ListMyWithdrawals(ctx context.Context, ident identity.ActingIdentity) ([]models.Withdrawal, error) {
	return s.store.ListWithdrawalsBySeller(ctx, ident.UserID(), 200)
}

func newReceiptCode() string {
	return fmt.Sprintf("WD-%s", strings.ToUpper(uuid.New().String()[:8]))
}
