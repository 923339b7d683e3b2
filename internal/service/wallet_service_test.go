package service

import (
	"context"
	"testing"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVipPrice = 5000

func newWalletService(f *fixture) *WalletService {
	svc := NewWalletService(f.store, nil, testVipPrice)
	svc.now = clockAt(testTime)
	return svc
}

func TestTopUpClampsAmount(t *testing.T) {
	tests := []struct {
		name       string
		amount     int64
		wantCredit int64
	}{
		{"below minimum clamps up", 50, 100},
		{"above maximum clamps down", 600000, 500000},
		{"in range unchanged", 2500, 2500},
		{"negative clamps to minimum", -1000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			user := f.store.CreateUser(&models.User{Nick: "igor"})
			svc := newWalletService(f)

			require.NoError(t, svc.TopUp(context.Background(), asUser(user), tt.amount))

			updated, _ := f.store.GetUserByID(context.Background(), user.ID)
			assert.Equal(t, tt.wantCredit, updated.WalletBalanceCents)
		})
	}
}

func TestTopUpBanned(t *testing.T) {
	f := newFixture()
	user := f.store.CreateUser(&models.User{Nick: "igor", IsBanned: true})
	svc := newWalletService(f)

	err := svc.TopUp(context.Background(), asUser(user), 1000)
	assert.ErrorIs(t, err, store.ErrBanned)
}

func TestBuyVip(t *testing.T) {
	f := newFixture()
	user := f.store.CreateUser(&models.User{Nick: "igor", WalletBalanceCents: testVipPrice})
	svc := newWalletService(f)

	require.NoError(t, svc.BuyVip(context.Background(), asUser(user)))

	updated, _ := f.store.GetUserByID(context.Background(), user.ID)
	assert.True(t, updated.IsVip)
	assert.Equal(t, int64(0), updated.WalletBalanceCents)

	// The VIP price goes straight to the platform.
	settings, _ := f.store.GetSettings(context.Background())
	assert.Equal(t, int64(testVipPrice), settings.PlatformBalanceCents)

	logs := f.store.AuditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionVipPurchase, logs[0].Action)
}

func TestBuyVipAlreadyVip(t *testing.T) {
	f := newFixture()
	user := f.store.CreateUser(&models.User{Nick: "igor", IsVip: true, WalletBalanceCents: 100000})
	svc := newWalletService(f)

	err := svc.BuyVip(context.Background(), asUser(user))
	assert.ErrorIs(t, err, store.ErrAlreadyVip)

	updated, _ := f.store.GetUserByID(context.Background(), user.ID)
	assert.Equal(t, int64(100000), updated.WalletBalanceCents)
}

func TestBuyVipInsufficientFunds(t *testing.T) {
	f := newFixture()
	user := f.store.CreateUser(&models.User{Nick: "igor", WalletBalanceCents: testVipPrice - 1})
	svc := newWalletService(f)

	err := svc.BuyVip(context.Background(), asUser(user))
	assert.ErrorIs(t, err, store.ErrInsufficientFunds)
}

func TestBuyVipBanned(t *testing.T) {
	f := newFixture()
	user := f.store.CreateUser(&models.User{Nick: "igor", IsBanned: true, WalletBalanceCents: 100000})
	svc := newWalletService(f)

	err := svc.BuyVip(context.Background(), asUser(user))
	assert.ErrorIs(t, err, store.ErrBanned)
}

func TestGetVipStatus(t *testing.T) {
	f := newFixture()
	vip := f.store.CreateUser(&models.User{Nick: "igor", IsVip: true})
	svc := newWalletService(f)

	status, err := svc.GetVipStatus(context.Background(), asUser(vip))
	require.NoError(t, err)
	assert.True(t, status.IsVip)
	assert.Equal(t, int64(testVipPrice), status.VipPriceCents)
	assert.Equal(t, 1000, status.FeeBps)
	assert.Equal(t, 600, status.VipFeeBps)

	status, err = svc.GetVipStatus(context.Background(), asUser(f.buyer))
	require.NoError(t, err)
	assert.False(t, status.IsVip)
}
