package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"marketplace-service/internal/identity"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeOrder(t *testing.T, f *fixture) int64 {
	t.Helper()
	svc := newPurchaseService(f, &fakePublisher{})
	result, err := svc.Purchase(context.Background(), asUser(f.buyer), f.product.ID, 1)
	require.NoError(t, err)
	return result.OrderID
}

func TestRefundFullReversal(t *testing.T) {
	f := newFixture()
	f.listProduct(10000, 3)
	orderID := placeOrder(t, f)
	pub := &fakePublisher{}
	svc := NewRefundService(f.store, pub)
	svc.now = clockAt(testTime.Add(time.Hour))

	require.NoError(t, svc.Refund(context.Background(), asAdmin(f.admin), orderID))

	order, _ := f.store.GetOrderByID(context.Background(), orderID)
	assert.Equal(t, models.OrderStatusRefunded, order.Status)
	require.NotNil(t, order.RefundedAt)

	// Buyer whole again, seller pending emptied, stock restored, platform
	// untouched: the fee was never taken.
	buyer, _ := f.store.GetUserByID(context.Background(), f.buyer.ID)
	assert.Equal(t, int64(100000), buyer.WalletBalanceCents)
	seller, _ := f.store.GetUserByID(context.Background(), f.seller.ID)
	assert.Equal(t, int64(0), seller.SellerPendingCents)
	assert.Equal(t, int64(0), seller.SellerBalanceCents)
	product, _ := f.store.GetActiveProduct(context.Background(), f.product.ID)
	assert.Equal(t, 3, product.Stock)
	settings, _ := f.store.GetSettings(context.Background())
	assert.Equal(t, int64(0), settings.PlatformBalanceCents)

	require.Len(t, pub.refunded, 1)
	assert.Equal(t, orderID, pub.refunded[0].OrderID)
	assert.Equal(t, f.admin.ID, pub.refunded[0].AdminID)
}

func TestRefundWritesAuditRow(t *testing.T) {
	f := newFixture()
	f.listProduct(5000, 1)
	orderID := placeOrder(t, f)
	svc := NewRefundService(f.store, nil)
	svc.now = clockAt(testTime.Add(time.Hour))

	require.NoError(t, svc.Refund(context.Background(), asAdmin(f.admin), orderID))

	logs := f.store.AuditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionOrderRefund, logs[0].Action)
	assert.Equal(t, f.admin.ID, logs[0].AdminID)
	assert.Equal(t, orderID, logs[0].TargetID)

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(logs[0].MetaJSON), &meta))
	assert.EqualValues(t, 5000, meta["grossAmountCents"])
}

func TestRefundRequiresRealAdmin(t *testing.T) {
	f := newFixture()
	f.listProduct(1000, 1)
	orderID := placeOrder(t, f)
	svc := NewRefundService(f.store, nil)

	err := svc.Refund(context.Background(), asUser(f.buyer), orderID)
	assert.ErrorIs(t, err, store.ErrAdminRequired)

	// A user merely acting with an admin's nick but no admin session gets
	// nothing either.
	err = svc.Refund(context.Background(), identity.ActingIdentity{User: f.buyer}, orderID)
	assert.ErrorIs(t, err, store.ErrAdminRequired)
}

func TestRefundWhileImpersonating(t *testing.T) {
	f := newFixture()
	f.listProduct(1000, 1)
	orderID := placeOrder(t, f)
	svc := NewRefundService(f.store, nil)
	svc.now = clockAt(testTime.Add(time.Hour))

	// Admin impersonating the buyer still refunds, and the audit row names
	// the actual admin.
	ident := identity.ActingIdentity{User: f.buyer, ActualAdminID: f.admin.ID, IsImpersonating: true}
	require.NoError(t, svc.Refund(context.Background(), ident, orderID))

	logs := f.store.AuditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, f.admin.ID, logs[0].AdminID)
}

func TestRefundNotRefundableAfterRelease(t *testing.T) {
	f := newFixture()
	f.listProduct(1000, 1)
	orderID := placeOrder(t, f)

	_, released, err := f.store.ReleaseOrderTx(context.Background(), orderID, testTime.Add(49*time.Hour))
	require.NoError(t, err)
	require.True(t, released)

	svc := NewRefundService(f.store, nil)
	svc.now = clockAt(testTime.Add(50 * time.Hour))
	err = svc.Refund(context.Background(), asAdmin(f.admin), orderID)
	assert.ErrorIs(t, err, store.ErrNotRefundable)
}

func TestRefundHoldExpired(t *testing.T) {
	f := newFixture()
	f.listProduct(1000, 1)
	orderID := placeOrder(t, f)
	svc := NewRefundService(f.store, nil)

	// At the exact deadline the hold belongs to the release sweep.
	svc.now = clockAt(testTime.Add(48 * time.Hour))
	err := svc.Refund(context.Background(), asAdmin(f.admin), orderID)
	assert.ErrorIs(t, err, store.ErrHoldExpired)

	svc.now = clockAt(testTime.Add(72 * time.Hour))
	err = svc.Refund(context.Background(), asAdmin(f.admin), orderID)
	assert.ErrorIs(t, err, store.ErrHoldExpired)

	// The failed refund left the order alone.
	order, _ := f.store.GetOrderByID(context.Background(), orderID)
	assert.Equal(t, models.OrderStatusPaidHold, order.Status)
}

func TestRefundUnknownOrder(t *testing.T) {
	f := newFixture()
	svc := NewRefundService(f.store, nil)
	svc.now = clockAt(testTime)

	err := svc.Refund(context.Background(), asAdmin(f.admin), 424242)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRefundTwiceFails(t *testing.T) {
	f := newFixture()
	f.listProduct(1000, 1)
	orderID := placeOrder(t, f)
	svc := NewRefundService(f.store, nil)
	svc.now = clockAt(testTime.Add(time.Hour))

	require.NoError(t, svc.Refund(context.Background(), asAdmin(f.admin), orderID))
	err := svc.Refund(context.Background(), asAdmin(f.admin), orderID)
	assert.ErrorIs(t, err, store.ErrNotRefundable)

	// The double refund must not double-credit the buyer.
	buyer, _ := f.store.GetUserByID(context.Background(), f.buyer.ID)
	assert.Equal(t, int64(100000), buyer.WalletBalanceCents)
}
