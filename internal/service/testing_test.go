package service

import (
	"context"
	"sync"
	"time"

	"marketplace-service/internal/identity"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
)

// fakePublisher records published events for assertions.
type fakePublisher struct {
	mu         sync.Mutex
	placed     []*models.OrderPlacedEvent
	released   []*models.OrderReleasedEvent
	refunded   []*models.OrderRefundedEvent
	paidOut    []*models.WithdrawalPaidEvent
	feeUpdates []*models.FeeSettingsUpdatedEvent
}

func (f *fakePublisher) PublishOrderPlaced(ctx context.Context, e *models.OrderPlacedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, e)
	return nil
}

func (f *fakePublisher) PublishOrderReleased(ctx context.Context, e *models.OrderReleasedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, e)
	return nil
}

func (f *fakePublisher) PublishOrderRefunded(ctx context.Context, e *models.OrderRefundedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunded = append(f.refunded, e)
	return nil
}

func (f *fakePublisher) PublishWithdrawalPaid(ctx context.Context, e *models.WithdrawalPaidEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paidOut = append(f.paidOut, e)
	return nil
}

func (f *fakePublisher) PublishFeeSettingsUpdated(ctx context.Context, e *models.FeeSettingsUpdatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeUpdates = append(f.feeUpdates, e)
	return nil
}

// fakeLocker is an in-process Locker. Setting err makes every acquire
// fail with that error.
type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (f *fakeLocker) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.held[lockKey] {
		return false, nil
	}
	f.held[lockKey] = true
	return true, nil
}

func (f *fakeLocker) ReleaseLock(ctx context.Context, lockKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, lockKey)
	return nil
}

// fixture is the common seed: a funded buyer, a seller with one listed
// product, and an admin.
type fixture struct {
	store   *store.MemoryStore
	buyer   *models.User
	seller  *models.User
	admin   *models.User
	product *models.Product
}

func newFixture() *fixture {
	st := store.NewMemoryStore()
	return &fixture{
		store:   st,
		buyer:   st.CreateUser(&models.User{Nick: "ana", WalletBalanceCents: 100000}),
		seller:  st.CreateUser(&models.User{Nick: "bruno"}),
		admin:   st.CreateUser(&models.User{Nick: "root", Role: models.RoleAdmin}),
		product: nil,
	}
}

func (f *fixture) listProduct(priceCents int64, stock int) *models.Product {
	f.product = f.store.CreateProduct(&models.Product{
		SellerID:   f.seller.ID,
		Title:      "steam gift card",
		PriceCents: priceCents,
		Stock:      stock,
	})
	return f.product
}

func asUser(u *models.User) identity.ActingIdentity {
	return identity.ActingIdentity{User: u}
}

func asAdmin(u *models.User) identity.ActingIdentity {
	return identity.ActingIdentity{User: u, ActualAdminID: u.ID}
}

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
