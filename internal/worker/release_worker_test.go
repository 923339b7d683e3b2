package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sweepBase = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type capturingPublisher struct {
	mu       sync.Mutex
	released []*models.OrderReleasedEvent
}

func (c *capturingPublisher) PublishOrderReleased(ctx context.Context, e *models.OrderReleasedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = append(c.released, e)
	return nil
}

type sweepFixture struct {
	store  *store.MemoryStore
	buyer  *models.User
	seller *models.User
}

func newSweepFixture() *sweepFixture {
	st := store.NewMemoryStore()
	return &sweepFixture{
		store:  st,
		buyer:  st.CreateUser(&models.User{Nick: "ana", WalletBalanceCents: 1000000}),
		seller: st.CreateUser(&models.User{Nick: "bruno"}),
	}
}

// placeHold creates a product and buys it, with the hold maturing at the
// given time.
func (f *sweepFixture) placeHold(t *testing.T, gross int64, holdUntil time.Time) int64 {
	t.Helper()
	product := f.store.CreateProduct(&models.Product{
		SellerID:   f.seller.ID,
		Title:      "key",
		PriceCents: gross,
		Stock:      1,
	})
	order, err := f.store.PurchaseTx(context.Background(), store.PurchaseParams{
		BuyerID:          f.buyer.ID,
		SellerID:         f.seller.ID,
		ProductID:        product.ID,
		Qty:              1,
		GrossAmountCents: gross,
		FeeAmountCents:   gross / 10,
		NetAmountCents:   gross - gross/10,
		Now:              holdUntil.Add(-48 * time.Hour),
		HoldUntil:        holdUntil,
	})
	require.NoError(t, err)
	return order.ID
}

func newSweeper(f *sweepFixture, pub ReleasedPublisher, batchSize int, now time.Time) *ReleaseWorker {
	w := NewReleaseWorker(f.store, pub, time.Minute, batchSize)
	w.SetClock(func() time.Time { return now })
	return w
}

func TestSweepReleasesMaturedHolds(t *testing.T) {
	f := newSweepFixture()
	orderID := f.placeHold(t, 10000, sweepBase)
	pub := &capturingPublisher{}
	w := newSweeper(f, pub, 200, sweepBase.Add(time.Second))

	released := w.Sweep(context.Background())
	assert.Equal(t, 1, released)

	order, err := f.store.GetOrderByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReleased, order.Status)
	require.NotNil(t, order.ReleasedAt)

	seller, _ := f.store.GetUserByID(context.Background(), f.seller.ID)
	assert.Equal(t, int64(0), seller.SellerPendingCents)
	assert.Equal(t, int64(9000), seller.SellerBalanceCents)

	settings, _ := f.store.GetSettings(context.Background())
	assert.Equal(t, int64(1000), settings.PlatformBalanceCents)

	require.Len(t, pub.released, 1)
	assert.Equal(t, orderID, pub.released[0].OrderID)
	assert.Equal(t, int64(9000), pub.released[0].NetAmountCents)
}

func TestSweepReleasesAtExactDeadline(t *testing.T) {
	f := newSweepFixture()
	f.placeHold(t, 1000, sweepBase)
	w := newSweeper(f, nil, 200, sweepBase)

	assert.Equal(t, 1, w.Sweep(context.Background()))
}

func TestSweepSkipsUnmaturedHolds(t *testing.T) {
	f := newSweepFixture()
	orderID := f.placeHold(t, 1000, sweepBase.Add(time.Hour))
	w := newSweeper(f, nil, 200, sweepBase)

	assert.Equal(t, 0, w.Sweep(context.Background()))

	order, _ := f.store.GetOrderByID(context.Background(), orderID)
	assert.Equal(t, models.OrderStatusPaidHold, order.Status)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newSweepFixture()
	f.placeHold(t, 10000, sweepBase)
	w := newSweeper(f, nil, 200, sweepBase.Add(time.Second))

	assert.Equal(t, 1, w.Sweep(context.Background()))
	assert.Equal(t, 0, w.Sweep(context.Background()))

	// Exactly one settlement: balances unchanged by the second pass.
	seller, _ := f.store.GetUserByID(context.Background(), f.seller.ID)
	assert.Equal(t, int64(9000), seller.SellerBalanceCents)
}

func TestSweepHonorsBatchSizeOldestFirst(t *testing.T) {
	f := newSweepFixture()
	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, f.placeHold(t, 1000, sweepBase.Add(time.Duration(i)*time.Minute)))
	}
	w := newSweeper(f, nil, 2, sweepBase.Add(time.Hour))

	assert.Equal(t, 2, w.Sweep(context.Background()))

	// The two oldest holds went first.
	for i, id := range ids {
		order, _ := f.store.GetOrderByID(context.Background(), id)
		if i < 2 {
			assert.Equal(t, models.OrderStatusReleased, order.Status)
		} else {
			assert.Equal(t, models.OrderStatusPaidHold, order.Status)
		}
	}

	// Following sweeps drain the rest.
	assert.Equal(t, 2, w.Sweep(context.Background()))
	assert.Equal(t, 1, w.Sweep(context.Background()))
	assert.Equal(t, 0, w.Sweep(context.Background()))
}

func TestSweepSkipsRefundedOrder(t *testing.T) {
	f := newSweepFixture()
	admin := f.store.CreateUser(&models.User{Nick: "root", Role: models.RoleAdmin})
	orderID := f.placeHold(t, 10000, sweepBase)

	// Refund wins inside the hold window; the sweep later finds nothing.
	_, err := f.store.RefundOrderTx(context.Background(), orderID, admin.ID, sweepBase.Add(-time.Hour))
	require.NoError(t, err)

	pub := &capturingPublisher{}
	w := newSweeper(f, pub, 200, sweepBase.Add(time.Second))
	assert.Equal(t, 0, w.Sweep(context.Background()))
	assert.Empty(t, pub.released)

	seller, _ := f.store.GetUserByID(context.Background(), f.seller.ID)
	assert.Equal(t, int64(0), seller.SellerBalanceCents)
	assert.Equal(t, int64(0), seller.SellerPendingCents)
}

func TestStartStop(t *testing.T) {
	f := newSweepFixture()
	w := newSweeper(f, nil, 200, sweepBase)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, w.Running, time.Second, 5*time.Millisecond)

	w.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.False(t, w.Running())
}
