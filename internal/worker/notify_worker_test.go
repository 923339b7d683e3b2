package worker

import (
	"context"
	"testing"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotifyWorkerForTest(st *store.MemoryStore) *NotifyWorker {
	return NewNotifyWorker(st, nil)
}

func baseEvent(id, eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   id,
		EventType: eventType,
		Timestamp: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestOrderPlacedNotifiesSeller(t *testing.T) {
	st := store.NewMemoryStore()
	w := newNotifyWorkerForTest(st)

	err := w.handleOrderPlaced(context.Background(), &models.OrderPlacedEvent{
		BaseEvent:        baseEvent("evt-1", models.EventTypeOrderPlaced),
		OrderID:          7,
		BuyerID:          1,
		SellerID:         2,
		GrossAmountCents: 5000,
		HoldUntil:        time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	notifs := st.Notifications()
	require.Len(t, notifs, 1)
	assert.Equal(t, int64(2), notifs[0].UserID)
	assert.Equal(t, NotifyKindSale, notifs[0].Kind)
	assert.Equal(t, int64(7), notifs[0].RefID)
	assert.Contains(t, notifs[0].Message, "R$ 50.00")
}

func TestOrderReleasedNotifiesSeller(t *testing.T) {
	st := store.NewMemoryStore()
	w := newNotifyWorkerForTest(st)

	err := w.handleOrderReleased(context.Background(), &models.OrderReleasedEvent{
		BaseEvent:      baseEvent("evt-2", models.EventTypeOrderReleased),
		OrderID:        7,
		SellerID:       2,
		NetAmountCents: 4500,
	})
	require.NoError(t, err)

	notifs := st.Notifications()
	require.Len(t, notifs, 1)
	assert.Equal(t, NotifyKindReleased, notifs[0].Kind)
	assert.Contains(t, notifs[0].Message, "R$ 45.00")
}

func TestOrderRefundedNotifiesBothParties(t *testing.T) {
	st := store.NewMemoryStore()
	w := newNotifyWorkerForTest(st)

	err := w.handleOrderRefunded(context.Background(), &models.OrderRefundedEvent{
		BaseEvent:        baseEvent("evt-3", models.EventTypeOrderRefunded),
		OrderID:          7,
		BuyerID:          1,
		SellerID:         2,
		GrossAmountCents: 5000,
	})
	require.NoError(t, err)

	notifs := st.Notifications()
	require.Len(t, notifs, 2)
	assert.Equal(t, int64(1), notifs[0].UserID)
	assert.Equal(t, NotifyKindRefunded, notifs[0].Kind)
	assert.Equal(t, int64(2), notifs[1].UserID)
	assert.Equal(t, NotifyKindReversal, notifs[1].Kind)
}

func TestWithdrawalPaidNotifiesSeller(t *testing.T) {
	st := store.NewMemoryStore()
	w := newNotifyWorkerForTest(st)

	err := w.handleWithdrawalPaid(context.Background(), &models.WithdrawalPaidEvent{
		BaseEvent:      baseEvent("evt-4", models.EventTypeWithdrawalPaid),
		WithdrawalID:   3,
		SellerID:       2,
		NetAmountCents: 12345,
		ReceiptCode:    "WD-ABCD1234",
	})
	require.NoError(t, err)

	notifs := st.Notifications()
	require.Len(t, notifs, 1)
	assert.Equal(t, NotifyKindPaidOut, notifs[0].Kind)
	assert.Contains(t, notifs[0].Message, "WD-ABCD1234")
	assert.Contains(t, notifs[0].Message, "R$ 123.45")
}

func TestRedeliveredEventProcessedOnce(t *testing.T) {
	st := store.NewMemoryStore()
	w := newNotifyWorkerForTest(st)

	event := &models.OrderReleasedEvent{
		BaseEvent:      baseEvent("evt-5", models.EventTypeOrderReleased),
		OrderID:        7,
		SellerID:       2,
		NetAmountCents: 4500,
	}
	require.NoError(t, w.handleOrderReleased(context.Background(), event))
	require.NoError(t, w.handleOrderReleased(context.Background(), event))

	assert.Len(t, st.Notifications(), 1)
}
