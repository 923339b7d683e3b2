package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketplace-service/internal/models"
)

// MemoryStore is an in-memory Store for unit tests and demo mode. One
// mutex spans every operation, which gives each the same atomicity the
// Postgres transactions provide.
type MemoryStore struct {
	mu sync.Mutex

	users         map[int64]*models.User
	products      map[int64]*models.Product
	orders        map[int64]*models.Order
	withdrawals   map[int64]*models.Withdrawal
	auditLogs     []models.AuditLog
	notifications []models.Notification
	processed     map[string]string
	settings      models.PlatformSettings

	nextUserID       int64
	nextProductID    int64
	nextOrderID      int64
	nextWithdrawalID int64
	nextAuditID      int64
	nextNotifID      int64
}

// NewMemoryStore creates an empty in-memory store with default settings
// (1000 bps standard fee, 600 bps VIP fee).
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[int64]*models.User),
		products:    make(map[int64]*models.Product),
		orders:      make(map[int64]*models.Order),
		withdrawals: make(map[int64]*models.Withdrawal),
		processed:   make(map[string]string),
		settings: models.PlatformSettings{
			FeeBps:    1000,
			VipFeeBps: 600,
			Version:   1,
		},
	}
}

func (m *MemoryStore) Close() error { return nil }

// CreateUser seeds a user and assigns its ID. Test/demo helper.
func (m *MemoryStore) CreateUser(u *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextUserID++
	u.ID = m.nextUserID
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	cp := *u
	m.users[u.ID] = &cp
	return u
}

// CreateProduct seeds a product and assigns its ID. Test/demo helper.
func (m *MemoryStore) CreateProduct(p *models.Product) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextProductID++
	p.ID = m.nextProductID
	cp := *p
	m.products[p.ID] = &cp
	return p
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) SetUserCPF(ctx context.Context, userID int64, cpf string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.CPF = cpf
	return nil
}

func (m *MemoryStore) GetActiveProduct(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok || p.IsDeleted {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) GetSettings(ctx context.Context) (*models.PlatformSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := m.settings
	return &cp, nil
}

func (m *MemoryStore) UpdateFeeSettingsTx(ctx context.Context, feeBps, vipFeeBps int, adminID int64, now time.Time) (*models.PlatformSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings.FeeBps = feeBps
	m.settings.VipFeeBps = vipFeeBps
	m.settings.Version++
	m.settings.UpdatedAt = now
	m.appendAudit(adminID, models.AuditActionFeeUpdate, "SETTINGS", 1,
		auditMeta{FeeBps: feeBps, VipFeeBps: vipFeeBps}, now)

	cp := m.settings
	return &cp, nil
}

func (m *MemoryStore) PurchaseTx(ctx context.Context, p PurchaseParams) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prod, ok := m.products[p.ProductID]
	if !ok || prod.IsDeleted {
		return nil, ErrNotFound
	}
	if prod.Stock < p.Qty {
		return nil, ErrOutOfStock
	}
	buyer, ok := m.users[p.BuyerID]
	if !ok {
		return nil, ErrNotFound
	}
	if buyer.WalletBalanceCents < p.GrossAmountCents {
		return nil, ErrInsufficientFunds
	}
	seller, ok := m.users[prod.SellerID]
	if !ok {
		return nil, ErrNotFound
	}

	prod.Stock -= p.Qty
	buyer.WalletBalanceCents -= p.GrossAmountCents
	seller.SellerPendingCents += p.GrossAmountCents

	m.nextOrderID++
	order := &models.Order{
		ID:               m.nextOrderID,
		BuyerID:          p.BuyerID,
		SellerID:         prod.SellerID,
		ProductID:        p.ProductID,
		Qty:              p.Qty,
		GrossAmountCents: p.GrossAmountCents,
		FeeAmountCents:   p.FeeAmountCents,
		NetAmountCents:   p.NetAmountCents,
		Status:           models.OrderStatusPaidHold,
		CreatedAt:        p.Now,
		HoldUntil:        p.HoldUntil,
	}
	m.orders[order.ID] = order

	cp := *order
	return &cp, nil
}

func (m *MemoryStore) ReleaseOrderTx(ctx context.Context, orderID int64, now time.Time) (*models.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok || order.Status != models.OrderStatusPaidHold {
		return nil, false, nil
	}
	seller, ok := m.users[order.SellerID]
	if !ok {
		return nil, false, ErrNotFound
	}

	released := now
	order.Status = models.OrderStatusReleased
	order.ReleasedAt = &released
	seller.SellerPendingCents -= order.GrossAmountCents
	seller.SellerBalanceCents += order.NetAmountCents
	m.settings.PlatformBalanceCents += order.FeeAmountCents

	cp := *order
	return &cp, true, nil
}

func (m *MemoryStore) RefundOrderTx(ctx context.Context, orderID, adminID int64, now time.Time) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	if order.Status != models.OrderStatusPaidHold {
		return nil, ErrNotRefundable
	}
	if !now.Before(order.HoldUntil) {
		return nil, ErrHoldExpired
	}
	buyer, ok := m.users[order.BuyerID]
	if !ok {
		return nil, ErrNotFound
	}
	seller, ok := m.users[order.SellerID]
	if !ok {
		return nil, ErrNotFound
	}

	refunded := now
	order.Status = models.OrderStatusRefunded
	order.RefundedAt = &refunded
	if prod, ok := m.products[order.ProductID]; ok {
		prod.Stock += order.Qty
	}
	buyer.WalletBalanceCents += order.GrossAmountCents
	seller.SellerPendingCents -= order.GrossAmountCents

	m.appendAudit(adminID, models.AuditActionOrderRefund, "ORDER", orderID,
		auditMeta{
			OrderID:          orderID,
			BuyerID:          order.BuyerID,
			SellerID:         order.SellerID,
			GrossAmountCents: order.GrossAmountCents,
		}, now)

	cp := *order
	return &cp, nil
}

func (m *MemoryStore) WithdrawTx(ctx context.Context, p WithdrawParams) (*models.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seller, ok := m.users[p.SellerID]
	if !ok {
		return nil, ErrNotFound
	}
	if seller.CPF == "" {
		return nil, ErrCPFRequired
	}
	if seller.SellerBalanceCents < p.AmountCents {
		return nil, ErrInsufficientSellerBalance
	}

	seller.SellerBalanceCents -= p.AmountCents

	paid := p.Now
	m.nextWithdrawalID++
	w := &models.Withdrawal{
		ID:               m.nextWithdrawalID,
		SellerID:         p.SellerID,
		GrossAmountCents: p.AmountCents,
		NetAmountCents:   p.AmountCents,
		PixCPF:           seller.CPF,
		ReceiptCode:      p.ReceiptCode,
		Status:           models.WithdrawalStatusPaid,
		CreatedAt:        p.Now,
		PaidAt:           &paid,
	}
	m.withdrawals[w.ID] = w

	cp := *w
	return &cp, nil
}

func (m *MemoryStore) TopUpTx(ctx context.Context, userID, amountCents int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.WalletBalanceCents += amountCents
	return nil
}

func (m *MemoryStore) BuyVipTx(ctx context.Context, userID, priceCents int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	if u.IsVip {
		return ErrAlreadyVip
	}
	if u.WalletBalanceCents < priceCents {
		return ErrInsufficientFunds
	}

	u.WalletBalanceCents -= priceCents
	u.IsVip = true
	m.settings.PlatformBalanceCents += priceCents
	m.appendAudit(userID, models.AuditActionVipPurchase, "USER", userID,
		auditMeta{VipPriceCents: priceCents}, now)
	return nil
}

func (m *MemoryStore) ListMaturedOrders(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matured []models.Order
	for _, o := range m.orders {
		if o.Status == models.OrderStatusPaidHold && !o.HoldUntil.After(now) {
			matured = append(matured, *o)
		}
	}
	sort.Slice(matured, func(i, j int) bool {
		return matured[i].HoldUntil.Before(matured[j].HoldUntil)
	})
	if len(matured) > limit {
		matured = matured[:limit]
	}
	return matured, nil
}

func (m *MemoryStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) ListOrdersByBuyer(ctx context.Context, buyerID int64, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var orders []models.Order
	for _, o := range m.orders {
		if o.BuyerID == buyerID {
			orders = append(orders, *o)
		}
	}
	sortOrdersNewestFirst(orders)
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (m *MemoryStore) ListAllOrders(ctx context.Context, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		orders = append(orders, *o)
	}
	sortOrdersNewestFirst(orders)
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (m *MemoryStore) ListWithdrawalsBySeller(ctx context.Context, sellerID int64, limit int) ([]models.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var withdrawals []models.Withdrawal
	for _, w := range m.withdrawals {
		if w.SellerID == sellerID {
			withdrawals = append(withdrawals, *w)
		}
	}
	sort.Slice(withdrawals, func(i, j int) bool {
		if withdrawals[i].CreatedAt.Equal(withdrawals[j].CreatedAt) {
			return withdrawals[i].ID > withdrawals[j].ID
		}
		return withdrawals[i].CreatedAt.After(withdrawals[j].CreatedAt)
	})
	if len(withdrawals) > limit {
		withdrawals = withdrawals[:limit]
	}
	return withdrawals, nil
}

func (m *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextNotifID++
	n.ID = m.nextNotifID
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *MemoryStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.processed[eventID]
	return ok, nil
}

func (m *MemoryStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.processed[eventID] = eventType
	return nil
}

// AuditLogs returns a copy of the audit trail. Test helper.
func (m *MemoryStore) AuditLogs() []models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.AuditLog, len(m.auditLogs))
	copy(out, m.auditLogs)
	return out
}

// Notifications returns a copy of the stored notifications. Test helper.
func (m *MemoryStore) Notifications() []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

// TotalValueCents sums every user balance bucket plus the platform
// balance. Ledger operations other than top-ups must leave it unchanged.
func (m *MemoryStore) TotalValueCents() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.settings.PlatformBalanceCents
	for _, u := range m.users {
		total += u.WalletBalanceCents + u.SellerBalanceCents + u.SellerPendingCents
	}
	return total
}

func (m *MemoryStore) appendAudit(adminID int64, action, targetType string, targetID int64, meta auditMeta, now time.Time) {
	m.nextAuditID++
	m.auditLogs = append(m.auditLogs, models.AuditLog{
		ID:         m.nextAuditID,
		AdminID:    adminID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		MetaJSON:   marshalAuditMeta(meta),
		CreatedAt:  now,
	})
}

func sortOrdersNewestFirst(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
