package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marketplace-service/internal/models"
)

// PurchaseTx executes a buy as one atomic transaction: stock and wallet
// are re-checked against locked rows, then stock is decremented, the
// buyer wallet debited, the seller's pending balance credited with the
// full gross, and the order row inserted in PAID_HOLD.
func (s *PostgresStore) PurchaseTx(ctx context.Context, p PurchaseParams) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var prod struct {
		Stock    int   `db:"stock"`
		SellerID int64 `db:"seller_id"`
	}
	err = tx.GetContext(ctx, &prod,
		"SELECT stock, seller_id FROM products WHERE id = $1 AND is_deleted = FALSE FOR UPDATE",
		p.ProductID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}
	if prod.Stock < p.Qty {
		return nil, ErrOutOfStock
	}

	var wallet int64
	err = tx.GetContext(ctx, &wallet,
		"SELECT wallet_balance_cents FROM users WHERE id = $1 FOR UPDATE", p.BuyerID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock buyer: %w", err)
	}
	if wallet < p.GrossAmountCents {
		return nil, ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1 WHERE id = $2",
		p.Qty, p.ProductID); err != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET wallet_balance_cents = wallet_balance_cents - $1 WHERE id = $2",
		p.GrossAmountCents, p.BuyerID); err != nil {
		return nil, fmt.Errorf("failed to debit wallet: %w", err)
	}

	// Pending always holds gross; the fee is only taken at release time.
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET seller_pending_cents = seller_pending_cents + $1 WHERE id = $2",
		p.GrossAmountCents, prod.SellerID); err != nil {
		return nil, fmt.Errorf("failed to credit seller pending: %w", err)
	}

	order := &models.Order{
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

	err = tx.GetContext(ctx, &order.ID, `
		INSERT INTO orders (
			buyer_id, seller_id, product_id, qty,
			gross_amount_cents, fee_amount_cents, net_amount_cents,
			status, created_at, hold_until
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		order.BuyerID, order.SellerID, order.ProductID, order.Qty,
		order.GrossAmountCents, order.FeeAmountCents, order.NetAmountCents,
		order.Status, order.CreatedAt, order.HoldUntil)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

// ReleaseOrderTx matures one hold. The conditional status flip is the
// only arbitration against a concurrent refund: zero rows affected means
// the race was lost and the order is left untouched (released=false).
func (s *PostgresStore) ReleaseOrderTx(ctx context.Context, orderID int64, now time.Time) (*models.Order, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, released_at = $2 WHERE id = $3 AND status = $4",
		models.OrderStatusReleased, now, orderID, models.OrderStatusPaidHold)
	if err != nil {
		return nil, false, fmt.Errorf("failed to transition order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}

	var order models.Order
	if err := tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", orderID); err != nil {
		return nil, false, fmt.Errorf("failed to read order: %w", err)
	}

	// Gross leaves pending; only net reaches the seller's available
	// balance. The difference is the platform's fee.
	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		   SET seller_pending_cents = seller_pending_cents - $1,
		       seller_balance_cents = seller_balance_cents + $2
		 WHERE id = $3`,
		order.GrossAmountCents, order.NetAmountCents, order.SellerID); err != nil {
		return nil, false, fmt.Errorf("failed to settle seller balances: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE platform_settings SET platform_balance_cents = platform_balance_cents + $1 WHERE id = 1",
		order.FeeAmountCents); err != nil {
		return nil, false, fmt.Errorf("failed to credit platform fee: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return &order, true, nil
}

// RefundOrderTx reverses a still-held order in full: status flip, stock
// restore, buyer wallet credit, seller pending debit, audit row.
func (s *PostgresStore) RefundOrderTx(ctx context.Context, orderID, adminID int64, now time.Time) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var order models.Order
	err = tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	if order.Status != models.OrderStatusPaidHold {
		return nil, ErrNotRefundable
	}
	// A matured hold belongs to the release sweep; refusing it here keeps
	// refund and release mutually exclusive.
	if !now.Before(order.HoldUntil) {
		return nil, ErrHoldExpired
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, refunded_at = $2 WHERE id = $3",
		models.OrderStatusRefunded, now, orderID); err != nil {
		return nil, fmt.Errorf("failed to transition order: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock + $1 WHERE id = $2",
		order.Qty, order.ProductID); err != nil {
		return nil, fmt.Errorf("failed to restore stock: %w", err)
	}

	// Full reversal: the buyer gets gross back, no fee was ever taken.
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET wallet_balance_cents = wallet_balance_cents + $1 WHERE id = $2",
		order.GrossAmountCents, order.BuyerID); err != nil {
		return nil, fmt.Errorf("failed to credit buyer wallet: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET seller_pending_cents = seller_pending_cents - $1 WHERE id = $2",
		order.GrossAmountCents, order.SellerID); err != nil {
		return nil, fmt.Errorf("failed to debit seller pending: %w", err)
	}

	if err := insertAudit(ctx, tx, adminID, models.AuditActionOrderRefund, "ORDER", orderID,
		auditMeta{
			OrderID:          orderID,
			BuyerID:          order.BuyerID,
			SellerID:         order.SellerID,
			GrossAmountCents: order.GrossAmountCents,
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusRefunded
	order.RefundedAt = &now
	return &order, nil
}

// WithdrawTx debits the seller's available balance and records the payout
// receipt. Settlement is synchronous: the row is inserted already PAID.
func (s *PostgresStore) WithdrawTx(ctx context.Context, p WithdrawParams) (*models.Withdrawal, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var seller struct {
		CPF     string `db:"cpf"`
		Balance int64  `db:"seller_balance_cents"`
	}
	err = tx.GetContext(ctx, &seller,
		"SELECT cpf, seller_balance_cents FROM users WHERE id = $1 FOR UPDATE", p.SellerID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock seller: %w", err)
	}
	if seller.CPF == "" {
		return nil, ErrCPFRequired
	}
	if seller.Balance < p.AmountCents {
		return nil, ErrInsufficientSellerBalance
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET seller_balance_cents = seller_balance_cents - $1 WHERE id = $2",
		p.AmountCents, p.SellerID); err != nil {
		return nil, fmt.Errorf("failed to debit seller balance: %w", err)
	}

	w := &models.Withdrawal{
		SellerID:         p.SellerID,
		GrossAmountCents: p.AmountCents,
		FeeBps:           0,
		FeeAmountCents:   0,
		NetAmountCents:   p.AmountCents,
		PixCPF:           seller.CPF,
		ReceiptCode:      p.ReceiptCode,
		Status:           models.WithdrawalStatusPaid,
		CreatedAt:        p.Now,
		PaidAt:           &p.Now,
	}

	err = tx.GetContext(ctx, &w.ID, `
		INSERT INTO withdrawals (
			seller_id, gross_amount_cents, fee_bps, fee_amount_cents, net_amount_cents,
			pix_cpf, receipt_code, status, created_at, paid_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		w.SellerID, w.GrossAmountCents, w.FeeBps, w.FeeAmountCents, w.NetAmountCents,
		w.PixCPF, w.ReceiptCode, w.Status, w.CreatedAt, w.PaidAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert withdrawal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

// ListMaturedOrders returns the oldest holds past their deadline, bounded
// by limit
func (s *PostgresStore) ListMaturedOrders(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		 WHERE status = $1 AND hold_until <= $2
		 ORDER BY hold_until ASC
		 LIMIT $3`,
		models.OrderStatusPaidHold, now, limit)
	return orders, err
}

// GetOrderByID retrieves an order by ID
func (s *PostgresStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByBuyer retrieves a buyer's order history, newest first
func (s *PostgresStore) ListOrdersByBuyer(ctx context.Context, buyerID int64, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC LIMIT $2",
		buyerID, limit)
	return orders, err
}

// ListAllOrders retrieves the admin transactions view, newest first
func (s *PostgresStore) ListAllOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1", limit)
	return orders, err
}

// ListWithdrawalsBySeller retrieves a seller's payout history, newest first
func (s *PostgresStore) ListWithdrawalsBySeller(ctx context.Context, sellerID int64, limit int) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := s.db.SelectContext(ctx, &withdrawals,
		"SELECT * FROM withdrawals WHERE seller_id = $1 ORDER BY created_at DESC LIMIT $2",
		sellerID, limit)
	return withdrawals, err
}
