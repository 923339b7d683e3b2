// Package store persists the marketplace ledger: user balances, products,
// escrow orders, withdrawals, platform settings, and audit records.
//
// Every money-moving operation is a single atomic transaction that
// re-validates its preconditions against current rows, so callers may
// fast-fail on stale reads but the store is the authority.
package store

import (
	"context"
	"errors"
	"time"

	"marketplace-service/internal/models"
)

// Precondition failures. Surfaced to callers as stable error codes; the
// transaction that detects one rolls back with no side effects.
var (
	ErrNotFound                  = errors.New("not found")
	ErrOutOfStock                = errors.New("out of stock")
	ErrInsufficientFunds         = errors.New("insufficient wallet funds")
	ErrInsufficientSellerBalance = errors.New("insufficient seller balance")
	ErrNotRefundable             = errors.New("order is not refundable")
	ErrHoldExpired               = errors.New("hold window has expired")
	ErrCPFRequired               = errors.New("payout cpf not registered")
	ErrAlreadyVip                = errors.New("user is already vip")
	ErrBanned                    = errors.New("user is banned")
	ErrCannotBuyOwnProduct       = errors.New("cannot buy own product")
	ErrInvalidInput              = errors.New("invalid input")
	ErrAdminRequired             = errors.New("admin required")
	ErrDuplicateRequest          = errors.New("duplicate request in flight")
)

// PurchaseParams carries the amounts a purchase commits. Gross, fee and
// net are computed by the caller from the pre-transaction product price
// and fee settings; stock and wallet balance are re-checked inside the
// transaction.
type PurchaseParams struct {
	BuyerID          int64
	SellerID         int64
	ProductID        int64
	Qty              int
	GrossAmountCents int64
	FeeAmountCents   int64
	NetAmountCents   int64
	Now              time.Time
	HoldUntil        time.Time
}

// WithdrawParams carries a withdrawal request into its transaction.
type WithdrawParams struct {
	SellerID    int64
	AmountCents int64
	ReceiptCode string
	Now         time.Time
}

// Store is the persistence boundary for the ledger. PostgresStore backs
// production; MemoryStore backs tests and demo mode.
type Store interface {
	Close() error

	// Users
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	SetUserCPF(ctx context.Context, userID int64, cpf string) error

	// Products. Reads apply the active-only filter (not deleted) in one
	// place instead of repeating the flag check per call site.
	GetActiveProduct(ctx context.Context, id int64) (*models.Product, error)

	// Platform settings
	GetSettings(ctx context.Context) (*models.PlatformSettings, error)
	UpdateFeeSettingsTx(ctx context.Context, feeBps, vipFeeBps int, adminID int64, now time.Time) (*models.PlatformSettings, error)

	// Ledger operations, one atomic transaction each.
	PurchaseTx(ctx context.Context, p PurchaseParams) (*models.Order, error)
	ReleaseOrderTx(ctx context.Context, orderID int64, now time.Time) (*models.Order, bool, error)
	RefundOrderTx(ctx context.Context, orderID, adminID int64, now time.Time) (*models.Order, error)
	WithdrawTx(ctx context.Context, p WithdrawParams) (*models.Withdrawal, error)
	TopUpTx(ctx context.Context, userID, amountCents int64, now time.Time) error
	BuyVipTx(ctx context.Context, userID, priceCents int64, now time.Time) error

	// Escrow sweep support
	ListMaturedOrders(ctx context.Context, now time.Time, limit int) ([]models.Order, error)

	// Listings
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID int64, limit int) ([]models.Order, error)
	ListAllOrders(ctx context.Context, limit int) ([]models.Order, error)
	ListWithdrawalsBySeller(ctx context.Context, sellerID int64, limit int) ([]models.Withdrawal, error)

	// Notifications and consumer idempotency
	CreateNotification(ctx context.Context, n *models.Notification) error
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}
