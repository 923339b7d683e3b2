package models

import "time"

// User holds the ledger-relevant view of an account. The four monetary
// fields are integer cents and must never go negative.
type User struct {
	ID                 int64     `db:"id" json:"id"`
	Nick               string    `db:"nick" json:"nick"`
	Role               string    `db:"role" json:"role"`
	IsVip              bool      `db:"is_vip" json:"is_vip"`
	IsBanned           bool      `db:"is_banned" json:"is_banned"`
	CPF                string    `db:"cpf" json:"cpf,omitempty"`
	WalletBalanceCents int64     `db:"wallet_balance_cents" json:"wallet_balance_cents"`
	SellerBalanceCents int64     `db:"seller_balance_cents" json:"seller_balance_cents"`
	SellerPendingCents int64     `db:"seller_pending_cents" json:"seller_pending_cents"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Product represents a listing in the catalog
type Product struct {
	ID         int64     `db:"id" json:"id"`
	SellerID   int64     `db:"seller_id" json:"seller_id"`
	Title      string    `db:"title" json:"title"`
	PriceCents int64     `db:"price_cents" json:"price_cents"`
	Stock      int       `db:"stock" json:"stock"`
	IsHidden   bool      `db:"is_hidden" json:"is_hidden"`
	IsDeleted  bool      `db:"is_deleted" json:"is_deleted"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Order is the escrow record. Fee and net are frozen at purchase time;
// fee_amount_cents + net_amount_cents == gross_amount_cents always.
type Order struct {
	ID               int64      `db:"id" json:"id"`
	BuyerID          int64      `db:"buyer_id" json:"buyer_id"`
	SellerID         int64      `db:"seller_id" json:"seller_id"`
	ProductID        int64      `db:"product_id" json:"product_id"`
	Qty              int        `db:"qty" json:"qty"`
	GrossAmountCents int64      `db:"gross_amount_cents" json:"gross_amount_cents"`
	FeeAmountCents   int64      `db:"fee_amount_cents" json:"fee_amount_cents"`
	NetAmountCents   int64      `db:"net_amount_cents" json:"net_amount_cents"`
	Status           string     `db:"status" json:"status"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	HoldUntil        time.Time  `db:"hold_until" json:"hold_until"`
	ReleasedAt       *time.Time `db:"released_at" json:"released_at,omitempty"`
	RefundedAt       *time.Time `db:"refunded_at" json:"refunded_at,omitempty"`
}

// PlatformSettings is the singleton fee configuration plus the platform's
// accumulated fee revenue. Version increases on every fee update.
type PlatformSettings struct {
	FeeBps               int       `db:"fee_bps" json:"fee_bps"`
	VipFeeBps            int       `db:"vip_fee_bps" json:"vip_fee_bps"`
	PlatformBalanceCents int64     `db:"platform_balance_cents" json:"platform_balance_cents"`
	Version              int       `db:"version" json:"version"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// Withdrawal is an off-ledger payout record. Settlement is synchronous:
// rows are created already PAID.
type Withdrawal struct {
	ID               int64      `db:"id" json:"id"`
	SellerID         int64      `db:"seller_id" json:"seller_id"`
	GrossAmountCents int64      `db:"gross_amount_cents" json:"gross_amount_cents"`
	FeeBps           int        `db:"fee_bps" json:"fee_bps"`
	FeeAmountCents   int64      `db:"fee_amount_cents" json:"fee_amount_cents"`
	NetAmountCents   int64      `db:"net_amount_cents" json:"net_amount_cents"`
	PixCPF           string     `db:"pix_cpf" json:"pix_cpf"`
	ReceiptCode      string     `db:"receipt_code" json:"receipt_code"`
	Status           string     `db:"status" json:"status"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	PaidAt           *time.Time `db:"paid_at" json:"paid_at,omitempty"`
}

// AuditLog is an append-only admin action record
type AuditLog struct {
	ID         int64     `db:"id" json:"id"`
	AdminID    int64     `db:"admin_id" json:"admin_id"`
	Action     string    `db:"action" json:"action"`
	TargetType string    `db:"target_type" json:"target_type"`
	TargetID   int64     `db:"target_id" json:"target_id"`
	MetaJSON   string    `db:"meta_json" json:"meta_json"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Notification is written asynchronously by the notify worker; no ledger
// path reads it.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Kind      string    `db:"kind" json:"kind"`
	RefID     int64     `db:"ref_id" json:"ref_id"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Order statuses
const (
	OrderStatusPaidHold = "PAID_HOLD"
	OrderStatusReleased = "RELEASED"
	OrderStatusRefunded = "REFUNDED"
)

// Withdrawal statuses
const (
	WithdrawalStatusPaid = "PAID"
)

// User roles
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Audit actions
const (
	AuditActionOrderRefund = "ORDER_REFUND"
	AuditActionFeeUpdate   = "FEE_UPDATE"
	AuditActionVipPurchase = "VIP_PURCHASE"
)

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
