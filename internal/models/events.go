package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderReleased      = "ORDER_RELEASED"
	EventTypeOrderRefunded      = "ORDER_REFUNDED"
	EventTypeWithdrawalPaid     = "WITHDRAWAL_PAID"
	EventTypeFeeSettingsUpdated = "FEE_SETTINGS_UPDATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published after a purchase commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID          int64     `json:"order_id"`
	BuyerID          int64     `json:"buyer_id"`
	SellerID         int64     `json:"seller_id"`
	ProductID        int64     `json:"product_id"`
	Qty              int       `json:"qty"`
	GrossAmountCents int64     `json:"gross_amount_cents"`
	HoldUntil        time.Time `json:"hold_until"`
}

// OrderReleasedEvent published when the sweep matures a hold
type OrderReleasedEvent struct {
	BaseEvent
	OrderID        int64 `json:"order_id"`
	BuyerID        int64 `json:"buyer_id"`
	SellerID       int64 `json:"seller_id"`
	NetAmountCents int64 `json:"net_amount_cents"`
	FeeAmountCents int64 `json:"fee_amount_cents"`
}

// OrderRefundedEvent published after an admin refund commits
type OrderRefundedEvent struct {
	BaseEvent
	OrderID          int64 `json:"order_id"`
	BuyerID          int64 `json:"buyer_id"`
	SellerID         int64 `json:"seller_id"`
	GrossAmountCents int64 `json:"gross_amount_cents"`
	AdminID          int64 `json:"admin_id"`
}

// WithdrawalPaidEvent published after a withdrawal settles
type WithdrawalPaidEvent struct {
	BaseEvent
	WithdrawalID   int64  `json:"withdrawal_id"`
	SellerID       int64  `json:"seller_id"`
	NetAmountCents int64  `json:"net_amount_cents"`
	ReceiptCode    string `json:"receipt_code"`
}

// FeeSettingsUpdatedEvent published after a fee settings change
type FeeSettingsUpdatedEvent struct {
	BaseEvent
	FeeBps    int   `json:"fee_bps"`
	VipFeeBps int   `json:"vip_fee_bps"`
	Version   int   `json:"version"`
	AdminID   int64 `json:"admin_id"`
}
