package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// auditMeta is the JSON payload stored with an audit row. Only the fields
// relevant to the action are set.
type auditMeta struct {
	OrderID          int64 `json:"orderId,omitempty"`
	BuyerID          int64 `json:"buyerId,omitempty"`
	SellerID         int64 `json:"sellerId,omitempty"`
	GrossAmountCents int64 `json:"grossAmountCents,omitempty"`
	FeeBps           int   `json:"feeBps,omitempty"`
	VipFeeBps        int   `json:"vipFeeBps,omitempty"`
	VipPriceCents    int64 `json:"vipPriceCents,omitempty"`
}

func marshalAuditMeta(meta auditMeta) string {
	b, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func insertAudit(ctx context.Context, tx *sqlx.Tx, adminID int64, action, targetType string, targetID int64, meta auditMeta, now time.Time) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal audit meta: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO admin_audit_logs (admin_id, action, target_type, target_id, meta_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		adminID, action, targetType, targetID, string(metaJSON), now)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
