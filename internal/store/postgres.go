package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marketplace-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresStore implements Store on top of PostgreSQL via sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to the database and configures the pool
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle
func (s *PostgresStore) DB() *sqlx.DB {
	return s.db
}

// GetUserByID retrieves a user by ID
func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetUserCPF registers the payout CPF for a user
func (s *PostgresStore) SetUserCPF(ctx context.Context, userID int64, cpf string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET cpf = $1 WHERE id = $2", cpf, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetActiveProduct retrieves a product that has not been soft-deleted
func (s *PostgresStore) GetActiveProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM products WHERE id = $1 AND is_deleted = FALSE", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetSettings retrieves the current platform settings
func (s *PostgresStore) GetSettings(ctx context.Context) (*models.PlatformSettings, error) {
	var settings models.PlatformSettings
	err := s.db.GetContext(ctx, &settings,
		"SELECT fee_bps, vip_fee_bps, platform_balance_cents, version, updated_at FROM platform_settings WHERE id = 1")
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateFeeSettingsTx writes a new settings version and the audit row in
// one transaction
func (s *PostgresStore) UpdateFeeSettingsTx(ctx context.Context, feeBps, vipFeeBps int, adminID int64, now time.Time) (*models.PlatformSettings, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var settings models.PlatformSettings
	err = tx.GetContext(ctx, &settings, `
		UPDATE platform_settings
		   SET fee_bps = $1, vip_fee_bps = $2, version = version + 1, updated_at = $3
		 WHERE id = 1
		 RETURNING fee_bps, vip_fee_bps, platform_balance_cents, version, updated_at`,
		feeBps, vipFeeBps, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	if err := insertAudit(ctx, tx, adminID, models.AuditActionFeeUpdate, "SETTINGS", 1,
		auditMeta{FeeBps: feeBps, VipFeeBps: vipFeeBps}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// TopUpTx credits a wallet; the only external value input to the ledger
func (s *PostgresStore) TopUpTx(ctx context.Context, userID, amountCents int64, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET wallet_balance_cents = wallet_balance_cents + $1 WHERE id = $2",
		amountCents, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// BuyVipTx debits the wallet, flags the user VIP, and credits the platform
// balance atomically
func (s *PostgresStore) BuyVipTx(ctx context.Context, userID, priceCents int64, now time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var u struct {
		IsVip  bool  `db:"is_vip"`
		Wallet int64 `db:"wallet_balance_cents"`
	}
	err = tx.GetContext(ctx, &u,
		"SELECT is_vip, wallet_balance_cents FROM users WHERE id = $1 FOR UPDATE", userID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if u.IsVip {
		return ErrAlreadyVip
	}
	if u.Wallet < priceCents {
		return ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET wallet_balance_cents = wallet_balance_cents - $1, is_vip = TRUE WHERE id = $2",
		priceCents, userID); err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE platform_settings SET platform_balance_cents = platform_balance_cents + $1, updated_at = $2 WHERE id = 1",
		priceCents, now); err != nil {
		return fmt.Errorf("failed to credit platform balance: %w", err)
	}

	if err := insertAudit(ctx, tx, userID, models.AuditActionVipPurchase, "USER", userID,
		auditMeta{VipPriceCents: priceCents}, now); err != nil {
		return err
	}

	return tx.Commit()
}

// CreateNotification appends a notification row
func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, kind, ref_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return s.db.GetContext(ctx, &n.ID, query,
		n.UserID, n.Kind, n.RefID, n.Message, n.CreatedAt)
}

// IsEventProcessed checks if an event has been processed
func (s *PostgresStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *PostgresStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
