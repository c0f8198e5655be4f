// Package store persists the unfinished second legs of bridge plans so the
// resumption sweep can pick them up after minutes, hours, or a process
// restart. The record id is the sole resumption key; no in-memory state
// survives a restart.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/mohitM0/eliza-tx/pkg/logger"
	"github.com/mohitM0/eliza-tx/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS pending_transactions (
	id                 UUID PRIMARY KEY,
	correlation_id     TEXT NOT NULL DEFAULT '',
	wallet_address     TEXT NOT NULL,
	first_leg_tx_hash  TEXT NOT NULL,
	first_leg_status   TEXT NOT NULL DEFAULT 'PENDING',
	first_leg_ready_at TIMESTAMPTZ NOT NULL,
	second_leg_payload JSONB NOT NULL,
	approval_token     TEXT NOT NULL DEFAULT '',
	approval_target    TEXT NOT NULL DEFAULT '',
	approval_amount    TEXT NOT NULL DEFAULT '0',
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pending_transactions_due
	ON pending_transactions (first_leg_status, first_leg_ready_at);
`

// payloadJSON maps a TxPayload onto the JSONB payload column. The domain
// type cannot implement driver.Valuer itself because its Value field blocks
// a Value method, so the mapping lives on this wrapper.
type payloadJSON struct {
	models.TxPayload
}

func (p payloadJSON) Value() (driver.Value, error) {
	return json.Marshal(p.TxPayload)
}

func (p *payloadJSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, &p.TxPayload)
	case string:
		return json.Unmarshal([]byte(v), &p.TxPayload)
	case nil:
		p.TxPayload = models.TxPayload{}
		return nil
	default:
		return fmt.Errorf("unsupported payload column type %T", src)
	}
}

// pendingRow is the table-shaped view of a PendingTransaction
type pendingRow struct {
	ID              uuid.UUID        `db:"id"`
	CorrelationID   string           `db:"correlation_id"`
	WalletAddress   string           `db:"wallet_address"`
	FirstLegTxHash  string           `db:"first_leg_tx_hash"`
	FirstLegStatus  models.LegStatus `db:"first_leg_status"`
	FirstLegReadyAt time.Time        `db:"first_leg_ready_at"`
	SecondLeg       payloadJSON      `db:"second_leg_payload"`
	ApprovalToken   string           `db:"approval_token"`
	ApprovalTarget  string           `db:"approval_target"`
	ApprovalAmount  string           `db:"approval_amount"`
	CreatedAt       time.Time        `db:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at"`
}

func (r pendingRow) toModel() models.PendingTransaction {
	return models.PendingTransaction{
		ID:              r.ID,
		CorrelationID:   r.CorrelationID,
		WalletAddress:   r.WalletAddress,
		FirstLegTxHash:  r.FirstLegTxHash,
		FirstLegStatus:  r.FirstLegStatus,
		FirstLegReadyAt: r.FirstLegReadyAt,
		SecondLeg:       r.SecondLeg.TxPayload,
		ApprovalToken:   r.ApprovalToken,
		ApprovalTarget:  r.ApprovalTarget,
		ApprovalAmount:  r.ApprovalAmount,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// PendingStore is the PostgreSQL-backed pending-step store
type PendingStore struct {
	db     *sqlx.DB
	logger logger.Logger
}

// Open connects to the database and bootstraps the schema
func Open(ctx context.Context, databaseURL string, log logger.Logger) (*PendingStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &PendingStore{db: db, logger: log}
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewPendingStore wraps an existing connection, used by tests
func NewPendingStore(db *sqlx.DB, log logger.Logger) *PendingStore {
	return &PendingStore{db: db, logger: log}
}

// EnsureSchema creates the pending_transactions table if needed
func (s *PendingStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %v", err)
	}
	return nil
}

// Create inserts a new pending record. The id and timestamps are assigned
// here; the status always starts PENDING.
func (s *PendingStore) Create(ctx context.Context, record *models.PendingTransaction) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now().UTC()
	record.FirstLegStatus = models.LegPending
	record.CreatedAt = now
	record.UpdatedAt = now

	query := `
		INSERT INTO pending_transactions (
			id, correlation_id, wallet_address, first_leg_tx_hash,
			first_leg_status, first_leg_ready_at, second_leg_payload,
			approval_token, approval_target, approval_amount, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.CorrelationID, record.WalletAddress, record.FirstLegTxHash,
		record.FirstLegStatus, record.FirstLegReadyAt, payloadJSON{record.SecondLeg},
		record.ApprovalToken, record.ApprovalTarget, record.ApprovalAmount, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pending transaction: %v", err)
	}
	return nil
}

// FindDue returns records still PENDING whose estimated ready time passed
func (s *PendingStore) FindDue(ctx context.Context, now time.Time) ([]models.PendingTransaction, error) {
	var rows []pendingRow
	query := `
		SELECT * FROM pending_transactions
		WHERE first_leg_status = $1 AND first_leg_ready_at <= $2
		ORDER BY first_leg_ready_at ASC`
	if err := s.db.SelectContext(ctx, &rows, query, models.LegPending, now); err != nil {
		return nil, fmt.Errorf("failed to query due transactions: %v", err)
	}
	records := make([]models.PendingTransaction, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toModel())
	}
	return records, nil
}

// GetByID fetches one record
func (s *PendingStore) GetByID(ctx context.Context, id uuid.UUID) (*models.PendingTransaction, error) {
	var row pendingRow
	query := `SELECT * FROM pending_transactions WHERE id = $1`
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("pending transaction not found: %s", id)
		}
		return nil, err
	}
	record := row.toModel()
	return &record, nil
}

// MarkStatus moves a record to a terminal status. The update only applies
// while the record is still PENDING, so a terminal status can never be
// overwritten and an overrunning sweep cannot finalize a record twice.
// Returns whether this call performed the transition.
func (s *PendingStore) MarkStatus(ctx context.Context, id uuid.UUID, status models.LegStatus) (bool, error) {
	query := `
		UPDATE pending_transactions
		SET first_leg_status = $2, updated_at = $3
		WHERE id = $1 AND first_leg_status = $4`
	result, err := s.db.ExecContext(ctx, query, id, status, time.Now().UTC(), models.LegPending)
	if err != nil {
		return false, fmt.Errorf("failed to update pending transaction %s: %v", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Ping verifies the database connection, used by readiness checks
func (s *PendingStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool
func (s *PendingStore) Close() error {
	return s.db.Close()
}
