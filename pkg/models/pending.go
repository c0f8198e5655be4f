package models

import (
	"time"

	"github.com/google/uuid"
)

// LegStatus tracks a persisted bridge leg. Transitions are one-way:
// PENDING -> DONE or PENDING -> FAILED, never backwards.
type LegStatus string

const (
	LegPending LegStatus = "PENDING"
	LegDone    LegStatus = "DONE"
	LegFailed  LegStatus = "FAILED"
)

// PendingTransaction is the durable record of a bridge's unfinished second
// leg. Created once when a multi-leg plan defers its destination-chain step,
// then picked up by the resumption sweep once the first leg settles.
type PendingTransaction struct {
	ID              uuid.UUID
	CorrelationID   string
	WalletAddress   string
	FirstLegTxHash  string
	FirstLegStatus  LegStatus
	FirstLegReadyAt time.Time
	SecondLeg       TxPayload
	ApprovalToken   string
	ApprovalTarget  string
	ApprovalAmount  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
