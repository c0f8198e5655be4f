// Package confirm drives a broadcasted transaction to finality by polling
// for its receipt. It only issues reads, so callers may invoke it
// repeatedly or concurrently on the same hash.
package confirm

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mohitM0/eliza-tx/pkg/logger"
)

const (
	// DefaultMaxAttempts bounds the polling session; together with
	// DefaultInterval this is the 30 minute confirmation budget that all
	// higher-level timeouts are expressed against.
	DefaultMaxAttempts = 360

	// DefaultInterval is the fixed wait between receipt queries
	DefaultInterval = 5 * time.Second
)

// ReceiptReader is the single chain capability the poller needs
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Outcome reports a successful confirmation
type Outcome struct {
	Receipt  *types.Receipt
	Attempts int
}

// RevertError is terminal: the transaction was mined but its receipt
// reports failure. Polling further cannot change the result.
type RevertError struct {
	Hash     common.Hash
	Attempts int
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("transaction %s reverted on-chain", e.Hash.Hex())
}

// TimeoutError means the retry budget ran out with no receipt. The
// transaction may still confirm later; callers must treat this as an
// unknown outcome, not a failure.
type TimeoutError struct {
	Hash     common.Hash
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transaction %s was not confirmed after %d attempts", e.Hash.Hex(), e.Attempts)
}

type poller struct {
	maxAttempts int
	interval    time.Duration
	logger      logger.Logger
}

// Option adjusts the polling budget
type Option func(*poller)

func WithMaxAttempts(n int) Option {
	return func(p *poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(p *poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(p *poller) { p.logger = l }
}

// Await polls for the receipt of hash until it confirms, reverts, or the
// attempt budget is exhausted. Transient read errors (including
// not-yet-mined) consume an attempt and are otherwise swallowed.
func Await(ctx context.Context, reader ReceiptReader, hash common.Hash, opts ...Option) (*Outcome, error) {
	p := &poller{
		maxAttempts: DefaultMaxAttempts,
		interval:    DefaultInterval,
		logger:      &logger.EmptyLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		receipt, err := reader.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				p.logger.Debug("Transaction %s confirmed after %d attempts", hash.Hex(), attempt)
				return &Outcome{Receipt: receipt, Attempts: attempt}, nil
			}
			return nil, &RevertError{Hash: hash, Attempts: attempt}
		}
		if err != nil {
			// Covers ethereum.NotFound and network blips alike
			p.logger.Debug("Waiting for transaction %s (attempt %d/%d): %v", hash.Hex(), attempt, p.maxAttempts, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.interval):
		}
	}

	return nil, &TimeoutError{Hash: hash, Attempts: p.maxAttempts}
}
