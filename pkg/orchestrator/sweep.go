package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mohitM0/eliza-tx/pkg/aggregator"
	"github.com/mohitM0/eliza-tx/pkg/metrics"
	"github.com/mohitM0/eliza-tx/pkg/models"
)

// RunDueSweep resumes every persisted second leg whose first leg should
// have settled by now. At most one sweep runs at a time; a tick that
// lands while the previous sweep is still working is skipped rather than
// queued. Records are handled independently: one failing record never
// blocks the rest of the batch.
func (s *Service) RunDueSweep(ctx context.Context) error {
	if !s.sweepMu.TryLock() {
		metrics.SweepRuns.WithLabelValues("skipped").Inc()
		s.logger.Notice("Skipping resumption sweep, previous run still active")
		return ErrSweepInProgress
	}
	defer s.sweepMu.Unlock()

	due, err := s.store.FindDue(ctx, s.now())
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to load due records: %v", err)
	}
	if len(due) == 0 {
		metrics.SweepRuns.WithLabelValues("empty").Inc()
		return nil
	}
	s.logger.Info("Resumption sweep: %d record(s) due", len(due))

	jobs := make(chan models.PendingTransaction)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.SweepWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range jobs {
				s.handleRecord(ctx, record)
			}
		}()
	}
	for _, record := range due {
		select {
		case jobs <- record:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	metrics.SweepRuns.WithLabelValues("completed").Inc()
	return nil
}

// handleRecord shields the sweep from one record's processing blowing up.
// A panic is contained and logged; the record stays PENDING and the other
// records in the batch keep going.
func (s *Service) handleRecord(ctx context.Context, record models.PendingTransaction) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SweepRecordsProcessed.WithLabelValues("panic").Inc()
			s.logger.Error("Record %s: handling panicked: %v", record.ID, r)
		}
	}()
	s.resumeRecord(ctx, record)
}

// resumeRecord drives one pending record as far as it can go this tick.
// Terminal transitions go through the store's conditional update, so even
// a record that slipped past the in-memory guard cannot be finalized twice.
func (s *Service) resumeRecord(ctx context.Context, record models.PendingTransaction) {
	if !s.markInflight(record.ID) {
		metrics.SweepRecordsProcessed.WithLabelValues("busy").Inc()
		return
	}
	defer s.clearInflight(record.ID)

	status, err := s.agg.GetBridgeStatus(ctx, record.FirstLegTxHash)
	if err != nil {
		metrics.SweepRecordsProcessed.WithLabelValues("status_error").Inc()
		s.logger.Error("Record %s: bridge status query failed: %v", record.ID, err)
		return
	}

	switch status {
	case aggregator.BridgeStatusDone:
		s.completeSecondLeg(ctx, record)
	case aggregator.BridgeStatusFailed:
		s.finalize(ctx, record, models.LegFailed, "first leg failed at the bridge")
	default:
		// Still settling, or the indexer has not seen the hash yet. The
		// record stays PENDING and the next sweep tries again.
		metrics.SweepRecordsProcessed.WithLabelValues("waiting").Inc()
		s.logger.DebugWithChain(record.SecondLeg.ChainID, "Record %s: first leg %s still %s", record.ID, record.FirstLegTxHash, status)
	}
}

// completeSecondLeg submits the persisted destination-chain payload once
// the bridged funds have arrived
func (s *Service) completeSecondLeg(ctx context.Context, record models.PendingTransaction) {
	chain, err := s.resolveChain(record.SecondLeg.ChainID)
	if err != nil {
		metrics.SweepRecordsProcessed.WithLabelValues("error").Inc()
		s.logger.Error("Record %s: %v", record.ID, err)
		return
	}

	var required *big.Int
	if record.ApprovalToken != "" {
		var ok bool
		required, ok = new(big.Int).SetString(record.ApprovalAmount, 10)
		if !ok {
			s.finalize(ctx, record, models.LegFailed, fmt.Sprintf("corrupt approval amount %q", record.ApprovalAmount))
			return
		}
		if err := s.ensureAllowance(ctx, chain, record.SecondLeg.ChainID, record.WalletAddress, record.ApprovalToken, record.ApprovalTarget, required); err != nil {
			// Allowance problems are retryable: nothing was spent yet
			metrics.SweepRecordsProcessed.WithLabelValues("error").Inc()
			s.logger.ErrorWithChain(record.SecondLeg.ChainID, "Record %s: %v", record.ID, err)
			return
		}
	}

	payload := record.SecondLeg
	gasLimit, err := s.preflight(ctx, chain, common.HexToAddress(record.WalletAddress), payload, record.ApprovalToken, required)
	if err != nil {
		// Bridged funds may not be spendable yet even though the bridge
		// reports DONE; retry on the next sweep
		metrics.SweepRecordsProcessed.WithLabelValues("error").Inc()
		s.logger.ErrorWithChain(payload.ChainID, "Record %s: second leg preflight failed: %v", record.ID, err)
		return
	}
	if payload.GasLimit == 0 {
		payload.GasLimit = gasLimit
	}

	hash, err := s.submitAndConfirm(ctx, chain, record.WalletAddress, payload, models.ActionExecute)
	if err != nil {
		if hash == "" {
			// Broadcast never happened, safe to retry on a later sweep
			metrics.SweepRecordsProcessed.WithLabelValues("error").Inc()
			s.logger.ErrorWithChain(record.SecondLeg.ChainID, "Record %s: second leg submission failed: %v", record.ID, err)
			return
		}
		// The transaction is out but did not confirm cleanly. A revert is
		// terminal; a timeout leaves the record PENDING because the
		// outcome is unknown and may still resolve in our favor.
		if _, timeout := errAsTimeout(err); timeout {
			metrics.SweepRecordsProcessed.WithLabelValues("timeout").Inc()
			s.logger.ErrorWithChain(record.SecondLeg.ChainID, "Record %s: second leg %s unconfirmed, will re-check next sweep", record.ID, hash)
			return
		}
		s.finalize(ctx, record, models.LegFailed, fmt.Sprintf("second leg %s reverted", hash))
		return
	}

	s.logger.NoticeWithChain(record.SecondLeg.ChainID, "Record %s: second leg %s confirmed, bridge complete", record.ID, hash)
	s.finalize(ctx, record, models.LegDone, "")
}

// finalize applies a one-way terminal transition through the store
func (s *Service) finalize(ctx context.Context, record models.PendingTransaction, status models.LegStatus, reason string) {
	applied, err := s.store.MarkStatus(ctx, record.ID, status)
	if err != nil {
		metrics.SweepRecordsProcessed.WithLabelValues("error").Inc()
		s.logger.Error("Record %s: failed to mark %s: %v", record.ID, status, err)
		return
	}
	if !applied {
		metrics.SweepRecordsProcessed.WithLabelValues("stale").Inc()
		s.logger.Notice("Record %s: already finalized elsewhere, %s not applied", record.ID, status)
		return
	}
	metrics.PendingSecondLegs.Dec()
	if status == models.LegFailed {
		metrics.SweepRecordsProcessed.WithLabelValues("failed").Inc()
		s.logger.Error("Record %s marked FAILED: %s", record.ID, reason)
		return
	}
	metrics.SweepRecordsProcessed.WithLabelValues("done").Inc()
}
