package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mohitM0/eliza-tx/pkg/chainclient"
	"github.com/mohitM0/eliza-tx/pkg/confirm"
	"github.com/mohitM0/eliza-tx/pkg/metrics"
	"github.com/mohitM0/eliza-tx/pkg/models"
)

// broadcast hands one payload to the signer, honoring the chain's circuit
// breaker, and returns the transaction hash
func (s *Service) broadcast(ctx context.Context, wallet string, payload models.TxPayload, action models.StepAction) (string, error) {
	chainLabel := strconv.Itoa(payload.ChainID)

	if cb := s.breaker(payload.ChainID); cb != nil && cb.IsOpen() {
		metrics.StepsExecuted.WithLabelValues(chainLabel, string(action), "suspended").Inc()
		return "", &CircuitOpenError{ChainID: payload.ChainID}
	}

	hash, err := s.signer.SignAndBroadcast(ctx, wallet, payload)
	if err != nil {
		if cb := s.breaker(payload.ChainID); cb != nil {
			cb.RecordFailure()
		}
		metrics.SubmissionErrors.WithLabelValues(chainLabel).Inc()
		metrics.StepsExecuted.WithLabelValues(chainLabel, string(action), "submit_error").Inc()
		return "", fmt.Errorf("failed to broadcast on chain %d: %v", payload.ChainID, err)
	}
	if cb := s.breaker(payload.ChainID); cb != nil {
		cb.RecordSuccess()
	}
	s.logger.InfoWithChain(payload.ChainID, "Broadcast %s transaction %s for wallet %s", action, hash, wallet)
	return hash, nil
}

// submitAndConfirm pushes one payload through the signer and polls until
// the receipt settles. Returns the broadcast hash even on error so callers
// can surface it with an unknown outcome.
func (s *Service) submitAndConfirm(ctx context.Context, chain ChainReader, wallet string, payload models.TxPayload, action models.StepAction) (string, error) {
	chainLabel := strconv.Itoa(payload.ChainID)

	start := time.Now()
	hash, err := s.broadcast(ctx, wallet, payload, action)
	if err != nil {
		return "", err
	}

	outcome, err := confirm.Await(ctx, chain, common.HexToHash(hash),
		confirm.WithMaxAttempts(s.cfg.ConfirmMaxAttempts),
		confirm.WithInterval(s.cfg.ConfirmInterval),
		confirm.WithLogger(s.logger),
	)
	if err != nil {
		if _, ok := err.(*confirm.TimeoutError); ok {
			metrics.ConfirmationTimeouts.WithLabelValues(chainLabel).Inc()
		}
		metrics.StepsExecuted.WithLabelValues(chainLabel, string(action), "failed").Inc()
		return hash, err
	}

	metrics.ConfirmationAttempts.WithLabelValues(chainLabel).Observe(float64(outcome.Attempts))
	metrics.StepExecutionTime.WithLabelValues(chainLabel).Observe(time.Since(start).Seconds())
	metrics.StepsExecuted.WithLabelValues(chainLabel, string(action), "confirmed").Inc()
	s.logger.InfoWithChain(payload.ChainID, "Transaction %s confirmed in block %d", hash, outcome.Receipt.BlockNumber.Uint64())
	return hash, nil
}

// ensureAllowance checks the wallet's ERC-20 allowance toward spender and,
// only when it is short, synthesizes and executes an approval for exactly
// the required amount. Approving is itself a full step: preflighted,
// signed, and confirmed before the paired action may proceed.
func (s *Service) ensureAllowance(ctx context.Context, chain ChainReader, chainID int, wallet, token, spender string, required *big.Int) error {
	if token == "" || token == models.ZeroAddress || spender == "" || required == nil || required.Sign() <= 0 {
		return nil
	}

	owner := common.HexToAddress(wallet)
	tokenAddr := common.HexToAddress(token)
	spenderAddr := common.HexToAddress(spender)

	allowance, err := chain.Allowance(ctx, tokenAddr, owner, spenderAddr)
	if err != nil {
		return fmt.Errorf("failed to read allowance for token %s: %v", token, err)
	}
	if allowance.Cmp(required) >= 0 {
		s.logger.DebugWithChain(chainID, "Allowance %s for %s already covers %s", allowance, spender, required)
		return nil
	}

	data, err := chainclient.EncodeApprove(spenderAddr, required)
	if err != nil {
		return fmt.Errorf("failed to encode approval: %v", err)
	}
	payload := models.TxPayload{
		ChainID: chainID,
		To:      token,
		Data:    data,
	}

	gasLimit, err := s.preflight(ctx, chain, owner, payload, "", nil)
	if err != nil {
		return fmt.Errorf("approval preflight failed: %v", err)
	}
	payload.GasLimit = gasLimit

	if _, err := s.submitAndConfirm(ctx, chain, wallet, payload, models.ActionApprove); err != nil {
		// An unconfirmed approval blocks the paired action either way, so
		// the distinction between revert and timeout is not kept here.
		return fmt.Errorf("approval for %s did not confirm: %v", spender, err)
	}
	metrics.ApprovalsSent.WithLabelValues(strconv.Itoa(chainID)).Inc()
	return nil
}

// executeStep runs one route step to completion: top up allowance if the
// step spends a token, refresh the call data, preflight, sign, confirm
func (s *Service) executeStep(ctx context.Context, step models.RouteStep, wallet string) (models.StepResult, error) {
	chain, err := s.resolveChain(step.ChainID)
	if err != nil {
		return models.StepResult{}, err
	}

	if !step.NativeInput() {
		if err := s.ensureAllowance(ctx, chain, step.ChainID, wallet, step.InputToken, step.ApprovalSpender, step.EstimatedInput); err != nil {
			return models.StepResult{}, err
		}
	}

	// Call data is refetched right before signing because quotes go stale
	payload, err := s.agg.GetStepPayload(ctx, step)
	if err != nil {
		return models.StepResult{}, fmt.Errorf("failed to fetch step transaction: %v", err)
	}

	spendToken := ""
	var spendAmount *big.Int
	if !step.NativeInput() {
		spendToken = step.InputToken
		spendAmount = step.EstimatedInput
	}
	gasLimit, err := s.preflight(ctx, chain, common.HexToAddress(wallet), payload, spendToken, spendAmount)
	if err != nil {
		return models.StepResult{}, err
	}
	if payload.GasLimit == 0 {
		payload.GasLimit = gasLimit
	}

	hash, err := s.submitAndConfirm(ctx, chain, wallet, payload, step.Action)
	if err != nil {
		return models.StepResult{TxHash: hash}, err
	}
	return models.StepResult{TxHash: hash, Confirmed: true}, nil
}
