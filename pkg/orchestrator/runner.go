package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mohitM0/eliza-tx/pkg/aggregator"
	"github.com/mohitM0/eliza-tx/pkg/chainclient"
	"github.com/mohitM0/eliza-tx/pkg/confirm"
	"github.com/mohitM0/eliza-tx/pkg/metrics"
	"github.com/mohitM0/eliza-tx/pkg/models"
)

const nativeDecimals = 18

// bridgeStatusAttempts bounds how long a single-leg bridge submit waits
// for the aggregator to report settlement before handing back IN_PROGRESS
const bridgeStatusAttempts = 20

// Submit runs a transfer request to its user-visible outcome. It never
// returns an error: every failure mode maps onto one of the three outcome
// statuses, with the message carrying the detail.
func (s *Service) Submit(ctx context.Context, req models.TransferRequest) models.Outcome {
	outcome := s.run(ctx, req)
	metrics.TransfersSubmitted.WithLabelValues(string(req.Kind), string(outcome.Status)).Inc()
	if outcome.Status == models.StatusFailed {
		s.logger.ErrorWithChain(req.SourceChain, "Request %s failed: %s", req.CorrelationID, outcome.Message)
	} else {
		s.logger.InfoWithChain(req.SourceChain, "Request %s finished %s (tx %s)", req.CorrelationID, outcome.Status, outcome.Hash)
	}
	return outcome
}

func (s *Service) run(ctx context.Context, req models.TransferRequest) models.Outcome {
	if err := validateRequest(req); err != nil {
		return models.Outcome{Status: models.StatusFailed, Message: err.Error()}
	}

	switch req.Kind {
	case models.KindTransfer:
		return s.runTransfer(ctx, req)
	case models.KindSwap:
		return s.runSwap(ctx, req)
	case models.KindBridge:
		return s.runBridge(ctx, req)
	default:
		return models.Outcome{Status: models.StatusFailed, Message: fmt.Sprintf("unknown request kind %q", req.Kind)}
	}
}

func validateRequest(req models.TransferRequest) error {
	if !common.IsHexAddress(req.WalletAddress) {
		return fmt.Errorf("invalid wallet address %q", req.WalletAddress)
	}
	if req.SourceChain == 0 {
		return fmt.Errorf("source chain is required")
	}
	if req.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	switch req.Kind {
	case models.KindTransfer:
		if !common.IsHexAddress(req.ToAddress) {
			return fmt.Errorf("invalid recipient address %q", req.ToAddress)
		}
	case models.KindSwap:
		if req.ToToken == "" {
			return fmt.Errorf("destination token is required for a swap")
		}
	case models.KindBridge:
		if req.DestinationChain == 0 || req.DestinationChain == req.SourceChain {
			return fmt.Errorf("bridge requires a distinct destination chain")
		}
	}
	return nil
}

// resolveAsset turns the request's token field into an address and the
// human amount into base units. An empty token means the native asset.
func (s *Service) resolveAsset(ctx context.Context, chainID int, token, amount string) (string, *big.Int, error) {
	if token == "" {
		units, err := models.ToBaseUnits(amount, nativeDecimals)
		return "", units, err
	}
	meta, err := s.agg.GetToken(ctx, chainID, token)
	if err != nil {
		return "", nil, err
	}
	units, err := models.ToBaseUnits(amount, meta.Decimals)
	if err != nil {
		return "", nil, err
	}
	return meta.Address, units, nil
}

// runTransfer moves an asset to another address on one chain. The payload
// is built locally, no route plan is needed. The call returns as soon as
// the transaction is broadcast; confirmation is watched in the background.
func (s *Service) runTransfer(ctx context.Context, req models.TransferRequest) models.Outcome {
	chain, err := s.resolveChain(req.SourceChain)
	if err != nil {
		return outcomeFromError(err)
	}
	tokenAddr, amount, err := s.resolveAsset(ctx, req.SourceChain, req.FromToken, req.Amount)
	if err != nil {
		return outcomeFromError(err)
	}

	payload := models.TxPayload{ChainID: req.SourceChain}
	spendToken := ""
	var spendAmount *big.Int
	if tokenAddr == "" {
		payload.To = req.ToAddress
		payload.Value = amount.String()
	} else {
		data, err := chainclient.EncodeTransfer(common.HexToAddress(req.ToAddress), amount)
		if err != nil {
			return outcomeFromError(err)
		}
		payload.To = tokenAddr
		payload.Data = data
		spendToken = tokenAddr
		spendAmount = amount
	}

	gasLimit, err := s.preflight(ctx, chain, common.HexToAddress(req.WalletAddress), payload, spendToken, spendAmount)
	if err != nil {
		return outcomeFromError(err)
	}
	payload.GasLimit = gasLimit

	hash, err := s.broadcast(ctx, req.WalletAddress, payload, models.ActionExecute)
	if err != nil {
		return outcomeFromError(err)
	}
	s.watchConfirmation(chain, req.SourceChain, hash)

	return models.Outcome{
		Status:  models.StatusInProgress,
		Message: "transfer broadcast, awaiting confirmation",
		Hash:    hash,
	}
}

// watchConfirmation follows a broadcast transaction in the background so a
// transfer submit does not block for the full confirmation budget. The
// watcher gets its own context: the request context ends with the request.
func (s *Service) watchConfirmation(chain ChainReader, chainID int, hash string) {
	attempts := s.cfg.ConfirmMaxAttempts
	if attempts <= 0 {
		attempts = confirm.DefaultMaxAttempts
	}
	interval := s.cfg.ConfirmInterval
	if interval <= 0 {
		interval = confirm.DefaultInterval
	}
	budget := time.Duration(attempts)*interval + time.Minute

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()

		outcome, err := confirm.Await(ctx, chain, common.HexToHash(hash),
			confirm.WithMaxAttempts(attempts),
			confirm.WithInterval(interval),
			confirm.WithLogger(s.logger),
		)
		label := strconv.Itoa(chainID)
		if err != nil {
			if _, ok := err.(*confirm.TimeoutError); ok {
				metrics.ConfirmationTimeouts.WithLabelValues(label).Inc()
			}
			metrics.StepsExecuted.WithLabelValues(label, string(models.ActionExecute), "failed").Inc()
			s.logger.ErrorWithChain(chainID, "Transfer %s did not confirm: %v", hash, err)
			return
		}
		metrics.ConfirmationAttempts.WithLabelValues(label).Observe(float64(outcome.Attempts))
		metrics.StepsExecuted.WithLabelValues(label, string(models.ActionExecute), "confirmed").Inc()
		s.logger.InfoWithChain(chainID, "Transfer %s confirmed in block %d", hash, outcome.Receipt.BlockNumber.Uint64())
	}()
}

// runSwap exchanges assets on a single chain through the aggregator's
// route plan and blocks until the final step confirms
func (s *Service) runSwap(ctx context.Context, req models.TransferRequest) models.Outcome {
	if _, err := s.resolveChain(req.SourceChain); err != nil {
		return outcomeFromError(err)
	}
	fromAddr, amount, err := s.resolveAsset(ctx, req.SourceChain, req.FromToken, req.Amount)
	if err != nil {
		return outcomeFromError(err)
	}
	if fromAddr == "" {
		fromAddr = models.ZeroAddress
	}
	toToken, err := s.agg.GetToken(ctx, req.SourceChain, req.ToToken)
	if err != nil {
		return outcomeFromError(err)
	}

	plan, err := s.agg.GetRoutePlan(ctx, aggregator.RouteQuery{
		FromChainID:     req.SourceChain,
		ToChainID:       req.SourceChain,
		FromToken:       fromAddr,
		ToToken:         toToken.Address,
		AmountBaseUnits: amount.String(),
		FromAddress:     req.WalletAddress,
		ToAddress:       req.ToAddress,
	})
	if err != nil {
		return outcomeFromError(err)
	}
	if len(plan.Steps) == 0 {
		return outcomeFromError(ErrNoRoute)
	}

	lastHash := ""
	for _, step := range plan.Steps {
		result, err := s.executeStep(ctx, step, req.WalletAddress)
		if err != nil {
			return outcomeFromError(err)
		}
		lastHash = result.TxHash
	}
	return models.Outcome{Status: models.StatusSuccess, Message: "swap completed", Hash: lastHash}
}

// runBridge moves an asset to another chain. Source-chain steps run to
// confirmation synchronously; a step that must run on the destination
// chain is persisted and left for the resumption sweep, because bridged
// funds take minutes to arrive.
func (s *Service) runBridge(ctx context.Context, req models.TransferRequest) models.Outcome {
	if _, err := s.resolveChain(req.SourceChain); err != nil {
		return outcomeFromError(err)
	}
	if _, err := s.resolveChain(req.DestinationChain); err != nil {
		return outcomeFromError(err)
	}

	fromAddr, amount, err := s.resolveAsset(ctx, req.SourceChain, req.FromToken, req.Amount)
	if err != nil {
		return outcomeFromError(err)
	}
	if fromAddr == "" {
		fromAddr = models.ZeroAddress
	}
	toTokenAddr := models.ZeroAddress
	if req.ToToken != "" {
		toToken, err := s.agg.GetToken(ctx, req.DestinationChain, req.ToToken)
		if err != nil {
			return outcomeFromError(err)
		}
		toTokenAddr = toToken.Address
	}

	query := aggregator.RouteQuery{
		FromChainID:     req.SourceChain,
		ToChainID:       req.DestinationChain,
		FromToken:       fromAddr,
		ToToken:         toTokenAddr,
		AmountBaseUnits: amount.String(),
		FromAddress:     req.WalletAddress,
		ToAddress:       req.ToAddress,
	}

	// Arriving with zero gas strands the funds, so part of the input can
	// be diverted into destination-chain gas when the aggregator offers it
	suggestion, err := s.agg.GetGasSuggestion(ctx, req.DestinationChain, fromAddr, req.SourceChain)
	if err != nil {
		s.logger.DebugWithChain(req.DestinationChain, "Gas suggestion unavailable: %v", err)
	} else if suggestion.Available && suggestion.FromAmount != "" {
		query.FromAmountForGas = suggestion.FromAmount
	}

	plan, err := s.agg.GetRoutePlan(ctx, query)
	if err != nil {
		return outcomeFromError(err)
	}
	if len(plan.Steps) == 0 {
		return outcomeFromError(ErrNoRoute)
	}

	sourceChainID := plan.Steps[0].ChainID
	lastHash := ""
	var lastStep models.RouteStep
	crossed := false
	for _, step := range plan.Steps {
		if !crossed && step.ChainID != sourceChainID {
			// The wallet may hold no gas on the destination chain yet. If it
			// does, the leg can run in-line once the bridge settles; if not,
			// the sweep takes over after the bridged funds (and the gas
			// top-up bought above) arrive.
			if !s.destinationGasFunded(ctx, step, req.WalletAddress) {
				return s.deferSecondLeg(ctx, req, step, lastHash, lastStep.DurationEstimate)
			}
			switch s.pollBridgeStatus(ctx, lastHash) {
			case aggregator.BridgeStatusFailed:
				return models.Outcome{Status: models.StatusFailed, Message: "bridge failed after source transaction confirmed", Hash: lastHash}
			case aggregator.BridgeStatusDone:
				crossed = true
			default:
				// Settlement outran the in-request budget; hand the leg to
				// the sweep rather than holding the request open
				return s.deferSecondLeg(ctx, req, step, lastHash, lastStep.DurationEstimate)
			}
		}
		result, err := s.executeStep(ctx, step, req.WalletAddress)
		if err != nil {
			return outcomeFromError(err)
		}
		lastHash = result.TxHash
		lastStep = step
	}
	if crossed {
		return models.Outcome{Status: models.StatusSuccess, Message: "bridge completed", Hash: lastHash}
	}

	// Every step ran on the source chain: the bridge settles on its own,
	// poll the aggregator until it reports the funds arrived
	return s.awaitBridgeSettlement(ctx, lastHash)
}

// destinationGasFunded reports whether the wallet already holds enough
// native balance on the step's chain to pay for its gas. Unreadable
// balances and missing estimates count as unfunded: the safe default is
// letting the sweep handle the leg later.
func (s *Service) destinationGasFunded(ctx context.Context, step models.RouteStep, wallet string) bool {
	if step.EstimatedGasLimit == 0 {
		return false
	}
	chain, err := s.resolveChain(step.ChainID)
	if err != nil {
		return false
	}
	gasPrice, err := chain.EffectiveGasPrice(ctx)
	if err != nil {
		return false
	}
	balance, err := chain.NativeBalance(ctx, common.HexToAddress(wallet))
	if err != nil {
		return false
	}
	cost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(step.EstimatedGasLimit))
	return balance.Cmp(cost) > 0
}

// deferSecondLeg persists a destination-chain step for the resumption
// sweep. The payload is fetched now so the record is self-contained: the
// sweep must not depend on the aggregator re-planning the same route.
func (s *Service) deferSecondLeg(ctx context.Context, req models.TransferRequest, step models.RouteStep, firstLegHash string, firstLegDuration time.Duration) models.Outcome {
	payload, err := s.agg.GetStepPayload(ctx, step)
	if err != nil {
		return models.Outcome{
			Status:  models.StatusInProgress,
			Message: fmt.Sprintf("first leg confirmed but second leg could not be prepared: %v", err),
			Hash:    firstLegHash,
		}
	}

	wait := firstLegDuration
	if wait < s.cfg.SettleDelay {
		wait = s.cfg.SettleDelay
	}
	record := &models.PendingTransaction{
		CorrelationID:   req.CorrelationID,
		WalletAddress:   req.WalletAddress,
		FirstLegTxHash:  firstLegHash,
		FirstLegReadyAt: s.now().Add(wait),
		SecondLeg:       payload,
	}
	if !step.NativeInput() {
		record.ApprovalToken = step.InputToken
		record.ApprovalTarget = step.ApprovalSpender
		if step.EstimatedInput != nil {
			record.ApprovalAmount = step.EstimatedInput.String()
		}
	}

	if err := s.store.Create(ctx, record); err != nil {
		// The first leg already settled on-chain; losing the record means
		// losing the bridge, so this is surfaced loudly
		s.logger.Error("Failed to persist second leg for tx %s: %v", firstLegHash, err)
		return models.Outcome{
			Status:  models.StatusInProgress,
			Message: fmt.Sprintf("first leg confirmed but second leg could not be persisted: %v", err),
			Hash:    firstLegHash,
		}
	}
	metrics.PendingSecondLegs.Inc()
	s.logger.InfoWithChain(step.ChainID, "Deferred second leg %s for tx %s, due %s", record.ID, firstLegHash, record.FirstLegReadyAt.Format(time.RFC3339))

	return models.Outcome{
		Status:  models.StatusInProgress,
		Message: "first leg confirmed, second leg deferred until bridged funds arrive",
		Hash:    firstLegHash,
	}
}

// pollBridgeStatus waits out the settle delay, then queries the
// aggregator's status endpoint until the bridge resolves or the attempt
// budget runs out. The first query is delayed because indexers lag the
// chain right after confirmation.
func (s *Service) pollBridgeStatus(ctx context.Context, txHash string) aggregator.BridgeStatus {
	select {
	case <-ctx.Done():
		return aggregator.BridgeStatusPending
	case <-time.After(s.cfg.SettleDelay):
	}

	for attempt := 0; attempt < bridgeStatusAttempts; attempt++ {
		status, err := s.agg.GetBridgeStatus(ctx, txHash)
		if err != nil {
			s.logger.Debug("Bridge status query for %s failed: %v", txHash, err)
		} else if status == aggregator.BridgeStatusDone || status == aggregator.BridgeStatusFailed {
			return status
		}
		select {
		case <-ctx.Done():
			return aggregator.BridgeStatusPending
		case <-time.After(s.cfg.StatusPollInterval):
		}
	}
	return aggregator.BridgeStatusPending
}

// awaitBridgeSettlement maps the bridge status of a plan that needs no
// second transaction onto a user-visible outcome.
func (s *Service) awaitBridgeSettlement(ctx context.Context, txHash string) models.Outcome {
	switch s.pollBridgeStatus(ctx, txHash) {
	case aggregator.BridgeStatusDone:
		return models.Outcome{Status: models.StatusSuccess, Message: "bridge completed", Hash: txHash}
	case aggregator.BridgeStatusFailed:
		return models.Outcome{Status: models.StatusFailed, Message: "bridge failed after source transaction confirmed", Hash: txHash}
	default:
		return models.Outcome{Status: models.StatusInProgress, Message: "bridge settlement still pending", Hash: txHash}
	}
}
