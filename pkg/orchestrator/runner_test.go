package orchestrator

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohitM0/eliza-tx/pkg/aggregator"
	"github.com/mohitM0/eliza-tx/pkg/models"
)

func TestNativeTransferBroadcastsAndReturnsInProgress(t *testing.T) {
	env := newTestEnv(10)
	env.chains[10].native = big.NewInt(0).Mul(big.NewInt(3), big.NewInt(1e18))

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:          models.KindTransfer,
		WalletAddress: testWallet,
		SourceChain:   10,
		ToAddress:     testRecipient,
		Amount:        "1.5",
	})
	env.svc.Wait()

	assert.Equal(t, models.StatusInProgress, outcome.Status)
	assert.NotEmpty(t, outcome.Hash)
	require.Equal(t, 1, env.signer.callCount())

	call := env.signer.call(0)
	assert.Equal(t, testWallet, call.Wallet)
	assert.Equal(t, testRecipient, call.Payload.To)
	assert.Equal(t, "1500000000000000000", call.Payload.Value)
	assert.NotZero(t, call.Payload.GasLimit)
}

func TestTokenTransferBuildsCalldata(t *testing.T) {
	env := newTestEnv(10)
	env.agg.setToken(10, "USDC", aggregator.Token{Address: testToken, Symbol: "USDC", Decimals: 6})
	env.chains[10].setToken(testToken, big.NewInt(10_000_000))

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:          models.KindTransfer,
		WalletAddress: testWallet,
		SourceChain:   10,
		ToAddress:     testRecipient,
		Amount:        "2.5",
		FromToken:     "USDC",
	})
	env.svc.Wait()

	assert.Equal(t, models.StatusInProgress, outcome.Status)
	require.Equal(t, 1, env.signer.callCount())

	call := env.signer.call(0)
	assert.Equal(t, testToken, call.Payload.To)
	assert.True(t, strings.HasPrefix(call.Payload.Data, "0xa9059cbb"), "expected transfer selector, got %s", call.Payload.Data)
	assert.Empty(t, call.Payload.Value)
}

func TestTransferRejectedWhenTokenBalanceShort(t *testing.T) {
	env := newTestEnv(10)
	env.agg.setToken(10, "USDC", aggregator.Token{Address: testToken, Symbol: "USDC", Decimals: 6})
	env.chains[10].setToken(testToken, big.NewInt(999_999))

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:          models.KindTransfer,
		WalletAddress: testWallet,
		SourceChain:   10,
		ToAddress:     testRecipient,
		Amount:        "1",
		FromToken:     "USDC",
	})

	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Message, "insufficient")
	assert.Zero(t, env.signer.callCount(), "nothing may reach the signer after a failed preflight")
}

func TestTransferRejectedWhenGasFundsShort(t *testing.T) {
	env := newTestEnv(10)
	env.chains[10].native = big.NewInt(1000) // cannot even cover gas

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:          models.KindTransfer,
		WalletAddress: testWallet,
		SourceChain:   10,
		ToAddress:     testRecipient,
		Amount:        "0.000000000000000001",
	})

	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Zero(t, env.signer.callCount())
}

func TestTransferRejectedWhenGasPriceOverCap(t *testing.T) {
	env := newTestEnv(10)
	env.chains[10].overMax = true

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:          models.KindTransfer,
		WalletAddress: testWallet,
		SourceChain:   10,
		ToAddress:     testRecipient,
		Amount:        "1",
	})

	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Zero(t, env.signer.callCount())
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(10)
	cases := []struct {
		name string
		req  models.TransferRequest
	}{
		{"bad wallet", models.TransferRequest{Kind: models.KindTransfer, WalletAddress: "nope", SourceChain: 10, ToAddress: testRecipient, Amount: "1"}},
		{"missing chain", models.TransferRequest{Kind: models.KindTransfer, WalletAddress: testWallet, ToAddress: testRecipient, Amount: "1"}},
		{"missing amount", models.TransferRequest{Kind: models.KindTransfer, WalletAddress: testWallet, SourceChain: 10, ToAddress: testRecipient}},
		{"bad recipient", models.TransferRequest{Kind: models.KindTransfer, WalletAddress: testWallet, SourceChain: 10, ToAddress: "xyz", Amount: "1"}},
		{"swap without target token", models.TransferRequest{Kind: models.KindSwap, WalletAddress: testWallet, SourceChain: 10, Amount: "1"}},
		{"bridge to same chain", models.TransferRequest{Kind: models.KindBridge, WalletAddress: testWallet, SourceChain: 10, DestinationChain: 10, Amount: "1"}},
		{"unknown kind", models.TransferRequest{Kind: "stake", WalletAddress: testWallet, SourceChain: 10, Amount: "1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := env.svc.Submit(t.Context(), tc.req)
			assert.Equal(t, models.StatusFailed, outcome.Status)
		})
	}
	assert.Zero(t, env.signer.callCount())
}

func TestUnknownChainFails(t *testing.T) {
	env := newTestEnv(10)

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:          models.KindTransfer,
		WalletAddress: testWallet,
		SourceChain:   999,
		ToAddress:     testRecipient,
		Amount:        "1",
	})

	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Message, "not configured")
}

func swapPlan(steps ...models.RouteStep) models.RoutePlan {
	return models.RoutePlan{ID: "route-1", Steps: steps}
}

func executeStepOn(chainID int, id string) models.RouteStep {
	return models.RouteStep{
		ID:      id,
		ChainID: chainID,
		Action:  models.ActionExecute,
		Payload: models.TxPayload{ChainID: chainID, To: testRouter, Data: "0xdead", GasLimit: 100000},
	}
}

func TestSwapRunsStepsInOrder(t *testing.T) {
	env := newTestEnv(10)
	env.agg.setToken(10, "DAI", aggregator.Token{Address: testToken, Symbol: "DAI", Decimals: 18})
	env.agg.plan = swapPlan(executeStepOn(10, "s1"), executeStepOn(10, "s2"))
	env.agg.payloads["s1"] = models.TxPayload{ChainID: 10, To: testRouter, Data: "0x01", GasLimit: 90000}
	env.agg.payloads["s2"] = models.TxPayload{ChainID: 10, To: testRouter, Data: "0x02", GasLimit: 90000}

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:          models.KindSwap,
		WalletAddress: testWallet,
		SourceChain:   10,
		Amount:        "1",
		ToToken:       "DAI",
	})

	assert.Equal(t, models.StatusSuccess, outcome.Status)
	require.Equal(t, 2, env.signer.callCount())
	assert.Equal(t, "0x01", env.signer.call(0).Payload.Data)
	assert.Equal(t, "0x02", env.signer.call(1).Payload.Data)
	assert.Equal(t, env.signer.call(1).Hash, outcome.Hash)
}

func TestSwapSynthesizesApprovalWhenAllowanceShort(t *testing.T) {
	env := newTestEnv(10)
	env.agg.setToken(10, "DAI", aggregator.Token{Address: "0x6666666666666666666666666666666666666666", Symbol: "DAI", Decimals: 18})
	env.agg.setToken(10, testToken, aggregator.Token{Address: testToken, Symbol: "TKN", Decimals: 18})

	amount := big.NewInt(1000)
	step := executeStepOn(10, "s1")
	step.InputToken = testToken
	step.ApprovalSpender = testSpender
	step.EstimatedInput = amount
	env.agg.plan = swapPlan(step)

	env.chains[10].setToken(testToken, big.NewInt(5000))
	env.chains[10].setAllowance(testToken, testSpender, big.NewInt(999)) // one short

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:          models.KindSwap,
		WalletAddress: testWallet,
		SourceChain:   10,
		Amount:        "0.000000000000001",
		FromToken:     testToken,
		ToToken:       "DAI",
	})

	assert.Equal(t, models.StatusSuccess, outcome.Status)
	require.Equal(t, 2, env.signer.callCount())

	approval := env.signer.call(0)
	assert.Equal(t, testToken, approval.Payload.To)
	assert.True(t, strings.HasPrefix(approval.Payload.Data, "0x095ea7b3"), "expected approve selector, got %s", approval.Payload.Data)
	assert.Equal(t, "0xdead", env.signer.call(1).Payload.Data)
}

func TestSwapSkipsApprovalWhenAllowanceCovers(t *testing.T) {
	env := newTestEnv(10)
	env.agg.setToken(10, "DAI", aggregator.Token{Address: "0x6666666666666666666666666666666666666666", Symbol: "DAI", Decimals: 18})
	env.agg.setToken(10, testToken, aggregator.Token{Address: testToken, Symbol: "TKN", Decimals: 18})

	amount := big.NewInt(1000)
	step := executeStepOn(10, "s1")
	step.InputToken = testToken
	step.ApprovalSpender = testSpender
	step.EstimatedInput = amount
	env.agg.plan = swapPlan(step)

	env.chains[10].setToken(testToken, big.NewInt(5000))
	env.chains[10].setAllowance(testToken, testSpender, big.NewInt(1000)) // exactly enough

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:          models.KindSwap,
		WalletAddress: testWallet,
		SourceChain:   10,
		Amount:        "0.000000000000001",
		FromToken:     testToken,
		ToToken:       "DAI",
	})

	assert.Equal(t, models.StatusSuccess, outcome.Status)
	assert.Equal(t, 1, env.signer.callCount(), "allowance already covers the spend, no approval expected")
}

func TestSwapRevertHaltsRemainingSteps(t *testing.T) {
	env := newTestEnv(10)
	env.agg.setToken(10, "DAI", aggregator.Token{Address: testToken, Symbol: "DAI", Decimals: 18})
	env.agg.plan = swapPlan(executeStepOn(10, "s1"), executeStepOn(10, "s2"))
	env.signer.revert = true

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:          models.KindSwap,
		WalletAddress: testWallet,
		SourceChain:   10,
		Amount:        "1",
		ToToken:       "DAI",
	})

	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Message, "reverted")
	assert.Equal(t, 1, env.signer.callCount(), "a reverted step must halt the plan")
}

func TestSwapTimeoutReportsInProgress(t *testing.T) {
	env := newTestEnv(10)
	env.agg.setToken(10, "DAI", aggregator.Token{Address: testToken, Symbol: "DAI", Decimals: 18})
	env.agg.plan = swapPlan(executeStepOn(10, "s1"))
	env.signer.noReceipt = true

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:          models.KindSwap,
		WalletAddress: testWallet,
		SourceChain:   10,
		Amount:        "1",
		ToToken:       "DAI",
	})

	assert.Equal(t, models.StatusInProgress, outcome.Status, "an unconfirmed transaction is not a failure")
	assert.NotEmpty(t, outcome.Hash)
}

func TestSwapWithoutRouteFails(t *testing.T) {
	env := newTestEnv(10)
	env.agg.setToken(10, "DAI", aggregator.Token{Address: testToken, Symbol: "DAI", Decimals: 18})

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:          models.KindSwap,
		WalletAddress: testWallet,
		SourceChain:   10,
		Amount:        "1",
		ToToken:       "DAI",
	})

	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Message, "no route")
	assert.Zero(t, env.signer.callCount())
}

func TestBridgeDefersSecondLeg(t *testing.T) {
	env := newTestEnv(10, 8453)

	first := executeStepOn(10, "leg1")
	first.ToChainID = 8453
	first.DurationEstimate = 10 * time.Minute
	second := executeStepOn(8453, "leg2")
	second.InputToken = testToken
	second.ApprovalSpender = testSpender
	second.EstimatedInput = big.NewInt(500)
	env.agg.plan = swapPlan(first, second)
	env.agg.payloads["leg2"] = models.TxPayload{ChainID: 8453, To: testRouter, Data: "0xbeef", GasLimit: 80000}

	start := time.Now()
	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:             models.KindBridge,
		WalletAddress:    testWallet,
		SourceChain:      10,
		DestinationChain: 8453,
		Amount:           "1",
	})

	assert.Equal(t, models.StatusInProgress, outcome.Status)
	assert.Equal(t, 1, env.signer.callCount(), "only the first leg runs at submit time")
	require.Equal(t, 1, env.store.count())

	record := env.store.only()
	assert.Equal(t, models.LegPending, record.FirstLegStatus)
	assert.Equal(t, env.signer.call(0).Hash, record.FirstLegTxHash)
	assert.Equal(t, outcome.Hash, record.FirstLegTxHash)
	assert.Equal(t, "0xbeef", record.SecondLeg.Data)
	assert.Equal(t, 8453, record.SecondLeg.ChainID)
	assert.Equal(t, testToken, record.ApprovalToken)
	assert.Equal(t, testSpender, record.ApprovalTarget)
	assert.Equal(t, "500", record.ApprovalAmount)
	assert.False(t, record.FirstLegReadyAt.Before(start.Add(10*time.Minute)), "ready time must respect the bridge duration estimate")
}

func TestBridgeRunsSecondLegWhenGasFunded(t *testing.T) {
	env := newTestEnv(10, 8453)
	env.agg.defaultStatus = aggregator.BridgeStatusDone

	first := executeStepOn(10, "leg1")
	first.ToChainID = 8453
	second := executeStepOn(8453, "leg2")
	second.EstimatedGasLimit = 80000
	env.agg.plan = swapPlan(first, second)

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:             models.KindBridge,
		WalletAddress:    testWallet,
		SourceChain:      10,
		DestinationChain: 8453,
		Amount:           "1",
	})

	assert.Equal(t, models.StatusSuccess, outcome.Status)
	assert.Equal(t, 2, env.signer.callCount(), "the destination leg runs in-line when its gas is covered")
	assert.Equal(t, env.signer.call(1).Hash, outcome.Hash)
	assert.Zero(t, env.store.count(), "an in-line second leg needs no pending record")
}

func TestBridgeDefersWhenSettlementOutlastsPolling(t *testing.T) {
	env := newTestEnv(10, 8453)

	first := executeStepOn(10, "leg1")
	first.ToChainID = 8453
	second := executeStepOn(8453, "leg2")
	second.EstimatedGasLimit = 80000
	env.agg.plan = swapPlan(first, second)

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:             models.KindBridge,
		WalletAddress:    testWallet,
		SourceChain:      10,
		DestinationChain: 8453,
		Amount:           "1",
	})

	assert.Equal(t, models.StatusInProgress, outcome.Status)
	assert.Equal(t, 1, env.signer.callCount(), "a bridge that has not settled must not run the second leg")
	require.Equal(t, 1, env.store.count(), "the unsettled leg falls back to the sweep")
}

func TestBridgeUsesGasSuggestion(t *testing.T) {
	env := newTestEnv(10, 8453)
	env.agg.gas = aggregator.GasSuggestion{Available: true, FromAmount: "12345"}
	env.agg.defaultStatus = aggregator.BridgeStatusDone

	step := executeStepOn(10, "leg1")
	step.ToChainID = 8453
	env.agg.plan = swapPlan(step)

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:             models.KindBridge,
		WalletAddress:    testWallet,
		SourceChain:      10,
		DestinationChain: 8453,
		Amount:           "1",
	})

	assert.Equal(t, models.StatusSuccess, outcome.Status)
	require.Len(t, env.agg.planQueries, 1)
	assert.Equal(t, "12345", env.agg.planQueries[0].FromAmountForGas)
}

func TestBridgeSingleLegWaitsForSettlement(t *testing.T) {
	env := newTestEnv(10, 8453)
	env.agg.defaultStatus = aggregator.BridgeStatusDone

	step := executeStepOn(10, "leg1")
	step.ToChainID = 8453
	env.agg.plan = swapPlan(step)

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:             models.KindBridge,
		WalletAddress:    testWallet,
		SourceChain:      10,
		DestinationChain: 8453,
		Amount:           "1",
	})

	assert.Equal(t, models.StatusSuccess, outcome.Status)
	assert.Equal(t, 1, env.signer.callCount())
	assert.Zero(t, env.store.count(), "a single-leg bridge needs no pending record")
}

func TestBridgeSingleLegFailedSettlement(t *testing.T) {
	env := newTestEnv(10, 8453)
	env.agg.defaultStatus = aggregator.BridgeStatusFailed

	step := executeStepOn(10, "leg1")
	step.ToChainID = 8453
	env.agg.plan = swapPlan(step)

	outcome := env.svc.Submit(t.Context(), models.TransferRequest{
		Kind:             models.KindBridge,
		WalletAddress:    testWallet,
		SourceChain:      10,
		DestinationChain: 8453,
		Amount:           "1",
	})

	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.NotEmpty(t, outcome.Hash, "the confirmed source hash stays visible even on failure")
}
