package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mohitM0/eliza-tx/pkg/metrics"
	"github.com/mohitM0/eliza-tx/pkg/models"
)

// gasEstimateBuffer pads the simulated gas limit, matching what wallets do
// to absorb state drift between estimation and inclusion
const gasEstimateBuffer = 120 // percent

// preflight validates a payload before it is handed to the signer: the
// wallet must hold the spent asset, cover gas on top of any native value,
// and the chain's gas price must be under the configured cap. The gas
// estimate doubles as a dry-run, so payloads that would revert are
// rejected here instead of burning gas on-chain.
func (s *Service) preflight(ctx context.Context, chain ChainReader, wallet common.Address, payload models.TxPayload, spendToken string, spendAmount *big.Int) (uint64, error) {
	chainLabel := strconv.Itoa(payload.ChainID)

	gasPrice, err := chain.EffectiveGasPrice(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch gas price on chain %d: %v", payload.ChainID, err)
	}
	metrics.GasPrice.WithLabelValues(chainLabel).Set(weiToGwei(gasPrice))
	if !chain.IsWithinMax(gasPrice) {
		metrics.PreflightFailures.WithLabelValues(chainLabel, "gas_price").Inc()
		return 0, &GasPriceTooHighError{ChainID: payload.ChainID, GasPrice: gasPrice}
	}

	gasLimit, err := chain.EstimateGas(ctx, wallet, payload)
	if err != nil {
		metrics.PreflightFailures.WithLabelValues(chainLabel, "simulation").Inc()
		return 0, fmt.Errorf("transaction simulation failed on chain %d: %v", payload.ChainID, err)
	}
	gasLimit = gasLimit * gasEstimateBuffer / 100

	value, err := payload.ValueWei()
	if err != nil {
		return 0, fmt.Errorf("invalid payload value: %v", err)
	}

	// Native balance must cover gas plus whatever native value the call sends
	gasCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))
	nativeNeed := new(big.Int).Add(gasCost, value)
	nativeHave, err := chain.NativeBalance(ctx, wallet)
	if err != nil {
		return 0, fmt.Errorf("failed to read native balance on chain %d: %v", payload.ChainID, err)
	}
	if nativeHave.Cmp(nativeNeed) < 0 {
		metrics.PreflightFailures.WithLabelValues(chainLabel, "gas_funds").Inc()
		return 0, &InsufficientGasError{ChainID: payload.ChainID, Need: nativeNeed, Have: nativeHave}
	}

	// Token spend is checked separately from gas, the two never share a balance
	if spendToken != "" && spendAmount != nil && spendAmount.Sign() > 0 {
		have, err := chain.TokenBalance(ctx, common.HexToAddress(spendToken), wallet)
		if err != nil {
			return 0, fmt.Errorf("failed to read balance of token %s on chain %d: %v", spendToken, payload.ChainID, err)
		}
		if have.Cmp(spendAmount) < 0 {
			metrics.PreflightFailures.WithLabelValues(chainLabel, "token_balance").Inc()
			return 0, &InsufficientBalanceError{ChainID: payload.ChainID, Token: spendToken, Need: spendAmount, Have: have}
		}
	}

	return gasLimit, nil
}

func weiToGwei(wei *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()
	return f
}
