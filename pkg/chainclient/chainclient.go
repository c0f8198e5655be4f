package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mohitM0/eliza-tx/pkg/logger"
	"github.com/mohitM0/eliza-tx/pkg/models"
)

// rpcTimeout bounds every single read against a chain endpoint
const rpcTimeout = 10 * time.Second

// Client wraps the RPC connection to one chain. All operations are reads;
// signing and broadcasting belong to the external custodial signer.
type Client struct {
	ChainID       int
	Name          string
	RPCURL        string
	MaxGasPrice   *big.Int
	GasMultiplier float64

	eth    *ethclient.Client
	logger logger.Logger
}

// New dials the chain's RPC endpoint and returns a connected client
func New(ctx context.Context, chainID int, name, rpcURL string, gasMultiplier float64, maxGasPrice *big.Int, log logger.Logger) (*Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("chain %d: RPC URL is required", chainID)
	}
	if gasMultiplier <= 0 {
		gasMultiplier = 1.1
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain %d: %v", chainID, err)
	}

	return &Client{
		ChainID:       chainID,
		Name:          name,
		RPCURL:        rpcURL,
		MaxGasPrice:   maxGasPrice,
		GasMultiplier: gasMultiplier,
		eth:           eth,
		logger:        log,
	}, nil
}

// Connected reports whether the client holds a live RPC handle
func (c *Client) Connected() bool {
	return c.eth != nil
}

// NativeBalance returns the wallet's native asset balance in wei
func (c *Client) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	balance, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance on chain %d: %v", c.ChainID, err)
	}
	return balance, nil
}

// TransactionReceipt satisfies confirm.ReceiptReader
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	return c.eth.TransactionReceipt(ctx, txHash)
}

// EstimateGas simulates the payload against the node and returns a gas limit
func (c *Client) EstimateGas(ctx context.Context, from common.Address, payload models.TxPayload) (uint64, error) {
	data, err := payload.DataBytes()
	if err != nil {
		return 0, err
	}
	value, err := payload.ValueWei()
	if err != nil {
		return 0, err
	}
	to := common.HexToAddress(payload.To)

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Data:  data,
		Value: value,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas on chain %d: %v", c.ChainID, err)
	}
	return gas, nil
}

// EffectiveGasPrice returns the suggested gas price with the chain's
// multiplier applied, without mutating any state
func (c *Client) EffectiveGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price on chain %d: %v", c.ChainID, err)
	}

	multiplied := new(big.Float).Mul(
		new(big.Float).SetInt(gasPrice),
		big.NewFloat(c.GasMultiplier),
	)
	final := new(big.Int)
	multiplied.Int(final)
	return final, nil
}

// IsWithinMax checks a gas price against the chain's configured cap
func (c *Client) IsWithinMax(gasPrice *big.Int) bool {
	if c.MaxGasPrice == nil || c.MaxGasPrice.Sign() == 0 {
		return true
	}
	return gasPrice.Cmp(c.MaxGasPrice) <= 0
}

// LatestBlockNumber gets the current chain head, used by readiness checks
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	return c.eth.BlockNumber(ctx)
}
