// Package aggregator is the client for the external route-finding service.
// It computes multi-step route plans for transfers, swaps and bridges, and
// exposes the asynchronous status of bridge legs across chains.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohitM0/eliza-tx/pkg/logger"
	"github.com/mohitM0/eliza-tx/pkg/models"
)

// BridgeStatus is the aggregator-side view of a bridge transfer. Unlike a
// raw receipt it accounts for both chains of a cross-chain move.
type BridgeStatus string

const (
	BridgeStatusPending  BridgeStatus = "PENDING"
	BridgeStatusDone     BridgeStatus = "DONE"
	BridgeStatusFailed   BridgeStatus = "FAILED"
	BridgeStatusNotFound BridgeStatus = "NOT_FOUND"
)

// Client represents an aggregator API client
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     logger.Logger
	tokens     *tokenCache
}

// New creates a new aggregator client
func New(endpoint string, log logger.Logger) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: createHTTPClient(),
		logger:     log,
		tokens:     newTokenCache(),
	}
}

// RouteQuery describes the asset movement a plan is requested for
type RouteQuery struct {
	FromChainID      int
	ToChainID        int
	FromToken        string
	ToToken          string
	AmountBaseUnits  string
	FromAddress      string
	ToAddress        string
	FromAmountForGas string
}

type routeResponse struct {
	Routes []struct {
		ID    string     `json:"id"`
		Steps []stepBody `json:"steps"`
	} `json:"routes"`
}

type stepBody struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Action struct {
		FromChainID int `json:"fromChainId"`
		ToChainID   int `json:"toChainId"`
		FromToken   struct {
			Address  string `json:"address"`
			Decimals int    `json:"decimals"`
		} `json:"fromToken"`
	} `json:"action"`
	Estimate struct {
		FromAmount        string `json:"fromAmount"`
		ApprovalAddress   string `json:"approvalAddress"`
		ExecutionDuration int64  `json:"executionDuration"`
		GasCosts          []struct {
			Estimate string `json:"estimate"`
		} `json:"gasCosts"`
	} `json:"estimate"`
	TransactionRequest *txRequestBody `json:"transactionRequest,omitempty"`
}

type txRequestBody struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	ChainID  int    `json:"chainId"`
	GasLimit string `json:"gasLimit"`
}

// GetRoutePlan asks the aggregator for an ordered plan realizing the query.
// An empty result is returned as a plan with no steps; deciding that this
// means "no route found" is the caller's business.
func (c *Client) GetRoutePlan(ctx context.Context, q RouteQuery) (models.RoutePlan, error) {
	vals := url.Values{}
	vals.Set("fromChain", strconv.Itoa(q.FromChainID))
	vals.Set("toChain", strconv.Itoa(q.ToChainID))
	vals.Set("fromToken", q.FromToken)
	vals.Set("toToken", q.ToToken)
	vals.Set("fromAmount", q.AmountBaseUnits)
	vals.Set("fromAddress", q.FromAddress)
	if q.ToAddress != "" {
		vals.Set("toAddress", q.ToAddress)
	}
	if q.FromAmountForGas != "" {
		vals.Set("fromAmountForGas", q.FromAmountForGas)
	}

	var resp routeResponse
	if err := c.getJSON(ctx, "/v1/routes?"+vals.Encode(), &resp); err != nil {
		return models.RoutePlan{}, err
	}
	if len(resp.Routes) == 0 {
		return models.RoutePlan{}, nil
	}

	// The aggregator orders routes best-first
	best := resp.Routes[0]
	plan := models.RoutePlan{ID: best.ID, Steps: make([]models.RouteStep, 0, len(best.Steps))}
	for i, body := range best.Steps {
		step, err := parseStep(body)
		if err != nil {
			return models.RoutePlan{}, fmt.Errorf("route %s step %d: %v", best.ID, i, err)
		}
		plan.Steps = append(plan.Steps, step)
	}
	return plan, nil
}

func parseStep(body stepBody) (models.RouteStep, error) {
	if body.ID == "" {
		return models.RouteStep{}, fmt.Errorf("missing step id")
	}
	if body.Action.FromChainID == 0 {
		return models.RouteStep{}, fmt.Errorf("missing chain id")
	}
	amount, ok := new(big.Int).SetString(body.Estimate.FromAmount, 10)
	if !ok {
		return models.RouteStep{}, fmt.Errorf("invalid input amount %q", body.Estimate.FromAmount)
	}

	var gasLimit uint64
	for _, cost := range body.Estimate.GasCosts {
		if v, err := strconv.ParseUint(cost.Estimate, 10, 64); err == nil {
			gasLimit += v
		}
	}

	step := models.RouteStep{
		ID:                body.ID,
		ChainID:           body.Action.FromChainID,
		ToChainID:         body.Action.ToChainID,
		Action:            models.ActionExecute,
		InputToken:        body.Action.FromToken.Address,
		EstimatedInput:    amount,
		EstimatedGasLimit: gasLimit,
		ApprovalSpender:   body.Estimate.ApprovalAddress,
		DurationEstimate:  time.Duration(body.Estimate.ExecutionDuration) * time.Second,
	}
	if body.TransactionRequest != nil {
		step.Payload = payloadFromBody(*body.TransactionRequest)
	}
	return step, nil
}

func payloadFromBody(body txRequestBody) models.TxPayload {
	// Like TxPayload.Value, gasLimit arrives as either a hex or a decimal
	// string depending on the aggregator's tooling
	var gasLimit uint64
	if s := body.GasLimit; s != "" {
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			gasLimit, _ = strconv.ParseUint(s[2:], 16, 64)
		} else {
			gasLimit, _ = strconv.ParseUint(s, 10, 64)
		}
	}
	return models.TxPayload{
		ChainID:  body.ChainID,
		To:       body.To,
		Data:     body.Data,
		Value:    body.Value,
		GasLimit: gasLimit,
	}
}

type stepTransactionResponse struct {
	TransactionRequest *txRequestBody `json:"transactionRequest"`
}

// GetStepPayload re-fetches fresh call data for a step. Payloads embed gas
// prices and deadlines, so a plan held for more than a moment must refresh
// each step right before submitting it.
func (c *Client) GetStepPayload(ctx context.Context, step models.RouteStep) (models.TxPayload, error) {
	var resp stepTransactionResponse
	path := "/v1/steps/" + url.PathEscape(step.ID) + "/transaction"
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return models.TxPayload{}, err
	}
	if resp.TransactionRequest == nil {
		return models.TxPayload{}, fmt.Errorf("step %s: aggregator returned no transaction request", step.ID)
	}
	payload := payloadFromBody(*resp.TransactionRequest)
	if payload.To == "" || payload.ChainID == 0 {
		return models.TxPayload{}, fmt.Errorf("step %s: transaction request is missing target or chain", step.ID)
	}
	return payload, nil
}

type statusResponse struct {
	Status string `json:"status"`
}

// GetBridgeStatus reports the aggregator-side status of a bridge first leg
func (c *Client) GetBridgeStatus(ctx context.Context, txHash string) (BridgeStatus, error) {
	var resp statusResponse
	if err := c.getJSON(ctx, "/v1/status?txHash="+url.QueryEscape(txHash), &resp); err != nil {
		return "", err
	}
	switch status := BridgeStatus(strings.ToUpper(resp.Status)); status {
	case BridgeStatusPending, BridgeStatusDone, BridgeStatusFailed, BridgeStatusNotFound:
		return status, nil
	default:
		return "", fmt.Errorf("unknown bridge status %q for %s", resp.Status, txHash)
	}
}

// GasSuggestion tells whether the aggregator can top up destination gas
// from the bridged amount, and how much input that costs
type GasSuggestion struct {
	Available  bool   `json:"available"`
	FromAmount string `json:"fromAmount"`
}

// GetGasSuggestion asks how much of the source amount should be diverted
// to arrive with spendable gas on the destination chain
func (c *Client) GetGasSuggestion(ctx context.Context, toChainID int, fromToken string, fromChainID int) (GasSuggestion, error) {
	vals := url.Values{}
	vals.Set("chainId", strconv.Itoa(toChainID))
	vals.Set("fromChain", strconv.Itoa(fromChainID))
	vals.Set("fromToken", fromToken)

	var resp GasSuggestion
	if err := c.getJSON(ctx, "/v1/gas/suggestion?"+vals.Encode(), &resp); err != nil {
		return GasSuggestion{}, err
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build aggregator request: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("aggregator request failed: %v", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Error("Failed to close aggregator response body: %v", err)
		}
	}(resp.Body)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read aggregator response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("aggregator returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode aggregator response: %v, body: %s", err, string(bodyBytes))
	}
	return nil
}

// Helper function to create an HTTP client with timeouts
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
