// Package signer is the client for the custodial signing service. The
// service holds the wallet keys; we hand it fully-formed call data and get
// back a broadcast transaction hash.
package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohitM0/eliza-tx/pkg/logger"
	"github.com/mohitM0/eliza-tx/pkg/models"
)

// Client represents a custodial signer API client
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     logger.Logger
}

// New creates a new signer client
func New(endpoint, apiKey string, log logger.Logger) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: createHTTPClient(),
		logger:     log,
	}
}

type broadcastRequest struct {
	CAIP2       string           `json:"caip2"`
	Transaction models.TxPayload `json:"transaction"`
}

type broadcastResponse struct {
	Hash  string `json:"hash"`
	Error string `json:"error,omitempty"`
}

// SignAndBroadcast submits call data for signature and broadcast, scoped to
// the payload's chain, and returns the transaction hash
func (c *Client) SignAndBroadcast(ctx context.Context, wallet string, payload models.TxPayload) (string, error) {
	if payload.ChainID == 0 {
		return "", fmt.Errorf("payload is missing a chain id")
	}

	body, err := json.Marshal(broadcastRequest{
		CAIP2:       fmt.Sprintf("eip155:%d", payload.ChainID),
		Transaction: payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode transaction request: %v", err)
	}

	url := fmt.Sprintf("%s/v1/wallets/%s/transactions", c.endpoint, strings.ToLower(wallet))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build signer request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("signer request failed: %v", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Error("Failed to close signer response body: %v", err)
		}
	}(resp.Body)

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read signer response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("signer returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	var parsed broadcastResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode signer response: %v, body: %s", err, string(respBytes))
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("signer rejected transaction: %s", parsed.Error)
	}
	if parsed.Hash == "" {
		return "", fmt.Errorf("signer response is missing a transaction hash")
	}

	c.logger.DebugWithChain(payload.ChainID, "Broadcast transaction %s for wallet %s", parsed.Hash, wallet)
	return parsed.Hash, nil
}

// Helper function to create an HTTP client with timeouts
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
