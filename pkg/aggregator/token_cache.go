package aggregator

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// tokenCacheTTL keeps token metadata warm; addresses and decimals change
// essentially never, but a bounded TTL avoids trusting stale listings.
const tokenCacheTTL = 1 * time.Hour

// Token is the aggregator's metadata for one asset on one chain
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type tokenCacheKey struct {
	chainID int
	symbol  string
}

type tokenCacheEntry struct {
	token      Token
	expiration time.Time
}

type tokenCache struct {
	mu      sync.RWMutex
	entries map[tokenCacheKey]tokenCacheEntry
}

func newTokenCache() *tokenCache {
	return &tokenCache{entries: make(map[tokenCacheKey]tokenCacheEntry)}
}

func (tc *tokenCache) get(chainID int, symbol string) (Token, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	entry, ok := tc.entries[tokenCacheKey{chainID: chainID, symbol: symbol}]
	if !ok || time.Now().After(entry.expiration) {
		return Token{}, false
	}
	return entry.token, true
}

func (tc *tokenCache) put(chainID int, symbol string, token Token) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.entries[tokenCacheKey{chainID: chainID, symbol: symbol}] = tokenCacheEntry{
		token:      token,
		expiration: time.Now().Add(tokenCacheTTL),
	}
}

// GetToken resolves a token symbol or address on a chain to its metadata.
// Results are cached per chain and symbol.
func (c *Client) GetToken(ctx context.Context, chainID int, symbolOrAddress string) (Token, error) {
	key := strings.ToUpper(symbolOrAddress)
	if token, ok := c.tokens.get(chainID, key); ok {
		return token, nil
	}

	vals := url.Values{}
	vals.Set("chain", strconv.Itoa(chainID))
	vals.Set("token", symbolOrAddress)

	var token Token
	if err := c.getJSON(ctx, "/v1/token?"+vals.Encode(), &token); err != nil {
		return Token{}, err
	}
	if token.Address == "" {
		return Token{}, fmt.Errorf("token %q is not listed on chain %d", symbolOrAddress, chainID)
	}

	c.tokens.put(chainID, key, token)
	return token, nil
}
