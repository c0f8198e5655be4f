package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/mohitM0/eliza-tx/pkg/logger"
)

// ChainSpec is the startup description of one chain
type ChainSpec struct {
	ChainID       int
	Name          string
	RPCURL        string
	GasMultiplier float64
	MaxGasPrice   *big.Int
}

// Registry resolves chain clients by id or name. It is built once at
// startup and never mutated afterwards, so lookups need no locking.
type Registry struct {
	byID   map[int]*Client
	byName map[string]int
}

// NewRegistry dials every configured chain and builds the lookup tables
func NewRegistry(ctx context.Context, specs []ChainSpec, log logger.Logger) (*Registry, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one chain is required")
	}

	byID := make(map[int]*Client, len(specs))
	byName := make(map[string]int, len(specs))
	for _, spec := range specs {
		if _, dup := byID[spec.ChainID]; dup {
			return nil, fmt.Errorf("duplicate chain id %d", spec.ChainID)
		}
		client, err := New(ctx, spec.ChainID, spec.Name, spec.RPCURL, spec.GasMultiplier, spec.MaxGasPrice, log)
		if err != nil {
			return nil, err
		}
		byID[spec.ChainID] = client
		if spec.Name != "" {
			byName[strings.ToLower(spec.Name)] = spec.ChainID
		}
	}
	return &Registry{byID: byID, byName: byName}, nil
}

// Resolve returns the client for a chain id
func (r *Registry) Resolve(chainID int) (*Client, error) {
	client, ok := r.byID[chainID]
	if !ok {
		return nil, fmt.Errorf("chain %d is not configured", chainID)
	}
	return client, nil
}

// ResolveName returns the client for a chain name such as "polygon"
func (r *Registry) ResolveName(name string) (*Client, error) {
	chainID, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("chain %q is not configured", name)
	}
	return r.byID[chainID], nil
}

// ChainIDs lists every configured chain
func (r *Registry) ChainIDs() []int {
	ids := make([]int, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}
