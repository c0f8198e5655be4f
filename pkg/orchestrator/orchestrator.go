// Package orchestrator drives custodial wallet transactions end to end:
// it plans routes, validates funds, pushes each step through the signing
// service, waits for confirmation, and resumes bridge second legs that had
// to wait for funds to arrive on the destination chain.
package orchestrator

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/mohitM0/eliza-tx/pkg/aggregator"
	"github.com/mohitM0/eliza-tx/pkg/circuitbreaker"
	"github.com/mohitM0/eliza-tx/pkg/logger"
	"github.com/mohitM0/eliza-tx/pkg/models"
)

const (
	defaultSettleDelay        = 90 * time.Second
	defaultStatusPollInterval = 30 * time.Second
	defaultSweepWorkers       = 5
)

// ChainReader is the per-chain read and simulation surface the orchestrator
// needs. *chainclient.Client satisfies it.
type ChainReader interface {
	NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	EstimateGas(ctx context.Context, from common.Address, payload models.TxPayload) (uint64, error)
	EffectiveGasPrice(ctx context.Context) (*big.Int, error)
	IsWithinMax(gasPrice *big.Int) bool
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Signer submits a payload to the custodial signing service and returns
// the broadcast transaction hash
type Signer interface {
	SignAndBroadcast(ctx context.Context, wallet string, payload models.TxPayload) (string, error)
}

// Aggregator is the route planning service
type Aggregator interface {
	GetRoutePlan(ctx context.Context, q aggregator.RouteQuery) (models.RoutePlan, error)
	GetStepPayload(ctx context.Context, step models.RouteStep) (models.TxPayload, error)
	GetBridgeStatus(ctx context.Context, txHash string) (aggregator.BridgeStatus, error)
	GetGasSuggestion(ctx context.Context, toChainID int, fromToken string, fromChainID int) (aggregator.GasSuggestion, error)
	GetToken(ctx context.Context, chainID int, symbolOrAddress string) (aggregator.Token, error)
}

// PendingStore persists deferred bridge second legs across restarts
type PendingStore interface {
	Create(ctx context.Context, record *models.PendingTransaction) error
	FindDue(ctx context.Context, now time.Time) ([]models.PendingTransaction, error)
	MarkStatus(ctx context.Context, id uuid.UUID, status models.LegStatus) (bool, error)
}

// Config tunes the orchestrator's polling and sweep behavior
type Config struct {
	ConfirmMaxAttempts int
	ConfirmInterval    time.Duration
	SettleDelay        time.Duration
	StatusPollInterval time.Duration
	SweepWorkers       int
}

func (c *Config) applyDefaults() {
	if c.SettleDelay <= 0 {
		c.SettleDelay = defaultSettleDelay
	}
	if c.StatusPollInterval <= 0 {
		c.StatusPollInterval = defaultStatusPollInterval
	}
	if c.SweepWorkers <= 0 {
		c.SweepWorkers = defaultSweepWorkers
	}
}

// Service is the transaction orchestrator
type Service struct {
	chains   map[int]ChainReader
	signer   Signer
	agg      Aggregator
	store    PendingStore
	breakers map[int]*circuitbreaker.CircuitBreaker
	cfg      Config
	logger   logger.Logger

	// sweepMu makes the resumption sweep single-flight; inflight guards
	// individual records against overlapping handling within the process
	sweepMu    sync.Mutex
	inflightMu sync.Mutex
	inflight   map[uuid.UUID]struct{}

	now func() time.Time
	wg  sync.WaitGroup
}

// New creates the orchestrator service
func New(chains map[int]ChainReader, signer Signer, agg Aggregator, store PendingStore, breakers map[int]*circuitbreaker.CircuitBreaker, cfg Config, log logger.Logger) *Service {
	cfg.applyDefaults()
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	if breakers == nil {
		breakers = make(map[int]*circuitbreaker.CircuitBreaker)
	}
	return &Service{
		chains:   chains,
		signer:   signer,
		agg:      agg,
		store:    store,
		breakers: breakers,
		cfg:      cfg,
		logger:   log,
		inflight: make(map[uuid.UUID]struct{}),
		now:      time.Now,
	}
}

// Wait blocks until background confirmation watchers finish, used on shutdown
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) resolveChain(chainID int) (ChainReader, error) {
	chain, ok := s.chains[chainID]
	if !ok {
		return nil, &UnsupportedChainError{ChainID: chainID}
	}
	return chain, nil
}

func (s *Service) breaker(chainID int) *circuitbreaker.CircuitBreaker {
	return s.breakers[chainID]
}

func (s *Service) markInflight(id uuid.UUID) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *Service) clearInflight(id uuid.UUID) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, id)
}
