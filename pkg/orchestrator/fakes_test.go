package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/mohitM0/eliza-tx/pkg/aggregator"
	"github.com/mohitM0/eliza-tx/pkg/logger"
	"github.com/mohitM0/eliza-tx/pkg/models"
)

var errReceiptNotFound = errors.New("not found")

type fakeChain struct {
	mu          sync.Mutex
	native      *big.Int
	tokens      map[string]*big.Int
	allowances  map[string]*big.Int
	gasPrice    *big.Int
	overMax     bool
	estimateErr error
	receipts    map[string]*types.Receipt
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		native:     big.NewInt(1e18),
		tokens:     make(map[string]*big.Int),
		allowances: make(map[string]*big.Int),
		gasPrice:   big.NewInt(1e9),
		receipts:   make(map[string]*types.Receipt),
	}
}

func tokenKey(addr string) string { return strings.ToLower(addr) }

func allowanceKey(token, spender common.Address) string {
	return strings.ToLower(token.Hex() + "|" + spender.Hex())
}

func (c *fakeChain) setToken(addr string, balance *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[tokenKey(addr)] = balance
}

func (c *fakeChain) setAllowance(token, spender string, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowances[allowanceKey(common.HexToAddress(token), common.HexToAddress(spender))] = amount
}

func (c *fakeChain) setReceipt(hash string, status uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receipts[strings.ToLower(hash)] = &types.Receipt{Status: status, BlockNumber: big.NewInt(42)}
}

func (c *fakeChain) NativeBalance(_ context.Context, _ common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.native), nil
}

func (c *fakeChain) TokenBalance(_ context.Context, token, _ common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bal, ok := c.tokens[tokenKey(token.Hex())]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (c *fakeChain) Allowance(_ context.Context, token, _, spender common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.allowances[allowanceKey(token, spender)]; ok {
		return new(big.Int).Set(a), nil
	}
	return big.NewInt(0), nil
}

func (c *fakeChain) EstimateGas(_ context.Context, _ common.Address, _ models.TxPayload) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.estimateErr != nil {
		return 0, c.estimateErr
	}
	return 50000, nil
}

func (c *fakeChain) EffectiveGasPrice(_ context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.gasPrice), nil
}

func (c *fakeChain) IsWithinMax(_ *big.Int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.overMax
}

func (c *fakeChain) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.receipts[strings.ToLower(txHash.Hex())]; ok {
		return r, nil
	}
	return nil, errReceiptNotFound
}

type broadcastCall struct {
	Wallet  string
	Payload models.TxPayload
	Hash    string
}

// fakeSigner returns sequential hashes and plants the matching receipt on
// the target chain so confirmation succeeds, unless told otherwise
type fakeSigner struct {
	mu        sync.Mutex
	chains    map[int]*fakeChain
	calls     []broadcastCall
	err       error
	revert    bool
	noReceipt bool
}

func (f *fakeSigner) SignAndBroadcast(_ context.Context, wallet string, payload models.TxPayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	hash := fmt.Sprintf("0x%064x", len(f.calls)+1)
	f.calls = append(f.calls, broadcastCall{Wallet: wallet, Payload: payload, Hash: hash})
	if !f.noReceipt {
		status := types.ReceiptStatusSuccessful
		if f.revert {
			status = types.ReceiptStatusFailed
		}
		if chain, ok := f.chains[payload.ChainID]; ok {
			chain.setReceipt(hash, status)
		}
	}
	return hash, nil
}

func (f *fakeSigner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSigner) call(i int) broadcastCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

type fakeAggregator struct {
	mu            sync.Mutex
	plan          models.RoutePlan
	planErr       error
	planQueries   []aggregator.RouteQuery
	payloads      map[string]models.TxPayload
	payloadErr    error
	statuses      map[string]aggregator.BridgeStatus
	defaultStatus aggregator.BridgeStatus
	panicOnHash   string
	statusDelay   time.Duration
	tokens        map[string]aggregator.Token
	gas           aggregator.GasSuggestion
}

func newFakeAggregator() *fakeAggregator {
	return &fakeAggregator{
		payloads:      make(map[string]models.TxPayload),
		statuses:      make(map[string]aggregator.BridgeStatus),
		defaultStatus: aggregator.BridgeStatusPending,
		tokens:        make(map[string]aggregator.Token),
	}
}

func (f *fakeAggregator) GetRoutePlan(_ context.Context, q aggregator.RouteQuery) (models.RoutePlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.planQueries = append(f.planQueries, q)
	if f.planErr != nil {
		return models.RoutePlan{}, f.planErr
	}
	return f.plan, nil
}

func (f *fakeAggregator) GetStepPayload(_ context.Context, step models.RouteStep) (models.TxPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payloadErr != nil {
		return models.TxPayload{}, f.payloadErr
	}
	if p, ok := f.payloads[step.ID]; ok {
		return p, nil
	}
	return step.Payload, nil
}

func (f *fakeAggregator) GetBridgeStatus(_ context.Context, txHash string) (aggregator.BridgeStatus, error) {
	// statusDelay is set before the sweep starts, read it without the lock
	// so a slow lookup does not serialize the other fake calls
	if f.statusDelay > 0 {
		time.Sleep(f.statusDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnHash != "" && strings.EqualFold(txHash, f.panicOnHash) {
		panic("status lookup blew up for " + txHash)
	}
	if s, ok := f.statuses[strings.ToLower(txHash)]; ok {
		return s, nil
	}
	return f.defaultStatus, nil
}

func (f *fakeAggregator) GetGasSuggestion(_ context.Context, _ int, _ string, _ int) (aggregator.GasSuggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gas, nil
}

func (f *fakeAggregator) GetToken(_ context.Context, chainID int, symbolOrAddress string) (aggregator.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tokens[fmt.Sprintf("%d/%s", chainID, strings.ToUpper(symbolOrAddress))]; ok {
		return t, nil
	}
	return aggregator.Token{}, fmt.Errorf("token %q is not listed on chain %d", symbolOrAddress, chainID)
}

func (f *fakeAggregator) setToken(chainID int, symbol string, token aggregator.Token) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[fmt.Sprintf("%d/%s", chainID, strings.ToUpper(symbol))] = token
}

type fakeStore struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*models.PendingTransaction
	findDelay time.Duration
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[uuid.UUID]*models.PendingTransaction)}
}

func (f *fakeStore) Create(_ context.Context, record *models.PendingTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.FirstLegStatus = models.LegPending
	clone := *record
	f.records[record.ID] = &clone
	return nil
}

func (f *fakeStore) FindDue(_ context.Context, now time.Time) ([]models.PendingTransaction, error) {
	time.Sleep(f.findDelay)
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []models.PendingTransaction
	for _, r := range f.records {
		if r.FirstLegStatus == models.LegPending && !r.FirstLegReadyAt.After(now) {
			due = append(due, *r)
		}
	}
	return due, nil
}

func (f *fakeStore) MarkStatus(_ context.Context, id uuid.UUID, status models.LegStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok || record.FirstLegStatus != models.LegPending {
		return false, nil
	}
	record.FirstLegStatus = status
	return true, nil
}

func (f *fakeStore) get(id uuid.UUID) models.PendingTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.records[id]
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeStore) only() models.PendingTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		return *r
	}
	panic("store is empty")
}

type testEnv struct {
	chains map[int]*fakeChain
	signer *fakeSigner
	agg    *fakeAggregator
	store  *fakeStore
	svc    *Service
}

const (
	testWallet    = "0x1111111111111111111111111111111111111111"
	testRecipient = "0x2222222222222222222222222222222222222222"
	testToken     = "0x3333333333333333333333333333333333333333"
	testSpender   = "0x4444444444444444444444444444444444444444"
	testRouter    = "0x5555555555555555555555555555555555555555"
)

func newTestEnv(chainIDs ...int) *testEnv {
	if len(chainIDs) == 0 {
		chainIDs = []int{10}
	}
	chains := make(map[int]*fakeChain)
	readers := make(map[int]ChainReader)
	for _, id := range chainIDs {
		c := newFakeChain()
		chains[id] = c
		readers[id] = c
	}
	signer := &fakeSigner{chains: chains}
	agg := newFakeAggregator()
	store := newFakeStore()
	svc := New(readers, signer, agg, store, nil, Config{
		ConfirmMaxAttempts: 3,
		ConfirmInterval:    time.Millisecond,
		SettleDelay:        2 * time.Millisecond,
		StatusPollInterval: time.Millisecond,
		SweepWorkers:       2,
	}, &logger.EmptyLogger{})
	return &testEnv{chains: chains, signer: signer, agg: agg, store: store, svc: svc}
}
