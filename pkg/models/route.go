package models

import (
	"math/big"
	"time"
)

// StepAction is the kind of on-chain call a route step performs
type StepAction string

const (
	ActionApprove StepAction = "approve"
	ActionExecute StepAction = "execute"
)

// TxPayload is call data ready to be signed and broadcast on one chain
type TxPayload struct {
	ChainID  int    `json:"chainId"`
	To       string `json:"to"`
	Data     string `json:"data,omitempty"`
	Value    string `json:"value,omitempty"`
	GasLimit uint64 `json:"gasLimit,omitempty"`
}

// RouteStep is one on-chain action of a route plan. Steps are produced by
// the aggregator and treated as read-only; the payload is re-fetched right
// before submission because call data goes stale.
type RouteStep struct {
	ID                string
	ChainID           int
	ToChainID         int
	Action            StepAction
	InputToken        string
	EstimatedInput    *big.Int
	EstimatedGasLimit uint64
	ApprovalSpender   string
	DurationEstimate  time.Duration
	Payload           TxPayload
}

// CrossChain reports whether the step settles on a different chain than
// the one it is submitted on
func (s RouteStep) CrossChain() bool {
	return s.ToChainID != 0 && s.ToChainID != s.ChainID
}

// NativeInput reports whether the step spends the chain's native asset
func (s RouteStep) NativeInput() bool {
	return s.InputToken == "" || s.InputToken == ZeroAddress
}

// ZeroAddress marks the native asset in aggregator responses
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// RoutePlan is an ordered sequence of steps computed by the aggregator
type RoutePlan struct {
	ID    string
	Steps []RouteStep
}

// MultiLeg reports whether the plan spans more than one chain, meaning the
// trailing step may have to be deferred until bridged funds arrive
func (p RoutePlan) MultiLeg() bool {
	if len(p.Steps) < 2 {
		return false
	}
	return p.Steps[1].ChainID != p.Steps[0].ChainID
}
