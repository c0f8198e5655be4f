package models

// RequestKind identifies which on-chain operation a request asks for
type RequestKind string

const (
	// KindTransfer is a direct native or token transfer on a single chain
	KindTransfer RequestKind = "transfer"
	// KindSwap exchanges one asset for another on the same chain
	KindSwap RequestKind = "swap"
	// KindBridge moves an asset to a different chain
	KindBridge RequestKind = "bridge"
)

// TransferRequest is the immutable input for a submit operation
type TransferRequest struct {
	Kind             RequestKind `json:"kind"`
	WalletAddress    string      `json:"wallet_address"`
	SourceChain      int         `json:"source_chain"`
	DestinationChain int         `json:"destination_chain,omitempty"`
	ToAddress        string      `json:"to_address"`
	Amount           string      `json:"amount"`
	FromToken        string      `json:"from_token,omitempty"`
	ToToken          string      `json:"to_token,omitempty"`
	CorrelationID    string      `json:"correlation_id,omitempty"`
}

// Native reports whether the request moves the chain's native asset
func (r TransferRequest) Native() bool {
	return r.FromToken == ""
}

// OutcomeStatus is one of the three user-visible outcome strings
type OutcomeStatus string

const (
	StatusSuccess    OutcomeStatus = "SUCCESS"
	StatusFailed     OutcomeStatus = "FAILED"
	StatusInProgress OutcomeStatus = "IN_PROGRESS"
)

// Outcome is the only result shape that crosses the orchestrator boundary
type Outcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message"`
	Hash    string        `json:"hash,omitempty"`
}

// StepResult is returned by the step executor for one confirmed on-chain action
type StepResult struct {
	TxHash    string
	Confirmed bool
}
