package orchestrator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/mohitM0/eliza-tx/pkg/confirm"
	"github.com/mohitM0/eliza-tx/pkg/models"
)

// ErrNoRoute means the aggregator could not plan the requested movement
var ErrNoRoute = errors.New("no route available for requested transfer")

// ErrSweepInProgress means a resumption sweep was skipped because the
// previous one is still running
var ErrSweepInProgress = errors.New("resumption sweep already running")

// UnsupportedChainError marks a request for a chain this deployment does
// not serve
type UnsupportedChainError struct {
	ChainID int
}

func (e *UnsupportedChainError) Error() string {
	return fmt.Sprintf("chain %d is not configured", e.ChainID)
}

// InsufficientBalanceError is a preflight rejection: the wallet cannot
// cover the amount the plan would spend
type InsufficientBalanceError struct {
	ChainID int
	Token   string
	Need    *big.Int
	Have    *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	asset := e.Token
	if asset == "" {
		asset = "native"
	}
	return fmt.Sprintf("insufficient %s balance on chain %d: need %s, have %s", asset, e.ChainID, e.Need, e.Have)
}

// InsufficientGasError is a preflight rejection: the wallet cannot pay for
// gas on top of the value it sends
type InsufficientGasError struct {
	ChainID int
	Need    *big.Int
	Have    *big.Int
}

func (e *InsufficientGasError) Error() string {
	return fmt.Sprintf("insufficient gas funds on chain %d: need %s wei, have %s wei", e.ChainID, e.Need, e.Have)
}

// GasPriceTooHighError means the chain's current gas price exceeds the
// configured cap, the request is rejected rather than overpaid
type GasPriceTooHighError struct {
	ChainID  int
	GasPrice *big.Int
}

func (e *GasPriceTooHighError) Error() string {
	return fmt.Sprintf("gas price %s wei on chain %d exceeds configured maximum", e.GasPrice, e.ChainID)
}

// CircuitOpenError means submissions to a chain are suspended after
// repeated failures
type CircuitOpenError struct {
	ChainID int
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("submissions to chain %d suspended by circuit breaker", e.ChainID)
}

func errAsTimeout(err error) (*confirm.TimeoutError, bool) {
	var timeout *confirm.TimeoutError
	ok := errors.As(err, &timeout)
	return timeout, ok
}

// outcomeFromError maps an execution error to the user-visible outcome.
// A confirmation timeout is the one case that is not a failure: the
// transaction may still land, so the outcome stays IN_PROGRESS with the
// hash attached.
func outcomeFromError(err error) models.Outcome {
	var timeout *confirm.TimeoutError
	if errors.As(err, &timeout) {
		return models.Outcome{
			Status:  models.StatusInProgress,
			Message: timeout.Error(),
			Hash:    timeout.Hash.Hex(),
		}
	}
	return models.Outcome{
		Status:  models.StatusFailed,
		Message: err.Error(),
	}
}
