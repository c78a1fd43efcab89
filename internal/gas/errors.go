package gas

import (
	"fmt"
	"strings"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
)

// EstimationErrorKind classifies a failed gas estimation.
type EstimationErrorKind string

const (
	KindInsufficientFunds   EstimationErrorKind = "insufficient_funds"
	KindExecutionReverted   EstimationErrorKind = "execution_reverted"
	KindGasExceedsAllowance EstimationErrorKind = "gas_exceeds_allowance"
	KindUnknown             EstimationErrorKind = "unknown"
)

// EstimationError is a classified gas estimation failure with a
// user-facing recovery suggestion. Estimation failures are never retried.
type EstimationError struct {
	Kind       EstimationErrorKind `json:"kind"`
	Message    string              `json:"message"`
	Suggestion string              `json:"suggestion"`
	cause      error
}

// Error implements the error interface.
func (e *EstimationError) Error() string {
	return fmt.Sprintf("gas estimation failed (%s): %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying estimation error.
func (e *EstimationError) Unwrap() error { return e.cause }

// ClassifyEstimationError maps a raw estimation failure onto a kind with a
// specific recovery suggestion.
func (e *Estimator) ClassifyEstimationError(err error, id chains.ChainID) *EstimationError {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "insufficient funds") || strings.Contains(msg, "insufficient balance"):
		return &EstimationError{
			Kind:       KindInsufficientFunds,
			Message:    err.Error(),
			Suggestion: "Add more native currency to cover gas before retrying.",
			cause:      err,
		}
	case strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert"):
		return &EstimationError{
			Kind:       KindExecutionReverted,
			Message:    err.Error(),
			Suggestion: "The transaction would fail on-chain. Check token approvals and amounts.",
			cause:      err,
		}
	case strings.Contains(msg, "exceeds allowance") || strings.Contains(msg, "gas required exceeds") || strings.Contains(msg, "out of gas"):
		return &EstimationError{
			Kind:       KindGasExceedsAllowance,
			Message:    err.Error(),
			Suggestion: e.allowanceSuggestion(id),
			cause:      err,
		}
	default:
		return &EstimationError{
			Kind:       KindUnknown,
			Message:    err.Error(),
			Suggestion: "Try again; if the failure persists, contact support.",
			cause:      err,
		}
	}
}

func (e *Estimator) allowanceSuggestion(id chains.ChainID) string {
	if settings, ok := e.registry.GasSettings(id); ok && settings.GasLimit > 0 {
		raised := settings.GasLimit + settings.GasLimit/2
		return fmt.Sprintf("Raise the gas limit to %d (1.5x the chain default) and retry.", raised)
	}
	return "Raise the gas limit to 1.5x the chain default and retry."
}
