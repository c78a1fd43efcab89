package swap

import (
	"errors"
	"strings"

	"github.com/OpenBridge-Network/swap_engine/internal/gas"
	"github.com/OpenBridge-Network/swap_engine/internal/retry"
)

// classifyFailure maps a terminal error onto its user-facing rendering.
// Only classes the retry engine would attempt again carry a retry
// affordance; user rejections and validation failures never do.
func classifyFailure(err error) *Failure {
	if err == nil {
		return nil
	}

	var gasErr *gas.EstimationError
	if errors.As(err, &gasErr) {
		return &Failure{
			Title:      "Gas estimation failed",
			Message:    gasErr.Message,
			Suggestion: gasErr.Suggestion,
			Retryable:  false,
		}
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return &Failure{
			Title:     "Invalid input",
			Message:   valErr.Error(),
			Retryable: false,
		}
	}

	var timeoutErr *retry.TimeoutError
	if errors.As(err, &timeoutErr) {
		return &Failure{
			Title:      "Operation timed out",
			Message:    timeoutErr.Error(),
			Suggestion: "The backend did not respond in time. Try again.",
			Retryable:  true,
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "user rejected") || strings.Contains(msg, "user denied") {
		// Surfaced verbatim; the only recovery is trying again when ready.
		return &Failure{
			Title:     "Transaction rejected",
			Message:   err.Error(),
			Retryable: false,
		}
	}

	switch retry.Classify(err) {
	case retry.ClassNonRetryable:
		return &Failure{
			Title:     "Swap failed",
			Message:   err.Error(),
			Retryable: false,
		}
	default:
		// Transport errors reach here only after the retry budget is
		// exhausted, so offering a manual retry is legitimate.
		return &Failure{
			Title:      "Network error",
			Message:    err.Error(),
			Suggestion: "Check your connection and try again.",
			Retryable:  true,
		}
	}
}
