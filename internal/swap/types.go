package swap

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
	"github.com/OpenBridge-Network/swap_engine/internal/confirm"
)

// Request is the immutable swap input assembled from the UI's mutations.
// Amount is a decimal string; it is never held as a binary float.
type Request struct {
	SourceChainID    chains.ChainID `json:"-"`
	DestChainID      chains.ChainID `json:"-"`
	TokenIn          string         `json:"tokenIn"`
	TokenOut         string         `json:"tokenOut"`
	Amount           string         `json:"amount"`
	RecipientAddress string         `json:"recipientAddress"`
}

// IsCrossChain reports whether the request spans two chains.
func (r Request) IsCrossChain() bool {
	src, sok := r.SourceChainID.Value()
	dst, dok := r.DestChainID.Value()
	return sok && dok && src != dst
}

// Status is the record created on successful submission. Confirmation
// counts are monotonically non-decreasing until the swap is terminal;
// ErrorMessage is populated only when the swap failed.
type Status struct {
	SwapID              string    `json:"swapId"`
	State               State     `json:"state"`
	SourceConfirmations uint64    `json:"sourceConfirmations"`
	DestConfirmations   uint64    `json:"destConfirmations"`
	SourceTxHash        string    `json:"sourceTxHash,omitempty"`
	DestTxHash          string    `json:"destTxHash,omitempty"`
	ErrorMessage        string    `json:"errorMessage,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// ConfirmationUpdate is an externally observed confirmation snapshot
// pushed into the orchestrator. The engine reacts to these; it never polls
// on its own timer.
type ConfirmationUpdate struct {
	SourceConfirmations uint64 `json:"sourceConfirmations"`
	DestConfirmations   uint64 `json:"destConfirmations"`
	SourceTxHash        string `json:"sourceTxHash,omitempty"`
	DestTxHash          string `json:"destTxHash,omitempty"`

	// BackendState, when non-empty, carries a terminal signal from the
	// transport ("failed" or "cancelled").
	BackendState string `json:"backendState,omitempty"`

	// BackendError accompanies a failed BackendState.
	BackendError string `json:"backendError,omitempty"`
}

// Failure is the user-facing rendering of a terminal error. Retryable
// controls whether the presentation layer may offer a retry affordance;
// non-retryable classes never get one.
type Failure struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Retryable  bool   `json:"retryable"`
}

// Snapshot is the one-way status emission consumed by the presentation
// layer. It is a value copy; the receiver cannot mutate engine state
// through it.
type Snapshot struct {
	ID            string            `json:"id"`
	State         State             `json:"state"`
	SwapID        string            `json:"swapId,omitempty"`
	Progress      float64           `json:"progress"`
	FormattedTime string            `json:"formattedTime,omitempty"`
	StatusMessage string            `json:"statusMessage,omitempty"`
	SourceLeg     *confirm.Snapshot `json:"sourceLeg,omitempty"`
	DestLeg       *confirm.Snapshot `json:"destLeg,omitempty"`
	Route         *RouteView        `json:"route,omitempty"`
	Fee           string            `json:"fee,omitempty"`
	EstimatedTime int64             `json:"estimatedTimeSeconds,omitempty"`
	Failure       *Failure          `json:"failure,omitempty"`
}

// RouteView is the presentation copy of the selected route.
type RouteView struct {
	ID            string `json:"id"`
	SourceChainID uint64 `json:"sourceChainId"`
	DestChainID   uint64 `json:"destChainId"`
	TokenIn       string `json:"tokenIn"`
	TokenOut      string `json:"tokenOut"`
	Kind          string `json:"kind"`
	Provider      string `json:"provider,omitempty"`
}

// Listener receives snapshots. It must not call back into the emitting
// orchestrator; emissions are ordered and synchronous.
type Listener func(Snapshot)

// ValidationError is a non-retryable bad-input condition, surfaced
// immediately to the caller and never submitted.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// parseAmount validates a decimal amount string and requires it positive.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "not a decimal number"}
	}
	if d.Sign() <= 0 {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	return d, nil
}
