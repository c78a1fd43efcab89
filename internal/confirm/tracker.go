// Package confirm converts raw confirmation counts into the progress,
// estimated time, and status messages the presentation layer renders. It
// never reaches the network; block times and finality thresholds come from
// the chain registry.
package confirm

import (
	"fmt"
	"math"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
)

// Tier classifies a confirmation status for display.
type Tier string

const (
	// TierSuccess means the finality threshold is met.
	TierSuccess Tier = "success"

	// TierWarning means nothing is confirmed yet.
	TierWarning Tier = "warning"

	// TierInfo means confirmation is partially complete.
	TierInfo Tier = "info"

	// TierError marks the sentinel snapshot produced without a chain id.
	TierError Tier = "error"
)

// Status is a display-ready confirmation classification.
type Status struct {
	Tier    Tier   `json:"tier"`
	Message string `json:"message"`
}

// Snapshot is one point-in-time view of confirmation progress.
type Snapshot struct {
	Current              uint64  `json:"current"`
	Required             uint64  `json:"required"`
	Progress             float64 `json:"progress"`
	EstimatedTimeSeconds float64 `json:"estimatedTimeSeconds"`
	FormattedTime        string  `json:"formattedTime"`
	Status               Status  `json:"status"`
	IsComplete           bool    `json:"isComplete"`
}

// Tracker composes registry data into confirmation snapshots.
type Tracker struct {
	registry *chains.Registry
}

// NewTracker creates a tracker over the registry.
func NewTracker(registry *chains.Registry) *Tracker {
	return &Tracker{registry: registry}
}

// EstimatedTime returns the seconds remaining until the required
// confirmation count: max(required-current, 0) × blockTime. It returns 0
// once satisfied or when the chain is absent or unknown.
func (t *Tracker) EstimatedTime(id chains.ChainID, current, required uint64) float64 {
	if current >= required {
		return 0
	}
	blockTime, ok := t.registry.BlockTime(id)
	if !ok {
		return 0
	}
	return float64(required-current) * blockTime
}

// FormatEstimatedTime renders seconds as a short human duration:
// "Complete" for anything non-positive, then "Ns", "Nm Ms", or "Nh Mm",
// ceiling-rounded, dropping a zero trailing unit.
func FormatEstimatedTime(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) {
		return "Complete"
	}
	total := int64(math.Ceil(seconds))
	switch {
	case total < 60:
		return fmt.Sprintf("%ds", total)
	case total < 3600:
		m := total / 60
		s := total % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		h := total / 3600
		m := (total % 3600) / 60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// Progress returns confirmation progress clamped to [0, 100]. A required
// count of zero short-circuits to 100: nothing is left to confirm.
func Progress(current, required uint64) float64 {
	if required == 0 {
		return 100
	}
	p := float64(current) / float64(required) * 100
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

// ConfirmationStatus classifies the confirmation state into three display
// tiers. An unknown chain name degrades to a generic phrase rather than
// failing.
func (t *Tracker) ConfirmationStatus(id chains.ChainID, current, required uint64) Status {
	switch {
	case current >= required:
		return Status{Tier: TierSuccess, Message: "Transaction confirmed"}
	case current == 0:
		return Status{Tier: TierWarning, Message: "Waiting for first confirmation"}
	default:
		name := t.registry.ChainName(id)
		if name == "Unknown" {
			name = "this chain"
		}
		msg := fmt.Sprintf("%d of %d confirmations on %s", current, required, name)
		// No ETA clause without a block time; a zero estimate would render
		// as already complete.
		if blockTime, ok := t.registry.BlockTime(id); ok && blockTime > 0 {
			eta := FormatEstimatedTime(float64(required-current) * blockTime)
			msg = fmt.Sprintf("%s, about %s remaining", msg, eta)
		}
		return Status{Tier: TierInfo, Message: msg}
	}
}

// Track composes the registry's finality threshold and block time with the
// externally observed confirmation count into one snapshot. An absent chain
// id yields a stable sentinel snapshot instead of panicking.
func (t *Tracker) Track(id chains.ChainID, current uint64) Snapshot {
	if id.IsNone() {
		return Snapshot{
			Status: Status{Tier: TierError, Message: "chain id required"},
		}
	}

	required, _ := t.registry.ConfirmationsRequired(id)
	eta := t.EstimatedTime(id, current, required)
	return Snapshot{
		Current:              current,
		Required:             required,
		Progress:             Progress(current, required),
		EstimatedTimeSeconds: eta,
		FormattedTime:        FormatEstimatedTime(eta),
		Status:               t.ConfirmationStatus(id, current, required),
		IsComplete:           current >= required,
	}
}
