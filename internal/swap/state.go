// Package swap implements the swap lifecycle state machine. One
// Orchestrator drives one swap from quote to terminal state, composing the
// chain registry, feature gate, retry engine, gas estimator, and
// confirmation tracker. Concurrent swaps are independent orchestrators
// sharing only the read-only registry.
package swap

import (
	"encoding/json"
	"fmt"
)

// State is the lifecycle stage of a swap.
type State int32

const (
	// StateIdle means inputs are still being collected.
	StateIdle State = iota

	// StateQuoting means routes are being discovered.
	StateQuoting

	// StateEstimating means a route exists and fees are being estimated.
	StateEstimating

	// StateConfirmingUser means the full route, fee, and estimated time
	// have been presented and the user is deciding.
	StateConfirmingUser

	// StateInitiated means the backend accepted the submission and
	// returned a swap id.
	StateInitiated

	// StatePending means the source leg is accumulating confirmations.
	StatePending

	// StateProcessing means the source leg is final and the destination
	// leg is still confirming.
	StateProcessing

	// StateCompleted means every applicable leg reached its finality
	// threshold.
	StateCompleted

	// StateFailed means an unrecoverable error ended the swap.
	StateFailed

	// StateCancelled means the user aborted the swap after initiation.
	StateCancelled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateQuoting:
		return "quoting"
	case StateEstimating:
		return "estimating"
	case StateConfirmingUser:
		return "confirming_user"
	case StateInitiated:
		return "initiated"
	case StatePending:
		return "pending"
	case StateProcessing:
		return "processing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseState(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState converts a state name back to its State value.
func ParseState(name string) (State, error) {
	switch name {
	case "idle":
		return StateIdle, nil
	case "quoting":
		return StateQuoting, nil
	case "estimating":
		return StateEstimating, nil
	case "confirming_user":
		return StateConfirmingUser, nil
	case "initiated":
		return StateInitiated, nil
	case "pending":
		return StatePending, nil
	case "processing":
		return StateProcessing, nil
	case "completed":
		return StateCompleted, nil
	case "failed":
		return StateFailed, nil
	case "cancelled":
		return StateCancelled, nil
	default:
		return StateIdle, fmt.Errorf("unknown state: %q", name)
	}
}

// IsTerminal returns true for states no event may move the swap past.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// CanCancel returns true if a cancellation request is valid from this
// state. Cancellation is only reachable from initiated and pending.
func (s State) CanCancel() bool {
	return s == StateInitiated || s == StatePending
}
