package swap

import (
	"encoding/json"
	"testing"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateQuoting, "quoting"},
		{StateEstimating, "estimating"},
		{StateConfirmingUser, "confirming_user"},
		{StateInitiated, "initiated"},
		{StatePending, "pending"},
		{StateProcessing, "processing"},
		{StateCompleted, "completed"},
		{StateFailed, "failed"},
		{StateCancelled, "cancelled"},
		{State(99), "state(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestState_IsTerminal(t *testing.T) {
	terminal := map[State]bool{
		StateCompleted: true,
		StateFailed:    true,
		StateCancelled: true,
	}
	all := []State{
		StateIdle, StateQuoting, StateEstimating, StateConfirmingUser,
		StateInitiated, StatePending, StateProcessing,
		StateCompleted, StateFailed, StateCancelled,
	}
	for _, s := range all {
		if got := s.IsTerminal(); got != terminal[s] {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, got, terminal[s])
		}
	}
}

func TestState_CanCancel(t *testing.T) {
	cancellable := map[State]bool{
		StateInitiated: true,
		StatePending:   true,
	}
	all := []State{
		StateIdle, StateQuoting, StateEstimating, StateConfirmingUser,
		StateInitiated, StatePending, StateProcessing,
		StateCompleted, StateFailed, StateCancelled,
	}
	for _, s := range all {
		if got := s.CanCancel(); got != cancellable[s] {
			t.Errorf("%s.CanCancel() = %v, want %v", s, got, cancellable[s])
		}
	}
}

func TestState_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(StateConfirmingUser)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"confirming_user"` {
		t.Errorf("Marshal = %s", data)
	}

	var back State
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != StateConfirmingUser {
		t.Errorf("round trip = %s", back)
	}
}

func TestParseState_Unknown(t *testing.T) {
	if _, err := ParseState("limbo"); err == nil {
		t.Error("expected error for unknown state name")
	}
}
