package confirm

import (
	"testing"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
)

func trackerTestRegistry(t *testing.T) *chains.Registry {
	t.Helper()
	r, err := chains.NewRegistry([]chains.ChainDescriptor{
		{
			ChainID:               1,
			Name:                  "Ethereum",
			ChainType:             chains.ChainTypeEVM,
			BlockTimeSeconds:      2,
			ConfirmationsRequired: 12,
		},
		{
			ChainID:               0,
			Name:                  "Bitcoin",
			ChainType:             chains.ChainTypeBitcoin,
			BlockTimeSeconds:      600,
			ConfirmationsRequired: 3,
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name     string
		current  uint64
		required uint64
		want     float64
	}{
		{"zero of twelve", 0, 12, 0},
		{"half", 6, 12, 50},
		{"complete", 12, 12, 100},
		{"over-confirmed clamps", 20, 12, 100},
		{"required zero means done", 5, 0, 100},
		{"nothing at all", 0, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(tt.current, tt.required); got != tt.want {
				t.Errorf("Progress(%d, %d) = %v, want %v", tt.current, tt.required, got, tt.want)
			}
		})
	}
}

func TestFormatEstimatedTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "Complete"},
		{-5, "Complete"},
		{1, "1s"},
		{59, "59s"},
		{58.2, "59s"}, // ceiling-rounded
		{59.5, "1m"},  // ceiling lands exactly on the minute
		{60, "1m"},
		{90, "1m 30s"},
		{3599, "59m 59s"},
		{3600, "1h"},
		{3660, "1h 1m"},
		{7320, "2h 2m"},
	}
	for _, tt := range tests {
		if got := FormatEstimatedTime(tt.seconds); got != tt.want {
			t.Errorf("FormatEstimatedTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestEstimatedTime(t *testing.T) {
	tr := NewTracker(trackerTestRegistry(t))

	tests := []struct {
		name     string
		id       chains.ChainID
		current  uint64
		required uint64
		want     float64
	}{
		{"six of twelve at 2s blocks", chains.ID(1), 6, 12, 12},
		{"satisfied", chains.ID(1), 12, 12, 0},
		{"over-satisfied", chains.ID(1), 20, 12, 0},
		{"unknown chain", chains.ID(9999), 1, 10, 0},
		{"bitcoin", chains.ID(0), 1, 3, 1200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.EstimatedTime(tt.id, tt.current, tt.required); got != tt.want {
				t.Errorf("EstimatedTime = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfirmationStatus(t *testing.T) {
	tr := NewTracker(trackerTestRegistry(t))

	t.Run("confirmed", func(t *testing.T) {
		st := tr.ConfirmationStatus(chains.ID(1), 12, 12)
		if st.Tier != TierSuccess || st.Message != "Transaction confirmed" {
			t.Errorf("status = %+v", st)
		}
	})

	t.Run("nothing yet", func(t *testing.T) {
		st := tr.ConfirmationStatus(chains.ID(1), 0, 12)
		if st.Tier != TierWarning || st.Message != "Waiting for first confirmation" {
			t.Errorf("status = %+v", st)
		}
	})

	t.Run("in progress", func(t *testing.T) {
		st := tr.ConfirmationStatus(chains.ID(1), 6, 12)
		want := "6 of 12 confirmations on Ethereum, about 12s remaining"
		if st.Tier != TierInfo || st.Message != want {
			t.Errorf("status = %+v, want message %q", st, want)
		}
	})

	t.Run("unknown chain degrades the name and drops the eta", func(t *testing.T) {
		// No block time means no estimate; the message must not render a
		// zero ETA as if the swap were already complete.
		st := tr.ConfirmationStatus(chains.ID(9999), 6, 12)
		want := "6 of 12 confirmations on this chain"
		if st.Tier != TierInfo {
			t.Errorf("Tier = %s, want info", st.Tier)
		}
		if st.Message != want {
			t.Errorf("Message = %q, want %q", st.Message, want)
		}
	})
}

func TestTrack(t *testing.T) {
	tr := NewTracker(trackerTestRegistry(t))

	snap := tr.Track(chains.ID(1), 6)
	if snap.Current != 6 || snap.Required != 12 {
		t.Errorf("counts = %d/%d, want 6/12", snap.Current, snap.Required)
	}
	if snap.Progress != 50 {
		t.Errorf("Progress = %v, want 50", snap.Progress)
	}
	if snap.EstimatedTimeSeconds != 12 {
		t.Errorf("EstimatedTimeSeconds = %v, want 12", snap.EstimatedTimeSeconds)
	}
	if snap.FormattedTime != "12s" {
		t.Errorf("FormattedTime = %q, want 12s", snap.FormattedTime)
	}
	if snap.IsComplete {
		t.Error("IsComplete should be false at 6 of 12")
	}

	done := tr.Track(chains.ID(1), 12)
	if !done.IsComplete || done.Progress != 100 || done.FormattedTime != "Complete" {
		t.Errorf("completed snapshot = %+v", done)
	}
}

func TestTrack_AbsentChainYieldsSentinel(t *testing.T) {
	tr := NewTracker(trackerTestRegistry(t))

	snap := tr.Track(chains.NoChain, 5)
	if snap.Status.Tier != TierError {
		t.Errorf("Tier = %s, want error", snap.Status.Tier)
	}
	if snap.Status.Message != "chain id required" {
		t.Errorf("Message = %q", snap.Status.Message)
	}
	if snap.Current != 0 || snap.Required != 0 || snap.IsComplete {
		t.Errorf("sentinel snapshot carries data: %+v", snap)
	}
}

func TestTrack_UnknownChainIsCompleteAtZeroRequired(t *testing.T) {
	tr := NewTracker(trackerTestRegistry(t))

	// An unknown chain has no threshold, so required resolves to zero and
	// the snapshot reports complete rather than blocking forever.
	snap := tr.Track(chains.ID(9999), 0)
	if !snap.IsComplete {
		t.Error("unknown chain should report complete with a zero requirement")
	}
	if snap.Progress != 100 {
		t.Errorf("Progress = %v, want 100", snap.Progress)
	}
}
