package swap

import (
	"errors"
	"testing"
	"time"

	"github.com/OpenBridge-Network/swap_engine/internal/gas"
	"github.com/OpenBridge-Network/swap_engine/internal/retry"
)

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTitle     string
		wantRetryable bool
	}{
		{
			name:          "user rejection",
			err:           errors.New("user rejected transaction"),
			wantTitle:     "Transaction rejected",
			wantRetryable: false,
		},
		{
			name:          "user denied",
			err:           errors.New("wallet: user denied signature"),
			wantTitle:     "Transaction rejected",
			wantRetryable: false,
		},
		{
			name:          "validation",
			err:           &ValidationError{Field: "amount", Reason: "must be greater than zero"},
			wantTitle:     "Invalid input",
			wantRetryable: false,
		},
		{
			name:          "timeout",
			err:           &retry.TimeoutError{After: 5 * time.Second},
			wantTitle:     "Operation timed out",
			wantRetryable: true,
		},
		{
			name:          "non-retryable transport",
			err:           errors.New("insufficient balance for swap"),
			wantTitle:     "Swap failed",
			wantRetryable: false,
		},
		{
			name:          "exhausted network error",
			err:           errors.New("connection refused"),
			wantTitle:     "Network error",
			wantRetryable: true,
		},
		{
			name:          "unclassified error",
			err:           errors.New("something unforeseen"),
			wantTitle:     "Network error",
			wantRetryable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := classifyFailure(tt.err)
			if f == nil {
				t.Fatal("classifyFailure returned nil for a non-nil error")
			}
			if f.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", f.Title, tt.wantTitle)
			}
			if f.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", f.Retryable, tt.wantRetryable)
			}
			if f.Message == "" {
				t.Error("Message must never be empty")
			}
		})
	}
}

func TestClassifyFailure_Nil(t *testing.T) {
	if f := classifyFailure(nil); f != nil {
		t.Errorf("classifyFailure(nil) = %+v, want nil", f)
	}
}

func TestClassifyFailure_GasEstimation(t *testing.T) {
	gasErr := &gas.EstimationError{
		Kind:       gas.KindInsufficientFunds,
		Message:    "insufficient funds for gas",
		Suggestion: "Add more native currency to cover gas before retrying.",
	}

	f := classifyFailure(gasErr)
	if f.Title != "Gas estimation failed" {
		t.Errorf("Title = %q", f.Title)
	}
	if f.Suggestion != gasErr.Suggestion {
		t.Errorf("Suggestion = %q, want the classifier's suggestion", f.Suggestion)
	}
	if f.Retryable {
		t.Error("gas estimation failures are never retryable")
	}
}

func TestClassifyFailure_VerbatimRejectionMessage(t *testing.T) {
	err := errors.New("MetaMask Tx Signature: User rejected transaction signature.")
	f := classifyFailure(err)
	if f.Message != err.Error() {
		t.Errorf("Message = %q, want the original error text verbatim", f.Message)
	}
}
