// Package retry classifies transport failures and executes operations with
// exponential backoff. Classification is the central contract: retrying a
// user rejection is as wrong as giving up on a flaky network.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Classification is the retry verdict for an error.
type Classification int

const (
	// ClassUnknown means no documented pattern matched. Unknown errors are
	// not retried.
	ClassUnknown Classification = iota

	// ClassRetryable marks transient transport failures.
	ClassRetryable

	// ClassNonRetryable marks failures that repeating cannot fix.
	ClassNonRetryable
)

// String returns the string representation of the classification.
func (c Classification) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassNonRetryable:
		return "non-retryable"
	default:
		return "unknown"
	}
}

// nonRetryablePatterns are checked first: an error that unambiguously
// indicates user rejection or bad input is never retried, even when it also
// contains an ambiguous substring such as "request".
var nonRetryablePatterns = []string{
	"user rejected",
	"user denied",
	"rejected the request",
	"action_rejected",
	"invalid address",
	"invalid recipient",
	"insufficient balance",
	"insufficient funds",
	"validation failed",
	"validation error",
}

// retryablePatterns match network/connectivity failures, timeouts, RPC
// failures, rate limiting and gateway errors, and transport-level abort
// codes.
var retryablePatterns = []string{
	"network",
	"connection",
	"timeout",
	"timed out",
	"rpc error",
	"rpc failure",
	"429",
	"too many requests",
	"502",
	"bad gateway",
	"503",
	"service unavailable",
	"504",
	"gateway timeout",
	"econnaborted",
	"econnreset",
	"etimedout",
	"socket hang up",
}

// Classify decides whether an error is worth retrying. Non-retryable
// patterns win over retryable ones; anything unmatched is ClassUnknown.
func Classify(err error) Classification {
	if err == nil {
		return ClassUnknown
	}

	// Context cancellation is the caller giving up, never a reason to
	// try again.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassNonRetryable
	}

	msg := strings.ToLower(err.Error())
	for _, p := range nonRetryablePatterns {
		if strings.Contains(msg, p) {
			return ClassNonRetryable
		}
	}
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return ClassRetryable
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassRetryable
	}

	return ClassUnknown
}

// IsRetryable reports whether the error classifies as retryable.
func IsRetryable(err error) bool {
	return Classify(err) == ClassRetryable
}
