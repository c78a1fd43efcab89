// Package transport defines the contract the swap engine requires from the
// bridging/submission backend, plus an HTTP implementation of it. The wire
// format belongs to the backend; the engine only depends on the interface.
package transport

import (
	"context"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
)

// RouteKind distinguishes direct same-chain paths from bridged ones.
type RouteKind string

const (
	RouteDirect RouteKind = "direct"
	RouteBridge RouteKind = "bridge"
)

// Route is one viable source/destination chain-and-token path for a swap.
type Route struct {
	ID            string    `json:"id"`
	SourceChainID uint64    `json:"sourceChainId"`
	DestChainID   uint64    `json:"destChainId"`
	TokenIn       string    `json:"tokenIn"`
	TokenOut      string    `json:"tokenOut"`
	Kind          RouteKind `json:"kind"`
	Provider      string    `json:"provider,omitempty"`
}

// FeeQuote is the backend's fee and duration estimate for a route.
type FeeQuote struct {
	Fee                  string `json:"fee"`
	EstimatedTimeSeconds int64  `json:"estimatedTimeSeconds"`
	MinAmount            string `json:"minAmount,omitempty"`
	MaxAmount            string `json:"maxAmount,omitempty"`
}

// SubmitRequest is the submission payload. Amount is a decimal string; the
// gas fields carry the engine's resolved estimate.
type SubmitRequest struct {
	RouteID          string `json:"routeId"`
	SourceChainID    uint64 `json:"sourceChainId"`
	DestChainID      uint64 `json:"destChainId"`
	TokenIn          string `json:"tokenIn"`
	TokenOut         string `json:"tokenOut"`
	Amount           string `json:"amount"`
	RecipientAddress string `json:"recipientAddress"`
	GasLimit         uint64 `json:"gasLimit"`
	GasSource        string `json:"gasSource,omitempty"`
}

// SubmitReceipt acknowledges a submission.
type SubmitReceipt struct {
	SwapID string `json:"swapId"`
}

// SwapState is the backend's view of a swap lifecycle stage.
type SwapState string

const (
	SwapStatePending    SwapState = "pending"
	SwapStateProcessing SwapState = "processing"
	SwapStateCompleted  SwapState = "completed"
	SwapStateFailed     SwapState = "failed"
	SwapStateCancelled  SwapState = "cancelled"
)

// SwapStatus is the backend's status record for a submitted swap.
type SwapStatus struct {
	SwapID              string    `json:"swapId"`
	State               SwapState `json:"state"`
	SourceConfirmations uint64    `json:"sourceConfirmations"`
	DestConfirmations   uint64    `json:"destConfirmations"`
	SourceTxHash        string    `json:"sourceTxHash,omitempty"`
	DestTxHash          string    `json:"destTxHash,omitempty"`
	ErrorMessage        string    `json:"errorMessage,omitempty"`
	CreatedAt           int64     `json:"createdAt"`
}

// Transport is the abstract swap backend. Every call that may fail
// transiently is wrapped by the retry engine at the call site.
type Transport interface {
	// DiscoverRoutes lists viable paths between the chain/token pairs.
	DiscoverRoutes(ctx context.Context, source, dest chains.ChainID, tokenIn, tokenOut string) ([]Route, error)

	// EstimateFee quotes the fee and duration for a route and amount.
	EstimateFee(ctx context.Context, route Route, amount string) (FeeQuote, error)

	// Submit hands the swap to the backend and returns its identity.
	Submit(ctx context.Context, req SubmitRequest) (SubmitReceipt, error)

	// FetchStatus retrieves the backend's status record for a swap.
	FetchStatus(ctx context.Context, swapID string) (SwapStatus, error)

	// Cancel requests cancellation of a submitted swap.
	Cancel(ctx context.Context, swapID string) error
}
