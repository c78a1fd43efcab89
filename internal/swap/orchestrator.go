package swap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
	"github.com/OpenBridge-Network/swap_engine/internal/confirm"
	"github.com/OpenBridge-Network/swap_engine/internal/features"
	"github.com/OpenBridge-Network/swap_engine/internal/gas"
	"github.com/OpenBridge-Network/swap_engine/internal/metrics"
	"github.com/OpenBridge-Network/swap_engine/internal/retry"
	"github.com/OpenBridge-Network/swap_engine/internal/transport"
	"github.com/OpenBridge-Network/swap_engine/pkg/logger"
)

// ErrInvalidTransition is returned when an operation is not valid from the
// swap's current state.
var ErrInvalidTransition = errors.New("invalid state transition")

// Config wires an orchestrator's collaborators.
type Config struct {
	Registry  *chains.Registry
	Gate      *features.Gate
	Estimator *gas.Estimator
	Tracker   *confirm.Tracker
	Backend   transport.Transport
	Metrics   *metrics.Collector  // optional
	Logger    *logger.Logger      // optional
	Listener  Listener            // optional

	// RetryPolicy is the engine-wide fallback retry tuning. Per-chain
	// timeout settings in the registry override it; zero fields take the
	// fixed defaults.
	RetryPolicy retry.Policy
}

// Orchestrator is the state machine for one swap. State reads and writes
// are serialized through one mutex, but transport calls and their backoff
// waits run outside it: a pending retry never blocks Snapshot, Cancel, or
// confirmation updates, and Cancel can abort the wait.
type Orchestrator struct {
	mu sync.Mutex

	id          string
	registry    *chains.Registry
	gate        *features.Gate
	estimator   *gas.Estimator
	tracker     *confirm.Tracker
	backend     transport.Transport
	metrics     *metrics.Collector
	log         *logger.Logger
	listener    Listener
	retryPolicy retry.Policy

	state     State
	source    chains.ChainID
	dest      chains.ChainID
	tokenIn   string
	tokenOut  string
	amount    decimal.Decimal
	amountStr string
	recipient string

	// quoteSeq identifies the current input generation; a quote sequence
	// whose seq is stale abandons its result instead of applying it.
	quoteSeq    uint64
	routes      []transport.Route
	route       *transport.Route
	fee         *transport.FeeQuote
	gasEstimate *gas.Estimate

	status  *Status
	failure *Failure

	// retryCancel aborts the backoff wait of the retry sequence currently
	// in flight; retrySeq keeps a finished sequence from clearing a handle
	// that a newer one has since registered.
	retryCancel context.CancelFunc
	retrySeq    uint64
}

// New creates an idle orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Registry == nil || cfg.Gate == nil || cfg.Estimator == nil || cfg.Tracker == nil || cfg.Backend == nil {
		return nil, fmt.Errorf("registry, gate, estimator, tracker, and backend are required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("swap")
	}
	id := uuid.NewString()
	return &Orchestrator{
		id:          id,
		registry:    cfg.Registry,
		gate:        cfg.Gate,
		estimator:   cfg.Estimator,
		tracker:     cfg.Tracker,
		backend:     cfg.Backend,
		metrics:     cfg.Metrics,
		log:         log.WithField("swap", id),
		listener:    cfg.Listener,
		retryPolicy: cfg.RetryPolicy,
		state:       StateIdle,
	}, nil
}

// ID returns the orchestrator's identity (distinct from the backend's
// swap id, which exists only after submission).
func (o *Orchestrator) ID() string { return o.id }

// CurrentState returns the swap's lifecycle stage.
func (o *Orchestrator) CurrentState() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns the current presentation snapshot.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// SetChains sets the source and destination chains. Same-chain pairs are
// valid only where the feature gate enables direct swaps; cross-chain
// pairs require distinct ids by construction.
func (o *Orchestrator) SetChains(ctx context.Context, source, dest chains.ChainID) error {
	o.mu.Lock()
	if err := o.mutableLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	if source.IsNone() || dest.IsNone() {
		o.mu.Unlock()
		return &ValidationError{Field: "chains", Reason: "source and destination are required"}
	}
	if _, ok := o.registry.Chain(source); !ok {
		o.mu.Unlock()
		return fmt.Errorf("source: %w: %s", chains.ErrUnknownChain, source)
	}
	if _, ok := o.registry.Chain(dest); !ok {
		o.mu.Unlock()
		return fmt.Errorf("destination: %w: %s", chains.ErrUnknownChain, dest)
	}
	src, _ := source.Value()
	dst, _ := dest.Value()
	if src == dst && !o.gate.SupportsDirectSwap(source) {
		o.mu.Unlock()
		return &ValidationError{Field: "chains", Reason: "direct swaps are not enabled on this chain"}
	}

	o.source = source
	o.dest = dest
	o.resetQuoteLocked()
	seq, run := o.beginQuoteLocked()
	o.mu.Unlock()

	if !run {
		return nil
	}
	return o.quote(ctx, seq)
}

// SetTokens sets the input and output tokens.
func (o *Orchestrator) SetTokens(ctx context.Context, tokenIn, tokenOut string) error {
	o.mu.Lock()
	if err := o.mutableLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	if tokenIn == "" || tokenOut == "" {
		o.mu.Unlock()
		return &ValidationError{Field: "tokens", Reason: "both tokens are required"}
	}
	o.tokenIn = tokenIn
	o.tokenOut = tokenOut
	o.resetQuoteLocked()
	seq, run := o.beginQuoteLocked()
	o.mu.Unlock()

	if !run {
		return nil
	}
	return o.quote(ctx, seq)
}

// SetAmount sets the swap amount from a decimal string.
func (o *Orchestrator) SetAmount(ctx context.Context, amount string) error {
	o.mu.Lock()
	if err := o.mutableLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	d, err := parseAmount(amount)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	o.amount = d
	o.amountStr = amount
	o.resetQuoteLocked()
	seq, run := o.beginQuoteLocked()
	o.mu.Unlock()

	if !run {
		return nil
	}
	return o.quote(ctx, seq)
}

// SetRecipient sets the destination address. It is validated against the
// destination chain's address family on Confirm.
func (o *Orchestrator) SetRecipient(recipient string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.mutableLocked(); err != nil {
		return err
	}
	o.recipient = recipient
	return nil
}

// mutableLocked rejects input mutation once the user confirmed.
func (o *Orchestrator) mutableLocked() error {
	if o.state == StateIdle || o.state == StateQuoting || o.state == StateEstimating {
		return nil
	}
	return fmt.Errorf("%w: cannot modify inputs in state %s", ErrInvalidTransition, o.state)
}

// resetQuoteLocked invalidates the current quote generation and abandons
// any quote sequence still waiting on a retry backoff.
func (o *Orchestrator) resetQuoteLocked() {
	o.quoteSeq++
	if o.retryCancel != nil {
		o.retryCancel()
		o.retryCancel = nil
	}
	o.routes = nil
	o.route = nil
	o.fee = nil
	o.gasEstimate = nil
	if o.state == StateQuoting || o.state == StateEstimating {
		o.state = StateIdle
	}
}

// beginQuoteLocked transitions into quoting once source chain, destination
// chain, both tokens, and a positive amount are all set. The caller runs
// the returned quote generation after releasing the lock.
func (o *Orchestrator) beginQuoteLocked() (uint64, bool) {
	if o.source.IsNone() || o.dest.IsNone() || o.tokenIn == "" || o.tokenOut == "" || o.amount.Sign() <= 0 {
		return 0, false
	}
	o.transitionLocked(StateQuoting)
	o.emitLocked()
	return o.quoteSeq, true
}

// quote discovers routes and estimates the fee for the inputs captured at
// seq. Transport calls run outside the lock; an input change that bumped
// the generation while one was in flight abandons the stale result
// silently.
func (o *Orchestrator) quote(ctx context.Context, seq uint64) error {
	o.mu.Lock()
	if o.quoteSeq != seq || o.state != StateQuoting {
		o.mu.Unlock()
		return nil
	}
	source, dest := o.source, o.dest
	tokenIn, tokenOut := o.tokenIn, o.tokenOut
	o.mu.Unlock()

	var routes []transport.Route
	err := o.runTransport(ctx, "discover_routes", source, func(ctx context.Context) error {
		var opErr error
		routes, opErr = o.backend.DiscoverRoutes(ctx, source, dest, tokenIn, tokenOut)
		return opErr
	})

	o.mu.Lock()
	if o.quoteSeq != seq {
		o.mu.Unlock()
		return nil
	}
	if err != nil {
		o.failLocked(err)
		o.mu.Unlock()
		return err
	}
	routes = o.filterRoutesLocked(routes)
	if len(routes) == 0 {
		o.state = StateIdle
		o.mu.Unlock()
		return &ValidationError{Field: "route", Reason: "no viable routes for this pair"}
	}
	o.routes = routes
	o.route = &routes[0]
	route := routes[0]
	amount := o.amountStr
	o.transitionLocked(StateEstimating)
	o.emitLocked()
	o.mu.Unlock()

	var feeQuote transport.FeeQuote
	err = o.runTransport(ctx, "estimate_fee", source, func(ctx context.Context) error {
		var opErr error
		feeQuote, opErr = o.backend.EstimateFee(ctx, route, amount)
		return opErr
	})

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.quoteSeq != seq {
		return nil
	}
	if err != nil {
		o.failLocked(err)
		return err
	}
	o.fee = &feeQuote
	o.emitLocked()
	return nil
}

// filterRoutesLocked drops the direct path whenever either leg requires
// the bridging service. Offering a structurally present direct route on a
// bridging-only chain would silently bypass the bridge.
func (o *Orchestrator) filterRoutesLocked(routes []transport.Route) []transport.Route {
	if !o.gate.RequiresLayerSwap(o.source) && !o.gate.RequiresLayerSwap(o.dest) {
		return routes
	}
	bridged := routes[:0]
	for _, r := range routes {
		if r.Kind == transport.RouteBridge {
			bridged = append(bridged, r)
		}
	}
	return bridged
}

// Confirm is the explicit user intent to initiate. The full route, fee,
// and estimated time are presented (emitted) before the submission call is
// made; submission without that presentation is a protocol violation.
func (o *Orchestrator) Confirm(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateEstimating || o.route == nil || o.fee == nil {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w: confirm requires a quoted route and fee (state %s)", ErrInvalidTransition, state)
	}
	if err := o.validateRequestLocked(); err != nil {
		o.mu.Unlock()
		return err
	}

	o.transitionLocked(StateConfirmingUser)
	o.emitLocked()

	op := chains.OpSwap
	if o.isCrossChainLocked() {
		op = chains.OpCrossChainSwap
	}
	source := o.source
	req := transport.SubmitRequest{
		RouteID:          o.route.ID,
		SourceChainID:    o.route.SourceChainID,
		DestChainID:      o.route.DestChainID,
		TokenIn:          o.tokenIn,
		TokenOut:         o.tokenOut,
		Amount:           o.amountStr,
		RecipientAddress: o.recipient,
	}
	o.mu.Unlock()

	estimate := o.estimator.EstimateGas(ctx, source, op, nil)
	if o.metrics != nil {
		o.metrics.RecordGasSource(string(estimate.Source))
	}
	req.GasLimit = estimate.GasLimit
	req.GasSource = string(estimate.Source)

	o.mu.Lock()
	if o.state != StateConfirmingUser {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w: swap left confirmation during gas estimation (state %s)", ErrInvalidTransition, state)
	}
	o.gasEstimate = &estimate
	o.mu.Unlock()

	var receipt transport.SubmitReceipt
	err := o.runTransport(ctx, "submit", source, func(ctx context.Context) error {
		var opErr error
		receipt, opErr = o.backend.Submit(ctx, req)
		return opErr
	})

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.IsTerminal() {
		// Cancelled while the submission was pending.
		if err == nil {
			o.log.WithField("swap_id", receipt.SwapID).Warn("submission raced a cancellation; leaving backend record for reconciliation")
			return fmt.Errorf("%w: swap was cancelled during submission", ErrInvalidTransition)
		}
		return err
	}
	if err != nil {
		o.failLocked(err)
		return err
	}

	o.status = &Status{
		SwapID:    receipt.SwapID,
		State:     StateInitiated,
		CreatedAt: time.Now().UTC(),
	}
	o.transitionLocked(StateInitiated)
	o.emitLocked()
	o.log.WithField("swap_id", receipt.SwapID).Info("swap initiated")
	return nil
}

func (o *Orchestrator) validateRequestLocked() error {
	if o.recipient == "" {
		return &ValidationError{Field: "recipient", Reason: "recipient address is required"}
	}
	if err := o.registry.ValidateAddress(o.dest, o.recipient); err != nil {
		return &ValidationError{Field: "recipient", Reason: err.Error()}
	}

	op := chains.OpSwap
	if o.isCrossChainLocked() {
		op = chains.OpCrossChainSwap
	}
	if minStr, ok := o.registry.MinimumAmount(o.source, op); ok {
		if min, err := decimal.NewFromString(minStr); err == nil && o.amount.LessThan(min) {
			return &ValidationError{
				Field:  "amount",
				Reason: fmt.Sprintf("below the chain minimum of %s", minStr),
			}
		}
	}
	return nil
}

func (o *Orchestrator) isCrossChainLocked() bool {
	src, _ := o.source.Value()
	dst, _ := o.dest.Value()
	return src != dst
}

// Cancel aborts the swap. From initiated and pending it requests
// cancellation from the backend. A confirmation whose submission retries
// are still waiting out a backoff is aborted locally: the backend has not
// acknowledged anything yet, so there is nothing to cancel remotely, and
// the pending wait is interrupted instead of running to exhaustion.
func (o *Orchestrator) Cancel(ctx context.Context) error {
	o.mu.Lock()

	if o.state == StateConfirmingUser {
		cancel := o.retryCancel
		o.retryCancel = nil
		o.transitionLocked(StateCancelled)
		o.emitLocked()
		o.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil
	}

	if !o.state.CanCancel() {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w: cannot cancel from state %s", ErrInvalidTransition, state)
	}
	swapID := o.status.SwapID
	source := o.source
	o.mu.Unlock()

	err := o.runTransport(ctx, "cancel", source, func(ctx context.Context) error {
		return o.backend.Cancel(ctx, swapID)
	})

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		return fmt.Errorf("cancel swap %s: %w", swapID, err)
	}
	if o.state.IsTerminal() {
		return nil
	}
	o.transitionLocked(StateCancelled)
	o.status.State = StateCancelled
	o.emitLocked()
	return nil
}

// ApplyConfirmations feeds an externally observed confirmation snapshot
// into the state machine. Counts are monotonic: a stale update can lower
// nothing, and updates after a terminal state are ignored entirely.
func (o *Orchestrator) ApplyConfirmations(update ConfirmationUpdate) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.IsTerminal() {
		return nil
	}
	if o.state != StateInitiated && o.state != StatePending && o.state != StateProcessing {
		return fmt.Errorf("%w: confirmations arrive only after initiation (state %s)", ErrInvalidTransition, o.state)
	}

	switch strings.ToLower(update.BackendState) {
	case "failed":
		msg := update.BackendError
		if msg == "" {
			msg = "backend reported failure"
		}
		o.failLocked(errors.New(msg))
		return nil
	case "cancelled":
		if o.state.CanCancel() {
			o.transitionLocked(StateCancelled)
			o.status.State = StateCancelled
			o.emitLocked()
		} else {
			o.log.Warn("ignoring backend cancellation outside a cancellable state")
		}
		return nil
	}

	if update.SourceConfirmations > o.status.SourceConfirmations {
		o.status.SourceConfirmations = update.SourceConfirmations
	}
	if update.DestConfirmations > o.status.DestConfirmations {
		o.status.DestConfirmations = update.DestConfirmations
	}
	if o.status.SourceTxHash == "" {
		o.status.SourceTxHash = update.SourceTxHash
	}
	if o.status.DestTxHash == "" {
		o.status.DestTxHash = update.DestTxHash
	}

	srcLeg := o.tracker.Track(o.source, o.status.SourceConfirmations)
	dstLeg := o.tracker.Track(o.dest, o.status.DestConfirmations)
	if o.metrics != nil {
		o.metrics.SetConfirmationProgress(o.status.SwapID, "source", srcLeg.Progress)
		if o.isCrossChainLocked() {
			o.metrics.SetConfirmationProgress(o.status.SwapID, "dest", dstLeg.Progress)
		}
	}

	next := o.nextConfirmationStateLocked(srcLeg, dstLeg)
	if next != o.state {
		o.transitionLocked(next)
		o.status.State = next
	}
	o.emitLocked()
	return nil
}

func (o *Orchestrator) nextConfirmationStateLocked(srcLeg, dstLeg confirm.Snapshot) State {
	if !srcLeg.IsComplete {
		return StatePending
	}
	if o.isCrossChainLocked() && !dstLeg.IsComplete {
		return StateProcessing
	}
	return StateCompleted
}

// runTransport wraps a transport call in the retry engine with the chain's
// policy and metric hooks. It must be called without the orchestrator lock
// held: the cancel handle it registers stays observable, so Cancel and
// input resets can abort a pending backoff wait.
func (o *Orchestrator) runTransport(ctx context.Context, operation string, id chains.ChainID, op func(context.Context) error) error {
	retryCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.retrySeq++
	seq := o.retrySeq
	o.retryCancel = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		if o.retrySeq == seq {
			o.retryCancel = nil
		}
		o.mu.Unlock()
	}()

	opts := retry.Options{
		Policy: retry.ChainPolicy(o.registry, id, o.retryPolicy),
		Hooks: retry.Hooks{
			OnRetry: func(attempt, maxRetries int, delay time.Duration, err error) {
				if o.metrics != nil {
					o.metrics.RecordRetryAttempt(operation)
				}
				o.log.WithError(err).WithField("operation", operation).
					Warnf("retrying (%d/%d) after %s", attempt, maxRetries, delay)
			},
		},
	}
	err := retry.DoWithTimeout(retryCtx, op, opts)
	if err != nil && retry.IsRetryable(err) && o.metrics != nil {
		o.metrics.RecordRetryExhausted(operation)
	}
	return err
}

// failLocked moves the swap to failed from any non-terminal state, always
// populating the error message. The engine never swallows an error
// silently.
func (o *Orchestrator) failLocked(err error) {
	if o.state.IsTerminal() {
		return
	}
	o.failure = classifyFailure(err)
	if o.status != nil {
		o.status.State = StateFailed
		o.status.ErrorMessage = err.Error()
	}
	o.transitionLocked(StateFailed)
	o.emitLocked()
	o.log.WithError(err).Error("swap failed")
}

func (o *Orchestrator) transitionLocked(to State) {
	from := o.state
	if from == to {
		return
	}
	o.state = to
	if o.metrics != nil {
		o.metrics.RecordStateTransition(from.String(), to.String())
		if to.IsTerminal() {
			o.metrics.RecordSwapTerminal(to.String())
		}
	}
	o.log.WithField("from", from.String()).WithField("to", to.String()).Debug("state transition")
}

func (o *Orchestrator) emitLocked() {
	if o.listener == nil {
		return
	}
	o.listener(o.snapshotLocked())
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:    o.id,
		State: o.state,
	}
	if o.route != nil {
		snap.Route = &RouteView{
			ID:            o.route.ID,
			SourceChainID: o.route.SourceChainID,
			DestChainID:   o.route.DestChainID,
			TokenIn:       o.route.TokenIn,
			TokenOut:      o.route.TokenOut,
			Kind:          string(o.route.Kind),
			Provider:      o.route.Provider,
		}
	}
	if o.fee != nil {
		snap.Fee = o.fee.Fee
		snap.EstimatedTime = o.fee.EstimatedTimeSeconds
	}
	if o.failure != nil {
		snap.Failure = o.failure
	}
	if o.status == nil {
		return snap
	}

	snap.SwapID = o.status.SwapID
	srcLeg := o.tracker.Track(o.source, o.status.SourceConfirmations)
	snap.SourceLeg = &srcLeg
	if o.isCrossChainLocked() {
		dstLeg := o.tracker.Track(o.dest, o.status.DestConfirmations)
		snap.DestLeg = &dstLeg
		snap.Progress = (srcLeg.Progress + dstLeg.Progress) / 2
		if !srcLeg.IsComplete {
			snap.FormattedTime = srcLeg.FormattedTime
			snap.StatusMessage = srcLeg.Status.Message
		} else {
			snap.FormattedTime = dstLeg.FormattedTime
			snap.StatusMessage = dstLeg.Status.Message
		}
	} else {
		snap.Progress = srcLeg.Progress
		snap.FormattedTime = srcLeg.FormattedTime
		snap.StatusMessage = srcLeg.Status.Message
	}
	return snap
}

// Status returns a copy of the submission record, if one exists.
func (o *Orchestrator) Status() (Status, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status == nil {
		return Status{}, false
	}
	return *o.status, true
}
