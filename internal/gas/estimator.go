// Package gas produces gas limits and fee configurations for transactions.
// Resolution walks a fixed priority order: caller override, buffered live
// estimate, registry static limit, base table scaled by the chain
// multiplier, absolute floor. Live estimation failures never propagate;
// they fall through to the static sources with a warning.
package gas

import (
	"context"
	"errors"
	"math/big"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
	"github.com/OpenBridge-Network/swap_engine/pkg/logger"
)

// ErrGasPriceUnavailable marks a cost estimate whose price could not be
// resolved from any source. Callers surface the condition instead of a
// zero or garbage cost.
var ErrGasPriceUnavailable = errors.New("could not determine gas price")

// Source records which resolution step produced a gas limit.
type Source string

const (
	SourceOverride Source = "override"
	SourceLive     Source = "live"
	SourceStatic   Source = "static"
	SourceTable    Source = "table"
	SourceFloor    Source = "floor"
)

// PriceSource records which source resolved a gas price.
type PriceSource string

const (
	PriceSourceLive   PriceSource = "live"
	PriceSourceStatic PriceSource = "static"
	PriceSourceMaxFee PriceSource = "max_fee"
)

// Tables is the immutable base gas configuration. Construct once and share
// by reference; it is never mutated after construction.
type Tables struct {
	// BaseGas is the per-operation base gas limit.
	BaseGas map[chains.Operation]uint64

	// ChainMultipliers scales the base table per chain id. Chains with
	// heavier validation carry multipliers above 1.
	ChainMultipliers map[uint64]float64

	// FloorGasLimit is the absolute fallback when nothing else resolves.
	FloorGasLimit uint64

	// LiveBuffer inflates dynamic estimates as a safety margin.
	LiveBuffer float64
}

// DefaultTables returns the documented base gas configuration.
// Cross-chain swaps are intentionally the most expensive operation.
func DefaultTables() *Tables {
	return &Tables{
		BaseGas: map[chains.Operation]uint64{
			chains.OpSwap:           180_000,
			chains.OpApprove:        60_000,
			chains.OpTransfer:       21_000,
			chains.OpCrossChainSwap: 350_000,
			chains.OpReferral:       120_000,
		},
		ChainMultipliers: map[uint64]float64{},
		FloorGasLimit:    21_000,
		LiveBuffer:       1.2,
	}
}

// LiveEstimator is an optional on-chain estimation capability. Both methods
// may fail freely; the estimator degrades to static sources.
type LiveEstimator interface {
	// EstimateGas asks the chain for a gas limit for the operation.
	EstimateGas(ctx context.Context, id chains.ChainID, op chains.Operation) (uint64, error)

	// SuggestGasPrice asks the chain for a current fee, in the chain's
	// smallest fee unit.
	SuggestGasPrice(ctx context.Context, id chains.ChainID) (*big.Int, error)
}

// Estimate is a resolved gas configuration for one transaction.
type Estimate struct {
	GasLimit  uint64           `json:"gasLimit"`
	Operation chains.Operation `json:"operation"`
	ChainID   chains.ChainID   `json:"-"`
	Source    Source           `json:"source"`
}

// Cost is a resolved total fee estimate. Wei is nil when no price source
// resolved; Err then carries ErrGasPriceUnavailable.
type Cost struct {
	Wei         *big.Int
	GasLimit    uint64
	PriceSource PriceSource
}

// Estimator resolves gas limits and costs.
type Estimator struct {
	registry *chains.Registry
	tables   *Tables
	live     LiveEstimator
	log      *logger.Logger
}

// NewEstimator creates an estimator. live may be nil, in which case the
// dynamic resolution step is skipped entirely.
func NewEstimator(registry *chains.Registry, tables *Tables, live LiveEstimator, log *logger.Logger) *Estimator {
	if tables == nil {
		tables = DefaultTables()
	}
	if log == nil {
		log = logger.NewDefault("gas")
	}
	return &Estimator{registry: registry, tables: tables, live: live, log: log}
}

// EstimateGas resolves a gas limit for the operation on the chain.
// override, when non-nil, wins unconditionally.
func (e *Estimator) EstimateGas(ctx context.Context, id chains.ChainID, op chains.Operation, override *uint64) Estimate {
	if override != nil {
		return Estimate{GasLimit: *override, Operation: op, ChainID: id, Source: SourceOverride}
	}

	if e.live != nil {
		limit, err := e.live.EstimateGas(ctx, id, op)
		if err == nil && limit > 0 {
			buffered := uint64(float64(limit) * e.tables.LiveBuffer)
			return Estimate{GasLimit: buffered, Operation: op, ChainID: id, Source: SourceLive}
		}
		if err != nil {
			e.log.WithError(err).WithField("chain", id.String()).Warn("live gas estimation failed, falling back to static sources")
		}
	}

	if settings, ok := e.registry.GasSettings(id); ok && settings.GasLimit > 0 {
		return Estimate{GasLimit: settings.GasLimit, Operation: op, ChainID: id, Source: SourceStatic}
	}

	if base, ok := e.tables.BaseGas[op]; ok && base > 0 {
		limit := base
		if n, valid := id.Value(); valid {
			if mult, ok := e.tables.ChainMultipliers[n]; ok && mult > 0 {
				limit = uint64(float64(base) * mult)
			}
		}
		return Estimate{GasLimit: limit, Operation: op, ChainID: id, Source: SourceTable}
	}

	return Estimate{GasLimit: e.tables.FloorGasLimit, Operation: op, ChainID: id, Source: SourceFloor}
}

// EstimateCost computes gasLimit × gasPrice. The price resolves preferring
// a live fee query, then the registry's static gas price, then its max-fee
// field. When none resolve the cost carries a nil Wei and the returned
// error is ErrGasPriceUnavailable.
func (e *Estimator) EstimateCost(ctx context.Context, id chains.ChainID, gasLimit uint64) (Cost, error) {
	price, source, ok := e.resolvePrice(ctx, id)
	if !ok {
		return Cost{GasLimit: gasLimit}, ErrGasPriceUnavailable
	}
	total := new(big.Int).Mul(price, new(big.Int).SetUint64(gasLimit))
	return Cost{Wei: total, GasLimit: gasLimit, PriceSource: source}, nil
}

func (e *Estimator) resolvePrice(ctx context.Context, id chains.ChainID) (*big.Int, PriceSource, bool) {
	if e.live != nil {
		if price, err := e.live.SuggestGasPrice(ctx, id); err == nil && price != nil && price.Sign() > 0 {
			return price, PriceSourceLive, true
		}
	}

	settings, ok := e.registry.GasSettings(id)
	if !ok {
		return nil, "", false
	}
	if price, ok := parsePrice(settings.GasPrice); ok {
		return price, PriceSourceStatic, true
	}
	if price, ok := parsePrice(settings.MaxFeePerGas); ok {
		return price, PriceSourceMaxFee, true
	}
	return nil, "", false
}

func parsePrice(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	price, ok := new(big.Int).SetString(s, 10)
	if !ok || price.Sign() <= 0 {
		return nil, false
	}
	return price, true
}
