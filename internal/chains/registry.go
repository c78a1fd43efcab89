package chains

import (
	"fmt"
	"strings"
)

// Registry is the immutable per-chain capability lookup. It is built once
// from loaded descriptors and shared read-only by every engine component,
// so concurrent orchestrators need no locking around it.
type Registry struct {
	byID map[uint64]ChainDescriptor
}

// NewRegistry builds a registry from descriptors. Duplicate chain ids are
// rejected so a misconfigured file cannot silently shadow a chain.
func NewRegistry(descriptors []ChainDescriptor) (*Registry, error) {
	byID := make(map[uint64]ChainDescriptor, len(descriptors))
	for _, d := range descriptors {
		if _, dup := byID[d.ChainID]; dup {
			return nil, fmt.Errorf("duplicate chain id %d (%s)", d.ChainID, d.Name)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("chain id %d: name is required", d.ChainID)
		}
		if _, err := ParseChainType(string(d.ChainType)); err != nil {
			return nil, fmt.Errorf("chain %s: %w", d.Name, err)
		}
		byID[d.ChainID] = d
	}
	return &Registry{byID: byID}, nil
}

// Chain returns the descriptor for the chain id, and whether it is known.
func (r *Registry) Chain(id ChainID) (ChainDescriptor, bool) {
	n, ok := id.Value()
	if !ok {
		return ChainDescriptor{}, false
	}
	d, ok := r.byID[n]
	return d, ok
}

// ChainName returns the configured display name, or "Unknown" for an
// unregistered or absent id. Callers render the placeholder rather than
// guessing.
func (r *Registry) ChainName(id ChainID) string {
	if d, ok := r.Chain(id); ok {
		return d.Name
	}
	return "Unknown"
}

// BlockTime returns the chain's block time in seconds.
func (r *Registry) BlockTime(id ChainID) (float64, bool) {
	d, ok := r.Chain(id)
	if !ok {
		return 0, false
	}
	return d.BlockTimeSeconds, true
}

// ConfirmationsRequired returns the chain's finality threshold.
func (r *Registry) ConfirmationsRequired(id ChainID) (uint64, bool) {
	d, ok := r.Chain(id)
	if !ok {
		return 0, false
	}
	return d.ConfirmationsRequired, true
}

// GasSettings returns the chain's configured gas defaults.
func (r *Registry) GasSettings(id ChainID) (GasDefaults, bool) {
	d, ok := r.Chain(id)
	if !ok {
		return GasDefaults{}, false
	}
	return d.GasDefaults, true
}

// FeatureFlags returns the chain's sparse flag set. A key that is absent
// from the map is "not configured", which is distinct from an explicit
// false; merging with defaults is the feature gate's job.
func (r *Registry) FeatureFlags(id ChainID) (map[string]bool, bool) {
	d, ok := r.Chain(id)
	if !ok {
		return nil, false
	}
	return d.FeatureFlags, true
}

// MinimumAmounts returns the chain's per-operation minimums as decimal
// strings.
func (r *Registry) MinimumAmounts(id ChainID) (map[Operation]string, bool) {
	d, ok := r.Chain(id)
	if !ok {
		return nil, false
	}
	return d.MinimumAmounts, true
}

// MinimumAmount returns the minimum for one operation kind, if configured.
func (r *Registry) MinimumAmount(id ChainID, op Operation) (string, bool) {
	m, ok := r.MinimumAmounts(id)
	if !ok {
		return "", false
	}
	min, ok := m[op]
	return min, ok
}

// TimeoutSettings returns the chain's retry tuning for transport calls.
func (r *Registry) TimeoutSettings(id ChainID) (TimeoutSettings, bool) {
	d, ok := r.Chain(id)
	if !ok {
		return TimeoutSettings{}, false
	}
	return d.TimeoutSettings, true
}

// ExplorerURL substitutes the transaction hash into the chain's explorer
// template. Returns "" when the chain or its template is not configured.
func (r *Registry) ExplorerURL(id ChainID, txHash string) string {
	d, ok := r.Chain(id)
	if !ok || d.ExplorerURLTemplate == "" || txHash == "" {
		return ""
	}
	if strings.Contains(d.ExplorerURLTemplate, "{txHash}") {
		return strings.ReplaceAll(d.ExplorerURLTemplate, "{txHash}", txHash)
	}
	return d.ExplorerURLTemplate + txHash
}

// All returns every registered descriptor. The slice is a copy; the
// registry itself stays immutable.
func (r *Registry) All() []ChainDescriptor {
	out := make([]ChainDescriptor, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	return out
}
