// Package features answers per-chain capability questions by merging the
// chain registry's sparse flag sets with documented defaults. Explicit
// values always win over defaults, so "explicitly disabled" and "not
// configured" stay distinguishable.
package features

import (
	"github.com/OpenBridge-Network/swap_engine/internal/chains"
)

// Flag names one toggleable per-chain capability.
type Flag string

const (
	// FlagCrossChainSync gates status synchronization for cross-chain swaps.
	// It is the only flag that defaults to enabled.
	FlagCrossChainSync Flag = "crossChainSync"

	// FlagDirectSwap gates same-chain swaps without bridging.
	FlagDirectSwap Flag = "directSwap"

	// FlagLayerSwap marks chains whose swaps must route through the
	// bridging service.
	FlagLayerSwap Flag = "layerSwap"

	// FlagReferralSystem gates referral payouts.
	FlagReferralSystem Flag = "referralSystem"

	// FlagWhitelist gates whitelist-restricted access.
	FlagWhitelist Flag = "whitelist"
)

// knownFlags is the complete capability set a merged flag map carries.
var knownFlags = []Flag{
	FlagCrossChainSync,
	FlagDirectSwap,
	FlagLayerSwap,
	FlagReferralSystem,
	FlagWhitelist,
}

// Defaults is the immutable default flag table. Construct it once with
// NewDefaults and pass it by reference to every consumer; nothing mutates
// it after construction.
type Defaults struct {
	values map[Flag]bool
}

// NewDefaults returns the documented default table: cross-chain sync is
// enabled, everything else is disabled.
func NewDefaults() *Defaults {
	return &Defaults{values: map[Flag]bool{
		FlagCrossChainSync: true,
		FlagDirectSwap:     false,
		FlagLayerSwap:      false,
		FlagReferralSystem: false,
		FlagWhitelist:      false,
	}}
}

// Value returns the default for a flag. Unlisted flags default to disabled.
func (d *Defaults) Value(flag Flag) bool {
	return d.values[flag]
}

// Gate resolves per-chain feature questions.
type Gate struct {
	registry *chains.Registry
	defaults *Defaults
}

// NewGate creates a feature gate over the registry.
func NewGate(registry *chains.Registry, defaults *Defaults) *Gate {
	if defaults == nil {
		defaults = NewDefaults()
	}
	return &Gate{registry: registry, defaults: defaults}
}

// IsFeatureEnabled reports whether the flag is on for the chain. A flag key
// present in the chain's configuration is returned verbatim; an absent key
// resolves through the default table. Unknown chains carry no configuration
// and resolve entirely through defaults.
func (g *Gate) IsFeatureEnabled(id chains.ChainID, flag Flag) bool {
	if flags, ok := g.registry.FeatureFlags(id); ok {
		if v, set := flags[string(flag)]; set {
			return v
		}
	}
	return g.defaults.Value(flag)
}

// FeatureFlags returns the complete merged flag set for the chain:
// defaults underneath, explicit configuration on top.
func (g *Gate) FeatureFlags(id chains.ChainID) map[Flag]bool {
	merged := make(map[Flag]bool, len(knownFlags))
	for _, f := range knownFlags {
		merged[f] = g.defaults.Value(f)
	}
	if flags, ok := g.registry.FeatureFlags(id); ok {
		for name, v := range flags {
			merged[Flag(name)] = v
		}
	}
	return merged
}

// SupportsDirectSwap reports whether same-chain swaps are offered.
func (g *Gate) SupportsDirectSwap(id chains.ChainID) bool {
	return g.IsFeatureEnabled(id, FlagDirectSwap)
}

// RequiresLayerSwap reports whether swaps touching the chain must route
// through the bridging service. Independent of the flag, any chain whose
// type is not EVM requires bridging; a chain the registry does not know is
// treated the same way rather than being offered a direct path.
func (g *Gate) RequiresLayerSwap(id chains.ChainID) bool {
	if g.IsFeatureEnabled(id, FlagLayerSwap) {
		return true
	}
	d, ok := g.registry.Chain(id)
	if !ok {
		return true
	}
	return d.ChainType != chains.ChainTypeEVM
}

// SupportsReferralSystem reports whether referral payouts run on the chain.
func (g *Gate) SupportsReferralSystem(id chains.ChainID) bool {
	return g.IsFeatureEnabled(id, FlagReferralSystem)
}

// SupportsWhitelist reports whether whitelist restrictions apply.
func (g *Gate) SupportsWhitelist(id chains.ChainID) bool {
	return g.IsFeatureEnabled(id, FlagWhitelist)
}
