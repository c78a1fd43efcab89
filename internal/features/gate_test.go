package features

import (
	"testing"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
)

func gateTestRegistry(t *testing.T) *chains.Registry {
	t.Helper()
	r, err := chains.NewRegistry([]chains.ChainDescriptor{
		{
			ChainID:   1,
			Name:      "Ethereum",
			ChainType: chains.ChainTypeEVM,
			FeatureFlags: map[string]bool{
				"directSwap":     true,
				"crossChainSync": false, // explicit off beats the default on
			},
		},
		{
			ChainID:   137,
			Name:      "Polygon",
			ChainType: chains.ChainTypeEVM,
			// no flags configured at all
		},
		{
			ChainID:      0,
			Name:         "Bitcoin",
			ChainType:    chains.ChainTypeBitcoin,
			FeatureFlags: map[string]bool{"layerSwap": true},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestGate_DefaultsOnlyCrossChainSyncEnabled(t *testing.T) {
	gate := NewGate(gateTestRegistry(t), NewDefaults())
	unconfigured := chains.ID(137)

	tests := []struct {
		flag Flag
		want bool
	}{
		{FlagCrossChainSync, true},
		{FlagDirectSwap, false},
		{FlagLayerSwap, false},
		{FlagReferralSystem, false},
		{FlagWhitelist, false},
	}
	for _, tt := range tests {
		if got := gate.IsFeatureEnabled(unconfigured, tt.flag); got != tt.want {
			t.Errorf("IsFeatureEnabled(%s) = %v, want %v", tt.flag, got, tt.want)
		}
	}
}

func TestGate_ExplicitValuesWinOverDefaults(t *testing.T) {
	gate := NewGate(gateTestRegistry(t), NewDefaults())
	eth := chains.ID(1)

	if !gate.SupportsDirectSwap(eth) {
		t.Error("explicit directSwap=true should be enabled")
	}
	if gate.IsFeatureEnabled(eth, FlagCrossChainSync) {
		t.Error("explicit crossChainSync=false must override the enabled default")
	}
}

func TestGate_UnknownChainResolvesThroughDefaults(t *testing.T) {
	gate := NewGate(gateTestRegistry(t), NewDefaults())
	unknown := chains.ID(424242)

	if !gate.IsFeatureEnabled(unknown, FlagCrossChainSync) {
		t.Error("unknown chain should inherit crossChainSync default")
	}
	if gate.SupportsDirectSwap(unknown) {
		t.Error("unknown chain should not support direct swaps")
	}
}

func TestGate_RequiresLayerSwap(t *testing.T) {
	gate := NewGate(gateTestRegistry(t), NewDefaults())

	tests := []struct {
		name string
		id   chains.ChainID
		want bool
	}{
		{"EVM without flag", chains.ID(137), false},
		{"non-EVM regardless of flag", chains.ID(0), true},
		{"unknown chain", chains.ID(424242), true},
		{"absent chain", chains.NoChain, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gate.RequiresLayerSwap(tt.id); got != tt.want {
				t.Errorf("RequiresLayerSwap = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGate_RequiresLayerSwap_FlagOnEVMChain(t *testing.T) {
	r, err := chains.NewRegistry([]chains.ChainDescriptor{
		{
			ChainID:      10,
			Name:         "Optimism",
			ChainType:    chains.ChainTypeEVM,
			FeatureFlags: map[string]bool{"layerSwap": true},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	gate := NewGate(r, NewDefaults())

	if !gate.RequiresLayerSwap(chains.ID(10)) {
		t.Error("explicit layerSwap flag must force bridging even on an EVM chain")
	}
}

func TestGate_FeatureFlagsMerged(t *testing.T) {
	gate := NewGate(gateTestRegistry(t), NewDefaults())

	merged := gate.FeatureFlags(chains.ID(1))
	if len(merged) != len(knownFlags) {
		t.Fatalf("merged set has %d flags, want %d", len(merged), len(knownFlags))
	}
	if !merged[FlagDirectSwap] {
		t.Error("explicit directSwap should survive the merge")
	}
	if merged[FlagCrossChainSync] {
		t.Error("explicit crossChainSync=false should survive the merge")
	}
	if merged[FlagWhitelist] {
		t.Error("unconfigured whitelist should fall back to disabled")
	}
}
