// Package chains provides the read-only chain capability registry for the
// swap engine. Descriptors are loaded once at process start and never
// mutated; every accessor tolerates an unknown chain by returning an
// explicit absent value instead of a silent zero.
package chains

import (
	"fmt"
	"strconv"
)

// ChainType identifies the address and transaction family of a chain.
type ChainType string

const (
	ChainTypeEVM     ChainType = "evm"
	ChainTypeBitcoin ChainType = "bitcoin"
	ChainTypeSolana  ChainType = "solana"
	ChainTypeTron    ChainType = "tron"
)

// ParseChainType converts a string to ChainType.
func ParseChainType(s string) (ChainType, error) {
	switch s {
	case "evm", "EVM":
		return ChainTypeEVM, nil
	case "bitcoin", "BITCOIN":
		return ChainTypeBitcoin, nil
	case "solana", "SOLANA":
		return ChainTypeSolana, nil
	case "tron", "TRON":
		return ChainTypeTron, nil
	default:
		return "", fmt.Errorf("unknown chain type: %q", s)
	}
}

// ChainID is a tagged chain identity. The zero value is NoChain, which is
// distinct from ID(0): chain id 0 is a valid identifier, not a sentinel
// for "absent".
type ChainID struct {
	id    uint64
	valid bool
}

// NoChain is the absent chain identity.
var NoChain = ChainID{}

// ID wraps a numeric chain id into a valid ChainID.
func ID(n uint64) ChainID {
	return ChainID{id: n, valid: true}
}

// Value returns the numeric id and whether one is present.
func (c ChainID) Value() (uint64, bool) {
	return c.id, c.valid
}

// IsNone reports whether the identity is absent.
func (c ChainID) IsNone() bool {
	return !c.valid
}

// String returns the numeric id, or "none" when absent.
func (c ChainID) String() string {
	if !c.valid {
		return "none"
	}
	return strconv.FormatUint(c.id, 10)
}

// Operation is the kind of transaction an estimate or minimum applies to.
type Operation string

const (
	OpSwap           Operation = "swap"
	OpApprove        Operation = "approve"
	OpTransfer       Operation = "transfer"
	OpCrossChainSwap Operation = "cross_chain_swap"
	OpReferral       Operation = "referral"
)

// GasDefaults holds a chain's configured gas settings. Price fields are
// decimal strings in the chain's smallest fee unit (wei for EVM chains);
// empty means not configured.
type GasDefaults struct {
	GasLimit     uint64 `yaml:"gasLimit" json:"gasLimit"`
	GasPrice     string `yaml:"gasPrice" json:"gasPrice"`
	MaxFeePerGas string `yaml:"maxFeePerGas" json:"maxFeePerGas"`
}

// TimeoutSettings holds a chain's retry tuning for transport calls.
type TimeoutSettings struct {
	MaxRetries  int   `yaml:"maxRetries" json:"maxRetries"`
	BaseDelayMs int64 `yaml:"baseDelayMs" json:"baseDelayMs"`
	MaxDelayMs  int64 `yaml:"maxDelayMs" json:"maxDelayMs"`
}

// ChainDescriptor holds the capabilities of one chain. Immutable once
// loaded into a Registry.
type ChainDescriptor struct {
	ChainID               uint64               `yaml:"chainId" json:"chainId"`
	Name                  string               `yaml:"name" json:"name"`
	ChainType             ChainType            `yaml:"chainType" json:"chainType"`
	NativeCurrency        string               `yaml:"nativeCurrency" json:"nativeCurrency"`
	BlockTimeSeconds      float64              `yaml:"blockTimeSeconds" json:"blockTimeSeconds"`
	ConfirmationsRequired uint64               `yaml:"confirmationsRequired" json:"confirmationsRequired"`
	GasDefaults           GasDefaults          `yaml:"gasDefaults" json:"gasDefaults"`
	FeatureFlags          map[string]bool      `yaml:"featureFlags" json:"featureFlags"`
	MinimumAmounts        map[Operation]string `yaml:"minimumAmounts" json:"minimumAmounts"`
	ExplorerURLTemplate   string               `yaml:"explorerUrlTemplate" json:"explorerUrlTemplate"`
	TimeoutSettings       TimeoutSettings      `yaml:"timeoutSettings" json:"timeoutSettings"`
}
