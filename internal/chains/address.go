package chains

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Address validation errors. ErrZeroAddress is deliberately distinct from
// ErrInvalidAddress: the EVM all-zero address is well-formed but never a
// legitimate recipient.
var (
	ErrUnknownChain   = errors.New("unknown chain id")
	ErrInvalidAddress = errors.New("invalid address format")
	ErrZeroAddress    = errors.New("zero address")
)

// ValidateAddress checks an address against the chain's address family
// rules. A nil return means the address is acceptable as a recipient.
func (r *Registry) ValidateAddress(id ChainID, address string) error {
	d, ok := r.Chain(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChain, id)
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrInvalidAddress
	}

	switch d.ChainType {
	case ChainTypeEVM:
		return validateEVMAddress(address)
	case ChainTypeBitcoin:
		return validateBitcoinAddress(address)
	case ChainTypeSolana:
		return validateSolanaAddress(address)
	case ChainTypeTron:
		return validateTronAddress(address)
	default:
		return fmt.Errorf("%w: unsupported chain type %q", ErrInvalidAddress, d.ChainType)
	}
}

// IsValidAddress is the boolean convenience over ValidateAddress.
func (r *Registry) IsValidAddress(id ChainID, address string) bool {
	return r.ValidateAddress(id, address) == nil
}

func validateEVMAddress(address string) error {
	if !ethcommon.IsHexAddress(address) {
		return ErrInvalidAddress
	}
	parsed := ethcommon.HexToAddress(address)
	if parsed == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	// EIP-55: a mixed-case address must carry a valid checksum. All-lower
	// and all-upper forms are accepted as unchecksummed.
	hexPart := strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")
	if hexPart != strings.ToLower(hexPart) && hexPart != strings.ToUpper(hexPart) {
		if address != parsed.Hex() {
			return fmt.Errorf("%w: bad EIP-55 checksum", ErrInvalidAddress)
		}
	}
	return nil
}

func validateBitcoinAddress(address string) error {
	// Segwit addresses are bech32 with a known human-readable part.
	if hrp, _, err := bech32.Decode(address); err == nil {
		switch hrp {
		case "bc", "tb", "bcrt":
			return nil
		}
		return fmt.Errorf("%w: unexpected bech32 prefix %q", ErrInvalidAddress, hrp)
	}
	// Legacy P2PKH/P2SH addresses are base58check.
	_, version, err := base58.CheckDecode(address)
	if err != nil {
		return ErrInvalidAddress
	}
	switch version {
	case 0x00, 0x05, 0x6f, 0xc4:
		return nil
	}
	return fmt.Errorf("%w: unexpected version byte %#x", ErrInvalidAddress, version)
}

func validateSolanaAddress(address string) error {
	decoded := base58.Decode(address)
	if len(decoded) != 32 {
		return ErrInvalidAddress
	}
	return nil
}

func validateTronAddress(address string) error {
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return ErrInvalidAddress
	}
	// Mainnet Tron addresses are base58check with a 0x41 version byte over
	// a 20-byte payload.
	if version != 0x41 || len(payload) != 20 {
		return ErrInvalidAddress
	}
	return nil
}
