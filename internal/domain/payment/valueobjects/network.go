package valueobjects

import (
	"fmt"
	"regexp"
	"strings"
)

// Network identifies one of the two supported USDT chains.
type Network string

const (
	NetworkBSC  Network = "BSC"
	NetworkTRON Network = "TRON"
)

// NewNetwork parses a network name case-insensitively.
func NewNetwork(s string) (Network, error) {
	n := Network(strings.ToUpper(strings.TrimSpace(s)))
	if !n.IsValid() {
		return "", fmt.Errorf("invalid network: %q", s)
	}
	return n, nil
}

func (n Network) IsValid() bool {
	switch n {
	case NetworkBSC, NetworkTRON:
		return true
	default:
		return false
	}
}

func (n Network) String() string {
	return string(n)
}

// TokenDecimals is the USDT decimal count on this chain.
func (n Network) TokenDecimals() int32 {
	switch n {
	case NetworkBSC:
		return 18
	case NetworkTRON:
		return 6
	default:
		return 0
	}
}

// DefaultRequiredConfirmations is the block depth at which a transfer counts as final.
func (n Network) DefaultRequiredConfirmations() int {
	switch n {
	case NetworkBSC:
		return 3
	case NetworkTRON:
		return 1
	default:
		return 0
	}
}

var (
	evmAddressPattern  = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	tronAddressPattern = regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`)

	evmTxHashPattern  = regexp.MustCompile(`^0x[0-9a-f]{64}$`)
	tronTxHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// ValidateAddress checks the textual address format only; TRON checksums are verified by the decoder.
func (n Network) ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	switch n {
	case NetworkBSC:
		if !evmAddressPattern.MatchString(address) {
			return fmt.Errorf("invalid BSC address format: must be 0x followed by 40 hex characters")
		}
	case NetworkTRON:
		if !tronAddressPattern.MatchString(address) {
			return fmt.Errorf("invalid TRON address format: must start with T followed by 33 base58 characters")
		}
	default:
		return fmt.Errorf("cannot validate address for unknown network: %s", n)
	}
	return nil
}

// AddressesEqual compares two addresses in this network's native encoding.
// BSC hex addresses compare case-insensitively since EIP-55 casing is only a checksum.
func (n Network) AddressesEqual(a, b string) bool {
	if n == NetworkBSC {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// NormalizeTxHash lower-cases a transaction hash and checks its shape. BSC hashes keep
// their 0x prefix, TRON transaction ids never carry one.
func (n Network) NormalizeTxHash(hash string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(hash))
	switch n {
	case NetworkBSC:
		if !strings.HasPrefix(h, "0x") {
			h = "0x" + h
		}
		if !evmTxHashPattern.MatchString(h) {
			return "", fmt.Errorf("invalid BSC transaction hash: must be 0x followed by 64 hex characters")
		}
	case NetworkTRON:
		h = strings.TrimPrefix(h, "0x")
		if !tronTxHashPattern.MatchString(h) {
			return "", fmt.Errorf("invalid TRON transaction id: must be 64 hex characters")
		}
	default:
		return "", fmt.Errorf("unknown network: %s", n)
	}
	return h, nil
}
