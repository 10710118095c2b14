package usecases

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
)

// Maximum allowed confirmations (prevent misconfiguration)
const maxConfirmations = 100

// ChainSettings is the per-network verification policy.
type ChainSettings struct {
	DepositAddress        string
	RequiredConfirmations int
	// ExplorerTxURL is prefixed to the tx hash to build a block explorer link.
	ExplorerTxURL string
}

// PaymentPolicy holds everything verification needs besides the ledger and the chain.
type PaymentPolicy struct {
	Chains          map[vo.Network]ChainSettings
	VoteUnitPrice   decimal.Decimal
	AmountTolerance decimal.Decimal
}

// NewPaymentPolicy validates the settings and fills defaults. Networks without a deposit
// address are left out and cannot be verified.
func NewPaymentPolicy(chains map[vo.Network]ChainSettings, unitPrice, tolerance decimal.Decimal) (PaymentPolicy, error) {
	if !unitPrice.IsPositive() {
		return PaymentPolicy{}, fmt.Errorf("vote unit price must be positive, got %s", unitPrice)
	}
	if tolerance.IsNegative() {
		return PaymentPolicy{}, fmt.Errorf("amount tolerance must not be negative, got %s", tolerance)
	}

	policy := PaymentPolicy{
		Chains:          make(map[vo.Network]ChainSettings, len(chains)),
		VoteUnitPrice:   unitPrice,
		AmountTolerance: tolerance,
	}
	for network, settings := range chains {
		if strings.TrimSpace(settings.DepositAddress) == "" {
			continue
		}
		if err := network.ValidateAddress(settings.DepositAddress); err != nil {
			return PaymentPolicy{}, fmt.Errorf("%s deposit address: %w", network, err)
		}
		settings.RequiredConfirmations = validateConfirmations(settings.RequiredConfirmations, network.DefaultRequiredConfirmations())
		policy.Chains[network] = settings
	}
	if len(policy.Chains) == 0 {
		return PaymentPolicy{}, fmt.Errorf("no network has a deposit address configured")
	}
	return policy, nil
}

// validateConfirmations validates and normalizes confirmation count
// Returns defaultVal if value is <= 0, caps at maxConfirmations if too high
func validateConfirmations(value, defaultVal int) int {
	if value <= 0 {
		return defaultVal
	}
	if value > maxConfirmations {
		return maxConfirmations
	}
	return value
}

func (p PaymentPolicy) settings(network vo.Network) (ChainSettings, bool) {
	s, ok := p.Chains[network]
	return s, ok
}

// ExplorerURL links txHash on the network's block explorer; empty when none is configured.
func (p PaymentPolicy) ExplorerURL(network vo.Network, txHash string) string {
	s, ok := p.Chains[network]
	if !ok || s.ExplorerTxURL == "" {
		return ""
	}
	return s.ExplorerTxURL + txHash
}

func (p PaymentPolicy) tolerance() decimal.Decimal {
	if p.AmountTolerance.IsZero() {
		return payment.DefaultAmountTolerance
	}
	return p.AmountTolerance
}
