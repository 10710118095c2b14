// Package id generates Stripe-style prefixed identifiers.
package id

import (
	"strings"

	"github.com/google/uuid"
)

const PrefixPaymentIntent = "pi"

// New returns prefix + "_" + a random UUID without dashes.
func New(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// HasPrefix reports whether s was generated with prefix.
func HasPrefix(s, prefix string) bool {
	return strings.HasPrefix(s, prefix+"_") && len(s) == len(prefix)+1+32
}
