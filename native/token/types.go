package token

import (
	"fmt"
	"math/big"
	"strings"

	"farmchain/crypto"
)

// Metadata describes a registered token. The minter is the only account
// allowed to create new supply; burn is open to any holder.
type Metadata struct {
	Symbol   string
	Name     string
	Decimals uint8
	Minter   crypto.Address
}

// Clone returns a copy safe for callers to mutate.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// NormalizeSymbol upper-cases and trims a symbol, rejecting empty results.
func NormalizeSymbol(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", fmt.Errorf("token: empty symbol")
	}
	return trimmed, nil
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
