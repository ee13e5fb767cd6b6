package assets

import (
	"fmt"
	"math/big"

	"farmchain/crypto"
)

// BankLedger moves native denominations.
type BankLedger interface {
	Send(denom string, from, to crypto.Address, amount *big.Int) error
	Balance(denom string, addr crypto.Address) (*big.Int, error)
}

// TokenLedger moves contract tokens.
type TokenLedger interface {
	Transfer(symbol string, sender, recipient crypto.Address, amount *big.Int) error
	BalanceOf(symbol string, holder crypto.Address) (*big.Int, error)
}

// Mover resolves the asset union onto the right ledger. Engines hold one
// Mover instead of branching on asset kind at every transfer site.
type Mover struct {
	Bank   BankLedger
	Tokens TokenLedger
}

// Transfer moves amount of the given asset between accounts.
func (m Mover) Transfer(info Info, from, to crypto.Address, amount *big.Int) error {
	switch info.Kind {
	case Native:
		return m.Bank.Send(info.Denom, from, to, amount)
	case Token:
		return m.Tokens.Transfer(info.Symbol, from, to, amount)
	default:
		return fmt.Errorf("assets: unknown kind %d", info.Kind)
	}
}

// Balance reports how much of the asset addr holds.
func (m Mover) Balance(info Info, addr crypto.Address) (*big.Int, error) {
	switch info.Kind {
	case Native:
		return m.Bank.Balance(info.Denom, addr)
	case Token:
		return m.Tokens.BalanceOf(info.Symbol, addr)
	default:
		return nil, fmt.Errorf("assets: unknown kind %d", info.Kind)
	}
}
