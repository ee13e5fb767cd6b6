package bank

import (
	"errors"
	"math/big"

	"farmchain/crypto"
)

var (
	errNilState            = errors.New("bank engine: state not configured")
	errInvalidAmount       = errors.New("bank engine: amount must be positive")
	errInsufficientBalance = errors.New("bank engine: insufficient balance")
	errZeroAddress         = errors.New("bank engine: zero address")
)

// ErrInsufficientBalance is returned when a send exceeds the sender's funds.
var ErrInsufficientBalance = errInsufficientBalance

type engineState interface {
	GetBankBalance(denom string, addr crypto.Address) (*big.Int, error)
	PutBankBalance(denom string, addr crypto.Address, amount *big.Int) error
	GetBankSupply(denom string) (*big.Int, error)
	PutBankSupply(denom string, amount *big.Int) error
}

// Engine is the ledger for native denominations. Unlike contract tokens,
// native balances have no allowances and are minted only at genesis.
type Engine struct {
	state engineState
}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

// Mint credits freshly created funds to an account. Genesis only.
func (e *Engine) Mint(denom string, to crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if to.IsZero() {
		return errZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	balance, err := e.state.GetBankBalance(denom, to)
	if err != nil {
		return err
	}
	if err := e.state.PutBankBalance(denom, to, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	supply, err := e.state.GetBankSupply(denom)
	if err != nil {
		return err
	}
	return e.state.PutBankSupply(denom, new(big.Int).Add(supply, amount))
}

// Send moves amount of denom from one account to another.
func (e *Engine) Send(denom string, from, to crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if from.IsZero() || to.IsZero() {
		return errZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	fromBal, err := e.state.GetBankBalance(denom, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	if err := e.state.PutBankBalance(denom, from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	toBal, err := e.state.GetBankBalance(denom, to)
	if err != nil {
		return err
	}
	return e.state.PutBankBalance(denom, to, new(big.Int).Add(toBal, amount))
}

// Balance reports the holdings of addr in denom.
func (e *Engine) Balance(denom string, addr crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.GetBankBalance(denom, addr)
}

// Supply reports the total minted amount of denom.
func (e *Engine) Supply(denom string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.GetBankSupply(denom)
}
