package token

import (
	"errors"
	"math/big"

	"farmchain/crypto"
)

var (
	errNilState             = errors.New("token engine: state not configured")
	errUnknownToken         = errors.New("token engine: token not registered")
	errTokenExists          = errors.New("token engine: symbol already registered")
	errInvalidAmount        = errors.New("token engine: amount must be positive")
	errNotMinter            = errors.New("token engine: caller is not the minter")
	errInsufficientBalance  = errors.New("token engine: insufficient balance")
	errInsufficientApproval = errors.New("token engine: insufficient allowance")
)

type engineState interface {
	GetTokenMeta(symbol string) (*Metadata, error)
	PutTokenMeta(symbol string, meta *Metadata) error
	GetTokenBalance(symbol string, addr crypto.Address) (*big.Int, error)
	PutTokenBalance(symbol string, addr crypto.Address, amount *big.Int) error
	GetTokenAllowance(symbol string, owner, spender crypto.Address) (*big.Int, error)
	PutTokenAllowance(symbol string, owner, spender crypto.Address, amount *big.Int) error
	GetTokenSupply(symbol string) (*big.Int, error)
	PutTokenSupply(symbol string, amount *big.Int) error
}

// Engine manages every registered fungible token: balances, supply, minting
// rights and allowances. The vault's claim token, the pool legs and the AMM
// LP token are all plain tokens behind this engine.
type Engine struct {
	state engineState
}

func NewEngine() *Engine { return &Engine{} }

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// Create registers a new token with the given minter. The symbol must be
// unused.
func (e *Engine) Create(symbol, name string, decimals uint8, minter crypto.Address) (*Metadata, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	existing, err := e.state.GetTokenMeta(normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errTokenExists
	}
	meta := &Metadata{Symbol: normalized, Name: name, Decimals: decimals, Minter: minter}
	if err := e.state.PutTokenMeta(normalized, meta); err != nil {
		return nil, err
	}
	if err := e.state.PutTokenSupply(normalized, big.NewInt(0)); err != nil {
		return nil, err
	}
	return meta.Clone(), nil
}

// Mint creates amount new units for recipient. Only the registered minter may
// call it.
func (e *Engine) Mint(caller crypto.Address, symbol string, recipient crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	meta, err := e.metadata(symbol)
	if err != nil {
		return err
	}
	if !meta.Minter.Equal(caller) {
		return errNotMinter
	}
	balance, err := e.balance(meta.Symbol, recipient)
	if err != nil {
		return err
	}
	supply, err := e.supply(meta.Symbol)
	if err != nil {
		return err
	}
	if err := e.state.PutTokenBalance(meta.Symbol, recipient, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	return e.state.PutTokenSupply(meta.Symbol, new(big.Int).Add(supply, amount))
}

// Burn destroys amount units held by holder.
func (e *Engine) Burn(holder crypto.Address, symbol string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	meta, err := e.metadata(symbol)
	if err != nil {
		return err
	}
	balance, err := e.balance(meta.Symbol, holder)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	supply, err := e.supply(meta.Symbol)
	if err != nil {
		return err
	}
	if err := e.state.PutTokenBalance(meta.Symbol, holder, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	return e.state.PutTokenSupply(meta.Symbol, new(big.Int).Sub(supply, amount))
}

// Transfer moves amount from sender to recipient.
func (e *Engine) Transfer(symbol string, sender, recipient crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	meta, err := e.metadata(symbol)
	if err != nil {
		return err
	}
	return e.move(meta.Symbol, sender, recipient, amount)
}

// TransferFrom moves amount from owner to recipient on behalf of spender,
// consuming spender's allowance.
func (e *Engine) TransferFrom(symbol string, spender, owner, recipient crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	meta, err := e.metadata(symbol)
	if err != nil {
		return err
	}
	allowance, err := e.state.GetTokenAllowance(meta.Symbol, owner, spender)
	if err != nil {
		return err
	}
	allowance = nonNil(allowance)
	if allowance.Cmp(amount) < 0 {
		return errInsufficientApproval
	}
	if err := e.move(meta.Symbol, owner, recipient, amount); err != nil {
		return err
	}
	return e.state.PutTokenAllowance(meta.Symbol, owner, spender, new(big.Int).Sub(allowance, amount))
}

// IncreaseAllowance raises the amount spender may pull from owner.
func (e *Engine) IncreaseAllowance(symbol string, owner, spender crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	meta, err := e.metadata(symbol)
	if err != nil {
		return err
	}
	allowance, err := e.state.GetTokenAllowance(meta.Symbol, owner, spender)
	if err != nil {
		return err
	}
	return e.state.PutTokenAllowance(meta.Symbol, owner, spender, new(big.Int).Add(nonNil(allowance), amount))
}

// BalanceOf reports the holder's balance. Unregistered tokens error.
func (e *Engine) BalanceOf(symbol string, holder crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	meta, err := e.metadata(symbol)
	if err != nil {
		return nil, err
	}
	return e.balance(meta.Symbol, holder)
}

// TotalSupply reports the circulating supply.
func (e *Engine) TotalSupply(symbol string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	meta, err := e.metadata(symbol)
	if err != nil {
		return nil, err
	}
	return e.supply(meta.Symbol)
}

// Metadata returns the registered metadata for symbol.
func (e *Engine) Metadata(symbol string) (*Metadata, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	meta, err := e.metadata(symbol)
	if err != nil {
		return nil, err
	}
	return meta.Clone(), nil
}

func (e *Engine) metadata(symbol string) (*Metadata, error) {
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	meta, err := e.state.GetTokenMeta(normalized)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, errUnknownToken
	}
	return meta, nil
}

func (e *Engine) balance(symbol string, addr crypto.Address) (*big.Int, error) {
	balance, err := e.state.GetTokenBalance(symbol, addr)
	if err != nil {
		return nil, err
	}
	return nonNil(balance), nil
}

func (e *Engine) supply(symbol string) (*big.Int, error) {
	supply, err := e.state.GetTokenSupply(symbol)
	if err != nil {
		return nil, err
	}
	return nonNil(supply), nil
}

func (e *Engine) move(symbol string, from, to crypto.Address, amount *big.Int) error {
	fromBalance, err := e.balance(symbol, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	toBalance, err := e.balance(symbol, to)
	if err != nil {
		return err
	}
	if err := e.state.PutTokenBalance(symbol, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return e.state.PutTokenBalance(symbol, to, new(big.Int).Add(toBalance, amount))
}

// Errors exposed for collaborators that need to branch on token failures.
var (
	ErrUnknownToken         = errUnknownToken
	ErrInsufficientBalance  = errInsufficientBalance
	ErrNotMinter            = errNotMinter
	ErrInsufficientApproval = errInsufficientApproval
)
