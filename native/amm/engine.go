package amm

import (
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"farmchain/core/types"
	"farmchain/crypto"
	"farmchain/native/assets"
	"farmchain/native/token"
)

var (
	errNilState        = errors.New("amm engine: state not configured")
	errNilCollaborator = errors.New("amm engine: collaborator not configured")
	errPairExists      = errors.New("amm engine: pair already exists")
	errPairNotFound    = errors.New("amm engine: pair not found")
	errWrongAsset      = errors.New("amm engine: asset is not a pair leg")
	errWrongAmount     = errors.New("amm engine: amount must be positive")
	errEmptyPool       = errors.New("amm engine: pool has no liquidity")
	errDustLiquidity   = errors.New("amm engine: deposit too small to mint a share")
)

var (
	ErrPairNotFound = errPairNotFound
	ErrWrongAsset   = errWrongAsset
	ErrEmptyPool    = errEmptyPool
)

// Swap fee in parts-per-thousand kept by the pool: a 0.3% charge applied on
// the input leg, constant-product style.
var (
	feeKeepPpt = big.NewInt(997)
	pptScale   = big.NewInt(1000)
)

type engineState interface {
	GetPair(id string) (*Pair, error)
	PutPair(*Pair) error
}

type tokenLedger interface {
	Create(symbol, name string, decimals uint8, minter crypto.Address) (*token.Metadata, error)
	Mint(caller crypto.Address, symbol string, recipient crypto.Address, amount *big.Int) error
	Burn(holder crypto.Address, symbol string, amount *big.Int) error
	TransferFrom(symbol string, spender, owner, recipient crypto.Address, amount *big.Int) error
	TotalSupply(symbol string) (*big.Int, error)
	BalanceOf(symbol string, holder crypto.Address) (*big.Int, error)
}

type assetMover interface {
	Transfer(info assets.Info, from, to crypto.Address, amount *big.Int) error
	Balance(info assets.Info, addr crypto.Address) (*big.Int, error)
}

// Engine is the swap venue: a factory of constant-product pairs plus the
// swap, liquidity and simulation operations the farm drives.
type Engine struct {
	state  engineState
	tokens tokenLedger
	mover  assetMover
}

func NewEngine() *Engine { return &Engine{} }

func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

func (e *Engine) SetCollaborators(tokens tokenLedger, mover assetMover) {
	if e == nil {
		return
	}
	e.tokens = tokens
	e.mover = mover
}

// CreatePair registers a pool for the asset pair and creates its LP token
// with the pool account as minter. The pool account is derived from the
// canonical pair id.
func (e *Engine) CreatePair(a, b assets.Info, lpSymbol, lpName string) (*Pair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if a.Equal(b) {
		return nil, errWrongAsset
	}
	id := PairID(a, b)
	if existing, err := e.state.GetPair(id); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, errPairExists
	}
	raw := ethcrypto.Keccak256([]byte("amm/" + id))[:20]
	addr, err := crypto.NewAddress(crypto.ContractPrefix, raw)
	if err != nil {
		return nil, err
	}
	symbol, err := token.NormalizeSymbol(lpSymbol)
	if err != nil {
		return nil, err
	}
	if _, err := e.tokens.Create(symbol, lpName, 6, addr); err != nil {
		return nil, err
	}
	first, second := orient(a, b)
	pair := &Pair{ID: id, AssetA: first, AssetB: second, LPToken: symbol, Address: addr}
	if err := e.state.PutPair(pair); err != nil {
		return nil, err
	}
	return pair, nil
}

// PairFor resolves the pool for an asset pair in either orientation.
func (e *Engine) PairFor(a, b assets.Info) (*Pair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pair, err := e.state.GetPair(PairID(a, b))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, errPairNotFound
	}
	return pair, nil
}

// Swap trades the offered asset for the opposite leg at the constant-product
// price less the 0.3% fee. Returns the amount paid out and the venue event
// carrying the swap markers.
func (e *Engine) Swap(trader crypto.Address, offer assets.Asset, ask assets.Info) (*big.Int, *types.Event, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	if offer.Amount == nil || offer.Amount.Sign() <= 0 {
		return nil, nil, errWrongAmount
	}
	pair, err := e.PairFor(offer.Info, ask)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := pair.Leg(offer.Info); !ok {
		return nil, nil, errWrongAsset
	}
	reserveIn, reserveOut, err := e.reserves(pair, offer.Info, ask)
	if err != nil {
		return nil, nil, err
	}
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, nil, errEmptyPool
	}
	out := swapOutput(reserveIn, reserveOut, offer.Amount)
	if out.Sign() <= 0 {
		return nil, nil, errWrongAmount
	}
	if err := e.pull(pair, offer.Info, trader, offer.Amount); err != nil {
		return nil, nil, err
	}
	if err := e.mover.Transfer(ask, pair.Address, trader, out); err != nil {
		return nil, nil, err
	}
	ev := swapEvent(pair, offer, ask, out)
	return out, ev, nil
}

// SimulateSwap quotes a swap without touching pool state.
func (e *Engine) SimulateSwap(offer assets.Asset, ask assets.Info) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if offer.Amount == nil || offer.Amount.Sign() <= 0 {
		return nil, errWrongAmount
	}
	pair, err := e.PairFor(offer.Info, ask)
	if err != nil {
		return nil, err
	}
	if _, ok := pair.Leg(offer.Info); !ok {
		return nil, errWrongAsset
	}
	reserveIn, reserveOut, err := e.reserves(pair, offer.Info, ask)
	if err != nil {
		return nil, err
	}
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, errEmptyPool
	}
	return swapOutput(reserveIn, reserveOut, offer.Amount), nil
}

// ProvideLiquidity deposits both legs and mints LP tokens: geometric mean of
// the deposit on an empty pool, minimum pro-rata ratio otherwise.
func (e *Engine) ProvideLiquidity(provider crypto.Address, a, b assets.Asset) (*big.Int, *types.Event, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	if a.Amount == nil || a.Amount.Sign() <= 0 || b.Amount == nil || b.Amount.Sign() <= 0 {
		return nil, nil, errWrongAmount
	}
	pair, err := e.PairFor(a.Info, b.Info)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := pair.Leg(a.Info); !ok {
		return nil, nil, errWrongAsset
	}
	amountA, amountB := a.Amount, b.Amount
	if !a.Info.Equal(pair.AssetA) {
		amountA, amountB = b.Amount, a.Amount
	}
	reserveA, reserveB, err := e.reserves(pair, pair.AssetA, pair.AssetB)
	if err != nil {
		return nil, nil, err
	}
	supply, err := e.tokens.TotalSupply(pair.LPToken)
	if err != nil {
		return nil, nil, err
	}
	var minted *big.Int
	if supply.Sign() == 0 {
		minted = new(big.Int).Mul(amountA, amountB)
		minted.Sqrt(minted)
	} else {
		byA := new(big.Int).Mul(amountA, supply)
		byA.Quo(byA, reserveA)
		byB := new(big.Int).Mul(amountB, supply)
		byB.Quo(byB, reserveB)
		minted = byA
		if byB.Cmp(byA) < 0 {
			minted = byB
		}
	}
	if minted.Sign() <= 0 {
		return nil, nil, errDustLiquidity
	}
	if err := e.pull(pair, pair.AssetA, provider, amountA); err != nil {
		return nil, nil, err
	}
	if err := e.pull(pair, pair.AssetB, provider, amountB); err != nil {
		return nil, nil, err
	}
	if err := e.tokens.Mint(pair.Address, pair.LPToken, provider, minted); err != nil {
		return nil, nil, err
	}
	ev := provideLiquidityEvent(pair, amountA, amountB, minted)
	return minted, ev, nil
}

// WithdrawLiquidity burns LP tokens and pays out the pro-rata slice of both
// reserves.
func (e *Engine) WithdrawLiquidity(holder crypto.Address, a, b assets.Info, lpAmount *big.Int) (*big.Int, *big.Int, *types.Event, error) {
	if err := e.ready(); err != nil {
		return nil, nil, nil, err
	}
	if lpAmount == nil || lpAmount.Sign() <= 0 {
		return nil, nil, nil, errWrongAmount
	}
	pair, err := e.PairFor(a, b)
	if err != nil {
		return nil, nil, nil, err
	}
	supply, err := e.tokens.TotalSupply(pair.LPToken)
	if err != nil {
		return nil, nil, nil, err
	}
	if supply.Sign() == 0 {
		return nil, nil, nil, errEmptyPool
	}
	reserveA, reserveB, err := e.reserves(pair, a, b)
	if err != nil {
		return nil, nil, nil, err
	}
	amountA := new(big.Int).Mul(reserveA, lpAmount)
	amountA.Quo(amountA, supply)
	amountB := new(big.Int).Mul(reserveB, lpAmount)
	amountB.Quo(amountB, supply)
	if err := e.tokens.Burn(holder, pair.LPToken, lpAmount); err != nil {
		return nil, nil, nil, err
	}
	if amountA.Sign() > 0 {
		if err := e.mover.Transfer(a, pair.Address, holder, amountA); err != nil {
			return nil, nil, nil, err
		}
	}
	if amountB.Sign() > 0 {
		if err := e.mover.Transfer(b, pair.Address, holder, amountB); err != nil {
			return nil, nil, nil, err
		}
	}
	ev := withdrawLiquidityEvent(pair, lpAmount, amountA, amountB)
	return amountA, amountB, ev, nil
}

// PoolShare reports how much of each leg the given LP amount represents.
// Amounts are returned in the order the legs were passed.
func (e *Engine) PoolShare(a, b assets.Info, lpAmount *big.Int) (*big.Int, *big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	pair, err := e.PairFor(a, b)
	if err != nil {
		return nil, nil, err
	}
	supply, err := e.tokens.TotalSupply(pair.LPToken)
	if err != nil {
		return nil, nil, err
	}
	if supply.Sign() == 0 {
		return big.NewInt(0), big.NewInt(0), nil
	}
	reserveA, err := e.mover.Balance(a, pair.Address)
	if err != nil {
		return nil, nil, err
	}
	reserveB, err := e.mover.Balance(b, pair.Address)
	if err != nil {
		return nil, nil, err
	}
	amountA := new(big.Int).Mul(reserveA, orZero(lpAmount))
	amountA.Quo(amountA, supply)
	amountB := new(big.Int).Mul(reserveB, orZero(lpAmount))
	amountB.Quo(amountB, supply)
	return amountA, amountB, nil
}

// swapOutput prices a constant-product trade with the fee charged on the
// input leg: out = reserveOut * in*997 / (reserveIn*1000 + in*997).
func swapOutput(reserveIn, reserveOut, amountIn *big.Int) *big.Int {
	inWithFee := new(big.Int).Mul(amountIn, feeKeepPpt)
	numerator := new(big.Int).Mul(reserveOut, inWithFee)
	denominator := new(big.Int).Mul(reserveIn, pptScale)
	denominator.Add(denominator, inWithFee)
	return numerator.Quo(numerator, denominator)
}

// pull draws funds from owner into the pool account. Token legs consume the
// owner's allowance for the pool; native legs move directly.
func (e *Engine) pull(pair *Pair, info assets.Info, owner crypto.Address, amount *big.Int) error {
	if info.Kind == assets.Token {
		return e.tokens.TransferFrom(info.Symbol, pair.Address, owner, pair.Address, amount)
	}
	return e.mover.Transfer(info, owner, pair.Address, amount)
}

func (e *Engine) reserves(pair *Pair, first, second assets.Info) (*big.Int, *big.Int, error) {
	a, err := e.mover.Balance(first, pair.Address)
	if err != nil {
		return nil, nil, err
	}
	b, err := e.mover.Balance(second, pair.Address)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.tokens == nil || e.mover == nil {
		return errNilCollaborator
	}
	return nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
