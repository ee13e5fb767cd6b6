package vault

import (
	"errors"
	"fmt"
	"math/big"

	"farmchain/core/host"
	"farmchain/core/types"
	"farmchain/crypto"
	"farmchain/native/assets"
	"farmchain/native/common"
	"farmchain/native/token"
)

// ModuleName keys the vault's pause flag.
const ModuleName = "vault"

var (
	errNilState             = errors.New("vault engine: state not configured")
	errNilCollaborator      = errors.New("vault engine: collaborator not configured")
	errVaultNotInitialized  = errors.New("vault engine: vault not initialized")
	errVaultExists          = errors.New("vault engine: vault already initialized")
	errUnauthorized         = errors.New("vault engine: unauthorized")
	errWrongAsset           = errors.New("vault engine: asset does not match vault asset")
	errWrongAmount          = errors.New("vault engine: amount must be positive")
	errInsufficientShares   = errors.New("vault engine: insufficient claim shares")
	errInsufficientLiquidty = errors.New("vault engine: on-hand balance cannot cover amount")
	errPositionNotFound     = errors.New("vault engine: borrow position not found")
	errClaimTokenPending    = errors.New("vault engine: claim token not yet confirmed")
)

// Exported aliases for callers that branch on failure kind.
var (
	ErrUnauthorized          = errUnauthorized
	ErrWrongAsset            = errWrongAsset
	ErrWrongAmount           = errWrongAmount
	ErrInsufficientLiquidity = errInsufficientLiquidty
	ErrPositionNotFound      = errPositionNotFound
)

const instantiateStep = "instantiate"

type engineState interface {
	GetVault() (*Vault, error)
	PutVault(*Vault) error
	GetBorrowPosition(id uint64) (*BorrowPosition, error)
	PutBorrowPosition(*BorrowPosition) error
	DeleteBorrowPosition(id uint64) error
}

type claimToken interface {
	Create(symbol, name string, decimals uint8, minter crypto.Address) (*token.Metadata, error)
	Mint(caller crypto.Address, symbol string, recipient crypto.Address, amount *big.Int) error
	Burn(holder crypto.Address, symbol string, amount *big.Int) error
	BalanceOf(symbol string, holder crypto.Address) (*big.Int, error)
	TotalSupply(symbol string) (*big.Int, error)
}

type assetMover interface {
	Transfer(info assets.Info, from, to crypto.Address, amount *big.Int) error
	Balance(info assets.Info, addr crypto.Address) (*big.Int, error)
}

// Engine owns the vault ledger: deposits against claim shares, debt shares
// per borrow position, the borrower whitelist, and lazy interest accrual.
type Engine struct {
	state   engineState
	tokens  claimToken
	mover   assetMover
	pauses  common.PauseView
	address crypto.Address
	emit    func(*types.Event)
}

// NewEngine returns an engine for the vault living at address. The address
// is the module account that holds the vault's on-hand funds.
func NewEngine(address crypto.Address) *Engine {
	return &Engine{address: address, emit: func(*types.Event) {}}
}

func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

// SetCollaborators wires the token engine backing the claim token and the
// mover used for the underlying asset.
func (e *Engine) SetCollaborators(tokens claimToken, mover assetMover) {
	if e == nil {
		return
	}
	e.tokens = tokens
	e.mover = mover
}

// SetPauses wires the pause registry. A nil view keeps the vault running.
func (e *Engine) SetPauses(p common.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter routes ledger events. A nil fn restores the discard default.
func (e *Engine) SetEmitter(fn func(*types.Event)) {
	if e == nil {
		return
	}
	if fn == nil {
		fn = func(*types.Event) {}
	}
	e.emit = fn
}

// Address returns the vault's module account.
func (e *Engine) Address() crypto.Address {
	if e == nil {
		return crypto.Address{}
	}
	return e.address
}

// Instantiate writes the initial vault record and issues the claim-token
// creation call. The token symbol is only recorded once the creation
// confirmation reply arrives, mirroring the fact that the claim token does
// not exist until its own instantiation lands.
func (e *Engine) Instantiate(ctx *host.Context, cfg Config) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := cfg.Asset.Validate(); err != nil {
		return err
	}
	if existing, err := e.state.GetVault(); err != nil {
		return err
	} else if existing != nil {
		return errVaultExists
	}
	v := &Vault{
		Asset:                cfg.Asset,
		TotalDebt:            big.NewInt(0),
		TotalDebtShares:      big.NewInt(0),
		ReservePool:          big.NewInt(0),
		ReservePoolBps:       cfg.ReservePoolBps,
		WhitelistedBorrowers: append([]crypto.Address(nil), cfg.WhitelistedBorrowers...),
		Admin:                cfg.Admin,
		LastAccrueTimestamp:  ctx.Timestamp,
	}
	if err := e.state.PutVault(v); err != nil {
		return err
	}
	symbol, err := token.NormalizeSymbol(cfg.ClaimTokenSymbol)
	if err != nil {
		return err
	}
	name := cfg.ClaimTokenName
	decimals := cfg.ClaimTokenDecimals
	minter := e.address
	tokens := e.tokens
	ctx.Issue(host.Call{
		Issuer:       e,
		Continuation: instantiateStep,
		Invoke: func(*host.Context) ([]*types.Event, error) {
			meta, err := tokens.Create(symbol, name, decimals, minter)
			if err != nil {
				return nil, err
			}
			return []*types.Event{types.NewEvent("create_token", "symbol", meta.Symbol)}, nil
		},
	})
	return nil
}

// OnReply records the claim-token symbol once its creation confirms.
func (e *Engine) OnReply(_ *host.Context, reply host.Reply) error {
	if err := e.ready(); err != nil {
		return err
	}
	step, _ := host.SplitContinuation(reply.Continuation)
	if step != instantiateStep {
		return fmt.Errorf("vault engine: unexpected continuation %q", reply.Continuation)
	}
	v, err := e.vault()
	if err != nil {
		return err
	}
	for _, ev := range reply.Events {
		if symbol, found := ev.Attribute("symbol"); found {
			v.ClaimToken = symbol
			return e.state.PutVault(v)
		}
	}
	return fmt.Errorf("vault engine: claim token confirmation missing symbol")
}

// Deposit takes the sent funds into the vault and mints claim shares
// pro-rata against the pre-deposit total balance. The first deposit into an
// empty claim supply mints one share per unit of value.
func (e *Engine) Deposit(depositor crypto.Address, sent assets.Asset, now int64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	v, err := e.vault()
	if err != nil {
		return nil, err
	}
	if v.ClaimToken == "" {
		return nil, errClaimTokenPending
	}
	if !sent.Info.Equal(v.Asset) {
		return nil, errWrongAsset
	}
	if sent.Amount == nil || sent.Amount.Sign() <= 0 {
		return nil, errWrongAmount
	}
	balanceBefore, err := e.totalBalance(v)
	if err != nil {
		return nil, err
	}
	e.applyAccrual(v, now, balanceBefore)
	balanceBefore, err = e.totalBalance(v)
	if err != nil {
		return nil, err
	}
	if err := e.mover.Transfer(v.Asset, depositor, e.address, sent.Amount); err != nil {
		return nil, err
	}
	supply, err := e.tokens.TotalSupply(v.ClaimToken)
	if err != nil {
		return nil, err
	}
	shares := SharesFromValue(supply, balanceBefore, sent.Amount)
	if err := e.tokens.Mint(e.address, v.ClaimToken, depositor, shares); err != nil {
		return nil, err
	}
	if err := e.state.PutVault(v); err != nil {
		return nil, err
	}
	e.emit(depositEvent(depositor, sent.Amount, shares))
	return shares, nil
}

// Withdraw burns claim shares and pays out their pro-rata slice of the total
// balance. Funds out on loan cannot be paid, so a payout exceeding the
// vault's on-hand balance fails rather than partially filling.
func (e *Engine) Withdraw(withdrawer crypto.Address, shares *big.Int, now int64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	v, err := e.vault()
	if err != nil {
		return nil, err
	}
	if v.ClaimToken == "" {
		return nil, errClaimTokenPending
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, errWrongAmount
	}
	balance, err := e.totalBalance(v)
	if err != nil {
		return nil, err
	}
	e.applyAccrual(v, now, balance)
	balance, err = e.totalBalance(v)
	if err != nil {
		return nil, err
	}
	held, err := e.tokens.BalanceOf(v.ClaimToken, withdrawer)
	if err != nil {
		return nil, err
	}
	if held.Cmp(shares) < 0 {
		return nil, errInsufficientShares
	}
	supply, err := e.tokens.TotalSupply(v.ClaimToken)
	if err != nil {
		return nil, err
	}
	amount := ValueFromShares(supply, balance, shares)
	onHand, err := e.mover.Balance(v.Asset, e.address)
	if err != nil {
		return nil, err
	}
	if onHand.Cmp(amount) < 0 {
		return nil, errInsufficientLiquidty
	}
	if err := e.tokens.Burn(withdrawer, v.ClaimToken, shares); err != nil {
		return nil, err
	}
	if err := e.mover.Transfer(v.Asset, e.address, withdrawer, amount); err != nil {
		return nil, err
	}
	if err := e.state.PutVault(v); err != nil {
		return nil, err
	}
	e.emit(withdrawEvent(withdrawer, shares, amount))
	return amount, nil
}

// Borrow lends amount to a whitelisted borrower, recording a new position
// whose debt share is priced against the pre-borrow debt totals. Position
// ids increase strictly and are never reused.
func (e *Engine) Borrow(borrower crypto.Address, amount *big.Int, now int64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return 0, err
	}
	v, err := e.vault()
	if err != nil {
		return 0, err
	}
	if !v.IsWhitelisted(borrower) {
		return 0, errUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, errWrongAmount
	}
	balance, err := e.totalBalance(v)
	if err != nil {
		return 0, err
	}
	e.applyAccrual(v, now, balance)
	onHand, err := e.mover.Balance(v.Asset, e.address)
	if err != nil {
		return 0, err
	}
	if onHand.Cmp(amount) < 0 {
		return 0, errInsufficientLiquidty
	}
	debtShare := SharesFromValue(v.TotalDebtShares, v.TotalDebt, amount)
	v.LastPositionID++
	position := &BorrowPosition{
		ID:        v.LastPositionID,
		Borrower:  borrower,
		DebtShare: debtShare,
	}
	v.TotalDebt = new(big.Int).Add(v.TotalDebt, amount)
	v.TotalDebtShares = new(big.Int).Add(v.TotalDebtShares, debtShare)
	if err := e.state.PutBorrowPosition(position); err != nil {
		return 0, err
	}
	if err := e.state.PutVault(v); err != nil {
		return 0, err
	}
	if err := e.mover.Transfer(v.Asset, e.address, borrower, amount); err != nil {
		return 0, err
	}
	e.emit(borrowEvent(position.ID, borrower, amount, debtShare))
	return position.ID, nil
}

// Repay settles part or all of a position's debt with the sent funds. An
// overpayment refunds the excess to refundTo and deletes the position. A
// partial payment reprices the remaining share against the post-payment
// totals so the other positions' claims are untouched. Repayment is accepted
// even while the vault is paused.
func (e *Engine) Repay(payer crypto.Address, positionID uint64, sent assets.Asset, refundTo crypto.Address, now int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	v, err := e.vault()
	if err != nil {
		return err
	}
	if !sent.Info.Equal(v.Asset) {
		return errWrongAsset
	}
	if sent.Amount == nil || sent.Amount.Sign() <= 0 {
		return errWrongAmount
	}
	position, err := e.state.GetBorrowPosition(positionID)
	if err != nil {
		return err
	}
	if position == nil {
		return errPositionNotFound
	}
	balance, err := e.totalBalance(v)
	if err != nil {
		return err
	}
	e.applyAccrual(v, now, balance)
	debtValue := ValueFromShares(v.TotalDebtShares, v.TotalDebt, position.DebtShare)
	if err := e.mover.Transfer(v.Asset, payer, e.address, sent.Amount); err != nil {
		return err
	}
	paid := new(big.Int).Set(sent.Amount)
	if paid.Cmp(debtValue) >= 0 {
		excess := new(big.Int).Sub(paid, debtValue)
		if excess.Sign() > 0 {
			if err := e.mover.Transfer(v.Asset, e.address, refundTo, excess); err != nil {
				return err
			}
		}
		v.TotalDebt = new(big.Int).Sub(v.TotalDebt, debtValue)
		v.TotalDebtShares = new(big.Int).Sub(v.TotalDebtShares, position.DebtShare)
		if err := e.state.DeleteBorrowPosition(positionID); err != nil {
			return err
		}
		if err := e.state.PutVault(v); err != nil {
			return err
		}
		e.emit(repayEvent(positionID, payer, debtValue, excess, true))
		return nil
	}
	debtLeft := new(big.Int).Sub(debtValue, paid)
	othersShares := new(big.Int).Sub(v.TotalDebtShares, position.DebtShare)
	othersDebt := new(big.Int).Sub(v.TotalDebt, debtValue)
	newShare := SharesFromValue(othersShares, othersDebt, debtLeft)
	position.DebtShare = newShare
	v.TotalDebt = new(big.Int).Sub(v.TotalDebt, paid)
	v.TotalDebtShares = new(big.Int).Add(othersShares, newShare)
	if err := e.state.PutBorrowPosition(position); err != nil {
		return err
	}
	if err := e.state.PutVault(v); err != nil {
		return err
	}
	e.emit(repayEvent(positionID, payer, paid, big.NewInt(0), false))
	return nil
}

// AddToWhitelist extends the borrower set. Admin only.
func (e *Engine) AddToWhitelist(caller, borrower crypto.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	v, err := e.vault()
	if err != nil {
		return err
	}
	if !caller.Equal(v.Admin) {
		return errUnauthorized
	}
	if borrower.IsZero() {
		return errWrongAmount
	}
	if v.IsWhitelisted(borrower) {
		return nil
	}
	v.WhitelistedBorrowers = append(v.WhitelistedBorrowers, borrower)
	if err := e.state.PutVault(v); err != nil {
		return err
	}
	e.emit(whitelistEvent(caller, borrower))
	return nil
}

// Accrue applies interest up to now and persists the result. Exposed so a
// caller can settle the ledger without touching balances.
func (e *Engine) Accrue(now int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	v, err := e.vault()
	if err != nil {
		return err
	}
	balance, err := e.totalBalance(v)
	if err != nil {
		return err
	}
	e.applyAccrual(v, now, balance)
	return e.state.PutVault(v)
}

// GetVault returns a copy of the vault record.
func (e *Engine) GetVault() (*Vault, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.vault()
}

// GetPosition returns a copy of the borrow position.
func (e *Engine) GetPosition(id uint64) (*BorrowPosition, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	position, err := e.state.GetBorrowPosition(id)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, errPositionNotFound
	}
	return position, nil
}

// PositionDebtValue reports what a position currently owes, interest applied
// up to now. The accrual is computed in memory only; the stored ledger is
// untouched, so the value is a read-consistent quote.
func (e *Engine) PositionDebtValue(id uint64, now int64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	v, err := e.vault()
	if err != nil {
		return nil, err
	}
	position, err := e.state.GetBorrowPosition(id)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, errPositionNotFound
	}
	balance, err := e.totalBalance(v)
	if err != nil {
		return nil, err
	}
	e.applyAccrual(v, now, balance)
	return ValueFromShares(v.TotalDebtShares, v.TotalDebt, position.DebtShare), nil
}

// TotalBalance reports the lender-side view: on-hand funds plus debt owed
// back, minus the protocol reserve.
func (e *Engine) TotalBalance() (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	v, err := e.vault()
	if err != nil {
		return nil, err
	}
	return e.totalBalance(v)
}

// applyAccrual charges interest for the window since the last accrual and
// skims the configured slice into the reserve. At most one application per
// invocation; callers pass the pre-mutation total balance.
func (e *Engine) applyAccrual(v *Vault, now int64, totalBalance *big.Int) {
	interest := accrueInterest(v.LastAccrueTimestamp, now, totalBalance, v.TotalDebt)
	if interest.Sign() > 0 {
		reserveCut := new(big.Int).Mul(interest, new(big.Int).SetUint64(v.ReservePoolBps))
		reserveCut.Quo(reserveCut, basisPoints)
		v.TotalDebt = new(big.Int).Add(v.TotalDebt, interest)
		v.ReservePool = new(big.Int).Add(v.ReservePool, reserveCut)
	}
	v.LastAccrueTimestamp = now
}

func (e *Engine) totalBalance(v *Vault) (*big.Int, error) {
	onHand, err := e.mover.Balance(v.Asset, e.address)
	if err != nil {
		return nil, err
	}
	balance := new(big.Int).Add(onHand, v.TotalDebt)
	return balance.Sub(balance, v.ReservePool), nil
}

func (e *Engine) vault() (*Vault, error) {
	v, err := e.state.GetVault()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errVaultNotInitialized
	}
	return v, nil
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
