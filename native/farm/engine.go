package farm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"farmchain/core/host"
	"farmchain/core/types"
	"farmchain/crypto"
	"farmchain/native/amm"
	"farmchain/native/assets"
	"farmchain/native/common"
	"farmchain/native/vault"
)

// ModuleName keys the farm's pause flag.
const ModuleName = "farm"

var (
	errNilState           = errors.New("farm engine: state not configured")
	errNilCollaborator    = errors.New("farm engine: collaborator not configured")
	errFarmNotInitialized = errors.New("farm engine: farm not initialized")
	errFarmExists         = errors.New("farm engine: farm already initialized")
	errUnauthorized       = errors.New("farm engine: unauthorized")
	errWrongAsset         = errors.New("farm engine: funds do not match the base asset")
	errWrongAmount        = errors.New("farm engine: attached funds do not match the declared amount")
	errInsufficientFunds  = errors.New("farm engine: recoverable value cannot cover outstanding debt")
	errExternalCall       = errors.New("farm engine: venue result is missing the expected marker")
	errPositionNotFound   = errors.New("farm engine: position not found")
	errWorkflowNotFound   = errors.New("farm engine: workflow not found")
)

var (
	ErrUnauthorized      = errUnauthorized
	ErrWrongAsset        = errWrongAsset
	ErrWrongAmount       = errWrongAmount
	ErrInsufficientFunds = errInsufficientFunds
	ErrExternalCall      = errExternalCall
	ErrPositionNotFound  = errPositionNotFound
)

const (
	stepSwap      = "swap"
	stepLiquidity = "liquidity"
)

// The open workflow swaps roughly half of the combined principal into the
// other leg. 1000/1997 rather than 1/2 accounts for the venue's 0.3% swap
// fee, so the two legs land near the pool's prevailing ratio.
var (
	swapSplitNum = big.NewInt(1000)
	swapSplitDen = big.NewInt(1997)
)

type engineState interface {
	GetFarm() (*Farm, error)
	PutFarm(*Farm) error
	GetPosition(id uint64) (*Position, error)
	PutPosition(*Position) error
	DeletePosition(id uint64) error
	GetWorkflow(id string) (*Workflow, error)
	PutWorkflow(*Workflow) error
	DeleteWorkflow(id string) error
}

type lender interface {
	Borrow(borrower crypto.Address, amount *big.Int, now int64) (uint64, error)
	Repay(payer crypto.Address, positionID uint64, sent assets.Asset, refundTo crypto.Address, now int64) error
	PositionDebtValue(id uint64, now int64) (*big.Int, error)
}

type venue interface {
	PairFor(a, b assets.Info) (*amm.Pair, error)
	Swap(trader crypto.Address, offer assets.Asset, ask assets.Info) (*big.Int, *types.Event, error)
	SimulateSwap(offer assets.Asset, ask assets.Info) (*big.Int, error)
	ProvideLiquidity(provider crypto.Address, a, b assets.Asset) (*big.Int, *types.Event, error)
	WithdrawLiquidity(holder crypto.Address, a, b assets.Info, lpAmount *big.Int) (*big.Int, *big.Int, *types.Event, error)
	PoolShare(a, b assets.Info, lpAmount *big.Int) (*big.Int, *big.Int, error)
}

type tokenLedger interface {
	IncreaseAllowance(symbol string, owner, spender crypto.Address, amount *big.Int) error
	BalanceOf(symbol string, holder crypto.Address) (*big.Int, error)
}

type assetMover interface {
	Transfer(info assets.Info, from, to crypto.Address, amount *big.Int) error
	Balance(info assets.Info, addr crypto.Address) (*big.Int, error)
}

// Engine drives the leveraged positions: open borrows from the vault, swaps
// and pools the principal at the venue across two reply boundaries; close
// unwinds the pooled stake, repays the vault and returns the remainder.
type Engine struct {
	state   engineState
	vault   lender
	venue   venue
	tokens  tokenLedger
	mover   assetMover
	pauses  common.PauseView
	address crypto.Address
	newID   func() string
	emit    func(*types.Event)
}

// NewEngine returns an engine for the farm living at address.
func NewEngine(address crypto.Address) *Engine {
	return &Engine{
		address: address,
		newID:   uuid.NewString,
		emit:    func(*types.Event) {},
	}
}

func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

// SetCollaborators wires the vault, the swap venue, the token ledger and the
// asset mover.
func (e *Engine) SetCollaborators(lender lender, venue venue, tokens tokenLedger, mover assetMover) {
	if e == nil {
		return
	}
	e.vault = lender
	e.venue = venue
	e.tokens = tokens
	e.mover = mover
}

// SetPauses wires the pause registry. A nil view keeps the farm running.
func (e *Engine) SetPauses(p common.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter routes farm events. A nil fn restores the discard default.
func (e *Engine) SetEmitter(fn func(*types.Event)) {
	if e == nil {
		return
	}
	if fn == nil {
		fn = func(*types.Event) {}
	}
	e.emit = fn
}

// SetWorkflowIDSource overrides workflow id generation. Tests use a
// deterministic source.
func (e *Engine) SetWorkflowIDSource(fn func() string) {
	if e == nil || fn == nil {
		return
	}
	e.newID = fn
}

// Address returns the farm's module account.
func (e *Engine) Address() crypto.Address {
	if e == nil {
		return crypto.Address{}
	}
	return e.address
}

// Instantiate records the farm against an existing venue pair for its legs.
func (e *Engine) Instantiate(cfg Config) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := cfg.BaseAsset.Validate(); err != nil {
		return err
	}
	if err := cfg.OtherAsset.Validate(); err != nil {
		return err
	}
	if existing, err := e.state.GetFarm(); err != nil {
		return err
	} else if existing != nil {
		return errFarmExists
	}
	pair, err := e.venue.PairFor(cfg.BaseAsset, cfg.OtherAsset)
	if err != nil {
		return err
	}
	return e.state.PutFarm(&Farm{
		BaseAsset:            cfg.BaseAsset,
		OtherAsset:           cfg.OtherAsset,
		LPToken:              pair.LPToken,
		TotalLiquidityShares: big.NewInt(0),
	})
}

// Open starts a leveraged position: take the owner's deposit, borrow the
// leverage from the vault, then swap part of the combined principal so both
// legs can be pooled. The swap and the liquidity provision land through
// replies; the workflow record carries the position across those boundaries.
// Returns the saga's workflow id.
func (e *Engine) Open(ctx *host.Context, owner crypto.Address, depositAmount, borrowAmount *big.Int, funds assets.Asset) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return "", err
	}
	f, err := e.farm()
	if err != nil {
		return "", err
	}
	if !funds.Info.Equal(f.BaseAsset) {
		return "", errWrongAsset
	}
	if depositAmount == nil || depositAmount.Sign() <= 0 || funds.Amount == nil || funds.Amount.Cmp(depositAmount) != 0 {
		return "", errWrongAmount
	}
	if borrowAmount == nil || borrowAmount.Sign() <= 0 {
		return "", errWrongAmount
	}
	if err := e.mover.Transfer(f.BaseAsset, owner, e.address, depositAmount); err != nil {
		return "", err
	}
	positionID, err := e.vault.Borrow(e.address, borrowAmount, ctx.Timestamp)
	if err != nil {
		return "", err
	}
	wf := &Workflow{
		ID:            e.newID(),
		PositionID:    positionID,
		Owner:         owner,
		DepositAmount: new(big.Int).Set(depositAmount),
		BorrowAmount:  new(big.Int).Set(borrowAmount),
	}
	if err := e.state.PutWorkflow(wf); err != nil {
		return "", err
	}
	principal := new(big.Int).Add(depositAmount, borrowAmount)
	amountToSwap := new(big.Int).Mul(principal, swapSplitNum)
	amountToSwap.Quo(amountToSwap, swapSplitDen)

	pair, err := e.venue.PairFor(f.BaseAsset, f.OtherAsset)
	if err != nil {
		return "", err
	}
	base, other := f.BaseAsset, f.OtherAsset
	e.issueAllowance(ctx, base, pair.Address, amountToSwap)
	ctx.Issue(host.Call{
		Issuer:       e,
		Continuation: host.JoinContinuation(stepSwap, wf.ID),
		Invoke: func(*host.Context) ([]*types.Event, error) {
			_, ev, err := e.venue.Swap(e.address, assets.NewAsset(base, amountToSwap), other)
			if err != nil {
				return nil, err
			}
			return []*types.Event{ev}, nil
		},
	})
	e.emit(openStartedEvent(wf.ID, positionID, owner, depositAmount, borrowAmount))
	return wf.ID, nil
}

// OnReply resumes the workflow the continuation token names.
func (e *Engine) OnReply(ctx *host.Context, reply host.Reply) error {
	if err := e.ready(); err != nil {
		return err
	}
	step, workflowID := host.SplitContinuation(reply.Continuation)
	switch step {
	case stepSwap:
		return e.onSwapReply(ctx, workflowID, reply.Events)
	case stepLiquidity:
		return e.onLiquidityReply(workflowID, reply.Events)
	default:
		return fmt.Errorf("farm engine: unknown continuation %q", reply.Continuation)
	}
}

// onSwapReply verifies the swap landed for the expected legs, then sizes and
// issues the liquidity provision from the farm's full leg balances.
func (e *Engine) onSwapReply(ctx *host.Context, workflowID string, events []*types.Event) error {
	f, err := e.farm()
	if err != nil {
		return err
	}
	wf, err := e.workflow(workflowID)
	if err != nil {
		return err
	}
	ev, ok := types.FindEvent(events, amm.ActionKey, amm.ActionSwap)
	if !ok {
		return errExternalCall
	}
	if offer, _ := ev.Attribute("offer_asset"); offer != f.BaseAsset.ID() {
		return errExternalCall
	}
	if ask, _ := ev.Attribute("ask_asset"); ask != f.OtherAsset.ID() {
		return errExternalCall
	}
	baseBalance, err := e.mover.Balance(f.BaseAsset, e.address)
	if err != nil {
		return err
	}
	otherBalance, err := e.mover.Balance(f.OtherAsset, e.address)
	if err != nil {
		return err
	}
	lpBefore, err := e.tokens.BalanceOf(f.LPToken, e.address)
	if err != nil {
		return err
	}
	wf.LPBalanceBefore = lpBefore
	if err := e.state.PutWorkflow(wf); err != nil {
		return err
	}
	pair, err := e.venue.PairFor(f.BaseAsset, f.OtherAsset)
	if err != nil {
		return err
	}
	e.issueAllowance(ctx, f.BaseAsset, pair.Address, baseBalance)
	e.issueAllowance(ctx, f.OtherAsset, pair.Address, otherBalance)

	base, other := f.BaseAsset, f.OtherAsset
	ctx.Issue(host.Call{
		Issuer:       e,
		Continuation: host.JoinContinuation(stepLiquidity, wf.ID),
		Invoke: func(*host.Context) ([]*types.Event, error) {
			_, ev, err := e.venue.ProvideLiquidity(e.address,
				assets.NewAsset(base, baseBalance),
				assets.NewAsset(other, otherBalance))
			if err != nil {
				return nil, err
			}
			return []*types.Event{ev}, nil
		},
	})
	return nil
}

// onLiquidityReply prices the minted liquidity into a share and finalizes
// the position.
func (e *Engine) onLiquidityReply(workflowID string, events []*types.Event) error {
	f, err := e.farm()
	if err != nil {
		return err
	}
	wf, err := e.workflow(workflowID)
	if err != nil {
		return err
	}
	ev, ok := types.FindEvent(events, amm.ActionKey, amm.ActionProvideLiquidity)
	if !ok {
		return errExternalCall
	}
	raw, ok := ev.Attribute(amm.AttrShare)
	if !ok {
		return errExternalCall
	}
	minted, ok := new(big.Int).SetString(raw, 10)
	if !ok || minted.Sign() <= 0 {
		return errExternalCall
	}
	share := vault.SharesFromValue(f.TotalLiquidityShares, wf.LPBalanceBefore, minted)
	position := &Position{
		ID:             wf.PositionID,
		Owner:          wf.Owner,
		LiquidityShare: share,
	}
	f.TotalLiquidityShares = new(big.Int).Add(f.TotalLiquidityShares, share)
	if err := e.state.PutPosition(position); err != nil {
		return err
	}
	if err := e.state.PutFarm(f); err != nil {
		return err
	}
	if err := e.state.DeleteWorkflow(wf.ID); err != nil {
		return err
	}
	e.emit(openedEvent(wf.ID, position.ID, wf.Owner, minted, share))
	return nil
}

// Close unwinds a position. All amounts are fixed up front from queries and
// a swap simulation; the unwind itself is a fixed, ordered batch of calls
// needing no intermediate reply. If the simulated recovery cannot cover the
// outstanding debt the close is refused outright.
func (e *Engine) Close(ctx *host.Context, caller crypto.Address, positionID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	f, err := e.farm()
	if err != nil {
		return err
	}
	position, err := e.state.GetPosition(positionID)
	if err != nil {
		return err
	}
	if position == nil {
		return errPositionNotFound
	}
	if !caller.Equal(position.Owner) {
		return errUnauthorized
	}
	lpBalance, err := e.tokens.BalanceOf(f.LPToken, e.address)
	if err != nil {
		return err
	}
	lpAmount := vault.ValueFromShares(f.TotalLiquidityShares, lpBalance, position.LiquidityShare)
	debt, err := e.vault.PositionDebtValue(positionID, ctx.Timestamp)
	if err != nil {
		return err
	}
	baseLeg, otherLeg, err := e.venue.PoolShare(f.BaseAsset, f.OtherAsset, lpAmount)
	if err != nil {
		return err
	}
	simulated := big.NewInt(0)
	if otherLeg.Sign() > 0 {
		simulated, err = e.venue.SimulateSwap(assets.NewAsset(f.OtherAsset, otherLeg), f.BaseAsset)
		if err != nil {
			return err
		}
	}
	recovered := new(big.Int).Add(baseLeg, simulated)
	if recovered.Cmp(debt) < 0 {
		return errInsufficientFunds
	}
	if err := e.state.DeletePosition(positionID); err != nil {
		return err
	}
	f.TotalLiquidityShares = new(big.Int).Sub(f.TotalLiquidityShares, position.LiquidityShare)
	if err := e.state.PutFarm(f); err != nil {
		return err
	}

	base, other := f.BaseAsset, f.OtherAsset
	owner := position.Owner
	now := ctx.Timestamp
	ctx.Issue(host.Call{
		Invoke: func(*host.Context) ([]*types.Event, error) {
			_, _, ev, err := e.venue.WithdrawLiquidity(e.address, base, other, lpAmount)
			if err != nil {
				return nil, err
			}
			return []*types.Event{ev}, nil
		},
	})
	if otherLeg.Sign() > 0 {
		pair, err := e.venue.PairFor(base, other)
		if err != nil {
			return err
		}
		e.issueAllowance(ctx, other, pair.Address, otherLeg)
		ctx.Issue(host.Call{
			Invoke: func(*host.Context) ([]*types.Event, error) {
				_, ev, err := e.venue.Swap(e.address, assets.NewAsset(other, otherLeg), base)
				if err != nil {
					return nil, err
				}
				return []*types.Event{ev}, nil
			},
		})
	}
	if debt.Sign() > 0 {
		ctx.Issue(host.Call{
			Invoke: func(*host.Context) ([]*types.Event, error) {
				return nil, e.vault.Repay(e.address, positionID, assets.NewAsset(base, debt), e.address, now)
			},
		})
	}
	remainder := new(big.Int).Sub(recovered, debt)
	if remainder.Sign() > 0 {
		ctx.Issue(host.Call{
			Invoke: func(*host.Context) ([]*types.Event, error) {
				return nil, e.mover.Transfer(base, e.address, owner, remainder)
			},
		})
	}
	e.emit(closedEvent(positionID, owner, lpAmount, debt, remainder))
	return nil
}

// GetFarm returns a copy of the farm record.
func (e *Engine) GetFarm() (*Farm, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.farm()
}

// GetPosition returns a copy of a position.
func (e *Engine) GetPosition(id uint64) (*Position, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	position, err := e.state.GetPosition(id)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, errPositionNotFound
	}
	return position, nil
}

// GetWorkflow returns a copy of an in-flight saga record.
func (e *Engine) GetWorkflow(id string) (*Workflow, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.workflow(id)
}

// issueAllowance queues an allowance grant for a token leg so the venue can
// pull it. Native legs need none.
func (e *Engine) issueAllowance(ctx *host.Context, leg assets.Info, spender crypto.Address, amount *big.Int) {
	if leg.Kind != assets.Token || amount.Sign() <= 0 {
		return
	}
	symbol := leg.Symbol
	granted := new(big.Int).Set(amount)
	ctx.Issue(host.Call{
		Invoke: func(*host.Context) ([]*types.Event, error) {
			return nil, e.tokens.IncreaseAllowance(symbol, e.address, spender, granted)
		},
	})
}

func (e *Engine) farm() (*Farm, error) {
	f, err := e.state.GetFarm()
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errFarmNotInitialized
	}
	return f, nil
}

func (e *Engine) workflow(id string) (*Workflow, error) {
	wf, err := e.state.GetWorkflow(id)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, errWorkflowNotFound
	}
	return wf, nil
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.vault == nil || e.venue == nil || e.tokens == nil || e.mover == nil {
		return errNilCollaborator
	}
	return nil
}
