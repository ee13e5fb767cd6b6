package escrow

import (
	"errors"
	"math/big"

	"farmchain/core/types"
	"farmchain/crypto"
	"farmchain/native/assets"
)

var (
	errNilState        = errors.New("escrow engine: state not configured")
	errNilCollaborator = errors.New("escrow engine: collaborator not configured")
	errRequestNotFound = errors.New("escrow engine: payment request not found")
	errWrongAsset      = errors.New("escrow engine: payment asset does not match the request")
	errWrongAmount     = errors.New("escrow engine: payment must match the requested amount exactly")
	errAlreadyPaid     = errors.New("escrow engine: request already paid")
	errUnpaid          = errors.New("escrow engine: request not paid yet")
	errUnauthorized    = errors.New("escrow engine: only the paying customer may settle")
	errInvalidRequest  = errors.New("escrow engine: invalid request parameters")
)

var (
	ErrRequestNotFound = errRequestNotFound
	ErrWrongAsset      = errWrongAsset
	ErrWrongAmount     = errWrongAmount
	ErrUnpaid          = errUnpaid
	ErrUnauthorized    = errUnauthorized
)

type engineState interface {
	GetPaymentRequest(id uint64) (*PaymentRequest, error)
	PutPaymentRequest(*PaymentRequest) error
	DeletePaymentRequest(id uint64) error
	GetPaymentRequestSeq() (uint64, error)
	PutPaymentRequestSeq(uint64) error
}

type assetMover interface {
	Transfer(info assets.Info, from, to crypto.Address, amount *big.Int) error
}

// Engine holds exact-amount payment requests in escrow: funds sit with the
// engine's module account between payment and the customer's settlement.
type Engine struct {
	state   engineState
	mover   assetMover
	address crypto.Address
	emit    func(*types.Event)
}

func NewEngine(address crypto.Address) *Engine {
	return &Engine{address: address, emit: func(*types.Event) {}}
}

func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

func (e *Engine) SetCollaborators(mover assetMover) {
	if e == nil {
		return
	}
	e.mover = mover
}

func (e *Engine) SetEmitter(fn func(*types.Event)) {
	if e == nil {
		return
	}
	if fn == nil {
		fn = func(*types.Event) {}
	}
	e.emit = fn
}

// CreatePaymentRequest registers a merchant's claim and returns its id.
func (e *Engine) CreatePaymentRequest(merchant crypto.Address, asset assets.Info, amount *big.Int, orderID string) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if merchant.IsZero() || amount == nil || amount.Sign() <= 0 {
		return 0, errInvalidRequest
	}
	if err := asset.Validate(); err != nil {
		return 0, err
	}
	seq, err := e.state.GetPaymentRequestSeq()
	if err != nil {
		return 0, err
	}
	seq++
	if err := e.state.PutPaymentRequestSeq(seq); err != nil {
		return 0, err
	}
	request := &PaymentRequest{
		ID:       seq,
		Merchant: merchant,
		Asset:    asset,
		Amount:   new(big.Int).Set(amount),
		OrderID:  orderID,
	}
	if err := e.state.PutPaymentRequest(request); err != nil {
		return 0, err
	}
	e.emit(createdEvent(request))
	return seq, nil
}

// Pay moves the exact requested amount into escrow and records the payer as
// the customer entitled to settle.
func (e *Engine) Pay(payer crypto.Address, id uint64, sent assets.Asset) error {
	if err := e.ready(); err != nil {
		return err
	}
	request, err := e.request(id)
	if err != nil {
		return err
	}
	if request.Paid {
		return errAlreadyPaid
	}
	if !sent.Info.Equal(request.Asset) {
		return errWrongAsset
	}
	if sent.Amount == nil || sent.Amount.Cmp(request.Amount) != 0 {
		return errWrongAmount
	}
	if err := e.mover.Transfer(request.Asset, payer, e.address, sent.Amount); err != nil {
		return err
	}
	request.Customer = payer
	request.Paid = true
	if err := e.state.PutPaymentRequest(request); err != nil {
		return err
	}
	e.emit(paidEvent(request))
	return nil
}

// Settle releases the escrowed funds to the merchant and removes the
// request. Only the paying customer may settle, and only after payment.
func (e *Engine) Settle(caller crypto.Address, id uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	request, err := e.request(id)
	if err != nil {
		return err
	}
	if !request.Paid {
		return errUnpaid
	}
	if !caller.Equal(request.Customer) {
		return errUnauthorized
	}
	if err := e.mover.Transfer(request.Asset, e.address, request.Merchant, request.Amount); err != nil {
		return err
	}
	if err := e.state.DeletePaymentRequest(id); err != nil {
		return err
	}
	e.emit(settledEvent(request))
	return nil
}

// GetPaymentRequest returns a copy of the request.
func (e *Engine) GetPaymentRequest(id uint64) (*PaymentRequest, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.request(id)
}

func (e *Engine) request(id uint64) (*PaymentRequest, error) {
	request, err := e.state.GetPaymentRequest(id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, errRequestNotFound
	}
	return request, nil
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.mover == nil {
		return errNilCollaborator
	}
	return nil
}
