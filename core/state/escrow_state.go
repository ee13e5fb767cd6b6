package state

import (
	"math/big"
	"strconv"

	"farmchain/native/assets"
	"farmchain/native/escrow"
)

type storedPaymentRequest struct {
	ID       uint64
	Merchant storedAddress
	Asset    assets.Info
	Amount   *big.Int
	OrderID  string
	Customer storedAddress
	Paid     bool
}

func paymentRequestKey(id uint64) []byte {
	return storageKey("escrow", "request", strconv.FormatUint(id, 10))
}

func paymentRequestSeqKey() []byte { return storageKey("escrow", "seq") }

func (m *Manager) GetPaymentRequest(id uint64) (*escrow.PaymentRequest, error) {
	var row storedPaymentRequest
	ok, err := m.getRow(paymentRequestKey(id), &row)
	if err != nil || !ok {
		return nil, err
	}
	merchant, err := loadAddress(row.Merchant)
	if err != nil {
		return nil, err
	}
	customer, err := loadAddress(row.Customer)
	if err != nil {
		return nil, err
	}
	return &escrow.PaymentRequest{
		ID:       row.ID,
		Merchant: merchant,
		Asset:    row.Asset,
		Amount:   row.Amount,
		OrderID:  row.OrderID,
		Customer: customer,
		Paid:     row.Paid,
	}, nil
}

func (m *Manager) PutPaymentRequest(r *escrow.PaymentRequest) error {
	return m.putRow(paymentRequestKey(r.ID), &storedPaymentRequest{
		ID:       r.ID,
		Merchant: storeAddress(r.Merchant),
		Asset:    r.Asset,
		Amount:   nonNil(r.Amount),
		OrderID:  r.OrderID,
		Customer: storeAddress(r.Customer),
		Paid:     r.Paid,
	})
}

func (m *Manager) DeletePaymentRequest(id uint64) error {
	return m.db.Delete(paymentRequestKey(id))
}

func (m *Manager) GetPaymentRequestSeq() (uint64, error) {
	var seq uint64
	_, err := m.getRow(paymentRequestSeqKey(), &seq)
	return seq, err
}

func (m *Manager) PutPaymentRequestSeq(seq uint64) error {
	return m.putRow(paymentRequestSeqKey(), seq)
}
