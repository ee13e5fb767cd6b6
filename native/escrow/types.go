package escrow

import (
	"math/big"

	"farmchain/crypto"
	"farmchain/native/assets"
)

// PaymentRequest is a merchant's claim for an exact payment, settled once
// the paying customer confirms release.
type PaymentRequest struct {
	ID       uint64
	Merchant crypto.Address
	Asset    assets.Info
	Amount   *big.Int
	OrderID  string
	// Customer is the account that paid; zero until payment arrives.
	Customer crypto.Address
	Paid     bool
}

// Clone returns a copy safe for callers to mutate.
func (r *PaymentRequest) Clone() *PaymentRequest {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Amount != nil {
		clone.Amount = new(big.Int).Set(r.Amount)
	}
	return &clone
}
