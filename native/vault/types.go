package vault

import (
	"math/big"

	"farmchain/crypto"
	"farmchain/native/assets"
)

// Vault is the singleton ledger record for a lending vault. Claim-token
// supply lives with the token engine; everything else the share math needs is
// here.
type Vault struct {
	// Asset is the single underlying the vault lends out.
	Asset assets.Info
	// ClaimToken is the symbol of the proportional-claim token. Empty until
	// the token creation confirmation arrives during instantiation.
	ClaimToken string
	// LastPositionID is the strictly increasing borrow position counter.
	LastPositionID uint64
	// TotalDebt is the aggregate value owed back to the vault, including
	// accrued interest.
	TotalDebt *big.Int
	// TotalDebtShares partitions TotalDebt among borrow positions.
	TotalDebtShares *big.Int
	// ReservePool is accrued interest withheld from lender claims.
	ReservePool *big.Int
	// ReservePoolBps is the fraction of each interest charge skimmed into
	// the reserve, in basis points.
	ReservePoolBps uint64
	// WhitelistedBorrowers are the farm accounts permitted to borrow.
	WhitelistedBorrowers []crypto.Address
	// Admin is the only account that may extend the whitelist.
	Admin crypto.Address
	// LastAccrueTimestamp is the unix time interest was last applied.
	LastAccrueTimestamp int64
}

// Clone returns a deep copy so callers can mutate freely.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	clone := *v
	clone.TotalDebt = cloneBig(v.TotalDebt)
	clone.TotalDebtShares = cloneBig(v.TotalDebtShares)
	clone.ReservePool = cloneBig(v.ReservePool)
	clone.WhitelistedBorrowers = append([]crypto.Address(nil), v.WhitelistedBorrowers...)
	return &clone
}

// IsWhitelisted reports whether addr may borrow from the vault.
func (v *Vault) IsWhitelisted(addr crypto.Address) bool {
	if v == nil {
		return false
	}
	for _, borrower := range v.WhitelistedBorrowers {
		if borrower.Equal(addr) {
			return true
		}
	}
	return false
}

// BorrowPosition records one active loan's slice of the debt ledger.
type BorrowPosition struct {
	ID        uint64
	Borrower  crypto.Address
	DebtShare *big.Int
}

// Clone returns a deep copy of the position.
func (p *BorrowPosition) Clone() *BorrowPosition {
	if p == nil {
		return nil
	}
	clone := *p
	clone.DebtShare = cloneBig(p.DebtShare)
	return &clone
}

// Config carries the instantiation parameters for a vault.
type Config struct {
	Asset                assets.Info
	ClaimTokenSymbol     string
	ClaimTokenName       string
	ClaimTokenDecimals   uint8
	ReservePoolBps       uint64
	Admin                crypto.Address
	WhitelistedBorrowers []crypto.Address
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
