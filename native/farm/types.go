package farm

import (
	"math/big"

	"farmchain/crypto"
	"farmchain/native/assets"
)

// Farm is the singleton record for a leveraged-farming contract: the two
// pool legs it farms, the venue's LP token, and the share ledger that
// partitions the farm's LP holdings among positions.
type Farm struct {
	BaseAsset  assets.Info
	OtherAsset assets.Info
	// LPToken is the liquidity token of the venue pair for the two legs.
	LPToken string
	// TotalLiquidityShares partitions the farm's LP balance among positions.
	TotalLiquidityShares *big.Int
}

func (f *Farm) Clone() *Farm {
	if f == nil {
		return nil
	}
	clone := *f
	clone.TotalLiquidityShares = cloneBig(f.TotalLiquidityShares)
	return &clone
}

// Position is one user's leveraged stake. Its id mirrors the borrow position
// the vault opened for it.
type Position struct {
	ID             uint64
	Owner          crypto.Address
	LiquidityShare *big.Int
}

func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	clone.LiquidityShare = cloneBig(p.LiquidityShare)
	return &clone
}

// Workflow is the saga record for one in-flight open. Each open allocates
// its own record keyed by a fresh id, so concurrent opens never clobber each
// other; the id travels inside the continuation token of every outbound call
// the workflow issues.
type Workflow struct {
	ID            string
	PositionID    uint64
	Owner         crypto.Address
	DepositAmount *big.Int
	BorrowAmount  *big.Int
	// LPBalanceBefore is the farm's LP holding captured just before the
	// provide-liquidity call, the denominator for pricing the minted share.
	LPBalanceBefore *big.Int
}

func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	clone := *w
	clone.DepositAmount = cloneBig(w.DepositAmount)
	clone.BorrowAmount = cloneBig(w.BorrowAmount)
	clone.LPBalanceBefore = cloneBig(w.LPBalanceBefore)
	return &clone
}

// Config carries the instantiation parameters for a farm.
type Config struct {
	BaseAsset  assets.Info
	OtherAsset assets.Info
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
