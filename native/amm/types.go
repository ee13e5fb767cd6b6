package amm

import (
	"strings"

	"farmchain/crypto"
	"farmchain/native/assets"
)

// Pair is a constant-product pool between two assets. Legs are stored in
// canonical order so either orientation of a query resolves the same pool.
type Pair struct {
	ID      string
	AssetA  assets.Info
	AssetB  assets.Info
	LPToken string
	Address crypto.Address
}

// Clone returns a copy of the pair record.
func (p *Pair) Clone() *Pair {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Leg reports whether info is one of the pair's assets and returns the
// opposite leg.
func (p *Pair) Leg(info assets.Info) (other assets.Info, ok bool) {
	switch {
	case info.Equal(p.AssetA):
		return p.AssetB, true
	case info.Equal(p.AssetB):
		return p.AssetA, true
	default:
		return assets.Info{}, false
	}
}

// PairID returns the canonical identifier for an asset pair, independent of
// argument order.
func PairID(a, b assets.Info) string {
	lo, hi := a.ID(), b.ID()
	if strings.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	return lo + ":" + hi
}

func orient(a, b assets.Info) (assets.Info, assets.Info) {
	if strings.Compare(a.ID(), b.ID()) > 0 {
		return b, a
	}
	return a, b
}
