package vault

import "math/big"

// Share math used by both the vault's debt ledger and the farm's liquidity
// ledger. All divisions floor, so conversions can only round in the pool's
// favour: converting a value to shares and back never yields more than the
// original value.
//
// big.Int keeps intermediates at arbitrary precision, so value*totalShares
// cannot overflow the way fixed-width arithmetic would.

// SharesFromValue converts an absolute value into share units against the
// given totals. With no shares outstanding the first participant receives one
// share per unit of value. The caller must guarantee totalValue > 0 whenever
// totalShares > 0; violating that contract panics.
func SharesFromValue(totalShares, totalValue, value *big.Int) *big.Int {
	totalShares = orZero(totalShares)
	value = orZero(value)
	if totalShares.Sign() == 0 {
		return new(big.Int).Set(value)
	}
	totalValue = orZero(totalValue)
	if totalValue.Sign() == 0 {
		panic("vault: shares outstanding against zero total value")
	}
	out := new(big.Int).Mul(value, totalShares)
	return out.Quo(out, totalValue)
}

// ValueFromShares converts share units back into absolute value against the
// given totals. Zero shares outstanding means shares carry no value.
func ValueFromShares(totalShares, totalValue, shares *big.Int) *big.Int {
	totalShares = orZero(totalShares)
	if totalShares.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(orZero(shares), orZero(totalValue))
	return out.Quo(out, totalShares)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
