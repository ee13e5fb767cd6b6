package vault

import "math/big"

// Seconds in a Gregorian year scaled by 10^4 so it divides an interest term
// whose rate is expressed in basis points.
const secondsPerYearBps = 315_569_520_000

var basisPoints = big.NewInt(10_000)

// utilizationBps derives the simple linear borrow rate in basis points:
// totalDebt * 10000 / totalBalance. Zero debt yields a zero rate regardless
// of balance; non-zero debt implies a positive balance (debt is part of the
// balance), which the caller's accounting guarantees.
func utilizationBps(totalBalance, totalDebt *big.Int) *big.Int {
	if totalDebt == nil || totalDebt.Sign() == 0 {
		return big.NewInt(0)
	}
	rate := new(big.Int).Mul(totalDebt, basisPoints)
	return rate.Quo(rate, totalBalance)
}

// accrueInterest computes the linear interest charge for the elapsed window:
//
//	elapsed * rateBps * totalDebt / (secondsPerYear * 10^4)
//
// with floor division. The host clock is contractually monotonic; a negative
// elapsed window is an invariant violation, not a recoverable error.
func accrueInterest(lastTimestamp, nowTimestamp int64, totalBalance, totalDebt *big.Int) *big.Int {
	elapsed := nowTimestamp - lastTimestamp
	if elapsed < 0 {
		panic("vault: non-monotonic accrual timestamp")
	}
	if elapsed == 0 || totalDebt == nil || totalDebt.Sign() == 0 {
		return big.NewInt(0)
	}
	rate := utilizationBps(totalBalance, totalDebt)
	interest := new(big.Int).SetInt64(elapsed)
	interest.Mul(interest, rate)
	interest.Mul(interest, totalDebt)
	return interest.Quo(interest, big.NewInt(secondsPerYearBps))
}
