package vault

import (
	"math/big"
	"testing"
)

func fundDebtLedger(t *testing.T, engine *Engine, state *mockState, mover *mockMover, debt, onHand int64) {
	t.Helper()
	state.vault.TotalDebt = big.NewInt(debt)
	state.vault.TotalDebtShares = big.NewInt(debt)
	mover.fund(state.vault.Asset, engine.Address(), onHand)
}

func TestAccrueLinearInterest(t *testing.T) {
	engine, state, mover, _ := newTestEngine(t)
	// 500M out on loan, 500M on hand: utilization 50%, so apy 5000 bps.
	fundDebtLedger(t, engine, state, mover, 500_000_000, 500_000_000)

	if err := engine.Accrue(1_300); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	// 300s * 5000bps * 500M / (secondsPerYear * 10^4) floors to 2376.
	want := big.NewInt(500_000_000 + 2_376)
	if state.vault.TotalDebt.Cmp(want) != 0 {
		t.Fatalf("total debt = %s, want %s", state.vault.TotalDebt, want)
	}
	if state.vault.LastAccrueTimestamp != 1_300 {
		t.Fatalf("last accrue timestamp = %d, want 1300", state.vault.LastAccrueTimestamp)
	}
}

func TestAccrueZeroElapsedNoChange(t *testing.T) {
	engine, state, mover, _ := newTestEngine(t)
	fundDebtLedger(t, engine, state, mover, 500_000_000, 500_000_000)

	if err := engine.Accrue(1_000); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if state.vault.TotalDebt.Cmp(big.NewInt(500_000_000)) != 0 {
		t.Fatalf("total debt changed with zero elapsed: %s", state.vault.TotalDebt)
	}
}

func TestAccrueMonotonic(t *testing.T) {
	engine, state, mover, _ := newTestEngine(t)
	fundDebtLedger(t, engine, state, mover, 123_456_789, 876_543_211)

	prev := new(big.Int).Set(state.vault.TotalDebt)
	for _, now := range []int64{1_001, 1_060, 2_000, 100_000} {
		if err := engine.Accrue(now); err != nil {
			t.Fatalf("accrue at %d: %v", now, err)
		}
		if state.vault.TotalDebt.Cmp(prev) < 0 {
			t.Fatalf("total debt decreased at %d: %s < %s", now, state.vault.TotalDebt, prev)
		}
		prev = new(big.Int).Set(state.vault.TotalDebt)
	}
}

func TestAccrueSkimsReserve(t *testing.T) {
	engine, state, mover, _ := newTestEngine(t)
	fundDebtLedger(t, engine, state, mover, 500_000_000, 500_000_000)
	state.vault.ReservePoolBps = 2_000

	if err := engine.Accrue(1_300); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	// 20% of the 2376 interest charge.
	if state.vault.ReservePool.Cmp(big.NewInt(475)) != 0 {
		t.Fatalf("reserve pool = %s, want 475", state.vault.ReservePool)
	}
	// The reserve slice is excluded from the lender-side balance.
	balance, err := engine.TotalBalance()
	if err != nil {
		t.Fatalf("total balance: %v", err)
	}
	want := big.NewInt(500_000_000 + 500_000_000 + 2_376 - 475)
	if balance.Cmp(want) != 0 {
		t.Fatalf("total balance = %s, want %s", balance, want)
	}
}

func TestAccrueNoDebtNoInterest(t *testing.T) {
	engine, state, mover, _ := newTestEngine(t)
	mover.fund(state.vault.Asset, engine.Address(), 1_000_000)

	if err := engine.Accrue(500_000); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if state.vault.TotalDebt.Sign() != 0 {
		t.Fatalf("interest charged with no debt: %s", state.vault.TotalDebt)
	}
}

func TestPositionDebtValueQuotesWithoutPersisting(t *testing.T) {
	engine, state, mover, _ := newTestEngine(t)
	depositor := testAddr(t, 0x02)
	farm := contractAddr(t, 0x03)
	mover.fund(state.vault.Asset, depositor, 1_000_000_000)
	state.vault.WhitelistedBorrowers = append(state.vault.WhitelistedBorrowers, farm)

	if _, err := engine.Deposit(depositor, sent(1_000_000_000), 1_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	id, err := engine.Borrow(farm, big.NewInt(500_000_000), 1_000)
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	value, err := engine.PositionDebtValue(id, 1_300)
	if err != nil {
		t.Fatalf("position debt value: %v", err)
	}
	if value.Cmp(big.NewInt(500_000_000+2_376)) != 0 {
		t.Fatalf("quoted debt = %s, want 500002376", value)
	}
	// Quote only: the stored ledger stays at the last persisted accrual.
	if state.vault.TotalDebt.Cmp(big.NewInt(500_000_000)) != 0 {
		t.Fatalf("ledger mutated by quote: %s", state.vault.TotalDebt)
	}
}
