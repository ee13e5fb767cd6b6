package amm

import (
	"errors"
	"math/big"
	"testing"

	"farmchain/crypto"
	"farmchain/native/assets"
	"farmchain/native/token"
)

type mockState struct {
	pairs map[string]*Pair
}

func newMockState() *mockState { return &mockState{pairs: make(map[string]*Pair)} }

func (m *mockState) GetPair(id string) (*Pair, error) { return m.pairs[id].Clone(), nil }

func (m *mockState) PutPair(p *Pair) error {
	m.pairs[p.ID] = p.Clone()
	return nil
}

type mockMover struct {
	balances map[string]map[string]*big.Int
}

func newMockMover() *mockMover {
	return &mockMover{balances: make(map[string]map[string]*big.Int)}
}

func (m *mockMover) fund(info assets.Info, addr crypto.Address, amount int64) {
	ledger, ok := m.balances[info.ID()]
	if !ok {
		ledger = make(map[string]*big.Int)
		m.balances[info.ID()] = ledger
	}
	ledger[addr.String()] = big.NewInt(amount)
}

func (m *mockMover) Transfer(info assets.Info, from, to crypto.Address, amount *big.Int) error {
	ledger, ok := m.balances[info.ID()]
	if !ok {
		return errors.New("mock mover: unknown asset")
	}
	fromBal := ledger[from.String()]
	if fromBal == nil || fromBal.Cmp(amount) < 0 {
		return errors.New("mock mover: insufficient balance")
	}
	ledger[from.String()] = new(big.Int).Sub(fromBal, amount)
	toBal := ledger[to.String()]
	if toBal == nil {
		toBal = big.NewInt(0)
	}
	ledger[to.String()] = new(big.Int).Add(toBal, amount)
	return nil
}

func (m *mockMover) Balance(info assets.Info, addr crypto.Address) (*big.Int, error) {
	ledger, ok := m.balances[info.ID()]
	if !ok {
		return big.NewInt(0), nil
	}
	bal := ledger[addr.String()]
	if bal == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

type mockTokens struct {
	created       map[string]token.Metadata
	supplies      map[string]*big.Int
	balances      map[string]map[string]*big.Int
	transferFroms int
}

func newMockTokens() *mockTokens {
	return &mockTokens{
		created:  make(map[string]token.Metadata),
		supplies: make(map[string]*big.Int),
		balances: make(map[string]map[string]*big.Int),
	}
}

func (m *mockTokens) Create(symbol, name string, decimals uint8, minter crypto.Address) (*token.Metadata, error) {
	if _, exists := m.created[symbol]; exists {
		return nil, errors.New("mock tokens: symbol taken")
	}
	meta := token.Metadata{Symbol: symbol, Name: name, Decimals: decimals, Minter: minter}
	m.created[symbol] = meta
	m.supplies[symbol] = big.NewInt(0)
	m.balances[symbol] = make(map[string]*big.Int)
	return &meta, nil
}

func (m *mockTokens) Mint(_ crypto.Address, symbol string, recipient crypto.Address, amount *big.Int) error {
	bal := m.balances[symbol][recipient.String()]
	if bal == nil {
		bal = big.NewInt(0)
	}
	m.balances[symbol][recipient.String()] = new(big.Int).Add(bal, amount)
	m.supplies[symbol] = new(big.Int).Add(m.supplies[symbol], amount)
	return nil
}

func (m *mockTokens) Burn(holder crypto.Address, symbol string, amount *big.Int) error {
	bal := m.balances[symbol][holder.String()]
	if bal == nil || bal.Cmp(amount) < 0 {
		return errors.New("mock tokens: burn exceeds balance")
	}
	m.balances[symbol][holder.String()] = new(big.Int).Sub(bal, amount)
	m.supplies[symbol] = new(big.Int).Sub(m.supplies[symbol], amount)
	return nil
}

func (m *mockTokens) TransferFrom(symbol string, _, owner, recipient crypto.Address, amount *big.Int) error {
	m.transferFroms++
	bal := m.balances[symbol][owner.String()]
	if bal == nil || bal.Cmp(amount) < 0 {
		return errors.New("mock tokens: transfer exceeds balance")
	}
	m.balances[symbol][owner.String()] = new(big.Int).Sub(bal, amount)
	to := m.balances[symbol][recipient.String()]
	if to == nil {
		to = big.NewInt(0)
	}
	m.balances[symbol][recipient.String()] = new(big.Int).Add(to, amount)
	return nil
}

func (m *mockTokens) TotalSupply(symbol string) (*big.Int, error) {
	supply, ok := m.supplies[symbol]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(supply), nil
}

func (m *mockTokens) BalanceOf(symbol string, holder crypto.Address) (*big.Int, error) {
	bal := m.balances[symbol][holder.String()]
	if bal == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

func testAddr(t *testing.T, b byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	raw[0] = b
	addr, err := crypto.NewAddress(crypto.AccountPrefix, raw)
	if err != nil {
		t.Fatalf("new address: %v", err)
	}
	return addr
}

var (
	base  = assets.NativeAsset("uusd")
	other = assets.NativeAsset("ukrw")
)

func newTestEngine(t *testing.T) (*Engine, *mockMover, *mockTokens, *Pair) {
	t.Helper()
	engine := NewEngine()
	engine.SetState(newMockState())
	mover := newMockMover()
	tokens := newMockTokens()
	engine.SetCollaborators(tokens, mover)
	pair, err := engine.CreatePair(base, other, "UULP", "uusd-ukrw LP")
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	return engine, mover, tokens, pair
}

func TestCreatePairAndResolve(t *testing.T) {
	engine, _, tokens, pair := newTestEngine(t)

	got, err := engine.PairFor(other, base)
	if err != nil {
		t.Fatalf("pair for reversed legs: %v", err)
	}
	if got.ID != pair.ID {
		t.Fatalf("pair id mismatch: %s vs %s", got.ID, pair.ID)
	}
	if _, ok := tokens.created[pair.LPToken]; !ok {
		t.Fatalf("LP token %q not created", pair.LPToken)
	}
	if _, err := engine.CreatePair(base, other, "UULP2", "dup"); err == nil {
		t.Fatalf("duplicate pair creation should fail")
	}
	if _, err := engine.PairFor(base, assets.NativeAsset("uluna")); !errors.Is(err, ErrPairNotFound) {
		t.Fatalf("unknown pair: got %v, want ErrPairNotFound", err)
	}
}

func TestSwapConstantProductWithFee(t *testing.T) {
	engine, mover, _, pair := newTestEngine(t)
	trader := testAddr(t, 0x01)
	mover.fund(base, pair.Address, 1_000)
	mover.fund(other, pair.Address, 1_000)
	mover.fund(base, trader, 100)

	out, ev, err := engine.Swap(trader, assets.NewAsset(base, big.NewInt(100)), other)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	// 1000*99700 / (1000*1000 + 99700) = 90 after flooring.
	if out.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("swap output = %s, want 90", out)
	}
	if !ev.HasAttribute(ActionKey, ActionSwap) {
		t.Fatalf("swap event missing action marker: %+v", ev)
	}
	if got, _ := ev.Attribute("return_amount"); got != "90" {
		t.Fatalf("return_amount = %q, want 90", got)
	}
	traderOther, _ := mover.Balance(other, trader)
	if traderOther.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("trader payout = %s, want 90", traderOther)
	}
	poolBase, _ := mover.Balance(base, pair.Address)
	if poolBase.Cmp(big.NewInt(1_100)) != 0 {
		t.Fatalf("pool base reserve = %s, want 1100", poolBase)
	}
}

func TestSimulateSwapMatchesSwapWithoutMutation(t *testing.T) {
	engine, mover, _, pair := newTestEngine(t)
	trader := testAddr(t, 0x01)
	mover.fund(base, pair.Address, 1_000)
	mover.fund(other, pair.Address, 1_000)
	mover.fund(base, trader, 100)

	quoted, err := engine.SimulateSwap(assets.NewAsset(base, big.NewInt(100)), other)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	poolBase, _ := mover.Balance(base, pair.Address)
	if poolBase.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("simulate touched reserves: %s", poolBase)
	}
	out, _, err := engine.Swap(trader, assets.NewAsset(base, big.NewInt(100)), other)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if quoted.Cmp(out) != 0 {
		t.Fatalf("quote %s != executed %s", quoted, out)
	}
}

func TestSwapEmptyPool(t *testing.T) {
	engine, mover, _, _ := newTestEngine(t)
	trader := testAddr(t, 0x01)
	mover.fund(base, trader, 100)

	if _, _, err := engine.Swap(trader, assets.NewAsset(base, big.NewInt(100)), other); !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("swap on empty pool: got %v, want ErrEmptyPool", err)
	}
}

func TestProvideLiquidityBootstrapAndProRata(t *testing.T) {
	engine, mover, tokens, pair := newTestEngine(t)
	provider := testAddr(t, 0x02)
	mover.fund(base, provider, 1_000)
	mover.fund(other, provider, 1_000)

	minted, ev, err := engine.ProvideLiquidity(provider,
		assets.NewAsset(base, big.NewInt(100)),
		assets.NewAsset(other, big.NewInt(400)))
	if err != nil {
		t.Fatalf("bootstrap provide: %v", err)
	}
	// Geometric mean of 100 and 400.
	if minted.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("bootstrap LP = %s, want 200", minted)
	}
	if !ev.HasAttribute(ActionKey, ActionProvideLiquidity) {
		t.Fatalf("provide event missing action marker")
	}
	if got, _ := ev.Attribute(AttrShare); got != "200" {
		t.Fatalf("share attribute = %q, want 200", got)
	}

	minted, _, err = engine.ProvideLiquidity(provider,
		assets.NewAsset(base, big.NewInt(50)),
		assets.NewAsset(other, big.NewInt(200)))
	if err != nil {
		t.Fatalf("pro-rata provide: %v", err)
	}
	if minted.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("pro-rata LP = %s, want 100", minted)
	}
	supply, _ := tokens.TotalSupply(pair.LPToken)
	if supply.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("LP supply = %s, want 300", supply)
	}
}

func TestProvideLiquidityUnbalancedMintsMinimum(t *testing.T) {
	engine, mover, _, _ := newTestEngine(t)
	provider := testAddr(t, 0x02)
	mover.fund(base, provider, 1_000)
	mover.fund(other, provider, 1_000)

	if _, _, err := engine.ProvideLiquidity(provider,
		assets.NewAsset(base, big.NewInt(100)),
		assets.NewAsset(other, big.NewInt(100))); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	// Excess on one leg does not buy extra shares.
	minted, _, err := engine.ProvideLiquidity(provider,
		assets.NewAsset(base, big.NewInt(50)),
		assets.NewAsset(other, big.NewInt(90)))
	if err != nil {
		t.Fatalf("unbalanced provide: %v", err)
	}
	if minted.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unbalanced LP = %s, want 50", minted)
	}
}

func TestWithdrawLiquidityProRata(t *testing.T) {
	engine, mover, tokens, pair := newTestEngine(t)
	provider := testAddr(t, 0x02)
	mover.fund(base, provider, 1_000)
	mover.fund(other, provider, 1_000)

	if _, _, err := engine.ProvideLiquidity(provider,
		assets.NewAsset(base, big.NewInt(300)),
		assets.NewAsset(other, big.NewInt(300))); err != nil {
		t.Fatalf("provide: %v", err)
	}
	amountA, amountB, ev, err := engine.WithdrawLiquidity(provider, base, other, big.NewInt(100))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if amountA.Cmp(big.NewInt(100)) != 0 || amountB.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("withdraw amounts = %s/%s, want 100/100", amountA, amountB)
	}
	if !ev.HasAttribute(ActionKey, ActionWithdrawLiquidity) {
		t.Fatalf("withdraw event missing action marker")
	}
	supply, _ := tokens.TotalSupply(pair.LPToken)
	if supply.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("LP supply after withdraw = %s, want 200", supply)
	}
}

func TestPoolShareQuery(t *testing.T) {
	engine, mover, _, _ := newTestEngine(t)
	provider := testAddr(t, 0x02)
	mover.fund(base, provider, 1_000)
	mover.fund(other, provider, 1_000)

	if _, _, err := engine.ProvideLiquidity(provider,
		assets.NewAsset(base, big.NewInt(600)),
		assets.NewAsset(other, big.NewInt(300))); err != nil {
		t.Fatalf("provide: %v", err)
	}
	amountA, amountB, err := engine.PoolShare(base, other, big.NewInt(100))
	if err != nil {
		t.Fatalf("pool share: %v", err)
	}
	// Amounts come back in argument order regardless of canonical sorting.
	supply := big.NewInt(424) // floor(sqrt(600*300))
	wantUsd := new(big.Int).Quo(new(big.Int).Mul(big.NewInt(600), big.NewInt(100)), supply)
	wantKrw := new(big.Int).Quo(new(big.Int).Mul(big.NewInt(300), big.NewInt(100)), supply)
	if amountA.Cmp(wantUsd) != 0 || amountB.Cmp(wantKrw) != 0 {
		t.Fatalf("pool share = %s/%s, want %s/%s", amountA, amountB, wantUsd, wantKrw)
	}
}

func TestTokenLegPullsViaAllowancePath(t *testing.T) {
	engine := NewEngine()
	engine.SetState(newMockState())
	mover := newMockMover()
	tokens := newMockTokens()
	engine.SetCollaborators(tokens, mover)

	tokenLeg := assets.TokenAsset("FARM")
	if _, err := tokens.Create("FARM", "Farm Token", 6, testAddr(t, 0x0F)); err != nil {
		t.Fatalf("create token leg: %v", err)
	}
	pair, err := engine.CreatePair(base, tokenLeg, "FLP", "farm LP")
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	provider := testAddr(t, 0x02)
	mover.fund(base, provider, 1_000)
	if err := tokens.Mint(pair.Address, "FARM", provider, big.NewInt(1_000)); err != nil {
		t.Fatalf("mint token leg: %v", err)
	}
	// The mover must resolve token balances for reserve reads.
	mover.balances[tokenLeg.ID()] = map[string]*big.Int{}

	if _, _, err := engine.ProvideLiquidity(provider,
		assets.NewAsset(base, big.NewInt(100)),
		assets.NewAsset(tokenLeg, big.NewInt(100))); err != nil {
		t.Fatalf("provide with token leg: %v", err)
	}
	if tokens.transferFroms == 0 {
		t.Fatalf("token leg was not pulled through the allowance path")
	}
}
