package farm

import (
	"fmt"
	"math/big"
	"testing"

	"farmchain/core/host"
	"farmchain/crypto"
	"farmchain/native/amm"
	"farmchain/native/assets"
	"farmchain/native/bank"
	"farmchain/native/token"
	"farmchain/native/vault"
	"farmchain/storage"
)

// The farm is tested against the real vault, venue, token and bank engines
// over map-backed states, with the host router draining the call queue so
// the open workflow actually crosses its two reply boundaries.

type tokenState struct {
	metas      map[string]*token.Metadata
	balances   map[string]map[string]*big.Int
	allowances map[string]map[string]*big.Int
	supplies   map[string]*big.Int
}

func newTokenState() *tokenState {
	return &tokenState{
		metas:      make(map[string]*token.Metadata),
		balances:   make(map[string]map[string]*big.Int),
		allowances: make(map[string]map[string]*big.Int),
		supplies:   make(map[string]*big.Int),
	}
}

func (s *tokenState) GetTokenMeta(symbol string) (*token.Metadata, error) {
	return s.metas[symbol].Clone(), nil
}

func (s *tokenState) PutTokenMeta(symbol string, meta *token.Metadata) error {
	s.metas[symbol] = meta.Clone()
	return nil
}

func (s *tokenState) GetTokenBalance(symbol string, addr crypto.Address) (*big.Int, error) {
	ledger := s.balances[symbol]
	if ledger == nil || ledger[addr.String()] == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(ledger[addr.String()]), nil
}

func (s *tokenState) PutTokenBalance(symbol string, addr crypto.Address, amount *big.Int) error {
	ledger := s.balances[symbol]
	if ledger == nil {
		ledger = make(map[string]*big.Int)
		s.balances[symbol] = ledger
	}
	ledger[addr.String()] = new(big.Int).Set(amount)
	return nil
}

func (s *tokenState) GetTokenAllowance(symbol string, owner, spender crypto.Address) (*big.Int, error) {
	ledger := s.allowances[symbol]
	key := owner.String() + "|" + spender.String()
	if ledger == nil || ledger[key] == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(ledger[key]), nil
}

func (s *tokenState) PutTokenAllowance(symbol string, owner, spender crypto.Address, amount *big.Int) error {
	ledger := s.allowances[symbol]
	if ledger == nil {
		ledger = make(map[string]*big.Int)
		s.allowances[symbol] = ledger
	}
	ledger[owner.String()+"|"+spender.String()] = new(big.Int).Set(amount)
	return nil
}

func (s *tokenState) GetTokenSupply(symbol string) (*big.Int, error) {
	if s.supplies[symbol] == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(s.supplies[symbol]), nil
}

func (s *tokenState) PutTokenSupply(symbol string, amount *big.Int) error {
	s.supplies[symbol] = new(big.Int).Set(amount)
	return nil
}

type bankState struct {
	balances map[string]map[string]*big.Int
	supplies map[string]*big.Int
}

func newBankState() *bankState {
	return &bankState{
		balances: make(map[string]map[string]*big.Int),
		supplies: make(map[string]*big.Int),
	}
}

func (s *bankState) GetBankBalance(denom string, addr crypto.Address) (*big.Int, error) {
	ledger := s.balances[denom]
	if ledger == nil || ledger[addr.String()] == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(ledger[addr.String()]), nil
}

func (s *bankState) PutBankBalance(denom string, addr crypto.Address, amount *big.Int) error {
	ledger := s.balances[denom]
	if ledger == nil {
		ledger = make(map[string]*big.Int)
		s.balances[denom] = ledger
	}
	ledger[addr.String()] = new(big.Int).Set(amount)
	return nil
}

func (s *bankState) GetBankSupply(denom string) (*big.Int, error) {
	if s.supplies[denom] == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(s.supplies[denom]), nil
}

func (s *bankState) PutBankSupply(denom string, amount *big.Int) error {
	s.supplies[denom] = new(big.Int).Set(amount)
	return nil
}

type vaultState struct {
	vault     *vault.Vault
	positions map[uint64]*vault.BorrowPosition
}

func newVaultState() *vaultState {
	return &vaultState{positions: make(map[uint64]*vault.BorrowPosition)}
}

func (s *vaultState) GetVault() (*vault.Vault, error) { return s.vault.Clone(), nil }

func (s *vaultState) PutVault(v *vault.Vault) error {
	s.vault = v.Clone()
	return nil
}

func (s *vaultState) GetBorrowPosition(id uint64) (*vault.BorrowPosition, error) {
	return s.positions[id].Clone(), nil
}

func (s *vaultState) PutBorrowPosition(p *vault.BorrowPosition) error {
	s.positions[p.ID] = p.Clone()
	return nil
}

func (s *vaultState) DeleteBorrowPosition(id uint64) error {
	delete(s.positions, id)
	return nil
}

type ammState struct {
	pairs map[string]*amm.Pair
}

func (s *ammState) GetPair(id string) (*amm.Pair, error) { return s.pairs[id].Clone(), nil }

func (s *ammState) PutPair(p *amm.Pair) error {
	s.pairs[p.ID] = p.Clone()
	return nil
}

type farmState struct {
	farm      *Farm
	positions map[uint64]*Position
	workflows map[string]*Workflow
}

func newFarmState() *farmState {
	return &farmState{
		positions: make(map[uint64]*Position),
		workflows: make(map[string]*Workflow),
	}
}

func (s *farmState) GetFarm() (*Farm, error) { return s.farm.Clone(), nil }

func (s *farmState) PutFarm(f *Farm) error {
	s.farm = f.Clone()
	return nil
}

func (s *farmState) GetPosition(id uint64) (*Position, error) {
	return s.positions[id].Clone(), nil
}

func (s *farmState) PutPosition(p *Position) error {
	s.positions[p.ID] = p.Clone()
	return nil
}

func (s *farmState) DeletePosition(id uint64) error {
	delete(s.positions, id)
	return nil
}

func (s *farmState) GetWorkflow(id string) (*Workflow, error) {
	return s.workflows[id].Clone(), nil
}

func (s *farmState) PutWorkflow(w *Workflow) error {
	s.workflows[w.ID] = w.Clone()
	return nil
}

func (s *farmState) DeleteWorkflow(id string) error {
	delete(s.workflows, id)
	return nil
}

type world struct {
	router *host.Router
	clock  int64

	tokens *token.Engine
	bank   *bank.Engine
	mover  assets.Mover
	vault  *vault.Engine
	venue  *amm.Engine
	farm   *Engine

	vaultStore *vaultState
	farmStore  *farmState

	base, other assets.Info
	owner       crypto.Address
	lender      crypto.Address
	provider    crypto.Address
}

func addr(t *testing.T, prefix crypto.AddressPrefix, b byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	raw[0] = b
	a, err := crypto.NewAddress(prefix, raw)
	if err != nil {
		t.Fatalf("new address: %v", err)
	}
	return a
}

// newWorld stands up the whole stack: a funded uusd/ukrw pool with one
// liquidity provider, a vault funded by one lender, and a whitelisted farm.
func newWorld(t *testing.T, lenderDeposit int64) *world {
	return newWorldWithOther(t, assets.NativeAsset("ukrw"), lenderDeposit)
}

func newWorldWithOther(t *testing.T, other assets.Info, lenderDeposit int64) *world {
	t.Helper()
	w := &world{
		clock:    1_000,
		base:     assets.NativeAsset("uusd"),
		other:    other,
		owner:    addr(t, crypto.AccountPrefix, 0x01),
		lender:   addr(t, crypto.AccountPrefix, 0x02),
		provider: addr(t, crypto.AccountPrefix, 0x03),
	}
	w.router = host.NewRouter(storage.NewMemDB())
	w.router.SetClock(func() int64 { return w.clock })

	w.tokens = token.NewEngine()
	w.tokens.SetState(newTokenState())
	w.bank = bank.NewEngine()
	w.bank.SetState(newBankState())
	w.mover = assets.Mover{Bank: w.bank, Tokens: w.tokens}

	for _, grant := range []struct {
		denom string
		to    crypto.Address
		amt   int64
	}{
		{"uusd", w.owner, 10_000},
		{"uusd", w.lender, lenderDeposit},
		{"uusd", w.provider, 1_000_000},
	} {
		if err := w.bank.Mint(grant.denom, grant.to, big.NewInt(grant.amt)); err != nil {
			t.Fatalf("mint %s to %s: %v", grant.denom, grant.to, err)
		}
	}
	if other.Kind == assets.Token {
		minter := addr(t, crypto.AccountPrefix, 0x0A)
		if _, err := w.tokens.Create(other.Symbol, other.Symbol, 6, minter); err != nil {
			t.Fatalf("create %s: %v", other.Symbol, err)
		}
		if err := w.tokens.Mint(minter, other.Symbol, w.provider, big.NewInt(1_000_000)); err != nil {
			t.Fatalf("mint %s to provider: %v", other.Symbol, err)
		}
	} else {
		if err := w.bank.Mint(other.Denom, w.provider, big.NewInt(1_000_000)); err != nil {
			t.Fatalf("mint %s to provider: %v", other.Denom, err)
		}
	}

	w.venue = amm.NewEngine()
	w.venue.SetState(&ammState{pairs: make(map[string]*amm.Pair)})
	w.venue.SetCollaborators(w.tokens, w.mover)
	if _, err := w.venue.CreatePair(w.base, w.other, "UULP", "uusd-ukrw LP"); err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if other.Kind == assets.Token {
		pair, err := w.venue.PairFor(w.base, w.other)
		if err != nil {
			t.Fatalf("pair lookup: %v", err)
		}
		if err := w.tokens.IncreaseAllowance(other.Symbol, w.provider, pair.Address, big.NewInt(1_000_000)); err != nil {
			t.Fatalf("provider allowance: %v", err)
		}
	}
	if _, _, err := w.venue.ProvideLiquidity(w.provider,
		assets.NewAsset(w.base, big.NewInt(1_000_000)),
		assets.NewAsset(w.other, big.NewInt(1_000_000))); err != nil {
		t.Fatalf("seed pool: %v", err)
	}

	vaultAddr := addr(t, crypto.ContractPrefix, 0x10)
	farmAddr := addr(t, crypto.ContractPrefix, 0x20)
	w.vault = vault.NewEngine(vaultAddr)
	w.vaultStore = newVaultState()
	w.vaultStore.vault = &vault.Vault{
		Asset:                w.base,
		ClaimToken:           "VSHARE",
		TotalDebt:            big.NewInt(0),
		TotalDebtShares:      big.NewInt(0),
		ReservePool:          big.NewInt(0),
		WhitelistedBorrowers: []crypto.Address{farmAddr},
		Admin:                addr(t, crypto.AccountPrefix, 0x0A),
		LastAccrueTimestamp:  w.clock,
	}
	w.vault.SetState(w.vaultStore)
	w.vault.SetCollaborators(w.tokens, w.mover)
	if _, err := w.tokens.Create("VSHARE", "Vault Share", 6, vaultAddr); err != nil {
		t.Fatalf("create claim token: %v", err)
	}
	if _, err := w.vault.Deposit(w.lender, assets.NewAsset(w.base, big.NewInt(lenderDeposit)), w.clock); err != nil {
		t.Fatalf("fund vault: %v", err)
	}

	w.farm = NewEngine(farmAddr)
	w.farmStore = newFarmState()
	w.farm.SetState(w.farmStore)
	w.farm.SetCollaborators(w.vault, w.venue, w.tokens, w.mover)
	nextID := 0
	w.farm.SetWorkflowIDSource(func() string {
		nextID++
		return fmt.Sprintf("wf-%d", nextID)
	})
	if err := w.farm.Instantiate(Config{BaseAsset: w.base, OtherAsset: w.other}); err != nil {
		t.Fatalf("instantiate farm: %v", err)
	}
	return w
}

func (w *world) open(t *testing.T, owner crypto.Address, deposit, borrow int64) string {
	t.Helper()
	var workflowID string
	_, err := w.router.Transact(func(ctx *host.Context, _ storage.Database) error {
		id, err := w.farm.Open(ctx, owner, big.NewInt(deposit), big.NewInt(borrow),
			assets.NewAsset(w.base, big.NewInt(deposit)))
		workflowID = id
		return err
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return workflowID
}

func TestOpenEndToEnd(t *testing.T) {
	w := newWorld(t, 5_000)
	workflowID := w.open(t, w.owner, 1_000, 1_000)

	if _, err := w.farm.GetWorkflow(workflowID); err == nil {
		t.Fatalf("workflow %s still present after completion", workflowID)
	}
	position, err := w.farm.GetPosition(1)
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	if !position.Owner.Equal(w.owner) {
		t.Fatalf("position owner = %s, want %s", position.Owner, w.owner)
	}
	// 2000 principal: 1001 swapped for 997 ukrw, legs 999/997 pooled into a
	// seeded 1M/1M pool mint 997 LP, bootstrapping 997 liquidity shares.
	if position.LiquidityShare.Cmp(big.NewInt(997)) != 0 {
		t.Fatalf("liquidity share = %s, want 997", position.LiquidityShare)
	}
	if w.farmStore.farm.TotalLiquidityShares.Cmp(big.NewInt(997)) != 0 {
		t.Fatalf("total liquidity shares = %s, want 997", w.farmStore.farm.TotalLiquidityShares)
	}
	lpHeld, _ := w.tokens.BalanceOf("UULP", w.farm.Address())
	if lpHeld.Cmp(big.NewInt(997)) != 0 {
		t.Fatalf("farm LP balance = %s, want 997", lpHeld)
	}
	borrowPos, err := w.vault.GetPosition(1)
	if err != nil {
		t.Fatalf("vault position: %v", err)
	}
	if borrowPos.DebtShare.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("vault debt share = %s, want 1000", borrowPos.DebtShare)
	}
	// The farm pools everything it swapped; no leg balance is left behind.
	baseLeft, _ := w.mover.Balance(w.base, w.farm.Address())
	otherLeft, _ := w.mover.Balance(w.other, w.farm.Address())
	if baseLeft.Sign() != 0 || otherLeft.Sign() != 0 {
		t.Fatalf("farm kept leg balances: %s uusd, %s ukrw", baseLeft, otherLeft)
	}
}

func TestOpenValidation(t *testing.T) {
	w := newWorld(t, 5_000)

	_, err := w.router.Transact(func(ctx *host.Context, _ storage.Database) error {
		_, err := w.farm.Open(ctx, w.owner, big.NewInt(1_000), big.NewInt(1_000),
			assets.NewAsset(w.other, big.NewInt(1_000)))
		return err
	})
	if err != ErrWrongAsset {
		t.Fatalf("open with wrong funds asset: got %v, want ErrWrongAsset", err)
	}

	_, err = w.router.Transact(func(ctx *host.Context, _ storage.Database) error {
		_, err := w.farm.Open(ctx, w.owner, big.NewInt(1_000), big.NewInt(1_000),
			assets.NewAsset(w.base, big.NewInt(999)))
		return err
	})
	if err != ErrWrongAmount {
		t.Fatalf("open with short funds: got %v, want ErrWrongAmount", err)
	}

	if len(w.farmStore.workflows) != 0 {
		t.Fatalf("failed opens left workflows behind")
	}
}

func TestOpenRejectedByVaultWhitelist(t *testing.T) {
	w := newWorld(t, 5_000)
	w.vaultStore.vault.WhitelistedBorrowers = nil

	_, err := w.router.Transact(func(ctx *host.Context, _ storage.Database) error {
		_, err := w.farm.Open(ctx, w.owner, big.NewInt(1_000), big.NewInt(1_000),
			assets.NewAsset(w.base, big.NewInt(1_000)))
		return err
	})
	if err != vault.ErrUnauthorized {
		t.Fatalf("open without whitelist: got %v, want vault.ErrUnauthorized", err)
	}
}

func TestConcurrentOpensKeepSeparateSagas(t *testing.T) {
	w := newWorld(t, 10_000)
	second := addr(t, crypto.AccountPrefix, 0x04)
	if err := w.bank.Mint("uusd", second, big.NewInt(10_000)); err != nil {
		t.Fatalf("fund second owner: %v", err)
	}

	first := w.open(t, w.owner, 1_000, 1_000)
	secondWF := w.open(t, second, 2_000, 2_000)
	if first == secondWF {
		t.Fatalf("workflow ids collide: %s", first)
	}
	if len(w.farmStore.workflows) != 0 {
		t.Fatalf("completed workflows still stored: %d", len(w.farmStore.workflows))
	}
	p1, err := w.farm.GetPosition(1)
	if err != nil {
		t.Fatalf("first position: %v", err)
	}
	p2, err := w.farm.GetPosition(2)
	if err != nil {
		t.Fatalf("second position: %v", err)
	}
	if !p1.Owner.Equal(w.owner) || !p2.Owner.Equal(second) {
		t.Fatalf("positions attributed to wrong owners")
	}
	if p1.LiquidityShare.Sign() <= 0 || p2.LiquidityShare.Sign() <= 0 {
		t.Fatalf("non-positive liquidity shares: %s, %s", p1.LiquidityShare, p2.LiquidityShare)
	}
	sum := new(big.Int).Add(p1.LiquidityShare, p2.LiquidityShare)
	if w.farmStore.farm.TotalLiquidityShares.Cmp(sum) != 0 {
		t.Fatalf("total shares %s != sum of positions %s", w.farmStore.farm.TotalLiquidityShares, sum)
	}
}

func TestCloseRepaysAndReturnsRemainder(t *testing.T) {
	w := newWorld(t, 5_000)
	w.open(t, w.owner, 1_000, 1_000)
	ownerBefore, _ := w.mover.Balance(w.base, w.owner)

	_, err := w.router.Transact(func(ctx *host.Context, _ storage.Database) error {
		return w.farm.Close(ctx, w.owner, 1)
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := w.farm.GetPosition(1); err != ErrPositionNotFound {
		t.Fatalf("position after close: got %v, want ErrPositionNotFound", err)
	}
	if _, err := w.vault.GetPosition(1); err != vault.ErrPositionNotFound {
		t.Fatalf("vault position after close: got %v, want not found", err)
	}
	if w.farmStore.farm.TotalLiquidityShares.Sign() != 0 {
		t.Fatalf("liquidity shares remain: %s", w.farmStore.farm.TotalLiquidityShares)
	}
	// Unwinding 997 LP recovers 997 uusd + 994 from swapping the ukrw leg;
	// 1000 repays the debt and 991 goes back to the owner.
	ownerAfter, _ := w.mover.Balance(w.base, w.owner)
	gain := new(big.Int).Sub(ownerAfter, ownerBefore)
	if gain.Cmp(big.NewInt(991)) != 0 {
		t.Fatalf("owner received %s, want 991", gain)
	}
	baseLeft, _ := w.mover.Balance(w.base, w.farm.Address())
	if baseLeft.Sign() != 0 {
		t.Fatalf("farm kept %s uusd after close", baseLeft)
	}
}

func TestCloseUnwindsTokenLeg(t *testing.T) {
	// With the non-base leg as a token, the unwind swap can only pull the
	// leg if the close granted the pair an allowance first.
	w := newWorldWithOther(t, assets.TokenAsset("UKRW"), 5_000)
	w.open(t, w.owner, 1_000, 1_000)
	ownerBefore, _ := w.mover.Balance(w.base, w.owner)

	_, err := w.router.Transact(func(ctx *host.Context, _ storage.Database) error {
		return w.farm.Close(ctx, w.owner, 1)
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := w.farm.GetPosition(1); err != ErrPositionNotFound {
		t.Fatalf("position after close: got %v, want ErrPositionNotFound", err)
	}
	ownerAfter, _ := w.mover.Balance(w.base, w.owner)
	gain := new(big.Int).Sub(ownerAfter, ownerBefore)
	if gain.Cmp(big.NewInt(991)) != 0 {
		t.Fatalf("owner received %s, want 991", gain)
	}
	tokenLeft, _ := w.tokens.BalanceOf("UKRW", w.farm.Address())
	if tokenLeft.Sign() != 0 {
		t.Fatalf("farm kept %s UKRW after close", tokenLeft)
	}
}

func TestCloseUnauthorized(t *testing.T) {
	w := newWorld(t, 5_000)
	w.open(t, w.owner, 1_000, 1_000)
	stranger := addr(t, crypto.AccountPrefix, 0x05)

	_, err := w.router.Transact(func(ctx *host.Context, _ storage.Database) error {
		return w.farm.Close(ctx, stranger, 1)
	})
	if err != ErrUnauthorized {
		t.Fatalf("close by stranger: got %v, want ErrUnauthorized", err)
	}
	if _, err := w.farm.GetPosition(1); err != nil {
		t.Fatalf("position should survive unauthorized close: %v", err)
	}
}

func TestCloseRefusedWhenDebtExceedsRecovery(t *testing.T) {
	w := newWorld(t, 1_000)
	w.open(t, w.owner, 1_000, 1_000)

	// The vault lent everything out: utilization 100%, so debt doubles
	// linearly over a year and outgrows the ~1990 the position can recover.
	w.clock += 31_556_952

	sharesBefore := new(big.Int).Set(w.farmStore.farm.TotalLiquidityShares)
	_, err := w.router.Transact(func(ctx *host.Context, _ storage.Database) error {
		return w.farm.Close(ctx, w.owner, 1)
	})
	if err != ErrInsufficientFunds {
		t.Fatalf("underwater close: got %v, want ErrInsufficientFunds", err)
	}
	if _, err := w.farm.GetPosition(1); err != nil {
		t.Fatalf("position should survive refused close: %v", err)
	}
	if w.farmStore.farm.TotalLiquidityShares.Cmp(sharesBefore) != 0 {
		t.Fatalf("share ledger changed on refused close")
	}
}
