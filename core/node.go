// Package core assembles the engines into a node: genesis seeding, the
// transaction surface the RPC layer calls into, and read-only queries. Every
// operation runs through the host router, so writes land atomically or not
// at all.
package core

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"farmchain/core/host"
	"farmchain/core/state"
	"farmchain/core/types"
	"farmchain/crypto"
	"farmchain/native/amm"
	"farmchain/native/assets"
	"farmchain/native/bank"
	"farmchain/native/escrow"
	"farmchain/native/farm"
	"farmchain/native/game"
	"farmchain/native/token"
	"farmchain/native/vault"
	"farmchain/observability/metrics"
	"farmchain/storage"
)

var errAlreadyInitialized = errors.New("core: ledger already initialized")

// GenesisConfig seeds the ledger on first start.
type GenesisConfig struct {
	BaseAsset          assets.Info
	OtherAsset         assets.Info
	LPTokenSymbol      string
	ClaimTokenSymbol   string
	ClaimTokenDecimals uint8
	ReservePoolBps     uint64
	Admin              crypto.Address
	Faucet             []FaucetGrant
}

// FaucetGrant mints an opening balance to an account.
type FaucetGrant struct {
	Denom   string
	Address crypto.Address
	Amount  *big.Int
}

// Node owns the database and runs every mutation as one host transaction.
type Node struct {
	db      storage.Database
	router  *host.Router
	log     *slog.Logger
	metrics *metrics.LendingMetrics

	genesis GenesisConfig

	vaultAddr  crypto.Address
	farmAddr   crypto.Address
	escrowAddr crypto.Address
}

func NewNode(db storage.Database, genesis GenesisConfig, log *slog.Logger) (*Node, error) {
	if log == nil {
		log = slog.Default()
	}
	vaultAddr, err := ModuleAddress("vault")
	if err != nil {
		return nil, err
	}
	farmAddr, err := ModuleAddress("farm")
	if err != nil {
		return nil, err
	}
	escrowAddr, err := ModuleAddress("escrow")
	if err != nil {
		return nil, err
	}
	return &Node{
		db:         db,
		router:     host.NewRouter(db),
		log:        log,
		metrics:    metrics.Lending(),
		genesis:    genesis,
		vaultAddr:  vaultAddr,
		farmAddr:   farmAddr,
		escrowAddr: escrowAddr,
	}, nil
}

// SetClock overrides the transaction clock. Tests use a fixed clock.
func (n *Node) SetClock(now func() int64) { n.router.SetClock(now) }

// ModuleAddress derives the deterministic treasury address of a native
// module.
func ModuleAddress(name string) (crypto.Address, error) {
	return crypto.NewAddress(crypto.ContractPrefix, ethcrypto.Keccak256([]byte("module/"+name))[:20])
}

// engines bundles every engine bound to one transaction overlay.
type engines struct {
	manager *state.Manager
	tokens  *token.Engine
	bank    *bank.Engine
	mover   assets.Mover
	vault   *vault.Engine
	venue   *amm.Engine
	farm    *farm.Engine
	escrow  *escrow.Engine
	game    *game.Engine
}

// build wires the full engine set over db. With a non-nil ctx the engines
// emit into the transaction's event log; queries pass nil.
func (n *Node) build(ctx *host.Context, db storage.Database) *engines {
	manager := state.NewManager(db)
	e := &engines{manager: manager}

	e.tokens = token.NewEngine()
	e.tokens.SetState(manager)
	e.bank = bank.NewEngine()
	e.bank.SetState(manager)
	e.mover = assets.Mover{Bank: e.bank, Tokens: e.tokens}

	e.venue = amm.NewEngine()
	e.venue.SetState(manager)
	e.venue.SetCollaborators(e.tokens, e.mover)

	e.vault = vault.NewEngine(n.vaultAddr)
	e.vault.SetState(manager)
	e.vault.SetCollaborators(e.tokens, e.mover)
	e.vault.SetPauses(manager)

	e.farm = farm.NewEngine(n.farmAddr)
	e.farm.SetState(manager)
	e.farm.SetCollaborators(e.vault, e.venue, e.tokens, e.mover)
	e.farm.SetPauses(manager)

	e.escrow = escrow.NewEngine(n.escrowAddr)
	e.escrow.SetState(manager)
	e.escrow.SetCollaborators(e.mover)

	e.game = game.NewEngine()
	e.game.SetState(manager)

	if ctx != nil {
		emit := func(event *types.Event) { ctx.Emit(event) }
		e.vault.SetEmitter(emit)
		e.farm.SetEmitter(emit)
		e.escrow.SetEmitter(emit)
		e.game.SetEmitter(emit)
	}
	return e
}

// transact runs one host transaction and counts it.
func (n *Node) transact(prepare func(ctx *host.Context, db storage.Database) error) error {
	_, err := n.router.Transact(prepare)
	n.metrics.ObserveTransaction(err)
	return err
}

// InitGenesis seeds the ledger: faucet balances, the venue pair, the vault
// with the farm whitelisted, and the farm itself. Running against an already
// seeded database is an error.
func (n *Node) InitGenesis() error {
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		e := n.build(ctx, db)
		if existing, err := e.manager.GetVault(); err != nil {
			return err
		} else if existing != nil {
			return errAlreadyInitialized
		}
		for _, info := range []assets.Info{n.genesis.BaseAsset, n.genesis.OtherAsset} {
			if info.Kind != assets.Token {
				continue
			}
			if _, err := e.tokens.Create(info.Symbol, info.Symbol, n.genesis.ClaimTokenDecimals, n.genesis.Admin); err != nil {
				return fmt.Errorf("create token %s: %w", info.Symbol, err)
			}
		}
		for _, grant := range n.genesis.Faucet {
			info := n.grantAsset(grant.Denom)
			var err error
			if info.Kind == assets.Token {
				err = e.tokens.Mint(n.genesis.Admin, info.Symbol, grant.Address, grant.Amount)
			} else {
				err = e.bank.Mint(info.Denom, grant.Address, grant.Amount)
			}
			if err != nil {
				return fmt.Errorf("faucet mint %s: %w", grant.Denom, err)
			}
		}
		lpName := n.genesis.BaseAsset.ID() + "-" + n.genesis.OtherAsset.ID() + " LP"
		if _, err := e.venue.CreatePair(n.genesis.BaseAsset, n.genesis.OtherAsset, n.genesis.LPTokenSymbol, lpName); err != nil {
			return fmt.Errorf("create pair: %w", err)
		}
		if err := e.vault.Instantiate(ctx, vault.Config{
			Asset:                n.genesis.BaseAsset,
			ClaimTokenSymbol:     n.genesis.ClaimTokenSymbol,
			ClaimTokenName:       n.genesis.ClaimTokenSymbol + " claim",
			ClaimTokenDecimals:   n.genesis.ClaimTokenDecimals,
			ReservePoolBps:       n.genesis.ReservePoolBps,
			Admin:                n.genesis.Admin,
			WhitelistedBorrowers: []crypto.Address{n.farmAddr},
		}); err != nil {
			return fmt.Errorf("instantiate vault: %w", err)
		}
		if err := e.farm.Instantiate(farm.Config{
			BaseAsset:  n.genesis.BaseAsset,
			OtherAsset: n.genesis.OtherAsset,
		}); err != nil {
			return fmt.Errorf("instantiate farm: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	n.log.Info("genesis applied",
		"base", n.genesis.BaseAsset.ID(),
		"other", n.genesis.OtherAsset.ID(),
		"faucet_grants", len(n.genesis.Faucet))
	return nil
}

// grantAsset resolves a faucet identifier against the pool legs, so a grant
// naming a token-kind leg mints through the token engine instead of the bank.
func (n *Node) grantAsset(id string) assets.Info {
	for _, info := range []assets.Info{n.genesis.BaseAsset, n.genesis.OtherAsset} {
		if info.Kind == assets.Token && info.Symbol == id {
			return info
		}
	}
	return assets.NativeAsset(id)
}

// Initialized reports whether genesis has been applied.
func (n *Node) Initialized() (bool, error) {
	v, err := state.NewManager(n.db).GetVault()
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

// --- Vault operations ---

func (n *Node) Deposit(depositor crypto.Address, amount *big.Int) (*big.Int, error) {
	var shares *big.Int
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		e := n.build(ctx, db)
		minted, err := e.vault.Deposit(depositor, assets.NewAsset(n.genesis.BaseAsset, amount), ctx.Timestamp)
		shares = minted
		return err
	})
	n.metrics.ObserveVaultOp("deposit", err)
	if err != nil {
		return nil, err
	}
	n.updateVaultGauges()
	n.log.Info("vault deposit", "depositor", depositor.String(), "amount", amount.String(), "shares", shares.String())
	return shares, nil
}

func (n *Node) Withdraw(withdrawer crypto.Address, shares *big.Int) (*big.Int, error) {
	var amount *big.Int
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		e := n.build(ctx, db)
		paid, err := e.vault.Withdraw(withdrawer, shares, ctx.Timestamp)
		amount = paid
		return err
	})
	n.metrics.ObserveVaultOp("withdraw", err)
	if err != nil {
		return nil, err
	}
	n.updateVaultGauges()
	n.log.Info("vault withdraw", "withdrawer", withdrawer.String(), "shares", shares.String(), "amount", amount.String())
	return amount, nil
}

func (n *Node) Borrow(borrower crypto.Address, amount *big.Int) (uint64, error) {
	var id uint64
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		e := n.build(ctx, db)
		created, err := e.vault.Borrow(borrower, amount, ctx.Timestamp)
		id = created
		return err
	})
	n.metrics.ObserveVaultOp("borrow", err)
	if err != nil {
		return 0, err
	}
	n.updateVaultGauges()
	n.log.Info("vault borrow", "borrower", borrower.String(), "amount", amount.String(), "position", id)
	return id, nil
}

func (n *Node) Repay(payer crypto.Address, positionID uint64, amount *big.Int) error {
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		e := n.build(ctx, db)
		return e.vault.Repay(payer, positionID, assets.NewAsset(n.genesis.BaseAsset, amount), payer, ctx.Timestamp)
	})
	n.metrics.ObserveVaultOp("repay", err)
	if err != nil {
		return err
	}
	n.updateVaultGauges()
	n.log.Info("vault repay", "payer", payer.String(), "position", positionID, "amount", amount.String())
	return nil
}

// Accrue folds the interest earned since the last update into the vault's
// debt without waiting for a deposit or borrow to trigger it.
func (n *Node) Accrue() error {
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		return n.build(ctx, db).vault.Accrue(ctx.Timestamp)
	})
	n.metrics.ObserveVaultOp("accrue", err)
	if err != nil {
		return err
	}
	n.updateVaultGauges()
	n.log.Info("vault accrue")
	return nil
}

func (n *Node) AddToWhitelist(caller, borrower crypto.Address) error {
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		return n.build(ctx, db).vault.AddToWhitelist(caller, borrower)
	})
	n.metrics.ObserveVaultOp("whitelist_add", err)
	if err != nil {
		return err
	}
	n.log.Info("whitelist add", "caller", caller.String(), "borrower", borrower.String())
	return nil
}

// SetModulePaused halts or resumes a native module. Vault admin only; the
// flag persists so a restart does not silently resume a halted module.
func (n *Node) SetModulePaused(caller crypto.Address, module string, paused bool) error {
	if module != vault.ModuleName && module != farm.ModuleName {
		return fmt.Errorf("core: unknown module %q", module)
	}
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		e := n.build(ctx, db)
		v, err := e.vault.GetVault()
		if err != nil {
			return err
		}
		if !caller.Equal(v.Admin) {
			return vault.ErrUnauthorized
		}
		return e.manager.SetModulePaused(module, paused)
	})
	if err != nil {
		return err
	}
	n.log.Info("module pause updated", "module", module, "paused", paused, "caller", caller.String())
	return nil
}

// --- Token operations ---

// IncreaseTokenAllowance lets owner authorize spender to pull up to amount of
// a token. Pool legs of token kind need this before the pair can move them.
func (n *Node) IncreaseTokenAllowance(owner crypto.Address, symbol string, spender crypto.Address, amount *big.Int) error {
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		return n.build(ctx, db).tokens.IncreaseAllowance(symbol, owner, spender, amount)
	})
	if err != nil {
		return err
	}
	n.log.Info("allowance increased", "owner", owner.String(), "symbol", symbol,
		"spender", spender.String(), "amount", amount.String())
	return nil
}

// --- Farm operations ---

func (n *Node) OpenPosition(owner crypto.Address, depositAmount, borrowAmount *big.Int) (string, error) {
	var workflowID string
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		e := n.build(ctx, db)
		id, err := e.farm.Open(ctx, owner, depositAmount, borrowAmount,
			assets.NewAsset(n.genesis.BaseAsset, depositAmount))
		workflowID = id
		return err
	})
	n.metrics.ObserveFarmOp("open", err)
	if err != nil {
		return "", err
	}
	n.updateVaultGauges()
	n.log.Info("farm open", "owner", owner.String(), "workflow", workflowID,
		"deposit", depositAmount.String(), "borrow", borrowAmount.String())
	return workflowID, nil
}

func (n *Node) ClosePosition(caller crypto.Address, positionID uint64) error {
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		return n.build(ctx, db).farm.Close(ctx, caller, positionID)
	})
	n.metrics.ObserveFarmOp("close", err)
	if err != nil {
		return err
	}
	n.updateVaultGauges()
	n.log.Info("farm close", "caller", caller.String(), "position", positionID)
	return nil
}

// --- Venue operations ---

func (n *Node) ProvideLiquidity(provider crypto.Address, a, b assets.Asset) (*big.Int, error) {
	var minted *big.Int
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		e := n.build(ctx, db)
		share, event, err := e.venue.ProvideLiquidity(provider, a, b)
		if err != nil {
			return err
		}
		ctx.Emit(event)
		minted = share
		return nil
	})
	if err != nil {
		return nil, err
	}
	n.log.Info("liquidity provided", "provider", provider.String(), "share", minted.String())
	return minted, nil
}

func (n *Node) Swap(trader crypto.Address, offer assets.Asset, ask assets.Info) (*big.Int, error) {
	var out *big.Int
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		e := n.build(ctx, db)
		returned, event, err := e.venue.Swap(trader, offer, ask)
		if err != nil {
			return err
		}
		ctx.Emit(event)
		out = returned
		return nil
	})
	if err != nil {
		return nil, err
	}
	n.log.Info("swap", "trader", trader.String(),
		"offer", offer.Info.ID(), "amount", offer.Amount.String(), "return", out.String())
	return out, nil
}

// --- Escrow operations ---

func (n *Node) CreatePaymentRequest(merchant crypto.Address, asset assets.Info, amount *big.Int, orderID string) (uint64, error) {
	var id uint64
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		e := n.build(ctx, db)
		created, err := e.escrow.CreatePaymentRequest(merchant, asset, amount, orderID)
		id = created
		return err
	})
	if err != nil {
		return 0, err
	}
	n.log.Info("payment request created", "merchant", merchant.String(), "id", id, "order", orderID)
	return id, nil
}

func (n *Node) PayPaymentRequest(payer crypto.Address, id uint64, sent assets.Asset) error {
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		return n.build(ctx, db).escrow.Pay(payer, id, sent)
	})
	if err != nil {
		return err
	}
	n.log.Info("payment request paid", "payer", payer.String(), "id", id)
	return nil
}

func (n *Node) SettlePaymentRequest(caller crypto.Address, id uint64) error {
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		return n.build(ctx, db).escrow.Settle(caller, id)
	})
	if err != nil {
		return err
	}
	n.log.Info("payment request settled", "caller", caller.String(), "id", id)
	return nil
}

// --- Game operations ---

func (n *Node) StartGame(hostAddr, opponent crypto.Address, move game.Move) error {
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		return n.build(ctx, db).game.StartGame(hostAddr, opponent, move)
	})
	return err
}

func (n *Node) PlayOpponentMove(opponent, hostAddr crypto.Address, move game.Move) (game.Outcome, error) {
	var outcome game.Outcome
	err := n.transact(func(ctx *host.Context, db storage.Database) error {
		result, err := n.build(ctx, db).game.OpponentMove(opponent, hostAddr, move)
		outcome = result
		return err
	})
	return outcome, err
}

// --- Queries (no overlay, read the committed rows) ---

func (n *Node) VaultStatus() (*vault.Vault, *big.Int, error) {
	e := n.build(nil, n.db)
	v, err := e.vault.GetVault()
	if err != nil || v == nil {
		return nil, nil, err
	}
	balance, err := e.vault.TotalBalance()
	if err != nil {
		return nil, nil, err
	}
	return v, balance, nil
}

func (n *Node) BorrowPosition(id uint64) (*vault.BorrowPosition, error) {
	return n.build(nil, n.db).vault.GetPosition(id)
}

func (n *Node) FarmInfo() (*farm.Farm, error) {
	return n.build(nil, n.db).farm.GetFarm()
}

func (n *Node) FarmPosition(id uint64) (*farm.Position, error) {
	return n.build(nil, n.db).farm.GetPosition(id)
}

func (n *Node) PaymentRequest(id uint64) (*escrow.PaymentRequest, error) {
	return n.build(nil, n.db).escrow.GetPaymentRequest(id)
}

func (n *Node) GamesByHost(hostAddr crypto.Address) ([]*game.Game, error) {
	return n.build(nil, n.db).game.ListGamesByHost(hostAddr)
}

func (n *Node) Balance(info assets.Info, addr crypto.Address) (*big.Int, error) {
	return n.build(nil, n.db).mover.Balance(info, addr)
}

func (n *Node) Pair(a, b assets.Info) (*amm.Pair, error) {
	return n.build(nil, n.db).venue.PairFor(a, b)
}

func (n *Node) updateVaultGauges() {
	v, balance, err := n.VaultStatus()
	if err != nil || v == nil {
		return
	}
	n.metrics.SetVaultFigures(bigFloat(v.TotalDebt), bigFloat(balance), bigFloat(v.ReservePool))
}

func bigFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
