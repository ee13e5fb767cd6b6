package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"farmchain/config"
	"farmchain/core"
	"farmchain/crypto"
	"farmchain/native/assets"
	"farmchain/observability/logging"
	"farmchain/rpc"
	"farmchain/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("FARMD_ENV"))
	logger := logging.Setup("farmd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if env == "" {
		env = cfg.Environment
	}

	admin, err := cfg.AdminAddress()
	if err != nil {
		logger.Error("failed to derive admin address", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err), slog.String("dir", cfg.DataDir))
		os.Exit(1)
	}
	defer db.Close()

	genesis, err := genesisFromConfig(cfg, admin)
	if err != nil {
		logger.Error("invalid genesis configuration", slog.Any("error", err))
		os.Exit(1)
	}

	node, err := core.NewNode(db, genesis, logger)
	if err != nil {
		logger.Error("failed to build node", slog.Any("error", err))
		os.Exit(1)
	}

	initialized, err := node.Initialized()
	if err != nil {
		logger.Error("failed to inspect ledger", slog.Any("error", err))
		os.Exit(1)
	}
	if !initialized {
		if err := node.InitGenesis(); err != nil {
			logger.Error("genesis failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	server := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           rpc.NewServer(node, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("farmd listening",
		slog.String("rpc", cfg.RPCAddress),
		slog.String("network", cfg.NetworkName),
		slog.String("admin", admin.String()))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("rpc server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func genesisFromConfig(cfg *config.Config, admin crypto.Address) (core.GenesisConfig, error) {
	genesis := core.GenesisConfig{
		BaseAsset:          assets.NativeAsset(cfg.Genesis.BaseDenom),
		OtherAsset:         assets.NativeAsset(cfg.Genesis.OtherDenom),
		LPTokenSymbol:      cfg.Genesis.LPTokenSymbol,
		ClaimTokenSymbol:   cfg.Genesis.ClaimTokenSymbol,
		ClaimTokenDecimals: cfg.Genesis.ClaimTokenDecimals,
		ReservePoolBps:     cfg.Genesis.ReservePoolBps,
		Admin:              admin,
	}
	for _, grant := range cfg.Genesis.Faucet {
		addr, err := crypto.DecodeAddress(grant.Address)
		if err != nil {
			return core.GenesisConfig{}, fmt.Errorf("faucet address %q: %w", grant.Address, err)
		}
		if grant.Amount <= 0 {
			return core.GenesisConfig{}, fmt.Errorf("faucet grant for %s must be positive", grant.Address)
		}
		genesis.Faucet = append(genesis.Faucet, core.FaucetGrant{
			Denom:   grant.Denom,
			Address: addr,
			Amount:  big.NewInt(grant.Amount),
		})
	}
	return genesis, nil
}
