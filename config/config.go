// Package config loads the daemon's TOML configuration. A missing file is
// not an error: Load writes a default configuration, generates the admin
// key and points the config at it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"farmchain/crypto"
)

type Config struct {
	RPCAddress   string `toml:"RPCAddress"`
	DataDir      string `toml:"DataDir"`
	NetworkName  string `toml:"NetworkName"`
	Environment  string `toml:"Environment"`
	AdminKeyPath string `toml:"AdminKeyPath"`

	Genesis Genesis `toml:"genesis"`
}

// Genesis describes the ledger the daemon seeds on first start: the vault's
// underlying asset, the pool legs and the faucet grants that make the local
// network usable.
type Genesis struct {
	BaseDenom          string        `toml:"BaseDenom"`
	OtherDenom         string        `toml:"OtherDenom"`
	LPTokenSymbol      string        `toml:"LPTokenSymbol"`
	ClaimTokenSymbol   string        `toml:"ClaimTokenSymbol"`
	ClaimTokenDecimals uint8         `toml:"ClaimTokenDecimals"`
	ReservePoolBps     uint64        `toml:"ReservePoolBps"`
	Faucet             []FaucetGrant `toml:"Faucet"`
}

// FaucetGrant mints an initial balance to an account at genesis.
type FaucetGrant struct {
	Address string `toml:"Address"`
	Denom   string `toml:"Denom"`
	Amount  int64  `toml:"Amount"`
}

// Load reads the configuration at path, creating a default one when the
// file does not exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "lyf-local"
	}
	if strings.TrimSpace(cfg.AdminKeyPath) == "" {
		cfg.AdminKeyPath = defaultAdminKeyPath(path)
		if err := persist(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := ensureAdminKey(cfg.AdminKeyPath); err != nil {
		return nil, err
	}
	if err := cfg.Genesis.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AdminAddress derives the admin account from the configured key file.
func (c *Config) AdminAddress() (crypto.Address, error) {
	key, err := loadAdminKey(c.AdminKeyPath)
	if err != nil {
		return crypto.Address{}, err
	}
	return key.PubKey().Address(), nil
}

func (g Genesis) validate() error {
	if strings.TrimSpace(g.BaseDenom) == "" || strings.TrimSpace(g.OtherDenom) == "" {
		return fmt.Errorf("config: genesis needs both pool denominations")
	}
	if g.BaseDenom == g.OtherDenom {
		return fmt.Errorf("config: genesis pool legs must differ")
	}
	if strings.TrimSpace(g.LPTokenSymbol) == "" || strings.TrimSpace(g.ClaimTokenSymbol) == "" {
		return fmt.Errorf("config: genesis needs LP and claim token symbols")
	}
	if g.ReservePoolBps > 10_000 {
		return fmt.Errorf("config: ReservePoolBps %d exceeds 10000", g.ReservePoolBps)
	}
	return nil
}

// createDefault writes a runnable local configuration next to a freshly
// generated admin key.
func createDefault(path string) (*Config, error) {
	keyPath := defaultAdminKeyPath(path)
	if err := ensureAdminKey(keyPath); err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:   ":8080",
		DataDir:      "./farm-data",
		NetworkName:  "lyf-local",
		Environment:  "local",
		AdminKeyPath: keyPath,
		Genesis: Genesis{
			BaseDenom:          "uusd",
			OtherDenom:         "ukrw",
			LPTokenSymbol:      "UULP",
			ClaimTokenSymbol:   "VSHARE",
			ClaimTokenDecimals: 6,
			ReservePoolBps:     2_000,
		},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultAdminKeyPath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "admin.key")
}

func ensureAdminKey(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%x\n", key.Bytes())), 0o600)
}

func loadAdminKey(path string) (*crypto.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var keyBytes []byte
	if _, err := fmt.Sscanf(strings.TrimSpace(string(raw)), "%x", &keyBytes); err != nil {
		return nil, fmt.Errorf("config: malformed admin key file %s: %w", path, err)
	}
	return crypto.PrivateKeyFromBytes(keyBytes)
}
