package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"emberchain/native/fixedpoint"
)

// Emission holds the reward-engine tuning knobs. Zero values fall back to the
// engine defaults on Load.
type Emission struct {
	BaseRatePerHour          uint64 `toml:"BaseRatePerHour"`
	CooldownCeilingSeconds   uint64 `toml:"CooldownCeilingSeconds"`
	CooldownFloorSeconds     uint64 `toml:"CooldownFloorSeconds"`
	CooldownPerActiveSeconds uint64 `toml:"CooldownPerActiveSeconds"`
	ActivityWindowSeconds    uint64 `toml:"ActivityWindowSeconds"`
}

// Genesis seeds the token ledger with pre-funded balances. Amounts are whole
// tokens; the loader scales them to wei.
type Genesis struct {
	Allocations map[string]int64 `toml:"Allocations"`
}

type Config struct {
	ListenAddress string   `toml:"ListenAddress"`
	DataDir       string   `toml:"DataDir"`
	NetworkName   string   `toml:"NetworkName"`
	OwnerAddress  string   `toml:"OwnerAddress"`
	EngineAddress string   `toml:"EngineAddress"`
	LogEnv        string   `toml:"LogEnv"`
	LogFile       string   `toml:"LogFile"`
	LogFileMaxMB  int      `toml:"LogFileMaxMB"`
	Emission      Emission `toml:"Emission"`
	Genesis       Genesis  `toml:"Genesis"`
}

// Load loads the configuration from the given path, writing a default file on
// first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./ember-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "ember-local"
	}
	if strings.TrimSpace(cfg.LogEnv) == "" {
		cfg.LogEnv = "dev"
	}
	if cfg.LogFileMaxMB <= 0 {
		cfg.LogFileMaxMB = 128
	}
	em := &cfg.Emission
	if em.BaseRatePerHour == 0 {
		em.BaseRatePerHour = 1
	}
	if em.CooldownCeilingSeconds == 0 {
		em.CooldownCeilingSeconds = 900
	}
	if em.CooldownFloorSeconds == 0 {
		em.CooldownFloorSeconds = 60
	}
	if em.CooldownPerActiveSeconds == 0 {
		em.CooldownPerActiveSeconds = 12
	}
	if em.ActivityWindowSeconds == 0 {
		em.ActivityWindowSeconds = 24 * 60 * 60
	}
}

// Validate rejects configurations the service cannot start with.
func Validate(cfg *Config) error {
	if cfg.Emission.CooldownFloorSeconds > cfg.Emission.CooldownCeilingSeconds {
		return fmt.Errorf("config: cooldown floor %d exceeds ceiling %d",
			cfg.Emission.CooldownFloorSeconds, cfg.Emission.CooldownCeilingSeconds)
	}
	if cfg.OwnerAddress != "" {
		if _, err := ParseAddress(cfg.OwnerAddress); err != nil {
			return fmt.Errorf("config: OwnerAddress: %w", err)
		}
	}
	if cfg.EngineAddress != "" {
		if _, err := ParseAddress(cfg.EngineAddress); err != nil {
			return fmt.Errorf("config: EngineAddress: %w", err)
		}
	}
	for addr, amount := range cfg.Genesis.Allocations {
		if _, err := ParseAddress(addr); err != nil {
			return fmt.Errorf("config: genesis allocation %q: %w", addr, err)
		}
		if amount < 0 {
			return fmt.Errorf("config: genesis allocation %q is negative", addr)
		}
	}
	return nil
}

// ParseAddress decodes a 20-byte hex address, with or without the 0x prefix.
func ParseAddress(s string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("invalid hex address %q: %w", s, err)
	}
	if len(raw) != 20 {
		return out, fmt.Errorf("address %q must be 20 bytes, got %d", s, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// GenesisBalances scales the configured whole-token allocations to wei.
func (c *Config) GenesisBalances() (map[[20]byte]*big.Int, error) {
	out := make(map[[20]byte]*big.Int, len(c.Genesis.Allocations))
	for addr, amount := range c.Genesis.Allocations {
		parsed, err := ParseAddress(addr)
		if err != nil {
			return nil, err
		}
		out[parsed] = new(big.Int).Mul(big.NewInt(amount), fixedpoint.TokenScale())
	}
	return out, nil
}

// Owner returns the configured owner address, or the zero address when unset.
func (c *Config) Owner() ([20]byte, error) {
	if strings.TrimSpace(c.OwnerAddress) == "" {
		return [20]byte{}, nil
	}
	return ParseAddress(c.OwnerAddress)
}

// Engine returns the configured engine identity, or a fixed well-known module
// address when unset.
func (c *Config) Engine() ([20]byte, error) {
	if strings.TrimSpace(c.EngineAddress) == "" {
		var addr [20]byte
		copy(addr[:], []byte("emberchain/emission!"))
		return addr, nil
	}
	return ParseAddress(c.EngineAddress)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
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
