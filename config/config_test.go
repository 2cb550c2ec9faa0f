package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emberd.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8080" {
		t.Fatalf("default listen address: %q", cfg.ListenAddress)
	}
	if cfg.Emission.CooldownCeilingSeconds != 900 || cfg.Emission.CooldownFloorSeconds != 60 {
		t.Fatalf("default cooldown bounds: %+v", cfg.Emission)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}

	// A second load reads the persisted file back.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.ListenAddress != cfg.ListenAddress || again.Emission != cfg.Emission {
		t.Fatalf("reloaded config differs: %+v vs %+v", again, cfg)
	}
}

func TestLoadParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emberd.toml")
	body := `
ListenAddress = ":9000"
OwnerAddress = "0x00000000000000000000000000000000000000aa"

[Emission]
BaseRatePerHour = 2
CooldownCeilingSeconds = 600

[Genesis]
[Genesis.Allocations]
"0x00000000000000000000000000000000000000bb" = 500
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9000" || cfg.Emission.BaseRatePerHour != 2 {
		t.Fatalf("parsed values: %+v", cfg)
	}
	// Unset fields still receive defaults.
	if cfg.Emission.CooldownFloorSeconds != 60 || cfg.DataDir != "./ember-data" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}

	owner, err := cfg.Owner()
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if owner[19] != 0xAA {
		t.Fatalf("owner address: %x", owner)
	}

	balances, err := cfg.GenesisBalances()
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	var holder [20]byte
	holder[19] = 0xBB
	want := new(big.Int).Mul(big.NewInt(500), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	if got := balances[holder]; got == nil || got.Cmp(want) != 0 {
		t.Fatalf("genesis balance: %v", got)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"inverted cooldown": `
[Emission]
CooldownCeilingSeconds = 50
CooldownFloorSeconds = 60
`,
		"short address": `OwnerAddress = "0x1234"`,
		"bad genesis addr": `
[Genesis]
[Genesis.Allocations]
"not-hex" = 10
`,
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "emberd.toml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("%s: write: %v", name, err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected load failure", name)
		}
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("00000000000000000000000000000000000000ff")
	if err != nil {
		t.Fatalf("no-prefix parse: %v", err)
	}
	if addr[19] != 0xFF {
		t.Fatalf("parsed bytes: %x", addr)
	}
	if _, err := ParseAddress("0xzz"); err == nil {
		t.Fatalf("expected hex error")
	}
}
