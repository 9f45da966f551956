package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRequiresRedisAndAdmin(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("ADMIN_ADDRESS", "")
	if _, err := Load(); err == nil { t.Fatalf("expected error without REDIS_URL") }

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	if _, err := Load(); err == nil { t.Fatalf("expected error without ADMIN_ADDRESS") }

	t.Setenv("ADMIN_ADDRESS", "admin")
	cfg, err := Load()
	if err != nil { t.Fatalf("Load: %v", err) }
	if cfg.ListenAddr == "" || cfg.OracleAddress == "" { t.Fatalf("defaults missing: %+v", cfg) }
}

func TestLoadSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	doc := `operators:
  - "0x0pe4a"
accounts:
  - address: "0xa11ce"
    balance: 1000
  - address: "0xb0b"
    balance: 500
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil { t.Fatalf("write seed: %v", err) }

	cfg := &AppConfig{SeedFile: path}
	seed, err := cfg.LoadSeed()
	if err != nil { t.Fatalf("LoadSeed: %v", err) }
	if len(seed.Operators) != 1 || seed.Operators[0] != "0x0pe4a" { t.Fatalf("operators: %+v", seed.Operators) }
	if len(seed.Accounts) != 2 || seed.Accounts[0].Balance != 1000 { t.Fatalf("accounts: %+v", seed.Accounts) }
}

func TestLoadSeedRejectsBadAccounts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	doc := `accounts:
  - address: ""
    balance: 10
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil { t.Fatalf("write seed: %v", err) }

	cfg := &AppConfig{SeedFile: path}
	if _, err := cfg.LoadSeed(); err == nil { t.Fatalf("expected error for empty address") }
}

func TestLoadSeedAbsent(t *testing.T) {
	cfg := &AppConfig{}
	seed, err := cfg.LoadSeed()
	if err != nil || seed != nil { t.Fatalf("no seed file should be a quiet no-op, got %v %v", seed, err) }
}
