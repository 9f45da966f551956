package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr   string
	WSListenAddr string

	RedisURL    string
	DatabaseURL string

	// AdminAddress owns the oracle operator set and the ledger itself.
	// Fixed at startup, not reassignable while the process runs.
	AdminAddress string

	// OracleAddress is the identity the result oracle uses when it calls
	// into the ledger. The ledger only accepts ResolveGame from it.
	OracleAddress string

	// SeedFile optionally points at a YAML file declaring initial operators
	// and funded accounts (dev/test bootstrap).
	SeedFile string

	RequestTimeout time.Duration
}

// Seed is the optional YAML bootstrap document.
type Seed struct {
	Operators []string      `yaml:"operators"`
	Accounts  []SeedAccount `yaml:"accounts"`
}

type SeedAccount struct {
	Address string `yaml:"address"`
	Balance int64  `yaml:"balance"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:     ":8380",
		WSListenAddr:   ":8381",
		OracleAddress:  "oracle",
		RequestTimeout: 10 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_LISTEN_ADDR")); v != "" {
		cfg.WSListenAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.AdminAddress = strings.TrimSpace(os.Getenv("ADMIN_ADDRESS"))
	cfg.SeedFile = strings.TrimSpace(os.Getenv("SEED_FILE"))

	if v := strings.TrimSpace(os.Getenv("ORACLE_ADDRESS")); v != "" {
		cfg.OracleAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeout = time.Duration(n) * time.Second
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.AdminAddress == "" {
		return nil, errors.New("ADMIN_ADDRESS is required")
	}

	return cfg, nil
}

// LoadSeed parses the bootstrap YAML file, if configured.
func (c *AppConfig) LoadSeed() (*Seed, error) {
	if strings.TrimSpace(c.SeedFile) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(c.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, acct := range s.Accounts {
		if strings.TrimSpace(acct.Address) == "" {
			return nil, fmt.Errorf("seed account %d: empty address", i)
		}
		if acct.Balance < 0 {
			return nil, fmt.Errorf("seed account %q: negative balance", acct.Address)
		}
	}
	return &s, nil
}
