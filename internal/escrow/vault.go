package escrow

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Vault tracks account balances and per-game custodial balances. The ledger
// is the only writer of custody keys; account credits happen either through
// Deposit or through a ledger payout.
type Vault struct {
	rdb *redis.Client
}

func NewVault(rdb *redis.Client) *Vault { return &Vault{rdb: rdb} }

func keyAccount(addr string) string { return "esc:acct:" + strings.TrimSpace(addr) }
func keyCustody(gameID string) string { return "esc:custody:" + strings.TrimSpace(gameID) }

// Deposit credits an account. Used by the faucet/bootstrap path; the escrow
// operations themselves only move funds between accounts and custody.
func (v *Vault) Deposit(ctx context.Context, addr string, amount int64) (int64, error) {
	if strings.TrimSpace(addr) == "" || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return v.rdb.IncrBy(ctx, keyAccount(addr), amount).Result()
}

// Balance returns the free (non-escrowed) balance of an account. Unknown
// accounts read as zero.
func (v *Vault) Balance(ctx context.Context, addr string) (int64, error) {
	return readInt(ctx, v.rdb, keyAccount(addr))
}

// Custody returns the amount currently held in escrow for a game. Zero for
// unknown or completed games.
func (v *Vault) Custody(ctx context.Context, gameID string) (int64, error) {
	return readInt(ctx, v.rdb, keyCustody(gameID))
}

// readInt works against both the plain client and a WATCH transaction.
func readInt(ctx context.Context, c redis.Cmdable, key string) (int64, error) {
	raw, err := c.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}
