// Package oracle gatekeeps which identities may assert the outcome of an
// external game. Membership policy lives here; custody and settlement stay
// in the escrow ledger.
package oracle

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/lichess-wager-go/internal/escrow"
	"github.com/kapu/lichess-wager-go/internal/obslog"
)

const keyOperators = "orc:operators"

// Oracle holds the trusted operator set and forwards valid result
// submissions to the ledger under its own identity. The admin identity is
// fixed at construction.
type Oracle struct {
	rdb    *redis.Client
	ledger *escrow.Ledger
	admin  string
	id     string
}

func New(rdb *redis.Client, ledger *escrow.Ledger, admin, identity string) *Oracle {
	return &Oracle{rdb: rdb, ledger: ledger, admin: strings.TrimSpace(admin), id: strings.TrimSpace(identity)}
}

// Identity is the caller name the oracle uses against the ledger.
func (o *Oracle) Identity() string { return o.id }

// AddOperator grants result-submission rights. Admin only; adding an
// existing operator is a no-op success.
func (o *Oracle) AddOperator(ctx context.Context, caller, addr string) error {
	if strings.TrimSpace(caller) != o.admin {
		return escrow.ErrUnauthorized
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return escrow.ErrUnauthorized
	}
	if err := o.rdb.SAdd(ctx, keyOperators, addr).Err(); err != nil {
		return err
	}
	obslog.L().Info("operator_add", zap.String("operator", addr))
	return nil
}

// RemoveOperator revokes result-submission rights. Admin only; idempotent.
func (o *Oracle) RemoveOperator(ctx context.Context, caller, addr string) error {
	if strings.TrimSpace(caller) != o.admin {
		return escrow.ErrUnauthorized
	}
	if err := o.rdb.SRem(ctx, keyOperators, strings.TrimSpace(addr)).Err(); err != nil {
		return err
	}
	obslog.L().Info("operator_remove", zap.String("operator", strings.TrimSpace(addr)))
	return nil
}

// IsOperator reports current membership.
func (o *Oracle) IsOperator(ctx context.Context, addr string) (bool, error) {
	return o.rdb.SIsMember(ctx, keyOperators, strings.TrimSpace(addr)).Result()
}

// SubmitResult forwards an operator's result assertion to the ledger. The
// oracle validates only who is calling and that the result value is
// settleable; game existence and state are the ledger's invariants, and its
// failures propagate unchanged.
func (o *Oracle) SubmitResult(ctx context.Context, caller, gameID string, result escrow.Result) (*escrow.Game, error) {
	ok, err := o.IsOperator(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, escrow.ErrUnauthorized
	}
	if !result.Settleable() {
		return nil, escrow.ErrInvalidResult
	}
	g, err := o.ledger.ResolveGame(ctx, o.id, gameID, result)
	if err != nil {
		return nil, err
	}
	obslog.L().Info("result_submit",
		zap.String("game_id", gameID),
		zap.String("operator", strings.TrimSpace(caller)),
		zap.String("result", string(result)),
	)
	return g, nil
}
