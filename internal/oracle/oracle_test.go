package oracle

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kapu/lichess-wager-go/internal/escrow"
)

const (
	admin    = "admin"
	operator = "0x0pe4a"
	alice    = "0xa11ce"
	bob      = "0xb0b"
	wager    = int64(100)
)

func newTestOracle(t *testing.T) (*Oracle, *escrow.Ledger) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil { t.Fatalf("miniredis: %v", err) }
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ledger := escrow.NewLedgerWithClient(rdb, admin)
	orc := New(rdb, ledger, admin, "oracle")
	if err := ledger.UpdateOracle(admin, orc.Identity()); err != nil { t.Fatalf("UpdateOracle: %v", err) }

	ctx := context.Background()
	if err := orc.AddOperator(ctx, admin, operator); err != nil { t.Fatalf("AddOperator: %v", err) }
	for _, addr := range []string{alice, bob} {
		if _, err := ledger.Vault().Deposit(ctx, addr, 10*wager); err != nil { t.Fatalf("Deposit: %v", err) }
	}
	return orc, ledger
}

func joinedGame(t *testing.T, ledger *escrow.Ledger) *escrow.Game {
	t.Helper()
	ctx := context.Background()
	g, err := ledger.CreateGame(ctx, alice, "abcd1234", wager)
	if err != nil { t.Fatalf("CreateGame: %v", err) }
	if _, err := ledger.JoinGame(ctx, bob, g.ID, wager); err != nil { t.Fatalf("JoinGame: %v", err) }
	return g
}

func TestOperatorMembership(t *testing.T) {
	orc, _ := newTestOracle(t)
	ctx := context.Background()

	ok, err := orc.IsOperator(ctx, operator)
	if err != nil || !ok { t.Fatalf("expected membership, got ok=%v err=%v", ok, err) }

	// Adding twice is a no-op success.
	if err := orc.AddOperator(ctx, admin, operator); err != nil { t.Fatalf("repeat AddOperator: %v", err) }

	if err := orc.RemoveOperator(ctx, admin, operator); err != nil { t.Fatalf("RemoveOperator: %v", err) }
	ok, err = orc.IsOperator(ctx, operator)
	if err != nil || ok { t.Fatalf("expected removal, got ok=%v err=%v", ok, err) }

	// Removing a non-member is also a no-op success.
	if err := orc.RemoveOperator(ctx, admin, operator); err != nil { t.Fatalf("repeat RemoveOperator: %v", err) }
}

func TestOperatorMutationAdminOnly(t *testing.T) {
	orc, _ := newTestOracle(t)
	ctx := context.Background()

	if err := orc.AddOperator(ctx, alice, bob); !errors.Is(err, escrow.ErrUnauthorized) {
		t.Fatalf("non-admin add: want ErrUnauthorized, got %v", err)
	}
	if err := orc.RemoveOperator(ctx, alice, operator); !errors.Is(err, escrow.ErrUnauthorized) {
		t.Fatalf("non-admin remove: want ErrUnauthorized, got %v", err)
	}
	ok, _ := orc.IsOperator(ctx, operator)
	if !ok { t.Fatalf("membership should be untouched by rejected mutations") }
}

func TestSubmitResult(t *testing.T) {
	orc, ledger := newTestOracle(t)
	ctx := context.Background()
	g := joinedGame(t, ledger)

	settled, err := orc.SubmitResult(ctx, operator, g.ID, escrow.ResultPlayer1Wins)
	if err != nil { t.Fatalf("SubmitResult: %v", err) }
	if !settled.IsCompleted || settled.Result != escrow.ResultPlayer1Wins {
		t.Fatalf("expected settled PLAYER1_WINS, got %+v", settled)
	}

	bal, _ := ledger.Vault().Balance(ctx, alice)
	if bal != 11*wager { t.Fatalf("winner payout missing: %d", bal) }
}

func TestSubmitResultNonOperator(t *testing.T) {
	orc, ledger := newTestOracle(t)
	ctx := context.Background()
	g := joinedGame(t, ledger)

	if _, err := orc.SubmitResult(ctx, alice, g.ID, escrow.ResultPlayer1Wins); !errors.Is(err, escrow.ErrUnauthorized) {
		t.Fatalf("non-operator submit: want ErrUnauthorized, got %v", err)
	}
}

func TestSubmitResultAfterRemoval(t *testing.T) {
	orc, ledger := newTestOracle(t)
	ctx := context.Background()

	g1 := joinedGame(t, ledger)
	if _, err := orc.SubmitResult(ctx, operator, g1.ID, escrow.ResultDraw); err != nil {
		t.Fatalf("SubmitResult before removal: %v", err)
	}

	if err := orc.RemoveOperator(ctx, admin, operator); err != nil { t.Fatalf("RemoveOperator: %v", err) }
	g2 := joinedGame(t, ledger)
	if _, err := orc.SubmitResult(ctx, operator, g2.ID, escrow.ResultDraw); !errors.Is(err, escrow.ErrUnauthorized) {
		t.Fatalf("removed operator submit: want ErrUnauthorized, got %v", err)
	}
}

func TestSubmitResultPropagatesLedgerErrors(t *testing.T) {
	orc, ledger := newTestOracle(t)
	ctx := context.Background()

	if _, err := orc.SubmitResult(ctx, operator, "deadbeef", escrow.ResultDraw); !errors.Is(err, escrow.ErrNotFound) {
		t.Fatalf("unknown game: want ErrNotFound, got %v", err)
	}

	g, err := ledger.CreateGame(ctx, alice, "abcd1234", wager)
	if err != nil { t.Fatalf("CreateGame: %v", err) }
	if _, err := orc.SubmitResult(ctx, operator, g.ID, escrow.ResultDraw); !errors.Is(err, escrow.ErrNotJoined) {
		t.Fatalf("unjoined game: want ErrNotJoined, got %v", err)
	}

	if _, err := orc.SubmitResult(ctx, operator, g.ID, escrow.ResultPending); !errors.Is(err, escrow.ErrInvalidResult) {
		t.Fatalf("PENDING submission: want ErrInvalidResult, got %v", err)
	}
	if _, err := orc.SubmitResult(ctx, operator, g.ID, escrow.ResultCancelled); !errors.Is(err, escrow.ErrInvalidResult) {
		t.Fatalf("CANCELLED submission: want ErrInvalidResult, got %v", err)
	}

	joined := joinedGame(t, ledger)
	if _, err := orc.SubmitResult(ctx, operator, joined.ID, escrow.ResultDraw); err != nil { t.Fatalf("SubmitResult: %v", err) }
	if _, err := orc.SubmitResult(ctx, operator, joined.ID, escrow.ResultDraw); !errors.Is(err, escrow.ErrAlreadyCompleted) {
		t.Fatalf("repeat submit: want ErrAlreadyCompleted, got %v", err)
	}
}
