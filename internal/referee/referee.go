// Package referee converts the recorded outcome of an external chess game
// into a settleable escrow result. It is operator-side tooling: the oracle
// still submits whatever result an operator asserts, and the ledger alone
// enforces game state.
package referee

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/kapu/lichess-wager-go/internal/escrow"
)

var ErrGameNotOver = fmt.Errorf("game has no decisive outcome yet")

// DeriveFromMoves replays a SAN move list from the start position and maps
// the outcome onto the wager parties. player1White says which escrow side
// held the white pieces in the external game.
func DeriveFromMoves(movesSAN []string, player1White bool) (escrow.Result, error) {
	game := nchess.NewGame()
	for i, mv := range movesSAN {
		mv = strings.TrimSpace(mv)
		if mv == "" {
			continue
		}
		if err := game.PushNotationMove(mv, nchess.AlgebraicNotation{}, nil); err != nil {
			return "", fmt.Errorf("move %d (%s): %w", i+1, mv, err)
		}
	}
	switch game.Outcome() {
	case nchess.WhiteWon:
		return sideResult(player1White), nil
	case nchess.BlackWon:
		return sideResult(!player1White), nil
	case nchess.Draw:
		return escrow.ResultDraw, nil
	default:
		return "", ErrGameNotOver
	}
}

// DeriveFromToken maps a PGN result token ("1-0", "0-1", "1/2-1/2") onto the
// wager parties. "*" and anything else is not settleable.
func DeriveFromToken(token string, player1White bool) (escrow.Result, error) {
	switch strings.TrimSpace(token) {
	case "1-0":
		return sideResult(player1White), nil
	case "0-1":
		return sideResult(!player1White), nil
	case "1/2-1/2":
		return escrow.ResultDraw, nil
	default:
		return "", ErrGameNotOver
	}
}

func sideResult(player1 bool) escrow.Result {
	if player1 {
		return escrow.ResultPlayer1Wins
	}
	return escrow.ResultPlayer2Wins
}
