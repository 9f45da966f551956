package gateway

import (
	"encoding/json"
	"errors"

	"github.com/kapu/lichess-wager-go/internal/escrow"
	"github.com/kapu/lichess-wager-go/pkg/wagerdto"
)

// wsRequest is one correlated request on the websocket bridge. Clients pick
// the id; the server echoes it back on the matching response.
type wsRequest struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type wsResponse struct {
	ID     string             `json:"id"`
	OK     bool               `json:"ok"`
	Result any                `json:"result,omitempty"`
	Error  *wagerdto.APIError `json:"error,omitempty"`
}

// codeFor maps ledger/oracle sentinels onto wire error codes.
func codeFor(err error) string {
	switch {
	case errors.Is(err, escrow.ErrInvalidAmount):
		return wagerdto.CodeInvalidAmount
	case errors.Is(err, escrow.ErrAmountMismatch):
		return wagerdto.CodeAmountMismatch
	case errors.Is(err, escrow.ErrSelfJoin):
		return wagerdto.CodeSelfJoin
	case errors.Is(err, escrow.ErrAlreadyJoined):
		return wagerdto.CodeAlreadyJoined
	case errors.Is(err, escrow.ErrNotGameOwner):
		return wagerdto.CodeNotGameOwner
	case errors.Is(err, escrow.ErrAlreadyCompleted):
		return wagerdto.CodeAlreadyCompleted
	case errors.Is(err, escrow.ErrNotFound):
		return wagerdto.CodeNotFound
	case errors.Is(err, escrow.ErrNotJoined):
		return wagerdto.CodeNotJoined
	case errors.Is(err, escrow.ErrUnauthorized):
		return wagerdto.CodeUnauthorized
	case errors.Is(err, escrow.ErrInvalidResult):
		return wagerdto.CodeInvalidResult
	case errors.Is(err, escrow.ErrInsufficientFunds):
		return wagerdto.CodeInsufficientFunds
	case errors.Is(err, errBadRequest):
		return wagerdto.CodeBadRequest
	default:
		return wagerdto.CodeInternal
	}
}

func apiError(err error) *wagerdto.APIError {
	return &wagerdto.APIError{Code: codeFor(err), Message: err.Error()}
}

func toDetails(g *escrow.Game) *wagerdto.GameDetails {
	if g == nil {
		return nil
	}
	return &wagerdto.GameDetails{
		ID:             g.ID,
		Player1:        g.Player1,
		Player2:        g.Player2,
		WagerAmount:    g.WagerAmount,
		ExternalGameID: g.ExternalGameID,
		IsCompleted:    g.IsCompleted,
		Result:         string(g.Result),
		CreatedAt:      g.CreatedAt,
		UpdatedAt:      g.UpdatedAt,
	}
}
