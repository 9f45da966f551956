package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/lichess-wager-go/internal/escrow"
	"github.com/kapu/lichess-wager-go/internal/obslog"
	"github.com/kapu/lichess-wager-go/internal/oracle"
	"github.com/kapu/lichess-wager-go/internal/referee"
	"github.com/kapu/lichess-wager-go/pkg/wagerdto"
)

var errBadRequest = fmt.Errorf("bad request")

// Lichess game references are 8 alphanumeric characters.
var externalIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{8}$`)

// Server is the HTTP face of the escrow service, consumed by the browser
// extension. It owns no state of its own; every call lands on the ledger or
// the oracle.
type Server struct {
	ledger *escrow.Ledger
	oracle *oracle.Oracle
	admin  string
	srv    *fasthttp.Server
}

func NewServer(ledger *escrow.Ledger, orc *oracle.Oracle, admin string) *Server {
	s := &Server{ledger: ledger, oracle: orc, admin: strings.TrimSpace(admin)}
	s.srv = &fasthttp.Server{Handler: s.Handler(), Name: "wager-gateway"}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	obslog.L().Info("gateway_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown() error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.Shutdown()
}

// dispatch executes one named operation with JSON params. Shared between the
// HTTP POST routes and the websocket bridge so both surfaces behave
// identically.
func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "createGame":
		var req wagerdto.CreateGameRequest
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		if !externalIDPattern.MatchString(strings.TrimSpace(req.ExternalGameID)) {
			return nil, fmt.Errorf("%w: external_game_id must be 8 alphanumeric characters", errBadRequest)
		}
		g, err := s.ledger.CreateGame(ctx, req.Caller, req.ExternalGameID, req.Amount)
		if err != nil {
			return nil, err
		}
		return toDetails(g), nil

	case "joinGame":
		var req wagerdto.JoinGameRequest
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		g, err := s.ledger.JoinGame(ctx, req.Caller, req.GameID, req.Amount)
		if err != nil {
			return nil, err
		}
		return toDetails(g), nil

	case "cancelGame":
		var req wagerdto.CancelGameRequest
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		g, err := s.ledger.CancelGame(ctx, req.Caller, req.GameID)
		if err != nil {
			return nil, err
		}
		return toDetails(g), nil

	case "getGameDetails":
		var req struct {
			GameID string `json:"game_id"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		g, err := s.ledger.GetGameDetails(ctx, req.GameID)
		if err != nil {
			return nil, err
		}
		return toDetails(g), nil

	case "submitResult":
		var req wagerdto.SubmitResultRequest
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		g, err := s.oracle.SubmitResult(ctx, req.Caller, req.GameID, escrow.Result(strings.ToUpper(strings.TrimSpace(req.Result))))
		if err != nil {
			return nil, err
		}
		return toDetails(g), nil

	case "submitMoves":
		// Operator convenience: derive the settleable result from the
		// recorded move list, then settle through the oracle.
		var req wagerdto.SubmitMovesRequest
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		result, err := referee.DeriveFromMoves(req.Moves, req.Player1White)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		g, err := s.oracle.SubmitResult(ctx, req.Caller, req.GameID, result)
		if err != nil {
			return nil, err
		}
		return toDetails(g), nil

	case "submitToken":
		var req wagerdto.SubmitTokenRequest
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		result, err := referee.DeriveFromToken(req.Token, req.Player1White)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		g, err := s.oracle.SubmitResult(ctx, req.Caller, req.GameID, result)
		if err != nil {
			return nil, err
		}
		return toDetails(g), nil

	case "addOperator":
		var req wagerdto.OperatorRequest
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		if err := s.oracle.AddOperator(ctx, req.Caller, req.Address); err != nil {
			return nil, err
		}
		return wagerdto.OperatorResponse{Address: req.Address, Operator: true}, nil

	case "removeOperator":
		var req wagerdto.OperatorRequest
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		if err := s.oracle.RemoveOperator(ctx, req.Caller, req.Address); err != nil {
			return nil, err
		}
		return wagerdto.OperatorResponse{Address: req.Address, Operator: false}, nil

	case "isOperator":
		var req wagerdto.OperatorRequest
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		ok, err := s.oracle.IsOperator(ctx, req.Address)
		if err != nil {
			return nil, err
		}
		return wagerdto.OperatorResponse{Address: req.Address, Operator: ok}, nil

	case "deposit":
		var req wagerdto.DepositRequest
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		if strings.TrimSpace(req.Caller) != s.admin {
			return nil, escrow.ErrUnauthorized
		}
		bal, err := s.ledger.Vault().Deposit(ctx, req.Address, req.Amount)
		if err != nil {
			return nil, err
		}
		return wagerdto.BalanceResponse{Address: req.Address, Balance: bal}, nil

	case "balance":
		var req struct {
			Address string `json:"address"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		bal, err := s.ledger.Vault().Balance(ctx, req.Address)
		if err != nil {
			return nil, err
		}
		return wagerdto.BalanceResponse{Address: req.Address, Balance: bal}, nil

	default:
		return nil, fmt.Errorf("%w: unknown method %q", errBadRequest, method)
	}
}

func decode(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing params", errBadRequest)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// Handler routes the REST surface. POST routes reuse dispatch; reads take
// query parameters.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case path == "/healthz" && method == fasthttp.MethodGet:
			writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})

		case path == "/games" && method == fasthttp.MethodPost:
			s.post(ctx, "createGame")
		case path == "/games/join" && method == fasthttp.MethodPost:
			s.post(ctx, "joinGame")
		case path == "/games/cancel" && method == fasthttp.MethodPost:
			s.post(ctx, "cancelGame")
		case path == "/games" && method == fasthttp.MethodGet:
			s.getGame(ctx)

		case path == "/results" && method == fasthttp.MethodPost:
			s.post(ctx, "submitResult")
		case path == "/results/moves" && method == fasthttp.MethodPost:
			s.post(ctx, "submitMoves")
		case path == "/results/token" && method == fasthttp.MethodPost:
			s.post(ctx, "submitToken")

		case path == "/operators/add" && method == fasthttp.MethodPost:
			s.post(ctx, "addOperator")
		case path == "/operators/remove" && method == fasthttp.MethodPost:
			s.post(ctx, "removeOperator")
		case path == "/operators" && method == fasthttp.MethodGet:
			s.getOperator(ctx)

		case path == "/accounts/deposit" && method == fasthttp.MethodPost:
			s.post(ctx, "deposit")
		case path == "/accounts/balance" && method == fasthttp.MethodGet:
			s.getBalance(ctx)

		default:
			writeError(ctx, fasthttp.StatusNotFound, &wagerdto.APIError{Code: wagerdto.CodeNotFound, Message: "no such route"})
		}
	}
}

func (s *Server) post(ctx *fasthttp.RequestCtx, method string) {
	res, err := s.dispatch(ctx, method, json.RawMessage(ctx.PostBody()))
	if err != nil {
		writeError(ctx, statusFor(err), apiError(err))
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, res)
}

func (s *Server) getGame(ctx *fasthttp.RequestCtx) {
	if player := string(ctx.QueryArgs().Peek("player")); player != "" {
		games, err := s.ledger.GamesByPlayer(ctx, player)
		if err != nil {
			writeError(ctx, statusFor(err), apiError(err))
			return
		}
		out := make([]*wagerdto.GameDetails, 0, len(games))
		for _, g := range games {
			out = append(out, toDetails(g))
		}
		writeJSON(ctx, fasthttp.StatusOK, out)
		return
	}
	id := string(ctx.QueryArgs().Peek("id"))
	g, err := s.ledger.GetGameDetails(ctx, id)
	if err != nil {
		writeError(ctx, statusFor(err), apiError(err))
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toDetails(g))
}

func (s *Server) getOperator(ctx *fasthttp.RequestCtx) {
	addr := string(ctx.QueryArgs().Peek("address"))
	ok, err := s.oracle.IsOperator(ctx, addr)
	if err != nil {
		writeError(ctx, statusFor(err), apiError(err))
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, wagerdto.OperatorResponse{Address: addr, Operator: ok})
}

func (s *Server) getBalance(ctx *fasthttp.RequestCtx) {
	addr := string(ctx.QueryArgs().Peek("address"))
	bal, err := s.ledger.Vault().Balance(ctx, addr)
	if err != nil {
		writeError(ctx, statusFor(err), apiError(err))
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, wagerdto.BalanceResponse{Address: addr, Balance: bal})
}

func statusFor(err error) int {
	switch codeFor(err) {
	case wagerdto.CodeNotFound:
		return fasthttp.StatusNotFound
	case wagerdto.CodeUnauthorized:
		return fasthttp.StatusForbidden
	case wagerdto.CodeInternal:
		return fasthttp.StatusInternalServerError
	default:
		return fasthttp.StatusBadRequest
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	payload, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetBody(payload)
}

func writeError(ctx *fasthttp.RequestCtx, status int, apiErr *wagerdto.APIError) {
	writeJSON(ctx, status, map[string]*wagerdto.APIError{"error": apiErr})
}
