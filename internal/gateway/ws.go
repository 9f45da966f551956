package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kapu/lichess-wager-go/internal/obslog"
	"github.com/kapu/lichess-wager-go/pkg/wagerdto"
)

// Bridge is the asynchronous request/response channel the extension uses:
// each frame carries a correlation id, each request resolves to a result or
// a typed error, and a slow operation times out instead of wedging the
// connection.
type Bridge struct {
	srv     *Server
	timeout time.Duration
	httpSrv *http.Server
}

func NewBridge(srv *Server, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Bridge{srv: srv, timeout: timeout}
}

func (b *Bridge) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWS)
	b.httpSrv = &http.Server{Addr: addr, Handler: mux}
	obslog.L().Info("bridge_listen", zap.String("addr", addr))
	err := b.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (b *Bridge) Shutdown(ctx context.Context) error {
	if b == nil || b.httpSrv == nil {
		return nil
	}
	return b.httpSrv.Shutdown(ctx)
}

func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("bridge_accept_error", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	ctx := r.Context()
	var writeMu sync.Mutex
	var wg sync.WaitGroup

	for {
		var req wsRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			break
		}
		if strings.TrimSpace(req.ID) == "" {
			req.ID = uuid.NewString()
		}
		// Requests run concurrently; responses correlate by id, so order
		// on the wire does not matter.
		wg.Add(1)
		go func(req wsRequest) {
			defer wg.Done()
			resp := b.execute(ctx, req)
			writeMu.Lock()
			defer writeMu.Unlock()
			wctx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()
			if err := wsjson.Write(wctx, conn, resp); err != nil {
				obslog.L().Warn("bridge_write_error", zap.String("request_id", req.ID), zap.Error(err))
			}
		}(req)
	}

	wg.Wait()
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

func (b *Bridge) execute(ctx context.Context, req wsRequest) wsResponse {
	rctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	res, err := b.srv.dispatch(rctx, req.Method, req.Params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &wagerdto.APIError{Code: wagerdto.CodeInternal, Message: "request timed out"}
		}
		obslog.L().Warn("bridge_request_error",
			zap.String("request_id", req.ID),
			zap.String("method", req.Method),
			zap.Error(err),
		)
		return wsResponse{ID: req.ID, OK: false, Error: apiError(err)}
	}
	return wsResponse{ID: req.ID, OK: true, Result: res}
}
