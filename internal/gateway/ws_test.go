package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kapu/lichess-wager-go/pkg/wagerdto"
)

func dialTestBridge(t *testing.T, b *Bridge) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(b.handleWS))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil { t.Fatalf("ws dial: %v", err) }
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func TestBridgeRequestResponse(t *testing.T) {
	s, _ := newTestServer(t)
	b := NewBridge(s, 5*time.Second)
	conn := dialTestBridge(t, b)
	ctx := context.Background()

	params, _ := json.Marshal(wagerdto.CreateGameRequest{Caller: alice, ExternalGameID: extID, Amount: wager})
	req := wsRequest{ID: "req-1", Method: "createGame", Params: params}
	if err := wsjson.Write(ctx, conn, req); err != nil { t.Fatalf("write: %v", err) }

	var resp wsResponse
	if err := wsjson.Read(ctx, conn, &resp); err != nil { t.Fatalf("read: %v", err) }
	if resp.ID != "req-1" { t.Fatalf("correlation id mismatch: %q", resp.ID) }
	if !resp.OK || resp.Error != nil { t.Fatalf("expected success, got %+v", resp) }
}

func TestBridgeTypedError(t *testing.T) {
	s, _ := newTestServer(t)
	b := NewBridge(s, 5*time.Second)
	conn := dialTestBridge(t, b)
	ctx := context.Background()

	params, _ := json.Marshal(map[string]string{"game_id": "unknown"})
	if err := wsjson.Write(ctx, conn, wsRequest{ID: "req-2", Method: "getGameDetails", Params: params}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp wsResponse
	if err := wsjson.Read(ctx, conn, &resp); err != nil { t.Fatalf("read: %v", err) }
	if resp.ID != "req-2" || resp.OK { t.Fatalf("expected correlated failure, got %+v", resp) }
	if resp.Error == nil || resp.Error.Code != wagerdto.CodeNotFound {
		t.Fatalf("expected NOT_FOUND error, got %+v", resp.Error)
	}
}

func TestBridgeAssignsMissingID(t *testing.T) {
	s, _ := newTestServer(t)
	b := NewBridge(s, 5*time.Second)
	conn := dialTestBridge(t, b)
	ctx := context.Background()

	params, _ := json.Marshal(map[string]string{"address": alice})
	if err := wsjson.Write(ctx, conn, wsRequest{Method: "balance", Params: params}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp wsResponse
	if err := wsjson.Read(ctx, conn, &resp); err != nil { t.Fatalf("read: %v", err) }
	if resp.ID == "" { t.Fatalf("server should assign a correlation id") }
	if !resp.OK { t.Fatalf("expected success, got %+v", resp) }
}
