package escrow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/lichess-wager-go/internal/obslog"
)

// EventChannel is the redis pub/sub channel carrying escrow lifecycle events.
const EventChannel = "esc:events"

type EventType string

const (
	EventGameCreated   EventType = "game_created"
	EventGameJoined    EventType = "game_joined"
	EventGameResolved  EventType = "game_resolved"
	EventGameCancelled EventType = "game_cancelled"
)

// Event is published as JSON once per successful state transition. Creation
// events carry player1, the wager amount, and the external game reference;
// join events carry player2; terminal events carry the result.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	GameID         string    `json:"game_id"`
	Player1        string    `json:"player1,omitempty"`
	Player2        string    `json:"player2,omitempty"`
	WagerAmount    int64     `json:"wager_amount,omitempty"`
	ExternalGameID string    `json:"external_game_id,omitempty"`
	Result         Result    `json:"result,omitempty"`
	At             time.Time `json:"at"`
}

// publish emits the event on the pub/sub channel and mirrors it to the log.
// Publish failures do not fail the originating operation; the state change
// has already committed.
func (l *Ledger) publish(ctx context.Context, ev Event) {
	ev.ID = uuid.NewString()
	ev.At = time.Now()
	raw, err := json.Marshal(ev)
	if err == nil {
		if perr := l.rdb.Publish(ctx, EventChannel, raw).Err(); perr != nil {
			obslog.L().Warn("event_publish_error", zap.String("type", string(ev.Type)), zap.String("game_id", ev.GameID), zap.Error(perr))
		}
	}
	obslog.L().Info(string(ev.Type),
		zap.String("game_id", ev.GameID),
		zap.String("player1", ev.Player1),
		zap.String("player2", ev.Player2),
		zap.Int64("wager_amount", ev.WagerAmount),
		zap.String("external_game_id", ev.ExternalGameID),
		zap.String("result", string(ev.Result)),
	)
}
