package escrow

import "time"

// Result is the terminal outcome of a wagered game.
type Result string

const (
	ResultPending     Result = "PENDING"
	ResultPlayer1Wins Result = "PLAYER1_WINS"
	ResultPlayer2Wins Result = "PLAYER2_WINS"
	ResultDraw        Result = "DRAW"
	ResultCancelled   Result = "CANCELLED"
)

// Settleable reports whether r may be submitted through the oracle.
// PENDING and CANCELLED are not valid settlement inputs.
func (r Result) Settleable() bool {
	switch r {
	case ResultPlayer1Wins, ResultPlayer2Wins, ResultDraw:
		return true
	}
	return false
}

// Game is the persisted escrow record for one wagered match. Records are
// never deleted; a completed game stays queryable with its terminal result.
type Game struct {
	ID             string    `json:"id"`
	Player1        string    `json:"player1"`
	Player2        string    `json:"player2,omitempty"`
	WagerAmount    int64     `json:"wager_amount"`
	ExternalGameID string    `json:"external_game_id"`
	IsCompleted    bool      `json:"is_completed"`
	Result         Result    `json:"result"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Joined reports whether both sides have committed funds.
func (g *Game) Joined() bool { return g.Player2 != "" }

// Errors. Every rejected precondition has its own sentinel so callers can
// branch with errors.Is.
var (
	ErrInvalidAmount     = errf("deposit amount must be positive")
	ErrAmountMismatch    = errf("deposit must match the wager amount")
	ErrSelfJoin          = errf("cannot join your own game")
	ErrAlreadyJoined     = errf("game already has a second player")
	ErrNotGameOwner      = errf("only the game creator can cancel")
	ErrAlreadyCompleted  = errf("game already completed")
	ErrNotFound          = errf("game not found")
	ErrNotJoined         = errf("game does not have two players yet")
	ErrUnauthorized      = errf("caller is not authorized")
	ErrInvalidResult     = errf("result is not settleable")
	ErrInsufficientFunds = errf("account balance too low for deposit")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
