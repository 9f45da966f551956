package wagerdto

import "time"

// GameDetails is the read projection of a game record.
type GameDetails struct {
	ID             string    `json:"id"`
	Player1        string    `json:"player1"`
	Player2        string    `json:"player2,omitempty"`
	WagerAmount    int64     `json:"wager_amount"`
	ExternalGameID string    `json:"external_game_id"`
	IsCompleted    bool      `json:"is_completed"`
	Result         string    `json:"result"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreateGameRequest struct {
	Caller         string `json:"caller"`
	ExternalGameID string `json:"external_game_id"`
	Amount         int64  `json:"amount"`
}

type JoinGameRequest struct {
	Caller string `json:"caller"`
	GameID string `json:"game_id"`
	Amount int64  `json:"amount"`
}

type CancelGameRequest struct {
	Caller string `json:"caller"`
	GameID string `json:"game_id"`
}

type SubmitResultRequest struct {
	Caller string `json:"caller"`
	GameID string `json:"game_id"`
	Result string `json:"result"`
}

// SubmitMovesRequest settles a game from the recorded SAN move list of the
// external match. Player1White says which wager side held the white pieces.
type SubmitMovesRequest struct {
	Caller       string   `json:"caller"`
	GameID       string   `json:"game_id"`
	Moves        []string `json:"moves"`
	Player1White bool     `json:"player1_white"`
}

// SubmitTokenRequest settles a game from the PGN result token of the
// external match ("1-0", "0-1", "1/2-1/2").
type SubmitTokenRequest struct {
	Caller       string `json:"caller"`
	GameID       string `json:"game_id"`
	Token        string `json:"token"`
	Player1White bool   `json:"player1_white"`
}

type OperatorRequest struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

type DepositRequest struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

type OperatorResponse struct {
	Address  string `json:"address"`
	Operator bool   `json:"operator"`
}
