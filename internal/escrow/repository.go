package escrow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository archives terminal game records in Postgres. Redis remains the
// authoritative store; the archive exists for auditability and reporting.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Ping verifies connectivity; used by the health probe.
func (r *Repository) Ping(ctx context.Context) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.PingContext(ctx)
}

// SaveSettled upserts a terminal game record.
func (r *Repository) SaveSettled(ctx context.Context, g *Game) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	if !g.IsCompleted {
		return fmt.Errorf("game %s is not terminal", g.ID)
	}

	const q = `INSERT INTO settled_games (
	    game_id, player1, player2, wager_amount, external_game_id,
	    result, created_at, settled_at
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8
	  ) ON CONFLICT (game_id) DO UPDATE SET
	    player1=EXCLUDED.player1,
	    player2=EXCLUDED.player2,
	    wager_amount=EXCLUDED.wager_amount,
	    external_game_id=EXCLUDED.external_game_id,
	    result=EXCLUDED.result,
	    created_at=EXCLUDED.created_at,
	    settled_at=EXCLUDED.settled_at`

	_, err := r.db.ExecContext(ctx, q,
		g.ID,
		g.Player1, g.Player2,
		g.WagerAmount, g.ExternalGameID,
		string(g.Result),
		g.CreatedAt, g.UpdatedAt,
	)
	return err
}
