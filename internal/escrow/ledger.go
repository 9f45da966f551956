package escrow

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/lichess-wager-go/internal/obslog"
)

// watchRetries bounds the optimistic-concurrency retry loop. Racing calls on
// the same game re-read state on retry and then fail on the violated
// precondition instead of spinning.
const watchRetries = 3

// Ledger owns all game records and custodial balances. Every mutation runs
// as a single redis transaction, so a call either commits fully or leaves no
// trace. The owner identity is fixed at construction; the oracle identity is
// the only caller ResolveGame accepts.
type Ledger struct {
	rdb   *redis.Client
	vault *Vault
	owner string
	repo  *Repository

	mu       sync.RWMutex
	oracleID string
}

func NewLedger(redisURL, owner string) (*Ledger, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for escrow ledger")
	}
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("ledger owner address required")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewLedgerWithClient(rdb, owner), nil
}

// NewLedgerWithClient wires the ledger onto an existing client. The caller
// keeps ownership of the client's lifecycle.
func NewLedgerWithClient(rdb *redis.Client, owner string) *Ledger {
	return &Ledger{rdb: rdb, vault: NewVault(rdb), owner: strings.TrimSpace(owner)}
}

func (l *Ledger) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}

// Vault exposes the balance/custody view backed by the same store.
func (l *Ledger) Vault() *Vault { return l.vault }

// AttachRepository wires a database repository for archiving terminal games.
func (l *Ledger) AttachRepository(r *Repository) {
	if l != nil {
		l.repo = r
	}
}

// UpdateOracle rebinds the identity allowed to resolve games. Owner only.
func (l *Ledger) UpdateOracle(caller, oracleID string) error {
	if strings.TrimSpace(caller) != l.owner {
		return ErrUnauthorized
	}
	if strings.TrimSpace(oracleID) == "" {
		return fmt.Errorf("oracle identity required")
	}
	l.mu.Lock()
	l.oracleID = strings.TrimSpace(oracleID)
	l.mu.Unlock()
	return nil
}

func keyGame(id string) string { return "esc:game:" + strings.TrimSpace(id) }
func keyPlayerIdx(addr string) string { return "esc:index:player:" + strings.TrimSpace(addr) }

// deriveGameID produces a unique, unpredictable handle from the creator, the
// external game reference, and a fresh nonce.
func deriveGameID(creator, externalGameID string) string {
	h := sha256.New()
	h.Write([]byte(creator))
	h.Write([]byte{0})
	h.Write([]byte(externalGameID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(time.Now().UnixNano(), 10)))
	h.Write([]byte(secureNonce(8)))
	return hex.EncodeToString(h.Sum(nil))
}

// secureNonce returns a hex string of n random bytes; falls back to
// timestamp-based when crypto fails.
func secureNonce(n int) string {
	if n <= 0 {
		n = 8
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err == nil {
		return hex.EncodeToString(b)
	}
	// fallback
	return strconv.FormatInt(time.Now().UnixNano(), 16)
}

// CreateGame escrows the creator's deposit and opens a new game record.
func (l *Ledger) CreateGame(ctx context.Context, caller, externalGameID string, amount int64) (*Game, error) {
	caller = strings.TrimSpace(caller)
	externalGameID = strings.TrimSpace(externalGameID)
	if caller == "" || externalGameID == "" {
		return nil, fmt.Errorf("invalid participants")
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	g := &Game{
		ID:             deriveGameID(caller, externalGameID),
		Player1:        caller,
		WagerAmount:    amount,
		ExternalGameID: externalGameID,
		Result:         ResultPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}

	acctK := keyAccount(caller)
	for attempt := 0; attempt < watchRetries; attempt++ {
		err = l.rdb.Watch(ctx, func(tx *redis.Tx) error {
			bal, err := readInt(ctx, tx, acctK)
			if err != nil {
				return err
			}
			if bal < amount {
				return ErrInsufficientFunds
			}
			pipe := tx.TxPipeline()
			pipe.Set(ctx, keyGame(g.ID), raw, 0)
			pipe.DecrBy(ctx, acctK, amount)
			pipe.IncrBy(ctx, keyCustody(g.ID), amount)
			pipe.SAdd(ctx, keyPlayerIdx(caller), g.ID)
			_, err = pipe.Exec(ctx)
			return err
		}, acctK)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	l.publish(ctx, Event{
		Type:           EventGameCreated,
		GameID:         g.ID,
		Player1:        g.Player1,
		WagerAmount:    g.WagerAmount,
		ExternalGameID: g.ExternalGameID,
	})
	return g, nil
}

// JoinGame escrows the second deposit. Exactly one of two racing joins on
// the same open game commits; the other re-reads and fails AlreadyJoined.
func (l *Ledger) JoinGame(ctx context.Context, caller, gameID string, amount int64) (*Game, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, fmt.Errorf("invalid participants")
	}

	gameK := keyGame(gameID)
	acctK := keyAccount(caller)
	var joined *Game
	var err error
	for attempt := 0; attempt < watchRetries; attempt++ {
		err = l.rdb.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := loadGame(ctx, tx, gameK)
			if err != nil {
				return err
			}
			if cur.IsCompleted {
				return ErrAlreadyCompleted
			}
			if cur.Joined() {
				return ErrAlreadyJoined
			}
			if cur.Player1 == caller {
				return ErrSelfJoin
			}
			if amount != cur.WagerAmount {
				return ErrAmountMismatch
			}
			bal, err := readInt(ctx, tx, acctK)
			if err != nil {
				return err
			}
			if bal < amount {
				return ErrInsufficientFunds
			}

			cur.Player2 = caller
			cur.UpdatedAt = time.Now()
			raw, err := json.Marshal(cur)
			if err != nil {
				return err
			}
			pipe := tx.TxPipeline()
			pipe.Set(ctx, gameK, raw, 0)
			pipe.DecrBy(ctx, acctK, amount)
			pipe.IncrBy(ctx, keyCustody(cur.ID), amount)
			pipe.SAdd(ctx, keyPlayerIdx(caller), cur.ID)
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
			joined = cur
			return nil
		}, gameK, acctK)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	l.publish(ctx, Event{Type: EventGameJoined, GameID: joined.ID, Player2: joined.Player2})
	return joined, nil
}

// CancelGame refunds the creator's deposit. Only the creator may cancel, and
// only while no second player has committed funds.
func (l *Ledger) CancelGame(ctx context.Context, caller, gameID string) (*Game, error) {
	caller = strings.TrimSpace(caller)
	gameK := keyGame(gameID)
	var cancelled *Game
	var err error
	for attempt := 0; attempt < watchRetries; attempt++ {
		err = l.rdb.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := loadGame(ctx, tx, gameK)
			if err != nil {
				return err
			}
			if cur.IsCompleted {
				return ErrAlreadyCompleted
			}
			if cur.Player1 != caller {
				return ErrNotGameOwner
			}
			if cur.Joined() {
				return ErrAlreadyJoined
			}

			cur.Result = ResultCancelled
			cur.IsCompleted = true
			cur.UpdatedAt = time.Now()
			raw, err := json.Marshal(cur)
			if err != nil {
				return err
			}
			pipe := tx.TxPipeline()
			pipe.Set(ctx, gameK, raw, 0)
			pipe.Del(ctx, keyCustody(cur.ID))
			pipe.IncrBy(ctx, keyAccount(cur.Player1), cur.WagerAmount)
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
			cancelled = cur
			return nil
		}, gameK)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	l.publish(ctx, Event{Type: EventGameCancelled, GameID: cancelled.ID, Player1: cancelled.Player1, Result: ResultCancelled})
	l.persistIfTerminal(ctx, cancelled)
	return cancelled, nil
}

// ResolveGame settles a fully joined game and pays out custody in one shot.
// Only the bound oracle identity may call it.
func (l *Ledger) ResolveGame(ctx context.Context, caller, gameID string, result Result) (*Game, error) {
	l.mu.RLock()
	oracleID := l.oracleID
	l.mu.RUnlock()
	if oracleID == "" || strings.TrimSpace(caller) != oracleID {
		return nil, ErrUnauthorized
	}
	if !result.Settleable() {
		return nil, ErrInvalidResult
	}

	gameK := keyGame(gameID)
	var settled *Game
	var err error
	for attempt := 0; attempt < watchRetries; attempt++ {
		err = l.rdb.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := loadGame(ctx, tx, gameK)
			if err != nil {
				return err
			}
			if cur.IsCompleted {
				return ErrAlreadyCompleted
			}
			if !cur.Joined() {
				return ErrNotJoined
			}

			cur.Result = result
			cur.IsCompleted = true
			cur.UpdatedAt = time.Now()
			raw, err := json.Marshal(cur)
			if err != nil {
				return err
			}
			pipe := tx.TxPipeline()
			pipe.Set(ctx, gameK, raw, 0)
			pipe.Del(ctx, keyCustody(cur.ID))
			switch result {
			case ResultPlayer1Wins:
				pipe.IncrBy(ctx, keyAccount(cur.Player1), 2*cur.WagerAmount)
			case ResultPlayer2Wins:
				pipe.IncrBy(ctx, keyAccount(cur.Player2), 2*cur.WagerAmount)
			case ResultDraw:
				pipe.IncrBy(ctx, keyAccount(cur.Player1), cur.WagerAmount)
				pipe.IncrBy(ctx, keyAccount(cur.Player2), cur.WagerAmount)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
			settled = cur
			return nil
		}, gameK)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	l.publish(ctx, Event{
		Type:    EventGameResolved,
		GameID:  settled.ID,
		Player1: settled.Player1,
		Player2: settled.Player2,
		Result:  settled.Result,
	})
	l.persistIfTerminal(ctx, settled)
	return settled, nil
}

// GetGameDetails returns the full record, terminal or not. Unknown ids fail
// with ErrNotFound; the UI layer probes ids it has only cached locally.
func (l *Ledger) GetGameDetails(ctx context.Context, gameID string) (*Game, error) {
	return loadGame(ctx, l.rdb, keyGame(gameID))
}

// GamesByPlayer lists every game an address has participated in.
func (l *Ledger) GamesByPlayer(ctx context.Context, addr string) ([]*Game, error) {
	ids, err := l.rdb.SMembers(ctx, keyPlayerIdx(addr)).Result()
	if err != nil {
		return nil, err
	}
	var out []*Game
	for _, id := range ids {
		g, gerr := loadGame(ctx, l.rdb, keyGame(id))
		if gerr != nil {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func loadGame(ctx context.Context, c redis.Cmdable, key string) (*Game, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// persistIfTerminal archives a completed game when a repository is attached.
func (l *Ledger) persistIfTerminal(ctx context.Context, g *Game) {
	if l == nil || l.repo == nil || g == nil || !g.IsCompleted {
		return
	}
	if err := l.repo.SaveSettled(ctx, g); err != nil {
		obslog.L().Error("settled_game_archive_error", zap.String("game_id", g.ID), zap.String("result", string(g.Result)), zap.Error(err))
		return
	}
	obslog.L().Info("settled_game_archive", zap.String("game_id", g.ID), zap.String("result", string(g.Result)))
}

// ParseRedisURL converts redis:// or rediss:// URLs into client options.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
