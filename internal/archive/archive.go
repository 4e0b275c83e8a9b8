// Package archive persists finished games for posterity. Redis snapshots
// expire; the archive is the durable record.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/dlemaire/chessmate/internal/game"
)

// Archiver receives finished games.
type Archiver interface {
	SaveResult(ctx context.Context, g *game.Game) error
	Close() error
}

type Repository struct {
	db *sql.DB
}

// NewRepository opens a postgres connection from DATABASE_URL and pings it.
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

// SaveResult upserts one finished game keyed by game id.
func (r *Repository) SaveResult(ctx context.Context, g *game.Game) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	movesUCIRaw, _ := json.Marshal(g.MovesUCI)
	movesSANRaw, _ := json.Marshal(g.MovesSAN)
	duration := g.UpdatedAt.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO games (
	    game_id, channel_id, white_id, black_id,
	    result, moves_uci, moves_san, pgn,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
	  ) ON CONFLICT (game_id) DO UPDATE SET
	    channel_id=EXCLUDED.channel_id,
	    white_id=EXCLUDED.white_id,
	    black_id=EXCLUDED.black_id,
	    result=EXCLUDED.result,
	    moves_uci=EXCLUDED.moves_uci,
	    moves_san=EXCLUDED.moves_san,
	    pgn=EXCLUDED.pgn,
	    started_at=EXCLUDED.started_at,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		g.ID, g.ChannelID, g.WhiteID, g.BlackID,
		string(g.Result), string(movesUCIRaw), string(movesSANRaw), g.PGN(),
		g.CreatedAt, g.UpdatedAt, duration,
	)
	if err != nil {
		return &game.PersistenceError{Op: "archive", Err: err}
	}
	return nil
}
