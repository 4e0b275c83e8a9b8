package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dlemaire/chessmate/internal/game"
	"github.com/dlemaire/chessmate/internal/obslog"
	"github.com/dlemaire/chessmate/internal/store"
)

type Manager struct {
	rdb   *redis.Client
	games *store.Store
	ttl   time.Duration
}

// NewManager wires the challenge flow onto redis. games receives the new
// game when a challenge is accepted.
func NewManager(rdb *redis.Client, games *store.Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{rdb: rdb, games: games, ttl: ttl}
}

func challengeKey(id string) string { return "challenge:" + strings.TrimSpace(id) }
func channelKey(channelID string) string {
	return "challenge:index:channel:" + strings.TrimSpace(channelID)
}

// Create opens a pending challenge in the channel. Challenging the AI player
// skips the handshake and starts the game immediately.
func (m *Manager) Create(ctx context.Context, channelID, challengerID, challengedID string) (*Challenge, *game.Game, error) {
	channelID = strings.TrimSpace(channelID)
	challengerID = strings.TrimSpace(challengerID)
	challengedID = strings.TrimSpace(challengedID)
	if channelID == "" || challengerID == "" || challengedID == "" {
		return nil, nil, ErrInvalidArgs
	}
	if challengerID == challengedID {
		return nil, nil, ErrSelfChallenge
	}
	if _, err := m.games.GetByChannel(ctx, channelID); err == nil {
		return nil, nil, game.ErrChannelBusy
	} else if !errors.Is(err, game.ErrNotFound) {
		return nil, nil, err
	}

	now := time.Now().UTC()
	c := &Challenge{
		ID:           uuid.NewString(),
		ChannelID:    channelID,
		ChallengerID: challengerID,
		ChallengedID: challengedID,
		State:        StatePending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.ttl),
	}

	if challengedID == game.AIPlayerID {
		c.State = StateAccepted
		g := game.New(channelID, challengerID, game.AIPlayerID)
		if err := m.games.Create(ctx, g); err != nil {
			return nil, nil, err
		}
		obslog.L().Info("challenge_auto_accept_ai",
			zap.String("channel_id", channelID),
			zap.String("challenger_id", challengerID),
			zap.String("game_id", g.ID),
		)
		return c, g, nil
	}

	ck := channelKey(channelID)
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		if cur, err := m.pendingInChannel(ctx, channelID, now); err != nil {
			return err
		} else if cur != nil {
			return ErrAlreadyPending
		}
		raw, err := json.Marshal(c)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, challengeKey(c.ID), raw, m.ttl)
		pipe.Set(ctx, ck, c.ID, m.ttl)
		_, err = pipe.Exec(ctx)
		return err
	}, ck)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, nil, game.ErrConflict
	}
	if err != nil {
		if errors.Is(err, ErrAlreadyPending) {
			return nil, nil, err
		}
		return nil, nil, &game.PersistenceError{Op: "challenge_create", Err: err}
	}
	obslog.L().Info("challenge_create",
		zap.String("challenge_id", c.ID),
		zap.String("channel_id", channelID),
		zap.String("challenger_id", challengerID),
		zap.String("challenged_id", challengedID),
	)
	return c, nil, nil
}

// Accept transitions the channel's pending challenge to ACCEPTED and starts
// the game with the challenger as white. Only the challenged user may accept;
// an expired or already-resolved challenge fails with ErrStaleChallenge.
func (m *Manager) Accept(ctx context.Context, channelID, userID string) (*Challenge, *game.Game, error) {
	// A game may have appeared since the challenge was posted. Check before
	// the state transition so the challenge stays answerable.
	if _, err := m.games.GetByChannel(ctx, channelID); err == nil {
		return nil, nil, game.ErrChannelBusy
	} else if !errors.Is(err, game.ErrNotFound) {
		return nil, nil, err
	}
	c, err := m.resolve(ctx, channelID, userID, StateAccepted)
	if err != nil {
		return nil, nil, err
	}
	g := game.New(c.ChannelID, c.ChallengerID, c.ChallengedID)
	if err := m.games.Create(ctx, g); err != nil {
		return nil, nil, err
	}
	obslog.L().Info("challenge_accept",
		zap.String("challenge_id", c.ID),
		zap.String("channel_id", c.ChannelID),
		zap.String("game_id", g.ID),
	)
	return c, g, nil
}

// Decline transitions the channel's pending challenge to DECLINED.
func (m *Manager) Decline(ctx context.Context, channelID, userID string) (*Challenge, error) {
	c, err := m.resolve(ctx, channelID, userID, StateDeclined)
	if err != nil {
		return nil, err
	}
	obslog.L().Info("challenge_decline",
		zap.String("challenge_id", c.ID),
		zap.String("channel_id", c.ChannelID),
	)
	return c, nil
}

// Pending returns the channel's live pending challenge, if any. Expiry is
// applied lazily here: an overdue challenge is marked EXPIRED on first sight.
func (m *Manager) Pending(ctx context.Context, channelID string) (*Challenge, error) {
	c, err := m.pendingInChannel(ctx, channelID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNoPending
	}
	return c, nil
}

// resolve performs the single state transition PENDING -> to. Exactly one
// caller wins; everyone else observes ErrStaleChallenge.
func (m *Manager) resolve(ctx context.Context, channelID, userID string, to State) (*Challenge, error) {
	now := time.Now().UTC()
	c, err := m.pendingInChannel(ctx, channelID, now)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNoPending
	}
	if !c.Addressee(userID) {
		return nil, game.ErrIllegalActor
	}

	key := challengeKey(c.ID)
	var out *Challenge
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return game.ErrStaleChallenge
		}
		if err != nil {
			return err
		}
		var cur Challenge
		if err := json.Unmarshal(raw, &cur); err != nil {
			return err
		}
		if cur.State != StatePending || cur.ExpiredAt(now) {
			return game.ErrStaleChallenge
		}
		cur.State = to
		newRaw, err := json.Marshal(&cur)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, newRaw, m.ttl)
		pipe.Del(ctx, channelKey(cur.ChannelID))
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out = &cur
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, game.ErrStaleChallenge
	}
	if err != nil {
		if errors.Is(err, game.ErrStaleChallenge) {
			return nil, game.ErrStaleChallenge
		}
		return nil, &game.PersistenceError{Op: "challenge_resolve", Err: err}
	}
	return out, nil
}

func (m *Manager) pendingInChannel(ctx context.Context, channelID string, now time.Time) (*Challenge, error) {
	id, err := m.rdb.Get(ctx, channelKey(channelID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, &game.PersistenceError{Op: "challenge_lookup", Err: err}
	}
	raw, err := m.rdb.Get(ctx, challengeKey(id)).Bytes()
	if err == redis.Nil {
		_ = m.rdb.Del(ctx, channelKey(channelID)).Err()
		return nil, nil
	}
	if err != nil {
		return nil, &game.PersistenceError{Op: "challenge_lookup", Err: err}
	}
	var c Challenge
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, &game.PersistenceError{Op: "challenge_decode", Err: err}
	}
	if c.State != StatePending {
		_ = m.rdb.Del(ctx, channelKey(channelID)).Err()
		return nil, nil
	}
	if c.ExpiredAt(now) {
		c.State = StateExpired
		if raw, merr := json.Marshal(&c); merr == nil {
			_ = m.rdb.Set(ctx, challengeKey(c.ID), raw, m.ttl).Err()
		}
		_ = m.rdb.Del(ctx, channelKey(channelID)).Err()
		return nil, nil
	}
	return &c, nil
}
