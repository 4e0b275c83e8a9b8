// Package store persists games in redis as JSON snapshots with secondary
// indexes for channel and participant lookup.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dlemaire/chessmate/internal/game"
)

// DefaultTTL bounds how long a finished or abandoned snapshot lingers.
const DefaultTTL = 24 * time.Hour

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps an existing redis client. A non-positive ttl falls back to
// DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// NewFromURL dials redis from a redis:// or rediss:// URL and pings it.
func NewFromURL(ctx context.Context, redisURL string, ttl time.Duration) (*Store, error) {
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, &game.PersistenceError{Op: "ping", Err: err}
	}
	return New(rdb, ttl), nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func gameKey(id string) string        { return "game:" + strings.TrimSpace(id) }
func chanKey(channelID string) string { return "game:index:channel:" + strings.TrimSpace(channelID) }
func userKey(userID string) string    { return "game:index:user:" + strings.TrimSpace(userID) }

const activeKey = "game:active"

// Create persists a fresh game and claims its channel. A channel holds at
// most one ongoing game; a second Create fails with ErrChannelBusy until the
// first finishes.
func (s *Store) Create(ctx context.Context, g *game.Game) error {
	if g == nil || strings.TrimSpace(g.ChannelID) == "" {
		return &game.PersistenceError{Op: "create", Err: errors.New("invalid game")}
	}
	ck := chanKey(g.ChannelID)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		curID, err := tx.Get(ctx, ck).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil && curID != "" {
			cur, gerr := s.load(ctx, curID)
			if gerr == nil && cur != nil && !cur.Finished() {
				return game.ErrChannelBusy
			}
		}
		raw, merr := json.Marshal(g)
		if merr != nil {
			return merr
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, gameKey(g.ID), raw, s.ttl)
		pipe.Set(ctx, ck, g.ID, s.ttl)
		s.indexParticipants(ctx, pipe, g)
		pipe.SAdd(ctx, activeKey, g.ID)
		_, err = pipe.Exec(ctx)
		return err
	}, ck)
	if errors.Is(err, game.ErrChannelBusy) {
		return err
	}
	if errors.Is(err, redis.TxFailedErr) {
		return game.ErrConflict
	}
	if err != nil {
		return &game.PersistenceError{Op: "create", Err: err}
	}
	return nil
}

// Get loads one game by id.
func (s *Store) Get(ctx context.Context, id string) (*game.Game, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, game.ErrNotFound
	}
	return g, nil
}

// GetByChannel returns the channel's ongoing game.
func (s *Store) GetByChannel(ctx context.Context, channelID string) (*game.Game, error) {
	id, err := s.rdb.Get(ctx, chanKey(channelID)).Result()
	if err == redis.Nil {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, &game.PersistenceError{Op: "get_by_channel", Err: err}
	}
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil || g.Finished() {
		return nil, game.ErrNotFound
	}
	return g, nil
}

// GetByParticipant returns the user's most recently updated ongoing game.
func (s *Store) GetByParticipant(ctx context.Context, userID string) (*game.Game, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, game.ErrNotFound
	}
	ids, err := s.rdb.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, &game.PersistenceError{Op: "get_by_participant", Err: err}
	}
	var list []*game.Game
	for _, id := range ids {
		g, gerr := s.load(ctx, id)
		if gerr == nil && g != nil && !g.Finished() {
			list = append(list, g)
		}
	}
	if len(list) == 0 {
		return nil, game.ErrNotFound
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list[0], nil
}

// Save upserts a snapshot without touching indexes. Use Create for new games.
func (s *Store) Save(ctx context.Context, g *game.Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return &game.PersistenceError{Op: "save", Err: err}
	}
	if err := s.rdb.Set(ctx, gameKey(g.ID), raw, s.ttl).Err(); err != nil {
		return &game.PersistenceError{Op: "save", Err: err}
	}
	if g.Finished() {
		_ = s.rdb.SRem(ctx, activeKey, g.ID).Err()
	}
	return nil
}

// Update applies fn to the stored game under optimistic concurrency control.
// A concurrent write to the same game aborts the transaction and surfaces as
// ErrConflict; fn errors pass through unchanged and nothing is written.
func (s *Store) Update(ctx context.Context, id string, fn func(*game.Game) error) (*game.Game, error) {
	var out *game.Game
	gk := gameKey(id)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, gk).Bytes()
		if err == redis.Nil {
			return game.ErrNotFound
		}
		if err != nil {
			return err
		}
		var cur game.Game
		if err := json.Unmarshal(raw, &cur); err != nil {
			return err
		}
		if err := fn(&cur); err != nil {
			return err
		}
		newRaw, err := json.Marshal(&cur)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, gk, newRaw, s.ttl)
		if cur.Finished() {
			pipe.SRem(ctx, activeKey, cur.ID)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out = &cur
		return nil
	}, gk)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, game.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the game and its index entries.
func (s *Store) Delete(ctx context.Context, g *game.Game) error {
	if g == nil {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, gameKey(g.ID))
	pipe.SRem(ctx, activeKey, g.ID)
	pipe.SRem(ctx, userKey(g.WhiteID), g.ID)
	pipe.SRem(ctx, userKey(g.BlackID), g.ID)
	if id, err := s.rdb.Get(ctx, chanKey(g.ChannelID)).Result(); err == nil && id == g.ID {
		pipe.Del(ctx, chanKey(g.ChannelID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return &game.PersistenceError{Op: "delete", Err: err}
	}
	return nil
}

// ListActive returns every ongoing game known to the active set.
func (s *Store) ListActive(ctx context.Context) ([]*game.Game, error) {
	ids, err := s.rdb.SMembers(ctx, activeKey).Result()
	if err != nil {
		return nil, &game.PersistenceError{Op: "list_active", Err: err}
	}
	var out []*game.Game
	for _, id := range ids {
		g, gerr := s.load(ctx, id)
		if gerr != nil {
			continue
		}
		if g == nil || g.Finished() {
			// Expired or finished entries self-heal out of the set.
			_ = s.rdb.SRem(ctx, activeKey, id).Err()
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// CleanupStale deletes ongoing games idle longer than maxIdle and returns
// how many were removed.
func (s *Store) CleanupStale(ctx context.Context, maxIdle time.Duration) (int, error) {
	if maxIdle <= 0 {
		return 0, nil
	}
	list, err := s.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-maxIdle)
	removed := 0
	for _, g := range list {
		if g.UpdatedAt.After(cutoff) {
			continue
		}
		if err := s.Delete(ctx, g); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *Store) load(ctx context.Context, id string) (*game.Game, error) {
	raw, err := s.rdb.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, &game.PersistenceError{Op: "get", Err: err}
	}
	var g game.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, &game.PersistenceError{Op: "decode", Err: err}
	}
	return &g, nil
}

func (s *Store) indexParticipants(ctx context.Context, pipe redis.Pipeliner, g *game.Game) {
	for _, uid := range []string{g.WhiteID, g.BlackID} {
		if strings.TrimSpace(uid) == "" || uid == game.AIPlayerID {
			continue
		}
		key := userKey(uid)
		pipe.SAdd(ctx, key, g.ID)
		pipe.Expire(ctx, key, s.ttl)
	}
}

// ParseRedisURL extracts client options from a redis:// or rediss:// URL.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
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
