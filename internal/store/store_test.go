package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dlemaire/chessmate/internal/game"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, time.Hour), mr
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	g := game.New("chan-1", "u1", "u2")
	if err := s.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != g.ID || got.FEN != g.FEN || got.WhiteID != "u1" || got.Turn != game.White {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	byChan, err := s.GetByChannel(ctx, "chan-1")
	if err != nil {
		t.Fatalf("GetByChannel: %v", err)
	}
	if byChan.ID != g.ID {
		t.Fatalf("channel index points at %s, want %s", byChan.ID, g.ID)
	}
}

func TestCreateRejectsBusyChannel(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, game.New("chan-1", "u1", "u2")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create(ctx, game.New("chan-1", "u3", "u4"))
	if !errors.Is(err, game.ErrChannelBusy) {
		t.Fatalf("expected ErrChannelBusy, got %v", err)
	}

	// A different channel is unaffected.
	if err := s.Create(ctx, game.New("chan-2", "u3", "u4")); err != nil {
		t.Fatalf("Create on free channel: %v", err)
	}
}

func TestChannelFreesAfterFinish(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	g := game.New("chan-1", "u1", "u2")
	if err := s.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Update(ctx, g.ID, func(cur *game.Game) error {
		return cur.FinishByResignation("u1")
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := s.GetByChannel(ctx, "chan-1"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("finished game should not occupy the channel, got %v", err)
	}
	if err := s.Create(ctx, game.New("chan-1", "u3", "u4")); err != nil {
		t.Fatalf("Create after finish: %v", err)
	}
}

func TestGetByParticipantPrefersMostRecent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	older := game.New("chan-1", "u1", "u2")
	older.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	newer := game.New("chan-2", "u1", "u3")
	if err := s.Create(ctx, older); err != nil {
		t.Fatalf("Create older: %v", err)
	}
	if err := s.Create(ctx, newer); err != nil {
		t.Fatalf("Create newer: %v", err)
	}

	got, err := s.GetByParticipant(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByParticipant: %v", err)
	}
	if got.ID != newer.ID {
		t.Fatalf("expected most recent game %s, got %s", newer.ID, got.ID)
	}

	if _, err := s.GetByParticipant(ctx, "stranger"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for stranger, got %v", err)
	}
}

func TestUpdateSurvivesRestartLaw(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	g := game.New("chan-1", "u1", "u2")
	if err := s.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}
	moves := []string{"e2e4", "e7e5", "g1f3"}
	for _, mv := range moves {
		if _, err := s.Update(ctx, g.ID, func(cur *game.Game) error {
			eng, err := cur.Rebuild()
			if err != nil {
				return err
			}
			rm, err := game.ResolveMove(eng, mv)
			if err != nil {
				return err
			}
			return cur.ApplyResolved(eng, rm)
		}); err != nil {
			t.Fatalf("Update(%s): %v", mv, err)
		}
	}

	// A fresh load followed by replay reproduces the snapshot FEN.
	got, err := s.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	eng, err := got.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if eng.FEN() != got.FEN {
		t.Fatalf("replayed FEN %q != stored %q", eng.FEN(), got.FEN)
	}
	if len(got.MovesUCI) != len(moves) {
		t.Fatalf("history length %d, want %d", len(got.MovesUCI), len(moves))
	}
}

func TestUpdateErrorLeavesSnapshotUntouched(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	g := game.New("chan-1", "u1", "u2")
	if err := s.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}
	boom := errors.New("boom")
	if _, err := s.Update(ctx, g.ID, func(cur *game.Game) error {
		cur.FEN = "garbage"
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error to pass through, got %v", err)
	}

	got, err := s.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FEN != g.FEN {
		t.Fatalf("snapshot mutated despite fn error: %q", got.FEN)
	}
}

func TestUpdateConflictWithConcurrentWriter(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	g := game.New("chan-1", "u1", "u2")
	if err := s.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}
	interloper := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = interloper.Close() })

	// A competing write lands on the watched key while the transaction is
	// still open; EXEC must abort and surface ErrConflict.
	_, err := s.Update(ctx, g.ID, func(cur *game.Game) error {
		raw, merr := json.Marshal(cur)
		if merr != nil {
			return merr
		}
		return interloper.Set(ctx, gameKey(g.ID), raw, time.Hour).Err()
	})
	if !errors.Is(err, game.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateMissingGame(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.Update(ctx, "nope", func(*game.Game) error { return nil })
	if !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListActiveAndCleanupStale(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	stale := game.New("chan-1", "u1", "u2")
	stale.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
	fresh := game.New("chan-2", "u3", "u4")
	if err := s.Create(ctx, stale); err != nil {
		t.Fatalf("Create stale: %v", err)
	}
	if err := s.Create(ctx, fresh); err != nil {
		t.Fatalf("Create fresh: %v", err)
	}

	list, err := s.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 active games, got %d", len(list))
	}

	removed, err := s.CleanupStale(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupStale: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := s.Get(ctx, stale.ID); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("stale game should be gone, got %v", err)
	}
	if _, err := s.Get(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh game should survive: %v", err)
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("redis://:secret@localhost:6379/2")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if _, err := ParseRedisURL("http://localhost"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestNewFromURL(t *testing.T) {
	_, mr := newTestStore(t)
	s, err := NewFromURL(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), 0)
	if err != nil {
		t.Fatalf("NewFromURL: %v", err)
	}
	defer s.Close()
	if s.ttl != DefaultTTL {
		t.Fatalf("expected DefaultTTL fallback, got %v", s.ttl)
	}
}
