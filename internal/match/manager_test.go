package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dlemaire/chessmate/internal/archive"
	"github.com/dlemaire/chessmate/internal/challenge"
	"github.com/dlemaire/chessmate/internal/game"
	"github.com/dlemaire/chessmate/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *archive.Memory) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	games := store.New(rdb, time.Hour)
	challenges := challenge.NewManager(rdb, games, time.Minute)
	arch := archive.NewMemoryArchive()
	return NewManager(games, challenges, arch, 2), arch
}

func startGame(t *testing.T, m *Manager, channelID, white, black string) *game.Game {
	t.Helper()
	ctx := context.Background()
	_, g, err := m.Challenge(ctx, channelID, white, black)
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	if g != nil {
		return g
	}
	g, err = m.AcceptChallenge(ctx, channelID, black)
	if err != nil {
		t.Fatalf("AcceptChallenge: %v", err)
	}
	return g
}

func TestMoveFlowHumanVsHuman(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	startGame(t, m, "chan-1", "alice", "bob")

	g, out, err := m.ResolveAndApplyMove(ctx, "chan-1", "alice", "e4")
	if err != nil {
		t.Fatalf("ResolveAndApplyMove: %v", err)
	}
	if out.UCI != "e2e4" || out.SAN != "e4" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.AIReply != nil {
		t.Fatalf("no AI seated, reply should be nil")
	}
	if g.Turn != game.Black {
		t.Fatalf("black should be on the move")
	}

	// Bob out of turn after his own move.
	if _, _, err := m.ResolveAndApplyMove(ctx, "chan-1", "alice", "d4"); !errors.Is(err, game.ErrIllegalActor) {
		t.Fatalf("expected ErrIllegalActor out of turn, got %v", err)
	}

	// Stranger cannot move at all.
	if _, _, err := m.ResolveAndApplyMove(ctx, "chan-1", "mallory", "e5"); !errors.Is(err, game.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant for stranger, got %v", err)
	}
}

func TestMoveResolutionErrorsLeaveGameUntouched(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	startGame(t, m, "chan-1", "alice", "bob")

	if _, _, err := m.ResolveAndApplyMove(ctx, "chan-1", "alice", "z9"); !errors.Is(err, game.ErrNoSuchMove) {
		t.Fatalf("expected ErrNoSuchMove, got %v", err)
	}
	g, err := m.GetGame(ctx, "chan-1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if len(g.MovesUCI) != 0 {
		t.Fatalf("failed move must not change history: %v", g.MovesUCI)
	}
}

func TestAmbiguousMoveSurfacesCandidates(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	startGame(t, m, "chan-1", "alice", "bob")

	for _, step := range []struct{ user, mv string }{
		{"alice", "d2d4"}, {"bob", "a7a6"}, {"alice", "g1f3"}, {"bob", "b7b6"},
	} {
		if _, _, err := m.ResolveAndApplyMove(ctx, "chan-1", step.user, step.mv); err != nil {
			t.Fatalf("move %s: %v", step.mv, err)
		}
	}
	_, _, err := m.ResolveAndApplyMove(ctx, "chan-1", "alice", "Nd2")
	var amb *game.AmbiguousMoveError
	if !errors.As(err, &amb) {
		t.Fatalf("expected AmbiguousMoveError, got %v", err)
	}
	if len(amb.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %v", amb.Candidates)
	}
}

func TestConcurrentMovesSamePlyExactlyOneWins(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	startGame(t, m, "chan-1", "alice", "bob")

	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, mv := range []string{"e4", "d4"} {
		wg.Add(1)
		go func(mv string) {
			defer wg.Done()
			<-start
			_, _, err := m.ResolveAndApplyMove(ctx, "chan-1", "alice", mv)
			errs <- err
		}(mv)
	}
	close(start)
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		// The loser observes either the aborted transaction or, if it read
		// after the winner committed, that the turn has passed.
		if !errors.Is(err, game.ErrConflict) && !errors.Is(err, game.ErrIllegalActor) {
			t.Fatalf("unexpected loser error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner per ply, got %d", wins)
	}

	g, err := m.GetGame(ctx, "chan-1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if len(g.MovesUCI) != 1 {
		t.Fatalf("expected exactly one recorded move, got %v", g.MovesUCI)
	}
}

func TestAIRepliesAutomatically(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g := startGame(t, m, "chan-1", "alice", game.AIPlayerID)
	if g == nil || g.BlackID != game.AIPlayerID {
		t.Fatalf("AI game should start immediately: %+v", g)
	}

	g, out, err := m.ResolveAndApplyMove(ctx, "chan-1", "alice", "e2e4")
	if err != nil {
		t.Fatalf("ResolveAndApplyMove: %v", err)
	}
	if out.AIReply == nil || out.AIReply.UCI == "" {
		t.Fatalf("expected an AI reply, got %+v", out)
	}
	if len(g.MovesUCI) != 2 {
		t.Fatalf("expected two moves on record, got %v", g.MovesUCI)
	}
	if g.Turn != game.White {
		t.Fatalf("after the AI reply it is white's turn again")
	}
}

func TestResignArchivesGame(t *testing.T) {
	m, arch := newTestManager(t)
	ctx := context.Background()
	startGame(t, m, "chan-1", "alice", "bob")

	g, err := m.Resign(ctx, "chan-1", "bob")
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if g.Result != game.ResultWhiteWin {
		t.Fatalf("bob resigning should hand alice the win, got %s", g.Result)
	}
	recent := arch.Recent(ctx, 10)
	if len(recent) != 1 || recent[0].ID != g.ID {
		t.Fatalf("finished game missing from archive: %v", recent)
	}
	// Channel frees up.
	if _, err := m.GetGame(ctx, "chan-1"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected empty channel after resign, got %v", err)
	}
}

func TestSuggestAndAnalyze(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	startGame(t, m, "chan-1", "alice", "bob")

	sugs, err := m.Suggest(ctx, "chan-1", 3)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(sugs) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(sugs))
	}

	ev, err := m.Analyze(ctx, "chan-1")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if ev.WhiteWin < 0.3 || ev.WhiteWin > 0.7 {
		t.Fatalf("starting position should be balanced, got %f", ev.WhiteWin)
	}
	if ev.Status != game.PositionNormal {
		t.Fatalf("expected normal status, got %s", ev.Status)
	}
}

func TestPGNForChannel(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	startGame(t, m, "chan-1", "alice", "bob")

	if _, _, err := m.ResolveAndApplyMove(ctx, "chan-1", "alice", "e4"); err != nil {
		t.Fatalf("move: %v", err)
	}
	pgn, err := m.PGN(ctx, "chan-1")
	if err != nil {
		t.Fatalf("PGN: %v", err)
	}
	if pgn == "" {
		t.Fatalf("expected PGN text")
	}
}
