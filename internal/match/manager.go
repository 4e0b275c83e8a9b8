// Package match orchestrates the game lifecycle for a channel: challenges,
// move handling, the AI opponent, and archiving of finished games.
package match

import (
	"context"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/dlemaire/chessmate/internal/analysis"
	"github.com/dlemaire/chessmate/internal/archive"
	"github.com/dlemaire/chessmate/internal/challenge"
	"github.com/dlemaire/chessmate/internal/game"
	"github.com/dlemaire/chessmate/internal/obslog"
	"github.com/dlemaire/chessmate/internal/store"
)

type Manager struct {
	games      *store.Store
	challenges *challenge.Manager
	archiver   archive.Archiver
	depth      int
}

// NewManager wires the match layer. archiver may be nil when no durable
// archive is configured.
func NewManager(games *store.Store, challenges *challenge.Manager, archiver archive.Archiver, depth int) *Manager {
	if depth < 1 {
		depth = analysis.DefaultDepth
	}
	return &Manager{games: games, challenges: challenges, archiver: archiver, depth: depth}
}

// AIMove describes the automatic reply played after a human move.
type AIMove struct {
	UCI    string
	SAN    string
	Status game.PositionStatus
}

// MoveOutcome is the result of one accepted human move.
type MoveOutcome struct {
	UCI     string
	SAN     string
	Status  game.PositionStatus
	AIReply *AIMove
}

// Challenge opens a challenge in the channel. Against the AI the game starts
// immediately and is returned alongside the challenge.
func (m *Manager) Challenge(ctx context.Context, channelID, challengerID, challengedID string) (*challenge.Challenge, *game.Game, error) {
	return m.challenges.Create(ctx, channelID, challengerID, challengedID)
}

// AcceptChallenge answers the channel's pending challenge and starts the game.
func (m *Manager) AcceptChallenge(ctx context.Context, channelID, userID string) (*game.Game, error) {
	_, g, err := m.challenges.Accept(ctx, channelID, userID)
	return g, err
}

// DeclineChallenge answers the channel's pending challenge negatively.
func (m *Manager) DeclineChallenge(ctx context.Context, channelID, userID string) (*challenge.Challenge, error) {
	return m.challenges.Decline(ctx, channelID, userID)
}

// GetGame returns the channel's ongoing game.
func (m *Manager) GetGame(ctx context.Context, channelID string) (*game.Game, error) {
	return m.games.GetByChannel(ctx, channelID)
}

// ResolveAndApplyMove handles one human move in the channel's game: resolve
// the text against the current position, apply it under optimistic
// concurrency, and let the AI reply when it is seated. Resolution errors
// (ErrNoSuchMove, AmbiguousMoveError) leave the game untouched.
func (m *Manager) ResolveAndApplyMove(ctx context.Context, channelID, userID, text string) (*game.Game, *MoveOutcome, error) {
	cur, err := m.games.GetByChannel(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := cur.PlayerColor(userID); !ok {
		return nil, nil, game.ErrNotParticipant
	}

	outcome := &MoveOutcome{}
	updated, err := m.games.Update(ctx, cur.ID, func(g *game.Game) error {
		if g.Finished() {
			return game.ErrTerminalGame
		}
		if g.ToMoveID() != userID {
			return game.ErrIllegalActor
		}
		eng, err := g.Rebuild()
		if err != nil {
			return err
		}
		rm, err := game.ResolveMove(eng, text)
		if err != nil {
			return err
		}
		if err := g.ApplyResolved(eng, rm); err != nil {
			return err
		}
		outcome.UCI = rm.UCI
		outcome.SAN = rm.SAN
		outcome.Status = game.Classify(eng)

		if !g.Finished() && g.ToMoveID() == game.AIPlayerID {
			reply, err := m.playAIMove(g, eng)
			if err != nil {
				return err
			}
			outcome.AIReply = reply
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	obslog.L().Info("move_applied",
		zap.String("game_id", updated.ID),
		zap.String("channel_id", channelID),
		zap.String("user_id", userID),
		zap.String("uci", outcome.UCI),
		zap.String("san", outcome.SAN),
		zap.String("status", outcome.Status.String()),
	)
	m.archiveIfFinished(ctx, updated)
	return updated, outcome, nil
}

func (m *Manager) playAIMove(g *game.Game, eng *nchess.Game) (*AIMove, error) {
	pos := eng.Position()
	mv := analysis.BestMove(pos, m.depth)
	if mv == nil {
		return nil, nil
	}
	rm := &game.ResolvedMove{
		Move: mv,
		UCI:  nchess.UCINotation{}.Encode(pos, mv),
		SAN:  nchess.AlgebraicNotation{}.Encode(pos, mv),
	}
	if err := g.ApplyResolved(eng, rm); err != nil {
		return nil, err
	}
	return &AIMove{UCI: rm.UCI, SAN: rm.SAN, Status: game.Classify(eng)}, nil
}

// Resign ends the channel's game in favor of the resigner's opponent.
func (m *Manager) Resign(ctx context.Context, channelID, userID string) (*game.Game, error) {
	cur, err := m.games.GetByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	updated, err := m.games.Update(ctx, cur.ID, func(g *game.Game) error {
		return g.FinishByResignation(userID)
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("resign",
		zap.String("game_id", updated.ID),
		zap.String("channel_id", channelID),
		zap.String("resigner", userID),
		zap.String("result", string(updated.Result)),
	)
	m.archiveIfFinished(ctx, updated)
	return updated, nil
}

// Suggest returns candidate moves for the side to move in the channel's game.
func (m *Manager) Suggest(ctx context.Context, channelID string, n int) ([]analysis.Suggestion, error) {
	g, err := m.games.GetByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	eng, err := g.Rebuild()
	if err != nil {
		return nil, err
	}
	return analysis.Suggest(eng.Position(), n), nil
}

// Evaluation is a static assessment of the channel's current position.
type Evaluation struct {
	Score    int
	WhiteWin float64
	Status   game.PositionStatus
}

// Analyze evaluates the channel's current position.
func (m *Manager) Analyze(ctx context.Context, channelID string) (*Evaluation, error) {
	g, err := m.games.GetByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	eng, err := g.Rebuild()
	if err != nil {
		return nil, err
	}
	score := analysis.Evaluate(eng.Position())
	return &Evaluation{
		Score:    score,
		WhiteWin: analysis.WinProbability(score),
		Status:   game.Classify(eng),
	}, nil
}

// PGN renders the channel's game, ongoing or just finished.
func (m *Manager) PGN(ctx context.Context, channelID string) (string, error) {
	g, err := m.games.GetByChannel(ctx, channelID)
	if err != nil {
		return "", err
	}
	return g.PGN(), nil
}

// CleanupStale removes games idle past maxIdle. Called periodically from main.
func (m *Manager) CleanupStale(ctx context.Context, maxIdle time.Duration) (int, error) {
	removed, err := m.games.CleanupStale(ctx, maxIdle)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		obslog.L().Info("stale_games_removed", zap.Int("count", removed))
	}
	return removed, nil
}

func (m *Manager) archiveIfFinished(ctx context.Context, g *game.Game) {
	if m.archiver == nil || g == nil || !g.Finished() {
		return
	}
	if err := m.archiver.SaveResult(ctx, g); err != nil {
		obslog.L().Error("archive_failed",
			zap.String("game_id", g.ID),
			zap.String("result", string(g.Result)),
			zap.Error(err),
		)
		return
	}
	obslog.L().Info("game_archived",
		zap.String("game_id", g.ID),
		zap.String("result", strings.TrimSpace(string(g.Result))),
	)
}
