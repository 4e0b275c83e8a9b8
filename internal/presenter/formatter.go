// Package presenter turns match results into chat-ready text and delivers
// it through the gateway.
package presenter

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dlemaire/chessmate/internal/analysis"
	"github.com/dlemaire/chessmate/internal/challenge"
	"github.com/dlemaire/chessmate/internal/game"
	"github.com/dlemaire/chessmate/internal/match"
	"github.com/dlemaire/chessmate/internal/msgcat"
	"github.com/dlemaire/chessmate/pkg/botdto"
)

const internalErrorText = "Something went wrong. Please try again."

// Formatter renders catalog templates for match events.
type Formatter struct {
	cat    *msgcat.Catalog
	prefix string
}

func NewFormatter(cat *msgcat.Catalog, prefix string) *Formatter {
	return &Formatter{cat: cat, prefix: strings.TrimSpace(prefix)}
}

func (f *Formatter) render(key string, data any) string {
	out, err := f.cat.Render(key, data)
	if err != nil {
		return internalErrorText
	}
	return out
}

// GameView converts a game into its presentation snapshot.
func GameView(g *game.Game) botdto.GameView {
	v := botdto.GameView{
		GameID:    g.ID,
		ChannelID: g.ChannelID,
		WhiteID:   g.WhiteID,
		BlackID:   g.BlackID,
		FEN:       g.FEN,
		Turn:      string(g.Turn),
		Status:    string(g.Status),
		Result:    string(g.Result),
		MoveCount: len(g.MovesUCI),
		UpdatedAt: g.UpdatedAt,
	}
	if n := len(g.MovesUCI); n > 0 {
		v.LastUCI = g.MovesUCI[n-1]
		v.LastSAN = g.MovesSAN[n-1]
	}
	return v
}

// ChallengeCreated announces a new pending challenge.
func (f *Formatter) ChallengeCreated(c *challenge.Challenge, ttl string) string {
	return f.render("challenge.created", map[string]any{
		"Challenger": c.ChallengerID,
		"Challenged": c.ChallengedID,
		"TTL":        ttl,
	})
}

// ChallengeAccepted announces the start of the game.
func (f *Formatter) ChallengeAccepted(g *game.Game) string {
	return f.render("challenge.accepted", map[string]any{
		"White": g.WhiteID,
		"Black": g.BlackID,
	})
}

// AIGameStarted announces an auto-accepted game against the bot.
func (f *Formatter) AIGameStarted(g *game.Game) string {
	return f.render("challenge.ai_started", map[string]any{"White": g.WhiteID})
}

// ChallengeDeclined announces a declined challenge.
func (f *Formatter) ChallengeDeclined(c *challenge.Challenge) string {
	return f.render("challenge.declined", map[string]any{"Challenged": c.ChallengedID})
}

// MovePlayed describes the applied move, any AI reply, and the resulting
// position status.
func (f *Formatter) MovePlayed(playerID string, out *match.MoveOutcome, g *game.Game) string {
	var sb strings.Builder
	sb.WriteString(f.render("move.played", map[string]any{"Player": playerID, "SAN": out.SAN}))
	if line := f.statusLine(out.Status, g); line != "" {
		sb.WriteString(" ")
		sb.WriteString(line)
	}
	if out.AIReply != nil {
		sb.WriteString("\n")
		sb.WriteString(f.render("move.ai_played", map[string]any{"SAN": out.AIReply.SAN}))
		if line := f.statusLine(out.AIReply.Status, g); line != "" {
			sb.WriteString(" ")
			sb.WriteString(line)
		}
	}
	return sb.String()
}

func (f *Formatter) statusLine(st game.PositionStatus, g *game.Game) string {
	switch st {
	case game.PositionCheck:
		return f.render("move.check", nil)
	case game.PositionCheckmate:
		return f.render("move.checkmate", map[string]any{"Winner": winnerID(g)})
	case game.PositionStalemate:
		return f.render("move.stalemate", nil)
	case game.PositionDrawInsufficientMaterial, game.PositionDrawOther:
		return f.render("move.draw", nil)
	}
	return ""
}

func winnerID(g *game.Game) string {
	switch g.Result {
	case game.ResultWhiteWin:
		return g.WhiteID
	case game.ResultBlackWin:
		return g.BlackID
	}
	return ""
}

// Resigned announces a resignation.
func (f *Formatter) Resigned(resignerID string, g *game.Game) string {
	return f.render("resign.done", map[string]any{
		"Resigner": resignerID,
		"Winner":   winnerID(g),
	})
}

// Suggestions lists ranked candidate moves for the side to move.
func (f *Formatter) Suggestions(side string, sugs []analysis.Suggestion) string {
	if len(sugs) == 0 {
		return f.render("suggest.none", nil)
	}
	var sb strings.Builder
	sb.WriteString(f.render("suggest.header", map[string]any{"Side": side}))
	for i, s := range sugs {
		sb.WriteString("\n")
		sb.WriteString(f.render("suggest.line", map[string]any{
			"Rank":  i + 1,
			"SAN":   s.SAN,
			"Score": fmt.Sprintf("%+d", s.Score),
		}))
	}
	return sb.String()
}

// Evaluation describes a static assessment of the position.
func (f *Formatter) Evaluation(ev *match.Evaluation) string {
	return f.render("analyze.summary", map[string]any{
		"Score":   ev.Score,
		"Percent": int(math.Round(ev.WhiteWin * 100)),
	})
}

// Help lists the available commands.
func (f *Formatter) Help() string {
	return f.render("help.text", map[string]any{"Prefix": f.prefix})
}

// Error maps domain errors onto user-facing messages.
func (f *Formatter) Error(err error) string {
	var amb *game.AmbiguousMoveError
	switch {
	case errors.As(err, &amb):
		return f.render("move.ambiguous", map[string]any{
			"Candidates": strings.Join(amb.Candidates, ", "),
		})
	case errors.Is(err, game.ErrNoSuchMove):
		return f.render("move.invalid", nil)
	case errors.Is(err, game.ErrNotParticipant):
		return f.render("game.not_participant", nil)
	case errors.Is(err, game.ErrIllegalActor):
		return f.render("game.not_your_turn", nil)
	case errors.Is(err, game.ErrTerminalGame):
		return f.render("game.finished", nil)
	case errors.Is(err, game.ErrChannelBusy):
		return f.render("game.busy", nil)
	case errors.Is(err, game.ErrNotFound):
		return f.render("game.none", nil)
	case errors.Is(err, game.ErrConflict):
		return f.render("game.conflict", nil)
	case errors.Is(err, game.ErrStaleChallenge):
		return f.render("challenge.expired", nil)
	case errors.Is(err, challenge.ErrSelfChallenge):
		return f.render("challenge.self", nil)
	case errors.Is(err, challenge.ErrAlreadyPending):
		return f.render("challenge.already_pending", nil)
	case errors.Is(err, challenge.ErrNoPending):
		return f.render("challenge.none", nil)
	}
	return f.render("error.internal", nil)
}
