package game

import (
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
)

const startingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// New creates an ongoing game bound to a channel. The challenger
// conventionally plays white.
func New(channelID, whiteID, blackID string) *Game {
	now := time.Now().UTC()
	return &Game{
		ID:        uuid.NewString(),
		ChannelID: strings.TrimSpace(channelID),
		WhiteID:   strings.TrimSpace(whiteID),
		BlackID:   strings.TrimSpace(blackID),
		FEN:       startingFEN,
		MovesUCI:  []string{},
		MovesSAN:  []string{},
		Turn:      White,
		Status:    StatusOngoing,
		Result:    ResultNone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Finished reports whether the game accepts no further moves.
func (g *Game) Finished() bool { return g.Status == StatusFinished }

// PlayerColor returns the side a participant plays, if any.
func (g *Game) PlayerColor(userID string) (Color, bool) {
	switch userID {
	case "":
		return "", false
	case g.WhiteID:
		return White, true
	case g.BlackID:
		return Black, true
	}
	return "", false
}

// OpponentID returns the other participant's id, or "" for a non-participant.
func (g *Game) OpponentID(userID string) string {
	if g.WhiteID == userID {
		return g.BlackID
	}
	if g.BlackID == userID {
		return g.WhiteID
	}
	return ""
}

// ToMoveID returns the participant whose turn it is.
func (g *Game) ToMoveID() string {
	if g.Turn == White {
		return g.WhiteID
	}
	return g.BlackID
}

// Rebuild reconstructs the rules-engine state from the move history.
func (g *Game) Rebuild() (*nchess.Game, error) {
	return Replay(g.MovesUCI)
}

// ApplyResolved commits a resolved move: the engine advances, canonical
// notation is appended to the history, and status/result are recomputed.
// eng must be the engine Rebuild returned for this game.
func (g *Game) ApplyResolved(eng *nchess.Game, rm *ResolvedMove) error {
	if g.Finished() {
		return ErrTerminalGame
	}
	if err := Apply(eng, rm.Move); err != nil {
		return err
	}
	g.MovesUCI = append(g.MovesUCI, rm.UCI)
	g.MovesSAN = append(g.MovesSAN, rm.SAN)
	g.FEN = eng.FEN()
	g.Turn = colorFrom(eng.Position().Turn())
	g.UpdatedAt = time.Now().UTC()

	switch eng.Outcome() {
	case nchess.WhiteWon:
		g.Status = StatusFinished
		g.Result = ResultWhiteWin
	case nchess.BlackWon:
		g.Status = StatusFinished
		g.Result = ResultBlackWin
	case nchess.Draw:
		g.Status = StatusFinished
		g.Result = ResultDraw
	}
	return nil
}

// FinishByResignation ends the game in favor of the resigner's opponent.
func (g *Game) FinishByResignation(resignerID string) error {
	if g.Finished() {
		return ErrTerminalGame
	}
	color, ok := g.PlayerColor(resignerID)
	if !ok {
		return ErrNotParticipant
	}
	g.Status = StatusFinished
	if color == White {
		g.Result = ResultBlackWin
	} else {
		g.Result = ResultWhiteWin
	}
	g.UpdatedAt = time.Now().UTC()
	return nil
}

// LastMoveUCI returns the most recent move in canonical notation, or "".
func (g *Game) LastMoveUCI() string {
	if n := len(g.MovesUCI); n > 0 {
		return g.MovesUCI[n-1]
	}
	return ""
}

// PGN renders the game as portable game notation with minimal headers.
func (g *Game) PGN() string {
	var b strings.Builder
	date := g.UpdatedAt
	if date.IsZero() {
		date = time.Now().UTC()
	}
	result := g.pgnResult()
	b.WriteString("[Event \"Chessmate Game\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(g.WhiteID)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(g.BlackID)))
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	for i := 0; i < len(g.MovesSAN); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(g.MovesSAN[i])))
		if i+1 < len(g.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(g.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

func (g *Game) pgnResult() string {
	switch g.Result {
	case ResultWhiteWin:
		return "1-0"
	case ResultBlackWin:
		return "0-1"
	case ResultDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
