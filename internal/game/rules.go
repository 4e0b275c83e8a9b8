package game

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

// PositionStatus classifies the current position from the side to move's
// perspective, as reported by the rules library.
type PositionStatus int

const (
	PositionNormal PositionStatus = iota
	PositionCheck
	PositionCheckmate
	PositionStalemate
	PositionDrawInsufficientMaterial
	PositionDrawOther
)

func (s PositionStatus) String() string {
	switch s {
	case PositionCheck:
		return "check"
	case PositionCheckmate:
		return "checkmate"
	case PositionStalemate:
		return "stalemate"
	case PositionDrawInsufficientMaterial:
		return "draw_insufficient_material"
	case PositionDrawOther:
		return "draw_other"
	default:
		return "normal"
	}
}

// Replay reconstructs a rules-engine game by applying the stored UCI history
// from the initial position. The FEN snapshot on Game is presentation state
// only; replay is the source of truth.
func Replay(movesUCI []string) (*nchess.Game, error) {
	eng := nchess.NewGame()
	for i, mv := range movesUCI {
		if err := eng.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay move %d (%s): %w", i+1, mv, err)
		}
	}
	return eng, nil
}

// LegalMoves returns every legal move in the engine's current position.
func LegalMoves(eng *nchess.Game) []nchess.Move {
	return eng.ValidMoves()
}

// Apply plays a move that must already be legal.
func Apply(eng *nchess.Game, mv *nchess.Move) error {
	if err := eng.Move(mv, nil); err != nil {
		return fmt.Errorf("apply %s: %w", mv.String(), err)
	}
	return nil
}

// Classify reports the position status after the engine's last move.
func Classify(eng *nchess.Game) PositionStatus {
	switch eng.Method() {
	case nchess.Checkmate:
		return PositionCheckmate
	case nchess.Stalemate:
		return PositionStalemate
	case nchess.InsufficientMaterial:
		return PositionDrawInsufficientMaterial
	case nchess.FivefoldRepetition, nchess.SeventyFiveMoveRule:
		return PositionDrawOther
	}
	if eng.Outcome() == nchess.Draw {
		return PositionDrawOther
	}
	if last := lastEngineMove(eng); last != nil && last.HasTag(nchess.Check) {
		return PositionCheck
	}
	return PositionNormal
}

func lastEngineMove(eng *nchess.Game) *nchess.Move {
	moves := eng.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}
