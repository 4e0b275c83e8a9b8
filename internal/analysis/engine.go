// Package analysis provides a small built-in evaluator used for move
// suggestions and the AI opponent. Scores are centipawns from white's
// perspective.
package analysis

import (
	"math"
	"sort"

	nchess "github.com/corentings/chess/v2"
)

const (
	// DefaultDepth is the search depth for the AI opponent.
	DefaultDepth = 2
	// DefaultSuggestions is how many candidate moves Suggest returns.
	DefaultSuggestions = 3

	mateScore = 10000
)

var pieceValues = map[nchess.PieceType]int{
	nchess.Pawn:   100,
	nchess.Knight: 320,
	nchess.Bishop: 330,
	nchess.Rook:   500,
	nchess.Queen:  900,
	nchess.King:   20000,
}

// pawnTable rewards advanced and central pawns; indexed rank*8+file from
// white's side, mirrored for black.
var pawnTable = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, -20, -20, 10, 10, 5,
	5, -5, -10, 0, 0, -10, -5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, 5, 10, 25, 25, 10, 5, 5,
	10, 10, 20, 30, 30, 20, 10, 10,
	50, 50, 50, 50, 50, 50, 50, 50,
	0, 0, 0, 0, 0, 0, 0, 0,
}

// Suggestion is one candidate move with its one-ply evaluation.
type Suggestion struct {
	SAN   string
	UCI   string
	Score int
}

// Evaluate scores a position in centipawns from white's perspective:
// material plus pawn placement plus a small mobility bonus. Terminal
// positions collapse to the mate score or zero.
func Evaluate(pos *nchess.Position) int {
	switch pos.Status() {
	case nchess.Checkmate:
		if pos.Turn() == nchess.White {
			return -mateScore
		}
		return mateScore
	case nchess.Stalemate:
		return 0
	}

	score := 0
	for sq, piece := range pos.Board().SquareMap() {
		value := pieceValues[piece.Type()]
		if piece.Type() == nchess.Pawn {
			idx := int(sq)
			if piece.Color() == nchess.Black {
				idx = 63 - idx
			}
			value += pawnTable[idx]
		}
		if piece.Color() == nchess.White {
			score += value
		} else {
			score -= value
		}
	}

	mobility := len(pos.ValidMoves())
	if pos.Turn() == nchess.White {
		score += mobility
	} else {
		score -= mobility
	}
	return score
}

// BestMove searches the position to the given depth and returns the best
// move for the side to move, or nil when the game is over.
func BestMove(pos *nchess.Position, depth int) *nchess.Move {
	if depth < 1 {
		depth = 1
	}
	legal := pos.ValidMoves()
	if len(legal) == 0 {
		return nil
	}

	var best *nchess.Move
	bestScore := math.MinInt
	alpha, beta := math.MinInt+1, math.MaxInt-1
	for i := range legal {
		mv := legal[i]
		child := pos.Update(&mv)
		if child == nil {
			continue
		}
		score := -negamax(child, depth-1, -beta, -alpha)
		if score > bestScore {
			bestScore = score
			best = &legal[i]
		}
		if score > alpha {
			alpha = score
		}
	}
	return best
}

// negamax returns the score of pos from the side to move's perspective.
func negamax(pos *nchess.Position, depth int, alpha, beta int) int {
	legal := pos.ValidMoves()
	if depth == 0 || len(legal) == 0 {
		return sideScore(pos)
	}
	best := math.MinInt + 1
	for i := range legal {
		mv := legal[i]
		child := pos.Update(&mv)
		if child == nil {
			continue
		}
		score := -negamax(child, depth-1, -beta, -alpha)
		if score > best {
			best = score
		}
		if score > alpha {
			alpha = score
		}
		if alpha >= beta {
			break
		}
	}
	return best
}

func sideScore(pos *nchess.Position) int {
	score := Evaluate(pos)
	if pos.Turn() == nchess.Black {
		return -score
	}
	return score
}

// Suggest evaluates every legal move one ply deep and returns the n best
// for the side to move, strongest first.
func Suggest(pos *nchess.Position, n int) []Suggestion {
	if n <= 0 {
		n = DefaultSuggestions
	}
	legal := pos.ValidMoves()
	if len(legal) == 0 {
		return nil
	}

	out := make([]Suggestion, 0, len(legal))
	for i := range legal {
		mv := legal[i]
		child := pos.Update(&mv)
		if child == nil {
			continue
		}
		out = append(out, Suggestion{
			SAN:   nchess.AlgebraicNotation{}.Encode(pos, &mv),
			UCI:   nchess.UCINotation{}.Encode(pos, &mv),
			Score: Evaluate(child),
		})
	}

	white := pos.Turn() == nchess.White
	sort.SliceStable(out, func(i, j int) bool {
		if white {
			return out[i].Score > out[j].Score
		}
		return out[i].Score < out[j].Score
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// WinProbability maps a white-perspective centipawn score onto white's
// winning chances using the usual logistic curve.
func WinProbability(score int) float64 {
	return 1.0 / (1.0 + math.Pow(10, -float64(score)/400.0))
}
