package game

import (
	"sort"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// ResolvedMove is the unambiguous outcome of parsing human move text.
type ResolvedMove struct {
	Move *nchess.Move
	UCI  string
	SAN  string
}

// ResolveMove turns free-form move text into exactly one legal move, or
// fails with ErrNoSuchMove / AmbiguousMoveError.
//
// Coordinate notation is tried first because it is unambiguous by
// construction; algebraic notation is only consulted when coordinate
// parsing fails syntactically or names an illegal move. The ordering
// matters: some strings parse under both schemes.
func ResolveMove(eng *nchess.Game, text string) (*ResolvedMove, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, ErrNoSuchMove
	}
	norm := normalizeMoveText(raw)
	pos := eng.Position()
	legal := eng.ValidMoves()

	if looksCoordinate(norm) {
		if mv, err := (nchess.UCINotation{}).Decode(pos, strings.ToLower(norm)); err == nil {
			for i := range legal {
				m := &legal[i]
				if m.S1() == mv.S1() && m.S2() == mv.S2() && m.Promo() == mv.Promo() {
					return &ResolvedMove{
						Move: m,
						UCI:  nchess.UCINotation{}.Encode(pos, m),
						SAN:  nchess.AlgebraicNotation{}.Encode(pos, m),
					}, nil
				}
			}
			// Syntactically valid coordinate text naming an illegal move
			// falls through to the algebraic interpretation.
		}
	}

	wanted := stripDecorations(norm)
	var (
		matches []int
		sans    []string
	)
	for i := range legal {
		m := &legal[i]
		san := nchess.AlgebraicNotation{}.Encode(pos, m)
		if _, ok := sanVariants(pos, m, san)[wanted]; ok {
			matches = append(matches, i)
			sans = append(sans, san)
		}
	}
	switch len(matches) {
	case 0:
		return nil, ErrNoSuchMove
	case 1:
		m := &legal[matches[0]]
		return &ResolvedMove{
			Move: m,
			UCI:  nchess.UCINotation{}.Encode(pos, m),
			SAN:  sans[0],
		}, nil
	default:
		sort.Strings(sans)
		return nil, &AmbiguousMoveError{Input: raw, Candidates: sans}
	}
}

// normalizeMoveText trims the input and maps the castling spellings
// 0-0 / 0-0-0 / o-o / o-o-o onto canonical O-O / O-O-O. Piece-letter case
// is otherwise preserved (b4 is a pawn push, Bb4 a bishop move).
func normalizeMoveText(s string) string {
	switch strings.ToLower(s) {
	case "o-o", "0-0", "oo", "00":
		return "O-O"
	case "o-o-o", "0-0-0", "ooo", "000":
		return "O-O-O"
	}
	return s
}

// looksCoordinate reports whether s is syntactically valid coordinate
// notation: <from><to>[promotion].
func looksCoordinate(s string) bool {
	if len(s) != 4 && len(s) != 5 {
		return false
	}
	s = strings.ToLower(s)
	if !validSquare(s[0], s[1]) || !validSquare(s[2], s[3]) {
		return false
	}
	if len(s) == 5 && !strings.ContainsRune("nbrq", rune(s[4])) {
		return false
	}
	return true
}

func validSquare(file, rank byte) bool {
	return file >= 'a' && file <= 'h' && rank >= '1' && rank <= '8'
}

// stripDecorations removes check/mate suffixes and annotation glyphs that
// carry no disambiguating information.
func stripDecorations(s string) string {
	return strings.TrimRight(s, "+#!?")
}

// sanVariants enumerates the acceptable spellings of one legal move: the
// full SAN plus every reduced form a player may reasonably type (missing
// capture marker, missing promotion '=', missing or partial disambiguator).
// Two legal moves sharing a reduced spelling is exactly what makes input
// ambiguous.
func sanVariants(pos *nchess.Position, m *nchess.Move, san string) map[string]struct{} {
	out := make(map[string]struct{}, 8)
	add := func(v string) {
		if v != "" {
			out[v] = struct{}{}
		}
	}
	base := stripDecorations(san)
	add(base)
	add(strings.ReplaceAll(base, "x", ""))
	add(strings.ReplaceAll(base, "=", ""))
	add(strings.ReplaceAll(strings.ReplaceAll(base, "x", ""), "=", ""))

	if base == "O-O" || base == "O-O-O" {
		return out
	}

	piece := pos.Board().Piece(m.S1())
	if piece.Type() == nchess.Pawn {
		return out
	}

	// Piece moves: accept any disambiguator subset that still names this
	// move. The ambiguity check above decides whether the subset was enough.
	pc := pieceLetter(piece.Type())
	dest := m.S2().String()
	from := m.S1().String()
	suffix := promoSuffix(m)
	for _, disamb := range []string{"", from[:1], from[1:], from} {
		add(pc + disamb + dest + suffix)
		add(pc + disamb + "x" + dest + suffix)
	}
	return out
}

func pieceLetter(t nchess.PieceType) string {
	switch t {
	case nchess.King:
		return "K"
	case nchess.Queen:
		return "Q"
	case nchess.Rook:
		return "R"
	case nchess.Bishop:
		return "B"
	case nchess.Knight:
		return "N"
	default:
		return ""
	}
}

func promoSuffix(m *nchess.Move) string {
	if m.Promo() == nchess.NoPieceType {
		return ""
	}
	return pieceLetter(m.Promo())
}
