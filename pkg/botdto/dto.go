// Package botdto carries the view types exchanged between the match layer
// and chat presentation.
package botdto

import "time"

type DomainError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess bot error"
}

// GameView is the presentation snapshot of one game.
type GameView struct {
	GameID    string
	ChannelID string
	WhiteID   string
	BlackID   string
	FEN       string
	Turn      string
	Status    string
	Result    string
	LastSAN   string
	LastUCI   string
	MoveCount int
	UpdatedAt time.Time
}

// SuggestionView is one ranked candidate move.
type SuggestionView struct {
	Rank  int
	SAN   string
	UCI   string
	Score int
}

// EvaluationView summarises a static position assessment.
type EvaluationView struct {
	ScoreCP      int
	WhiteWinPerc int
	Status       string
}
