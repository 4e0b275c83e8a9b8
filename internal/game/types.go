package game

import (
	"time"
)

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Status represents the lifecycle state of a game.
type Status string

const (
	StatusOngoing  Status = "ONGOING"
	StatusFinished Status = "FINISHED"
)

// Result is the outcome of a finished game. ResultNone while ongoing.
type Result string

const (
	ResultNone     Result = "none"
	ResultWhiteWin Result = "white_win"
	ResultBlackWin Result = "black_win"
	ResultDraw     Result = "draw"
)

// AIPlayerID is the sentinel participant id for an engine-controlled opponent.
const AIPlayerID = "#ai"

// Game is the persisted state of one match. All board mutation goes
// through ResolveMove/ApplyResolved; consumers read only.
type Game struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	WhiteID   string    `json:"white_id"`
	BlackID   string    `json:"black_id"`
	FEN       string    `json:"fen"`
	MovesUCI  []string  `json:"moves_uci"`
	MovesSAN  []string  `json:"moves_san"`
	Turn      Color     `json:"turn"`
	Status    Status    `json:"status"`
	Result    Result    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
