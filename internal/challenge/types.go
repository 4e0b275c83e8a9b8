// Package challenge manages the invitation handshake that precedes a game:
// one pending challenge per channel, resolved by exactly one transition.
package challenge

import (
	"errors"
	"strings"
	"time"
)

type State string

const (
	StatePending  State = "PENDING"
	StateAccepted State = "ACCEPTED"
	StateDeclined State = "DECLINED"
	StateExpired  State = "EXPIRED"
)

// DefaultTTL is how long a pending challenge stays answerable.
const DefaultTTL = 5 * time.Minute

var (
	ErrInvalidArgs    = errors.New("invalid arguments")
	ErrSelfChallenge  = errors.New("cannot challenge yourself")
	ErrAlreadyPending = errors.New("channel already has a pending challenge")
	ErrNoPending      = errors.New("no pending challenge in channel")
)

type Challenge struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channel_id"`
	ChallengerID string    `json:"challenger_id"`
	ChallengedID string    `json:"challenged_id"`
	State        State     `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the challenge's answer window has closed.
func (c *Challenge) ExpiredAt(now time.Time) bool {
	return c.State == StatePending && now.After(c.ExpiresAt)
}

// Addressee reports whether userID may answer this challenge.
func (c *Challenge) Addressee(userID string) bool {
	return strings.TrimSpace(userID) != "" && userID == c.ChallengedID
}
