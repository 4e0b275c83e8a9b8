package game

import (
	"fmt"
	"strings"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

// Errors shared across the game core. All of them are recoverable at the
// caller boundary; none terminate the process.
var (
	// ErrNoSuchMove is returned when move text corresponds to no legal move
	// in the current position.
	ErrNoSuchMove = staticErr("move matches no legal move in this position")
	// ErrIllegalActor is returned when it is not the acting user's turn, or
	// the user may not answer this challenge.
	ErrIllegalActor = staticErr("not this user's turn")
	// ErrNotParticipant is returned when the acting user is not seated in
	// the game at all.
	ErrNotParticipant = staticErr("user is not a participant in this game")
	// ErrTerminalGame is returned for any mutation attempt on a finished game.
	ErrTerminalGame = staticErr("game already finished")
	// ErrChannelBusy is returned when a channel already hosts an active game.
	ErrChannelBusy = staticErr("channel already has an active game")
	// ErrStaleChallenge is returned on accept/decline of a non-pending challenge.
	ErrStaleChallenge = staticErr("challenge is no longer pending")
	// ErrNotFound is returned when no game or challenge exists for a key.
	ErrNotFound = staticErr("not found")
	// ErrConflict signals a concurrent update to the same game; the losing
	// request must retry against fresh state.
	ErrConflict = staticErr("concurrent update detected")
)

// AmbiguousMoveError is returned when move text matches two or more legal
// moves. Candidates carries the SAN of every matching move so the
// presentation layer can ask the user to disambiguate.
type AmbiguousMoveError struct {
	Input      string
	Candidates []string
}

func (e *AmbiguousMoveError) Error() string {
	return fmt.Sprintf("move %q is ambiguous between %s", e.Input, strings.Join(e.Candidates, ", "))
}

// PersistenceError wraps a durable-store failure. The in-memory state of the
// game is unchanged when one is returned; callers must retry or surface it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }
