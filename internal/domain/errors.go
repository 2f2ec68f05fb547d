package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation so callers can map it to a response
// without matching individual sentinels.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// Error is a rejection with a stable kind. Sentinels below are compared by
// identity with errors.Is.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	// ErrUserNotFound is returned when a user lookup misses.
	ErrUserNotFound = newError(KindNotFound, "user not found")

	// ErrHuntNotFound is returned for missing hunts and for private hunts the
	// caller may not see.
	ErrHuntNotFound = newError(KindNotFound, "hunt not found")

	// ErrPuzzleNotFound is returned for missing puzzles and puzzles still locked
	// for the caller.
	ErrPuzzleNotFound = newError(KindNotFound, "puzzle not found")

	ErrTeamNotFound  = newError(KindNotFound, "team not found")
	ErrGrantNotFound = newError(KindNotFound, "extra guess grant not found")

	ErrUsernameTaken          = newError(KindConflict, "username already taken")
	ErrHuntSlugTaken          = newError(KindConflict, "a hunt with that slug already exists")
	ErrTeamNameTaken          = newError(KindConflict, "a team with that name already exists in this hunt")
	ErrDuplicateGuessResponse = newError(KindConflict, "puzzle already has a response for that guess")
	ErrDuplicateGrant         = newError(KindConflict, "team already has an extra guess grant for this puzzle")
	ErrAlreadyOrganizer       = newError(KindConflict, "user is already an organizer")

	// ErrAlreadySolved covers both a guess on a solved puzzle and the loser of
	// a concurrent correct-guess race.
	ErrAlreadySolved = newError(KindConflict, "you have already solved the puzzle")

	ErrDuplicateGuess    = newError(KindConflict, "you have already guessed that answer")
	ErrGuessLimitReached = newError(KindConflict, "no guesses remaining for this puzzle")

	ErrAlreadyOnTeam   = newError(KindConflict, "you are already in a team")
	ErrAlreadyMember   = newError(KindConflict, "that user is already in the team")
	ErrAlreadyInvited  = newError(KindConflict, "that user has already been invited")
	ErrUserIsOrganizer = newError(KindConflict, "that user is an organizer")
	ErrTeamFull        = newError(KindConflict, "team has reached the member limit")
	ErrNotInvited      = newError(KindForbidden, "you don't have an invitation to that team")
	ErrNotOnTeam       = newError(KindForbidden, "you are not in a team for this hunt")

	ErrNotOrganizer      = newError(KindForbidden, "only organizers may do that")
	ErrNotAccountOwner   = newError(KindForbidden, "you may only change your own account")
	ErrLeaderboardHidden = newError(KindForbidden, "the leaderboard for this hunt is hidden")
	ErrAuthRequired      = newError(KindUnauthenticated, "authentication required")
)

// ValidationError reports a field constraint violation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// KindOf reports the kind of a rejection, or KindInternal for anything else.
func KindOf(err error) Kind {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return KindValidation
	}
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Kind
	}
	return KindInternal
}
