package app

import (
	"context"

	"hunt-service/internal/domain"
)

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id int64) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	// DeleteUser keeps the user's guesses with their attribution cleared.
	DeleteUser(ctx context.Context, id int64) error
}

// HuntRepository persists hunts and their organizers.
type HuntRepository interface {
	// CreateHunt stores the hunt and makes organizerID its first organizer.
	CreateHunt(ctx context.Context, hunt *domain.Hunt, organizerID int64) error
	GetHunt(ctx context.Context, id int64) (domain.Hunt, error)
	ListHunts(ctx context.Context) ([]domain.Hunt, error)
	UpdateHunt(ctx context.Context, hunt *domain.Hunt) error
	// DeleteHunt cascades to puzzles, teams and everything they own.
	DeleteHunt(ctx context.Context, id int64) error
	AddOrganizer(ctx context.Context, huntID, userID int64) error
	IsOrganizer(ctx context.Context, huntID, userID int64) (bool, error)
}

// PuzzleLoader is the read path the puzzle catalogs cache.
type PuzzleLoader interface {
	// ListPuzzles returns a hunt's puzzles ordered by display order, then name.
	ListPuzzles(ctx context.Context, huntID int64) ([]domain.Puzzle, error)
}

// PuzzleRepository persists puzzles with their canned guess responses.
type PuzzleRepository interface {
	CreatePuzzle(ctx context.Context, puzzle *domain.Puzzle, responses []domain.GuessResponse) error
	// UpdatePuzzle replaces the puzzle's canned responses with responses.
	UpdatePuzzle(ctx context.Context, puzzle *domain.Puzzle, responses []domain.GuessResponse) error
	GetPuzzle(ctx context.Context, huntID, puzzleID int64) (domain.Puzzle, error)
	ListGuessResponses(ctx context.Context, puzzleID int64) ([]domain.GuessResponse, error)
	DeletePuzzle(ctx context.Context, huntID, puzzleID int64) error
}

// TeamRepository persists teams, members and invitations.
type TeamRepository interface {
	// CreateTeam stores the team with founderID as its only member.
	CreateTeam(ctx context.Context, team *domain.Team, founderID int64) error
	GetTeam(ctx context.Context, id int64) (domain.Team, error)
	TeamForUser(ctx context.Context, huntID, userID int64) (domain.Team, error)
	ListTeams(ctx context.Context, huntID int64) ([]domain.Team, error)
	InvitingTeams(ctx context.Context, huntID, userID int64) ([]domain.Team, error)
	AddInvite(ctx context.Context, teamID, userID int64) error
	// AcceptInvite turns a pending invitation into a membership. It returns
	// domain.ErrTeamFull when the team already has memberLimit members; a
	// limit of 0 means unlimited.
	AcceptInvite(ctx context.Context, teamID, userID int64, memberLimit int) error
	DeleteTeam(ctx context.Context, id int64) error
}

// GuessFilter narrows ListGuesses. Zero fields match everything.
type GuessFilter struct {
	TeamID   int64
	PuzzleID int64
}

// GuessRepository is the guess ledger.
type GuessRepository interface {
	// CreateGuess returns domain.ErrAlreadySolved when a correct guess for the
	// same team and puzzle already exists.
	CreateGuess(ctx context.Context, guess *domain.Guess) error
	// ListGuesses returns matching guesses oldest first.
	ListGuesses(ctx context.Context, filter GuessFilter) ([]domain.Guess, error)
	CountScoredGuesses(ctx context.Context, teamID, puzzleID int64) (int, error)
	HasGuessed(ctx context.Context, teamID, puzzleID int64, guess string) (bool, error)
	IsSolved(ctx context.Context, teamID, puzzleID int64) (bool, error)
}

// GrantRepository persists extra guess grants.
type GrantRepository interface {
	CreateGrant(ctx context.Context, grant *domain.ExtraGuessGrant) error
	UpdateGrant(ctx context.Context, grant *domain.ExtraGuessGrant) error
	GetGrant(ctx context.Context, teamID, puzzleID int64) (domain.ExtraGuessGrant, error)
}

// Store bundles every repository the service writes through.
type Store interface {
	UserRepository
	HuntRepository
	PuzzleRepository
	TeamRepository
	GuessRepository
	GrantRepository
}

// ProgressReader answers aggregate questions straight from the guess ledger.
// Implementations must not cache: progress is always recomputed.
type ProgressReader interface {
	// SolvedProgressPoints sums progress points over puzzles the team solved.
	SolvedProgressPoints(ctx context.Context, teamID int64) (int, error)
	// SolvedPuzzles maps solved puzzle IDs to the correct guess text.
	SolvedPuzzles(ctx context.Context, teamID int64) (map[int64]string, error)
	// TeamStandings returns one unordered row per team in the hunt.
	TeamStandings(ctx context.Context, huntID int64) ([]domain.Standing, error)
	PuzzleStats(ctx context.Context, huntID int64) (map[int64]domain.PuzzleStats, error)
}

// PuzzleCatalog serves a hunt's puzzle list, possibly from a cache.
type PuzzleCatalog interface {
	Puzzles(ctx context.Context, huntID int64) ([]domain.Puzzle, error)
	Invalidate(ctx context.Context, huntID int64) error
}

// FeedRepository tracks live leaderboard feeds (in-memory, Redis, etc).
// Joining a feed and dropping an empty one happen under the same lock, so a
// new subscriber never lands on a feed that was just unregistered.
type FeedRepository interface {
	// Subscribe joins the hunt's feed, creating it when needed. cancel
	// detaches the subscriber and drops the feed once it is empty.
	Subscribe(ctx context.Context, huntID int64, initial domain.Leaderboard) (<-chan domain.Leaderboard, func(), error)
	// Watched reports whether any subscriber may be listening for the hunt.
	Watched(ctx context.Context, huntID int64) bool
	// Publish delivers a snapshot to the hunt's subscribers.
	Publish(ctx context.Context, lb domain.Leaderboard) error
}
