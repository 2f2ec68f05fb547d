package domain

import "time"

// DefaultGuessLimit is the number of scored guesses a team gets per puzzle
// unless the hunt overrides it.
const DefaultGuessLimit = 20

const (
	// DefaultAnswerResponse is recorded for a correct guess when the puzzle
	// has no answer response of its own.
	DefaultAnswerResponse = "You have solved this puzzle!"
	// DefaultIncorrectResponse is recorded for a wrong guess with no canned response.
	DefaultIncorrectResponse = "Incorrect"
)

// LeaderboardStyle controls how (and whether) standings are shown.
type LeaderboardStyle string

const (
	LeaderboardDefault  LeaderboardStyle = "DEF"
	LeaderboardHidden   LeaderboardStyle = "HID"
	LeaderboardSpeedrun LeaderboardStyle = "SPD"
)

// SolutionStyle controls when a puzzle's solution URL is shown to teams.
type SolutionStyle string

const (
	SolutionVisible    SolutionStyle = "VIS"
	SolutionHidden     SolutionStyle = "HID"
	SolutionAfterSolve SolutionStyle = "SOL"
)

// User is an account. Team membership, not Guess.UserID, decides who guessed.
type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"displayName,omitempty"`
	DiscordUsername string    `json:"discordUsername,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Hunt is the top-level container for puzzles and teams.
type Hunt struct {
	ID                  int64            `json:"id"`
	Name                string           `json:"name"`
	Slug                string           `json:"slug"`
	Description         string           `json:"description"`
	StartTime           *time.Time       `json:"startTime,omitempty"`
	EndTime             *time.Time       `json:"endTime,omitempty"`
	ArchiveAfterEndDate bool             `json:"archiveAfterEndDate"`
	ProgressFloor       int              `json:"progressFloor"`
	MemberLimit         int              `json:"memberLimit"`
	GuessLimit          int              `json:"guessLimit"`
	IsPrivate           bool             `json:"isPrivate"`
	LeaderboardStyle    LeaderboardStyle `json:"leaderboardStyle"`
	SolutionStyle       SolutionStyle    `json:"solutionStyle"`
	CreatedAt           time.Time        `json:"createdAt"`
}

// NewHunt returns a hunt carrying the platform defaults.
func NewHunt(name, slug string) Hunt {
	return Hunt{
		Name:             name,
		Slug:             slug,
		GuessLimit:       DefaultGuessLimit,
		LeaderboardStyle: LeaderboardDefault,
		SolutionStyle:    SolutionHidden,
	}
}

// Puzzle belongs to a hunt.
type Puzzle struct {
	ID                int64  `json:"id"`
	HuntID            int64  `json:"huntId"`
	Name              string `json:"name"`
	Slug              string `json:"slug"`
	Content           string `json:"content"`
	SolutionURL       string `json:"solutionUrl"`
	Answer            string `json:"answer"`
	AnswerResponse    string `json:"answerResponse"`
	Points            int    `json:"points"`
	Order             int    `json:"order"`
	ProgressPoints    int    `json:"progressPoints"`
	ProgressThreshold int    `json:"progressThreshold"`
}

// NewPuzzle returns a puzzle carrying the platform defaults.
func NewPuzzle(huntID int64, name, slug, answer string) Puzzle {
	return Puzzle{HuntID: huntID, Name: name, Slug: slug, Answer: answer, Points: 1}
}

// Team belongs to a hunt. Members and InvitedMembers hold user IDs.
type Team struct {
	ID             int64     `json:"id"`
	HuntID         int64     `json:"huntId"`
	Name           string    `json:"name"`
	Members        []int64   `json:"members"`
	InvitedMembers []int64   `json:"invitedMembers"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasMember reports whether userID is a member of the team.
func (t Team) HasMember(userID int64) bool {
	return containsID(t.Members, userID)
}

// IsInvited reports whether userID has a pending invitation.
func (t Team) IsInvited(userID int64) bool {
	return containsID(t.InvitedMembers, userID)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Guess is one attempt by a team on a puzzle.
type Guess struct {
	ID            int64     `json:"id"`
	TeamID        int64     `json:"teamId"`
	PuzzleID      int64     `json:"puzzleId"`
	UserID        *int64    `json:"userId,omitempty"`
	Guess         string    `json:"guess"`
	Correct       bool      `json:"correct"`
	Response      string    `json:"response"`
	CountsAsGuess bool      `json:"countsAsGuess"`
	Time          time.Time `json:"time"`
}

// GuessResponse is a canned reply to a specific wrong guess, typically a
// "keep going" nudge or an intermediate cluephrase confirmation.
type GuessResponse struct {
	ID       int64  `json:"id"`
	PuzzleID int64  `json:"puzzleId"`
	Guess    string `json:"guess"`
	Response string `json:"response"`
}

// ExtraGuessGrant adjusts one team's allowance on one puzzle. Negative values
// take guesses away.
type ExtraGuessGrant struct {
	ID           int64 `json:"id"`
	TeamID       int64 `json:"teamId"`
	PuzzleID     int64 `json:"puzzleId"`
	ExtraGuesses int   `json:"extraGuesses"`
}

// Standing is one team's row on the leaderboard.
type Standing struct {
	TeamID     int64      `json:"teamId"`
	TeamName   string     `json:"teamName"`
	Score      int        `json:"score"`
	SolveCount int        `json:"solveCount"`
	LastSolve  *time.Time `json:"lastSolve,omitempty"`
}

// Leaderboard is the ordered standings for a hunt.
type Leaderboard struct {
	HuntID    int64            `json:"huntId"`
	Style     LeaderboardStyle `json:"style"`
	Entries   []Standing       `json:"entries"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// PuzzleStats are hunt-page counters for one puzzle.
type PuzzleStats struct {
	SolveCount int `json:"solveCount"`
	GuessCount int `json:"guessCount"`
}

// Viewer identifies who is making a request. The zero value is anonymous.
type Viewer struct {
	UserID int64
}

// Anonymous reports whether the viewer is not logged in.
func (v Viewer) Anonymous() bool { return v.UserID == 0 }
