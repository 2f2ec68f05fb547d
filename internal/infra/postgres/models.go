package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"hunt-service/internal/domain"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID              int64     `bun:"id,pk,autoincrement"`
	Username        string    `bun:"username,notnull"`
	DisplayName     string    `bun:"display_name,notnull"`
	DiscordUsername string    `bun:"discord_username,notnull"`
	Bio             string    `bun:"bio,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
}

func (m userModel) toDomain() domain.User {
	return domain.User{
		ID:              m.ID,
		Username:        m.Username,
		DisplayName:     m.DisplayName,
		DiscordUsername: m.DiscordUsername,
		Bio:             m.Bio,
		CreatedAt:       m.CreatedAt,
	}
}

func newUserModel(u domain.User) *userModel {
	return &userModel{
		ID:              u.ID,
		Username:        u.Username,
		DisplayName:     u.DisplayName,
		DiscordUsername: u.DiscordUsername,
		Bio:             u.Bio,
		CreatedAt:       u.CreatedAt,
	}
}

type huntModel struct {
	bun.BaseModel `bun:"table:hunts,alias:h"`

	ID                  int64      `bun:"id,pk,autoincrement"`
	Name                string     `bun:"name,notnull"`
	Slug                string     `bun:"slug,notnull"`
	Description         string     `bun:"description,notnull"`
	StartTime           *time.Time `bun:"start_time"`
	EndTime             *time.Time `bun:"end_time"`
	ArchiveAfterEndDate bool       `bun:"archive_after_end_date,notnull"`
	ProgressFloor       int        `bun:"progress_floor,notnull"`
	MemberLimit         int        `bun:"member_limit,notnull"`
	GuessLimit          int        `bun:"guess_limit,notnull"`
	IsPrivate           bool       `bun:"is_private,notnull"`
	LeaderboardStyle    string     `bun:"leaderboard_style,notnull"`
	SolutionStyle       string     `bun:"solution_style,notnull"`
	CreatedAt           time.Time  `bun:"created_at,notnull"`
}

func (m huntModel) toDomain() domain.Hunt {
	return domain.Hunt{
		ID:                  m.ID,
		Name:                m.Name,
		Slug:                m.Slug,
		Description:         m.Description,
		StartTime:           m.StartTime,
		EndTime:             m.EndTime,
		ArchiveAfterEndDate: m.ArchiveAfterEndDate,
		ProgressFloor:       m.ProgressFloor,
		MemberLimit:         m.MemberLimit,
		GuessLimit:          m.GuessLimit,
		IsPrivate:           m.IsPrivate,
		LeaderboardStyle:    domain.LeaderboardStyle(m.LeaderboardStyle),
		SolutionStyle:       domain.SolutionStyle(m.SolutionStyle),
		CreatedAt:           m.CreatedAt,
	}
}

func newHuntModel(h domain.Hunt) *huntModel {
	return &huntModel{
		ID:                  h.ID,
		Name:                h.Name,
		Slug:                h.Slug,
		Description:         h.Description,
		StartTime:           h.StartTime,
		EndTime:             h.EndTime,
		ArchiveAfterEndDate: h.ArchiveAfterEndDate,
		ProgressFloor:       h.ProgressFloor,
		MemberLimit:         h.MemberLimit,
		GuessLimit:          h.GuessLimit,
		IsPrivate:           h.IsPrivate,
		LeaderboardStyle:    string(h.LeaderboardStyle),
		SolutionStyle:       string(h.SolutionStyle),
		CreatedAt:           h.CreatedAt,
	}
}

type organizerModel struct {
	bun.BaseModel `bun:"table:hunt_organizers,alias:ho"`

	HuntID int64 `bun:"hunt_id,pk"`
	UserID int64 `bun:"user_id,pk"`
}

type puzzleModel struct {
	bun.BaseModel `bun:"table:puzzles,alias:p"`

	ID                int64  `bun:"id,pk,autoincrement"`
	HuntID            int64  `bun:"hunt_id,notnull"`
	Name              string `bun:"name,notnull"`
	Slug              string `bun:"slug,notnull"`
	Content           string `bun:"content,notnull"`
	SolutionURL       string `bun:"solution_url,notnull"`
	Answer            string `bun:"answer,notnull"`
	AnswerResponse    string `bun:"answer_response,notnull"`
	Points            int    `bun:"points,notnull"`
	Order             int    `bun:"order,notnull"`
	ProgressPoints    int    `bun:"progress_points,notnull"`
	ProgressThreshold int    `bun:"progress_threshold,notnull"`
}

func (m puzzleModel) toDomain() domain.Puzzle {
	return domain.Puzzle{
		ID:                m.ID,
		HuntID:            m.HuntID,
		Name:              m.Name,
		Slug:              m.Slug,
		Content:           m.Content,
		SolutionURL:       m.SolutionURL,
		Answer:            m.Answer,
		AnswerResponse:    m.AnswerResponse,
		Points:            m.Points,
		Order:             m.Order,
		ProgressPoints:    m.ProgressPoints,
		ProgressThreshold: m.ProgressThreshold,
	}
}

func newPuzzleModel(p domain.Puzzle) *puzzleModel {
	return &puzzleModel{
		ID:                p.ID,
		HuntID:            p.HuntID,
		Name:              p.Name,
		Slug:              p.Slug,
		Content:           p.Content,
		SolutionURL:       p.SolutionURL,
		Answer:            p.Answer,
		AnswerResponse:    p.AnswerResponse,
		Points:            p.Points,
		Order:             p.Order,
		ProgressPoints:    p.ProgressPoints,
		ProgressThreshold: p.ProgressThreshold,
	}
}

type guessResponseModel struct {
	bun.BaseModel `bun:"table:guess_responses,alias:gr"`

	ID       int64  `bun:"id,pk,autoincrement"`
	PuzzleID int64  `bun:"puzzle_id,notnull"`
	Guess    string `bun:"guess,notnull"`
	Response string `bun:"response,notnull"`
}

func (m guessResponseModel) toDomain() domain.GuessResponse {
	return domain.GuessResponse{ID: m.ID, PuzzleID: m.PuzzleID, Guess: m.Guess, Response: m.Response}
}

type teamModel struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID        int64     `bun:"id,pk,autoincrement"`
	HuntID    int64     `bun:"hunt_id,notnull"`
	Name      string    `bun:"name,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type teamMemberModel struct {
	bun.BaseModel `bun:"table:team_members,alias:tm"`

	TeamID int64 `bun:"team_id,pk"`
	HuntID int64 `bun:"hunt_id,notnull"`
	UserID int64 `bun:"user_id,pk"`
}

type teamInviteModel struct {
	bun.BaseModel `bun:"table:team_invites,alias:ti"`

	TeamID int64 `bun:"team_id,pk"`
	UserID int64 `bun:"user_id,pk"`
}

type guessModel struct {
	bun.BaseModel `bun:"table:guesses,alias:g"`

	ID            int64     `bun:"id,pk,autoincrement"`
	TeamID        int64     `bun:"team_id,notnull"`
	PuzzleID      int64     `bun:"puzzle_id,notnull"`
	UserID        *int64    `bun:"user_id"`
	Guess         string    `bun:"guess,notnull"`
	Correct       bool      `bun:"correct,notnull"`
	Response      string    `bun:"response,notnull"`
	CountsAsGuess bool      `bun:"counts_as_guess,notnull"`
	Time          time.Time `bun:"time,notnull"`
}

func (m guessModel) toDomain() domain.Guess {
	return domain.Guess{
		ID:            m.ID,
		TeamID:        m.TeamID,
		PuzzleID:      m.PuzzleID,
		UserID:        m.UserID,
		Guess:         m.Guess,
		Correct:       m.Correct,
		Response:      m.Response,
		CountsAsGuess: m.CountsAsGuess,
		Time:          m.Time,
	}
}

type grantModel struct {
	bun.BaseModel `bun:"table:extra_guess_grants,alias:eg"`

	ID           int64 `bun:"id,pk,autoincrement"`
	TeamID       int64 `bun:"team_id,notnull"`
	PuzzleID     int64 `bun:"puzzle_id,notnull"`
	ExtraGuesses int   `bun:"extra_guesses,notnull"`
}

func (m grantModel) toDomain() domain.ExtraGuessGrant {
	return domain.ExtraGuessGrant{ID: m.ID, TeamID: m.TeamID, PuzzleID: m.PuzzleID, ExtraGuesses: m.ExtraGuesses}
}
