package app

import (
	"context"
	"errors"

	"hunt-service/internal/domain"
)

// GuessResult is the outcome of one submission.
type GuessResult struct {
	Guess     domain.Guess     `json:"guess"`
	Allowance domain.Allowance `json:"allowance"`
	Progress  int              `json:"progress"`
}

// SubmitGuess evaluates a guess from the viewer's team. Rejections come back
// as domain errors: already solved, out of guesses, duplicate guess or a
// locked puzzle. Canned responses do not use up a guess.
func (s *HuntService) SubmitGuess(ctx context.Context, viewer domain.Viewer, ref HuntRef, puzzleID int64, raw string) (GuessResult, error) {
	if viewer.Anonymous() {
		return GuessResult{}, domain.ErrAuthRequired
	}
	hunt, _, err := s.AuthorizeHunt(ctx, viewer, ref)
	if err != nil {
		return GuessResult{}, err
	}
	team, err := s.teamFor(ctx, viewer, hunt.ID)
	if err != nil {
		return GuessResult{}, err
	}
	if team == nil {
		return GuessResult{}, domain.ErrNotOnTeam
	}
	puzzle, err := s.store.GetPuzzle(ctx, hunt.ID, puzzleID)
	if err != nil {
		return GuessResult{}, err
	}
	progress, err := s.teamProgress(ctx, hunt, team.ID)
	if err != nil {
		return GuessResult{}, err
	}
	if !puzzle.UnlockedAt(progress) {
		return GuessResult{}, domain.ErrPuzzleNotFound
	}
	if err := domain.ValidateGuessText(raw); err != nil {
		return GuessResult{}, err
	}

	solved, err := s.store.IsSolved(ctx, team.ID, puzzle.ID)
	if err != nil {
		return GuessResult{}, wrap("solved check", err)
	}
	if solved {
		return GuessResult{}, domain.ErrAlreadySolved
	}
	allowance, err := s.allowance(ctx, hunt, team.ID, puzzle.ID)
	if err != nil {
		return GuessResult{}, err
	}
	if allowance.AtLimit() {
		return GuessResult{}, domain.ErrGuessLimitReached
	}

	normalized := domain.NormalizeAnswer(raw)
	dup, err := s.store.HasGuessed(ctx, team.ID, puzzle.ID, normalized)
	if err != nil {
		return GuessResult{}, wrap("duplicate check", err)
	}
	if dup {
		// A teammate's correct guess can land between the solved check and here.
		if puzzle.Matches(normalized) {
			return GuessResult{}, domain.ErrAlreadySolved
		}
		return GuessResult{}, domain.ErrDuplicateGuess
	}
	responses, err := s.store.ListGuessResponses(ctx, puzzle.ID)
	if err != nil {
		return GuessResult{}, wrap("list guess responses", err)
	}

	userID := viewer.UserID
	guess := domain.Guess{
		TeamID:        team.ID,
		PuzzleID:      puzzle.ID,
		UserID:        &userID,
		Guess:         normalized,
		Correct:       puzzle.Matches(normalized),
		CountsAsGuess: true,
		Time:          s.now().UTC(),
	}
	switch canned, ok := domain.MatchGuessResponse(responses, normalized); {
	case guess.Correct:
		guess.Response = puzzle.CorrectResponse()
	case ok:
		guess.Response = canned.Response
		guess.CountsAsGuess = false
	default:
		guess.Response = domain.DefaultIncorrectResponse
	}

	if err := s.store.CreateGuess(ctx, &guess); err != nil {
		if errors.Is(err, domain.ErrAlreadySolved) {
			s.logger.Info("lost correct guess race", "team_id", team.ID, "puzzle_id", puzzle.ID)
		}
		return GuessResult{}, err
	}
	if guess.CountsAsGuess {
		allowance.Used++
		allowance.Remaining--
	}

	if guess.Correct {
		if progress, err = s.teamProgress(ctx, hunt, team.ID); err != nil {
			return GuessResult{}, err
		}
		s.logger.Info("puzzle solved", "hunt_id", hunt.ID, "team_id", team.ID, "puzzle_id", puzzle.ID)
		s.publishLeaderboard(ctx, hunt.ID)
	}
	return GuessResult{Guess: guess, Allowance: allowance, Progress: progress}, nil
}

// GuessAllowance reports the viewer's team allowance on a puzzle.
func (s *HuntService) GuessAllowance(ctx context.Context, viewer domain.Viewer, ref HuntRef, puzzleID int64) (domain.Allowance, error) {
	if viewer.Anonymous() {
		return domain.Allowance{}, domain.ErrAuthRequired
	}
	hunt, _, err := s.AuthorizeHunt(ctx, viewer, ref)
	if err != nil {
		return domain.Allowance{}, err
	}
	team, err := s.teamFor(ctx, viewer, hunt.ID)
	if err != nil {
		return domain.Allowance{}, err
	}
	if team == nil {
		return domain.Allowance{}, domain.ErrNotOnTeam
	}
	puzzle, err := s.store.GetPuzzle(ctx, hunt.ID, puzzleID)
	if err != nil {
		return domain.Allowance{}, err
	}
	return s.allowance(ctx, hunt, team.ID, puzzle.ID)
}

func (s *HuntService) allowance(ctx context.Context, hunt domain.Hunt, teamID, puzzleID int64) (domain.Allowance, error) {
	used, err := s.store.CountScoredGuesses(ctx, teamID, puzzleID)
	if err != nil {
		return domain.Allowance{}, wrap("count scored guesses", err)
	}
	extra := 0
	if hunt.GuessLimit > 0 {
		grant, err := s.store.GetGrant(ctx, teamID, puzzleID)
		switch {
		case err == nil:
			extra = grant.ExtraGuesses
		case !errors.Is(err, domain.ErrGrantNotFound):
			return domain.Allowance{}, wrap("get grant", err)
		}
	}
	return domain.GuessAllowance(hunt.GuessLimit, extra, used), nil
}

// GrantExtraGuesses gives a team extra guesses on a puzzle. A team holds at
// most one grant per puzzle; use UpdateExtraGuesses to change it.
func (s *HuntService) GrantExtraGuesses(ctx context.Context, viewer domain.Viewer, huntID int64, grant domain.ExtraGuessGrant) (domain.ExtraGuessGrant, error) {
	if err := s.checkGrant(ctx, viewer, huntID, grant); err != nil {
		return domain.ExtraGuessGrant{}, err
	}
	grant.ID = 0
	if err := s.store.CreateGrant(ctx, &grant); err != nil {
		return domain.ExtraGuessGrant{}, err
	}
	return grant, nil
}

// UpdateExtraGuesses changes an existing grant.
func (s *HuntService) UpdateExtraGuesses(ctx context.Context, viewer domain.Viewer, huntID int64, grant domain.ExtraGuessGrant) (domain.ExtraGuessGrant, error) {
	if err := s.checkGrant(ctx, viewer, huntID, grant); err != nil {
		return domain.ExtraGuessGrant{}, err
	}
	if err := s.store.UpdateGrant(ctx, &grant); err != nil {
		return domain.ExtraGuessGrant{}, err
	}
	return grant, nil
}

func (s *HuntService) checkGrant(ctx context.Context, viewer domain.Viewer, huntID int64, grant domain.ExtraGuessGrant) error {
	if _, err := s.requireOrganizer(ctx, viewer, huntID); err != nil {
		return err
	}
	team, err := s.store.GetTeam(ctx, grant.TeamID)
	if err != nil {
		return err
	}
	if team.HuntID != huntID {
		return domain.ErrTeamNotFound
	}
	_, err = s.store.GetPuzzle(ctx, huntID, grant.PuzzleID)
	return err
}
