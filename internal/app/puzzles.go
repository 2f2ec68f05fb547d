package app

import (
	"context"

	"hunt-service/internal/domain"
)

// CreatePuzzle adds a puzzle and its canned guess responses to a hunt.
func (s *HuntService) CreatePuzzle(ctx context.Context, viewer domain.Viewer, huntID int64, puzzle domain.Puzzle, responses []domain.GuessResponse) (domain.Puzzle, error) {
	if _, err := s.requireOrganizer(ctx, viewer, huntID); err != nil {
		return domain.Puzzle{}, err
	}
	puzzle.ID = 0
	puzzle.HuntID = huntID
	if err := validatePuzzle(puzzle, responses); err != nil {
		return domain.Puzzle{}, err
	}
	if err := s.store.CreatePuzzle(ctx, &puzzle, responses); err != nil {
		return domain.Puzzle{}, err
	}
	s.invalidate(ctx, huntID)
	return puzzle, nil
}

// UpdatePuzzle overwrites the puzzle and replaces its guess responses.
func (s *HuntService) UpdatePuzzle(ctx context.Context, viewer domain.Viewer, huntID int64, puzzle domain.Puzzle, responses []domain.GuessResponse) (domain.Puzzle, error) {
	if _, err := s.requireOrganizer(ctx, viewer, huntID); err != nil {
		return domain.Puzzle{}, err
	}
	if _, err := s.store.GetPuzzle(ctx, huntID, puzzle.ID); err != nil {
		return domain.Puzzle{}, err
	}
	puzzle.HuntID = huntID
	if err := validatePuzzle(puzzle, responses); err != nil {
		return domain.Puzzle{}, err
	}
	if err := s.store.UpdatePuzzle(ctx, &puzzle, responses); err != nil {
		return domain.Puzzle{}, err
	}
	s.invalidate(ctx, huntID)
	return puzzle, nil
}

func validatePuzzle(puzzle domain.Puzzle, responses []domain.GuessResponse) error {
	if err := puzzle.Validate(); err != nil {
		return err
	}
	return domain.ValidateGuessResponses(responses)
}

// DeletePuzzle removes the puzzle with its guesses, responses and grants.
func (s *HuntService) DeletePuzzle(ctx context.Context, viewer domain.Viewer, huntID, puzzleID int64) error {
	if _, err := s.requireOrganizer(ctx, viewer, huntID); err != nil {
		return err
	}
	if err := s.store.DeletePuzzle(ctx, huntID, puzzleID); err != nil {
		return err
	}
	s.invalidate(ctx, huntID)
	return nil
}

// PuzzleView is a puzzle page as seen by one viewer.
type PuzzleView struct {
	Hunt           domain.Hunt            `json:"hunt"`
	Puzzle         domain.Puzzle          `json:"puzzle"`
	IsOrganizer    bool                   `json:"isOrganizer"`
	Team           *domain.Team           `json:"team,omitempty"`
	Solved         bool                   `json:"solved"`
	Allowance      *domain.Allowance      `json:"allowance,omitempty"`
	Guesses        []domain.Guess         `json:"guesses,omitempty"`
	GuessResponses []domain.GuessResponse `json:"guessResponses,omitempty"`
}

// ViewPuzzle returns the puzzle if it is unlocked for the viewer. A locked
// puzzle is reported as missing. The answer stays hidden from teams until
// they solve it; the solution URL follows the hunt's solution style.
func (s *HuntService) ViewPuzzle(ctx context.Context, viewer domain.Viewer, ref HuntRef, puzzleID int64) (PuzzleView, error) {
	hunt, isOrganizer, err := s.AuthorizeHunt(ctx, viewer, ref)
	if err != nil {
		return PuzzleView{}, err
	}
	puzzle, err := s.store.GetPuzzle(ctx, hunt.ID, puzzleID)
	if err != nil {
		return PuzzleView{}, err
	}
	team, err := s.teamFor(ctx, viewer, hunt.ID)
	if err != nil {
		return PuzzleView{}, err
	}
	if !isOrganizer {
		ok, err := s.IsPuzzleViewable(ctx, hunt, puzzle, team)
		if err != nil {
			return PuzzleView{}, err
		}
		if !ok {
			return PuzzleView{}, domain.ErrPuzzleNotFound
		}
	}

	view := PuzzleView{Hunt: hunt, IsOrganizer: isOrganizer, Team: team}
	if team != nil {
		if view.Solved, err = s.store.IsSolved(ctx, team.ID, puzzle.ID); err != nil {
			return PuzzleView{}, wrap("solved check", err)
		}
		allowance, err := s.allowance(ctx, hunt, team.ID, puzzle.ID)
		if err != nil {
			return PuzzleView{}, err
		}
		view.Allowance = &allowance
		if view.Guesses, err = s.store.ListGuesses(ctx, GuessFilter{TeamID: team.ID, PuzzleID: puzzle.ID}); err != nil {
			return PuzzleView{}, wrap("list guesses", err)
		}
	}
	if isOrganizer {
		if view.GuessResponses, err = s.store.ListGuessResponses(ctx, puzzle.ID); err != nil {
			return PuzzleView{}, wrap("list guess responses", err)
		}
	} else {
		if !view.Solved {
			puzzle.Answer = ""
			puzzle.AnswerResponse = ""
		}
		if !hunt.SolutionVisible(view.Solved) {
			puzzle.SolutionURL = ""
		}
	}
	view.Puzzle = puzzle
	return view, nil
}

// PuzzleLog returns every guess on the puzzle across teams, oldest first.
func (s *HuntService) PuzzleLog(ctx context.Context, viewer domain.Viewer, huntID, puzzleID int64) ([]domain.Guess, error) {
	if _, err := s.requireOrganizer(ctx, viewer, huntID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetPuzzle(ctx, huntID, puzzleID); err != nil {
		return nil, err
	}
	guesses, err := s.store.ListGuesses(ctx, GuessFilter{PuzzleID: puzzleID})
	return guesses, wrap("list guesses", err)
}
