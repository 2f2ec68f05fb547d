package app

import (
	"context"

	"hunt-service/internal/domain"
)

// TeamProgress recomputes the team's unlock score from its correct guesses.
func (s *HuntService) TeamProgress(ctx context.Context, team domain.Team) (int, error) {
	hunt, err := s.store.GetHunt(ctx, team.HuntID)
	if err != nil {
		return 0, err
	}
	return s.teamProgress(ctx, hunt, team.ID)
}

func (s *HuntService) teamProgress(ctx context.Context, hunt domain.Hunt, teamID int64) (int, error) {
	points, err := s.progress.SolvedProgressPoints(ctx, teamID)
	if err != nil {
		return 0, wrap("solved progress points", err)
	}
	return domain.Progress(hunt.ProgressFloor, points), nil
}

// UnlockedPuzzles lists the puzzles open to the team, in display order.
func (s *HuntService) UnlockedPuzzles(ctx context.Context, team domain.Team) ([]domain.Puzzle, error) {
	hunt, err := s.store.GetHunt(ctx, team.HuntID)
	if err != nil {
		return nil, err
	}
	progress, err := s.teamProgress(ctx, hunt, team.ID)
	if err != nil {
		return nil, err
	}
	puzzles, err := s.catalog.Puzzles(ctx, hunt.ID)
	if err != nil {
		return nil, wrap("load puzzles", err)
	}
	return domain.UnlockedPuzzles(puzzles, progress), nil
}

// IsPuzzleViewable reports whether a viewer on team (nil for none) may open
// the puzzle. Without a team only the hunt's progress floor counts.
func (s *HuntService) IsPuzzleViewable(ctx context.Context, hunt domain.Hunt, puzzle domain.Puzzle, team *domain.Team) (bool, error) {
	progress := hunt.ProgressFloor
	if team != nil {
		p, err := s.teamProgress(ctx, hunt, team.ID)
		if err != nil {
			return false, err
		}
		progress = p
	}
	return puzzle.UnlockedAt(progress), nil
}

// PuzzleSummary is one row of the hunt page.
type PuzzleSummary struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Slug              string `json:"slug"`
	Points            int    `json:"points"`
	Order             int    `json:"order"`
	ProgressThreshold int    `json:"progressThreshold"`
	Solved            bool   `json:"solved"`
	CorrectGuess      string `json:"correctGuess,omitempty"`
	SolveCount        int    `json:"solveCount"`
	GuessCount        int    `json:"guessCount"`
}

// HuntView is the hunt page as seen by one viewer.
type HuntView struct {
	Hunt        domain.Hunt     `json:"hunt"`
	IsOrganizer bool            `json:"isOrganizer"`
	Team        *domain.Team    `json:"team,omitempty"`
	Progress    int             `json:"progress"`
	Puzzles     []PuzzleSummary `json:"puzzles"`
}

// ViewHunt lists the puzzles the viewer can open. Organizers see every
// puzzle, team members see what their progress unlocks and everyone else
// sees the public puzzles.
func (s *HuntService) ViewHunt(ctx context.Context, viewer domain.Viewer, ref HuntRef) (HuntView, error) {
	hunt, isOrganizer, err := s.AuthorizeHunt(ctx, viewer, ref)
	if err != nil {
		return HuntView{}, err
	}
	team, err := s.teamFor(ctx, viewer, hunt.ID)
	if err != nil {
		return HuntView{}, err
	}
	puzzles, err := s.catalog.Puzzles(ctx, hunt.ID)
	if err != nil {
		return HuntView{}, wrap("load puzzles", err)
	}

	view := HuntView{Hunt: hunt, IsOrganizer: isOrganizer, Team: team, Progress: hunt.ProgressFloor}
	solved := map[int64]string{}
	if team != nil {
		if view.Progress, err = s.teamProgress(ctx, hunt, team.ID); err != nil {
			return HuntView{}, err
		}
		if solved, err = s.progress.SolvedPuzzles(ctx, team.ID); err != nil {
			return HuntView{}, wrap("solved puzzles", err)
		}
	}
	if !isOrganizer {
		puzzles = domain.UnlockedPuzzles(puzzles, view.Progress)
	}

	stats, err := s.progress.PuzzleStats(ctx, hunt.ID)
	if err != nil {
		return HuntView{}, wrap("puzzle stats", err)
	}

	view.Puzzles = make([]PuzzleSummary, 0, len(puzzles))
	for _, p := range puzzles {
		guess, ok := solved[p.ID]
		st := stats[p.ID]
		view.Puzzles = append(view.Puzzles, PuzzleSummary{
			ID:                p.ID,
			Name:              p.Name,
			Slug:              p.Slug,
			Points:            p.Points,
			Order:             p.Order,
			ProgressThreshold: p.ProgressThreshold,
			Solved:            ok,
			CorrectGuess:      guess,
			SolveCount:        st.SolveCount,
			GuessCount:        st.GuessCount,
		})
	}
	return view, nil
}
