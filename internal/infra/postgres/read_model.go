package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"hunt-service/internal/app"
	"hunt-service/internal/domain"
)

var (
	_ app.ProgressReader = (*ReadModel)(nil)
	_ app.PuzzleLoader   = (*ReadModel)(nil)
)

// ReadModel answers aggregate queries straight from the guess ledger with
// pgx. Nothing here is cached.
type ReadModel struct {
	pool *pgxpool.Pool
}

func NewReadModel(pool *pgxpool.Pool) *ReadModel {
	return &ReadModel{pool: pool}
}

func (r *ReadModel) SolvedProgressPoints(ctx context.Context, teamID int64) (int, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(p.progress_points), 0)
		FROM guesses g
		JOIN puzzles p ON p.id = g.puzzle_id
		WHERE g.team_id = $1 AND g.correct`, teamID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("solved progress points: %w", err)
	}
	return int(total), nil
}

func (r *ReadModel) SolvedPuzzles(ctx context.Context, teamID int64) (map[int64]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT puzzle_id, guess FROM guesses WHERE team_id = $1 AND correct`, teamID)
	if err != nil {
		return nil, fmt.Errorf("solved puzzles: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var puzzleID int64
		var guess string
		if err := rows.Scan(&puzzleID, &guess); err != nil {
			return nil, fmt.Errorf("scan solved puzzle: %w", err)
		}
		out[puzzleID] = guess
	}
	return out, rows.Err()
}

func (r *ReadModel) TeamStandings(ctx context.Context, huntID int64) ([]domain.Standing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.name,
		       COALESCE(SUM(p.points), 0),
		       COUNT(g.id),
		       MAX(g."time")
		FROM teams t
		LEFT JOIN guesses g ON g.team_id = t.id AND g.correct
		LEFT JOIN puzzles p ON p.id = g.puzzle_id
		WHERE t.hunt_id = $1
		GROUP BY t.id, t.name`, huntID)
	if err != nil {
		return nil, fmt.Errorf("team standings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Standing, 0)
	for rows.Next() {
		var (
			st     domain.Standing
			score  int64
			solves int64
			last   *time.Time
		)
		if err := rows.Scan(&st.TeamID, &st.TeamName, &score, &solves, &last); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		st.Score = int(score)
		st.SolveCount = int(solves)
		st.LastSolve = last
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *ReadModel) PuzzleStats(ctx context.Context, huntID int64) (map[int64]domain.PuzzleStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT g.puzzle_id,
		       COUNT(*) FILTER (WHERE g.correct),
		       COUNT(*)
		FROM guesses g
		JOIN puzzles p ON p.id = g.puzzle_id
		WHERE p.hunt_id = $1
		GROUP BY g.puzzle_id`, huntID)
	if err != nil {
		return nil, fmt.Errorf("puzzle stats: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]domain.PuzzleStats)
	for rows.Next() {
		var puzzleID, solves, guesses int64
		if err := rows.Scan(&puzzleID, &solves, &guesses); err != nil {
			return nil, fmt.Errorf("scan puzzle stats: %w", err)
		}
		out[puzzleID] = domain.PuzzleStats{SolveCount: int(solves), GuessCount: int(guesses)}
	}
	return out, rows.Err()
}

// ListPuzzles feeds the puzzle catalogs.
func (r *ReadModel) ListPuzzles(ctx context.Context, huntID int64) ([]domain.Puzzle, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM hunts WHERE id = $1)`, huntID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("load hunt: %w", err)
	}
	if !exists {
		return nil, domain.ErrHuntNotFound
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, hunt_id, name, slug, content, solution_url, answer, answer_response,
		       points, "order", progress_points, progress_threshold
		FROM puzzles
		WHERE hunt_id = $1
		ORDER BY "order", name, id`, huntID)
	if err != nil {
		return nil, fmt.Errorf("load puzzles: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Puzzle, 0)
	for rows.Next() {
		var (
			p                                  domain.Puzzle
			points, order, progress, threshold int32
		)
		if err := rows.Scan(&p.ID, &p.HuntID, &p.Name, &p.Slug, &p.Content, &p.SolutionURL, &p.Answer,
			&p.AnswerResponse, &points, &order, &progress, &threshold); err != nil {
			return nil, fmt.Errorf("scan puzzle: %w", err)
		}
		p.Points = int(points)
		p.Order = int(order)
		p.ProgressPoints = int(progress)
		p.ProgressThreshold = int(threshold)
		out = append(out, p)
	}
	return out, rows.Err()
}
