package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRankStandings(t *testing.T) {
	base := time.Date(2026, 1, 16, 12, 0, 0, 0, time.UTC)
	at := func(min int) *time.Time {
		ts := base.Add(time.Duration(min) * time.Minute)
		return &ts
	}
	standings := func() []Standing {
		return []Standing{
			{TeamID: 1, TeamName: "Alpha", Score: 3, SolveCount: 3, LastSolve: at(30)},
			{TeamID: 2, TeamName: "Bravo", Score: 3, SolveCount: 2, LastSolve: at(10)},
			{TeamID: 3, TeamName: "Charlie", Score: 0},
			{TeamID: 4, TeamName: "Delta", Score: 5, SolveCount: 1, LastSolve: at(50)},
			{TeamID: 5, TeamName: "Echo", Score: 3, SolveCount: 3, LastSolve: at(20)},
		}
	}
	ids := func(s []Standing) []int64 {
		out := make([]int64, len(s))
		for i, e := range s {
			out[i] = e.TeamID
		}
		return out
	}

	def := standings()
	RankStandings(LeaderboardDefault, def)
	if diff := cmp.Diff([]int64{4, 5, 1, 2, 3}, ids(def)); diff != "" {
		t.Fatalf("default order mismatch (-want +got):\n%s", diff)
	}

	speed := standings()
	RankStandings(LeaderboardSpeedrun, speed)
	if diff := cmp.Diff([]int64{4, 2, 5, 1, 3}, ids(speed)); diff != "" {
		t.Fatalf("speedrun order mismatch (-want +got):\n%s", diff)
	}
}
