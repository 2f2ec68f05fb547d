package domain

import "sort"

// RankStandings orders standings in place for the given style.
//
// Default (and hidden, for organizers): score, then solve count, then the
// earliest last solve. Speedrun: score, then earliest last solve. Teams
// without a solve sort after teams with one; name breaks remaining ties.
func RankStandings(style LeaderboardStyle, entries []Standing) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if style != LeaderboardSpeedrun && a.SolveCount != b.SolveCount {
			return a.SolveCount > b.SolveCount
		}
		switch {
		case a.LastSolve != nil && b.LastSolve == nil:
			return true
		case a.LastSolve == nil && b.LastSolve != nil:
			return false
		case a.LastSolve != nil && !a.LastSolve.Equal(*b.LastSolve):
			return a.LastSolve.Before(*b.LastSolve)
		}
		return a.TeamName < b.TeamName
	})
}
