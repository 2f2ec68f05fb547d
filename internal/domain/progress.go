package domain

// Progress is a team's unlock score: the hunt floor or the progress points of
// its solved puzzles, whichever is larger.
func Progress(floor, solvedProgressPoints int) int {
	if solvedProgressPoints > floor {
		return solvedProgressPoints
	}
	return floor
}

// UnlockedAt reports whether the puzzle is open to a team holding progress.
func (p Puzzle) UnlockedAt(progress int) bool {
	return p.ProgressThreshold <= progress
}

// UnlockedPuzzles filters puzzles down to those open at progress, keeping order.
func UnlockedPuzzles(puzzles []Puzzle, progress int) []Puzzle {
	out := make([]Puzzle, 0, len(puzzles))
	for _, p := range puzzles {
		if p.UnlockedAt(progress) {
			out = append(out, p)
		}
	}
	return out
}

// PublicPuzzles are the puzzles a viewer without a team can see.
func (h Hunt) PublicPuzzles(puzzles []Puzzle) []Puzzle {
	return UnlockedPuzzles(puzzles, h.ProgressFloor)
}

// Allowance describes how many scored guesses a team has left on a puzzle.
type Allowance struct {
	Limited   bool `json:"limited"`
	Allowed   int  `json:"allowed"`
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
}

// AtLimit reports whether further scored guesses must be refused.
func (a Allowance) AtLimit() bool {
	return a.Limited && a.Remaining <= 0
}

// GuessAllowance computes the allowance from the hunt limit (0 is unlimited),
// the team's grant on the puzzle and the number of scored guesses so far.
func GuessAllowance(guessLimit, extraGuesses, scoredGuesses int) Allowance {
	if guessLimit == 0 {
		return Allowance{Used: scoredGuesses}
	}
	allowed := guessLimit + extraGuesses
	return Allowance{
		Limited:   true,
		Allowed:   allowed,
		Used:      scoredGuesses,
		Remaining: allowed - scoredGuesses,
	}
}
