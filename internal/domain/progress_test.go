package domain

import "testing"

func TestProgressUsesFloorWithoutSolves(t *testing.T) {
	for _, floor := range []int{0, 3, 10} {
		if got := Progress(floor, 0); got != floor {
			t.Fatalf("floor %d: expected progress %d, got %d", floor, floor, got)
		}
	}
}

func TestProgressIsMonotoneInSolvedPoints(t *testing.T) {
	floor := 4
	prev := Progress(floor, 0)
	solved := 0
	for _, pts := range []int{0, 1, 5, 0, 2} {
		solved += pts
		got := Progress(floor, solved)
		if got < prev {
			t.Fatalf("progress decreased from %d to %d after adding %d", prev, got, pts)
		}
		prev = got
	}
	if prev != 8 {
		t.Fatalf("expected final progress 8, got %d", prev)
	}
}

func TestZeroThresholdIsPublic(t *testing.T) {
	hunt := NewHunt("Hunt", "hunt")
	open := Puzzle{ID: 1, ProgressThreshold: 0}
	locked := Puzzle{ID: 2, ProgressThreshold: 1}

	public := hunt.PublicPuzzles([]Puzzle{open, locked})
	if len(public) != 1 || public[0].ID != 1 {
		t.Fatalf("expected only the zero-threshold puzzle to be public, got %+v", public)
	}
	if !open.UnlockedAt(Progress(hunt.ProgressFloor, 0)) {
		t.Fatalf("expected zero-threshold puzzle unlocked for a fresh team")
	}
}

func TestFloorUnlocksForEveryone(t *testing.T) {
	hunt := NewHunt("Hunt", "hunt")
	hunt.ProgressFloor = 5
	puzzles := []Puzzle{{ID: 1, ProgressThreshold: 5}, {ID: 2, ProgressThreshold: 6}}

	if got := hunt.PublicPuzzles(puzzles); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected floor to unlock puzzle 1 publicly, got %+v", got)
	}
}

func TestGuessAllowance(t *testing.T) {
	a := GuessAllowance(3, 2, 4)
	if !a.Limited || a.Allowed != 5 || a.Remaining != 1 || a.AtLimit() {
		t.Fatalf("expected one remaining guess, got %+v", a)
	}
	a = GuessAllowance(3, 2, 5)
	if !a.AtLimit() {
		t.Fatalf("expected allowance exhausted, got %+v", a)
	}
	a = GuessAllowance(3, -3, 0)
	if !a.AtLimit() {
		t.Fatalf("expected negative grant to remove every guess, got %+v", a)
	}
	a = GuessAllowance(0, 5, 1000)
	if a.Limited || a.AtLimit() {
		t.Fatalf("expected unlimited allowance, got %+v", a)
	}
}
