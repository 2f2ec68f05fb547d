package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hunt-service/internal/app"
	"hunt-service/internal/domain"
	"hunt-service/internal/infra/memory"
)

type harness struct {
	t     *testing.T
	ctx   context.Context
	svc   *app.HuntService
	store *memory.Store
	clock *fakeClock

	org   domain.Viewer
	alice domain.Viewer
	bob   domain.Viewer
	hunt  domain.Hunt
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances by a second on every call so guesses get distinct times.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newHarness(t *testing.T, configure func(*domain.Hunt)) *harness {
	t.Helper()
	store := memory.NewStore()
	clock := &fakeClock{now: time.Date(2026, 1, 17, 12, 0, 0, 0, time.UTC)}
	svc := app.NewHuntService(store, store, memory.NewPuzzleCatalog(store, time.Minute), memory.NewFeedStore(), app.WithClock(clock.Now))
	h := &harness{t: t, ctx: context.Background(), svc: svc, store: store, clock: clock}

	h.org = h.user("organizer")
	h.alice = h.user("alice")
	h.bob = h.user("bob")

	hunt := domain.NewHunt("Test Hunt", "test-hunt")
	if configure != nil {
		configure(&hunt)
	}
	created, err := svc.CreateHunt(h.ctx, h.org, hunt)
	if err != nil {
		t.Fatalf("create hunt: %v", err)
	}
	h.hunt = created
	return h
}

func (h *harness) user(name string) domain.Viewer {
	h.t.Helper()
	u, err := h.svc.CreateUser(h.ctx, domain.User{Username: name})
	if err != nil {
		h.t.Fatalf("create user %s: %v", name, err)
	}
	return domain.Viewer{UserID: u.ID}
}

func (h *harness) ref() app.HuntRef {
	return app.HuntRef{ID: h.hunt.ID, Token: domain.SlugToken(h.hunt.Slug)}
}

func (h *harness) puzzle(p domain.Puzzle, responses ...domain.GuessResponse) domain.Puzzle {
	h.t.Helper()
	created, err := h.svc.CreatePuzzle(h.ctx, h.org, h.hunt.ID, p, responses)
	if err != nil {
		h.t.Fatalf("create puzzle %s: %v", p.Slug, err)
	}
	return created
}

func (h *harness) team(v domain.Viewer, name string) domain.Team {
	h.t.Helper()
	team, err := h.svc.CreateTeam(h.ctx, v, h.ref(), name)
	if err != nil {
		h.t.Fatalf("create team %s: %v", name, err)
	}
	return team
}

func (h *harness) guess(v domain.Viewer, p domain.Puzzle, text string) (app.GuessResult, error) {
	return h.svc.SubmitGuess(h.ctx, v, h.ref(), p.ID, text)
}

func puzzleIDs(puzzles []domain.Puzzle) []int64 {
	ids := make([]int64, len(puzzles))
	for i, p := range puzzles {
		ids[i] = p.ID
	}
	return ids
}

func TestSolvingUnlocksNextPuzzle(t *testing.T) {
	h := newHarness(t, nil)
	a := domain.NewPuzzle(0, "A", "a", "ALPHA")
	a.ProgressPoints = 5
	a = h.puzzle(a)
	b := domain.NewPuzzle(0, "B", "b", "BRAVO")
	b.ProgressThreshold = 5
	b.Order = 1
	b = h.puzzle(b)
	team := h.team(h.alice, "Alpha Team")

	progress, err := h.svc.TeamProgress(h.ctx, team)
	if err != nil || progress != 0 {
		t.Fatalf("expected progress 0, got %d (%v)", progress, err)
	}
	unlocked, err := h.svc.UnlockedPuzzles(h.ctx, team)
	if err != nil {
		t.Fatalf("unlocked: %v", err)
	}
	if ids := puzzleIDs(unlocked); len(ids) != 1 || ids[0] != a.ID {
		t.Fatalf("expected only A unlocked, got %v", ids)
	}
	if _, err := h.svc.ViewPuzzle(h.ctx, h.alice, h.ref(), b.ID); !errors.Is(err, domain.ErrPuzzleNotFound) {
		t.Fatalf("expected locked puzzle to look missing, got %v", err)
	}
	if _, err := h.guess(h.alice, b, "bravo"); !errors.Is(err, domain.ErrPuzzleNotFound) {
		t.Fatalf("expected guess on locked puzzle rejected, got %v", err)
	}

	res, err := h.guess(h.alice, a, "Alpha!")
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if !res.Guess.Correct || res.Progress != 5 || res.Guess.Response != domain.DefaultAnswerResponse {
		t.Fatalf("unexpected result %+v", res)
	}

	unlocked, _ = h.svc.UnlockedPuzzles(h.ctx, team)
	if ids := puzzleIDs(unlocked); len(ids) != 2 || ids[0] != a.ID || ids[1] != b.ID {
		t.Fatalf("expected A and B unlocked, got %v", ids)
	}
	if _, err := h.svc.ViewPuzzle(h.ctx, h.alice, h.ref(), b.ID); err != nil {
		t.Fatalf("expected B viewable, got %v", err)
	}

	// Viewers without a team only get the floor.
	view, err := h.svc.ViewHunt(h.ctx, h.bob, h.ref())
	if err != nil {
		t.Fatalf("view hunt: %v", err)
	}
	if len(view.Puzzles) != 1 || view.Puzzles[0].ID != a.ID || view.Puzzles[0].SolveCount != 1 {
		t.Fatalf("unexpected public hunt view %+v", view.Puzzles)
	}
	orgView, _ := h.svc.ViewHunt(h.ctx, h.org, h.ref())
	if len(orgView.Puzzles) != 2 || !orgView.IsOrganizer {
		t.Fatalf("expected organizer to see every puzzle, got %+v", orgView)
	}
}

func TestGuessLimitWithExtraGrant(t *testing.T) {
	h := newHarness(t, func(hunt *domain.Hunt) { hunt.GuessLimit = 3 })
	p := h.puzzle(domain.NewPuzzle(0, "P", "p", "ANSWER"))
	team := h.team(h.alice, "Limited")

	if _, err := h.svc.GrantExtraGuesses(h.ctx, h.org, h.hunt.ID, domain.ExtraGuessGrant{TeamID: team.ID, PuzzleID: p.ID, ExtraGuesses: 2}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	for i, g := range []string{"one", "two", "three", "four", "five"} {
		res, err := h.guess(h.alice, p, g)
		if err != nil {
			t.Fatalf("guess %d: %v", i+1, err)
		}
		if res.Allowance.Remaining != 4-i {
			t.Fatalf("guess %d: expected %d remaining, got %+v", i+1, 4-i, res.Allowance)
		}
	}
	if _, err := h.guess(h.alice, p, "six"); !errors.Is(err, domain.ErrGuessLimitReached) {
		t.Fatalf("expected sixth guess rejected, got %v", err)
	}

	if _, err := h.svc.UpdateExtraGuesses(h.ctx, h.org, h.hunt.ID, domain.ExtraGuessGrant{TeamID: team.ID, PuzzleID: p.ID, ExtraGuesses: 3}); err != nil {
		t.Fatalf("update grant: %v", err)
	}
	if _, err := h.guess(h.alice, p, "six"); err != nil {
		t.Fatalf("expected guess allowed after raising grant, got %v", err)
	}
}

func TestUnlimitedGuessesIgnoreGrants(t *testing.T) {
	h := newHarness(t, func(hunt *domain.Hunt) { hunt.GuessLimit = 0 })
	p := h.puzzle(domain.NewPuzzle(0, "P", "p", "ANSWER"))
	team := h.team(h.alice, "Unlimited")
	if _, err := h.svc.GrantExtraGuesses(h.ctx, h.org, h.hunt.ID, domain.ExtraGuessGrant{TeamID: team.ID, PuzzleID: p.ID, ExtraGuesses: -10}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	res, err := h.guess(h.alice, p, "nope")
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if res.Allowance.Limited || res.Allowance.Used != 1 {
		t.Fatalf("expected unlimited allowance, got %+v", res.Allowance)
	}
}

func TestGrantRules(t *testing.T) {
	h := newHarness(t, nil)
	p := h.puzzle(domain.NewPuzzle(0, "P", "p", "ANSWER"))
	team := h.team(h.alice, "Granted")
	grant := domain.ExtraGuessGrant{TeamID: team.ID, PuzzleID: p.ID, ExtraGuesses: 1}

	if _, err := h.svc.GrantExtraGuesses(h.ctx, h.alice, h.hunt.ID, grant); !errors.Is(err, domain.ErrNotOrganizer) {
		t.Fatalf("expected non-organizer rejected, got %v", err)
	}
	if _, err := h.svc.UpdateExtraGuesses(h.ctx, h.org, h.hunt.ID, grant); !errors.Is(err, domain.ErrGrantNotFound) {
		t.Fatalf("expected update of missing grant rejected, got %v", err)
	}
	if _, err := h.svc.GrantExtraGuesses(h.ctx, h.org, h.hunt.ID, grant); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := h.svc.GrantExtraGuesses(h.ctx, h.org, h.hunt.ID, grant); !errors.Is(err, domain.ErrDuplicateGrant) {
		t.Fatalf("expected duplicate grant rejected, got %v", err)
	}
}

func TestCannedResponseDoesNotCount(t *testing.T) {
	h := newHarness(t, func(hunt *domain.Hunt) { hunt.GuessLimit = 1 })
	p := h.puzzle(domain.NewPuzzle(0, "P", "p", "FINAL ANSWER"),
		domain.GuessResponse{Guess: "Intermediate", Response: "Keep going!"})
	h.team(h.alice, "Canned")

	res, err := h.guess(h.alice, p, "intermediate")
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if res.Guess.Response != "Keep going!" || res.Guess.CountsAsGuess || res.Guess.Correct {
		t.Fatalf("expected free canned response, got %+v", res.Guess)
	}
	if res.Allowance.Remaining != 1 {
		t.Fatalf("expected allowance untouched, got %+v", res.Allowance)
	}

	res, err = h.guess(h.alice, p, "wrong")
	if err != nil || res.Guess.Response != domain.DefaultIncorrectResponse {
		t.Fatalf("expected incorrect guess recorded, got %+v (%v)", res, err)
	}
	if _, err := h.guess(h.alice, p, "final answer"); !errors.Is(err, domain.ErrGuessLimitReached) {
		t.Fatalf("expected limit reached, got %v", err)
	}
}

func TestCorrectGuessTakesPrecedenceOverCannedResponse(t *testing.T) {
	h := newHarness(t, func(hunt *domain.Hunt) { hunt.GuessLimit = 2 })
	p := h.puzzle(domain.NewPuzzle(0, "P", "p", "ANSWER"),
		domain.GuessResponse{Guess: "answer", Response: "Keep going!"})
	h.team(h.alice, "Precedence")

	res, err := h.guess(h.alice, p, "Answer")
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if !res.Guess.Correct || !res.Guess.CountsAsGuess || res.Guess.Response != p.CorrectResponse() {
		t.Fatalf("expected scored correct guess with the solve response, got %+v", res.Guess)
	}
	if res.Allowance.Used != 1 {
		t.Fatalf("expected the solve to use a guess, got %+v", res.Allowance)
	}
}

func TestGuessRejections(t *testing.T) {
	h := newHarness(t, nil)
	p := h.puzzle(domain.NewPuzzle(0, "P", "p", "ANSWER"))

	if _, err := h.guess(domain.Viewer{}, p, "x"); !errors.Is(err, domain.ErrAuthRequired) {
		t.Fatalf("expected auth required, got %v", err)
	}
	if _, err := h.guess(h.alice, p, "x"); !errors.Is(err, domain.ErrNotOnTeam) {
		t.Fatalf("expected not on team, got %v", err)
	}
	h.team(h.alice, "Guessers")

	if _, err := h.guess(h.alice, p, "?!"); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := h.guess(h.alice, p, "wrong"); err != nil {
		t.Fatalf("guess: %v", err)
	}
	if _, err := h.guess(h.alice, p, "W-R-O-N-G"); !errors.Is(err, domain.ErrDuplicateGuess) {
		t.Fatalf("expected duplicate guess, got %v", err)
	}
	if _, err := h.guess(h.alice, p, "answer"); err != nil {
		t.Fatalf("guess: %v", err)
	}
	if _, err := h.guess(h.alice, p, "something else"); !errors.Is(err, domain.ErrAlreadySolved) {
		t.Fatalf("expected already solved, got %v", err)
	}
}

func TestConcurrentCorrectGuessesStoreOne(t *testing.T) {
	h := newHarness(t, nil)
	p := h.puzzle(domain.NewPuzzle(0, "P", "p", "ANSWER"))
	team := h.team(h.alice, "Racers")
	if _, err := h.svc.InviteMember(h.ctx, h.alice, h.ref(), "bob"); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := h.svc.AcceptInvite(h.ctx, h.bob, h.ref(), team.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, v := range []domain.Viewer{h.alice, h.bob} {
		wg.Add(1)
		go func(i int, v domain.Viewer) {
			defer wg.Done()
			_, errs[i] = h.guess(v, p, "answer")
		}(i, v)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, domain.ErrAlreadySolved):
			t.Fatalf("expected loser to see already solved, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one accepted guess, got %d", succeeded)
	}
	log, err := h.svc.PuzzleLog(h.ctx, h.org, h.hunt.ID, p.ID)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if len(log) != 1 || !log[0].Correct {
		t.Fatalf("expected one correct guess row, got %+v", log)
	}
}

func TestPrivateHuntNeedsSlugOrOrganizer(t *testing.T) {
	h := newHarness(t, func(hunt *domain.Hunt) { hunt.IsPrivate = true })
	noSlug := app.HuntRef{ID: h.hunt.ID}
	wrongSlug := app.HuntRef{ID: h.hunt.ID, Token: "guess"}

	if _, err := h.svc.ViewHunt(h.ctx, h.alice, noSlug); !errors.Is(err, domain.ErrHuntNotFound) {
		t.Fatalf("expected hidden hunt, got %v", err)
	}
	if _, err := h.svc.ViewHunt(h.ctx, domain.Viewer{}, wrongSlug); !errors.Is(err, domain.ErrHuntNotFound) {
		t.Fatalf("expected hidden hunt for wrong slug, got %v", err)
	}
	if _, err := h.svc.ViewHunt(h.ctx, h.alice, h.ref()); err != nil {
		t.Fatalf("expected slug to grant access, got %v", err)
	}
	if _, err := h.svc.ViewHunt(h.ctx, h.org, noSlug); err != nil {
		t.Fatalf("expected organizer access, got %v", err)
	}

	hunts, _ := h.svc.ListHunts(h.ctx, h.alice)
	if len(hunts) != 0 {
		t.Fatalf("expected private hunt unlisted, got %+v", hunts)
	}
	hunts, _ = h.svc.ListHunts(h.ctx, h.org)
	if len(hunts) != 1 {
		t.Fatalf("expected organizer to list the hunt, got %+v", hunts)
	}

	oldRef := h.ref()
	updated := h.hunt
	updated.Slug = "rotated"
	if _, err := h.svc.UpdateHunt(h.ctx, h.org, updated); err != nil {
		t.Fatalf("update hunt: %v", err)
	}
	if _, err := h.svc.ViewHunt(h.ctx, h.alice, oldRef); !errors.Is(err, domain.ErrHuntNotFound) {
		t.Fatalf("expected old slug revoked, got %v", err)
	}
	if _, err := h.svc.ViewHunt(h.ctx, h.alice, app.HuntRef{ID: h.hunt.ID, Token: "rotated"}); err != nil {
		t.Fatalf("expected new slug to grant access, got %v", err)
	}
}

func TestOrganizerOnlyOperations(t *testing.T) {
	h := newHarness(t, nil)
	p := h.puzzle(domain.NewPuzzle(0, "P", "p", "ANSWER"))

	if _, err := h.svc.CreatePuzzle(h.ctx, h.alice, h.hunt.ID, domain.NewPuzzle(0, "Q", "q", "X"), nil); !errors.Is(err, domain.ErrNotOrganizer) {
		t.Fatalf("expected create puzzle rejected, got %v", err)
	}
	if _, err := h.svc.PuzzleLog(h.ctx, h.alice, h.hunt.ID, p.ID); !errors.Is(err, domain.ErrNotOrganizer) {
		t.Fatalf("expected log rejected, got %v", err)
	}
	if err := h.svc.DeleteHunt(h.ctx, domain.Viewer{}, h.hunt.ID); !errors.Is(err, domain.ErrAuthRequired) {
		t.Fatalf("expected anonymous delete rejected, got %v", err)
	}

	if err := h.svc.AddOrganizer(h.ctx, h.org, h.hunt.ID, "alice"); err != nil {
		t.Fatalf("add organizer: %v", err)
	}
	if err := h.svc.AddOrganizer(h.ctx, h.org, h.hunt.ID, "alice"); !errors.Is(err, domain.ErrAlreadyOrganizer) {
		t.Fatalf("expected duplicate organizer rejected, got %v", err)
	}
	if _, err := h.svc.PuzzleLog(h.ctx, h.alice, h.hunt.ID, p.ID); err != nil {
		t.Fatalf("expected new organizer to read the log, got %v", err)
	}
}

func TestPuzzleUpdateReplacesResponses(t *testing.T) {
	h := newHarness(t, nil)
	p := h.puzzle(domain.NewPuzzle(0, "P", "p", "ANSWER"), domain.GuessResponse{Guess: "old", Response: "Old nudge"})

	if _, err := h.svc.UpdatePuzzle(h.ctx, h.org, h.hunt.ID, p, []domain.GuessResponse{
		{Guess: "new", Response: "New nudge"},
		{Guess: "N E W", Response: "Dup"},
	}); !errors.Is(err, domain.ErrDuplicateGuessResponse) {
		t.Fatalf("expected duplicate responses rejected, got %v", err)
	}

	p.Name = "Renamed"
	if _, err := h.svc.UpdatePuzzle(h.ctx, h.org, h.hunt.ID, p, []domain.GuessResponse{{Guess: "new", Response: "New nudge"}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	view, err := h.svc.ViewPuzzle(h.ctx, h.org, h.ref(), p.ID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Puzzle.Name != "Renamed" || len(view.GuessResponses) != 1 || view.GuessResponses[0].Guess != "new" {
		t.Fatalf("unexpected puzzle after update %+v", view)
	}
	hv, _ := h.svc.ViewHunt(h.ctx, h.org, h.ref())
	if hv.Puzzles[0].Name != "Renamed" {
		t.Fatalf("expected catalog invalidated on update, got %+v", hv.Puzzles)
	}
}

func TestViewPuzzleHidesAnswerUntilSolved(t *testing.T) {
	h := newHarness(t, func(hunt *domain.Hunt) { hunt.SolutionStyle = domain.SolutionAfterSolve })
	p := domain.NewPuzzle(0, "P", "p", "ANSWER")
	p.SolutionURL = "https://example.com/solution"
	p = h.puzzle(p)
	h.team(h.alice, "Viewers")

	view, err := h.svc.ViewPuzzle(h.ctx, h.alice, h.ref(), p.ID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Puzzle.Answer != "" || view.Puzzle.SolutionURL != "" || view.Solved {
		t.Fatalf("expected answer and solution hidden, got %+v", view.Puzzle)
	}
	if view.Allowance == nil || view.Allowance.Remaining != domain.DefaultGuessLimit {
		t.Fatalf("expected default allowance, got %+v", view.Allowance)
	}

	if _, err := h.guess(h.alice, p, "answer"); err != nil {
		t.Fatalf("guess: %v", err)
	}
	view, _ = h.svc.ViewPuzzle(h.ctx, h.alice, h.ref(), p.ID)
	if !view.Solved || view.Puzzle.Answer != "ANSWER" || view.Puzzle.SolutionURL == "" || len(view.Guesses) != 1 {
		t.Fatalf("expected solved view with answer and solution, got %+v", view)
	}
}

func TestTeamLifecycle(t *testing.T) {
	h := newHarness(t, func(hunt *domain.Hunt) { hunt.MemberLimit = 2 })
	carol := h.user("carol")
	team := h.team(h.alice, "Puzzlers")

	if _, err := h.svc.CreateTeam(h.ctx, h.alice, h.ref(), "Second"); !errors.Is(err, domain.ErrAlreadyOnTeam) {
		t.Fatalf("expected one team per user, got %v", err)
	}
	if _, err := h.svc.InviteMember(h.ctx, h.alice, h.ref(), "organizer"); !errors.Is(err, domain.ErrUserIsOrganizer) {
		t.Fatalf("expected organizer invite rejected, got %v", err)
	}
	if _, err := h.svc.InviteMember(h.ctx, h.alice, h.ref(), "alice"); !errors.Is(err, domain.ErrAlreadyMember) {
		t.Fatalf("expected member invite rejected, got %v", err)
	}
	for _, name := range []string{"bob", "carol"} {
		if _, err := h.svc.InviteMember(h.ctx, h.alice, h.ref(), name); err != nil {
			t.Fatalf("invite %s: %v", name, err)
		}
	}
	if _, err := h.svc.InviteMember(h.ctx, h.alice, h.ref(), "bob"); !errors.Is(err, domain.ErrAlreadyInvited) {
		t.Fatalf("expected repeat invite rejected, got %v", err)
	}

	mine, err := h.svc.MyTeam(h.ctx, h.bob, h.ref())
	if err != nil || mine.Team != nil || len(mine.Invitations) != 1 {
		t.Fatalf("expected one invitation for bob, got %+v (%v)", mine, err)
	}
	if _, err := h.svc.AcceptInvite(h.ctx, h.bob, h.ref(), team.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := h.svc.AcceptInvite(h.ctx, carol, h.ref(), team.ID); !errors.Is(err, domain.ErrTeamFull) {
		t.Fatalf("expected member limit enforced, got %v", err)
	}
	if _, err := h.svc.AcceptInvite(h.ctx, h.org, h.ref(), team.ID); !errors.Is(err, domain.ErrNotInvited) {
		t.Fatalf("expected uninvited accept rejected, got %v", err)
	}

	mine, _ = h.svc.MyTeam(h.ctx, h.bob, h.ref())
	if mine.Team == nil || mine.Team.ID != team.ID || len(mine.Team.Members) != 2 {
		t.Fatalf("expected bob on the team, got %+v", mine)
	}

	if err := h.svc.DeleteTeam(h.ctx, h.org, h.hunt.ID, team.ID); err != nil {
		t.Fatalf("delete team: %v", err)
	}
	if _, err := h.svc.CreateTeam(h.ctx, h.alice, h.ref(), "Again"); err != nil {
		t.Fatalf("expected alice free to found a team again, got %v", err)
	}
}

func TestLeaderboardStyles(t *testing.T) {
	h := newHarness(t, nil)
	p1 := h.puzzle(domain.NewPuzzle(0, "One", "one", "ONE"))
	p2 := domain.NewPuzzle(0, "Two", "two", "TWO")
	p2.Points = 3
	p2 = h.puzzle(p2)
	h.team(h.alice, "Alpha")
	h.team(h.bob, "Bravo")

	mustGuess := func(v domain.Viewer, p domain.Puzzle, text string) {
		t.Helper()
		if _, err := h.guess(v, p, text); err != nil {
			t.Fatalf("guess %s: %v", text, err)
		}
	}
	mustGuess(h.alice, p1, "one")
	mustGuess(h.bob, p2, "two")

	lb, err := h.svc.Leaderboard(h.ctx, h.alice, h.ref())
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].TeamName != "Bravo" || lb.Entries[0].Score != 3 {
		t.Fatalf("expected Bravo first on points, got %+v", lb.Entries)
	}

	hidden := h.hunt
	hidden.LeaderboardStyle = domain.LeaderboardHidden
	if _, err := h.svc.UpdateHunt(h.ctx, h.org, hidden); err != nil {
		t.Fatalf("update hunt: %v", err)
	}
	if _, err := h.svc.Leaderboard(h.ctx, h.alice, h.ref()); !errors.Is(err, domain.ErrLeaderboardHidden) {
		t.Fatalf("expected hidden leaderboard, got %v", err)
	}
	if _, err := h.svc.Leaderboard(h.ctx, h.org, h.ref()); err != nil {
		t.Fatalf("expected organizer to see hidden leaderboard, got %v", err)
	}
}

func TestSubscribeLeaderboardReceivesSolves(t *testing.T) {
	h := newHarness(t, nil)
	p := h.puzzle(domain.NewPuzzle(0, "P", "p", "ANSWER"))
	h.team(h.alice, "Live")

	ch, cancel, err := h.svc.SubscribeLeaderboard(h.ctx, h.bob, h.ref())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := <-ch
	if len(initial.Entries) != 1 || initial.Entries[0].Score != 0 {
		t.Fatalf("unexpected initial leaderboard %+v", initial)
	}

	if _, err := h.guess(h.alice, p, "wrong"); err != nil {
		t.Fatalf("guess: %v", err)
	}
	if _, err := h.guess(h.alice, p, "answer"); err != nil {
		t.Fatalf("guess: %v", err)
	}

	select {
	case update := <-ch:
		if update.Entries[0].Score != 1 || update.Entries[0].SolveCount != 1 {
			t.Fatalf("expected solve reflected, got %+v", update.Entries)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for leaderboard update")
	}
}

func TestResubscribeAfterEarlierViewerLeft(t *testing.T) {
	h := newHarness(t, nil)
	p := h.puzzle(domain.NewPuzzle(0, "P", "p", "ANSWER"))
	h.team(h.alice, "Churn")

	_, leave, err := h.svc.SubscribeLeaderboard(h.ctx, h.bob, h.ref())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	leave()
	ch, cancel, err := h.svc.SubscribeLeaderboard(h.ctx, h.org, h.ref())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-ch
	leave()

	if _, err := h.guess(h.alice, p, "answer"); err != nil {
		t.Fatalf("guess: %v", err)
	}
	select {
	case update := <-ch:
		if update.Entries[0].Score != 1 {
			t.Fatalf("expected solve reflected, got %+v", update.Entries)
		}
	case <-time.After(time.Second):
		t.Fatalf("second viewer never received the solve")
	}
}

func TestDeleteUserKeepsTeamProgress(t *testing.T) {
	h := newHarness(t, nil)
	p := domain.NewPuzzle(0, "P", "p", "ANSWER")
	p.ProgressPoints = 4
	p = h.puzzle(p)
	team := h.team(h.alice, "Remains")
	if _, err := h.guess(h.alice, p, "answer"); err != nil {
		t.Fatalf("guess: %v", err)
	}

	if err := h.svc.DeleteUser(h.ctx, h.bob, h.alice.UserID); !errors.Is(err, domain.ErrNotAccountOwner) {
		t.Fatalf("expected deleting another user rejected, got %v", err)
	}
	if err := h.svc.DeleteUser(h.ctx, h.alice, h.alice.UserID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	progress, err := h.svc.TeamProgress(h.ctx, team)
	if err != nil || progress != 4 {
		t.Fatalf("expected progress kept at 4, got %d (%v)", progress, err)
	}
}
