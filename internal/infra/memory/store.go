package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"hunt-service/internal/app"
	"hunt-service/internal/domain"
)

var (
	_ app.Store          = (*Store)(nil)
	_ app.ProgressReader = (*Store)(nil)
	_ app.PuzzleLoader   = (*Store)(nil)
)

type teamPuzzle struct {
	teamID   int64
	puzzleID int64
}

// Store is a concurrency-safe in-memory implementation of app.Store and
// app.ProgressReader. It enforces the same uniqueness rules and cascades as
// the Postgres schema, so it backs both demo mode and service tests.
type Store struct {
	mu     sync.RWMutex
	nextID int64

	users      map[int64]domain.User
	hunts      map[int64]domain.Hunt
	organizers map[int64]map[int64]struct{}
	puzzles    map[int64]domain.Puzzle
	responses  map[int64][]domain.GuessResponse
	teams      map[int64]domain.Team
	guesses    []domain.Guess
	grants     map[teamPuzzle]domain.ExtraGuessGrant
}

func NewStore() *Store {
	return &Store{
		users:      make(map[int64]domain.User),
		hunts:      make(map[int64]domain.Hunt),
		organizers: make(map[int64]map[int64]struct{}),
		puzzles:    make(map[int64]domain.Puzzle),
		responses:  make(map[int64][]domain.GuessResponse),
		teams:      make(map[int64]domain.Team),
		grants:     make(map[teamPuzzle]domain.ExtraGuessGrant),
	}
}

func (s *Store) newID() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}
	user.ID = s.newID()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

// DeleteUser drops the user's memberships, invitations and organizer rows and
// clears the user from past guesses.
func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, id)
	for _, orgs := range s.organizers {
		delete(orgs, id)
	}
	for tid, t := range s.teams {
		t.Members = removeID(t.Members, id)
		t.InvitedMembers = removeID(t.InvitedMembers, id)
		s.teams[tid] = t
	}
	for i := range s.guesses {
		if uid := s.guesses[i].UserID; uid != nil && *uid == id {
			s.guesses[i].UserID = nil
		}
	}
	return nil
}

func (s *Store) CreateHunt(_ context.Context, hunt *domain.Hunt, organizerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[organizerID]; !ok {
		return domain.ErrUserNotFound
	}
	if s.slugTakenLocked(hunt.Slug, 0) {
		return domain.ErrHuntSlugTaken
	}
	hunt.ID = s.newID()
	s.hunts[hunt.ID] = *hunt
	s.organizers[hunt.ID] = map[int64]struct{}{organizerID: {}}
	return nil
}

func (s *Store) slugTakenLocked(slug string, exceptID int64) bool {
	for _, h := range s.hunts {
		if h.ID != exceptID && h.Slug == slug {
			return true
		}
	}
	return false
}

func (s *Store) GetHunt(_ context.Context, id int64) (domain.Hunt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hunts[id]
	if !ok {
		return domain.Hunt{}, domain.ErrHuntNotFound
	}
	return h, nil
}

func (s *Store) ListHunts(_ context.Context) ([]domain.Hunt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Hunt, 0, len(s.hunts))
	for _, h := range s.hunts {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateHunt(_ context.Context, hunt *domain.Hunt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hunts[hunt.ID]; !ok {
		return domain.ErrHuntNotFound
	}
	if s.slugTakenLocked(hunt.Slug, hunt.ID) {
		return domain.ErrHuntSlugTaken
	}
	s.hunts[hunt.ID] = *hunt
	return nil
}

func (s *Store) DeleteHunt(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hunts[id]; !ok {
		return domain.ErrHuntNotFound
	}
	for pid, p := range s.puzzles {
		if p.HuntID == id {
			s.deletePuzzleLocked(pid)
		}
	}
	for tid, t := range s.teams {
		if t.HuntID == id {
			s.deleteTeamLocked(tid)
		}
	}
	delete(s.organizers, id)
	delete(s.hunts, id)
	return nil
}

func (s *Store) AddOrganizer(_ context.Context, huntID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	orgs, ok := s.organizers[huntID]
	if !ok {
		return domain.ErrHuntNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	if _, dup := orgs[userID]; dup {
		return domain.ErrAlreadyOrganizer
	}
	orgs[userID] = struct{}{}
	return nil
}

func (s *Store) IsOrganizer(_ context.Context, huntID, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.organizers[huntID][userID]
	return ok, nil
}

func (s *Store) CreatePuzzle(_ context.Context, puzzle *domain.Puzzle, responses []domain.GuessResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hunts[puzzle.HuntID]; !ok {
		return domain.ErrHuntNotFound
	}
	puzzle.ID = s.newID()
	s.puzzles[puzzle.ID] = *puzzle
	s.responses[puzzle.ID] = s.stampResponsesLocked(puzzle.ID, responses)
	return nil
}

func (s *Store) UpdatePuzzle(_ context.Context, puzzle *domain.Puzzle, responses []domain.GuessResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.puzzles[puzzle.ID]
	if !ok || existing.HuntID != puzzle.HuntID {
		return domain.ErrPuzzleNotFound
	}
	s.puzzles[puzzle.ID] = *puzzle
	s.responses[puzzle.ID] = s.stampResponsesLocked(puzzle.ID, responses)
	return nil
}

func (s *Store) stampResponsesLocked(puzzleID int64, responses []domain.GuessResponse) []domain.GuessResponse {
	out := make([]domain.GuessResponse, len(responses))
	for i, gr := range responses {
		gr.ID = s.newID()
		gr.PuzzleID = puzzleID
		out[i] = gr
	}
	return out
}

func (s *Store) GetPuzzle(_ context.Context, huntID, puzzleID int64) (domain.Puzzle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.puzzles[puzzleID]
	if !ok || p.HuntID != huntID {
		return domain.Puzzle{}, domain.ErrPuzzleNotFound
	}
	return p, nil
}

func (s *Store) ListPuzzles(_ context.Context, huntID int64) ([]domain.Puzzle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.hunts[huntID]; !ok {
		return nil, domain.ErrHuntNotFound
	}
	out := make([]domain.Puzzle, 0)
	for _, p := range s.puzzles {
		if p.HuntID == huntID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListGuessResponses(_ context.Context, puzzleID int64) ([]domain.GuessResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.GuessResponse(nil), s.responses[puzzleID]...), nil
}

func (s *Store) DeletePuzzle(_ context.Context, huntID, puzzleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.puzzles[puzzleID]
	if !ok || p.HuntID != huntID {
		return domain.ErrPuzzleNotFound
	}
	s.deletePuzzleLocked(puzzleID)
	return nil
}

func (s *Store) deletePuzzleLocked(puzzleID int64) {
	delete(s.puzzles, puzzleID)
	delete(s.responses, puzzleID)
	s.guesses = filterGuesses(s.guesses, func(g domain.Guess) bool { return g.PuzzleID != puzzleID })
	for k := range s.grants {
		if k.puzzleID == puzzleID {
			delete(s.grants, k)
		}
	}
}

func (s *Store) CreateTeam(_ context.Context, team *domain.Team, founderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hunts[team.HuntID]; !ok {
		return domain.ErrHuntNotFound
	}
	if _, ok := s.users[founderID]; !ok {
		return domain.ErrUserNotFound
	}
	for _, t := range s.teams {
		if t.HuntID != team.HuntID {
			continue
		}
		if t.Name == team.Name {
			return domain.ErrTeamNameTaken
		}
		if t.HasMember(founderID) {
			return domain.ErrAlreadyOnTeam
		}
	}
	team.ID = s.newID()
	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now().UTC()
	}
	team.Members = []int64{founderID}
	team.InvitedMembers = []int64{}
	s.teams[team.ID] = copyTeam(*team)
	return nil
}

func (s *Store) GetTeam(_ context.Context, id int64) (domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	return copyTeam(t), nil
}

func (s *Store) TeamForUser(_ context.Context, huntID, userID int64) (domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.teams {
		if t.HuntID == huntID && t.HasMember(userID) {
			return copyTeam(t), nil
		}
	}
	return domain.Team{}, domain.ErrTeamNotFound
}

func (s *Store) ListTeams(_ context.Context, huntID int64) ([]domain.Team, error) {
	return s.teamsWhere(func(t domain.Team) bool { return t.HuntID == huntID }), nil
}

func (s *Store) InvitingTeams(_ context.Context, huntID, userID int64) ([]domain.Team, error) {
	return s.teamsWhere(func(t domain.Team) bool { return t.HuntID == huntID && t.IsInvited(userID) }), nil
}

func (s *Store) teamsWhere(keep func(domain.Team) bool) []domain.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Team, 0)
	for _, t := range s.teams {
		if keep(t) {
			out = append(out, copyTeam(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) AddInvite(_ context.Context, teamID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return domain.ErrTeamNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	if t.IsInvited(userID) {
		return domain.ErrAlreadyInvited
	}
	t.InvitedMembers = append(t.InvitedMembers, userID)
	s.teams[teamID] = t
	return nil
}

func (s *Store) AcceptInvite(_ context.Context, teamID, userID int64, memberLimit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return domain.ErrTeamNotFound
	}
	if !t.IsInvited(userID) {
		return domain.ErrNotInvited
	}
	for _, other := range s.teams {
		if other.HuntID == t.HuntID && other.HasMember(userID) {
			return domain.ErrAlreadyOnTeam
		}
	}
	if memberLimit > 0 && len(t.Members) >= memberLimit {
		return domain.ErrTeamFull
	}
	t.InvitedMembers = removeID(t.InvitedMembers, userID)
	t.Members = append(t.Members, userID)
	s.teams[teamID] = t
	return nil
}

func (s *Store) DeleteTeam(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		return domain.ErrTeamNotFound
	}
	s.deleteTeamLocked(id)
	return nil
}

func (s *Store) deleteTeamLocked(teamID int64) {
	delete(s.teams, teamID)
	s.guesses = filterGuesses(s.guesses, func(g domain.Guess) bool { return g.TeamID != teamID })
	for k := range s.grants {
		if k.teamID == teamID {
			delete(s.grants, k)
		}
	}
}

// CreateGuess holds the write lock across the solved check and the insert,
// so of two concurrent correct guesses exactly one is stored.
func (s *Store) CreateGuess(_ context.Context, guess *domain.Guess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[guess.TeamID]; !ok {
		return domain.ErrTeamNotFound
	}
	if _, ok := s.puzzles[guess.PuzzleID]; !ok {
		return domain.ErrPuzzleNotFound
	}
	if guess.Correct && s.isSolvedLocked(guess.TeamID, guess.PuzzleID) {
		return domain.ErrAlreadySolved
	}
	guess.ID = s.newID()
	if guess.UserID != nil {
		uid := *guess.UserID
		guess.UserID = &uid
	}
	s.guesses = append(s.guesses, *guess)
	return nil
}

func (s *Store) ListGuesses(_ context.Context, filter app.GuessFilter) ([]domain.Guess, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Guess, 0)
	for _, g := range s.guesses {
		if filter.TeamID != 0 && g.TeamID != filter.TeamID {
			continue
		}
		if filter.PuzzleID != 0 && g.PuzzleID != filter.PuzzleID {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) CountScoredGuesses(_ context.Context, teamID, puzzleID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, g := range s.guesses {
		if g.TeamID == teamID && g.PuzzleID == puzzleID && g.CountsAsGuess {
			n++
		}
	}
	return n, nil
}

func (s *Store) HasGuessed(_ context.Context, teamID, puzzleID int64, guess string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.guesses {
		if g.TeamID == teamID && g.PuzzleID == puzzleID && g.Guess == guess {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) IsSolved(_ context.Context, teamID, puzzleID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSolvedLocked(teamID, puzzleID), nil
}

func (s *Store) isSolvedLocked(teamID, puzzleID int64) bool {
	for _, g := range s.guesses {
		if g.Correct && g.TeamID == teamID && g.PuzzleID == puzzleID {
			return true
		}
	}
	return false
}

func (s *Store) CreateGrant(_ context.Context, grant *domain.ExtraGuessGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[grant.TeamID]; !ok {
		return domain.ErrTeamNotFound
	}
	if _, ok := s.puzzles[grant.PuzzleID]; !ok {
		return domain.ErrPuzzleNotFound
	}
	key := teamPuzzle{grant.TeamID, grant.PuzzleID}
	if _, dup := s.grants[key]; dup {
		return domain.ErrDuplicateGrant
	}
	grant.ID = s.newID()
	s.grants[key] = *grant
	return nil
}

func (s *Store) UpdateGrant(_ context.Context, grant *domain.ExtraGuessGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := teamPuzzle{grant.TeamID, grant.PuzzleID}
	existing, ok := s.grants[key]
	if !ok {
		return domain.ErrGrantNotFound
	}
	grant.ID = existing.ID
	s.grants[key] = *grant
	return nil
}

func (s *Store) GetGrant(_ context.Context, teamID, puzzleID int64) (domain.ExtraGuessGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[teamPuzzle{teamID, puzzleID}]
	if !ok {
		return domain.ExtraGuessGrant{}, domain.ErrGrantNotFound
	}
	return g, nil
}

func (s *Store) SolvedProgressPoints(_ context.Context, teamID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, g := range s.guesses {
		if g.Correct && g.TeamID == teamID {
			total += s.puzzles[g.PuzzleID].ProgressPoints
		}
	}
	return total, nil
}

func (s *Store) SolvedPuzzles(_ context.Context, teamID int64) (map[int64]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]string)
	for _, g := range s.guesses {
		if g.Correct && g.TeamID == teamID {
			out[g.PuzzleID] = g.Guess
		}
	}
	return out, nil
}

func (s *Store) TeamStandings(_ context.Context, huntID int64) ([]domain.Standing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byTeam := make(map[int64]*domain.Standing)
	out := make([]domain.Standing, 0)
	for _, t := range s.teams {
		if t.HuntID == huntID {
			byTeam[t.ID] = &domain.Standing{TeamID: t.ID, TeamName: t.Name}
		}
	}
	for _, g := range s.guesses {
		st, ok := byTeam[g.TeamID]
		if !ok || !g.Correct {
			continue
		}
		st.Score += s.puzzles[g.PuzzleID].Points
		st.SolveCount++
		if st.LastSolve == nil || g.Time.After(*st.LastSolve) {
			at := g.Time
			st.LastSolve = &at
		}
	}
	for _, st := range byTeam {
		out = append(out, *st)
	}
	return out, nil
}

func (s *Store) PuzzleStats(_ context.Context, huntID int64) (map[int64]domain.PuzzleStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]domain.PuzzleStats)
	for _, g := range s.guesses {
		p, ok := s.puzzles[g.PuzzleID]
		if !ok || p.HuntID != huntID {
			continue
		}
		st := out[g.PuzzleID]
		st.GuessCount++
		if g.Correct {
			st.SolveCount++
		}
		out[g.PuzzleID] = st
	}
	return out, nil
}

func copyTeam(t domain.Team) domain.Team {
	t.Members = append([]int64{}, t.Members...)
	t.InvitedMembers = append([]int64{}, t.InvitedMembers...)
	return t
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func filterGuesses(guesses []domain.Guess, keep func(domain.Guess) bool) []domain.Guess {
	out := guesses[:0]
	for _, g := range guesses {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}
