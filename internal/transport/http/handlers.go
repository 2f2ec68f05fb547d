package http

import (
	"context"
	"net/http"

	"hunt-service/internal/domain"
)

type createUserResponse struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

type usernamePayload struct {
	Username string `json:"username"`
}

type teamNamePayload struct {
	Name string `json:"name"`
}

type acceptPayload struct {
	TeamID int64 `json:"teamId"`
}

type guessPayload struct {
	Guess string `json:"guess"`
}

// puzzlePayload carries the puzzle fields inline with its canned responses.
type puzzlePayload struct {
	domain.Puzzle
	GuessResponses []domain.GuessResponse `json:"guessResponses"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var user domain.User
	if err := decodeJSON(w, r, &user); err != nil {
		h.fail(w, r, err)
		return
	}
	user.ID = 0
	created, err := h.service.CreateUser(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	token, err := h.tokens.Issue(created.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createUserResponse{User: created, Token: token})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "user")
	if !ok {
		h.notFound(w, "user")
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "user")
	if !ok {
		h.notFound(w, "user")
		return
	}
	if err := h.service.DeleteUser(r.Context(), viewerFrom(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listHunts(w http.ResponseWriter, r *http.Request) {
	hunts, err := h.service.ListHunts(r.Context(), viewerFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hunts)
}

func (h *Handler) createHunt(w http.ResponseWriter, r *http.Request) {
	hunt := domain.NewHunt("", "")
	if err := decodeJSON(w, r, &hunt); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.service.CreateHunt(r.Context(), viewerFrom(r.Context()), hunt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", huntPath(created))
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) viewHunt(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	view, err := h.service.ViewHunt(r.Context(), viewerFrom(r.Context()), ref)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if redirectCanonical(w, r, huntPath(view.Hunt)) {
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// updateHunt decodes the body over the current settings, so omitted fields
// keep their values.
func (h *Handler) updateHunt(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	viewer := viewerFrom(r.Context())
	hunt, _, err := h.service.AuthorizeHunt(r.Context(), viewer, ref)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := decodeJSON(w, r, &hunt); err != nil {
		h.fail(w, r, err)
		return
	}
	hunt.ID = ref.ID
	updated, err := h.service.UpdateHunt(r.Context(), viewer, hunt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteHunt(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	if err := h.service.DeleteHunt(r.Context(), viewerFrom(r.Context()), ref.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addOrganizer(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	var body usernamePayload
	if err := decodeJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.AddOrganizer(r.Context(), viewerFrom(r.Context()), ref.ID, body.Username); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	lb, err := h.service.Leaderboard(r.Context(), viewerFrom(r.Context()), ref)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *Handler) myTeam(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	view, err := h.service.MyTeam(r.Context(), viewerFrom(r.Context()), ref)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) createTeam(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	var body teamNamePayload
	if err := decodeJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	team, err := h.service.CreateTeam(r.Context(), viewerFrom(r.Context()), ref, body.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (h *Handler) inviteMember(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	var body usernamePayload
	if err := decodeJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	team, err := h.service.InviteMember(r.Context(), viewerFrom(r.Context()), ref, body.Username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *Handler) acceptInvite(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	var body acceptPayload
	if err := decodeJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	team, err := h.service.AcceptInvite(r.Context(), viewerFrom(r.Context()), ref, body.TeamID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *Handler) listTeams(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	teams, err := h.service.ListTeams(r.Context(), viewerFrom(r.Context()), ref.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (h *Handler) deleteTeam(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	teamID, ok := int64Param(r, "team")
	if !ok {
		h.notFound(w, "team")
		return
	}
	if err := h.service.DeleteTeam(r.Context(), viewerFrom(r.Context()), ref.ID, teamID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) grantExtraGuesses(w http.ResponseWriter, r *http.Request) {
	h.writeGrant(w, r, http.StatusCreated, h.service.GrantExtraGuesses)
}

func (h *Handler) updateExtraGuesses(w http.ResponseWriter, r *http.Request) {
	h.writeGrant(w, r, http.StatusOK, h.service.UpdateExtraGuesses)
}

type grantFunc func(ctx context.Context, viewer domain.Viewer, huntID int64, grant domain.ExtraGuessGrant) (domain.ExtraGuessGrant, error)

func (h *Handler) writeGrant(w http.ResponseWriter, r *http.Request, status int, apply grantFunc) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	var grant domain.ExtraGuessGrant
	if err := decodeJSON(w, r, &grant); err != nil {
		h.fail(w, r, err)
		return
	}
	saved, err := apply(r.Context(), viewerFrom(r.Context()), ref.ID, grant)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, saved)
}

func (h *Handler) createPuzzle(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	body := puzzlePayload{Puzzle: domain.NewPuzzle(ref.ID, "", "", "")}
	if err := decodeJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	puzzle, err := h.service.CreatePuzzle(r.Context(), viewerFrom(r.Context()), ref.ID, body.Puzzle, body.GuessResponses)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, puzzle)
}

func (h *Handler) viewPuzzle(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	puzzleID, _, ok := puzzleRef(r)
	if !ok {
		h.notFound(w, "puzzle")
		return
	}
	view, err := h.service.ViewPuzzle(r.Context(), viewerFrom(r.Context()), ref, puzzleID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if redirectCanonical(w, r, puzzlePath(view.Hunt, view.Puzzle)) {
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// updatePuzzle decodes over the organizer's view of the puzzle. Omitting
// guessResponses keeps the current ones; sending a list replaces them.
func (h *Handler) updatePuzzle(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	puzzleID, _, ok := puzzleRef(r)
	if !ok {
		h.notFound(w, "puzzle")
		return
	}
	viewer := viewerFrom(r.Context())
	view, err := h.service.ViewPuzzle(r.Context(), viewer, ref, puzzleID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !view.IsOrganizer {
		h.fail(w, r, domain.ErrNotOrganizer)
		return
	}
	body := puzzlePayload{Puzzle: view.Puzzle, GuessResponses: view.GuessResponses}
	if err := decodeJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	body.Puzzle.ID = puzzleID
	puzzle, err := h.service.UpdatePuzzle(r.Context(), viewer, ref.ID, body.Puzzle, body.GuessResponses)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, puzzle)
}

func (h *Handler) deletePuzzle(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	puzzleID, _, ok := puzzleRef(r)
	if !ok {
		h.notFound(w, "puzzle")
		return
	}
	if err := h.service.DeletePuzzle(r.Context(), viewerFrom(r.Context()), ref.ID, puzzleID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submitGuess(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	puzzleID, _, ok := puzzleRef(r)
	if !ok {
		h.notFound(w, "puzzle")
		return
	}
	var body guessPayload
	if err := decodeJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	viewer := viewerFrom(r.Context())
	if !viewer.Anonymous() && !h.guesses.Allow(ref.ID, viewer.UserID) {
		h.metrics.observeGuess(domain.Guess{}, errRateLimited)
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: errRateLimited.Error(), Kind: "rate_limited"})
		return
	}
	result, err := h.service.SubmitGuess(r.Context(), viewer, ref, puzzleID, body.Guess)
	h.metrics.observeGuess(result.Guess, err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) guessAllowance(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	puzzleID, _, ok := puzzleRef(r)
	if !ok {
		h.notFound(w, "puzzle")
		return
	}
	allowance, err := h.service.GuessAllowance(r.Context(), viewerFrom(r.Context()), ref, puzzleID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, allowance)
}

func (h *Handler) puzzleLog(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		h.notFound(w, "hunt")
		return
	}
	puzzleID, _, ok := puzzleRef(r)
	if !ok {
		h.notFound(w, "puzzle")
		return
	}
	guesses, err := h.service.PuzzleLog(r.Context(), viewerFrom(r.Context()), ref.ID, puzzleID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guesses)
}
