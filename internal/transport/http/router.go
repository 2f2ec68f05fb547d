package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hunt-service/internal/app"
	"hunt-service/internal/auth"
)

// Options configures NewRouter. Zero values give a router without guess
// throttling and with a private metrics registry.
type Options struct {
	Logger      *slog.Logger
	Metrics     *Metrics
	GuessPerMin int
	GuessBurst  int
}

// Handler serves the JSON API.
type Handler struct {
	service *app.HuntService
	tokens  *auth.Tokens
	logger  *slog.Logger
	metrics *Metrics
	guesses *guessLimiter
}

// NewRouter mounts every API route on a chi router.
func NewRouter(service *app.HuntService, tokens *auth.Tokens, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	h := &Handler{
		service: service,
		tokens:  tokens,
		logger:  logger,
		metrics: metrics,
		guesses: newGuessLimiter(opts.GuessPerMin, opts.GuessBurst),
	}
	ws := NewWSHandler(service, logger, metrics)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument(logger, metrics))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authenticate(tokens, logger))

		r.Post("/users", h.createUser)
		r.Get("/users/{user}", h.getUser)
		r.Delete("/users/{user}", h.deleteUser)

		r.Get("/hunts", h.listHunts)
		r.Post("/hunts", h.createHunt)
		r.Route("/hunts/{hunt}", func(r chi.Router) {
			r.Get("/", h.viewHunt)
			r.Put("/", h.updateHunt)
			r.Delete("/", h.deleteHunt)
			r.Post("/organizers", h.addOrganizer)

			r.Get("/leaderboard", h.leaderboard)
			r.Get("/leaderboard/ws", ws.ServeWS)

			r.Get("/team", h.myTeam)
			r.Post("/team", h.createTeam)
			r.Post("/team/invites", h.inviteMember)
			r.Post("/team/accept", h.acceptInvite)
			r.Get("/teams", h.listTeams)
			r.Delete("/teams/{team}", h.deleteTeam)

			r.Post("/grants", h.grantExtraGuesses)
			r.Put("/grants", h.updateExtraGuesses)

			r.Post("/puzzles", h.createPuzzle)
			r.Route("/puzzles/{puzzle}", func(r chi.Router) {
				r.Get("/", h.viewPuzzle)
				r.Put("/", h.updatePuzzle)
				r.Delete("/", h.deletePuzzle)
				r.Post("/guesses", h.submitGuess)
				r.Get("/allowance", h.guessAllowance)
				r.Get("/log", h.puzzleLog)
			})
		})
	})
	return r
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, h.logger, err)
}

func (h *Handler) notFound(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: what + " not found", Kind: "not_found"})
}
