package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hunt-service/internal/auth"
	"hunt-service/internal/domain"
)

type viewerKey struct{}

func viewerFrom(ctx context.Context) domain.Viewer {
	v, _ := ctx.Value(viewerKey{}).(domain.Viewer)
	return v
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	// Browsers cannot set headers on websocket upgrades.
	return r.URL.Query().Get("access_token")
}

// authenticate resolves the bearer token into a viewer. Requests without a
// token proceed anonymously; a bad token is rejected outright.
func authenticate(tokens *auth.Tokens, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := tokens.Verify(raw)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					msg = "token expired"
				}
				logger.DebugContext(r.Context(), "rejected token", "err", err)
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: msg, Kind: domain.KindUnauthenticated.String()})
				return
			}
			ctx := context.WithValue(r.Context(), viewerKey{}, domain.Viewer{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// instrument logs each request and records it in metrics, labelled by the
// matched route pattern rather than the raw path.
func instrument(logger *slog.Logger, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			elapsed := time.Since(start)
			metrics.observeRequest(r.Method, route, status, elapsed)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"route", route,
				"path", r.URL.Path,
				"status", status,
				"duration", elapsed,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
