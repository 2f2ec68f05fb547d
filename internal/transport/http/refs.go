package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"hunt-service/internal/app"
	"hunt-service/internal/domain"
)

// parseRef splits a path segment of the form "{id}" or "{id}-{slug}".
func parseRef(raw string) (int64, string, bool) {
	idPart, slug, _ := strings.Cut(raw, "-")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, slug, true
}

func formatRef(id int64, slug string) string {
	if slug == "" {
		return strconv.FormatInt(id, 10)
	}
	return strconv.FormatInt(id, 10) + "-" + slug
}

// huntRef reads the hunt segment. The slug part, when present, is the access
// token for private hunts.
func huntRef(r *http.Request) (app.HuntRef, bool) {
	id, slug, ok := parseRef(chi.URLParam(r, "hunt"))
	if !ok {
		return app.HuntRef{}, false
	}
	return app.HuntRef{ID: id, Token: domain.SlugToken(slug)}, true
}

func puzzleRef(r *http.Request) (int64, string, bool) {
	return parseRef(chi.URLParam(r, "puzzle"))
}

func int64Param(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func huntPath(h domain.Hunt) string {
	return "/hunts/" + formatRef(h.ID, h.Slug)
}

func puzzlePath(h domain.Hunt, p domain.Puzzle) string {
	return huntPath(h) + "/puzzles/" + formatRef(p.ID, p.Slug)
}

// redirectCanonical sends an authorized GET whose slugs are stale or missing
// to the canonical path. It reports whether a redirect was written.
func redirectCanonical(w http.ResponseWriter, r *http.Request, canonical string) bool {
	if r.URL.Path == canonical {
		return false
	}
	target := canonical
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
	return true
}
