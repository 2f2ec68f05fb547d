package domain

import "crypto/subtle"

// SlugToken is the hunt slug as presented in a request URL. For a private
// hunt, presenting the current slug is a capability: whoever holds it may
// view the hunt. Renaming the slug revokes every previously shared link.
type SlugToken string

// GrantsAccess reports whether token matches the hunt's current slug.
func (t SlugToken) GrantsAccess(h Hunt) bool {
	if t == "" || h.Slug == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(t), []byte(h.Slug)) == 1
}

// IsAuthorizedToView decides read access to the hunt. Public hunts are open;
// private hunts need an organizer or the slug capability.
func (h Hunt) IsAuthorizedToView(isOrganizer bool, token SlugToken) bool {
	if !h.IsPrivate {
		return true
	}
	if isOrganizer {
		return true
	}
	return token.GrantsAccess(h)
}

// SolutionVisible reports whether a team may see the solution URL.
func (h Hunt) SolutionVisible(solved bool) bool {
	switch h.SolutionStyle {
	case SolutionVisible:
		return true
	case SolutionAfterSolve:
		return solved
	default:
		return false
	}
}
