package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxTextLength = 500
	maxSlugLength = 50
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return maxLength(field, value, maxTextLength)
}

func maxLength(field, value string, n int) error {
	if utf8.RuneCountInString(value) > n {
		return &ValidationError{Field: field, Reason: "is too long"}
	}
	return nil
}

func nonNegative(field string, v int) error {
	if v < 0 {
		return &ValidationError{Field: field, Reason: "must be zero or greater"}
	}
	return nil
}

func validSlug(field, slug string) error {
	if slug == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	if len(slug) > maxSlugLength {
		return &ValidationError{Field: field, Reason: "is too long"}
	}
	if !slugPattern.MatchString(slug) {
		return &ValidationError{Field: field, Reason: "may only contain letters, numbers, underscores or hyphens"}
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate checks user field constraints.
func (u User) Validate() error {
	return firstError(
		requireText("username", u.Username),
		maxLength("displayName", u.DisplayName, maxTextLength),
		maxLength("discordUsername", u.DiscordUsername, maxTextLength),
	)
}

// Validate checks hunt field constraints.
func (h Hunt) Validate() error {
	if err := firstError(
		requireText("name", h.Name),
		validSlug("slug", h.Slug),
		nonNegative("progressFloor", h.ProgressFloor),
		nonNegative("memberLimit", h.MemberLimit),
		nonNegative("guessLimit", h.GuessLimit),
	); err != nil {
		return err
	}
	switch h.LeaderboardStyle {
	case LeaderboardDefault, LeaderboardHidden, LeaderboardSpeedrun:
	default:
		return &ValidationError{Field: "leaderboardStyle", Reason: "is not a valid choice"}
	}
	switch h.SolutionStyle {
	case SolutionVisible, SolutionHidden, SolutionAfterSolve:
	default:
		return &ValidationError{Field: "solutionStyle", Reason: "is not a valid choice"}
	}
	if h.StartTime != nil && h.EndTime != nil && h.EndTime.Before(*h.StartTime) {
		return &ValidationError{Field: "endTime", Reason: "must not be before the start time"}
	}
	return nil
}

// Validate checks puzzle field constraints.
func (p Puzzle) Validate() error {
	return firstError(
		requireText("name", p.Name),
		validSlug("slug", p.Slug),
		requireText("answer", p.Answer),
		maxLength("answerResponse", p.AnswerResponse, maxTextLength),
		maxLength("solutionUrl", p.SolutionURL, maxTextLength),
		nonNegative("points", p.Points),
		nonNegative("progressPoints", p.ProgressPoints),
		nonNegative("progressThreshold", p.ProgressThreshold),
	)
}

// Validate checks team field constraints.
func (t Team) Validate() error {
	return requireText("name", t.Name)
}

// Validate checks canned response field constraints.
func (gr GuessResponse) Validate() error {
	return firstError(
		requireText("guess", gr.Guess),
		requireText("response", gr.Response),
	)
}

// ValidateGuessResponses also rejects two responses that normalize to the
// same guess, which would make the canned reply ambiguous.
func ValidateGuessResponses(responses []GuessResponse) error {
	seen := make(map[string]struct{}, len(responses))
	for _, gr := range responses {
		if err := gr.Validate(); err != nil {
			return err
		}
		key := NormalizeAnswer(gr.Guess)
		if _, dup := seen[key]; dup {
			return ErrDuplicateGuessResponse
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ValidateGuessText checks a raw submission before normalization.
func ValidateGuessText(raw string) error {
	if err := requireText("guess", raw); err != nil {
		return err
	}
	if NormalizeAnswer(raw) == "" {
		return &ValidationError{Field: "guess", Reason: "must contain a letter or digit"}
	}
	return nil
}
