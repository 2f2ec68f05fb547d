package domain

import (
	"strings"
	"unicode"
)

// NormalizeAnswer keeps only letters and digits and upper-cases them, so
// "The Answer!" and "theanswer" compare equal.
func NormalizeAnswer(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

// Matches reports whether a normalized guess solves the puzzle.
func (p Puzzle) Matches(normalizedGuess string) bool {
	return normalizedGuess != "" && normalizedGuess == NormalizeAnswer(p.Answer)
}

// CorrectResponse is the text recorded for a correct guess.
func (p Puzzle) CorrectResponse() string {
	if p.AnswerResponse != "" {
		return p.AnswerResponse
	}
	return DefaultAnswerResponse
}

// MatchGuessResponse returns the canned response whose guess normalizes to
// the same text, if any.
func MatchGuessResponse(responses []GuessResponse, normalizedGuess string) (GuessResponse, bool) {
	for _, gr := range responses {
		if NormalizeAnswer(gr.Guess) == normalizedGuess {
			return gr, true
		}
	}
	return GuessResponse{}, false
}
