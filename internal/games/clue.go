package games

import "strings"

// ClueItem is one deduction puzzle.
type ClueItem struct {
	MaqamID int64
	Clues   []string
	Answer  string
}

func (i ClueItem) SubjectID() int64 { return i.MaqamID }

// NewClueSession grades free-text guesses by case-insensitive,
// whitespace-trimmed equality. A wrong guess leaves the session presenting
// the same item, so the player may retry or reveal; reveal is a Skip that
// the view accompanies with the answer.
func NewClueSession(items []ClueItem, report ReportFunc) *Session {
	wrapped := make([]Item, 0, len(items))
	for _, it := range items {
		wrapped = append(wrapped, it)
	}
	grade := func(item Item, answer any) bool {
		c, ok := item.(ClueItem)
		if !ok {
			return false
		}
		guess, ok := answer.(string)
		if !ok {
			return false
		}
		return normalizeGuess(guess) == normalizeGuess(c.Answer)
	}
	return NewSession("clue", "clue_game", wrapped, grade, report)
}

func normalizeGuess(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
