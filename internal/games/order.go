package games

import "math/rand"

// OrderItem is one note-sequencing puzzle.
type OrderItem struct {
	MaqamID  int64
	Name     string
	Notes    []string
	Solution []string
}

func (i OrderItem) SubjectID() int64 { return i.MaqamID }

// Arrangement is the player's working copy of a puzzle's notes.
type Arrangement struct {
	notes []string
}

// NewArrangement shuffles the puzzle's notes into a starting order.
func NewArrangement(rng *rand.Rand, item OrderItem) *Arrangement {
	notes := make([]string, len(item.Notes))
	copy(notes, item.Notes)
	rng.Shuffle(len(notes), func(i, j int) { notes[i], notes[j] = notes[j], notes[i] })
	return &Arrangement{notes: notes}
}

// Move removes the note at from and reinserts it at to. Out-of-range
// indices are clamped to the ends, matching a drop past the last chip.
func (a *Arrangement) Move(from, to int) {
	if from < 0 || from >= len(a.notes) {
		return
	}
	moved := a.notes[from]
	a.notes = append(a.notes[:from], a.notes[from+1:]...)
	if to < 0 {
		to = 0
	}
	if to > len(a.notes) {
		to = len(a.notes)
	}
	a.notes = append(a.notes[:to], append([]string{moved}, a.notes[to:]...)...)
}

// Notes returns the current order.
func (a *Arrangement) Notes() []string {
	out := make([]string, len(a.notes))
	copy(out, a.notes)
	return out
}

// NewOrderSession grades by exact, order-sensitive sequence equality between
// the submitted arrangement and the stored solution.
func NewOrderSession(items []OrderItem, report ReportFunc) *Session {
	wrapped := make([]Item, 0, len(items))
	for _, it := range items {
		wrapped = append(wrapped, it)
	}
	grade := func(item Item, answer any) bool {
		o, ok := item.(OrderItem)
		if !ok {
			return false
		}
		seq, ok := answer.([]string)
		if !ok || len(seq) != len(o.Solution) {
			return false
		}
		for i := range seq {
			if seq[i] != o.Solution[i] {
				return false
			}
		}
		return true
	}
	return NewSession("sequencer", "order_notes", wrapped, grade, report)
}
