package games

import "errors"

var (
	// ErrSelectionIncomplete means Commit was called without one selection
	// from each column.
	ErrSelectionIncomplete = errors.New("select one item from each column")
	// ErrPairConflict means the left or right endpoint is already committed.
	ErrPairConflict = errors.New("endpoint already paired")
	// ErrMatchIncomplete means grading was requested before every left item
	// was paired.
	ErrMatchIncomplete = errors.New("not all pairs matched")
)

// PaletteSize is the number of distinct colors cycled across committed
// pairs; the view maps the index to its theme.
const PaletteSize = 8

type MatchingLeft struct {
	ID   int64
	Name string
}

// MatchingSet is one matching puzzle: left entities, right values, and the
// server's solution keyed by left id.
type MatchingSet struct {
	Topic    string
	Left     []MatchingLeft
	Right    []string
	Solution map[int64]string
}

type Pair struct {
	Left  int64
	Right int
}

// MatchingState tracks an in-progress puzzle: current selections, committed
// pairs, and the color assigned to each pair. Each endpoint belongs to at
// most one committed pair.
type MatchingState struct {
	leftSel   *int64
	rightSel  *int
	chosen    []Pair
	colors    map[int64]int
	nextColor int
}

func NewMatchingState() *MatchingState {
	return &MatchingState{colors: map[int64]int{}}
}

// SelectLeft and SelectRight record the pending picks as-is; whether an
// endpoint is already committed is judged at Commit so the rejection carries
// ErrPairConflict instead of silently dropping the pick.
func (m *MatchingState) SelectLeft(id int64) {
	m.leftSel = &id
}

func (m *MatchingState) SelectRight(idx int) {
	m.rightSel = &idx
}

// Commit turns the current selection into a pair. Conflicting commits are
// rejected without mutating the committed set; the selection survives so the
// player can pick a different partner.
func (m *MatchingState) Commit() (Pair, error) {
	if m.leftSel == nil || m.rightSel == nil {
		return Pair{}, ErrSelectionIncomplete
	}
	if m.leftCommitted(*m.leftSel) || m.rightCommitted(*m.rightSel) {
		return Pair{}, ErrPairConflict
	}
	p := Pair{Left: *m.leftSel, Right: *m.rightSel}
	m.chosen = append(m.chosen, p)
	m.colors[p.Left] = m.nextColor % PaletteSize
	m.nextColor++
	m.leftSel = nil
	m.rightSel = nil
	return p, nil
}

// Reset clears all pairs, selections, and colors.
func (m *MatchingState) Reset() {
	m.leftSel = nil
	m.rightSel = nil
	m.chosen = nil
	m.colors = map[int64]int{}
	m.nextColor = 0
}

func (m *MatchingState) Pairs() []Pair {
	out := make([]Pair, len(m.chosen))
	copy(out, m.chosen)
	return out
}

func (m *MatchingState) Count() int { return len(m.chosen) }

// Color returns the palette index assigned to a committed left id.
func (m *MatchingState) Color(leftID int64) (int, bool) {
	c, ok := m.colors[leftID]
	return c, ok
}

// Selection exposes the pending picks for rendering.
func (m *MatchingState) Selection() (left *int64, right *int) {
	return m.leftSel, m.rightSel
}

func (m *MatchingState) leftCommitted(id int64) bool {
	for _, p := range m.chosen {
		if p.Left == id {
			return true
		}
	}
	return false
}

func (m *MatchingState) rightCommitted(idx int) bool {
	for _, p := range m.chosen {
		if p.Right == idx {
			return true
		}
	}
	return false
}

// MatchingGame binds a puzzle to its in-progress state.
type MatchingGame struct {
	Set    MatchingSet
	State  *MatchingState
	report ReportFunc
}

func NewMatchingGame(set MatchingSet, report ReportFunc) *MatchingGame {
	return &MatchingGame{Set: set, State: NewMatchingState(), report: report}
}

// Grade compares every committed pair against the solution once all left
// items are paired, reports each pair's activity, and returns the tally.
func (g *MatchingGame) Grade() (correct, total int, err error) {
	if g.State.Count() < len(g.Set.Left) {
		return 0, 0, ErrMatchIncomplete
	}
	total = len(g.Set.Solution)
	for _, p := range g.State.Pairs() {
		if p.Right >= 0 && p.Right < len(g.Set.Right) && g.Set.Solution[p.Left] == g.Set.Right[p.Right] {
			correct++
		}
	}
	if g.report != nil {
		for _, p := range g.State.Pairs() {
			g.report(p.Left, "matching_"+g.Set.Topic)
		}
	}
	return correct, total, nil
}

// Percent converts a tally to the 0-100 score the completion screen shows.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(correct)/float64(total)*100 + 0.5)
}
