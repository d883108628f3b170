// Package games implements the stepped puzzle sessions. All grading is pure
// local comparison; the catalog fetched at session start already carries the
// answers, so no network round-trip decides correctness.
package games

import (
	"context"
	"errors"
)

var (
	// ErrCatalogUnavailable means the catalog fetch failed or came back empty.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrNotPresenting means the session is not waiting for an answer.
	ErrNotPresenting = errors.New("no item presented")
	// ErrNotGraded means Advance was called before an answer was graded.
	ErrNotGraded = errors.New("current item not graded")
	// ErrSessionComplete means the session has already terminated.
	ErrSessionComplete = errors.New("session complete")
)

type State int

const (
	StateUnloaded State = iota
	StateLoaded
	StatePresenting
	StateGraded
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StatePresenting:
		return "presenting"
	case StateGraded:
		return "graded"
	case StateComplete:
		return "complete"
	}
	return "unknown"
}

// Item is one puzzle in a catalog. SubjectID correlates the item to a
// knowledge-base entity for activity reporting; zero means none.
type Item interface {
	SubjectID() int64
}

// GradeFunc decides one item locally. The answer's concrete type is
// variant-specific.
type GradeFunc func(item Item, answer any) bool

// ReportFunc dispatches an activity completion. Implementations are expected
// to be fire-and-forget; the session never inspects the outcome.
type ReportFunc func(maqamID int64, activity string)

// Session steps a cursor through one immutable catalog.
type Session struct {
	variant  string
	activity string
	items    []Item
	grade    GradeFunc
	report   ReportFunc

	index   int
	correct int
	state   State
	graded  bool
	lastOK  bool
}

func NewSession(variant, activity string, items []Item, grade GradeFunc, report ReportFunc) *Session {
	s := &Session{
		variant:  variant,
		activity: activity,
		items:    items,
		grade:    grade,
		report:   report,
		state:    StateLoaded,
	}
	if len(items) == 0 {
		s.state = StateComplete
		return s
	}
	s.state = StatePresenting
	return s
}

func (s *Session) Variant() string { return s.variant }
func (s *Session) State() State    { return s.state }
func (s *Session) Index() int      { return s.index }
func (s *Session) Correct() int    { return s.correct }
func (s *Session) Total() int      { return len(s.items) }

// Current returns the item awaiting an answer or feedback.
func (s *Session) Current() (Item, error) {
	if s.state != StatePresenting && s.state != StateGraded {
		return nil, ErrNotPresenting
	}
	return s.items[s.index], nil
}

// Answer grades the presented item. A correct grade bumps the running count
// and dispatches the activity report before returning, so the report is
// always initiated before any advance is scheduled.
func (s *Session) Answer(answer any) (bool, error) {
	if s.state == StateComplete {
		return false, ErrSessionComplete
	}
	if s.state != StatePresenting {
		return false, ErrNotPresenting
	}
	item := s.items[s.index]
	ok := s.grade(item, answer)
	s.state = StateGraded
	s.graded = true
	s.lastOK = ok
	if ok {
		s.correct++
		if s.report != nil && item.SubjectID() != 0 {
			s.report(item.SubjectID(), s.activity)
		}
	}
	return ok, nil
}

// LastCorrect reports the outcome of the most recent grade, for feedback
// rendering between Answer and Advance.
func (s *Session) LastCorrect() bool { return s.graded && s.lastOK }

// Skip moves past the presented item without grading or scoring.
func (s *Session) Skip() error {
	if s.state == StateComplete {
		return ErrSessionComplete
	}
	if s.state != StatePresenting {
		return ErrNotPresenting
	}
	s.step()
	return nil
}

// Advance moves from a graded item to the next, or to Complete.
func (s *Session) Advance() error {
	if s.state == StateComplete {
		return ErrSessionComplete
	}
	if s.state != StateGraded {
		return ErrNotGraded
	}
	s.step()
	return nil
}

// Retry re-presents the current item after an incorrect grade. The clue and
// ordering variants allow another attempt instead of advancing; a correct
// grade cannot be retried.
func (s *Session) Retry() error {
	if s.state == StateComplete {
		return ErrSessionComplete
	}
	if s.state != StateGraded || s.lastOK {
		return ErrNotGraded
	}
	s.graded = false
	s.state = StatePresenting
	return nil
}

func (s *Session) step() {
	s.graded = false
	s.index++
	if s.index >= len(s.items) {
		s.state = StateComplete
		return
	}
	s.state = StatePresenting
}

// Summary reports the final tally once the session is complete.
func (s *Session) Summary() (correct, total int, done bool) {
	return s.correct, len(s.items), s.state == StateComplete
}

// CatalogFunc fetches a fresh catalog and builds a session over it.
type CatalogFunc func(ctx context.Context) (*Session, error)

// Engine owns at most one live session per variant. Play returns the current
// session while it is still in progress and fetches a fresh catalog once the
// previous one is exhausted, so replays never reuse a spent catalog.
type Engine struct {
	fetch   CatalogFunc
	current *Session
}

func NewEngine(fetch CatalogFunc) *Engine {
	return &Engine{fetch: fetch}
}

func (e *Engine) Play(ctx context.Context) (*Session, error) {
	if e.current != nil && e.current.State() != StateComplete {
		return e.current, nil
	}
	e.current = nil
	sess, err := e.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Total() == 0 {
		return nil, ErrCatalogUnavailable
	}
	e.current = sess
	return sess, nil
}

// Current returns the live session, if any.
func (e *Engine) Current() *Session { return e.current }

// Reset drops the live session so the next Play refetches.
func (e *Engine) Reset() { e.current = nil }
