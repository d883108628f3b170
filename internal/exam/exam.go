// Package exam runs the timed mastery exam: one paper fetched at start,
// answers gathered locally, everything submitted in a single call either by
// the player or by the countdown reaching zero.
package exam

import (
	"context"
	"errors"
	"sync"
	"time"

	"maqamlab/internal/api"
)

var (
	ErrNoExam           = errors.New("no exam in progress")
	ErrAlreadySubmitted = errors.New("exam already submitted")
)

// QuizService is the slice of the API client the engine needs.
type QuizService interface {
	QuizStart(ctx context.Context, lang string) (api.ExamPaper, error)
	QuizAnswer(ctx context.Context, quizID string, answers []*string) (api.ExamResult, error)
}

// Engine owns one exam attempt at a time. Grading is entirely server side;
// the engine only tracks answers and the clock.
type Engine struct {
	svc      QuizService
	duration time.Duration

	// onTick fires once per second with the time left. onExpire fires when
	// the countdown hits zero and the auto-submission finishes. Both are
	// called from the timer goroutine.
	onTick   func(remaining time.Duration)
	onExpire func(api.ExamResult, error)

	mu        sync.Mutex
	paper     *api.ExamPaper
	answers   []*string
	deadline  time.Time
	stop      chan struct{}
	submitted bool
}

type Options struct {
	Service  QuizService
	Duration time.Duration
	OnTick   func(remaining time.Duration)
	OnExpire func(api.ExamResult, error)
}

func NewEngine(opts Options) *Engine {
	d := opts.Duration
	if d <= 0 {
		d = 20 * time.Minute
	}
	return &Engine{
		svc:      opts.Service,
		duration: d,
		onTick:   opts.OnTick,
		onExpire: opts.OnExpire,
	}
}

// Start fetches a fresh paper and arms the countdown. Any previous attempt
// is discarded and its timer torn down.
func (e *Engine) Start(ctx context.Context, lang string) (api.ExamPaper, error) {
	paper, err := e.svc.QuizStart(ctx, lang)
	if err != nil {
		return api.ExamPaper{}, err
	}

	e.mu.Lock()
	e.stopTimerLocked()
	e.paper = &paper
	e.answers = make([]*string, len(paper.Questions))
	e.submitted = false
	e.deadline = time.Now().Add(e.duration)
	e.stop = make(chan struct{})
	go e.countdown(e.stop)
	e.mu.Unlock()

	return paper, nil
}

// SetAnswer records the answer for one question. Passing nil clears it. Out
// of range indices are ignored.
func (e *Engine) SetAnswer(index int, answer *string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paper == nil || index < 0 || index >= len(e.answers) {
		return
	}
	e.answers[index] = answer
}

func (e *Engine) Answer(index int) *string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.answers) {
		return nil
	}
	return e.answers[index]
}

func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paper == nil || e.submitted {
		return 0
	}
	r := time.Until(e.deadline)
	if r < 0 {
		return 0
	}
	return r
}

// Submit sends the complete answer set, unanswered questions included as
// nulls, and stops the clock. A second submit of the same attempt fails.
func (e *Engine) Submit(ctx context.Context) (api.ExamResult, error) {
	e.mu.Lock()
	if e.paper == nil {
		e.mu.Unlock()
		return api.ExamResult{}, ErrNoExam
	}
	if e.submitted {
		e.mu.Unlock()
		return api.ExamResult{}, ErrAlreadySubmitted
	}
	e.submitted = true
	e.stopTimerLocked()
	quizID := e.paper.QuizID
	answers := make([]*string, len(e.answers))
	copy(answers, e.answers)
	e.mu.Unlock()

	return e.svc.QuizAnswer(ctx, quizID, answers)
}

// Abandon drops the current attempt without submitting.
func (e *Engine) Abandon() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked()
	e.paper = nil
	e.answers = nil
	e.submitted = false
}

func (e *Engine) countdown(stop chan struct{}) {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			e.mu.Lock()
			remaining := time.Until(e.deadline)
			expired := remaining <= 0 && !e.submitted
			e.mu.Unlock()
			if expired {
				res, err := e.Submit(context.Background())
				if e.onExpire != nil {
					e.onExpire(res, err)
				}
				return
			}
			if e.onTick != nil {
				e.onTick(remaining)
			}
		}
	}
}

// stopTimerLocked tears down the countdown goroutine. Callers hold e.mu.
func (e *Engine) stopTimerLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}
