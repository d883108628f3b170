package exam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"maqamlab/internal/api"
)

type fakeQuiz struct {
	mu      sync.Mutex
	submits int
	quizID  string
	answers []*string
}

func (f *fakeQuiz) QuizStart(ctx context.Context, lang string) (api.ExamPaper, error) {
	return api.ExamPaper{
		QuizID: "quiz-1",
		Questions: []api.ExamQuestion{
			{Index: 0, Type: "mcq", Prompt: "Which maqam opens on C?", Choices: []string{"Rast", "Saba"}},
			{Index: 1, Type: "text", Prompt: "Name the maqam of mourning."},
			{Index: 2, Type: "mcq", Prompt: "Pick one.", Choices: []string{"A", "B"}},
		},
	}, nil
}

func (f *fakeQuiz) QuizAnswer(ctx context.Context, quizID string, answers []*string) (api.ExamResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	f.quizID = quizID
	f.answers = answers
	return api.ExamResult{Score: 33.3, Correct: 1, Total: 3}, nil
}

func strptr(s string) *string { return &s }

func TestSubmitSendsAllAnswersWithNulls(t *testing.T) {
	svc := &fakeQuiz{}
	e := NewEngine(Options{Service: svc, Duration: time.Minute})
	if _, err := e.Start(context.Background(), "en"); err != nil {
		t.Fatal(err)
	}

	e.SetAnswer(0, strptr("Rast"))
	e.SetAnswer(2, strptr("B"))
	e.SetAnswer(99, strptr("ignored"))

	res, err := e.Submit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Correct != 1 || res.Total != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if svc.quizID != "quiz-1" {
		t.Fatalf("unexpected quiz id %q", svc.quizID)
	}
	if len(svc.answers) != 3 {
		t.Fatalf("expected 3 answers, got %d", len(svc.answers))
	}
	if svc.answers[0] == nil || *svc.answers[0] != "Rast" {
		t.Fatalf("answer 0 = %v", svc.answers[0])
	}
	if svc.answers[1] != nil {
		t.Fatalf("unanswered question should stay nil, got %q", *svc.answers[1])
	}
	if svc.answers[2] == nil || *svc.answers[2] != "B" {
		t.Fatalf("answer 2 = %v", svc.answers[2])
	}
}

func TestSubmitTwiceFails(t *testing.T) {
	svc := &fakeQuiz{}
	e := NewEngine(Options{Service: svc, Duration: time.Minute})
	if _, err := e.Start(context.Background(), "en"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Submit(context.Background()); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	if svc.submits != 1 {
		t.Fatalf("expected one submission, got %d", svc.submits)
	}
}

func TestSubmitWithoutExam(t *testing.T) {
	e := NewEngine(Options{Service: &fakeQuiz{}})
	if _, err := e.Submit(context.Background()); !errors.Is(err, ErrNoExam) {
		t.Fatalf("expected ErrNoExam, got %v", err)
	}
}

func TestAbandonDropsAttempt(t *testing.T) {
	svc := &fakeQuiz{}
	e := NewEngine(Options{Service: svc, Duration: time.Minute})
	if _, err := e.Start(context.Background(), "en"); err != nil {
		t.Fatal(err)
	}
	e.Abandon()
	if _, err := e.Submit(context.Background()); !errors.Is(err, ErrNoExam) {
		t.Fatalf("expected ErrNoExam after abandon, got %v", err)
	}
	if r := e.Remaining(); r != 0 {
		t.Fatalf("expected zero remaining after abandon, got %v", r)
	}
}

func TestCountdownAutoSubmitsOnceOnExpiry(t *testing.T) {
	svc := &fakeQuiz{}
	expired := make(chan api.ExamResult, 2)
	e := NewEngine(Options{
		Service:  svc,
		Duration: 1500 * time.Millisecond,
		OnExpire: func(res api.ExamResult, err error) {
			if err != nil {
				t.Errorf("auto-submit failed: %v", err)
			}
			expired <- res
		},
	})
	if _, err := e.Start(context.Background(), "en"); err != nil {
		t.Fatal(err)
	}
	e.SetAnswer(0, strptr("Rast"))

	select {
	case res := <-expired:
		if res.Total != 3 {
			t.Fatalf("unexpected result %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("countdown never expired")
	}

	// The timer goroutine stops after expiry; no second submission follows.
	time.Sleep(1200 * time.Millisecond)
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.submits != 1 {
		t.Fatalf("expected exactly one auto-submission, got %d", svc.submits)
	}
	if svc.answers[1] != nil || svc.answers[2] != nil {
		t.Fatalf("expired unanswered questions should submit as nulls")
	}
}

func TestManualSubmitStopsCountdown(t *testing.T) {
	svc := &fakeQuiz{}
	e := NewEngine(Options{
		Service:  svc,
		Duration: 1200 * time.Millisecond,
		OnExpire: func(api.ExamResult, error) {
			t.Error("expiry fired after a manual submission")
		},
	})
	if _, err := e.Start(context.Background(), "en"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Second)
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.submits != 1 {
		t.Fatalf("expected one submission, got %d", svc.submits)
	}
}

func TestRemainingCountsDown(t *testing.T) {
	e := NewEngine(Options{Service: &fakeQuiz{}, Duration: time.Minute})
	if r := e.Remaining(); r != 0 {
		t.Fatalf("expected zero before start, got %v", r)
	}
	if _, err := e.Start(context.Background(), "en"); err != nil {
		t.Fatal(err)
	}
	r := e.Remaining()
	if r <= 0 || r > time.Minute {
		t.Fatalf("remaining out of range: %v", r)
	}
	e.Abandon()
}
