package games

import (
	"math/rand"
	"testing"
)

func TestMCQSessionGradesExactMatch(t *testing.T) {
	items := []MCQItem{
		{Prompt: "Emotion of A?", Choices: []string{"x", "y"}, Answer: "x", MaqamID: 7},
		BonusQuestion(rand.New(rand.NewSource(1))),
	}
	var reported []string
	s := NewMCQSession(items, "emotion", func(id int64, activity string) {
		reported = append(reported, activity)
		if id != 7 {
			t.Fatalf("unexpected maqam id %d", id)
		}
	})

	ok, err := s.Answer("x")
	if err != nil || !ok {
		t.Fatalf("expected correct answer, ok=%v err=%v", ok, err)
	}
	if err := s.Advance(); err != nil {
		t.Fatal(err)
	}

	// Bonus question has no maqam id, so a correct answer reports nothing.
	ok, err = s.Answer("Ramadan evenings")
	if err != nil || ok {
		t.Fatalf("expected wrong answer, ok=%v err=%v", ok, err)
	}
	if err := s.Advance(); err != nil {
		t.Fatal(err)
	}

	correct, total, done := s.Summary()
	if !done || correct != 1 || total != 2 {
		t.Fatalf("expected 1/2 done, got %d/%d done=%v", correct, total, done)
	}
	if len(reported) != 1 || reported[0] != "mcq_emotion" {
		t.Fatalf("unexpected reports: %#v", reported)
	}
}

func TestMCQGradeIsCaseSensitive(t *testing.T) {
	s := NewMCQSession([]MCQItem{{Prompt: "p", Choices: []string{"Joy"}, Answer: "Joy"}}, "emotion", nil)
	if ok, _ := s.Answer("joy"); ok {
		t.Fatalf("expected case-sensitive grading to reject lowercase selection")
	}
}

func TestBonusQuestionKeepsAnswerAmongChoices(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		q := BonusQuestion(rand.New(rand.NewSource(seed)))
		if len(q.Choices) != 4 {
			t.Fatalf("expected 4 choices, got %d", len(q.Choices))
		}
		found := false
		for _, c := range q.Choices {
			if c == q.Answer {
				found = true
			}
		}
		if !found {
			t.Fatalf("answer missing from shuffled choices: %#v", q.Choices)
		}
	}
}

func TestRandomMCQTopicStaysInSet(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		topic := RandomMCQTopic(rng)
		switch topic {
		case "emotion", "region", "usage":
		default:
			t.Fatalf("unexpected topic %q", topic)
		}
	}
}
