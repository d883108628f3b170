package games

import (
	"math/rand"
	"reflect"
	"testing"
)

func testOrderItem() OrderItem {
	return OrderItem{
		MaqamID:  4,
		Name:     "Rast",
		Notes:    []string{"C", "D", "E half-flat", "F", "G"},
		Solution: []string{"C", "D", "E half-flat", "F", "G"},
	}
}

func TestOrderGradeIsOrderSensitive(t *testing.T) {
	s := NewOrderSession([]OrderItem{testOrderItem()}, nil)
	ok, err := s.Answer([]string{"C", "E half-flat", "D", "F", "G"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("swapped notes should not grade correct")
	}
}

func TestOrderGradeExactSequence(t *testing.T) {
	var reported []string
	s := NewOrderSession([]OrderItem{testOrderItem()}, func(id int64, activity string) {
		if id != 4 {
			t.Fatalf("unexpected subject id %d", id)
		}
		reported = append(reported, activity)
	})
	ok, err := s.Answer([]string{"C", "D", "E half-flat", "F", "G"})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("exact sequence should grade correct")
	}
	if len(reported) != 1 || reported[0] != "order_notes" {
		t.Fatalf("unexpected reports %v", reported)
	}
}

func TestOrderGradeRejectsShortSequence(t *testing.T) {
	s := NewOrderSession([]OrderItem{testOrderItem()}, nil)
	if ok, _ := s.Answer([]string{"C", "D"}); ok {
		t.Fatalf("truncated sequence should not grade correct")
	}
}

func TestArrangementMoveReinserts(t *testing.T) {
	a := &Arrangement{notes: []string{"C", "D", "E", "F"}}
	a.Move(0, 2)
	if got := a.Notes(); !reflect.DeepEqual(got, []string{"D", "E", "C", "F"}) {
		t.Fatalf("move 0->2 got %v", got)
	}
	a.Move(3, 0)
	if got := a.Notes(); !reflect.DeepEqual(got, []string{"F", "D", "E", "C"}) {
		t.Fatalf("move 3->0 got %v", got)
	}
}

func TestArrangementMoveClampsRange(t *testing.T) {
	a := &Arrangement{notes: []string{"C", "D", "E"}}
	a.Move(0, 99)
	if got := a.Notes(); !reflect.DeepEqual(got, []string{"D", "E", "C"}) {
		t.Fatalf("move past end got %v", got)
	}
	a.Move(2, -5)
	if got := a.Notes(); !reflect.DeepEqual(got, []string{"C", "D", "E"}) {
		t.Fatalf("move before start got %v", got)
	}
	before := a.Notes()
	a.Move(7, 0)
	if got := a.Notes(); !reflect.DeepEqual(got, before) {
		t.Fatalf("out-of-range source mutated notes: %v", got)
	}
}

func TestNewArrangementKeepsAllNotes(t *testing.T) {
	item := testOrderItem()
	rng := rand.New(rand.NewSource(11))
	a := NewArrangement(rng, item)
	got := a.Notes()
	if len(got) != len(item.Notes) {
		t.Fatalf("expected %d notes, got %d", len(item.Notes), len(got))
	}
	seen := map[string]int{}
	for _, n := range got {
		seen[n]++
	}
	for _, n := range item.Notes {
		if seen[n] != 1 {
			t.Fatalf("note %q count %d after shuffle", n, seen[n])
		}
	}
}
