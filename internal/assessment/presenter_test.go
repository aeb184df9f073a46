package assessment

import (
	"fmt"
	"reflect"
	"testing"
)

func sampleQuestions(n int) []Question {
	qs := make([]Question, 0, n)
	for i := 1; i <= n; i++ {
		qs = append(qs, Question{
			ID:    uint(100 + i),
			Order: i,
			Type:  MultipleChoice,
			Text:  fmt.Sprintf("question %d", i),
			Options: []AnswerOption{
				{ID: "d", Text: "four", Order: 4},
				{ID: "a", Text: "one", Order: 1},
				{ID: "c", Text: "three", Order: 3},
				{ID: "b", Text: "two", Order: 2},
			},
			CorrectAnswer: "a",
			Points:        1,
		})
	}
	return qs
}

func displayOrder(p *Presenter) []uint {
	ids := make([]uint, 0, p.Len())
	for i := 0; i < p.Len(); i++ {
		q, _ := p.At(i)
		ids = append(ids, q.ID)
	}
	return ids
}

func TestPresenterNoShuffleKeepsAuthoredOrder(t *testing.T) {
	qs := sampleQuestions(4)
	qs[0], qs[3] = qs[3], qs[0]

	p := NewPresenter(qs, false, false, 42)
	if got := displayOrder(p); !reflect.DeepEqual(got, []uint{101, 102, 103, 104}) {
		t.Fatalf("order = %v", got)
	}
	q, _ := p.At(0)
	var optIDs []string
	for _, o := range q.Options {
		optIDs = append(optIDs, o.ID)
	}
	if !reflect.DeepEqual(optIDs, []string{"a", "b", "c", "d"}) {
		t.Fatalf("options = %v", optIDs)
	}
	if q.Number != 1 {
		t.Fatalf("Number = %d, want 1", q.Number)
	}
}

func TestPresenterStableAcrossPaging(t *testing.T) {
	p := NewPresenter(sampleQuestions(12), true, true, 7)

	forward := make([]PresentedQuestion, 0, p.Len())
	for i := 0; i < p.Len(); i++ {
		q, _ := p.At(i)
		forward = append(forward, q)
	}
	for i := p.Len() - 1; i >= 0; i-- {
		q, _ := p.At(i)
		if !reflect.DeepEqual(q, forward[i]) {
			t.Fatalf("position %d changed on second pass: %+v vs %+v", i, q, forward[i])
		}
	}
	for i := 0; i < p.Len(); i++ {
		q, _ := p.At(i)
		if !reflect.DeepEqual(q, forward[i]) {
			t.Fatalf("position %d changed on third pass", i)
		}
	}
}

func TestPresenterSameSeedSameOrder(t *testing.T) {
	a := NewPresenter(sampleQuestions(10), true, true, 99)
	b := NewPresenter(sampleQuestions(10), true, true, 99)
	if !reflect.DeepEqual(a.Questions(), b.Questions()) {
		t.Fatal("same seed produced different orders")
	}
}

func TestPresenterShuffleIsPermutation(t *testing.T) {
	qs := sampleQuestions(10)
	p := NewPresenter(qs, true, true, 3)

	seen := map[uint]bool{}
	for i, q := range p.Questions() {
		if q.Number != i+1 {
			t.Fatalf("question at %d numbered %d", i, q.Number)
		}
		if len(q.Options) != 4 {
			t.Fatalf("question %d has %d options", q.ID, len(q.Options))
		}
		pos, ok := p.Position(q.ID)
		if !ok || pos != i {
			t.Fatalf("Position(%d) = %d, %v", q.ID, pos, ok)
		}
		seen[q.ID] = true
	}
	if len(seen) != len(qs) {
		t.Fatalf("saw %d distinct questions, want %d", len(seen), len(qs))
	}
}

func TestPresenterLeavesTextAndSourceUntouched(t *testing.T) {
	qs := sampleQuestions(3)
	p := NewPresenter(qs, true, true, 11)

	if qs[0].Options[0].ID != "d" {
		t.Fatal("source options were reordered")
	}
	for _, q := range p.Questions() {
		src := qs[q.ID-101]
		if q.Text != src.Text {
			t.Fatalf("text changed: %q", q.Text)
		}
	}

	q, _ := p.At(0)
	q.Options[0].Text = "mutated"
	again, _ := p.At(0)
	if again.Options[0].Text == "mutated" {
		t.Fatal("At returned shared option slice")
	}
	if _, ok := p.At(3); ok {
		t.Fatal("At out of range should report false")
	}
}
