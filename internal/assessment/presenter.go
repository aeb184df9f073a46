package assessment

import (
	"math/rand"
	"sort"
)

// PresentedQuestion is the display view of a question. It carries no answer key.
type PresentedQuestion struct {
	ID      uint           `json:"id"`
	Number  int            `json:"number"`
	Type    QuestionType   `json:"type"`
	Text    string         `json:"text"`
	Points  int            `json:"points"`
	Options []AnswerOption `json:"options"`
}

// Presenter fixes the display order of questions and options once per attempt.
// With the same seed it always yields the same order, so paging and resuming are stable.
type Presenter struct {
	questions []PresentedQuestion
	index     map[uint]int
}

func NewPresenter(questions []Question, shuffleQuestions, shuffleAnswers bool, seed int64) *Presenter {
	qs := make([]PresentedQuestion, 0, len(questions))
	for _, q := range questions {
		opts := append([]AnswerOption(nil), q.Options...)
		sort.SliceStable(opts, func(i, j int) bool { return opts[i].Order < opts[j].Order })
		if shuffleAnswers && len(opts) > 1 {
			r := rand.New(rand.NewSource(seed ^ int64(q.ID)*7919))
			r.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
		}
		qs = append(qs, PresentedQuestion{
			ID:      q.ID,
			Number:  q.Order,
			Type:    q.Type,
			Text:    q.Text,
			Points:  q.Points,
			Options: opts,
		})
	}

	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Number != qs[j].Number {
			return qs[i].Number < qs[j].Number
		}
		return qs[i].ID < qs[j].ID
	})
	if shuffleQuestions && len(qs) > 1 {
		r := rand.New(rand.NewSource(seed))
		r.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	}

	p := &Presenter{questions: qs, index: make(map[uint]int, len(qs))}
	for i := range qs {
		qs[i].Number = i + 1
		p.index[qs[i].ID] = i
	}
	return p
}

func (p *Presenter) Len() int { return len(p.questions) }

// At returns the question shown at position i (0-based).
func (p *Presenter) At(i int) (PresentedQuestion, bool) {
	if i < 0 || i >= len(p.questions) {
		return PresentedQuestion{}, false
	}
	return cloneQuestion(p.questions[i]), true
}

// Position returns the 0-based display position of a question.
func (p *Presenter) Position(questionID uint) (int, bool) {
	i, ok := p.index[questionID]
	return i, ok
}

func (p *Presenter) Questions() []PresentedQuestion {
	out := make([]PresentedQuestion, len(p.questions))
	for i, q := range p.questions {
		out[i] = cloneQuestion(q)
	}
	return out
}

func cloneQuestion(q PresentedQuestion) PresentedQuestion {
	q.Options = append([]AnswerOption(nil), q.Options...)
	return q
}

// PresenterFor seeds the display order with the attempt id, so every view of the
// same attempt agrees on it.
func PresenterFor(a Assessment, questions []Question, attemptID uint) *Presenter {
	return NewPresenter(questions, a.ShuffleQuestions, a.ShuffleAnswers, int64(attemptID))
}
