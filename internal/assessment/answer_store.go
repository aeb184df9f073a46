package assessment

import (
	"sort"
	"time"
)

type storedAnswer struct {
	resp  Response
	at    time.Time
	dirty bool
}

// AnswerStore holds the given answers of exactly one attempt. It is owned by a single
// orchestrator and is not safe for concurrent use.
type AnswerStore struct {
	entries map[uint]*storedAnswer
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{entries: make(map[uint]*storedAnswer)}
}

// Put upserts the answer for a question; the last write wins.
func (s *AnswerStore) Put(questionID uint, r Response, at time.Time) {
	s.entries[questionID] = &storedAnswer{resp: r.clone(), at: at, dirty: true}
}

func (s *AnswerStore) Get(questionID uint) (Response, bool) {
	e, ok := s.entries[questionID]
	if !ok {
		return Response{}, false
	}
	return e.resp.clone(), true
}

func (s *AnswerStore) Len() int { return len(s.entries) }

// QuestionIDs returns answered question ids in ascending order.
func (s *AnswerStore) QuestionIDs() []uint {
	ids := make([]uint, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Dirty returns ids written since they were last persisted.
func (s *AnswerStore) Dirty() []uint {
	var ids []uint
	for _, id := range s.QuestionIDs() {
		if s.entries[id].dirty {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *AnswerStore) MarkClean(questionID uint) {
	if e, ok := s.entries[questionID]; ok {
		e.dirty = false
	}
}

// Merge seeds the store from persisted answers on resume. Entries written locally
// after the persisted answer are kept.
func (s *AnswerStore) Merge(answers []Answer) {
	for _, a := range answers {
		if e, ok := s.entries[a.QuestionID]; ok && e.dirty && e.at.After(a.AnsweredAt) {
			continue
		}
		r := Response{Answer: a.AnswerGiven}
		if len(a.AnswersGiven) > 0 {
			r = Response{Answers: append([]string(nil), a.AnswersGiven...)}
		}
		s.entries[a.QuestionID] = &storedAnswer{resp: r, at: a.AnsweredAt}
	}
}

// Snapshot copies the store for grading.
func (s *AnswerStore) Snapshot() map[uint]Response {
	out := make(map[uint]Response, len(s.entries))
	for id, e := range s.entries {
		out[id] = e.resp.clone()
	}
	return out
}
