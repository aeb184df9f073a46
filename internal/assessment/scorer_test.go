package assessment

import "testing"

func mcq(id uint, correct string) Question {
	return Question{
		ID:   id,
		Type: MultipleChoice,
		Options: []AnswerOption{
			{ID: "a", Order: 1}, {ID: "b", Order: 2}, {ID: "c", Order: 3},
		},
		CorrectAnswer: correct,
		Points:        1,
	}
}

func msq(id uint, correct ...string) Question {
	return Question{
		ID:   id,
		Type: MultipleSelect,
		Options: []AnswerOption{
			{ID: "a", Order: 1}, {ID: "b", Order: 2}, {ID: "c", Order: 3}, {ID: "d", Order: 4},
		},
		CorrectAnswers: correct,
		Points:         2,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		q           Question
		r           Response
		correct     bool
		needsManual bool
	}{
		{name: "mc correct", q: mcq(1, "b"), r: Response{Answer: "b"}, correct: true},
		{name: "mc wrong", q: mcq(1, "b"), r: Response{Answer: "a"}},
		{name: "mc empty", q: mcq(1, "b"), r: Response{}},
		{name: "tf correct", q: Question{Type: TrueFalse, CorrectAnswer: "true"}, r: Response{Answer: "true"}, correct: true},
		{name: "ms exact", q: msq(1, "a", "c"), r: Response{Answers: []string{"c", "a"}}, correct: true},
		{name: "ms duplicates collapse", q: msq(1, "a", "c"), r: Response{Answers: []string{"a", "c", "a"}}, correct: true},
		{name: "ms duplicate key entries", q: msq(1, "a", "a", "c"), r: Response{Answers: []string{"c", "a"}}, correct: true},
		{name: "ms duplicate key subset", q: msq(1, "a", "a", "c"), r: Response{Answers: []string{"a", "a"}}},
		{name: "ms subset", q: msq(1, "a", "c"), r: Response{Answers: []string{"a"}}},
		{name: "ms superset", q: msq(1, "a", "c"), r: Response{Answers: []string{"a", "b", "c"}}},
		{name: "ms empty given", q: msq(1, "a"), r: Response{}},
		{name: "ms empty key", q: msq(1), r: Response{}},
		{name: "short answer manual", q: Question{Type: ShortAnswer}, r: Response{Answer: "photosynthesis"}, needsManual: true},
		{name: "short answer blank", q: Question{Type: ShortAnswer}, r: Response{}},
		{name: "unknown type", q: Question{Type: "essay"}, r: Response{Answer: "x"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			correct, manual := Evaluate(tc.q, tc.r)
			if correct != tc.correct || manual != tc.needsManual {
				t.Fatalf("Evaluate() = (%v, %v), want (%v, %v)", correct, manual, tc.correct, tc.needsManual)
			}
		})
	}
}

func TestScore(t *testing.T) {
	three := []Question{mcq(1, "a"), mcq(2, "b"), mcq(3, "c")}

	tests := []struct {
		name      string
		questions []Question
		answers   map[uint]Response
		passing   float64
		correct   int
		percent   float64
		passed    bool
	}{
		{
			name:      "two of three below 70",
			questions: three,
			answers:   map[uint]Response{1: {Answer: "a"}, 2: {Answer: "b"}, 3: {Answer: "a"}},
			passing:   70,
			correct:   2,
			percent:   66.7,
			passed:    false,
		},
		{
			name:      "boundary is inclusive",
			questions: three,
			answers:   map[uint]Response{1: {Answer: "a"}, 2: {Answer: "b"}},
			passing:   66.7,
			correct:   2,
			percent:   66.7,
			passed:    true,
		},
		{
			name:      "unanswered stays in denominator",
			questions: three,
			answers:   map[uint]Response{1: {Answer: "a"}},
			passing:   30,
			correct:   1,
			percent:   33.3,
			passed:    true,
		},
		{
			name:      "all correct",
			questions: []Question{mcq(1, "a"), msq(2, "b", "d")},
			answers:   map[uint]Response{1: {Answer: "a"}, 2: {Answers: []string{"d", "b"}}},
			passing:   100,
			correct:   2,
			percent:   100,
			passed:    true,
		},
		{
			name:      "no questions never passes",
			questions: nil,
			passing:   0,
			correct:   0,
			percent:   0,
			passed:    false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.questions, tc.answers, tc.passing)
			if got.CorrectCount != tc.correct {
				t.Errorf("CorrectCount = %d, want %d", got.CorrectCount, tc.correct)
			}
			if got.TotalQuestions != len(tc.questions) {
				t.Errorf("TotalQuestions = %d, want %d", got.TotalQuestions, len(tc.questions))
			}
			if got.ScorePercent != tc.percent {
				t.Errorf("ScorePercent = %v, want %v", got.ScorePercent, tc.percent)
			}
			if got.Passed != tc.passed {
				t.Errorf("Passed = %v, want %v", got.Passed, tc.passed)
			}
		})
	}
}

func TestScoreCountsPointsAndManual(t *testing.T) {
	qs := []Question{
		mcq(1, "a"),
		msq(2, "a", "b"),
		{ID: 3, Type: ShortAnswer, Points: 5},
	}
	got := Score(qs, map[uint]Response{
		1: {Answer: "a"},
		2: {Answers: []string{"a", "b"}},
		3: {Answer: "free text"},
	}, 50)

	if got.PointsEarned != 3 || got.PointsPossible != 8 {
		t.Fatalf("points = %d/%d, want 3/8", got.PointsEarned, got.PointsPossible)
	}
	if got.PendingManual != 1 {
		t.Fatalf("PendingManual = %d, want 1", got.PendingManual)
	}
	if got.ScorePercent != 66.7 {
		t.Fatalf("ScorePercent = %v, want 66.7", got.ScorePercent)
	}
	if len(got.Questions) != 3 || !got.Questions[2].NeedsManual || got.Questions[2].Correct {
		t.Fatalf("short answer graded as %+v", got.Questions[2])
	}
}

func TestScorePercentRounding(t *testing.T) {
	tests := []struct {
		correct, total int
		want           float64
	}{
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 6, 16.7},
		{5, 8, 62.5},
		{0, 4, 0},
		{3, 0, 0},
	}
	for _, tc := range tests {
		if got := ScorePercent(tc.correct, tc.total); got != tc.want {
			t.Errorf("ScorePercent(%d, %d) = %v, want %v", tc.correct, tc.total, got, tc.want)
		}
	}
}
