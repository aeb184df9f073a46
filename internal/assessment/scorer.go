package assessment

import "math"

// Response is what a student gave for one question: a single option id (or text for
// short answers) or, for multiple_select, a set of option ids.
type Response struct {
	Answer  string   `json:"answer,omitempty"`
	Answers []string `json:"answers,omitempty"`
}

func (r Response) Empty() bool {
	return r.Answer == "" && len(r.Answers) == 0
}

func (r Response) clone() Response {
	out := Response{Answer: r.Answer}
	if r.Answers != nil {
		out.Answers = append([]string(nil), r.Answers...)
	}
	return out
}

type GradedQuestion struct {
	QuestionID     uint `json:"questionId"`
	Answered       bool `json:"answered"`
	Correct        bool `json:"correct"`
	NeedsManual    bool `json:"needsManual"`
	PointsEarned   int  `json:"pointsEarned"`
	PointsPossible int  `json:"pointsPossible"`
}

type ScoreResult struct {
	CorrectCount   int              `json:"correctCount"`
	TotalQuestions int              `json:"totalQuestions"`
	ScorePercent   float64          `json:"scorePercent"`
	Passed         bool             `json:"passed"`
	PointsEarned   int              `json:"pointsEarned"`
	PointsPossible int              `json:"pointsPossible"`
	PendingManual  int              `json:"pendingManual"`
	Questions      []GradedQuestion `json:"questions"`
}

// Evaluate grades a single response. Short answers are never auto-correct and
// are reported as needing manual grading.
func Evaluate(q Question, r Response) (correct, needsManual bool) {
	switch q.Type {
	case MultipleChoice, TrueFalse:
		return r.Answer != "" && r.Answer == q.CorrectAnswer, false
	case MultipleSelect:
		return sameSet(r.Answers, q.CorrectAnswers), false
	case ShortAnswer:
		return false, !r.Empty()
	default:
		return false, false
	}
}

// Score grades every question. Unanswered questions stay in the denominator.
func Score(questions []Question, answers map[uint]Response, passingScore float64) ScoreResult {
	res := ScoreResult{
		TotalQuestions: len(questions),
		Questions:      make([]GradedQuestion, 0, len(questions)),
	}
	for _, q := range questions {
		gq := GradedQuestion{QuestionID: q.ID, PointsPossible: q.Points}
		res.PointsPossible += q.Points

		r, ok := answers[q.ID]
		if ok && !r.Empty() {
			gq.Answered = true
			gq.Correct, gq.NeedsManual = Evaluate(q, r)
		}
		if gq.Correct {
			gq.PointsEarned = q.Points
			res.CorrectCount++
			res.PointsEarned += q.Points
		}
		if gq.NeedsManual {
			res.PendingManual++
		}
		res.Questions = append(res.Questions, gq)
	}
	res.ScorePercent = ScorePercent(res.CorrectCount, res.TotalQuestions)
	res.Passed = res.TotalQuestions > 0 && res.ScorePercent >= passingScore
	return res
}

// ScorePercent = round(correct/total*100, 1 decimal).
func ScorePercent(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round1(float64(correct) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// sameSet 两边都按集合比较，重复项不影响结果
func sameSet(given, want []string) bool {
	if len(want) == 0 {
		return false
	}
	toSet := func(vs []string) map[string]struct{} {
		m := make(map[string]struct{}, len(vs))
		for _, v := range vs {
			m[v] = struct{}{}
		}
		return m
	}
	g, w := toSet(given), toSet(want)
	if len(g) != len(w) {
		return false
	}
	for v := range w {
		if _, ok := g[v]; !ok {
			return false
		}
	}
	return true
}
