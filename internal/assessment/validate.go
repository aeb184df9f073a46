package assessment

import "fmt"

// ValidateAssessment checks authoring-time limits of an assessment definition.
func ValidateAssessment(a Assessment) error {
	switch a.Type {
	case TypeQuiz, TypeModuleExam, TypeFinalExam, TypePractice:
	default:
		return invalid("type", fmt.Sprintf("unknown assessment type %q", a.Type))
	}
	if a.PassingScore < 0 || a.PassingScore > 100 {
		return invalid("passingScore", "must be between 0 and 100")
	}
	if a.TimeLimitMinutes < 0 {
		return invalid("timeLimitMinutes", "must not be negative")
	}
	if a.MaxAttempts < 1 {
		return invalid("maxAttempts", "must be at least 1")
	}
	return nil
}

// ValidateQuestion checks the answer key against the question type.
func ValidateQuestion(q Question) error {
	ids := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if o.ID == "" {
			return invalid("options", "option id is required")
		}
		if _, dup := ids[o.ID]; dup {
			return invalid("options", fmt.Sprintf("duplicate option id %q", o.ID))
		}
		ids[o.ID] = struct{}{}
	}
	if q.Points < 0 {
		return invalid("points", "must not be negative")
	}

	switch q.Type {
	case MultipleChoice, TrueFalse:
		if len(q.CorrectAnswers) > 0 {
			return invalid("correctAnswers", "only multiple_select questions use a correct answer set")
		}
		if _, ok := ids[q.CorrectAnswer]; !ok {
			return invalid("correctAnswer", "must be one of the option ids")
		}
	case MultipleSelect:
		if q.CorrectAnswer != "" {
			return invalid("correctAnswer", "multiple_select questions use correctAnswers")
		}
		if len(q.CorrectAnswers) == 0 {
			return invalid("correctAnswers", "must not be empty")
		}
		seen := make(map[string]struct{}, len(q.CorrectAnswers))
		for _, c := range q.CorrectAnswers {
			if _, ok := ids[c]; !ok {
				return invalid("correctAnswers", fmt.Sprintf("%q is not an option id", c))
			}
			if _, dup := seen[c]; dup {
				return invalid("correctAnswers", fmt.Sprintf("duplicate id %q", c))
			}
			seen[c] = struct{}{}
		}
	case ShortAnswer:
		// graded by a teacher
	default:
		return invalid("type", fmt.Sprintf("unknown question type %q", q.Type))
	}
	return nil
}

// ValidateResponse verifies a response matches the question type.
func ValidateResponse(q Question, r Response) error {
	switch q.Type {
	case MultipleSelect:
		if r.Answer != "" {
			return invalid("answer", "multiple_select questions take a set of answers")
		}
	default:
		if len(r.Answers) > 0 {
			return invalid("answers", "question takes a single answer")
		}
	}
	return nil
}
