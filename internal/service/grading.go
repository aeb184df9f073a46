package service

import (
	"edu_portal_backend/internal/assessment"
	"edu_portal_backend/internal/model"
	"time"
)

// gradeAttempt scores the saved answers and writes the result onto the attempt
// and its answer rows. Unanswered questions have no row and stay incorrect.
func gradeAttempt(att *model.AssessmentAttempt, a *model.Assessment, questions []assessment.Question,
	answers []model.AttemptAnswer, status assessment.AttemptStatus, reason assessment.SubmitReason, now time.Time) assessment.ScoreResult {

	responses := make(map[uint]assessment.Response, len(answers))
	byQuestion := make(map[uint]*model.AttemptAnswer, len(answers))
	for i := range answers {
		responses[answers[i].QuestionID] = answers[i].Response()
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	res := assessment.Score(questions, responses, a.PassingScore)
	for _, gq := range res.Questions {
		if ans, ok := byQuestion[gq.QuestionID]; ok {
			ans.IsCorrect = gq.Correct
			ans.NeedsManual = gq.NeedsManual
			ans.PointsEarned = gq.PointsEarned
		}
	}

	att.Status = string(status)
	att.SubmittedAt = &now
	att.SubmitReason = string(reason)
	att.TimeSpentSeconds = timeSpent(att.StartedAt, now, a.TimeLimit)
	att.TotalQuestions = res.TotalQuestions
	att.CorrectAnswers = res.CorrectCount
	att.PendingManual = res.PendingManual
	att.Score = res.ScorePercent
	att.Passed = res.Passed
	return res
}

// regradeAttempt recounts the attempt after a manual grading decision.
func regradeAttempt(att *model.AssessmentAttempt, answers []model.AttemptAnswer, passingScore float64) {
	correct, pending := 0, 0
	for _, ans := range answers {
		if ans.IsCorrect {
			correct++
		}
		if ans.NeedsManual {
			pending++
		}
	}
	att.CorrectAnswers = correct
	att.PendingManual = pending
	att.Score = assessment.ScorePercent(correct, att.TotalQuestions)
	att.Passed = att.TotalQuestions > 0 && att.Score >= passingScore
}

// timeSpent 限时测评最多计为时限
func timeSpent(startedAt, now time.Time, timeLimitMinutes int) int {
	spent := int(now.Sub(startedAt).Seconds())
	if spent < 0 {
		spent = 0
	}
	if limit := timeLimitMinutes * 60; limit > 0 && spent > limit {
		spent = limit
	}
	return spent
}

// pastDeadline reports whether a timed attempt is beyond its deadline plus grace.
func pastDeadline(att *model.AssessmentAttempt, timeLimitMinutes int, grace time.Duration, now time.Time) bool {
	deadline := att.Deadline(timeLimitMinutes)
	if deadline.IsZero() {
		return false
	}
	return now.After(deadline.Add(grace))
}
