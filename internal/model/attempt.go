package model

import (
	"edu_portal_backend/internal/assessment"
	"time"
)

// AssessmentAttempt 学生的一次作答，(student, assessment, attempt_number) 唯一
// swagger:model AssessmentAttempt
type AssessmentAttempt struct {
	BaseModel
	StudentID        uint        `gorm:"uniqueIndex:idx_student_assessment_number;not null" json:"studentId"`
	AssessmentID     uint        `gorm:"uniqueIndex:idx_student_assessment_number;index;not null" json:"assessmentId"`
	AttemptNumber    int         `gorm:"uniqueIndex:idx_student_assessment_number;not null" json:"attemptNumber"`
	EnrollmentID     uint        `gorm:"index" json:"enrollmentId"`
	Status           string      `gorm:"size:20;index;not null" json:"status"`
	StartedAt        time.Time   `json:"startedAt"`
	SubmittedAt      *time.Time  `json:"submittedAt,omitempty"`
	SubmitReason     string      `gorm:"size:20" json:"submitReason,omitempty"`
	TimeSpentSeconds int         `gorm:"default:0" json:"timeSpentSeconds"`
	TotalQuestions   int         `gorm:"default:0" json:"totalQuestions"`
	CorrectAnswers   int         `gorm:"default:0" json:"correctAnswers"`
	PendingManual    int         `gorm:"default:0" json:"pendingManual"`
	Score            float64     `gorm:"default:0" json:"score"`
	Passed           bool        `gorm:"default:false" json:"passed"`
	Assessment       *Assessment `gorm:"foreignKey:AssessmentID" json:"-"`
}

func (AssessmentAttempt) TableName() string {
	return "assessment_attempts"
}

func (a *AssessmentAttempt) ToDomain() assessment.Attempt {
	return assessment.Attempt{
		ID:               a.ID,
		StudentID:        a.StudentID,
		AssessmentID:     a.AssessmentID,
		EnrollmentID:     a.EnrollmentID,
		AttemptNumber:    a.AttemptNumber,
		Status:           assessment.AttemptStatus(a.Status),
		StartedAt:        a.StartedAt,
		SubmittedAt:      a.SubmittedAt,
		SubmitReason:     assessment.SubmitReason(a.SubmitReason),
		TimeSpentSeconds: a.TimeSpentSeconds,
		TotalQuestions:   a.TotalQuestions,
		CorrectAnswers:   a.CorrectAnswers,
		PendingManual:    a.PendingManual,
		Score:            a.Score,
		Passed:           a.Passed,
	}
}

// Deadline returns the zero time for untimed assessments.
func (a *AssessmentAttempt) Deadline(timeLimitMinutes int) time.Time {
	if timeLimitMinutes <= 0 {
		return time.Time{}
	}
	return a.StartedAt.Add(time.Duration(timeLimitMinutes) * time.Minute)
}

// AttemptAnswer 作答记录，(attempt, question) 唯一，重复提交覆盖
// swagger:model AttemptAnswer
type AttemptAnswer struct {
	BaseModel
	AttemptID    uint      `gorm:"uniqueIndex:idx_attempt_question;not null" json:"attemptId"`
	QuestionID   uint      `gorm:"uniqueIndex:idx_attempt_question;not null" json:"questionId"`
	AnswerGiven  string    `gorm:"type:text" json:"answerGiven,omitempty"`
	AnswersGiven []string  `gorm:"serializer:json;type:json" json:"answersGiven,omitempty"`
	IsCorrect    bool      `gorm:"default:false" json:"isCorrect"`
	NeedsManual  bool      `gorm:"default:false" json:"needsManual"`
	PointsEarned int       `gorm:"default:0" json:"pointsEarned"`
	AnsweredAt   time.Time `json:"answeredAt"`
	GradedBy     *uint     `json:"gradedBy,omitempty"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

func (a *AttemptAnswer) ToDomain() assessment.Answer {
	return assessment.Answer{
		AttemptID:    a.AttemptID,
		QuestionID:   a.QuestionID,
		AnswerGiven:  a.AnswerGiven,
		AnswersGiven: append([]string(nil), a.AnswersGiven...),
		IsCorrect:    a.IsCorrect,
		NeedsManual:  a.NeedsManual,
		PointsEarned: a.PointsEarned,
		AnsweredAt:   a.AnsweredAt,
	}
}

func (a *AttemptAnswer) Response() assessment.Response {
	return assessment.Response{Answer: a.AnswerGiven, Answers: a.AnswersGiven}
}

func AnswersToDomain(rows []AttemptAnswer) []assessment.Answer {
	out := make([]assessment.Answer, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}
