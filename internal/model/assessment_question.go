package model

import "edu_portal_backend/internal/assessment"

// AssessmentQuestion represents a question within an assessment
// swagger:model AssessmentQuestion
type AssessmentQuestion struct {
	BaseModel
	AssessmentID   uint                      `gorm:"index;not null" json:"assessmentId"`
	QuestionType   string                    `gorm:"size:30;not null" json:"questionType"` // multiple_choice, true_false, multiple_select, short_answer
	Content        string                    `gorm:"type:text;not null" json:"content"`
	Options        []assessment.AnswerOption `gorm:"serializer:json;type:json" json:"options"`
	CorrectAnswer  string                    `gorm:"size:255" json:"correctAnswer,omitempty"`
	CorrectAnswers []string                  `gorm:"serializer:json;type:json" json:"correctAnswers,omitempty"`
	Points         int                       `gorm:"default:1" json:"points"`
	Order          int                       `gorm:"default:0" json:"order"`
	Explanation    string                    `gorm:"type:text" json:"explanation"`
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}

func (q *AssessmentQuestion) ToDomain() assessment.Question {
	return assessment.Question{
		ID:             q.ID,
		Order:          q.Order,
		Type:           assessment.QuestionType(q.QuestionType),
		Text:           q.Content,
		Options:        append([]assessment.AnswerOption(nil), q.Options...),
		CorrectAnswer:  q.CorrectAnswer,
		CorrectAnswers: append([]string(nil), q.CorrectAnswers...),
		Points:         q.Points,
		Explanation:    q.Explanation,
	}
}

func NewAssessmentQuestion(assessmentID uint, q assessment.Question) AssessmentQuestion {
	return AssessmentQuestion{
		AssessmentID:   assessmentID,
		QuestionType:   string(q.Type),
		Content:        q.Text,
		Options:        q.Options,
		CorrectAnswer:  q.CorrectAnswer,
		CorrectAnswers: q.CorrectAnswers,
		Points:         q.Points,
		Order:          q.Order,
		Explanation:    q.Explanation,
	}
}

func QuestionsToDomain(rows []AssessmentQuestion) []assessment.Question {
	out := make([]assessment.Question, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}
