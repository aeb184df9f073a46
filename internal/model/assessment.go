package model

import "edu_portal_backend/internal/assessment"

// Assessment 测评（测验 / 模块考试 / 期末考试 / 练习）
// swagger:model Assessment
type Assessment struct {
	BaseModel
	CourseID           uint                 `gorm:"index;not null" json:"courseId"`
	ModuleID           *uint                `gorm:"index" json:"moduleId,omitempty"`
	Type               string               `gorm:"size:20;not null" json:"type"` // quiz, module_exam, final_exam, practice
	Title              string               `gorm:"size:255;not null" json:"title"`
	Description        string               `gorm:"type:text" json:"description"`
	PassingScore       float64              `gorm:"default:70" json:"passingScore"`
	TimeLimit          int                  `gorm:"default:0" json:"timeLimit"` // 分钟，0 表示不限时
	MaxAttempts        int                  `gorm:"default:1" json:"maxAttempts"`
	ShuffleQuestions   bool                 `gorm:"default:false" json:"shuffleQuestions"`
	ShuffleAnswers     bool                 `gorm:"default:false" json:"shuffleAnswers"`
	AllowReview        bool                 `gorm:"default:true" json:"allowReview"`
	ShowCorrectAnswers bool                 `gorm:"default:false" json:"showCorrectAnswers"`
	CreatorID          uint                 `gorm:"index" json:"creatorId"`
	Questions          []AssessmentQuestion `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// ToDomain converts the row; questionCount is passed in because Questions is
// usually not preloaded.
func (a *Assessment) ToDomain(questionCount int) assessment.Assessment {
	return assessment.Assessment{
		ID:                 a.ID,
		CourseID:           a.CourseID,
		ModuleID:           a.ModuleID,
		Type:               assessment.AssessmentType(a.Type),
		Title:              a.Title,
		QuestionCount:      questionCount,
		PassingScore:       a.PassingScore,
		TimeLimitMinutes:   a.TimeLimit,
		MaxAttempts:        a.MaxAttempts,
		ShuffleQuestions:   a.ShuffleQuestions,
		ShuffleAnswers:     a.ShuffleAnswers,
		AllowReview:        a.AllowReview,
		ShowCorrectAnswers: a.ShowCorrectAnswers,
	}
}
