package service

import (
	"context"
	"edu_portal_backend/internal/assessment"
	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/repository"
	"edu_portal_backend/pkg/logger"
	"fmt"

	"go.uber.org/zap"
)

type AssessmentService struct {
	Repo *repository.AssessmentRepository
}

func NewAssessmentService(repo *repository.AssessmentRepository) *AssessmentService {
	return &AssessmentService{Repo: repo}
}

type AssessmentQuestionRequest struct {
	QuestionType   string                    `json:"questionType" binding:"required"`
	Content        string                    `json:"content" binding:"required"`
	Options        []assessment.AnswerOption `json:"options"`
	CorrectAnswer  string                    `json:"correctAnswer"`
	CorrectAnswers []string                  `json:"correctAnswers"`
	Points         *int                      `json:"points"`
	Order          int                       `json:"order"`
	Explanation    string                    `json:"explanation"`
}

type CreateAssessmentRequest struct {
	CourseID           uint                        `json:"courseId" binding:"required"`
	ModuleID           *uint                       `json:"moduleId"`
	Type               string                      `json:"type" binding:"required"`
	Title              string                      `json:"title" binding:"required"`
	Description        string                      `json:"description"`
	PassingScore       float64                     `json:"passingScore"`
	TimeLimitMinutes   int                         `json:"timeLimitMinutes"`
	MaxAttempts        int                         `json:"maxAttempts"`
	ShuffleQuestions   bool                        `json:"shuffleQuestions"`
	ShuffleAnswers     bool                        `json:"shuffleAnswers"`
	AllowReview        bool                        `json:"allowReview"`
	ShowCorrectAnswers bool                        `json:"showCorrectAnswers"`
	Questions          []AssessmentQuestionRequest `json:"questions"`
}

// toModels 校验并转换请求，题目顺序未填写时按提交顺序编号
func (req CreateAssessmentRequest) toModels(creatorID uint) (*model.Assessment, []model.AssessmentQuestion, error) {
	a := &model.Assessment{
		CourseID:           req.CourseID,
		ModuleID:           req.ModuleID,
		Type:               req.Type,
		Title:              req.Title,
		Description:        req.Description,
		PassingScore:       req.PassingScore,
		TimeLimit:          req.TimeLimitMinutes,
		MaxAttempts:        req.MaxAttempts,
		ShuffleQuestions:   req.ShuffleQuestions,
		ShuffleAnswers:     req.ShuffleAnswers,
		AllowReview:        req.AllowReview,
		ShowCorrectAnswers: req.ShowCorrectAnswers,
		CreatorID:          creatorID,
	}
	if err := assessment.ValidateAssessment(a.ToDomain(len(req.Questions))); err != nil {
		return nil, nil, err
	}

	questions := make([]model.AssessmentQuestion, 0, len(req.Questions))
	for i, qr := range req.Questions {
		points := 1
		if qr.Points != nil {
			points = *qr.Points
		}
		order := qr.Order
		if order == 0 {
			order = i + 1
		}
		q := assessment.Question{
			Order:          order,
			Type:           assessment.QuestionType(qr.QuestionType),
			Text:           qr.Content,
			Options:        qr.Options,
			CorrectAnswer:  qr.CorrectAnswer,
			CorrectAnswers: qr.CorrectAnswers,
			Points:         points,
			Explanation:    qr.Explanation,
		}
		if err := assessment.ValidateQuestion(q); err != nil {
			return nil, nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, model.NewAssessmentQuestion(0, q))
	}
	return a, questions, nil
}

func (s *AssessmentService) CreateAssessment(ctx context.Context, req CreateAssessmentRequest, creatorID uint) (*model.Assessment, error) {
	a, questions, err := req.toModels(creatorID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CreateWithQuestions(ctx, a, questions); err != nil {
		return nil, err
	}
	logger.Log.Info("assessment created",
		zap.Uint("assessmentId", a.ID),
		zap.String("type", a.Type),
		zap.Int("questions", len(questions)),
		zap.Uint("creatorId", creatorID))
	return a, nil
}
