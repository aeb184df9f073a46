package repository

import (
	"context"
	"edu_portal_backend/internal/model"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

// CreateWithQuestions 测评与题目在同一事务中写入
func (r *AssessmentRepository) CreateWithQuestions(ctx context.Context, a *model.Assessment, questions []model.AssessmentQuestion) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Questions").Create(a).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}
		for i := range questions {
			questions[i].AssessmentID = a.ID
		}
		if err := tx.Create(&questions).Error; err != nil {
			return err
		}
		a.Questions = questions
		return nil
	})
}

func (r *AssessmentRepository) FindByID(ctx context.Context, id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.WithContext(ctx).First(&a, id).Error
	return &a, err
}

func (r *AssessmentRepository) ListQuestions(ctx context.Context, assessmentID uint) ([]model.AssessmentQuestion, error) {
	var qs []model.AssessmentQuestion
	err := r.DB.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Order("`order` asc, id asc").
		Find(&qs).Error
	return qs, err
}

func (r *AssessmentRepository) CountQuestions(ctx context.Context, assessmentID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.AssessmentQuestion{}).
		Where("assessment_id = ?", assessmentID).
		Count(&n).Error
	return n, err
}

func (r *AssessmentRepository) FindQuestion(ctx context.Context, assessmentID, questionID uint) (*model.AssessmentQuestion, error) {
	var q model.AssessmentQuestion
	err := r.DB.WithContext(ctx).
		Where("id = ? AND assessment_id = ?", questionID, assessmentID).
		First(&q).Error
	return &q, err
}
