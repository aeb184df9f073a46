package repository

import (
	"context"
	"edu_portal_backend/internal/assessment"
	"edu_portal_backend/internal/model"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// NewAttempt 创建尝试所需参数
type NewAttempt struct {
	StudentID      uint
	AssessmentID   uint
	EnrollmentID   uint
	MaxAttempts    int
	TotalQuestions int
	StartedAt      time.Time
}

// CreateNext 在事务中校验进行中的尝试与剩余次数，并分配下一个 attempt_number。
// 并发插入同一编号会触发唯一索引，按进行中处理。
func (r *AttemptRepository) CreateNext(ctx context.Context, in NewAttempt) (*model.AssessmentAttempt, error) {
	var created *model.AssessmentAttempt
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []model.AssessmentAttempt
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ? AND assessment_id = ?", in.StudentID, in.AssessmentID).
			Find(&existing).Error; err != nil {
			return err
		}

		maxNumber := 0
		for _, a := range existing {
			if a.Status == string(assessment.StatusInProgress) {
				return assessment.ErrAttemptInProgress
			}
			if a.AttemptNumber > maxNumber {
				maxNumber = a.AttemptNumber
			}
		}
		if in.MaxAttempts > 0 && len(existing) >= in.MaxAttempts {
			return assessment.ErrAttemptsExhausted
		}

		created = &model.AssessmentAttempt{
			StudentID:      in.StudentID,
			AssessmentID:   in.AssessmentID,
			EnrollmentID:   in.EnrollmentID,
			AttemptNumber:  maxNumber + 1,
			Status:         string(assessment.StatusInProgress),
			StartedAt:      in.StartedAt,
			TotalQuestions: in.TotalQuestions,
		}
		return tx.Create(created).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, assessment.ErrAttemptInProgress
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *AttemptRepository) FindByID(ctx context.Context, id uint) (*model.AssessmentAttempt, error) {
	var a model.AssessmentAttempt
	err := r.DB.WithContext(ctx).First(&a, id).Error
	return &a, err
}

// FindInProgress 没有进行中的尝试时返回 nil, nil
func (r *AttemptRepository) FindInProgress(ctx context.Context, studentID, assessmentID uint) (*model.AssessmentAttempt, error) {
	var a model.AssessmentAttempt
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND assessment_id = ? AND status = ?", studentID, assessmentID, assessment.StatusInProgress).
		Order("attempt_number desc").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) CountByStudent(ctx context.Context, studentID, assessmentID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.AssessmentAttempt{}).
		Where("student_id = ? AND assessment_id = ?", studentID, assessmentID).
		Count(&n).Error
	return n, err
}

func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uint) ([]model.AttemptAnswer, error) {
	var answers []model.AttemptAnswer
	err := r.DB.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id asc").
		Find(&answers).Error
	return answers, err
}

func (r *AttemptRepository) FindAnswer(ctx context.Context, attemptID, questionID uint) (*model.AttemptAnswer, error) {
	var ans model.AttemptAnswer
	err := r.DB.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&ans).Error
	return &ans, err
}

// UpsertAnswer 同一题重复作答覆盖旧答案
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, ans *model.AttemptAnswer) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer_given", "answers_given", "answered_at", "updated_at"}),
	}).Create(ans).Error
}

// UpdateLocked 对尝试加行锁后执行 fn，fn 内通过 tx 写入
func (r *AttemptRepository) UpdateLocked(ctx context.Context, attemptID uint, fn func(tx *gorm.DB, a *model.AssessmentAttempt) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a model.AssessmentAttempt
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, attemptID).Error; err != nil {
			return err
		}
		return fn(tx, &a)
	})
}

// SaveGrading 写回尝试结果和每个已作答题目的判分
func (r *AttemptRepository) SaveGrading(tx *gorm.DB, a *model.AssessmentAttempt, answers []model.AttemptAnswer) error {
	if err := tx.Model(a).Select(
		"status", "submitted_at", "submit_reason", "time_spent_seconds",
		"total_questions", "correct_answers", "pending_manual", "score", "passed",
	).Updates(a).Error; err != nil {
		return err
	}
	for i := range answers {
		ans := &answers[i]
		if ans.ID == 0 {
			continue
		}
		if err := tx.Model(ans).Select("is_correct", "needs_manual", "points_earned", "graded_by").Updates(ans).Error; err != nil {
			return err
		}
	}
	return nil
}

// ListAnswersTx 在事务中读取作答
func (r *AttemptRepository) ListAnswersTx(tx *gorm.DB, attemptID uint) ([]model.AttemptAnswer, error) {
	var answers []model.AttemptAnswer
	err := tx.Where("attempt_id = ?", attemptID).Find(&answers).Error
	return answers, err
}

// ListOverdue 返回已超过截止时间 + grace 仍在进行中的限时尝试
func (r *AttemptRepository) ListOverdue(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]model.AssessmentAttempt, error) {
	var attempts []model.AssessmentAttempt
	err := r.DB.WithContext(ctx).
		Joins("Assessment").
		Where("assessment_attempts.status = ?", assessment.StatusInProgress).
		Where("`Assessment`.`time_limit` > 0").
		Where("TIMESTAMPADD(SECOND, `Assessment`.`time_limit` * 60 + ?, assessment_attempts.started_at) < ?", int(grace.Seconds()), now).
		Order("assessment_attempts.started_at asc").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// CourseAttempt 课程内一次尝试及其测评类型
type CourseAttempt struct {
	model.AssessmentAttempt
	AssessmentType string
}

// ListForEnrollment 只返回该选课下的尝试，重新选课后旧选课的尝试不计入
func (r *AttemptRepository) ListForEnrollment(ctx context.Context, enrollmentID, courseID uint) ([]CourseAttempt, error) {
	var rows []CourseAttempt
	err := r.DB.WithContext(ctx).
		Model(&model.AssessmentAttempt{}).
		Select("assessment_attempts.*, assessments.type AS assessment_type").
		Joins("JOIN assessments ON assessments.id = assessment_attempts.assessment_id AND assessments.deleted_at IS NULL").
		Where("assessment_attempts.enrollment_id = ? AND assessments.course_id = ?", enrollmentID, courseID).
		Find(&rows).Error
	return rows, err
}
