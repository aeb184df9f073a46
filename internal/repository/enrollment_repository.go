package repository

import (
	"context"
	"edu_portal_backend/internal/model"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) FindByID(ctx context.Context, id uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).First(&e, id).Error
	return &e, err
}

func (r *EnrollmentRepository) ListModules(ctx context.Context, courseID uint) ([]model.CourseModule, error) {
	var modules []model.CourseModule
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("number asc").
		Find(&modules).Error
	return modules, err
}

// ProgressByModule 以 module_id 为 key 返回进度
func (r *EnrollmentRepository) ProgressByModule(ctx context.Context, enrollmentID uint) (map[uint]model.ModuleProgress, error) {
	var rows []model.ModuleProgress
	if err := r.DB.WithContext(ctx).Where("enrollment_id = ?", enrollmentID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]model.ModuleProgress, len(rows))
	for _, p := range rows {
		out[p.ModuleID] = p
	}
	return out, nil
}
