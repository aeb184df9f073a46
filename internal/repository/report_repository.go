package repository

import (
	"context"
	"edu_portal_backend/internal/assessment"
	"edu_portal_backend/internal/model"
	"errors"
	"time"

	"gorm.io/gorm"
)

type ReportRepository struct {
	DB *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{DB: db}
}

func (r *ReportRepository) FindByID(ctx context.Context, id uint) (*model.AssessmentReport, error) {
	var rep model.AssessmentReport
	err := r.DB.WithContext(ctx).First(&rep, id).Error
	return &rep, err
}

// FindByEnrollment 不存在时返回 nil, nil
func (r *ReportRepository) FindByEnrollment(ctx context.Context, enrollmentID uint) (*model.AssessmentReport, error) {
	var rep model.AssessmentReport
	err := r.DB.WithContext(ctx).Where("enrollment_id = ?", enrollmentID).First(&rep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// CreateOnce 并发生成时以先写入的为准
func (r *ReportRepository) CreateOnce(ctx context.Context, rep *model.AssessmentReport) (*model.AssessmentReport, error) {
	err := r.DB.WithContext(ctx).Create(rep).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.FindByEnrollment(ctx, rep.EnrollmentID)
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// MarkCertificateIssued 条件更新，只有未发证且已通过的报告会被修改
func (r *ReportRepository) MarkCertificateIssued(ctx context.Context, id uint, number, url string, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.AssessmentReport{}).
		Where("id = ? AND certificate_status = ? AND passed = ?", id, assessment.CertificateNotIssued, true).
		Updates(map[string]interface{}{
			"certificate_status":    assessment.CertificateIssued,
			"certificate_number":    number,
			"certificate_issued_at": at,
			"certificate_url":       url,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
