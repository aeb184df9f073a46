package service

import (
	"bytes"
	"context"
	"edu_portal_backend/internal/assessment"
	"edu_portal_backend/internal/config"
	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/repository"
	"edu_portal_backend/internal/util"
	"edu_portal_backend/pkg/logger"
	"edu_portal_backend/pkg/monitoring"
	"edu_portal_backend/pkg/tracing"
	"errors"
	"fmt"
	"html/template"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var certificateTmpl = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Certificate {{.Number}}</title></head>
<body>
<h1>Certificate of Completion</h1>
<p>This certifies that <strong>{{.StudentName}}</strong> has completed course #{{.CourseID}}.</p>
<p>Overall score: {{printf "%.1f" .OverallScore}} / 100 &middot; Final exam: {{printf "%.1f" .FinalExamScore}}</p>
<p>Modules completed: {{.ModulesCompleted}} of {{.TotalModules}}</p>
<p>Certificate number: {{.Number}}<br>Issued: {{.IssuedAt}}</p>
</body>
</html>
`))

type certificateView struct {
	Number           string
	StudentName      string
	CourseID         uint
	OverallScore     float64
	FinalExamScore   float64
	ModulesCompleted int
	TotalModules     int
	IssuedAt         string
}

func renderCertificate(r assessment.Report, studentName, number string, at time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := certificateTmpl.Execute(&buf, certificateView{
		Number:           number,
		StudentName:      studentName,
		CourseID:         r.CourseID,
		OverallScore:     r.OverallScore,
		FinalExamScore:   r.FinalExamScore,
		ModulesCompleted: r.ModulesCompleted,
		TotalModules:     r.TotalModules,
		IssuedAt:         at.Format(util.DateFormat),
	})
	return buf.Bytes(), err
}

type ReportService struct {
	Reports     *repository.ReportRepository
	Enrollments *repository.EnrollmentRepository
	Attempts    *repository.AttemptRepository
	Users       *repository.UserRepository
	Storage     *StorageService

	mu    sync.RWMutex
	blend assessment.WeightedBlend
	now   func() time.Time
}

func NewReportService(reports *repository.ReportRepository, enrollments *repository.EnrollmentRepository,
	attempts *repository.AttemptRepository, users *repository.UserRepository, storage *StorageService, cfg config.ReportConfig) *ReportService {
	s := &ReportService{
		Reports:     reports,
		Enrollments: enrollments,
		Attempts:    attempts,
		Users:       users,
		Storage:     storage,
		now:         time.Now,
	}
	s.SetWeights(cfg)
	return s
}

// SetWeights 配置热更新时调用，只影响之后生成的报告
func (s *ReportService) SetWeights(cfg config.ReportConfig) {
	s.mu.Lock()
	s.blend = assessment.WeightedBlend{Module: cfg.ModuleWeight, Quiz: cfg.QuizWeight, Final: cfg.FinalWeight}
	s.mu.Unlock()
}

func (s *ReportService) Blend() assessment.WeightedBlend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blend
}

// GenerateReport 选课完成后生成报告，已存在则直接返回
func (s *ReportService) GenerateReport(ctx context.Context, enrollmentID, studentID uint) (_ *model.AssessmentReport, err error) {
	ctx, span := tracing.StartSpan(ctx, "ReportService.GenerateReport", attribute.Int64("enrollment.id", int64(enrollmentID)))
	defer func() { tracing.End(span, err) }()

	enrollment, err := s.Enrollments.FindByID(ctx, enrollmentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, err
	}
	if enrollment.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}
	if enrollment.Status != model.EnrollmentCompleted {
		return nil, assessment.ErrEnrollmentNotCompleted
	}

	if existing, err := s.Reports.FindByEnrollment(ctx, enrollmentID); err != nil || existing != nil {
		return existing, err
	}

	in, err := s.collectInput(ctx, enrollment)
	if err != nil {
		return nil, err
	}
	rep := model.NewAssessmentReport(assessment.Aggregate(in, s.Blend()))
	saved, err := s.Reports.CreateOnce(ctx, rep)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("report generated",
		zap.Uint("reportId", saved.ID),
		zap.Uint("enrollmentId", enrollmentID),
		zap.Float64("overallScore", saved.OverallScore),
		zap.Bool("passed", saved.Passed))
	return saved, nil
}

func (s *ReportService) collectInput(ctx context.Context, e *model.Enrollment) (assessment.ReportInput, error) {
	modules, err := s.Enrollments.ListModules(ctx, e.CourseID)
	if err != nil {
		return assessment.ReportInput{}, err
	}
	progress, err := s.Enrollments.ProgressByModule(ctx, e.ID)
	if err != nil {
		return assessment.ReportInput{}, err
	}
	attempts, err := s.Attempts.ListForEnrollment(ctx, e.ID, e.CourseID)
	if err != nil {
		return assessment.ReportInput{}, err
	}
	return buildReportInput(e, modules, progress, attempts), nil
}

func buildReportInput(e *model.Enrollment, modules []model.CourseModule, progress map[uint]model.ModuleProgress, attempts []repository.CourseAttempt) assessment.ReportInput {
	in := assessment.ReportInput{
		StudentID:    e.StudentID,
		EnrollmentID: e.ID,
		CourseID:     e.CourseID,
		Modules:      make([]assessment.ModuleRecord, 0, len(modules)),
		Attempts:     make([]assessment.AttemptRecord, 0, len(attempts)),
	}
	for _, m := range modules {
		p := progress[m.ID]
		in.Modules = append(in.Modules, assessment.ModuleRecord{
			ModuleNumber:     m.Number,
			Title:            m.Title,
			AssessmentID:     m.AssessmentID,
			Completed:        p.Completed,
			TimeSpentSeconds: p.TimeSpentSeconds,
		})
	}
	for _, a := range attempts {
		if a.EnrollmentID != e.ID || a.StudentID != e.StudentID {
			continue
		}
		in.Attempts = append(in.Attempts, assessment.AttemptRecord{
			AssessmentID:     a.AssessmentID,
			Type:             assessment.AssessmentType(a.AssessmentType),
			Status:           assessment.AttemptStatus(a.Status),
			Score:            a.Score,
			Passed:           a.Passed,
			TimeSpentSeconds: a.TimeSpentSeconds,
		})
	}
	return in
}

func (s *ReportService) GetReport(ctx context.Context, id uint) (*model.AssessmentReport, error) {
	rep, err := s.Reports.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrReportNotFound
	}
	return rep, err
}

// IssueCertificate 渲染并上传证书文档，再以条件更新完成 not_issued -> issued。
// 并发颁发时只有一个请求成功，失败方删除自己上传的文档。
func (s *ReportService) IssueCertificate(ctx context.Context, reportID uint) (_ *model.AssessmentReport, err error) {
	ctx, span := tracing.StartSpan(ctx, "ReportService.IssueCertificate", attribute.Int64("report.id", int64(reportID)))
	defer func() { tracing.End(span, err) }()

	rep, err := s.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	number := model.NewCertificateNumber(now)
	domain := rep.ToDomain()
	if err := domain.IssueCertificate(number, "", now); err != nil {
		return nil, err
	}

	studentName := fmt.Sprintf("Student #%d", rep.StudentID)
	if u, err := s.Users.FindByID(ctx, rep.StudentID); err == nil && u.Name != "" {
		studentName = u.Name
	}
	doc, err := renderCertificate(domain, studentName, number, now)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("certificates/%d/%s.html", rep.CourseID, number)
	url, err := s.Storage.PutBytes(ctx, key, doc, util.MimeHTML)
	if err != nil {
		return nil, fmt.Errorf("store certificate: %w", err)
	}

	ok, err := s.Reports.MarkCertificateIssued(ctx, rep.ID, number, url, now)
	if err != nil || !ok {
		if delErr := s.Storage.Delete(context.Background(), key); delErr != nil {
			logger.Log.Warn("orphan certificate document", zap.String("key", key), zap.Error(delErr))
		}
		if err != nil {
			return nil, err
		}
		return nil, assessment.ErrCertificateAlreadyIssued
	}

	monitoring.CertificatesIssued.Inc()
	logger.Log.Info("certificate issued",
		zap.Uint("reportId", rep.ID),
		zap.String("number", number))
	return s.GetReport(ctx, rep.ID)
}
