package model

import (
	"edu_portal_backend/internal/assessment"
	"time"

	"github.com/google/uuid"
)

// AssessmentReport 课程完成报告，每个选课记录只有一份
// swagger:model AssessmentReport
type AssessmentReport struct {
	BaseModel
	StudentID           uint                          `gorm:"index;not null" json:"studentId"`
	EnrollmentID        uint                          `gorm:"uniqueIndex;not null" json:"enrollmentId"`
	CourseID            uint                          `gorm:"index;not null" json:"courseId"`
	OverallScore        float64                       `json:"overallScore"`
	FinalExamScore      float64                       `json:"finalExamScore"`
	AverageQuizScore    float64                       `json:"averageQuizScore"`
	TotalTimeHours      float64                       `json:"totalTimeHours"`
	ModulesCompleted    int                           `json:"modulesCompleted"`
	TotalModules        int                           `json:"totalModules"`
	Passed              bool                          `json:"passed"`
	ModuleScores        []assessment.ModuleScoreEntry `gorm:"serializer:json;type:json" json:"moduleScores"`
	CertificateStatus   string                        `gorm:"size:20;default:'not_issued'" json:"certificateStatus"`
	CertificateNumber   string                        `gorm:"size:64;index" json:"certificateNumber,omitempty"`
	CertificateIssuedAt *time.Time                    `json:"certificateIssuedAt,omitempty"`
	CertificateURL      string                        `gorm:"size:512" json:"certificateUrl,omitempty"`
}

func (AssessmentReport) TableName() string {
	return "assessment_reports"
}

func NewAssessmentReport(r assessment.Report) *AssessmentReport {
	status := r.Certificate.Status
	if status == "" {
		status = assessment.CertificateNotIssued
	}
	return &AssessmentReport{
		StudentID:           r.StudentID,
		EnrollmentID:        r.EnrollmentID,
		CourseID:            r.CourseID,
		OverallScore:        r.OverallScore,
		FinalExamScore:      r.FinalExamScore,
		AverageQuizScore:    r.AverageQuizScore,
		TotalTimeHours:      r.TotalTimeHours,
		ModulesCompleted:    r.ModulesCompleted,
		TotalModules:        r.TotalModules,
		Passed:              r.Passed,
		ModuleScores:        r.ModuleScores,
		CertificateStatus:   string(status),
		CertificateNumber:   r.Certificate.Number,
		CertificateIssuedAt: r.Certificate.IssuedAt,
		CertificateURL:      r.Certificate.URL,
	}
}

func (m *AssessmentReport) ToDomain() assessment.Report {
	return assessment.Report{
		StudentID:        m.StudentID,
		EnrollmentID:     m.EnrollmentID,
		CourseID:         m.CourseID,
		OverallScore:     m.OverallScore,
		FinalExamScore:   m.FinalExamScore,
		AverageQuizScore: m.AverageQuizScore,
		TotalTimeHours:   m.TotalTimeHours,
		ModulesCompleted: m.ModulesCompleted,
		TotalModules:     m.TotalModules,
		Passed:           m.Passed,
		ModuleScores:     append([]assessment.ModuleScoreEntry(nil), m.ModuleScores...),
		Certificate: assessment.Certificate{
			Status:   assessment.CertificateStatus(m.CertificateStatus),
			Number:   m.CertificateNumber,
			IssuedAt: m.CertificateIssuedAt,
			URL:      m.CertificateURL,
		},
	}
}

// NewCertificateNumber CERT-<年份>-<uuid 前 12 位>
func NewCertificateNumber(at time.Time) string {
	id := uuid.New().String()
	return "CERT-" + at.Format("2006") + "-" + id[:8] + id[9:13]
}
