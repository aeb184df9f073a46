package assessment

import (
	"math"
	"sort"
	"time"
)

type CertificateStatus string

const (
	CertificateNotIssued CertificateStatus = "not_issued"
	CertificateIssued    CertificateStatus = "issued"
)

// ModuleRecord 模块学习进度
type ModuleRecord struct {
	ModuleNumber     int
	Title            string
	AssessmentID     *uint
	Completed        bool
	TimeSpentSeconds int
}

// AttemptRecord is one attempt of an assessment belonging to the enrollment.
type AttemptRecord struct {
	AssessmentID     uint
	Type             AssessmentType
	Status           AttemptStatus
	Score            float64
	Passed           bool
	TimeSpentSeconds int
}

func (r AttemptRecord) counts() bool {
	return r.Status == StatusGraded || r.Status == StatusExpired
}

type ReportInput struct {
	StudentID    uint
	EnrollmentID uint
	CourseID     uint
	Modules      []ModuleRecord
	Attempts     []AttemptRecord
}

type ModuleScoreEntry struct {
	ModuleNumber     int     `json:"moduleNumber"`
	Title            string  `json:"title"`
	Score            float64 `json:"score"`
	TimeSpentSeconds int     `json:"timeSpentSeconds"`
	Completed        bool    `json:"completed"`
}

type Certificate struct {
	Status   CertificateStatus `json:"status"`
	Number   string            `json:"number,omitempty"`
	IssuedAt *time.Time        `json:"issuedAt,omitempty"`
	URL      string            `json:"url,omitempty"`
}

// Report 课程完成报告，除证书字段外创建后不再变化
type Report struct {
	StudentID        uint               `json:"studentId"`
	EnrollmentID     uint               `json:"enrollmentId"`
	CourseID         uint               `json:"courseId"`
	OverallScore     float64            `json:"overallScore"`
	FinalExamScore   float64            `json:"finalExamScore"`
	AverageQuizScore float64            `json:"averageQuizScore"`
	TotalTimeHours   float64            `json:"totalTimeHours"`
	ModulesCompleted int                `json:"modulesCompleted"`
	TotalModules     int                `json:"totalModules"`
	Passed           bool               `json:"passed"`
	ModuleScores     []ModuleScoreEntry `json:"moduleScores"`
	Certificate      Certificate        `json:"certificate"`
}

// IssueCertificate performs the one-way not_issued -> issued transition.
func (r *Report) IssueCertificate(number, url string, at time.Time) error {
	if r.Certificate.Status == CertificateIssued {
		return ErrCertificateAlreadyIssued
	}
	if !r.Passed {
		return ErrCertificateNotEligible
	}
	r.Certificate = Certificate{
		Status:   CertificateIssued,
		Number:   number,
		IssuedAt: &at,
		URL:      url,
	}
	return nil
}

// BlendComponents are the averages an overall score is blended from. A component
// with no data is marked absent rather than counted as zero.
type BlendComponents struct {
	ModuleAverage float64
	QuizAverage   float64
	FinalScore    float64
	HasModule     bool
	HasQuiz       bool
	HasFinal      bool
}

type BlendPolicy interface {
	Blend(c BlendComponents) float64
}

// WeightedBlend normalises its weights over the components that are present.
type WeightedBlend struct {
	Module float64
	Quiz   float64
	Final  float64
}

func DefaultBlend() WeightedBlend {
	return WeightedBlend{Module: 0.2, Quiz: 0.3, Final: 0.5}
}

func (w WeightedBlend) Blend(c BlendComponents) float64 {
	var sum, weight float64
	add := func(present bool, wt, v float64) {
		if present && wt > 0 {
			sum += wt * v
			weight += wt
		}
	}
	add(c.HasModule, w.Module, c.ModuleAverage)
	add(c.HasQuiz, w.Quiz, c.QuizAverage)
	add(c.HasFinal, w.Final, c.FinalScore)
	if weight == 0 {
		return 0
	}
	return round1(sum / weight)
}

// Aggregate folds the enrollment's module progress and attempts into a report.
// Only graded and expired attempts count; the best score per assessment is used.
func Aggregate(in ReportInput, policy BlendPolicy) Report {
	if policy == nil {
		policy = DefaultBlend()
	}

	best := make(map[uint]float64)
	types := make(map[uint]AssessmentType)
	var (
		finalScore  float64
		hasFinal    bool
		passed      bool
		attemptTime int
	)
	for _, a := range in.Attempts {
		if !a.counts() {
			continue
		}
		attemptTime += a.TimeSpentSeconds
		types[a.AssessmentID] = a.Type
		if s, ok := best[a.AssessmentID]; !ok || a.Score > s {
			best[a.AssessmentID] = a.Score
		}
		if a.Type == TypeFinalExam {
			if !hasFinal || a.Score > finalScore {
				finalScore = a.Score
			}
			hasFinal = true
			passed = passed || a.Passed
		}
	}

	var quizSum float64
	var quizN int
	for id, s := range best {
		switch types[id] {
		case TypeQuiz, TypeModuleExam:
			quizSum += s
			quizN++
		}
	}

	modules := append([]ModuleRecord(nil), in.Modules...)
	sort.SliceStable(modules, func(i, j int) bool { return modules[i].ModuleNumber < modules[j].ModuleNumber })

	rep := Report{
		StudentID:    in.StudentID,
		EnrollmentID: in.EnrollmentID,
		CourseID:     in.CourseID,
		TotalModules: len(modules),
		ModuleScores: make([]ModuleScoreEntry, 0, len(modules)),
		Certificate:  Certificate{Status: CertificateNotIssued},
	}

	var moduleSum float64
	var moduleN, moduleTime int
	for _, m := range modules {
		entry := ModuleScoreEntry{
			ModuleNumber:     m.ModuleNumber,
			Title:            m.Title,
			TimeSpentSeconds: m.TimeSpentSeconds,
			Completed:        m.Completed,
		}
		if m.AssessmentID != nil {
			if s, ok := best[*m.AssessmentID]; ok {
				entry.Score = s
				moduleSum += s
				moduleN++
			}
		}
		if m.Completed {
			rep.ModulesCompleted++
		}
		moduleTime += m.TimeSpentSeconds
		rep.ModuleScores = append(rep.ModuleScores, entry)
	}

	comps := BlendComponents{FinalScore: finalScore, HasFinal: hasFinal}
	if moduleN > 0 {
		comps.ModuleAverage = round1(moduleSum / float64(moduleN))
		comps.HasModule = true
	}
	if quizN > 0 {
		comps.QuizAverage = round1(quizSum / float64(quizN))
		comps.HasQuiz = true
	}

	rep.FinalExamScore = finalScore
	rep.AverageQuizScore = comps.QuizAverage
	rep.OverallScore = policy.Blend(comps)
	rep.Passed = passed
	rep.TotalTimeHours = math.Round(float64(moduleTime+attemptTime)/3600*100) / 100
	return rep
}
