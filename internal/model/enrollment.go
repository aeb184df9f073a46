package model

import "time"

const (
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
	EnrollmentDropped   = "dropped"
)

// Enrollment 学生选课记录
type Enrollment struct {
	BaseModel
	StudentID   uint       `gorm:"index;not null" json:"studentId"`
	CourseID    uint       `gorm:"index;not null" json:"courseId"`
	Status      string     `gorm:"size:20;default:'active'" json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// CourseModule 课程模块，可挂一个模块测评
type CourseModule struct {
	BaseModel
	CourseID     uint   `gorm:"index;not null" json:"courseId"`
	Number       int    `gorm:"not null" json:"number"`
	Title        string `gorm:"size:255" json:"title"`
	AssessmentID *uint  `json:"assessmentId,omitempty"`
}

func (CourseModule) TableName() string {
	return "course_modules"
}

type ModuleProgress struct {
	BaseModel
	EnrollmentID     uint       `gorm:"uniqueIndex:idx_enrollment_module;not null" json:"enrollmentId"`
	ModuleID         uint       `gorm:"uniqueIndex:idx_enrollment_module;not null" json:"moduleId"`
	Completed        bool       `gorm:"default:false" json:"completed"`
	TimeSpentSeconds int        `gorm:"default:0" json:"timeSpentSeconds"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

func (ModuleProgress) TableName() string {
	return "module_progress"
}
