package assessment

import "time"

type AssessmentType string

const (
	TypeQuiz       AssessmentType = "quiz"
	TypeModuleExam AssessmentType = "module_exam"
	TypeFinalExam  AssessmentType = "final_exam"
	TypePractice   AssessmentType = "practice"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	MultipleSelect QuestionType = "multiple_select"
	ShortAnswer    QuestionType = "short_answer"
)

// AttemptStatus 尝试状态
type AttemptStatus string

const (
	StatusNotStarted AttemptStatus = "not_started"
	StatusInProgress AttemptStatus = "in_progress"
	StatusSubmitted  AttemptStatus = "submitted"
	StatusGraded     AttemptStatus = "graded"
	StatusExpired    AttemptStatus = "expired"
	StatusAbandoned  AttemptStatus = "abandoned"
)

// Terminal reports whether no further transition is possible.
func (s AttemptStatus) Terminal() bool {
	return s == StatusGraded || s == StatusExpired || s == StatusAbandoned
}

type SubmitReason string

const (
	UserInitiated SubmitReason = "user_initiated"
	TimerExpired  SubmitReason = "timer_expired"
)

// Assessment 测评定义，尝试期间不可变
type Assessment struct {
	ID                 uint           `json:"id"`
	CourseID           uint           `json:"courseId"`
	ModuleID           *uint          `json:"moduleId,omitempty"`
	Type               AssessmentType `json:"type"`
	Title              string         `json:"title"`
	QuestionCount      int            `json:"questionCount"`
	PassingScore       float64        `json:"passingScore"`
	TimeLimitMinutes   int            `json:"timeLimitMinutes"`
	MaxAttempts        int            `json:"maxAttempts"`
	ShuffleQuestions   bool           `json:"shuffleQuestions"`
	ShuffleAnswers     bool           `json:"shuffleAnswers"`
	AllowReview        bool           `json:"allowReview"`
	ShowCorrectAnswers bool           `json:"showCorrectAnswers"`
}

// TimeLimitSeconds returns 0 for untimed assessments.
func (a Assessment) TimeLimitSeconds() int {
	if a.TimeLimitMinutes <= 0 {
		return 0
	}
	return a.TimeLimitMinutes * 60
}

type AnswerOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type Question struct {
	ID             uint           `json:"id"`
	Order          int            `json:"order"`
	Type           QuestionType   `json:"type"`
	Text           string         `json:"text"`
	Options        []AnswerOption `json:"options"`
	CorrectAnswer  string         `json:"correctAnswer,omitempty"`
	CorrectAnswers []string       `json:"correctAnswers,omitempty"`
	Points         int            `json:"points"`
	Explanation    string         `json:"explanation,omitempty"`
}

type Attempt struct {
	ID               uint          `json:"id"`
	StudentID        uint          `json:"studentId"`
	AssessmentID     uint          `json:"assessmentId"`
	EnrollmentID     uint          `json:"enrollmentId"`
	AttemptNumber    int           `json:"attemptNumber"`
	Status           AttemptStatus `json:"status"`
	StartedAt        time.Time     `json:"startedAt"`
	SubmittedAt      *time.Time    `json:"submittedAt,omitempty"`
	SubmitReason     SubmitReason  `json:"submitReason,omitempty"`
	TimeSpentSeconds int           `json:"timeSpentSeconds"`
	TotalQuestions   int           `json:"totalQuestions"`
	CorrectAnswers   int           `json:"correctAnswers"`
	PendingManual    int           `json:"pendingManual"`
	Score            float64       `json:"score"`
	Passed           bool          `json:"passed"`
}

// Answer is one persisted (attempt, question) record.
type Answer struct {
	AttemptID    uint      `json:"attemptId"`
	QuestionID   uint      `json:"questionId"`
	AnswerGiven  string    `json:"answerGiven,omitempty"`
	AnswersGiven []string  `json:"answersGiven,omitempty"`
	IsCorrect    bool      `json:"isCorrect"`
	NeedsManual  bool      `json:"needsManual"`
	PointsEarned int       `json:"pointsEarned"`
	AnsweredAt   time.Time `json:"answeredAt"`
}

// Session carries the caller identity explicitly instead of ambient global state.
type Session struct {
	StudentID    uint
	EnrollmentID uint
}
