package assessment

import "context"

// CourseAPI is the persistence collaborator of the orchestrator. Every call is a
// suspension point and must honour ctx cancellation.
type CourseAPI interface {
	GetAssessment(ctx context.Context, assessmentID uint) (Assessment, error)
	GetAssessmentQuestions(ctx context.Context, assessmentID uint) ([]Question, error)
	StartAssessmentAttempt(ctx context.Context, studentID, assessmentID, enrollmentID uint) (uint, error)
	GetCurrentAttempt(ctx context.Context, studentID, assessmentID uint) (*Attempt, error)
	GetAttemptDetails(ctx context.Context, attemptID uint) (Attempt, error)
	GetAttemptAnswers(ctx context.Context, attemptID uint) ([]Answer, error)
	SubmitAnswer(ctx context.Context, attemptID, questionID uint, answer string, answers []string) error
	SubmitAssessment(ctx context.Context, attemptID uint, reason SubmitReason) error
	AbandonAttempt(ctx context.Context, attemptID uint) error
	CanAttemptAssessment(ctx context.Context, studentID, assessmentID uint) (bool, error)
	GetRemainingAttempts(ctx context.Context, studentID, assessmentID uint) (int, error)
}
