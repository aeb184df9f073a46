package service

import (
	"context"
	"edu_portal_backend/internal/assessment"
	"edu_portal_backend/internal/model"
)

// CourseAPIAdapter 进程内实现 assessment.CourseAPI，供服务端托管的作答会话使用
type CourseAPIAdapter struct {
	Attempts *AttemptService
}

var _ assessment.CourseAPI = (*CourseAPIAdapter)(nil)

func NewCourseAPIAdapter(attempts *AttemptService) *CourseAPIAdapter {
	return &CourseAPIAdapter{Attempts: attempts}
}

func (c *CourseAPIAdapter) GetAssessment(ctx context.Context, assessmentID uint) (assessment.Assessment, error) {
	a, err := c.Attempts.GetAssessment(ctx, assessmentID)
	if err != nil {
		return assessment.Assessment{}, err
	}
	n, err := c.Attempts.Assessments.CountQuestions(ctx, assessmentID)
	if err != nil {
		return assessment.Assessment{}, err
	}
	return a.ToDomain(int(n)), nil
}

func (c *CourseAPIAdapter) GetAssessmentQuestions(ctx context.Context, assessmentID uint) ([]assessment.Question, error) {
	return c.Attempts.GetQuestions(ctx, assessmentID)
}

func (c *CourseAPIAdapter) StartAssessmentAttempt(ctx context.Context, studentID, assessmentID, enrollmentID uint) (uint, error) {
	att, err := c.Attempts.StartAttempt(ctx, studentID, assessmentID, enrollmentID)
	if err != nil {
		return 0, err
	}
	return att.ID, nil
}

func (c *CourseAPIAdapter) GetCurrentAttempt(ctx context.Context, studentID, assessmentID uint) (*assessment.Attempt, error) {
	att, err := c.Attempts.GetCurrentAttempt(ctx, studentID, assessmentID)
	if err != nil || att == nil {
		return nil, err
	}
	d := att.ToDomain()
	return &d, nil
}

func (c *CourseAPIAdapter) GetAttemptDetails(ctx context.Context, attemptID uint) (assessment.Attempt, error) {
	att, err := c.Attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return assessment.Attempt{}, err
	}
	return att.ToDomain(), nil
}

func (c *CourseAPIAdapter) GetAttemptAnswers(ctx context.Context, attemptID uint) ([]assessment.Answer, error) {
	rows, err := c.Attempts.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return model.AnswersToDomain(rows), nil
}

func (c *CourseAPIAdapter) SubmitAnswer(ctx context.Context, attemptID, questionID uint, answer string, answers []string) error {
	return c.Attempts.SaveAnswer(ctx, attemptID, questionID, answer, answers)
}

func (c *CourseAPIAdapter) SubmitAssessment(ctx context.Context, attemptID uint, reason assessment.SubmitReason) error {
	_, err := c.Attempts.SubmitAttempt(ctx, attemptID, reason)
	return err
}

func (c *CourseAPIAdapter) AbandonAttempt(ctx context.Context, attemptID uint) error {
	return c.Attempts.AbandonAttempt(ctx, attemptID)
}

func (c *CourseAPIAdapter) CanAttemptAssessment(ctx context.Context, studentID, assessmentID uint) (bool, error) {
	return c.Attempts.CanAttempt(ctx, studentID, assessmentID)
}

func (c *CourseAPIAdapter) GetRemainingAttempts(ctx context.Context, studentID, assessmentID uint) (int, error) {
	return c.Attempts.RemainingAttempts(ctx, studentID, assessmentID)
}
