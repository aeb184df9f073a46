package service

import (
	"context"
	"edu_portal_backend/internal/assessment"
	"edu_portal_backend/internal/config"
	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/repository"
	"edu_portal_backend/internal/util"
	"edu_portal_backend/pkg/logger"
	"edu_portal_backend/pkg/monitoring"
	"edu_portal_backend/pkg/tracing"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const overdueBatchSize = 100

type AttemptService struct {
	Assessments *repository.AssessmentRepository
	Attempts    *repository.AttemptRepository
	Enrollments *repository.EnrollmentRepository
	Redis       *redis.Client
	Config      config.AssessmentConfig
	now         func() time.Time
}

func NewAttemptService(assessments *repository.AssessmentRepository, attempts *repository.AttemptRepository,
	enrollments *repository.EnrollmentRepository, rdb *redis.Client, cfg config.AssessmentConfig) *AttemptService {
	return &AttemptService{
		Assessments: assessments,
		Attempts:    attempts,
		Enrollments: enrollments,
		Redis:       rdb,
		Config:      cfg,
		now:         time.Now,
	}
}

func questionCacheKey(assessmentID uint) string {
	return fmt.Sprintf("assessment:questions:%d", assessmentID)
}

func startLockKey(studentID, assessmentID uint) string {
	return fmt.Sprintf("assessment:start_lock:%d:%d", studentID, assessmentID)
}

func (s *AttemptService) GetAssessment(ctx context.Context, id uint) (*model.Assessment, error) {
	a, err := s.Assessments.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, assessment.ErrAssessmentNotFound
	}
	return a, err
}

// GetQuestions 题目集合在尝试期间不变，读 Redis 缓存，未命中回源数据库
func (s *AttemptService) GetQuestions(ctx context.Context, assessmentID uint) ([]assessment.Question, error) {
	key := questionCacheKey(assessmentID)
	if s.Redis != nil {
		raw, err := s.Redis.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var qs []assessment.Question
			if err := json.Unmarshal(raw, &qs); err == nil {
				return qs, nil
			}
			logger.Log.Warn("corrupt question cache entry", zap.String("key", key))
		case !errors.Is(err, redis.Nil):
			logger.Log.Warn("question cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	rows, err := s.Assessments.ListQuestions(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	qs := model.QuestionsToDomain(rows)

	if s.Redis != nil && s.Config.QuestionCacheTTL() > 0 {
		if raw, err := json.Marshal(qs); err == nil {
			if err := s.Redis.Set(ctx, key, raw, s.Config.QuestionCacheTTL()).Err(); err != nil {
				logger.Log.Warn("question cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return qs, nil
}

// StartAttempt 创建新的尝试。Redis 锁挡住同一学生的并发点击，数据库事务与唯一索引兜底。
func (s *AttemptService) StartAttempt(ctx context.Context, studentID, assessmentID, enrollmentID uint) (_ *model.AssessmentAttempt, err error) {
	ctx, span := tracing.StartSpan(ctx, "AttemptService.StartAttempt",
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("assessment.id", int64(assessmentID)))
	defer func() { tracing.End(span, err) }()

	a, err := s.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.Enrollments.FindByID(ctx, enrollmentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := checkEnrollment(enrollment, studentID, a.CourseID); err != nil {
		return nil, err
	}
	count, err := s.Assessments.CountQuestions(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		key := startLockKey(studentID, assessmentID)
		ok, lockErr := s.Redis.SetNX(ctx, key, s.now().Unix(), s.Config.StartLockTTL()).Result()
		switch {
		case lockErr != nil:
			logger.Log.Warn("start lock unavailable, relying on database", zap.Error(lockErr))
		case !ok:
			return nil, assessment.ErrAttemptInProgress
		default:
			defer s.Redis.Del(context.Background(), key)
		}
	}

	att, err := s.Attempts.CreateNext(ctx, repository.NewAttempt{
		StudentID:      studentID,
		AssessmentID:   assessmentID,
		EnrollmentID:   enrollmentID,
		MaxAttempts:    a.MaxAttempts,
		TotalQuestions: int(count),
		StartedAt:      s.now(),
	})
	if err != nil {
		return nil, err
	}

	monitoring.AttemptsStarted.WithLabelValues(a.Type).Inc()
	logger.Log.Info("attempt created",
		zap.Uint("attemptId", att.ID),
		zap.Uint("studentId", studentID),
		zap.Uint("assessmentId", assessmentID),
		zap.Int("attemptNumber", att.AttemptNumber))
	return att, nil
}

// checkEnrollment 尝试必须挂在该学生、该课程下仍在学习中的选课上
func checkEnrollment(e *model.Enrollment, studentID, courseID uint) error {
	if e.StudentID != studentID {
		return util.ErrPermissionDenied
	}
	if e.CourseID != courseID {
		return &assessment.ValidationError{Field: "enrollmentId", Reason: "enrollment belongs to another course"}
	}
	if e.Status != model.EnrollmentActive {
		return &assessment.ValidationError{Field: "enrollmentId", Reason: "enrollment is " + e.Status}
	}
	return nil
}

func (s *AttemptService) GetAttempt(ctx context.Context, attemptID uint) (*model.AssessmentAttempt, error) {
	att, err := s.Attempts.FindByID(ctx, attemptID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, assessment.ErrAttemptNotFound
	}
	return att, err
}

// GetOwnedAttempt 学生只能访问自己的尝试
func (s *AttemptService) GetOwnedAttempt(ctx context.Context, attemptID, studentID uint) (*model.AssessmentAttempt, error) {
	att, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if att.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}
	return att, nil
}

func (s *AttemptService) GetCurrentAttempt(ctx context.Context, studentID, assessmentID uint) (*model.AssessmentAttempt, error) {
	return s.Attempts.FindInProgress(ctx, studentID, assessmentID)
}

func (s *AttemptService) ListAnswers(ctx context.Context, attemptID uint) ([]model.AttemptAnswer, error) {
	return s.Attempts.ListAnswers(ctx, attemptID)
}

// SaveAnswer 保存单题作答，同题覆盖。超过截止时间 + grace 的写入被拒绝。
func (s *AttemptService) SaveAnswer(ctx context.Context, attemptID, questionID uint, answer string, answers []string) error {
	att, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if status := assessment.AttemptStatus(att.Status); status != assessment.StatusInProgress {
		return &assessment.StateError{Op: "submit answer", Status: status}
	}
	a, err := s.GetAssessment(ctx, att.AssessmentID)
	if err != nil {
		return err
	}

	now := s.now()
	if pastDeadline(att, a.TimeLimit, s.Config.SubmitGrace(), now) {
		return &assessment.ValidationError{Field: "answer", Reason: "time limit reached", Err: assessment.ErrTimeLimitReached}
	}

	q, err := s.Assessments.FindQuestion(ctx, att.AssessmentID, questionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &assessment.ValidationError{Field: "questionId", Reason: "question does not belong to this assessment"}
	}
	if err != nil {
		return err
	}
	if err := assessment.ValidateResponse(q.ToDomain(), assessment.Response{Answer: answer, Answers: answers}); err != nil {
		return err
	}

	return s.Attempts.UpsertAnswer(ctx, &model.AttemptAnswer{
		AttemptID:    attemptID,
		QuestionID:   questionID,
		AnswerGiven:  answer,
		AnswersGiven: answers,
		AnsweredAt:   now,
	})
}

// SubmitAttempt 评分并结束尝试。已评分或已过期的尝试原样返回，重复提交无副作用。
func (s *AttemptService) SubmitAttempt(ctx context.Context, attemptID uint, reason assessment.SubmitReason) (_ *model.AssessmentAttempt, err error) {
	ctx, span := tracing.StartSpan(ctx, "AttemptService.SubmitAttempt",
		attribute.Int64("attempt.id", int64(attemptID)),
		attribute.String("submit.reason", string(reason)))
	defer func() { tracing.End(span, err) }()

	if reason != assessment.UserInitiated && reason != assessment.TimerExpired {
		return nil, &assessment.ValidationError{Field: "reason", Reason: fmt.Sprintf("unknown submit reason %q", reason)}
	}
	return s.finish(ctx, attemptID, assessment.StatusGraded, reason)
}

func (s *AttemptService) finish(ctx context.Context, attemptID uint, status assessment.AttemptStatus, reason assessment.SubmitReason) (*model.AssessmentAttempt, error) {
	pre, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	a, err := s.GetAssessment(ctx, pre.AssessmentID)
	if err != nil {
		return nil, err
	}
	questions, err := s.GetQuestions(ctx, pre.AssessmentID)
	if err != nil {
		return nil, err
	}

	var (
		result  *model.AssessmentAttempt
		changed bool
	)
	err = s.Attempts.UpdateLocked(ctx, attemptID, func(tx *gorm.DB, att *model.AssessmentAttempt) error {
		switch current := assessment.AttemptStatus(att.Status); {
		case current == assessment.StatusGraded || current == assessment.StatusExpired:
			result = att
			return nil
		case current != assessment.StatusInProgress:
			return &assessment.StateError{Op: "submit", Status: current}
		}

		answers, err := s.Attempts.ListAnswersTx(tx, att.ID)
		if err != nil {
			return err
		}
		gradeAttempt(att, a, questions, answers, status, reason, s.now())
		if err := s.Attempts.SaveGrading(tx, att, answers); err != nil {
			return err
		}
		result, changed = att, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		monitoring.AttemptsFinished.WithLabelValues(result.Status, result.SubmitReason).Inc()
		monitoring.AttemptScore.WithLabelValues(a.Type).Observe(result.Score)
		logger.Log.Info("attempt graded",
			zap.Uint("attemptId", result.ID),
			zap.String("status", result.Status),
			zap.String("reason", result.SubmitReason),
			zap.Float64("score", result.Score),
			zap.Bool("passed", result.Passed))
	}
	return result, nil
}

// AbandonAttempt 放弃进行中的尝试，仍计入已用次数
func (s *AttemptService) AbandonAttempt(ctx context.Context, attemptID uint) error {
	var a *model.AssessmentAttempt
	err := s.Attempts.UpdateLocked(ctx, attemptID, func(tx *gorm.DB, att *model.AssessmentAttempt) error {
		if status := assessment.AttemptStatus(att.Status); status != assessment.StatusInProgress {
			return &assessment.StateError{Op: "abandon", Status: status}
		}
		att.Status = string(assessment.StatusAbandoned)
		att.TimeSpentSeconds = timeSpent(att.StartedAt, s.now(), 0)
		a = att
		return tx.Model(att).Select("status", "time_spent_seconds").Updates(att).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return assessment.ErrAttemptNotFound
	}
	if err != nil {
		return err
	}
	monitoring.AttemptsFinished.WithLabelValues(a.Status, "").Inc()
	logger.Log.Info("attempt abandoned", zap.Uint("attemptId", attemptID))
	return nil
}

func (s *AttemptService) RemainingAttempts(ctx context.Context, studentID, assessmentID uint) (int, error) {
	a, err := s.GetAssessment(ctx, assessmentID)
	if err != nil {
		return 0, err
	}
	used, err := s.Attempts.CountByStudent(ctx, studentID, assessmentID)
	if err != nil {
		return 0, err
	}
	left := a.MaxAttempts - int(used)
	if left < 0 {
		left = 0
	}
	return left, nil
}

// CanAttempt 有剩余次数且没有进行中的尝试
func (s *AttemptService) CanAttempt(ctx context.Context, studentID, assessmentID uint) (bool, error) {
	left, err := s.RemainingAttempts(ctx, studentID, assessmentID)
	if err != nil || left == 0 {
		return false, err
	}
	current, err := s.GetCurrentAttempt(ctx, studentID, assessmentID)
	if err != nil {
		return false, err
	}
	return current == nil, nil
}

// ExpireOverdue 评分并关闭无人提交的超时尝试，返回处理数量
func (s *AttemptService) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := s.Attempts.ListOverdue(ctx, s.now(), s.Config.SubmitGrace(), overdueBatchSize)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, att := range overdue {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		res, err := s.finish(ctx, att.ID, assessment.StatusExpired, assessment.TimerExpired)
		if err != nil {
			logger.Log.Error("expire attempt failed", zap.Uint("attemptId", att.ID), zap.Error(err))
			continue
		}
		if res.Status == string(assessment.StatusExpired) {
			n++
		}
	}
	return n, nil
}

// GradeShortAnswer 教师批改简答题后重新计算得分
func (s *AttemptService) GradeShortAnswer(ctx context.Context, attemptID, questionID uint, correct bool, graderID uint) (*model.AssessmentAttempt, error) {
	pre, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	a, err := s.GetAssessment(ctx, pre.AssessmentID)
	if err != nil {
		return nil, err
	}
	q, err := s.Assessments.FindQuestion(ctx, a.ID, questionID)
	if err != nil {
		return nil, err
	}

	var result *model.AssessmentAttempt
	err = s.Attempts.UpdateLocked(ctx, attemptID, func(tx *gorm.DB, att *model.AssessmentAttempt) error {
		if status := assessment.AttemptStatus(att.Status); status != assessment.StatusGraded && status != assessment.StatusExpired {
			return &assessment.StateError{Op: "grade", Status: status}
		}
		answers, err := s.Attempts.ListAnswersTx(tx, att.ID)
		if err != nil {
			return err
		}
		var target *model.AttemptAnswer
		for i := range answers {
			if answers[i].QuestionID == questionID {
				target = &answers[i]
			}
		}
		if target == nil || !target.NeedsManual {
			return util.ErrNotManuallyGraded
		}

		target.NeedsManual = false
		target.IsCorrect = correct
		target.PointsEarned = 0
		if correct {
			target.PointsEarned = q.Points
		}
		target.GradedBy = &graderID

		regradeAttempt(att, answers, a.PassingScore)
		if err := tx.Model(att).Select("correct_answers", "pending_manual", "score", "passed").Updates(att).Error; err != nil {
			return err
		}
		result = att
		return tx.Model(target).Select("is_correct", "needs_manual", "points_earned", "graded_by").Updates(target).Error
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("short answer graded",
		zap.Uint("attemptId", attemptID),
		zap.Uint("questionId", questionID),
		zap.Bool("correct", correct),
		zap.Uint("graderId", graderID))
	return result, nil
}

// ReviewItem 回顾视图中的一题，CorrectAnswer 仅在允许显示答案时填充
type ReviewItem struct {
	assessment.PresentedQuestion
	Given          assessment.Response `json:"given"`
	IsCorrect      bool                `json:"isCorrect"`
	NeedsManual    bool                `json:"needsManual"`
	PointsEarned   int                 `json:"pointsEarned"`
	CorrectAnswer  string              `json:"correctAnswer,omitempty"`
	CorrectAnswers []string            `json:"correctAnswers,omitempty"`
	Explanation    string              `json:"explanation,omitempty"`
}

type AttemptReview struct {
	Attempt *model.AssessmentAttempt `json:"attempt"`
	Items   []ReviewItem             `json:"items"`
}

// Review 评分后的回顾，测评需开启 AllowReview
func (s *AttemptService) Review(ctx context.Context, attemptID, studentID uint) (*AttemptReview, error) {
	att, err := s.GetOwnedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	if status := assessment.AttemptStatus(att.Status); status != assessment.StatusGraded && status != assessment.StatusExpired {
		return nil, &assessment.StateError{Op: "review", Status: status}
	}
	a, err := s.GetAssessment(ctx, att.AssessmentID)
	if err != nil {
		return nil, err
	}
	if !a.AllowReview {
		return nil, util.ErrReviewNotAllowed
	}
	questions, err := s.GetQuestions(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Attempts.ListAnswers(ctx, att.ID)
	if err != nil {
		return nil, err
	}
	return buildReview(att, a.ToDomain(len(questions)), questions, answers), nil
}

func buildReview(att *model.AssessmentAttempt, a assessment.Assessment, questions []assessment.Question, answers []model.AttemptAnswer) *AttemptReview {
	keys := make(map[uint]assessment.Question, len(questions))
	for _, q := range questions {
		keys[q.ID] = q
	}
	given := make(map[uint]model.AttemptAnswer, len(answers))
	for _, ans := range answers {
		given[ans.QuestionID] = ans
	}

	p := assessment.PresenterFor(a, questions, att.ID)
	items := make([]ReviewItem, 0, p.Len())
	for _, pq := range p.Questions() {
		item := ReviewItem{PresentedQuestion: pq}
		if ans, ok := given[pq.ID]; ok {
			item.Given = ans.Response()
			item.IsCorrect = ans.IsCorrect
			item.NeedsManual = ans.NeedsManual
			item.PointsEarned = ans.PointsEarned
		}
		if a.ShowCorrectAnswers {
			key := keys[pq.ID]
			item.CorrectAnswer = key.CorrectAnswer
			item.CorrectAnswers = key.CorrectAnswers
			item.Explanation = key.Explanation
		}
		items = append(items, item)
	}
	return &AttemptReview{Attempt: att, Items: items}
}

// PresentQuestions 返回不含答案的题目视图。指定 attemptID 时按该尝试的种子排序，与作答时一致。
func (s *AttemptService) PresentQuestions(ctx context.Context, assessmentID, attemptID, studentID uint) ([]assessment.PresentedQuestion, error) {
	a, err := s.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if attemptID != 0 {
		att, err := s.GetOwnedAttempt(ctx, attemptID, studentID)
		if err != nil {
			return nil, err
		}
		if att.AssessmentID != assessmentID {
			return nil, &assessment.ValidationError{Field: "attemptId", Reason: "attempt belongs to another assessment"}
		}
	}
	questions, err := s.GetQuestions(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	return assessment.PresenterFor(a.ToDomain(len(questions)), questions, attemptID).Questions(), nil
}

// Eligibility 学生在某测评上的可作答状态
type Eligibility struct {
	CanAttempt        bool  `json:"canAttempt"`
	RemainingAttempts int   `json:"remainingAttempts"`
	CurrentAttemptID  *uint `json:"currentAttemptId,omitempty"`
}

func (s *AttemptService) GetEligibility(ctx context.Context, studentID, assessmentID uint) (*Eligibility, error) {
	left, err := s.RemainingAttempts(ctx, studentID, assessmentID)
	if err != nil {
		return nil, err
	}
	current, err := s.GetCurrentAttempt(ctx, studentID, assessmentID)
	if err != nil {
		return nil, err
	}
	e := &Eligibility{RemainingAttempts: left, CanAttempt: left > 0 && current == nil}
	if current != nil {
		e.CurrentAttemptID = &current.ID
	}
	return e, nil
}
