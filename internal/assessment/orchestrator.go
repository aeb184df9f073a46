package assessment

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
)

type Option func(*Orchestrator)

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithTicker replaces the one-second system ticker.
func WithTicker(f TickerFactory) Option {
	return func(o *Orchestrator) { o.newTicker = f }
}

func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithPersistOnRecord writes every recorded answer through to the Course API
// immediately instead of only on submit.
func WithPersistOnRecord() Option {
	return func(o *Orchestrator) { o.persistOnRecord = true }
}

// Outcome is the result of a successful submit.
type Outcome struct {
	Attempt Attempt      `json:"attempt"`
	Result  ScoreResult  `json:"result"`
	Reason  SubmitReason `json:"reason"`
}

// Snapshot is a consistent read of the orchestrator state.
type Snapshot struct {
	Status           AttemptStatus       `json:"status"`
	Assessment       Assessment          `json:"assessment"`
	Attempt          Attempt             `json:"attempt"`
	Questions        []PresentedQuestion `json:"questions"`
	Answers          map[uint]Response   `json:"answers"`
	TimeLimited      bool                `json:"timeLimited"`
	RemainingSeconds int                 `json:"remainingSeconds"`
}

// Orchestrator drives one attempt through
// not_started -> in_progress -> submitted -> graded | expired | abandoned.
// Every operation and clock tick runs on a private event loop.
type Orchestrator struct {
	api          CourseAPI
	session      Session
	assessmentID uint

	log             *zap.Logger
	now             func() time.Time
	newTicker       TickerFactory
	persistOnRecord bool

	loop       *eventLoop
	life       context.Context
	cancelLife context.CancelFunc

	// owned by the event loop
	observers        []Observer
	status           AttemptStatus
	assessment       Assessment
	questions        []Question
	byID             map[uint]Question
	attempt          Attempt
	answers          *AnswerStore
	presenter        *Presenter
	clock            *Clock
	enteredAt        time.Time
	priorSpent       int
	remaining        *int
	pendingAttemptID uint
	outcome          *Outcome
	completedSent    bool
	backSent         bool
}

func NewOrchestrator(api CourseAPI, session Session, assessmentID uint, opts ...Option) *Orchestrator {
	life, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		api:          api,
		session:      session,
		assessmentID: assessmentID,
		log:          zap.NewNop(),
		now:          time.Now,
		newTicker:    newSystemTicker,
		loop:         newEventLoop(),
		life:         life,
		cancelLife:   cancel,
		status:       StatusNotStarted,
		answers:      NewAnswerStore(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// do runs fn on the event loop and waits for it. The context handed to fn is
// cancelled when either ctx or the orchestrator lifetime ends.
func (o *Orchestrator) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	result := make(chan error, 1)
	posted := o.loop.post(func() {
		cctx, cancel := o.scope(ctx)
		defer cancel()
		result <- fn(cctx)
	})
	if !posted {
		return ErrClosed
	}
	select {
	case err := <-result:
		return err
	case <-o.loop.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrClosed
		}
	}
}

func (o *Orchestrator) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(o.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Subscribe registers an observer for all subsequent events.
func (o *Orchestrator) Subscribe(obs Observer) {
	_ = o.do(context.Background(), func(context.Context) error {
		o.observers = append(o.observers, obs)
		return nil
	})
}

// CanStart asks the Course API whether a new attempt may be started.
func (o *Orchestrator) CanStart(ctx context.Context) (bool, error) {
	var can bool
	err := o.do(ctx, func(ctx context.Context) error {
		if o.status != StatusNotStarted {
			return nil
		}
		ok, err := o.api.CanAttemptAssessment(ctx, o.session.StudentID, o.assessmentID)
		if err != nil {
			return &NetworkError{Op: "can attempt assessment", Err: err}
		}
		can = ok
		return nil
	})
	return can, err
}

// RemainingAttempts fetches and caches the number of attempts left. Start
// consults the cached value without another round trip.
func (o *Orchestrator) RemainingAttempts(ctx context.Context) (int, error) {
	var n int
	err := o.do(ctx, func(ctx context.Context) error {
		o.remaining = nil
		left, err := o.remainingAttempts(ctx)
		n = left
		return err
	})
	return n, err
}

func (o *Orchestrator) remainingAttempts(ctx context.Context) (int, error) {
	if o.remaining != nil {
		return *o.remaining, nil
	}
	left, err := o.api.GetRemainingAttempts(ctx, o.session.StudentID, o.assessmentID)
	if err != nil {
		return 0, &NetworkError{Op: "get remaining attempts", Err: err}
	}
	o.remaining = &left
	return left, nil
}

// Start opens a new attempt.
func (o *Orchestrator) Start(ctx context.Context) error {
	return o.do(ctx, func(ctx context.Context) error {
		if o.status != StatusNotStarted {
			return &StateError{Op: "start", Status: o.status}
		}
		attemptID := o.pendingAttemptID
		if attemptID == 0 {
			left, err := o.remainingAttempts(ctx)
			if err != nil {
				return err
			}
			if left <= 0 {
				return ErrAttemptsExhausted
			}
		}

		a, qs, err := o.loadAssessment(ctx)
		if err != nil {
			return err
		}

		if attemptID == 0 {
			id, err := o.api.StartAssessmentAttempt(ctx, o.session.StudentID, o.assessmentID, o.session.EnrollmentID)
			if err != nil {
				return &NetworkError{Op: "start assessment attempt", Err: err}
			}
			attemptID = id
			// created server side; a retry must fetch it rather than open another
			o.pendingAttemptID = id
			o.remaining = nil
		}

		attempt, err := o.api.GetAttemptDetails(ctx, attemptID)
		if err != nil {
			return &NetworkError{Op: "get attempt details", Err: err}
		}
		o.pendingAttemptID = 0

		o.enter(a, qs, attempt, NewAnswerStore(), 0, a.TimeLimitSeconds())
		o.log.Info("attempt started",
			zap.Uint("attemptId", attempt.ID),
			zap.Uint("studentId", o.session.StudentID),
			zap.Uint("assessmentId", o.assessmentID),
			zap.Int("attemptNumber", attempt.AttemptNumber))
		return nil
	})
}

// ResumeCurrent resumes the student's in-progress attempt if there is one.
func (o *Orchestrator) ResumeCurrent(ctx context.Context) (bool, error) {
	var resumed bool
	err := o.do(ctx, func(ctx context.Context) error {
		if o.status != StatusNotStarted {
			return &StateError{Op: "resume", Status: o.status}
		}
		cur, err := o.api.GetCurrentAttempt(ctx, o.session.StudentID, o.assessmentID)
		if err != nil {
			return &NetworkError{Op: "get current attempt", Err: err}
		}
		if cur == nil || cur.Status != StatusInProgress {
			return nil
		}
		resumed = true
		return o.resume(ctx, cur.ID)
	})
	return resumed, err
}

// Resume re-enters an interrupted attempt with the answers persisted so far.
func (o *Orchestrator) Resume(ctx context.Context, attemptID uint) error {
	return o.do(ctx, func(ctx context.Context) error {
		if o.status != StatusNotStarted {
			return &StateError{Op: "resume", Status: o.status}
		}
		return o.resume(ctx, attemptID)
	})
}

func (o *Orchestrator) resume(ctx context.Context, attemptID uint) error {
	attempt, err := o.api.GetAttemptDetails(ctx, attemptID)
	if err != nil {
		return &NetworkError{Op: "get attempt details", Err: err}
	}
	if attempt.StudentID != o.session.StudentID {
		return invalid("attemptId", "attempt belongs to another student")
	}
	if attempt.AssessmentID != o.assessmentID {
		return invalid("attemptId", "attempt belongs to another assessment")
	}
	if attempt.Status != StatusInProgress {
		return &StateError{Op: "resume", Status: attempt.Status}
	}

	a, qs, err := o.loadAssessment(ctx)
	if err != nil {
		return err
	}
	saved, err := o.api.GetAttemptAnswers(ctx, attemptID)
	if err != nil {
		return &NetworkError{Op: "get attempt answers", Err: err}
	}
	store := NewAnswerStore()
	store.Merge(saved)

	// 倒计时按 StartedAt 起的墙钟时间恢复，离开期间照样计时，与服务端截止判断一致
	elapsed := int(o.now().Sub(attempt.StartedAt).Seconds())
	if attempt.TimeSpentSeconds > elapsed {
		elapsed = attempt.TimeSpentSeconds
	}
	remaining := 0
	if limit := a.TimeLimitSeconds(); limit > 0 {
		remaining = limit - elapsed
		if remaining < 0 {
			remaining = 0
		}
	}

	o.log.Info("attempt resumed",
		zap.Uint("attemptId", attempt.ID),
		zap.Int("answers", store.Len()),
		zap.Int("elapsedSeconds", elapsed))
	o.enter(a, qs, attempt, store, elapsed, remaining)
	return nil
}

func (o *Orchestrator) loadAssessment(ctx context.Context) (Assessment, []Question, error) {
	a, err := o.api.GetAssessment(ctx, o.assessmentID)
	if err != nil {
		return Assessment{}, nil, &NetworkError{Op: "get assessment", Err: err}
	}
	qs, err := o.api.GetAssessmentQuestions(ctx, o.assessmentID)
	if err != nil {
		return Assessment{}, nil, &NetworkError{Op: "get assessment questions", Err: err}
	}
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	return a, qs, nil
}

func (o *Orchestrator) enter(a Assessment, qs []Question, attempt Attempt, store *AnswerStore, elapsed, remaining int) {
	o.assessment = a
	o.questions = qs
	o.byID = make(map[uint]Question, len(qs))
	for _, q := range qs {
		o.byID[q.ID] = q
	}
	if attempt.TotalQuestions == 0 {
		attempt.TotalQuestions = len(qs)
	}
	attempt.Status = StatusInProgress
	o.attempt = attempt
	o.answers = store
	o.presenter = PresenterFor(a, qs, attempt.ID)
	o.priorSpent = elapsed
	o.enteredAt = o.now()
	o.status = StatusInProgress

	o.clock = newClock(a.TimeLimitSeconds() > 0, remaining, o.newTicker, o.loop.post, o.onTick, o.onExpire)
	o.emit(Event{Kind: EventStarted})
	o.clock.Start(o.enteredAt)
}

func (o *Orchestrator) onTick(remaining int, level TimeLevel) {
	o.emit(Event{Kind: EventTick, RemainingSeconds: remaining, Level: level})
}

// onExpire is the single handler that turns clock expiry into a submit.
func (o *Orchestrator) onExpire() {
	o.log.Info("attempt time expired, submitting", zap.Uint("attemptId", o.attempt.ID))
	o.emit(Event{Kind: EventExpired})
	if _, err := o.submit(o.life, TimerExpired); err != nil {
		o.log.Warn("auto submit failed", zap.Uint("attemptId", o.attempt.ID), zap.Error(err))
		o.emit(Event{Kind: EventSubmitFailed, Err: err})
	}
}

// RecordAnswer upserts a single-answer response (last write wins).
func (o *Orchestrator) RecordAnswer(ctx context.Context, questionID uint, answer string) error {
	return o.record(ctx, questionID, Response{Answer: answer})
}

// RecordAnswers upserts a multiple_select response.
func (o *Orchestrator) RecordAnswers(ctx context.Context, questionID uint, answers []string) error {
	return o.record(ctx, questionID, Response{Answers: append([]string(nil), answers...)})
}

func (o *Orchestrator) record(ctx context.Context, questionID uint, r Response) error {
	return o.do(ctx, func(ctx context.Context) error {
		if o.status != StatusInProgress {
			return &StateError{Op: "record answer", Status: o.status}
		}
		if o.clock.Expired() {
			return &ValidationError{Field: "answer", Reason: "time limit reached", Err: ErrTimeLimitReached}
		}
		q, ok := o.byID[questionID]
		if !ok {
			return invalid("questionId", "question is not part of this attempt")
		}
		if err := ValidateResponse(q, r); err != nil {
			return err
		}
		o.answers.Put(questionID, r, o.now())
		if o.persistOnRecord {
			return o.persist(ctx, questionID)
		}
		return nil
	})
}

func (o *Orchestrator) persist(ctx context.Context, questionID uint) error {
	r, ok := o.answers.Get(questionID)
	if !ok {
		return nil
	}
	if err := o.api.SubmitAnswer(ctx, o.attempt.ID, questionID, r.Answer, r.Answers); err != nil {
		return &NetworkError{Op: "submit answer", Err: err}
	}
	o.answers.MarkClean(questionID)
	return nil
}

// Submit persists all answers, requests grading and moves the attempt to graded.
// Once the attempt has left in_progress a further Submit is a no-op returning the
// first outcome; this is what resolves a manual submit racing the timer.
func (o *Orchestrator) Submit(ctx context.Context, reason SubmitReason) (*Outcome, error) {
	var out *Outcome
	err := o.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = o.submit(ctx, reason)
		return err
	})
	return out, err
}

func (o *Orchestrator) submit(ctx context.Context, reason SubmitReason) (*Outcome, error) {
	switch o.status {
	case StatusInProgress:
	case StatusSubmitted, StatusGraded, StatusExpired:
		return o.outcome, nil
	default:
		return nil, &StateError{Op: "submit", Status: o.status}
	}

	for _, qid := range o.answers.QuestionIDs() {
		if err := o.persist(ctx, qid); err != nil {
			if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrTimeLimitReached) {
				// closed for writes server side; grade what was saved
				o.log.Warn("answer rejected by server, continuing with submit",
					zap.Uint("attemptId", o.attempt.ID), zap.Uint("questionId", qid), zap.Error(err))
				break
			}
			return nil, err
		}
	}

	local := Score(o.questions, o.answers.Snapshot(), o.assessment.PassingScore)
	if err := o.api.SubmitAssessment(ctx, o.attempt.ID, reason); err != nil {
		return nil, &NetworkError{Op: "submit assessment", Err: err}
	}

	o.clock.Stop()
	now := o.now()
	o.status = StatusSubmitted
	o.attempt.Status = StatusSubmitted
	o.attempt.SubmittedAt = &now
	o.attempt.SubmitReason = reason
	o.attempt.TimeSpentSeconds = o.timeSpent(now)

	graded, err := o.api.GetAttemptDetails(ctx, o.attempt.ID)
	switch {
	case err != nil:
		o.log.Warn("re-read of graded attempt failed, using local score",
			zap.Uint("attemptId", o.attempt.ID), zap.Error(err))
		o.applyLocal(local)
	case !graded.Status.Terminal():
		o.applyLocal(local)
	default:
		o.attempt = graded
	}
	o.status = o.attempt.Status

	o.outcome = &Outcome{Attempt: o.attempt, Result: local, Reason: reason}
	o.log.Info("attempt submitted",
		zap.Uint("attemptId", o.attempt.ID),
		zap.String("reason", string(reason)),
		zap.Float64("score", o.attempt.Score),
		zap.Bool("passed", o.attempt.Passed))
	if !o.completedSent {
		o.completedSent = true
		o.emit(Event{Kind: EventCompleted, Score: o.attempt.Score, Passed: o.attempt.Passed})
	}
	return o.outcome, nil
}

func (o *Orchestrator) applyLocal(r ScoreResult) {
	o.attempt.Status = StatusGraded
	o.attempt.TotalQuestions = r.TotalQuestions
	o.attempt.CorrectAnswers = r.CorrectCount
	o.attempt.PendingManual = r.PendingManual
	o.attempt.Score = r.ScorePercent
	o.attempt.Passed = r.Passed
}

func (o *Orchestrator) timeSpent(now time.Time) int {
	spent := o.priorSpent + int(now.Sub(o.enteredAt).Seconds())
	if limit := o.assessment.TimeLimitSeconds(); limit > 0 && spent > limit {
		spent = limit
	}
	return spent
}

// Abandon cancels the attempt at the user's request and fires backRequested.
func (o *Orchestrator) Abandon(ctx context.Context) error {
	return o.do(ctx, func(ctx context.Context) error {
		switch o.status {
		case StatusNotStarted:
			o.emitBack()
			return nil
		case StatusInProgress:
		default:
			return &StateError{Op: "abandon", Status: o.status}
		}
		if err := o.api.AbandonAttempt(ctx, o.attempt.ID); err != nil {
			return &NetworkError{Op: "abandon attempt", Err: err}
		}
		o.clock.Stop()
		o.status = StatusAbandoned
		o.attempt.Status = StatusAbandoned
		o.attempt.TimeSpentSeconds = o.timeSpent(o.now())
		o.log.Info("attempt abandoned", zap.Uint("attemptId", o.attempt.ID))
		o.emitBack()
		return nil
	})
}

func (o *Orchestrator) emitBack() {
	if o.backSent {
		return
	}
	o.backSent = true
	o.emit(Event{Kind: EventBackRequested})
}

func (o *Orchestrator) emit(e Event) {
	e.AttemptID = o.attempt.ID
	e.AssessmentID = o.assessmentID
	for _, obs := range o.observers {
		obs.Notify(e)
	}
}

// Close tears the orchestrator down: in-flight calls are cancelled and the clock
// is stopped. The attempt itself stays resumable. Close must not be called from
// an observer.
func (o *Orchestrator) Close() {
	o.cancelLife()
	_ = o.do(context.Background(), func(context.Context) error {
		o.clock.Stop()
		return nil
	})
	o.loop.close()
	<-o.loop.done
}

func (o *Orchestrator) Status() AttemptStatus {
	st := StatusNotStarted
	_ = o.do(context.Background(), func(context.Context) error {
		st = o.status
		return nil
	})
	return st
}

// Outcome returns the submit result, or nil before grading.
func (o *Orchestrator) Outcome() *Outcome {
	var out *Outcome
	_ = o.do(context.Background(), func(context.Context) error {
		out = o.outcome
		return nil
	})
	return out
}

func (o *Orchestrator) Snapshot() Snapshot {
	var s Snapshot
	_ = o.do(context.Background(), func(context.Context) error {
		s = Snapshot{
			Status:           o.status,
			Assessment:       o.assessment,
			Attempt:          o.attempt,
			Answers:          o.answers.Snapshot(),
			TimeLimited:      o.clock.Enabled(),
			RemainingSeconds: o.clock.Remaining(),
		}
		if o.presenter != nil {
			s.Questions = o.presenter.Questions()
		}
		return nil
	})
	return s
}

// QuestionAt returns the question displayed at position i.
func (o *Orchestrator) QuestionAt(i int) (PresentedQuestion, bool) {
	var (
		q  PresentedQuestion
		ok bool
	)
	_ = o.do(context.Background(), func(context.Context) error {
		if o.presenter != nil {
			q, ok = o.presenter.At(i)
		}
		return nil
	})
	return q, ok
}

func (o *Orchestrator) Answer(questionID uint) (Response, bool) {
	var (
		r  Response
		ok bool
	)
	_ = o.do(context.Background(), func(context.Context) error {
		r, ok = o.answers.Get(questionID)
		return nil
	})
	return r, ok
}
