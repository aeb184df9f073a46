package assessment

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"
)

const (
	testStudent    = 7
	testEnrollment = 70
)

var errBoom = errors.New("boom")

// fakeAPI is an in-memory Course API that grades like the backend does.
type fakeAPI struct {
	mu         sync.Mutex
	assessment Assessment
	questions  []Question
	attempts   map[uint]*Attempt
	answers    map[uint]map[uint]Answer
	nextID     uint
	calls      map[string]int
	fail       map[string]error
	block      map[string]chan struct{}
	now        time.Time
}

func newFakeAPI(a Assessment, qs []Question) *fakeAPI {
	return &fakeAPI{
		assessment: a,
		questions:  qs,
		attempts:   map[uint]*Attempt{},
		answers:    map[uint]map[uint]Answer{},
		nextID:     1,
		calls:      map[string]int{},
		fail:       map[string]error{},
		block:      map[string]chan struct{}{},
		now:        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (f *fakeAPI) failOnce(name string, err error) {
	f.mu.Lock()
	f.fail[name] = err
	f.mu.Unlock()
}

// blockOn makes the next call to name wait for ctx; the returned channel closes
// once the call is in flight.
func (f *fakeAPI) blockOn(name string) <-chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.block[name] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) resetCalls() {
	f.mu.Lock()
	f.calls = map[string]int{}
	f.mu.Unlock()
}

func (f *fakeAPI) attempt(id uint) Attempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.attempts[id]
}

func (f *fakeAPI) enter(ctx context.Context, name string) error {
	f.mu.Lock()
	f.calls[name]++
	err := f.fail[name]
	delete(f.fail, name)
	entered, blocking := f.block[name]
	delete(f.block, name)
	f.mu.Unlock()

	if blocking {
		close(entered)
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeAPI) used(studentID, assessmentID uint) (n int, inProgress bool) {
	for _, a := range f.attempts {
		if a.StudentID == studentID && a.AssessmentID == assessmentID {
			n++
			if a.Status == StatusInProgress {
				inProgress = true
			}
		}
	}
	return n, inProgress
}

func (f *fakeAPI) GetAssessment(ctx context.Context, id uint) (Assessment, error) {
	if err := f.enter(ctx, "GetAssessment"); err != nil {
		return Assessment{}, err
	}
	return f.assessment, nil
}

func (f *fakeAPI) GetAssessmentQuestions(ctx context.Context, id uint) ([]Question, error) {
	if err := f.enter(ctx, "GetAssessmentQuestions"); err != nil {
		return nil, err
	}
	return append([]Question(nil), f.questions...), nil
}

func (f *fakeAPI) StartAssessmentAttempt(ctx context.Context, studentID, assessmentID, enrollmentID uint) (uint, error) {
	if err := f.enter(ctx, "StartAssessmentAttempt"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, inProgress := f.used(studentID, assessmentID)
	if inProgress {
		return 0, ErrAttemptInProgress
	}
	if n >= f.assessment.MaxAttempts {
		return 0, ErrAttemptsExhausted
	}
	id := f.nextID
	f.nextID++
	f.attempts[id] = &Attempt{
		ID:             id,
		StudentID:      studentID,
		AssessmentID:   assessmentID,
		EnrollmentID:   enrollmentID,
		AttemptNumber:  n + 1,
		Status:         StatusInProgress,
		StartedAt:      f.now,
		TotalQuestions: len(f.questions),
	}
	return id, nil
}

func (f *fakeAPI) GetCurrentAttempt(ctx context.Context, studentID, assessmentID uint) (*Attempt, error) {
	if err := f.enter(ctx, "GetCurrentAttempt"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.StudentID == studentID && a.AssessmentID == assessmentID && a.Status == StatusInProgress {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAPI) GetAttemptDetails(ctx context.Context, id uint) (Attempt, error) {
	if err := f.enter(ctx, "GetAttemptDetails"); err != nil {
		return Attempt{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return *a, nil
}

func (f *fakeAPI) GetAttemptAnswers(ctx context.Context, id uint) ([]Answer, error) {
	if err := f.enter(ctx, "GetAttemptAnswers"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Answer
	for _, a := range f.answers[id] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (f *fakeAPI) SubmitAnswer(ctx context.Context, attemptID, questionID uint, answer string, answers []string) error {
	if err := f.enter(ctx, "SubmitAnswer"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempts[attemptID].Status != StatusInProgress {
		return ErrInvalidState
	}
	if f.answers[attemptID] == nil {
		f.answers[attemptID] = map[uint]Answer{}
	}
	f.answers[attemptID][questionID] = Answer{
		AttemptID:    attemptID,
		QuestionID:   questionID,
		AnswerGiven:  answer,
		AnswersGiven: append([]string(nil), answers...),
		AnsweredAt:   f.now,
	}
	return nil
}

func (f *fakeAPI) SubmitAssessment(ctx context.Context, attemptID uint, reason SubmitReason) error {
	if err := f.enter(ctx, "SubmitAssessment"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.attempts[attemptID]
	if a.Status != StatusInProgress {
		return nil
	}
	resp := map[uint]Response{}
	for qid, ans := range f.answers[attemptID] {
		resp[qid] = Response{Answer: ans.AnswerGiven, Answers: ans.AnswersGiven}
	}
	res := Score(f.questions, resp, f.assessment.PassingScore)
	at := f.now
	a.Status = StatusGraded
	a.SubmittedAt = &at
	a.SubmitReason = reason
	a.CorrectAnswers = res.CorrectCount
	a.TotalQuestions = res.TotalQuestions
	a.Score = res.ScorePercent
	a.Passed = res.Passed
	return nil
}

func (f *fakeAPI) AbandonAttempt(ctx context.Context, attemptID uint) error {
	if err := f.enter(ctx, "AbandonAttempt"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[attemptID].Status = StatusAbandoned
	return nil
}

func (f *fakeAPI) CanAttemptAssessment(ctx context.Context, studentID, assessmentID uint) (bool, error) {
	if err := f.enter(ctx, "CanAttemptAssessment"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, inProgress := f.used(studentID, assessmentID)
	return !inProgress && n < f.assessment.MaxAttempts, nil
}

func (f *fakeAPI) GetRemainingAttempts(ctx context.Context, studentID, assessmentID uint) (int, error) {
	if err := f.enter(ctx, "GetRemainingAttempts"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := f.used(studentID, assessmentID)
	if left := f.assessment.MaxAttempts - n; left > 0 {
		return left, nil
	}
	return 0, nil
}

func quizFixture(timeLimitMinutes int) *fakeAPI {
	a := Assessment{
		ID:               1,
		CourseID:         9,
		Type:             TypeQuiz,
		Title:            "Cells",
		QuestionCount:    3,
		PassingScore:     70,
		TimeLimitMinutes: timeLimitMinutes,
		MaxAttempts:      3,
	}
	qs := []Question{mcq(11, "a"), mcq(12, "b"), msq(13, "a", "c")}
	qs[0].Order, qs[1].Order, qs[2].Order = 1, 2, 3
	return newFakeAPI(a, qs)
}

func newTestOrchestrator(t *testing.T, api *fakeAPI, opts ...Option) (*Orchestrator, chan Event) {
	t.Helper()
	events := make(chan Event, 256)
	opts = append([]Option{WithNow(func() time.Time { return api.now })}, opts...)
	o := NewOrchestrator(api, Session{StudentID: testStudent, EnrollmentID: testEnrollment}, api.assessment.ID, opts...)
	o.Subscribe(ObserverFunc(func(e Event) { events <- e }))
	t.Cleanup(o.Close)
	return o, events
}

func waitEvent(t *testing.T, events <-chan Event, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Kind == kind {
				return e
			}
		case <-timeout:
			t.Fatalf("no %s event", kind)
			return Event{}
		}
	}
}

func countEvents(events <-chan Event, kind EventKind) int {
	n := 0
	for {
		select {
		case e := <-events:
			if e.Kind == kind {
				n++
			}
		case <-time.After(50 * time.Millisecond):
			return n
		}
	}
}

func TestScenarioTwoOfThreeFails(t *testing.T) {
	api := quizFixture(0)
	o, events := newTestOrchestrator(t, api)
	ctx := context.Background()

	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if o.Status() != StatusInProgress {
		t.Fatalf("status = %s", o.Status())
	}
	mustRecord(t, o.RecordAnswer(ctx, 11, "a"))
	mustRecord(t, o.RecordAnswer(ctx, 12, "b"))
	mustRecord(t, o.RecordAnswers(ctx, 13, []string{"a"}))

	out, err := o.Submit(ctx, UserInitiated)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Attempt.Status != StatusGraded || out.Attempt.Score != 66.7 || out.Attempt.Passed {
		t.Fatalf("attempt = %+v", out.Attempt)
	}
	if out.Result.CorrectCount != 2 || out.Result.ScorePercent != 66.7 {
		t.Fatalf("local result = %+v", out.Result)
	}
	if n := api.count("SubmitAnswer"); n != 3 {
		t.Fatalf("SubmitAnswer calls = %d, want 3", n)
	}

	e := waitEvent(t, events, EventCompleted)
	if e.AssessmentID != 1 || e.Score != 66.7 || e.Passed {
		t.Fatalf("completed event = %+v", e)
	}

	again, err := o.Submit(ctx, UserInitiated)
	if err != nil || again != out {
		t.Fatalf("second submit = %v, %v; want first outcome", again, err)
	}
	if n := api.count("SubmitAssessment"); n != 1 {
		t.Fatalf("SubmitAssessment calls = %d, want 1", n)
	}
	if n := countEvents(events, EventCompleted); n != 0 {
		t.Fatalf("completed fired %d more times", n)
	}
}

func mustRecord(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestStartBlockedWhenAttemptsExhausted(t *testing.T) {
	api := quizFixture(0)
	api.assessment.MaxAttempts = 1
	api.attempts[99] = &Attempt{ID: 99, StudentID: testStudent, AssessmentID: 1, AttemptNumber: 1, Status: StatusGraded}

	o, _ := newTestOrchestrator(t, api)
	ctx := context.Background()

	can, err := o.CanStart(ctx)
	if err != nil || can {
		t.Fatalf("CanStart = %v, %v", can, err)
	}
	left, err := o.RemainingAttempts(ctx)
	if err != nil || left != 0 {
		t.Fatalf("RemainingAttempts = %d, %v", left, err)
	}

	api.resetCalls()
	if err := o.Start(ctx); !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("Start err = %v, want ErrAttemptsExhausted", err)
	}
	api.mu.Lock()
	calls := len(api.calls)
	api.mu.Unlock()
	if calls != 0 {
		t.Fatalf("Start contacted the api: %v", api.calls)
	}
	if o.Status() != StatusNotStarted {
		t.Fatalf("status = %s", o.Status())
	}
}

func TestAttemptNumbersIncreaseUpToMax(t *testing.T) {
	api := quizFixture(0)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		o, _ := newTestOrchestrator(t, api)
		if err := o.Start(ctx); err != nil {
			t.Fatalf("attempt %d: Start: %v", want, err)
		}
		out, err := o.Submit(ctx, UserInitiated)
		if err != nil {
			t.Fatalf("attempt %d: Submit: %v", want, err)
		}
		if out.Attempt.AttemptNumber != want {
			t.Fatalf("AttemptNumber = %d, want %d", out.Attempt.AttemptNumber, want)
		}
		o.Close()
	}

	o, _ := newTestOrchestrator(t, api)
	if err := o.Start(ctx); !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("fourth Start err = %v", err)
	}
}

func TestStartSurfacesBackendRejection(t *testing.T) {
	api := quizFixture(0)
	api.attempts[50] = &Attempt{ID: 50, StudentID: testStudent, AssessmentID: 1, AttemptNumber: 1, Status: StatusInProgress}

	o, _ := newTestOrchestrator(t, api)
	err := o.Start(context.Background())
	var ne *NetworkError
	if !errors.As(err, &ne) || !errors.Is(err, ErrAttemptInProgress) {
		t.Fatalf("Start err = %v, want wrapped ErrAttemptInProgress", err)
	}
	if o.Status() != StatusNotStarted {
		t.Fatalf("status = %s", o.Status())
	}
}

func TestStartRetryReusesCreatedAttempt(t *testing.T) {
	api := quizFixture(0)
	o, _ := newTestOrchestrator(t, api)
	ctx := context.Background()

	api.failOnce("GetAttemptDetails", errBoom)
	err := o.Start(ctx)
	var ne *NetworkError
	if !errors.As(err, &ne) || !errors.Is(err, errBoom) {
		t.Fatalf("Start err = %v", err)
	}
	if o.Status() != StatusNotStarted {
		t.Fatalf("status = %s", o.Status())
	}

	if err := o.Start(ctx); err != nil {
		t.Fatalf("retry Start: %v", err)
	}
	if n := api.count("StartAssessmentAttempt"); n != 1 {
		t.Fatalf("StartAssessmentAttempt calls = %d, want 1", n)
	}
	if got := o.Snapshot().Attempt.ID; got != 1 {
		t.Fatalf("attempt id = %d, want 1", got)
	}
}

func TestRecordAnswerValidation(t *testing.T) {
	api := quizFixture(0)
	o, _ := newTestOrchestrator(t, api)
	ctx := context.Background()

	if err := o.RecordAnswer(ctx, 11, "a"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("record before start: %v", err)
	}
	if err := o.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := o.RecordAnswer(ctx, 404, "a"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown question: %v", err)
	}
	if err := o.RecordAnswer(ctx, 13, "a"); !errors.Is(err, ErrValidation) {
		t.Fatalf("single answer to multiple_select: %v", err)
	}
	if err := o.RecordAnswers(ctx, 11, []string{"a", "b"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("answer set to multiple_choice: %v", err)
	}

	mustRecord(t, o.RecordAnswer(ctx, 11, "b"))
	mustRecord(t, o.RecordAnswer(ctx, 11, "a"))
	if r, _ := o.Answer(11); r.Answer != "a" {
		t.Fatalf("last write should win, got %+v", r)
	}
	if n := api.count("SubmitAnswer"); n != 0 {
		t.Fatalf("answers persisted before submit: %d", n)
	}

	if _, err := o.Submit(ctx, UserInitiated); err != nil {
		t.Fatal(err)
	}
	if err := o.RecordAnswer(ctx, 11, "a"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("record after graded: %v", err)
	}
}

func TestPersistOnRecord(t *testing.T) {
	api := quizFixture(0)
	o, _ := newTestOrchestrator(t, api, WithPersistOnRecord())
	ctx := context.Background()
	if err := o.Start(ctx); err != nil {
		t.Fatal(err)
	}

	api.failOnce("SubmitAnswer", errBoom)
	if err := o.RecordAnswer(ctx, 11, "a"); !errors.Is(err, errBoom) {
		t.Fatalf("record err = %v", err)
	}
	if r, ok := o.Answer(11); !ok || r.Answer != "a" {
		t.Fatal("answer should stay in the store after a failed write-through")
	}
	mustRecord(t, o.RecordAnswer(ctx, 12, "b"))
	if n := api.count("SubmitAnswer"); n != 2 {
		t.Fatalf("SubmitAnswer calls = %d, want 2", n)
	}
}

func TestTimerExpiryAutoSubmitsOnce(t *testing.T) {
	api := quizFixture(1)
	src := newTickers()
	o, events := newTestOrchestrator(t, api, WithTicker(src.factory))
	ctx := context.Background()

	if err := o.Start(ctx); err != nil {
		t.Fatal(err)
	}
	first := waitEvent(t, events, EventTick)
	if first.RemainingSeconds != 60 || first.Level != LevelWarning {
		t.Fatalf("first tick = %+v", first)
	}
	tk := src.next(t)

	mustRecord(t, o.RecordAnswer(ctx, 11, "a"))
	mustRecord(t, o.RecordAnswer(ctx, 12, "b"))

	tk.ch <- api.now.Add(30 * time.Second)
	if e := waitEvent(t, events, EventTick); e.RemainingSeconds != 30 {
		t.Fatalf("tick = %+v", e)
	}
	tk.ch <- api.now.Add(60 * time.Second)

	waitEvent(t, events, EventExpired)
	done := waitEvent(t, events, EventCompleted)
	if done.Score != 66.7 || done.Passed {
		t.Fatalf("completed = %+v", done)
	}

	got := api.attempt(1)
	if got.SubmitReason != TimerExpired || got.CorrectAnswers != 2 || got.TotalQuestions != 3 {
		t.Fatalf("server attempt = %+v", got)
	}

	out, err := o.Submit(ctx, UserInitiated)
	if err != nil || out.Reason != TimerExpired {
		t.Fatalf("manual submit after expiry = %+v, %v", out, err)
	}
	if n := api.count("SubmitAssessment"); n != 1 {
		t.Fatalf("SubmitAssessment calls = %d, want 1", n)
	}
	if n := countEvents(events, EventExpired); n != 0 {
		t.Fatalf("expired fired %d more times", n)
	}
}

func TestManualSubmitRacingTimer(t *testing.T) {
	api := quizFixture(1)
	src := newTickers()
	o, events := newTestOrchestrator(t, api, WithTicker(src.factory))
	ctx := context.Background()

	if err := o.Start(ctx); err != nil {
		t.Fatal(err)
	}
	tk := src.next(t)
	mustRecord(t, o.RecordAnswer(ctx, 11, "a"))

	var (
		wg        sync.WaitGroup
		submitErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, submitErr = o.Submit(ctx, UserInitiated)
	}()
	go func() {
		defer wg.Done()
		select {
		case tk.ch <- api.now.Add(60 * time.Second):
		case <-tk.stopped:
		}
	}()
	wg.Wait()

	if submitErr != nil {
		t.Fatalf("Submit: %v", submitErr)
	}
	waitEvent(t, events, EventCompleted)
	if n := countEvents(events, EventCompleted); n != 0 {
		t.Fatalf("completed fired %d extra times", n)
	}
	if n := api.count("SubmitAssessment"); n != 1 {
		t.Fatalf("SubmitAssessment calls = %d, want 1", n)
	}
	if o.Status() != StatusGraded {
		t.Fatalf("status = %s", o.Status())
	}
}

func TestFailedAutoSubmitLocksAnswers(t *testing.T) {
	api := quizFixture(1)
	src := newTickers()
	o, events := newTestOrchestrator(t, api, WithTicker(src.factory))
	ctx := context.Background()

	if err := o.Start(ctx); err != nil {
		t.Fatal(err)
	}
	tk := src.next(t)
	mustRecord(t, o.RecordAnswer(ctx, 11, "a"))

	api.failOnce("SubmitAssessment", errBoom)
	tk.ch <- api.now.Add(time.Minute)

	failed := waitEvent(t, events, EventSubmitFailed)
	if !errors.Is(failed.Err, errBoom) {
		t.Fatalf("submit_failed err = %v", failed.Err)
	}
	if o.Status() != StatusInProgress {
		t.Fatalf("status = %s, want in_progress", o.Status())
	}
	if err := o.RecordAnswer(ctx, 12, "b"); !errors.Is(err, ErrTimeLimitReached) || !errors.Is(err, ErrValidation) {
		t.Fatalf("record after expiry: %v", err)
	}

	out, err := o.Submit(ctx, TimerExpired)
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if out.Attempt.Status != StatusGraded || out.Attempt.CorrectAnswers != 1 {
		t.Fatalf("attempt = %+v", out.Attempt)
	}
}

func TestSubmitFailureKeepsAttemptInProgress(t *testing.T) {
	api := quizFixture(0)
	o, events := newTestOrchestrator(t, api)
	ctx := context.Background()
	if err := o.Start(ctx); err != nil {
		t.Fatal(err)
	}
	mustRecord(t, o.RecordAnswer(ctx, 11, "a"))

	api.failOnce("SubmitAssessment", errBoom)
	if _, err := o.Submit(ctx, UserInitiated); !errors.Is(err, errBoom) {
		t.Fatalf("Submit err = %v", err)
	}
	if o.Status() != StatusInProgress {
		t.Fatalf("status = %s", o.Status())
	}
	if n := countEvents(events, EventCompleted); n != 0 {
		t.Fatal("completed fired for a failed submit")
	}

	if _, err := o.Submit(ctx, UserInitiated); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if o.Status() != StatusGraded {
		t.Fatalf("status = %s", o.Status())
	}
}

func TestSubmitFallsBackToLocalScore(t *testing.T) {
	api := quizFixture(0)
	o, _ := newTestOrchestrator(t, api)
	ctx := context.Background()
	if err := o.Start(ctx); err != nil {
		t.Fatal(err)
	}
	mustRecord(t, o.RecordAnswer(ctx, 11, "a"))
	mustRecord(t, o.RecordAnswer(ctx, 12, "b"))
	mustRecord(t, o.RecordAnswers(ctx, 13, []string{"c", "a"}))

	api.failOnce("GetAttemptDetails", errBoom)
	out, err := o.Submit(ctx, UserInitiated)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Attempt.Status != StatusGraded || out.Attempt.Score != 100 || !out.Attempt.Passed {
		t.Fatalf("attempt = %+v", out.Attempt)
	}
}

func TestResumeRoundTrip(t *testing.T) {
	api := quizFixture(0)
	ctx := context.Background()

	first, _ := newTestOrchestrator(t, api, WithPersistOnRecord())
	if err := first.Start(ctx); err != nil {
		t.Fatal(err)
	}
	mustRecord(t, first.RecordAnswer(ctx, 11, "b"))
	mustRecord(t, first.RecordAnswers(ctx, 13, []string{"c", "a"}))
	attemptID := first.Snapshot().Attempt.ID
	before := first.Snapshot().Answers
	first.Close()

	if err := first.RecordAnswer(ctx, 12, "a"); !errors.Is(err, ErrClosed) {
		t.Fatalf("record after Close: %v", err)
	}

	second, _ := newTestOrchestrator(t, api)
	if err := second.Resume(ctx, attemptID); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	after := second.Snapshot()
	if after.Status != StatusInProgress {
		t.Fatalf("status = %s", after.Status)
	}
	if !reflect.DeepEqual(after.Answers, before) {
		t.Fatalf("answers after resume = %+v, want %+v", after.Answers, before)
	}

	third, _ := newTestOrchestrator(t, api)
	second.Close()
	ok, err := third.ResumeCurrent(ctx)
	if err != nil || !ok {
		t.Fatalf("ResumeCurrent = %v, %v", ok, err)
	}
	if third.Snapshot().Attempt.ID != attemptID {
		t.Fatal("resumed a different attempt")
	}
}

func TestResumeCurrentWithoutAttempt(t *testing.T) {
	api := quizFixture(0)
	o, _ := newTestOrchestrator(t, api)
	ok, err := o.ResumeCurrent(context.Background())
	if err != nil || ok {
		t.Fatalf("ResumeCurrent = %v, %v", ok, err)
	}
	if o.Status() != StatusNotStarted {
		t.Fatalf("status = %s", o.Status())
	}
}

func TestResumeRemainingTime(t *testing.T) {
	tests := []struct {
		name    string
		started time.Duration
		spent   int
		want    int
	}{
		{name: "wall clock", started: -30 * time.Second, want: 30},
		{name: "stored time spent ignored while behind wall clock", started: -30 * time.Second, spent: 10, want: 30},
		{name: "stored time spent ahead of wall clock", started: -5 * time.Second, spent: 20, want: 40},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := quizFixture(1)
			api.attempts[5] = &Attempt{
				ID: 5, StudentID: testStudent, AssessmentID: 1, AttemptNumber: 1,
				Status: StatusInProgress, StartedAt: api.now.Add(tc.started), TimeSpentSeconds: tc.spent,
			}
			src := newTickers()
			o, _ := newTestOrchestrator(t, api, WithTicker(src.factory))
			if err := o.Resume(context.Background(), 5); err != nil {
				t.Fatalf("Resume: %v", err)
			}
			if got := o.Snapshot().RemainingSeconds; got != tc.want {
				t.Fatalf("remaining = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestResumeCountsTimeAway(t *testing.T) {
	api := quizFixture(1)
	ctx := context.Background()

	first, _ := newTestOrchestrator(t, api, WithPersistOnRecord(), WithTicker(newTickers().factory))
	if err := first.Start(ctx); err != nil {
		t.Fatal(err)
	}
	mustRecord(t, first.RecordAnswer(ctx, 11, "a"))
	attemptID := first.Snapshot().Attempt.ID
	first.Close()

	// 离开 50 秒后重新连接
	api.mu.Lock()
	api.now = api.now.Add(50 * time.Second)
	api.mu.Unlock()

	second, _ := newTestOrchestrator(t, api, WithTicker(newTickers().factory))
	if err := second.Resume(ctx, attemptID); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	snap := second.Snapshot()
	if snap.RemainingSeconds != 10 {
		t.Fatalf("remaining = %d, want 10", snap.RemainingSeconds)
	}
	if snap.Answers[11].Answer != "a" {
		t.Fatalf("answers = %+v", snap.Answers)
	}
}

func TestResumeAfterDeadlineSubmitsImmediately(t *testing.T) {
	api := quizFixture(1)
	api.attempts[5] = &Attempt{
		ID: 5, StudentID: testStudent, AssessmentID: 1, AttemptNumber: 1,
		Status: StatusInProgress, StartedAt: api.now.Add(-2 * time.Minute),
	}
	api.answers[5] = map[uint]Answer{11: {AttemptID: 5, QuestionID: 11, AnswerGiven: "a", AnsweredAt: api.now}}

	src := newTickers()
	o, events := newTestOrchestrator(t, api, WithTicker(src.factory))
	if err := o.Resume(context.Background(), 5); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	waitEvent(t, events, EventCompleted)
	if o.Status() != StatusGraded {
		t.Fatalf("status = %s", o.Status())
	}
	if got := api.attempt(5); got.SubmitReason != TimerExpired || got.CorrectAnswers != 1 {
		t.Fatalf("server attempt = %+v", got)
	}
	select {
	case <-src.made:
		t.Fatal("ticker started for an expired attempt")
	default:
	}
}

func TestResumeRejections(t *testing.T) {
	api := quizFixture(0)
	api.attempts[5] = &Attempt{ID: 5, StudentID: 8, AssessmentID: 1, Status: StatusInProgress}
	api.attempts[6] = &Attempt{ID: 6, StudentID: testStudent, AssessmentID: 1, Status: StatusGraded}
	api.attempts[7] = &Attempt{ID: 7, StudentID: testStudent, AssessmentID: 2, Status: StatusInProgress}
	ctx := context.Background()

	o, _ := newTestOrchestrator(t, api)
	if err := o.Resume(ctx, 5); !errors.Is(err, ErrValidation) {
		t.Fatalf("other student: %v", err)
	}
	if err := o.Resume(ctx, 6); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("graded attempt: %v", err)
	}
	if err := o.Resume(ctx, 7); !errors.Is(err, ErrValidation) {
		t.Fatalf("other assessment: %v", err)
	}
	if err := o.Resume(ctx, 404); !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("missing attempt: %v", err)
	}
}

func TestAbandon(t *testing.T) {
	api := quizFixture(5)
	src := newTickers()
	o, events := newTestOrchestrator(t, api, WithTicker(src.factory))
	ctx := context.Background()

	if err := o.Start(ctx); err != nil {
		t.Fatal(err)
	}
	tk := src.next(t)
	if err := o.Abandon(ctx); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if o.Status() != StatusAbandoned || api.attempt(1).Status != StatusAbandoned {
		t.Fatalf("status = %s / %s", o.Status(), api.attempt(1).Status)
	}
	waitEvent(t, events, EventBackRequested)
	select {
	case <-tk.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("clock still running after abandon")
	}

	if err := o.Abandon(ctx); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second Abandon: %v", err)
	}
	if _, err := o.Submit(ctx, UserInitiated); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("submit after abandon: %v", err)
	}
	if n := countEvents(events, EventBackRequested); n != 0 {
		t.Fatalf("back fired %d extra times", n)
	}
}

func TestAbandonBeforeStart(t *testing.T) {
	api := quizFixture(0)
	o, events := newTestOrchestrator(t, api)
	if err := o.Abandon(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, events, EventBackRequested)
	if n := api.count("AbandonAttempt"); n != 0 {
		t.Fatalf("AbandonAttempt calls = %d", n)
	}
	if _, err := o.Submit(context.Background(), UserInitiated); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("submit before start: %v", err)
	}
}

func TestCloseCancelsInFlightCall(t *testing.T) {
	api := quizFixture(0)
	o := NewOrchestrator(api, Session{StudentID: testStudent, EnrollmentID: testEnrollment}, 1)

	entered := api.blockOn("StartAssessmentAttempt")
	errc := make(chan error, 1)
	go func() { errc <- o.Start(context.Background()) }()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("start never reached the api")
	}
	o.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Start err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Close")
	}
	if err := o.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Start after Close: %v", err)
	}
}
