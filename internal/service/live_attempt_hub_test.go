package service

import (
	"context"
	"edu_portal_backend/internal/assessment"
	"edu_portal_backend/internal/config"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// memAPI 内存版 CourseAPI
type memAPI struct {
	mu         sync.Mutex
	assessment assessment.Assessment
	questions  []assessment.Question
	attempts   map[uint]*assessment.Attempt
	answers    map[uint]map[uint]assessment.Response
	nextID     uint
}

func newMemAPI() *memAPI {
	return &memAPI{
		assessment: assessment.Assessment{ID: 5, CourseID: 3, Type: assessment.TypeQuiz, Title: "Cells", PassingScore: 50, MaxAttempts: 3, QuestionCount: 2},
		questions: []assessment.Question{
			{ID: 1, Order: 1, Type: assessment.MultipleChoice, Text: "Powerhouse?", Options: []assessment.AnswerOption{{ID: "a"}, {ID: "b"}}, CorrectAnswer: "a", Points: 1},
			{ID: 2, Order: 2, Type: assessment.MultipleSelect, Text: "Organelles?", Options: []assessment.AnswerOption{{ID: "a"}, {ID: "b"}, {ID: "c"}}, CorrectAnswers: []string{"a", "c"}, Points: 1},
		},
		attempts: map[uint]*assessment.Attempt{},
		answers:  map[uint]map[uint]assessment.Response{},
		nextID:   100,
	}
}

func (m *memAPI) GetAssessment(ctx context.Context, id uint) (assessment.Assessment, error) {
	if id != m.assessment.ID {
		return assessment.Assessment{}, assessment.ErrAssessmentNotFound
	}
	return m.assessment, nil
}

func (m *memAPI) GetAssessmentQuestions(ctx context.Context, id uint) ([]assessment.Question, error) {
	return append([]assessment.Question(nil), m.questions...), nil
}

func (m *memAPI) StartAssessmentAttempt(ctx context.Context, studentID, assessmentID, enrollmentID uint) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.attempts[id] = &assessment.Attempt{
		ID: id, StudentID: studentID, AssessmentID: assessmentID, EnrollmentID: enrollmentID,
		AttemptNumber: len(m.attempts) + 1, Status: assessment.StatusInProgress, StartedAt: time.Now(),
	}
	m.answers[id] = map[uint]assessment.Response{}
	return id, nil
}

func (m *memAPI) GetCurrentAttempt(ctx context.Context, studentID, assessmentID uint) (*assessment.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.StudentID == studentID && a.AssessmentID == assessmentID && a.Status == assessment.StatusInProgress {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memAPI) GetAttemptDetails(ctx context.Context, id uint) (assessment.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return assessment.Attempt{}, assessment.ErrAttemptNotFound
	}
	return *a, nil
}

func (m *memAPI) GetAttemptAnswers(ctx context.Context, id uint) ([]assessment.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []assessment.Answer
	for qid, r := range m.answers[id] {
		out = append(out, assessment.Answer{AttemptID: id, QuestionID: qid, AnswerGiven: r.Answer, AnswersGiven: r.Answers})
	}
	return out, nil
}

func (m *memAPI) SubmitAnswer(ctx context.Context, attemptID, questionID uint, answer string, answers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[attemptID][questionID] = assessment.Response{Answer: answer, Answers: answers}
	return nil
}

func (m *memAPI) SubmitAssessment(ctx context.Context, attemptID uint, reason assessment.SubmitReason) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.attempts[attemptID]
	res := assessment.Score(m.questions, m.answers[attemptID], m.assessment.PassingScore)
	a.Status = assessment.StatusGraded
	a.SubmitReason = reason
	a.CorrectAnswers = res.CorrectCount
	a.TotalQuestions = res.TotalQuestions
	a.Score = res.ScorePercent
	a.Passed = res.Passed
	return nil
}

func (m *memAPI) AbandonAttempt(ctx context.Context, attemptID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[attemptID].Status = assessment.StatusAbandoned
	return nil
}

func (m *memAPI) CanAttemptAssessment(ctx context.Context, studentID, assessmentID uint) (bool, error) {
	return true, nil
}

func (m *memAPI) GetRemainingAttempts(ctx context.Context, studentID, assessmentID uint) (int, error) {
	return 3, nil
}

func (m *memAPI) savedAnswers(attemptID uint) map[uint]assessment.Response {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint]assessment.Response, len(m.answers[attemptID]))
	for k, v := range m.answers[attemptID] {
		out[k] = v
	}
	return out
}

type liveFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialLive(t *testing.T, hub *LiveAttemptHub, studentID uint) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.ServeWS(w, r, studentID); err != nil {
			t.Errorf("ServeWS: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendLive(t *testing.T, conn *websocket.Conn, typ string, data interface{}) {
	t.Helper()
	if err := conn.WriteJSON(map[string]interface{}{"type": typ, "data": data}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readLive(t *testing.T, conn *websocket.Conn) liveFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f liveFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

func TestLiveAttemptStartAnswerSubmit(t *testing.T) {
	api := newMemAPI()
	hub := NewLiveAttemptHub(api, config.AssessmentConfig{}, nil)
	conn := dialLive(t, hub, 7)

	sendLive(t, conn, MsgStart, startData{AssessmentID: 5, EnrollmentID: 21})
	f := readLive(t, conn)
	if f.Type != MsgStarted {
		t.Fatalf("first frame = %s %s", f.Type, f.Data)
	}
	var snap assessment.Snapshot
	if err := json.Unmarshal(f.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Status != assessment.StatusInProgress || len(snap.Questions) != 2 || snap.Attempt.ID != 100 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if strings.Contains(string(f.Data), "correctAnswer") {
		t.Fatalf("answer key sent to client: %s", f.Data)
	}

	sendLive(t, conn, MsgAnswer, answerData{QuestionID: 1, Answer: "a"})
	sendLive(t, conn, MsgAnswer, answerData{QuestionID: 2, Answers: []string{"c", "a"}})
	sendLive(t, conn, MsgSubmit, nil)

	f = readLive(t, conn)
	if f.Type != MsgCompleted {
		t.Fatalf("frame = %s %s", f.Type, f.Data)
	}
	var done struct {
		AttemptID uint    `json:"attemptId"`
		Score     float64 `json:"score"`
		Passed    bool    `json:"passed"`
	}
	if err := json.Unmarshal(f.Data, &done); err != nil {
		t.Fatalf("decode completed: %v", err)
	}
	if done.AttemptID != 100 || done.Score != 100 || !done.Passed {
		t.Fatalf("completed = %+v", done)
	}
	if saved := api.savedAnswers(100); len(saved) != 2 || saved[1].Answer != "a" {
		t.Fatalf("saved answers = %+v", saved)
	}

	conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for hub.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not removed, count = %d", hub.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLiveAttemptRejectsBadMessages(t *testing.T) {
	hub := NewLiveAttemptHub(newMemAPI(), config.AssessmentConfig{}, nil)
	conn := dialLive(t, hub, 7)

	tests := []struct {
		name string
		send func(t *testing.T)
	}{
		{"answer before start", func(t *testing.T) { sendLive(t, conn, MsgAnswer, answerData{QuestionID: 1, Answer: "a"}) }},
		{"submit before start", func(t *testing.T) { sendLive(t, conn, MsgSubmit, nil) }},
		{"start without assessment", func(t *testing.T) { sendLive(t, conn, MsgStart, startData{}) }},
		{"unknown type", func(t *testing.T) { sendLive(t, conn, "dance", nil) }},
		{"malformed json", func(t *testing.T) { conn.WriteMessage(websocket.TextMessage, []byte("{not json")) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.send(t)
			if f := readLive(t, conn); f.Type != MsgError {
				t.Fatalf("frame = %s %s", f.Type, f.Data)
			}
		})
	}
}

func TestLiveAttemptResumeOtherStudent(t *testing.T) {
	api := newMemAPI()
	id, _ := api.StartAssessmentAttempt(context.Background(), 8, 5, 22)
	hub := NewLiveAttemptHub(api, config.AssessmentConfig{}, nil)
	conn := dialLive(t, hub, 7)

	sendLive(t, conn, MsgResume, resumeData{AttemptID: id})
	f := readLive(t, conn)
	var e errorData
	json.Unmarshal(f.Data, &e)
	if f.Type != MsgError || e.Code != http.StatusForbidden {
		t.Fatalf("frame = %s %s", f.Type, f.Data)
	}
}

func TestLiveAttemptAbandonWithoutAttempt(t *testing.T) {
	hub := NewLiveAttemptHub(newMemAPI(), config.AssessmentConfig{}, nil)
	conn := dialLive(t, hub, 7)

	sendLive(t, conn, MsgAbandon, nil)
	if f := readLive(t, conn); f.Type != MsgBack {
		t.Fatalf("frame = %s %s", f.Type, f.Data)
	}
}
