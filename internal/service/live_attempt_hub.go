package service

import (
	"context"
	"edu_portal_backend/internal/assessment"
	"edu_portal_backend/internal/config"
	"edu_portal_backend/internal/util"
	"edu_portal_backend/pkg/logger"
	"edu_portal_backend/pkg/monitoring"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxLiveMessageSize = 16 * 1024
	sendBuffer         = 64
)

// 上行消息类型
const (
	MsgStart   = "start"
	MsgResume  = "resume"
	MsgAnswer  = "answer"
	MsgSubmit  = "submit"
	MsgAbandon = "abandon"
)

// 下行消息类型
const (
	MsgStarted      = "started"
	MsgTick         = "tick"
	MsgExpired      = "expired"
	MsgCompleted    = "completed"
	MsgBack         = "back"
	MsgError        = "error"
	MsgSubmitFailed = "submit_failed"
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type startData struct {
	AssessmentID uint `json:"assessmentId"`
	EnrollmentID uint `json:"enrollmentId"`
}

type resumeData struct {
	AttemptID uint `json:"attemptId"`
}

type answerData struct {
	QuestionID uint     `json:"questionId"`
	Answer     string   `json:"answer"`
	Answers    []string `json:"answers"`
}

type errorData struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// LiveAttemptHub 每个 websocket 连接托管一个服务端 Orchestrator，计时与自动交卷在服务端完成，
// 客户端只负责展示。断线只关闭 Orchestrator，尝试保持 in_progress 可恢复。
type LiveAttemptHub struct {
	API       assessment.CourseAPI
	Config    config.AssessmentConfig
	NewTicker assessment.TickerFactory

	upgrader websocket.Upgrader
	mu       sync.Mutex
	sessions map[*LiveSession]struct{}
}

func NewLiveAttemptHub(api assessment.CourseAPI, cfg config.AssessmentConfig, allowedOrigins []string) *LiveAttemptHub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &LiveAttemptHub{
		API:    api,
		Config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
		sessions: make(map[*LiveSession]struct{}),
	}
}

// ServeWS 升级连接并启动读写协程，立即返回
func (h *LiveAttemptHub) ServeWS(w http.ResponseWriter, r *http.Request, studentID uint) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &LiveSession{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		studentID: studentID,
		limiter:   rate.NewLimiter(30, 50),
		ctx:       ctx,
		cancel:    cancel,
		log:       logger.Log.With(zap.Uint("studentId", studentID)),
	}

	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	monitoring.LiveAttempts.Inc()

	go s.writePump()
	go s.readPump()
	return nil
}

func (h *LiveAttemptHub) remove(s *LiveSession) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
	monitoring.LiveAttempts.Dec()
}

func (h *LiveAttemptHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown 关闭所有连接，读协程随后各自清理 Orchestrator
func (h *LiveAttemptHub) Shutdown() {
	h.mu.Lock()
	sessions := make([]*LiveSession, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()
	for _, s := range sessions {
		s.conn.Close()
	}
}

func (h *LiveAttemptHub) orchestratorOptions(log *zap.Logger) []assessment.Option {
	opts := []assessment.Option{
		assessment.WithLogger(log),
		assessment.WithPersistOnRecord(),
	}
	if h.NewTicker != nil {
		opts = append(opts, assessment.WithTicker(h.NewTicker))
	}
	return opts
}

type LiveSession struct {
	hub       *LiveAttemptHub
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	studentID uint
	limiter   *rate.Limiter
	ctx       context.Context
	cancel    context.CancelFunc
	log       *zap.Logger
	closeOnce sync.Once

	// 仅在读协程中访问
	orch *assessment.Orchestrator

	// started 推送前产生的事件先缓存，保证 started 是第一条
	gateMu  sync.Mutex
	ready   bool
	pending []WSMessage
}

func (s *LiveSession) readPump() {
	defer s.close()
	s.conn.SetReadLimit(maxLiveMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("live attempt socket closed unexpectedly", zap.Error(err))
			}
			return
		}
		if !s.limiter.Allow() {
			s.pushError(errors.New("too many messages"))
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.pushError(errors.New("malformed message"))
			continue
		}
		monitoring.LiveMessages.WithLabelValues("in", msg.Type).Inc()
		s.dispatch(msg)
	}
}

func (s *LiveSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case message := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *LiveSession) close() {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.orch != nil {
			s.orch.Close()
		}
		close(s.done)
		s.conn.Close()
		s.hub.remove(s)
	})
}

func (s *LiveSession) dispatch(msg inboundMessage) {
	switch msg.Type {
	case MsgStart:
		var d startData
		if err := decodeData(msg.Data, &d); err != nil || d.AssessmentID == 0 {
			s.pushError(&assessment.ValidationError{Field: "assessmentId", Reason: "required"})
			return
		}
		s.open(d.AssessmentID, d.EnrollmentID, 0)

	case MsgResume:
		var d resumeData
		if err := decodeData(msg.Data, &d); err != nil || d.AttemptID == 0 {
			s.pushError(&assessment.ValidationError{Field: "attemptId", Reason: "required"})
			return
		}
		att, err := s.hub.API.GetAttemptDetails(s.ctx, d.AttemptID)
		if err != nil {
			s.pushError(err)
			return
		}
		if att.StudentID != s.studentID {
			s.pushError(util.ErrPermissionDenied)
			return
		}
		s.open(att.AssessmentID, att.EnrollmentID, att.ID)

	case MsgAnswer:
		if s.orch == nil {
			s.pushError(&assessment.StateError{Op: "answer", Status: assessment.StatusNotStarted})
			return
		}
		var d answerData
		if err := decodeData(msg.Data, &d); err != nil || d.QuestionID == 0 {
			s.pushError(&assessment.ValidationError{Field: "questionId", Reason: "required"})
			return
		}
		var err error
		if len(d.Answers) > 0 {
			err = s.orch.RecordAnswers(s.ctx, d.QuestionID, d.Answers)
		} else {
			err = s.orch.RecordAnswer(s.ctx, d.QuestionID, d.Answer)
		}
		if err != nil {
			s.pushError(err)
		}

	case MsgSubmit:
		if s.orch == nil {
			s.pushError(&assessment.StateError{Op: "submit", Status: assessment.StatusNotStarted})
			return
		}
		if _, err := s.orch.Submit(s.ctx, assessment.UserInitiated); err != nil {
			s.push(WSMessage{Type: MsgSubmitFailed, Data: errorData{Message: err.Error(), Code: util.StatusFor(err)}})
		}

	case MsgAbandon:
		if s.orch == nil {
			s.push(WSMessage{Type: MsgBack})
			return
		}
		if err := s.orch.Abandon(s.ctx); err != nil {
			s.pushError(err)
		}

	default:
		s.pushError(errors.New("unknown message type " + msg.Type))
	}
}

// open 为本连接创建 Orchestrator；attemptID 非 0 时恢复指定尝试，否则先恢复进行中的再新建
func (s *LiveSession) open(assessmentID, enrollmentID, attemptID uint) {
	if s.orch != nil {
		if st := s.orch.Status(); st == assessment.StatusInProgress || st == assessment.StatusSubmitted {
			s.pushError(&assessment.StateError{Op: "start", Status: st})
			return
		}
		s.orch.Close()
		s.orch = nil
	}

	s.gateMu.Lock()
	s.ready, s.pending = false, nil
	s.gateMu.Unlock()

	log := s.log.With(zap.Uint("assessmentId", assessmentID))
	o := assessment.NewOrchestrator(s.hub.API,
		assessment.Session{StudentID: s.studentID, EnrollmentID: enrollmentID},
		assessmentID, s.hub.orchestratorOptions(log)...)
	o.Subscribe(assessment.ObserverFunc(s.onEvent))

	var err error
	if attemptID != 0 {
		err = o.Resume(s.ctx, attemptID)
	} else {
		var resumed bool
		resumed, err = o.ResumeCurrent(s.ctx)
		if err == nil && !resumed {
			err = o.Start(s.ctx)
		}
	}
	if err != nil {
		o.Close()
		s.pushError(err)
		return
	}
	s.orch = o
	snap := o.Snapshot()

	s.gateMu.Lock()
	s.push(WSMessage{Type: MsgStarted, Data: snap})
	for _, m := range s.pending {
		s.push(m)
	}
	s.ready, s.pending = true, nil
	s.gateMu.Unlock()
}

// onEvent 在 Orchestrator 的事件循环中执行，不能回调 Orchestrator
func (s *LiveSession) onEvent(e assessment.Event) {
	var msg WSMessage
	switch e.Kind {
	case assessment.EventTick:
		msg = WSMessage{Type: MsgTick, Data: gin.H{"remainingSeconds": e.RemainingSeconds, "level": e.Level}}
	case assessment.EventExpired:
		msg = WSMessage{Type: MsgExpired, Data: gin.H{"attemptId": e.AttemptID}}
	case assessment.EventCompleted:
		msg = WSMessage{Type: MsgCompleted, Data: gin.H{
			"assessmentId": e.AssessmentID,
			"attemptId":    e.AttemptID,
			"score":        e.Score,
			"passed":       e.Passed,
		}}
	case assessment.EventBackRequested:
		msg = WSMessage{Type: MsgBack}
	case assessment.EventSubmitFailed:
		data := errorData{Message: "automatic submit failed"}
		if e.Err != nil {
			data = errorData{Message: e.Err.Error(), Code: util.StatusFor(e.Err)}
		}
		msg = WSMessage{Type: MsgSubmitFailed, Data: data}
	default:
		return
	}

	s.gateMu.Lock()
	defer s.gateMu.Unlock()
	if !s.ready {
		s.pending = append(s.pending, msg)
		return
	}
	s.push(msg)
}

func (s *LiveSession) pushError(err error) {
	s.push(WSMessage{Type: MsgError, Data: errorData{Message: err.Error(), Code: util.StatusFor(err)}})
}

// push 不阻塞，发送缓冲满时丢弃
func (s *LiveSession) push(msg WSMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("marshal live message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.send <- b:
		monitoring.LiveMessages.WithLabelValues("out", msg.Type).Inc()
	case <-s.done:
	default:
		s.log.Warn("live send buffer full, dropping message", zap.String("type", msg.Type))
	}
}

func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return errors.New("missing data")
	}
	return json.Unmarshal(raw, v)
}
