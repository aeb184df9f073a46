package assessment

type EventKind string

const (
	EventStarted       EventKind = "started"
	EventTick          EventKind = "tick"
	EventExpired       EventKind = "expired"
	EventCompleted     EventKind = "completed"
	EventBackRequested EventKind = "back"
	EventSubmitFailed  EventKind = "submit_failed"
)

// Event is delivered to observers on the orchestrator's event loop.
type Event struct {
	Kind             EventKind `json:"kind"`
	AttemptID        uint      `json:"attemptId,omitempty"`
	AssessmentID     uint      `json:"assessmentId,omitempty"`
	RemainingSeconds int       `json:"remainingSeconds,omitempty"`
	Level            TimeLevel `json:"level,omitempty"`
	Score            float64   `json:"score,omitempty"`
	Passed           bool      `json:"passed,omitempty"`
	Err              error     `json:"-"`
}

// Observer receives orchestrator events. Notify runs on the event loop and must
// not call back into the orchestrator synchronously.
type Observer interface {
	Notify(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }
