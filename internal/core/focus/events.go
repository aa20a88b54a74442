package focus

import "time"

// State represents the current controller lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateAcquiring State = "acquiring"
	StateActive    State = "active"
)

// EventType defines the type of controller event.
type EventType string

const (
	EventSessionStarted    EventType = "session_started"
	EventSessionStopped    EventType = "session_stopped"
	EventTick              EventType = "tick"
	EventDistractionChange EventType = "distraction_change"
	EventSessionError      EventType = "session_error"
)

// Event represents a controller update for observers.
type Event struct {
	Type            EventType
	TaskID          string
	TaskTitle       string
	TimeSpent       int
	DistractionTime int
	Distracted      bool
	Message         string
	At              time.Time
}
