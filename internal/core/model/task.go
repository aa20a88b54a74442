package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
)

// Task priorities, higher is more urgent.
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// Task is a single tracked item of work. TimeSpent and DistractionTime are
// second counters owned by the focus subsystem; while a timer session targets
// the task they only ever grow, and exactly one of the two grows per tick.
type Task struct {
	ID              string
	Title           string
	Notes           string
	Priority        int
	Status          TaskStatus
	Deadline        *time.Time
	TimeSpent       int
	DistractionTime int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewTaskID returns a new lexically sortable task identifier.
func NewTaskID() string {
	return ulid.Make().String()
}

// Validate checks the task invariants.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required: %w", ErrNotValid)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title is required: %w", ErrNotValid)
	}
	if t.Status != TaskStatusPending && t.Status != TaskStatusDone {
		return fmt.Errorf("unknown task status %q: %w", t.Status, ErrNotValid)
	}
	if t.Priority < PriorityLow || t.Priority > PriorityHigh {
		return fmt.Errorf("task priority %d out of range: %w", t.Priority, ErrNotValid)
	}
	if t.TimeSpent < 0 || t.DistractionTime < 0 {
		return fmt.Errorf("task time counters must not be negative: %w", ErrNotValid)
	}
	return nil
}

// TimerDelta is a relative increment of a task's time counters, in seconds.
// Deltas are applied by task id instead of overwriting the record so edits
// made elsewhere while a timer runs are never lost.
type TimerDelta struct {
	TimeSpent   int
	Distraction int
}

// Validate checks the delta invariants.
func (d TimerDelta) Validate() error {
	if d.TimeSpent < 0 || d.Distraction < 0 {
		return fmt.Errorf("timer delta must not be negative: %w", ErrNotValid)
	}
	if d.TimeSpent == 0 && d.Distraction == 0 {
		return fmt.Errorf("timer delta is empty: %w", ErrNotValid)
	}
	return nil
}
