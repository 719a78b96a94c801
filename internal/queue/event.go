package queue

import (
	"time"

	"github.com/benvon/taskwise/internal/models"
	"github.com/google/uuid"
)

// EventType represents the kind of change made to a task
type EventType string

const (
	EventTaskCreated   EventType = "task.created"
	EventTaskUpdated   EventType = "task.updated"
	EventTaskCompleted EventType = "task.completed"
	EventTaskReopened  EventType = "task.reopened"
	EventTaskDeleted   EventType = "task.deleted"
	// EventTaskReset is emitted when the recurrence engine turns a task pending again
	EventTaskReset EventType = "task.reset"
)

// Event describes one mutation of the task collection
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       EventType      `json:"type"`
	TaskID     models.TaskID  `json:"task_id"`
	Task       *models.Task   `json:"task,omitempty"` // nil for deletes
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewEvent creates a new event. task may be nil.
func NewEvent(eventType EventType, taskID models.TaskID, task *models.Task, at time.Time) *Event {
	var snapshot *models.Task
	if task != nil {
		cp := task.Clone()
		snapshot = &cp
	}
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		TaskID:     taskID,
		Task:       snapshot,
		Metadata:   make(map[string]any),
		OccurredAt: at,
	}
}

// RoutingKey returns the AMQP routing key for the event
func (e *Event) RoutingKey() string {
	return string(e.Type)
}

// Valid reports whether the event type is one this system emits
func (t EventType) Valid() bool {
	switch t {
	case EventTaskCreated, EventTaskUpdated, EventTaskCompleted, EventTaskReopened, EventTaskDeleted, EventTaskReset:
		return true
	default:
		return false
	}
}
