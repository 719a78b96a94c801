package models

import (
	"time"
)

// TaskID is the opaque identifier of a task
type TaskID string

// String returns the id as a plain string
func (id TaskID) String() string {
	return string(id)
}

// Recurrence represents how often a task repeats
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// Task represents a single task in the collection
type Task struct {
	ID                TaskID     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	DueDate           *time.Time `json:"dueDate,omitempty"`
	Category          Category   `json:"category"`
	Completed         bool       `json:"completed"`
	Recurrence        Recurrence `json:"recurrence"`
	LastCompletedDate *time.Time `json:"lastCompletedDate,omitempty"`
}

// IsRecurring reports whether the task repeats
func (t *Task) IsRecurring() bool {
	return t.Recurrence != RecurrenceNone && t.Recurrence.Valid()
}

// Clone returns a deep copy of the task; pointer fields are not shared
func (t Task) Clone() Task {
	out := t
	if t.DueDate != nil {
		due := *t.DueDate
		out.DueDate = &due
	}
	if t.LastCompletedDate != nil {
		last := *t.LastCompletedDate
		out.LastCompletedDate = &last
	}
	return out
}

// TaskInput is the form submission passed to create and update
type TaskInput struct {
	Title       string     `json:"title" validate:"max=10000"`
	Description string     `json:"description,omitempty" validate:"max=10000"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Category    Category   `json:"category,omitempty"`
	Recurrence  Recurrence `json:"recurrence,omitempty" validate:"omitempty,recurrence"`
}

// CloneTasks deep-copies a slice of tasks
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}
