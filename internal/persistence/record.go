package persistence

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/taskwise/internal/models"
)

// timestampLayout matches JavaScript's Date.toISOString output
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Record is the stored shape of a task. Dates are ISO-8601 strings.
type Record struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Description       string  `json:"description,omitempty"`
	DueDate           *string `json:"dueDate,omitempty"`
	Category          string  `json:"category"`
	Completed         bool    `json:"completed"`
	Recurrence        string  `json:"recurrence"`
	LastCompletedDate *string `json:"lastCompletedDate,omitempty"`
}

// Encode serializes the collection as a JSON array of records
func Encode(tasks []models.Task) ([]byte, error) {
	records := make([]Record, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, ToRecord(t))
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tasks: %w", err)
	}
	return data, nil
}

// Decode parses a JSON array of records. Plain YYYY-MM-DD dates are read as
// midnight in loc. Legacy records missing fields get defaults.
func Decode(data []byte, loc *time.Location) ([]models.Task, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	tasks := make([]models.Task, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, FromRecord(rec, loc))
	}
	return tasks, nil
}

// ToRecord converts a task to its stored shape
func ToRecord(t models.Task) Record {
	return Record{
		ID:                t.ID.String(),
		Title:             t.Title,
		Description:       t.Description,
		DueDate:           formatTime(t.DueDate),
		Category:          string(t.Category.Normalize()),
		Completed:         t.Completed,
		Recurrence:        string(recurrenceOrNone(t.Recurrence)),
		LastCompletedDate: formatTime(t.LastCompletedDate),
	}
}

// FromRecord converts a stored record to a task. Unparseable dates are dropped.
func FromRecord(rec Record, loc *time.Location) models.Task {
	r, ok := models.ParseRecurrence(rec.Recurrence)
	if !ok {
		r = models.RecurrenceNone
	}
	return models.Task{
		ID:                models.TaskID(strings.TrimSpace(rec.ID)),
		Title:             rec.Title,
		Description:       rec.Description,
		DueDate:           parseTime(rec.DueDate, loc),
		Category:          models.ParseCategory(rec.Category),
		Completed:         rec.Completed,
		Recurrence:        r,
		LastCompletedDate: parseTime(rec.LastCompletedDate, loc),
	}
}

func recurrenceOrNone(r models.Recurrence) models.Recurrence {
	if r.Valid() {
		return r
	}
	return models.RecurrenceNone
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timestampLayout)
	return &s
}

func parseTime(s *string, loc *time.Location) *time.Time {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return &t
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(models.DateLayout, v, loc); err == nil {
		return &t
	}
	return nil
}
