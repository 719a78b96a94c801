// Package recurrence decides when a completed recurring task becomes pending again.
//
// A task completed in some period (day, Monday-based week, or month) is reset once
// the current time lies in a later period of the same granularity. All functions are
// pure: they never modify the tasks they inspect.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/benvon/taskwise/internal/models"
)

// Policy controls when the store runs the engine
type Policy string

const (
	// PolicyOnLoad runs the engine once, right after the collection is loaded
	PolicyOnLoad Policy = "load"
	// PolicyOnRead also runs the engine before every read of the collection
	PolicyOnRead Policy = "read"
)

// ParsePolicy parses a policy name. Blank input selects PolicyOnRead.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyOnRead:
		return PolicyOnRead, nil
	case PolicyOnLoad:
		return PolicyOnLoad, nil
	default:
		return "", fmt.Errorf("invalid recurrence policy: %s (must be 'load' or 'read')", s)
	}
}

// PeriodStart returns the start of the period containing t, in loc.
// Weeks begin on Monday. The bool is false for non-recurring values.
func PeriodStart(t time.Time, r models.Recurrence, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()

	switch r {
	case models.RecurrenceDaily:
		return time.Date(y, m, d, 0, 0, 0, 0, loc), true
	case models.RecurrenceWeekly:
		// Monday=0 ... Sunday=6
		offset := (int(t.In(loc).Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc), true
	case models.RecurrenceMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), true
	default:
		return time.Time{}, false
	}
}

// ShouldReset reports whether a completed recurring task was completed in a
// strictly earlier period than the one now falls in. Periods are computed in
// now's location.
func ShouldReset(task models.Task, now time.Time) bool {
	if !task.Completed || task.LastCompletedDate == nil {
		return false
	}
	if task.Recurrence == models.RecurrenceNone {
		return false
	}

	loc := now.Location()
	completedStart, ok := PeriodStart(*task.LastCompletedDate, task.Recurrence, loc)
	if !ok {
		return false
	}
	nowStart, _ := PeriodStart(now, task.Recurrence, loc)

	return completedStart.Before(nowStart)
}

// Due returns the ids of the tasks that must be reset to pending at now
func Due(tasks []models.Task, now time.Time) []models.TaskID {
	var ids []models.TaskID
	for i := range tasks {
		if ShouldReset(tasks[i], now) {
			ids = append(ids, tasks[i].ID)
		}
	}
	return ids
}
