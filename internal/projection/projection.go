// Package projection derives read-only views from a task snapshot.
// Nothing here mutates its input or is persisted.
package projection

import (
	"slices"
	"strings"
	"time"

	"github.com/benvon/taskwise/internal/models"
)

// Buckets splits a snapshot by recurrence
type Buckets struct {
	Daily   []models.Task `json:"daily"`
	Weekly  []models.Task `json:"weekly"`
	Monthly []models.Task `json:"monthly"`
	Other   []models.Task `json:"other"`
}

// Len returns the total number of tasks across all buckets
func (b Buckets) Len() int {
	return len(b.Daily) + len(b.Weekly) + len(b.Monthly) + len(b.Other)
}

// ByRecurrence partitions tasks into disjoint buckets. Recurring buckets are
// ordered by title, case-insensitively; Other keeps the input order.
func ByRecurrence(tasks []models.Task) Buckets {
	b := Buckets{
		Daily:   []models.Task{},
		Weekly:  []models.Task{},
		Monthly: []models.Task{},
		Other:   []models.Task{},
	}
	for _, t := range tasks {
		t = t.Clone()
		switch t.Recurrence {
		case models.RecurrenceDaily:
			b.Daily = append(b.Daily, t)
		case models.RecurrenceWeekly:
			b.Weekly = append(b.Weekly, t)
		case models.RecurrenceMonthly:
			b.Monthly = append(b.Monthly, t)
		default:
			b.Other = append(b.Other, t)
		}
	}
	sortByTitle(b.Daily)
	sortByTitle(b.Weekly)
	sortByTitle(b.Monthly)
	return b
}

func sortByTitle(tasks []models.Task) {
	slices.SortStableFunc(tasks, func(a, b models.Task) int {
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	})
}

// CategoryMap groups non-recurring tasks by category
type CategoryMap map[models.Category][]models.Task

// CategoryGroup is one entry of CategoryMap.Groups
type CategoryGroup struct {
	Category models.Category `json:"category"`
	Info     models.Info     `json:"info"`
	Tasks    []models.Task   `json:"tasks"`
}

// ByCategory groups non-recurring tasks by category. Input order is kept
// within a group and categories with no tasks are absent.
func ByCategory(tasks []models.Task) CategoryMap {
	out := CategoryMap{}
	for _, t := range tasks {
		if t.IsRecurring() {
			continue
		}
		c := t.Category.Normalize()
		out[c] = append(out[c], t.Clone())
	}
	return out
}

// Groups returns the non-empty groups in canonical category order
func (m CategoryMap) Groups() []CategoryGroup {
	groups := make([]CategoryGroup, 0, len(m))
	for _, c := range models.Categories() {
		tasks := m[c]
		if len(tasks) == 0 {
			continue
		}
		groups = append(groups, CategoryGroup{Category: c, Info: c.Info(), Tasks: tasks})
	}
	return groups
}

// OnDate returns the tasks due on the given calendar day in loc
func OnDate(tasks []models.Task, date models.Date, loc *time.Location) []models.Task {
	out := []models.Task{}
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		if models.DateOf(*t.DueDate, loc) == date {
			out = append(out, t.Clone())
		}
	}
	return out
}

// DueDateMarkers returns the distinct due dates in ascending order
func DueDateMarkers(tasks []models.Task, loc *time.Location) []models.Date {
	seen := make(map[models.Date]bool)
	out := []models.Date{}
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		d := models.DateOf(*t.DueDate, loc)
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b models.Date) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		default:
			return 0
		}
	})
	return out
}
