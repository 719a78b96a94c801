package store

import (
	"slices"

	"github.com/benvon/taskwise/internal/models"
)

// compareDue orders tasks by due date; tasks without one go last
func compareDue(a, b models.Task) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return 0
	case a.DueDate == nil:
		return 1
	case b.DueDate == nil:
		return -1
	default:
		return a.DueDate.Compare(*b.DueDate)
	}
}

// sortTasks sorts in place. Stable, so ties keep insertion order.
func sortTasks(tasks []models.Task) {
	slices.SortStableFunc(tasks, compareDue)
}

// IsSorted reports whether tasks are in canonical order
func IsSorted(tasks []models.Task) bool {
	return slices.IsSortedFunc(tasks, compareDue)
}
