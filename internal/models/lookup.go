package models

import (
	"strings"
)

// Category groups non-recurring tasks by area of life
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryStudy    Category = "Study"
	CategoryErrands  Category = "Errands"
	CategoryFitness  Category = "Fitness"
	CategoryOther    Category = "Other"
)

// DefaultCategory is used whenever a category is missing or unrecognized
const DefaultCategory = CategoryWork

// Info holds the display data attached to an enum value
type Info struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Icon  string `json:"icon,omitempty"`
}

var categoryOrder = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryStudy,
	CategoryErrands,
	CategoryFitness,
	CategoryOther,
}

var categoryIcons = map[Category]string{
	CategoryWork:     "briefcase",
	CategoryPersonal: "home",
	CategoryStudy:    "book-open",
	CategoryErrands:  "clipboard-list",
	CategoryFitness:  "bike",
	CategoryOther:    "layout-dashboard",
}

// Categories returns every category in canonical order
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	_, ok := categoryIcons[c]
	return ok
}

// Normalize returns c when known, the default category otherwise
func (c Category) Normalize() Category {
	if c.Valid() {
		return c
	}
	return ParseCategory(string(c))
}

// Info returns the label and icon for the category
func (c Category) Info() Info {
	c = c.Normalize()
	return Info{Value: string(c), Label: string(c), Icon: categoryIcons[c]}
}

// ParseCategory matches s case-insensitively against the known categories.
// Blank or unrecognized values fall back to DefaultCategory.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	for _, c := range categoryOrder {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return DefaultCategory
}

var recurrenceOrder = []Recurrence{
	RecurrenceNone,
	RecurrenceDaily,
	RecurrenceWeekly,
	RecurrenceMonthly,
}

var recurrenceInfo = map[Recurrence]Info{
	RecurrenceNone:    {Value: string(RecurrenceNone), Label: "None"},
	RecurrenceDaily:   {Value: string(RecurrenceDaily), Label: "Daily", Icon: "sunrise"},
	RecurrenceWeekly:  {Value: string(RecurrenceWeekly), Label: "Weekly", Icon: "calendar-range"},
	RecurrenceMonthly: {Value: string(RecurrenceMonthly), Label: "Monthly", Icon: "calendar-plus"},
}

// Recurrences returns every recurrence option in canonical order
func Recurrences() []Recurrence {
	out := make([]Recurrence, len(recurrenceOrder))
	copy(out, recurrenceOrder)
	return out
}

// Valid reports whether r is one of the known recurrence values
func (r Recurrence) Valid() bool {
	_, ok := recurrenceInfo[r]
	return ok
}

// Info returns the label and icon for the recurrence
func (r Recurrence) Info() Info {
	if info, ok := recurrenceInfo[r]; ok {
		return info
	}
	return recurrenceInfo[RecurrenceNone]
}

// ParseRecurrence parses a recurrence name. Blank input means none.
func ParseRecurrence(s string) (Recurrence, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RecurrenceNone, true
	}
	r := Recurrence(s)
	return r, r.Valid()
}
