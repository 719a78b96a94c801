package projection

import (
	"strings"
	"testing"
	"time"

	"github.com/benvon/taskwise/internal/models"
)

func TestCalendarICS(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)
	tasks := []models.Task{
		{ID: "a", Title: "Call mom, dad; aunt", Description: "line1\nline2", DueDate: due(2024, 3, 10, 23, 59, time.UTC), Category: models.CategoryPersonal, Recurrence: models.RecurrenceWeekly},
		{ID: "b", Title: "Undated", Category: models.CategoryWork},
		{ID: "c", Title: "  ", DueDate: due(2024, 12, 31, 8, 0, time.UTC), Category: models.CategoryOther},
	}

	ics := CalendarICS(tasks, now, time.UTC)

	if !strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n") || !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Fatalf("Expected a CRLF-delimited calendar, got %q", ics)
	}
	if n := strings.Count(ics, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("Expected 2 events for dated tasks, got %d", n)
	}

	wantLines := []string{
		"UID:task-a@taskwise",
		"DTSTAMP:20240309T150405Z",
		"SUMMARY:Call mom\\, dad\\; aunt",
		"DESCRIPTION:line1\\nline2",
		"DTSTART;VALUE=DATE:20240310",
		"DTEND;VALUE=DATE:20240311",
		"RRULE:FREQ=WEEKLY;INTERVAL=1",
		"CATEGORIES:Personal",
		"SUMMARY:TaskWise Task",
		"DTSTART;VALUE=DATE:20241231",
		"DTEND;VALUE=DATE:20250101",
	}
	for _, line := range wantLines {
		if !strings.Contains(ics, line+"\r\n") {
			t.Errorf("Expected line %q in output", line)
		}
	}
	if strings.Contains(ics, "Undated") {
		t.Error("Expected undated task to be skipped")
	}
	if strings.Count(ics, "RRULE:") != 1 {
		t.Error("Expected RRULE only for the recurring task")
	}
}

func TestCalendarICS_Location(t *testing.T) {
	t.Parallel()

	west := time.FixedZone("UTC-5", -5*3600)
	tasks := []models.Task{{ID: "x", Title: "x", DueDate: due(2024, 3, 11, 2, 0, time.UTC)}}

	ics := CalendarICS(tasks, time.Now(), west)
	if !strings.Contains(ics, "DTSTART;VALUE=DATE:20240310\r\n") {
		t.Errorf("Expected local calendar day in DTSTART, got %q", ics)
	}
}

func TestFoldICSLine(t *testing.T) {
	t.Parallel()

	short := "SUMMARY:short"
	if got := foldICSLine(short); got != short {
		t.Errorf("Expected short line unchanged, got %q", got)
	}

	long := "SUMMARY:" + strings.Repeat("é", 60)
	folded := foldICSLine(long)
	for i, part := range strings.Split(folded, "\r\n") {
		if len(part) > icsLineLimit {
			t.Errorf("Part %d is %d octets", i, len(part))
		}
		if i > 0 && !strings.HasPrefix(part, " ") {
			t.Errorf("Continuation %d missing leading space", i)
		}
	}
	if strings.ReplaceAll(folded, "\r\n ", "") != long {
		t.Error("Expected unfolding to restore the original line")
	}
}
