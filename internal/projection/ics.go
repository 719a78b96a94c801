package projection

import (
	"fmt"
	"strings"
	"time"

	"github.com/benvon/taskwise/internal/models"
)

const (
	icsDateLayout  = "20060102"
	icsStampLayout = "20060102T150405Z"
	icsLineLimit   = 75
)

// CalendarICS exports every dated task as an all-day VEVENT.
// Recurring tasks carry an RRULE; undated tasks are skipped.
func CalendarICS(tasks []models.Task, now time.Time, loc *time.Location) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//TaskWise//Task Export//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:TaskWise",
	}

	stamp := now.UTC().Format(icsStampLayout)
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		lines = append(lines, taskEvent(t, stamp, loc)...)
	}
	lines = append(lines, "END:VCALENDAR", "")

	return strings.Join(lines, "\r\n")
}

func taskEvent(t models.Task, stamp string, loc *time.Location) []string {
	due := models.DateOf(*t.DueDate, loc).Start(time.UTC)
	end := due.AddDate(0, 0, 1)

	title := strings.TrimSpace(t.Title)
	if title == "" {
		title = "TaskWise Task"
	}

	lines := []string{
		"BEGIN:VEVENT",
		foldICSLine("UID:" + escapeICSText(fmt.Sprintf("task-%s@taskwise", t.ID))),
		"DTSTAMP:" + stamp,
		foldICSLine("SUMMARY:" + escapeICSText(title)),
		"DTSTART;VALUE=DATE:" + due.Format(icsDateLayout),
		"DTEND;VALUE=DATE:" + end.Format(icsDateLayout),
		"CATEGORIES:" + escapeICSText(string(t.Category.Normalize())),
	}
	if desc := strings.TrimSpace(t.Description); desc != "" {
		lines = append(lines, foldICSLine("DESCRIPTION:"+escapeICSText(desc)))
	}
	if rrule := recurrenceRRULE(t.Recurrence); rrule != "" {
		lines = append(lines, "RRULE:"+rrule)
	}
	return append(lines, "END:VEVENT")
}

func recurrenceRRULE(r models.Recurrence) string {
	switch r {
	case models.RecurrenceDaily:
		return "FREQ=DAILY;INTERVAL=1"
	case models.RecurrenceWeekly:
		return "FREQ=WEEKLY;INTERVAL=1"
	case models.RecurrenceMonthly:
		return "FREQ=MONTHLY;INTERVAL=1"
	default:
		return ""
	}
}

func escapeICSText(s string) string {
	repl := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
		"\r", "\\n",
	)
	return repl.Replace(s)
}

// foldICSLine splits content lines longer than 75 octets, continuing with a
// leading space. Multi-byte runes are never split.
func foldICSLine(line string) string {
	if len(line) <= icsLineLimit {
		return line
	}
	var b strings.Builder
	width := 0
	limit := icsLineLimit
	for _, r := range line {
		n := len(string(r))
		if width+n > limit {
			b.WriteString("\r\n ")
			width = 0
			limit = icsLineLimit - 1
		}
		b.WriteRune(r)
		width += n
	}
	return b.String()
}
