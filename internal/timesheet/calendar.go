package timesheet

import (
	"github.com/garnizeh/timesheet/internal/hours"
	"github.com/garnizeh/timesheet/internal/models"
)

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	Date    models.Date    `json:"date"`
	Weekday int            `json:"weekday"` // 0 = Sunday
	Count   int            `json:"count"`
	Hours   hours.Hours    `json:"hours"`
	Shifts  []models.Shift `json:"shifts"`
}

// Calendar is the month grid for a single job.
type Calendar struct {
	Month string        `json:"month"`
	Days  []CalendarDay `json:"days"`
	Total hours.Hours   `json:"total_hours"`
}

// BuildCalendar groups already filtered shifts by day. Shifts dated outside
// the month are ignored.
func BuildCalendar(m Month, shifts []models.Shift) Calendar {
	days := m.Days()
	cal := Calendar{Month: m.String(), Days: make([]CalendarDay, len(days))}
	for i, d := range days {
		cal.Days[i] = CalendarDay{Date: d, Weekday: int(d.Weekday()), Shifts: []models.Shift{}}
	}

	for _, s := range shifts {
		if MonthOf(s.Date) != m {
			continue
		}
		day := &cal.Days[s.Date.Day()-1]
		day.Shifts = append(day.Shifts, copyShift(s))
		day.Count++
		day.Hours += s.Hours
		cal.Total += s.Hours
	}
	return cal
}
