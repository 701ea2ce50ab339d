package timesheet

import (
	"sort"

	"github.com/garnizeh/timesheet/internal/hours"
	"github.com/garnizeh/timesheet/internal/models"
)

// MonthTotal is the result of FilterAndTotal.
type MonthTotal struct {
	Shifts []models.Shift `json:"shifts"`
	Total  hours.Hours    `json:"total_hours"`
}

// FilterAndTotal keeps the shifts dated within [from, to] that belong to
// jobID and sums their stored hours. Totals are always scoped to one job: a
// nil jobID yields an empty result.
//
// The returned slice is freshly allocated and sorted by date; shifts on the
// same date keep their input order.
func FilterAndTotal(shifts []models.Shift, from, to models.Date, jobID *int64) MonthTotal {
	out := MonthTotal{Shifts: []models.Shift{}}
	if jobID == nil {
		return out
	}

	for _, s := range shifts {
		if s.Date.Before(from) || s.Date.After(to) {
			continue
		}
		if s.JobID != *jobID {
			continue
		}
		out.Shifts = append(out.Shifts, copyShift(s))
		out.Total += s.Hours
	}

	sort.SliceStable(out.Shifts, func(i, j int) bool {
		return out.Shifts[i].Date.Before(out.Shifts[j].Date)
	})
	return out
}

// copyShift detaches the note pointer from the caller's value.
func copyShift(s models.Shift) models.Shift {
	if s.Note != nil {
		n := *s.Note
		s.Note = &n
	}
	return s
}
