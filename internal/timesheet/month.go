package timesheet

import (
	"fmt"
	"time"

	"github.com/garnizeh/timesheet/internal/models"
)

const monthLayout = "2006-01"

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth validates year and month.
func NewMonth(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: month %d", ErrInvalidMonth, month)
	}
	if year < 1970 || year > 9999 {
		return Month{}, fmt.Errorf("%w: year %d", ErrInvalidMonth, year)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return NewMonth(t.Year(), int(t.Month()))
}

// MonthOf returns the month containing d.
func MonthOf(d models.Date) Month {
	return Month{Year: d.Year(), Month: d.Month()}
}

// Start is the first day of the month.
func (m Month) Start() models.Date {
	return models.NewDate(m.Year, m.Month, 1)
}

// End is the last day of the month.
func (m Month) End() models.Date {
	return models.Date{Time: m.Start().AddDate(0, 1, -1)}
}

// Days lists every day of the month in order.
func (m Month) Days() []models.Date {
	end := m.End()
	days := make([]models.Date, 0, end.Day())
	for d := m.Start(); !d.After(end); d = (models.Date{Time: d.AddDate(0, 0, 1)}) {
		days = append(days, d)
	}
	return days
}

func (m Month) Prev() Month {
	return MonthOf(models.Date{Time: m.Start().AddDate(0, -1, 0)})
}

func (m Month) Next() Month {
	return MonthOf(models.Date{Time: m.Start().AddDate(0, 1, 0)})
}

// String returns "YYYY-MM".
func (m Month) String() string {
	return m.Start().Format(monthLayout)
}
