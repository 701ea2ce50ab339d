package report

import (
	"fmt"
	"strings"
	"time"
)

// Locale selects the language of dates, weekdays and month labels.
type Locale string

const (
	Italian Locale = "it"
	English Locale = "en"
)

// DefaultLocale matches the language of the printed timesheets.
const DefaultLocale = Italian

type localeNames struct {
	dateLayout string
	weekdays   [7]string
	months     [12]string
}

var locales = map[Locale]localeNames{
	Italian: {
		dateLayout: "02/01/2006",
		weekdays:   [7]string{"domenica", "lunedì", "martedì", "mercoledì", "giovedì", "venerdì", "sabato"},
		months: [12]string{"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
			"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"},
	},
	English: {
		dateLayout: "01/02/2006",
		weekdays:   [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		months: [12]string{"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December"},
	},
}

// ParseLocale accepts "it" or "en" (case-insensitive, region suffix ignored).
func ParseLocale(s string) (Locale, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_"); i > 0 {
		s = s[:i]
	}
	l := Locale(s)
	if _, ok := locales[l]; !ok {
		return "", fmt.Errorf("unsupported locale %q", s)
	}
	return l, nil
}

func (l Locale) names() localeNames {
	if n, ok := locales[l]; ok {
		return n
	}
	return locales[DefaultLocale]
}

// FormatDate renders a day in the locale's short numeric form.
func (l Locale) FormatDate(t time.Time) string {
	return t.Format(l.names().dateLayout)
}

// Weekday returns the full weekday name.
func (l Locale) Weekday(d time.Weekday) string {
	return l.names().weekdays[d]
}

// MonthLabel returns e.g. "marzo 2024" or "March 2024".
func (l Locale) MonthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", l.names().months[month-1], year)
}
