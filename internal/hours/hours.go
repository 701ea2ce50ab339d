// Package hours converts wall-clock start/end times into worked hours.
//
// Durations are quantized to the quarter hour. Hours keeps the quantized
// value as an integer number of quarters so that sums over many shifts stay
// exact, the same way money is kept in cents rather than as a float.
package hours

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidClock is returned by ParseClock for anything that is not HH:MM.
var ErrInvalidClock = errors.New("invalid clock time")

// ClockTime is a time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses a 24h "HH:MM" string. A trailing ":SS" is accepted and
// ignored since time columns are often returned with seconds.
func ParseClock(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if len(parts[0]) < 1 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || len(parts[2]) != 2 || sec < 0 || sec > 59 {
			return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

// MustParseClock is like ParseClock but panics on error. Meant for tests and
// constants.
func MustParseClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String formats the time as zero-padded HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Hours is a duration counted in quarter hours.
type Hours int64

// PerHour is the number of quarters in one hour.
const PerHour Hours = 4

// Between returns the hours worked from start to end on the same day,
// rounded to the nearest quarter hour (half-up).
//
// An end earlier than start is not treated as crossing midnight: the result
// is negative and is returned unchanged.
func Between(start, end ClockTime) Hours {
	hourDelta := end.Hour - start.Hour
	minuteDelta := end.Minute - start.Minute
	if minuteDelta < 0 {
		hourDelta--
		minuteDelta += 60
	}
	minutes := int64(hourDelta*60 + minuteDelta)
	// minutes/15 rounded half-up == floor((2*minutes + 15) / 30)
	return Hours(floorDiv(2*minutes+15, 30))
}

// Compute is Between over "HH:MM" strings. An empty or malformed input
// yields zero; rejecting bad input is the caller's job.
func Compute(start, end string) Hours {
	if start == "" || end == "" {
		return 0
	}
	s, err := ParseClock(start)
	if err != nil {
		return 0
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0
	}
	return Between(s, e)
}

// RoundQuarter rounds a decimal hour value to the nearest multiple of 0.25,
// ties rounding up.
func RoundQuarter(v float64) float64 {
	return math.Floor(v*4+0.5) / 4
}

// FromFloat quantizes a decimal hour value.
func FromFloat(v float64) Hours {
	return Hours(math.Floor(v*4 + 0.5))
}

// Sum adds up hours exactly.
func Sum(hs ...Hours) Hours {
	var total Hours
	for _, h := range hs {
		total += h
	}
	return total
}

// Float returns the decimal hour value. Every quarter is exactly
// representable in binary floating point.
func (h Hours) Float() float64 {
	return float64(h) / float64(PerHour)
}

// String renders the value with exactly two decimals, e.g. "7.75".
func (h Hours) String() string {
	return strconv.FormatFloat(h.Float(), 'f', 2, 64)
}

// MarshalJSON encodes hours as a JSON number with two decimals.
func (h Hours) MarshalJSON() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalJSON accepts any JSON number and quantizes it.
func (h *Hours) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("hours: %w", err)
	}
	*h = FromFloat(v)
	return nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
