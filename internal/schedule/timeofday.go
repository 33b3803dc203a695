package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	ErrInvalidTimeFormat = errors.New("invalid time format: expected HH:MM (24h)")
	ErrInvalidTimeRange  = errors.New("session start must be earlier than session end")
	ErrInvalidDateRange  = errors.New("start date must not be after end date")
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// TimeOfDay is seconds since local midnight.
type TimeOfDay int

// ParseTimeOfDay accepts strictly HH:MM in 24h notation.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return TimeOfDay(h*3600 + min*60), nil
}

// TimeOfDayOf reads the wall clock of t in its own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(h*3600 + m*60 + s)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/3600, int(t)%3600/60)
}

// ParseSession validates a session window.
func ParseSession(start, end string) (TimeOfDay, TimeOfDay, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return 0, 0, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return 0, 0, err
	}
	if s >= e {
		return 0, 0, fmt.Errorf("%w: %s-%s", ErrInvalidTimeRange, start, end)
	}
	return s, e, nil
}
