package schedule

import (
	"fmt"
	"time"

	"alcyxob/routine-planner/internal/domain"
)

// Observer is the local date and wall-clock time of whoever asks for a
// schedule. It decides whether today's session is already missed.
type Observer struct {
	Date domain.Date
	Time TimeOfDay
}

// ObserverAt builds an Observer from a local time.
func ObserverAt(t time.Time) *Observer {
	return &Observer{Date: domain.DateOf(t), Time: TimeOfDayOf(t)}
}

// Request describes one generation run. A nil Observer never skips a date;
// renewal batches use that because they only look forward.
type Request struct {
	Pattern      Pattern
	Start        domain.Date
	End          domain.Date
	SessionStart string
	SessionEnd   string
	Observer     *Observer
}

// Entry is one generated (weekday, date) occurrence.
type Entry struct {
	Weekday time.Weekday
	Date    domain.Date
}

func (e Entry) WeekdayName() string { return WeekdayName(e.Weekday) }

// Generate lists every date in [Start, End] whose weekday is in the pattern.
// If the observer's date is in range and its time is already past the session
// start, that date is left out.
func Generate(req Request) ([]Entry, error) {
	sessionStart, _, err := ParseSession(req.SessionStart, req.SessionEnd)
	if err != nil {
		return nil, err
	}
	if req.End.Before(req.Start) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, req.Start, req.End)
	}

	var entries []Entry
	for d := req.Start; !d.After(req.End); d = d.AddDays(1) {
		if !req.Pattern.Matches(d) {
			continue
		}
		if req.Observer != nil && d == req.Observer.Date && req.Observer.Time > sessionStart {
			continue
		}
		entries = append(entries, Entry{Weekday: d.Weekday(), Date: d})
	}
	return entries, nil
}

// Dates extracts the dates of the entries, in order.
func Dates(entries []Entry) []domain.Date {
	out := make([]domain.Date, len(entries))
	for i, e := range entries {
		out[i] = e.Date
	}
	return out
}
