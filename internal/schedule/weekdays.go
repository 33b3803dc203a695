// Package schedule holds the pure calendar logic: weekday vocabulary,
// session times, and date generation for routine periods.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"alcyxob/routine-planner/internal/domain"
)

var ErrInvalidWeekdayName = errors.New("invalid weekday name")

// weekdayTokens maps every accepted spelling (English and Spanish, lower case)
// to its canonical weekday.
var weekdayTokens = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "domingo": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "lunes": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "martes": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "miércoles": time.Wednesday, "miercoles": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "jueves": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "viernes": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "sábado": time.Saturday, "sabado": time.Saturday,
}

// ParseWeekday normalizes one localized weekday token.
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdayTokens[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekdayName, name)
	}
	return wd, nil
}

// WeekdayName is the canonical name stored on scheduled days.
func WeekdayName(wd time.Weekday) string {
	return strings.ToLower(wd.String())
}

// Pattern is a set of weekdays a user trains on.
type Pattern map[time.Weekday]struct{}

// ParseWeekdays builds a Pattern from localized names. Duplicates collapse;
// any unknown token fails the whole call.
func ParseWeekdays(names []string) (Pattern, error) {
	p := make(Pattern, len(names))
	for _, n := range names {
		wd, err := ParseWeekday(n)
		if err != nil {
			return nil, err
		}
		p[wd] = struct{}{}
	}
	return p, nil
}

// PatternOf builds a Pattern from concrete weekdays.
func PatternOf(days ...time.Weekday) Pattern {
	p := make(Pattern, len(days))
	for _, d := range days {
		p[d] = struct{}{}
	}
	return p
}

// InferPattern collects the weekdays present among the given dates.
func InferPattern(dates []domain.Date) Pattern {
	p := make(Pattern)
	for _, d := range dates {
		p[d.Weekday()] = struct{}{}
	}
	return p
}

func (p Pattern) Matches(d domain.Date) bool {
	_, ok := p[d.Weekday()]
	return ok
}

func (p Pattern) Empty() bool { return len(p) == 0 }

// Weekdays returns the members in Sunday..Saturday order.
func (p Pattern) Weekdays() []time.Weekday {
	out := make([]time.Weekday, 0, len(p))
	for wd := range p {
		out = append(out, wd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
