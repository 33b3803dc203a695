package schedule

import (
	"alcyxob/routine-planner/internal/domain"
)

// ReplacementDates returns the first n pattern dates strictly after `after`,
// in increasing order. An empty pattern yields nothing.
func ReplacementDates(p Pattern, after domain.Date, n int) []domain.Date {
	if n <= 0 || p.Empty() {
		return nil
	}
	out := make([]domain.Date, 0, n)
	for d := after.AddDays(1); len(out) < n; d = d.AddDays(1) {
		if p.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

// Latest returns the greatest date, or the zero Date for an empty slice.
func Latest(dates []domain.Date) domain.Date {
	var latest domain.Date
	for _, d := range dates {
		if latest.IsZero() || d.After(latest) {
			latest = d
		}
	}
	return latest
}
