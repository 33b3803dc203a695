package schedule

import (
	"errors"
	"testing"
	"time"

	"alcyxob/routine-planner/internal/domain"
)

func d(s string) domain.Date {
	parsed, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestParseWeekdaysMixedVocabulary(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []time.Weekday
	}{
		{"english", []string{"Monday", "wednesday"}, []time.Weekday{time.Monday, time.Wednesday}},
		{"spanish", []string{"Lunes", "MIÉRCOLES", "sábado"}, []time.Weekday{time.Monday, time.Wednesday, time.Saturday}},
		{"unaccented spanish", []string{"miercoles", "sabado"}, []time.Weekday{time.Wednesday, time.Saturday}},
		{"mixed with duplicates", []string{" lunes ", "Monday", "Fri", "viernes"}, []time.Weekday{time.Monday, time.Friday}},
		{"all seven", []string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"},
			[]time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseWeekdays(tt.input)
			if err != nil {
				t.Fatalf("ParseWeekdays: %v", err)
			}
			got := p.Weekdays()
			if len(got) != len(tt.want) {
				t.Fatalf("len: want=%d got=%d (%v)", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("weekday[%d]: want=%v got=%v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestParseWeekdaysRejectsUnknown(t *testing.T) {
	_, err := ParseWeekdays([]string{"monday", "funday"})
	if !errors.Is(err, ErrInvalidWeekdayName) {
		t.Fatalf("want ErrInvalidWeekdayName, got=%v", err)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	valid := map[string]TimeOfDay{"00:00": 0, "07:30": 7*3600 + 30*60, "23:59": 23*3600 + 59*60}
	for in, want := range valid {
		got, err := ParseTimeOfDay(in)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseTimeOfDay(%q): want=%d got=%d", in, want, got)
		}
		if got.String() != in {
			t.Fatalf("String: want=%q got=%q", in, got.String())
		}
	}
	for _, in := range []string{"", "7:30", "24:00", "12:60", "12:00:00", "noon", "07.30"} {
		if _, err := ParseTimeOfDay(in); !errors.Is(err, ErrInvalidTimeFormat) {
			t.Fatalf("ParseTimeOfDay(%q): want ErrInvalidTimeFormat, got=%v", in, err)
		}
	}
}

func TestGenerateOnlyMatchingDatesInsideRange(t *testing.T) {
	patterns := []Pattern{
		PatternOf(time.Monday),
		PatternOf(time.Tuesday, time.Thursday, time.Saturday),
		PatternOf(time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday),
	}
	start, end := d("2024-02-20"), d("2024-03-21") // crosses a leap day
	for _, p := range patterns {
		entries, err := Generate(Request{Pattern: p, Start: start, End: end, SessionStart: "08:00", SessionEnd: "09:00"})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		expected := 0
		for day := start; !day.After(end); day = day.AddDays(1) {
			if p.Matches(day) {
				expected++
			}
		}
		if len(entries) != expected {
			t.Fatalf("count: want=%d got=%d", expected, len(entries))
		}
		for i, e := range entries {
			if !p.Matches(e.Date) || e.Weekday != e.Date.Weekday() {
				t.Fatalf("entry %s does not match pattern", e.Date)
			}
			if e.Date.Before(start) || e.Date.After(end) {
				t.Fatalf("entry %s outside [%s,%s]", e.Date, start, end)
			}
			if i > 0 && !entries[i-1].Date.Before(e.Date) {
				t.Fatalf("entries not strictly increasing at %d", i)
			}
		}
	}
}

func TestGenerateSkipsTodayWhenSessionAlreadyStarted(t *testing.T) {
	p := PatternOf(time.Monday)
	req := Request{Pattern: p, Start: d("2024-06-03"), End: d("2024-06-17"), SessionStart: "18:00", SessionEnd: "19:00"}

	late, _ := ParseTimeOfDay("18:30")
	req.Observer = &Observer{Date: d("2024-06-03"), Time: late}
	entries, err := Generate(req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(entries) != 2 || entries[0].Date != d("2024-06-10") || entries[1].Date != d("2024-06-17") {
		t.Fatalf("late observer: got=%v", Dates(entries))
	}

	early, _ := ParseTimeOfDay("17:59")
	req.Observer = &Observer{Date: d("2024-06-03"), Time: early}
	entries, _ = Generate(req)
	if len(entries) != 3 {
		t.Fatalf("early observer: want 3 entries, got=%v", Dates(entries))
	}

	// exactly at session start is not "later than"
	req.Observer = &Observer{Date: d("2024-06-03"), Time: 18 * 3600}
	entries, _ = Generate(req)
	if len(entries) != 3 {
		t.Fatalf("observer at start: want 3 entries, got=%v", Dates(entries))
	}

	req.Observer = nil
	entries, _ = Generate(req)
	if len(entries) != 3 {
		t.Fatalf("nil observer: want 3 entries, got=%v", Dates(entries))
	}
}

func TestObserverAtUsesLocalCalendar(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 22:30 local on June 3rd is already June 4th in UTC.
	local := time.Date(2024, time.June, 3, 22, 30, 0, 0, loc)
	obs := ObserverAt(local)
	if obs.Date != d("2024-06-03") {
		t.Fatalf("observer date: want=2024-06-03 got=%s", obs.Date)
	}
	if obs.Time.String() != "22:30" {
		t.Fatalf("observer time: want=22:30 got=%s", obs.Time)
	}
}

func TestGenerateValidation(t *testing.T) {
	base := Request{Pattern: PatternOf(time.Monday), Start: d("2024-06-01"), End: d("2024-06-30"), SessionStart: "08:00", SessionEnd: "09:00"}

	bad := base
	bad.SessionStart = "8am"
	if _, err := Generate(bad); !errors.Is(err, ErrInvalidTimeFormat) {
		t.Fatalf("want ErrInvalidTimeFormat, got=%v", err)
	}

	bad = base
	bad.SessionStart, bad.SessionEnd = "09:00", "09:00"
	if _, err := Generate(bad); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("want ErrInvalidTimeRange, got=%v", err)
	}

	bad = base
	bad.Start, bad.End = base.End, base.Start
	if _, err := Generate(bad); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("want ErrInvalidDateRange, got=%v", err)
	}
}

func TestReplacementDates(t *testing.T) {
	p := PatternOf(time.Monday, time.Thursday)
	got := ReplacementDates(p, d("2024-06-17"), 3) // a Monday
	want := []domain.Date{d("2024-06-20"), d("2024-06-24"), d("2024-06-27")}
	if len(got) != len(want) {
		t.Fatalf("len: want=%d got=%d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("date[%d]: want=%s got=%s", i, want[i], got[i])
		}
	}
	if ReplacementDates(p, d("2024-06-17"), 0) != nil {
		t.Fatalf("n=0 should yield nil")
	}
	if ReplacementDates(Pattern{}, d("2024-06-17"), 2) != nil {
		t.Fatalf("empty pattern should yield nil")
	}
}

func TestInferPatternAndLatest(t *testing.T) {
	dates := []domain.Date{d("2024-06-10"), d("2024-06-03"), d("2024-06-05")}
	p := InferPattern(dates)
	if len(p) != 2 || !p.Matches(d("2024-06-24")) || !p.Matches(d("2024-06-26")) {
		t.Fatalf("InferPattern: got=%v", p.Weekdays())
	}
	if Latest(dates) != d("2024-06-10") {
		t.Fatalf("Latest: want=2024-06-10 got=%s", Latest(dates))
	}
	if !Latest(nil).IsZero() {
		t.Fatalf("Latest(nil) should be zero")
	}
}
