// Package clock abstracts "now" so local-date decisions can be pinned in tests.
package clock

import "time"

// Clock reports the current time in the service's local zone.
type Clock interface {
	Now() time.Time
}

// System reads the platform clock and converts it to Location.
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now()
	}
	return time.Now().In(s.Location)
}

// Fixed always returns T.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }
