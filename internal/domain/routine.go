// internal/domain/routine.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PeriodLengthDays is how far EndDate lies after StartDate for a generated period.
const PeriodLengthDays = 30

// DayStatus tracks a scheduled day through its (short) lifecycle.
type DayStatus string

const (
	DayPending   DayStatus = "pending"
	DayCompleted DayStatus = "completed"
	DayFailed    DayStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s DayStatus) Valid() bool {
	switch s {
	case DayPending, DayCompleted, DayFailed:
		return true
	}
	return false
}

// CanTransitionTo allows only pending -> completed and pending -> failed.
func (s DayStatus) CanTransitionTo(next DayStatus) bool {
	return s == DayPending && (next == DayCompleted || next == DayFailed)
}

// RoutinePeriod is a (nominally 30-day) window of recurring training sessions.
type RoutinePeriod struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	StartDate    Date               `bson:"startDate" json:"startDate"`
	EndDate      Date               `bson:"endDate" json:"endDate"`
	SessionStart string             `bson:"sessionStart" json:"sessionStart"` // HH:MM
	SessionEnd   string             `bson:"sessionEnd" json:"sessionEnd"`     // HH:MM
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ScheduledDay is one concrete training occurrence inside a period.
// (UserID, Weekday, Date) is unique.
type ScheduledDay struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	PeriodID     primitive.ObjectID `bson:"periodId" json:"periodId"`
	Weekday      string             `bson:"weekday" json:"weekday"` // canonical lower-case English name
	Date         Date               `bson:"date" json:"date"`
	PeriodStart  Date               `bson:"periodStart" json:"periodStart"` // denormalized from the period
	PeriodEnd    Date               `bson:"periodEnd" json:"periodEnd"`
	SessionStart string             `bson:"sessionStart" json:"sessionStart"`
	SessionEnd   string             `bson:"sessionEnd" json:"sessionEnd"`
	Status       DayStatus          `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DayConflict is an already-scheduled (weekday, date) pair that blocks an insert.
type DayConflict struct {
	Weekday string `json:"weekday"`
	Date    Date   `json:"date"`
}

// String renders the conflict for display, e.g. "monday 03/06/2024".
func (c DayConflict) String() string {
	return c.Weekday + " " + c.Date.Display()
}
