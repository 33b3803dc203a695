// internal/domain/failure_report.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FailureReason is why a user could not train as scheduled.
type FailureReason string

const (
	ReasonLackOfTime FailureReason = "lack_of_time"
	ReasonSickness   FailureReason = "sickness"
	ReasonInjury     FailureReason = "injury"
	ReasonOther      FailureReason = "other"
)

func (r FailureReason) Valid() bool {
	switch r {
	case ReasonLackOfTime, ReasonSickness, ReasonInjury, ReasonOther:
		return true
	}
	return false
}

// FailureReport is an append-only audit record of a reported training failure.
type FailureReport struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	Reason       FailureReason      `bson:"reason" json:"reason"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	ReportedDate Date               `bson:"reportedDate" json:"reportedDate"`
	ReportedTime string             `bson:"reportedTime" json:"reportedTime"` // HH:MM
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
