package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanSnapshot stores metadata about an archived plan version.
// The JSON document itself resides in object storage.
type PlanSnapshot struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	PlanVersion int64              `bson:"planVersion" json:"planVersion"`
	ObjectKey   string             `bson:"objectKey" json:"-"` // key in the bucket, internal use
	Cause       string             `bson:"cause" json:"cause"` // "repair", "renewal"
	Size        int64              `bson:"size" json:"size"`
	ArchivedAt  time.Time          `bson:"archivedAt" json:"archivedAt"`
}
