// internal/domain/training_plan.go
package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CurrentPlanSchemaVersion is the shape of Workout/Exercise/SetScheme.
// Documents written before versioning carry 0 and are migrated on read.
const CurrentPlanSchemaVersion = 1

var ErrPlanSchema = errors.New("training plan does not match a supported schema")

// TrainingPlan is the ordered collection of generated workouts for one user,
// stored as a single document and overwritten as a whole.
type TrainingPlan struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	SchemaVersion int                `bson:"schemaVersion" json:"schemaVersion"`
	Version       int64              `bson:"version" json:"version"` // bumped on every overwrite
	Workouts      []Workout          `bson:"workouts" json:"workouts"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Migrate upgrades a plan read from storage to CurrentPlanSchemaVersion and
// checks the invariants the rescheduler relies on.
func (p *TrainingPlan) Migrate() error {
	switch p.SchemaVersion {
	case 0:
		// Pre-versioning documents only lacked the explicit set count.
		for i := range p.Workouts {
			for j := range p.Workouts[i].Exercises {
				sets := &p.Workouts[i].Exercises[j].Sets
				if sets.Count == 0 {
					sets.Count = len(sets.PerSet)
				}
			}
		}
		p.SchemaVersion = CurrentPlanSchemaVersion
	case CurrentPlanSchemaVersion:
	default:
		return fmt.Errorf("%w: version %d", ErrPlanSchema, p.SchemaVersion)
	}
	for i, w := range p.Workouts {
		if w.Date.IsZero() {
			return fmt.Errorf("%w: workout %d has no date", ErrPlanSchema, i)
		}
	}
	return nil
}

// SortWorkouts orders workouts ascending by date.
func (p *TrainingPlan) SortWorkouts() {
	SortWorkouts(p.Workouts)
}

func SortWorkouts(ws []Workout) {
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].Date.Before(ws[j].Date) })
}

// Upsert replaces the workout scheduled on w.Date, or appends w if none is.
func (p *TrainingPlan) Upsert(w Workout) {
	for i := range p.Workouts {
		if p.Workouts[i].Date == w.Date {
			p.Workouts[i] = w
			return
		}
	}
	p.Workouts = append(p.Workouts, w)
}

// Clone returns a deep copy so staged edits never leak into the loaded document.
func (p *TrainingPlan) Clone() *TrainingPlan {
	cp := *p
	cp.Workouts = make([]Workout, len(p.Workouts))
	for i, w := range p.Workouts {
		cp.Workouts[i] = w.Clone()
	}
	return &cp
}
