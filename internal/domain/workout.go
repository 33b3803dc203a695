// internal/domain/workout.go
package domain

// Workout is the content of one training session.
type Workout struct {
	Date      Date       `bson:"date" json:"date"`
	Name      string     `bson:"name" json:"name"`
	Exercises []Exercise `bson:"exercises" json:"exercises"`
}

func (w Workout) Clone() Workout {
	cp := w
	cp.Exercises = make([]Exercise, len(w.Exercises))
	for i, e := range w.Exercises {
		ce := e
		if e.Metadata != nil {
			ce.Metadata = make(map[string]string, len(e.Metadata))
			for k, v := range e.Metadata {
				ce.Metadata[k] = v
			}
		}
		ce.Sets.PerSet = append([]SetSpec(nil), e.Sets.PerSet...)
		cp.Exercises[i] = ce
	}
	return cp
}
