// internal/domain/adjustment.go
package domain

import (
	"errors"
	"fmt"
	"math"
)

// Bounds accepted from the plan-adjustment advisor.
const (
	MinReductionPct = 25.0
	MaxReductionPct = 50.0
	MinRestIncrease = 0.5
	MaxRestIncrease = 1.0
	floorTolerance  = 1e-9
)

var ErrAdjustmentOutOfRange = errors.New("adjustment parameters out of range")

// Adjustment attenuates a workout after a reported failure.
type Adjustment struct {
	RepsReductionPct    float64 `json:"repsReductionPct"`
	LoadReductionPct    float64 `json:"loadReductionPct"`
	RestIncreaseMinutes float64 `json:"restIncreaseMinutes"`
}

// IsZero is true for the relocation-only adjustment.
func (a Adjustment) IsZero() bool { return a == Adjustment{} }

// Validate checks the advisor bounds: both percentages in [25,50] and the rest
// increase in [0.5,1] minutes.
func (a Adjustment) Validate() error {
	for _, v := range []float64{a.RepsReductionPct, a.LoadReductionPct, a.RestIncreaseMinutes} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrAdjustmentOutOfRange)
		}
	}
	if a.RepsReductionPct < MinReductionPct || a.RepsReductionPct > MaxReductionPct {
		return fmt.Errorf("%w: repsReductionPct=%v", ErrAdjustmentOutOfRange, a.RepsReductionPct)
	}
	if a.LoadReductionPct < MinReductionPct || a.LoadReductionPct > MaxReductionPct {
		return fmt.Errorf("%w: loadReductionPct=%v", ErrAdjustmentOutOfRange, a.LoadReductionPct)
	}
	if a.RestIncreaseMinutes < MinRestIncrease || a.RestIncreaseMinutes > MaxRestIncrease {
		return fmt.Errorf("%w: restIncreaseMinutes=%v", ErrAdjustmentOutOfRange, a.RestIncreaseMinutes)
	}
	return nil
}

// Apply mutates every exercise of w in place. The set count never changes.
func (w *Workout) Apply(a Adjustment) {
	if a.IsZero() {
		return
	}
	for i := range w.Exercises {
		sets := &w.Exercises[i].Sets
		for j := range sets.PerSet {
			s := &sets.PerSet[j]
			s.Reps = max(1, reduce(float64(s.Reps), a.RepsReductionPct))
			if !s.Load.Bodyweight {
				s.Load.Kg = float64(max(0, reduce(s.Load.Kg, a.LoadReductionPct)))
			}
		}
		sets.RestMinutes += a.RestIncreaseMinutes
	}
}

// reduce computes floor(v × (1 − pct/100)); multiplying before dividing keeps
// integral inputs exact.
func reduce(v, pct float64) int {
	return int(math.Floor(v*(100-pct)/100 + floorTolerance))
}
