package service

import (
	"errors"
	"strings"

	"alcyxob/routine-planner/internal/domain"
)

// --- Routine / repair error definitions ---
var (
	ErrNoDaysSelected              = errors.New("at least one training day must be selected")
	ErrPeriodNotFound              = errors.New("no current routine period")
	ErrDayNotFound                 = errors.New("scheduled day not found")
	ErrInvalidStatusTransition     = errors.New("only pending days can be completed or failed")
	ErrInvalidFailureReason        = errors.New("invalid failure reason")
	ErrPlanNotFound                = errors.New("training plan not found")
	ErrPlanMalformed               = errors.New("training plan is malformed")
	ErrInvalidAdjustmentParameters = errors.New("advisor returned invalid adjustment parameters")
	ErrAdvisorUnavailable          = errors.New("plan adjustment advisor unavailable")
	ErrDuplicateScheduleConflict   = errors.New("schedule conflicts with existing days")
	ErrRepairInProgress            = errors.New("another repair is in progress for this user")
	ErrSnapshotNotFound            = errors.New("plan snapshot not found")
	ErrArchiveDisabled             = errors.New("plan archive is not configured")
)

// ConflictError lists every (weekday, date) that blocked a batch insert.
// errors.Is(err, ErrDuplicateScheduleConflict) holds for it.
type ConflictError struct {
	Conflicts []domain.DayConflict
}

func (e *ConflictError) Error() string {
	return ErrDuplicateScheduleConflict.Error() + ": " + strings.Join(e.Formatted(), ", ")
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrDuplicateScheduleConflict
}

// Formatted renders each conflict as "weekday DD/MM/YYYY".
func (e *ConflictError) Formatted() []string {
	out := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		out[i] = c.String()
	}
	return out
}
