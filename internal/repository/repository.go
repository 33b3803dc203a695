package repository

import (
	"alcyxob/routine-planner/internal/domain"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound        = RepositoryError("not found")
	ErrUpdateFailed    = RepositoryError("update failed")
	ErrDuplicate       = RepositoryError("duplicate key")
	ErrVersionConflict = RepositoryError("document was modified concurrently")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn so that every repository call made with the context it
// receives commits or aborts together.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, profile domain.TrainingProfile) error
}

// PeriodRepository stores routine periods.
type PeriodRepository interface {
	Create(ctx context.Context, period *domain.RoutinePeriod) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.RoutinePeriod, error)
	// GetCurrent returns the latest-starting period whose end date is on or after today.
	GetCurrent(ctx context.Context, userID primitive.ObjectID, today domain.Date) (*domain.RoutinePeriod, error)
	ListEndingOn(ctx context.Context, date domain.Date) ([]domain.RoutinePeriod, error)
	ExistsStartingOn(ctx context.Context, userID primitive.ObjectID, date domain.Date) (bool, error)
	// UpdateWindow stores a new end date and session window.
	UpdateWindow(ctx context.Context, id primitive.ObjectID, end domain.Date, sessionStart, sessionEnd string) error
}

// ScheduledDayRepository stores the concrete training days of every period.
type ScheduledDayRepository interface {
	CreateMany(ctx context.Context, days []domain.ScheduledDay) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ScheduledDay, error)
	// FindConflicts returns the subset of candidates that already exist for the user.
	FindConflicts(ctx context.Context, userID primitive.ObjectID, candidates []domain.DayConflict) ([]domain.DayConflict, error)
	ListByPeriod(ctx context.Context, periodID primitive.ObjectID) ([]domain.ScheduledDay, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.ScheduledDay, error)
	ListByUserAndStatus(ctx context.Context, userID primitive.ObjectID, status domain.DayStatus) ([]domain.ScheduledDay, error)
	DistinctWeekdays(ctx context.Context, periodID primitive.ObjectID) ([]string, error)
	// MarkPendingFailedInPeriod fails the period's pending rows dated on or before through.
	MarkPendingFailedInPeriod(ctx context.Context, periodID primitive.ObjectID, through domain.Date) (int64, error)
	// MovePendingAfter reattaches the period's pending rows dated after `after` to `to`.
	MovePendingAfter(ctx context.Context, periodID primitive.ObjectID, after domain.Date, to *domain.RoutinePeriod) (int64, error)
	// MarkFailed flips the given rows to failed if they are still pending.
	MarkFailed(ctx context.Context, ids []primitive.ObjectID) (int64, error)
	// UpdateStatus changes status only if the row is currently in `from`.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to domain.DayStatus) error
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
}

// FailureReportRepository is append-only.
type FailureReportRepository interface {
	Create(ctx context.Context, report *domain.FailureReport) (primitive.ObjectID, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.FailureReport, error)
}

// TrainingPlanRepository keeps one plan document per user.
type TrainingPlanRepository interface {
	// GetByUserID returns ErrNotFound when the user has no plan and an error
	// wrapping domain.ErrPlanSchema when the stored document cannot be decoded.
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingPlan, error)
	// Save overwrites the whole document if it is still at plan.Version and
	// bumps plan.Version; a stale version yields ErrVersionConflict.
	Save(ctx context.Context, plan *domain.TrainingPlan) error
}

// PlanSnapshotRepository stores metadata about archived plan versions.
type PlanSnapshotRepository interface {
	Create(ctx context.Context, snapshot *domain.PlanSnapshot) (primitive.ObjectID, error)
	GetByVersion(ctx context.Context, userID primitive.ObjectID, version int64) (*domain.PlanSnapshot, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.PlanSnapshot, error)
}
