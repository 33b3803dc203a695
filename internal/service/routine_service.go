package service

import (
	"alcyxob/routine-planner/internal/clock"
	"alcyxob/routine-planner/internal/domain"
	"alcyxob/routine-planner/internal/logger"
	"alcyxob/routine-planner/internal/repository"
	"alcyxob/routine-planner/internal/schedule"
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreatePeriodInput is what a user submits to start a new routine.
type CreatePeriodInput struct {
	UserID       primitive.ObjectID
	Weekdays     []string    // localized names, e.g. "monday", "miércoles"
	StartDate    domain.Date // zero means today
	SessionStart string      // HH:MM
	SessionEnd   string      // HH:MM
	ObserverTime string      // optional HH:MM of the caller; defaults to the service clock
}

// AppendDaysInput adds days to the user's current period within explicit bounds.
type AppendDaysInput struct {
	UserID       primitive.ObjectID
	Weekdays     []string
	StartDate    domain.Date
	EndDate      domain.Date
	SessionStart string // empty keeps the period's session window
	SessionEnd   string
	ObserverTime string
}

// PeriodView is a period together with its scheduled days, ordered by date.
type PeriodView struct {
	Period *domain.RoutinePeriod `json:"period"`
	Days   []domain.ScheduledDay `json:"days"`
}

type RoutineService interface {
	CreatePeriod(ctx context.Context, in CreatePeriodInput) (*PeriodView, error)
	AppendToPeriod(ctx context.Context, in AppendDaysInput) (*PeriodView, error)
	GetPeriod(ctx context.Context, userID primitive.ObjectID) (*PeriodView, error)
	UpdateDayStatus(ctx context.Context, userID, dayID primitive.ObjectID, status domain.DayStatus) (*domain.ScheduledDay, error)
	DeleteDay(ctx context.Context, userID, dayID primitive.ObjectID) error
}

type routineService struct {
	txn        repository.Transactor
	periodRepo repository.PeriodRepository
	dayRepo    repository.ScheduledDayRepository
	clock      clock.Clock
	log        *logger.Logger
}

func NewRoutineService(
	txn repository.Transactor,
	periodRepo repository.PeriodRepository,
	dayRepo repository.ScheduledDayRepository,
	clk clock.Clock,
	log *logger.Logger,
) RoutineService {
	return &routineService{
		txn:        txn,
		periodRepo: periodRepo,
		dayRepo:    dayRepo,
		clock:      clk,
		log:        log.With("service", "RoutineService"),
	}
}

// CreatePeriod schedules a fresh 30-day period. Either every generated day is
// stored or none is.
func (s *routineService) CreatePeriod(ctx context.Context, in CreatePeriodInput) (*PeriodView, error) {
	pattern, err := parsePattern(in.Weekdays)
	if err != nil {
		return nil, err
	}
	observer, err := s.observer(in.ObserverTime)
	if err != nil {
		return nil, err
	}

	// Periods never start in the past.
	start := in.StartDate
	if start.IsZero() || start.Before(observer.Date) {
		start = observer.Date
	}
	period := &domain.RoutinePeriod{
		ID:           primitive.NewObjectID(),
		UserID:       in.UserID,
		StartDate:    start,
		EndDate:      start.AddDays(domain.PeriodLengthDays),
		SessionStart: in.SessionStart,
		SessionEnd:   in.SessionEnd,
	}

	entries, err := schedule.Generate(schedule.Request{
		Pattern:      pattern,
		Start:        period.StartDate,
		End:          period.EndDate,
		SessionStart: period.SessionStart,
		SessionEnd:   period.SessionEnd,
		Observer:     observer,
	})
	if err != nil {
		return nil, err
	}
	days := buildDays(period, entries)

	if err := s.checkConflicts(ctx, in.UserID, days); err != nil {
		return nil, err
	}

	err = s.txn.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.periodRepo.Create(ctx, period); err != nil {
			return fmt.Errorf("create period: %w", err)
		}
		if err := s.dayRepo.CreateMany(ctx, days); err != nil {
			return fmt.Errorf("create scheduled days: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.conflictOrErr(ctx, in.UserID, days, err)
	}

	s.log.Info("routine period created",
		"userId", in.UserID.Hex(), "periodId", period.ID.Hex(),
		"start", period.StartDate, "end", period.EndDate, "days", len(days))
	return &PeriodView{Period: period, Days: days}, nil
}

// AppendToPeriod adds pattern days between explicit bounds to the current
// period, extending its end date when needed. A session override becomes the
// period's stored window. It honours the same uniqueness check as CreatePeriod.
func (s *routineService) AppendToPeriod(ctx context.Context, in AppendDaysInput) (*PeriodView, error) {
	pattern, err := parsePattern(in.Weekdays)
	if err != nil {
		return nil, err
	}
	observer, err := s.observer(in.ObserverTime)
	if err != nil {
		return nil, err
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", schedule.ErrInvalidDateRange)
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, fmt.Errorf("%w: %s > %s", schedule.ErrInvalidDateRange, in.StartDate, in.EndDate)
	}

	period, err := s.periodRepo.GetCurrent(ctx, in.UserID, observer.Date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPeriodNotFound
		}
		return nil, err
	}

	start := in.StartDate
	if start.Before(observer.Date) {
		start = observer.Date
	}
	if in.EndDate.Before(start) {
		return nil, fmt.Errorf("%w: end %s is in the past", schedule.ErrInvalidDateRange, in.EndDate)
	}

	updated := *period
	if in.SessionStart != "" {
		updated.SessionStart = in.SessionStart
	}
	if in.SessionEnd != "" {
		updated.SessionEnd = in.SessionEnd
	}
	extend := in.EndDate.After(period.EndDate)
	if extend {
		updated.EndDate = in.EndDate
	}
	reshaped := extend || updated.SessionStart != period.SessionStart || updated.SessionEnd != period.SessionEnd

	entries, err := schedule.Generate(schedule.Request{
		Pattern:      pattern,
		Start:        start,
		End:          in.EndDate,
		SessionStart: updated.SessionStart,
		SessionEnd:   updated.SessionEnd,
		Observer:     observer,
	})
	if err != nil {
		return nil, err
	}
	days := buildDays(&updated, entries)
	if len(days) == 0 {
		return &PeriodView{Period: period}, nil
	}

	if err := s.checkConflicts(ctx, in.UserID, days); err != nil {
		return nil, err
	}

	err = s.txn.WithinTransaction(ctx, func(ctx context.Context) error {
		if reshaped {
			err := s.periodRepo.UpdateWindow(ctx, period.ID, updated.EndDate, updated.SessionStart, updated.SessionEnd)
			if err != nil {
				return fmt.Errorf("update period window: %w", err)
			}
		}
		if err := s.dayRepo.CreateMany(ctx, days); err != nil {
			return fmt.Errorf("append scheduled days: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.conflictOrErr(ctx, in.UserID, days, err)
	}

	s.log.Info("days appended to period",
		"userId", in.UserID.Hex(), "periodId", period.ID.Hex(), "days", len(days), "extended", extend)

	stored, err := s.periodRepo.GetByID(ctx, period.ID)
	if err != nil {
		return nil, fmt.Errorf("reload period: %w", err)
	}
	return &PeriodView{Period: stored, Days: days}, nil
}

func (s *routineService) GetPeriod(ctx context.Context, userID primitive.ObjectID) (*PeriodView, error) {
	today := domain.DateOf(s.clock.Now())
	period, err := s.periodRepo.GetCurrent(ctx, userID, today)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPeriodNotFound
		}
		return nil, err
	}
	days, err := s.dayRepo.ListByPeriod(ctx, period.ID)
	if err != nil {
		return nil, err
	}
	return &PeriodView{Period: period, Days: days}, nil
}

// UpdateDayStatus allows pending -> completed and pending -> failed only.
func (s *routineService) UpdateDayStatus(ctx context.Context, userID, dayID primitive.ObjectID, status domain.DayStatus) (*domain.ScheduledDay, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, status)
	}
	day, err := s.dayRepo.GetByID(ctx, dayID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDayNotFound
		}
		return nil, err
	}
	if day.UserID != userID {
		return nil, ErrDayNotFound
	}
	if !day.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, day.Status, status)
	}

	if err := s.dayRepo.UpdateStatus(ctx, dayID, day.Status, status); err != nil {
		if errors.Is(err, repository.ErrUpdateFailed) {
			// Someone moved it off pending in between.
			return nil, ErrInvalidStatusTransition
		}
		return nil, err
	}
	day.Status = status
	return day, nil
}

func (s *routineService) DeleteDay(ctx context.Context, userID, dayID primitive.ObjectID) error {
	if err := s.dayRepo.Delete(ctx, dayID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDayNotFound
		}
		return err
	}
	s.log.Info("scheduled day deleted", "userId", userID.Hex(), "dayId", dayID.Hex())
	return nil
}

// observer returns the caller's local date and time. The date always comes
// from the clock; an explicit HH:MM only overrides the time of day.
func (s *routineService) observer(hhmm string) (*schedule.Observer, error) {
	obs := schedule.ObserverAt(s.clock.Now())
	if hhmm != "" {
		t, err := schedule.ParseTimeOfDay(hhmm)
		if err != nil {
			return nil, err
		}
		obs.Time = t
	}
	return obs, nil
}

// checkConflicts fails with *ConflictError listing every clash, sorted by date.
func (s *routineService) checkConflicts(ctx context.Context, userID primitive.ObjectID, days []domain.ScheduledDay) error {
	candidates := make([]domain.DayConflict, len(days))
	for i, d := range days {
		candidates[i] = domain.DayConflict{Weekday: d.Weekday, Date: d.Date}
	}
	conflicts, err := s.dayRepo.FindConflicts(ctx, userID, candidates)
	if err != nil {
		return fmt.Errorf("check schedule conflicts: %w", err)
	}
	if len(conflicts) == 0 {
		return nil
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Date.Before(conflicts[j].Date) })
	return &ConflictError{Conflicts: conflicts}
}

// conflictOrErr turns a unique-index violation from a lost race into the
// same ConflictError the pre-check would have produced.
func (s *routineService) conflictOrErr(ctx context.Context, userID primitive.ObjectID, days []domain.ScheduledDay, err error) error {
	if !errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	if cerr := s.checkConflicts(ctx, userID, days); cerr != nil {
		return cerr
	}
	return &ConflictError{}
}

func parsePattern(names []string) (schedule.Pattern, error) {
	if len(names) == 0 {
		return nil, ErrNoDaysSelected
	}
	pattern, err := schedule.ParseWeekdays(names)
	if err != nil {
		return nil, err
	}
	if pattern.Empty() {
		return nil, ErrNoDaysSelected
	}
	return pattern, nil
}

// buildDays turns generated entries into pending rows of period.
func buildDays(period *domain.RoutinePeriod, entries []schedule.Entry) []domain.ScheduledDay {
	days := make([]domain.ScheduledDay, len(entries))
	for i, e := range entries {
		days[i] = domain.ScheduledDay{
			ID:           primitive.NewObjectID(),
			UserID:       period.UserID,
			PeriodID:     period.ID,
			Weekday:      e.WeekdayName(),
			Date:         e.Date,
			PeriodStart:  period.StartDate,
			PeriodEnd:    period.EndDate,
			SessionStart: period.SessionStart,
			SessionEnd:   period.SessionEnd,
			Status:       domain.DayPending,
		}
	}
	return days
}
