package service

import (
	"alcyxob/routine-planner/internal/advisor"
	"alcyxob/routine-planner/internal/clock"
	"alcyxob/routine-planner/internal/domain"
	"alcyxob/routine-planner/internal/lock"
	"alcyxob/routine-planner/internal/logger"
	"alcyxob/routine-planner/internal/metrics"
	"alcyxob/routine-planner/internal/repository"
	"alcyxob/routine-planner/internal/schedule"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RepairInput is a user's report that they could not train as scheduled.
type RepairInput struct {
	UserID       primitive.ObjectID
	Reason       domain.FailureReason
	Description  string
	ReportedDate domain.Date // zero means today
	ReportedTime string      // HH:MM, empty means now
}

// RepairResult previews the touched part of the plan. The rest of the plan
// is left as it was and is not returned.
type RepairResult struct {
	ReportID         primitive.ObjectID `json:"reportId"`
	Changed          bool               `json:"changed"`
	Adjustment       domain.Adjustment  `json:"adjustment"`
	FailedDates      []domain.Date      `json:"failedDates"`
	ReplacementDates []domain.Date      `json:"replacementDates"`
	Workouts         []domain.Workout   `json:"workouts"`
	PlanVersion      int64              `json:"planVersion,omitempty"`
}

type RescheduleService interface {
	Repair(ctx context.Context, in RepairInput) (*RepairResult, error)
	ListReports(ctx context.Context, userID primitive.ObjectID) ([]domain.FailureReport, error)
}

// repairLockMargin covers the plan archive upload and the commit that follow
// the advisor call while the plan lock is held.
const repairLockMargin = 15 * time.Second

// RescheduleConfig holds the time bounds of a repair.
type RescheduleConfig struct {
	LockTTL        time.Duration // lease on the per-user plan lock
	LockWait       time.Duration // how long to queue behind another repair
	AdvisorTimeout time.Duration
}

type rescheduleService struct {
	txn        repository.Transactor
	reportRepo repository.FailureReportRepository
	dayRepo    repository.ScheduledDayRepository
	planRepo   repository.TrainingPlanRepository
	advisor    advisor.Advisor // nil: every non lack_of_time repair is ErrAdvisorUnavailable
	archiver   PlanArchiver
	locker     lock.Locker
	clock      clock.Clock
	cfg        RescheduleConfig
	log        *logger.Logger
}

func NewRescheduleService(
	txn repository.Transactor,
	reportRepo repository.FailureReportRepository,
	dayRepo repository.ScheduledDayRepository,
	planRepo repository.TrainingPlanRepository,
	adv advisor.Advisor,
	archiver PlanArchiver,
	locker lock.Locker,
	clk clock.Clock,
	cfg RescheduleConfig,
	log *logger.Logger,
) RescheduleService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = 10 * time.Second
	}
	if cfg.AdvisorTimeout <= 0 {
		cfg.AdvisorTimeout = 20 * time.Second
	}
	log = log.With("service", "RescheduleService")
	// The lease must outlive the advisor call plus the archive and commit.
	if floor := cfg.AdvisorTimeout + repairLockMargin; cfg.LockTTL < floor {
		log.Warn("plan lock TTL shorter than a repair; raising it",
			"lockTTL", cfg.LockTTL, "advisorTimeout", cfg.AdvisorTimeout, "raisedTo", floor)
		cfg.LockTTL = floor
	}
	return &rescheduleService{
		txn:        txn,
		reportRepo: reportRepo,
		dayRepo:    dayRepo,
		planRepo:   planRepo,
		advisor:    adv,
		archiver:   archiver,
		locker:     locker,
		clock:      clk,
		cfg:        cfg,
		log:        log,
	}
}

// repairPlan is everything a repair will write, computed before any write.
type repairPlan struct {
	failedIDs       []primitive.ObjectID
	replacementDays []domain.ScheduledDay
	plan            *domain.TrainingPlan
	original        *domain.TrainingPlan
	result          *RepairResult
}

// Repair records the failure, then relocates and (unless the reason is lack
// of time) lightens the affected workouts. Only the failure report is written
// before the whole repair has been computed and validated; the status
// updates, replacement days and plan overwrite commit in one transaction.
func (s *rescheduleService) Repair(ctx context.Context, in RepairInput) (*RepairResult, error) {
	if !in.Reason.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFailureReason, in.Reason)
	}
	now := s.clock.Now()
	if in.ReportedDate.IsZero() {
		in.ReportedDate = domain.DateOf(now)
	}
	if in.ReportedTime == "" {
		in.ReportedTime = schedule.TimeOfDayOf(now).String()
	} else if _, err := schedule.ParseTimeOfDay(in.ReportedTime); err != nil {
		return nil, err
	}
	log := s.log.With("userId", in.UserID.Hex(), "reason", in.Reason)

	report := &domain.FailureReport{
		UserID:       in.UserID,
		Reason:       in.Reason,
		Description:  in.Description,
		ReportedDate: in.ReportedDate,
		ReportedTime: in.ReportedTime,
	}
	reportID, err := s.reportRepo.Create(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("record failure report: %w", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockWait)
	release, err := s.locker.Lock(lockCtx, planLockKey(in.UserID), s.cfg.LockTTL)
	cancel()
	if err != nil {
		metrics.RecordRepair(string(in.Reason), "locked")
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, ErrRepairInProgress
		}
		return nil, err
	}
	defer release()

	staged, err := s.stage(ctx, in, reportID)
	if err != nil {
		metrics.RecordRepair(string(in.Reason), outcomeOf(err))
		log.Warn("repair aborted", "reportId", reportID.Hex(), "error", err)
		return nil, err
	}
	if !staged.result.Changed {
		metrics.RecordRepair(string(in.Reason), "noop")
		log.Info("nothing pending; failure recorded only", "reportId", reportID.Hex())
		return staged.result, nil
	}

	s.archiver.Archive(ctx, staged.original, SnapshotCauseRepair)

	// The transactor may rerun fn after a transient error, so every attempt
	// saves a fresh copy of the staged plan at its loaded version.
	var saved domain.TrainingPlan
	err = s.txn.WithinTransaction(ctx, func(ctx context.Context) error {
		saved = *staged.plan
		if _, err := s.dayRepo.MarkFailed(ctx, staged.failedIDs); err != nil {
			return fmt.Errorf("mark overdue days failed: %w", err)
		}
		if err := s.dayRepo.CreateMany(ctx, staged.replacementDays); err != nil {
			return fmt.Errorf("create replacement days: %w", err)
		}
		if err := s.planRepo.Save(ctx, &saved); err != nil {
			return fmt.Errorf("save repaired plan: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.RecordRepair(string(in.Reason), "error")
		log.Error("repair commit failed", "reportId", reportID.Hex(), "error", err)
		return nil, err
	}

	staged.result.PlanVersion = saved.Version
	metrics.RecordRepair(string(in.Reason), "repaired")
	log.Info("plan repaired",
		"reportId", reportID.Hex(), "failed", len(staged.failedIDs),
		"replacements", len(staged.result.ReplacementDates), "planVersion", saved.Version)
	return staged.result, nil
}

// stage computes the repair in memory.
func (s *rescheduleService) stage(ctx context.Context, in RepairInput, reportID primitive.ObjectID) (*repairPlan, error) {
	result := &RepairResult{ReportID: reportID}

	pending, err := s.dayRepo.ListByUserAndStatus(ctx, in.UserID, domain.DayPending)
	if err != nil {
		return nil, fmt.Errorf("load pending days: %w", err)
	}
	if len(pending) == 0 {
		return &repairPlan{result: result}, nil
	}

	// Partition pending days around the reported date.
	var past []domain.ScheduledDay
	pastDates := make(map[domain.Date]bool)
	keepDates := make(map[domain.Date]bool)
	for _, d := range pending {
		if d.Date.Before(in.ReportedDate) {
			past = append(past, d)
			pastDates[d.Date] = true
		} else {
			keepDates[d.Date] = true
		}
	}

	// The pattern and the replacement anchor come from the full history.
	history, err := s.dayRepo.ListByUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("load schedule history: %w", err)
	}
	historyDates := daysDates(history)
	pattern := schedule.InferPattern(historyDates)
	latest := schedule.Latest(historyDates)
	replacements := schedule.ReplacementDates(pattern, latest, len(past))
	for _, d := range replacements {
		keepDates[d] = true
	}

	original, err := loadPlan(ctx, s.planRepo, in.UserID)
	if err != nil {
		return nil, err
	}

	adj, err := s.resolveAdjustment(ctx, in.Reason, in.Description)
	if err != nil {
		return nil, err
	}
	if len(past) == 0 && adj.IsZero() {
		// Nothing overdue and nothing to lighten.
		return &repairPlan{result: result}, nil
	}

	// Work on a copy; original stays as loaded for the archive.
	plan := original.Clone()
	var relocated, keep, rest []domain.Workout
	for _, w := range plan.Workouts {
		switch {
		case pastDates[w.Date]:
			relocated = append(relocated, w)
		case keepDates[w.Date]:
			keep = append(keep, w)
			rest = append(rest, w)
		default:
			rest = append(rest, w)
		}
	}
	for i := range relocated {
		relocated[i].Apply(adj)
	}
	for i := range keep {
		keep[i].Apply(adj)
	}

	// Zip relocated workouts, oldest first, with the replacement dates.
	if len(relocated) > len(replacements) {
		s.log.Warn("more overdue workouts than replacement dates; extras dropped",
			"userId", in.UserID.Hex(), "workouts", len(relocated), "dates", len(replacements))
		relocated = relocated[:len(replacements)]
	}
	for i := range relocated {
		relocated[i].Date = replacements[i]
	}

	plan.Workouts = rest
	for _, w := range keep {
		plan.Upsert(w)
	}
	plan.Workouts = append(plan.Workouts, relocated...)
	plan.SortWorkouts()

	preview := append(append([]domain.Workout{}, keep...), relocated...)
	domain.SortWorkouts(preview)

	failedIDs := make([]primitive.ObjectID, len(past))
	failedDates := make([]domain.Date, len(past))
	for i, d := range past {
		failedIDs[i] = d.ID
		failedDates[i] = d.Date
	}
	domain.SortDates(failedDates)

	result.Changed = true
	result.Adjustment = adj
	result.FailedDates = failedDates
	result.ReplacementDates = replacements
	result.Workouts = preview

	return &repairPlan{
		failedIDs:       failedIDs,
		replacementDays: replacementDays(history, latest, replacements),
		plan:            plan,
		original:        original,
		result:          result,
	}, nil
}

// resolveAdjustment returns the zero adjustment for lack of time and the
// validated advisor suggestion otherwise.
func (s *rescheduleService) resolveAdjustment(ctx context.Context, reason domain.FailureReason, description string) (domain.Adjustment, error) {
	if reason == domain.ReasonLackOfTime {
		return domain.Adjustment{}, nil
	}
	if s.advisor == nil {
		return domain.Adjustment{}, ErrAdvisorUnavailable
	}

	advCtx, cancel := context.WithTimeout(ctx, s.cfg.AdvisorTimeout)
	defer cancel()
	adj, err := s.advisor.SuggestAdjustment(advCtx, reason, description)
	if err != nil {
		if errors.Is(err, advisor.ErrMalformedResponse) {
			return domain.Adjustment{}, fmt.Errorf("%w: %v", ErrInvalidAdjustmentParameters, err)
		}
		return domain.Adjustment{}, fmt.Errorf("%w: %v", ErrAdvisorUnavailable, err)
	}
	if err := adj.Validate(); err != nil {
		return domain.Adjustment{}, fmt.Errorf("%w: %v", ErrInvalidAdjustmentParameters, err)
	}
	return adj, nil
}

func (s *rescheduleService) ListReports(ctx context.Context, userID primitive.ObjectID) ([]domain.FailureReport, error) {
	return s.reportRepo.ListByUser(ctx, userID)
}

// replacementDays builds pending rows for the replacement dates. Each row
// takes the period and session window of the history row whose period covers
// its date, or of the latest scheduled day when none does.
func replacementDays(history []domain.ScheduledDay, latest domain.Date, dates []domain.Date) []domain.ScheduledDay {
	if len(dates) == 0 {
		return nil
	}
	var anchor domain.ScheduledDay
	for _, d := range history {
		if d.Date == latest {
			anchor = d
			break
		}
	}
	days := make([]domain.ScheduledDay, len(dates))
	for i, date := range dates {
		owner := coveringDay(history, date, anchor)
		days[i] = domain.ScheduledDay{
			ID:           primitive.NewObjectID(),
			UserID:       anchor.UserID,
			PeriodID:     owner.PeriodID,
			Weekday:      schedule.WeekdayName(date.Weekday()),
			Date:         date,
			PeriodStart:  owner.PeriodStart,
			PeriodEnd:    owner.PeriodEnd,
			SessionStart: owner.SessionStart,
			SessionEnd:   owner.SessionEnd,
			Status:       domain.DayPending,
		}
	}
	return days
}

func coveringDay(history []domain.ScheduledDay, date domain.Date, fallback domain.ScheduledDay) domain.ScheduledDay {
	for _, d := range history {
		if d.PeriodStart.IsZero() || d.PeriodEnd.IsZero() {
			continue
		}
		if !date.Before(d.PeriodStart) && !date.After(d.PeriodEnd) {
			return d
		}
	}
	return fallback
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrPlanNotFound):
		return "plan_not_found"
	case errors.Is(err, ErrPlanMalformed):
		return "plan_malformed"
	case errors.Is(err, ErrInvalidAdjustmentParameters):
		return "invalid_adjustment"
	case errors.Is(err, ErrAdvisorUnavailable):
		return "advisor_unavailable"
	}
	return "error"
}
