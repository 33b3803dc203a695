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
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// Outcomes of renewing one expired period.
const (
	RenewalRenewed          = "renewed"
	RenewalSkippedExisting  = "skipped_existing"
	RenewalSkippedNoPattern = "skipped_no_pattern"
	RenewalFailed           = "failed"
	RenewalGenerationFailed = "generation_failed"
)

// RenewalReport summarizes one run of the job.
type RenewalReport struct {
	Date             domain.Date   `json:"date"`
	Expired          int           `json:"expired"`
	Renewed          int           `json:"renewed"`
	Skipped          int           `json:"skipped"`
	Failed           int           `json:"failed"`
	GenerationFailed int           `json:"generationFailed"`
	DaysMarkedFailed int64         `json:"daysMarkedFailed"`
	Duration         time.Duration `json:"duration"`
}

// RenewalJobConfig tunes the worker pool.
type RenewalJobConfig struct {
	Concurrency int
	TaskTimeout time.Duration
	LockTTL     time.Duration
}

type RenewalJob struct {
	txn        repository.Transactor
	periodRepo repository.PeriodRepository
	dayRepo    repository.ScheduledDayRepository
	userRepo   repository.UserRepository
	planRepo   repository.TrainingPlanRepository
	generator  advisor.PlanGenerator // nil disables plan generation
	archiver   PlanArchiver
	locker     lock.Locker
	clock      clock.Clock
	cfg        RenewalJobConfig
	log        *logger.Logger
	running    sync.Mutex
}

func NewRenewalJob(
	txn repository.Transactor,
	periodRepo repository.PeriodRepository,
	dayRepo repository.ScheduledDayRepository,
	userRepo repository.UserRepository,
	planRepo repository.TrainingPlanRepository,
	generator advisor.PlanGenerator,
	archiver PlanArchiver,
	locker lock.Locker,
	clk clock.Clock,
	cfg RenewalJobConfig,
	log *logger.Logger,
) *RenewalJob {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 2 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &RenewalJob{
		txn:        txn,
		periodRepo: periodRepo,
		dayRepo:    dayRepo,
		userRepo:   userRepo,
		planRepo:   planRepo,
		generator:  generator,
		archiver:   archiver,
		locker:     locker,
		clock:      clk,
		cfg:        cfg,
		log:        log.With("service", "RenewalJob"),
	}
}

// Run renews every period that ends today. Users are processed in parallel
// (bounded), each with its own timeout; one user's failure never stops the rest.
// Overlapping runs in this process are serialized.
func (j *RenewalJob) Run(ctx context.Context) (*RenewalReport, error) {
	j.running.Lock()
	defer j.running.Unlock()

	started := time.Now()
	today := domain.DateOf(j.clock.Now())
	report := &RenewalReport{Date: today}

	periods, err := j.periodRepo.ListEndingOn(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("list expiring periods: %w", err)
	}
	report.Expired = len(periods)

	// Periods of the same user run sequentially inside one task.
	byUser := make(map[primitive.ObjectID][]domain.RoutinePeriod)
	var users []primitive.ObjectID
	for _, p := range periods {
		if _, seen := byUser[p.UserID]; !seen {
			users = append(users, p.UserID)
		}
		byUser[p.UserID] = append(byUser[p.UserID], p)
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(j.cfg.Concurrency)
	for _, userID := range users {
		userPeriods := byUser[userID]
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(ctx, j.cfg.TaskTimeout)
			defer cancel()
			for _, p := range userPeriods {
				outcome, marked := j.renewPeriod(taskCtx, p)
				metrics.RecordRenewal(outcome)

				mu.Lock()
				report.DaysMarkedFailed += marked
				switch outcome {
				case RenewalRenewed:
					report.Renewed++
				case RenewalGenerationFailed:
					report.Renewed++
					report.GenerationFailed++
				case RenewalSkippedExisting, RenewalSkippedNoPattern:
					report.Skipped++
				default:
					report.Failed++
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors

	report.Duration = time.Since(started)
	metrics.ObserveRenewalRun(report.Duration)
	j.log.Info("renewal run finished",
		"date", today, "expired", report.Expired, "renewed", report.Renewed,
		"skipped", report.Skipped, "failed", report.Failed,
		"generationFailed", report.GenerationFailed, "duration", report.Duration)
	return report, nil
}

// renewPeriod expires one period and creates its successor. Pending rows the
// period holds past its end date (repair replacements) move to the successor.
func (j *RenewalJob) renewPeriod(ctx context.Context, period domain.RoutinePeriod) (string, int64) {
	log := j.log.With("userId", period.UserID.Hex(), "periodId", period.ID.Hex())

	marked, err := j.dayRepo.MarkPendingFailedInPeriod(ctx, period.ID, period.EndDate)
	if err != nil {
		log.Error("failed to expire pending days", "error", err)
		return RenewalFailed, 0
	}

	names, err := j.dayRepo.DistinctWeekdays(ctx, period.ID)
	if err != nil {
		log.Error("failed to read period weekdays", "error", err)
		return RenewalFailed, marked
	}
	pattern, err := schedule.ParseWeekdays(names)
	if err != nil {
		log.Error("stored weekday names are invalid", "weekdays", names, "error", err)
		return RenewalFailed, marked
	}
	if pattern.Empty() {
		log.Warn("period has no scheduled days; not renewing")
		return RenewalSkippedNoPattern, marked
	}

	newStart := period.EndDate.AddDays(1)
	next := &domain.RoutinePeriod{
		ID:           primitive.NewObjectID(),
		UserID:       period.UserID,
		StartDate:    newStart,
		EndDate:      newStart.AddDays(domain.PeriodLengthDays),
		SessionStart: period.SessionStart,
		SessionEnd:   period.SessionEnd,
	}

	exists, err := j.periodRepo.ExistsStartingOn(ctx, period.UserID, newStart)
	if err != nil {
		log.Error("idempotency check failed", "error", err)
		return RenewalFailed, marked
	}
	if exists {
		log.Info("successor period already exists", "start", newStart)
		return RenewalSkippedExisting, marked
	}

	entries, err := schedule.Generate(schedule.Request{
		Pattern:      pattern,
		Start:        next.StartDate,
		End:          next.EndDate,
		SessionStart: next.SessionStart,
		SessionEnd:   next.SessionEnd,
	})
	if err != nil {
		log.Error("failed to generate successor schedule", "error", err)
		return RenewalFailed, marked
	}
	days, err := j.withoutExisting(ctx, period.UserID, buildDays(next, entries))
	if err != nil {
		log.Error("failed to check existing days", "error", err)
		return RenewalFailed, marked
	}

	var moved int64
	err = j.txn.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := j.periodRepo.Create(ctx, next); err != nil {
			return fmt.Errorf("create period: %w", err)
		}
		n, err := j.dayRepo.MovePendingAfter(ctx, period.ID, period.EndDate, next)
		if err != nil {
			return fmt.Errorf("carry over replacement days: %w", err)
		}
		moved = n
		return j.dayRepo.CreateMany(ctx, days)
	})
	if err != nil {
		log.Error("failed to persist successor period", "error", err)
		return RenewalFailed, marked
	}
	log.Info("period renewed", "newPeriodId", next.ID.Hex(), "start", next.StartDate, "end", next.EndDate,
		"days", len(days), "carriedOver", moved)

	// Plan content is best effort and never undoes the renewal above.
	if err := j.generatePlan(ctx, period.UserID, daysDates(days)); err != nil {
		log.Warn("plan generation failed after renewal", "error", err)
		return RenewalGenerationFailed, marked
	}
	return RenewalRenewed, marked
}

// withoutExisting drops days the user already has (for example from a
// manually created overlapping period) so the batch insert cannot trip the
// unique index.
func (j *RenewalJob) withoutExisting(ctx context.Context, userID primitive.ObjectID, days []domain.ScheduledDay) ([]domain.ScheduledDay, error) {
	candidates := make([]domain.DayConflict, len(days))
	for i, d := range days {
		candidates[i] = domain.DayConflict{Weekday: d.Weekday, Date: d.Date}
	}
	conflicts, err := j.dayRepo.FindConflicts(ctx, userID, candidates)
	if err != nil || len(conflicts) == 0 {
		return days, err
	}
	taken := make(map[domain.DayConflict]struct{}, len(conflicts))
	for _, c := range conflicts {
		taken[c] = struct{}{}
	}
	kept := days[:0]
	for _, d := range days {
		if _, ok := taken[domain.DayConflict{Weekday: d.Weekday, Date: d.Date}]; !ok {
			kept = append(kept, d)
		}
	}
	j.log.Info("skipping already scheduled days", "userId", userID.Hex(), "count", len(conflicts))
	return kept, nil
}

// generatePlan asks the generator for the new dates and merges the result
// into the user's plan under the per-user plan lock.
func (j *RenewalJob) generatePlan(ctx context.Context, userID primitive.ObjectID, dates []domain.Date) error {
	if j.generator == nil || len(dates) == 0 {
		return nil
	}
	user, err := j.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user profile: %w", err)
	}
	workouts, err := j.generator.GeneratePlan(ctx, userID, user.Profile, dates)
	if err != nil {
		return err
	}

	release, err := j.locker.Lock(ctx, planLockKey(userID), j.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire plan lock: %w", err)
	}
	defer release()

	plan, err := loadPlan(ctx, j.planRepo, userID)
	switch {
	case errors.Is(err, ErrPlanNotFound):
		plan = &domain.TrainingPlan{UserID: userID, SchemaVersion: domain.CurrentPlanSchemaVersion}
	case err != nil:
		// Never overwrite a document we could not read.
		return err
	default:
		j.archiver.Archive(ctx, plan, SnapshotCauseRenewal)
	}

	for _, w := range workouts {
		plan.Upsert(w)
	}
	plan.SortWorkouts()
	if err := j.planRepo.Save(ctx, plan); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	j.log.Info("plan extended", "userId", userID.Hex(), "workouts", len(workouts), "planVersion", plan.Version)
	return nil
}

func planLockKey(userID primitive.ObjectID) string {
	return "plan:" + userID.Hex()
}

func daysDates(days []domain.ScheduledDay) []domain.Date {
	out := make([]domain.Date, len(days))
	for i, d := range days {
		out[i] = d.Date
	}
	return out
}
