// Package scheduler fires the daily renewal run.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"alcyxob/routine-planner/internal/logger"
	"alcyxob/routine-planner/internal/service"

	"github.com/robfig/cron"
)

// Runner is the job the scheduler triggers.
type Runner interface {
	Run(ctx context.Context) (*service.RenewalReport, error)
}

type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	log    *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex // guards stopped and wg.Add
	stopped bool
	wg      sync.WaitGroup
}

// New registers runner on spec (seconds first, e.g. "0 5 0 * * *") in loc.
func New(spec string, loc *time.Location, runner Runner, log *logger.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.NewWithLocation(loc),
		runner: runner,
		log:    log.With("service", "Scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}
	if err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid renewal schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("renewal scheduler started")
}

// Stop halts the timer, cancels a run in flight and waits for it to return.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
	s.log.Info("renewal scheduler stopped")
}

func (s *Scheduler) runOnce() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("renewal run panicked", "panic", r)
		}
	}()

	report, err := s.runner.Run(s.ctx)
	if err != nil {
		s.log.Error("renewal run failed", "error", err)
		return
	}
	s.log.Info("renewal run completed", "renewed", report.Renewed, "failed", report.Failed)
}
