package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"alcyxob/routine-planner/internal/logger"
	"alcyxob/routine-planner/internal/service"
)

type countingRunner struct {
	runs atomic.Int32
	err  error
}

func (r *countingRunner) Run(ctx context.Context) (*service.RenewalReport, error) {
	r.runs.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &service.RenewalReport{}, nil
}

func TestNewRejectsBadSpec(t *testing.T) {
	if _, err := New("every day at noon", time.UTC, &countingRunner{}, logger.Nop()); err == nil {
		t.Fatalf("want error for invalid spec")
	}
}

func TestRunOnceSurvivesFailures(t *testing.T) {
	r := &countingRunner{err: errors.New("mongo down")}
	s, err := New("0 5 0 * * *", time.UTC, r, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.runOnce()
	s.runOnce()
	if got := r.runs.Load(); got != 2 {
		t.Fatalf("runs: want=2 got=%d", got)
	}
	s.Stop()
}

func TestSchedulerFires(t *testing.T) {
	r := &countingRunner{}
	s, err := New("* * * * * *", time.UTC, r, logger.Nop()) // every second
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for r.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if r.runs.Load() == 0 {
		t.Fatalf("job did not fire within 3s")
	}
}

// blockingRunner holds each run until its context is cancelled.
type blockingRunner struct {
	started  chan struct{}
	runs     atomic.Int32
	finished atomic.Bool
}

func (r *blockingRunner) Run(ctx context.Context) (*service.RenewalReport, error) {
	r.runs.Add(1)
	r.started <- struct{}{}
	<-ctx.Done()
	r.finished.Store(true)
	return nil, ctx.Err()
}

func TestStopWaitsForRunAndRejectsLateFires(t *testing.T) {
	r := &blockingRunner{started: make(chan struct{}, 1)}
	s, err := New("0 5 0 * * *", time.UTC, r, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	go s.runOnce()
	<-r.started

	s.Stop()
	if !r.finished.Load() {
		t.Fatalf("Stop returned before the run in flight finished")
	}

	// A fire that lost the race with Stop must not start another run.
	s.runOnce()
	if got := r.runs.Load(); got != 1 {
		t.Fatalf("runs: want=1 got=%d", got)
	}
}
