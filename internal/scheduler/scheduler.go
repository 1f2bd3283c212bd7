// Package scheduler wires the occurrence processor to a time-based trigger.
// The processor itself has no timing logic; this package owns the cron
// engine and nothing else.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ticklerhq/tickler/internal/platform/metrics"
	"github.com/ticklerhq/tickler/internal/service/occurrence"
)

// OccurrenceRunner is the slice of the processor the scheduler needs.
type OccurrenceRunner interface {
	ProcessRecurringNotifications(ctx context.Context) occurrence.Result
}

// Scheduler runs occurrence processing on a cron spec, once daily by
// default. Overlapping with a manual trigger on the same day is safe: both
// paths share the processor's ledger-backed idempotency.
type Scheduler struct {
	engine   *cron.Cron
	runner   OccurrenceRunner
	cronSpec string
	logger   *slog.Logger
}

// New creates a Scheduler that triggers the runner per cronSpec, evaluated
// in loc.
func New(runner OccurrenceRunner, cronSpec string, loc *time.Location, log *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		engine:   cron.New(cron.WithLocation(loc)),
		runner:   runner,
		cronSpec: cronSpec,
		logger:   log.With(slog.String("component", "scheduler")),
	}
}

// Start registers the processing job and starts the cron engine.
func (s *Scheduler) Start() error {
	_, err := s.engine.AddFunc(s.cronSpec, s.runOnce)
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.cronSpec, err)
	}

	s.engine.Start()
	s.logger.Info("scheduler started", slog.String("cron_spec", s.cronSpec))
	return nil
}

// Stop stops the cron engine and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.engine.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runOnce() {
	s.logger.Info("cron trigger fired")
	metrics.ProcessingRuns.WithLabelValues("cron").Inc()

	result := s.runner.ProcessRecurringNotifications(context.Background())

	s.logger.Info("scheduled run finished",
		slog.Int("notifications_processed", result.NotificationsProcessed),
		slog.Int("todos_created", result.TodosCreated),
		slog.Int("errors", result.Errors))
}
