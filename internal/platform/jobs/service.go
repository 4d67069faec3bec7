package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"perfeval/internal/domain/evaluation"
	"perfeval/internal/platform/config"
)

const (
	JobAutomaticCreation = "automatic_creation"
	JobIntegrityCheck    = "integrity_check"
)

const jobTimeout = 10 * time.Minute

// Engine is the subset of the evaluation service driven by the clock.
type Engine interface {
	RunDueAutomaticCreation(ctx context.Context) ([]evaluation.RunResult, error)
	CheckIntegrity(ctx context.Context) (evaluation.IntegrityReport, error)
}

type Service struct {
	engine Engine
	cfg    config.Config
	cron   *cron.Cron
}

func New(engine Engine, cfg config.Config) *Service {
	return &Service{
		engine: engine,
		cfg:    cfg,
		cron: cron.New(
			cron.WithParser(config.ScheduleParser()),
			cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
		),
	}
}

// Start registers the configured schedules and starts the cron runner. A
// schedule of "" or "off" disables that job.
func (s *Service) Start(ctx context.Context) error {
	schedules := []struct {
		name string
		expr string
		run  func(context.Context) (any, error)
	}{
		{JobAutomaticCreation, s.cfg.AutoCreationSchedule, func(ctx context.Context) (any, error) {
			return s.engine.RunDueAutomaticCreation(ctx)
		}},
		{JobIntegrityCheck, s.cfg.IntegrityCheckSchedule, func(ctx context.Context) (any, error) {
			return s.engine.CheckIntegrity(ctx)
		}},
	}

	for _, sched := range schedules {
		if sched.expr == "" || sched.expr == "off" {
			continue
		}
		name, run := sched.name, sched.run
		if _, err := s.cron.AddFunc(sched.expr, func() {
			jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()
			_, _ = s.runJob(jobCtx, name, run)
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}
		slog.Info("job scheduled", "job", name, "schedule", sched.expr)
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Service) runJob(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	started := time.Now()
	details, err := run(ctx)
	if err != nil {
		slog.Warn("job run failed", "job", jobType, "duration", time.Since(started), "err", err)
		return details, err
	}
	slog.Info("job run completed", "job", jobType, "duration", time.Since(started), "details", summarize(details))
	return details, nil
}

func summarize(details any) any {
	switch d := details.(type) {
	case []evaluation.RunResult:
		created := 0
		for _, r := range d {
			created += r.Created
		}
		return map[string]int{"periods": len(d), "created": created}
	case evaluation.IntegrityReport:
		return map[string]int{"scanned": d.Scanned, "quarantined": d.Quarantined}
	}
	return details
}

// cronLogger routes robfig/cron diagnostics through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
