package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"perfeval/internal/domain/auth"
)

// TriggerAutomaticCreation is the administrator entry point of the scheduler.
func (s *Service) TriggerAutomaticCreation(ctx context.Context, actor auth.Actor, periodID string) (RunResult, error) {
	if !actor.IsAdmin() {
		return RunResult{PeriodID: periodID}, &AuthorizationError{
			EntityID: periodID,
			Action:   ActionTriggerCreation,
			ActorID:  actor.UserID,
			Role:     actor.Role,
			Reason:   allowAdmin.describe(),
		}
	}
	return s.runAutomaticCreation(ctx, periodID, TriggerManual, actor.UserID)
}

// RunAutomaticCreation creates one evaluation per eligible employee with a
// resolvable manager. Only the first run for a period gets past the gate;
// later or concurrent runs return a ConflictError wrapping ErrAlreadyExecuted.
func (s *Service) RunAutomaticCreation(ctx context.Context, periodID string, trigger Trigger) (RunResult, error) {
	return s.runAutomaticCreation(ctx, periodID, trigger, SystemActorID)
}

// RunDueAutomaticCreation processes every open period whose start date has
// been reached and whose gate is still closed.
func (s *Service) RunDueAutomaticCreation(ctx context.Context) ([]RunResult, error) {
	periods, err := s.store.ListPeriodsDueForCreation(ctx, s.now())
	if err != nil {
		return nil, err
	}
	var results []RunResult
	for _, period := range periods {
		result, err := s.RunAutomaticCreation(ctx, period.ID, TriggerScheduled)
		if err != nil && !errors.Is(err, ErrAlreadyExecuted) {
			slog.Error("automatic creation failed", "period_id", period.ID, "err", err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) runAutomaticCreation(ctx context.Context, periodID string, trigger Trigger, actorID string) (RunResult, error) {
	started := s.now()
	result := RunResult{
		PeriodID: periodID,
		Skipped:  []SkippedEmployee{},
		Errors:   []string{},
	}

	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return result, err
	}
	if period.Status == PeriodStatusClosed {
		return result, &ValidationError{EntityID: periodID, Field: "status", Reason: "period is closed"}
	}

	claimed, err := s.store.ClaimAutomaticCreation(ctx, periodID)
	if err != nil {
		return result, err
	}
	if !claimed {
		result.Outcome = OutcomeAlreadyExecuted
		s.finishRun(ctx, &result, trigger, started)
		return result, &ConflictError{
			EntityID: periodID,
			Action:   ActionTriggerCreation,
			ActorID:  actorID,
			Reason:   "automatic creation already executed",
			cause:    ErrAlreadyExecuted,
		}
	}

	eligible, err := s.ResolveEligible(ctx, periodID)
	if err != nil {
		// Nothing was created yet, so the period can be retried.
		result.Outcome = OutcomeFailed
		result.Errors = append(result.Errors, err.Error())
		if _, releaseErr := s.store.ReleaseAutomaticCreation(ctx, periodID); releaseErr != nil {
			slog.Error("automatic creation gate release failed", "period_id", periodID, "err", releaseErr)
			result.Errors = append(result.Errors, "release gate: "+releaseErr.Error())
		}
		s.finishRun(ctx, &result, trigger, started)
		return result, err
	}

	for _, employeeID := range eligible.UserIDs {
		s.createFor(ctx, period, employeeID, &result)
	}

	result.Outcome = OutcomeCompleted
	if len(result.Errors) > 0 {
		result.Outcome = OutcomeCompletedWithErrors
	}
	s.finishRun(ctx, &result, trigger, started)

	if err := s.store.SetEvaluationsCreated(ctx, periodID, result.Created); err != nil {
		return result, fmt.Errorf("record evaluations created: %w", err)
	}
	return result, nil
}

func (s *Service) createFor(ctx context.Context, period Period, employeeID string, result *RunResult) {
	resolution, err := s.ResolveManager(ctx, employeeID, period.ID)
	if err != nil {
		s.runError(result, employeeID, "resolve manager", err)
		return
	}
	if !resolution.Found {
		result.Skipped = append(result.Skipped, SkippedEmployee{EmployeeID: employeeID, Reason: SkipNoManager})
		return
	}

	active, err := s.identity.IsActive(ctx, resolution.ManagerID)
	if err != nil {
		s.runError(result, employeeID, "check manager", err)
		return
	}
	if !active {
		result.Skipped = append(result.Skipped, SkippedEmployee{EmployeeID: employeeID, Reason: SkipManagerInactive})
		return
	}

	now := s.now()
	e := Evaluation{
		ID:             uuid.NewString(),
		EmployeeID:     employeeID,
		EvaluatorID:    resolution.ManagerID,
		PeriodID:       period.ID,
		Status:         StatusCreated,
		Responses:      map[string]Response{},
		ManagerScores:  map[string]float64{},
		ApprovalStatus: ApprovalPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	created, err := s.store.CreateEvaluation(ctx, e)
	if err != nil {
		s.runError(result, employeeID, "create evaluation", err)
		return
	}
	if !created {
		result.Skipped = append(result.Skipped, SkippedEmployee{EmployeeID: employeeID, Reason: SkipAlreadyExists})
		return
	}

	result.Created++
	s.events.Publish(eventFor(e, ActionCreate, "", StatusCreated, SystemActorID, "", now))
}

func (s *Service) runError(result *RunResult, employeeID, step string, err error) {
	slog.Warn("automatic creation step failed", "period_id", result.PeriodID, "employee_id", employeeID, "step", step, "err", err)
	result.Errors = append(result.Errors, fmt.Sprintf("%s: %s: %v", employeeID, step, err))
}

// finishRun appends the execution log entry. A failed log write does not
// undo the run.
func (s *Service) finishRun(ctx context.Context, result *RunResult, trigger Trigger, started time.Time) {
	entry := CronExecutionLog{
		ID:                 uuid.NewString(),
		PeriodID:           result.PeriodID,
		Trigger:            trigger,
		StartedAt:          started,
		FinishedAt:         s.now(),
		Outcome:            result.Outcome,
		EvaluationsCreated: result.Created,
		Skipped:            result.Skipped,
		Errors:             result.Errors,
	}
	if err := s.store.InsertExecutionLog(ctx, entry); err != nil {
		slog.Error("execution log write failed", "period_id", result.PeriodID, "outcome", result.Outcome, "err", err)
	} else {
		result.LogID = entry.ID
	}

	s.observer.ObserveRun(string(result.Outcome), result.Created)
	slog.Info("automatic creation finished",
		"period_id", result.PeriodID,
		"trigger", trigger,
		"outcome", result.Outcome,
		"created", result.Created,
		"skipped", len(result.Skipped),
		"errors", len(result.Errors),
	)
}
