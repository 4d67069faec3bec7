package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
)

type prepareFunc func(ctx context.Context, e Evaluation, u *TransitionUpdate) error

// SubmitSelfAssessment records the employee's ratings and hands the
// evaluation to the manager.
func (s *Service) SubmitSelfAssessment(ctx context.Context, actor auth.Actor, evaluationID string, responses map[string]Response) (Evaluation, error) {
	return s.transition(ctx, actor, evaluationID, ActionSubmitSelfAssessment, func(ctx context.Context, e Evaluation, u *TransitionUpdate) error {
		if len(responses) == 0 {
			return &ValidationError{EntityID: e.ID, Field: "responses", Reason: "at least one response is required"}
		}
		for questionID, response := range responses {
			if err := s.validateRating(e.ID, questionID, response.Score); err != nil {
				return err
			}
		}

		period, err := s.store.GetPeriod(ctx, e.PeriodID)
		if err != nil {
			return err
		}
		if period.Status == PeriodStatusClosed {
			return &ValidationError{EntityID: e.ID, Field: "period", Reason: "period is closed"}
		}
		if deadlinePassed(period.SelfAssessmentDeadline, u.At) {
			return &ValidationError{EntityID: e.ID, Field: "self_assessment_deadline", Reason: "self-assessment deadline has passed"}
		}

		u.Responses = responses
		return nil
	})
}

func (s *Service) ApproveByManager(ctx context.Context, actor auth.Actor, evaluationID, comment string, managerScores map[string]float64) (Evaluation, error) {
	return s.transition(ctx, actor, evaluationID, ActionApproveByManager, func(_ context.Context, e Evaluation, u *TransitionUpdate) error {
		comment = strings.TrimSpace(comment)
		if comment == "" {
			return &ValidationError{EntityID: e.ID, Field: "comment", Reason: "manager comment is required"}
		}
		for questionID, score := range managerScores {
			if err := s.validateRating(e.ID, questionID, score); err != nil {
				return err
			}
		}
		if managerScores == nil {
			managerScores = map[string]float64{}
		}
		u.EvaluatorComment = &comment
		u.ManagerScores = managerScores
		u.ApprovalStatus = ApprovalManagerApproved
		return nil
	})
}

func (s *Service) SubmitFinalComment(ctx context.Context, actor auth.Actor, evaluationID, comment string) (Evaluation, error) {
	return s.transition(ctx, actor, evaluationID, ActionSubmitFinalComment, func(_ context.Context, e Evaluation, u *TransitionUpdate) error {
		comment = strings.TrimSpace(comment)
		if comment == "" {
			return &ValidationError{EntityID: e.ID, Field: "comment", Reason: "final comment is required"}
		}
		u.EmployeeFinalComment = &comment
		return nil
	})
}

// Finalize computes the final score with the period's scoring method and
// concludes the evaluation.
func (s *Service) Finalize(ctx context.Context, actor auth.Actor, evaluationID string) (Evaluation, error) {
	return s.transition(ctx, actor, evaluationID, ActionFinalize, func(ctx context.Context, e Evaluation, u *TransitionUpdate) error {
		period, err := s.store.GetPeriod(ctx, e.PeriodID)
		if err != nil {
			return err
		}
		cfg, err := s.scoringConfig(ctx, period)
		if err != nil {
			return err
		}
		score, err := ComputeFinalScore(e, cfg)
		if err != nil {
			return err
		}
		if score.Valid {
			score.Decimal = score.Decimal.Round(scorePrecision)
		}
		u.FinalScore = &score
		u.ApprovalStatus = ApprovalApproved
		u.ApprovedBy = actor.UserID
		return nil
	})
}

// HardDelete removes the evaluation regardless of its state. It is logged
// and audited apart from normal completion.
func (s *Service) HardDelete(ctx context.Context, actor auth.Actor, evaluationID string) error {
	if !actor.IsAdmin() {
		err := &AuthorizationError{EntityID: evaluationID, Action: ActionHardDelete, ActorID: actor.UserID, Role: actor.Role, Reason: allowAdmin.describe()}
		s.reject(ActionHardDelete, evaluationID, actor, err)
		return err
	}

	e, err := s.store.GetEvaluation(ctx, evaluationID)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteEvaluation(ctx, evaluationID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	slog.Warn("evaluation hard deleted",
		"evaluation_id", e.ID,
		"actor_id", actor.UserID,
		"previous_status", e.Status,
		"employee_id", e.EmployeeID,
		"period_id", e.PeriodID,
	)
	s.observer.ObserveTransition(string(ActionHardDelete), "committed")
	s.record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     "evaluation.hard_delete",
		EntityType: entityType,
		EntityID:   e.ID,
		Before:     e,
	})
	s.events.Publish(eventFor(e, ActionHardDelete, e.Status, StatusDeleted, actor.UserID, actor.Role, s.now()))
	return nil
}

func (s *Service) transition(ctx context.Context, actor auth.Actor, evaluationID string, action Action, prepare prepareFunc) (Evaluation, error) {
	key, g, ok := guardFor(action)
	if !ok {
		return Evaluation{}, fmt.Errorf("no transition registered for %s", action)
	}

	e, err := s.store.GetEvaluation(ctx, evaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	if err := checkGuard(e, actor, action, key, g); err != nil {
		s.reject(action, e.ID, actor, err)
		return Evaluation{}, err
	}

	update := TransitionUpdate{
		EvaluationID: e.ID,
		From:         key.from,
		To:           g.to,
		At:           s.now(),
		Stamp:        g.stamp,
	}
	if err := prepare(ctx, e, &update); err != nil {
		s.reject(action, e.ID, actor, err)
		return Evaluation{}, err
	}

	applied, err := s.store.ApplyTransition(ctx, update)
	if err != nil {
		return Evaluation{}, err
	}
	if !applied {
		err := s.staleTransition(ctx, e, actor, action, key.from)
		s.reject(action, e.ID, actor, err)
		return Evaluation{}, err
	}

	before := e
	update.ApplyTo(&e)
	s.observer.ObserveTransition(string(action), "committed")
	if g.via != "" {
		s.record(ctx, audit.Entry{
			ActorID:    actor.UserID,
			Action:     "evaluation." + string(g.via),
			EntityType: entityType,
			EntityID:   e.ID,
		})
	}
	s.record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     "evaluation." + string(g.to),
		EntityType: entityType,
		EntityID:   e.ID,
		Before:     before,
		After:      e,
	})
	s.events.Publish(eventFor(e, action, key.from, g.to, actor.UserID, actor.Role, update.At))
	return e, nil
}

func checkGuard(e Evaluation, actor auth.Actor, action Action, key guardKey, g guard) error {
	if e.Quarantined() {
		return &IntegrityDefect{EvaluationID: e.ID, Field: "quarantined_at", Reason: "evaluation is quarantined: " + e.QuarantineReason}
	}
	if !g.allow.permits(actor, e) {
		return &AuthorizationError{EntityID: e.ID, Action: action, ActorID: actor.UserID, Role: actor.Role, Reason: g.allow.describe()}
	}
	if e.Status != key.from {
		return &ConflictError{EntityID: e.ID, Action: action, ActorID: actor.UserID, Expected: key.from, Actual: e.Status, Reason: g.conflict}
	}
	return nil
}

// staleTransition explains a conditional update that matched no row.
func (s *Service) staleTransition(ctx context.Context, e Evaluation, actor auth.Actor, action Action, expected Status) error {
	current, err := s.store.GetEvaluation(ctx, e.ID)
	if err != nil {
		return err
	}
	if current.Quarantined() {
		return &IntegrityDefect{EvaluationID: e.ID, Field: "quarantined_at", Reason: "evaluation is quarantined: " + current.QuarantineReason}
	}
	return &ConflictError{
		EntityID: e.ID,
		Action:   action,
		ActorID:  actor.UserID,
		Expected: expected,
		Actual:   current.Status,
		Reason:   "evaluation changed concurrently",
	}
}

func (s *Service) reject(action Action, entityID string, actor auth.Actor, err error) {
	slog.Info("evaluation transition rejected",
		"evaluation_id", entityID,
		"action", action,
		"actor_id", actor.UserID,
		"role", actor.Role,
		"err", err,
	)
	s.observer.ObserveTransition(string(action), rejectionOutcome(err))
}

func rejectionOutcome(err error) string {
	var (
		conflict      *ConflictError
		authorization *AuthorizationError
		validation    *ValidationError
		defect        *IntegrityDefect
	)
	switch {
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &authorization):
		return "forbidden"
	case errors.As(err, &validation):
		return "invalid"
	case errors.As(err, &defect):
		return "quarantined"
	}
	return "error"
}

func (s *Service) validateRating(entityID, questionID string, score float64) error {
	if strings.TrimSpace(questionID) == "" {
		return &ValidationError{EntityID: entityID, Field: "question_id", Reason: "question id is required"}
	}
	if score < 0 || score > s.maxRating {
		return &ValidationError{EntityID: entityID, Field: questionID, Reason: fmt.Sprintf("score must be between 0 and %g", s.maxRating)}
	}
	return nil
}

// deadlinePassed treats a deadline date as open until the end of that day.
func deadlinePassed(deadline, at time.Time) bool {
	if deadline.IsZero() {
		return false
	}
	return !at.Before(deadline.AddDate(0, 0, 1))
}

// ApplyTo mirrors on e what the store persists for u.
func (u TransitionUpdate) ApplyTo(e *Evaluation) {
	e.Status = u.To
	e.UpdatedAt = u.At
	if u.Responses != nil {
		e.Responses = u.Responses
	}
	if u.ManagerScores != nil {
		e.ManagerScores = u.ManagerScores
	}
	if u.EvaluatorComment != nil {
		e.EvaluatorComment = *u.EvaluatorComment
	}
	if u.EmployeeFinalComment != nil {
		e.EmployeeFinalComment = *u.EmployeeFinalComment
	}
	if u.FinalScore != nil {
		e.FinalScore = *u.FinalScore
	}
	if u.ApprovalStatus != "" {
		e.ApprovalStatus = u.ApprovalStatus
	}
	at := u.At
	if u.ApprovedBy != "" {
		e.ApprovedBy = u.ApprovedBy
		e.ApprovedAt = &at
	}
	switch u.Stamp {
	case StampSelfAssessmentSubmitted:
		e.SelfAssessmentSubmittedAt = &at
	case StampManagerApproved:
		e.ManagerApprovedAt = &at
	case StampFinalComment:
		e.FinalCommentAt = &at
	case StampFinalized:
		e.FinalizedAt = &at
	}
}
