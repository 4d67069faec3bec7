package evaluation

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
)

type PeriodInput struct {
	Name                   string
	Year                   int
	StartDate              time.Time
	EndDate                time.Time
	SelfAssessmentDeadline time.Time
	ApprovalDeadline       time.Time
	ScoringMethod          ScoringMethod
}

func (in PeriodInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return &ValidationError{Field: "name", Reason: "name is required"}
	case in.Year <= 0:
		return &ValidationError{Field: "year", Reason: "year must be positive"}
	case in.StartDate.IsZero() || in.EndDate.IsZero():
		return &ValidationError{Field: "start_date", Reason: "start and end dates are required"}
	case in.EndDate.Before(in.StartDate):
		return &ValidationError{Field: "end_date", Reason: "end date must not precede start date"}
	case in.SelfAssessmentDeadline.IsZero() || in.ApprovalDeadline.IsZero():
		return &ValidationError{Field: "self_assessment_deadline", Reason: "deadlines are required"}
	case in.ApprovalDeadline.Before(in.SelfAssessmentDeadline):
		return &ValidationError{Field: "approval_deadline", Reason: "approval deadline must not precede self-assessment deadline"}
	case in.ScoringMethod != "" && !in.ScoringMethod.Valid():
		return &ValidationError{Field: "scoring_method", Reason: "unknown scoring method"}
	}
	return nil
}

func requireAdmin(actor auth.Actor, entityID string, action Action) error {
	if actor.IsAdmin() {
		return nil
	}
	return &AuthorizationError{EntityID: entityID, Action: action, ActorID: actor.UserID, Role: actor.Role, Reason: allowAdmin.describe()}
}

// CreatePeriod opens a new planned period. The scheduler gate starts closed.
func (s *Service) CreatePeriod(ctx context.Context, actor auth.Actor, in PeriodInput) (Period, error) {
	if err := requireAdmin(actor, "periods", ActionAdminister); err != nil {
		return Period{}, err
	}
	if err := in.validate(); err != nil {
		return Period{}, err
	}
	period, err := s.store.CreatePeriod(ctx, Period{
		Name:                   strings.TrimSpace(in.Name),
		Year:                   in.Year,
		StartDate:              in.StartDate,
		EndDate:                in.EndDate,
		SelfAssessmentDeadline: in.SelfAssessmentDeadline,
		ApprovalDeadline:       in.ApprovalDeadline,
		Status:                 PeriodStatusPlanned,
		ScoringMethod:          in.ScoringMethod,
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, audit.Entry{ActorID: actor.UserID, Action: "period.created", EntityType: "evaluation_period", EntityID: period.ID, After: period})
	return period, nil
}

func (s *Service) GetPeriod(ctx context.Context, id string) (Period, error) {
	return s.store.GetPeriod(ctx, id)
}

func (s *Service) ListPeriods(ctx context.Context) ([]Period, error) {
	return s.store.ListPeriods(ctx)
}

// AdvancePeriodStatus moves a period one step forward: planned, open, closed.
func (s *Service) AdvancePeriodStatus(ctx context.Context, actor auth.Actor, id string, to PeriodStatus) (Period, error) {
	if err := requireAdmin(actor, id, ActionAdminister); err != nil {
		return Period{}, err
	}
	period, err := s.store.GetPeriod(ctx, id)
	if err != nil {
		return Period{}, err
	}
	next, ok := period.Status.next()
	if !ok || next != to {
		return Period{}, &ValidationError{EntityID: id, Field: "status", Reason: "period cannot move from " + string(period.Status) + " to " + string(to)}
	}
	updated, err := s.store.UpdatePeriodStatus(ctx, id, period.Status, to)
	if err != nil {
		return Period{}, err
	}
	if !updated {
		return Period{}, &ConflictError{EntityID: id, Action: ActionAdminister, ActorID: actor.UserID, Reason: "period status changed concurrently"}
	}
	before := period
	period.Status = to
	s.record(ctx, audit.Entry{ActorID: actor.UserID, Action: "period." + string(to), EntityType: "evaluation_period", EntityID: id, Before: before, After: period})
	return period, nil
}

func (s *Service) UpsertEligibleUser(ctx context.Context, actor auth.Actor, entry EligibleUser) error {
	if err := requireAdmin(actor, "eligible_users", ActionAdminister); err != nil {
		return err
	}
	if strings.TrimSpace(entry.UserID) == "" {
		return &ValidationError{Field: "user_id", Reason: "user id is required"}
	}
	if err := s.periodExists(ctx, entry.PeriodID); err != nil {
		return err
	}
	if err := s.store.UpsertEligibleUser(ctx, entry); err != nil {
		return err
	}
	s.record(ctx, audit.Entry{ActorID: actor.UserID, Action: "eligible_user.upserted", EntityType: "eligible_user", EntityID: entry.UserID, After: entry})
	return nil
}

func (s *Service) UpsertManagerMapping(ctx context.Context, actor auth.Actor, mapping ManagerMapping) error {
	if err := requireAdmin(actor, "manager_mappings", ActionAdminister); err != nil {
		return err
	}
	if mapping.CollaboratorID == "" || mapping.ManagerID == "" {
		return &ValidationError{Field: "manager_id", Reason: "collaborator and manager are required"}
	}
	if mapping.CollaboratorID == mapping.ManagerID {
		return &ValidationError{EntityID: mapping.CollaboratorID, Field: "manager_id", Reason: "a collaborator cannot be their own manager"}
	}
	if err := s.periodExists(ctx, mapping.PeriodID); err != nil {
		return err
	}
	if err := s.store.UpsertManagerMapping(ctx, mapping); err != nil {
		return err
	}
	s.record(ctx, audit.Entry{ActorID: actor.UserID, Action: "manager_mapping.upserted", EntityType: "manager_mapping", EntityID: mapping.CollaboratorID, After: mapping})
	return nil
}

func (s *Service) SetQuestionWeight(ctx context.Context, actor auth.Actor, weight QuestionWeight) error {
	if err := requireAdmin(actor, "question_weights", ActionAdminister); err != nil {
		return err
	}
	if strings.TrimSpace(weight.QuestionID) == "" {
		return &ValidationError{Field: "question_id", Reason: "question id is required"}
	}
	if !weight.Weight.GreaterThan(decimal.Zero) {
		return &ValidationError{EntityID: weight.QuestionID, Field: "weight", Reason: "weight must be positive"}
	}
	if err := s.periodExists(ctx, weight.PeriodID); err != nil {
		return err
	}
	if err := s.store.UpsertQuestionWeight(ctx, weight); err != nil {
		return err
	}
	s.record(ctx, audit.Entry{ActorID: actor.UserID, Action: "question_weight.upserted", EntityType: "question_weight", EntityID: weight.QuestionID, After: weight})
	return nil
}

func (s *Service) ListExecutionLogs(ctx context.Context, actor auth.Actor, periodID string) ([]CronExecutionLog, error) {
	if err := requireAdmin(actor, periodID, ActionView); err != nil {
		return nil, err
	}
	if _, err := s.store.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}
	return s.store.ListExecutionLogs(ctx, periodID)
}

func (s *Service) periodExists(ctx context.Context, periodID *string) error {
	if periodID == nil {
		return nil
	}
	_, err := s.store.GetPeriod(ctx, *periodID)
	return err
}
