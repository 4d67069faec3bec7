package evaluation

import (
	"context"

	"perfeval/internal/domain/auth"
)

// GetEvaluation returns the evaluation to its employee, its evaluator or an admin.
func (s *Service) GetEvaluation(ctx context.Context, actor auth.Actor, id string) (Evaluation, error) {
	e, err := s.store.GetEvaluation(ctx, id)
	if err != nil {
		return Evaluation{}, err
	}
	if !(allowEmployee | allowEvaluator | allowAdmin).permits(actor, e) {
		return Evaluation{}, &AuthorizationError{EntityID: id, Action: ActionView, ActorID: actor.UserID, Role: actor.Role, Reason: "not a participant of this evaluation"}
	}
	return e, nil
}

// GetPendingForManager lists the evaluations waiting on the manager's approval
// or finalization. Quarantined rows are excluded.
func (s *Service) GetPendingForManager(ctx context.Context, actor auth.Actor, managerID string) ([]Evaluation, error) {
	if actor.UserID != managerID && !actor.IsAdmin() {
		return nil, &AuthorizationError{EntityID: managerID, Action: ActionView, ActorID: actor.UserID, Role: actor.Role, Reason: "only the manager or an admin may list pending evaluations"}
	}
	return s.store.ListPendingForEvaluator(ctx, managerID)
}

func (s *Service) ListForEmployee(ctx context.Context, actor auth.Actor, employeeID string) ([]Evaluation, error) {
	if actor.UserID != employeeID && !actor.IsAdmin() {
		return nil, &AuthorizationError{EntityID: employeeID, Action: ActionView, ActorID: actor.UserID, Role: actor.Role, Reason: "only the employee or an admin may list these evaluations"}
	}
	return s.store.ListForEmployee(ctx, employeeID)
}
