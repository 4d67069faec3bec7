package evaluation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
)

type IntegrityReport struct {
	CheckedAt   time.Time         `json:"checkedAt"`
	Scanned     int               `json:"scanned"`
	Quarantined int               `json:"quarantined"`
	Defects     []IntegrityDefect `json:"defects"`
}

// RunIntegrityCheck is the administrator entry point of CheckIntegrity.
func (s *Service) RunIntegrityCheck(ctx context.Context, actor auth.Actor) (IntegrityReport, error) {
	if !actor.IsAdmin() {
		return IntegrityReport{}, &AuthorizationError{
			EntityID: "evaluations",
			Action:   ActionAdminister,
			ActorID:  actor.UserID,
			Role:     actor.Role,
			Reason:   allowAdmin.describe(),
		}
	}
	return s.CheckIntegrity(ctx)
}

// CheckIntegrity quarantines every live evaluation whose employee or
// evaluator is not an active identity. Rows are never repaired here.
func (s *Service) CheckIntegrity(ctx context.Context) (IntegrityReport, error) {
	report := IntegrityReport{CheckedAt: s.now(), Defects: []IntegrityDefect{}}

	refs, err := s.store.ListEvaluationRefs(ctx)
	if err != nil {
		return report, err
	}

	known := map[string]bool{}
	isActive := func(userID string) (bool, error) {
		if active, ok := known[userID]; ok {
			return active, nil
		}
		active, err := s.identity.IsActive(ctx, userID)
		if err != nil {
			return false, err
		}
		known[userID] = active
		return active, nil
	}

	for _, ref := range refs {
		report.Scanned++
		var defects []IntegrityDefect
		for _, field := range []struct{ name, id string }{
			{"employee_id", ref.EmployeeID},
			{"evaluator_id", ref.EvaluatorID},
		} {
			active, err := isActive(field.id)
			if err != nil {
				return report, err
			}
			if !active {
				defects = append(defects, IntegrityDefect{
					EvaluationID: ref.ID,
					Field:        field.name,
					ReferenceID:  field.id,
					Reason:       "references a missing or inactive identity",
				})
			}
		}
		if len(defects) == 0 {
			continue
		}
		report.Defects = append(report.Defects, defects...)

		reason := quarantineReason(defects)
		quarantined, err := s.store.QuarantineEvaluation(ctx, ref.ID, reason, report.CheckedAt)
		if err != nil {
			return report, err
		}
		if !quarantined {
			continue
		}
		report.Quarantined++
		slog.Warn("evaluation quarantined", "evaluation_id", ref.ID, "reason", reason)
		s.record(ctx, audit.Entry{
			ActorID:    SystemActorID,
			Action:     "evaluation.quarantined",
			EntityType: entityType,
			EntityID:   ref.ID,
			After:      defects,
		})
	}
	return report, nil
}

func quarantineReason(defects []IntegrityDefect) string {
	parts := make([]string, 0, len(defects))
	for _, d := range defects {
		parts = append(parts, d.Field+" "+d.ReferenceID+" "+d.Reason)
	}
	return strings.Join(parts, "; ")
}
