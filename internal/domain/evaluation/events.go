package evaluation

import (
	"time"

	"github.com/shopspring/decimal"

	"perfeval/internal/domain/auth"
)

// TransitionEvent is emitted after a state change has been committed.
type TransitionEvent struct {
	EvaluationID string              `json:"evaluationId"`
	EmployeeID   string              `json:"employeeId"`
	EvaluatorID  string              `json:"evaluatorId"`
	PeriodID     string              `json:"periodId"`
	Action       Action              `json:"action"`
	From         Status              `json:"from,omitempty"`
	To           Status              `json:"to"`
	ActorID      string              `json:"actorId"`
	ActorRole    auth.Role           `json:"actorRole,omitempty"`
	FinalScore   decimal.NullDecimal `json:"finalScore"`
	OccurredAt   time.Time           `json:"occurredAt"`
}

// Publisher receives committed transitions. Implementations must not block
// the caller on delivery.
type Publisher interface {
	Publish(evt TransitionEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(TransitionEvent) {}

// Observer is notified of transition outcomes for metrics.
type Observer interface {
	ObserveTransition(action string, outcome string)
	ObserveRun(outcome string, created int)
}

type noopObserver struct{}

func (noopObserver) ObserveTransition(string, string) {}
func (noopObserver) ObserveRun(string, int)            {}

func eventFor(e Evaluation, action Action, from, to Status, actorID string, role auth.Role, at time.Time) TransitionEvent {
	return TransitionEvent{
		EvaluationID: e.ID,
		EmployeeID:   e.EmployeeID,
		EvaluatorID:  e.EvaluatorID,
		PeriodID:     e.PeriodID,
		Action:       action,
		From:         from,
		To:           to,
		ActorID:      actorID,
		ActorRole:    role,
		FinalScore:   e.FinalScore,
		OccurredAt:   at,
	}
}
