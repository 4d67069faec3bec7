package evaluation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StoreAPI is the persistence contract of the engine. Methods returning a bool
// are conditional updates: false means no row matched the predicate.
type StoreAPI interface {
	CreatePeriod(ctx context.Context, p Period) (Period, error)
	GetPeriod(ctx context.Context, id string) (Period, error)
	ListPeriods(ctx context.Context) ([]Period, error)
	ListPeriodsDueForCreation(ctx context.Context, asOf time.Time) ([]Period, error)
	UpdatePeriodStatus(ctx context.Context, id string, from, to PeriodStatus) (bool, error)

	ClaimAutomaticCreation(ctx context.Context, periodID string) (bool, error)
	ReleaseAutomaticCreation(ctx context.Context, periodID string) (bool, error)
	SetEvaluationsCreated(ctx context.Context, periodID string, total int) error

	ListEligibleEntries(ctx context.Context, periodID string) ([]EligibleUser, error)
	UpsertEligibleUser(ctx context.Context, entry EligibleUser) error
	ListManagerMappings(ctx context.Context, collaboratorID, periodID string) ([]ManagerMapping, error)
	UpsertManagerMapping(ctx context.Context, mapping ManagerMapping) error
	QuestionWeights(ctx context.Context, periodID string) (map[string]decimal.Decimal, error)
	UpsertQuestionWeight(ctx context.Context, weight QuestionWeight) error

	CreateEvaluation(ctx context.Context, e Evaluation) (bool, error)
	GetEvaluation(ctx context.Context, id string) (Evaluation, error)
	ListPendingForEvaluator(ctx context.Context, evaluatorID string) ([]Evaluation, error)
	ListForEmployee(ctx context.Context, employeeID string) ([]Evaluation, error)
	ApplyTransition(ctx context.Context, update TransitionUpdate) (bool, error)
	DeleteEvaluation(ctx context.Context, id string) (bool, error)

	ListEvaluationRefs(ctx context.Context) ([]EvaluationRef, error)
	QuarantineEvaluation(ctx context.Context, id, reason string, at time.Time) (bool, error)

	InsertExecutionLog(ctx context.Context, entry CronExecutionLog) error
	ListExecutionLogs(ctx context.Context, periodID string) ([]CronExecutionLog, error)
}
