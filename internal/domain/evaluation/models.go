package evaluation

import (
	"time"

	"github.com/shopspring/decimal"
)

type Period struct {
	ID                        string        `json:"id"`
	Name                      string        `json:"name"`
	Year                      int           `json:"year"`
	StartDate                 time.Time     `json:"startDate"`
	EndDate                   time.Time     `json:"endDate"`
	SelfAssessmentDeadline    time.Time     `json:"selfAssessmentDeadline"`
	ApprovalDeadline          time.Time     `json:"approvalDeadline"`
	Status                    PeriodStatus  `json:"status"`
	ScoringMethod             ScoringMethod `json:"scoringMethod,omitempty"`
	AutomaticCreationExecuted bool          `json:"automaticCreationExecuted"`
	TotalEvaluationsCreated   int           `json:"totalEvaluationsCreated"`
	CreatedAt                 time.Time     `json:"createdAt"`
}

// EligibleUser with a nil PeriodID is a global entry.
type EligibleUser struct {
	UserID   string  `json:"userId"`
	PeriodID *string `json:"periodId,omitempty"`
	Active   bool    `json:"active"`
}

// ManagerMapping with a nil PeriodID is the collaborator's default evaluator.
type ManagerMapping struct {
	CollaboratorID string  `json:"collaboratorId"`
	ManagerID      string  `json:"managerId"`
	PeriodID       *string `json:"periodId,omitempty"`
	Active         bool    `json:"active"`
}

type QuestionWeight struct {
	PeriodID   *string         `json:"periodId,omitempty"`
	QuestionID string          `json:"questionId"`
	Weight     decimal.Decimal `json:"weight"`
}

type Response struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment,omitempty"`
}

type Evaluation struct {
	ID                        string              `json:"id"`
	EmployeeID                string              `json:"employeeId"`
	EvaluatorID               string              `json:"evaluatorId"`
	PeriodID                  string              `json:"periodId"`
	Status                    Status              `json:"status"`
	Responses                 map[string]Response `json:"responses"`
	ManagerScores             map[string]float64  `json:"managerScores"`
	EvaluatorComment          string              `json:"evaluatorComment"`
	EmployeeFinalComment      string              `json:"employeeFinalComment"`
	FinalScore                decimal.NullDecimal `json:"finalScore"`
	ApprovalStatus            ApprovalStatus      `json:"approvalStatus"`
	SelfAssessmentSubmittedAt *time.Time          `json:"selfAssessmentSubmittedAt,omitempty"`
	ManagerApprovedAt         *time.Time          `json:"managerApprovedAt,omitempty"`
	FinalCommentAt            *time.Time          `json:"finalCommentAt,omitempty"`
	ApprovedAt                *time.Time          `json:"approvedAt,omitempty"`
	FinalizedAt               *time.Time          `json:"finalizedAt,omitempty"`
	ApprovedBy                string              `json:"approvedBy,omitempty"`
	QuarantinedAt             *time.Time          `json:"quarantinedAt,omitempty"`
	QuarantineReason          string              `json:"quarantineReason,omitempty"`
	CreatedAt                 time.Time           `json:"createdAt"`
	UpdatedAt                 time.Time           `json:"updatedAt"`
}

func (e Evaluation) Quarantined() bool {
	return e.QuarantinedAt != nil
}

// EvaluationRef is the projection scanned by the integrity check.
type EvaluationRef struct {
	ID          string
	EmployeeID  string
	EvaluatorID string
}

type SkippedEmployee struct {
	EmployeeID string `json:"employeeId"`
	Reason     string `json:"reason"`
}

type CronExecutionLog struct {
	ID                 string            `json:"id"`
	PeriodID           string            `json:"periodId"`
	Trigger            Trigger           `json:"trigger"`
	StartedAt          time.Time         `json:"startedAt"`
	FinishedAt         time.Time         `json:"finishedAt"`
	Outcome            RunOutcome        `json:"outcome"`
	EvaluationsCreated int               `json:"evaluationsCreated"`
	Skipped            []SkippedEmployee `json:"skipped"`
	Errors             []string          `json:"errors"`
}

type RunResult struct {
	PeriodID string            `json:"periodId"`
	Outcome  RunOutcome        `json:"outcome"`
	Created  int               `json:"created"`
	Skipped  []SkippedEmployee `json:"skipped"`
	Errors   []string          `json:"errors"`
	LogID    string            `json:"logId,omitempty"`
}

// SkippedIDs lists the employees that did not receive an evaluation.
func (r RunResult) SkippedIDs() []string {
	ids := make([]string, 0, len(r.Skipped))
	for _, skip := range r.Skipped {
		ids = append(ids, skip.EmployeeID)
	}
	return ids
}

// TransitionUpdate is applied by the store as one conditional update keyed on
// From. Nil fields are left untouched.
type TransitionUpdate struct {
	EvaluationID         string
	From                 Status
	To                   Status
	At                   time.Time
	Responses            map[string]Response
	ManagerScores        map[string]float64
	EvaluatorComment     *string
	EmployeeFinalComment *string
	FinalScore           *decimal.NullDecimal
	ApprovalStatus       ApprovalStatus
	ApprovedBy           string
	Stamp                StampColumn
}

// StampColumn names the timestamp column a transition sets.
type StampColumn string

const (
	StampNone                    StampColumn = ""
	StampSelfAssessmentSubmitted StampColumn = "self_assessment_submitted_at"
	StampManagerApproved         StampColumn = "manager_approved_at"
	StampFinalComment            StampColumn = "final_comment_at"
	StampFinalized               StampColumn = "finalized_at"
)
