package evaluation

type Status string

const (
	StatusCreated                        Status = "created"
	StatusSelfAssessmentSubmitted        Status = "self_assessment_submitted"
	StatusAwaitingManagerApproval        Status = "awaiting_manager_approval"
	StatusManagerApprovedAwaitingComment Status = "manager_approved_awaiting_comment"
	StatusAwaitingFinalization           Status = "awaiting_finalization"
	StatusConcluded                      Status = "concluded"
	StatusDeleted                        Status = "deleted"
)

type PeriodStatus string

const (
	PeriodStatusPlanned PeriodStatus = "planned"
	PeriodStatusOpen    PeriodStatus = "open"
	PeriodStatusClosed  PeriodStatus = "closed"
)

// next returns the only status a period may move to from s.
func (s PeriodStatus) next() (PeriodStatus, bool) {
	switch s {
	case PeriodStatusPlanned:
		return PeriodStatusOpen, true
	case PeriodStatusOpen:
		return PeriodStatusClosed, true
	}
	return "", false
}

type ApprovalStatus string

const (
	ApprovalPending         ApprovalStatus = "pending"
	ApprovalManagerApproved ApprovalStatus = "manager_approved"
	ApprovalApproved        ApprovalStatus = "approved"
)

type ScoringMethod string

const (
	ScoringSimpleAverage   ScoringMethod = "simple_average"
	ScoringWeightedAverage ScoringMethod = "weighted_average"
)

func (m ScoringMethod) Valid() bool {
	return m == ScoringSimpleAverage || m == ScoringWeightedAverage
}

type Action string

const (
	ActionCreate               Action = "create"
	ActionSubmitSelfAssessment Action = "submit_self_assessment"
	ActionApproveByManager     Action = "approve_by_manager"
	ActionSubmitFinalComment   Action = "submit_final_comment"
	ActionFinalize             Action = "finalize"
	ActionHardDelete           Action = "hard_delete"
	ActionView                 Action = "view"
	ActionTriggerCreation      Action = "trigger_automatic_creation"
	ActionAdminister           Action = "administer"
)

type RunOutcome string

const (
	OutcomeCompleted           RunOutcome = "completed"
	OutcomeCompletedWithErrors RunOutcome = "completed_with_errors"
	OutcomeAlreadyExecuted     RunOutcome = "already_executed"
	OutcomeFailed              RunOutcome = "failed"
)

type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

const (
	SkipNoManager       = "no_manager"
	SkipManagerInactive = "manager_inactive"
	SkipAlreadyExists   = "already_exists"
)

// SystemActorID marks changes made by the scheduler rather than a user.
const SystemActorID = "system"

// scorePrecision is the number of decimal places persisted for final scores.
const scorePrecision = 4
