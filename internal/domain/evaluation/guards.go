package evaluation

import "perfeval/internal/domain/auth"

type actorRule uint8

const (
	allowEmployee actorRule = 1 << iota
	allowEvaluator
	allowAdmin
)

type guardKey struct {
	from   Status
	action Action
}

type guard struct {
	to    Status
	via   Status
	allow actorRule
	stamp StampColumn
	// conflict is the reason reported when the evaluation is in another state.
	conflict string
}

// transitionGuards is the single table of legal transitions and the actors
// allowed to perform them. Hard delete is handled separately since it applies
// to every state.
var transitionGuards = map[guardKey]guard{
	{StatusCreated, ActionSubmitSelfAssessment}: {
		to:       StatusAwaitingManagerApproval,
		via:      StatusSelfAssessmentSubmitted,
		allow:    allowEmployee,
		stamp:    StampSelfAssessmentSubmitted,
		conflict: "self-assessment already submitted",
	},
	{StatusAwaitingManagerApproval, ActionApproveByManager}: {
		to:       StatusManagerApprovedAwaitingComment,
		allow:    allowEvaluator | allowAdmin,
		stamp:    StampManagerApproved,
		conflict: "not awaiting manager approval",
	},
	{StatusManagerApprovedAwaitingComment, ActionSubmitFinalComment}: {
		to:       StatusAwaitingFinalization,
		allow:    allowEmployee,
		stamp:    StampFinalComment,
		conflict: "not awaiting your comment",
	},
	{StatusAwaitingFinalization, ActionFinalize}: {
		to:       StatusConcluded,
		allow:    allowEvaluator | allowAdmin,
		stamp:    StampFinalized,
		conflict: "not awaiting finalization",
	},
}

// guardFor returns the table entry for action. Every workflow action has
// exactly one legal predecessor.
func guardFor(action Action) (guardKey, guard, bool) {
	for key, g := range transitionGuards {
		if key.action == action {
			return key, g, true
		}
	}
	return guardKey{}, guard{}, false
}

func (r actorRule) permits(actor auth.Actor, e Evaluation) bool {
	if r&allowEmployee != 0 && actor.UserID == e.EmployeeID {
		return true
	}
	if r&allowEvaluator != 0 && actor.UserID == e.EvaluatorID {
		return true
	}
	if r&allowAdmin != 0 && actor.IsAdmin() {
		return true
	}
	return false
}

func (r actorRule) describe() string {
	switch r {
	case allowEmployee:
		return "only the evaluated employee may perform this action"
	case allowEvaluator | allowAdmin:
		return "only the assigned evaluator or an admin may perform this action"
	case allowAdmin:
		return "admin role required"
	}
	return "actor not permitted"
}
