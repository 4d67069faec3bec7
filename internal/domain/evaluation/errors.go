package evaluation

import (
	"errors"
	"fmt"
	"strings"

	"perfeval/internal/domain/auth"
)

var (
	ErrNotFound              = errors.New("evaluation not found")
	ErrPeriodNotFound        = errors.New("evaluation period not found")
	ErrAlreadyExecuted       = errors.New("automatic creation already executed for period")
	ErrEligibilityIncomplete = errors.New("eligibility could not be fully resolved")
	ErrUnknownScoringMethod  = errors.New("unknown scoring method")
)

// ValidationError reports input rejected before any state is touched.
type ValidationError struct {
	EntityID string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.EntityID == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s on %s: %s", e.Field, e.EntityID, e.Reason)
}

type AuthorizationError struct {
	EntityID string
	Action   Action
	ActorID  string
	Role     auth.Role
	Reason   string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("actor %s (%s) may not %s %s: %s", e.ActorID, e.Role, e.Action, e.EntityID, e.Reason)
}

// ConflictError means the entity was not in the state the operation requires,
// either because it was already there or another writer got there first.
type ConflictError struct {
	EntityID string
	Action   Action
	ActorID  string
	Expected Status
	Actual   Status
	Reason   string
	cause    error
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s: %s", e.Action, e.EntityID, e.Reason)
	if e.Expected != "" {
		fmt.Fprintf(&b, " (expected %s, found %s)", e.Expected, e.Actual)
	}
	return b.String()
}

func (e *ConflictError) Unwrap() error {
	return e.cause
}

// IntegrityDefect describes a dangling reference found on a live evaluation.
type IntegrityDefect struct {
	EvaluationID string `json:"evaluationId"`
	Field        string `json:"field"`
	ReferenceID  string `json:"referenceId"`
	Reason       string `json:"reason"`
}

func (e *IntegrityDefect) Error() string {
	return fmt.Sprintf("evaluation %s: %s %s %s", e.EvaluationID, e.Field, e.ReferenceID, e.Reason)
}

// EligibilityError carries the employees whose status lookup failed.
type EligibilityError struct {
	PeriodID   string
	Unresolved []string
	Cause      error
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("period %s: %d eligible users unresolved: %v", e.PeriodID, len(e.Unresolved), e.Cause)
}

func (e *EligibilityError) Is(target error) bool {
	return target == ErrEligibilityIncomplete
}

func (e *EligibilityError) Unwrap() error {
	return e.Cause
}
