package shared

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"perfeval/internal/domain/evaluation"
)

func TestFailDomainStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &evaluation.ValidationError{Field: "comment", Reason: "required"}, http.StatusBadRequest},
		{"authorization", &evaluation.AuthorizationError{EntityID: "e1", Action: evaluation.ActionFinalize}, http.StatusForbidden},
		{"not found", fmt.Errorf("load: %w", evaluation.ErrNotFound), http.StatusNotFound},
		{"period not found", evaluation.ErrPeriodNotFound, http.StatusNotFound},
		{"conflict", &evaluation.ConflictError{EntityID: "e1", Expected: evaluation.StatusCreated, Actual: evaluation.StatusConcluded}, http.StatusConflict},
		{"quarantined", &evaluation.IntegrityDefect{EvaluationID: "e1", Reason: "evaluator inactive"}, http.StatusLocked},
		{"eligibility", &evaluation.EligibilityError{PeriodID: "p1", Unresolved: []string{"u1"}}, http.StatusServiceUnavailable},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FailDomain(rec, "req", tc.err)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}
