package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"perfeval/internal/domain/evaluation"
	"perfeval/internal/transport/http/api"
)

// FailDomain maps evaluation engine errors onto HTTP responses. Anything it
// does not recognise is logged and returned as a 500.
func FailDomain(w http.ResponseWriter, requestID string, err error) {
	var (
		validation    *evaluation.ValidationError
		authorization *evaluation.AuthorizationError
		conflict      *evaluation.ConflictError
		defect        *evaluation.IntegrityDefect
		eligibility   *evaluation.EligibilityError
	)
	switch {
	case errors.As(err, &validation):
		FailValidation(w, requestID, []ValidationIssue{{Field: validation.Field, Reason: validation.Reason}})
	case errors.As(err, &authorization):
		api.FailWithDetails(w, http.StatusForbidden, "forbidden", authorization.Reason,
			map[string]any{"action": authorization.Action, "entityId": authorization.EntityID}, requestID)
	case errors.Is(err, evaluation.ErrNotFound), errors.Is(err, evaluation.ErrPeriodNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.As(err, &conflict):
		details := map[string]any{"action": conflict.Action, "entityId": conflict.EntityID}
		if conflict.Expected != "" {
			details["expected"] = conflict.Expected
			details["actual"] = conflict.Actual
		}
		code := "conflict"
		if errors.Is(err, evaluation.ErrAlreadyExecuted) {
			code = "already_executed"
		}
		api.FailWithDetails(w, http.StatusConflict, code, conflict.Reason, details, requestID)
	case errors.As(err, &defect):
		api.FailWithDetails(w, http.StatusLocked, "quarantined", defect.Reason, defect, requestID)
	case errors.As(err, &eligibility):
		api.FailWithDetails(w, http.StatusServiceUnavailable, "eligibility_unavailable", "eligibility could not be fully resolved",
			map[string]any{"unresolved": eligibility.Unresolved}, requestID)
	default:
		slog.Error("request failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}
