package evaluationhandler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"perfeval/internal/domain/evaluation"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListPeriods(r.Context())
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.GetPeriod(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, item, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		Name                   string `json:"name" validate:"required,max=200"`
		Year                   int    `json:"year" validate:"required,gte=2000,lte=2200"`
		StartDate              string `json:"startDate" validate:"required,datetime=2006-01-02"`
		EndDate                string `json:"endDate" validate:"required,datetime=2006-01-02"`
		SelfAssessmentDeadline string `json:"selfAssessmentDeadline" validate:"required,datetime=2006-01-02"`
		ApprovalDeadline       string `json:"approvalDeadline" validate:"required,datetime=2006-01-02"`
		ScoringMethod          string `json:"scoringMethod" validate:"omitempty,oneof=simple_average weighted_average"`
	}
	if !shared.DecodeAndValidate(w, r, reqID, &payload) {
		return
	}
	v := shared.NewValidator()
	v.DateOrder("startDate", payload.StartDate, "endDate", payload.EndDate)
	v.DateOrder("selfAssessmentDeadline", payload.SelfAssessmentDeadline, "approvalDeadline", payload.ApprovalDeadline)
	if v.Reject(w, reqID) {
		return
	}

	actor, _ := middleware.GetActor(r.Context())
	period, err := h.Service.CreatePeriod(r.Context(), actor, evaluation.PeriodInput{
		Name:                   payload.Name,
		Year:                   payload.Year,
		StartDate:              mustDate(payload.StartDate),
		EndDate:                mustDate(payload.EndDate),
		SelfAssessmentDeadline: mustDate(payload.SelfAssessmentDeadline),
		ApprovalDeadline:       mustDate(payload.ApprovalDeadline),
		ScoringMethod:          evaluation.ScoringMethod(payload.ScoringMethod),
	})
	if err != nil {
		shared.FailDomain(w, reqID, err)
		return
	}
	api.Created(w, period, reqID)
}

// mustDate parses a value already checked by the datetime validator.
func mustDate(value string) time.Time {
	parsed, _ := shared.ParseDate(value)
	return parsed
}

func (h *Handler) handleAdvancePeriod(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		Status string `json:"status" validate:"required,oneof=open closed"`
	}
	if !shared.DecodeAndValidate(w, r, reqID, &payload) {
		return
	}

	actor, _ := middleware.GetActor(r.Context())
	period, err := h.Service.AdvancePeriodStatus(r.Context(), actor, chi.URLParam(r, "periodID"), evaluation.PeriodStatus(payload.Status))
	if err != nil {
		shared.FailDomain(w, reqID, err)
		return
	}
	api.Success(w, period, reqID)
}

func (h *Handler) handleTriggerCreation(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	result, err := h.Service.TriggerAutomaticCreation(r.Context(), actor, chi.URLParam(r, "periodID"))
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExecutionLogs(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	logs, err := h.Service.ListExecutionLogs(r.Context(), actor, chi.URLParam(r, "periodID"))
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, logs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpsertEligible(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		UserID   string  `json:"userId" validate:"required"`
		PeriodID *string `json:"periodId"`
		Active   *bool   `json:"active"`
	}
	if !shared.DecodeAndValidate(w, r, reqID, &payload) {
		return
	}

	entry := evaluation.EligibleUser{UserID: payload.UserID, PeriodID: blankToNil(payload.PeriodID), Active: payload.Active == nil || *payload.Active}
	actor, _ := middleware.GetActor(r.Context())
	if err := h.Service.UpsertEligibleUser(r.Context(), actor, entry); err != nil {
		shared.FailDomain(w, reqID, err)
		return
	}
	api.Success(w, entry, reqID)
}

func (h *Handler) handleUpsertMapping(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		CollaboratorID string  `json:"collaboratorId" validate:"required"`
		ManagerID      string  `json:"managerId" validate:"required"`
		PeriodID       *string `json:"periodId"`
		Active         *bool   `json:"active"`
	}
	if !shared.DecodeAndValidate(w, r, reqID, &payload) {
		return
	}

	mapping := evaluation.ManagerMapping{
		CollaboratorID: payload.CollaboratorID,
		ManagerID:      payload.ManagerID,
		PeriodID:       blankToNil(payload.PeriodID),
		Active:         payload.Active == nil || *payload.Active,
	}
	actor, _ := middleware.GetActor(r.Context())
	if err := h.Service.UpsertManagerMapping(r.Context(), actor, mapping); err != nil {
		shared.FailDomain(w, reqID, err)
		return
	}
	api.Success(w, mapping, reqID)
}

func (h *Handler) handleSetWeight(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		PeriodID   *string         `json:"periodId"`
		QuestionID string          `json:"questionId" validate:"required,max=200"`
		Weight     decimal.Decimal `json:"weight"`
	}
	if !shared.DecodeAndValidate(w, r, reqID, &payload) {
		return
	}

	weight := evaluation.QuestionWeight{PeriodID: blankToNil(payload.PeriodID), QuestionID: payload.QuestionID, Weight: payload.Weight}
	actor, _ := middleware.GetActor(r.Context())
	if err := h.Service.SetQuestionWeight(r.Context(), actor, weight); err != nil {
		shared.FailDomain(w, reqID, err)
		return
	}
	api.Success(w, weight, reqID)
}

func blankToNil(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
