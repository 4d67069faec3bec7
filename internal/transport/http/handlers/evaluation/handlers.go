package evaluationhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/evaluation"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *evaluation.Service
}

func NewHandler(service *evaluation.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/periods", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPeriodsRead)).Get("/", h.handleListPeriods)
		r.With(middleware.RequirePermission(auth.PermPeriodsManage)).Post("/", h.handleCreatePeriod)
		r.With(middleware.RequirePermission(auth.PermPeriodsRead)).Get("/{periodID}", h.handleGetPeriod)
		r.With(middleware.RequirePermission(auth.PermPeriodsManage)).Put("/{periodID}/status", h.handleAdvancePeriod)
		r.With(middleware.RequirePermission(auth.PermPeriodsManage)).Post("/{periodID}/automatic-creation", h.handleTriggerCreation)
		r.With(middleware.RequirePermission(auth.PermPeriodsManage)).Get("/{periodID}/automatic-creation/logs", h.handleExecutionLogs)
	})
	r.With(middleware.RequirePermission(auth.PermPeriodsManage)).Post("/eligible-users", h.handleUpsertEligible)
	r.With(middleware.RequirePermission(auth.PermPeriodsManage)).Post("/manager-mappings", h.handleUpsertMapping)
	r.With(middleware.RequirePermission(auth.PermPeriodsManage)).Post("/question-weights", h.handleSetWeight)

	r.Route("/evaluations", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead)).Get("/pending", h.handlePending)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead)).Get("/mine", h.handleMine)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead)).Get("/{evaluationID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermEvaluationsSubmit)).Post("/{evaluationID}/self-assessment", h.handleSelfAssessment)
		r.With(middleware.RequirePermission(auth.PermEvaluationsSubmit)).Post("/{evaluationID}/manager-approval", h.handleManagerApproval)
		r.With(middleware.RequirePermission(auth.PermEvaluationsSubmit)).Post("/{evaluationID}/final-comment", h.handleFinalComment)
		r.With(middleware.RequirePermission(auth.PermEvaluationsSubmit)).Post("/{evaluationID}/finalize", h.handleFinalize)
		r.With(middleware.RequirePermission(auth.PermEvaluationsDelete)).Delete("/{evaluationID}", h.handleDelete)
	})

	r.With(middleware.RequirePermission(auth.PermIntegrityRun)).Post("/integrity/check", h.handleIntegrityCheck)
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	managerID := actor.UserID
	if actor.IsAdmin() && r.URL.Query().Get("managerId") != "" {
		managerID = r.URL.Query().Get("managerId")
	}

	items, err := h.Service.GetPendingForManager(r.Context(), actor, managerID)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	employeeID := actor.UserID
	if actor.IsAdmin() && r.URL.Query().Get("employeeId") != "" {
		employeeID = r.URL.Query().Get("employeeId")
	}

	items, err := h.Service.ListForEmployee(r.Context(), actor, employeeID)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	item, err := h.Service.GetEvaluation(r.Context(), actor, chi.URLParam(r, "evaluationID"))
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, item, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSelfAssessment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		Responses map[string]evaluation.Response `json:"responses" validate:"required,min=1"`
	}
	if !shared.DecodeAndValidate(w, r, reqID, &payload) {
		return
	}

	actor, _ := middleware.GetActor(r.Context())
	item, err := h.Service.SubmitSelfAssessment(r.Context(), actor, chi.URLParam(r, "evaluationID"), payload.Responses)
	if err != nil {
		shared.FailDomain(w, reqID, err)
		return
	}
	api.Success(w, item, reqID)
}

func (h *Handler) handleManagerApproval(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		Comment string             `json:"comment" validate:"required,max=5000"`
		Scores  map[string]float64 `json:"scores"`
	}
	if !shared.DecodeAndValidate(w, r, reqID, &payload) {
		return
	}

	actor, _ := middleware.GetActor(r.Context())
	item, err := h.Service.ApproveByManager(r.Context(), actor, chi.URLParam(r, "evaluationID"), payload.Comment, payload.Scores)
	if err != nil {
		shared.FailDomain(w, reqID, err)
		return
	}
	api.Success(w, item, reqID)
}

func (h *Handler) handleFinalComment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		Comment string `json:"comment" validate:"required,max=5000"`
	}
	if !shared.DecodeAndValidate(w, r, reqID, &payload) {
		return
	}

	actor, _ := middleware.GetActor(r.Context())
	item, err := h.Service.SubmitFinalComment(r.Context(), actor, chi.URLParam(r, "evaluationID"), payload.Comment)
	if err != nil {
		shared.FailDomain(w, reqID, err)
		return
	}
	api.Success(w, item, reqID)
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	item, err := h.Service.Finalize(r.Context(), actor, chi.URLParam(r, "evaluationID"))
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, item, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	if err := h.Service.HardDelete(r.Context(), actor, chi.URLParam(r, "evaluationID")); err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleIntegrityCheck(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	report, err := h.Service.RunIntegrityCheck(r.Context(), actor)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}
