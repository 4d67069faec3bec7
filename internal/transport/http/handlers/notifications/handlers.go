package notificationshandler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/notifications"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service        *notifications.Service
	VAPIDPublicKey string
}

func NewHandler(service *notifications.Service, vapidPublicKey string) *Handler {
	return &Handler{Service: service, VAPIDPublicKey: vapidPublicKey}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermNotificationsRead))
		r.Get("/", h.handleList)
		r.Post("/{notificationID}/read", h.handleMarkRead)
		r.Get("/preferences", h.handlePreferences)
		r.Put("/preferences", h.handleUpdatePreferences)
	})
	r.Route("/push-subscriptions", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermNotificationsRead))
		r.Get("/vapid-key", h.handleVAPIDKey)
		r.Post("/", h.handleSubscribe)
		r.Delete("/", h.handleUnsubscribe)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	page := shared.ParsePagination(r, 100, 500)
	unreadOnly := r.URL.Query().Get("unread") == "true"

	total, err := h.Service.Count(r.Context(), actor.UserID, unreadOnly)
	if err != nil {
		slog.Warn("notification count failed", "err", err)
	}

	items, err := h.Service.List(r.Context(), actor.UserID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "notification_list_failed", "failed to list notifications", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	updated, err := h.Service.MarkRead(r.Context(), actor.UserID, chi.URLParam(r, "notificationID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "notification_update_failed", "failed to update notification", middleware.GetRequestID(r.Context()))
		return
	}
	if !updated {
		api.Fail(w, http.StatusNotFound, "not_found", "notification not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "read"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePreferences(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	prefs, err := h.Service.GetPreferences(r.Context(), actor.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "preferences_failed", "failed to load preferences", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, prefs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload notifications.Preferences
	if !shared.DecodeAndValidate(w, r, reqID, &payload) {
		return
	}

	actor, _ := middleware.GetActor(r.Context())
	if err := h.Service.UpdatePreferences(r.Context(), actor.UserID, payload); err != nil {
		api.Fail(w, http.StatusInternalServerError, "preferences_failed", "failed to update preferences", reqID)
		return
	}
	api.Success(w, payload, reqID)
}

func (h *Handler) handleVAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.VAPIDPublicKey == "" {
		api.Fail(w, http.StatusNotFound, "push_disabled", "web push is not configured", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"publicKey": h.VAPIDPublicKey}, middleware.GetRequestID(r.Context()))
}

type subscriptionPayload struct {
	Endpoint string `json:"endpoint" validate:"required,url,startswith=https://"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload subscriptionPayload
	if !shared.DecodeAndValidate(w, r, reqID, &payload) {
		return
	}

	actor, _ := middleware.GetActor(r.Context())
	sub := notifications.PushSubscription{
		UserID:   actor.UserID,
		Endpoint: payload.Endpoint,
		P256dh:   payload.Keys.P256dh,
		Auth:     payload.Keys.Auth,
	}
	if err := h.Service.Subscribe(r.Context(), sub); err != nil {
		api.Fail(w, http.StatusInternalServerError, "subscription_failed", "failed to save push subscription", reqID)
		return
	}
	api.Created(w, map[string]string{"endpoint": sub.Endpoint}, reqID)
}

func (h *Handler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		Endpoint string `json:"endpoint" validate:"required"`
	}
	if !shared.DecodeAndValidate(w, r, reqID, &payload) {
		return
	}

	actor, _ := middleware.GetActor(r.Context())
	removed, err := h.Service.Unsubscribe(r.Context(), actor.UserID, payload.Endpoint)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "subscription_failed", "failed to remove push subscription", reqID)
		return
	}
	if !removed {
		api.Fail(w, http.StatusNotFound, "not_found", "push subscription not found", reqID)
		return
	}
	api.NoContent(w)
}
