package authhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"perfeval/internal/domain/auth"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
)

// UserReader loads identity records. Tokens are issued elsewhere; this
// service only reads them back.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (auth.User, error)
}

type Handler struct {
	Users UserReader
}

func NewHandler(users UserReader) *Handler {
	return &Handler{Users: users}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.HandleMe)
}

type meResponse struct {
	Actor       auth.Actor `json:"actor"`
	User        *auth.User `json:"user,omitempty"`
	Permissions []string   `json:"permissions"`
}

// HandleMe describes the verified caller: the token's actor, the identity
// record when it exists, and the route permissions of the role.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	resp := meResponse{Actor: actor, Permissions: auth.RolePermissions[actor.Role]}
	user, err := h.Users.GetUser(r.Context(), actor.UserID)
	switch {
	case err == nil:
		resp.User = &user
	case errors.Is(err, pgx.ErrNoRows):
	default:
		slog.Warn("me user lookup failed", "err", err, "actor_id", actor.UserID)
		api.Fail(w, http.StatusInternalServerError, "user_lookup_failed", "failed to load user", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, resp, middleware.GetRequestID(r.Context()))
}
