package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"perfeval/internal/domain/auth"
	"perfeval/internal/requestctx"
	"perfeval/internal/transport/http/api"
)

// ActorVerifier maps a bearer token to a verified actor.
type ActorVerifier interface {
	VerifyActor(token string) (auth.Actor, error)
}

// Auth attaches the verified actor to the request context. Requests without a
// valid token continue anonymously; RequireActor and RequirePermission reject
// them.
func Auth(verifier ActorVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := verifier.VerifyActor(token)
			if err != nil {
				slog.Debug("bearer token rejected", "err", err, "requestId", GetRequestID(r.Context()))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithActor(r.Context(), actor)))
		})
	}
}

func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetActor(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetActor(ctx context.Context) (auth.Actor, bool) {
	return requestctx.GetActor(ctx)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
