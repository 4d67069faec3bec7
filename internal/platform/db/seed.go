package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"perfeval/internal/domain/auth"
	"perfeval/internal/platform/config"
)

// UserUpserter is the identity write used to bootstrap an administrator.
type UserUpserter interface {
	UpsertUserByEmail(ctx context.Context, email, fullName string, role auth.Role) (string, error)
}

// Seed makes sure the configured bootstrap administrator exists. Running it
// again refreshes the name and role only.
func Seed(ctx context.Context, users UserUpserter, cfg config.Config) error {
	email := strings.ToLower(strings.TrimSpace(cfg.SeedAdminEmail))
	if email == "" {
		return nil
	}
	name := strings.TrimSpace(cfg.SeedAdminName)
	if name == "" {
		name = "Administrator"
	}

	id, err := users.UpsertUserByEmail(ctx, email, name, auth.RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin %s: %w", email, err)
	}
	slog.Info("seed admin ensured", "user_id", id, "email", email)
	return nil
}
