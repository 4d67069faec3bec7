package db

import (
	"context"
	"errors"
	"testing"

	"perfeval/internal/domain/auth"
	"perfeval/internal/platform/config"
)

type fakeUsers struct {
	email string
	name  string
	role  auth.Role
	err   error
}

func (f *fakeUsers) UpsertUserByEmail(_ context.Context, email, fullName string, role auth.Role) (string, error) {
	f.email, f.name, f.role = email, fullName, role
	return "admin-id", f.err
}

func TestSeedUpsertsAdmin(t *testing.T) {
	users := &fakeUsers{}
	if err := Seed(context.Background(), users, config.Config{SeedAdminEmail: " Admin@Example.com "}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if users.email != "admin@example.com" || users.role != auth.RoleAdmin || users.name != "Administrator" {
		t.Fatalf("unexpected upsert %+v", users)
	}
}

func TestSeedWithoutEmailIsNoop(t *testing.T) {
	users := &fakeUsers{err: errors.New("must not be called")}
	if err := Seed(context.Background(), users, config.Config{}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if users.email != "" {
		t.Fatal("did not expect an upsert")
	}
}

func TestSeedWrapsStoreError(t *testing.T) {
	users := &fakeUsers{err: errors.New("db down")}
	if err := Seed(context.Background(), users, config.Config{SeedAdminEmail: "a@b.c"}); err == nil {
		t.Fatal("expected error")
	}
}
