package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"perfeval/internal/platform/querier"
)

const UserStatusActive = "active"

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     Role   `json:"role"`
	Status   string `json:"status"`
}

// Store reads identity records owned by the identity service.
type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

// IsActive reports false for unknown users as well as inactive ones.
func (s *Store) IsActive(ctx context.Context, userID string) (bool, error) {
	var status string
	err := s.DB.QueryRow(ctx, "SELECT status FROM users WHERE id::text = $1", userID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status == UserStatusActive, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (User, error) {
	var user User
	var role string
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, email, full_name, role, status
    FROM users
    WHERE id::text = $1
  `, userID).Scan(&user.ID, &user.Email, &user.FullName, &role, &user.Status)
	if err != nil {
		return User{}, err
	}
	user.Role = Role(role)
	return user, nil
}

func (s *Store) UpsertUserByEmail(ctx context.Context, email, fullName string, role Role) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (email, full_name, role)
    VALUES ($1,$2,$3)
    ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name, role = EXCLUDED.role, updated_at = now()
    RETURNING id::text
  `, email, fullName, string(role)).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
