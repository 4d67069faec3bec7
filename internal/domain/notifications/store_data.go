package notifications

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateNotification(ctx context.Context, userID string, msg Message) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (user_id, type, title, body, evaluation_id)
    VALUES ($1,$2,$3,$4,$5)
  `, userID, msg.Type, msg.Title, msg.Body, nullIfEmpty(msg.EvaluationID))
	return err
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, type, title, body, COALESCE(evaluation_id::text, ''), read_at, created_at
    FROM notifications
    WHERE user_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.EvaluationID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountNotifications(ctx context.Context, userID string, unreadOnly bool) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM notifications
    WHERE user_id = $1 AND (NOT $2 OR read_at IS NULL)
  `, userID, unreadOnly).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = COALESCE(read_at, now())
    WHERE user_id = $1 AND id = $2
  `, userID, notificationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) UserEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.DB.QueryRow(ctx, "SELECT email FROM users WHERE id = $1 AND status = 'active'", userID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return email, err
}

// Preferences defaults to every channel enabled when the user never saved any.
func (s *Store) Preferences(ctx context.Context, userID string) (Preferences, error) {
	prefs := Preferences{EmailEnabled: true, PushEnabled: true}
	err := s.DB.QueryRow(ctx, `
    SELECT email_enabled, push_enabled FROM notification_preferences WHERE user_id = $1
  `, userID).Scan(&prefs.EmailEnabled, &prefs.PushEnabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return prefs, nil
	}
	return prefs, err
}

func (s *Store) UpdatePreferences(ctx context.Context, userID string, prefs Preferences) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notification_preferences (user_id, email_enabled, push_enabled)
    VALUES ($1,$2,$3)
    ON CONFLICT (user_id) DO UPDATE
      SET email_enabled = EXCLUDED.email_enabled,
          push_enabled = EXCLUDED.push_enabled,
          updated_at = now()
  `, userID, prefs.EmailEnabled, prefs.PushEnabled)
	return err
}

func (s *Store) ListPushSubscriptions(ctx context.Context, userID string) ([]PushSubscription, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, user_id, endpoint, p256dh, auth
    FROM push_subscriptions
    WHERE user_id = $1
  `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PushSubscription
	for rows.Next() {
		var sub PushSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// SavePushSubscription re-binds an endpoint to the latest user that registered it.
func (s *Store) SavePushSubscription(ctx context.Context, sub PushSubscription) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (endpoint) DO UPDATE
      SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth
  `, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth)
	return err
}

func (s *Store) DeletePushSubscription(ctx context.Context, endpoint string) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM push_subscriptions WHERE endpoint = $1", endpoint)
	return err
}

func (s *Store) DeleteUserPushSubscription(ctx context.Context, userID, endpoint string) (bool, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2", userID, endpoint)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) RecordDelivery(ctx context.Context, d Delivery) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notification_deliveries (user_id, channel, type, evaluation_id, status, error)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, d.UserID, d.Channel, d.Type, nullIfEmpty(d.EvaluationID), d.Status, d.Error)
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
