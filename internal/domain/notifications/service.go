package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// PushSender delivers an encrypted Web Push message. It returns an error
// wrapping ErrSubscriptionGone when the endpoint has expired.
type PushSender interface {
	Send(ctx context.Context, sub PushSubscription, payload []byte) error
}

// Observer counts channel outcomes for metrics.
type Observer interface {
	ObserveDelivery(channel, status string)
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	Pusher      PushSender
	Observer    Observer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer, pusher PushSender) *Service {
	return &Service{store: store, Mailer: mailer, Pusher: pusher, DefaultFrom: "no-reply@example.com"}
}

// Deliver sends msg to userID on every enabled channel. Channel failures are
// recorded as failed deliveries and never returned.
func (s *Service) Deliver(ctx context.Context, userID string, msg Message) DeliveryReport {
	var report DeliveryReport

	if err := s.store.CreateNotification(ctx, userID, msg); err != nil {
		slog.Warn("in-app notification failed", "err", err, "user_id", userID, "type", msg.Type)
		s.record(ctx, &report, userID, ChannelInApp, msg, DeliveryFailed, err)
	} else {
		s.record(ctx, &report, userID, ChannelInApp, msg, DeliverySent, nil)
	}

	prefs, err := s.store.Preferences(ctx, userID)
	if err != nil {
		slog.Warn("notification preferences lookup failed", "err", err, "user_id", userID)
		return report
	}
	if prefs.EmailEnabled {
		s.deliverEmail(ctx, &report, userID, msg)
	}
	if prefs.PushEnabled {
		s.deliverPush(ctx, &report, userID, msg)
	}
	return report
}

func (s *Service) deliverEmail(ctx context.Context, report *DeliveryReport, userID string, msg Message) {
	if s.Mailer == nil {
		return
	}
	email, err := s.store.UserEmail(ctx, userID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err, "user_id", userID)
		return
	}
	if strings.TrimSpace(email) == "" {
		return
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, email, msg.Title, msg.Body); err != nil {
		slog.Warn("notification email send failed", "err", err, "user_id", userID, "type", msg.Type)
		s.record(ctx, report, userID, ChannelEmail, msg, DeliveryFailed, err)
		return
	}
	s.record(ctx, report, userID, ChannelEmail, msg, DeliverySent, nil)
}

func (s *Service) deliverPush(ctx context.Context, report *DeliveryReport, userID string, msg Message) {
	if s.Pusher == nil {
		return
	}
	subs, err := s.store.ListPushSubscriptions(ctx, userID)
	if err != nil {
		slog.Warn("push subscription lookup failed", "err", err, "user_id", userID)
		return
	}
	if len(subs) == 0 {
		return
	}
	payload, err := pushPayload(msg)
	if err != nil {
		slog.Warn("push payload encode failed", "err", err)
		return
	}

	for _, sub := range subs {
		err := s.Pusher.Send(ctx, sub, payload)
		switch {
		case err == nil:
			s.record(ctx, report, userID, ChannelPush, msg, DeliverySent, nil)
		case errors.Is(err, ErrSubscriptionGone):
			if delErr := s.store.DeletePushSubscription(ctx, sub.Endpoint); delErr != nil {
				slog.Warn("push subscription prune failed", "err", delErr, "user_id", userID)
			}
			s.record(ctx, report, userID, ChannelPush, msg, DeliveryPruned, err)
		default:
			slog.Warn("push send failed", "err", err, "user_id", userID, "type", msg.Type)
			s.record(ctx, report, userID, ChannelPush, msg, DeliveryFailed, err)
		}
	}
}

// RecordDropped stores a failed delivery for a message the dispatcher never
// handed to a channel, so it stays visible to a later retry.
func (s *Service) RecordDropped(ctx context.Context, userID string, msg Message, reason string) {
	var report DeliveryReport
	s.record(ctx, &report, userID, ChannelDispatch, msg, DeliveryFailed, errors.New(reason))
}

func (s *Service) record(ctx context.Context, report *DeliveryReport, userID, channel string, msg Message, status string, cause error) {
	switch status {
	case DeliverySent:
		report.Sent++
	case DeliveryFailed:
		report.Failed++
	case DeliveryPruned:
		report.Pruned++
	}
	if s.Observer != nil {
		s.Observer.ObserveDelivery(channel, status)
	}

	d := Delivery{UserID: userID, Channel: channel, Type: msg.Type, EvaluationID: msg.EvaluationID, Status: status}
	if cause != nil {
		d.Error = cause.Error()
	}
	if err := s.store.RecordDelivery(ctx, d); err != nil {
		slog.Warn("notification delivery record failed", "err", err, "channel", channel, "status", status)
	}
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, userID string, unreadOnly bool) (int, error) {
	return s.store.CountNotifications(ctx, userID, unreadOnly)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	return s.store.MarkRead(ctx, userID, notificationID)
}

func (s *Service) GetPreferences(ctx context.Context, userID string) (Preferences, error) {
	return s.store.Preferences(ctx, userID)
}

func (s *Service) UpdatePreferences(ctx context.Context, userID string, prefs Preferences) error {
	return s.store.UpdatePreferences(ctx, userID, prefs)
}

func (s *Service) Subscribe(ctx context.Context, sub PushSubscription) error {
	return s.store.SavePushSubscription(ctx, sub)
}

func (s *Service) Unsubscribe(ctx context.Context, userID, endpoint string) (bool, error) {
	return s.store.DeleteUserPushSubscription(ctx, userID, endpoint)
}
