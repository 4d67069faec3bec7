package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfeval/internal/domain/evaluation"
)

type memStore struct {
	mu            sync.Mutex
	notifications map[string][]Message
	emails        map[string]string
	prefs         map[string]Preferences
	subs          map[string]PushSubscription
	deliveries    []Delivery
	failCreate    error
}

func newMemStore() *memStore {
	return &memStore{
		notifications: map[string][]Message{},
		emails:        map[string]string{},
		prefs:         map[string]Preferences{},
		subs:          map[string]PushSubscription{},
	}
}

func (m *memStore) CreateNotification(_ context.Context, userID string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	m.notifications[userID] = append(m.notifications[userID], msg)
	return nil
}

func (m *memStore) ListNotifications(_ context.Context, userID string, limit, offset int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for i, msg := range m.notifications[userID] {
		out = append(out, Notification{ID: fmt.Sprint(i), Type: msg.Type, Title: msg.Title, Body: msg.Body, EvaluationID: msg.EvaluationID})
	}
	return out, nil
}

func (m *memStore) CountNotifications(_ context.Context, userID string, _ bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications[userID]), nil
}

func (m *memStore) MarkRead(context.Context, string, string) (bool, error) { return true, nil }

func (m *memStore) UserEmail(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emails[userID], nil
}

func (m *memStore) Preferences(_ context.Context, userID string) (Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prefs, ok := m.prefs[userID]; ok {
		return prefs, nil
	}
	return Preferences{EmailEnabled: true, PushEnabled: true}, nil
}

func (m *memStore) UpdatePreferences(_ context.Context, userID string, prefs Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[userID] = prefs
	return nil
}

func (m *memStore) ListPushSubscriptions(_ context.Context, userID string) ([]PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PushSubscription
	for _, sub := range m.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (m *memStore) SavePushSubscription(_ context.Context, sub PushSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.Endpoint] = sub
	return nil
}

func (m *memStore) DeletePushSubscription(_ context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, endpoint)
	return nil
}

func (m *memStore) DeleteUserPushSubscription(_ context.Context, userID, endpoint string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[endpoint]
	if !ok || sub.UserID != userID {
		return false, nil
	}
	delete(m.subs, endpoint)
	return true, nil
}

func (m *memStore) RecordDelivery(_ context.Context, d Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, d)
	return nil
}

func (m *memStore) deliveriesFor(channel, status string) []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Delivery
	for _, d := range m.deliveries {
		if d.Channel == channel && d.Status == status {
			out = append(out, d)
		}
	}
	return out
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeMailer) Send(_ context.Context, _, to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakePusher struct {
	mu      sync.Mutex
	gone    map[string]bool
	sent    []string
	failing error
}

func (f *fakePusher) Send(_ context.Context, sub PushSubscription, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[sub.Endpoint] {
		return fmt.Errorf("push endpoint: %w", ErrSubscriptionGone)
	}
	if f.failing != nil {
		return f.failing
	}
	f.sent = append(f.sent, sub.Endpoint)
	return nil
}

func TestDeliverSendsOnAllChannels(t *testing.T) {
	store := newMemStore()
	store.emails["E"] = "e@example.com"
	store.subs["https://push/1"] = PushSubscription{UserID: "E", Endpoint: "https://push/1"}
	mailer := &fakeMailer{}
	pusher := &fakePusher{}
	svc := New(store, mailer, pusher)

	report := svc.Deliver(context.Background(), "E", Message{Type: TypeEvaluationCreated, Title: "t", Body: "b", EvaluationID: "ev-1"})
	assert.Equal(t, DeliveryReport{Sent: 3}, report)
	assert.Equal(t, []string{"e@example.com"}, mailer.sent)
	assert.Equal(t, []string{"https://push/1"}, pusher.sent)
	assert.Len(t, store.notifications["E"], 1)
}

func TestDeliverPrunesGoneSubscriptions(t *testing.T) {
	store := newMemStore()
	store.subs["https://push/gone"] = PushSubscription{UserID: "E", Endpoint: "https://push/gone"}
	store.subs["https://push/live"] = PushSubscription{UserID: "E", Endpoint: "https://push/live"}
	pusher := &fakePusher{gone: map[string]bool{"https://push/gone": true}}
	svc := New(store, nil, pusher)

	report := svc.Deliver(context.Background(), "E", Message{Type: TypeEvaluationCreated, Title: "t", Body: "b"})
	assert.Equal(t, 1, report.Pruned)
	assert.NotContains(t, store.subs, "https://push/gone")
	assert.Contains(t, store.subs, "https://push/live")
	assert.Len(t, store.deliveriesFor(ChannelPush, DeliveryPruned), 1)
}

func TestDeliverSwallowsTransportFailures(t *testing.T) {
	store := newMemStore()
	store.emails["E"] = "e@example.com"
	store.subs["https://push/1"] = PushSubscription{UserID: "E", Endpoint: "https://push/1"}
	svc := New(store, &fakeMailer{err: errors.New("smtp down")}, &fakePusher{failing: errors.New("503")})

	report := svc.Deliver(context.Background(), "E", Message{Type: TypeEvaluationConcluded, Title: "t", Body: "b", EvaluationID: "ev-1"})
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 2, report.Failed)

	failedEmail := store.deliveriesFor(ChannelEmail, DeliveryFailed)
	require.Len(t, failedEmail, 1)
	assert.Equal(t, "smtp down", failedEmail[0].Error)
	assert.Equal(t, "ev-1", failedEmail[0].EvaluationID)
	assert.Len(t, store.deliveriesFor(ChannelPush, DeliveryFailed), 1)
	assert.Contains(t, store.subs, "https://push/1")
}

func TestDeliverHonoursPreferences(t *testing.T) {
	store := newMemStore()
	store.emails["E"] = "e@example.com"
	store.prefs["E"] = Preferences{EmailEnabled: false, PushEnabled: false}
	store.subs["https://push/1"] = PushSubscription{UserID: "E", Endpoint: "https://push/1"}
	mailer := &fakeMailer{}
	pusher := &fakePusher{}
	svc := New(store, mailer, pusher)

	report := svc.Deliver(context.Background(), "E", Message{Type: TypeEvaluationCreated})
	assert.Equal(t, DeliveryReport{Sent: 1}, report)
	assert.Empty(t, mailer.sent)
	assert.Empty(t, pusher.sent)
}

func TestMessagesForRoutesRecipients(t *testing.T) {
	base := evaluation.TransitionEvent{EvaluationID: "ev", EmployeeID: "E", EvaluatorID: "M"}
	tests := []struct {
		status evaluation.Status
		want   []string
	}{
		{evaluation.StatusCreated, []string{"E"}},
		{evaluation.StatusAwaitingManagerApproval, []string{"M"}},
		{evaluation.StatusManagerApprovedAwaitingComment, []string{"E"}},
		{evaluation.StatusAwaitingFinalization, []string{"M"}},
		{evaluation.StatusConcluded, []string{"E", "M"}},
		{evaluation.StatusDeleted, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			evt := base
			evt.To = tt.status
			var got []string
			for _, target := range messagesFor(evt) {
				got = append(got, target.UserID)
				assert.Equal(t, "ev", target.Message.EvaluationID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConcludedMessageIncludesScore(t *testing.T) {
	evt := evaluation.TransitionEvent{EvaluationID: "ev", EmployeeID: "E", EvaluatorID: "M", To: evaluation.StatusConcluded,
		FinalScore: decimal.NewNullDecimal(decimal.RequireFromString("3.6667"))}
	targets := messagesFor(evt)
	require.Len(t, targets, 2)
	assert.Contains(t, targets[0].Message.Body, "3.67")
}

func TestRecordDroppedStoresFailedDelivery(t *testing.T) {
	store := newMemStore()
	svc := New(store, nil, nil)

	svc.RecordDropped(context.Background(), "E", Message{Type: TypeEvaluationCreated, EvaluationID: "ev-9"}, "dropped: notification queue full")

	failed := store.deliveriesFor(ChannelDispatch, DeliveryFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "E", failed[0].UserID)
	assert.Equal(t, "ev-9", failed[0].EvaluationID)
	assert.Equal(t, "dropped: notification queue full", failed[0].Error)
	assert.Empty(t, store.notifications)
}

func TestDeliverWithoutTransportsRecordsOnlyInApp(t *testing.T) {
	store := newMemStore()
	store.emails["E"] = "e@example.com"
	store.subs["https://push/1"] = PushSubscription{UserID: "E", Endpoint: "https://push/1"}
	svc := New(store, nil, nil)

	report := svc.Deliver(context.Background(), "E", Message{Type: TypeEvaluationCreated})
	assert.Equal(t, DeliveryReport{Sent: 1}, report)
	assert.Empty(t, store.deliveriesFor(ChannelEmail, DeliverySent))
	assert.Empty(t, store.deliveriesFor(ChannelPush, DeliverySent))
}
