package notifications

import (
	"errors"
	"time"
)

// ErrSubscriptionGone is returned by push senders when the endpoint no longer
// exists and the subscription must be removed.
var ErrSubscriptionGone = errors.New("push subscription gone")

type Notification struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	EvaluationID string     `json:"evaluationId,omitempty"`
	ReadAt       *time.Time `json:"readAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Message is one notification addressed to one user on every channel.
type Message struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	EvaluationID string `json:"evaluationId,omitempty"`
}

type Preferences struct {
	EmailEnabled bool `json:"emailEnabled"`
	PushEnabled  bool `json:"pushEnabled"`
}

type PushSubscription struct {
	ID       string `json:"id,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

type Delivery struct {
	UserID       string
	Channel      string
	Type         string
	EvaluationID string
	Status       string
	Error        string
}

// DeliveryReport counts channel outcomes for one Deliver call.
type DeliveryReport struct {
	Sent   int
	Failed int
	Pruned int
}
