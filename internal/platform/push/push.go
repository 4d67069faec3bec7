package push

import (
	"context"
	"crypto/ecdh"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"perfeval/internal/domain/notifications"
	"perfeval/internal/platform/config"
)

const vapidTokenTTL = 12 * time.Hour

// Client sends Web Push messages authenticated with VAPID.
type Client struct {
	http       *http.Client
	publicKey  string
	privateKey string
	subject    string
	ttl        time.Duration
	now        func() time.Time
}

// New returns nil when push is disabled so that no push delivery is recorded.
func New(cfg config.Config) (notifications.PushSender, error) {
	if !cfg.PushEnabled {
		return nil, nil
	}
	client, err := NewClient(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject, cfg.PushTTL, nil)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewClient builds a client from base64url VAPID keys: the raw 32-byte
// private scalar and the uncompressed public point.
func NewClient(publicKey, privateKey, subject string, ttl time.Duration, httpClient *http.Client) (*Client, error) {
	scalar, err := decodeKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("vapid private key: %w", err)
	}
	if _, err := ecdh.P256().NewPrivateKey(scalar); err != nil {
		return nil, fmt.Errorf("vapid private key: %w", err)
	}
	point, err := decodeKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("vapid public key: %w", err)
	}
	if _, err := ecdh.P256().NewPublicKey(point); err != nil {
		return nil, fmt.Errorf("vapid public key: %w", err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Client{
		http:       httpClient,
		publicKey:  publicKey,
		privateKey: privateKey,
		subject:    subject,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// GenerateVAPIDKeys returns a new key pair in the encoding NewClient expects.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	return publicKey, privateKey, err
}

// Send encrypts payload for sub and posts it to the push service. A 404 or
// 410 answer yields an error wrapping notifications.ErrSubscriptionGone.
func (c *Client) Send(ctx context.Context, sub notifications.PushSubscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}, &webpush.Options{
		HTTPClient:      c.http,
		Subscriber:      c.subject,
		TTL:             int(c.ttl.Seconds()),
		Urgency:         webpush.UrgencyNormal,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
		VapidExpiration: c.now().Add(vapidTokenTTL),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: push service returned %d", notifications.ErrSubscriptionGone, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

func decodeKey(value string) ([]byte, error) {
	if decoded, err := base64.RawURLEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.URLEncoding.DecodeString(value)
}
