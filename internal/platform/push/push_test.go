package push

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"perfeval/internal/domain/notifications"
	"perfeval/internal/platform/config"
)

func browserSubscription(t *testing.T, endpoint string) notifications.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatalf("auth secret: %v", err)
	}
	return notifications.PushSubscription{
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
}

func newTestClient(t *testing.T, httpClient *http.Client) (*Client, string) {
	t.Helper()
	public, private, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("vapid keys: %v", err)
	}
	client, err := NewClient(public, private, "mailto:ops@example.com", time.Hour, httpClient)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, public
}

func vapidPublicKey(t *testing.T, encoded string) *ecdsa.PublicKey {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	x, y := elliptic.Unmarshal(elliptic.P256(), raw)
	if x == nil {
		t.Fatal("public key is not an uncompressed P-256 point")
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
}

func TestSendEncryptsAndAuthenticates(t *testing.T) {
	var (
		received []byte
		header   http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client, public := newTestClient(t, server.Client())
	payload := []byte(`{"title":"Evaluation concluded"}`)
	if err := client.Send(context.Background(), browserSubscription(t, server.URL+"/push/abc"), payload); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(received) == 0 || bytes.Contains(received, payload) {
		t.Fatalf("expected an encrypted body, got %q", received)
	}
	if header.Get("Content-Encoding") != "aes128gcm" {
		t.Fatalf("unexpected content encoding %q", header.Get("Content-Encoding"))
	}
	if header.Get("TTL") != "3600" {
		t.Fatalf("unexpected ttl %q", header.Get("TTL"))
	}

	authz := header.Get("Authorization")
	if !strings.HasPrefix(authz, "vapid t=") || !strings.HasSuffix(authz, ", k="+public) {
		t.Fatalf("unexpected authorization header %q", authz)
	}
	token := strings.TrimSuffix(strings.TrimPrefix(authz, "vapid t="), ", k="+public)
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return vapidPublicKey(t, public), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()})); err != nil {
		t.Fatalf("vapid token: %v", err)
	}
	if aud, ok := claims["aud"].(string); !ok || aud != server.URL {
		t.Fatalf("expected a single origin audience %q, got %#v", server.URL, claims["aud"])
	}
}

func TestSendReportsGoneSubscription(t *testing.T) {
	for _, status := range []int{http.StatusGone, http.StatusNotFound} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		client, _ := newTestClient(t, server.Client())
		err := client.Send(context.Background(), browserSubscription(t, server.URL), []byte("x"))
		server.Close()
		if !errors.Is(err, notifications.ErrSubscriptionGone) {
			t.Fatalf("status %d: expected ErrSubscriptionGone, got %v", status, err)
		}
	}
}

func TestSendReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	client, _ := newTestClient(t, server.Client())

	err := client.Send(context.Background(), browserSubscription(t, server.URL), []byte("x"))
	if err == nil || errors.Is(err, notifications.ErrSubscriptionGone) {
		t.Fatalf("expected plain failure, got %v", err)
	}
}

func TestNewClientRejectsBadKeys(t *testing.T) {
	if _, err := NewClient("pub", "not-base64!!", "mailto:x", time.Hour, nil); err == nil {
		t.Fatal("expected error for malformed private key")
	}
	public, _, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("vapid keys: %v", err)
	}
	if _, err := NewClient(public, base64.RawURLEncoding.EncodeToString([]byte("short")), "mailto:x", time.Hour, nil); err == nil {
		t.Fatal("expected error for a private key of the wrong length")
	}
}

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	sender, err := New(config.Config{PushEnabled: false})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if sender != nil {
		t.Fatalf("expected no sender when push is disabled, got %T", sender)
	}
}
