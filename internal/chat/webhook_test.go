package chat

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roomflow/roomflow/internal/testutil"
)

func TestWebhookReplier_PostsReply(t *testing.T) {
	var got webhookReply
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewWebhookReplier(WebhookReplierConfig{URL: srv.URL})
	r.Send("hello")

	if got.Text != "hello" {
		t.Errorf("expected text hello, got %q", got.Text)
	}
}

func TestWebhookReplier_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewWebhookReplier(WebhookReplierConfig{URL: srv.URL, Retries: 2})
	r.Send("hello")

	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestWebhookReplier_RetryGetsFreshTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// First attempt stalls past the timeout; the retry answers at once.
		if calls.Add(1) == 1 {
			time.Sleep(300 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewWebhookReplier(WebhookReplierConfig{
		URL:     srv.URL,
		Timeout: 100 * time.Millisecond,
		Retries: 1,
	})
	r.Send("hello")

	if calls.Load() != 2 {
		t.Errorf("expected the retry to run with its own budget, got %d attempts", calls.Load())
	}
}

func TestWebhookReplier_CustomHeaders(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewWebhookReplier(WebhookReplierConfig{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer token"},
	})
	r.Send("hello")

	if auth != "Bearer token" {
		t.Errorf("expected auth header, got %q", auth)
	}
}

func TestWebhookReplier_VCRReplay(t *testing.T) {
	rec, cleanup := testutil.NewVCRRecorder(t, "reply_webhook")
	defer cleanup()

	r := NewWebhookReplier(WebhookReplierConfig{
		URL:    "https://chat.example.com/reply",
		Client: testutil.VCRHTTPClient(rec),
	})
	r.Send("hello")
}
