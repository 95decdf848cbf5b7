package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// WebhookReplier posts each reply to an external callback URL. Delivery is
// fire-and-forget: failures are logged, never surfaced to the pipeline.
type WebhookReplier struct {
	url     string
	timeout time.Duration
	retries int
	headers map[string]string
	client  *http.Client
	logger  *slog.Logger
}

// WebhookReplierConfig configures a webhook replier.
type WebhookReplierConfig struct {
	URL     string
	Timeout time.Duration
	Retries int
	Headers map[string]string
	// Client overrides the HTTP client, used by tests.
	Client *http.Client
	Logger *slog.Logger
}

// NewWebhookReplier creates a replier that POSTs replies to cfg.URL.
func NewWebhookReplier(cfg WebhookReplierConfig) *WebhookReplier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WebhookReplier{
		url:     cfg.URL,
		timeout: timeout,
		retries: cfg.Retries,
		headers: cfg.Headers,
		client:  client,
		logger:  logger,
	}
}

type webhookReply struct {
	Text string `json:"text"`
}

// Send posts the reply, retrying failed attempts up to the configured
// retry count. Each attempt gets the full timeout; a slow first attempt
// does not eat into the retries' budget.
func (r *WebhookReplier) Send(text string) {
	var lastErr error
	attempts := r.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.doRequest(ctx, text)
		cancel()
		if err == nil {
			return
		}
		lastErr = err
	}

	r.logger.Warn("reply webhook failed",
		slog.String("url", r.url),
		slog.String("error", lastErr.Error()),
	)
}

func (r *WebhookReplier) doRequest(ctx context.Context, text string) error {
	body, err := json.Marshal(webhookReply{Text: text})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("reply request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reply webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
