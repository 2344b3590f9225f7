package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Hooks are the external metering callbacks invoked once per session
// lifecycle: at session-active-begin and session-active-end. The gateway
// does not know pricing; it only guarantees the calls happen once per
// session, never per frame.
type Hooks interface {
	SessionStarted(ctx context.Context, clientID, credentialID string)
	SessionEnded(ctx context.Context, clientID string, duration time.Duration)
}

// NoopHooks is used when no billing endpoint is configured.
type NoopHooks struct{}

func (NoopHooks) SessionStarted(ctx context.Context, clientID, credentialID string) {}
func (NoopHooks) SessionEnded(ctx context.Context, clientID string, duration time.Duration) {}

// WebhookHooks posts session lifecycle events to an external billing
// endpoint. Delivery is best-effort: failures are logged, never propagated
// into the session flow.
type WebhookHooks struct {
	url        string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewWebhookHooks creates billing hooks that POST to the given URL.
func NewWebhookHooks(url string, logger zerolog.Logger) *WebhookHooks {
	return &WebhookHooks{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "billing").Logger(),
	}
}

type webhookPayload struct {
	Event      string `json:"event"`
	ClientID   string `json:"client_id"`
	Credential string `json:"credential_id,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Timestamp  string `json:"timestamp"`
}

func (h *WebhookHooks) SessionStarted(ctx context.Context, clientID, credentialID string) {
	h.post(ctx, webhookPayload{
		Event:      "session_started",
		ClientID:   clientID,
		Credential: credentialID,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *WebhookHooks) SessionEnded(ctx context.Context, clientID string, duration time.Duration) {
	h.post(ctx, webhookPayload{
		Event:      "session_ended",
		ClientID:   clientID,
		DurationMs: duration.Milliseconds(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *WebhookHooks) post(ctx context.Context, payload webhookPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal billing payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewBuffer(body))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create billing request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Warn().Err(err).Str("event", payload.Event).Msg("Billing webhook failed")
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		h.logger.Warn().
			Int("status", resp.StatusCode).
			Str("event", payload.Event).
			Msg("Billing webhook rejected")
	}
}
