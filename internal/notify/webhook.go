// Package notify delivers pipeline notifications to an external webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

const defaultTimeout = 10 * time.Second

// SourcedNotice tells an automation hook that search sourcing inserted leads.
type SourcedNotice struct {
	Event    string    `json:"event"`
	TenantID string    `json:"tenant_id"`
	LeadIDs  []string  `json:"lead_ids"`
	Count    int       `json:"count"`
	Query    string    `json:"query,omitempty"`
	Location string    `json:"location,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

// Webhook posts JSON notices to a single URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a Webhook from config. An empty URL yields a disabled
// webhook whose Send is a no-op.
func NewWebhook(cfg config.WebhookConfig) *Webhook {
	timeout := defaultTimeout
	if cfg.TimeoutSecs > 0 {
		timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	return &Webhook{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a URL is configured.
func (w *Webhook) Enabled() bool {
	return w != nil && w.url != ""
}

// Send posts payload. 429 and 5xx responses are returned as transient so
// the dispatcher can requeue the event.
func (w *Webhook) Send(ctx context.Context, payload any) error {
	if !w.Enabled() {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "notify: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "notify: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		err := eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}
	zap.L().Debug("notify: webhook delivered", zap.Int("status", resp.StatusCode))
	return nil
}
