// Package mailer sends outreach email through a configured driver.
package mailer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/resend"
)

// Message is a single outbound email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
	BCC     string
	ReplyTo string
}

// Sender delivers a Message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// NewFromConfig builds the Sender selected by cfg.Driver. An empty driver
// returns a nil Sender, which callers treat as "email disabled".
func NewFromConfig(cfg config.EmailConfig) (Sender, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "resend":
		var opts []resend.Option
		if cfg.ResendURL != "" {
			opts = append(opts, resend.WithBaseURL(cfg.ResendURL))
		}
		return NewResendSender(resend.NewClient(cfg.ResendKey, opts...)), nil
	case "smtp":
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword), nil
	default:
		return nil, eris.Errorf("mailer: unknown driver %q", cfg.Driver)
	}
}

// ResendSender delivers through the Resend HTTP API.
type ResendSender struct {
	client resend.Client
}

// NewResendSender wraps a resend client.
func NewResendSender(c resend.Client) *ResendSender {
	return &ResendSender{client: c}
}

// Send posts the message to Resend. 429 and 5xx responses come back as
// resilience.TransientError.
func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}
	req := resend.SendRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}
	if msg.BCC != "" {
		req.BCC = []string{msg.BCC}
	}
	if msg.ReplyTo != "" {
		req.ReplyTo = []string{msg.ReplyTo}
	}

	resp, err := s.client.Send(ctx, req)
	if err != nil {
		var apiErr *resend.APIError
		if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return "", resilience.NewTransientError(eris.Wrap(err, "mailer: resend"), apiErr.StatusCode)
		}
		return "", eris.Wrap(err, "mailer: resend")
	}
	return resp.ID, nil
}

// Guarded routes every send through a circuit breaker so a failing
// provider is not hammered during a batch.
type Guarded struct {
	next    Sender
	breaker *resilience.CircuitBreaker
}

// NewGuarded wraps next with cb.
func NewGuarded(next Sender, cb *resilience.CircuitBreaker) *Guarded {
	return &Guarded{next: next, breaker: cb}
}

// Send implements Sender.
func (g *Guarded) Send(ctx context.Context, msg Message) (string, error) {
	id, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (string, error) {
		return g.next.Send(ctx, msg)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		zap.L().Warn("mailer: circuit open, email skipped", zap.String("breaker", g.breaker.Name()))
	}
	return id, err
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return eris.New("mailer: recipient is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return eris.New("mailer: subject is required")
	}
	if m.HTML == "" && m.Text == "" {
		return eris.New("mailer: body is required")
	}
	return nil
}

// statusFromSMTP maps SMTP reply codes onto an HTTP-ish status so transient
// classification is shared with the HTTP drivers. 4xx replies are temporary.
func statusFromSMTP(code int) int {
	if code >= 400 && code < 500 {
		return http.StatusServiceUnavailable
	}
	return 0
}
