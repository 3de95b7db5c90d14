package mailer

import (
	"context"
	"errors"
	"net/textproto"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/gomail.v2"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers through an SMTP relay using gomail.
type SMTPSender struct {
	dialer dialer
	host   string
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(host string, port int, user, password string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, user, password),
		host:   host,
	}
}

// Send builds a multipart message and delivers it. The returned id is the
// generated Message-Id header.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "mailer: smtp")
	}

	id := "<" + uuid.NewString() + "@" + s.host + ">"

	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-Id", id)
	if msg.BCC != "" {
		m.SetHeader("Bcc", msg.BCC)
	}
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) {
			if status := statusFromSMTP(tpErr.Code); status != 0 {
				return "", resilience.NewTransientError(eris.Wrap(err, "mailer: smtp send"), status)
			}
		}
		return "", eris.Wrap(err, "mailer: smtp send")
	}
	return id, nil
}
