package mailer

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/sells-group/prospect-cli/pkg/resend"
)

type fakeResend struct {
	req  resend.SendRequest
	resp *resend.SendResponse
	err  error
}

func (f *fakeResend) Send(_ context.Context, req resend.SendRequest) (*resend.SendResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

type stubSender struct {
	calls int
	err   error
}

func (s *stubSender) Send(context.Context, Message) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "id-1", nil
}
