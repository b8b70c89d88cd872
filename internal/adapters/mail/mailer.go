package mailad

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"review_ingest/internal/adapters/observability"
)

// Options holds SMTP settings. The session always upgrades with STARTTLS
// and authenticates with SMTP AUTH PLAIN when a username is set.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string // comma separated
	Timeout  time.Duration
}

type Mailer struct{ opts Options }

func New(opts Options) *Mailer {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Mailer{opts: opts}
}

func (m *Mailer) Send(ctx context.Context, subject, body string) error {
	msg, err := m.message(subject, body)
	if err != nil {
		return err
	}

	clientOpts := []mail.Option{
		mail.WithPort(m.opts.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(m.opts.Timeout),
	}
	if m.opts.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.opts.Username),
			mail.WithPassword(m.opts.Password),
		)
	}
	c, err := mail.NewClient(m.opts.Host, clientOpts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	start := time.Now()
	err = c.DialAndSendWithContext(ctx, msg)
	status := 250
	if err != nil {
		status = 0
	}
	observability.ObserveExternal("smtp", m.opts.Host, status, time.Since(start))
	if err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *Mailer) message(subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.opts.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(recipients(m.opts.To)...); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func recipients(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
