package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/csmblade/panfm-go-rewrite/internal/errkind"
	"github.com/csmblade/panfm-go-rewrite/internal/models"
)

// EmailChannel sends alert notifications over SMTP. No ecosystem mail
// client covers plain authenticated SMTP send any more directly than the
// standard library does, so this is the one channel built on net/smtp
// rather than a third-party library (see DESIGN.md).
type EmailChannel struct {
	id         string
	host       string
	port       int
	user       string
	password   string
	from       string
	recipients []string
}

func NewEmailChannel(id, host string, port int, user, password, from string, recipients []string) *EmailChannel {
	return &EmailChannel{id: id, host: host, port: port, user: user, password: password, from: from, recipients: recipients}
}

func (c *EmailChannel) ID() string   { return c.id }
func (c *EmailChannel) Kind() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, trigger models.Trigger, history models.AlertHistory) error {
	return withRetry(ctx, c.id, func(ctx context.Context) error {
		return c.send(history)
	})
}

func (c *EmailChannel) send(history models.AlertHistory) error {
	subject := fmt.Sprintf("[%s] %s alert", strings.ToUpper(string(history.Severity)), history.Metric)
	body := fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		strings.Join(c.recipients, ", "), c.from, subject, history.Message)

	addr := net.JoinHostPort(c.host, fmt.Sprintf("%d", c.port))
	var auth smtp.Auth
	if c.user != "" {
		auth = smtp.PlainAuth("", c.user, c.password, c.host)
	}

	if err := smtp.SendMail(addr, auth, c.from, c.recipients, []byte(body)); err != nil {
		// A permanent 5xx reply (auth failure, rejected recipient) is not
		// retried; everything else is treated as a transport failure.
		var reply *textproto.Error
		if errors.As(err, &reply) && reply.Code >= 500 {
			return errkind.New(errkind.AuthZ, "notify.email.send", err)
		}
		return errkind.New(errkind.Transient, "notify.email.send", err)
	}
	return nil
}
