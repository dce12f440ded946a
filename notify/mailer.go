package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
)

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the SMTP server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends HTML mail through an SMTP relay, upgrading to TLS when
// the server offers STARTTLS.
type SMTPMailer struct {
	config SMTPConfig
	dialer *net.Dialer
	now    func() time.Time
	logger accounts.Logger
}

func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		config: config,
		dialer: &net.Dialer{Timeout: 10 * time.Second},
		now:    time.Now,
		logger: accounts.NopLogger(),
	}
}

func (m *SMTPMailer) WithLogger(logger accounts.Logger) *SMTPMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

func (m *SMTPMailer) WithClock(now func() time.Time) *SMTPMailer {
	if now != nil {
		m.now = now
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled before sending email")
	}

	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))
	conn, err := m.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to connect to SMTP server")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		_ = conn.Close()
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to create SMTP client")
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.config.Host}); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to start TLS")
		}
	}

	if m.config.Username != "" {
		auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
		if err := client.Auth(auth); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to authenticate with SMTP server")
		}
	}

	if err := client.Mail(m.config.From); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to set sender")
	}
	if err := client.Rcpt(msg.To); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to set recipient")
	}

	w, err := client.Data()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to open message body")
	}
	if _, err := w.Write(m.compose(msg)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to write message")
	}
	if err := w.Close(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to finish message")
	}

	if err := client.Quit(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to close SMTP session")
	}

	m.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (m *SMTPMailer) compose(msg Message) []byte {
	var buf bytes.Buffer
	headers := [][2]string{
		{"From", m.config.From},
		{"To", msg.To},
		{"Subject", msg.Subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
		{"Date", m.now().Format(time.RFC1123Z)},
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h[0], h[1])
	}
	buf.WriteString("\r\n")
	buf.WriteString(msg.Body)
	return buf.Bytes()
}

// LogMailer writes messages to the log instead of sending them. Used when
// mail delivery is disabled.
type LogMailer struct {
	logger accounts.Logger
}

func NewLogMailer(logger accounts.Logger) *LogMailer {
	if logger == nil {
		logger = accounts.NopLogger()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email not sent, delivery disabled", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
