// Package notify delivers the account lifecycle emails: welcome, activation
// key and password reset key.
package notify

import (
	"context"
	"time"

	"github.com/goliatone/go-accounts"
)

// MailNotifier renders account emails and hands them to a Mailer. It
// implements accounts.Notifier.
type MailNotifier struct {
	mailer    Mailer
	templates *Templates
	appName   string
}

var _ accounts.Notifier = (*MailNotifier)(nil)

// NewMailNotifier compiles the templates and returns a notifier.
func NewMailNotifier(mailer Mailer, appName string) (*MailNotifier, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	if appName == "" {
		appName = "Accounts"
	}
	return &MailNotifier{mailer: mailer, templates: templates, appName: appName}, nil
}

func (n *MailNotifier) SendWelcome(ctx context.Context, account *accounts.Account) error {
	return n.send(ctx, account, TemplateWelcome, nil)
}

func (n *MailNotifier) SendActivationKey(ctx context.Context, account *accounts.Account, key string, expiresAt time.Time) error {
	return n.send(ctx, account, TemplateActivation, map[string]any{
		"key":        key,
		"expires_at": expiresAt,
	})
}

func (n *MailNotifier) SendPasswordReset(ctx context.Context, account *accounts.Account, key string, expiresAt time.Time) error {
	return n.send(ctx, account, TemplatePasswordReset, map[string]any{
		"key":        key,
		"expires_at": expiresAt,
	})
}

func (n *MailNotifier) send(ctx context.Context, account *accounts.Account, name string, extra map[string]any) error {
	data := map[string]any{
		"app_name": n.appName,
		"username": account.Username,
		"email":    account.Email,
	}
	for k, v := range extra {
		data[k] = v
	}

	subject, body, err := n.templates.Render(name, data)
	if err != nil {
		return err
	}

	return n.mailer.Send(ctx, Message{To: account.Email, Subject: subject, Body: body})
}
