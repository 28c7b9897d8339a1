package identity

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Email is a transactional message handed to an EmailDispatcher.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// EmailDispatcher sends transactional email. Failures come back as a
// delivery error the caller may treat as fatal or as degraded success.
type EmailDispatcher interface {
	Send(ctx context.Context, msg Email) error
}

// EmailDispatcherFunc adapts a function to the EmailDispatcher interface.
type EmailDispatcherFunc func(ctx context.Context, msg Email) error

// Send implements EmailDispatcher.
func (f EmailDispatcherFunc) Send(ctx context.Context, msg Email) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

// SMTPDispatcher delivers mail through a plain SMTP relay. Credentials are
// resolved from the SecretStore at send time so rotation needs no restart.
type SMTPDispatcher struct {
	config  *Config
	secrets SecretStore
	logger  Logger
}

// NewSMTPDispatcher creates a dispatcher bound to the given config and secrets.
func NewSMTPDispatcher(config *Config, secrets SecretStore) *SMTPDispatcher {
	return &SMTPDispatcher{
		config:  config,
		secrets: secrets,
		logger:  defLogger{},
	}
}

// WithLogger overrides the logger used by the dispatcher.
func (d *SMTPDispatcher) WithLogger(logger Logger) *SMTPDispatcher {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// Send implements EmailDispatcher.
func (d *SMTPDispatcher) Send(ctx context.Context, msg Email) error {
	if d.config == nil || d.config.SMTPHost == "" || d.config.SMTPFrom == "" {
		return ErrDeliveryError.WithMetadata(map[string]any{
			"reason": "mailer missing configuration",
		})
	}

	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email dispatch")
	default:
	}

	message := strings.Builder{}
	message.WriteString(fmt.Sprintf("From: %s\r\n", d.config.SMTPFrom))
	message.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	message.WriteString(msg.HTML)
	message.WriteString("\r\n")

	var auth smtp.Auth
	username, hasUser := d.secretValue(ctx, d.config.SMTPUsernameKey)
	password, hasPass := d.secretValue(ctx, d.config.SMTPPasswordKey)
	if hasUser || hasPass {
		auth = smtp.PlainAuth("", username, password, d.config.SMTPHost)
	} else {
		d.logger.Debug("smtp credentials absent, sending unauthenticated")
	}

	addr := net.JoinHostPort(d.config.SMTPHost, d.config.SMTPPort)
	if err := smtp.SendMail(addr, auth, d.config.SMTPFrom, []string{msg.To}, []byte(message.String())); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to deliver email").
			WithTextCode(TextCodeDeliveryError)
	}

	return nil
}

func (d *SMTPDispatcher) secretValue(ctx context.Context, name string) (string, bool) {
	if d.secrets == nil || name == "" {
		return "", false
	}
	return d.secrets.Get(ctx, name)
}

// ResetPasswordLink builds the public link embedded in reset emails.
func ResetPasswordLink(baseURL, token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(baseURL, "/"), url.QueryEscape(token))
}

// AcceptInvitationLink builds the public link embedded in invitation emails.
func AcceptInvitationLink(baseURL, token string) string {
	return fmt.Sprintf("%s/register?token=%s", strings.TrimRight(baseURL, "/"), url.QueryEscape(token))
}

func resetPasswordEmail(to, link string) Email {
	return Email{
		To:      to,
		Subject: "Reset your password",
		HTML: fmt.Sprintf(`<p>We received a request to reset the password for this address.</p>
<p><a href="%s">Choose a new password</a></p>
<p>The link expires shortly. If you did not request this, you can ignore this email.</p>`, link),
	}
}

func invitationEmail(to, inviterName, link string) Email {
	intro := "You have been invited to join the team."
	if inviterName != "" {
		intro = fmt.Sprintf("%s has invited you to join the team.", inviterName)
	}
	return Email{
		To:      to,
		Subject: "You're invited",
		HTML: fmt.Sprintf(`<p>%s</p>
<p><a href="%s">Accept the invitation</a></p>
<p>This invitation is personal and expires; if it was not meant for you, ignore this email.</p>`, intro, link),
	}
}

func suspensionNoticeEmail(to, userName string) Email {
	return Email{
		To:      to,
		Subject: "Account suspended",
		HTML: fmt.Sprintf(`<p>The account for %s was suspended and all of its sessions were revoked.</p>
<p>Review the audit trail in the admin panel for details.</p>`, userName),
	}
}
