package services

import (
	"context"
	"fmt"
	"time"

	"github.com/khabaroff/staff-cards/src/logging"
	"github.com/khabaroff/staff-cards/src/templates"
	"github.com/mailgun/mailgun-go/v4"
)

// Mailer sends the invite and password reset emails
type Mailer interface {
	SendLinkEmail(ctx context.Context, toEmail string, kind templates.Kind, link string, expiry time.Duration) error
}

// EmailService handles transactional email sending via Mailgun
type EmailService struct {
	mg        *mailgun.MailgunImpl
	fromEmail string
	fromName  string
	domain    string
}

// NewEmailService creates a new email service with Mailgun configuration
func NewEmailService(domain, apiKey, fromEmail, fromName string) *EmailService {
	mg := mailgun.NewMailgun(domain, apiKey)
	mg.SetAPIBase(mailgun.APIBaseEU) // Use EU endpoint for GDPR compliance

	return &EmailService{
		mg:        mg,
		fromEmail: fromEmail,
		fromName:  fromName,
		domain:    domain,
	}
}

// renderLinkEmail returns subject, text and html bodies
func renderLinkEmail(kind templates.Kind, link string, expiry time.Duration) (string, string, string, error) {
	config, err := templates.LoadEmailConfig()
	if err != nil {
		return "", "", "", err
	}

	hours := int(expiry.Hours())
	if hours < 1 {
		hours = 1
	}
	data := templates.NewLinkData(config, kind, link, hours)

	htmlBody, err := templates.RenderLinkHTML(data)
	if err != nil {
		return "", "", "", err
	}
	textBody, err := templates.RenderLinkText(data)
	if err != nil {
		return "", "", "", err
	}
	return data.Subject, textBody, htmlBody, nil
}

// SendLinkEmail sends an invite or password reset email
func (s *EmailService) SendLinkEmail(ctx context.Context, toEmail string, kind templates.Kind, link string, expiry time.Duration) error {
	subject, textBody, htmlBody, err := renderLinkEmail(kind, link, expiry)
	if err != nil {
		return fmt.Errorf("failed to render %s email: %w", kind, err)
	}

	message := s.mg.NewMessage(
		fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail),
		subject,
		textBody,
		toEmail,
	)
	message.SetHtml(htmlBody)

	// Set timeout for sending
	ctxWithTimeout, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	if _, _, err := s.mg.Send(ctxWithTimeout, message); err != nil {
		return fmt.Errorf("failed to send %s email to %s: %w", kind, toEmail, err)
	}

	return nil
}

// LogMailer writes links to the log instead of sending them. Used when
// Mailgun is not configured.
type LogMailer struct{}

// SendLinkEmail renders the email and logs the link
func (LogMailer) SendLinkEmail(ctx context.Context, toEmail string, kind templates.Kind, link string, expiry time.Duration) error {
	subject, _, _, err := renderLinkEmail(kind, link, expiry)
	if err != nil {
		return fmt.Errorf("failed to render %s email: %w", kind, err)
	}
	logger := logging.NewLogger("email")
	logger.Warn().
		Str("to", toEmail).
		Str("kind", string(kind)).
		Str("subject", subject).
		Str("link", link).
		Msg("mailgun not configured, email not sent")
	return nil
}

var (
	_ Mailer = (*EmailService)(nil)
	_ Mailer = LogMailer{}
)
