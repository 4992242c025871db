package services

import (
	"fmt"
	"log"
	"os"

	"github.com/resend/resend-go/v2"
)

// MailSender is the notification dispatcher contract. All sends are
// fire-and-forget: callers log failures and carry on, there is no retry queue.
type MailSender interface {
	SendReporterConfirmation(to, subject, category, description string) error
	SendOwnerNotification(to, subject, category, description, reporter, reporterEmail string) error
	SendFeedbackThanks(to, subject string) error
	SendFeedbackToAdmin(subject, message string) error
}

// Mail is the process-wide dispatcher. main() installs the Resend-backed
// implementation; tests install a fake.
var Mail MailSender = &logMailer{}

func InitializeMail() {
	Mail = NewResendMailer()
}

type ResendMailer struct {
	client     *resend.Client
	from       string
	adminEmail string
}

func NewResendMailer() *ResendMailer {
	return &ResendMailer{
		client:     resend.NewClient(os.Getenv("RESEND_API_KEY")),
		from:       os.Getenv("EMAIL_FROM"),
		adminEmail: os.Getenv("ADMIN_EMAIL"),
	}
}

func (m *ResendMailer) send(to, subject, html string) error {
	if to == "" {
		return fmt.Errorf("recipient is required")
	}
	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	return err
}

func (m *ResendMailer) SendReporterConfirmation(to, subject, category, description string) error {
	html := fmt.Sprintf(
		"<p>Twoje zgłoszenie zostało przyjęte.</p><p>Kategoria: %s</p><p>%s</p>",
		category, description)
	return m.send(to, subject, html)
}

func (m *ResendMailer) SendOwnerNotification(to, subject, category, description, reporter, reporterEmail string) error {
	html := fmt.Sprintf(
		"<p>Nowe zgłoszenie.</p><p>Kategoria: %s</p><p>%s</p><p>Zgłaszający: %s (%s)</p>",
		category, description, reporter, reporterEmail)
	return m.send(to, subject, html)
}

func (m *ResendMailer) SendFeedbackThanks(to, subject string) error {
	return m.send(to, subject, "<p>Dziękujemy za przesłanie opinii!</p>")
}

func (m *ResendMailer) SendFeedbackToAdmin(subject, message string) error {
	return m.send(m.adminEmail, subject, fmt.Sprintf("<p>%s</p>", message))
}

// logMailer is the fallback when mail is not initialized (local development
// without a RESEND_API_KEY). It only logs.
type logMailer struct{}

func (l *logMailer) SendReporterConfirmation(to, subject, category, description string) error {
	log.Printf("mail (noop): reporter confirmation to %s: %s", to, subject)
	return nil
}

func (l *logMailer) SendOwnerNotification(to, subject, category, description, reporter, reporterEmail string) error {
	log.Printf("mail (noop): owner notification to %s: %s", to, subject)
	return nil
}

func (l *logMailer) SendFeedbackThanks(to, subject string) error {
	log.Printf("mail (noop): feedback thanks to %s: %s", to, subject)
	return nil
}

func (l *logMailer) SendFeedbackToAdmin(subject, message string) error {
	log.Printf("mail (noop): feedback to admin: %s", subject)
	return nil
}
