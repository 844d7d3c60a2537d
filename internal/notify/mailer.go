package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// Message is a rendered mail ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers rendered messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	from string
}

func NewSMTPMailer(addr, from string) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from}
}

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	payload := strings.Join([]string{
		"From: " + m.from,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"",
		msg.Body,
	}, "\r\n")

	if err := smtp.SendMail(m.addr, nil, m.from, []string{msg.To}, []byte(payload)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// LogMailer records deliveries in the log instead of sending them. It is the
// default when no SMTP relay is configured.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log.With().Str("component", "log_mailer").Logger()}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("email delivery simulated")
	return nil
}

// RenderEmail turns a queued job into a sendable message.
func RenderEmail(job EmailJob) Message {
	f := func(key string) string { return job.Fields[key] }

	var body string
	switch job.Type {
	case JobOrderReceipt:
		body = fmt.Sprintf(
			"Hi %s,\n\nWe received your payment of %s for %q (size %s).\nPayment reference: %s\n\nThank you for your order.\nMaterial Wear",
			f("name"), f("amount"), f("item"), f("size"), f("reference"),
		)
	case JobCampaignSummary:
		body = fmt.Sprintf(
			"Hi %s,\n\nYour payment of %s for campaign %q is confirmed.\n%s participants from your roster have been registered.\nPayment reference: %s\n\nThank you.\nMaterial Wear",
			f("name"), f("amount"), f("title"), f("participants"), f("reference"),
		)
	default:
		body = fmt.Sprintf("Notification from Material Wear.\nReference: %s", f("reference"))
	}

	return Message{To: job.To, Subject: job.Subject, Body: body}
}

// FormatAmount renders kobo as a naira string for email bodies.
func FormatAmount(kobo int64) string {
	return fmt.Sprintf("NGN %.2f", float64(kobo)/100)
}
