package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strings"
	texttemplate "text/template"

	"gopkg.in/gomail.v2"
)

// EmailConfig represents email service configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// Attachment is a file carried by a message
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outgoing email
type Message struct {
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer delivers messages over SMTP
type SMTPMailer struct {
	config EmailConfig
	dialer mailSender
}

// NewSMTPMailer creates a mailer for the configured SMTP server
func NewSMTPMailer(config EmailConfig) *SMTPMailer {
	return &SMTPMailer{
		config: config,
		dialer: gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.SMTPUsername, config.SMTPPassword),
	}
}

// Send builds a multipart message and delivers it
func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := s.build(msg)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}

func (s *SMTPMailer) build(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromEmail, s.config.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	for _, a := range msg.Attachments {
		data := a.Data
		m.Attach(a.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
		)
	}
	return m
}

// LogMailer only logs messages. Used when no SMTP server is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a mailer that writes to the log
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("component", "mailer", "mode", "log")}
}

// Send logs the message envelope
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "email not sent, no SMTP server configured",
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments))
	return nil
}

// TicketEmailLine is one ticket as listed in the delivery email
type TicketEmailLine struct {
	Code       string
	Title      string
	TicketType string
}

// TicketEmailData feeds the ticket delivery templates
type TicketEmailData struct {
	Reference string
	Total     string
	Tickets   []TicketEmailLine
}

var ticketHTMLTemplate = template.Must(template.New("ticket_delivery_html").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Your tickets</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4F46E5; color: white; padding: 20px; text-align: center; }
        .ticket { border: 1px solid #ddd; margin: 10px 0; padding: 15px; background-color: white; }
        .code { font-family: monospace; font-size: 20px; letter-spacing: 2px; }
        .footer { text-align: center; padding: 20px; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>Your tickets</h1></div>
        <p>Thank you for your purchase. Order reference <strong>{{.Reference}}</strong>, total {{.Total}}.</p>
        {{range .Tickets}}
        <div class="ticket">
            <p><strong>{{.Title}}</strong> ({{.TicketType}})</p>
            <p class="code">{{.Code}}</p>
        </div>
        {{end}}
        <p>Each ticket's QR code is attached. Show it at the entrance; every code can be scanned once.</p>
        <div class="footer">VR Theatre</div>
    </div>
</body>
</html>`))

var ticketTextTemplate = texttemplate.Must(texttemplate.New("ticket_delivery_text").Parse(`Thank you for your purchase.

Order reference: {{.Reference}}
Total: {{.Total}}

{{range .Tickets}}- {{.Title}} ({{.TicketType}}): {{.Code}}
{{end}}
Each ticket's QR code is attached. Every code can be scanned once.
`))

// RenderTicketEmail builds the ticket delivery message without attachments
func RenderTicketEmail(to string, data TicketEmailData) (Message, error) {
	var htmlBuf bytes.Buffer
	if err := ticketHTMLTemplate.Execute(&htmlBuf, data); err != nil {
		return Message{}, fmt.Errorf("failed to render HTML template: %w", err)
	}

	var textBuf bytes.Buffer
	if err := ticketTextTemplate.Execute(&textBuf, data); err != nil {
		return Message{}, fmt.Errorf("failed to render text template: %w", err)
	}

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your tickets - order %s", shortRef(data.Reference)),
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}

func shortRef(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

// FormatAmount renders cents as "12.34 EUR"
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}
