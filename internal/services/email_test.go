package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"
)

type capturingSender struct {
	sent []*gomail.Message
	err  error
}

func (c *capturingSender) DialAndSend(m ...*gomail.Message) error {
	c.sent = append(c.sent, m...)
	return c.err
}

func testMailer(sender mailSender) *SMTPMailer {
	return &SMTPMailer{
		config: EmailConfig{
			SMTPHost:  "smtp.example.com",
			SMTPPort:  587,
			FromEmail: "tickets@vr.example",
			FromName:  "VR Theatre",
		},
		dialer: sender,
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	sender := &capturingSender{}
	mailer := testMailer(sender)

	err := mailer.Send(context.Background(), Message{
		To:      "buyer@example.com",
		Subject: "Your tickets",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
		Attachments: []Attachment{
			{Filename: "ticket-AAAA-BBBB.png", ContentType: "image/png", Data: []byte("png-bytes")},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.sent))
	}

	m := sender.sent[0]
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "buyer@example.com" {
		t.Errorf("unexpected To header: %v", got)
	}
	if got := m.GetHeader("From"); len(got) != 1 || !strings.Contains(got[0], "tickets@vr.example") {
		t.Errorf("unexpected From header: %v", got)
	}

	var raw bytes.Buffer
	if _, err := m.WriteTo(&raw); err != nil {
		t.Fatalf("failed to serialize message: %v", err)
	}
	body := raw.String()
	for _, want := range []string{"plain body", "html body", "ticket-AAAA-BBBB.png", "image/png"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected message to contain %q", want)
		}
	}
}

func TestSMTPMailer_SendErrors(t *testing.T) {
	t.Run("dial failure", func(t *testing.T) {
		mailer := testMailer(&capturingSender{err: errors.New("connection refused")})
		err := mailer.Send(context.Background(), Message{To: "a@b.io", Subject: "s", Text: "t"})
		if err == nil || !strings.Contains(err.Error(), "a@b.io") {
			t.Errorf("expected wrapped send error, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		sender := &capturingSender{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := testMailer(sender).Send(ctx, Message{To: "a@b.io"}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if len(sender.sent) != 0 {
			t.Error("expected nothing to be sent")
		}
	})
}

func TestRenderTicketEmail(t *testing.T) {
	msg, err := RenderTicketEmail("buyer@example.com", TicketEmailData{
		Reference: "5f0c2a9e-1111-2222-3333-444444444444",
		Total:     FormatAmount(4698, "eur"),
		Tickets: []TicketEmailLine{
			{Code: "AAAA-BBBB", Title: "Hamlet <VR>", TicketType: "standard"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.Subject != "Your tickets - order 5F0C2A9E" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "46.98 EUR") || !strings.Contains(msg.Text, "AAAA-BBBB") {
		t.Errorf("text body is missing total or code:\n%s", msg.Text)
	}
	if !strings.Contains(msg.HTML, "Hamlet &lt;VR&gt;") {
		t.Error("expected HTML body to escape the title")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		cents    int64
		currency string
		want     string
	}{
		{4698, "eur", "46.98 EUR"},
		{5, "usd", "0.05 USD"},
		{100000, "eur", "1000.00 EUR"},
		{-250, "eur", "-2.50 EUR"},
	}

	for _, tt := range tests {
		if got := FormatAmount(tt.cents, tt.currency); got != tt.want {
			t.Errorf("FormatAmount(%d, %q) = %q, want %q", tt.cents, tt.currency, got, tt.want)
		}
	}
}

func TestMailDispatcher(t *testing.T) {
	t.Run("delivers queued messages on shutdown", func(t *testing.T) {
		mailer := &recordingMailer{}
		d := NewMailDispatcher(mailer, 2, 10, discardLogger())
		d.Start()

		for i := 0; i < 5; i++ {
			if !d.Enqueue(Message{To: "a@b.io"}) {
				t.Fatal("expected message to be queued")
			}
		}
		if err := d.Shutdown(context.Background()); err != nil {
			t.Fatalf("unexpected shutdown error: %v", err)
		}
		if mailer.count() != 5 {
			t.Errorf("expected 5 deliveries, got %d", mailer.count())
		}
		if d.Enqueue(Message{To: "late@b.io"}) {
			t.Error("expected enqueue after shutdown to fail")
		}
	})

	t.Run("full queue drops", func(t *testing.T) {
		d := NewMailDispatcher(&recordingMailer{}, 1, 1, discardLogger())
		// not started, so the single slot stays occupied
		if !d.Enqueue(Message{To: "first@b.io"}) {
			t.Fatal("expected first message to be queued")
		}
		if d.Enqueue(Message{To: "second@b.io"}) {
			t.Error("expected second message to be dropped")
		}
	})

	t.Run("send failures are logged", func(t *testing.T) {
		mailer := &recordingMailer{err: errors.New("smtp down")}
		d := NewMailDispatcher(mailer, 1, 4, discardLogger())
		d.Start()
		d.Enqueue(Message{To: "a@b.io"})
		if err := d.Shutdown(context.Background()); err != nil {
			t.Fatalf("unexpected shutdown error: %v", err)
		}
		if mailer.count() != 1 {
			t.Errorf("expected 1 attempt, got %d", mailer.count())
		}
	})
}
