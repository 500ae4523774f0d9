package sender

import (
	"context"
	"fmt"
	"mime/quotedprintable"
	"net/smtp"
	"os"
	"strings"
	"time"
)

type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
	bcc      string
}

// NewSMTPSender reads SMTP_* settings from the environment. NOTIFY_BCC, when
// set, receives a blind copy of every outgoing email for operator audit.
func NewSMTPSender() (*SMTPSender, error) {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	username := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")
	bcc := os.Getenv("NOTIFY_BCC")

	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if port == "" {
		return nil, fmt.Errorf("SMTP_PORT not set")
	}
	if username == "" {
		return nil, fmt.Errorf("SMTP_USER not set")
	}
	if password == "" {
		return nil, fmt.Errorf("SMTP_PASS not set")
	}
	if from == "" {
		from = username
	}

	return &SMTPSender{host, port, username, password, from, bcc}, nil
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, html, text string) (SendResult, error) {
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	recipients := []string{to}
	if s.bcc != "" {
		recipients = append(recipients, s.bcc)
	}

	msg := buildMessage(s.from, to, subject, html, text)

	// net/smtp has no context support; run the dial in a goroutine so a stuck
	// transport call cannot outlive the caller's per-send timeout.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, s.from, recipients, msg)
	}()

	select {
	case <-ctx.Done():
		return SendResult{}, fmt.Errorf("smtp send aborted: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return SendResult{}, fmt.Errorf("smtp send failed: %w", err)
		}
	}

	return SendResult{
		MessageID: fmt.Sprintf("smtp-%d", time.Now().UnixNano()),
		SentAt:    time.Now(),
	}, nil
}

// buildMessage assembles a multipart/alternative MIME message carrying the
// plain-text fallback alongside the HTML body.
func buildMessage(from, to, subject, html, text string) []byte {
	boundary := fmt.Sprintf("np%d", time.Now().UnixNano())

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=" + boundary + "\r\n")
	b.WriteString("\r\n")

	writePart(&b, boundary, "text/plain; charset=UTF-8", text)
	writePart(&b, boundary, "text/html; charset=UTF-8", html)
	b.WriteString("--" + boundary + "--\r\n")

	return []byte(b.String())
}

func writePart(b *strings.Builder, boundary, contentType, body string) {
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: " + contentType + "\r\n")
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	b.WriteString("\r\n")

	qp := quotedprintable.NewWriter(b)
	_, _ = qp.Write([]byte(body))
	_ = qp.Close()
	b.WriteString("\r\n")
}
