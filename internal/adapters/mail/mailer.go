package mail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"barangay-services/internal/config"
)

//go:generate mockgen -source=mailer.go -destination=mocks/mocks.go -package=mocks Mailer

// Mailer sends a single HTML message
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// DeliveryError reports a failed send. AuthFailure is set when the SMTP server
// rejected our credentials, which is a configuration problem rather than a
// transient one.
type DeliveryError struct {
	AuthFailure bool
	Err         error
}

func (e *DeliveryError) Error() string {
	if e.AuthFailure {
		return "mail configuration issue: " + e.Err.Error()
	}
	return "mail delivery failed: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Classify wraps err in a DeliveryError, flagging SMTP auth rejections
func Classify(err error) *DeliveryError {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de
	}

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535:
			return &DeliveryError{AuthFailure: true, Err: err}
		}
	}

	return &DeliveryError{Err: err}
}

// SMTPMailer sends mail through an SMTP relay with PLAIN auth
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	enabled  bool
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a mailer from config. Without a host it logs messages
// instead of sending them.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		enabled:  cfg.Host != "",
		send:     smtp.SendMail,
	}
}

// IsEnabled checks if SMTP delivery is configured
func (m *SMTPMailer) IsEnabled() bool {
	return m.enabled
}

// Send delivers one message. Errors are always *DeliveryError.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Err: err}
	}

	if !m.enabled {
		log.Printf("📧 [mail disabled] to=%s subject=%q", to, subject)
		return nil
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := m.host + ":" + strconv.Itoa(m.port)
	msg := buildMessage(m.from, to, subject, html)

	// net/smtp has no context support; stop waiting once ctx is done
	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, m.from, []string{to}, msg)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		de := Classify(err)
		log.Printf("❌ Mail to %s failed (auth=%t): %v", to, de.AuthFailure, err)
		return de
	}

	log.Printf("📧 Mail sent to %s: %s", to, subject)
	return nil
}

// buildMessage renders RFC 5322 headers followed by the HTML body
func buildMessage(from, to, subject, html string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}

// String is used in logs
func (m *SMTPMailer) String() string {
	if !m.enabled {
		return "smtp(disabled)"
	}
	return fmt.Sprintf("smtp(%s:%d)", m.host, m.port)
}
