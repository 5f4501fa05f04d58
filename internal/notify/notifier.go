// Package notify defines the delivery boundary of the reminder subsystem.
// The dispatcher hands a fully rendered message to a Notifier and records
// the outcome; everything behind the interface (SMTP, push, in-app fan-out)
// is an external collaborator from the scheduler's point of view.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// Message is one rendered notification.
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

// Notifier delivers a message. Implementations must honor ctx cancellation
// and deadlines; the dispatcher bounds every Send with a timeout and treats
// an error (including ctx expiry) as a failed dispatch.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPNotifier sends reminder emails through a plain SMTP relay.
type SMTPNotifier struct {
	Addr string // host:port
	From string

	// Username/Password enable PLAIN auth when non-empty.
	Username string
	Password string
	Host     string // auth host; defaults to the host part of Addr
}

// NewSMTPNotifier constructs an SMTPNotifier for the given relay address and
// sender identity.
func NewSMTPNotifier(addr, from, username, password string) *SMTPNotifier {
	host := addr
	if i := strings.IndexByte(addr, ':'); i >= 0 {
		host = addr[:i]
	}
	return &SMTPNotifier{Addr: addr, From: from, Username: username, Password: password, Host: host}
}

// Send delivers msg over SMTP. The smtp client has no context support, so
// the dial-and-send runs in a goroutine and the result races ctx; on ctx
// expiry the connection is abandoned to the runtime and the timeout error is
// returned to the caller.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if msg.Recipient == "" {
		return fmt.Errorf("smtp: empty recipient")
	}

	payload := buildRFC822(n.From, msg)
	done := make(chan error, 1)
	go func() {
		var auth smtp.Auth
		if n.Username != "" {
			auth = smtp.PlainAuth("", n.Username, n.Password, n.Host)
		}
		done <- smtp.SendMail(n.Addr, auth, n.From, []string{msg.Recipient}, payload)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// buildRFC822 assembles a minimal text/plain mail body.
func buildRFC822(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// sanitizeHeader strips CR/LF so caller-supplied subjects cannot inject
// additional headers.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

// LogNotifier writes messages to the log instead of delivering them. Used
// when no SMTP relay is configured (dev and test environments).
type LogNotifier struct {
	Log zerolog.Logger
}

// Send logs the message at info level and always succeeds.
func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.Log.Info().
		Str("recipient", msg.Recipient).
		Str("subject", msg.Subject).
		Int("body_bytes", len(msg.Body)).
		Msg("notification (log only)")
	return nil
}
