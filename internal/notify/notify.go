// Package notify delivers applicant-facing emails over SMTP. Delivery is
// best-effort from the caller's perspective; callers log failures and move on.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"

	"kyra/pkg/email"
)

// Config holds the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier sends templated lifecycle emails through a plain SMTP relay.
type SMTPNotifier struct {
	config Config
	logger *slog.Logger

	// send is swappable for tests; production uses smtp.SendMail.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(config Config, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{config: config, logger: logger, send: smtp.SendMail}
}

// SendApproval sends the verification-complete email.
func (n *SMTPNotifier) SendApproval(ctx context.Context, to, name string) error {
	name = displayName(to, name)
	subject := "Your identity verification is complete"
	body := fmt.Sprintf(
		"Hi %s,\n\nCongratulations! Your identity verification has been approved. You now have full access to your account.\n\nThe Kyra Team\n",
		name)
	return n.deliver(ctx, to, subject, body)
}

// SendReverification asks the applicant to redo the verification flow.
func (n *SMTPNotifier) SendReverification(ctx context.Context, to, name string) error {
	name = displayName(to, name)
	subject := "Action needed: please verify your identity again"
	body := fmt.Sprintf(
		"Hi %s,\n\nWe could not complete your identity verification with the documents provided. Please sign in and go through the verification steps again.\n\nThe Kyra Team\n",
		name)
	return n.deliver(ctx, to, subject, body)
}

func (n *SMTPNotifier) deliver(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before sending email: %w", err)
	}
	if !validAddress(to) {
		return fmt.Errorf("invalid recipient address %q", to)
	}

	message := buildMessage(n.config.From, to, subject, body)
	addr := fmt.Sprintf("%s:%d", n.config.Host, n.config.Port)

	var auth smtp.Auth
	if n.config.Username != "" && n.config.Password != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}

	if err := n.send(addr, auth, n.config.From, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	if n.logger != nil {
		n.logger.InfoContext(ctx, "email sent", "to", to, "subject", subject)
	}
	return nil
}

func buildMessage(from, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

func validAddress(address string) bool {
	address = strings.TrimSpace(address)
	parts := strings.Split(address, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	return strings.Contains(parts[1], ".")
}

func displayName(to, name string) string {
	if name != "" {
		return name
	}
	first, last := email.DeriveNameFromEmail(to)
	return first + " " + last
}

// Recorder is an in-process Notifier for tests and local development.
type Recorder struct {
	mu       sync.Mutex
	Messages []RecordedMessage
}

type RecordedMessage struct {
	Kind string
	To   string
	Name string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SendApproval(_ context.Context, to, name string) error {
	r.record("approval", to, name)
	return nil
}

func (r *Recorder) SendReverification(_ context.Context, to, name string) error {
	r.record("reverification", to, name)
	return nil
}

func (r *Recorder) record(kind, to, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, RecordedMessage{Kind: kind, To: to, Name: name})
}
