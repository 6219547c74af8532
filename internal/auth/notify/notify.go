// Package notify delivers verification codes to account owners.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// Notifier sends a plain-text message to an email address.
type Notifier interface {
	Send(ctx context.Context, address, body string) error
}

// VerificationBody renders the message carrying a verification code.
func VerificationBody(code uint32) string {
	return fmt.Sprintf("Your verification code is %08d. It expires in five minutes.", code)
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
}

// SMTPNotifier relays messages through an SMTP server with PLAIN auth.
type SMTPNotifier struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	if cfg.Subject == "" {
		cfg.Subject = "Your verification code"
	}
	return &SMTPNotifier{cfg: cfg, sendMail: smtp.SendMail}
}

func (n *SMTPNotifier) Send(ctx context.Context, address, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(address, "\r\n") {
		return fmt.Errorf("notify: invalid address")
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	msg := "From: " + n.cfg.From + "\r\n" +
		"To: " + address + "\r\n" +
		"Subject: " + n.cfg.Subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
		"\r\n" + body + "\r\n"

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	if err := n.sendMail(addr, auth, n.cfg.From, []string{address}, []byte(msg)); err != nil {
		return fmt.Errorf("notify: smtp send: %w", err)
	}
	return nil
}

// LogNotifier writes messages to the log instead of sending them. Only for
// local development: the body contains the code.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, address, body string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification", "to", MaskAddress(address), "body", body)
	return nil
}

// MaskAddress hides the local part of an email address for logging.
func MaskAddress(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at <= 0 {
		return "***"
	}
	return address[:1] + "***" + address[at:]
}
