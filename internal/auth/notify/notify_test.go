package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSMTPNotifier_Send(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{
		Host:     "mail.example.com",
		Port:     587,
		Username: "bot",
		Password: "secret",
		From:     "noreply@example.com",
	})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		return nil
	}

	require.NoError(t, n.Send(context.Background(), "a@x.com", VerificationBody(12345678)))
	require.Equal(t, "mail.example.com:587", gotAddr)
	require.NotNil(t, gotAuth)
	require.Equal(t, []string{"a@x.com"}, gotTo)
	require.Contains(t, gotMsg, "To: a@x.com\r\n")
	require.Contains(t, gotMsg, "Subject: Your verification code\r\n")
	require.Contains(t, gotMsg, "12345678")
}

func TestSMTPNotifier_Errors(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "localhost", Port: 25, From: "noreply@example.com"})
	n.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := n.Send(context.Background(), "a@x.com", "hi")
	require.ErrorContains(t, err, "connection refused")

	err = n.Send(context.Background(), "a@x.com\r\nBcc: evil@x.com", "hi")
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, n.Send(ctx, "a@x.com", "hi"), context.Canceled)
}

func TestLogNotifier_MasksAddress(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	require.NoError(t, n.Send(context.Background(), "alice@x.com", VerificationBody(7)))
	out := buf.String()
	require.True(t, strings.Contains(out, "a***@x.com"))
	require.False(t, strings.Contains(out, "alice@x.com"))
	require.True(t, strings.Contains(out, "00000007"))
}

func TestMaskAddress(t *testing.T) {
	tests := map[string]string{
		"bob@x.com": "b***@x.com",
		"@x.com":    "***",
		"nobody":    "***",
	}
	for in, want := range tests {
		require.Equal(t, want, MaskAddress(in), in)
	}
}
