package alerting

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestRenderAlertEmail(t *testing.T) {
	subject, body := renderAlertEmail(
		"Widget",
		decimal.RequireFromString("70.00"),
		decimal.RequireFromString("75.00"),
		"DummyJSON",
		"https://dummyjson.com",
	)

	if want := "Price Drop Alert: Widget"; subject != want {
		t.Fatalf("subject = %q, want %q", subject, want)
	}
	for _, fragment := range []string{"70.00", "75.00", "DummyJSON", "https://dummyjson.com"} {
		if !strings.Contains(body, fragment) {
			t.Errorf("body missing %q:\n%s", fragment, body)
		}
	}
}

func TestSMTPNotifierSendsFormattedMessage(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)

	notifier := NewSMTPNotifier(SMTPOptions{Host: "mail.example.com", Port: 587, From: "noreply@example.com"}, zerolog.Nop())
	notifier.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := notifier.Notify(context.Background(), "user@example.com", "Subject line", "Body text")
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	if gotAddr != "mail.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "noreply@example.com" {
		t.Errorf("from = %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "user@example.com" {
		t.Errorf("to = %v", gotTo)
	}

	msg := string(gotMsg)
	for _, fragment := range []string{
		"From: noreply@example.com\r\n",
		"To: user@example.com\r\n",
		"Subject: Subject line\r\n",
		"\r\n\r\nBody text",
	} {
		if !strings.Contains(msg, fragment) {
			t.Errorf("message missing %q:\n%s", fragment, msg)
		}
	}
}

func TestSMTPNotifierReportsDeliveryFailure(t *testing.T) {
	notifier := NewSMTPNotifier(SMTPOptions{Host: "mail.example.com", Port: 587, From: "noreply@example.com"}, zerolog.Nop())
	notifier.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	}

	if err := notifier.Notify(context.Background(), "user@example.com", "s", "b"); err == nil {
		t.Fatal("transport failure must surface as an error")
	}
}
