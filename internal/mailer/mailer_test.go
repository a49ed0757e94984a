package mailer

import (
	"context"
	"strings"
	"testing"
)

func TestEnabled(t *testing.T) {
	if (&Mailer{}).Enabled() {
		t.Fatal("expected unconfigured mailer to be disabled")
	}
	m := New(Config{Host: "smtp.example.com", From: "alerts@example.com"})
	if !m.Enabled() {
		t.Fatal("expected configured mailer to be enabled")
	}
	if New(Config{Host: "smtp.example.com"}).Enabled() {
		t.Fatal("expected mailer without sender address to be disabled")
	}
}

func TestSendRejectsWhenDisabled(t *testing.T) {
	if err := (&Mailer{}).Send(context.Background(), Message{To: "x@example.com"}); err == nil {
		t.Fatal("expected error when smtp is not configured")
	}
}

func TestRenderHeaders(t *testing.T) {
	m := New(Config{
		Host:     "smtp.example.com",
		From:     "alerts@example.com",
		FromName: "Sentinel Safe",
	})
	raw := string(m.render(Message{
		To:       "alice@example.com",
		Subject:  "New Visitor: John",
		HTMLBody: "<p>hello</p>",
	}))

	for _, want := range []string{
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
		"From: Sentinel Safe <alerts@example.com>",
		"To: alice@example.com",
		"Subject: New Visitor: John",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("rendered message missing %q:\n%s", want, raw)
		}
	}
	if !strings.HasSuffix(raw, "\r\n\r\n<p>hello</p>\r\n") {
		t.Fatalf("unexpected body separator: %q", raw)
	}
}

func TestVisitorNotificationEscapesHTML(t *testing.T) {
	msg := VisitorNotification("alice@example.com", VisitorDetails{
		Name:        "<script>alert(1)</script>",
		Date:        "2025-05-01",
		Time:        "14:30",
		Reason:      "Delivery & pickup",
		ActionTaken: "checked_in",
	})

	if msg.To != "alice@example.com" {
		t.Fatalf("unexpected recipient: %s", msg.To)
	}
	if strings.Contains(msg.HTMLBody, "<script>") {
		t.Fatal("expected visitor name to be escaped")
	}
	if !strings.Contains(msg.HTMLBody, "Delivery &amp; pickup") {
		t.Fatal("expected reason to appear escaped")
	}
	if !strings.Contains(msg.HTMLBody, "Visitor Notification") {
		t.Fatal("expected notification heading")
	}
}

func TestEmergencyAlert(t *testing.T) {
	msg := EmergencyAlert("alice@example.com", "A suspicious visitor 'Eve' has been reported. Reason: trespassing")

	if msg.Subject != "EMERGENCY ALERT - Sentinel Safe" {
		t.Fatalf("unexpected subject: %s", msg.Subject)
	}
	if !strings.Contains(msg.HTMLBody, "EMERGENCY ALERT") {
		t.Fatal("expected alert heading")
	}
	if !strings.Contains(msg.HTMLBody, "A suspicious visitor &#39;Eve&#39; has been reported.") {
		t.Fatalf("expected escaped message in body:\n%s", msg.HTMLBody)
	}
}
