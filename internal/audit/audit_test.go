package audit

import (
	"bytes"
	"strings"
	"testing"
)

func TestInfoGoesToAppLog(t *testing.T) {
	var app, security, activity bytes.Buffer
	l := NewWithWriters(&app, &security, &activity)

	l.Info("User logged in successfully", map[string]any{"user_id": 7})
	if err := l.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	line := app.String()
	if !strings.Contains(line, "[INFO] User logged in successfully") {
		t.Fatalf("unexpected app log: %q", line)
	}
	if !strings.Contains(line, `"user_id":7`) {
		t.Fatalf("expected context in app log: %q", line)
	}
	if security.Len() != 0 || activity.Len() != 0 {
		t.Fatal("expected info to stay out of security and activity logs")
	}
}

func TestSecurityGoesToBothLogs(t *testing.T) {
	var app, security, activity bytes.Buffer
	l := NewWithWriters(&app, &security, &activity)

	l.Security("CSRF token validation failed", map[string]any{"ip": "203.0.113.9"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	for name, buf := range map[string]*bytes.Buffer{"app": &app, "security": &security} {
		if !strings.Contains(buf.String(), "[SECURITY] CSRF token validation failed") {
			t.Fatalf("expected security event in %s log: %q", name, buf.String())
		}
	}
	if activity.Len() != 0 {
		t.Fatal("expected security event to stay out of activity log")
	}
}

func TestActivityFormat(t *testing.T) {
	var app, security, activity bytes.Buffer
	l := NewWithWriters(&app, &security, &activity)

	l.Activity(7, "LOGIN", "Successful login", "203.0.113.9")
	if err := l.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	line := activity.String()
	if !strings.Contains(line, "[IP: 203.0.113.9] User 7 - LOGIN - Successful login") {
		t.Fatalf("unexpected activity log: %q", line)
	}
	if !strings.Contains(app.String(), "[ACTIVITY] User 7 - LOGIN - Successful login") {
		t.Fatalf("expected activity mirror in app log: %q", app.String())
	}
}

func TestFormatWithoutContext(t *testing.T) {
	if got := format("ERROR", "boom", nil); got != "[ERROR] boom" {
		t.Fatalf("unexpected format: %q", got)
	}
	got := format("WARNING", "slow", map[string]any{"ms": 1200})
	if !strings.HasPrefix(got, "[WARNING] slow | Context: ") {
		t.Fatalf("unexpected format: %q", got)
	}
}

func TestNewCreatesLogFiles(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	l.Error("boom", nil)
	if err := l.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}
