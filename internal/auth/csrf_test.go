package auth

import (
	"context"
	"errors"
	"testing"
)

func TestIssueCSRFTokenIsIdempotent(t *testing.T) {
	manager, _ := newTestSessionManager(t)
	ctx := context.Background()

	session, err := manager.Create(ctx, SessionOwner{UserID: 7})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	first, err := manager.IssueCSRFToken(ctx, session.ID)
	if err != nil {
		t.Fatalf("IssueCSRFToken returned error: %v", err)
	}
	if len(first) != 64 {
		t.Fatalf("unexpected token length: %d", len(first))
	}

	second, err := manager.IssueCSRFToken(ctx, session.ID)
	if err != nil {
		t.Fatalf("IssueCSRFToken returned error: %v", err)
	}
	if second != first {
		t.Fatal("expected the same token for repeated issuance")
	}
}

func TestIssueCSRFTokenUnknownSession(t *testing.T) {
	manager, _ := newTestSessionManager(t)

	if _, err := manager.IssueCSRFToken(context.Background(), "nonexistent"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestVerifyCSRFToken(t *testing.T) {
	session := &Session{CSRFToken: "deadbeef"}

	if !VerifyCSRFToken(session, "deadbeef") {
		t.Fatal("expected matching token to verify")
	}
	if VerifyCSRFToken(session, "deadbeee") {
		t.Fatal("expected mismatched token to fail")
	}
	if VerifyCSRFToken(session, "") {
		t.Fatal("expected empty presented token to fail")
	}
	if VerifyCSRFToken(nil, "deadbeef") {
		t.Fatal("expected nil session to fail")
	}
	if VerifyCSRFToken(&Session{}, "deadbeef") {
		t.Fatal("expected session without token to fail")
	}
}

func TestCSRFTokenSurvivesRegenerateNotDestroy(t *testing.T) {
	manager, _ := newTestSessionManager(t)
	ctx := context.Background()

	session, err := manager.Create(ctx, SessionOwner{UserID: 7})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	token, err := manager.IssueCSRFToken(ctx, session.ID)
	if err != nil {
		t.Fatalf("IssueCSRFToken returned error: %v", err)
	}
	session.CSRFToken = token

	rotated, err := manager.Regenerate(ctx, session)
	if err != nil {
		t.Fatalf("Regenerate returned error: %v", err)
	}
	if rotated.CSRFToken != token {
		t.Fatal("expected token to survive regeneration")
	}

	if err := manager.Destroy(ctx, rotated.ID); err != nil {
		t.Fatalf("Destroy returned error: %v", err)
	}
	if _, err := manager.IssueCSRFToken(ctx, rotated.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected token to die with the session, got %v", err)
	}
}
