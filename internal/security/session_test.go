package security

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	p := NewSessionProvider("secret", time.Hour)
	token, expiresAt, err := p.Issue("ab123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %s", expiresAt)
	}
	netid, err := p.Parse(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if netid != "ab123" {
		t.Fatalf("expected ab123, got %s", netid)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewSessionProvider("one", time.Hour).Issue("ab123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewSessionProvider("two", time.Hour).Parse(token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	p := NewSessionProvider("secret", time.Minute)
	p.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := p.Issue("ab123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewSessionProvider("secret", time.Minute).Parse(token); err == nil {
		t.Fatalf("expected expiry error")
	}
}
