package services

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("s3cret", "alice", "Alice", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	userID, err := ValidateToken("s3cret", token)
	if err != nil || userID != "alice" {
		t.Fatalf("ValidateToken = %q, %v", userID, err)
	}
	if _, err := ValidateToken("other", token); err == nil {
		t.Fatal("token accepted with wrong secret")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := GenerateToken("s3cret", "alice", "Alice", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ValidateToken("s3cret", token); err == nil {
		t.Fatal("expired token accepted")
	}
}
