package internal

import (
	"strings"
	"testing"
)

func TestNewResetToken(t *testing.T) {
	token, err := NewResetToken(32)
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if len(token) != 32 {
		t.Fatalf("len = %d, want 32", len(token))
	}
	for _, r := range token {
		if !strings.ContainsRune(tokenAlphabet, r) {
			t.Fatalf("token contains %q outside the alphabet", r)
		}
	}
}

func TestNewResetTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := NewResetToken(32)
		if err != nil {
			t.Fatalf("NewResetToken: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}

func TestNewResetTokenInvalidLength(t *testing.T) {
	if _, err := NewResetToken(0); err == nil {
		t.Fatal("expected error for length 0")
	}
	if _, err := NewResetToken(-1); err == nil {
		t.Fatal("expected error for negative length")
	}
}
