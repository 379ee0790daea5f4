package utils

import (
	"regexp"
	"testing"
)

func TestGenerateDownloadToken(t *testing.T) {
	token, err := GenerateDownloadToken()
	if err != nil {
		t.Fatalf("GenerateDownloadToken failed: %v", err)
	}

	// 8 random bytes hex-encoded
	if len(token) != 16 {
		t.Errorf("token length = %d, want 16", len(token))
	}

	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(token) {
		t.Errorf("token %q is not lowercase hex", token)
	}
}

func TestGenerateDownloadTokenUniqueness(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		token, err := GenerateDownloadToken()
		if err != nil {
			t.Fatalf("GenerateDownloadToken failed: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token %q after %d generations", token, i)
		}
		seen[token] = true
	}
}
