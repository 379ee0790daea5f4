package utils

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}

	if hash == "correct horse battery staple" {
		t.Error("hash should not equal the plaintext password")
	}

	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Error("VerifyPassword() = false for the correct password")
	}

	if VerifyPassword(hash, "wrong password") {
		t.Error("VerifyPassword() = true for a wrong password")
	}
}

func TestHashPasswordUnique(t *testing.T) {
	first, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}

	second, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}

	// bcrypt salts every hash
	if first == second {
		t.Error("two hashes of the same password should differ")
	}
}
