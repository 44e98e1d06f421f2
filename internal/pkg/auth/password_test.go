package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { BcryptCost = 12 })

	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret!" {
		t.Fatal("hash must differ from plaintext")
	}
	if !IsHashed(hash) {
		t.Fatal("IsHashed should accept a bcrypt hash")
	}
	if !CheckPassword(hash, "s3cret!") {
		t.Fatal("CheckPassword should accept the right password")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("CheckPassword should reject a wrong password")
	}
}

func TestIsHashedRejectsPlaintext(t *testing.T) {
	for _, stored := range []string{"", "password123", "$2notahash"} {
		if IsHashed(stored) {
			t.Errorf("IsHashed(%q) = true, want false", stored)
		}
	}
}
