package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "secret1" {
		t.Fatal("hash must not equal the plaintext")
	}
	if err := ComparePassword(hash, "secret1"); err != nil {
		t.Fatalf("ComparePassword with original plaintext: %v", err)
	}
	if err := ComparePassword(hash, "secret2"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("wrong password: got %v", err)
	}
}

func TestHashPasswordSalted(t *testing.T) {
	a, _ := HashPassword("same", bcrypt.MinCost)
	b, _ := HashPassword("same", bcrypt.MinCost)
	if a == b {
		t.Fatal("two hashes of the same password should differ")
	}
}

func TestComparePasswordWithoutHash(t *testing.T) {
	for _, candidate := range []string{"", "anything", "tixit-placeholder"} {
		if err := ComparePassword("", candidate); !errors.Is(err, ErrPasswordMismatch) {
			t.Errorf("candidate %q: got %v, want mismatch", candidate, err)
		}
	}
}

func TestHashPasswordClampsCost(t *testing.T) {
	hash, err := HashPassword("secret1", 99)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil || cost != bcrypt.DefaultCost {
		t.Fatalf("cost = %d, err = %v", cost, err)
	}
}
