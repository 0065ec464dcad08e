package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/tixit/internal/domain"
)

func newTestManager(now time.Time) *TokenManager {
	tm := NewTokenManager("test-secret", 7*24*time.Hour)
	tm.now = func() time.Time { return now }
	return tm
}

func TestIssueVerifyReissue(t *testing.T) {
	now := time.Now()
	tm := newTestManager(now)
	identity := domain.Identity{ID: "u-1", Name: "Ann", Email: "ann@x.com"}

	token, exp, err := tm.Issue(identity)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if want := now.Add(7 * 24 * time.Hour); !exp.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", exp, want)
	}

	got, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != identity {
		t.Fatalf("identity = %+v, want %+v", got, identity)
	}

	again, _, err := tm.Issue(got)
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	reverified, err := tm.Verify(again)
	if err != nil || reverified.ID != identity.ID {
		t.Fatalf("reissued token verified to %+v, %v", reverified, err)
	}
}

func TestVerifyRejections(t *testing.T) {
	issuedAt := time.Now().Add(-8 * 24 * time.Hour)
	identity := domain.Identity{ID: "u-1", Name: "Ann", Email: "ann@x.com"}

	expired, _, _ := newTestManager(issuedAt).Issue(identity)
	valid, _, _ := newTestManager(time.Now()).Issue(identity)

	other := NewTokenManager("other-secret", time.Hour)
	foreign, _, _ := other.Issue(identity)

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:           "u-1",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	}).SignedString([]byte("test-secret"))

	cases := map[string]string{
		"expired":       expired,
		"bad signature": foreign,
		"alg none":      unsigned,
		"no expiry":     noExpiry,
		"malformed":     "not-a-token",
		"empty":         "",
		"tampered":      valid[:strings.LastIndex(valid, ".")] + ".AAAA",
	}

	tm := newTestManager(time.Now())
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := tm.Verify(token); !errors.Is(err, domain.ErrUnauthenticated) {
				t.Fatalf("got %v, want ErrUnauthenticated", err)
			}
		})
	}
}
