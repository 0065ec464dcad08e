package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const stateSubject = "oauth-state"

// ErrInvalidState is returned when the OAuth state round-trip does not check out.
var ErrInvalidState = errors.New("invalid oauth state")

// StateSigner issues short-lived signed OAuth state values. The value is kept
// in a cookie and echoed back by the provider, so no server-side session is
// needed.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner builds a signer keyed by the session secret.
func NewStateSigner(sessionSecret string, ttl time.Duration) *StateSigner {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateSigner{secret: []byte(sessionSecret), ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of issued states.
func (s *StateSigner) TTL() time.Duration {
	return s.ttl
}

// Issue returns a fresh state value.
func (s *StateSigner) Issue() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   stateSubject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks that the cookie and query values match and carry a valid signature.
func (s *StateSigner) Verify(cookieValue, queryValue string) error {
	if cookieValue == "" || subtle.ConstantTimeCompare([]byte(cookieValue), []byte(queryValue)) != 1 {
		return ErrInvalidState
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(queryValue, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(stateSubject),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidState
	}
	return nil
}
