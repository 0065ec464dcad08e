package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tixit/internal/domain"
	apperrors "github.com/spec-kit/tixit/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Identity domain.Identity
}

// AuthMiddleware validates bearer tokens and stores principals in Locals.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireUser enforces authentication for protected routes.
func (m *AuthMiddleware) RequireUser(c *fiber.Ctx) error {
	token, ok := bearerToken(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	identity, err := m.tokens.Verify(token)
	if err != nil {
		return apperrors.NewUnauthorized("Invalid token")
	}
	c.Locals(principalKey, &Principal{Identity: identity})
	return c.Next()
}

// OptionalUser resolves the caller when a valid token is present and lets
// anonymous requests through otherwise.
func (m *AuthMiddleware) OptionalUser(c *fiber.Ctx) error {
	if token, ok := bearerToken(c); ok {
		if identity, err := m.tokens.Verify(token); err == nil {
			c.Locals(principalKey, &Principal{Identity: identity})
		}
	}
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
