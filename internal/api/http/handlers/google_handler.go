package handlers

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/tixit/internal/auth"
	"github.com/spec-kit/tixit/internal/service"
)

const stateCookie = "tixit_oauth_state"

// GoogleHandler runs the Google OAuth redirect flow.
type GoogleHandler struct {
	auth         *service.AuthService
	provider     auth.IdentityProvider
	state        *auth.StateSigner
	clientRoot   string
	secureCookie bool
	logger       *zap.Logger
}

// GoogleHandlerConfig bundles dependencies. A nil Provider disables Google
// login: both endpoints then redirect to the failure page.
type GoogleHandlerConfig struct {
	Auth          *service.AuthService
	Provider      auth.IdentityProvider
	State         *auth.StateSigner
	ClientRootURL string
	SecureCookie  bool
	Logger        *zap.Logger
}

// NewGoogleHandler constructs handler.
func NewGoogleHandler(cfg GoogleHandlerConfig) *GoogleHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleHandler{
		auth:         cfg.Auth,
		provider:     cfg.Provider,
		state:        cfg.State,
		clientRoot:   cfg.ClientRootURL,
		secureCookie: cfg.SecureCookie,
		logger:       logger,
	}
}

// Start handles GET /api/auth/google.
func (h *GoogleHandler) Start(c *fiber.Ctx) error {
	if h.provider == nil {
		return c.Redirect(h.failureURL())
	}
	state, err := h.state.Issue()
	if err != nil {
		h.logger.Error("issue oauth state", zap.Error(err))
		return c.Redirect(h.failureURL())
	}
	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   int(h.state.TTL() / time.Second),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(h.provider.AuthCodeURL(state))
}

// Callback handles GET /api/auth/google/callback.
func (h *GoogleHandler) Callback(c *fiber.Ctx) error {
	cookieState := c.Cookies(stateCookie)
	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Path:     "/api/auth/google",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	if h.provider == nil {
		return c.Redirect(h.failureURL())
	}
	if reason := c.Query("error"); reason != "" {
		h.logger.Info("google login declined", zap.String("reason", reason))
		return c.Redirect(h.failureURL())
	}
	if err := h.state.Verify(cookieState, c.Query("state")); err != nil {
		h.logger.Warn("google callback state mismatch", zap.Error(err))
		return c.Redirect(h.failureURL())
	}

	identity, err := h.provider.Resolve(c.UserContext(), c.Query("code"))
	if err != nil {
		h.logger.Warn("google identity resolution failed", zap.Error(err))
		return c.Redirect(h.failureURL())
	}
	res, err := h.auth.LinkExternalIdentity(c.UserContext(), identity)
	if err != nil {
		h.logger.Warn("google account linking failed", zap.Error(err))
		return c.Redirect(h.failureURL())
	}
	return c.Redirect(h.clientRoot + "/login?token=" + url.QueryEscape(res.Token))
}

func (h *GoogleHandler) failureURL() string {
	return h.clientRoot + "/login"
}
