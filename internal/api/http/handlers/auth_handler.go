package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tixit/internal/api/dto"
	"github.com/spec-kit/tixit/internal/auth"
	"github.com/spec-kit/tixit/internal/service"
	"github.com/spec-kit/tixit/internal/validation"
)

// AuthHandler exposes local account endpoints.
type AuthHandler struct {
	auth     *service.AuthService
	pipeline *validation.Pipeline
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, pipeline *validation.Pipeline) *AuthHandler {
	return &AuthHandler{auth: authService, pipeline: pipeline}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	raw, err := decodeObject(c)
	if err != nil {
		return err
	}
	trimFields(raw, "email")
	var req dto.SignupRequest
	if err := h.pipeline.Bind(raw, &req); err != nil {
		return err
	}

	res, err := h.auth.Signup(c.UserContext(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewAuthResponse(res))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	raw, err := decodeObject(c)
	if err != nil {
		return err
	}
	trimFields(raw, "email")
	var req dto.LoginRequest
	if err := h.pipeline.Bind(raw, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAuthResponse(res))
}

// ChangePassword handles POST /api/auth/change-password. Requires a bearer token.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
	}
	raw, err := decodeObject(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := h.pipeline.Bind(raw, &req); err != nil {
		return err
	}

	res, err := h.auth.ChangePassword(c.UserContext(), principal.Identity.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return c.JSON(dto.ChangePasswordResponse{
		Message:   "Password updated successfully",
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	})
}
