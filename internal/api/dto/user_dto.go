package dto

import (
	"time"

	"github.com/spec-kit/tixit/internal/domain"
	"github.com/spec-kit/tixit/internal/service"
)

// SignupRequest payload for new accounts.
type SignupRequest struct {
	Name     string `json:"name" validate:"notblank,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest payload for authenticated password changes. Presence
// and length are checked by the service after the account is resolved.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UserSummary is the public view of an account.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse standard response for signup and login.
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      UserSummary `json:"user"`
}

// ChangePasswordResponse carries the replacement token.
type ChangePasswordResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewUserSummary projects a user.
func NewUserSummary(u *domain.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// NewAuthResponse builds the signup and login body.
func NewAuthResponse(res *service.AuthResult) AuthResponse {
	return AuthResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: NewUserSummary(res.User)}
}
