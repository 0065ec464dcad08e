package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/tixit/internal/auth"
	"github.com/spec-kit/tixit/internal/config"
	"github.com/spec-kit/tixit/internal/domain"
	"github.com/spec-kit/tixit/internal/events"
	"github.com/spec-kit/tixit/internal/repository"
	"github.com/spec-kit/tixit/internal/validation"
	apperrors "github.com/spec-kit/tixit/pkg/util/errorutil"
)

// Password length bounds; bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

var (
	// ErrEmailNotVerified rejects external identities whose email the provider did not verify.
	ErrEmailNotVerified = errors.New("external identity email not verified")
	// ErrIdentityConflict means the email belongs to an account linked to a different external identity.
	ErrIdentityConflict = errors.New("account is linked to a different external identity")
)

// AuthService coordinates signup, login and credential changes.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		bcryptCost: cfg.Auth.BcryptCost,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// SignupInput carries an already validated signup request.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// AuthResult is a user together with a freshly issued token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Signup creates a password account and signs the user in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := repository.NormalizeEmail(in.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewDuplicateAccount()
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, apperrors.NewInternalError(fmt.Errorf("signup lookup: %w", err))
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		Name:        validation.EscapeText(in.Name),
		Email:       email,
		Credentials: domain.NewPasswordCredentials(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperrors.NewDuplicateAccount()
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("create user: %w", err))
	}

	s.publish(ctx, events.New(events.EventUserRegistered, user.ID, user.ID,
		events.UserRegisteredPayload{Email: user.Email, Method: "password"}))
	return s.issue(user)
}

// Login verifies an email and password. Every failure is reported as the same
// generic error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = auth.ComparePassword("", password)
			return nil, apperrors.NewInvalidCredentials("")
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("login lookup: %w", err))
	}

	hash, _ := user.Credentials.PasswordHash()
	if err := auth.ComparePassword(hash, password); err != nil {
		return nil, apperrors.NewInvalidCredentials("")
	}
	return s.issue(user)
}

// ChangePassword replaces the password of userID after checking the current
// one and returns a fresh token.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) (*AuthResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperrors.NewNotFound("User", nil)
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("change password lookup: %w", err))
	}

	missing := map[string]any{}
	if current == "" {
		missing["currentPassword"] = "is required"
	}
	if next == "" {
		missing["newPassword"] = "is required"
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("All fields are required", missing)
	}

	hash, ok := user.Credentials.PasswordHash()
	if !ok {
		return nil, apperrors.NewPasswordNotSet()
	}
	if err := auth.ComparePassword(hash, current); err != nil {
		return nil, apperrors.NewInvalidCredentials("Current password is incorrect")
	}

	switch {
	case len(next) < MinPasswordLength:
		return nil, apperrors.NewValidationError("Password too short",
			map[string]any{"newPassword": fmt.Sprintf("must be at least %d characters", MinPasswordLength)})
	case len(next) > MaxPasswordLength:
		return nil, apperrors.NewValidationError("Password too long",
			map[string]any{"newPassword": fmt.Sprintf("must be at most %d characters", MaxPasswordLength)})
	}

	newHash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("hash password: %w", err))
	}
	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperrors.NewNotFound("User", nil)
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("update password: %w", err))
	}
	user.Credentials = user.Credentials.WithPassword(newHash)
	return s.issue(user)
}

// LinkExternalIdentity resolves a verified external identity to an account.
// It matches by external id, then by email, and otherwise creates an account
// that has no password.
func (s *AuthService) LinkExternalIdentity(ctx context.Context, ext domain.ExternalIdentity) (*AuthResult, error) {
	email := repository.NormalizeEmail(ext.Email)
	if !ext.EmailVerified || email == "" || ext.ID == "" {
		return nil, ErrEmailNotVerified
	}

	user, err := s.users.GetByExternalID(ctx, ext.ID)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup external id: %w", err)
	}

	user, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.attach(ctx, user, ext.ID)
	case errors.Is(err, domain.ErrNotFound):
		return s.createExternal(ctx, ext, email)
	default:
		return nil, fmt.Errorf("lookup email: %w", err)
	}
}

func (s *AuthService) attach(ctx context.Context, user *domain.User, externalID string) (*AuthResult, error) {
	if current, linked := user.Credentials.ExternalID(); linked {
		if current != externalID {
			return nil, ErrIdentityConflict
		}
		return s.issue(user)
	}
	if err := s.users.LinkExternalID(ctx, user.ID, externalID); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, ErrIdentityConflict
		}
		return nil, fmt.Errorf("link external id: %w", err)
	}
	user.Credentials = user.Credentials.WithExternalID(externalID)

	s.publish(ctx, events.New(events.EventExternalIdentityLinked, user.ID, user.ID,
		events.ExternalIdentityLinkedPayload{Email: user.Email, Provider: "google"}))
	return s.issue(user)
}

func (s *AuthService) createExternal(ctx context.Context, ext domain.ExternalIdentity, email string) (*AuthResult, error) {
	name := strings.TrimSpace(ext.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	user := &domain.User{
		Name:        validation.EscapeText(name),
		Email:       email,
		Credentials: domain.NewExternalCredentials(ext.ID),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, fmt.Errorf("create external user: %w", err)
		}
		// A concurrent callback for the same identity won the insert.
		existing, lookupErr := s.users.GetByExternalID(ctx, ext.ID)
		if lookupErr != nil {
			return nil, ErrIdentityConflict
		}
		return s.issue(existing)
	}

	s.publish(ctx, events.New(events.EventUserRegistered, user.ID, user.ID,
		events.UserRegisteredPayload{Email: user.Email, Method: "google"}))
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.Issue(user.Identity())
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("issue token: %w", err))
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
