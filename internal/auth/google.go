package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleOAuth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/spec-kit/tixit/internal/domain"
)

// IdentityProvider resolves a provider redirect into a verified external identity.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Resolve(ctx context.Context, code string) (domain.ExternalIdentity, error)
}

// GoogleProvider implements IdentityProvider against Google's OAuth endpoints.
type GoogleProvider struct {
	oauth *oauth2.Config
}

// NewGoogleProvider configures the OAuth client for profile and email scopes.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{oauth: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}}
}

// AuthCodeURL returns the consent page URL.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Resolve exchanges the authorization code and fetches the user's profile.
func (p *GoogleProvider) Resolve(ctx context.Context, code string) (domain.ExternalIdentity, error) {
	if code == "" {
		return domain.ExternalIdentity{}, errors.New("missing authorization code")
	}
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("google token exchange: %w", err)
	}

	svc, err := googleOAuth2.NewService(ctx, option.WithTokenSource(p.oauth.TokenSource(ctx, token)))
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("google oauth2 service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("fetch google user info: %w", err)
	}

	verified := false
	if info.VerifiedEmail != nil {
		verified = *info.VerifiedEmail
	}
	return domain.ExternalIdentity{
		ID:            info.Id,
		Email:         info.Email,
		Name:          info.Name,
		EmailVerified: verified,
	}, nil
}
