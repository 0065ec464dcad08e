package domain

import "time"

// CredentialKind enumerates the ways an account can authenticate.
type CredentialKind string

const (
	CredentialNone         CredentialKind = "NONE"
	CredentialPasswordOnly CredentialKind = "PASSWORD_ONLY"
	CredentialExternalOnly CredentialKind = "EXTERNAL_ONLY"
	CredentialBoth         CredentialKind = "BOTH"
)

// Credentials holds the password hash and/or external identity of an account.
// The zero value carries no credential and is rejected by the stores; build
// values through NewPasswordCredentials or NewExternalCredentials.
type Credentials struct {
	passwordHash string
	externalID   string
}

// NewPasswordCredentials returns password-only credentials.
func NewPasswordCredentials(hash string) Credentials {
	return Credentials{passwordHash: hash}
}

// NewExternalCredentials returns credentials linked only to an external identity.
func NewExternalCredentials(externalID string) Credentials {
	return Credentials{externalID: externalID}
}

// RestoreCredentials rebuilds credentials from stored columns.
func RestoreCredentials(hash, externalID string) Credentials {
	return Credentials{passwordHash: hash, externalID: externalID}
}

// Kind reports which credentials are present.
func (c Credentials) Kind() CredentialKind {
	switch {
	case c.passwordHash != "" && c.externalID != "":
		return CredentialBoth
	case c.passwordHash != "":
		return CredentialPasswordOnly
	case c.externalID != "":
		return CredentialExternalOnly
	default:
		return CredentialNone
	}
}

// Usable reports whether at least one credential is set.
func (c Credentials) Usable() bool {
	return c.Kind() != CredentialNone
}

// PasswordHash returns the stored hash, if any.
func (c Credentials) PasswordHash() (string, bool) {
	return c.passwordHash, c.passwordHash != ""
}

// ExternalID returns the linked external identity, if any.
func (c Credentials) ExternalID() (string, bool) {
	return c.externalID, c.externalID != ""
}

// WithPassword sets or replaces the password hash; the external id is kept.
func (c Credentials) WithPassword(hash string) Credentials {
	c.passwordHash = hash
	return c
}

// WithExternalID links an external identity; the password hash is kept.
func (c Credentials) WithExternalID(externalID string) Credentials {
	c.externalID = externalID
	return c
}

// User is a marketplace account.
type User struct {
	ID          string
	Name        string
	Email       string
	Credentials Credentials
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Identity is the subset of a user bound into bearer tokens.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name, Email: u.Email}
}
