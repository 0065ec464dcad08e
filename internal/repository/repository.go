package repository

import (
	"context"
	"strings"

	"github.com/spec-kit/tixit/internal/domain"
)

// UserRepository defines persistence access for marketplace accounts.
//
// Lookups return domain.ErrNotFound when nothing matches. Writes that would
// break email or external-id uniqueness return domain.ErrDuplicate, and
// Create refuses users without a usable credential with domain.ErrNoCredential.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// LinkExternalID attaches externalID to the account unless a different
	// one is already linked, in which case it returns domain.ErrDuplicate.
	LinkExternalID(ctx context.Context, id, externalID string) error
}

// TicketFilter narrows a listing.
type TicketFilter struct {
	Category    *domain.Category
	City        *string
	IncludeSold bool
	Limit       int
	Offset      int
}

// Listing bounds.
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Normalize clamps paging values.
func (f TicketFilter) Normalize() TicketFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// List returns tickets newest first, each joined with its seller's name
	// and email when the seller still exists.
	List(ctx context.Context, filter TicketFilter) ([]domain.TicketListing, error)
}

// NormalizeEmail is the canonical form stored and looked up by every driver.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
