package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/tixit/internal/domain"
)

// MemoryStore keeps users and tickets in process memory. It enforces the same
// uniqueness rules as the database drivers and backs development mode and
// tests.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	byEmail    map[string]string
	byExternal map[string]string
	tickets    []domain.Ticket
	now        func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]domain.User),
		byEmail:    make(map[string]string),
		byExternal: make(map[string]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

// Tickets returns the ticket repository view of the store.
func (s *MemoryStore) Tickets() TicketRepository { return memoryTickets{s} }

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *domain.User) error {
	if !user.Credentials.Usable() {
		return domain.ErrNoCredential
	}
	email := NormalizeEmail(user.Email)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.byEmail[email]; taken {
		return domain.ErrDuplicate
	}
	externalID, linked := user.Credentials.ExternalID()
	if linked {
		if _, taken := r.s.byExternal[externalID]; taken {
			return domain.ErrDuplicate
		}
	}

	now := r.s.now()
	user.ID = uuid.NewString()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now

	r.s.users[user.ID] = *user
	r.s.byEmail[email] = user.ID
	if linked {
		r.s.byExternal[externalID] = user.ID
	}
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

func (r memoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.byEmail[NormalizeEmail(email)]
	r.s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r memoryUsers) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.byExternal[externalID]
	r.s.mu.RUnlock()
	if !ok || externalID == "" {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r memoryUsers) UpdatePassword(_ context.Context, id, passwordHash string) error {
	if passwordHash == "" {
		return domain.ErrNoCredential
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	user.Credentials = user.Credentials.WithPassword(passwordHash)
	user.UpdatedAt = r.s.now()
	r.s.users[id] = user
	return nil
}

func (r memoryUsers) LinkExternalID(_ context.Context, id, externalID string) error {
	if externalID == "" {
		return domain.ErrNoCredential
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if current, linked := user.Credentials.ExternalID(); linked {
		if current == externalID {
			return nil
		}
		return domain.ErrDuplicate
	}
	if owner, taken := r.s.byExternal[externalID]; taken && owner != id {
		return domain.ErrDuplicate
	}
	user.Credentials = user.Credentials.WithExternalID(externalID)
	user.UpdatedAt = r.s.now()
	r.s.users[id] = user
	r.s.byExternal[externalID] = id
	return nil
}

type memoryTickets struct{ s *MemoryStore }

func (r memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.s.tickets = append(r.s.tickets, *ticket)
	return nil
}

func (r memoryTickets) List(_ context.Context, filter TicketFilter) ([]domain.TicketListing, error) {
	filter = filter.Normalize()

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]domain.Ticket, 0, len(r.s.tickets))
	for i := len(r.s.tickets) - 1; i >= 0; i-- {
		t := r.s.tickets[i]
		if filter.Category != nil && t.Category != *filter.Category {
			continue
		}
		if filter.City != nil && !strings.EqualFold(t.City, *filter.City) {
			continue
		}
		if !filter.IncludeSold && t.IsSold {
			continue
		}
		matched = append(matched, t)
	}
	// matched is in reverse insertion order, so equal timestamps keep the
	// most recent insert first.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset >= len(matched) {
		return []domain.TicketListing{}, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]domain.TicketListing, 0, len(matched))
	for _, t := range matched {
		listing := domain.TicketListing{Ticket: t}
		if seller, ok := r.s.users[t.SellerID]; ok && t.SellerID != "" {
			listing.Seller = &domain.SellerSummary{Name: seller.Name, Email: seller.Email}
		}
		out = append(out, listing)
	}
	return out, nil
}
