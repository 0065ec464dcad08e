package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/tixit/internal/domain"
	"github.com/spec-kit/tixit/internal/events"
	"github.com/spec-kit/tixit/internal/repository"
	"github.com/spec-kit/tixit/internal/validation"
	apperrors "github.com/spec-kit/tixit/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	pipeline   *validation.Pipeline
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles requirements for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Pipeline   *validation.Pipeline
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	pipeline := deps.Pipeline
	if pipeline == nil {
		pipeline = validation.NewPipeline()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		pipeline:   pipeline,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create validates and sanitizes raw, then persists it as a new listing.
// sellerID is empty for anonymous listings. Nothing is written when any
// validation gate fails.
func (s *TicketService) Create(ctx context.Context, raw map[string]any, sellerID string) (*domain.Ticket, error) {
	ticket, err := s.pipeline.Ticket(raw, sellerID)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Create(ctx, &ticket); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("create ticket: %w", err))
	}

	if s.dispatcher != nil {
		event := events.New(events.EventTicketListed, ticket.ID, sellerID, events.TicketListedPayload{
			Title:    ticket.Title,
			Category: string(ticket.Category),
			City:     ticket.City,
			Price:    ticket.Price,
		})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
	return &ticket, nil
}

// TicketQuery holds the raw listing query parameters.
type TicketQuery struct {
	Category    string
	City        string
	IncludeSold string
	Limit       string
	Offset      string
}

// ParseTicketQuery validates listing parameters into a repository filter.
func ParseTicketQuery(q TicketQuery) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{IncludeSold: true}
	details := map[string]any{}

	if c := strings.TrimSpace(q.Category); c != "" {
		category := domain.Category(c)
		if !category.Valid() {
			details["category"] = "must be a known category"
		} else {
			filter.Category = &category
		}
	}
	if city := strings.TrimSpace(q.City); city != "" {
		// Stored cities are entity-escaped.
		escaped := validation.EscapeText(city)
		filter.City = &escaped
	}
	if v := strings.TrimSpace(q.IncludeSold); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			details["includeSold"] = "must be true or false"
		} else {
			filter.IncludeSold = b
		}
	}
	if v := strings.TrimSpace(q.Limit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			details["limit"] = "must be a positive integer"
		} else {
			filter.Limit = n
		}
	}
	if v := strings.TrimSpace(q.Offset); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			details["offset"] = "must be a non-negative integer"
		} else {
			filter.Offset = n
		}
	}

	if len(details) > 0 {
		return repository.TicketFilter{}, apperrors.NewValidationError("Invalid query", details)
	}
	return filter.Normalize(), nil
}

// List returns listings newest first with seller name and email.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) ([]domain.TicketListing, error) {
	listings, err := s.tickets.List(ctx, filter.Normalize())
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("list tickets: %w", err))
	}
	return listings, nil
}
