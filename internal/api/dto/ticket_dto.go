package dto

import (
	"time"

	"github.com/spec-kit/tixit/internal/domain"
)

// SellerResponse is the only seller data exposed in listings.
type SellerResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TicketResponse renders a ticket. Seller is the seller id on create and a
// SellerResponse in listings.
type TicketResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	City        string    `json:"city"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Place       string    `json:"place"`
	Details     string    `json:"details,omitempty"`
	Price       float64   `json:"price"`
	Seller      any       `json:"seller,omitempty"`
	IsSold      bool      `json:"isSold"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewTicketResponse renders a freshly created ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	resp := baseTicket(t)
	if t.SellerID != "" {
		resp.Seller = t.SellerID
	}
	return resp
}

// NewTicketListResponse renders listings with the seller projection.
func NewTicketListResponse(listings []domain.TicketListing) []TicketResponse {
	out := make([]TicketResponse, 0, len(listings))
	for i := range listings {
		resp := baseTicket(&listings[i].Ticket)
		if s := listings[i].Seller; s != nil {
			resp.Seller = SellerResponse{Name: s.Name, Email: s.Email}
		}
		out = append(out, resp)
	}
	return out
}

func baseTicket(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    string(t.Category),
		City:        t.City,
		Date:        t.Date.UTC().Format(domain.DateLayout),
		Time:        t.Time,
		Place:       t.Venue,
		Details:     t.Details,
		Price:       t.Price,
		IsSold:      t.IsSold,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
