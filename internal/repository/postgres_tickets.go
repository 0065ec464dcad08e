package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/tixit/internal/domain"
)

type postgresTicketRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTicketRepository instantiates the Postgres ticket store.
func NewPostgresTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &postgresTicketRepository{pool: pool}
}

func (r *postgresTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, category, city, event_date, event_time, place, details, price, seller_id, is_sold)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::uuid,$11)
        RETURNING id::text, created_at, updated_at`
	return mapPgError(r.pool.QueryRow(ctx, query,
		ticket.Title,
		nullable(ticket.Description),
		string(ticket.Category),
		ticket.City,
		ticket.Date,
		ticket.Time,
		ticket.Venue,
		nullable(ticket.Details),
		ticket.Price,
		nullable(ticket.SellerID),
		ticket.IsSold,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt))
}

func (r *postgresTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.TicketListing, error) {
	filter = filter.Normalize()

	base := `SELECT t.id::text, t.title, t.description, t.category, t.city, t.event_date, t.event_time,
                    t.place, t.details, t.price, t.seller_id::text, t.is_sold, t.created_at, t.updated_at,
                    u.name, u.email
             FROM tickets t
             LEFT JOIN users u ON u.id = t.seller_id`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		clauses = append(clauses, fmt.Sprintf("t.category=$%d", len(args)))
	}
	if filter.City != nil {
		args = append(args, strings.ToLower(strings.TrimSpace(*filter.City)))
		clauses = append(clauses, fmt.Sprintf("LOWER(t.city)=$%d", len(args)))
	}
	if !filter.IncludeSold {
		clauses = append(clauses, "t.is_sold = FALSE")
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.created_at DESC, t.id DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanListings(rows)
}

func scanListings(rows pgx.Rows) ([]domain.TicketListing, error) {
	result := []domain.TicketListing{}
	for rows.Next() {
		var (
			listing     domain.TicketListing
			category    string
			description *string
			details     *string
			sellerID    *string
			sellerName  *string
			sellerEmail *string
		)
		if err := rows.Scan(
			&listing.ID,
			&listing.Title,
			&description,
			&category,
			&listing.City,
			&listing.Date,
			&listing.Time,
			&listing.Venue,
			&details,
			&listing.Price,
			&sellerID,
			&listing.IsSold,
			&listing.CreatedAt,
			&listing.UpdatedAt,
			&sellerName,
			&sellerEmail,
		); err != nil {
			return nil, err
		}
		listing.Category = domain.Category(category)
		listing.Description = deref(description)
		listing.Details = deref(details)
		listing.SellerID = deref(sellerID)
		if sellerEmail != nil {
			listing.Seller = &domain.SellerSummary{Name: deref(sellerName), Email: *sellerEmail}
		}
		result = append(result, listing)
	}
	return result, rows.Err()
}
