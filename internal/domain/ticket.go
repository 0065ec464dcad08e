package domain

import "time"

// Category enumerates the kinds of events a ticket can be listed under.
type Category string

const (
	CategoryMovie      Category = "Movie"
	CategoryConcert    Category = "Concert"
	CategoryStandup    Category = "Standup Comedy"
	CategoryRestaurant Category = "Restaurant"
	CategorySports     Category = "Sports"
	CategoryArt        Category = "Art"
	CategoryFestive    Category = "Festive/Religious"
	CategoryOther      Category = "Other"
)

var categories = map[Category]struct{}{
	CategoryMovie:      {},
	CategoryConcert:    {},
	CategoryStandup:    {},
	CategoryRestaurant: {},
	CategorySports:     {},
	CategoryArt:        {},
	CategoryFestive:    {},
	CategoryOther:      {},
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Layouts for the event schedule.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Ticket is a listing offered on the marketplace.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Category    Category
	City        string
	Date        time.Time
	Time        string
	Venue       string
	Details     string
	Price       float64
	SellerID    string
	IsSold      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SellerSummary is the only view of a user exposed next to a listing.
type SellerSummary struct {
	Name  string
	Email string
}

// TicketListing is a ticket joined with its seller, when one still exists.
type TicketListing struct {
	Ticket
	Seller *SellerSummary
}
