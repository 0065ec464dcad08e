package repository

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/spec-kit/tixit/internal/domain"
)

type ticketDocument struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	Title       string              `bson:"title"`
	Description string              `bson:"description,omitempty"`
	Category    string              `bson:"category"`
	City        string              `bson:"city"`
	Date        time.Time           `bson:"date"`
	Time        string              `bson:"time"`
	Place       string              `bson:"place"`
	Details     string              `bson:"details,omitempty"`
	Price       float64             `bson:"price"`
	Seller      *primitive.ObjectID `bson:"seller,omitempty"`
	IsSold      bool                `bson:"isSold"`
	CreatedAt   time.Time           `bson:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt"`
}

type sellerDocument struct {
	Name  string `bson:"name"`
	Email string `bson:"email"`
}

type sellerJoin struct {
	SellerDocs []sellerDocument `bson:"sellerDocs"`
}

func (d ticketDocument) toDomain() domain.Ticket {
	t := domain.Ticket{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Category:    domain.Category(d.Category),
		City:        d.City,
		Date:        d.Date.UTC(),
		Time:        d.Time,
		Venue:       d.Place,
		Details:     d.Details,
		Price:       d.Price,
		IsSold:      d.IsSold,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.Seller != nil {
		t.SellerID = d.Seller.Hex()
	}
	return t
}

type mongoTicketRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoTicketRepository returns a document-store implementation.
func NewMongoTicketRepository(db *mongo.Database) TicketRepository {
	return &mongoTicketRepository{
		coll: db.Collection(TicketsCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *mongoTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	now := r.now().Truncate(time.Millisecond)
	doc := ticketDocument{
		ID:          primitive.NewObjectID(),
		Title:       ticket.Title,
		Description: ticket.Description,
		Category:    string(ticket.Category),
		City:        ticket.City,
		Date:        ticket.Date,
		Time:        ticket.Time,
		Place:       ticket.Venue,
		Details:     ticket.Details,
		Price:       ticket.Price,
		IsSold:      ticket.IsSold,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ticket.SellerID != "" {
		oid, err := primitive.ObjectIDFromHex(ticket.SellerID)
		if err != nil {
			return domain.ErrNotFound
		}
		doc.Seller = &oid
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mapMongoError(err)
	}
	ticket.ID = doc.ID.Hex()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	return nil
}

func (r *mongoTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.TicketListing, error) {
	filter = filter.Normalize()

	match := bson.M{}
	if filter.Category != nil {
		match["category"] = string(*filter.Category)
	}
	if filter.City != nil {
		match["city"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(*filter.City) + "$", Options: "i"}
	}
	if !filter.IncludeSold {
		match["isSold"] = false
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$skip", Value: int64(filter.Offset)}},
		{{Key: "$limit", Value: int64(filter.Limit)}},
		{{Key: "$lookup", Value: bson.M{
			"from": UsersCollection,
			"let":  bson.M{"sellerId": "$seller"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$sellerId"}}}},
				bson.M{"$project": bson.M{"_id": 0, "name": 1, "email": 1}},
			},
			"as": "sellerDocs",
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := []domain.TicketListing{}
	for cursor.Next(ctx) {
		var (
			doc    ticketDocument
			joined sellerJoin
		)
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		if err := cursor.Decode(&joined); err != nil {
			return nil, err
		}
		listing := domain.TicketListing{Ticket: doc.toDomain()}
		if len(joined.SellerDocs) > 0 {
			seller := joined.SellerDocs[0]
			listing.Seller = &domain.SellerSummary{Name: seller.Name, Email: seller.Email}
		}
		result = append(result, listing)
	}
	return result, cursor.Err()
}
