package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlisting "stayledger/internal/domain/listing"
	"stayledger/internal/domain/shared/money"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	col := db.Collection("agg_listing")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "host_id", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &ListingRepository{col: col}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ListingID) (*domainlisting.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlisting.ErrListingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlisting.Listing) error {
	doc := newListingDocument(l)
	filter := bson.M{"_id": doc.ID, "version": l.Version}
	doc.Version = l.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	l.Version = doc.Version
	return nil
}

func (r *ListingRepository) ListByHost(ctx context.Context, host domainlisting.HostID) ([]*domainlisting.Listing, error) {
	cur, err := r.col.Find(ctx, bson.M{"host_id": string(host)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainlisting.Listing, 0)
	for cur.Next(ctx) {
		var doc listingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type listingDocument struct {
	ID            string `bson:"_id"`
	HostID        string `bson:"host_id"`
	Title         string `bson:"title"`
	Description   string `bson:"description"`
	Category      string `bson:"category"`
	PriceAmount   int64  `bson:"price_amount"`
	PriceCurrency string `bson:"price_currency"`
	GuestCapacity int    `bson:"guest_capacity"`
	State         string `bson:"state"`
	Version       int64  `bson:"version"`
	CreatedAt     int64  `bson:"created_at"`
	UpdatedAt     int64  `bson:"updated_at"`
}

func newListingDocument(l *domainlisting.Listing) listingDocument {
	return listingDocument{
		ID:            string(l.ID),
		HostID:        string(l.Host),
		Title:         l.Title,
		Description:   l.Description,
		Category:      string(l.Category),
		PriceAmount:   l.Price.Amount,
		PriceCurrency: l.Price.Currency,
		GuestCapacity: l.GuestCapacity,
		State:         string(l.State),
		Version:       l.Version,
		CreatedAt:     l.CreatedAt.UnixMilli(),
		UpdatedAt:     l.UpdatedAt.UnixMilli(),
	}
}

func (d listingDocument) toAggregate() *domainlisting.Listing {
	return &domainlisting.Listing{
		ID:            domainlisting.ListingID(d.ID),
		Host:          domainlisting.HostID(d.HostID),
		Title:         d.Title,
		Description:   d.Description,
		Category:      domainlisting.Category(d.Category),
		Price:         money.Money{Amount: d.PriceAmount, Currency: d.PriceCurrency},
		GuestCapacity: d.GuestCapacity,
		State:         domainlisting.State(d.State),
		Version:       d.Version,
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
