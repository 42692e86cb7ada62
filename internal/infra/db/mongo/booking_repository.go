package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "stayledger/internal/domain/booking"
	domainlisting "stayledger/internal/domain/listing"
	"stayledger/internal/domain/quote"
	domainrange "stayledger/internal/domain/shared/daterange"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("agg_booking")
	for _, idx := range []mongo.IndexModel{
		{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "status", Value: 1}}},
	} {
		_, _ = col.Indexes().CreateOne(context.Background(), idx)
	}
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
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
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"guest_id": guestID})
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"host_id": hostID})
}

func (r *BookingRepository) ListByListing(ctx context.Context, id domainlisting.ListingID, statuses ...domainbooking.Status) ([]*domainbooking.Booking, error) {
	filter := bson.M{"listing_id": string(id)}
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, string(s))
		}
		filter["status"] = bson.M{"$in": values}
	}
	return r.list(ctx, filter)
}

func (r *BookingRepository) list(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainbooking.Booking, 0)
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type bookingDocument struct {
	ID             string        `bson:"_id"`
	ListingID      string        `bson:"listing_id"`
	GuestID        string        `bson:"guest_id"`
	HostID         string        `bson:"host_id"`
	Range          rangeDocument `bson:"range"`
	Guests         int           `bson:"guests"`
	Quote          quote.Quote   `bson:"quote"`
	CouponID       string        `bson:"coupon_id,omitempty"`
	PaymentMethod  string        `bson:"payment_method"`
	PaymentStatus  string        `bson:"payment_status"`
	PaymentRef     string        `bson:"payment_ref,omitempty"`
	Status         string        `bson:"status"`
	HasRated       bool          `bson:"has_rated"`
	CreatedAt      int64         `bson:"created_at"`
	CancelDeadline int64         `bson:"cancel_deadline"`
	UpdatedAt      int64         `bson:"updated_at"`
	Version        int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:             string(b.ID),
		ListingID:      string(b.ListingID),
		GuestID:        b.GuestID,
		HostID:         b.HostID,
		Range:          rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli(), CheckOut: b.Range.CheckOut.UnixMilli()},
		Guests:         b.Guests,
		Quote:          b.Quote,
		CouponID:       b.CouponID,
		PaymentMethod:  string(b.PaymentMethod),
		PaymentStatus:  string(b.PaymentStatus),
		PaymentRef:     b.PaymentRef,
		Status:         string(b.Status),
		HasRated:       b.HasRated,
		CreatedAt:      b.CreatedAt.UnixMilli(),
		CancelDeadline: b.CancelDeadline.UnixMilli(),
		UpdatedAt:      b.UpdatedAt.UnixMilli(),
		Version:        b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	dr := domainrange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)}
	return &domainbooking.Booking{
		ID:             domainbooking.BookingID(d.ID),
		ListingID:      domainlisting.ListingID(d.ListingID),
		GuestID:        d.GuestID,
		HostID:         d.HostID,
		Range:          dr,
		Guests:         d.Guests,
		Quote:          d.Quote,
		CouponID:       d.CouponID,
		PaymentMethod:  domainbooking.PaymentMethod(d.PaymentMethod),
		PaymentStatus:  domainbooking.PaymentStatus(d.PaymentStatus),
		PaymentRef:     d.PaymentRef,
		Status:         domainbooking.Status(d.Status),
		HasRated:       d.HasRated,
		CreatedAt:      timestampToTime(d.CreatedAt),
		CancelDeadline: timestampToTime(d.CancelDeadline),
		UpdatedAt:      timestampToTime(d.UpdatedAt),
		Version:        d.Version,
	}
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}
