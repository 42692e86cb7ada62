package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincoupon "stayledger/internal/domain/coupon"
)

type CouponRepository struct {
	col *mongo.Collection
}

func NewCouponRepository(db *mongo.Database) *CouponRepository {
	return &CouponRepository{col: db.Collection("agg_coupon")}
}

func (r *CouponRepository) ByID(ctx context.Context, id domaincoupon.CouponID) (*domaincoupon.Coupon, error) {
	var doc couponDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaincoupon.ErrCouponNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save compare-and-swaps on version. When the incoming state marks the
// coupon used, the filter additionally requires the stored row to still
// be unused, so two racing redemptions cannot both consume it.
func (r *CouponRepository) Save(ctx context.Context, c *domaincoupon.Coupon) error {
	doc := newCouponDocument(c)
	filter := bson.M{"_id": doc.ID, "version": c.Version}
	if c.Used {
		filter["used"] = false
	}
	doc.Version = c.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(!c.Used))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domaincoupon.ErrCouponUsed
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domaincoupon.ErrCouponUsed
	}
	c.Version = doc.Version
	return nil
}

type couponDocument struct {
	ID        string `bson:"_id"`
	GuestID   string `bson:"guest_id"`
	Percent   int    `bson:"percent"`
	ValidFrom int64  `bson:"valid_from"`
	ValidTo   int64  `bson:"valid_to"`
	Used      bool   `bson:"used"`
	BookingID string `bson:"booking_id,omitempty"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
	Version   int64  `bson:"version"`
}

func newCouponDocument(c *domaincoupon.Coupon) couponDocument {
	return couponDocument{
		ID:        string(c.ID),
		GuestID:   c.GuestID,
		Percent:   c.Percent,
		ValidFrom: c.ValidFrom.UnixMilli(),
		ValidTo:   c.ValidTo.UnixMilli(),
		Used:      c.Used,
		BookingID: c.BookingID,
		CreatedAt: c.CreatedAt.UnixMilli(),
		UpdatedAt: c.UpdatedAt.UnixMilli(),
		Version:   c.Version,
	}
}

func (d couponDocument) toAggregate() *domaincoupon.Coupon {
	return &domaincoupon.Coupon{
		ID:        domaincoupon.CouponID(d.ID),
		GuestID:   d.GuestID,
		Percent:   d.Percent,
		ValidFrom: timestampToTime(d.ValidFrom),
		ValidTo:   timestampToTime(d.ValidTo),
		Used:      d.Used,
		BookingID: d.BookingID,
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
}
