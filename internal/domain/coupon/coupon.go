package coupon

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCouponNotFound = errors.New("coupon: not found")
	ErrCouponUsed     = errors.New("coupon: already used")
	ErrCouponExpired  = errors.New("coupon: outside validity window")
	ErrCouponNotOwned = errors.New("coupon: not owned by this guest")
	ErrInvalidPercent = errors.New("coupon: discount percent must be between 1 and 100")
)

type CouponID string

// Coupon is granted by a host to a specific guest and may discount exactly
// one booking.
type Coupon struct {
	ID        CouponID
	GuestID   string
	Percent   int
	ValidFrom time.Time
	ValidTo   time.Time
	Used      bool
	BookingID string // set when redeemed
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

type Repository interface {
	ByID(ctx context.Context, id CouponID) (*Coupon, error)
	Save(ctx context.Context, c *Coupon) error
}

func New(id CouponID, guestID string, percent int, validFrom, validTo time.Time, now time.Time) (*Coupon, error) {
	if percent < 1 || percent > 100 {
		return nil, ErrInvalidPercent
	}
	return &Coupon{
		ID:        id,
		GuestID:   guestID,
		Percent:   percent,
		ValidFrom: validFrom.UTC(),
		ValidTo:   validTo.UTC(),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Usable checks ownership, the validity window and single-use state
// without consuming the coupon.
func (c *Coupon) Usable(guestID string, now time.Time) error {
	if c.GuestID != guestID {
		return ErrCouponNotOwned
	}
	if c.Used {
		return ErrCouponUsed
	}
	now = now.UTC()
	if now.Before(c.ValidFrom) || now.After(c.ValidTo) {
		return ErrCouponExpired
	}
	return nil
}

// Redeem consumes the coupon exactly once, binding it to the booking it
// discounted.
func (c *Coupon) Redeem(guestID, bookingID string, now time.Time) error {
	if err := c.Usable(guestID, now); err != nil {
		return err
	}
	c.Used = true
	c.BookingID = bookingID
	c.UpdatedAt = now.UTC()
	return nil
}
