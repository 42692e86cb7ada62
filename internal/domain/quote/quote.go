package quote

import (
	"errors"
	"time"

	"stayledger/internal/domain/coupon"
	"stayledger/internal/domain/listing"
	"stayledger/internal/domain/shared/daterange"
	"stayledger/internal/domain/shared/money"
)

var (
	ErrCheckInInPast = errors.New("quote: check-in date is in the past")
	ErrStayTooLong   = errors.New("quote: home stays are limited to 30 nights")
	ErrSpanTooLong   = errors.New("quote: experience and service slots are limited to 7 days")
)

// Quote is the priced breakdown of a booking request. The discount is
// applied to the subtotal before the service fee is computed, so the fee
// is always charged on the discounted amount.
type Quote struct {
	Subtotal   money.Money `json:"subtotal" bson:"subtotal"`
	Discount   money.Money `json:"discount" bson:"discount"`
	ServiceFee money.Money `json:"service_fee" bson:"service_fee"`
	Total      money.Money `json:"total" bson:"total"`
	Nights     int         `json:"nights" bson:"nights"`
	CouponID   string      `json:"coupon_id,omitempty" bson:"coupon_id,omitempty"`
}

const (
	DefaultFeePercent  = 10
	DefaultMaxNights   = 30
	DefaultMaxSpanDays = 7
)

// Calculator prices booking requests per the platform rules.
type Calculator struct {
	FeePercent  int
	MaxNights   int
	MaxSpanDays int
}

func NewCalculator(feePercent int) Calculator {
	if feePercent <= 0 {
		feePercent = DefaultFeePercent
	}
	return Calculator{
		FeePercent:  feePercent,
		MaxNights:   DefaultMaxNights,
		MaxSpanDays: DefaultMaxSpanDays,
	}
}

// Quote prices the listing over the range, applying the coupon when one is
// supplied. The coupon must already be validated for the requesting guest;
// consumption is the caller's responsibility.
func (c Calculator) Quote(l *listing.Listing, dr daterange.DateRange, cp *coupon.Coupon, now time.Time) (Quote, error) {
	if err := dr.Validate(); err != nil {
		return Quote{}, err
	}
	if err := validateCheckIn(dr, now); err != nil {
		return Quote{}, err
	}

	nights := dr.Nights()
	var subtotal money.Money
	if l.Category.FlatPriced() {
		if nights > c.maxSpanDays() {
			return Quote{}, ErrSpanTooLong
		}
		subtotal = l.Price
	} else {
		if nights > c.maxNights() {
			return Quote{}, ErrStayTooLong
		}
		subtotal = l.Price.Multiply(int64(nights))
	}

	q := Quote{Subtotal: subtotal, Nights: nights}
	discount := money.Money{Amount: 0, Currency: subtotal.Currency}
	if cp != nil {
		discount = subtotal.PercentOf(cp.Percent)
		q.CouponID = string(cp.ID)
	}
	q.Discount = discount

	beforeFee, err := subtotal.Sub(discount)
	if err != nil {
		return Quote{}, err
	}
	q.ServiceFee = beforeFee.PercentOf(c.feePercent())
	q.Total, err = beforeFee.Add(q.ServiceFee)
	if err != nil {
		return Quote{}, err
	}
	return q, nil
}

// validateCheckIn compares at date granularity so a booking for later
// today is still accepted.
func validateCheckIn(dr daterange.DateRange, now time.Time) error {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	checkIn := time.Date(dr.CheckIn.Year(), dr.CheckIn.Month(), dr.CheckIn.Day(), 0, 0, 0, 0, time.UTC)
	if checkIn.Before(today) {
		return ErrCheckInInPast
	}
	return nil
}

func (c Calculator) feePercent() int {
	if c.FeePercent <= 0 {
		return DefaultFeePercent
	}
	return c.FeePercent
}

func (c Calculator) maxNights() int {
	if c.MaxNights <= 0 {
		return DefaultMaxNights
	}
	return c.MaxNights
}

func (c Calculator) maxSpanDays() int {
	if c.MaxSpanDays <= 0 {
		return DefaultMaxSpanDays
	}
	return c.MaxSpanDays
}
