package quotes

import (
	"context"
	"errors"
	"time"

	"stayledger/internal/app/queries"
	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
	domaincoupon "stayledger/internal/domain/coupon"
	domainlisting "stayledger/internal/domain/listing"
	domainquote "stayledger/internal/domain/quote"
	domainrange "stayledger/internal/domain/shared/daterange"
)

const getQuoteKey = "quote.get"

var ErrUnitOfWorkRequired = errors.New("quotes: unit of work required")

type GetQuoteQuery struct {
	ListingID string
	GuestID   string
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
	CouponID  string
}

func (q GetQuoteQuery) Key() string { return getQuoteKey }

type GetQuoteResult struct {
	Subtotal   int64  `json:"subtotal"`
	Discount   int64  `json:"discount"`
	ServiceFee int64  `json:"service_fee"`
	Total      int64  `json:"total"`
	Nights     int    `json:"nights"`
	Currency   string `json:"currency"`
}

// GetQuoteHandler prices a prospective booking without creating anything.
// Unavailable dates are rejected here too, so the guest sees the conflict
// before paying.
type GetQuoteHandler struct {
	UoWFactory uow.UoWFactory
	Calculator domainquote.Calculator
}

func (h *GetQuoteHandler) Handle(ctx context.Context, q GetQuoteQuery) (*GetQuoteResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return nil, err
		}
		defer func() { _ = unit.Rollback(ctx) }()
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
	}

	dr, err := domainrange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	listing, err := unit.Listings().ByID(ctx, domainlisting.ListingID(q.ListingID))
	if err != nil {
		return nil, err
	}
	if err := listing.Bookable(q.Guests); err != nil {
		return nil, err
	}

	existing, err := unit.Bookings().ListByListing(ctx, listing.ID, domainbooking.ReservingStatuses...)
	if err != nil {
		return nil, err
	}
	if !domainbooking.RangeAvailable(existing, dr) {
		return nil, domainbooking.ErrDatesUnavailable
	}

	var cpn *domaincoupon.Coupon
	if q.CouponID != "" {
		cpn, err = unit.Coupons().ByID(ctx, domaincoupon.CouponID(q.CouponID))
		if err != nil {
			return nil, err
		}
		if err := cpn.Usable(q.GuestID, now); err != nil {
			return nil, err
		}
	}

	priced, err := h.Calculator.Quote(listing, dr, cpn, now)
	if err != nil {
		return nil, err
	}
	return &GetQuoteResult{
		Subtotal:   priced.Subtotal.Amount,
		Discount:   priced.Discount.Amount,
		ServiceFee: priced.ServiceFee.Amount,
		Total:      priced.Total.Amount,
		Nights:     priced.Nights,
		Currency:   priced.Total.Currency,
	}, nil
}

var _ queries.Handler[GetQuoteQuery, *GetQuoteResult] = (*GetQuoteHandler)(nil)
