package availability

import (
	"context"
	"errors"
	"time"

	"stayledger/internal/app/queries"
	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
	domainlisting "stayledger/internal/domain/listing"
	domainrange "stayledger/internal/domain/shared/daterange"
)

const checkAvailabilityKey = "availability.check"

var ErrUnitOfWorkRequired = errors.New("availability: unit of work required")

type CheckAvailabilityQuery struct {
	ListingID string
	CheckIn   time.Time
	CheckOut  time.Time
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type CheckAvailabilityResult struct {
	Available bool `json:"available"`
}

// CheckAvailabilityHandler answers whether a date range is free for a
// listing. Read-only: pending and upcoming bookings reserve inventory,
// declined and cancelled ones release it.
type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (*CheckAvailabilityResult, error) {
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
	existing, err := unit.Bookings().ListByListing(ctx, domainlisting.ListingID(q.ListingID), domainbooking.ReservingStatuses...)
	if err != nil {
		return nil, err
	}
	return &CheckAvailabilityResult{Available: domainbooking.RangeAvailable(existing, dr)}, nil
}

var _ queries.Handler[CheckAvailabilityQuery, *CheckAvailabilityResult] = (*CheckAvailabilityHandler)(nil)
