package booking

import (
	"context"
	"time"

	"stayledger/internal/app/outbox"
	"stayledger/internal/app/queries"
	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
)

const (
	listGuestBookingsKey = "booking.list_guest"
	listHostBookingsKey  = "booking.list_host"
)

type ListGuestBookingsQuery struct {
	GuestID string
}

func (q ListGuestBookingsQuery) Key() string { return listGuestBookingsKey }

type ListHostBookingsQuery struct {
	HostID string
}

func (q ListHostBookingsQuery) Key() string { return listHostBookingsKey }

type BookingView struct {
	BookingID      string    `json:"booking_id"`
	ListingID      string    `json:"listing_id"`
	GuestID        string    `json:"guest_id"`
	HostID         string    `json:"host_id"`
	CheckIn        time.Time `json:"check_in"`
	CheckOut       time.Time `json:"check_out"`
	Guests         int       `json:"guests"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"payment_status"`
	Subtotal       int64     `json:"subtotal"`
	Discount       int64     `json:"discount"`
	ServiceFee     int64     `json:"service_fee"`
	Total          int64     `json:"total"`
	CouponID       string    `json:"coupon_id,omitempty"`
	CancelDeadline time.Time `json:"cancel_deadline"`
	HasRated       bool      `json:"has_rated"`
}

type ListBookingsResult struct {
	Bookings []BookingView `json:"bookings"`
}

// ListBookingsHandler serves the guest and host dashboards. Bookings in
// UPCOMING whose check-in date has passed are promoted to COMPLETED here,
// at read time, and the promotion is persisted.
type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *ListBookingsHandler) HandleGuest(ctx context.Context, q ListGuestBookingsQuery) (*ListBookingsResult, error) {
	return h.list(ctx, func(ctx context.Context, unit uow.UnitOfWork) ([]*domainbooking.Booking, error) {
		return unit.Bookings().ListByGuest(ctx, q.GuestID)
	})
}

func (h *ListBookingsHandler) HandleHost(ctx context.Context, q ListHostBookingsQuery) (*ListBookingsResult, error) {
	return h.list(ctx, func(ctx context.Context, unit uow.UnitOfWork) ([]*domainbooking.Booking, error) {
		return unit.Bookings().ListByHost(ctx, q.HostID)
	})
}

func (h *ListBookingsHandler) list(ctx context.Context, fetch func(context.Context, uow.UnitOfWork) ([]*domainbooking.Booking, error)) (*ListBookingsResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	items, err := fetch(ctx, unit)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	views := make([]BookingView, 0, len(items))
	for _, b := range items {
		if b.CompleteIfStale(now) {
			if err := unit.Bookings().Save(ctx, b); err != nil {
				return nil, err
			}
			pending := b.PendingEvents()
			b.ClearEvents()
			if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
				return nil, err
			}
		}
		views = append(views, BookingView{
			BookingID:      string(b.ID),
			ListingID:      string(b.ListingID),
			GuestID:        b.GuestID,
			HostID:         b.HostID,
			CheckIn:        b.Range.CheckIn,
			CheckOut:       b.Range.CheckOut,
			Guests:         b.Guests,
			Status:         string(b.Status),
			PaymentStatus:  string(b.PaymentStatus),
			Subtotal:       b.Quote.Subtotal.Amount,
			Discount:       b.Quote.Discount.Amount,
			ServiceFee:     b.Quote.ServiceFee.Amount,
			Total:          b.Quote.Total.Amount,
			CouponID:       b.CouponID,
			CancelDeadline: b.CancelDeadline,
			HasRated:       b.HasRated,
		})
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &ListBookingsResult{Bookings: views}, nil
}

func (h *ListBookingsHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ queries.Handler[ListGuestBookingsQuery, *ListBookingsResult] = queries.HandlerFunc[ListGuestBookingsQuery, *ListBookingsResult]((&ListBookingsHandler{}).HandleGuest)
