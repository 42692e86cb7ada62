package booking

import (
	"context"
	"errors"
	"time"

	"stayledger/internal/domain/listing"
	"stayledger/internal/domain/quote"
	"stayledger/internal/domain/shared/daterange"
	"stayledger/internal/domain/shared/events"
)

var (
	ErrInvalidGuests      = errors.New("booking: guests count must be positive")
	ErrGuestRequired      = errors.New("booking: guest id required")
	ErrInvalidState       = errors.New("booking: invalid state transition")
	ErrBookingNotFound    = errors.New("booking: not found")
	ErrNotBookingOwner    = errors.New("booking: actor does not own this booking")
	ErrCancelWindowClosed = errors.New("booking: cancellation window has closed")
	ErrPaymentReference   = errors.New("booking: gateway reference required for external payment")
	ErrPaymentMethod      = errors.New("booking: unknown payment method")
	ErrAlreadyRated       = errors.New("booking: already rated")
	ErrNotCompleted       = errors.New("booking: only completed bookings can be rated")
)

// DefaultCancelWindow is how long a guest may cancel after creating a
// booking. The deadline is persisted on the booking and evaluated lazily
// at call time; no background timer watches it.
const DefaultCancelWindow = 24 * time.Hour

type BookingID string

type Status string

const (
	StatusPendingApproval   Status = "PENDING_APPROVAL"
	StatusUpcoming          Status = "UPCOMING"
	StatusCompleted         Status = "COMPLETED"
	StatusDeclined          Status = "DECLINED"
	StatusCancelledByGuest  Status = "CANCELLED_BY_GUEST"
)

type PaymentMethod string

const (
	PaymentWallet   PaymentMethod = "WALLET"
	PaymentExternal PaymentMethod = "EXTERNAL"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

type Booking struct {
	ID             BookingID
	ListingID      listing.ListingID
	GuestID        string
	HostID         string
	Range          daterange.DateRange
	Guests         int
	Quote          quote.Quote
	CouponID       string
	PaymentMethod  PaymentMethod
	PaymentStatus  PaymentStatus
	PaymentRef     string
	Status         Status
	HasRated       bool
	CreatedAt      time.Time
	CancelDeadline time.Time
	UpdatedAt      time.Time
	Version        int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListByHost(ctx context.Context, hostID string) ([]*Booking, error)
	// ListByListing returns bookings for the listing restricted to the
	// provided statuses; with no statuses everything is returned.
	ListByListing(ctx context.Context, id listing.ListingID, statuses ...Status) ([]*Booking, error)
}

type CreateParams struct {
	ID            BookingID
	ListingID     listing.ListingID
	GuestID       string
	HostID        string
	Range         daterange.DateRange
	Guests        int
	Quote         quote.Quote
	CouponID      string
	PaymentMethod PaymentMethod
	PaymentRef    string
	CancelWindow  time.Duration
	CreatedAt     time.Time
}

func New(params CreateParams) (*Booking, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if params.GuestID == "" {
		return nil, ErrGuestRequired
	}
	switch params.PaymentMethod {
	case PaymentWallet, PaymentExternal:
	default:
		return nil, ErrPaymentMethod
	}
	if params.PaymentMethod == PaymentExternal && params.PaymentRef == "" {
		return nil, ErrPaymentReference
	}
	window := params.CancelWindow
	if window <= 0 {
		window = DefaultCancelWindow
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:             params.ID,
		ListingID:      params.ListingID,
		GuestID:        params.GuestID,
		HostID:         params.HostID,
		Range:          params.Range,
		Guests:         params.Guests,
		Quote:          params.Quote,
		CouponID:       params.CouponID,
		PaymentMethod:  params.PaymentMethod,
		PaymentStatus:  PaymentUnpaid,
		PaymentRef:     params.PaymentRef,
		Status:         StatusPendingApproval,
		CreatedAt:      now,
		CancelDeadline: now.Add(window),
		UpdatedAt:      now,
	}
	b.Record(BookingRequested{
		BookingID: b.ID,
		ListingID: b.ListingID,
		GuestID:   b.GuestID,
		HostID:    b.HostID,
		Range:     b.Range,
		Guests:    b.Guests,
		Total:     b.Quote.Total,
		At:        now,
	})
	return b, nil
}

// ReservesInventory reports whether the booking blocks its date range.
// Declined and cancelled bookings release their dates.
func (b *Booking) ReservesInventory() bool {
	return b.Status == StatusPendingApproval || b.Status == StatusUpcoming
}

// MarkPaid records a successful payment capture. The booking stays in
// PENDING_APPROVAL until the host acts on it.
func (b *Booking) MarkPaid(now time.Time) {
	b.PaymentStatus = PaymentPaid
	b.UpdatedAt = now.UTC()
}

func (b *Booking) Approve(now time.Time) error {
	if b.Status != StatusPendingApproval {
		return ErrInvalidState
	}
	b.Status = StatusUpcoming
	b.UpdatedAt = now.UTC()
	b.Record(BookingApproved{BookingID: b.ID, HostID: b.HostID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Decline(reason string, now time.Time) error {
	if b.Status != StatusPendingApproval {
		return ErrInvalidState
	}
	b.Status = StatusDeclined
	b.UpdatedAt = now.UTC()
	b.Record(BookingDeclined{BookingID: b.ID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// CancelByGuest transitions the booking to CANCELLED_BY_GUEST when the
// cancellation window is still open. The window is boundary-exclusive:
// cancelling exactly at the deadline is already too late.
func (b *Booking) CancelByGuest(now time.Time) error {
	switch b.Status {
	case StatusPendingApproval, StatusUpcoming:
	default:
		return ErrInvalidState
	}
	if !now.UTC().Before(b.CancelDeadline) {
		return ErrCancelWindowClosed
	}
	b.Status = StatusCancelledByGuest
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, GuestID: b.GuestID, Total: b.Quote.Total, At: b.UpdatedAt})
	return nil
}

// CompleteIfStale promotes an UPCOMING booking whose check-in date has
// passed. Promotion happens lazily when the booking is read; there is no
// background job. Returns true when the status changed.
func (b *Booking) CompleteIfStale(now time.Time) bool {
	if b.Status != StatusUpcoming {
		return false
	}
	if !b.Range.CheckIn.Before(now.UTC()) {
		return false
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return true
}

func (b *Booking) MarkRated() error {
	if b.Status != StatusCompleted {
		return ErrNotCompleted
	}
	if b.HasRated {
		return ErrAlreadyRated
	}
	b.HasRated = true
	return nil
}
