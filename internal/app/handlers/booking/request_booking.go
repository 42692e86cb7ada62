package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stayledger/internal/app/commands"
	"stayledger/internal/app/middleware"
	"stayledger/internal/app/outbox"
	"stayledger/internal/app/policies"
	"stayledger/internal/app/settlement"
	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
	domaincoupon "stayledger/internal/domain/coupon"
	domainlisting "stayledger/internal/domain/listing"
	domainquote "stayledger/internal/domain/quote"
	domainrange "stayledger/internal/domain/shared/daterange"
)

const requestBookingKey = "booking.request"

var ErrUnitOfWorkRequired = errors.New("booking: unit of work required")

type RequestBookingCommand struct {
	CommandID       string
	ListingID       string
	GuestID         string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	CouponID        string
	PaymentMethod   string // WALLET or EXTERNAL
	GatewayRef      string // capture reference when the guest paid externally
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &RequestBookingResult{} }

type RequestBookingResult struct {
	BookingID  string `json:"booking_id"`
	Status     string `json:"status"`
	Subtotal   int64  `json:"subtotal"`
	Discount   int64  `json:"discount"`
	ServiceFee int64  `json:"service_fee"`
	Total      int64  `json:"total"`
}

// RequestBookingHandler runs the full guest booking flow: validate dates,
// check availability, price the stay, create the booking and settle the
// payment in one unit of work.
type RequestBookingHandler struct {
	UoWFactory   uow.UoWFactory
	Calculator   domainquote.Calculator
	Engine       *settlement.Engine
	CancelWindow time.Duration // zero means the domain default
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Notifier     policies.NotifierPort
	Logger       *slog.Logger
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*RequestBookingResult, error) {
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

	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	listing, err := unit.Listings().ByID(ctx, domainlisting.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	if err := listing.Bookable(cmd.Guests); err != nil {
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
	if cmd.CouponID != "" {
		cpn, err = unit.Coupons().ByID(ctx, domaincoupon.CouponID(cmd.CouponID))
		if err != nil {
			return nil, err
		}
		if err := cpn.Usable(cmd.GuestID, now); err != nil {
			return nil, err
		}
	}

	q, err := h.Calculator.Quote(listing, dr, cpn, now)
	if err != nil {
		return nil, err
	}

	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:            domainbooking.BookingID(cmd.CommandID),
		ListingID:     listing.ID,
		GuestID:       cmd.GuestID,
		HostID:        string(listing.Host),
		Range:         dr,
		Guests:        cmd.Guests,
		Quote:         q,
		CouponID:      cmd.CouponID,
		PaymentMethod: domainbooking.PaymentMethod(cmd.PaymentMethod),
		PaymentRef:    cmd.GatewayRef,
		CancelWindow:  h.CancelWindow,
		CreatedAt:     now,
	})
	if err != nil {
		return nil, err
	}

	if err := h.Engine.SettlePayment(ctx, unit, b); err != nil {
		return nil, err
	}

	if cpn != nil {
		if err := cpn.Redeem(cmd.GuestID, string(b.ID), now); err != nil {
			return nil, err
		}
		if err := unit.Coupons().Save(ctx, cpn); err != nil {
			return nil, err
		}
	}

	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	notifyHost(ctx, h.Notifier, h.Logger, b.HostID,
		"New booking request",
		fmt.Sprintf("Booking %s for listing %s (%s) awaits your approval.", b.ID, b.ListingID, b.Quote.Total))

	return &RequestBookingResult{
		BookingID:  string(b.ID),
		Status:     string(b.Status),
		Subtotal:   b.Quote.Subtotal.Amount,
		Discount:   b.Quote.Discount.Amount,
		ServiceFee: b.Quote.ServiceFee.Amount,
		Total:      b.Quote.Total.Amount,
	}, nil
}

func (h *RequestBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

// notifyHost and friends are best-effort: a failed notification is logged
// and swallowed, never surfacing to the caller.
func notifyHost(ctx context.Context, n policies.NotifierPort, log *slog.Logger, recipient, subject, body string) {
	if n == nil || recipient == "" {
		return
	}
	if err := n.Notify(ctx, policies.Message{To: recipient, Subject: subject, Body: body}); err != nil && log != nil {
		log.Warn("notification failed", "recipient", recipient, "subject", subject, "error", err)
	}
}

var _ commands.Handler[RequestBookingCommand, *RequestBookingResult] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*RequestBookingCommand)(nil)
