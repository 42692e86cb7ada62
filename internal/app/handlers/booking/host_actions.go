package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stayledger/internal/app/commands"
	"stayledger/internal/app/outbox"
	"stayledger/internal/app/policies"
	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
)

const (
	approveBookingKey = "booking.approve"
	declineBookingKey = "booking.decline"
)

type ApproveBookingCommand struct {
	BookingID string
	HostID    string
}

func (c ApproveBookingCommand) Key() string { return approveBookingKey }

type DeclineBookingCommand struct {
	BookingID string
	HostID    string
	Reason    string
}

func (c DeclineBookingCommand) Key() string { return declineBookingKey }

type HostActionResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

// HostActionsHandler serves the two host-side transitions of a pending
// booking: approval (to UPCOMING) and decline.
type HostActionsHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Notifier   policies.NotifierPort
	Logger     *slog.Logger
}

func (h *HostActionsHandler) HandleApprove(ctx context.Context, cmd ApproveBookingCommand) (*HostActionResult, error) {
	return h.transition(ctx, cmd.BookingID, cmd.HostID, func(b *domainbooking.Booking, now time.Time) error {
		return b.Approve(now)
	}, "Booking approved", "Your booking %s is confirmed and upcoming.")
}

func (h *HostActionsHandler) HandleDecline(ctx context.Context, cmd DeclineBookingCommand) (*HostActionResult, error) {
	return h.transition(ctx, cmd.BookingID, cmd.HostID, func(b *domainbooking.Booking, now time.Time) error {
		return b.Decline(cmd.Reason, now)
	}, "Booking declined", "Your booking %s was declined by the host.")
}

func (h *HostActionsHandler) transition(ctx context.Context, bookingID, hostID string, apply func(*domainbooking.Booking, time.Time) error, subject, bodyFmt string) (*HostActionResult, error) {
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

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(bookingID))
	if err != nil {
		return nil, err
	}
	if b.HostID != hostID {
		return nil, domainbooking.ErrNotBookingOwner
	}

	now := time.Now().UTC()
	if err := apply(b, now); err != nil {
		return nil, err
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

	notifyHost(ctx, h.Notifier, h.Logger, b.GuestID, subject, fmt.Sprintf(bodyFmt, b.ID))

	return &HostActionResult{BookingID: string(b.ID), Status: string(b.Status)}, nil
}

func (h *HostActionsHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[ApproveBookingCommand, *HostActionResult] = commands.HandlerFunc[ApproveBookingCommand, *HostActionResult]((&HostActionsHandler{}).HandleApprove)
var _ commands.Handler[DeclineBookingCommand, *HostActionResult] = commands.HandlerFunc[DeclineBookingCommand, *HostActionResult]((&HostActionsHandler{}).HandleDecline)
