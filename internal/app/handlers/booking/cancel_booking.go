package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stayledger/internal/app/commands"
	"stayledger/internal/app/outbox"
	"stayledger/internal/app/policies"
	"stayledger/internal/app/settlement"
	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID string
	GuestID   string
	Reason    string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

type CancelBookingResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Refund    int64  `json:"refund"`
}

// CancelBookingHandler applies the guest cancellation policy: the window
// is checked lazily at call time, the refund legs run through the
// settlement engine, and re-cancelling an already-cancelled booking is
// rejected before any balance moves.
type CancelBookingHandler struct {
	UoWFactory uow.UoWFactory
	Engine     *settlement.Engine
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Notifier   policies.NotifierPort
	Logger     *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*CancelBookingResult, error) {
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

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if b.GuestID != cmd.GuestID {
		return nil, domainbooking.ErrNotBookingOwner
	}

	now := time.Now().UTC()
	if err := b.CancelByGuest(now); err != nil {
		return nil, err
	}

	if err := h.Engine.SettleCancellation(ctx, unit, b); err != nil {
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

	notifyHost(ctx, h.Notifier, h.Logger, b.HostID,
		"Booking cancelled",
		fmt.Sprintf("Booking %s was cancelled by the guest. Reason: %s", b.ID, cmd.Reason))

	return &CancelBookingResult{
		BookingID: string(b.ID),
		Status:    string(b.Status),
		Refund:    b.Quote.Total.PercentOf(settlement.RefundPercent).Amount,
	}, nil
}

func (h *CancelBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[CancelBookingCommand, *CancelBookingResult] = (*CancelBookingHandler)(nil)
