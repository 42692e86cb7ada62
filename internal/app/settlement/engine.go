package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayledger/internal/app/outbox"
	"stayledger/internal/app/policies"
	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
	domainledger "stayledger/internal/domain/ledger"
	"stayledger/internal/domain/shared/money"
)

const (
	// DefaultFeePercent is the platform commission on each paid booking.
	DefaultFeePercent = 10
	// RefundPercent of the total goes back to the guest on an in-window
	// cancellation; the other half is split evenly between host and admin.
	RefundPercent        = 50
	defaultRetryAttempts = 3
)

var ErrEngineNotConfigured = errors.New("settlement: engine missing dependencies")

// Engine moves funds between actors on booking payment and cancellation.
// Each leg is committed independently per actor; there is no cross-actor
// transaction. When a downstream payout leg fails the guest-facing leg is
// deliberately NOT rolled back: the leg is parked as PENDING for manual
// reconciliation and a ledger.payout_pending event is emitted.
type Engine struct {
	AdminActorID string
	AdminAccount string // external payout account for the platform
	FeePercent   int
	Retries      int
	Payments     policies.PaymentsPort
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Logger       *slog.Logger
	Now          func() time.Time
}

type RecordParams struct {
	ActorID     string
	Role        domainledger.Role // used when the account must be created
	Type        domainledger.TransactionType
	Amount      money.Money
	Status      domainledger.TransactionStatus
	Description string
	BookingID   string
}

// RecordTransaction implements the ledger contract: read the actor's
// balance, apply the signed amount, persist the account with a
// compare-and-swap and append the immutable row. Lost CAS races are
// retried with a fresh read so concurrent writers cannot drop an update.
func (e *Engine) RecordTransaction(ctx context.Context, unit uow.UnitOfWork, params RecordParams) (domainledger.Transaction, error) {
	now := e.now()
	attempts := e.Retries
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	var tx domainledger.Transaction
	for attempt := 0; ; attempt++ {
		acct, err := unit.Accounts().ByActor(ctx, params.ActorID)
		if err != nil {
			if !errors.Is(err, domainledger.ErrAccountNotFound) {
				return domainledger.Transaction{}, err
			}
			acct = domainledger.NewAccount(params.ActorID, params.Role, now)
		}
		tx, err = acct.Apply(domainledger.ApplyParams{
			ID:          domainledger.TransactionID(uuid.NewString()),
			Type:        params.Type,
			Amount:      params.Amount,
			Status:      params.Status,
			Description: params.Description,
			BookingID:   params.BookingID,
			Now:         now,
		})
		if err != nil {
			return domainledger.Transaction{}, err
		}
		if err := unit.Accounts().Save(ctx, acct); err != nil {
			if errors.Is(err, domainledger.ErrConcurrentUpdate) && attempt < attempts {
				continue
			}
			return domainledger.Transaction{}, err
		}
		break
	}
	if err := unit.Transactions().Append(ctx, tx); err != nil {
		return domainledger.Transaction{}, err
	}
	e.emit(ctx, domainledger.TransactionRecorded{
		TransactionID: tx.ID,
		ActorID:       tx.ActorID,
		Type:          tx.Type,
		Amount:        tx.Amount,
		BookingID:     tx.BookingID,
		At:            now,
	})
	return tx, nil
}

// SettlePayment distributes a paid booking between guest, host and admin.
// The wallet debit of the guest is the only leg that can abort the whole
// operation (insufficient funds is a conflict, not a partial failure).
func (e *Engine) SettlePayment(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
	if unit == nil || e.Payments == nil {
		return ErrEngineNotConfigured
	}
	total := b.Quote.Total
	now := e.now()

	if b.PaymentMethod == domainbooking.PaymentWallet {
		_, err := e.RecordTransaction(ctx, unit, RecordParams{
			ActorID:     b.GuestID,
			Role:        domainledger.RoleGuest,
			Type:        domainledger.TypeBookingPayment,
			Amount:      total.Neg(),
			Description: fmt.Sprintf("Payment for booking %s (%s)", b.ID, total),
			BookingID:   string(b.ID),
		})
		if err != nil {
			return err
		}
	}

	commission := total.PercentOf(e.feePercent())
	hostShare, err := total.Sub(commission)
	if err != nil {
		return err
	}

	if _, err := e.RecordTransaction(ctx, unit, RecordParams{
		ActorID:     b.HostID,
		Role:        domainledger.RoleHost,
		Type:        domainledger.TypeBookingPayoutHost,
		Amount:      hostShare,
		Description: fmt.Sprintf("Host share for booking %s", b.ID),
		BookingID:   string(b.ID),
	}); err != nil {
		e.parkPayout(ctx, b.HostID, string(b.ID), domainledger.TypeBookingPayoutHost, hostShare, err, now)
	}

	adminStatus := domainledger.StatusCompleted
	if b.PaymentMethod == domainbooking.PaymentExternal {
		// External payments deliver the commission to the platform's
		// gateway account; a failed or still-pending payout parks the leg.
		res, payErr := e.Payments.Payout(ctx, policies.PayoutRequest{
			ActorID:     e.AdminActorID,
			Account:     e.AdminAccount,
			Amount:      commission,
			Description: fmt.Sprintf("Commission for booking %s", b.ID),
			BookingID:   string(b.ID),
		})
		if payErr != nil {
			adminStatus = domainledger.StatusPending
			e.parkPayout(ctx, e.AdminActorID, string(b.ID), domainledger.TypeBookingPayoutAdmin, commission, payErr, now)
		} else if res.Status != "COMPLETED" {
			adminStatus = domainledger.StatusPending
		}
	}
	if _, err := e.RecordTransaction(ctx, unit, RecordParams{
		ActorID:     e.AdminActorID,
		Role:        domainledger.RoleAdmin,
		Type:        domainledger.TypeBookingPayoutAdmin,
		Amount:      commission,
		Status:      adminStatus,
		Description: fmt.Sprintf("Platform commission for booking %s", b.ID),
		BookingID:   string(b.ID),
	}); err != nil {
		e.parkPayout(ctx, e.AdminActorID, string(b.ID), domainledger.TypeBookingPayoutAdmin, commission, err, now)
	}

	b.MarkPaid(now)
	return nil
}

// SettleCancellation refunds half the total to the guest and splits the
// retained half between host and admin. The caller must already have
// validated eligibility and transitioned the booking.
func (e *Engine) SettleCancellation(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
	if unit == nil {
		return ErrEngineNotConfigured
	}
	total := b.Quote.Total
	now := e.now()

	refund := total.PercentOf(RefundPercent)
	if _, err := e.RecordTransaction(ctx, unit, RecordParams{
		ActorID:     b.GuestID,
		Role:        domainledger.RoleGuest,
		Type:        domainledger.TypeRefund,
		Amount:      refund,
		Description: fmt.Sprintf("Refund for cancelled booking %s (%s)", b.ID, refund),
		BookingID:   string(b.ID),
	}); err != nil {
		// The guest-facing refund is the one leg that must not be parked.
		return err
	}

	hostPayout := refund.PercentOf(50)
	// Subtraction keeps the odd centavo on the admin side instead of
	// dropping it.
	adminPayout, err := refund.Sub(hostPayout)
	if err != nil {
		return err
	}

	if _, err := e.RecordTransaction(ctx, unit, RecordParams{
		ActorID:     b.HostID,
		Role:        domainledger.RoleHost,
		Type:        domainledger.TypeCancellationPayoutHost,
		Amount:      hostPayout,
		Description: fmt.Sprintf("Cancellation compensation for booking %s", b.ID),
		BookingID:   string(b.ID),
	}); err != nil {
		e.parkPayout(ctx, b.HostID, string(b.ID), domainledger.TypeCancellationPayoutHost, hostPayout, err, now)
	}

	if _, err := e.RecordTransaction(ctx, unit, RecordParams{
		ActorID:     e.AdminActorID,
		Role:        domainledger.RoleAdmin,
		Type:        domainledger.TypeCancellationPayoutAdmin,
		Amount:      adminPayout,
		Description: fmt.Sprintf("Cancellation commission for booking %s", b.ID),
		BookingID:   string(b.ID),
	}); err != nil {
		e.parkPayout(ctx, e.AdminActorID, string(b.ID), domainledger.TypeCancellationPayoutAdmin, adminPayout, err, now)
	}
	return nil
}

// parkPayout records the reconciliation signal for a failed downstream
// leg: an error log plus a payout_pending event for the ops dashboard.
func (e *Engine) parkPayout(ctx context.Context, actorID, bookingID string, typ domainledger.TransactionType, amount money.Money, cause error, now time.Time) {
	if e.Logger != nil {
		e.Logger.Error("payout leg parked for reconciliation",
			"actor_id", actorID, "booking_id", bookingID, "type", string(typ),
			"amount", amount.String(), "error", cause)
	}
	e.emit(ctx, domainledger.PayoutPending{
		ActorID:   actorID,
		BookingID: bookingID,
		Type:      typ,
		Amount:    amount,
		Reason:    cause.Error(),
		At:        now,
	})
}

func (e *Engine) emit(ctx context.Context, ev interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}) {
	if e.Outbox == nil {
		return
	}
	encoder := e.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	rec, err := encoder.Encode(ev)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Error("settlement event encode failed", "event", ev.EventName(), "error", err)
		}
		return
	}
	if err := e.Outbox.Add(ctx, rec); err != nil && e.Logger != nil {
		e.Logger.Error("settlement event enqueue failed", "event", ev.EventName(), "error", err)
	}
}

func (e *Engine) feePercent() int {
	if e.FeePercent <= 0 {
		return DefaultFeePercent
	}
	return e.FeePercent
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}
