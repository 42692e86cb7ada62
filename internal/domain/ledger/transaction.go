package ledger

import (
	"context"
	"time"

	"stayledger/internal/domain/shared/money"
)

type TransactionID string

type TransactionType string

const (
	TypeCashIn                  TransactionType = "CASH_IN"
	TypeBookingPayment          TransactionType = "BOOKING_PAYMENT"
	TypeBookingPayoutHost       TransactionType = "BOOKING_PAYOUT_HOST"
	TypeBookingPayoutAdmin      TransactionType = "BOOKING_PAYOUT_ADMIN"
	TypeRefund                  TransactionType = "REFUND"
	TypeCancellationPayoutHost  TransactionType = "CANCELLATION_PAYOUT_HOST"
	TypeCancellationPayoutAdmin TransactionType = "CANCELLATION_PAYOUT_ADMIN"
)

type TransactionStatus string

const (
	// StatusCompleted means the leg settled fully.
	StatusCompleted TransactionStatus = "COMPLETED"
	// StatusPending marks a leg whose external delivery failed and awaits
	// manual reconciliation. The ledger row is still appended so the books
	// show the obligation.
	StatusPending TransactionStatus = "PENDING"
)

// Transaction is one immutable row of an actor's ledger. The balance
// fields are a point-in-time snapshot taken when the row was written,
// never recomputed: BalanceAfter == BalanceBefore + Amount always holds,
// and the actor's stored balance equals the BalanceAfter of their most
// recent row.
type Transaction struct {
	ID            TransactionID
	ActorID       string
	Type          TransactionType
	Amount        money.Money // signed: credits positive, debits negative
	BalanceBefore money.Money
	BalanceAfter  money.Money
	Status        TransactionStatus
	Description   string
	BookingID     string
	CreatedAt     time.Time
}

type TransactionRepository interface {
	// Append persists a new row. Rows are never updated or deleted.
	Append(ctx context.Context, tx Transaction) error
	// ListByActor returns the actor's rows newest first, up to limit
	// (limit <= 0 means no cap).
	ListByActor(ctx context.Context, actorID string, limit int) ([]Transaction, error)
	ListByBooking(ctx context.Context, bookingID string) ([]Transaction, error)
}
