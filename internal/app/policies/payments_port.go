package policies

import (
	"context"

	"stayledger/internal/domain/shared/money"
)

// PaymentsPort abstracts the external payment gateway. Both calls are
// opaque remote operations that can fail independently of ledger state.
type PaymentsPort interface {
	// Collect captures a one-time client payment and returns the gateway
	// transaction reference.
	Collect(ctx context.Context, req CollectRequest) (CollectResult, error)
	// Payout issues a transfer to a named external account. The returned
	// status may be PENDING; delivery completes asynchronously on the
	// gateway side.
	Payout(ctx context.Context, req PayoutRequest) (PayoutResult, error)
}

type CollectRequest struct {
	ActorID     string
	Amount      money.Money
	Description string
	Reference   string // caller-supplied idempotency reference
}

type CollectResult struct {
	TransactionID string
	Status        string
}

type PayoutRequest struct {
	ActorID     string
	Account     string // external account identifier (email for PayPal-style gateways)
	Amount      money.Money
	Description string
	BookingID   string
}

type PayoutResult struct {
	BatchID string
	ItemID  string
	Status  string // PENDING or COMPLETED
}
