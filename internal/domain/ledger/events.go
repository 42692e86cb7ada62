package ledger

import (
	"time"

	"stayledger/internal/domain/shared/money"
)

type TransactionRecorded struct {
	TransactionID TransactionID
	ActorID       string
	Type          TransactionType
	Amount        money.Money
	BookingID     string
	At            time.Time
}

func (e TransactionRecorded) EventName() string     { return "ledger.transaction_recorded" }
func (e TransactionRecorded) AggregateID() string   { return e.ActorID }
func (e TransactionRecorded) OccurredAt() time.Time { return e.At }

// PayoutPending is emitted when a downstream payout leg fails and is
// parked for manual reconciliation. Dashboards count these.
type PayoutPending struct {
	ActorID   string
	BookingID string
	Type      TransactionType
	Amount    money.Money
	Reason    string
	At        time.Time
}

func (e PayoutPending) EventName() string     { return "ledger.payout_pending" }
func (e PayoutPending) AggregateID() string   { return e.ActorID }
func (e PayoutPending) OccurredAt() time.Time { return e.At }
