package ledger

import (
	"context"
	"errors"
	"time"

	"stayledger/internal/domain/shared/money"
)

var (
	ErrAccountNotFound   = errors.New("ledger: account not found")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrConcurrentUpdate signals a lost compare-and-swap on the account
	// balance; callers should re-read and retry.
	ErrConcurrentUpdate = errors.New("ledger: concurrent balance update")
)

type Role string

const (
	RoleGuest Role = "GUEST"
	RoleHost  Role = "HOST"
	RoleAdmin Role = "ADMIN"
)

// Account holds one actor's wallet balance. The balance is mutated only
// through Apply, and persisted with a conditional update on Version so
// two racing writers cannot both win.
type Account struct {
	ActorID   string
	Role      Role
	Balance   money.Money
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AccountRepository interface {
	ByActor(ctx context.Context, actorID string) (*Account, error)
	// Save must perform a compare-and-swap on Account.Version and return
	// ErrConcurrentUpdate when the stored version no longer matches.
	Save(ctx context.Context, account *Account) error
}

func NewAccount(actorID string, role Role, now time.Time) *Account {
	return &Account{
		ActorID:   actorID,
		Role:      role,
		Balance:   money.PHP(0),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

type ApplyParams struct {
	ID          TransactionID
	Type        TransactionType
	Amount      money.Money
	Status      TransactionStatus
	Description string
	BookingID   string
	Now         time.Time
}

// Apply moves the balance by the signed amount and returns the ledger row
// capturing the before/after snapshot. Debits that would push the balance
// below zero are rejected with ErrInsufficientFunds and leave the account
// untouched.
func (a *Account) Apply(params ApplyParams) (Transaction, error) {
	before := a.Balance
	after, err := before.Add(params.Amount)
	if err != nil {
		return Transaction{}, err
	}
	if after.IsNegative() {
		return Transaction{}, ErrInsufficientFunds
	}
	status := params.Status
	if status == "" {
		status = StatusCompleted
	}
	now := params.Now.UTC()
	tx := Transaction{
		ID:            params.ID,
		ActorID:       a.ActorID,
		Type:          params.Type,
		Amount:        params.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Status:        status,
		Description:   params.Description,
		BookingID:     params.BookingID,
		CreatedAt:     now,
	}
	a.Balance = after
	a.UpdatedAt = now
	return tx, nil
}
