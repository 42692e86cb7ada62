package wallet

import (
	"context"
	"errors"
	"time"

	"stayledger/internal/app/queries"
	"stayledger/internal/app/uow"
	domainledger "stayledger/internal/domain/ledger"
)

const (
	getWalletKey        = "wallet.get"
	listTransactionsKey = "wallet.transactions"
)

type GetWalletQuery struct {
	ActorID string
}

func (q GetWalletQuery) Key() string { return getWalletKey }

type GetWalletResult struct {
	ActorID  string `json:"actor_id"`
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

type ListTransactionsQuery struct {
	ActorID string
	Limit   int
}

func (q ListTransactionsQuery) Key() string { return listTransactionsKey }

type TransactionView struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	Status        string    `json:"status"`
	Description   string    `json:"description"`
	BookingID     string    `json:"booking_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type ListTransactionsResult struct {
	Transactions []TransactionView `json:"transactions"`
}

// WalletQueryHandler serves balance and transaction-history reads. A
// missing account reads as a zero balance rather than an error so fresh
// actors see an empty wallet.
type WalletQueryHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *WalletQueryHandler) HandleGet(ctx context.Context, q GetWalletQuery) (*GetWalletResult, error) {
	unit, err := h.begin(ctx)
	if err != nil {
		return nil, err
	}
	acct, err := unit.Accounts().ByActor(ctx, q.ActorID)
	if err != nil {
		if errors.Is(err, domainledger.ErrAccountNotFound) {
			return &GetWalletResult{ActorID: q.ActorID, Balance: 0, Currency: "PHP"}, nil
		}
		return nil, err
	}
	return &GetWalletResult{
		ActorID:  acct.ActorID,
		Balance:  acct.Balance.Amount,
		Currency: acct.Balance.Currency,
	}, nil
}

func (h *WalletQueryHandler) HandleTransactions(ctx context.Context, q ListTransactionsQuery) (*ListTransactionsResult, error) {
	unit, err := h.begin(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := unit.Transactions().ListByActor(ctx, q.ActorID, q.Limit)
	if err != nil {
		return nil, err
	}
	views := make([]TransactionView, 0, len(rows))
	for _, tx := range rows {
		views = append(views, TransactionView{
			ID:            string(tx.ID),
			Type:          string(tx.Type),
			Amount:        tx.Amount.Amount,
			BalanceBefore: tx.BalanceBefore.Amount,
			BalanceAfter:  tx.BalanceAfter.Amount,
			Status:        string(tx.Status),
			Description:   tx.Description,
			BookingID:     tx.BookingID,
			CreatedAt:     tx.CreatedAt,
		})
	}
	return &ListTransactionsResult{Transactions: views}, nil
}

func (h *WalletQueryHandler) begin(ctx context.Context) (uow.UnitOfWork, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, nil
	}
	if h.UoWFactory == nil {
		return nil, ErrUnitOfWorkRequired
	}
	return h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
}

var _ queries.Handler[GetWalletQuery, *GetWalletResult] = queries.HandlerFunc[GetWalletQuery, *GetWalletResult]((&WalletQueryHandler{}).HandleGet)
