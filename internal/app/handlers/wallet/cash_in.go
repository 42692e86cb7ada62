package wallet

import (
	"context"
	"errors"
	"fmt"

	"stayledger/internal/app/commands"
	"stayledger/internal/app/middleware"
	"stayledger/internal/app/policies"
	"stayledger/internal/app/settlement"
	"stayledger/internal/app/uow"
	domainledger "stayledger/internal/domain/ledger"
	"stayledger/internal/domain/shared/money"
)

const cashInKey = "wallet.cash_in"

var (
	ErrUnitOfWorkRequired = errors.New("wallet: unit of work required")
	ErrInvalidAmount      = errors.New("wallet: cash-in amount must be positive")
)

type CashInCommand struct {
	ActorID         string
	Amount          int64 // centavos
	IdempotencyKeyV string
}

func (c CashInCommand) Key() string { return cashInKey }

func (c CashInCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CashInCommand) ResultPrototype() any { return &CashInResult{} }

type CashInResult struct {
	TransactionID string `json:"transaction_id"`
	GatewayRef    string `json:"gateway_ref"`
	Balance       int64  `json:"balance"`
}

// CashInHandler collects a top-up through the payment gateway and credits
// the actor's wallet with a CASH_IN ledger row.
type CashInHandler struct {
	UoWFactory uow.UoWFactory
	Payments   policies.PaymentsPort
	Engine     *settlement.Engine
}

func (h *CashInHandler) Handle(ctx context.Context, cmd CashInCommand) (*CashInResult, error) {
	if cmd.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
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

	amount := money.PHP(cmd.Amount)
	collected, err := h.Payments.Collect(ctx, policies.CollectRequest{
		ActorID:     cmd.ActorID,
		Amount:      amount,
		Description: fmt.Sprintf("Wallet cash-in %s", amount),
		Reference:   cmd.IdempotencyKeyV,
	})
	if err != nil {
		return nil, err
	}

	tx, err := h.Engine.RecordTransaction(ctx, unit, settlement.RecordParams{
		ActorID:     cmd.ActorID,
		Role:        domainledger.RoleGuest,
		Type:        domainledger.TypeCashIn,
		Amount:      amount,
		Description: fmt.Sprintf("Cash-in via gateway %s", collected.TransactionID),
	})
	if err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &CashInResult{
		TransactionID: string(tx.ID),
		GatewayRef:    collected.TransactionID,
		Balance:       tx.BalanceAfter.Amount,
	}, nil
}

var _ commands.Handler[CashInCommand, *CashInResult] = (*CashInHandler)(nil)
var _ middleware.IdempotentCommand = (*CashInCommand)(nil)
