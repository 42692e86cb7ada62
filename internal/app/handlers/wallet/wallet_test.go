package wallet

import (
	"context"
	"errors"
	"testing"

	"stayledger/internal/app/policies"
	"stayledger/internal/app/settlement"
	domainledger "stayledger/internal/domain/ledger"
	"stayledger/internal/infra/storage/memory"
)

type fakeGateway struct {
	collectErr error
	collects   int
}

func (g *fakeGateway) Collect(ctx context.Context, req policies.CollectRequest) (policies.CollectResult, error) {
	g.collects++
	if g.collectErr != nil {
		return policies.CollectResult{}, g.collectErr
	}
	return policies.CollectResult{TransactionID: "col-1", Status: "COMPLETED"}, nil
}

func (g *fakeGateway) Payout(ctx context.Context, req policies.PayoutRequest) (policies.PayoutResult, error) {
	return policies.PayoutResult{BatchID: "b-1", ItemID: "i-1", Status: "COMPLETED"}, nil
}

func newWalletEnv(gw *fakeGateway) (*memory.Factory, *CashInHandler, *WalletQueryHandler) {
	factory := memory.NewFactory()
	engine := &settlement.Engine{
		AdminActorID: "admin-1",
		FeePercent:   10,
		Payments:     gw,
	}
	cashIn := &CashInHandler{UoWFactory: factory, Payments: gw, Engine: engine}
	queriesH := &WalletQueryHandler{UoWFactory: factory}
	return factory, cashIn, queriesH
}

func TestCashIn(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	_, cashIn, queriesH := newWalletEnv(gw)

	res, err := cashIn.Handle(ctx, CashInCommand{ActorID: "guest-1", Amount: 500000, IdempotencyKeyV: "key-1"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Balance != 500000 {
		t.Fatalf("balance = %d, want 500000", res.Balance)
	}
	if res.GatewayRef != "col-1" {
		t.Fatalf("gateway ref = %q, want col-1", res.GatewayRef)
	}
	if gw.collects != 1 {
		t.Fatalf("gateway collects = %d, want 1", gw.collects)
	}

	// A second top-up stacks on the first.
	res, err = cashIn.Handle(ctx, CashInCommand{ActorID: "guest-1", Amount: 150000, IdempotencyKeyV: "key-2"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Balance != 650000 {
		t.Fatalf("balance = %d, want 650000", res.Balance)
	}

	wallet, err := queriesH.HandleGet(ctx, GetWalletQuery{ActorID: "guest-1"})
	if err != nil {
		t.Fatal(err)
	}
	if wallet.Balance != 650000 || wallet.Currency != "PHP" {
		t.Fatalf("wallet = %d %s, want 650000 PHP", wallet.Balance, wallet.Currency)
	}
}

func TestCashInValidation(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	_, cashIn, _ := newWalletEnv(gw)

	if _, err := cashIn.Handle(ctx, CashInCommand{ActorID: "guest-1", Amount: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: %v", err)
	}
	if _, err := cashIn.Handle(ctx, CashInCommand{ActorID: "guest-1", Amount: -100}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative amount: %v", err)
	}
	if gw.collects != 0 {
		t.Fatalf("invalid amounts reached the gateway %d times", gw.collects)
	}
}

func TestCashInGatewayFailure(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{collectErr: errors.New("card declined")}
	_, cashIn, queriesH := newWalletEnv(gw)

	if _, err := cashIn.Handle(ctx, CashInCommand{ActorID: "guest-1", Amount: 500000}); err == nil {
		t.Fatal("expected gateway error")
	}
	wallet, err := queriesH.HandleGet(ctx, GetWalletQuery{ActorID: "guest-1"})
	if err != nil {
		t.Fatal(err)
	}
	if wallet.Balance != 0 {
		t.Fatalf("failed collect credited the wallet: %d", wallet.Balance)
	}
}

func TestWalletMissingAccountReadsZero(t *testing.T) {
	_, _, queriesH := newWalletEnv(&fakeGateway{})
	wallet, err := queriesH.HandleGet(context.Background(), GetWalletQuery{ActorID: "nobody"})
	if err != nil {
		t.Fatalf("missing account should not error: %v", err)
	}
	if wallet.Balance != 0 || wallet.Currency != "PHP" {
		t.Fatalf("wallet = %d %s, want 0 PHP", wallet.Balance, wallet.Currency)
	}
}

func TestListTransactionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	_, cashIn, queriesH := newWalletEnv(&fakeGateway{})

	amounts := []int64{100, 200, 300}
	for i, a := range amounts {
		if _, err := cashIn.Handle(ctx, CashInCommand{ActorID: "guest-1", Amount: a, IdempotencyKeyV: string(rune('a' + i))}); err != nil {
			t.Fatal(err)
		}
	}

	res, err := queriesH.HandleTransactions(ctx, ListTransactionsQuery{ActorID: "guest-1", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("limit ignored: got %d rows", len(res.Transactions))
	}
	if res.Transactions[0].Amount != 300 || res.Transactions[1].Amount != 200 {
		t.Fatalf("order = %d,%d, want 300,200 (newest first)", res.Transactions[0].Amount, res.Transactions[1].Amount)
	}
	if res.Transactions[0].BalanceAfter != 600 {
		t.Fatalf("latest balance_after = %d, want 600", res.Transactions[0].BalanceAfter)
	}
	if got := res.Transactions[0].Type; got != string(domainledger.TypeCashIn) {
		t.Fatalf("type = %s, want CASH_IN", got)
	}
}
