package payment

import (
	"context"
	"fmt"
	"sync/atomic"

	"stayledger/internal/app/policies"
)

// StubGateway approves everything. It backs dev mode so the service
// runs without a payment provider.
type StubGateway struct {
	seq atomic.Int64
}

func NewStubGateway() *StubGateway {
	return &StubGateway{}
}

func (s *StubGateway) Collect(ctx context.Context, req policies.CollectRequest) (policies.CollectResult, error) {
	return policies.CollectResult{
		TransactionID: fmt.Sprintf("stub-col-%d", s.seq.Add(1)),
		Status:        "COMPLETED",
	}, nil
}

func (s *StubGateway) Payout(ctx context.Context, req policies.PayoutRequest) (policies.PayoutResult, error) {
	n := s.seq.Add(1)
	return policies.PayoutResult{
		BatchID: fmt.Sprintf("stub-batch-%d", n),
		ItemID:  fmt.Sprintf("stub-item-%d", n),
		Status:  "COMPLETED",
	}, nil
}
