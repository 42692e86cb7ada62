package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"stayledger/internal/app/policies"
)

var ErrGatewayUnavailable = errors.New("payment: gateway unavailable")

// Gateway talks to the payment provider over its REST API. Calls go
// through a circuit breaker so a flapping provider does not pile up
// in-flight settlements.
type Gateway struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func NewGateway(baseURL string, timeout time.Duration, logger *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var respErr *responseError
			// 4xx is the caller's problem, not the provider's health.
			return errors.As(err, &respErr) && respErr.StatusCode >= 400 && respErr.StatusCode < 500
		},
	})
	return &Gateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger,
	}
}

type responseError struct {
	StatusCode int
	Body       string
}

func (e *responseError) Error() string {
	return fmt.Sprintf("payment: gateway returned %d: %s", e.StatusCode, e.Body)
}

func (g *Gateway) Collect(ctx context.Context, req policies.CollectRequest) (policies.CollectResult, error) {
	body := map[string]any{
		"actor_id":    req.ActorID,
		"amount":      req.Amount.Amount,
		"currency":    req.Amount.Currency,
		"description": req.Description,
		"reference":   req.Reference,
	}
	var out struct {
		TransactionID string `json:"transaction_id"`
		Status        string `json:"status"`
	}
	if err := g.post(ctx, "/v1/collect", body, &out); err != nil {
		return policies.CollectResult{}, err
	}
	return policies.CollectResult{TransactionID: out.TransactionID, Status: out.Status}, nil
}

func (g *Gateway) Payout(ctx context.Context, req policies.PayoutRequest) (policies.PayoutResult, error) {
	body := map[string]any{
		"actor_id":    req.ActorID,
		"account":     req.Account,
		"amount":      req.Amount.Amount,
		"currency":    req.Amount.Currency,
		"description": req.Description,
		"booking_id":  req.BookingID,
	}
	var out struct {
		BatchID string `json:"batch_id"`
		ItemID  string `json:"item_id"`
		Status  string `json:"status"`
	}
	if err := g.post(ctx, "/v1/payouts", body, &out); err != nil {
		return policies.PayoutResult{}, err
	}
	return policies.PayoutResult{BatchID: out.BatchID, ItemID: out.ItemID, Status: out.Status}, nil
}

func (g *Gateway) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	raw, err := g.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &responseError{StatusCode: resp.StatusCode, Body: string(data)}
		}
		return data, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrGatewayUnavailable
		}
		return err
	}
	return json.Unmarshal(raw.([]byte), out)
}
