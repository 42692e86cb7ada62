package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stayledger/internal/app/commands"
	availabilityapp "stayledger/internal/app/handlers/availability"
	bookingapp "stayledger/internal/app/handlers/booking"
	quotesapp "stayledger/internal/app/handlers/quotes"
	walletapp "stayledger/internal/app/handlers/wallet"
	"stayledger/internal/app/middleware"
	"stayledger/internal/app/policies"
	"stayledger/internal/app/queries"
	authsvc "stayledger/internal/app/services/auth"
	"stayledger/internal/app/settlement"
	domainlisting "stayledger/internal/domain/listing"
	domainquote "stayledger/internal/domain/quote"
	"stayledger/internal/domain/shared/money"
	"stayledger/internal/infra/config"
	"stayledger/internal/infra/obs"
	"stayledger/internal/infra/security"
	"stayledger/internal/infra/storage/memory"
)

type testPayments struct{}

func (testPayments) Collect(ctx context.Context, req policies.CollectRequest) (policies.CollectResult, error) {
	return policies.CollectResult{TransactionID: "col-1", Status: "COMPLETED"}, nil
}

func (testPayments) Payout(ctx context.Context, req policies.PayoutRequest) (policies.PayoutResult, error) {
	return policies.PayoutResult{BatchID: "b-1", ItemID: "i-1", Status: "COMPLETED"}, nil
}

// newTestServer assembles the full in-memory application behind the real
// router, mirroring production wiring.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	factory := memory.NewFactory()
	box := memory.NewOutbox()
	logger := obs.NewLogger("test")

	engine := &settlement.Engine{
		AdminActorID: "admin-1",
		AdminAccount: "platform@example.com",
		FeePercent:   10,
		Payments:     testPayments{},
		Outbox:       box,
		Logger:       logger,
	}
	calculator := domainquote.NewCalculator(10)

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.RequestBookingCommand, *bookingapp.RequestBookingResult](
		commandBus, bookingapp.RequestBookingCommand{}.Key(),
		&bookingapp.RequestBookingHandler{UoWFactory: factory, Calculator: calculator, Engine: engine, Outbox: box, Logger: logger})
	commands.RegisterHandler[bookingapp.CancelBookingCommand, *bookingapp.CancelBookingResult](
		commandBus, bookingapp.CancelBookingCommand{}.Key(),
		&bookingapp.CancelBookingHandler{UoWFactory: factory, Engine: engine, Outbox: box, Logger: logger})
	hostActions := &bookingapp.HostActionsHandler{UoWFactory: factory, Outbox: box, Logger: logger}
	commands.RegisterHandler[bookingapp.ApproveBookingCommand, *bookingapp.HostActionResult](
		commandBus, bookingapp.ApproveBookingCommand{}.Key(),
		commands.HandlerFunc[bookingapp.ApproveBookingCommand, *bookingapp.HostActionResult](hostActions.HandleApprove))
	commands.RegisterHandler[bookingapp.DeclineBookingCommand, *bookingapp.HostActionResult](
		commandBus, bookingapp.DeclineBookingCommand{}.Key(),
		commands.HandlerFunc[bookingapp.DeclineBookingCommand, *bookingapp.HostActionResult](hostActions.HandleDecline))
	commands.RegisterHandler[walletapp.CashInCommand, *walletapp.CashInResult](
		commandBus, walletapp.CashInCommand{}.Key(),
		&walletapp.CashInHandler{UoWFactory: factory, Payments: testPayments{}, Engine: engine})

	dispatcher := middleware.ChainCommands(commandBus,
		middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil),
		middleware.Transaction(factory, nil),
		middleware.OutboxFlush(box),
	)

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.CheckAvailabilityQuery, *availabilityapp.CheckAvailabilityResult](
		queryBus, availabilityapp.CheckAvailabilityQuery{}.Key(),
		&availabilityapp.CheckAvailabilityHandler{UoWFactory: factory})
	queries.RegisterHandler[quotesapp.GetQuoteQuery, *quotesapp.GetQuoteResult](
		queryBus, quotesapp.GetQuoteQuery{}.Key(),
		&quotesapp.GetQuoteHandler{UoWFactory: factory, Calculator: calculator})
	lister := &bookingapp.ListBookingsHandler{UoWFactory: factory, Outbox: box}
	queries.RegisterHandler[bookingapp.ListGuestBookingsQuery, *bookingapp.ListBookingsResult](
		queryBus, bookingapp.ListGuestBookingsQuery{}.Key(),
		queries.HandlerFunc[bookingapp.ListGuestBookingsQuery, *bookingapp.ListBookingsResult](lister.HandleGuest))
	queries.RegisterHandler[bookingapp.ListHostBookingsQuery, *bookingapp.ListBookingsResult](
		queryBus, bookingapp.ListHostBookingsQuery{}.Key(),
		queries.HandlerFunc[bookingapp.ListHostBookingsQuery, *bookingapp.ListBookingsResult](lister.HandleHost))
	walletQueries := &walletapp.WalletQueryHandler{UoWFactory: factory}
	queries.RegisterHandler[walletapp.GetWalletQuery, *walletapp.GetWalletResult](
		queryBus, walletapp.GetWalletQuery{}.Key(),
		queries.HandlerFunc[walletapp.GetWalletQuery, *walletapp.GetWalletResult](walletQueries.HandleGet))
	queries.RegisterHandler[walletapp.ListTransactionsQuery, *walletapp.ListTransactionsResult](
		queryBus, walletapp.ListTransactionsQuery{}.Key(),
		queries.HandlerFunc[walletapp.ListTransactionsQuery, *walletapp.ListTransactionsResult](walletQueries.HandleTransactions))

	service := &authsvc.Service{
		Actors:    memory.NewActorRepository(),
		Sessions:  memory.NewSessionStore(),
		Passwords: security.BcryptHasher{},
		Tokens:    security.RandomTokenGenerator{},
	}

	l, err := domainlisting.New(domainlisting.CreateParams{
		ID:            "lst-1",
		Host:          "host-fixture",
		Title:         "Garden loft",
		Category:      domainlisting.CategoryHome,
		Price:         money.PHP(200000),
		GuestCapacity: 4,
		Now:           time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := factory.Listings().Save(context.Background(), l); err != nil {
		t.Fatal(err)
	}

	srv := NewServer(
		config.Config{Env: "test", HTTPAddr: ":0"},
		obs.Middleware{Logger: logger},
		obs.HealthHandlers{},
		Handlers{
			Booking:        BookingHandler{Commands: dispatcher},
			Host:           HostHandler{Commands: dispatcher, Queries: queryBus, Logger: logger},
			Availability:   AvailabilityHandler{Queries: queryBus},
			Quote:          QuoteHandler{Queries: queryBus},
			Wallet:         WalletHandler{Commands: dispatcher, Queries: queryBus},
			Me:             MeHandler{Queries: queryBus, Logger: logger},
			Auth:           AuthHandler{Service: service, Logger: logger},
			AuthMiddleware: AuthMiddleware{Service: service, Logger: logger}.Handle,
		},
	)
	return srv.Handler
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("response not JSON (%d): %s", rec.Code, rec.Body.String())
		}
	}
	return rec, out
}

func registerActor(t *testing.T, h http.Handler, email string, asHost bool) (id, token string) {
	t.Helper()
	rec, body := doJSON(t, h, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":    email,
		"name":     "Test Actor",
		"password": "long-enough",
		"as_host":  asHost,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, rec.Code, rec.Body.String())
	}
	return body["actor_id"].(string), body["token"].(string)
}

func futureDate(n int) string {
	d := time.Now().UTC().AddDate(0, 0, n)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	h := newTestServer(t)

	_, guestToken := registerActor(t, h, "guest@example.com", false)

	rec, body := doJSON(t, h, http.MethodPost, "/api/v1/wallet/cash-in", guestToken,
		map[string]any{"amount": 1000000}, map[string]string{"Idempotency-Key": "topup-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("cash-in: %d %s", rec.Code, rec.Body.String())
	}
	if body["balance"].(float64) != 1000000 {
		t.Fatalf("balance = %v, want 1000000", body["balance"])
	}

	// Replaying the same Idempotency-Key must not double-credit.
	rec, body = doJSON(t, h, http.MethodPost, "/api/v1/wallet/cash-in", guestToken,
		map[string]any{"amount": 1000000}, map[string]string{"Idempotency-Key": "topup-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("replayed cash-in: %d %s", rec.Code, rec.Body.String())
	}
	if body["balance"].(float64) != 1000000 {
		t.Fatalf("replayed balance = %v, want 1000000", body["balance"])
	}

	quoteURL := fmt.Sprintf("/api/v1/quote?listing_id=lst-1&check_in=%s&check_out=%s&guests=2", futureDate(10), futureDate(12))
	rec, body = doJSON(t, h, http.MethodGet, quoteURL, guestToken, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("quote: %d %s", rec.Code, rec.Body.String())
	}
	if body["total"].(float64) != 440000 {
		t.Fatalf("quote total = %v, want 440000", body["total"])
	}

	createBody := map[string]any{
		"listing_id":     "lst-1",
		"check_in":       futureDate(10),
		"check_out":      futureDate(12),
		"guests":         2,
		"payment_method": "WALLET",
	}
	rec, body = doJSON(t, h, http.MethodPost, "/api/v1/bookings", guestToken, createBody,
		map[string]string{"Idempotency-Key": "booking-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create booking: %d %s", rec.Code, rec.Body.String())
	}
	bookingID := body["booking_id"].(string)
	if body["status"].(string) != "PENDING_APPROVAL" {
		t.Fatalf("status = %v, want PENDING_APPROVAL", body["status"])
	}

	// Same Idempotency-Key replays the original booking instead of
	// double-charging for the same dates.
	rec, body = doJSON(t, h, http.MethodPost, "/api/v1/bookings", guestToken, createBody,
		map[string]string{"Idempotency-Key": "booking-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("replayed create: %d %s", rec.Code, rec.Body.String())
	}
	if body["booking_id"].(string) != bookingID {
		t.Fatalf("replay produced a new booking %v, want %s", body["booking_id"], bookingID)
	}

	rec, body = doJSON(t, h, http.MethodGet, "/api/v1/wallet", guestToken, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("wallet: %d %s", rec.Code, rec.Body.String())
	}
	if body["balance"].(float64) != 560000 {
		t.Fatalf("balance after booking = %v, want 560000", body["balance"])
	}

	rec, body = doJSON(t, h, http.MethodGet, "/api/v1/me/bookings", guestToken, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me/bookings: %d %s", rec.Code, rec.Body.String())
	}
	bookings := body["bookings"].([]any)
	if len(bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(bookings))
	}

	rec, body = doJSON(t, h, http.MethodPost, "/api/v1/bookings/"+bookingID+"/cancel", guestToken,
		map[string]any{"reason": "plans changed"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	if body["refund"].(float64) != 220000 {
		t.Fatalf("refund = %v, want 220000", body["refund"])
	}

	rec, body = doJSON(t, h, http.MethodGet, "/api/v1/wallet", guestToken, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Code)
	}
	if body["balance"].(float64) != 780000 {
		t.Fatalf("balance after refund = %v, want 780000", body["balance"])
	}
}

func TestHTTPAuthorization(t *testing.T) {
	h := newTestServer(t)

	// Unauthenticated writes are rejected.
	rec, _ := doJSON(t, h, http.MethodPost, "/api/v1/bookings", "", map[string]any{
		"listing_id": "lst-1", "check_in": futureDate(5), "check_out": futureDate(7), "guests": 1, "payment_method": "WALLET",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous booking: %d, want 401", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodGet, "/api/v1/wallet", "", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous wallet: %d, want 401", rec.Code)
	}

	// Guests cannot act on host endpoints.
	_, guestToken := registerActor(t, h, "guest@example.com", false)
	rec, _ = doJSON(t, h, http.MethodPost, "/api/v1/bookings/whatever/approve", guestToken, nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("guest approve: %d, want 403", rec.Code)
	}

	// Availability is public.
	url := fmt.Sprintf("/api/v1/listings/lst-1/availability?check_in=%s&check_out=%s", futureDate(5), futureDate(7))
	rec, body := doJSON(t, h, http.MethodGet, url, "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("availability: %d %s", rec.Code, rec.Body.String())
	}
	if body["available"].(bool) != true {
		t.Fatal("fresh listing should be available")
	}
}

func TestHTTPErrorMapping(t *testing.T) {
	h := newTestServer(t)
	_, guestToken := registerActor(t, h, "guest@example.com", false)

	// Unknown listing maps to 404.
	rec, _ := doJSON(t, h, http.MethodPost, "/api/v1/bookings", guestToken, map[string]any{
		"listing_id": "missing", "check_in": futureDate(5), "check_out": futureDate(7), "guests": 1, "payment_method": "WALLET",
	}, map[string]string{"Idempotency-Key": "k1"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing listing: %d, want 404", rec.Code)
	}

	// Empty wallet cannot pay: conflict.
	rec, _ = doJSON(t, h, http.MethodPost, "/api/v1/bookings", guestToken, map[string]any{
		"listing_id": "lst-1", "check_in": futureDate(5), "check_out": futureDate(7), "guests": 1, "payment_method": "WALLET",
	}, map[string]string{"Idempotency-Key": "k2"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("insufficient funds: %d, want 409", rec.Code)
	}

	// A payment method the ledger does not know is a plain bad request.
	rec, _ = doJSON(t, h, http.MethodPost, "/api/v1/bookings", guestToken, map[string]any{
		"listing_id": "lst-1", "check_in": futureDate(5), "check_out": futureDate(7), "guests": 1, "payment_method": "GCASH",
	}, map[string]string{"Idempotency-Key": "k3"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown payment method: %d, want 400", rec.Code)
	}
}

func TestCancelBodyHandling(t *testing.T) {
	h := newTestServer(t)
	_, guestToken := registerActor(t, h, "guest@example.com", false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/bkg-x/cancel", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+guestToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed cancel body: %d, want 400", rec.Code)
	}

	// The reason body is optional: with no body the command still
	// dispatches and fails on the unknown booking, not on decoding.
	recEmpty, _ := doJSON(t, h, http.MethodPost, "/api/v1/bookings/bkg-x/cancel", guestToken, nil, nil)
	if recEmpty.Code != http.StatusNotFound {
		t.Fatalf("empty cancel body: %d, want 404 for unknown booking", recEmpty.Code)
	}
}
