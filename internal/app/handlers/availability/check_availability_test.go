package availability

import (
	"context"
	"testing"
	"time"

	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
	"stayledger/internal/domain/quote"
	"stayledger/internal/domain/shared/daterange"
	"stayledger/internal/domain/shared/money"
	"stayledger/internal/infra/storage/memory"
)

func day(t *testing.T, d int) time.Time {
	t.Helper()
	return time.Date(2026, time.April, d, 0, 0, 0, 0, time.UTC)
}

func seedBooking(t *testing.T, factory *memory.Factory, id string, from, to int, status domainbooking.Status) {
	t.Helper()
	ctx := context.Background()
	dr, err := daterange.New(day(t, from), day(t, to))
	if err != nil {
		t.Fatal(err)
	}
	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:            domainbooking.BookingID(id),
		ListingID:     "lst-1",
		GuestID:       "guest-1",
		HostID:        "host-1",
		Range:         dr,
		Guests:        2,
		Quote:         quote.Quote{Total: money.PHP(440000)},
		PaymentMethod: domainbooking.PaymentWallet,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	switch status {
	case domainbooking.StatusUpcoming:
		if err := b.Approve(time.Now()); err != nil {
			t.Fatal(err)
		}
	case domainbooking.StatusDeclined:
		if err := b.Decline("", time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	b.ClearEvents()
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		t.Fatal(err)
	}
}

func TestCheckAvailability(t *testing.T) {
	factory := memory.NewFactory()
	handler := &CheckAvailabilityHandler{UoWFactory: factory}
	ctx := context.Background()

	seedBooking(t, factory, "bkg-1", 10, 13, domainbooking.StatusUpcoming)

	cases := []struct {
		name      string
		from, to  int
		available bool
	}{
		{"overlapping", 12, 14, false},
		{"contained", 11, 12, false},
		{"identical", 10, 13, false},
		{"before, abutting", 8, 10, true},
		{"after, abutting", 13, 15, true},
		{"disjoint", 20, 22, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := handler.Handle(ctx, CheckAvailabilityQuery{
				ListingID: "lst-1",
				CheckIn:   day(t, tc.from),
				CheckOut:  day(t, tc.to),
			})
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if res.Available != tc.available {
				t.Fatalf("available = %v, want %v", res.Available, tc.available)
			}
		})
	}
}

// Declined bookings do not hold inventory against the listing.
func TestCheckAvailabilityIgnoresReleasedBookings(t *testing.T) {
	factory := memory.NewFactory()
	handler := &CheckAvailabilityHandler{UoWFactory: factory}

	seedBooking(t, factory, "bkg-1", 10, 13, domainbooking.StatusDeclined)

	res, err := handler.Handle(context.Background(), CheckAvailabilityQuery{
		ListingID: "lst-1",
		CheckIn:   day(t, 10),
		CheckOut:  day(t, 13),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Available {
		t.Fatal("declined booking still blocks its dates")
	}
}

func TestCheckAvailabilityRejectsInvertedRange(t *testing.T) {
	handler := &CheckAvailabilityHandler{UoWFactory: memory.NewFactory()}
	if _, err := handler.Handle(context.Background(), CheckAvailabilityQuery{
		ListingID: "lst-1",
		CheckIn:   day(t, 13),
		CheckOut:  day(t, 10),
	}); err == nil {
		t.Fatal("inverted range accepted")
	}
}
