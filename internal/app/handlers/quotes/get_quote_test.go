package quotes

import (
	"context"
	"errors"
	"testing"
	"time"

	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
	domaincoupon "stayledger/internal/domain/coupon"
	domainlisting "stayledger/internal/domain/listing"
	domainquote "stayledger/internal/domain/quote"
	"stayledger/internal/domain/shared/daterange"
	"stayledger/internal/domain/shared/money"
	"stayledger/internal/infra/storage/memory"
)

func futureDay(n int) time.Time {
	d := time.Now().UTC().AddDate(0, 0, n)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func newQuoteEnv(t *testing.T) (*memory.Factory, *GetQuoteHandler) {
	t.Helper()
	factory := memory.NewFactory()
	l, err := domainlisting.New(domainlisting.CreateParams{
		ID:            "lst-1",
		Host:          "host-1",
		Title:         "Lakeside villa",
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
	return factory, &GetQuoteHandler{UoWFactory: factory, Calculator: domainquote.NewCalculator(10)}
}

func TestGetQuote(t *testing.T) {
	_, handler := newQuoteEnv(t)

	res, err := handler.Handle(context.Background(), GetQuoteQuery{
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   futureDay(10),
		CheckOut:  futureDay(12),
		Guests:    2,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Subtotal != 400000 || res.ServiceFee != 40000 || res.Total != 440000 {
		t.Fatalf("quote = %d/%d/%d, want 400000/40000/440000", res.Subtotal, res.ServiceFee, res.Total)
	}
	if res.Nights != 2 || res.Currency != "PHP" {
		t.Fatalf("nights/currency = %d/%s, want 2/PHP", res.Nights, res.Currency)
	}
}

func TestGetQuoteCapacity(t *testing.T) {
	_, handler := newQuoteEnv(t)
	_, err := handler.Handle(context.Background(), GetQuoteQuery{
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   futureDay(10),
		CheckOut:  futureDay(12),
		Guests:    9,
	})
	if !errors.Is(err, domainlisting.ErrCapacityExceeded) {
		t.Fatalf("oversized party: %v", err)
	}
}

// Quoting already-reserved dates fails so the conflict surfaces before
// any payment is attempted.
func TestGetQuoteUnavailableDates(t *testing.T) {
	factory, handler := newQuoteEnv(t)
	ctx := context.Background()

	dr, err := daterange.New(futureDay(10), futureDay(13))
	if err != nil {
		t.Fatal(err)
	}
	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:            "bkg-1",
		ListingID:     "lst-1",
		GuestID:       "guest-2",
		HostID:        "host-1",
		Range:         dr,
		Guests:        2,
		PaymentMethod: domainbooking.PaymentWallet,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	b.ClearEvents()
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		t.Fatal(err)
	}

	_, err = handler.Handle(ctx, GetQuoteQuery{
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   futureDay(12),
		CheckOut:  futureDay(14),
		Guests:    2,
	})
	if !errors.Is(err, domainbooking.ErrDatesUnavailable) {
		t.Fatalf("reserved dates: %v", err)
	}
}

func TestGetQuoteForeignCoupon(t *testing.T) {
	factory, handler := newQuoteEnv(t)
	ctx := context.Background()

	cpn, err := domaincoupon.New("cpn-1", "guest-2", 20,
		time.Now().UTC().Add(-time.Hour), time.Now().UTC().AddDate(0, 1, 0), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := factory.Coupons().Save(ctx, cpn); err != nil {
		t.Fatal(err)
	}

	_, err = handler.Handle(ctx, GetQuoteQuery{
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   futureDay(10),
		CheckOut:  futureDay(12),
		Guests:    2,
		CouponID:  "cpn-1",
	})
	if !errors.Is(err, domaincoupon.ErrCouponNotOwned) {
		t.Fatalf("foreign coupon: %v", err)
	}
}
