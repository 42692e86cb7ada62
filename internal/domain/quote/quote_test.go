package quote

import (
	"errors"
	"testing"
	"time"

	"stayledger/internal/domain/coupon"
	"stayledger/internal/domain/listing"
	"stayledger/internal/domain/shared/daterange"
	"stayledger/internal/domain/shared/money"
)

var testNow = time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)

func homeListing(t *testing.T, nightlyCentavos int64) *listing.Listing {
	t.Helper()
	l, err := listing.New(listing.CreateParams{
		ID:            "lst-home",
		Host:          "host-1",
		Title:         "Seafront studio",
		Category:      listing.CategoryHome,
		Price:         money.PHP(nightlyCentavos),
		GuestCapacity: 4,
		Now:           testNow,
	})
	if err != nil {
		t.Fatalf("listing.New: %v", err)
	}
	return l
}

func flatListing(t *testing.T, category listing.Category, priceCentavos int64) *listing.Listing {
	t.Helper()
	l, err := listing.New(listing.CreateParams{
		ID:            "lst-flat",
		Host:          "host-1",
		Title:         "Island hopping tour",
		Category:      category,
		Price:         money.PHP(priceCentavos),
		GuestCapacity: 10,
		Now:           testNow,
	})
	if err != nil {
		t.Fatalf("listing.New: %v", err)
	}
	return l
}

func rangeOf(t *testing.T, fromDay, toDay int) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(
		time.Date(2026, time.March, fromDay, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, toDay, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("daterange.New: %v", err)
	}
	return dr
}

// A two-night home stay at PHP 2,000/night with the default 10% fee
// totals PHP 4,400.
func TestQuoteNightlyNoCoupon(t *testing.T) {
	calc := NewCalculator(10)
	q, err := calc.Quote(homeListing(t, 200000), rangeOf(t, 10, 12), nil, testNow)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Nights != 2 {
		t.Fatalf("nights = %d, want 2", q.Nights)
	}
	if q.Subtotal.Amount != 400000 {
		t.Fatalf("subtotal = %d, want 400000", q.Subtotal.Amount)
	}
	if q.Discount.Amount != 0 {
		t.Fatalf("discount = %d, want 0", q.Discount.Amount)
	}
	if q.ServiceFee.Amount != 40000 {
		t.Fatalf("fee = %d, want 40000", q.ServiceFee.Amount)
	}
	if q.Total.Amount != 440000 {
		t.Fatalf("total = %d, want 440000", q.Total.Amount)
	}
}

// Discount comes off the subtotal before the fee is computed: a 20%
// coupon on PHP 4,000 yields fee 320 and total 3,520.
func TestQuoteDiscountBeforeFee(t *testing.T) {
	calc := NewCalculator(10)
	cp := &coupon.Coupon{ID: "cpn-1", GuestID: "guest-1", Percent: 20}
	q, err := calc.Quote(homeListing(t, 200000), rangeOf(t, 10, 12), cp, testNow)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Discount.Amount != 80000 {
		t.Fatalf("discount = %d, want 80000", q.Discount.Amount)
	}
	if q.ServiceFee.Amount != 32000 {
		t.Fatalf("fee = %d, want 32000 (fee on discounted amount)", q.ServiceFee.Amount)
	}
	if q.Total.Amount != 352000 {
		t.Fatalf("total = %d, want 352000", q.Total.Amount)
	}
	if q.CouponID != "cpn-1" {
		t.Fatalf("coupon id not carried: %q", q.CouponID)
	}
}

// Experiences and services are flat-priced regardless of span length.
func TestQuoteFlatPriced(t *testing.T) {
	calc := NewCalculator(10)
	q, err := calc.Quote(flatListing(t, listing.CategoryExperience, 150000), rangeOf(t, 10, 13), nil, testNow)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Subtotal.Amount != 150000 {
		t.Fatalf("subtotal = %d, want flat 150000", q.Subtotal.Amount)
	}
	if q.Total.Amount != 165000 {
		t.Fatalf("total = %d, want 165000", q.Total.Amount)
	}
}

func TestQuoteLimits(t *testing.T) {
	calc := NewCalculator(10)

	long, err := daterange.New(
		time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := calc.Quote(homeListing(t, 200000), long, nil, testNow); !errors.Is(err, ErrStayTooLong) {
		t.Fatalf("35-night home stay: expected ErrStayTooLong, got %v", err)
	}

	if _, err := calc.Quote(flatListing(t, listing.CategoryService, 150000), rangeOf(t, 1, 10), nil, testNow); !errors.Is(err, ErrSpanTooLong) {
		t.Fatalf("9-day service span: expected ErrSpanTooLong, got %v", err)
	}
}

func TestQuoteRejectsPastCheckIn(t *testing.T) {
	calc := NewCalculator(10)
	past := rangeOf(t, 10, 12)
	later := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)
	if _, err := calc.Quote(homeListing(t, 200000), past, nil, later); !errors.Is(err, ErrCheckInInPast) {
		t.Fatalf("expected ErrCheckInInPast, got %v", err)
	}

	// A check-in later today is still accepted.
	sameDay := rangeOf(t, 1, 3)
	lateToday := time.Date(2026, time.March, 1, 23, 0, 0, 0, time.UTC)
	if _, err := calc.Quote(homeListing(t, 200000), sameDay, nil, lateToday); err != nil {
		t.Fatalf("same-day check-in rejected: %v", err)
	}
}
