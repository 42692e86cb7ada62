package money

import (
	"errors"
	"testing"
)

func TestArithmetic(t *testing.T) {
	a := PHP(1000)
	b := PHP(250)

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Amount != 1250 {
		t.Fatalf("expected 1250, got %d", sum.Amount)
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if diff.Amount != 750 {
		t.Fatalf("expected 750, got %d", diff.Amount)
	}

	if a.Multiply(4).Amount != 4000 {
		t.Fatalf("expected 4000, got %d", a.Multiply(4).Amount)
	}
	if a.Neg().Amount != -1000 {
		t.Fatalf("expected -1000, got %d", a.Neg().Amount)
	}
}

func TestCurrencyMismatch(t *testing.T) {
	usd := Must(100, "usd")
	if usd.Currency != "USD" {
		t.Fatalf("expected normalized currency, got %q", usd.Currency)
	}
	if _, err := PHP(100).Add(usd); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
	if _, err := New(5, "PESO"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestPercentOfTruncates(t *testing.T) {
	cases := []struct {
		amount  int64
		percent int
		want    int64
	}{
		{440000, 10, 44000},
		{199, 50, 99}, // truncates, remainder stays with the counterparty
		{100, 0, 0},
		{100, -5, 0},
		{220000, 50, 110000},
	}
	for _, tc := range cases {
		got := PHP(tc.amount).PercentOf(tc.percent)
		if got.Amount != tc.want {
			t.Errorf("PercentOf(%d, %d%%) = %d, want %d", tc.amount, tc.percent, got.Amount, tc.want)
		}
		if got.Currency != DefaultCurrency {
			t.Errorf("PercentOf dropped currency: %q", got.Currency)
		}
	}
}

func TestString(t *testing.T) {
	if s := PHP(440000).String(); s != "PHP 4400.00" {
		t.Fatalf("got %q", s)
	}
	if s := PHP(-105).String(); s != "PHP -1.05" {
		t.Fatalf("got %q", s)
	}
}
