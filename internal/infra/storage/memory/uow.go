package memory

import (
	"context"

	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
	domaincoupon "stayledger/internal/domain/coupon"
	domainledger "stayledger/internal/domain/ledger"
	domainlisting "stayledger/internal/domain/listing"
)

// Factory hands out units of work over a single shared set of in-memory
// repositories. There is no real transaction: writes are visible
// immediately and Rollback is a no-op, which is acceptable for dev mode
// and tests where a failed command aborts the whole process anyway.
type Factory struct {
	listings     *ListingRepository
	bookings     *BookingRepository
	accounts     *AccountRepository
	transactions *TransactionRepository
	coupons      *CouponRepository
}

func NewFactory() *Factory {
	return &Factory{
		listings:     NewListingRepository(),
		bookings:     NewBookingRepository(),
		accounts:     NewAccountRepository(),
		transactions: NewTransactionRepository(),
		coupons:      NewCouponRepository(),
	}
}

func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	return &unit{factory: f}, nil
}

// Listings exposes the shared listing repository for fixture loading.
func (f *Factory) Listings() domainlisting.Repository { return f.listings }

// Accounts exposes the shared account repository for seeding.
func (f *Factory) Accounts() domainledger.AccountRepository { return f.accounts }

// Coupons exposes the shared coupon repository for fixture loading.
func (f *Factory) Coupons() domaincoupon.Repository { return f.coupons }

type unit struct {
	factory *Factory
}

func (u *unit) Listings() domainlisting.Repository               { return u.factory.listings }
func (u *unit) Bookings() domainbooking.Repository               { return u.factory.bookings }
func (u *unit) Accounts() domainledger.AccountRepository         { return u.factory.accounts }
func (u *unit) Transactions() domainledger.TransactionRepository { return u.factory.transactions }
func (u *unit) Coupons() domaincoupon.Repository                 { return u.factory.coupons }

func (u *unit) Commit(ctx context.Context) error   { return nil }
func (u *unit) Rollback(ctx context.Context) error { return nil }
