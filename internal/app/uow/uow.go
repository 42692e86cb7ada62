package uow

import (
	"context"

	domainbooking "stayledger/internal/domain/booking"
	domaincoupon "stayledger/internal/domain/coupon"
	domainledger "stayledger/internal/domain/ledger"
	domainlisting "stayledger/internal/domain/listing"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Listings() domainlisting.Repository
	Bookings() domainbooking.Repository
	Accounts() domainledger.AccountRepository
	Transactions() domainledger.TransactionRepository
	Coupons() domaincoupon.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
