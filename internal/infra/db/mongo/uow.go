package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
	domaincoupon "stayledger/internal/domain/coupon"
	domainledger "stayledger/internal/domain/ledger"
	domainlisting "stayledger/internal/domain/listing"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	ListingsRepo     domainlisting.Repository
	BookingsRepo     domainbooking.Repository
	AccountsRepo     domainledger.AccountRepository
	TransactionsRepo domainledger.TransactionRepository
	CouponsRepo      domaincoupon.Repository
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:           f.DB,
		session:      session,
		listings:     f.ListingsRepo,
		bookings:     f.BookingsRepo,
		accounts:     f.AccountsRepo,
		transactions: f.TransactionsRepo,
		coupons:      f.CouponsRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

	listings     domainlisting.Repository
	bookings     domainbooking.Repository
	accounts     domainledger.AccountRepository
	transactions domainledger.TransactionRepository
	coupons      domaincoupon.Repository
}

func (u *Unit) Listings() domainlisting.Repository               { return u.listings }
func (u *Unit) Bookings() domainbooking.Repository               { return u.bookings }
func (u *Unit) Accounts() domainledger.AccountRepository         { return u.accounts }
func (u *Unit) Transactions() domainledger.TransactionRepository { return u.transactions }
func (u *Unit) Coupons() domaincoupon.Repository                 { return u.coupons }

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures the Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
