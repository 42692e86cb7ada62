package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainledger "stayledger/internal/domain/ledger"
	"stayledger/internal/domain/shared/money"
)

type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection("agg_account")}
}

func (r *AccountRepository) ByActor(ctx context.Context, actorID string) (*domainledger.Account, error) {
	var doc accountDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": actorID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainledger.ErrAccountNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save compare-and-swaps on the stored version. A lost race surfaces as
// ErrConcurrentUpdate so the settlement engine can re-read and retry.
func (r *AccountRepository) Save(ctx context.Context, a *domainledger.Account) error {
	doc := newAccountDocument(a)
	filter := bson.M{"_id": doc.ID, "version": a.Version}
	doc.Version = a.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainledger.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainledger.ErrConcurrentUpdate
	}
	a.Version = doc.Version
	return nil
}

type accountDocument struct {
	ID        string `bson:"_id"`
	Role      string `bson:"role"`
	Balance   int64  `bson:"balance"`
	Currency  string `bson:"currency"`
	Version   int64  `bson:"version"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func newAccountDocument(a *domainledger.Account) accountDocument {
	return accountDocument{
		ID:        a.ActorID,
		Role:      string(a.Role),
		Balance:   a.Balance.Amount,
		Currency:  a.Balance.Currency,
		Version:   a.Version,
		CreatedAt: a.CreatedAt.UnixMilli(),
		UpdatedAt: a.UpdatedAt.UnixMilli(),
	}
}

func (d accountDocument) toAggregate() *domainledger.Account {
	return &domainledger.Account{
		ActorID:   d.ID,
		Role:      domainledger.Role(d.Role),
		Balance:   money.Money{Amount: d.Balance, Currency: d.Currency},
		Version:   d.Version,
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
}
