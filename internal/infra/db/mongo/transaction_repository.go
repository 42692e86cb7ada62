package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainledger "stayledger/internal/domain/ledger"
	"stayledger/internal/domain/shared/money"
)

// TransactionRepository is append-only: rows are inserted, never updated.
type TransactionRepository struct {
	col *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	col := db.Collection("ledger_transactions")
	for _, idx := range []mongo.IndexModel{
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "booking_id", Value: 1}}},
	} {
		_, _ = col.Indexes().CreateOne(context.Background(), idx)
	}
	return &TransactionRepository{col: col}
}

func (r *TransactionRepository) Append(ctx context.Context, tx domainledger.Transaction) error {
	_, err := r.col.InsertOne(ctx, newTransactionDocument(tx))
	return err
}

func (r *TransactionRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]domainledger.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	return r.list(ctx, bson.M{"actor_id": actorID}, opts)
}

func (r *TransactionRepository) ListByBooking(ctx context.Context, bookingID string) ([]domainledger.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.list(ctx, bson.M{"booking_id": bookingID}, opts)
}

func (r *TransactionRepository) list(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domainledger.Transaction, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]domainledger.Transaction, 0)
	for cur.Next(ctx) {
		var doc transactionDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toRow())
	}
	return out, cur.Err()
}

type transactionDocument struct {
	ID            string `bson:"_id"`
	ActorID       string `bson:"actor_id"`
	Type          string `bson:"type"`
	Amount        int64  `bson:"amount"`
	BalanceBefore int64  `bson:"balance_before"`
	BalanceAfter  int64  `bson:"balance_after"`
	Currency      string `bson:"currency"`
	Status        string `bson:"status"`
	Description   string `bson:"description"`
	BookingID     string `bson:"booking_id,omitempty"`
	CreatedAt     int64  `bson:"created_at"`
}

func newTransactionDocument(tx domainledger.Transaction) transactionDocument {
	return transactionDocument{
		ID:            string(tx.ID),
		ActorID:       tx.ActorID,
		Type:          string(tx.Type),
		Amount:        tx.Amount.Amount,
		BalanceBefore: tx.BalanceBefore.Amount,
		BalanceAfter:  tx.BalanceAfter.Amount,
		Currency:      tx.Amount.Currency,
		Status:        string(tx.Status),
		Description:   tx.Description,
		BookingID:     tx.BookingID,
		CreatedAt:     tx.CreatedAt.UnixMilli(),
	}
}

func (d transactionDocument) toRow() domainledger.Transaction {
	return domainledger.Transaction{
		ID:            domainledger.TransactionID(d.ID),
		ActorID:       d.ActorID,
		Type:          domainledger.TransactionType(d.Type),
		Amount:        money.Money{Amount: d.Amount, Currency: d.Currency},
		BalanceBefore: money.Money{Amount: d.BalanceBefore, Currency: d.Currency},
		BalanceAfter:  money.Money{Amount: d.BalanceAfter, Currency: d.Currency},
		Status:        domainledger.TransactionStatus(d.Status),
		Description:   d.Description,
		BookingID:     d.BookingID,
		CreatedAt:     timestampToTime(d.CreatedAt),
	}
}
