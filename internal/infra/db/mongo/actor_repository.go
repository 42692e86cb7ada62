package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainactor "stayledger/internal/domain/actor"
	domainledger "stayledger/internal/domain/ledger"
)

type ActorRepository struct {
	col *mongo.Collection
}

func NewActorRepository(db *mongo.Database) *ActorRepository {
	col := db.Collection("agg_actor")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &ActorRepository{col: col}
}

func (r *ActorRepository) ByID(ctx context.Context, id domainactor.ActorID) (*domainactor.Actor, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *ActorRepository) ByEmail(ctx context.Context, email string) (*domainactor.Actor, error) {
	return r.findOne(ctx, bson.M{"email": domainactor.NormalizeEmail(email)})
}

func (r *ActorRepository) findOne(ctx context.Context, filter bson.M) (*domainactor.Actor, error) {
	var doc actorDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainactor.ErrActorNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ActorRepository) Save(ctx context.Context, a *domainactor.Actor) error {
	doc := newActorDocument(a)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return domainactor.ErrEmailTaken
	}
	return err
}

type actorDocument struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	Name         string `bson:"name"`
	Role         string `bson:"role"`
	PasswordHash string `bson:"password_hash"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
}

func newActorDocument(a *domainactor.Actor) actorDocument {
	return actorDocument{
		ID:           string(a.ID),
		Email:        domainactor.NormalizeEmail(a.Email),
		Name:         a.Name,
		Role:         string(a.Role),
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt.UnixMilli(),
		UpdatedAt:    a.UpdatedAt.UnixMilli(),
	}
}

func (d actorDocument) toAggregate() *domainactor.Actor {
	return &domainactor.Actor{
		ID:           domainactor.ActorID(d.ID),
		Email:        d.Email,
		Name:         d.Name,
		Role:         domainledger.Role(d.Role),
		PasswordHash: d.PasswordHash,
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
	}
}

// SessionStore keeps bearer sessions with a TTL index so Mongo reaps
// expired tokens on its own.
type SessionStore struct {
	col *mongo.Collection
}

func NewSessionStore(db *mongo.Database) *SessionStore {
	col := db.Collection("app_sessions")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &SessionStore{col: col}
}

func (s *SessionStore) Put(ctx context.Context, session domainactor.Session) error {
	doc := bson.M{
		"_id":        session.Token,
		"actor_id":   string(session.ActorID),
		"created_at": session.CreatedAt,
		"expires_at": session.ExpiresAt,
	}
	_, err := s.col.UpdateByID(ctx, session.Token, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

func (s *SessionStore) Get(ctx context.Context, token string) (domainactor.Session, error) {
	var doc struct {
		Token     string    `bson:"_id"`
		ActorID   string    `bson:"actor_id"`
		CreatedAt time.Time `bson:"created_at"`
		ExpiresAt time.Time `bson:"expires_at"`
	}
	if err := s.col.FindOne(ctx, bson.M{"_id": token}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainactor.Session{}, domainactor.ErrSessionNotFound
		}
		return domainactor.Session{}, err
	}
	return domainactor.Session{
		Token:     doc.Token,
		ActorID:   domainactor.ActorID(doc.ActorID),
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
	}, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": token})
	return err
}
