package idempotency

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pmongo "github.com/tailor-market/api/internal/platform/mongo"
)

const mongoCollection = "idempotency_keys"

type mongoRecord struct {
	ID          string    `bson:"_id"`
	Fingerprint string    `bson:"fingerprint"`
	Completed   bool      `bson:"completed"`
	Status      int       `bson:"status"`
	ContentType string    `bson:"contentType"`
	Body        []byte    `bson:"body"`
	ExpiresAt   time.Time `bson:"expiresAt"`
}

// MongoStore keeps reservations in the idempotency_keys collection. The unique _id makes the first
// insert win; EnsureIndexes adds a TTL index so expired keys are reclaimed.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore constructs a MongoStore on the application database.
func NewMongoStore(client *pmongo.Client) *MongoStore {
	return &MongoStore{coll: client.Database().Collection(mongoCollection)}
}

// EnsureIndexes creates the TTL index on expiresAt.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return pmongo.WrapError(mongoCollection+".indexes", err)
}

func (s *MongoStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Record, State, error) {
	id := documentID(key)
	fresh := mongoRecord{ID: id, Fingerprint: fingerprint, ExpiresAt: now.Add(ttl)}

	_, err := s.coll.InsertOne(ctx, fresh)
	if err == nil {
		return fresh.toRecord(), StateAcquired, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return Record{}, 0, pmongo.WrapError(mongoCollection+".reserve", err)
	}

	var existing mongoRecord
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&existing); err != nil {
		return Record{}, 0, pmongo.WrapError(mongoCollection+".reserve", err)
	}
	state, replace, err := resolve(existing.toRecord(), fingerprint, now)
	if err != nil || !replace {
		return existing.toRecord(), state, err
	}

	// Swap the expired record only if nobody replaced it first.
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id, "expiresAt": existing.ExpiresAt}, fresh)
	if err != nil {
		return Record{}, 0, pmongo.WrapError(mongoCollection+".reserve", err)
	}
	if res.MatchedCount == 0 {
		return existing.toRecord(), StateInFlight, nil
	}
	return fresh.toRecord(), StateAcquired, nil
}

func (s *MongoStore) Complete(ctx context.Context, key string, record Record) error {
	id := documentID(key)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id}, mongoRecord{
		ID:          id,
		Fingerprint: record.Fingerprint,
		Completed:   true,
		Status:      record.Status,
		ContentType: record.ContentType,
		Body:        record.Body,
		ExpiresAt:   record.ExpiresAt,
	}, options.Replace().SetUpsert(true))
	return pmongo.WrapError(mongoCollection+".complete", err)
}

func (s *MongoStore) Release(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": documentID(key)})
	return pmongo.WrapError(mongoCollection+".release", err)
}

func (r mongoRecord) toRecord() Record {
	return Record{
		Fingerprint: r.Fingerprint,
		Completed:   r.Completed,
		Status:      r.Status,
		ContentType: r.ContentType,
		Body:        r.Body,
		ExpiresAt:   r.ExpiresAt,
	}
}
