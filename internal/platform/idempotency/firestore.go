package idempotency

import (
	"context"
	"errors"
	"time"

	pfirestore "github.com/tailor-market/api/internal/platform/firestore"
)

const firestoreCollection = "idempotency_keys"

type firestoreRecord struct {
	Fingerprint string    `firestore:"fingerprint"`
	Completed   bool      `firestore:"completed"`
	Status      int       `firestore:"status"`
	ContentType string    `firestore:"contentType"`
	Body        []byte    `firestore:"body"`
	ExpiresAt   time.Time `firestore:"expiresAt"`
}

// FirestoreStore keeps reservations in the idempotency_keys collection. A Firestore TTL policy on
// expiresAt reclaims old documents.
type FirestoreStore struct {
	provider *pfirestore.Provider
	docs     *pfirestore.BaseRepository[firestoreRecord]
}

// NewFirestoreStore constructs a FirestoreStore on the shared provider.
func NewFirestoreStore(provider *pfirestore.Provider) *FirestoreStore {
	return &FirestoreStore{
		provider: provider,
		docs:     pfirestore.NewBaseRepository[firestoreRecord](provider, firestoreCollection),
	}
}

func (s *FirestoreStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Record, State, error) {
	var (
		out   Record
		state State
	)
	id := documentID(key)
	err := s.provider.RunTransaction(ctx, func(ctx context.Context, tx *pfirestore.Tx) error {
		existing, err := s.docs.Get(ctx, tx, id)
		switch {
		case err == nil:
			var replace bool
			state, replace, err = resolve(existing.toRecord(), fingerprint, now)
			if err != nil {
				return err
			}
			if !replace {
				out = existing.toRecord()
				return nil
			}
		case !isNotFound(err):
			return err
		}
		fresh := firestoreRecord{Fingerprint: fingerprint, ExpiresAt: now.Add(ttl)}
		state, out = StateAcquired, fresh.toRecord()
		return s.docs.Set(ctx, tx, id, fresh)
	})
	return out, state, err
}

func (s *FirestoreStore) Complete(ctx context.Context, key string, record Record) error {
	return s.docs.Set(ctx, nil, documentID(key), firestoreRecord{
		Fingerprint: record.Fingerprint,
		Completed:   true,
		Status:      record.Status,
		ContentType: record.ContentType,
		Body:        record.Body,
		ExpiresAt:   record.ExpiresAt,
	})
}

func (s *FirestoreStore) Release(ctx context.Context, key string) error {
	return s.docs.Delete(ctx, nil, documentID(key))
}

func (r firestoreRecord) toRecord() Record {
	return Record{
		Fingerprint: r.Fingerprint,
		Completed:   r.Completed,
		Status:      r.Status,
		ContentType: r.ContentType,
		Body:        r.Body,
		ExpiresAt:   r.ExpiresAt,
	}
}

func isNotFound(err error) bool {
	var classified interface{ IsNotFound() bool }
	return errors.As(err, &classified) && classified.IsNotFound()
}
