package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
)

const (
	defaultTxAttempts = 5
	defaultTxTimeout  = 15 * time.Second
)

// BackendName identifies Firestore transaction handles.
const BackendName = "firestore"

// TxFunc is executed within a staged Firestore transaction.
type TxFunc func(ctx context.Context, tx *Tx) error

// TxOption customises transaction behaviour.
type TxOption func(*txConfig)

type txConfig struct {
	attempts int
	timeout  time.Duration
}

// WithTxAttempts overrides the retry attempts for a transaction.
func WithTxAttempts(attempts int) TxOption {
	return func(cfg *txConfig) {
		if attempts > 0 {
			cfg.attempts = attempts
		}
	}
}

// WithTxTimeout sets a timeout for the transaction context.
func WithTxTimeout(timeout time.Duration) TxOption {
	return func(cfg *txConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

type writeKind int

const (
	writeCreate writeKind = iota + 1
	writeSet
	writeDelete
)

type stagedWrite struct {
	kind writeKind
	ref  *firestore.DocumentRef
	data any
	opts []firestore.SetOption
}

// Tx buffers writes until the callback succeeds so callers may interleave reads and writes.
// Firestore requires every read to precede the first write, which a multi-line checkout cannot
// guarantee on its own. Reads of a document staged in this Tx observe the staged value.
type Tx struct {
	tx     *firestore.Transaction
	writes map[string]*stagedWrite
	order  []string
}

func newTx(tx *firestore.Transaction) *Tx {
	return &Tx{tx: tx, writes: make(map[string]*stagedWrite)}
}

// Backend implements repositories.Tx.
func (t *Tx) Backend() string { return BackendName }

// Create stages a document creation. The commit fails with a conflict when the document exists.
func (t *Tx) Create(ref *firestore.DocumentRef, data any) {
	if existing, ok := t.writes[ref.Path]; ok {
		if existing.kind == writeDelete {
			existing.kind = writeSet
			existing.opts = nil
		}
		existing.data = data
		return
	}
	t.stage(&stagedWrite{kind: writeCreate, ref: ref, data: data})
}

// Set stages a document write. With a merge option only the listed fields are written at commit,
// while reads in this Tx still observe data as a whole.
func (t *Tx) Set(ref *firestore.DocumentRef, data any, opts ...firestore.SetOption) {
	if existing, ok := t.writes[ref.Path]; ok {
		if existing.kind == writeDelete {
			existing.kind = writeSet
		}
		existing.data = data
		if existing.kind == writeSet {
			existing.opts = opts
		}
		return
	}
	t.stage(&stagedWrite{kind: writeSet, ref: ref, data: data, opts: opts})
}

// Delete stages a document removal.
func (t *Tx) Delete(ref *firestore.DocumentRef) {
	if existing, ok := t.writes[ref.Path]; ok {
		if existing.kind == writeCreate {
			delete(t.writes, ref.Path)
			t.order = removeKey(t.order, ref.Path)
			return
		}
		existing.kind = writeDelete
		existing.data = nil
		return
	}
	t.stage(&stagedWrite{kind: writeDelete, ref: ref})
}

// Transaction exposes the underlying Firestore transaction for queries.
func (t *Tx) Transaction() *firestore.Transaction { return t.tx }

func (t *Tx) stage(w *stagedWrite) {
	t.writes[w.ref.Path] = w
	t.order = append(t.order, w.ref.Path)
}

func (t *Tx) flush() error {
	for _, key := range t.order {
		w := t.writes[key]
		var err error
		switch w.kind {
		case writeCreate:
			err = t.tx.Create(w.ref, w.data)
		case writeSet:
			err = t.tx.Set(w.ref, w.data, w.opts...)
		case writeDelete:
			err = t.tx.Delete(w.ref)
		}
		if err != nil {
			return WrapError("transaction.flush", err)
		}
	}
	return nil
}

// TxGet reads ref inside tx and decodes it into T. Staged writes win over the stored document;
// a staged delete or a missing document yields a not-found error.
func TxGet[T any](tx *Tx, ref *firestore.DocumentRef) (T, error) {
	var zero T
	if tx == nil {
		return zero, WrapError("transaction.get", errors.New("firestore: transaction is nil"))
	}
	if w, ok := tx.writes[ref.Path]; ok {
		if w.kind == writeDelete {
			return zero, NotFound("transaction.get", ref.ID)
		}
		value, ok := w.data.(T)
		if !ok {
			return zero, fmt.Errorf("firestore: staged document %s has type %T", ref.Path, w.data)
		}
		return value, nil
	}

	snap, err := tx.tx.Get(ref)
	if err != nil {
		return zero, WrapError("transaction.get", err)
	}
	var out T
	if err := snap.DataTo(&out); err != nil {
		return zero, fmt.Errorf("firestore: decode %s: %w", ref.Path, err)
	}
	return out, nil
}

// RunTransaction executes fn within a transaction on the provided client. Staged writes are
// flushed only when fn returns nil; Firestore may invoke fn again on contention.
func RunTransaction(ctx context.Context, client *firestore.Client, fn TxFunc, opts ...TxOption) error {
	if client == nil {
		return WrapError("transaction", errors.New("firestore: client is nil"))
	}
	if fn == nil {
		return WrapError("transaction", errors.New("firestore: transaction function is nil"))
	}

	cfg := txConfig{attempts: defaultTxAttempts, timeout: defaultTxTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	txnCtx := ctx
	if cfg.timeout > 0 {
		deadline, hasDeadline := ctx.Deadline()
		if !hasDeadline || time.Until(deadline) > cfg.timeout {
			var cancel context.CancelFunc
			txnCtx, cancel = context.WithTimeout(ctx, cfg.timeout)
			defer cancel()
		}
	}

	var fnErr error
	err := client.RunTransaction(txnCtx, func(ctx context.Context, raw *firestore.Transaction) error {
		tx := newTx(raw)
		if fnErr = fn(ctx, tx); fnErr != nil {
			return fnErr
		}
		return tx.flush()
	}, firestore.MaxAttempts(cfg.attempts))

	// Errors produced by fn keep their identity; only backend failures are classified.
	if err != nil && fnErr != nil && errors.Is(err, fnErr) {
		return fnErr
	}
	return WrapError("transaction", err)
}

func removeKey(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}
