package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// BackendName identifies mongo transaction handles.
const BackendName = "mongo"

// Tx carries the session bound to one multi-document transaction.
type Tx struct {
	sc mongo.SessionContext
}

// Backend implements repositories.Tx.
func (t *Tx) Backend() string { return BackendName }

// Context returns ctx bound to the transaction session, or ctx itself when t is nil.
func (t *Tx) Context(ctx context.Context) context.Context {
	if t == nil || t.sc == nil {
		return ctx
	}
	return t.sc
}
