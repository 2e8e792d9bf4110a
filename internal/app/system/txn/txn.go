// Package txn runs multi-document writes inside a MongoDB transaction when
// the deployment supports one, and falls back to running them directly on a
// standalone server.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Runner executes a function inside a transaction.
type Runner struct {
	client      *mongo.Client
	log         *zap.Logger
	unsupported atomic.Bool
}

// New returns a Runner bound to client. A nil client yields a Runner that
// always runs fn directly, which is what unit tests want.
func New(client *mongo.Client, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{client: client, log: logger}
}

// Run calls fn inside a transaction. The context passed to fn carries the
// session; every write fn makes must use it. If the server rejects
// transactions, Run remembers that and calls fn without one from then on.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.client == nil || r.unsupported.Load() {
		return fn(ctx)
	}

	sess, err := r.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			r.markUnsupported(err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		r.markUnsupported(err)
		return fn(ctx)
	}
	return err
}

// Supported reports whether the last attempt ran inside a transaction.
func (r *Runner) Supported() bool {
	return r.client != nil && !r.unsupported.Load()
}

func (r *Runner) markUnsupported(err error) {
	if r.unsupported.CompareAndSwap(false, true) {
		r.log.Warn("transactions not supported by this deployment; writes will run without one",
			zap.Error(err))
	}
}

// InTransaction reports whether ctx carries a transaction session.
func InTransaction(ctx context.Context) bool {
	sess := mongo.SessionFromContext(ctx)
	return sess != nil
}

// IsNotSupported reports whether err means the server cannot run
// transactions or sessions (standalone mongod, some DocumentDB versions).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation: transaction numbers need a replica set
			51,  // legacy illegal operation
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	s := strings.ToLower(err.Error())
	has := func(sub string) bool { return strings.Contains(s, sub) }

	if has("transaction") && (has("replica set") || has("session") || has("illegal operation")) {
		return true
	}
	return has("session") && has("not supported")
}
