package transaction

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Transactor runs fn inside one unit of work. Nested calls join the
// transaction already carried by ctx instead of opening a new one.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

type hooksKey struct{}

type commitHooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

type GormTransactor struct {
	db *gorm.DB
}

func NewGormTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db}
}

func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return RunWithCommitHooks(ctx, func(ctx context.Context) error {
		return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		})
	})
}

// RunWithCommitHooks opens a hook scope around an outermost transaction.
// Hooks registered through AfterCommit run, in order, only when fn succeeds.
func RunWithCommitHooks(ctx context.Context, fn func(ctx context.Context) error) error {
	hooks := &commitHooks{}
	if err := fn(context.WithValue(ctx, hooksKey{}, hooks)); err != nil {
		return err
	}
	hooks.mu.Lock()
	fns := hooks.fns
	hooks.fns = nil
	hooks.mu.Unlock()
	for _, hook := range fns {
		hook(ctx)
	}
	return nil
}

// AfterCommit defers fn until the transaction carried by ctx commits, and
// drops it on rollback. Without a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if hooks, ok := ctx.Value(hooksKey{}).(*commitHooks); ok {
		hooks.mu.Lock()
		hooks.fns = append(hooks.fns, fn)
		hooks.mu.Unlock()
		return
	}
	fn(ctx)
}

// Conn returns the transaction bound to ctx, or db scoped to ctx when there is none.
// Repositories call it on every query so they take part in the caller's transaction.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
