package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// TransactionManager manages database transactions via context injection.
// Every mutating approval operation runs inside RunInTx so the open-approval
// check, the versioned state write, and the timeline append commit or roll
// back as one unit.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}

// LockQuotation takes a transaction-scoped advisory lock keyed on the
// quotation id. The lock is released at commit/rollback. Both the
// approval request path and the quotation edit path take it, which
// closes the window where an edit is validated as unlocked while a
// concurrent request is opening the lock, and serializes concurrent
// requests so only one open approval can exist per quotation.
func LockQuotation(ctx context.Context, db *gorm.DB, quotationID uuid.UUID) error {
	return GetDB(ctx, db).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "quotation:"+quotationID.String()).Error
}
