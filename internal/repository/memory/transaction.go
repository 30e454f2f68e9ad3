package memory

import (
	"context"

	"portal/internal/domain/repositories"
)

type txMarker struct{}

// TransactionManager runs functions atomically against a Store by taking a
// snapshot up front and restoring it when fn fails.
type TransactionManager struct {
	store *Store
}

// NewTransactionManager creates a transaction manager for store
func NewTransactionManager(store *Store) repositories.TransactionManager {
	return &TransactionManager{store: store}
}

// ExecTx executes fn atomically. Nested calls join the outer transaction.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}

	tm.store.txMu.Lock()
	defer tm.store.txMu.Unlock()

	snap := tm.store.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		tm.store.restore(snap)
		return err
	}
	return nil
}
