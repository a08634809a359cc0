package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type contextKey string

const txKey contextKey = "sqlx_tx"

// TxManager runs functions inside a database transaction injected via
// context. Detail mutations, the stage update, and the ledger append of a
// workflow step commit or roll back as one unit.
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager constructs the manager.
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTx begins a transaction, makes it visible to repositories through the
// context, and commits when fn returns nil.
func (m *TxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txCtx := context.WithValue(ctx, txKey, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ext returns the transaction bound to the context if present, otherwise the
// root database handle.
func ext(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey).(*sqlx.Tx); ok {
		return tx
	}
	return db
}
