package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/internal/repository"
)

type bookStatusWriter interface {
	UpdateStatus(ctx context.Context, q repository.DBTX, id string, status models.BookStatus) error
}

// ConsistencyEnforcer owns the transaction boundary of every ledger mutation and applies the derived
// book status and history writes on the same transaction handle.
type ConsistencyEnforcer struct {
	tx      txRunner
	books   bookStatusWriter
	history *HistoryRecorder
	logger  *zap.Logger
}

// NewConsistencyEnforcer constructs a ConsistencyEnforcer.
func NewConsistencyEnforcer(tx txRunner, books bookStatusWriter, history *HistoryRecorder, logger *zap.Logger) *ConsistencyEnforcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsistencyEnforcer{tx: tx, books: books, history: history, logger: logger}
}

// Atomically runs fn in one transaction. Typed errors pass through; anything else becomes a StorageFailure.
func (e *ConsistencyEnforcer) Atomically(ctx context.Context, fn func(ctx context.Context, q repository.DBTX) error) error {
	err := e.tx.RunInTx(ctx, fn)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		e.logger.Warn("transaction aborted", zap.Error(ctx.Err()))
	}
	return storageErr(err, "")
}

// LoanOpened marks the book LOANED and appends the open history record.
func (e *ConsistencyEnforcer) LoanOpened(ctx context.Context, q repository.DBTX, loan *models.Loan) error {
	if err := e.books.UpdateStatus(ctx, q, loan.BookID, models.BookStatusLoaned); err != nil {
		return err
	}
	_, err := e.history.RecordLoanOpened(ctx, q, loan)
	return err
}

// LoanClosed marks the book AVAILABLE and closes the matching history record.
func (e *ConsistencyEnforcer) LoanClosed(ctx context.Context, q repository.DBTX, loan *models.Loan) error {
	if err := e.books.UpdateStatus(ctx, q, loan.BookID, models.BookStatusAvailable); err != nil {
		return err
	}
	_, err := e.history.RecordLoanClosed(ctx, q, loan)
	return err
}
