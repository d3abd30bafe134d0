package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/internal/repository"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

type historyStore interface {
	Insert(ctx context.Context, q repository.DBTX, rec *models.HistoricalRecord) error
	ListOpenForUpdate(ctx context.Context, q repository.DBTX, studentID, bookID string) ([]models.HistoricalRecord, error)
	SetReturnDate(ctx context.Context, q repository.DBTX, id string, returnDate time.Time) error
	ListByStudent(ctx context.Context, studentID string) ([]models.HistoricalRecord, error)
	ListByBook(ctx context.Context, bookID string) ([]models.HistoricalRecord, error)
}

// HistoryRecorder maintains the append-only loan history. Writes only happen inside a ledger transaction.
type HistoryRecorder struct {
	repo   historyStore
	ids    IDGenerator
	logger *zap.Logger
}

// NewHistoryRecorder constructs a HistoryRecorder. History ids default to ULIDs.
func NewHistoryRecorder(repo historyStore, ids IDGenerator, logger *zap.Logger) *HistoryRecorder {
	if ids == nil {
		ids = ULIDGenerator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryRecorder{repo: repo, ids: ids, logger: logger}
}

// RecordLoanOpened appends the open record for a freshly created loan.
func (h *HistoryRecorder) RecordLoanOpened(ctx context.Context, q repository.DBTX, loan *models.Loan) (*models.HistoricalRecord, error) {
	loanID := loan.ID
	rec := &models.HistoricalRecord{
		ID:         h.ids.NewID(),
		LoanID:     &loanID,
		StudentID:  loan.StudentID,
		BookID:     loan.BookID,
		OperatorID: loan.OperatorID,
		LoanDate:   loan.LoanDate,
	}
	if err := h.repo.Insert(ctx, q, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecordLoanClosed copies the loan's return date onto its open record.
func (h *HistoryRecorder) RecordLoanClosed(ctx context.Context, q repository.DBTX, loan *models.Loan) (*models.HistoricalRecord, error) {
	if loan.ReturnDate == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidParameter, "loan has no return date")
	}
	open, err := h.repo.ListOpenForUpdate(ctx, q, loan.StudentID, loan.BookID)
	if err != nil {
		return nil, err
	}

	match, candidates := matchOpenRecord(open, loan)
	if match == nil {
		h.logger.Error("no open historical record for loan",
			zap.String("code", appErrors.ErrHistoryOutOfSync.Code),
			zap.String("loan_id", loan.ID), zap.String("student_id", loan.StudentID), zap.String("book_id", loan.BookID))
		return nil, appErrors.Clone(appErrors.ErrHistoryOutOfSync, "no open historical record for loan "+loan.ID)
	}
	if candidates > 1 {
		h.logger.Warn("ambiguous historical record match",
			zap.String("code", appErrors.ErrAmbiguousHistoryMatch.Code),
			zap.String("loan_id", loan.ID), zap.String("chosen_record", match.ID), zap.Int("candidates", candidates))
	}

	if err := h.repo.SetReturnDate(ctx, q, match.ID, *loan.ReturnDate); err != nil {
		return nil, err
	}
	closed := *match
	returned := *loan.ReturnDate
	closed.ReturnDate = &returned
	return &closed, nil
}

// matchOpenRecord picks the record to close for loan and returns how many legacy rows competed.
// Records linked by loan_id win outright. Unlinked rows with the same loan_date come next, and
// otherwise the most recent unlinked row is chosen (ties broken by id, newest first).
func matchOpenRecord(open []models.HistoricalRecord, loan *models.Loan) (*models.HistoricalRecord, int) {
	var legacy []models.HistoricalRecord
	for i := range open {
		if open[i].LoanID != nil {
			if *open[i].LoanID == loan.ID {
				return &open[i], 1
			}
			continue
		}
		legacy = append(legacy, open[i])
	}
	if len(legacy) == 0 {
		return nil, 0
	}

	var sameDay []models.HistoricalRecord
	for _, rec := range legacy {
		if models.Date(rec.LoanDate).Equal(models.Date(loan.LoanDate)) {
			sameDay = append(sameDay, rec)
		}
	}
	candidates := legacy
	if len(sameDay) > 0 {
		candidates = sameDay
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].LoanDate.Equal(candidates[j].LoanDate) {
			return candidates[i].LoanDate.After(candidates[j].LoanDate)
		}
		return candidates[i].ID > candidates[j].ID
	})
	chosen := candidates[0]
	return &chosen, len(candidates)
}

// ListByStudent returns a student's loan history, newest first.
func (h *HistoryRecorder) ListByStudent(ctx context.Context, studentID string) ([]models.HistoricalRecord, error) {
	records, err := h.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, storageErr(err, "failed to load history")
	}
	return records, nil
}

// ListByBook returns a book's loan history, newest first.
func (h *HistoryRecorder) ListByBook(ctx context.Context, bookID string) ([]models.HistoricalRecord, error) {
	records, err := h.repo.ListByBook(ctx, bookID)
	if err != nil {
		return nil, storageErr(err, "failed to load history")
	}
	return records, nil
}
