package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

const historyColumns = `id, loan_id, student_id, book_id, operator_id, loan_date, return_date`

// HistoryRepository persists historical loan records.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs a HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Insert appends a record inside q.
func (r *HistoryRepository) Insert(ctx context.Context, q DBTX, rec *models.HistoricalRecord) error {
	const query = `INSERT INTO historical_records (` + historyColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := q.ExecContext(ctx, query, rec.ID, rec.LoanID, rec.StudentID, rec.BookID, rec.OperatorID, rec.LoanDate, rec.ReturnDate); err != nil {
		return fmt.Errorf("insert historical record: %w", err)
	}
	return nil
}

// ListOpenForUpdate locks the open records for a student and book, most recent loan_date first.
func (r *HistoryRepository) ListOpenForUpdate(ctx context.Context, q DBTX, studentID, bookID string) ([]models.HistoricalRecord, error) {
	const query = `SELECT ` + historyColumns + ` FROM historical_records
WHERE student_id = $1 AND book_id = $2 AND return_date IS NULL
ORDER BY loan_date DESC, id DESC
FOR UPDATE`
	var records []models.HistoricalRecord
	if err := sqlx.SelectContext(ctx, q, &records, query, studentID, bookID); err != nil {
		return nil, fmt.Errorf("list open historical records: %w", err)
	}
	return records, nil
}

// SetReturnDate closes an open record.
func (r *HistoryRepository) SetReturnDate(ctx context.Context, q DBTX, id string, returnDate time.Time) error {
	res, err := q.ExecContext(ctx, `UPDATE historical_records SET return_date = $1 WHERE id = $2 AND return_date IS NULL`, returnDate, id)
	if err != nil {
		return fmt.Errorf("close historical record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("close historical record: %s already closed", id)
	}
	return nil
}

// ListByStudent returns a student's history, newest first.
func (r *HistoryRepository) ListByStudent(ctx context.Context, studentID string) ([]models.HistoricalRecord, error) {
	return r.list(ctx, "student_id", studentID)
}

// ListByBook returns a book's history, newest first.
func (r *HistoryRepository) ListByBook(ctx context.Context, bookID string) ([]models.HistoricalRecord, error) {
	return r.list(ctx, "book_id", bookID)
}

func (r *HistoryRepository) list(ctx context.Context, column, value string) ([]models.HistoricalRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM historical_records WHERE %s = $1 ORDER BY loan_date DESC, id DESC`, historyColumns, column)
	var records []models.HistoricalRecord
	if err := r.db.SelectContext(ctx, &records, query, value); err != nil {
		return nil, fmt.Errorf("list historical records: %w", err)
	}
	return records, nil
}
