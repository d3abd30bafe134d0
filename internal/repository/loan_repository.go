package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

const loanColumns = `id, student_id, book_id, operator_id, loan_date, return_date, status`

// LoanRepository persists the loan ledger.
type LoanRepository struct {
	db *sqlx.DB
}

// NewLoanRepository constructs a LoanRepository.
func NewLoanRepository(db *sqlx.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// Create inserts an ACTIVE loan inside q.
func (r *LoanRepository) Create(ctx context.Context, q DBTX, loan *models.Loan) error {
	const query = `INSERT INTO loans (` + loanColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := q.ExecContext(ctx, query, loan.ID, loan.StudentID, loan.BookID, loan.OperatorID, loan.LoanDate, loan.ReturnDate, loan.Status); err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

// FindByID returns the loan or nil when missing.
func (r *LoanRepository) FindByID(ctx context.Context, id string) (*models.Loan, error) {
	return r.get(ctx, r.db, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
}

// LockByID reads the loan row under a row lock.
func (r *LoanRepository) LockByID(ctx context.Context, q DBTX, id string) (*models.Loan, error) {
	return r.get(ctx, q, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id)
}

func (r *LoanRepository) get(ctx context.Context, q DBTX, query, id string) (*models.Loan, error) {
	var loan models.Loan
	if err := sqlx.GetContext(ctx, q, &loan, query, id); err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return &loan, nil
}

// CountActiveByStudent counts the student's ACTIVE loans as seen by q.
func (r *LoanRepository) CountActiveByStudent(ctx context.Context, q DBTX, studentID string) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, q, &count, `SELECT COUNT(*) FROM loans WHERE student_id = $1 AND status = $2`, studentID, models.LoanStatusActive); err != nil {
		return 0, fmt.Errorf("count active loans: %w", err)
	}
	return count, nil
}

// MarkReturned closes an ACTIVE loan. It reports false when the row was no longer ACTIVE.
func (r *LoanRepository) MarkReturned(ctx context.Context, q DBTX, id string, returnDate time.Time) (bool, error) {
	res, err := q.ExecContext(ctx, `UPDATE loans SET status = $1, return_date = $2 WHERE id = $3 AND status = $4`,
		models.LoanStatusReturned, returnDate, id, models.LoanStatusActive)
	if err != nil {
		return false, fmt.Errorf("mark loan returned: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark loan returned rows affected: %w", err)
	}
	return n == 1, nil
}

// ListOverdue returns ACTIVE loans whose loan_date is strictly before cutoff, grouped by student.
func (r *LoanRepository) ListOverdue(ctx context.Context, cutoff time.Time) ([]models.OverdueLoan, error) {
	const query = `SELECT id AS loan_id, student_id, book_id, loan_date FROM loans
WHERE status = $1 AND loan_date < $2
ORDER BY student_id ASC, loan_date ASC`
	var loans []models.OverdueLoan
	if err := r.db.SelectContext(ctx, &loans, query, models.LoanStatusActive, cutoff); err != nil {
		return nil, fmt.Errorf("list overdue loans: %w", err)
	}
	return loans, nil
}

// ListActiveByStudent returns the student's open loans, oldest first.
func (r *LoanRepository) ListActiveByStudent(ctx context.Context, studentID string) ([]models.Loan, error) {
	var loans []models.Loan
	if err := r.db.SelectContext(ctx, &loans, `SELECT `+loanColumns+` FROM loans WHERE student_id = $1 AND status = $2 ORDER BY loan_date ASC`,
		studentID, models.LoanStatusActive); err != nil {
		return nil, fmt.Errorf("list active loans: %w", err)
	}
	return loans, nil
}
