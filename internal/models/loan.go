package models

import "time"

// LoanStatus tracks the lifecycle of a loan.
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusReturned LoanStatus = "RETURNED"
)

// CanTransitionTo reports whether moving from s to next is allowed. ACTIVE to RETURNED is the only edge.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	return s == LoanStatusActive && next == LoanStatusReturned
}

// Terminal reports whether no further transition exists.
func (s LoanStatus) Terminal() bool {
	return s == LoanStatusReturned
}

// Loan records a book lent to a student by an operator.
type Loan struct {
	ID         string     `db:"id" json:"id"`
	StudentID  string     `db:"student_id" json:"student_id"`
	BookID     string     `db:"book_id" json:"book_id"`
	OperatorID string     `db:"operator_id" json:"operator_id"`
	LoanDate   time.Time  `db:"loan_date" json:"loan_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date,omitempty"`
	Status     LoanStatus `db:"status" json:"status"`
}

// OverdueLoan is an active loan past its return window.
type OverdueLoan struct {
	LoanID    string    `db:"loan_id" json:"loan_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	BookID    string    `db:"book_id" json:"book_id"`
	LoanDate  time.Time `db:"loan_date" json:"loan_date"`
}

// Date truncates t to a UTC calendar date, matching the DATE columns.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
