package models

import "time"

// HistoricalRecord is the audit entry mirroring a loan's open and close.
// LoanID is nil for rows written before loans were linked.
type HistoricalRecord struct {
	ID         string     `db:"id" json:"id"`
	LoanID     *string    `db:"loan_id" json:"loan_id,omitempty"`
	StudentID  string     `db:"student_id" json:"student_id"`
	BookID     string     `db:"book_id" json:"book_id"`
	OperatorID string     `db:"operator_id" json:"operator_id"`
	LoanDate   time.Time  `db:"loan_date" json:"loan_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date,omitempty"`
}

// Open reports whether the record still awaits a return.
func (h HistoricalRecord) Open() bool {
	return h.ReturnDate == nil
}
