package models

import "time"

// DateRange bounds a report on loan_date, both ends inclusive.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LoansByCareerRow aggregates lending activity for one career.
type LoansByCareerRow struct {
	CareerID        string   `db:"career_id" json:"career_id"`
	CareerName      string   `db:"career_name" json:"career_name"`
	ActiveStudents  int      `db:"active_students" json:"active_students"`
	TotalLoans      int      `db:"total_loans" json:"total_loans"`
	DistinctBooks   int      `db:"distinct_books" json:"distinct_books"`
	AvgDurationDays *float64 `db:"avg_duration_days" json:"avg_duration_days"`
}

// PopularBookRow ranks one book by how often it was lent.
type PopularBookRow struct {
	BookID     string     `db:"book_id" json:"book_id"`
	Title      string     `db:"title" json:"title"`
	Author     string     `db:"author" json:"author"`
	Category   string     `db:"category" json:"category"`
	Status     BookStatus `db:"status" json:"status"`
	TotalLoans int        `db:"total_loans" json:"total_loans"`
}
