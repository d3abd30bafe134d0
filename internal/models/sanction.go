package models

import "time"

// Sanction is a penalty applied to a student.
type Sanction struct {
	ID        string     `db:"id" json:"id"`
	StudentID string     `db:"student_id" json:"student_id"`
	Reason    string     `db:"reason" json:"reason"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`
}

// OpenAt reports whether the sanction is still in force on day.
func (s Sanction) OpenAt(day time.Time) bool {
	return s.EndDate == nil || !s.EndDate.Before(Date(day))
}

// SweepSummary describes one automatic sanction pass.
type SweepSummary struct {
	AsOf            time.Time  `json:"as_of"`
	OverdueLoans    int        `json:"overdue_loans"`
	StudentsChecked int        `json:"students_checked"`
	AlreadyOpen     int        `json:"already_open"`
	Failed          int        `json:"failed"`
	Created         []Sanction `json:"created"`
}
