package models

const (
	MinSemester = 1
	MaxSemester = 12
)

// Student is a borrower enrolled in a career.
type Student struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Semester int    `db:"semester" json:"semester"`
	CareerID string `db:"career_id" json:"career_id"`
}

// Career is the academic program used as a reporting dimension.
type Career struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
