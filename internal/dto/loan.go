package dto

// CreateLoanRequest registers a loan. OperatorID comes from the authenticated caller, not the body.
type CreateLoanRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	BookID     string `json:"book_id" validate:"required"`
	OperatorID string `json:"-" validate:"required"`
	LoanDate   string `json:"loan_date" validate:"omitempty,datetime=2006-01-02"`
}

// ReturnLoanRequest closes a loan. An empty ReturnDate means today.
type ReturnLoanRequest struct {
	ReturnDate string `json:"return_date" validate:"omitempty,datetime=2006-01-02"`
}
