package dto

// LoansByCareerQuery filters the per-career report. Dates are inclusive.
type LoansByCareerQuery struct {
	Start  string `form:"start" validate:"omitempty,datetime=2006-01-02"`
	End    string `form:"end" validate:"omitempty,datetime=2006-01-02"`
	Format string `form:"format"`
}

// PopularBooksQuery bounds the popular books report.
type PopularBooksQuery struct {
	Limit  *int   `form:"limit"`
	Format string `form:"format"`
}

// DefaultPopularBooksLimit applies when the caller omits limit.
const DefaultPopularBooksLimit = 10
