package dto

// CreateBookRequest adds a catalog book.
type CreateBookRequest struct {
	Title           string `json:"title" validate:"required,max=255"`
	AuthorID        string `json:"author_id" validate:"required,uuid"`
	CategoryID      string `json:"category_id" validate:"required,uuid"`
	PublisherID     string `json:"publisher_id" validate:"required,uuid"`
	PublicationYear string `json:"publication_year" validate:"required,len=4,numeric"`
}

// CreateStudentRequest registers a borrower.
type CreateStudentRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Semester int    `json:"semester" validate:"required,min=1,max=12"`
	CareerID string `json:"career_id" validate:"required,uuid"`
}

// CreateCareerRequest adds a career.
type CreateCareerRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// CreateAuthorRequest adds an author.
type CreateAuthorRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Nationality string `json:"nationality" validate:"max=100"`
}

// CreatePublisherRequest adds a publisher.
type CreatePublisherRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Country string `json:"country" validate:"max=100"`
}

// CreateCategoryRequest adds a category.
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// CreateOperatorRequest adds library staff.
type CreateOperatorRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=OPERATOR ADMIN"`
}
