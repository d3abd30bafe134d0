package models

// BookStatus mirrors whether a copy is currently lent out.
type BookStatus string

const (
	BookStatusAvailable BookStatus = "AVAILABLE"
	BookStatusLoaned    BookStatus = "LOANED"
)

// Book is a catalog entry. Status is derived from the loan ledger.
type Book struct {
	ID              string     `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	AuthorID        string     `db:"author_id" json:"author_id"`
	CategoryID      string     `db:"category_id" json:"category_id"`
	PublisherID     string     `db:"publisher_id" json:"publisher_id"`
	PublicationYear string     `db:"publication_year" json:"publication_year"`
	Status          BookStatus `db:"status" json:"status"`
}

// Author wrote one or more books.
type Author struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Nationality string `db:"nationality" json:"nationality"`
}

// Publisher issued one or more books.
type Publisher struct {
	ID      string `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Country string `db:"country" json:"country"`
}

// Category groups books by subject.
type Category struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
