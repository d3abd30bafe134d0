package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

const bookColumns = `id, title, author_id, category_id, publisher_id, publication_year, status`

// BookRepository manages persistence for catalog books.
type BookRepository struct {
	db *sqlx.DB
}

// NewBookRepository constructs a BookRepository.
func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

// FindByID returns the book or nil when it does not exist.
func (r *BookRepository) FindByID(ctx context.Context, id string) (*models.Book, error) {
	return r.get(ctx, r.db, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
}

// LockByID reads the book row holding a row lock until q commits.
func (r *BookRepository) LockByID(ctx context.Context, q DBTX, id string) (*models.Book, error) {
	return r.get(ctx, q, `SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`, id)
}

func (r *BookRepository) get(ctx context.Context, q DBTX, query, id string) (*models.Book, error) {
	var book models.Book
	if err := sqlx.GetContext(ctx, q, &book, query, id); err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &book, nil
}

// UpdateStatus writes the derived availability flag.
func (r *BookRepository) UpdateStatus(ctx context.Context, q DBTX, id string, status models.BookStatus) error {
	res, err := q.ExecContext(ctx, `UPDATE books SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update book status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update book status: book %s not found", id)
	}
	return nil
}

// Create inserts a new book. New books always start AVAILABLE.
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	book.Status = models.BookStatusAvailable
	const query = `INSERT INTO books (` + bookColumns + `) VALUES (:id, :title, :author_id, :category_id, :publisher_id, :publication_year, :status)`
	if _, err := r.db.NamedExecContext(ctx, query, book); err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// Delete removes a book. Rows referenced by loans or history fail with a foreign key violation.
func (r *BookRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete book rows affected: %w", err)
	}
	return n > 0, nil
}
