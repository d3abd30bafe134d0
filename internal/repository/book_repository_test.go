package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

var bookCols = []string{"id", "title", "author_id", "category_id", "publisher_id", "publication_year", "status"}

func TestBookRepositoryLockByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM books WHERE id = $1 FOR UPDATE")).
		WithArgs("book-1").
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow("book-1", "Rayuela", "a-1", "c-1", "p-1", "1963", "AVAILABLE"))

	book, err := repo.LockByID(context.Background(), db, "book-1")
	require.NoError(t, err)
	require.NotNil(t, book)
	assert.Equal(t, models.BookStatusAvailable, book.Status)
	assert.Equal(t, "1963", book.PublicationYear)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryLockByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(bookCols))

	book, err := repo.LockByID(context.Background(), db, "missing")
	require.NoError(t, err)
	assert.Nil(t, book)
}

func TestBookRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET status = $1 WHERE id = $2")).
		WithArgs(models.BookStatusLoaned, "book-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET status = $1 WHERE id = $2")).
		WithArgs(models.BookStatusAvailable, "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), db, "book-1", models.BookStatusLoaned))
	assert.Error(t, repo.UpdateStatus(context.Background(), db, "gone", models.BookStatusAvailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryCreateStartsAvailable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO books")).
		WithArgs("book-9", "Ficciones", "a-1", "c-1", "p-1", "1944", "AVAILABLE").
		WillReturnResult(sqlmock.NewResult(0, 1))

	book := &models.Book{ID: "book-9", Title: "Ficciones", AuthorID: "a-1", CategoryID: "c-1", PublisherID: "p-1", PublicationYear: "1944", Status: models.BookStatusLoaned}
	require.NoError(t, repo.Create(context.Background(), book))
	assert.Equal(t, models.BookStatusAvailable, book.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryDeleteReferenced(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM books WHERE id = $1")).
		WithArgs("book-1").
		WillReturnError(&pq.Error{Code: "23503"})

	_, err := repo.Delete(context.Background(), "book-1")
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
}

func TestBookRepositoryMalformedIDIsMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM books WHERE id = $1 FOR UPDATE")).
		WithArgs("abc").
		WillReturnError(&pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"})

	book, err := repo.LockByID(context.Background(), db, "abc")
	require.NoError(t, err)
	assert.Nil(t, book)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidTextRepresentation(t *testing.T) {
	assert.True(t, IsInvalidTextRepresentation(fmt.Errorf("get loan: %w", &pq.Error{Code: "22P02"})))
	assert.False(t, IsInvalidTextRepresentation(&pq.Error{Code: "23505"}))
	assert.False(t, IsInvalidTextRepresentation(errors.New("connection reset")))
}
