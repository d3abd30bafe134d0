package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

var historyCols = []string{"id", "loan_id", "student_id", "book_id", "operator_id", "loan_date", "return_date"}

func TestHistoryRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHistoryRepository(db)

	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	loanID := "loan-1"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO historical_records")).
		WithArgs("01HQ", "loan-1", "stu-1", "book-1", "op-1", day, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &models.HistoricalRecord{ID: "01HQ", LoanID: &loanID, StudentID: "stu-1", BookID: "book-1", OperatorID: "op-1", LoanDate: day}
	require.NoError(t, repo.Insert(context.Background(), db, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepositoryListOpenForUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHistoryRepository(db)

	recent := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND book_id = $2 AND return_date IS NULL")).
		WithArgs("stu-1", "book-1").
		WillReturnRows(sqlmock.NewRows(historyCols).
			AddRow("h-2", nil, "stu-1", "book-1", "op-1", recent, nil).
			AddRow("h-1", "loan-1", "stu-1", "book-1", "op-1", older, nil))

	records, err := repo.ListOpenForUpdate(context.Background(), db, "stu-1", "book-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Nil(t, records[0].LoanID)
	require.NotNil(t, records[1].LoanID)
	assert.Equal(t, "loan-1", *records[1].LoanID)
}

func TestHistoryRepositorySetReturnDateAlreadyClosed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHistoryRepository(db)

	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE historical_records SET return_date = $1 WHERE id = $2 AND return_date IS NULL")).
		WithArgs(day, "h-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Error(t, repo.SetReturnDate(context.Background(), db, "h-1", day))
}
