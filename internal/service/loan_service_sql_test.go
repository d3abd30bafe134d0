package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/repository"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

const (
	sqlBookID    = "5b9c8a5e-7d1f-4c7e-9a39-2f1f0f7f6a11"
	sqlStudentID = "0c3e7d2a-1b44-4b6a-8f0e-6a6b1f3c2d22"
)

var malformedUUID = &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}

// newSQLLedger wires the ledger over the real repositories and transaction manager.
func newSQLLedger(t *testing.T) (*LoanService, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(conn, "postgres")
	t.Cleanup(func() { _ = db.Close() })

	books := repository.NewBookRepository(db)
	history := NewHistoryRecorder(repository.NewHistoryRepository(db), &seqIDs{prefix: "hist"}, nil)
	enforcer := NewConsistencyEnforcer(repository.NewTxManager(db), books, history, nil)
	svc := NewLoanService(repository.NewLoanRepository(db), books, repository.NewStudentRepository(db), enforcer,
		nil, nil, nil, nil, LoanServiceConfig{MaxActiveLoans: 3}).
		WithClock(fixedClock{now: day("2024-03-10")})
	return svc, mock
}

func TestCreateLoanWithMalformedBookIDIsUnavailable(t *testing.T) {
	svc, mock := newSQLLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM books WHERE id = $1 FOR UPDATE")).
		WithArgs("abc").
		WillReturnError(malformedUUID)
	mock.ExpectRollback()

	_, err := svc.CreateLoan(context.Background(), loanReq(sqlStudentID, "abc", "2024-03-10"))
	assert.ErrorIs(t, err, appErrors.ErrBookUnavailable)
	assert.NotErrorIs(t, err, appErrors.ErrStorageFailure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLoanWithMalformedStudentIDIsInvalid(t *testing.T) {
	svc, mock := newSQLLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM books WHERE id = $1 FOR UPDATE")).
		WithArgs(sqlBookID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author_id", "category_id", "publisher_id", "publication_year", "status"}).
			AddRow(sqlBookID, "Rayuela", "a-1", "c-1", "p-1", "1963", "AVAILABLE"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id = $1 FOR UPDATE")).
		WithArgs("abc").
		WillReturnError(malformedUUID)
	mock.ExpectRollback()

	_, err := svc.CreateLoan(context.Background(), loanReq("abc", sqlBookID, "2024-03-10"))
	assert.ErrorIs(t, err, appErrors.ErrInvalidParameter)
	assert.Equal(t, 400, appErrors.FromError(err).Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnLoanWithMalformedIDIsNotActive(t *testing.T) {
	svc, mock := newSQLLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM loans WHERE id = $1 FOR UPDATE")).
		WithArgs("abc").
		WillReturnError(malformedUUID)
	mock.ExpectRollback()

	_, err := svc.ReturnLoan(context.Background(), "abc", dto.ReturnLoanRequest{})
	assert.ErrorIs(t, err, appErrors.ErrLoanNotActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanLookupsWithMalformedIDAreClientErrors(t *testing.T) {
	svc, mock := newSQLLedger(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM loans WHERE id = $1")).
		WithArgs("abc").
		WillReturnError(malformedUUID)
	_, err := svc.GetLoan(context.Background(), "abc")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	mock.ExpectQuery(regexp.QuoteMeta("FROM loans WHERE student_id = $1")).
		WillReturnError(malformedUUID)
	_, err = svc.ListActiveByStudent(context.Background(), "abc")
	assert.ErrorIs(t, err, appErrors.ErrInvalidParameter)
	assert.NotErrorIs(t, err, appErrors.ErrStorageFailure)
	assert.NoError(t, mock.ExpectationsWereMet())
}
