package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoansByCareerQueryShape(t *testing.T) {
	repo := NewReportRepository(nil)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	query, args, err := repo.LoansByCareerQuery(start, end)
	require.NoError(t, err)
	assert.Contains(t, query, `LEFT JOIN "students"`)
	assert.Contains(t, query, `LEFT JOIN "loans"`)
	assert.Contains(t, query, "BETWEEN $1 AND $2")
	assert.Contains(t, query, `COUNT(DISTINCT "s"."id") AS "active_students"`)
	assert.NotContains(t, query, `COUNT(DISTINCT "l"."student_id")`)
	assert.True(t, strings.Index(query, "GROUP BY") < strings.Index(query, "ORDER BY"))
	assert.Contains(t, query, `"total_loans" DESC`)
	assert.Len(t, args, 2)
}

func TestPopularBooksQueryShape(t *testing.T) {
	repo := NewReportRepository(nil)
	query, args, err := repo.PopularBooksQuery(2)
	require.NoError(t, err)
	assert.Contains(t, query, `FROM "books"`)
	assert.Contains(t, query, `LEFT JOIN "loans"`)
	assert.Contains(t, query, `"b"."title" ASC`)
	assert.Contains(t, query, "LIMIT")
	assert.NotEmpty(t, args)
}

func TestReportRepositoryPopularBooks(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	cols := []string{"book_id", "title", "author", "category", "status", "total_loans"}
	mock.ExpectQuery(`(?s)FROM "books".*LEFT JOIN "loans".*ORDER BY`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("book-a", "A", "Cortázar", "Novela", "LOANED", 5).
			AddRow("book-b", "B", "Borges", "Cuento", "AVAILABLE", 2))

	rows, err := repo.PopularBooks(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 5, rows[0].TotalLoans)
	assert.Equal(t, "book-b", rows[1].BookID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryPopularBooksRejectsLimit(t *testing.T) {
	repo := NewReportRepository(nil)
	_, err := repo.PopularBooks(context.Background(), 0)
	assert.Error(t, err)
}

func TestReportRepositoryLoansByCareerNullAverage(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	cols := []string{"career_id", "career_name", "active_students", "total_loans", "distinct_books", "avg_duration_days"}
	mock.ExpectQuery(`(?s)FROM "careers".*GROUP BY`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("car-1", "Letras", 2, 4, 3, 6.5).
			AddRow("car-2", "Física", 0, 0, 0, nil))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows, err := repo.LoansByCareer(context.Background(), start, start.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].AvgDurationDays)
	assert.InDelta(t, 6.5, *rows[0].AvgDurationDays, 0.001)
	assert.Nil(t, rows[1].AvgDurationDays)
}

func TestReportRepositoryLoansByCareerCountsEnrolledStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	// Two students enrolled in Letras, neither borrowed in March.
	cols := []string{"career_id", "career_name", "active_students", "total_loans", "distinct_books", "avg_duration_days"}
	mock.ExpectQuery(`(?s)COUNT\(DISTINCT "s"\."id"\) AS "active_students".*FROM "careers".*LEFT JOIN "students".*LEFT JOIN "loans".*BETWEEN \$1 AND \$2.*GROUP BY`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("car-1", "Letras", 2, 0, 0, nil))

	rows, err := repo.LoansByCareer(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].ActiveStudents)
	assert.Zero(t, rows[0].TotalLoans)
	assert.Nil(t, rows[0].AvgDurationDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}
