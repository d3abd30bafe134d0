package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

// ReportRepository runs the read-only aggregation queries. Each report is a single statement.
type ReportRepository struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db, dialect: goqu.Dialect("postgres")}
}

// LoansByCareerQuery builds the per-career aggregation for loans dated within [start, end].
// Careers without loans in range are kept with zero counts. active_students counts every enrolled student of the
// career, whether or not they borrowed in range.
func (r *ReportRepository) LoansByCareerQuery(start, end time.Time) (string, []interface{}, error) {
	return r.dialect.From(goqu.T("careers").As("c")).
		LeftJoin(goqu.T("students").As("s"), goqu.On(goqu.Ex{"s.career_id": goqu.I("c.id")})).
		LeftJoin(goqu.T("loans").As("l"), goqu.On(
			goqu.Ex{"l.student_id": goqu.I("s.id")},
			goqu.I("l.loan_date").Between(goqu.Range(start, end)),
		)).
		Select(
			goqu.I("c.id").As("career_id"),
			goqu.I("c.name").As("career_name"),
			goqu.L(`COUNT(DISTINCT "s"."id")`).As("active_students"),
			goqu.COUNT(goqu.I("l.id")).As("total_loans"),
			goqu.L(`COUNT(DISTINCT "l"."book_id")`).As("distinct_books"),
			goqu.L(`AVG("l"."return_date" - "l"."loan_date")::float8`).As("avg_duration_days"),
		).
		GroupBy(goqu.I("c.id"), goqu.I("c.name")).
		Order(goqu.I("total_loans").Desc(), goqu.I("c.name").Asc()).
		Prepared(true).
		ToSQL()
}

// LoansByCareer executes the per-career report.
func (r *ReportRepository) LoansByCareer(ctx context.Context, start, end time.Time) ([]models.LoansByCareerRow, error) {
	query, args, err := r.LoansByCareerQuery(start, end)
	if err != nil {
		return nil, fmt.Errorf("build loans by career query: %w", err)
	}
	var rows []models.LoansByCareerRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("loans by career: %w", err)
	}
	return rows, nil
}

// PopularBooksQuery ranks every book, including never-lent ones, by total loans.
func (r *ReportRepository) PopularBooksQuery(limit int) (string, []interface{}, error) {
	return r.dialect.From(goqu.T("books").As("b")).
		LeftJoin(goqu.T("authors").As("a"), goqu.On(goqu.Ex{"a.id": goqu.I("b.author_id")})).
		LeftJoin(goqu.T("categories").As("cat"), goqu.On(goqu.Ex{"cat.id": goqu.I("b.category_id")})).
		LeftJoin(goqu.T("loans").As("l"), goqu.On(goqu.Ex{"l.book_id": goqu.I("b.id")})).
		Select(
			goqu.I("b.id").As("book_id"),
			goqu.I("b.title").As("title"),
			goqu.COALESCE(goqu.I("a.name"), "").As("author"),
			goqu.COALESCE(goqu.I("cat.name"), "").As("category"),
			goqu.I("b.status").As("status"),
			goqu.COUNT(goqu.I("l.id")).As("total_loans"),
		).
		GroupBy(goqu.I("b.id"), goqu.I("b.title"), goqu.I("a.name"), goqu.I("cat.name"), goqu.I("b.status")).
		Order(goqu.I("total_loans").Desc(), goqu.I("b.title").Asc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
}

// PopularBooks executes the popular books report.
func (r *ReportRepository) PopularBooks(ctx context.Context, limit int) ([]models.PopularBookRow, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("popular books: limit must be positive, got %d", limit)
	}
	query, args, err := r.PopularBooksQuery(limit)
	if err != nil {
		return nil, fmt.Errorf("build popular books query: %w", err)
	}
	var rows []models.PopularBookRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("popular books: %w", err)
	}
	return rows, nil
}
