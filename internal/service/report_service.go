package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
	"github.com/noah-isme/biblioteca-api/pkg/export"
)

const reportCachePattern = "reports:*"

type reportStore interface {
	LoansByCareer(ctx context.Context, start, end time.Time) ([]models.LoansByCareerRow, error)
	PopularBooks(ctx context.Context, limit int) ([]models.PopularBookRow, error)
}

// ReportService exposes the fixed set of read-only reports.
type ReportService struct {
	repo     reportStore
	cache    *CacheService
	renderer *export.Renderer
	clock    Clock
	logger   *zap.Logger
}

// NewReportService constructs a ReportService. cache may be nil.
func NewReportService(repo reportStore, cache *CacheService, clock Clock, logger *zap.Logger) *ReportService {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, cache: cache, renderer: export.NewRenderer(), clock: clock, logger: logger}
}

// ResolveRange applies the defaults (January 1 of the current year through today) and validates order.
func (s *ReportService) ResolveRange(q dto.LoansByCareerQuery) (models.DateRange, error) {
	today := models.Date(s.clock.Now())
	start, err := parseDate(q.Start, time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return models.DateRange{}, err
	}
	end, err := parseDate(q.End, today)
	if err != nil {
		return models.DateRange{}, err
	}
	if start.After(end) {
		return models.DateRange{}, appErrors.Clone(appErrors.ErrInvalidParameter, "start date is after end date")
	}
	return models.DateRange{Start: start, End: end}, nil
}

// LoansByCareer aggregates loans per career within the resolved range.
func (s *ReportService) LoansByCareer(ctx context.Context, q dto.LoansByCareerQuery) ([]models.LoansByCareerRow, models.DateRange, error) {
	rng, err := s.ResolveRange(q)
	if err != nil {
		return nil, models.DateRange{}, err
	}

	key := fmt.Sprintf("reports:loans-by-career:%s:%s", rng.Start.Format(dateLayout), rng.End.Format(dateLayout))
	var rows []models.LoansByCareerRow
	if s.cache.Get(ctx, key, &rows) {
		return rows, rng, nil
	}

	rows, err = s.repo.LoansByCareer(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, models.DateRange{}, storageErr(err, "failed to build loans by career report")
	}
	if rows == nil {
		rows = []models.LoansByCareerRow{}
	}
	s.cache.Set(ctx, key, rows)
	return rows, rng, nil
}

// PopularBooks ranks books by loan count. limit must be positive.
func (s *ReportService) PopularBooks(ctx context.Context, limit int) ([]models.PopularBookRow, error) {
	if limit <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidParameter, "limit must be greater than zero")
	}

	key := fmt.Sprintf("reports:popular-books:%d", limit)
	var rows []models.PopularBookRow
	if s.cache.Get(ctx, key, &rows) {
		return rows, nil
	}

	rows, err := s.repo.PopularBooks(ctx, limit)
	if err != nil {
		return nil, storageErr(err, "failed to build popular books report")
	}
	if rows == nil {
		rows = []models.PopularBookRow{}
	}
	s.cache.Set(ctx, key, rows)
	return rows, nil
}

// InvalidateCache drops every cached report. Called after committed ledger mutations.
func (s *ReportService) InvalidateCache(ctx context.Context) {
	s.cache.Invalidate(ctx, reportCachePattern)
}

// LoansByCareerDataset flattens rows for file export.
func LoansByCareerDataset(rows []models.LoansByCareerRow) export.Dataset {
	data := export.Dataset{Headers: []string{"career", "active_students", "total_loans", "distinct_books", "avg_duration_days"}}
	for _, row := range rows {
		avg := ""
		if row.AvgDurationDays != nil {
			avg = strconv.FormatFloat(*row.AvgDurationDays, 'f', 2, 64)
		}
		data.Append(row.CareerName, strconv.Itoa(row.ActiveStudents), strconv.Itoa(row.TotalLoans), strconv.Itoa(row.DistinctBooks), avg)
	}
	return data
}

// PopularBooksDataset flattens rows for file export.
func PopularBooksDataset(rows []models.PopularBookRow) export.Dataset {
	data := export.Dataset{Headers: []string{"title", "author", "category", "status", "total_loans"}}
	for _, row := range rows {
		data.Append(row.Title, row.Author, row.Category, string(row.Status), strconv.Itoa(row.TotalLoans))
	}
	return data
}

// Render encodes a dataset as CSV or PDF.
func (s *ReportService) Render(format export.Format, data export.Dataset, title string) ([]byte, error) {
	out, err := s.renderer.Render(format, data, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return out, nil
}
