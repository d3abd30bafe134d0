package handler

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/middleware"
	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/internal/service"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
	"github.com/noah-isme/biblioteca-api/pkg/export"
	"github.com/noah-isme/biblioteca-api/pkg/response"
)

type reportService interface {
	LoansByCareer(ctx context.Context, q dto.LoansByCareerQuery) ([]models.LoansByCareerRow, models.DateRange, error)
	PopularBooks(ctx context.Context, limit int) ([]models.PopularBookRow, error)
	Render(format export.Format, data export.Dataset, title string) ([]byte, error)
}

// ReportHandler exposes the read-only reports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// LoansByCareer godoc
// @Summary Loans aggregated per career
// @Tags Reports
// @Produce json,text/csv,application/pdf
// @Param start query string false "Start date (YYYY-MM-DD), defaults to January 1"
// @Param end query string false "End date (YYYY-MM-DD), defaults to today"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/loans-by-career [get]
func (h *ReportHandler) LoansByCareer(c *gin.Context) {
	var q dto.LoansByCareerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	format, err := export.ParseFormat(q.Format)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidParameter.Code, appErrors.ErrInvalidParameter.Status, "format must be json, csv or pdf"))
		return
	}

	rows, rng, err := h.service.LoansByCareer(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}

	start, end := rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02")
	if format != export.FormatJSON {
		title := fmt.Sprintf("Loans by career %s to %s", start, end)
		h.file(c, format, service.LoansByCareerDataset(rows), title, "loans-by-career")
		return
	}
	middleware.SetMeta(c, "start", start)
	middleware.SetMeta(c, "end", end)
	middleware.SetMeta(c, "count", len(rows))
	response.OK(c, rows, middleware.ExtractMeta(c))
}

// PopularBooks godoc
// @Summary Books ranked by loan count
// @Tags Reports
// @Produce json,text/csv,application/pdf
// @Param limit query int false "Number of books (default 10)"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/popular-books [get]
func (h *ReportHandler) PopularBooks(c *gin.Context) {
	var q dto.PopularBooksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidParameter.Code, appErrors.ErrInvalidParameter.Status, "limit must be an integer"))
		return
	}
	limit := dto.DefaultPopularBooksLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	format, err := export.ParseFormat(q.Format)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidParameter.Code, appErrors.ErrInvalidParameter.Status, "format must be json, csv or pdf"))
		return
	}

	rows, err := h.service.PopularBooks(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	if format != export.FormatJSON {
		h.file(c, format, service.PopularBooksDataset(rows), "Popular books", "popular-books")
		return
	}
	middleware.SetMeta(c, "limit", limit)
	middleware.SetMeta(c, "count", len(rows))
	response.OK(c, rows, middleware.ExtractMeta(c))
}

func (h *ReportHandler) file(c *gin.Context, format export.Format, data export.Dataset, title, name string) {
	body, err := h.service.Render(format, data, title)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, format.ContentType(), name+"."+string(format), body)
}
