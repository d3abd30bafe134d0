package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/pkg/response"
)

type historyService interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.HistoricalRecord, error)
	ListByBook(ctx context.Context, bookID string) ([]models.HistoricalRecord, error)
}

// HistoryHandler exposes the append-only loan history.
type HistoryHandler struct {
	service historyService
}

// NewHistoryHandler constructs a history handler.
func NewHistoryHandler(service historyService) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// ByStudent godoc
// @Summary Loan history of a student
// @Tags History
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/history [get]
func (h *HistoryHandler) ByStudent(c *gin.Context) {
	h.respond(c, h.service.ListByStudent, c.Param("id"))
}

// ByBook godoc
// @Summary Loan history of a book
// @Tags History
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} response.Envelope
// @Router /books/{id}/history [get]
func (h *HistoryHandler) ByBook(c *gin.Context) {
	h.respond(c, h.service.ListByBook, c.Param("id"))
}

func (h *HistoryHandler) respond(c *gin.Context, fn func(context.Context, string) ([]models.HistoricalRecord, error), id string) {
	records, err := fn(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if records == nil {
		records = []models.HistoricalRecord{}
	}
	response.OK(c, records, map[string]interface{}{"count": len(records)})
}
