package handler

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
	"github.com/noah-isme/biblioteca-api/pkg/response"
)

type sanctionService interface {
	Sweep(ctx context.Context, asOf time.Time) (*models.SweepSummary, error)
	LiftSanction(ctx context.Context, id string, req dto.LiftSanctionRequest) (*models.Sanction, error)
	ListOpenByStudent(ctx context.Context, studentID string) ([]models.Sanction, error)
}

// SanctionHandler exposes sanction endpoints.
type SanctionHandler struct {
	service sanctionService
}

// NewSanctionHandler constructs a sanction handler.
func NewSanctionHandler(service sanctionService) *SanctionHandler {
	return &SanctionHandler{service: service}
}

// Sweep godoc
// @Summary Apply automatic sanctions for overdue loans
// @Tags Sanctions
// @Accept json
// @Produce json
// @Param payload body dto.SweepRequest false "Evaluation date"
// @Success 200 {object} response.Envelope
// @Router /sanctions/sweep [post]
func (h *SanctionHandler) Sweep(c *gin.Context) {
	var req dto.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, invalidPayload(err))
		return
	}
	var asOf time.Time
	if req.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidParameter.Code, appErrors.ErrInvalidParameter.Status, "as_of must use YYYY-MM-DD"))
			return
		}
		asOf = parsed
	}

	summary, err := h.service.Sweep(c.Request.Context(), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// Lift godoc
// @Summary Lift a sanction
// @Tags Sanctions
// @Accept json
// @Produce json
// @Param id path string true "Sanction ID"
// @Param payload body dto.LiftSanctionRequest false "End date"
// @Success 200 {object} response.Envelope
// @Router /sanctions/{id}/lift [post]
func (h *SanctionHandler) Lift(c *gin.Context) {
	var req dto.LiftSanctionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, invalidPayload(err))
		return
	}
	sanction, err := h.service.LiftSanction(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sanction)
}

// ListByStudent godoc
// @Summary Sanctions in force for a student
// @Tags Sanctions
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/sanctions [get]
func (h *SanctionHandler) ListByStudent(c *gin.Context) {
	sanctions, err := h.service.ListOpenByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if sanctions == nil {
		sanctions = []models.Sanction{}
	}
	response.OK(c, sanctions)
}
