package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/pkg/response"
)

type maintenanceService interface {
	ClampSemesters(ctx context.Context) (*dto.ClampSemestersResult, error)
	ListTriggers(ctx context.Context) ([]models.Trigger, error)
	RemoveTrigger(ctx context.Context, name string) error
}

// MaintenanceHandler exposes operational tasks to administrators.
type MaintenanceHandler struct {
	service maintenanceService
}

// NewMaintenanceHandler constructs a maintenance handler.
func NewMaintenanceHandler(service maintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{service: service}
}

// ClampSemesters godoc
// @Summary Cap out-of-range student semesters
// @Tags Maintenance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /maintenance/semesters/clamp [post]
func (h *MaintenanceHandler) ClampSemesters(c *gin.Context) {
	result, err := h.service.ClampSemesters(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// ListTriggers godoc
// @Summary List database triggers
// @Tags Maintenance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /maintenance/triggers [get]
func (h *MaintenanceHandler) ListTriggers(c *gin.Context) {
	triggers, err := h.service.ListTriggers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, triggers)
}

// RemoveTrigger godoc
// @Summary Drop a database trigger
// @Tags Maintenance
// @Param name path string true "Trigger name"
// @Success 204
// @Router /maintenance/triggers/{name} [delete]
func (h *MaintenanceHandler) RemoveTrigger(c *gin.Context) {
	if err := h.service.RemoveTrigger(c.Request.Context(), c.Param("name")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
