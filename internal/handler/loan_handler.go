package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
	"github.com/noah-isme/biblioteca-api/pkg/response"
)

type loanService interface {
	CreateLoan(ctx context.Context, req dto.CreateLoanRequest) (*models.Loan, error)
	ReturnLoan(ctx context.Context, loanID string, req dto.ReturnLoanRequest) (*models.Loan, error)
	GetLoan(ctx context.Context, id string) (*models.Loan, error)
	ListActiveByStudent(ctx context.Context, studentID string) ([]models.Loan, error)
}

// LoanHandler exposes the loan ledger.
type LoanHandler struct {
	service loanService
}

// NewLoanHandler constructs a loan handler.
func NewLoanHandler(service loanService) *LoanHandler {
	return &LoanHandler{service: service}
}

// Create godoc
// @Summary Lend a book
// @Tags Loans
// @Accept json
// @Produce json
// @Param payload body dto.CreateLoanRequest true "Loan payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /loans [post]
func (h *LoanHandler) Create(c *gin.Context) {
	operator := operatorFromContext(c)
	if operator == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	req.OperatorID = operator.ID

	loan, err := h.service.CreateLoan(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, loan)
}

// Get godoc
// @Summary Get loan
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} response.Envelope
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *gin.Context) {
	loan, err := h.service.GetLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, loan)
}

// Return godoc
// @Summary Return a loaned book
// @Tags Loans
// @Accept json
// @Produce json
// @Param id path string true "Loan ID"
// @Param payload body dto.ReturnLoanRequest false "Return payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /loans/{id}/return [post]
func (h *LoanHandler) Return(c *gin.Context) {
	var req dto.ReturnLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, invalidPayload(err))
		return
	}
	loan, err := h.service.ReturnLoan(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan)
}

// ListByStudent godoc
// @Summary List a student's active loans
// @Tags Loans
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/loans [get]
func (h *LoanHandler) ListByStudent(c *gin.Context) {
	loans, err := h.service.ListActiveByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if loans == nil {
		loans = []models.Loan{}
	}
	response.OK(c, loans)
}
