package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/pkg/response"
)

type catalogService interface {
	CreateBook(ctx context.Context, req dto.CreateBookRequest) (*models.Book, error)
	GetBook(ctx context.Context, id string) (*models.Book, error)
	DeleteBook(ctx context.Context, id string) error
	CreateStudent(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error)
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	CreateCareer(ctx context.Context, req dto.CreateCareerRequest) (*models.Career, error)
	ListCareers(ctx context.Context) ([]models.Career, error)
	CreateAuthor(ctx context.Context, req dto.CreateAuthorRequest) (*models.Author, error)
	CreatePublisher(ctx context.Context, req dto.CreatePublisherRequest) (*models.Publisher, error)
	CreateCategory(ctx context.Context, req dto.CreateCategoryRequest) (*models.Category, error)
	CreateOperator(ctx context.Context, req dto.CreateOperatorRequest) (*models.Operator, error)
}

// CatalogHandler manages books, students and reference data.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// create binds req, calls fn and answers 201.
func create[T any, R any](c *gin.Context, fn func(context.Context, T) (R, error)) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	created, err := fn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// CreateBook godoc
// @Summary Add a book
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateBookRequest true "Book payload"
// @Success 201 {object} response.Envelope
// @Router /books [post]
func (h *CatalogHandler) CreateBook(c *gin.Context) {
	create(c, h.service.CreateBook)
}

// GetBook godoc
// @Summary Get book
// @Tags Catalog
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} response.Envelope
// @Router /books/{id} [get]
func (h *CatalogHandler) GetBook(c *gin.Context) {
	book, err := h.service.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, book)
}

// DeleteBook godoc
// @Summary Delete an unreferenced book
// @Tags Catalog
// @Param id path string true "Book ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /books/{id} [delete]
func (h *CatalogHandler) DeleteBook(c *gin.Context) {
	if err := h.service.DeleteBook(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateStudent godoc
// @Summary Register a student
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *CatalogHandler) CreateStudent(c *gin.Context) {
	create(c, h.service.CreateStudent)
}

// GetStudent godoc
// @Summary Get student
// @Tags Catalog
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *CatalogHandler) GetStudent(c *gin.Context) {
	student, err := h.service.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// CreateCareer godoc
// @Summary Add a career
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateCareerRequest true "Career payload"
// @Success 201 {object} response.Envelope
// @Router /careers [post]
func (h *CatalogHandler) CreateCareer(c *gin.Context) {
	create(c, h.service.CreateCareer)
}

// ListCareers godoc
// @Summary List careers
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /careers [get]
func (h *CatalogHandler) ListCareers(c *gin.Context) {
	careers, err := h.service.ListCareers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, careers)
}

// CreateAuthor godoc
// @Summary Add an author
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateAuthorRequest true "Author payload"
// @Success 201 {object} response.Envelope
// @Router /authors [post]
func (h *CatalogHandler) CreateAuthor(c *gin.Context) {
	create(c, h.service.CreateAuthor)
}

// CreatePublisher godoc
// @Summary Add a publisher
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreatePublisherRequest true "Publisher payload"
// @Success 201 {object} response.Envelope
// @Router /publishers [post]
func (h *CatalogHandler) CreatePublisher(c *gin.Context) {
	create(c, h.service.CreatePublisher)
}

// CreateCategory godoc
// @Summary Add a category
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateCategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Router /categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	create(c, h.service.CreateCategory)
}

// CreateOperator godoc
// @Summary Add library staff
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateOperatorRequest true "Operator payload"
// @Success 201 {object} response.Envelope
// @Router /operators [post]
func (h *CatalogHandler) CreateOperator(c *gin.Context) {
	create(c, h.service.CreateOperator)
}
