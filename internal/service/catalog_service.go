package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/internal/repository"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

type bookCatalog interface {
	Create(ctx context.Context, book *models.Book) error
	FindByID(ctx context.Context, id string) (*models.Book, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type studentCatalog interface {
	Create(ctx context.Context, student *models.Student) error
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type referenceCatalog interface {
	CreateCareer(ctx context.Context, career *models.Career) error
	ListCareers(ctx context.Context) ([]models.Career, error)
	CreateAuthor(ctx context.Context, author *models.Author) error
	CreatePublisher(ctx context.Context, publisher *models.Publisher) error
	CreateCategory(ctx context.Context, category *models.Category) error
	CreateOperator(ctx context.Context, operator *models.Operator) error
}

// CatalogService manages books, students and reference data. It never writes Book.status.
type CatalogService struct {
	books     bookCatalog
	students  studentCatalog
	refs      referenceCatalog
	reports   reportInvalidator
	ids       IDGenerator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(books bookCatalog, students studentCatalog, refs referenceCatalog, reports reportInvalidator, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{books: books, students: students, refs: refs, reports: reports, ids: UUIDGenerator{}, validator: validate, logger: logger}
}

// CreateBook adds a book; it always starts AVAILABLE.
func (s *CatalogService) CreateBook(ctx context.Context, req dto.CreateBookRequest) (*models.Book, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid book payload")
	}
	book := &models.Book{
		ID:              s.ids.NewID(),
		Title:           req.Title,
		AuthorID:        req.AuthorID,
		CategoryID:      req.CategoryID,
		PublisherID:     req.PublisherID,
		PublicationYear: req.PublicationYear,
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, mapCatalogWriteError(err, "book")
	}
	s.invalidate(ctx)
	return book, nil
}

// GetBook returns a book by id.
func (s *CatalogService) GetBook(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr(err, "failed to load book")
	}
	if book == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
	}
	return book, nil
}

// DeleteBook removes a book that no loan or history record references.
func (s *CatalogService) DeleteBook(ctx context.Context, id string) error {
	deleted, err := s.books.Delete(ctx, id)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "book is referenced by loans or history")
		}
		return storageErr(err, "failed to delete book")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "book not found")
	}
	s.invalidate(ctx)
	return nil
}

// CreateStudent registers a student.
func (s *CatalogService) CreateStudent(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid student payload")
	}
	student := &models.Student{ID: s.ids.NewID(), Name: req.Name, Semester: req.Semester, CareerID: req.CareerID}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, mapCatalogWriteError(err, "student")
	}
	return student, nil
}

// GetStudent returns a student by id.
func (s *CatalogService) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr(err, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// CreateCareer adds a career.
func (s *CatalogService) CreateCareer(ctx context.Context, req dto.CreateCareerRequest) (*models.Career, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid career payload")
	}
	career := &models.Career{ID: s.ids.NewID(), Name: req.Name}
	if err := s.refs.CreateCareer(ctx, career); err != nil {
		return nil, mapCatalogWriteError(err, "career")
	}
	return career, nil
}

// ListCareers returns every career, never nil.
func (s *CatalogService) ListCareers(ctx context.Context) ([]models.Career, error) {
	careers, err := s.refs.ListCareers(ctx)
	if err != nil {
		return nil, storageErr(err, "failed to list careers")
	}
	if careers == nil {
		careers = []models.Career{}
	}
	return careers, nil
}

// CreateAuthor adds an author.
func (s *CatalogService) CreateAuthor(ctx context.Context, req dto.CreateAuthorRequest) (*models.Author, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid author payload")
	}
	author := &models.Author{ID: s.ids.NewID(), Name: req.Name, Nationality: req.Nationality}
	if err := s.refs.CreateAuthor(ctx, author); err != nil {
		return nil, mapCatalogWriteError(err, "author")
	}
	return author, nil
}

// CreatePublisher adds a publisher.
func (s *CatalogService) CreatePublisher(ctx context.Context, req dto.CreatePublisherRequest) (*models.Publisher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid publisher payload")
	}
	publisher := &models.Publisher{ID: s.ids.NewID(), Name: req.Name, Country: req.Country}
	if err := s.refs.CreatePublisher(ctx, publisher); err != nil {
		return nil, mapCatalogWriteError(err, "publisher")
	}
	return publisher, nil
}

// CreateCategory adds a category.
func (s *CatalogService) CreateCategory(ctx context.Context, req dto.CreateCategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid category payload")
	}
	category := &models.Category{ID: s.ids.NewID(), Name: req.Name}
	if err := s.refs.CreateCategory(ctx, category); err != nil {
		return nil, mapCatalogWriteError(err, "category")
	}
	return category, nil
}

// CreateOperator adds library staff.
func (s *CatalogService) CreateOperator(ctx context.Context, req dto.CreateOperatorRequest) (*models.Operator, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid operator payload")
	}
	operator := &models.Operator{ID: s.ids.NewID(), Name: req.Name, Email: req.Email, Role: models.Role(req.Role)}
	if err := s.refs.CreateOperator(ctx, operator); err != nil {
		return nil, mapCatalogWriteError(err, "operator")
	}
	return operator, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.reports != nil {
		s.reports.InvalidateCache(ctx)
	}
}

func mapCatalogWriteError(err error, entity string) error {
	switch {
	case repository.IsForeignKeyViolation(err), repository.IsCheckViolation(err):
		return appErrors.Wrap(err, appErrors.ErrInvalidParameter.Code, appErrors.ErrInvalidParameter.Status, entity+" references unknown or invalid data")
	case repository.IsUniqueViolation(err, ""):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, entity+" already exists")
	default:
		return storageErr(err, "failed to save "+entity)
	}
}
