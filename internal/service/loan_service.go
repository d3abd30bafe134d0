package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/internal/repository"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

// DefaultMaxActiveLoans is the per-student limit on concurrent ACTIVE loans.
const DefaultMaxActiveLoans = 3

type loanStore interface {
	Create(ctx context.Context, q repository.DBTX, loan *models.Loan) error
	FindByID(ctx context.Context, id string) (*models.Loan, error)
	LockByID(ctx context.Context, q repository.DBTX, id string) (*models.Loan, error)
	CountActiveByStudent(ctx context.Context, q repository.DBTX, studentID string) (int, error)
	MarkReturned(ctx context.Context, q repository.DBTX, id string, returnDate time.Time) (bool, error)
	ListActiveByStudent(ctx context.Context, studentID string) ([]models.Loan, error)
}

type bookLocker interface {
	LockByID(ctx context.Context, q repository.DBTX, id string) (*models.Book, error)
}

type studentLocker interface {
	LockByID(ctx context.Context, q repository.DBTX, id string) (*models.Student, error)
}

type reportInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// LoanServiceConfig carries borrowing rules.
type LoanServiceConfig struct {
	MaxActiveLoans int
}

// LoanService is the loan ledger: it owns every Loan status transition.
type LoanService struct {
	loans     loanStore
	books     bookLocker
	students  studentLocker
	enforcer  *ConsistencyEnforcer
	reports   reportInvalidator
	ids       IDGenerator
	clock     Clock
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       LoanServiceConfig
}

// NewLoanService constructs the ledger.
func NewLoanService(
	loans loanStore,
	books bookLocker,
	students studentLocker,
	enforcer *ConsistencyEnforcer,
	reports reportInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg LoanServiceConfig,
) *LoanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxActiveLoans <= 0 {
		cfg.MaxActiveLoans = DefaultMaxActiveLoans
	}
	return &LoanService{
		loans:     loans,
		books:     books,
		students:  students,
		enforcer:  enforcer,
		reports:   reports,
		ids:       UUIDGenerator{},
		clock:     SystemClock{},
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// WithClock overrides the clock used for default dates.
func (s *LoanService) WithClock(clock Clock) *LoanService {
	s.clock = clock
	return s
}

// WithIDs overrides the loan id generator.
func (s *LoanService) WithIDs(ids IDGenerator) *LoanService {
	s.ids = ids
	return s
}

// CreateLoan lends a book. Availability and the student's loan count are checked under row locks,
// book first and student second, and the loan, book status and history record commit together.
func (s *LoanService) CreateLoan(ctx context.Context, req dto.CreateLoanRequest) (loan *models.Loan, err error) {
	start := time.Now()
	defer func() { s.observe("create", err, start) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid loan payload")
	}
	loanDate, err := parseDate(req.LoanDate, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.enforcer.Atomically(ctx, func(ctx context.Context, q repository.DBTX) error {
		book, err := s.books.LockByID(ctx, q, req.BookID)
		if err != nil {
			return err
		}
		if book == nil {
			return appErrors.Clone(appErrors.ErrBookUnavailable, fmt.Sprintf("book %s does not exist", req.BookID))
		}
		if book.Status != models.BookStatusAvailable {
			return appErrors.Clone(appErrors.ErrBookUnavailable, fmt.Sprintf("book %s is already loaned", req.BookID))
		}

		student, err := s.students.LockByID(ctx, q, req.StudentID)
		if err != nil {
			return err
		}
		if student == nil {
			return appErrors.Clone(appErrors.ErrInvalidParameter, fmt.Sprintf("student %s does not exist", req.StudentID))
		}
		active, err := s.loans.CountActiveByStudent(ctx, q, req.StudentID)
		if err != nil {
			return err
		}
		if active >= s.cfg.MaxActiveLoans {
			return appErrors.Clone(appErrors.ErrLoanLimitExceeded,
				fmt.Sprintf("student %s already has %d active loans", req.StudentID, active))
		}

		candidate := &models.Loan{
			ID:         s.ids.NewID(),
			StudentID:  req.StudentID,
			BookID:     req.BookID,
			OperatorID: req.OperatorID,
			LoanDate:   loanDate,
			Status:     models.LoanStatusActive,
		}
		if err := s.loans.Create(ctx, q, candidate); err != nil {
			return mapLoanWriteError(err)
		}
		if err := s.enforcer.LoanOpened(ctx, q, candidate); err != nil {
			return err
		}
		loan = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	s.logger.Info("loan created",
		zap.String("loan_id", loan.ID), zap.String("book_id", loan.BookID),
		zap.String("student_id", loan.StudentID), zap.String("operator_id", loan.OperatorID))
	return loan, nil
}

// ReturnLoan closes an ACTIVE loan, frees the book and closes its history record in one transaction.
func (s *LoanService) ReturnLoan(ctx context.Context, loanID string, req dto.ReturnLoanRequest) (loan *models.Loan, err error) {
	start := time.Now()
	defer func() { s.observe("return", err, start) }()

	if loanID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidParameter, "loan id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid return payload")
	}
	returnDate, err := parseDate(req.ReturnDate, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.enforcer.Atomically(ctx, func(ctx context.Context, q repository.DBTX) error {
		current, err := s.loans.LockByID(ctx, q, loanID)
		if err != nil {
			return err
		}
		if current == nil {
			return appErrors.Clone(appErrors.ErrLoanNotActive, fmt.Sprintf("loan %s does not exist", loanID))
		}
		if !current.Status.CanTransitionTo(models.LoanStatusReturned) {
			return appErrors.Clone(appErrors.ErrLoanNotActive, fmt.Sprintf("loan %s is %s", loanID, current.Status))
		}
		if returnDate.Before(models.Date(current.LoanDate)) {
			return appErrors.Clone(appErrors.ErrInvalidParameter, "return date precedes loan date")
		}

		updated, err := s.loans.MarkReturned(ctx, q, loanID, returnDate)
		if err != nil {
			return err
		}
		if !updated {
			return appErrors.Clone(appErrors.ErrLoanNotActive, fmt.Sprintf("loan %s is no longer active", loanID))
		}
		current.Status = models.LoanStatusReturned
		current.ReturnDate = &returnDate
		if err := s.enforcer.LoanClosed(ctx, q, current); err != nil {
			return err
		}
		loan = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	s.logger.Info("loan returned", zap.String("loan_id", loan.ID), zap.String("book_id", loan.BookID))
	return loan, nil
}

// GetLoan returns a loan by id.
func (s *LoanService) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	loan, err := s.loans.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr(err, "failed to load loan")
	}
	if loan == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "loan not found")
	}
	return loan, nil
}

// ListActiveByStudent returns the student's open loans.
func (s *LoanService) ListActiveByStudent(ctx context.Context, studentID string) ([]models.Loan, error) {
	loans, err := s.loans.ListActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, storageErr(err, "failed to list loans")
	}
	return loans, nil
}

func (s *LoanService) invalidateReports(ctx context.Context) {
	if s.reports != nil {
		s.reports.InvalidateCache(ctx)
	}
}

func (s *LoanService) observe(operation string, err error, start time.Time) {
	s.metrics.ObserveLoanOperation(operation, errorCode(err), time.Since(start))
	if err != nil && appErrors.FromError(err).Status >= 500 {
		s.logger.Error("loan operation failed", zap.String("operation", operation), zap.Error(err))
	}
}

// mapLoanWriteError translates constraint backstops into ledger errors.
func mapLoanWriteError(err error) error {
	switch {
	case repository.IsUniqueViolation(err, repository.ConstraintOneActiveLoanPerBook):
		return appErrors.Wrap(err, appErrors.ErrBookUnavailable.Code, appErrors.ErrBookUnavailable.Status, "book already has an active loan")
	case repository.IsForeignKeyViolation(err), repository.IsCheckViolation(err):
		return appErrors.Wrap(err, appErrors.ErrInvalidParameter.Code, appErrors.ErrInvalidParameter.Status, "loan references unknown records")
	default:
		return err
	}
}
