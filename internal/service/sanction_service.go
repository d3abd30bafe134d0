package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/internal/repository"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
	"github.com/noah-isme/biblioteca-api/pkg/jobs"
)

// SweepJobType identifies sanction sweep jobs on the background queue.
const SweepJobType = "sanction_sweep"

type overdueFinder interface {
	ListOverdue(ctx context.Context, cutoff time.Time) ([]models.OverdueLoan, error)
}

type sanctionStore interface {
	FindOpen(ctx context.Context, q repository.DBTX, studentID, reason string, asOf time.Time) (*models.Sanction, error)
	Create(ctx context.Context, q repository.DBTX, s *models.Sanction) error
	LockByID(ctx context.Context, q repository.DBTX, id string) (*models.Sanction, error)
	Lift(ctx context.Context, q repository.DBTX, id string, endDate time.Time) error
	ListOpenByStudent(ctx context.Context, studentID string, asOf time.Time) ([]models.Sanction, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// SanctionServiceConfig tunes overdue detection.
type SanctionServiceConfig struct {
	LoanPeriodDays int
	GraceDays      int
	Reason         string
}

// SanctionService derives penalties from overdue loans.
type SanctionService struct {
	loans     overdueFinder
	students  studentLocker
	sanctions sanctionStore
	enforcer  *ConsistencyEnforcer
	ids       IDGenerator
	clock     Clock
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SanctionServiceConfig
}

var errAlreadySanctioned = errors.New("open sanction exists")

// NewSanctionService constructs the sanction engine.
func NewSanctionService(
	loans overdueFinder,
	students studentLocker,
	sanctions sanctionStore,
	enforcer *ConsistencyEnforcer,
	clock Clock,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg SanctionServiceConfig,
) *SanctionService {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LoanPeriodDays <= 0 {
		cfg.LoanPeriodDays = 14
	}
	if cfg.GraceDays < 0 {
		cfg.GraceDays = 0
	}
	if cfg.Reason == "" {
		cfg.Reason = "overdue loan"
	}
	return &SanctionService{
		loans:     loans,
		students:  students,
		sanctions: sanctions,
		enforcer:  enforcer,
		ids:       UUIDGenerator{},
		clock:     clock,
		metrics:   metrics,
		validator: validator.New(),
		logger:    logger,
		cfg:       cfg,
	}
}

// WithIDs overrides the sanction id generator.
func (s *SanctionService) WithIDs(ids IDGenerator) *SanctionService {
	s.ids = ids
	return s
}

// OverdueCutoff returns the earliest loan_date that is not yet overdue on asOf.
// A loan is overdue when loan_date + period + grace < asOf.
func (s *SanctionService) OverdueCutoff(asOf time.Time) time.Time {
	return models.Date(asOf).AddDate(0, 0, -(s.cfg.LoanPeriodDays + s.cfg.GraceDays))
}

// ApplyAutomaticSanctions sanctions every student with an overdue loan who has no open overdue sanction.
// It returns the sanctions created by this run.
func (s *SanctionService) ApplyAutomaticSanctions(ctx context.Context, asOf time.Time) ([]models.Sanction, error) {
	summary, err := s.Sweep(ctx, asOf)
	if summary == nil {
		return nil, err
	}
	return summary.Created, err
}

// Sweep runs one pass and reports per-student outcomes. Failures on one student are logged and
// counted, and evaluation moves on to the next student.
func (s *SanctionService) Sweep(ctx context.Context, asOf time.Time) (*models.SweepSummary, error) {
	start := time.Now()
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	day := models.Date(asOf)
	summary := &models.SweepSummary{AsOf: day, Created: []models.Sanction{}}

	overdue, err := s.loans.ListOverdue(ctx, s.OverdueCutoff(day))
	if err != nil {
		return nil, storageErr(err, "failed to list overdue loans")
	}
	summary.OverdueLoans = len(overdue)

	students := make([]string, 0, len(overdue))
	seen := make(map[string]struct{}, len(overdue))
	for _, loan := range overdue {
		if _, ok := seen[loan.StudentID]; ok {
			continue
		}
		seen[loan.StudentID] = struct{}{}
		students = append(students, loan.StudentID)
	}

	for _, studentID := range students {
		if err := ctx.Err(); err != nil {
			s.finishSweep(summary, start)
			return summary, appErrors.Storage(err, "sanction sweep cancelled")
		}
		summary.StudentsChecked++
		created, err := s.sanctionStudent(ctx, studentID, day)
		switch {
		case err != nil:
			summary.Failed++
			s.logger.Error("sanction evaluation failed", zap.String("student_id", studentID), zap.Error(err))
		case created == nil:
			summary.AlreadyOpen++
		default:
			summary.Created = append(summary.Created, *created)
		}
	}

	s.finishSweep(summary, start)
	return summary, nil
}

func (s *SanctionService) finishSweep(summary *models.SweepSummary, start time.Time) {
	s.metrics.ObserveSweep(time.Since(start), len(summary.Created), summary.AlreadyOpen, summary.Failed)
	s.logger.Info("sanction sweep finished",
		zap.Time("as_of", summary.AsOf),
		zap.Int("overdue_loans", summary.OverdueLoans),
		zap.Int("students", summary.StudentsChecked),
		zap.Int("created", len(summary.Created)),
		zap.Int("already_open", summary.AlreadyOpen),
		zap.Int("failed", summary.Failed))
}

// sanctionStudent returns nil without error when an open sanction already exists.
func (s *SanctionService) sanctionStudent(ctx context.Context, studentID string, day time.Time) (*models.Sanction, error) {
	var created *models.Sanction
	err := s.enforcer.Atomically(ctx, func(ctx context.Context, q repository.DBTX) error {
		student, err := s.students.LockByID(ctx, q, studentID)
		if err != nil {
			return err
		}
		if student == nil {
			return appErrors.Clone(appErrors.ErrInvalidParameter, fmt.Sprintf("student %s does not exist", studentID))
		}
		open, err := s.sanctions.FindOpen(ctx, q, studentID, s.cfg.Reason, day)
		if err != nil {
			return err
		}
		if open != nil {
			return errAlreadySanctioned
		}
		sanction := &models.Sanction{
			ID:        s.ids.NewID(),
			StudentID: studentID,
			Reason:    s.cfg.Reason,
			StartDate: day,
		}
		if err := s.sanctions.Create(ctx, q, sanction); err != nil {
			if repository.IsUniqueViolation(err, repository.ConstraintOneOpenSanction) {
				return errAlreadySanctioned
			}
			return err
		}
		created = sanction
		return nil
	})
	if errors.Is(err, errAlreadySanctioned) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// LiftSanction ends an open sanction.
func (s *SanctionService) LiftSanction(ctx context.Context, id string, req dto.LiftSanctionRequest) (*models.Sanction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid lift payload")
	}
	endDate, err := parseDate(req.EndDate, s.clock.Now())
	if err != nil {
		return nil, err
	}

	var lifted *models.Sanction
	err = s.enforcer.Atomically(ctx, func(ctx context.Context, q repository.DBTX) error {
		sanction, err := s.sanctions.LockByID(ctx, q, id)
		if err != nil {
			return err
		}
		if sanction == nil {
			return appErrors.Clone(appErrors.ErrNotFound, "sanction not found")
		}
		if sanction.EndDate != nil {
			return appErrors.Clone(appErrors.ErrSanctionClosed, fmt.Sprintf("sanction %s already ended", id))
		}
		if endDate.Before(models.Date(sanction.StartDate)) {
			return appErrors.Clone(appErrors.ErrInvalidParameter, "end date precedes start date")
		}
		if err := s.sanctions.Lift(ctx, q, id, endDate); err != nil {
			return err
		}
		sanction.EndDate = &endDate
		lifted = sanction
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("sanction lifted", zap.String("sanction_id", id), zap.String("student_id", lifted.StudentID))
	return lifted, nil
}

// ListOpenByStudent returns the student's sanctions in force today.
func (s *SanctionService) ListOpenByStudent(ctx context.Context, studentID string) ([]models.Sanction, error) {
	sanctions, err := s.sanctions.ListOpenByStudent(ctx, studentID, models.Date(s.clock.Now()))
	if err != nil {
		return nil, storageErr(err, "failed to list sanctions")
	}
	return sanctions, nil
}

// HandleJob runs a queued sweep. The payload may carry the evaluation date.
func (s *SanctionService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != SweepJobType {
		return fmt.Errorf("unsupported job type %q", job.Type)
	}
	var asOf time.Time
	if t, ok := job.Payload.(time.Time); ok {
		asOf = t
	}
	_, err := s.Sweep(ctx, asOf)
	return err
}

// StartScheduler enqueues a sweep every interval until ctx is done. The queue coalesces sweeps so
// they never overlap.
func (s *SanctionService) StartScheduler(ctx context.Context, queue jobEnqueuer, interval time.Duration) {
	if interval <= 0 || queue == nil {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.enqueueSweep(queue)
			}
		}
	}()
	s.logger.Info("sanction scheduler started", zap.Duration("interval", interval))
}

func (s *SanctionService) enqueueSweep(queue jobEnqueuer) {
	err := queue.Enqueue(jobs.Job{Type: SweepJobType})
	switch {
	case errors.Is(err, jobs.ErrAlreadyQueued):
		s.logger.Debug("sanction sweep already pending")
	case err != nil:
		s.logger.Warn("enqueue sanction sweep failed", zap.Error(err))
	}
}
