package service

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

// DefaultSemesterCap is the highest semester kept by the correction job.
const DefaultSemesterCap = 9

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

type semesterClamper interface {
	ClampSemesters(ctx context.Context, limit int) (int64, error)
}

type triggerStore interface {
	List(ctx context.Context) ([]models.Trigger, error)
	FindTable(ctx context.Context, name string) (string, error)
	Drop(ctx context.Context, name, table string) error
}

// MaintenanceService groups operational tasks kept outside the ledger invariants.
type MaintenanceService struct {
	students    semesterClamper
	triggers    triggerStore
	semesterCap int
	logger      *zap.Logger
}

// NewMaintenanceService constructs a MaintenanceService.
func NewMaintenanceService(students semesterClamper, triggers triggerStore, semesterCap int, logger *zap.Logger) *MaintenanceService {
	if semesterCap < models.MinSemester || semesterCap > models.MaxSemester {
		semesterCap = DefaultSemesterCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{students: students, triggers: triggers, semesterCap: semesterCap, logger: logger}
}

// ClampSemesters lowers semesters above the cap in a single statement.
func (s *MaintenanceService) ClampSemesters(ctx context.Context) (*dto.ClampSemestersResult, error) {
	n, err := s.students.ClampSemesters(ctx, s.semesterCap)
	if err != nil {
		return nil, storageErr(err, "failed to clamp semesters")
	}
	s.logger.Info("semesters clamped", zap.Int("cap", s.semesterCap), zap.Int64("updated", n))
	return &dto.ClampSemestersResult{Cap: s.semesterCap, Updated: n}, nil
}

// ListTriggers lists triggers in the current schema.
func (s *MaintenanceService) ListTriggers(ctx context.Context) ([]models.Trigger, error) {
	triggers, err := s.triggers.List(ctx)
	if err != nil {
		return nil, storageErr(err, "failed to list triggers")
	}
	if triggers == nil {
		triggers = []models.Trigger{}
	}
	return triggers, nil
}

// RemoveTrigger drops a trigger by name.
func (s *MaintenanceService) RemoveTrigger(ctx context.Context, name string) error {
	if !identifierPattern.MatchString(name) {
		return appErrors.Clone(appErrors.ErrInvalidParameter, "invalid trigger name")
	}
	table, err := s.triggers.FindTable(ctx, name)
	if err != nil {
		return storageErr(err, "failed to look up trigger")
	}
	if table == "" {
		return appErrors.Clone(appErrors.ErrNotFound, "trigger not found")
	}
	if err := s.triggers.Drop(ctx, name, table); err != nil {
		return storageErr(err, "failed to drop trigger")
	}
	s.logger.Info("trigger removed", zap.String("trigger", name), zap.String("table", table))
	return nil
}

// WarnLegacyTriggers logs triggers on ledger tables, which would apply the derived writes twice.
func (s *MaintenanceService) WarnLegacyTriggers(ctx context.Context) []models.Trigger {
	triggers, err := s.triggers.List(ctx)
	if err != nil {
		s.logger.Warn("trigger inspection failed", zap.Error(err))
		return nil
	}
	var legacy []models.Trigger
	for _, t := range triggers {
		switch t.Table {
		case "loans", "books", "historical_records":
			legacy = append(legacy, t)
			s.logger.Warn("legacy trigger on ledger table",
				zap.String("trigger", t.Name), zap.String("table", t.Table), zap.String("event", t.Event))
		}
	}
	return legacy
}
