package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

const sanctionColumns = `id, student_id, reason, start_date, end_date`

// SanctionRepository persists student sanctions.
type SanctionRepository struct {
	db *sqlx.DB
}

// NewSanctionRepository constructs a SanctionRepository.
func NewSanctionRepository(db *sqlx.DB) *SanctionRepository {
	return &SanctionRepository{db: db}
}

// FindOpen returns the sanction for student and reason still in force on asOf, or nil.
func (r *SanctionRepository) FindOpen(ctx context.Context, q DBTX, studentID, reason string, asOf time.Time) (*models.Sanction, error) {
	const query = `SELECT ` + sanctionColumns + ` FROM sanctions
WHERE student_id = $1 AND reason = $2 AND (end_date IS NULL OR end_date >= $3)
ORDER BY start_date DESC
LIMIT 1`
	var sanction models.Sanction
	if err := sqlx.GetContext(ctx, q, &sanction, query, studentID, reason, asOf); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open sanction: %w", err)
	}
	return &sanction, nil
}

// Create inserts a sanction inside q.
func (r *SanctionRepository) Create(ctx context.Context, q DBTX, s *models.Sanction) error {
	const query = `INSERT INTO sanctions (` + sanctionColumns + `) VALUES ($1, $2, $3, $4, $5)`
	if _, err := q.ExecContext(ctx, query, s.ID, s.StudentID, s.Reason, s.StartDate, s.EndDate); err != nil {
		return fmt.Errorf("insert sanction: %w", err)
	}
	return nil
}

// LockByID reads a sanction under a row lock.
func (r *SanctionRepository) LockByID(ctx context.Context, q DBTX, id string) (*models.Sanction, error) {
	var sanction models.Sanction
	if err := sqlx.GetContext(ctx, q, &sanction, `SELECT `+sanctionColumns+` FROM sanctions WHERE id = $1 FOR UPDATE`, id); err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sanction: %w", err)
	}
	return &sanction, nil
}

// Lift sets the end date of an open sanction.
func (r *SanctionRepository) Lift(ctx context.Context, q DBTX, id string, endDate time.Time) error {
	res, err := q.ExecContext(ctx, `UPDATE sanctions SET end_date = $1 WHERE id = $2 AND end_date IS NULL`, endDate, id)
	if err != nil {
		return fmt.Errorf("lift sanction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("lift sanction: %s already lifted", id)
	}
	return nil
}

// ListOpenByStudent returns the student's sanctions in force on asOf.
func (r *SanctionRepository) ListOpenByStudent(ctx context.Context, studentID string, asOf time.Time) ([]models.Sanction, error) {
	const query = `SELECT ` + sanctionColumns + ` FROM sanctions
WHERE student_id = $1 AND (end_date IS NULL OR end_date >= $2)
ORDER BY start_date DESC`
	var sanctions []models.Sanction
	if err := r.db.SelectContext(ctx, &sanctions, query, studentID, asOf); err != nil {
		return nil, fmt.Errorf("list open sanctions: %w", err)
	}
	return sanctions, nil
}
