package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns the student or nil when missing.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return r.get(ctx, r.db, `SELECT id, name, semester, career_id FROM students WHERE id = $1`, id)
}

// LockByID reads the student holding a row lock, serialising loan-count checks per student.
func (r *StudentRepository) LockByID(ctx context.Context, q DBTX, id string) (*models.Student, error) {
	return r.get(ctx, q, `SELECT id, name, semester, career_id FROM students WHERE id = $1 FOR UPDATE`, id)
}

func (r *StudentRepository) get(ctx context.Context, q DBTX, query, id string) (*models.Student, error) {
	var student models.Student
	if err := sqlx.GetContext(ctx, q, &student, query, id); err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &student, nil
}

// Create inserts a student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	const query = `INSERT INTO students (id, name, semester, career_id) VALUES (:id, :name, :semester, :career_id)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// ClampSemesters lowers every semester above limit (and within the valid range) to limit.
func (r *StudentRepository) ClampSemesters(ctx context.Context, limit int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET semester = $1 WHERE semester > $1 AND semester <= $2`, limit, models.MaxSemester)
	if err != nil {
		return 0, fmt.Errorf("clamp semesters: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clamp semesters rows affected: %w", err)
	}
	return n, nil
}
