package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

// CatalogRepository persists reference data: careers, authors, publishers, categories and operators.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) insert(ctx context.Context, what, query string, arg interface{}) error {
	if _, err := r.db.NamedExecContext(ctx, query, arg); err != nil {
		return fmt.Errorf("create %s: %w", what, err)
	}
	return nil
}

// CreateCareer inserts a career.
func (r *CatalogRepository) CreateCareer(ctx context.Context, career *models.Career) error {
	return r.insert(ctx, "career", `INSERT INTO careers (id, name) VALUES (:id, :name)`, career)
}

// CreateAuthor inserts an author.
func (r *CatalogRepository) CreateAuthor(ctx context.Context, author *models.Author) error {
	return r.insert(ctx, "author", `INSERT INTO authors (id, name, nationality) VALUES (:id, :name, :nationality)`, author)
}

// CreatePublisher inserts a publisher.
func (r *CatalogRepository) CreatePublisher(ctx context.Context, publisher *models.Publisher) error {
	return r.insert(ctx, "publisher", `INSERT INTO publishers (id, name, country) VALUES (:id, :name, :country)`, publisher)
}

// CreateCategory inserts a category.
func (r *CatalogRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.insert(ctx, "category", `INSERT INTO categories (id, name) VALUES (:id, :name)`, category)
}

// CreateOperator inserts an operator.
func (r *CatalogRepository) CreateOperator(ctx context.Context, operator *models.Operator) error {
	return r.insert(ctx, "operator", `INSERT INTO operators (id, name, email, role) VALUES (:id, :name, :email, :role)`, operator)
}

// FindOperatorByID returns the operator or nil when missing.
func (r *CatalogRepository) FindOperatorByID(ctx context.Context, id string) (*models.Operator, error) {
	var operator models.Operator
	if err := r.db.GetContext(ctx, &operator, `SELECT id, name, email, role FROM operators WHERE id = $1`, id); err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get operator: %w", err)
	}
	return &operator, nil
}

// ListCareers returns all careers ordered by name.
func (r *CatalogRepository) ListCareers(ctx context.Context) ([]models.Career, error) {
	var careers []models.Career
	if err := r.db.SelectContext(ctx, &careers, `SELECT id, name FROM careers ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list careers: %w", err)
	}
	return careers, nil
}
