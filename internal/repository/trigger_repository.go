package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

// TriggerRepository introspects and drops database triggers in the current schema.
type TriggerRepository struct {
	db *sqlx.DB
}

// NewTriggerRepository constructs a TriggerRepository.
func NewTriggerRepository(db *sqlx.DB) *TriggerRepository {
	return &TriggerRepository{db: db}
}

// List returns one row per trigger, merging its events.
func (r *TriggerRepository) List(ctx context.Context) ([]models.Trigger, error) {
	const query = `SELECT trigger_name AS name,
	event_object_table AS table_name,
	string_agg(event_manipulation, ' OR ' ORDER BY event_manipulation) AS event,
	action_timing AS timing,
	action_statement AS statement
FROM information_schema.triggers
WHERE trigger_schema = current_schema()
GROUP BY trigger_name, event_object_table, action_timing, action_statement
ORDER BY event_object_table ASC, trigger_name ASC`
	var triggers []models.Trigger
	if err := r.db.SelectContext(ctx, &triggers, query); err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	return triggers, nil
}

// FindTable returns the table a trigger is attached to, or "" when it does not exist.
func (r *TriggerRepository) FindTable(ctx context.Context, name string) (string, error) {
	const query = `SELECT event_object_table FROM information_schema.triggers
WHERE trigger_schema = current_schema() AND trigger_name = $1
LIMIT 1`
	var table string
	if err := r.db.GetContext(ctx, &table, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("find trigger table: %w", err)
	}
	return table, nil
}

// Drop removes the trigger from table. Both identifiers are quoted.
func (r *TriggerRepository) Drop(ctx context.Context, name, table string) error {
	stmt := fmt.Sprintf("DROP TRIGGER %s ON %s", pq.QuoteIdentifier(name), pq.QuoteIdentifier(table))
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("drop trigger: %w", err)
	}
	return nil
}
