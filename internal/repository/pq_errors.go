package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

const (
	codeUniqueViolation     pq.ErrorCode = "23505"
	codeForeignKeyViolation pq.ErrorCode = "23503"
	codeCheckViolation      pq.ErrorCode = "23514"
	codeInvalidText         pq.ErrorCode = "22P02"
)

// Constraint names referenced by callers.
const (
	ConstraintOneActiveLoanPerBook = "loans_one_active_per_book"
	ConstraintOneOpenSanction      = "sanctions_one_open_per_reason"
)

func pqCode(err error) (pq.ErrorCode, string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", "", false
	}
	return pqErr.Code, pqErr.Constraint, true
}

// IsUniqueViolation reports a unique violation, optionally restricted to a constraint name.
func IsUniqueViolation(err error, constraint string) bool {
	code, name, ok := pqCode(err)
	return ok && code == codeUniqueViolation && (constraint == "" || name == constraint)
}

// IsForeignKeyViolation reports a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	code, _, ok := pqCode(err)
	return ok && code == codeForeignKeyViolation
}

// IsCheckViolation reports a CHECK constraint violation.
func IsCheckViolation(err error) bool {
	code, _, ok := pqCode(err)
	return ok && code == codeCheckViolation
}

// IsInvalidTextRepresentation reports a value Postgres could not parse for its column type, such as a malformed UUID.
func IsInvalidTextRepresentation(err error) bool {
	code, _, ok := pqCode(err)
	return ok && code == codeInvalidText
}

// noRow reports a keyed lookup that matched nothing. A malformed key cannot name a row. Postgres aborts the
// surrounding transaction in that case, so callers must treat the miss as terminal.
func noRow(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || IsInvalidTextRepresentation(err)
}
