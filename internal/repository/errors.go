package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation  = "23505"
	pqInvalidTextInput = "22P02"

	// UsersEmailConstraint is the unique constraint on users.email.
	UsersEmailConstraint = "users_email_key"
)

// IsUniqueViolation reports whether err is a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}

// IsNotFound reports whether a lookup matched no row. An id that Postgres
// cannot parse as a UUID cannot match a row either.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || pqCode(err) == pqInvalidTextInput
}

// ConstraintName returns the violated constraint, if err carries one.
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}
