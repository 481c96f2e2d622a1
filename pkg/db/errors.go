package db

import (
	"strings"

	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
)

const sqlStateUniqueViolation = "23505"

// SQLSTATE codes raised when a transaction loses a race for a row.
var contentionSQLStates = map[string]struct{}{
	"55P03": {}, // lock_not_available
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"57014": {}, // query_canceled (statement_timeout)
}

// IsUniqueViolation reports whether err is a unique-key violation, optionally
// restricted to constraintName. Sqlite errors are matched by message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg := pkgerrors.PostgresError(err); pg != nil {
		return pg.Code == sqlStateUniqueViolation &&
			(constraintName == "" || pg.Constraint == constraintName)
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsContention reports whether err means a lock wait was abandoned or the
// transaction was chosen as a deadlock victim. Callers may retry.
func IsContention(err error) bool {
	if err == nil {
		return false
	}
	if pg := pkgerrors.PostgresError(err); pg != nil {
		_, ok := contentionSQLStates[pg.Code]
		return ok
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
