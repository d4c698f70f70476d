package repositories

import (
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SQLExecutor is the subset of sqlx used by repository methods. It is
// satisfied by both *sqlx.DB and *sqlx.Tx, so the same method can run
// standalone or inside a caller-owned transaction.
type SQLExecutor interface {
	sqlx.ExtContext
}

const uniqueViolationCode = "23505"

// isUniqueViolation detects duplicate-key errors from both supported
// drivers (lib/pq in production, go-sqlite3 under test).
func isUniqueViolation(err error, constraintHint string) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) != uniqueViolationCode {
			return false
		}
		return constraintHint == "" || strings.Contains(pqErr.Constraint, constraintHint)
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraintHint == "" || strings.Contains(msg, constraintHint)
}
