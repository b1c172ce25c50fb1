// Package sqlxrepos implements the core repository interfaces on postgres
// via sqlx. Failures are classified into the tagged core.Error contract at
// this boundary; nothing above it matches on driver error strings.
package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// classify maps a driver error to the tagged error contract. "no rows" maps
// to the entity's own notFound sentinel so service-level errors.Cause checks
// keep working.
func classify(err error, notFound *core.Error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		switch pqErr.Code.Class() {
		case "23": // integrity_constraint_violation
			return core.WrapError(core.KindConflict, err, msg)
		case "08": // connection_exception
			return core.WrapError(core.KindNetwork, err, msg)
		case "53": // insufficient_resources
			return core.WrapError(core.KindRateLimited, err, msg)
		}
	}
	return core.WrapError(core.KindInternal, err, msg)
}

// isUniqueViolation reports a duplicate-key failure so repos can substitute
// their domain conflict sentinel.
func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == "23505"
}
