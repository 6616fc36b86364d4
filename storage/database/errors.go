package database

import (
	"database/sql"
	"database/sql/driver"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/trezcool/summercamps/core"
)

// PostgreSQL error codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInsufficientPriv    = "42501"
)

// database/sql does not export the error returned once the pool is closed.
const dbClosedMsg = "sql: database is closed"

// TranslateError maps driver errors onto the core storage errors, keeping the
// driver message. A lost or closed connection becomes a shutdown error.
// Other errors are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if connectionLost(err) {
		return core.NewShutdownError("database connection lost: " + err.Error())
	}

	var sentinel error
	var pqErr *pq.Error
	var pgErr *pgconn.PgError
	var liteErr *sqlite.Error
	switch {
	case errors.As(err, &pqErr):
		sentinel = pgSentinel(string(pqErr.Code))
	case errors.As(err, &pgErr):
		sentinel = pgSentinel(pgErr.Code)
	case errors.As(err, &liteErr):
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			sentinel = core.ErrUniqueViolation
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			sentinel = core.ErrForeignKeyViolation
		case sqlite3.SQLITE_AUTH, sqlite3.SQLITE_PERM:
			sentinel = core.ErrPermissionDenied
		case sqlite3.SQLITE_CONSTRAINT:
			// primary code only: tell constraints apart by message
			msg := liteErr.Error()
			if strings.Contains(msg, "UNIQUE constraint failed") {
				sentinel = core.ErrUniqueViolation
			} else if strings.Contains(msg, "FOREIGN KEY constraint failed") {
				sentinel = core.ErrForeignKeyViolation
			}
		}
	}
	if sentinel == nil {
		return err
	}
	return errors.Wrap(sentinel, err.Error())
}

func connectionLost(err error) bool {
	return errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, driver.ErrBadConn) ||
		strings.Contains(err.Error(), dbClosedMsg)
}

func pgSentinel(code string) error {
	switch code {
	case pgUniqueViolation:
		return core.ErrUniqueViolation
	case pgForeignKeyViolation:
		return core.ErrForeignKeyViolation
	case pgInsufficientPriv:
		return core.ErrPermissionDenied
	}
	return nil
}
