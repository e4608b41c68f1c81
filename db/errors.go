package db

import (
	"strings"

	"github.com/emberline/curator/errors"
)

// ErrDatabaseClosed is returned for operations attempted on a closed
// catalog database, typically during shutdown after the connection was
// released but before a run finished its bookkeeping.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether an error means the catalog
// connection is gone. Raw driver errors cannot be wrapped at their
// source, so a message check backs up the sentinel comparison.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "sql: database is closed")
}
