package db

import (
	"strings"

	"github.com/teranos/fedlens/errors"
)

// ErrDatabaseClosed is returned when operations run after the database was closed.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err means the connection is gone. The
// driver returns its own unwrapped errors, so the message is matched too.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
