package store

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// IsConstraintViolation reports whether err is a SQLite constraint failure
// (UNIQUE, NOT NULL, CHECK, FOREIGN KEY).
func IsConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
