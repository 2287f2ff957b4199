package repository

import (
	stderrors "errors"

	"github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/consensus/internal/errors"
)

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation (SQL, NoSQL, etc.)
// from the service layer.
var ErrNotFound = stderrors.New("record not found")

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure
func isUniqueViolation(err error) bool {
	var sqErr sqlite3.Error
	if stderrors.As(err, &sqErr) {
		return sqErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY constraint failure
func isForeignKeyViolation(err error) bool {
	var sqErr sqlite3.Error
	if stderrors.As(err, &sqErr) {
		return sqErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

// translateWriteError maps constraint failures to application errors
func translateWriteError(err error, conflictMsg, missingMsg string) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return errors.Wrap(err, errors.ErrConflict, conflictMsg)
	case isForeignKeyViolation(err):
		return errors.Wrap(err, errors.ErrNotFound, missingMsg)
	default:
		return err
	}
}
