package repository

import (
	"errors"

	"dukapos/internal/apperr"

	"gorm.io/gorm"
)

// duplicateAsConflict maps a unique-index violation to a conflict error.
// The partial unique indexes backstop the services' check-then-insert
// sequences; a lost race lands here instead of surfacing as a 500.
func duplicateAsConflict(err error, msg string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(msg, args...)
	}
	return err
}
