package db

import (
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// The helpers below classify the failures the store itself raises. They see
// through wrapping, so repository errors can be passed straight in.

// IsUniqueViolation reports a duplicate value in a UNIQUE column (e.g. users.username).
func IsUniqueViolation(err error) bool {
	return sqliteExtended(err, sqlite3.ErrConstraintUnique) || pqCode(err, "unique_violation")
}

// IsNotNullViolation reports a missing value for a NOT NULL column.
func IsNotNullViolation(err error) bool {
	return sqliteExtended(err, sqlite3.ErrConstraintNotNull) || pqCode(err, "not_null_violation")
}

// IsForeignKeyViolation reports a notes.user_id that does not reference an existing user.
func IsForeignKeyViolation(err error) bool {
	return sqliteExtended(err, sqlite3.ErrConstraintForeignKey) || pqCode(err, "foreign_key_violation")
}

// IsCheckViolation reports a CHECK failure, such as a role outside the known set.
func IsCheckViolation(err error) bool {
	return sqliteExtended(err, sqlite3.ErrConstraintCheck) || pqCode(err, "check_violation")
}

// IsTypeViolation reports a value the store could not coerce to the column type.
func IsTypeViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrMismatch {
		return true
	}
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code.Class() == "22"
}

func sqliteExtended(err error, code sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == code
}

func pqCode(err error, name string) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code.Name() == name
}
