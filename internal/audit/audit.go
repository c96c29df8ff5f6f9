// Package audit records writes against the store as structured log entries.
// Every entry carries the fields action, resource, resource_id and result.
package audit

import (
	"database/sql"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"secureNotes/internal/db"
)

type Action string

const (
	Create Action = "CREATE"
	Update Action = "UPDATE"
	Delete Action = "DELETE"
	Reset  Action = "RESET"
)

type Resource string

const (
	User   Resource = "USER"
	Note   Resource = "NOTE"
	Schema Resource = "SCHEMA"
)

type Result string

const (
	Success  Result = "SUCCESS"
	Denied   Result = "DENIED"
	NotFound Result = "NOT_FOUND"
	Failure  Result = "FAILURE"
)

// Logger writes audit entries through a logrus logger.
type Logger struct {
	log logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Logger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Logger{log: log}
}

// ResultOf maps the outcome of a repository call to an audit result.
// A write that matched no row (sql.ErrNoRows) is NOT_FOUND; any other error,
// including constraint violations, is FAILURE.
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, sql.ErrNoRows):
		return NotFound
	}
	return Failure
}

// Log emits one audit entry. DENIED and FAILURE are logged at warn level.
func (l *Logger) Log(action Action, resource Resource, id any, result Result, details string) {
	entry := l.log.WithFields(logrus.Fields{
		"audit":       true,
		"action":      string(action),
		"resource":    string(resource),
		"resource_id": id,
		"result":      string(result),
	})
	if details != "" {
		entry = entry.WithField("details", details)
	}
	switch result {
	case Denied, Failure:
		entry.Warn("audit")
	default:
		entry.Info("audit")
	}
}

// Record logs the outcome of a write and returns err unchanged, so callers can
// write `return a.audit.Record(..., err)`.
func (l *Logger) Record(action Action, resource Resource, id any, err error) error {
	l.Log(action, resource, id, ResultOf(err), detailsOf(err))
	return err
}

func detailsOf(err error) string {
	switch {
	case err == nil:
		return ""
	case db.IsUniqueViolation(err):
		return "unique violation"
	case db.IsNotNullViolation(err):
		return "not-null violation"
	case db.IsForeignKeyViolation(err):
		return "foreign key violation"
	case db.IsCheckViolation(err):
		return "check violation"
	case db.IsTypeViolation(err):
		return "type violation"
	case errors.Is(err, sql.ErrNoRows):
		return ""
	}
	return err.Error()
}
