package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	sqlite3 "modernc.org/sqlite/lib"

	"github.com/syssam/velite"
)

// errorCoder is implemented by engine errors carrying a numeric result
// code, such as *sqlite.Error of modernc.org/sqlite.
type errorCoder interface {
	Code() int
}

// messageCodes classifies errors of drivers that report no code.
var messageCodes = []struct {
	substr string
	code   velite.ResultCode
}{
	{"NOT NULL constraint failed", sqlite3.SQLITE_CONSTRAINT_NOTNULL},
	{"UNIQUE constraint failed", sqlite3.SQLITE_CONSTRAINT_UNIQUE},
	{"PRIMARY KEY constraint failed", sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY},
	{"FOREIGN KEY constraint failed", sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY},
	{"CHECK constraint failed", sqlite3.SQLITE_CONSTRAINT_CHECK},
	{"database table is locked", sqlite3.SQLITE_LOCKED},
	{"database is locked", sqlite3.SQLITE_BUSY},
	{"disk I/O error", sqlite3.SQLITE_IOERR},
	{"database or disk is full", sqlite3.SQLITE_FULL},
	{"out of memory", sqlite3.SQLITE_NOMEM},
}

// Translate converts a driver error into a *velite.EngineError. Context
// errors and errors that already are engine errors pass through unchanged.
func Translate(op, query string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ee *velite.EngineError
	if errors.As(err, &ee) {
		return err
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return errors.Join(velite.ErrClosed, err)
	}
	code := velite.CodeError
	if c, ok := asError[errorCoder](err); ok {
		code = velite.ResultCode(c.Code())
	}
	// Primary codes without the extended part are refined from the message.
	if code == velite.CodeError || code == velite.CodeConstraint {
		msg := err.Error()
		for _, mc := range messageCodes {
			if strings.Contains(msg, mc.substr) {
				code = mc.code
				break
			}
		}
	}
	ee = velite.NewEngineError(op, code, err.Error(), err)
	ee.SQL = query
	return ee
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}
