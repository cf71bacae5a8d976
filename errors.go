package velite

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("velite: entity not found")

	// ErrTxStarted is returned when attempting to begin a transaction
	// while the connection is already inside one.
	ErrTxStarted = errors.New("velite: cannot begin a transaction while already in a transaction")

	// ErrClosed is returned by operations on a closed connection.
	ErrClosed = errors.New("velite: connection is closed")
)

// ResultCode is a primary or extended SQLite result code.
type ResultCode int

// Result codes surfaced by the engine. Extended codes carry the primary
// code in their low byte.
const (
	CodeOK         ResultCode = 0
	CodeError      ResultCode = 1
	CodeInternal   ResultCode = 2
	CodePerm       ResultCode = 3
	CodeAbort      ResultCode = 4
	CodeBusy       ResultCode = 5
	CodeLocked     ResultCode = 6
	CodeNoMem      ResultCode = 7
	CodeReadOnly   ResultCode = 8
	CodeInterrupt  ResultCode = 9
	CodeIOErr      ResultCode = 10
	CodeCorrupt    ResultCode = 11
	CodeNotFound   ResultCode = 12
	CodeFull       ResultCode = 13
	CodeCantOpen   ResultCode = 14
	CodeProtocol   ResultCode = 15
	CodeEmpty      ResultCode = 16
	CodeSchema     ResultCode = 17
	CodeTooBig     ResultCode = 18
	CodeConstraint ResultCode = 19
	CodeMismatch   ResultCode = 20
	CodeMisuse     ResultCode = 21
	CodeRange      ResultCode = 25
	CodeNotADB     ResultCode = 26
	CodeRow        ResultCode = 100
	CodeDone       ResultCode = 101

	CodeConstraintCheck      ResultCode = CodeConstraint | 1<<8
	CodeConstraintForeignKey ResultCode = CodeConstraint | 3<<8
	CodeConstraintNotNull    ResultCode = CodeConstraint | 5<<8
	CodeConstraintPrimaryKey ResultCode = CodeConstraint | 6<<8
	CodeConstraintUnique     ResultCode = CodeConstraint | 8<<8
)

// Primary returns the primary result code of an extended code.
func (c ResultCode) Primary() ResultCode {
	return c & 0xff
}

// EngineError wraps a result code and message reported by the storage engine.
type EngineError struct {
	Op           string     // Engine operation (e.g., "prepare", "step", "open")
	Code         ResultCode // Primary result code
	ExtendedCode ResultCode // Extended result code, equal to Code when unknown
	Msg          string     // Engine message
	SQL          string     // Statement text, if any
	Err          error      // Underlying driver error
}

// Error returns the error string.
func (e *EngineError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("velite: %s: %s (code %d)", e.Op, e.Msg, e.ExtendedCode)
	}
	return fmt.Sprintf("velite: %s (code %d)", e.Msg, e.ExtendedCode)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError returns a new EngineError. The primary code is derived
// from the extended one.
func NewEngineError(op string, code ResultCode, msg string, err error) *EngineError {
	return &EngineError{Op: op, Code: code.Primary(), ExtendedCode: code, Msg: msg, Err: err}
}

// IsEngineError returns true if the error is (or wraps) an EngineError.
func IsEngineError(err error) bool {
	if err == nil {
		return false
	}
	var e *EngineError
	return errors.As(err, &e)
}

// CodeOf returns the extended result code carried by err, if any.
func CodeOf(err error) (ResultCode, bool) {
	var e *EngineError
	if errors.As(err, &e) {
		return e.ExtendedCode, true
	}
	return CodeOK, false
}

// IsBusy reports whether err is an engine busy or locked error.
func IsBusy(err error) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	p := code.Primary()
	return p == CodeBusy || p == CodeLocked
}

// IsConstraintError reports whether err is any engine constraint violation.
func IsConstraintError(err error) bool {
	code, ok := CodeOf(err)
	return ok && code.Primary() == CodeConstraint
}

// IsUniqueConstraintError reports whether err is a UNIQUE or PRIMARY KEY violation.
func IsUniqueConstraintError(err error) bool {
	code, ok := CodeOf(err)
	return ok && (code == CodeConstraintUnique || code == CodeConstraintPrimaryKey)
}

// NotNullConstraintViolationError is an EngineError raised when a NOT NULL
// constraint fails. Columns lists the not-null columns whose members held
// nil when the statement ran.
type NotNullConstraintViolationError struct {
	*EngineError
	Table   string
	Columns []string
}

// Error returns the error string.
func (e *NotNullConstraintViolationError) Error() string {
	if len(e.Columns) == 0 {
		return fmt.Sprintf("velite: not null constraint failed on %s: %s", e.Table, e.Msg)
	}
	return fmt.Sprintf("velite: not null constraint failed on %s (%s): %s",
		e.Table, strings.Join(e.Columns, ", "), e.Msg)
}

// Unwrap returns the engine error.
func (e *NotNullConstraintViolationError) Unwrap() error {
	return e.EngineError
}

// NewNotNullConstraintViolationError returns a new NotNullConstraintViolationError.
func NewNotNullConstraintViolationError(err *EngineError, table string, columns []string) *NotNullConstraintViolationError {
	return &NotNullConstraintViolationError{EngineError: err, Table: table, Columns: columns}
}

// IsNotNullConstraintViolation returns true if err is a NotNullConstraintViolationError,
// or a bare engine error with the NOT NULL extended code.
func IsNotNullConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	var e *NotNullConstraintViolationError
	if errors.As(err, &e) {
		return true
	}
	code, ok := CodeOf(err)
	return ok && code == CodeConstraintNotNull
}

// UnsupportedTypeError is returned when a value or target type has no
// registered conversion.
type UnsupportedTypeError struct {
	Type   string // Go type name
	Op     string // Operation (e.g., "bind", "read", "map", "ddl")
	Reason string // Optional detail
}

// Error returns the error string.
func (e *UnsupportedTypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("velite: %s: unsupported type %s: %s", e.Op, e.Type, e.Reason)
	}
	return fmt.Sprintf("velite: %s: unsupported type %s", e.Op, e.Type)
}

// NewUnsupportedTypeError returns a new UnsupportedTypeError.
func NewUnsupportedTypeError(op, typ, reason string) *UnsupportedTypeError {
	return &UnsupportedTypeError{Op: op, Type: typ, Reason: reason}
}

// IsUnsupportedType returns true if the error is an UnsupportedTypeError.
func IsUnsupportedType(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedTypeError
	return errors.As(err, &e)
}

// InvalidOperationError is returned for calls that are illegal in the
// connection's current state.
type InvalidOperationError struct {
	Op  string
	Msg string
	Err error
}

// Error returns the error string.
func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("velite: %s: %s", e.Op, e.Msg)
}

// Unwrap returns the underlying error.
func (e *InvalidOperationError) Unwrap() error {
	return e.Err
}

// NewInvalidOperationError returns a new InvalidOperationError.
func NewInvalidOperationError(op, msg string) *InvalidOperationError {
	return &InvalidOperationError{Op: op, Msg: msg}
}

// IsInvalidOperation returns true if the error is an InvalidOperationError.
func IsInvalidOperation(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidOperationError
	return errors.As(err, &e)
}

// ArgumentError is returned when a required argument is missing or malformed.
type ArgumentError struct {
	Arg string
	Msg string
}

// Error returns the error string.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("velite: invalid argument %q: %s", e.Arg, e.Msg)
}

// NewArgumentError returns a new ArgumentError.
func NewArgumentError(arg, msg string) *ArgumentError {
	return &ArgumentError{Arg: arg, Msg: msg}
}

// IsArgumentError returns true if the error is an ArgumentError.
func IsArgumentError(err error) bool {
	if err == nil {
		return false
	}
	var e *ArgumentError
	return errors.As(err, &e)
}

// ConfigError reports an inconsistent entity description, such as two
// auto-increment columns or an index declared both unique and non-unique.
type ConfigError struct {
	Table string
	Msg   string
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("velite: %s: %s", e.Table, e.Msg)
	}
	return fmt.Sprintf("velite: %s", e.Msg)
}

// NewConfigError returns a new ConfigError.
func NewConfigError(table, msg string) *ConfigError {
	return &ConfigError{Table: table, Msg: msg}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the key that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("velite: %s not found (key=%v)", e.label, e.id)
	}
	return fmt.Sprintf("velite: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the table label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the key that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given table.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the key that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}
