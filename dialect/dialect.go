package dialect

import (
	"context"
	"time"

	"github.com/syssam/velite"
)

// SQLite is the database/sql driver name of the embedded engine.
const SQLite = "sqlite"

// OpenFlags select how a database file is opened. The values match the
// engine's SQLITE_OPEN_* flags.
type OpenFlags int

const (
	OpenReadOnly     OpenFlags = 0x00000001
	OpenReadWrite    OpenFlags = 0x00000002
	OpenCreate       OpenFlags = 0x00000004
	OpenURI          OpenFlags = 0x00000040
	OpenMemory       OpenFlags = 0x00000080
	OpenNoMutex      OpenFlags = 0x00008000
	OpenFullMutex    OpenFlags = 0x00010000
	OpenSharedCache  OpenFlags = 0x00020000
	OpenPrivateCache OpenFlags = 0x00040000

	// OpenDefault opens read-write, creating the file if missing.
	OpenDefault = OpenReadWrite | OpenCreate | OpenFullMutex
)

// Has reports whether all bits of f2 are set in f.
func (f OpenFlags) Has(f2 OpenFlags) bool { return f&f2 == f2 }

// Result reports the effect of an executed statement.
type Result struct {
	LastInsertID int64
	RowsAffected int64
}

// Engine is one connection to the storage engine.
type Engine interface {
	// Prepare compiles query into a statement.
	Prepare(ctx context.Context, query string) (Stmt, error)
	// Exec runs query once with positional arguments.
	Exec(ctx context.Context, query string, args ...velite.Value) (Result, error)
	// LastInsertRowID returns the rowid of the most recent successful insert.
	LastInsertRowID() int64
	// Changes returns the rows changed by the most recent statement.
	Changes() int64
	// GetAutocommit reports whether no transaction is open.
	GetAutocommit() bool
	// SetBusyTimeout sets how long the engine retries on locked tables.
	SetBusyTimeout(ctx context.Context, d time.Duration) error
	// NewBackup starts an online backup of the main database into dest.
	NewBackup(ctx context.Context, dest string) (Backup, error)
	// Serialize returns the main database as a byte image.
	Serialize(ctx context.Context) ([]byte, error)
	// Deserialize replaces the main database with a byte image.
	Deserialize(ctx context.Context, image []byte) error
	// Close releases the connection.
	Close() error
}

// Stmt is a prepared statement. It is not safe for concurrent use.
//
// A statement moves from bound parameters through Step calls that each
// expose one row, until Step reports no more rows. Reset returns it to the
// start with bindings kept; Finalize releases it.
type Stmt interface {
	// SQL returns the statement text.
	SQL() string
	// Bind sets the 1-based parameter i.
	Bind(i int, v velite.Value) error
	// ClearBindings resets all parameters to NULL.
	ClearBindings()
	// Step advances to the next row, reporting false when done.
	Step(ctx context.Context) (bool, error)
	// ColumnCount returns the number of result columns.
	ColumnCount() int
	// ColumnName returns the name of result column i.
	ColumnName(i int) string
	// ColumnType returns the storage class of column i in the current row.
	ColumnType(i int) velite.Kind
	// Column returns column i of the current row.
	Column(i int) velite.Value
	// Exec runs the statement to completion with the current bindings.
	Exec(ctx context.Context) (Result, error)
	// Reset rewinds the statement, keeping bindings.
	Reset() error
	// Finalize releases the statement.
	Finalize() error
}

// Backup copies a database page range at a time.
type Backup interface {
	// Step copies up to n pages, reporting true when more pages remain.
	Step(n int) (more bool, err error)
	// Finish releases the backup.
	Finish() error
}
