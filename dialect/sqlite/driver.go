package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/syssam/velite"
	"github.com/syssam/velite/dialect"
	sqlschema "github.com/syssam/velite/dialect/sql/schema"
)

// Engine is a dialect.Engine over one modernc.org/sqlite connection.
// The database/sql pool behind it is pinned to a single connection so that
// transaction state, temporary objects and in-memory databases are shared
// by every statement.
type Engine struct {
	db    *sql.DB
	conn  *sql.Conn
	owned bool // close db on Close

	path  string
	flags dialect.OpenFlags

	lastID  atomic.Int64
	changes atomic.Int64
	closed  atomic.Bool
	tx      txState

	logger        *slog.Logger
	trace         bool
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
}

// Open opens the database at path with flags.
func Open(ctx context.Context, path string, flags dialect.OpenFlags, opts ...Option) (*Engine, error) {
	db, err := sql.Open(dialect.SQLite, DSN(path, flags))
	if err != nil {
		return nil, Translate("open", "", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	e, err := OpenDB(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	e.owned = true
	e.path = path
	e.flags = flags
	return e, nil
}

// OpenDB wraps an existing database handle, reserving one connection of it.
func OpenDB(ctx context.Context, db *sql.DB, opts ...Option) (*Engine, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, Translate("open", "", err)
	}
	e := &Engine{
		db:            db,
		conn:          conn,
		logger:        slog.Default(),
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Path returns the path the engine was opened with.
func (e *Engine) Path() string { return e.path }

// Flags returns the flags the engine was opened with.
func (e *Engine) Flags() dialect.OpenFlags { return e.flags }

// DB returns the underlying *sql.DB instance.
func (e *Engine) DB() *sql.DB { return e.db }

// InspectTable describes the live table name, or returns nil when it
// does not exist.
func (e *Engine) InspectTable(ctx context.Context, name string) (*sqlschema.Table, error) {
	if e.closed.Load() {
		return nil, velite.ErrClosed
	}
	return sqlschema.Inspect(ctx, e.conn, name)
}

// Prepare implements dialect.Engine.
func (e *Engine) Prepare(ctx context.Context, query string) (dialect.Stmt, error) {
	if e.closed.Load() {
		return nil, velite.ErrClosed
	}
	st, err := e.conn.PrepareContext(ctx, query)
	if err != nil {
		e.stats.Errors.Add(1)
		return nil, Translate("prepare", query, err)
	}
	if e.trace {
		e.logger.DebugContext(ctx, "sqlite: prepare", "sql", query)
	}
	return &stmt{e: e, query: query, st: st}, nil
}

// Exec implements dialect.Engine.
func (e *Engine) Exec(ctx context.Context, query string, args ...velite.Value) (dialect.Result, error) {
	if e.closed.Load() {
		return dialect.Result{}, velite.ErrClosed
	}
	start := time.Now()
	res, err := e.conn.ExecContext(ctx, query, driverArgs(args)...)
	e.record(ctx, query, args, start, err, false)
	if err != nil {
		return dialect.Result{}, Translate("exec", query, err)
	}
	return e.result(res), nil
}

func (e *Engine) result(res sql.Result) dialect.Result {
	var r dialect.Result
	r.LastInsertID, _ = res.LastInsertId()
	r.RowsAffected, _ = res.RowsAffected()
	e.lastID.Store(r.LastInsertID)
	e.changes.Store(r.RowsAffected)
	return r
}

// LastInsertRowID implements dialect.Engine.
func (e *Engine) LastInsertRowID() int64 { return e.lastID.Load() }

// Changes implements dialect.Engine.
func (e *Engine) Changes() int64 { return e.changes.Load() }

// GetAutocommit implements dialect.Engine.
func (e *Engine) GetAutocommit() bool { return e.tx.autocommit() }

// SetBusyTimeout implements dialect.Engine.
func (e *Engine) SetBusyTimeout(ctx context.Context, d time.Duration) error {
	_, err := e.Exec(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", d.Milliseconds()))
	return err
}

// Close implements dialect.Engine.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := e.conn.Close()
	if e.owned {
		if cerr := e.db.Close(); err == nil {
			err = cerr
		}
	}
	return Translate("close", "", err)
}

// driverArgs converts bound values into database/sql arguments.
func driverArgs(args []velite.Value) []any {
	out := make([]any, len(args))
	for i, v := range args {
		out[i] = v.Any()
	}
	return out
}

var _ dialect.Engine = (*Engine)(nil)
