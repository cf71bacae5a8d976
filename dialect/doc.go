// Package dialect defines the capability set velite consumes from the
// storage engine.
//
// # Engine Interface
//
// An Engine is a single engine connection:
//
//	type Engine interface {
//	    Prepare(ctx context.Context, query string) (Stmt, error)
//	    Exec(ctx context.Context, query string, args ...velite.Value) (Result, error)
//	    LastInsertRowID() int64
//	    Changes() int64
//	    SetBusyTimeout(ctx context.Context, d time.Duration) error
//	    NewBackup(ctx context.Context, dest string) (Backup, error)
//	    Serialize(ctx context.Context) ([]byte, error)
//	    Deserialize(ctx context.Context, image []byte) error
//	    Close() error
//	}
//
// # Statement Interface
//
// A Stmt binds velite.Value parameters by 1-based position, steps through
// result rows and exposes the columns of the current row:
//
//	stmt, err := eng.Prepare(ctx, `select "id", "name" from "Person" where "age" > ?`)
//	if err != nil {
//	    return err
//	}
//	defer stmt.Finalize()
//	if err := stmt.Bind(1, velite.Int64(18)); err != nil {
//	    return err
//	}
//	for {
//	    ok, err := stmt.Step(ctx)
//	    if err != nil || !ok {
//	        return err
//	    }
//	    fmt.Println(stmt.Column(0).Int64(), stmt.Column(1).Text())
//	}
//
// Engine failures are reported as *velite.EngineError values carrying the
// engine's extended result code.
//
// # Sub-packages
//
//   - dialect/sqlite: Engine implementation over modernc.org/sqlite
//   - dialect/sql: value binding, column materialization and SQL synthesis
//   - dialect/sql/schema: live table description and additive diffs
package dialect
