// Package sqlite implements dialect.Engine over modernc.org/sqlite.
//
// An Engine owns one connection. Open pins the database/sql pool to a
// single connection, so transaction state and ":memory:" databases are seen
// by every statement of the engine:
//
//	eng, err := sqlite.Open(ctx, "app.db", dialect.OpenDefault,
//	    sqlite.WithSlowThreshold(200*time.Millisecond),
//	    sqlite.WithSlowQueryLog(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	// Later, check statistics:
//	fmt.Println(eng.QueryStats().Stats())
//
// Driver errors are translated into *velite.EngineError with the engine's
// extended result code. Errors of drivers that report no code (such as
// sqlmock in tests) are classified by message.
//
// Online backup, Serialize and Deserialize reach the modernc connection
// through (*sql.Conn).Raw.
package sqlite
