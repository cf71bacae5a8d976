// Package velite is an object-relational mapping layer over an embedded
// SQLite engine.
//
// The root package holds the types shared by every layer: the error
// taxonomy, the closed Value union exchanged with the engine, and the
// capability interfaces entities and callers can implement.
//
// # Packages
//
//   - schema: entity introspection and table mappings
//   - dialect: the storage engine capability interfaces
//   - dialect/sqlite: the modernc.org/sqlite engine
//   - dialect/sql: value binding, row materialization and SQL synthesis
//   - dialect/sql/schema: live table descriptions and additive diffs
//   - orm: the connection, CRUD, queries, transactions and backup
//
// # Usage
//
//	type Stock struct {
//	    ID     int64  `sqlite:"id,pk,autoincrement"`
//	    Symbol string `sqlite:"symbol,notnull,unique"`
//	}
//
//	db, err := orm.Open(ctx, "stocks.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if _, err := orm.CreateTable[Stock](ctx, db); err != nil {
//	    log.Fatal(err)
//	}
//	s := &Stock{Symbol: "ACME"}
//	if _, err := db.Insert(ctx, s); err != nil {
//	    log.Fatal(err)
//	}
//	got, err := orm.Get[Stock](ctx, db, s.ID)
//
// # Errors
//
// Every entry point returns one of the error types in this package:
// EngineError, NotNullConstraintViolationError, UnsupportedTypeError,
// InvalidOperationError, ArgumentError, ConfigError or NotFoundError.
// Use the Is helpers to classify them:
//
//	if velite.IsNotNullConstraintViolation(err) {
//	    var nn *velite.NotNullConstraintViolationError
//	    errors.As(err, &nn)
//	    log.Println("missing:", nn.Columns)
//	}
package velite
