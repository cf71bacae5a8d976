// Package orm maps Go structs onto tables of an embedded SQLite database.
//
// A Conn owns one engine connection. Entity types are described by their
// exported fields and `sqlite` struct tags; their mappings are built on
// first use and cached per connection.
//
//	type Stock struct {
//	    ID     int64  `sqlite:"id,pk,autoincrement"`
//	    Symbol string `sqlite:"symbol,notnull,unique"`
//	}
//
//	conn, err := orm.Open(ctx, "app.db")
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	if _, err := orm.CreateTable[Stock](ctx, conn); err != nil {
//	    return err
//	}
//	s := &Stock{Symbol: "ACME"}
//	if _, err := conn.Insert(ctx, s); err != nil {
//	    return err
//	}
//	got, err := orm.Get[Stock](ctx, conn, s.ID)
//
// Raw SQL goes through Execute, ExecuteScalar, Query and DeferredQuery.
// Transactions are either explicit (BeginTransaction, SavePoint, Commit)
// or scoped with RunInTransaction, which rolls back when its function
// returns an error or panics.
package orm
