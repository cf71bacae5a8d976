// Package sql converts between Go values and engine values and renders the
// SQL statements of mapped tables.
//
// # Binding and reading
//
// A Binder turns native values into velite.Value and a Reader turns them
// back. Both must agree on the date storage mode:
//
//	b := sql.Binder{StoreDateTimeAsTicks: true}
//	v, err := b.Bind(time.Now())  // integer ticks
//
//	r := sql.Reader{StoreDateTimeAsTicks: true}
//	x, err := r.Read(v, reflect.TypeFor[time.Time]())
//
// Ticks count 100ns intervals since 0001-01-01 UTC. In text mode times are
// stored as "2006-01-02T15:04:05.0000000Z".
//
// # Statements
//
// The builders render statements from a schema.TableMapping:
//
//	sql.InsertSQL(m, sql.InsertOrReplace)  // insert or replace into "t"("id", "name") values (?, ?)
//	sql.DeleteSQL(m, 1)                    // delete from "t" where "id" = ?
//	sql.CreateTableSQL(m, sql.TypeMap{})   // create table if not exists "t" (...)
//
// Declared column types come from a TypeMap, where caller supplied types
// take precedence over the built-in registry.
package sql
