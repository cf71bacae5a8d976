package orm

import (
	"context"
	"fmt"
	"iter"
	"reflect"

	"github.com/syssam/velite"
	"github.com/syssam/velite/dialect"
	"github.com/syssam/velite/schema"
)

var rowDeserializerType = reflect.TypeFor[velite.RowDeserializer]()

// Execute runs a statement that returns no rows and reports the rows it
// changed.
func (c *Conn) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	vals, err := c.binder.BindAll(args)
	if err != nil {
		return 0, err
	}
	stmt, err := c.prepare(ctx, query, vals)
	if err != nil {
		return 0, err
	}
	defer stmt.Finalize()
	res, err := stmt.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// ExecuteScalar returns the first column of the first row, or the zero
// value when the query returns no rows or NULL.
func ExecuteScalar[T any](ctx context.Context, c *Conn, query string, args ...any) (T, error) {
	var zero T
	vals, err := c.binder.BindAll(args)
	if err != nil {
		return zero, err
	}
	tg := &target{t: reflect.TypeFor[T](), primitive: true}
	for v, err := range c.rows(ctx, tg, query, vals) {
		if err != nil {
			return zero, err
		}
		return as[T](v), nil
	}
	return zero, nil
}

// Query returns every row of query materialized as T. T is an entity
// struct (or a pointer to one) whose columns are matched by name, or a
// scalar type read from the first column.
func Query[T any](ctx context.Context, c *Conn, query string, args ...any) ([]T, error) {
	var out []T
	for v, err := range DeferredQuery[T](ctx, c, query, args...) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// DeferredQuery returns an iterator reading one row per step. The
// statement is finalized when the iteration ends, including on break.
//
//	for s, err := range orm.DeferredQuery[Stock](ctx, conn, `select * from "Stock"`) {
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
func DeferredQuery[T any](ctx context.Context, c *Conn, query string, args ...any) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		tg, err := c.newTarget(reflect.TypeFor[T]())
		if err != nil {
			yield(zero, err)
			return
		}
		vals, err := c.binder.BindAll(args)
		if err != nil {
			yield(zero, err)
			return
		}
		for v, err := range c.rows(ctx, tg, query, vals) {
			if !yield(as[T](v), err) || err != nil {
				return
			}
		}
	}
}

// ExecuteSimpleQuery returns the first column of every row.
func ExecuteSimpleQuery[T any](ctx context.Context, c *Conn, query string, args ...any) ([]T, error) {
	vals, err := c.binder.BindAll(args)
	if err != nil {
		return nil, err
	}
	tg := &target{t: reflect.TypeFor[T](), primitive: true}
	var out []T
	for v, err := range c.rows(ctx, tg, query, vals) {
		if err != nil {
			return nil, err
		}
		out = append(out, as[T](v))
	}
	return out, nil
}

// QueryMapping returns the rows of query as pointers to new entities of
// mapping m.
func (c *Conn) QueryMapping(ctx context.Context, m *schema.TableMapping, query string, args ...any) ([]any, error) {
	if m == nil {
		return nil, velite.NewArgumentError("mapping", "must not be nil")
	}
	vals, err := c.binder.BindAll(args)
	if err != nil {
		return nil, err
	}
	tg := &target{t: reflect.PointerTo(m.Type), base: m.Type, ptr: true, m: m}
	var out []any
	for v, err := range c.rows(ctx, tg, query, vals) {
		if err != nil {
			return nil, err
		}
		out = append(out, v.Interface())
	}
	return out, nil
}

// prepare compiles query and binds vals to it.
func (c *Conn) prepare(ctx context.Context, query string, vals []velite.Value) (dialect.Stmt, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	stmt, err := c.eng.Prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if err := stmt.Bind(i+1, v); err != nil {
			_ = stmt.Finalize()
			return nil, err
		}
	}
	return stmt, nil
}

// rows steps query and yields each row materialized for tg. The statement
// is finalized on every exit path.
func (c *Conn) rows(ctx context.Context, tg *target, query string, vals []velite.Value) iter.Seq2[reflect.Value, error] {
	return func(yield func(reflect.Value, error) bool) {
		stmt, err := c.prepare(ctx, query, vals)
		if err != nil {
			yield(reflect.Value{}, err)
			return
		}
		defer stmt.Finalize()
		for {
			ok, err := stmt.Step(ctx)
			if err != nil {
				yield(reflect.Value{}, err)
				return
			}
			if !ok {
				return
			}
			v, err := tg.read(c, stmt)
			if err != nil {
				yield(reflect.Value{}, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// target describes how rows are materialized into values of type t.
type target struct {
	t    reflect.Type // requested type
	base reflect.Type // t without its pointer
	ptr  bool

	primitive bool // read column 0
	custom    bool // base implements velite.RowDeserializer
	m         *schema.TableMapping

	resolved bool
	cols     []*schema.Column // by result column; nil when unmatched
}

func (c *Conn) newTarget(t reflect.Type) (*target, error) {
	tg := &target{t: t, base: t}
	if t.Kind() == reflect.Pointer {
		tg.base, tg.ptr = t.Elem(), true
	}
	switch {
	case reflect.PointerTo(tg.base).Implements(rowDeserializerType):
		tg.custom = true
	case schema.IsScalarType(tg.base):
		tg.primitive = true
	default:
		m, err := c.GetMapping(tg.base)
		if err != nil {
			return nil, err
		}
		tg.m = m
	}
	return tg, nil
}

// resolve matches result columns to mapped columns by case-folded name.
func (tg *target) resolve(stmt dialect.Stmt) {
	tg.cols = make([]*schema.Column, stmt.ColumnCount())
	for i := range tg.cols {
		tg.cols[i] = tg.m.FindColumn(stmt.ColumnName(i))
	}
	tg.resolved = true
}

// read materializes the current row of stmt as a value of type tg.t.
func (tg *target) read(c *Conn, stmt dialect.Stmt) (reflect.Value, error) {
	out := reflect.New(tg.t).Elem()
	if tg.primitive {
		if stmt.ColumnCount() == 0 {
			return out, velite.NewInvalidOperationError("query", "statement returned no columns")
		}
		x, err := c.reader.Read(stmt.Column(0), tg.t)
		if err != nil {
			return out, err
		}
		if err := schema.Assign(out, x); err != nil {
			return out, err
		}
		return out, nil
	}
	obj, err := c.newObject(tg.base)
	if err != nil {
		return out, err
	}
	if tg.custom {
		if err := obj.Interface().(velite.RowDeserializer).DeserializeRow(rowReader{stmt}); err != nil {
			return out, fmt.Errorf("velite: deserialize %s: %w", tg.base, err)
		}
	} else {
		if !tg.resolved {
			tg.resolve(stmt)
		}
		ev := obj.Elem()
		for i, col := range tg.cols {
			if col == nil {
				continue
			}
			x, err := c.reader.ReadColumn(col, stmt.Column(i))
			if err != nil {
				return out, fmt.Errorf("velite: column %s: %w", col.Name, err)
			}
			if err := col.Set(ev, x); err != nil {
				return out, err
			}
		}
	}
	if tg.ptr {
		out.Set(obj)
	} else {
		out.Set(obj.Elem())
	}
	return out, nil
}

// newObject allocates an entity through the configured resolver.
func (c *Conn) newObject(t reflect.Type) (reflect.Value, error) {
	p := c.cfg.resolver(t)
	if !p.IsValid() || p.Type() != reflect.PointerTo(t) || p.IsNil() {
		return reflect.Value{}, velite.NewInvalidOperationError("resolve", "object resolver returned no *"+t.String())
	}
	return p, nil
}

// as returns v as a T, or the zero T for invalid or nil values.
func as[T any](v reflect.Value) T {
	if !v.IsValid() {
		var zero T
		return zero
	}
	x, _ := v.Interface().(T)
	return x
}

// rowReader exposes the current row of a statement.
type rowReader struct {
	stmt dialect.Stmt
}

func (r rowReader) ColumnCount() int             { return r.stmt.ColumnCount() }
func (r rowReader) ColumnName(i int) string      { return r.stmt.ColumnName(i) }
func (r rowReader) ColumnType(i int) velite.Kind { return r.stmt.ColumnType(i) }
func (r rowReader) IsNull(i int) bool            { return r.stmt.Column(i).IsNull() }
func (r rowReader) Int64(i int) int64            { return r.stmt.Column(i).Int64() }
func (r rowReader) Float64(i int) float64        { return r.stmt.Column(i).Float64() }
func (r rowReader) Text(i int) string            { return r.stmt.Column(i).Text() }
func (r rowReader) Blob(i int) []byte            { return r.stmt.Column(i).Blob() }
func (r rowReader) Value(i int) velite.Value     { return r.stmt.Column(i) }
