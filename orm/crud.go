package orm

import (
	"context"
	"errors"
	"reflect"

	"github.com/google/uuid"

	"github.com/syssam/velite"
	"github.com/syssam/velite/dialect/sql"
	"github.com/syssam/velite/schema"
)

// Insert inserts obj, a pointer to an entity, and reports the rows added.
// An auto-increment key is written back into obj, and a zero auto-GUID key
// is filled with a new random uuid before the row is written.
func (c *Conn) Insert(ctx context.Context, obj any) (int64, error) {
	return c.insert(ctx, obj, sql.Insert)
}

// InsertOrReplace inserts obj, replacing any row with the same key.
func (c *Conn) InsertOrReplace(ctx context.Context, obj any) (int64, error) {
	return c.insert(ctx, obj, sql.InsertOrReplace)
}

// InsertOrIgnore inserts obj unless it conflicts with an existing row.
func (c *Conn) InsertOrIgnore(ctx context.Context, obj any) (int64, error) {
	return c.insert(ctx, obj, sql.InsertOrIgnore)
}

func (c *Conn) insert(ctx context.Context, obj any, verb sql.InsertVerb) (int64, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	ev, err := entity(obj)
	if err != nil {
		return 0, err
	}
	m, err := c.GetMapping(ev.Type())
	if err != nil {
		return 0, err
	}
	if g := m.AutoGUIDPK; g != nil {
		if id, _ := g.Value(ev).(uuid.UUID); id == uuid.Nil {
			if err := g.Set(ev, uuid.New()); err != nil {
				return 0, err
			}
		}
	}
	args, err := c.bindColumns(ev, verb.Columns(m))
	if err != nil {
		return 0, err
	}
	res, err := c.execInsert(ctx, m, verb, args)
	if err != nil {
		return 0, constraintError(m, ev, err)
	}
	if res.RowsAffected > 0 && m.AutoIncPK != nil {
		if err := m.AutoIncPK.Set(ev, res.LastInsertID); err != nil {
			return res.RowsAffected, err
		}
	}
	c.notify(m, ActionInsert, res.RowsAffected)
	return res.RowsAffected, nil
}

// InsertAll inserts every element of objs, a slice of entities or of
// pointers to entities. With inTx the inserts run in one transaction, so
// either all rows are added or none.
func (c *Conn) InsertAll(ctx context.Context, objs any, inTx bool) (int64, error) {
	return c.insertAll(ctx, objs, sql.Insert, inTx)
}

// InsertOrReplaceAll is InsertAll with replace semantics.
func (c *Conn) InsertOrReplaceAll(ctx context.Context, objs any, inTx bool) (int64, error) {
	return c.insertAll(ctx, objs, sql.InsertOrReplace, inTx)
}

func (c *Conn) insertAll(ctx context.Context, objs any, verb sql.InsertVerb, inTx bool) (int64, error) {
	items, err := elements(objs)
	if err != nil {
		return 0, err
	}
	var n int64
	run := func(conn *Conn) error {
		for _, obj := range items {
			rows, err := conn.insert(ctx, obj, verb)
			if err != nil {
				return err
			}
			n += rows
		}
		return nil
	}
	if !inTx {
		err = run(c)
		return n, err
	}
	if err := c.RunInTransaction(ctx, run); err != nil {
		return 0, err
	}
	return n, nil
}

// Update writes every non-key column of obj to the row with obj's key. An
// entity whose columns are all part of its key updates nothing.
func (c *Conn) Update(ctx context.Context, obj any) (int64, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	ev, err := entity(obj)
	if err != nil {
		return 0, err
	}
	m, err := c.GetMapping(ev.Type())
	if err != nil {
		return 0, err
	}
	query, set, ok, err := sql.UpdateSQL(m)
	if err != nil || !ok {
		return 0, err
	}
	args, err := c.bindColumns(ev, append(set[:len(set):len(set)], m.PK...))
	if err != nil {
		return 0, err
	}
	res, err := c.eng.Exec(ctx, query, args...)
	if err != nil {
		return 0, constraintError(m, ev, err)
	}
	c.notify(m, ActionUpdate, res.RowsAffected)
	return res.RowsAffected, nil
}

// UpdateAll updates every element of objs in one transaction.
func (c *Conn) UpdateAll(ctx context.Context, objs any) (int64, error) {
	items, err := elements(objs)
	if err != nil {
		return 0, err
	}
	var n int64
	err = c.RunInTransaction(ctx, func(conn *Conn) error {
		for _, obj := range items {
			rows, err := conn.Update(ctx, obj)
			if err != nil {
				return err
			}
			n += rows
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes the row with obj's key.
func (c *Conn) Delete(ctx context.Context, obj any) (int64, error) {
	ev, err := entity(obj)
	if err != nil {
		return 0, err
	}
	m, err := c.GetMapping(ev.Type())
	if err != nil {
		return 0, err
	}
	keys := make([]any, len(m.PK))
	for i, pk := range m.PK {
		keys[i] = pk.Value(ev)
	}
	return c.deleteByKeys(ctx, m, keys)
}

// DeleteByKeys removes the rows of entity type t matching the leading
// primary key columns given by keys. Fewer keys than key columns delete
// every row sharing that prefix.
func (c *Conn) DeleteByKeys(ctx context.Context, t reflect.Type, keys ...any) (int64, error) {
	m, err := c.GetMapping(t)
	if err != nil {
		return 0, err
	}
	return c.deleteByKeys(ctx, m, keys)
}

// DeleteByKeys is the generic form of Conn.DeleteByKeys.
func DeleteByKeys[T any](ctx context.Context, c *Conn, keys ...any) (int64, error) {
	return c.DeleteByKeys(ctx, reflect.TypeFor[T](), keys...)
}

func (c *Conn) deleteByKeys(ctx context.Context, m *schema.TableMapping, keys []any) (int64, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	query, err := sql.DeleteSQL(m, len(keys))
	if err != nil {
		return 0, err
	}
	args := make([]velite.Value, len(keys))
	for i, k := range keys {
		if args[i], err = c.binder.BindColumn(m.PK[i], k); err != nil {
			return 0, err
		}
	}
	res, err := c.eng.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	c.notify(m, ActionDelete, res.RowsAffected)
	return res.RowsAffected, nil
}

// DeleteAll removes every row of entity type t.
func (c *Conn) DeleteAll(ctx context.Context, t reflect.Type) (int64, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	m, err := c.GetMapping(t)
	if err != nil {
		return 0, err
	}
	res, err := c.eng.Exec(ctx, sql.DeleteAllSQL(m))
	if err != nil {
		return 0, err
	}
	c.notify(m, ActionDelete, res.RowsAffected)
	return res.RowsAffected, nil
}

// DeleteAll is the generic form of Conn.DeleteAll.
func DeleteAll[T any](ctx context.Context, c *Conn) (int64, error) {
	return c.DeleteAll(ctx, reflect.TypeFor[T]())
}

// Get returns the entity with the given primary key. It returns a
// *velite.NotFoundError when no row matches.
func Get[T any](ctx context.Context, c *Conn, keys ...any) (T, error) {
	var zero T
	v, found, err := getByKeys(ctx, c, reflect.TypeFor[T](), keys)
	if err != nil {
		return zero, err
	}
	if !found {
		m, _ := c.GetMapping(reflect.TypeFor[T]())
		var id any = keys
		if len(keys) == 1 {
			id = keys[0]
		}
		return zero, velite.NewNotFoundErrorWithID(m.TableName, id)
	}
	return as[T](v), nil
}

// Find is Get returning nil instead of an error when no row matches.
func Find[T any](ctx context.Context, c *Conn, keys ...any) (*T, error) {
	v, err := Get[T](ctx, c, keys...)
	if errors.Is(err, velite.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Table returns every row of the table of T.
func Table[T any](ctx context.Context, c *Conn) ([]T, error) {
	m, err := c.GetMapping(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return Query[T](ctx, c, sql.SelectAllSQL(m))
}

func getByKeys(ctx context.Context, c *Conn, t reflect.Type, keys []any) (reflect.Value, bool, error) {
	tg, err := c.newTarget(t)
	if err != nil {
		return reflect.Value{}, false, err
	}
	if tg.m == nil {
		if tg.m, err = c.GetMapping(tg.base); err != nil {
			return reflect.Value{}, false, err
		}
	}
	m := tg.m
	if len(m.PK) == 0 {
		return reflect.Value{}, false, velite.NewInvalidOperationError("get", m.TableName+" has no primary key")
	}
	if len(keys) != len(m.PK) {
		return reflect.Value{}, false, velite.NewArgumentError("keys", "expected one key per primary key column")
	}
	args := make([]velite.Value, len(keys))
	for i, k := range keys {
		if args[i], err = c.binder.BindColumn(m.PK[i], k); err != nil {
			return reflect.Value{}, false, err
		}
	}
	for v, err := range c.rows(ctx, tg, m.GetByPrimaryKeySQL, args) {
		if err != nil {
			return reflect.Value{}, false, err
		}
		return v, true, nil
	}
	return reflect.Value{}, false, nil
}

// bindColumns binds the values of cols in entity ev.
func (c *Conn) bindColumns(ev reflect.Value, cols []*schema.Column) ([]velite.Value, error) {
	args := make([]velite.Value, len(cols))
	for i, col := range cols {
		v, err := c.binder.BindColumn(col, col.Value(ev))
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// constraintError names the columns of ev that hold nil when err is a NOT
// NULL violation.
func constraintError(m *schema.TableMapping, ev reflect.Value, err error) error {
	var ee *velite.EngineError
	if !errors.As(err, &ee) || ee.ExtendedCode != velite.CodeConstraintNotNull {
		return err
	}
	return velite.NewNotNullConstraintViolationError(ee, m.TableName, schema.ColumnNames(m.NotNullViolations(ev)))
}

// entity returns the addressable struct value behind obj.
func entity(obj any) (reflect.Value, error) {
	v := reflect.ValueOf(obj)
	if !v.IsValid() {
		return reflect.Value{}, velite.NewArgumentError("obj", "must not be nil")
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, velite.NewArgumentError("obj", "must not be nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, velite.NewArgumentError("obj", "must be a struct or a pointer to one, got "+v.Type().String())
	}
	if !v.CanAddr() {
		cp := reflect.New(v.Type()).Elem()
		cp.Set(v)
		v = cp
	}
	return v, nil
}

// elements returns the elements of slice objs as pointers where possible.
func elements(objs any) ([]any, error) {
	v := reflect.ValueOf(objs)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, velite.NewArgumentError("objs", "must be a slice")
	}
	items := make([]any, v.Len())
	for i := range items {
		e := v.Index(i)
		if e.Kind() == reflect.Struct && e.CanAddr() {
			e = e.Addr()
		}
		items[i] = e.Interface()
	}
	return items, nil
}
