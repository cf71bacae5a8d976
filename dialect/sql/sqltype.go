package sql

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"

	"github.com/syssam/velite"
	"github.com/syssam/velite/schema"
)

// TypeMap resolves the declared SQL type of mapped columns.
type TypeMap struct {
	// StoreDateTimeAsTicks declares time.Time columns as bigint.
	StoreDateTimeAsTicks bool
	// Serializer makes the types it handles blob columns.
	Serializer velite.BlobSerializer
	// Extra maps storage types to declared types ahead of the built-ins.
	Extra map[reflect.Type]string
}

var builtinTypes = map[reflect.Type]string{
	durationType:                       "bigint",
	uuidType:                           "varchar(36)",
	decimalType:                        "float",
	reflect.TypeFor[[]byte]():          "blob",
	reflect.TypeFor[sql.NullString]():  "varchar",
	reflect.TypeFor[sql.NullBool]():    "integer",
	reflect.TypeFor[sql.NullByte]():    "integer",
	reflect.TypeFor[sql.NullInt16]():   "integer",
	reflect.TypeFor[sql.NullInt32]():   "integer",
	reflect.TypeFor[sql.NullInt64]():   "integer",
	reflect.TypeFor[sql.NullFloat64](): "float",
}

// SQLType returns the declared type of column c.
func (m TypeMap) SQLType(c *schema.Column) (string, error) {
	t := c.Type
	if typ, ok := m.Extra[t]; ok {
		return typ, nil
	}
	if c.StoreAsText {
		return "varchar", nil
	}
	return m.typeOf(t, c.MaxLength)
}

func (m TypeMap) typeOf(t reflect.Type, maxLen int) (string, error) {
	if t == timeType || t == reflect.TypeFor[sql.NullTime]() {
		if m.StoreDateTimeAsTicks {
			return "bigint", nil
		}
		return "datetime", nil
	}
	if typ, ok := builtinTypes[t]; ok {
		return typ, nil
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer", nil
	case reflect.Float32, reflect.Float64:
		return "float", nil
	case reflect.String:
		if maxLen > 0 {
			return fmt.Sprintf("varchar(%d)", maxLen), nil
		}
		return "varchar", nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "blob", nil
		}
	}
	if typ, ok := m.probeValuer(t, maxLen); ok {
		return typ, nil
	}
	if m.Serializer != nil && m.Serializer.CanDeserialize(t) {
		return "blob", nil
	}
	return "", velite.NewUnsupportedTypeError("ddl", t.String(), "no declared SQL type")
}

// probeValuer probes the zero value of a driver.Valuer for the shape it
// stores.
func (m TypeMap) probeValuer(t reflect.Type, maxLen int) (string, bool) {
	var vr driver.Valuer
	switch {
	case t.Implements(valuerType):
		vr, _ = reflect.Zero(t).Interface().(driver.Valuer)
	case reflect.PointerTo(t).Implements(valuerType):
		vr, _ = reflect.New(t).Interface().(driver.Valuer)
	default:
		return "", false
	}
	dv, err := vr.Value()
	if err != nil || dv == nil {
		return "", false
	}
	if _, loop := dv.(driver.Valuer); loop {
		return "", false
	}
	dt := reflect.TypeOf(dv)
	if dt == t {
		return "", false
	}
	typ, err := m.typeOf(dt, maxLen)
	return typ, err == nil
}
