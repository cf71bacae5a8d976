package sql

import (
	"database/sql/driver"
	"encoding"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/syssam/velite"
	"github.com/syssam/velite/schema"
)

var valuerType = reflect.TypeFor[driver.Valuer]()

// Binder converts native Go values into engine values.
type Binder struct {
	// StoreDateTimeAsTicks stores time.Time as ticks instead of text.
	StoreDateTimeAsTicks bool
	// Serializer stores otherwise unsupported values as blobs.
	Serializer velite.BlobSerializer
}

// Bind converts v. The first matching rule wins:
//
//   - nil, nil pointers, nil slices and nil maps bind NULL
//   - time.Time binds ticks or TimeLayout text
//   - time.Duration binds ticks
//   - uuid.UUID binds its canonical string
//   - decimal.Decimal binds a float
//   - []byte binds a blob
//   - driver.Valuer binds its Value by these same rules
//   - bool, integer, float and string kinds, named types included
//   - types handled by the Serializer bind a blob
//
// Anything else is an *velite.UnsupportedTypeError. uint64 values above
// math.MaxInt64 have no integer representation and are rejected.
func (b Binder) Bind(v any) (velite.Value, error) {
	switch x := v.(type) {
	case nil:
		return velite.Null(), nil
	case velite.Value:
		return x, nil
	case time.Time:
		if b.StoreDateTimeAsTicks {
			return velite.Int64(TimeToTicks(x)), nil
		}
		return velite.Text(FormatTime(x)), nil
	case time.Duration:
		return velite.Int64(DurationToTicks(x)), nil
	case uuid.UUID:
		return velite.Text(x.String()), nil
	case decimal.Decimal:
		f, _ := x.Float64()
		return velite.Float64(f), nil
	case []byte:
		if x == nil {
			return velite.Null(), nil
		}
		return velite.Blob(x), nil
	case string:
		return velite.Text(x), nil
	case int64:
		return velite.Int64(x), nil
	case int:
		return velite.Int64(int64(x)), nil
	case bool:
		return velite.Bool(x), nil
	case float64:
		return velite.Float64(x), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		if rv.IsNil() {
			return velite.Null(), nil
		}
	}
	vr, isValuer := v.(driver.Valuer)
	if rv.Kind() == reflect.Pointer && (!isValuer || rv.Type().Elem().Implements(valuerType)) {
		return b.Bind(rv.Elem().Interface())
	}
	if isValuer {
		dv, err := vr.Value()
		if err != nil {
			return velite.Value{}, fmt.Errorf("velite: bind %T: %w", v, err)
		}
		if _, same := dv.(driver.Valuer); same {
			return velite.Value{}, velite.NewUnsupportedTypeError("bind", rv.Type().String(), "Value returned another Valuer")
		}
		return b.Bind(dv)
	}
	switch rv.Kind() {
	case reflect.Bool:
		return velite.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return velite.Int64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return velite.Value{}, velite.NewUnsupportedTypeError("bind", rv.Type().String(),
				fmt.Sprintf("%d overflows a 64-bit signed integer", u))
		}
		return velite.Int64(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return velite.Float64(rv.Float()), nil
	case reflect.String:
		return velite.Text(rv.String()), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return velite.Blob(rv.Bytes()), nil
		}
	}
	if b.Serializer != nil && b.Serializer.CanDeserialize(rv.Type()) {
		data, err := b.Serializer.Serialize(v)
		if err != nil {
			return velite.Value{}, fmt.Errorf("velite: serialize %T: %w", v, err)
		}
		return velite.Blob(data), nil
	}
	return velite.Value{}, velite.NewUnsupportedTypeError("bind", rv.Type().String(), "no conversion to an engine value")
}

// BindColumn converts the value v of column c. Columns stored as text bind
// the text form of their value.
func (b Binder) BindColumn(c *schema.Column, v any) (velite.Value, error) {
	if c.StoreAsText && v != nil {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return velite.Null(), nil
			}
			v = rv.Elem().Interface()
		}
		switch x := v.(type) {
		case encoding.TextMarshaler:
			text, err := x.MarshalText()
			if err != nil {
				return velite.Value{}, fmt.Errorf("velite: bind %s: %w", c.Name, err)
			}
			return velite.Text(string(text)), nil
		case fmt.Stringer:
			return velite.Text(x.String()), nil
		}
	}
	return b.Bind(v)
}

// BindAll converts each of args.
func (b Binder) BindAll(args []any) ([]velite.Value, error) {
	vs := make([]velite.Value, len(args))
	for i, a := range args {
		v, err := b.Bind(a)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}
