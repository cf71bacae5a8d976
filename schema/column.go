package schema

import (
	"fmt"
	"reflect"

	"github.com/syssam/velite"
)

// Column is a direct scalar member or one slot of a flattened tuple member.
type Column struct {
	Name          string
	Type          reflect.Type // Storage type; pointer wrappers removed
	Collation     string
	MaxLength     int
	Default       string
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
	AutoGUID      bool
	StoreAsText   bool
	Indices       []IndexInfo

	Member    *Member
	TupleSlot int // -1 for direct members
}

// IsTupleSlot reports whether the column is one element of a tuple member.
func (c *Column) IsTupleSlot() bool { return c.TupleSlot >= 0 }

// Value returns the column's native value in entity v (a struct value).
// Nil pointers, slices and maps yield nil.
func (c *Column) Value(v reflect.Value) any {
	fv := c.Member.Value(v)
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil
		}
		fv = fv.Elem()
	}
	if c.TupleSlot >= 0 {
		fv = fv.Field(c.TupleSlot)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				return nil
			}
			fv = fv.Elem()
		}
	}
	switch fv.Kind() {
	case reflect.Slice, reflect.Map:
		if fv.IsNil() {
			return nil
		}
	}
	return fv.Interface()
}

// HoldsNull reports whether the column's value in v would bind as NULL.
func (c *Column) HoldsNull(v reflect.Value) bool {
	return c.Value(v) == nil
}

// Set assigns x to the column's member in v, which must be addressable.
// Integer values convert to named integer types, so enums and pointers to
// enums are assigned alike. Tuple slots are set by copying the tuple,
// changing the slot and assigning the whole tuple back.
func (c *Column) Set(v reflect.Value, x any) error {
	fv := c.Member.Value(v)
	if c.TupleSlot < 0 {
		return c.assign(fv, x)
	}
	tt := fv.Type()
	if tt.Kind() == reflect.Pointer {
		tt = tt.Elem()
	}
	tv := reflect.New(tt).Elem()
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() && x == nil {
			return nil
		}
		if !fv.IsNil() {
			tv.Set(fv.Elem())
		}
	} else {
		tv.Set(fv)
	}
	if err := c.assign(tv.Field(c.TupleSlot), x); err != nil {
		return err
	}
	if fv.Kind() == reflect.Pointer {
		p := reflect.New(tt)
		p.Elem().Set(tv)
		fv.Set(p)
		return nil
	}
	fv.Set(tv)
	return nil
}

func (c *Column) assign(dst reflect.Value, x any) error {
	if err := Assign(dst, x); err != nil {
		return fmt.Errorf("velite: column %s: %w", c.Name, err)
	}
	return nil
}

// Assign stores x into dst, which must be settable. nil stores the zero
// value, pointer destinations get a fresh element, and values convert to
// the destination type where reflect allows it (integers to named integer
// types, []byte to string); integers never convert to strings.
func Assign(dst reflect.Value, x any) error {
	if x == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		p := reflect.New(dst.Type().Elem())
		if err := Assign(p.Elem(), x); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}
	rv := reflect.ValueOf(x)
	if rv.Type().AssignableTo(dst.Type()) {
		dst.Set(rv)
		return nil
	}
	if convertible(rv.Type(), dst.Type()) {
		dst.Set(rv.Convert(dst.Type()))
		return nil
	}
	return velite.NewUnsupportedTypeError("assign", dst.Type().String(), fmt.Sprintf("cannot hold %T", x))
}

// convertible is reflect's ConvertibleTo without the integer-to-string rune
// conversion.
func convertible(from, to reflect.Type) bool {
	if to.Kind() == reflect.String && from.Kind() != reflect.String {
		return from.Kind() == reflect.Slice && from.Elem().Kind() == reflect.Uint8
	}
	return from.ConvertibleTo(to)
}
