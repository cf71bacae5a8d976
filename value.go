package velite

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the storage class of a Value, mirroring the engine's
// fundamental datatypes.
type Kind uint8

// Storage classes.
const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindText
	KindBlob
)

// String returns the storage class name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a closed union over the engine's primitive types. It is what the
// binder produces and what the materializer consumes; the zero Value is NULL.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

// Null returns the NULL value.
func Null() Value { return Value{} }

// Int64 returns an integer value.
func Int64(v int64) Value { return Value{kind: KindInteger, i: v} }

// Float64 returns a float value.
func Float64(v float64) Value { return Value{kind: KindFloat, f: v} }

// Text returns a text value.
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Blob returns a blob value. A nil slice is still a (zero-length) blob.
func Blob(v []byte) Value {
	if v == nil {
		v = []byte{}
	}
	return Value{kind: KindBlob, b: v}
}

// Bool returns 1 or 0 as an integer value.
func Bool(v bool) Value {
	if v {
		return Int64(1)
	}
	return Int64(0)
}

// Kind returns the storage class.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int64 returns the value as an integer, converting floats and numeric text
// the way the engine's column accessors do.
func (v Value) Int64() int64 {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		if v.f >= math.MaxInt64 {
			return math.MaxInt64
		}
		if v.f <= math.MinInt64 {
			return math.MinInt64
		}
		return int64(v.f)
	case KindText:
		n, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			f, _ := strconv.ParseFloat(v.s, 64)
			return int64(f)
		}
		return n
	case KindBlob:
		n, _ := strconv.ParseInt(string(v.b), 10, 64)
		return n
	default:
		return 0
	}
}

// Float64 returns the value as a float.
func (v Value) Float64() float64 {
	switch v.kind {
	case KindInteger:
		return float64(v.i)
	case KindFloat:
		return v.f
	case KindText:
		f, _ := strconv.ParseFloat(v.s, 64)
		return f
	case KindBlob:
		f, _ := strconv.ParseFloat(string(v.b), 64)
		return f
	default:
		return 0
	}
}

// Text returns the value as text.
func (v Value) Text() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	case KindBlob:
		return string(v.b)
	default:
		return ""
	}
}

// Blob returns the value as bytes. The returned slice must not be modified.
func (v Value) Blob() []byte {
	switch v.kind {
	case KindBlob:
		return v.b
	case KindText:
		return []byte(v.s)
	case KindNull:
		return nil
	default:
		return []byte(v.Text())
	}
}

// Any returns the value as a database/sql/driver value
// (nil, int64, float64, string or []byte).
func (v Value) Any() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	case KindBlob:
		return v.b
	default:
		return nil
	}
}

// String implements fmt.Stringer for logging.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindText:
		return strconv.Quote(v.s)
	case KindBlob:
		return fmt.Sprintf("blob(%d)", len(v.b))
	default:
		return v.Text()
	}
}

// ValueOf converts a database/sql/driver value into a Value.
func ValueOf(src any) (Value, error) {
	switch s := src.(type) {
	case nil:
		return Null(), nil
	case int64:
		return Int64(s), nil
	case float64:
		return Float64(s), nil
	case string:
		return Text(s), nil
	case []byte:
		return Blob(s), nil
	case bool:
		return Bool(s), nil
	default:
		return Value{}, NewUnsupportedTypeError("value", fmt.Sprintf("%T", src), "not a driver value")
	}
}
