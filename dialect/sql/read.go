package sql

import (
	"bytes"
	"database/sql"
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/syssam/velite"
	"github.com/syssam/velite/schema"
)

var (
	timeType            = reflect.TypeFor[time.Time]()
	durationType        = reflect.TypeFor[time.Duration]()
	uuidType            = reflect.TypeFor[uuid.UUID]()
	decimalType         = reflect.TypeFor[decimal.Decimal]()
	scannerType         = reflect.TypeFor[sql.Scanner]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Reader converts engine values into native Go values. It is the inverse
// of a Binder configured the same way.
type Reader struct {
	// StoreDateTimeAsTicks reads integer time.Time values as ticks. Text
	// values are parsed in either mode.
	StoreDateTimeAsTicks bool
	// Serializer reads blobs of otherwise unsupported types.
	Serializer velite.BlobSerializer
}

// Read converts v for a target of type t. NULL reads as nil and pointer
// targets read their element type. Integer kinds read as int64 or uint64
// and floats as float64; callers convert on assignment, so named types
// (enums) and their pointers are handled alike.
func (r Reader) Read(v velite.Value, t reflect.Type) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType:
		if v.Kind() == velite.KindText {
			tm, err := ParseTime(v.Text())
			if err != nil {
				return nil, err
			}
			return tm, nil
		}
		if v.Kind() == velite.KindInteger || r.StoreDateTimeAsTicks {
			return TicksToTime(v.Int64()), nil
		}
		return nil, unsupported(t, v)
	case durationType:
		if v.Kind() == velite.KindText {
			if d, err := time.ParseDuration(v.Text()); err == nil {
				return d, nil
			}
		}
		return TicksToDuration(v.Int64()), nil
	case uuidType:
		var (
			id  uuid.UUID
			err error
		)
		if v.Kind() == velite.KindBlob && len(v.Blob()) == 16 {
			id, err = uuid.FromBytes(v.Blob())
		} else {
			id, err = uuid.Parse(v.Text())
		}
		if err != nil {
			return nil, fmt.Errorf("velite: read uuid: %w", err)
		}
		return id, nil
	case decimalType:
		switch v.Kind() {
		case velite.KindInteger:
			return decimal.NewFromInt(v.Int64()), nil
		case velite.KindFloat:
			return decimal.NewFromFloat(v.Float64()), nil
		default:
			d, err := decimal.NewFromString(v.Text())
			if err != nil {
				return nil, fmt.Errorf("velite: read decimal: %w", err)
			}
			return d, nil
		}
	}
	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		return v.Any(), nil
	}
	if reflect.PointerTo(t).Implements(scannerType) {
		p := reflect.New(t)
		if err := p.Interface().(sql.Scanner).Scan(v.Any()); err != nil {
			return nil, fmt.Errorf("velite: scan %s: %w", t, err)
		}
		return p.Elem().Interface(), nil
	}
	switch t.Kind() {
	case reflect.Bool:
		n, err := readInt(v, t)
		if err != nil {
			return nil, err
		}
		return n == 1, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := readInt(v, t)
		if err != nil {
			return nil, err
		}
		return n, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := readInt(v, t)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, velite.NewUnsupportedTypeError("read", t.String(), "cannot read negative value "+v.String())
		}
		return uint64(n), nil
	case reflect.Float32, reflect.Float64:
		if v.Kind() == velite.KindText {
			f, err := strconv.ParseFloat(v.Text(), 64)
			if err != nil {
				return nil, unsupported(t, v)
			}
			return f, nil
		}
		return v.Float64(), nil
	case reflect.String:
		return v.Text(), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return bytes.Clone(v.Blob()), nil
		}
	}
	if r.Serializer != nil && r.Serializer.CanDeserialize(t) {
		x, err := r.Serializer.Deserialize(v.Blob(), t)
		if err != nil {
			return nil, fmt.Errorf("velite: deserialize %s: %w", t, err)
		}
		return x, nil
	}
	return nil, unsupported(t, v)
}

// ReadColumn converts v for column c. Columns stored as text are parsed
// with the type's encoding.TextUnmarshaler when it has one.
func (r Reader) ReadColumn(c *schema.Column, v velite.Value) (any, error) {
	if c.StoreAsText && v.Kind() == velite.KindText && reflect.PointerTo(c.Type).Implements(textUnmarshalerType) {
		p := reflect.New(c.Type)
		if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(v.Text())); err != nil {
			return nil, fmt.Errorf("velite: read %s: %w", c.Name, err)
		}
		return p.Elem().Interface(), nil
	}
	return r.Read(v, c.Type)
}

func readInt(v velite.Value, t reflect.Type) (int64, error) {
	switch v.Kind() {
	case velite.KindInteger, velite.KindFloat:
		return v.Int64(), nil
	case velite.KindText:
		n, err := strconv.ParseInt(v.Text(), 10, 64)
		if err != nil {
			return 0, unsupported(t, v)
		}
		return n, nil
	default:
		return 0, unsupported(t, v)
	}
}

func unsupported(t reflect.Type, v velite.Value) error {
	return velite.NewUnsupportedTypeError("read", t.String(), "cannot read "+v.Kind().String()+" value")
}
