package sql

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/velite"
	"github.com/syssam/velite/schema"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusActive
	StatusRetired
)

var statusNames = []string{"unknown", "active", "retired"}

func (s Status) String() string { return statusNames[s] }

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	for i, n := range statusNames {
		if n == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

type loopValuer struct{}

func (loopValuer) Value() (driver.Value, error) { return loopValuer{}, nil }

type failingValuer struct{}

func (failingValuer) Value() (driver.Value, error) { return nil, errors.New("boom") }

type payload struct {
	A int
	B []string
}

var when = time.Date(2024, 5, 6, 7, 8, 9, 123456700, time.UTC)

func TestBind(t *testing.T) {
	t.Parallel()
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	n := 5
	d := decimal.NewFromFloat(2.5)
	tests := []struct {
		name string
		in   any
		want velite.Value
	}{
		{"nil", nil, velite.Null()},
		{"nil_pointer", (*int)(nil), velite.Null()},
		{"nil_bytes", []byte(nil), velite.Null()},
		{"nil_map", map[string]int(nil), velite.Null()},
		{"value", velite.Text("v"), velite.Text("v")},
		{"int", 42, velite.Int64(42)},
		{"int8", int8(-1), velite.Int64(-1)},
		{"int32", int32(math.MinInt32), velite.Int64(math.MinInt32)},
		{"uint32", uint32(math.MaxUint32), velite.Int64(math.MaxUint32)},
		{"uint64_max_int", uint64(math.MaxInt64), velite.Int64(math.MaxInt64)},
		{"bool_true", true, velite.Int64(1)},
		{"bool_false", false, velite.Int64(0)},
		{"float32", float32(1.5), velite.Float64(1.5)},
		{"float64", -1.0, velite.Float64(-1)},
		{"string", "x", velite.Text("x")},
		{"empty_string", "", velite.Text("")},
		{"bytes", []byte{1, 2}, velite.Blob([]byte{1, 2})},
		{"empty_bytes", []byte{}, velite.Blob([]byte{})},
		{"enum", StatusRetired, velite.Int64(2)},
		{"pointer", &n, velite.Int64(5)},
		{"time_text", when, velite.Text("2024-05-06T07:08:09.1234567Z")},
		{"duration", 1500 * time.Millisecond, velite.Int64(15_000_000)},
		{"uuid", id, velite.Text(id.String())},
		{"uuid_pointer", &id, velite.Text(id.String())},
		{"decimal", d, velite.Float64(2.5)},
		{"decimal_pointer", &d, velite.Float64(2.5)},
		{"valuer_null", sql.NullString{}, velite.Null()},
		{"valuer", sql.NullInt64{Int64: 9, Valid: true}, velite.Int64(9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Binder{}.Bind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBindTicks(t *testing.T) {
	t.Parallel()
	b := Binder{StoreDateTimeAsTicks: true}
	got, err := b.Bind(when)
	require.NoError(t, err)
	assert.Equal(t, velite.Int64(TimeToTicks(when)), got)

	epoch, err := b.Bind(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, velite.Int64(0), epoch)
}

func TestBindErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		in          any
		unsupported bool
	}{
		{"uint64_overflow", uint64(math.MaxUint64), true},
		{"chan", make(chan int), true},
		{"struct_without_serializer", payload{A: 1}, true},
		{"valuer_loop", loopValuer{}, true},
		{"valuer_error", failingValuer{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Binder{}.Bind(tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.unsupported, velite.IsUnsupportedType(err), "%v", err)
		})
	}
}

func TestBindSerializer(t *testing.T) {
	t.Parallel()
	ser := velite.NewMsgpackSerializer()
	b := Binder{Serializer: ser}
	v, err := b.Bind(payload{A: 7, B: []string{"x", "y"}})
	require.NoError(t, err)
	require.Equal(t, velite.KindBlob, v.Kind())

	got, err := Reader{Serializer: ser}.Read(v, reflect.TypeFor[payload]())
	require.NoError(t, err)
	assert.Equal(t, payload{A: 7, B: []string{"x", "y"}}, got)
}

func TestBindColumnStoreAsText(t *testing.T) {
	t.Parallel()
	col := &schema.Column{Name: "status", Type: reflect.TypeFor[Status](), StoreAsText: true, TupleSlot: -1}
	b := Binder{}
	v, err := b.BindColumn(col, StatusActive)
	require.NoError(t, err)
	assert.Equal(t, velite.Text("active"), v)

	s := StatusRetired
	v, err = b.BindColumn(col, &s)
	require.NoError(t, err)
	assert.Equal(t, velite.Text("retired"), v)

	v, err = b.BindColumn(col, (*Status)(nil))
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	got, err := Reader{}.ReadColumn(col, velite.Text("retired"))
	require.NoError(t, err)
	assert.Equal(t, StatusRetired, got)

	_, err = Reader{}.ReadColumn(col, velite.Text("bogus"))
	assert.Error(t, err)

	plain := &schema.Column{Name: "status", Type: reflect.TypeFor[Status](), TupleSlot: -1}
	v, err = b.BindColumn(plain, StatusActive)
	require.NoError(t, err)
	assert.Equal(t, velite.Int64(1), v)
}

func TestBindAll(t *testing.T) {
	t.Parallel()
	vs, err := Binder{}.BindAll([]any{1, "a", nil})
	require.NoError(t, err)
	assert.Equal(t, []velite.Value{velite.Int64(1), velite.Text("a"), velite.Null()}, vs)

	_, err = Binder{}.BindAll([]any{1, make(chan int)})
	assert.Error(t, err)
}
