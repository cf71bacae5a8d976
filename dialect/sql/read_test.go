package sql

import (
	"database/sql"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/velite"
)

// roundTrip binds v, reads it back as v's type and converts the result the
// way a column assignment does.
func roundTrip(t *testing.T, b Binder, r Reader, v any) any {
	t.Helper()
	bv, err := b.Bind(v)
	require.NoError(t, err)
	typ := reflect.TypeOf(v)
	x, err := r.Read(bv, typ)
	require.NoError(t, err)
	require.NotNil(t, x)
	return reflect.ValueOf(x).Convert(typ).Interface()
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	values := []any{
		int8(0), int8(-1), int8(math.MaxInt8), int8(math.MinInt8),
		int16(math.MaxInt16), int16(math.MinInt16),
		int32(math.MaxInt32), int32(math.MinInt32),
		int64(math.MaxInt64), int64(math.MinInt64), 0, -1,
		uint8(math.MaxUint8), uint16(math.MaxUint16), uint32(math.MaxUint32), uint64(math.MaxInt64),
		true, false,
		float32(-1.25), 0.0, math.MaxFloat64, -math.SmallestNonzeroFloat64,
		"", "héllo", "with 'quotes'",
		[]byte{}, []byte{0, 1, 255},
		uuid.New(), uuid.Nil,
		time.Duration(0), -time.Second, 36 * time.Hour,
		StatusUnknown, StatusRetired,
	}
	for _, ticks := range []bool{true, false} {
		b, r := Binder{StoreDateTimeAsTicks: ticks}, Reader{StoreDateTimeAsTicks: ticks}
		for _, v := range values {
			assert.Equal(t, v, roundTrip(t, b, r, v), "ticks=%v %T(%v)", ticks, v, v)
		}
		times := []time.Time{
			when,
			time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(9999, 12, 31, 23, 59, 59, 999999900, time.UTC),
			time.Date(2000, 2, 29, 12, 0, 0, 0, time.FixedZone("x", -5*3600)),
		}
		for _, tm := range times {
			got := roundTrip(t, b, r, tm).(time.Time)
			assert.True(t, tm.Equal(got), "ticks=%v want %v got %v", ticks, tm, got)
			assert.Equal(t, time.UTC, got.Location())
		}
		for _, d := range []decimal.Decimal{decimal.Zero, decimal.NewFromFloat(-1.5), decimal.NewFromInt(1 << 40)} {
			got := roundTrip(t, b, r, d).(decimal.Decimal)
			assert.True(t, d.Equal(got), "want %v got %v", d, got)
		}
	}
}

func TestReadNull(t *testing.T) {
	t.Parallel()
	for _, typ := range []reflect.Type{
		reflect.TypeFor[int](), reflect.TypeFor[*string](), reflect.TypeFor[time.Time](), reflect.TypeFor[[]byte](),
	} {
		x, err := Reader{}.Read(velite.Null(), typ)
		require.NoError(t, err)
		assert.Nil(t, x, "%s", typ)
	}
}

func TestRead(t *testing.T) {
	t.Parallel()
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	tests := []struct {
		name string
		in   velite.Value
		typ  reflect.Type
		want any
	}{
		{"pointer_target", velite.Int64(3), reflect.TypeFor[*int](), int64(3)},
		{"bool_one", velite.Int64(1), reflect.TypeFor[bool](), true},
		{"bool_other", velite.Int64(2), reflect.TypeFor[bool](), false},
		{"int_from_text", velite.Text("12"), reflect.TypeFor[int](), int64(12)},
		{"int_from_float", velite.Float64(2.9), reflect.TypeFor[int](), int64(2)},
		{"float_from_int", velite.Int64(2), reflect.TypeFor[float64](), 2.0},
		{"string_from_int", velite.Int64(7), reflect.TypeFor[string](), "7"},
		{"time_sql_text", velite.Text("2024-01-02 03:04:05"), reflect.TypeFor[time.Time](), time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"time_rfc3339", velite.Text("2024-01-02T03:04:05+02:00"), reflect.TypeFor[time.Time](), time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC)},
		{"time_ticks", velite.Int64(TimeToTicks(when)), reflect.TypeFor[time.Time](), when},
		{"uuid_blob", velite.Blob(id[:]), reflect.TypeFor[uuid.UUID](), id},
		{"uuid_text", velite.Text(id.String()), reflect.TypeFor[uuid.UUID](), id},
		{"scanner", velite.Text("a"), reflect.TypeFor[sql.NullString](), sql.NullString{String: "a", Valid: true}},
		{"scanner_int", velite.Int64(4), reflect.TypeFor[sql.NullInt64](), sql.NullInt64{Int64: 4, Valid: true}},
		{"any", velite.Float64(1.5), reflect.TypeFor[any](), 1.5},
		{"bytes_from_text", velite.Text("ab"), reflect.TypeFor[[]byte](), []byte("ab")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reader{}.Read(tt.in, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadBlobIsCopied(t *testing.T) {
	t.Parallel()
	src := []byte{1, 2, 3}
	got, err := Reader{}.Read(velite.Blob(src), reflect.TypeFor[[]byte]())
	require.NoError(t, err)
	src[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestReadErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   velite.Value
		typ  reflect.Type
	}{
		{"int_from_word", velite.Text("abc"), reflect.TypeFor[int]()},
		{"int_from_blob", velite.Blob([]byte{1}), reflect.TypeFor[int]()},
		{"float_from_word", velite.Text("abc"), reflect.TypeFor[float64]()},
		{"time_from_word", velite.Text("yesterday"), reflect.TypeFor[time.Time]()},
		{"time_from_float", velite.Float64(1), reflect.TypeFor[time.Time]()},
		{"chan", velite.Int64(1), reflect.TypeFor[chan int]()},
		{"negative_uint", velite.Int64(-1), reflect.TypeFor[uint32]()},
		{"negative_uint_text", velite.Text("-7"), reflect.TypeFor[uint64]()},
		{"struct_without_serializer", velite.Blob([]byte{0x80}), reflect.TypeFor[payload]()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reader{}.Read(tt.in, tt.typ)
			require.Error(t, err)
			assert.True(t, velite.IsUnsupportedType(err), "%v", err)
		})
	}
}

func TestTicks(t *testing.T) {
	t.Parallel()
	assert.Equal(t, int64(0), TimeToTicks(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)))
	// 1970-01-01 is 621355968000000000 ticks.
	assert.Equal(t, int64(621355968000000000), TimeToTicks(time.Unix(0, 0)))
	assert.True(t, time.Unix(0, 0).Equal(TicksToTime(621355968000000000)))
	assert.Equal(t, when, TicksToTime(TimeToTicks(when)))
	assert.Equal(t, 90*time.Minute, TicksToDuration(DurationToTicks(90*time.Minute)))

	_, err := ParseTime("not a time")
	assert.Error(t, err)
}
