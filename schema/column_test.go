package schema_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/velite"
	"github.com/syssam/velite/schema"
)

type Status int

type Ticket struct {
	ID     int64                       `sqlite:"id,pk"`
	Status Status                      `sqlite:"status"`
	Prev   *Status                     `sqlite:"prev"`
	Title  string                      `sqlite:"title"`
	Pos    schema.Tuple2[int, string]  `sqlite:"pos"`
	Opt    *schema.Tuple2[int, string] `sqlite:"opt"`
}

func TestColumnSet(t *testing.T) {
	t.Parallel()
	m := build(t, reflect.TypeFor[Ticket](), schema.CreateNone)
	var tk Ticket
	v := reflect.ValueOf(&tk).Elem()

	t.Run("enum", func(t *testing.T) {
		require.NoError(t, m.FindColumn("status").Set(v, int64(2)))
		assert.Equal(t, Status(2), tk.Status)
	})

	t.Run("pointer_enum", func(t *testing.T) {
		c := m.FindColumn("prev")
		require.NoError(t, c.Set(v, int64(3)))
		require.NotNil(t, tk.Prev)
		assert.Equal(t, Status(3), *tk.Prev)
		assert.Equal(t, Status(3), c.Value(v))
		require.NoError(t, c.Set(v, nil))
		assert.Nil(t, tk.Prev)
		assert.True(t, c.HoldsNull(v))
	})

	t.Run("tuple_slot", func(t *testing.T) {
		require.NoError(t, m.FindColumn("pos_Item1").Set(v, int64(1)))
		require.NoError(t, m.FindColumn("pos_Item2").Set(v, "a"))
		assert.Equal(t, schema.T2(1, "a"), tk.Pos)
		assert.Equal(t, "a", m.FindColumn("pos_Item2").Value(v))
	})

	t.Run("pointer_tuple_slot", func(t *testing.T) {
		c := m.FindColumn("opt_Item2")
		assert.Nil(t, c.Value(v))
		require.NoError(t, c.Set(v, nil))
		assert.Nil(t, tk.Opt)
		require.NoError(t, c.Set(v, "b"))
		require.NotNil(t, tk.Opt)
		assert.Equal(t, schema.T2(0, "b"), *tk.Opt)
	})

	t.Run("int_to_string_rejected", func(t *testing.T) {
		err := m.FindColumn("title").Set(v, int64(65))
		require.Error(t, err)
		assert.True(t, velite.IsUnsupportedType(err))
	})

	t.Run("bytes_to_string", func(t *testing.T) {
		require.NoError(t, m.FindColumn("title").Set(v, []byte("hello")))
		assert.Equal(t, "hello", tk.Title)
	})
}
