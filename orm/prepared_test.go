package orm

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/velite/dialect/sql"
	"github.com/syssam/velite/schema"
)

func cachedInserts(c *Conn) map[insertKey]*preparedInsert {
	out := make(map[insertKey]*preparedInsert)
	c.inserts.Range(func(k, v any) bool {
		out[k.(insertKey)] = v.(*preparedInsert)
		return true
	})
	return out
}

func TestInsertStmtRebuiltMapping(t *testing.T) {
	ctx := context.Background()
	c := openMem(t)
	mustCreate[Flag](t, c)
	typ := reflect.TypeFor[Flag]()
	key := insertKey{t: typ, verb: sql.Insert}

	_, err := c.Insert(ctx, &Flag{Name: "a"})
	require.NoError(t, err)
	first := cachedInserts(c)
	require.Len(t, first, 1)
	old := first[key]
	require.NotNil(t, old)

	m, err := c.GetMapping(typ, schema.ImplicitIndex)
	require.NoError(t, err)
	require.NotSame(t, old.m, m)

	_, err = c.Insert(ctx, &Flag{Name: "b"})
	require.NoError(t, err)
	second := cachedInserts(c)
	require.Len(t, second, 1)
	assert.Same(t, m, second[key].m)
	assert.Nil(t, old.stmt)
	assert.Equal(t, 2, countRows(t, c, "Flag"))

	_, err = old.exec(ctx, nil)
	assert.ErrorIs(t, err, errStaleInsert)
}
