package schema_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/velite/schema"
)

func TestCache(t *testing.T) {
	t.Parallel()

	t.Run("reuse", func(t *testing.T) {
		c := schema.NewCache(schema.BuildOptions{})
		m1, err := c.Get(reflect.TypeFor[Stock](), schema.CreateNone)
		require.NoError(t, err)
		m2, err := c.Get(reflect.TypeFor[*Stock](), schema.CreateNone)
		require.NoError(t, err)
		assert.Same(t, m1, m2)
	})

	t.Run("rebuild_on_flags", func(t *testing.T) {
		c := schema.NewCache(schema.BuildOptions{})
		m1, err := c.Get(reflect.TypeFor[Person](), schema.CreateNone)
		require.NoError(t, err)
		assert.Empty(t, m1.PK)

		m2, err := c.Get(reflect.TypeFor[Person](), schema.AllImplicit)
		require.NoError(t, err)
		assert.NotSame(t, m1, m2)
		assert.Len(t, m2.PK, 1)

		m3, err := c.Get(reflect.TypeFor[Person](), schema.CreateNone)
		require.NoError(t, err)
		assert.Same(t, m2, m3)
	})

	t.Run("seeded", func(t *testing.T) {
		m, err := schema.Build(reflect.TypeFor[Stock](), schema.BuildOptions{})
		require.NoError(t, err)
		c := schema.NewCache(schema.BuildOptions{})
		c.Put(m)
		got, err := c.Get(reflect.TypeFor[Stock](), schema.CreateNone)
		require.NoError(t, err)
		assert.Same(t, m, got)
		assert.Len(t, c.Mappings(), 1)
	})

	t.Run("build_error", func(t *testing.T) {
		c := schema.NewCache(schema.BuildOptions{})
		_, err := c.Get(reflect.TypeFor[int](), schema.CreateNone)
		require.Error(t, err)
		assert.Empty(t, c.Mappings())
	})

	t.Run("concurrent_first_use", func(t *testing.T) {
		c := schema.NewCache(schema.BuildOptions{})
		var g errgroup.Group
		for range 16 {
			g.Go(func() error {
				m, err := c.Get(reflect.TypeFor[Valuation](), schema.CreateNone)
				if err == nil && m.TableName != "Valuation" {
					t.Errorf("unexpected table %q", m.TableName)
				}
				return err
			})
		}
		require.NoError(t, g.Wait())
		assert.Len(t, c.Mappings(), 1)
	})
}
