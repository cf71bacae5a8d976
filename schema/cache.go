package schema

import (
	"reflect"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache holds the table mappings of one connection and its clones.
// Concurrent first use of a type builds its mapping once.
type Cache struct {
	opts     BuildOptions
	mappings sync.Map // reflect.Type -> *TableMapping
	group    singleflight.Group
}

// NewCache returns a cache building mappings with opts. The Flags field of
// opts is ignored; flags are given per lookup.
func NewCache(opts BuildOptions) *Cache {
	opts.Flags = CreateNone
	return &Cache{opts: opts}
}

// Get returns the mapping of t. A cached mapping is reused when flags is
// CreateNone or equal to the flags it was built with; otherwise the mapping
// is rebuilt with flags and replaces the cached one.
func (c *Cache) Get(t reflect.Type, flags CreateFlags) (*TableMapping, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if v, ok := c.mappings.Load(t); ok {
		if m := v.(*TableMapping); flags == CreateNone || m.Flags == flags {
			return m, nil
		}
	}
	key := t.PkgPath() + "." + t.String() + "#" + strconv.FormatUint(uint64(flags), 10)
	v, err, _ := c.group.Do(key, func() (any, error) {
		opts := c.opts
		opts.Flags = flags
		m, err := Build(t, opts)
		if err != nil {
			return nil, err
		}
		c.mappings.Store(t, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TableMapping), nil
}

// Put seeds the cache with a prebuilt mapping.
func (c *Cache) Put(m *TableMapping) {
	c.mappings.Store(m.Type, m)
}

// Mappings returns the cached mappings in no particular order.
func (c *Cache) Mappings() []*TableMapping {
	var ms []*TableMapping
	c.mappings.Range(func(_, v any) bool {
		ms = append(ms, v.(*TableMapping))
		return true
	})
	return ms
}
