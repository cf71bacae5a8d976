package orm

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/syssam/velite"
	"github.com/syssam/velite/dialect"
	"github.com/syssam/velite/dialect/sql"
	"github.com/syssam/velite/dialect/sqlite"
	"github.com/syssam/velite/schema"
)

// Conn is a connection to one database. It is not safe for concurrent use,
// except that concurrent inserts of one entity type never interleave on
// their shared prepared statement.
type Conn struct {
	eng      dialect.Engine
	path     string
	cfg      *config
	mappings *schema.Cache
	binder   sql.Binder
	reader   sql.Reader
	types    sql.TypeMap

	inserts sync.Map // insertKey -> *preparedInsert
	depth   atomic.Int32
	closed  atomic.Bool
}

// Open opens the database at path. An empty path or ":memory:" opens a
// private in-memory database.
func Open(ctx context.Context, path string, opts ...Option) (*Conn, error) {
	cfg := newConfig(opts)
	eng, err := openEngine(ctx, path, cfg)
	if err != nil {
		return nil, err
	}
	c, err := newConn(ctx, eng, path, cfg, newMappingCache(cfg))
	if err != nil {
		_ = eng.Close()
		return nil, err
	}
	return c, nil
}

// OpenConfig opens the database described by cfg. opts apply after the
// options derived from cfg.
func OpenConfig(ctx context.Context, cfg *Config, opts ...Option) (*Conn, error) {
	return Open(ctx, cfg.Path, append(cfg.Options(), opts...)...)
}

// NewConn wraps an open engine. The engine is closed with the connection.
func NewConn(ctx context.Context, eng dialect.Engine, opts ...Option) (*Conn, error) {
	cfg := newConfig(opts)
	var path string
	if p, ok := eng.(interface{ Path() string }); ok {
		path = p.Path()
	}
	return newConn(ctx, eng, path, cfg, newMappingCache(cfg))
}

func openEngine(ctx context.Context, path string, cfg *config) (*sqlite.Engine, error) {
	return sqlite.Open(ctx, path, cfg.flags,
		sqlite.WithLogger(cfg.logger),
		sqlite.WithTrace(cfg.trace),
		sqlite.WithSlowThreshold(cfg.slowThreshold),
		sqlite.WithSlowQueryLog(),
	)
}

func newMappingCache(cfg *config) *schema.Cache {
	mc := schema.NewCache(schema.BuildOptions{
		Provider:            cfg.provider,
		ImplicitPKName:      cfg.implicitPKName,
		ImplicitIndexSuffix: cfg.implicitIndexSuffix,
	})
	for _, m := range cfg.mappings {
		mc.Put(m)
	}
	return mc
}

func newConn(ctx context.Context, eng dialect.Engine, path string, cfg *config, mc *schema.Cache) (*Conn, error) {
	c := &Conn{
		eng:      eng,
		path:     path,
		cfg:      cfg,
		mappings: mc,
		binder:   sql.Binder{StoreDateTimeAsTicks: cfg.storeDateTimeAsTicks, Serializer: cfg.serializer},
		reader:   sql.Reader{StoreDateTimeAsTicks: cfg.storeDateTimeAsTicks, Serializer: cfg.serializer},
		types:    sql.TypeMap{StoreDateTimeAsTicks: cfg.storeDateTimeAsTicks, Serializer: cfg.serializer, Extra: cfg.extraTypes},
	}
	if cfg.key != "" {
		if _, err := eng.Exec(ctx, "pragma key = '"+strings.ReplaceAll(cfg.key, "'", "''")+"'"); err != nil {
			return nil, fmt.Errorf("velite: set key: %w", err)
		}
	}
	if cfg.busyTimeout > 0 {
		if err := eng.SetBusyTimeout(ctx, cfg.busyTimeout); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Path returns the database path, empty for engines that do not report one.
func (c *Conn) Path() string { return c.path }

// Engine returns the underlying engine.
func (c *Conn) Engine() dialect.Engine { return c.eng }

// StoreDateTimeAsTicks reports the date storage mode.
func (c *Conn) StoreDateTimeAsTicks() bool { return c.cfg.storeDateTimeAsTicks }

// IsMemory reports whether the database lives only in this connection.
func (c *Conn) IsMemory() bool {
	return sqlite.IsMemory(c.path, c.cfg.flags)
}

// GetMapping returns the mapping of entity type t, building it on first
// use. Flags other than schema.CreateNone rebuild a mapping cached with
// different flags.
func (c *Conn) GetMapping(t reflect.Type, flags ...schema.CreateFlags) (*schema.TableMapping, error) {
	if t == nil {
		return nil, velite.NewArgumentError("type", "must not be nil")
	}
	f := schema.CreateNone
	for _, fl := range flags {
		f |= fl
	}
	return c.mappings.Get(t, f)
}

// Mappings returns the mappings built so far.
func (c *Conn) Mappings() []*schema.TableMapping {
	return c.mappings.Mappings()
}

// Stats returns the query statistics of the engine, if it keeps any.
func (c *Conn) Stats() sqlite.StatsSnapshot {
	if s, ok := c.eng.(interface{ QueryStats() *sqlite.QueryStats }); ok {
		return s.QueryStats().Stats()
	}
	return sqlite.StatsSnapshot{}
}

// Close finalizes the cached statements and closes the engine. Closing a
// closed connection is a no-op.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.finalizeInserts()
	return errors.Join(err, c.eng.Close())
}

// clone opens a second connection to the same database sharing the
// configuration and mapping cache. In-memory databases cannot be shared, so
// they return c itself with owned false.
func (c *Conn) clone(ctx context.Context) (clone *Conn, owned bool, err error) {
	if c.path == "" || c.IsMemory() {
		return c, false, nil
	}
	eng, err := openEngine(ctx, c.path, c.cfg)
	if err != nil {
		return nil, false, err
	}
	clone, err = newConn(ctx, eng, c.path, c.cfg, c.mappings)
	if err != nil {
		_ = eng.Close()
		return nil, false, err
	}
	return clone, true, nil
}

func (c *Conn) checkOpen() error {
	if c.closed.Load() {
		return velite.ErrClosed
	}
	return nil
}
