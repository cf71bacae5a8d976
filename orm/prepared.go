package orm

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/syssam/velite"
	"github.com/syssam/velite/dialect"
	"github.com/syssam/velite/dialect/sql"
	"github.com/syssam/velite/schema"
)

type insertKey struct {
	t    reflect.Type
	verb sql.InsertVerb
}

// errStaleInsert reports a statement finalized after its mapping was
// rebuilt.
var errStaleInsert = errors.New("velite: insert statement was replaced")

// preparedInsert owns the insert statement of one mapping and verb. The
// engine forbids interleaved bind/step cycles on a statement, so every
// execution holds mu.
type preparedInsert struct {
	m    *schema.TableMapping
	mu   sync.Mutex
	stmt dialect.Stmt // nil once finalized
}

func (p *preparedInsert) exec(ctx context.Context, args []velite.Value) (dialect.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stmt == nil {
		return dialect.Result{}, errStaleInsert
	}
	defer p.stmt.ClearBindings()
	for i, a := range args {
		if err := p.stmt.Bind(i+1, a); err != nil {
			return dialect.Result{}, err
		}
	}
	return p.stmt.Exec(ctx)
}

func (p *preparedInsert) finalize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stmt == nil {
		return nil
	}
	err := p.stmt.Finalize()
	p.stmt = nil
	return err
}

// execInsert runs the cached insert of m and verb with args.
func (c *Conn) execInsert(ctx context.Context, m *schema.TableMapping, verb sql.InsertVerb, args []velite.Value) (dialect.Result, error) {
	for {
		p, err := c.insertStmt(ctx, m, verb)
		if err != nil {
			return dialect.Result{}, err
		}
		res, err := p.exec(ctx, args)
		if !errors.Is(err, errStaleInsert) {
			return res, err
		}
	}
}

// insertStmt returns the cached insert statement of m and verb, preparing
// it on first use. A statement cached for an earlier mapping of the same
// type is finalized and replaced.
func (c *Conn) insertStmt(ctx context.Context, m *schema.TableMapping, verb sql.InsertVerb) (*preparedInsert, error) {
	key := insertKey{t: m.Type, verb: verb}
	for {
		old, ok := c.inserts.Load(key)
		if ok && old.(*preparedInsert).m == m {
			return old.(*preparedInsert), nil
		}
		stmt, err := c.eng.Prepare(ctx, sql.InsertSQL(m, verb))
		if err != nil {
			return nil, err
		}
		p := &preparedInsert{m: m, stmt: stmt}
		var stored bool
		if ok {
			stored = c.inserts.CompareAndSwap(key, old, p)
		} else {
			_, loaded := c.inserts.LoadOrStore(key, p)
			stored = !loaded
		}
		if !stored {
			_ = stmt.Finalize()
			continue
		}
		if ok {
			if err := old.(*preparedInsert).finalize(); err != nil {
				c.cfg.logger.DebugContext(ctx, "finalize replaced insert failed", "table", m.TableName, "error", err)
			}
		}
		return p, nil
	}
}

// finalizeInserts releases every cached insert statement.
func (c *Conn) finalizeInserts() error {
	var errs []error
	c.inserts.Range(func(k, v any) bool {
		c.inserts.Delete(k)
		if err := v.(*preparedInsert).finalize(); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}
