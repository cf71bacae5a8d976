package orm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/syssam/velite"
)

// SavePoint identifies a savepoint and the transaction depth it opened.
type SavePoint struct {
	salt  uint32
	depth int32
}

// Name returns the savepoint's name, S<salt>D<depth>.
func (sp SavePoint) Name() string {
	return fmt.Sprintf("S%dD%d", sp.salt, sp.depth)
}

// Depth returns the transaction depth the savepoint opened.
func (sp SavePoint) Depth() int { return int(sp.depth) }

// IsInTransaction reports whether a transaction or savepoint is open.
func (c *Conn) IsInTransaction() bool { return c.depth.Load() > 0 }

// BeginTransaction starts a transaction. It fails with an
// *velite.InvalidOperationError wrapping velite.ErrTxStarted when one is
// already open. If the engine is mid-transaction without c knowing, that
// transaction is rolled back.
func (c *Conn) BeginTransaction(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if !c.depth.CompareAndSwap(0, 1) {
		return &velite.InvalidOperationError{Op: "begin", Msg: "transaction already started", Err: velite.ErrTxStarted}
	}
	if !c.eng.GetAutocommit() {
		c.quietRollback(ctx)
		return &velite.InvalidOperationError{Op: "begin", Msg: "engine is already in a transaction", Err: velite.ErrTxStarted}
	}
	_, err := c.eng.Exec(ctx, "begin transaction")
	if err == nil {
		return nil
	}
	if fatalTxError(err) {
		c.quietRollback(ctx)
		return err
	}
	// The engine did not start a transaction.
	c.depth.Store(0)
	return err
}

// SavePoint opens a savepoint, starting a transaction if none is open.
// On failure the whole transaction is rolled back.
func (c *Conn) SavePoint(ctx context.Context) (SavePoint, error) {
	if err := c.checkOpen(); err != nil {
		return SavePoint{}, err
	}
	sp := SavePoint{salt: rand.Uint32(), depth: c.depth.Add(1)}
	if _, err := c.eng.Exec(ctx, "savepoint "+sp.Name()); err != nil {
		c.quietRollback(ctx)
		return SavePoint{}, err
	}
	return sp, nil
}

// Release commits the work done since sp and closes every savepoint
// opened after it. Releasing the outermost savepoint commits.
func (c *Conn) Release(ctx context.Context, sp SavePoint) error {
	if err := c.checkSavePoint(sp); err != nil {
		return err
	}
	if _, err := c.eng.Exec(ctx, "release "+sp.Name()); err != nil {
		return err
	}
	c.depth.Store(sp.depth - 1)
	return nil
}

// RollbackTo undoes the work done since sp. The savepoint stays open and
// the transaction depth is unchanged.
func (c *Conn) RollbackTo(ctx context.Context, sp SavePoint) error {
	if err := c.checkSavePoint(sp); err != nil {
		return err
	}
	_, err := c.eng.Exec(ctx, "rollback to "+sp.Name())
	return err
}

func (c *Conn) checkSavePoint(sp SavePoint) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if sp.depth < 1 || sp.depth > c.depth.Load() {
		return velite.NewArgumentError("savepoint", fmt.Sprintf("%s is not open", sp.Name()))
	}
	return nil
}

// Rollback undoes the open transaction. Without one it only resets the
// depth.
func (c *Conn) Rollback(ctx context.Context) error {
	if c.depth.Swap(0) == 0 {
		return nil
	}
	_, err := c.eng.Exec(ctx, "rollback")
	return err
}

// Commit commits the open transaction. If the commit fails the
// transaction is rolled back and the commit error returned.
func (c *Conn) Commit(ctx context.Context) error {
	if c.depth.Swap(0) == 0 {
		return nil
	}
	if _, err := c.eng.Exec(ctx, "commit"); err != nil {
		if _, rerr := c.eng.Exec(ctx, "rollback"); rerr != nil {
			c.cfg.logger.WarnContext(ctx, "rollback after failed commit failed", "error", rerr)
		}
		return err
	}
	return nil
}

// RunInTransaction runs fn inside a savepoint and releases it when fn
// succeeds. If fn fails or panics, the work is rolled back and the error
// returned or the panic resumed.
//
// Outside a transaction fn receives a separate connection to the same
// database, so other statements on c do not join the transaction.
// In-memory databases run fn on c itself.
func (c *Conn) RunInTransaction(ctx context.Context, fn func(*Conn) error) (err error) {
	if err := c.checkOpen(); err != nil {
		return err
	}
	conn := c
	if !c.IsInTransaction() {
		clone, owned, cerr := c.clone(ctx)
		if cerr != nil {
			return cerr
		}
		if owned {
			defer func() {
				err = errors.Join(err, clone.Close())
			}()
		}
		conn = clone
	}
	sp, err := conn.SavePoint(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			conn.abandon(ctx, sp)
			panic(r)
		}
	}()
	if err := fn(conn); err != nil {
		conn.abandon(ctx, sp)
		return err
	}
	return conn.Release(ctx, sp)
}

// abandon rolls back to sp and releases it, logging failures.
func (c *Conn) abandon(ctx context.Context, sp SavePoint) {
	if err := c.RollbackTo(ctx, sp); err != nil {
		c.cfg.logger.WarnContext(ctx, "rollback to savepoint failed", "savepoint", sp.Name(), "error", err)
		c.quietRollback(ctx)
		return
	}
	if err := c.Release(ctx, sp); err != nil {
		c.cfg.logger.WarnContext(ctx, "release savepoint failed", "savepoint", sp.Name(), "error", err)
		c.quietRollback(ctx)
	}
}

// quietRollback rolls back to the root, logging instead of returning
// failures.
func (c *Conn) quietRollback(ctx context.Context) {
	c.depth.Store(0)
	if _, err := c.eng.Exec(ctx, "rollback"); err != nil {
		c.cfg.logger.DebugContext(ctx, "rollback failed", "error", err)
	}
}

// fatalTxError reports errors after which the engine may have rolled back
// on its own.
func fatalTxError(err error) bool {
	code, ok := velite.CodeOf(err)
	if !ok {
		return false
	}
	switch code.Primary() {
	case velite.CodeIOErr, velite.CodeFull, velite.CodeBusy, velite.CodeNoMem:
		return true
	}
	return false
}
