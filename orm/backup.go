package orm

import (
	"context"
	"errors"
	"time"

	"github.com/syssam/velite"
)

// BackupTimeLayout formats the timestamp CreateDatabaseBackup appends to
// the database path.
const BackupTimeLayout = "20060102T150405.000000000Z"

// CreateDatabaseBackup copies the database next to its file as
// <path>.<UTC timestamp>.bak and returns the backup's path.
func (c *Conn) CreateDatabaseBackup(ctx context.Context) (string, error) {
	if c.path == "" || c.IsMemory() {
		return "", velite.NewInvalidOperationError("backup", "in-memory databases have no file to back up")
	}
	dest := c.path + "." + time.Now().UTC().Format(BackupTimeLayout) + ".bak"
	if err := c.Backup(ctx, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Backup copies the main database into the file dest while the
// connection stays usable. Pages are copied in steps; between steps, and
// whenever the source is busy, Backup sleeps so other work can proceed.
func (c *Conn) Backup(ctx context.Context, dest string) (err error) {
	if err := c.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	c.cfg.logger.InfoContext(ctx, "backup started", "source", c.path, "dest", dest)
	bk, err := c.eng.NewBackup(ctx, dest)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, bk.Finish())
		if err == nil {
			c.cfg.logger.InfoContext(ctx, "backup finished", "dest", dest, "duration", time.Since(start))
		}
	}()
	for {
		more, err := bk.Step(c.cfg.backupPages)
		switch {
		case velite.IsBusy(err):
			c.cfg.logger.DebugContext(ctx, "backup source busy", "dest", dest)
		case err != nil:
			return err
		case !more:
			return nil
		}
		if err := sleep(ctx, c.cfg.backupPause); err != nil {
			return err
		}
	}
}

// Serialize returns an image of the main database.
func (c *Conn) Serialize(ctx context.Context) ([]byte, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.eng.Serialize(ctx)
}

// Deserialize replaces the main database with image. Cached statements
// refer to the old database and are released first.
func (c *Conn) Deserialize(ctx context.Context, image []byte) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if len(image) == 0 {
		return velite.NewArgumentError("image", "must not be empty")
	}
	if err := c.finalizeInserts(); err != nil {
		return err
	}
	return c.eng.Deserialize(ctx, image)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
