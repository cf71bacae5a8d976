package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"

	msqlite "modernc.org/sqlite"

	"github.com/syssam/velite"
	"github.com/syssam/velite/dialect"
)

// Capabilities of the modernc.org/sqlite connection reached through
// (*sql.Conn).Raw.
type (
	backuper interface {
		NewBackup(dstURI string) (*msqlite.Backup, error)
	}
	restorer interface {
		NewRestore(srcURI string) (*msqlite.Backup, error)
	}
	serializer interface {
		Serialize() ([]byte, error)
	}
)

// NewBackup implements dialect.Engine.
func (e *Engine) NewBackup(ctx context.Context, dest string) (dialect.Backup, error) {
	var bk *msqlite.Backup
	err := e.raw(ctx, "backup", func(dc any) error {
		b, ok := dc.(backuper)
		if !ok {
			return velite.NewEngineError("backup", velite.CodeMisuse, fmt.Sprintf("driver connection %T cannot back up", dc), nil)
		}
		var err error
		bk, err = b.NewBackup(dest)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &backup{e: e, bk: bk}, nil
}

// Serialize implements dialect.Engine.
func (e *Engine) Serialize(ctx context.Context) ([]byte, error) {
	var image []byte
	err := e.raw(ctx, "serialize", func(dc any) error {
		s, ok := dc.(serializer)
		if !ok {
			return velite.NewEngineError("serialize", velite.CodeMisuse, fmt.Sprintf("driver connection %T cannot serialize", dc), nil)
		}
		var err error
		image, err = s.Serialize()
		return err
	})
	return image, err
}

// Deserialize implements dialect.Engine. The image is written to a
// temporary file and restored page by page, so the restored database lives
// in memory the engine allocated itself.
func (e *Engine) Deserialize(ctx context.Context, image []byte) (err error) {
	f, err := os.CreateTemp("", "velite-image-*.db")
	if err != nil {
		return fmt.Errorf("velite: deserialize: %w", err)
	}
	name := f.Name()
	defer func() {
		err = errors.Join(err, os.Remove(name))
	}()
	if _, err := f.Write(image); err != nil {
		_ = f.Close()
		return fmt.Errorf("velite: deserialize: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("velite: deserialize: %w", err)
	}
	return e.raw(ctx, "deserialize", func(dc any) error {
		r, ok := dc.(restorer)
		if !ok {
			return velite.NewEngineError("deserialize", velite.CodeMisuse, fmt.Sprintf("driver connection %T cannot restore", dc), nil)
		}
		bk, err := r.NewRestore(name)
		if err != nil {
			return err
		}
		for {
			more, err := bk.Step(-1)
			if err != nil {
				return errors.Join(err, bk.Finish())
			}
			if !more {
				return bk.Finish()
			}
		}
	})
}

func (e *Engine) raw(ctx context.Context, op string, f func(dc any) error) error {
	if e.closed.Load() {
		return velite.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return Translate(op, "", e.conn.Raw(f))
}

// backup steps a modernc backup, holding the connection only for the
// duration of each step.
type backup struct {
	e  *Engine
	bk *msqlite.Backup
}

func (b *backup) Step(n int) (bool, error) {
	var more bool
	err := b.e.conn.Raw(func(any) error {
		var err error
		more, err = b.bk.Step(int32(n))
		return err
	})
	return more, Translate("backup step", "", err)
}

func (b *backup) Finish() error {
	return Translate("backup finish", "", b.bk.Finish())
}
