package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/velite"
	"github.com/syssam/velite/dialect"
)

func openTemp(t *testing.T, name string) *Engine {
	t.Helper()
	e, err := Open(context.Background(), filepath.Join(t.TempDir(), name), dialect.OpenDefault)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func count(t *testing.T, e dialect.Engine, query string) int64 {
	t.Helper()
	st, err := e.Prepare(context.Background(), query)
	require.NoError(t, err)
	defer st.Finalize()
	ok, err := st.Step(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	return st.Column(0).Int64()
}

func TestEngineRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := openTemp(t, "rt.db")
	require.NoError(t, e.SetBusyTimeout(ctx, 0))

	_, err := e.Exec(ctx, `create table "t" ("id" integer primary key autoincrement, "name" varchar, "score" float, "data" blob, "at" datetime)`)
	require.NoError(t, err)

	res, err := e.Exec(ctx, `insert into "t"("name","score","data","at") values (?,?,?,?)`,
		velite.Text("a"), velite.Float64(1.5), velite.Blob([]byte{1, 2}), velite.Text("2024-01-02T03:04:05.0000000Z"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.LastInsertID)
	assert.Equal(t, int64(1), res.RowsAffected)

	st, err := e.Prepare(ctx, `select "id","name","score","data","at" from "t" where "id" = ?`)
	require.NoError(t, err)
	defer st.Finalize()
	require.NoError(t, st.Bind(1, velite.Int64(1)))
	ok, err := st.Step(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, st.ColumnCount())
	assert.Equal(t, velite.KindInteger, st.ColumnType(0))
	assert.Equal(t, "a", st.Column(1).Text())
	assert.Equal(t, 1.5, st.Column(2).Float64())
	assert.Equal(t, []byte{1, 2}, st.Column(3).Blob())
	assert.Equal(t, "2024-01-02T03:04:05.0000000Z", st.Column(4).Text())
	ok, err = st.Step(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Reset())
	ok, err = st.Step(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "reset statement runs again")
}

func TestEngineNotNull(t *testing.T) {
	ctx := context.Background()
	e := openTemp(t, "nn.db")
	_, err := e.Exec(ctx, `create table "n" ("a" varchar not null)`)
	require.NoError(t, err)
	st, err := e.Prepare(ctx, `insert into "n"("a") values (?)`)
	require.NoError(t, err)
	defer st.Finalize()
	require.NoError(t, st.Bind(1, velite.Null()))
	_, err = st.Exec(ctx)
	require.Error(t, err)
	assert.True(t, velite.IsNotNullConstraintViolation(err), "got %v", err)
}

func TestEngineSerialize(t *testing.T) {
	ctx := context.Background()
	src := openTemp(t, "src.db")
	_, err := src.Exec(ctx, `create table "s" ("v" integer)`)
	require.NoError(t, err)
	for i := range 3 {
		_, err := src.Exec(ctx, `insert into "s"("v") values (?)`, velite.Int64(int64(i)))
		require.NoError(t, err)
	}
	image, err := src.Serialize(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, image)

	dst, err := Open(ctx, MemoryPath, dialect.OpenDefault)
	require.NoError(t, err)
	defer dst.Close()
	require.NoError(t, dst.Deserialize(ctx, image))
	assert.Equal(t, int64(3), count(t, dst, `select count(*) from "s"`))
}

func TestEngineDeserializeClose(t *testing.T) {
	ctx := context.Background()
	src := openTemp(t, "src.db")
	_, err := src.Exec(ctx, `create table "s" ("v" integer)`)
	require.NoError(t, err)
	_, err = src.Exec(ctx, `insert into "s"("v") values (1), (2)`)
	require.NoError(t, err)
	image, err := src.Serialize(ctx)
	require.NoError(t, err)

	dst, err := Open(ctx, MemoryPath, dialect.OpenDefault)
	require.NoError(t, err)
	require.NoError(t, dst.Deserialize(ctx, image))
	assert.Equal(t, int64(2), count(t, dst, `select count(*) from "s"`))
	_, err = dst.Exec(ctx, `insert into "s"("v") values (3)`)
	require.NoError(t, err)
	require.NoError(t, dst.Close())

	// Engines opened after the restored one is closed keep working.
	for i := range 20 {
		e := openTemp(t, fmt.Sprintf("after-%d.db", i))
		_, err := e.Exec(ctx, `create table "a" ("id" integer primary key autoincrement, "name" varchar)`)
		require.NoError(t, err)
		res, err := e.Exec(ctx, `insert into "a"("name") values (?)`, velite.Text("x"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.LastInsertID)
		require.NoError(t, e.Close())
	}
}

func TestEngineBackup(t *testing.T) {
	ctx := context.Background()
	src := openTemp(t, "src.db")
	_, err := src.Exec(ctx, `create table "b" ("v" integer)`)
	require.NoError(t, err)
	_, err = src.Exec(ctx, `insert into "b"("v") values (1), (2)`)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "copy.db")
	bk, err := src.NewBackup(ctx, dest)
	require.NoError(t, err)
	for {
		more, err := bk.Step(1)
		require.NoError(t, err)
		if !more {
			break
		}
	}
	require.NoError(t, bk.Finish())

	cp, err := Open(ctx, dest, dialect.OpenReadOnly)
	require.NoError(t, err)
	defer cp.Close()
	assert.Equal(t, int64(2), count(t, cp, `select count(*) from "b"`))
}
