package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineInspectTable(t *testing.T) {
	ctx := context.Background()
	e := openTemp(t, "inspect.db")
	for _, q := range []string{
		`create table "Quote" ("Symbol" varchar(8) not null, "At" datetime not null, "Price" float default 0, "Note" varchar default 'n/a', primary key ("Symbol", "At"))`,
		`create unique index "Quote_Note" on "Quote"("Note")`,
		`create index "quote_price_at" on "Quote"("Price", "At")`,
	} {
		_, err := e.Exec(ctx, q)
		require.NoError(t, err)
	}

	tbl, err := e.InspectTable(ctx, "Quote")
	require.NoError(t, err)
	require.NotNil(t, tbl)
	require.Len(t, tbl.Columns, 4)

	sym, ok := tbl.Column("symbol")
	require.True(t, ok)
	assert.Equal(t, "varchar(8)", sym.Type)
	assert.False(t, sym.Nullable)
	price, ok := tbl.Column("Price")
	require.True(t, ok)
	assert.True(t, price.Nullable)
	assert.Equal(t, "0", price.Default)
	note, ok := tbl.Column("Note")
	require.True(t, ok)
	assert.Equal(t, "'n/a'", note.Default)

	require.Len(t, tbl.PrimaryKey, 2)
	assert.Equal(t, "Symbol", tbl.PrimaryKey[0].Name)

	idx, ok := tbl.Index("Quote_Note")
	require.True(t, ok)
	assert.True(t, idx.Unique)
	idx, ok = tbl.Index("quote_price_at")
	require.True(t, ok)
	assert.False(t, idx.Unique)
	assert.Equal(t, []string{"Price", "At"}, idx.Columns)

	tbl, err = e.InspectTable(ctx, "Missing")
	require.NoError(t, err)
	assert.Nil(t, tbl)

	require.NoError(t, e.Close())
	_, err = e.InspectTable(ctx, "Quote")
	assert.Error(t, err)
}
