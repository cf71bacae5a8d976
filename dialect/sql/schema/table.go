// Package schema describes live SQLite tables and checks that a mapped
// table can be reached from a live one by adding columns.
package schema

import (
	"strings"

	"golang.org/x/text/cases"
)

// ColumnInfo is one row of PRAGMA table_info.
type ColumnInfo struct {
	CID     int
	Name    string
	Type    string
	NotNull bool
	Default *string // nil when the column has no default
	PK      int     // 1-based position in the primary key, 0 if not a key
}

// Table describes a table's columns and indexes.
type Table struct {
	Name       string
	Columns    []*Column
	PrimaryKey []*Column
	Indexes    []*Index
}

// Column describes a table column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Default  string
}

// Index describes a table index.
type Index struct {
	Name    string
	Unique  bool
	Columns []string
}

// String renders the index as its uniqueness and column list.
func (idx *Index) String() string {
	kind := "index"
	if idx.Unique {
		kind = "unique index"
	}
	return kind + "(" + strings.Join(idx.Columns, ", ") + ")"
}

// NewTable returns a table named name.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// AddColumns appends columns to the table.
func (t *Table) AddColumns(cs ...*Column) *Table {
	t.Columns = append(t.Columns, cs...)
	return t
}

// AddPrimary appends c to the columns and to the primary key.
func (t *Table) AddPrimary(c *Column) *Table {
	t.Columns = append(t.Columns, c)
	t.PrimaryKey = append(t.PrimaryKey, c)
	return t
}

// AddIndex appends an index.
func (t *Table) AddIndex(idx *Index) *Table {
	t.Indexes = append(t.Indexes, idx)
	return t
}

// Column returns the column named name, compared case-insensitively as
// SQLite compares identifiers.
func (t *Table) Column(name string) (*Column, bool) {
	fold := cases.Fold()
	key := fold.String(name)
	for _, c := range t.Columns {
		if fold.String(c.Name) == key {
			return c, true
		}
	}
	return nil, false
}

// Index returns the index named name.
func (t *Table) Index(name string) (*Index, bool) {
	for _, idx := range t.Indexes {
		if strings.EqualFold(idx.Name, name) {
			return idx, true
		}
	}
	return nil, false
}

// TableFromInfo builds the live description of table name from its
// PRAGMA table_info rows.
func TableFromInfo(name string, infos []ColumnInfo) *Table {
	t := NewTable(name)
	keys := make([]*Column, 0, 1)
	keyPos := make([]int, 0, 1)
	for _, info := range infos {
		c := &Column{Name: info.Name, Type: info.Type, Nullable: !info.NotNull && info.PK == 0}
		if info.Default != nil {
			c.Default = *info.Default
		}
		t.Columns = append(t.Columns, c)
		if info.PK > 0 {
			keys = append(keys, c)
			keyPos = append(keyPos, info.PK)
		}
	}
	t.PrimaryKey = make([]*Column, len(keys))
	for i, c := range keys {
		if p := keyPos[i] - 1; p >= 0 && p < len(keys) {
			t.PrimaryKey[p] = c
		}
	}
	return t
}
