package sql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/velite"
	"github.com/syssam/velite/schema"
)

// Index is a named index grouping the columns that declare it.
type Index struct {
	Name    string
	Table   string
	Unique  bool
	Columns []string
}

// ColumnDecl renders the declaration of column c of type typ. inlinePK
// declares the primary key on the column itself.
func ColumnDecl(c *schema.Column, typ string, inlinePK bool) string {
	var b strings.Builder
	b.WriteString(schema.Quote(c.Name))
	if typ != "" {
		b.WriteString(" ")
		b.WriteString(typ)
	}
	if c.PrimaryKey && inlinePK {
		b.WriteString(" primary key")
		if c.AutoIncrement {
			b.WriteString(" autoincrement")
		}
	}
	if !c.Nullable {
		b.WriteString(" not null")
	}
	if c.Collation != "" {
		b.WriteString(" collate ")
		b.WriteString(c.Collation)
	}
	if c.Default != "" {
		b.WriteString(" default ")
		b.WriteString(c.Default)
	}
	return b.String()
}

// CreateTableSQL renders the CREATE TABLE statement of m. Multi-column keys
// get a table-level primary key clause; a single key is declared inline.
func CreateTableSQL(m *schema.TableMapping, types TypeMap) (string, error) {
	inlinePK := len(m.PK) == 1
	decls := make([]string, 0, len(m.Columns)+1)
	for _, c := range m.Columns {
		typ, err := types.SQLType(c)
		if err != nil {
			return "", fmt.Errorf("velite: column %s.%s: %w", m.TableName, c.Name, err)
		}
		decls = append(decls, ColumnDecl(c, typ, inlinePK))
	}
	if len(m.PK) > 1 {
		decls = append(decls, "primary key ("+quoteJoin(schema.ColumnNames(m.PK))+")")
	}
	var b strings.Builder
	switch {
	case m.Flags.Has(schema.FullTextSearch4):
		fmt.Fprintf(&b, "create virtual table if not exists %s using fts4 (", schema.Quote(m.TableName))
	case m.Flags.Has(schema.FullTextSearch3):
		fmt.Fprintf(&b, "create virtual table if not exists %s using fts3 (", schema.Quote(m.TableName))
	default:
		fmt.Fprintf(&b, "create table if not exists %s (", schema.Quote(m.TableName))
	}
	b.WriteString(strings.Join(decls, ", "))
	b.WriteString(")")
	return b.String(), nil
}

// Indexes groups the declared indices of m by name. Unnamed indices are
// named {table}_{column}. Columns are ordered by their declared order, and
// all columns of one index must agree on uniqueness.
func Indexes(m *schema.TableMapping) ([]*Index, error) {
	type entry struct {
		order  int
		column string
	}
	var (
		indexes []*Index
		byName  = make(map[string]*Index)
		entries = make(map[string][]entry)
	)
	for _, c := range m.Columns {
		for _, ii := range c.Indices {
			name := ii.Name
			if name == "" {
				name = m.TableName + "_" + c.Name
			}
			idx, ok := byName[name]
			switch {
			case !ok:
				idx = &Index{Name: name, Table: m.TableName, Unique: ii.Unique}
				byName[name] = idx
				indexes = append(indexes, idx)
			case idx.Unique != ii.Unique:
				return nil, velite.NewConfigError(m.TableName,
					fmt.Sprintf("all columns in index %s must have the same value for unique", name))
			}
			entries[name] = append(entries[name], entry{order: ii.Order, column: c.Name})
		}
	}
	for _, idx := range indexes {
		es := entries[idx.Name]
		slices.SortStableFunc(es, func(a, b entry) int { return a.order - b.order })
		for _, e := range es {
			idx.Columns = append(idx.Columns, e.column)
		}
	}
	return indexes, nil
}

// CreateIndexSQL renders a CREATE INDEX statement.
func CreateIndexSQL(name, table string, columns []string, unique bool) string {
	verb := "create index"
	if unique {
		verb = "create unique index"
	}
	return fmt.Sprintf("%s if not exists %s on %s(%s)", verb, schema.Quote(name), schema.Quote(table), quoteJoin(columns))
}

// AddColumnSQL renders an ALTER TABLE statement adding a column declared
// as decl.
func AddColumnSQL(table, decl string) string {
	return "alter table " + schema.Quote(table) + " add column " + decl
}

// DropTableSQL renders a DROP TABLE statement.
func DropTableSQL(table string) string {
	return "drop table if exists " + schema.Quote(table)
}

// TableInfoSQL renders the pragma describing the live columns of table.
func TableInfoSQL(table string) string {
	return "pragma table_info(" + schema.Quote(table) + ")"
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = schema.Quote(n)
	}
	return strings.Join(quoted, ", ")
}
