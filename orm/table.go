package orm

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/syssam/velite/dialect/sql"
	sqlschema "github.com/syssam/velite/dialect/sql/schema"
	"github.com/syssam/velite/schema"
)

// CreateTableResult tells whether CreateTable created or migrated a table.
type CreateTableResult uint8

const (
	Created CreateTableResult = iota + 1
	Migrated
)

func (r CreateTableResult) String() string {
	switch r {
	case Created:
		return "created"
	case Migrated:
		return "migrated"
	default:
		return "unknown"
	}
}

// CreateTable creates the table of entity type t and its indexes. If the
// table already exists the missing columns are added instead.
func (c *Conn) CreateTable(ctx context.Context, t reflect.Type, flags schema.CreateFlags) (CreateTableResult, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	m, err := c.GetMapping(t, flags)
	if err != nil {
		return 0, err
	}
	infos, err := c.GetTableInfo(ctx, m.TableName)
	if err != nil {
		return 0, err
	}
	result := Created
	if len(infos) > 0 {
		result = Migrated
		if err := c.migrate(ctx, m, infos); err != nil {
			return 0, err
		}
	} else {
		query, err := sql.CreateTableSQL(m, c.types)
		if err != nil {
			return 0, err
		}
		if _, err := c.eng.Exec(ctx, query); err != nil {
			return 0, err
		}
	}
	indexes, err := sql.Indexes(m)
	if err != nil {
		return 0, err
	}
	for _, idx := range indexes {
		if err := c.CreateIndex(ctx, idx.Name, idx.Table, idx.Columns, idx.Unique); err != nil {
			return 0, err
		}
	}
	c.cfg.logger.InfoContext(ctx, "table ready", "table", m.TableName, "result", result.String(), "indexes", len(indexes))
	return result, nil
}

// CreateTable is the generic form of Conn.CreateTable.
func CreateTable[T any](ctx context.Context, c *Conn, flags ...schema.CreateFlags) (CreateTableResult, error) {
	var f schema.CreateFlags
	for _, fl := range flags {
		f |= fl
	}
	return c.CreateTable(ctx, reflect.TypeFor[T](), f)
}

// CreateTables creates the tables of types, stopping at the first failure.
func (c *Conn) CreateTables(ctx context.Context, flags schema.CreateFlags, types ...reflect.Type) (map[reflect.Type]CreateTableResult, error) {
	results := make(map[reflect.Type]CreateTableResult, len(types))
	for _, t := range types {
		r, err := c.CreateTable(ctx, t, flags)
		if err != nil {
			return results, fmt.Errorf("velite: create table for %s: %w", t, err)
		}
		results[t] = r
	}
	return results, nil
}

// DropTable drops the table of entity type t if it exists.
func (c *Conn) DropTable(ctx context.Context, t reflect.Type) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	m, err := c.GetMapping(t)
	if err != nil {
		return err
	}
	_, err = c.eng.Exec(ctx, sql.DropTableSQL(m.TableName))
	return err
}

// DropTable is the generic form of Conn.DropTable.
func DropTable[T any](ctx context.Context, c *Conn) error {
	return c.DropTable(ctx, reflect.TypeFor[T]())
}

// CreateIndex creates an index named name on columns of table.
func (c *Conn) CreateIndex(ctx context.Context, name, table string, columns []string, unique bool) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	_, err := c.eng.Exec(ctx, sql.CreateIndexSQL(name, table, columns, unique))
	return err
}

// GetTableInfo returns the live columns of table, none if it does not
// exist.
func (c *Conn) GetTableInfo(ctx context.Context, table string) ([]sqlschema.ColumnInfo, error) {
	stmt, err := c.prepare(ctx, sql.TableInfoSQL(table), nil)
	if err != nil {
		return nil, err
	}
	defer stmt.Finalize()
	var infos []sqlschema.ColumnInfo
	for {
		ok, err := stmt.Step(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return infos, nil
		}
		var info sqlschema.ColumnInfo
		for i := range stmt.ColumnCount() {
			v := stmt.Column(i)
			switch strings.ToLower(stmt.ColumnName(i)) {
			case "cid":
				info.CID = int(v.Int64())
			case "name":
				info.Name = v.Text()
			case "type":
				info.Type = v.Text()
			case "notnull":
				info.NotNull = v.Int64() != 0
			case "dflt_value":
				if !v.IsNull() {
					d := v.Text()
					info.Default = &d
				}
			case "pk":
				info.PK = int(v.Int64())
			}
		}
		infos = append(infos, info)
	}
}

// MigrateTable adds the mapped columns of t that the live table lacks.
// Columns are never dropped or altered; differences are logged.
func (c *Conn) MigrateTable(ctx context.Context, t reflect.Type) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	m, err := c.GetMapping(t)
	if err != nil {
		return err
	}
	infos, err := c.GetTableInfo(ctx, m.TableName)
	if err != nil {
		return err
	}
	return c.migrate(ctx, m, infos)
}

func (c *Conn) migrate(ctx context.Context, m *schema.TableMapping, infos []sqlschema.ColumnInfo) error {
	live := c.liveTable(ctx, m.TableName, infos)
	desired := sqlschema.NewTable(m.TableName)
	mapped := make(map[*sqlschema.Column]*schema.Column, len(m.Columns))
	for _, col := range m.Columns {
		typ, err := c.types.SQLType(col)
		if err != nil {
			return fmt.Errorf("velite: column %s.%s: %w", m.TableName, col.Name, err)
		}
		dc := &sqlschema.Column{Name: col.Name, Type: typ, Nullable: col.Nullable, Default: col.Default}
		mapped[dc] = col
		if col.PrimaryKey {
			desired.AddPrimary(dc)
		} else {
			desired.AddColumns(dc)
		}
	}
	indexes, err := sql.Indexes(m)
	if err != nil {
		return err
	}
	for _, idx := range indexes {
		desired.AddIndex(&sqlschema.Index{Name: idx.Name, Unique: idx.Unique, Columns: idx.Columns})
	}
	var opts []sqlschema.ValidateOption
	if c.cfg.relaxNotNull {
		opts = append(opts, sqlschema.RelaxNotNull())
	}
	result := sqlschema.ValidateDiff(live, desired, opts...)
	for _, w := range result.Warnings {
		c.cfg.logger.WarnContext(ctx, "migration", "table", w.Table, "column", w.Column, "warning", w.Message)
	}
	if err := result.Err(); err != nil {
		return err
	}
	for _, dc := range result.Add {
		col := *mapped[dc]
		if !col.Nullable && col.Default == "" {
			col.Nullable = true
		}
		decl := sql.ColumnDecl(&col, dc.Type, false)
		if _, err := c.eng.Exec(ctx, sql.AddColumnSQL(m.TableName, decl)); err != nil {
			return err
		}
		c.cfg.logger.InfoContext(ctx, "column added", "table", m.TableName, "column", col.Name, "decl", decl)
	}
	return nil
}

type tableInspector interface {
	InspectTable(ctx context.Context, name string) (*sqlschema.Table, error)
}

// liveTable describes the live table, read by the engine's inspector when
// it has one and built from the table_info rows otherwise.
func (c *Conn) liveTable(ctx context.Context, name string, infos []sqlschema.ColumnInfo) *sqlschema.Table {
	if in, ok := c.eng.(tableInspector); ok {
		t, err := in.InspectTable(ctx, name)
		if err == nil && t != nil {
			return t
		}
		if err != nil {
			c.cfg.logger.DebugContext(ctx, "inspect failed, using table_info", "table", name, "error", err)
		}
	}
	return sqlschema.TableFromInfo(name, infos)
}
