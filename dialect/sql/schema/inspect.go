package schema

import (
	"context"
	"fmt"

	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
)

// Inspect reads the live table name of the main database through the
// atlas SQLite inspector. It returns nil when the table does not exist.
func Inspect(ctx context.Context, eq atlas.ExecQuerier, name string) (*Table, error) {
	drv, err := sqlite.Open(eq)
	if err != nil {
		return nil, fmt.Errorf("velite: inspect %s: %w", name, err)
	}
	s, err := drv.InspectSchema(ctx, "main", &atlas.InspectOptions{Tables: []string{name}})
	if err != nil {
		return nil, fmt.Errorf("velite: inspect %s: %w", name, err)
	}
	at, ok := s.Table(name)
	if !ok {
		return nil, nil
	}
	return fromAtlas(at), nil
}

func fromAtlas(at *atlas.Table) *Table {
	t := NewTable(at.Name)
	cols := make(map[*atlas.Column]*Column, len(at.Columns))
	for _, ac := range at.Columns {
		c := &Column{Name: ac.Name, Nullable: true}
		if ac.Type != nil {
			c.Type = ac.Type.Raw
			c.Nullable = ac.Type.Null
		}
		switch d := ac.Default.(type) {
		case *atlas.Literal:
			c.Default = d.V
		case *atlas.RawExpr:
			c.Default = d.X
		}
		cols[ac] = c
		t.Columns = append(t.Columns, c)
	}
	if pk := at.PrimaryKey; pk != nil {
		for _, p := range pk.Parts {
			if c, ok := cols[p.C]; ok {
				c.Nullable = false
				t.PrimaryKey = append(t.PrimaryKey, c)
			}
		}
	}
	for _, ai := range at.Indexes {
		idx := &Index{Name: ai.Name, Unique: ai.Unique}
		for _, p := range ai.Parts {
			if p.C != nil {
				idx.Columns = append(idx.Columns, p.C.Name)
			}
		}
		t.AddIndex(idx)
	}
	return t
}
