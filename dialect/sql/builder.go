package sql

import (
	"fmt"
	"strings"

	"github.com/syssam/velite"
	"github.com/syssam/velite/schema"
)

// InsertVerb selects the conflict clause of an INSERT.
type InsertVerb string

// Insert variants.
const (
	Insert          InsertVerb = ""
	InsertOrReplace InsertVerb = "or replace"
	InsertOrIgnore  InsertVerb = "or ignore"
)

// Columns returns the columns an insert with verb v binds. Plain and
// OR IGNORE inserts leave the auto-increment key to the engine.
func (v InsertVerb) Columns(m *schema.TableMapping) []*schema.Column {
	if v == InsertOrReplace {
		return m.InsertOrReplaceColumns
	}
	return m.InsertColumns
}

// InsertSQL renders the insert of m with verb v. A mapping with nothing to
// bind inserts default values.
func InsertSQL(m *schema.TableMapping, v InsertVerb) string {
	var b strings.Builder
	b.WriteString("insert ")
	if v != Insert {
		b.WriteString(string(v))
		b.WriteString(" ")
	}
	b.WriteString("into ")
	b.WriteString(schema.Quote(m.TableName))
	cols := v.Columns(m)
	if len(cols) == 0 {
		b.WriteString(" default values")
		return b.String()
	}
	b.WriteString("(")
	b.WriteString(quoteJoin(schema.ColumnNames(cols)))
	b.WriteString(") values (")
	b.WriteString(strings.Repeat("?, ", len(cols)-1))
	b.WriteString("?)")
	return b.String()
}

// UpdateSQL renders the update by primary key of m and returns the columns
// bound by its SET clause, in order; the key columns follow them. ok is
// false when there is nothing to set.
func UpdateSQL(m *schema.TableMapping) (query string, set []*schema.Column, ok bool, err error) {
	if len(m.PK) == 0 {
		return "", nil, false, velite.NewInvalidOperationError("update", "table "+m.TableName+" has no primary key")
	}
	for _, c := range m.Columns {
		if !c.PrimaryKey {
			set = append(set, c)
		}
	}
	if len(set) == 0 {
		return "", nil, false, nil
	}
	where, _ := m.PKWhere(len(m.PK))
	var b strings.Builder
	b.WriteString("update ")
	b.WriteString(schema.Quote(m.TableName))
	b.WriteString(" set ")
	for i, c := range set {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(schema.Quote(c.Name))
		b.WriteString(" = ?")
	}
	b.WriteString(" where ")
	b.WriteString(where)
	return b.String(), set, true, nil
}

// DeleteSQL renders the delete of the rows of m matching the first k
// primary key columns.
func DeleteSQL(m *schema.TableMapping, k int) (string, error) {
	if len(m.PK) == 0 {
		return "", velite.NewInvalidOperationError("delete", "table "+m.TableName+" has no primary key")
	}
	where, ok := m.PKWhere(k)
	if !ok {
		return "", velite.NewArgumentError("keys",
			fmt.Sprintf("table %s has %d primary key columns, got %d", m.TableName, len(m.PK), k))
	}
	return "delete from " + schema.Quote(m.TableName) + " where " + where, nil
}

// DeleteAllSQL renders the delete of every row of m.
func DeleteAllSQL(m *schema.TableMapping) string {
	return "delete from " + schema.Quote(m.TableName)
}

// SelectAllSQL renders the select of every row of m.
func SelectAllSQL(m *schema.TableMapping) string {
	return "select * from " + schema.Quote(m.TableName)
}
