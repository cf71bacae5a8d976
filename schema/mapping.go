package schema

import (
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/syssam/velite"
)

// CreateFlags control implicit schema conventions applied by Build and
// the kind of table CreateTable emits.
type CreateFlags uint32

const (
	// CreateNone applies no implicit conventions.
	CreateNone CreateFlags = 0
	// ImplicitPK treats a member named like the implicit key name as the primary key.
	ImplicitPK CreateFlags = 1 << 0
	// ImplicitIndex indexes members whose name ends with the implicit index suffix.
	ImplicitIndex CreateFlags = 1 << 1
	// AllImplicit combines ImplicitPK and ImplicitIndex.
	AllImplicit = ImplicitPK | ImplicitIndex
	// AutoIncPK makes a single-column primary key auto-assigned.
	AutoIncPK CreateFlags = 1 << 2
	// FullTextSearch3 creates an fts3 virtual table.
	FullTextSearch3 CreateFlags = 0x100
	// FullTextSearch4 creates an fts4 virtual table.
	FullTextSearch4 CreateFlags = 0x200
)

// Has reports whether all bits of f2 are set in f.
func (f CreateFlags) Has(f2 CreateFlags) bool { return f&f2 == f2 }

// Defaults for BuildOptions.
const (
	DefaultImplicitPKName      = "Id"
	DefaultImplicitIndexSuffix = "Id"
)

// BuildOptions configures Build.
type BuildOptions struct {
	Flags               CreateFlags
	Provider            InfoProvider
	ImplicitPKName      string
	ImplicitIndexSuffix string
}

// TableMapping is the derived schema of one entity type. It is immutable
// once built.
type TableMapping struct {
	Type      reflect.Type
	TableName string
	Flags     CreateFlags
	Columns   []*Column
	PK        []*Column
	// AutoIncPK is the engine-assigned key column, if any.
	AutoIncPK *Column
	// AutoGUIDPK is the client-assigned uuid key column, if any.
	AutoGUIDPK *Column
	// InsertColumns excludes the auto-increment column.
	InsertColumns []*Column
	// InsertOrReplaceColumns lists every column.
	InsertOrReplaceColumns []*Column
	// GetByPrimaryKeySQL selects one row by its full key.
	GetByPrimaryKeySQL string

	pkWhere []string
	byName  map[string]*Column
}

// HasAutoIncPK reports whether the mapping has an engine-assigned key.
func (m *TableMapping) HasAutoIncPK() bool { return m.AutoIncPK != nil }

// PKWhere returns the predicate matching the first k primary key columns,
// e.g. `"a" = ? and "b" = ?`. It returns false if k is out of range.
func (m *TableMapping) PKWhere(k int) (string, bool) {
	if k < 1 || k > len(m.pkWhere) {
		return "", false
	}
	return m.pkWhere[k-1], true
}

// FindColumn returns the column stored under name, compared case-insensitively.
func (m *TableMapping) FindColumn(name string) *Column {
	return m.byName[cases.Fold().String(name)]
}

// FindColumnWithMember returns the direct column of the named Go field.
func (m *TableMapping) FindColumnWithMember(name string) *Column {
	for _, c := range m.Columns {
		if c.Member.Name == name && !c.IsTupleSlot() {
			return c
		}
	}
	return nil
}

// NotNullViolations returns the not-null columns whose members hold nil in
// the entity v (a struct or pointer to struct).
func (m *TableMapping) NotNullViolations(v reflect.Value) []*Column {
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	var cols []*Column
	for _, c := range m.Columns {
		if !c.Nullable && c != m.AutoIncPK && c.HoldsNull(v) {
			cols = append(cols, c)
		}
	}
	return cols
}

// ColumnNames returns the storage names of cols.
func ColumnNames(cols []*Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

var uuidType = reflect.TypeFor[uuid.UUID]()

// Build derives the table mapping of struct type t.
func Build(t reflect.Type, opts BuildOptions) (*TableMapping, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if opts.Provider == nil {
		opts.Provider = DefaultProvider
	}
	if opts.ImplicitPKName == "" {
		opts.ImplicitPKName = DefaultImplicitPKName
	}
	if opts.ImplicitIndexSuffix == "" {
		opts.ImplicitIndexSuffix = DefaultImplicitIndexSuffix
	}
	members, err := Members(t, opts.Provider)
	if err != nil {
		return nil, err
	}
	m := &TableMapping{
		Type:      t,
		TableName: tableName(t, opts.Provider),
		Flags:     opts.Flags,
		byName:    make(map[string]*Column),
	}
	isPK := func(mb *Member) bool {
		if mb.Info.PrimaryKey {
			return true
		}
		return opts.Flags.Has(ImplicitPK) &&
			(strings.EqualFold(mb.Name, opts.ImplicitPKName) || strings.EqualFold(mb.Info.Column, opts.ImplicitPKName))
	}
	SortMembers(members, isPK)
	var pkMembers int
	for _, mb := range members {
		if isPK(mb) {
			pkMembers++
		}
	}
	fold := cases.Fold()
	for _, mb := range members {
		cols, err := memberColumns(mb, isPK(mb))
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			if err := m.applyKeyRules(c, pkMembers, opts); err != nil {
				return nil, err
			}
			if opts.Flags.Has(ImplicitIndex) && len(c.Indices) == 0 && !c.PrimaryKey &&
				hasSuffixFold(c.Name, opts.ImplicitIndexSuffix) {
				c.Indices = []IndexInfo{{}}
			}
			key := fold.String(c.Name)
			if _, dup := m.byName[key]; dup {
				return nil, velite.NewConfigError(m.TableName, "duplicate column "+c.Name)
			}
			m.byName[key] = c
			m.Columns = append(m.Columns, c)
			if c.PrimaryKey {
				m.PK = append(m.PK, c)
			}
		}
	}
	if len(m.Columns) == 0 {
		return nil, velite.NewConfigError(m.TableName, "type "+t.String()+" has no columns")
	}
	m.finish()
	return m, nil
}

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

func tableName(t reflect.Type, p InfoProvider) string {
	if n, ok := reflect.New(t).Interface().(velite.TableNamer); ok {
		if name := n.TableName(); name != "" {
			return name
		}
	}
	return p.TableName(t)
}

// memberColumns expands a member into its columns.
func memberColumns(mb *Member, pk bool) ([]*Column, error) {
	t := mb.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if mb.Info.StoreAsText && t.Kind() != reflect.String && !reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return nil, velite.NewUnsupportedTypeError("map", mb.Type.String(),
			"storeastext member "+mb.Name+" must implement encoding.TextUnmarshaler")
	}
	base := Column{
		Collation:     mb.Info.Collation,
		MaxLength:     mb.Info.MaxLength,
		Default:       mb.Info.Default,
		Nullable:      !pk && !mb.Info.NotNull,
		PrimaryKey:    pk,
		AutoIncrement: mb.Info.AutoIncrement,
		StoreAsText:   mb.Info.StoreAsText,
		Indices:       mb.Info.Indices,
		Member:        mb,
		TupleSlot:     -1,
	}
	if !isTuple(t) && !(mb.Info.Flatten && t.Kind() == reflect.Struct && !isScalarStruct(t)) {
		c := base
		c.Name = mb.Info.Column
		c.Type = t
		return []*Column{&c}, nil
	}
	if pk {
		return nil, velite.NewUnsupportedTypeError("map", mb.Type.String(), "tuple member "+mb.Name+" cannot be a primary key")
	}
	elems, err := tupleElements(mb, t)
	if err != nil {
		return nil, err
	}
	cols := make([]*Column, len(elems))
	for i, e := range elems {
		c := base
		c.Name = mb.Info.Column + "_" + e.name
		c.Type = e.typ
		if c.Type.Kind() == reflect.Pointer {
			c.Type = c.Type.Elem()
		}
		c.TupleSlot = e.slot
		c.AutoIncrement = false
		c.Indices = slices.Clone(mb.Info.Indices)
		cols[i] = &c
	}
	return cols, nil
}

func (m *TableMapping) applyKeyRules(c *Column, pkMembers int, opts BuildOptions) error {
	isInt := isIntegerKind(c.Type.Kind())
	auto := c.AutoIncrement || (opts.Flags.Has(AutoIncPK) && c.PrimaryKey && pkMembers == 1)
	if !auto {
		return nil
	}
	switch {
	case !c.PrimaryKey:
		return velite.NewConfigError(m.TableName, "autoincrement column "+c.Name+" is not a primary key")
	case pkMembers > 1:
		return velite.NewConfigError(m.TableName, "autoincrement column "+c.Name+" is part of a composite primary key")
	case c.Type == uuidType:
		c.AutoIncrement = false
		c.AutoGUID = true
		m.AutoGUIDPK = c
	case isInt:
		if m.AutoIncPK != nil {
			return velite.NewConfigError(m.TableName, "multiple autoincrement columns")
		}
		c.AutoIncrement = true
		m.AutoIncPK = c
	case c.AutoIncrement:
		return velite.NewConfigError(m.TableName, fmt.Sprintf("autoincrement column %s has type %s", c.Name, c.Type))
	}
	return nil
}

func (m *TableMapping) finish() {
	for _, c := range m.Columns {
		if c != m.AutoIncPK {
			m.InsertColumns = append(m.InsertColumns, c)
		}
	}
	m.InsertOrReplaceColumns = m.Columns
	var b strings.Builder
	for i, c := range m.PK {
		if i > 0 {
			b.WriteString(" and ")
		}
		b.WriteString(Quote(c.Name))
		b.WriteString(" = ?")
		m.pkWhere = append(m.pkWhere, b.String())
	}
	if len(m.PK) > 0 {
		m.GetByPrimaryKeySQL = "select * from " + Quote(m.TableName) + " where " + m.pkWhere[len(m.pkWhere)-1]
	}
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) > len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}
