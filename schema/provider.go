package schema

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/velite"
)

// TagName is the struct tag read by TagProvider.
const TagName = "sqlite"

// TupleTagName is the struct tag holding tuple element names.
const TupleTagName = "tuple"

// IndexInfo describes the membership of a column in one index.
type IndexInfo struct {
	// Name of the index. Empty means "{table}_{column}".
	Name string
	// Order of the column within a multi-column index.
	Order int
	// Unique marks a unique index.
	Unique bool
}

// MemberInfo is the metadata an InfoProvider reports for one struct field.
type MemberInfo struct {
	Column        string
	PrimaryKey    bool
	AutoIncrement bool
	NotNull       bool
	Ignore        bool
	Indices       []IndexInfo
	Collation     string
	MaxLength     int
	Default       string
	StoreAsText   bool
	Flatten       bool
	TupleNames    []string
}

// InfoProvider resolves naming, keys, indexing and nullability metadata.
type InfoProvider interface {
	// TableName returns the table name for an entity type.
	TableName(t reflect.Type) string
	// MemberInfo returns the metadata for one exported field.
	MemberInfo(f reflect.StructField) (MemberInfo, error)
}

// TagProvider reads metadata from `sqlite` and `tuple` struct tags.
// The naming functions apply to names not given explicitly in a tag; nil
// keeps the Go identifier.
type TagProvider struct {
	TableNaming  func(string) string
	ColumnNaming func(string) string
}

// DefaultProvider is the provider used when none is configured.
var DefaultProvider InfoProvider = TagProvider{}

// NewInflectProvider returns a TagProvider that derives pluralised
// snake_case table names and snake_case column names:
//
//	type OrderLine struct{ UnitPrice float64 } // order_lines.unit_price
func NewInflectProvider() TagProvider {
	return TagProvider{
		TableNaming: func(s string) string {
			return inflect.Underscore(inflect.Pluralize(s))
		},
		ColumnNaming: inflect.Underscore,
	}
}

// TableName implements InfoProvider.
func (p TagProvider) TableName(t reflect.Type) string {
	if p.TableNaming != nil {
		return p.TableNaming(t.Name())
	}
	return t.Name()
}

// MemberInfo implements InfoProvider.
func (p TagProvider) MemberInfo(f reflect.StructField) (MemberInfo, error) {
	info := MemberInfo{Column: f.Name}
	if p.ColumnNaming != nil {
		info.Column = p.ColumnNaming(f.Name)
	}
	tag, ok := f.Tag.Lookup(TagName)
	if ok {
		if tag == "-" {
			info.Ignore = true
			return info, nil
		}
		parts := strings.Split(tag, ",")
		if name := strings.TrimSpace(parts[0]); name != "" {
			info.Column = name
		}
		for _, opt := range parts[1:] {
			if err := parseOption(&info, f.Name, strings.TrimSpace(opt)); err != nil {
				return info, err
			}
		}
	}
	if names, ok := f.Tag.Lookup(TupleTagName); ok && names != "" {
		for _, n := range strings.Split(names, ",") {
			info.TupleNames = append(info.TupleNames, strings.TrimSpace(n))
		}
	}
	return info, nil
}

func parseOption(info *MemberInfo, field, opt string) error {
	key, val, hasVal := strings.Cut(opt, "=")
	switch strings.ToLower(key) {
	case "":
	case "pk", "primarykey":
		info.PrimaryKey = true
	case "autoincrement", "autoinc":
		info.AutoIncrement = true
	case "notnull":
		info.NotNull = true
	case "index", "unique":
		idx := IndexInfo{Unique: strings.EqualFold(key, "unique")}
		if hasVal {
			name, order, hasOrder := strings.Cut(val, ":")
			idx.Name = name
			if hasOrder {
				n, err := strconv.Atoi(order)
				if err != nil {
					return velite.NewConfigError("", "field "+field+": invalid index order "+strconv.Quote(order))
				}
				idx.Order = n
			}
		}
		info.Indices = append(info.Indices, idx)
	case "collate", "collation":
		info.Collation = val
	case "maxlen", "maxlength":
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return velite.NewConfigError("", "field "+field+": invalid maxlen "+strconv.Quote(val))
		}
		info.MaxLength = n
	case "default":
		info.Default = val
	case "storeastext":
		info.StoreAsText = true
	case "flatten":
		info.Flatten = true
	default:
		return velite.NewConfigError("", "field "+field+": unknown tag option "+strconv.Quote(key))
	}
	return nil
}
