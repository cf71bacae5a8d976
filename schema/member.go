package schema

import (
	"cmp"
	"database/sql"
	"database/sql/driver"
	"reflect"
	"slices"
	"time"

	"github.com/syssam/velite"
)

// MemberKind distinguishes fields declared on the entity itself from fields
// promoted out of embedded structs.
type MemberKind uint8

const (
	// MemberField is a field declared directly on the entity.
	MemberField MemberKind = iota
	// MemberPromoted is a field promoted from an embedded struct.
	MemberPromoted
)

// Member is one persistable struct field.
type Member struct {
	Name  string       // Go field name
	Index []int        // Index path for reflect.Value.FieldByIndex
	Type  reflect.Type // Declared type, pointers included
	Kind  MemberKind
	Info  MemberInfo
}

// Value returns the member's field in the entity value v.
func (m *Member) Value(v reflect.Value) reflect.Value {
	return v.FieldByIndex(m.Index)
}

// Members enumerates the persistable members of struct type t in canonical
// order with explicitly tagged primary keys first.
func Members(t reflect.Type, p InfoProvider) ([]*Member, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, velite.NewArgumentError("type", t.String()+" is not a struct")
	}
	if p == nil {
		p = DefaultProvider
	}
	var ms []*Member
	if err := collect(t, p, nil, MemberField, &ms); err != nil {
		return nil, err
	}
	SortMembers(ms, func(m *Member) bool { return m.Info.PrimaryKey })
	return ms, nil
}

func collect(t reflect.Type, p InfoProvider, prefix []int, kind MemberKind, ms *[]*Member) error {
	for i := range t.NumField() {
		f := t.Field(i)
		index := append(slices.Clone(prefix), i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct && !isScalarStruct(f.Type) && !isTuple(f.Type) {
			if _, tagged := f.Tag.Lookup(TagName); !tagged {
				if err := collect(f.Type, p, index, MemberPromoted, ms); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		info, err := p.MemberInfo(f)
		if err != nil {
			return err
		}
		if info.Ignore {
			continue
		}
		if err := checkMemberType(f); err != nil {
			return err
		}
		*ms = append(*ms, &Member{Name: f.Name, Index: index, Type: f.Type, Kind: kind, Info: info})
	}
	return nil
}

func checkMemberType(f reflect.StructField) error {
	t := f.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128,
		reflect.UnsafePointer, reflect.Uintptr, reflect.Interface, reflect.Pointer:
		return velite.NewUnsupportedTypeError("map", f.Type.String(), "member "+f.Name+" cannot be persisted")
	}
	return nil
}

// SortMembers orders members: primary keys first, then fields before
// promoted members, then by name. The sort is stable.
func SortMembers(ms []*Member, isPK func(*Member) bool) {
	slices.SortStableFunc(ms, func(a, b *Member) int {
		if pa, pb := isPK(a), isPK(b); pa != pb {
			if pa {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

var (
	timeType    = reflect.TypeFor[time.Time]()
	valuerType  = reflect.TypeFor[driver.Valuer]()
	scannerType = reflect.TypeFor[sql.Scanner]()
)

// IsScalarType reports whether values of t are stored in a single column:
// every non-struct type, time.Time and structs that are driver.Valuers or
// sql.Scanners.
func IsScalarType(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() != reflect.Struct || isScalarStruct(t)
}

// isScalarStruct reports whether a struct type is stored as a single value.
func isScalarStruct(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	return t.Implements(valuerType) || reflect.PointerTo(t).Implements(scannerType)
}
