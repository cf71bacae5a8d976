package schema

import (
	"reflect"

	"github.com/syssam/velite"
)

// Tuple2 is a two-element value flattened into two columns.
type Tuple2[A, B any] struct {
	Item1 A
	Item2 B
}

// Tuple3 is a three-element value flattened into three columns.
type Tuple3[A, B, C any] struct {
	Item1 A
	Item2 B
	Item3 C
}

func (Tuple2[A, B]) tupleArity() int    { return 2 }
func (Tuple3[A, B, C]) tupleArity() int { return 3 }

// T2 returns a Tuple2.
func T2[A, B any](a A, b B) Tuple2[A, B] {
	return Tuple2[A, B]{Item1: a, Item2: b}
}

// T3 returns a Tuple3.
func T3[A, B, C any](a A, b B, c C) Tuple3[A, B, C] {
	return Tuple3[A, B, C]{Item1: a, Item2: b, Item3: c}
}

type tuple interface{ tupleArity() int }

var tupleType = reflect.TypeFor[tuple]()

func isTuple(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.Implements(tupleType)
}

// tupleElement is one flattened slot of a tuple member.
type tupleElement struct {
	name string
	slot int
	typ  reflect.Type
}

// tupleElements lists the slots of a tuple member, rejecting elements that
// are tuples or records themselves.
func tupleElements(m *Member, t reflect.Type) ([]tupleElement, error) {
	var elems []tupleElement
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if isTuple(ft) || (ft.Kind() == reflect.Struct && !isScalarStruct(ft)) {
			return nil, velite.NewUnsupportedTypeError("map", m.Type.String(),
				"member "+m.Name+" nests a tuple in element "+f.Name)
		}
		name := f.Name
		if n := len(elems); n < len(m.Info.TupleNames) && m.Info.TupleNames[n] != "" {
			name = m.Info.TupleNames[n]
		}
		elems = append(elems, tupleElement{name: name, slot: i, typ: f.Type})
	}
	if len(elems) == 0 {
		return nil, velite.NewUnsupportedTypeError("map", m.Type.String(), "member "+m.Name+" has no elements")
	}
	return elems, nil
}
