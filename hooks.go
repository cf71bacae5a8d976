package velite

import "reflect"

// BlobSerializer stores values of types the binder does not know natively
// as blobs. The binder consults it before reporting an unsupported type.
type BlobSerializer interface {
	// CanDeserialize reports whether values of type t are handled.
	CanDeserialize(t reflect.Type) bool
	// Serialize encodes v into bytes.
	Serialize(v any) ([]byte, error)
	// Deserialize decodes data into a new value of type t.
	Deserialize(data []byte, t reflect.Type) (any, error)
}

// RowReader exposes one result row to a RowDeserializer. Column indexes are
// zero-based.
type RowReader interface {
	ColumnCount() int
	ColumnName(i int) string
	ColumnType(i int) Kind
	IsNull(i int) bool
	Int64(i int) int64
	Float64(i int) float64
	Text(i int) string
	Blob(i int) []byte
	Value(i int) Value
}

// RowDeserializer is implemented by entities that populate themselves from a
// row instead of relying on per-column assignment.
//
//	func (p *Point) DeserializeRow(r velite.RowReader) error {
//	    for i := range r.ColumnCount() {
//	        switch r.ColumnName(i) {
//	        case "xy":
//	            p.X, p.Y = splitXY(r.Text(i))
//	        }
//	    }
//	    return nil
//	}
type RowDeserializer interface {
	DeserializeRow(r RowReader) error
}

// TableNamer lets an entity provide its table name.
type TableNamer interface {
	TableName() string
}
