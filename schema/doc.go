// Package schema derives table mappings from Go struct types.
//
// An entity is a struct whose exported fields are persisted as columns.
// Metadata is read through an InfoProvider; the default TagProvider reads
// the `sqlite` struct tag:
//
//	type Valuation struct {
//	    ID      int64     `sqlite:"id,pk,autoincrement"`
//	    StockID int64     `sqlite:"stock_id,index"`
//	    Time    time.Time `sqlite:"time,index=ix_time:1"`
//	    Price   float64   `sqlite:"price,notnull,default=0"`
//	    Note    *string   `sqlite:"note,maxlen=140,collate=NOCASE"`
//	    Cache   string    `sqlite:"-"`
//	}
//
// # Tag options
//
//	pk                 column is part of the primary key
//	autoincrement      key assigned by the engine (auto-GUID for uuid.UUID keys)
//	notnull            NOT NULL
//	unique[=name[:n]]  member of a unique index
//	index[=name[:n]]   member of a non-unique index
//	collate=X          column collation
//	maxlen=N           varchar(N)
//	default=EXPR       column default
//	storeastext        store an enum through its text form
//	flatten            expand a struct member into one column per field
//
// # Member order
//
// Members are ordered primary keys first, then fields declared directly on
// the struct before fields promoted from embedded structs, then by name.
// Column positions follow this order.
//
// # Tuples
//
// Members of type Tuple2 or Tuple3, or struct members tagged flatten, expand
// into one column per element named {member}_{element}. Element names come
// from the `tuple` tag and default to the element field names:
//
//	Pos schema.Tuple2[int, string] `sqlite:"pos" tuple:"x,y"` // pos_x, pos_y
//
// Tuples of tuples are rejected.
package schema
