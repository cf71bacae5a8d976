package velite

import (
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackSerializer is a BlobSerializer backed by MessagePack. By default it
// accepts maps, slices (other than []byte), arrays and structs; Types limits
// it to an explicit set.
type MsgpackSerializer struct {
	Types []reflect.Type
}

// NewMsgpackSerializer returns a serializer limited to the given types, or
// accepting every composite type when none are given.
func NewMsgpackSerializer(types ...reflect.Type) *MsgpackSerializer {
	return &MsgpackSerializer{Types: types}
}

// CanDeserialize implements BlobSerializer.
func (s *MsgpackSerializer) CanDeserialize(t reflect.Type) bool {
	if len(s.Types) > 0 {
		for _, st := range s.Types {
			if st == t {
				return true
			}
		}
		return false
	}
	switch t.Kind() {
	case reflect.Map, reflect.Struct, reflect.Array:
		return true
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Uint8
	default:
		return false
	}
}

// Serialize implements BlobSerializer.
func (s *MsgpackSerializer) Serialize(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Deserialize implements BlobSerializer.
func (s *MsgpackSerializer) Deserialize(data []byte, t reflect.Type) (any, error) {
	ptr := reflect.New(t)
	if err := msgpack.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}
