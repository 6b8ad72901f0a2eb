package sigil

import (
	"encoding/json"
	"math"
	"strconv"
)

// TypeID identifies which decoder reconstructs a tagged value.
// It holds either an integer or a string and is comparable, so it can key maps.
//
// The zero value is NoID, which is never written to the wire: an encoder that
// returns NoID emits its result untagged.
type TypeID struct {
	kind idKind
	num  int64
	str  string
}

type idKind uint8

const (
	idNone idKind = iota
	idInt
	idString
)

// NoID is the zero TypeID.
var NoID = TypeID{}

// IntID returns an integer TypeID.
// Built-in transformers use small non-negative integers; prefer StringID for
// custom types to avoid collisions.
func IntID(n int64) TypeID {
	return TypeID{kind: idInt, num: n}
}

// StringID returns a string TypeID.
func StringID(s string) TypeID {
	return TypeID{kind: idString, str: s}
}

// Valid reports whether id is an integer or string id.
func (id TypeID) Valid() bool {
	return id.kind != idNone
}

// Int returns the integer form of id.
func (id TypeID) Int() (int64, bool) {
	return id.num, id.kind == idInt
}

// Name returns the string form of id.
func (id TypeID) Name() (string, bool) {
	return id.str, id.kind == idString
}

// String formats id for messages: integers bare, strings quoted.
func (id TypeID) String() string {
	switch id.kind {
	case idInt:
		return strconv.FormatInt(id.num, 10)
	case idString:
		return strconv.Quote(id.str)
	default:
		return "<none>"
	}
}

// wire returns the JSON value written under the marker key.
func (id TypeID) wire() any {
	if id.kind == idString {
		return id.str
	}
	return id.num
}

// parseTypeID reads a marker value back into a TypeID.
// Strings and integral numbers of any Go numeric type are accepted.
func parseTypeID(v any) (TypeID, bool) {
	if s, ok := v.(string); ok {
		return StringID(s), true
	}
	if n, ok := AsInt64(v); ok {
		return IntID(n), true
	}
	return NoID, false
}

// AsInt64 converts an integral JSON number to int64.
// It accepts every Go integer kind, integral float32/float64 values and
// json.Number, which covers what the JSON, YAML, MessagePack and BSON formats
// produce when unmarshaling into any.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return floatToInt64(f)
		}
	}
	return 0, false
}

func uintToInt64(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
