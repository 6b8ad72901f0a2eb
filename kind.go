package sigil

import (
	"math/big"
	"reflect"
)

// Kind is the runtime category of a value that has no JSON representation.
// Encoders may filter on a Kind instead of an exact type.
type Kind uint8

const (
	// KindAny places no category restriction on an encoder.
	KindAny Kind = iota

	// KindUndefined is the category of the Undefined value.
	KindUndefined

	// KindFunction is the category of func values.
	KindFunction

	// KindObject is the category of every other non-JSON value:
	// structs, pointers, typed slices and maps, time.Time and so on.
	KindObject

	// KindSymbol is the category of *Symbol values.
	KindSymbol

	// KindBigInt is the category of *big.Int values.
	KindBigInt
)

var kindNames = map[Kind]string{
	KindAny:       "any",
	KindUndefined: "undefined",
	KindFunction:  "function",
	KindObject:    "object",
	KindSymbol:    "symbol",
	KindBigInt:    "bigint",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

// IsValidKind returns true if k is one of the declared categories.
func IsValidKind(k Kind) bool {
	_, ok := kindNames[k]
	return ok
}

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined marks an absent value. It is distinct from nil, which encodes
// as JSON null.
var Undefined any = undefined{}

// Symbol is a unique identity token. Two symbols are equal only if they are
// the same pointer, regardless of description.
type Symbol struct {
	description string
}

// NewSymbol returns a new unique symbol.
func NewSymbol(description string) *Symbol {
	return &Symbol{description: description}
}

// Description returns the description the symbol was created with.
func (s *Symbol) Description() string {
	return s.description
}

func (s *Symbol) String() string {
	return "Symbol(" + s.description + ")"
}

// KindOf returns the runtime category of a value that is not JSON-native.
func KindOf(v any) Kind {
	switch v.(type) {
	case undefined:
		return KindUndefined
	case *Symbol:
		return KindSymbol
	case *big.Int:
		return KindBigInt
	}
	if t := reflect.TypeOf(v); t != nil && t.Kind() == reflect.Func {
		return KindFunction
	}
	return KindObject
}
