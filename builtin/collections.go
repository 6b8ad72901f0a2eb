package builtin

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/zoobzio/sigil"
)

// Set is an insertion-ordered collection of distinct values.
// Elements may be of any type the codec can encode.
type Set []any

// NewSet returns a set holding the distinct values of items, in order.
// Comparable values are deduplicated by ==, others by reflect.DeepEqual.
func NewSet(items ...any) Set {
	s := make(Set, 0, len(items))
	for _, item := range items {
		s = s.Add(item)
	}
	return s
}

// Add appends v unless the set already contains it.
func (s Set) Add(v any) Set {
	if s.Has(v) {
		return s
	}
	return append(s, v)
}

// Has reports whether v is an element of the set.
func (s Set) Has(v any) bool {
	for _, item := range s {
		if sameValue(item, v) {
			return true
		}
	}
	return false
}

// MapEntry is one key/value association of a Map.
type MapEntry struct {
	Key   any
	Value any
}

// Map is an insertion-ordered association of arbitrary keys to values.
// Unlike a Go map, keys need not be comparable and may be any encodable value.
type Map []MapEntry

// Get returns the value stored under key.
func (m Map) Get(key any) (any, bool) {
	for _, e := range m {
		if sameValue(e.Key, key) {
			return e.Value, true
		}
	}
	return nil, false
}

// Set stores value under key, replacing an existing entry in place.
func (m Map) Set(key, value any) Map {
	for i, e := range m {
		if sameValue(e.Key, key) {
			m[i].Value = value
			return m
		}
	}
	return append(m, MapEntry{Key: key, Value: value})
}

// sameValue compares comparable values with == and falls back to DeepEqual.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// SetTransformer encodes Set as {"$": 4, "values": [...]}.
func SetTransformer() sigil.Transformer {
	return sigil.Type(SetID,
		func(ctx context.Context, c *sigil.Codec, s Set) (map[string]any, error) {
			values := make([]any, len(s))
			for i, item := range s {
				enc, err := c.Encode(ctx, item)
				if err != nil {
					return nil, sigil.PrefixPath(err, "values", strconv.Itoa(i))
				}
				values[i] = enc
			}
			return map[string]any{"values": values}, nil
		},
		func(ctx context.Context, c *sigil.Codec, payload map[string]any) (Set, error) {
			values, ok := payload["values"].([]any)
			if !ok {
				return nil, fmt.Errorf("%q must be an array, got %T", "values", payload["values"])
			}
			s := make(Set, 0, len(values))
			for i, raw := range values {
				item, err := c.Decode(ctx, raw)
				if err != nil {
					return nil, sigil.PrefixPath(err, "values", strconv.Itoa(i))
				}
				s = s.Add(item)
			}
			return s, nil
		},
	)
}

// MapTransformer encodes Map as {"$": 5, "entries": [[key, value], ...]}.
func MapTransformer() sigil.Transformer {
	return sigil.Type(MapID,
		func(ctx context.Context, c *sigil.Codec, m Map) (map[string]any, error) {
			entries := make([]any, len(m))
			for i, e := range m {
				key, err := c.Encode(ctx, e.Key)
				if err != nil {
					return nil, sigil.PrefixPath(err, "entries", strconv.Itoa(i), "0")
				}
				value, err := c.Encode(ctx, e.Value)
				if err != nil {
					return nil, sigil.PrefixPath(err, "entries", strconv.Itoa(i), "1")
				}
				entries[i] = []any{key, value}
			}
			return map[string]any{"entries": entries}, nil
		},
		func(ctx context.Context, c *sigil.Codec, payload map[string]any) (Map, error) {
			entries, ok := payload["entries"].([]any)
			if !ok {
				return nil, fmt.Errorf("%q must be an array, got %T", "entries", payload["entries"])
			}
			m := make(Map, 0, len(entries))
			for i, raw := range entries {
				pair, ok := raw.([]any)
				if !ok || len(pair) != 2 {
					return nil, fmt.Errorf("entry %d must be a [key, value] pair", i)
				}
				key, err := c.Decode(ctx, pair[0])
				if err != nil {
					return nil, sigil.PrefixPath(err, "entries", strconv.Itoa(i), "0")
				}
				value, err := c.Decode(ctx, pair[1])
				if err != nil {
					return nil, sigil.PrefixPath(err, "entries", strconv.Itoa(i), "1")
				}
				m = m.Set(key, value)
			}
			return m, nil
		},
	)
}
