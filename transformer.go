package sigil

import (
	"context"
	"fmt"
	"reflect"
)

// EncodeFunc converts v into a type id and a payload.
//
// When id is valid the payload must be a map[string]any (or nil) that does not
// contain the codec's marker key; the codec merges the marker into it.
// When id is NoID the payload is emitted as-is, untagged, and must already be
// a JSON value.
//
// Nested values inside the payload must be encoded by calling c.Encode.
type EncodeFunc func(ctx context.Context, c *Codec, v any) (TypeID, any, error)

// EncodeMatchFunc reports whether an encoder accepts v.
type EncodeMatchFunc func(ctx context.Context, c *Codec, v any) bool

// DecodeFunc reconstructs a value from a tagged mapping.
// payload is a shallow copy of the mapping with the marker key removed.
// Nested values are still in wire form and must be decoded by calling c.Decode.
type DecodeFunc func(ctx context.Context, c *Codec, id TypeID, payload map[string]any) (any, error)

// DecodeMatchFunc reports whether a catch-all decoder accepts a tagged mapping.
type DecodeMatchFunc func(ctx context.Context, c *Codec, id TypeID, payload map[string]any) bool

// EncoderFilter describes when an encoder applies.
//
// Exactly one bucket is chosen at registration: Class if set, otherwise Kind
// if not KindAny, otherwise the catch-all list. Match further restricts the
// bucket; a nil Match accepts everything in the bucket.
type EncoderFilter struct {
	Class reflect.Type
	Kind  Kind
	Match EncodeMatchFunc
}

// Encoder turns values matching Filter into tagged JSON.
type Encoder struct {
	Filter  EncoderFilter
	Handler EncodeFunc
}

// Decoder reconstructs values from tagged mappings.
// A valid ID registers the decoder for that exact id; otherwise Match decides,
// and a decoder with neither accepts every id.
type Decoder struct {
	ID      TypeID
	Match   DecodeMatchFunc
	Handler DecodeFunc
}

// Transformer pairs an optional encoder with an optional decoder.
type Transformer struct {
	Encoder *Encoder
	Decoder *Decoder
}

func (e *Encoder) accepts(ctx context.Context, c *Codec, v any) bool {
	return e.Filter.Match == nil || e.Filter.Match(ctx, c, v)
}

func (d *Decoder) accepts(ctx context.Context, c *Codec, id TypeID, payload map[string]any) bool {
	return d.Match == nil || d.Match(ctx, c, id, payload)
}

// Type builds a transformer for values whose dynamic type is exactly T.
// encode returns the payload fields; decode receives them back.
func Type[T any](
	id TypeID,
	encode func(ctx context.Context, c *Codec, v T) (map[string]any, error),
	decode func(ctx context.Context, c *Codec, payload map[string]any) (T, error),
) Transformer {
	return Transformer{
		Encoder: &Encoder{
			Filter: EncoderFilter{Class: reflect.TypeFor[T]()},
			Handler: func(ctx context.Context, c *Codec, v any) (TypeID, any, error) {
				typed, ok := v.(T)
				if !ok {
					return NoID, nil, fmt.Errorf("expected %s, got %T", reflect.TypeFor[T](), v)
				}
				payload, err := encode(ctx, c, typed)
				if err != nil {
					return NoID, nil, err
				}
				return id, payload, nil
			},
		},
		Decoder: &Decoder{
			ID: id,
			Handler: func(ctx context.Context, c *Codec, _ TypeID, payload map[string]any) (any, error) {
				return decode(ctx, c, payload)
			},
		},
	}
}
