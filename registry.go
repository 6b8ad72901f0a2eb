package sigil

import (
	"context"
	"reflect"
)

// registry resolves the transformer to apply for a value or a type id.
//
// It is written only through register calls, normally before first use, and
// read by every Encode/Decode. It holds no lock: registering while a call is
// in flight on the same codec is unsupported.
type registry struct {
	// Encoders bucketed by matching strategy, each in registration order.
	classEncoders map[reflect.Type][]*Encoder
	kindEncoders  map[Kind][]*Encoder
	anyEncoders   []*Encoder

	// Decoders keyed by exact id, then catch-all decoders in registration order.
	decoders      map[TypeID]*Decoder
	matchDecoders []*Decoder
}

func newRegistry() *registry {
	return &registry{
		classEncoders: make(map[reflect.Type][]*Encoder),
		kindEncoders:  make(map[Kind][]*Encoder),
		decoders:      make(map[TypeID]*Decoder),
	}
}

func (r *registry) addEncoder(e *Encoder) {
	switch {
	case e.Filter.Class != nil:
		r.classEncoders[e.Filter.Class] = append(r.classEncoders[e.Filter.Class], e)
	case e.Filter.Kind != KindAny:
		r.kindEncoders[e.Filter.Kind] = append(r.kindEncoders[e.Filter.Kind], e)
	default:
		r.anyEncoders = append(r.anyEncoders, e)
	}
}

// checkDecoder reports a duplicate exact id without modifying the registry.
func (r *registry) checkDecoder(d *Decoder) error {
	if !d.ID.Valid() {
		return nil
	}
	if _, exists := r.decoders[d.ID]; exists {
		return &RegistrationError{Err: ErrDuplicateTypeID, ID: d.ID}
	}
	return nil
}

func (r *registry) addDecoder(d *Decoder) {
	if d.ID.Valid() {
		r.decoders[d.ID] = d
		return
	}
	r.matchDecoders = append(r.matchDecoders, d)
}

// resolveEncoder returns the first encoder accepting v:
// exact class (object values only), then kind, then catch-all.
func (r *registry) resolveEncoder(ctx context.Context, c *Codec, v any) *Encoder {
	kind := KindOf(v)

	if kind == KindObject {
		for _, e := range r.classEncoders[reflect.TypeOf(v)] {
			if e.accepts(ctx, c, v) {
				return e
			}
		}
	}

	for _, e := range r.kindEncoders[kind] {
		if e.accepts(ctx, c, v) {
			return e
		}
	}

	for _, e := range r.anyEncoders {
		if e.accepts(ctx, c, v) {
			return e
		}
	}

	return nil
}

// resolveDecoder returns the exact-id decoder if any, otherwise the first
// catch-all decoder accepting the mapping.
func (r *registry) resolveDecoder(ctx context.Context, c *Codec, id TypeID, payload map[string]any) *Decoder {
	if d, ok := r.decoders[id]; ok {
		return d
	}

	for _, d := range r.matchDecoders {
		if d.accepts(ctx, c, id, payload) {
			return d
		}
	}

	return nil
}
