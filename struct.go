package sigil

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/zoobzio/sentinel"
)

func init() {
	// Payload key overrides: `sigil:"name"`, or `sigil:"-"` to skip a field.
	sentinel.Tag("sigil")
}

// structPlan describes how to move the exported fields of one struct type
// in and out of a payload map. Built once per Struct call.
type structPlan struct {
	typ      reflect.Type // T as registered, struct or pointer to struct
	elem     reflect.Type // the struct type itself
	pointer  bool
	typeName string
	fields   []structField
}

// structField describes a single payload entry.
type structField struct {
	index []int  // reflect.Value.FieldByIndex access path
	name  string // payload key
	depth int    // embedding depth, 0 for fields declared on the struct
}

// Struct builds a transformer for the struct type T, or for T = *S where S
// is a struct. Any other T panics.
//
// Each exported field becomes a payload key named after the field, or after
// its `sigil` tag. Fields of embedded structs without a `sigil` tag are
// promoted into the payload the way Go promotes them; an outer field hides
// a promoted field of the same name. Embedded pointers are encoded as a
// single field and need their own transformer.
//
// Field values are encoded recursively, so fields holding time.Time,
// *big.Int or other registered types round-trip with their own tags.
// Unnamed slice and map values, including those held in interface fields,
// are flattened to []any and map[string]any before encoding; named
// composite types are left for their own transformers.
//
// The class filter matches T exactly: Struct[S] handles S values and
// Struct[*S] handles *S values. A nil *S encodes as null. Decoding returns a
// T value; decoded numbers are converted to the field's numeric type when
// they fit.
func Struct[T any](id TypeID) Transformer {
	plan := buildStructPlan[T]()

	return Transformer{
		Encoder: &Encoder{
			Filter: EncoderFilter{Class: plan.typ},
			Handler: func(ctx context.Context, c *Codec, v any) (TypeID, any, error) {
				rv := reflect.ValueOf(v)
				if plan.pointer {
					if rv.IsNil() {
						return NoID, nil, nil
					}
					rv = rv.Elem()
				}
				payload, err := plan.encode(ctx, c, rv)
				if err != nil {
					return NoID, nil, err
				}
				return id, payload, nil
			},
		},
		Decoder: &Decoder{
			ID: id,
			Handler: func(ctx context.Context, c *Codec, _ TypeID, payload map[string]any) (any, error) {
				return plan.decode(ctx, c, payload)
			},
		},
	}
}

// buildStructPlan scans T with sentinel and records its payload fields.
func buildStructPlan[T any]() *structPlan {
	typ := reflect.TypeFor[T]()
	elem := typ
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		panic(fmt.Sprintf("sigil: Struct[%s] requires a struct or pointer to struct type", typ))
	}

	spec := sentinel.Scan[T]()

	plan := &structPlan{
		typ:      typ,
		elem:     elem,
		pointer:  typ != elem,
		typeName: spec.TypeName,
		fields:   make([]structField, 0, len(spec.Fields)),
	}

	for _, field := range spec.Fields {
		plan.addField(elem.FieldByIndex(field.Index), field.Index, field.Tags["sigil"], 0)
	}
	// sentinel reports exported fields only; unexported embedded structs
	// still promote their exported fields.
	for i := 0; i < elem.NumField(); i++ {
		if sf := elem.Field(i); sf.Anonymous && !sf.IsExported() {
			plan.addField(sf, sf.Index, sf.Tag.Get("sigil"), 0)
		}
	}
	plan.resolvePromoted()

	return plan
}

// addField records sf, descending into untagged embedded structs.
func (p *structPlan) addField(sf reflect.StructField, index []int, tag string, depth int) {
	if tag == "-" {
		return
	}
	if sf.Anonymous && tag == "" && sf.Type.Kind() == reflect.Struct {
		for i := 0; i < sf.Type.NumField(); i++ {
			inner := sf.Type.Field(i)
			if !inner.IsExported() && !(inner.Anonymous && inner.Type.Kind() == reflect.Struct) {
				continue
			}
			path := append(append([]int(nil), index...), i)
			p.addField(inner, path, inner.Tag.Get("sigil"), depth+1)
		}
		return
	}
	if !sf.IsExported() {
		return
	}
	name := sf.Name
	if tag != "" {
		name = tag
	}
	p.fields = append(p.fields, structField{index: index, name: name, depth: depth})
}

// resolvePromoted keeps the shallowest field for each payload key. Names
// that collide at the same depth are dropped, matching Go's selector rules.
func (p *structPlan) resolvePromoted() {
	shallowest := make(map[string]int, len(p.fields))
	count := make(map[string]int, len(p.fields))
	for _, f := range p.fields {
		d, seen := shallowest[f.name]
		switch {
		case !seen || f.depth < d:
			shallowest[f.name] = f.depth
			count[f.name] = 1
		case f.depth == d:
			count[f.name]++
		}
	}

	kept := p.fields[:0]
	for _, f := range p.fields {
		if f.depth == shallowest[f.name] && (f.depth == 0 || count[f.name] == 1) {
			kept = append(kept, f)
		}
	}
	p.fields = kept
}

func (p *structPlan) encode(ctx context.Context, c *Codec, rv reflect.Value) (map[string]any, error) {
	payload := make(map[string]any, len(p.fields))
	for _, f := range p.fields {
		tree, err := c.Encode(ctx, plainValue(rv.FieldByIndex(f.index)))
		if err != nil {
			return nil, prefixPath(err, f.name)
		}
		payload[f.name] = tree
	}
	return payload, nil
}

func (p *structPlan) decode(ctx context.Context, c *Codec, payload map[string]any) (any, error) {
	ptr := reflect.New(p.elem)
	out := ptr.Elem()
	for _, f := range p.fields {
		raw, ok := payload[f.name]
		if !ok {
			continue
		}
		val, err := c.Decode(ctx, raw)
		if err != nil {
			return nil, prefixPath(err, f.name)
		}
		if err := assign(out.FieldByIndex(f.index), val); err != nil {
			return nil, fmt.Errorf("%s field %s: %w", p.typeName, f.name, err)
		}
	}
	if p.pointer {
		return ptr.Interface(), nil
	}
	return out.Interface(), nil
}

// plainValue converts unnamed slices, arrays and string-keyed maps into
// []any and map[string]any so the codec can walk them. Pointers to scalars
// are dereferenced and interfaces are unwrapped to their dynamic value. Byte
// slices and named composite types are returned as-is.
func plainValue(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return plainValue(v.Elem())

	case reflect.Slice:
		if v.Type().Name() != "" || v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		if v.IsNil() {
			return nil
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = plainValue(v.Index(i))
		}
		return out

	case reflect.Array:
		if v.Type().Name() != "" {
			return v.Interface()
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = plainValue(v.Index(i))
		}
		return out

	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		if _, scalar := scalarTypes[v.Type().Elem().Kind()]; scalar {
			return plainValue(v.Elem())
		}
		return v.Interface()

	case reflect.Map:
		if v.Type().Name() != "" || v.Type().Key().Kind() != reflect.String {
			return v.Interface()
		}
		if v.IsNil() {
			return nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = plainValue(iter.Value())
		}
		return out
	}

	if t, scalar := scalarTypes[v.Kind()]; scalar && v.Type() != t {
		return v.Convert(t).Interface()
	}
	return v.Interface()
}

// scalarTypes maps scalar kinds to their predeclared types. Named scalars
// such as time.Duration are encoded as their underlying value.
var scalarTypes = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeFor[bool](),
	reflect.Int:     reflect.TypeFor[int](),
	reflect.Int8:    reflect.TypeFor[int8](),
	reflect.Int16:   reflect.TypeFor[int16](),
	reflect.Int32:   reflect.TypeFor[int32](),
	reflect.Int64:   reflect.TypeFor[int64](),
	reflect.Uint:    reflect.TypeFor[uint](),
	reflect.Uint8:   reflect.TypeFor[uint8](),
	reflect.Uint16:  reflect.TypeFor[uint16](),
	reflect.Uint32:  reflect.TypeFor[uint32](),
	reflect.Uint64:  reflect.TypeFor[uint64](),
	reflect.Float32: reflect.TypeFor[float32](),
	reflect.Float64: reflect.TypeFor[float64](),
	reflect.String:  reflect.TypeFor[string](),
}

// assign stores a decoded value into dst, converting JSON shapes back into
// the field's Go type where possible.
func assign(dst reflect.Value, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}

	switch dst.Kind() {
	case reflect.Pointer:
		ptr := reflect.New(dst.Type().Elem())
		if err := assign(ptr.Elem(), src); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil

	case reflect.Slice:
		items, ok := src.([]any)
		if !ok {
			break
		}
		out := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			if err := assign(out.Index(i), item); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		dst.Set(out)
		return nil

	case reflect.Array:
		items, ok := src.([]any)
		if !ok || len(items) != dst.Len() {
			break
		}
		for i, item := range items {
			if err := assign(dst.Index(i), item); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil

	case reflect.Map:
		entries, ok := src.(map[string]any)
		if !ok || dst.Type().Key().Kind() != reflect.String {
			break
		}
		out := reflect.MakeMapWithSize(dst.Type(), len(entries))
		for key, entry := range entries {
			elem := reflect.New(dst.Type().Elem()).Elem()
			if err := assign(elem, entry); err != nil {
				return fmt.Errorf("key %q: %w", key, err)
			}
			out.SetMapIndex(reflect.ValueOf(key).Convert(dst.Type().Key()), elem)
		}
		dst.Set(out)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := AsInt64(src); ok && !dst.OverflowInt(n) {
			dst.SetInt(n)
			return nil
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n, ok := AsInt64(src); ok && n >= 0 && !dst.OverflowUint(uint64(n)) {
			dst.SetUint(uint64(n))
			return nil
		}

	case reflect.Float32, reflect.Float64:
		if f, ok := asFloat64(src); ok && !dst.OverflowFloat(f) {
			dst.SetFloat(f)
			return nil
		}

	case reflect.String:
		if sv.Kind() == reflect.String {
			dst.SetString(sv.String())
			return nil
		}

	case reflect.Bool:
		if sv.Kind() == reflect.Bool {
			dst.SetBool(sv.Bool())
			return nil
		}
	}

	return fmt.Errorf("cannot assign %T to %s", src, dst.Type())
}

func asFloat64(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}
