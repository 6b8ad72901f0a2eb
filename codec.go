package sigil

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/zoobzio/capitan"
)

// DefaultMarker is the marker key used when none is configured.
const DefaultMarker = "$"

// Codec converts between arbitrary Go values and tagged JSON trees.
//
// A Codec is configured once with New and its Register methods, then serves
// any number of Encode/Decode calls. Calls may run concurrently once
// registration is finished; registering during a call is unsupported.
//
// Cyclic values are not detected: encoding one recurses until the stack is
// exhausted.
type Codec struct {
	marker   string
	registry *registry
	format   Format
	capitan  *capitan.Capitan
}

// New creates a codec with the default marker key and JSON format.
// Transformers passed via WithTransformers are registered in order; a
// duplicate type id fails construction.
func New(opts ...Option) (*Codec, error) {
	cfg := config{marker: DefaultMarker, format: jsonFormat{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.marker == "" {
		return nil, &RegistrationError{Err: ErrInvalidMarker}
	}

	c := &Codec{
		marker:   cfg.marker,
		registry: newRegistry(),
		format:   cfg.format,
		capitan:  cfg.capitan,
	}
	for _, t := range cfg.transformers {
		if err := c.Register(t); err != nil {
			return nil, err
		}
	}

	c.emitCodecCreated(context.Background())
	return c, nil
}

// Marker returns the reserved key carrying type ids.
func (c *Codec) Marker() string {
	return c.marker
}

// ContentType returns the MIME type of the configured format.
func (c *Codec) ContentType() string {
	return c.format.ContentType()
}

// RegisterEncoder appends an encoder to its matching bucket. An encoder
// without a handler, or filtered on an undeclared Kind, is rejected with
// ErrInvalidTransformer.
func (c *Codec) RegisterEncoder(e Encoder) error {
	if err := checkEncoder(&e); err != nil {
		return err
	}
	c.registry.addEncoder(&e)
	c.emitTransformerRegistered(context.Background(), NoID, describeFilter(e.Filter))
	return nil
}

// RegisterDecoder adds a decoder. A decoder whose exact id is already taken
// is rejected with ErrDuplicateTypeID.
func (c *Codec) RegisterDecoder(d Decoder) error {
	if err := c.checkDecoder(&d); err != nil {
		return err
	}
	c.registry.addDecoder(&d)
	c.emitTransformerRegistered(context.Background(), d.ID, "decoder")
	return nil
}

// Register adds both halves of a transformer. If either half is rejected,
// neither is registered.
func (c *Codec) Register(t Transformer) error {
	if t.Encoder != nil {
		if err := checkEncoder(t.Encoder); err != nil {
			return err
		}
	}
	if t.Decoder != nil {
		if err := c.checkDecoder(t.Decoder); err != nil {
			return err
		}
	}
	if t.Encoder != nil {
		if err := c.RegisterEncoder(*t.Encoder); err != nil {
			return err
		}
	}
	if t.Decoder != nil {
		return c.RegisterDecoder(*t.Decoder)
	}
	return nil
}

func checkEncoder(e *Encoder) error {
	if e.Handler == nil {
		return &RegistrationError{Err: ErrInvalidTransformer, Detail: "encoder has no handler"}
	}
	if !IsValidKind(e.Filter.Kind) {
		return &RegistrationError{Err: ErrInvalidTransformer, Detail: "kind " + strconv.Itoa(int(e.Filter.Kind)) + " is not declared"}
	}
	return nil
}

func (c *Codec) checkDecoder(d *Decoder) error {
	if d.Handler == nil {
		return &RegistrationError{Err: ErrInvalidTransformer, ID: d.ID, Detail: "decoder has no handler"}
	}
	return c.registry.checkDecoder(d)
}

func describeFilter(f EncoderFilter) string {
	switch {
	case f.Class != nil:
		return "class:" + f.Class.String()
	case f.Kind != KindAny:
		return "kind:" + f.Kind.String()
	default:
		return "any"
	}
}

// callKey marks a context as belonging to a top-level call in progress, so
// nested Encode/Decode calls made by transformers do not emit events.
type callKey struct{}

// enter returns the context to thread through a call and whether this call
// is the top-level one.
func enter(ctx context.Context) (context.Context, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Value(callKey{}) != nil {
		return ctx, false
	}
	return context.WithValue(ctx, callKey{}, true), true
}

// Encode converts v into a JSON tree.
//
// Strings, numbers, booleans and nil pass through; []any and map[string]any
// recurse. Any other value is handed to the first matching encoder. A plain
// map that uses the marker key as its own key has that key's value wrapped in
// a one-element array so it cannot be mistaken for a tag.
func (c *Codec) Encode(ctx context.Context, v any) (any, error) {
	ctx, top := enter(ctx)
	if !top {
		return c.encode(ctx, v)
	}
	start := time.Now()
	out, err := c.encode(ctx, v)
	c.emitComplete(ctx, SignalEncodeComplete, time.Since(start), -1, err)
	return out, err
}

func (c *Codec) encode(ctx context.Context, v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool,
		float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return val, nil

	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			enc, err := c.encode(ctx, inner)
			if err != nil {
				return nil, prefixPath(err, strconv.Itoa(i))
			}
			out[i] = enc
		}
		return out, nil

	case map[string]any:
		out := make(map[string]any, len(val))
		for key, inner := range val {
			enc, err := c.encode(ctx, inner)
			if err != nil {
				return nil, prefixPath(err, key)
			}
			out[key] = enc
		}
		if escaped, ok := out[c.marker]; ok {
			out[c.marker] = []any{escaped}
		}
		return out, nil
	}

	return c.encodeValue(ctx, v)
}

// encodeValue resolves an encoder for a non-JSON value and attaches its tag.
func (c *Codec) encodeValue(ctx context.Context, v any) (any, error) {
	e := c.registry.resolveEncoder(ctx, c, v)
	if e == nil {
		return nil, newEncodeError(ErrUnhandledValue, v, nil)
	}

	id, result, err := e.Handler(ctx, c, v)
	if err != nil {
		return nil, wrapEncodeHandlerError(v, err)
	}
	if !id.Valid() {
		return result, nil
	}

	var payload map[string]any
	if result != nil {
		m, ok := result.(map[string]any)
		if !ok {
			return nil, newEncodeError(ErrIllegalEncoderResult, v, nil)
		}
		payload = m
	}
	if _, clash := payload[c.marker]; clash {
		return nil, newEncodeError(ErrIllegalEncoderResult, v, nil)
	}

	out := make(map[string]any, len(payload)+1)
	for key, inner := range payload {
		out[key] = inner
	}
	out[c.marker] = id.wire()
	return out, nil
}

// Decode reconstructs a value from a JSON tree produced by Encode.
//
// Input must be a JSON value: nil, string, bool, a number, []any or
// map[string]any. A map carrying the marker key is handed to the decoder
// registered for its type id, unless the marker's value is a one-element
// array, in which case the map is escaped user data and is unwrapped.
func (c *Codec) Decode(ctx context.Context, tree any) (any, error) {
	ctx, top := enter(ctx)
	if !top {
		return c.decode(ctx, tree, false)
	}
	start := time.Now()
	out, err := c.decode(ctx, tree, false)
	c.emitComplete(ctx, SignalDecodeComplete, time.Since(start), -1, err)
	return out, err
}

func (c *Codec) decode(ctx context.Context, tree any, ignoreMarker bool) (any, error) {
	switch val := tree.(type) {
	case nil, string, bool,
		float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return val, nil

	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			dec, err := c.decode(ctx, inner, false)
			if err != nil {
				return nil, prefixPath(err, strconv.Itoa(i))
			}
			out[i] = dec
		}
		return out, nil

	case map[string]any:
		if raw, tagged := val[c.marker]; tagged && !ignoreMarker {
			if wrapped, ok := raw.([]any); ok && len(wrapped) == 1 {
				unescaped := make(map[string]any, len(val))
				for key, inner := range val {
					unescaped[key] = inner
				}
				unescaped[c.marker] = wrapped[0]
				return c.decode(ctx, unescaped, true)
			}
			return c.decodeTagged(ctx, val, raw)
		}

		out := make(map[string]any, len(val))
		for key, inner := range val {
			dec, err := c.decode(ctx, inner, false)
			if err != nil {
				return nil, prefixPath(err, key)
			}
			out[key] = dec
		}
		return out, nil
	}

	return nil, newDecodeError(ErrNonJSONValue, nil, tree, nil)
}

// decodeTagged dispatches a tagged mapping to its decoder.
func (c *Codec) decodeTagged(ctx context.Context, m map[string]any, raw any) (any, error) {
	id, ok := parseTypeID(raw)
	if !ok {
		return nil, newDecodeError(ErrUnknownTypeID, raw, m, nil)
	}

	payload := make(map[string]any, len(m)-1)
	for key, inner := range m {
		if key != c.marker {
			payload[key] = inner
		}
	}

	d := c.registry.resolveDecoder(ctx, c, id, payload)
	if d == nil {
		return nil, newDecodeError(ErrUnknownTypeID, id, m, nil)
	}

	out, err := d.Handler(ctx, c, id, payload)
	if err != nil {
		return nil, wrapDecodeHandlerError(id, m, err)
	}
	return out, nil
}

// Stringify encodes v and serializes the tree as JSON text.
func (c *Codec) Stringify(ctx context.Context, v any) (string, error) {
	data, err := c.marshal(ctx, jsonFormat{}, v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Parse parses JSON text and decodes the resulting tree.
func (c *Codec) Parse(ctx context.Context, text string) (any, error) {
	return c.unmarshal(ctx, jsonFormat{}, []byte(text))
}

// Marshal encodes v and serializes the tree with the configured format.
func (c *Codec) Marshal(ctx context.Context, v any) ([]byte, error) {
	return c.marshal(ctx, c.format, v)
}

// Unmarshal parses data with the configured format and decodes the tree.
func (c *Codec) Unmarshal(ctx context.Context, data []byte) (any, error) {
	return c.unmarshal(ctx, c.format, data)
}

func (c *Codec) marshal(ctx context.Context, f Format, v any) ([]byte, error) {
	ctx, top := enter(ctx)
	start := time.Now()

	data, err := func() ([]byte, error) {
		tree, err := c.encode(ctx, v)
		if err != nil {
			return nil, err
		}
		data, err := f.Marshal(tree)
		if err != nil {
			return nil, newFormatError(ErrMarshal, f.ContentType(), err)
		}
		return data, nil
	}()

	if top {
		c.emitComplete(ctx, SignalMarshalComplete, time.Since(start), len(data), err)
	}
	return data, err
}

func (c *Codec) unmarshal(ctx context.Context, f Format, data []byte) (any, error) {
	ctx, top := enter(ctx)
	start := time.Now()

	out, err := func() (any, error) {
		var tree any
		if err := f.Unmarshal(data, &tree); err != nil {
			return nil, newFormatError(ErrUnmarshal, f.ContentType(), err)
		}
		return c.decode(ctx, tree, false)
	}()

	if top {
		c.emitComplete(ctx, SignalUnmarshalComplete, time.Since(start), len(data), err)
	}
	return out, err
}
