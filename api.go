// Package sigil extends JSON to round-trip values JSON cannot represent.
//
// A Codec walks an arbitrary Go value and produces a JSON tree in which
// non-JSON values are replaced by tagged objects. A tagged object carries a
// reserved marker key (default "$") holding a type id, next to the payload
// fields produced by the value's transformer:
//
//	{"num": 1, "when": {"$": 1, "iso": "1970-01-01T00:00:01.000Z"}}
//
// Decode walks the tree back and hands each tagged object to the decoder
// registered for its type id. The wire format is valid JSON at every level.
//
// # Basic Usage
//
//	c, _ := sigil.New(sigil.WithTransformers(builtin.All()...))
//
//	text, _ := c.Stringify(ctx, map[string]any{
//	    "num":  1,
//	    "when": time.UnixMilli(1000),
//	})
//
//	v, _ := c.Parse(ctx, text)
//
// # Transformers
//
// A Transformer pairs an optional Encoder with an optional Decoder. Encoders
// are resolved for a value in this order, first match wins:
//
//   - encoders registered for the value's exact type (EncoderFilter.Class),
//     consulted for KindObject values only
//   - encoders registered for the value's Kind (undefined, function, object,
//     symbol, bigint)
//   - catch-all encoders
//
// Within each bucket encoders are scanned in registration order and
// EncoderFilter.Match, when set, must accept the value.
//
// Decoders are resolved by exact TypeID, then by scanning catch-all decoders
// in registration order. Registering two decoders for the same TypeID fails
// with ErrDuplicateTypeID.
//
// Typed helpers build transformers without touching the untyped API:
//
//   - Type[T]: a transformer for values whose dynamic type is T
//   - Struct[T]: a transformer encoding the exported fields of struct T
//
// # Escaping
//
// User maps may use the marker key themselves. Encode wraps the value of a
// user marker key in a one-element array:
//
//	{"$": 1, "a": 2}   encodes to   {"$": [1], "a": 2}
//
// Decode treats a marker holding a one-element array as escaped data and
// unwraps it. Each map level is escaped independently, so escaped values may
// nest to any depth.
//
// # Context
//
// Every call threads a context.Context through all transformer callbacks.
// Stateful transformers keep per-call state in it; see package blob for a
// side-channel that moves large byte slices out of the tree. Package seal
// builds on the same recursion to encrypt values in place.
//
// # Formats
//
// Marshal and Unmarshal serialize the tree with a Format. JSON is the default;
// the following formats are available as submodules:
//
//   - json - JSON via goccy/go-json (application/json)
//   - yaml - YAML encoding (application/yaml)
//   - msgpack - MessagePack encoding (application/msgpack)
//   - bson - BSON encoding (application/bson)
//   - cbor - deterministic CBOR encoding (application/cbor)
//
// Stringify and Parse always use standard JSON text.
//
// # Errors
//
// Every failure wraps one of the sentinel errors and can be tested with
// errors.Is:
//
//   - ErrUnhandledValue: no encoder accepted a value
//   - ErrUnknownTypeID: no decoder accepted a tagged object
//   - ErrIllegalEncoderResult: an encoder payload reused the marker key
//   - ErrDuplicateTypeID: a decoder id was registered twice
//   - ErrInvalidTransformer: a handler is missing or a Kind is undeclared
//   - ErrNonJSONValue: Decode received something that is not a JSON value
//
// EncodeError and DecodeError carry a JSON Pointer to the failing node.
// Transformers that recurse into their own payload extend it with PrefixPath.
//
// # Observability
//
// Codecs emit capitan signals on creation, registration and completion of
// each top-level call. Nested calls made by transformers are silent.
package sigil
