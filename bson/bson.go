// Package bson provides a BSON format implementation.
//
// BSON documents must be objects at the top level, so the encoded tree is
// stored under a single key. On the way back, BSON documents and arrays are
// converted to map[string]any and []any.
package bson

import (
	"fmt"

	"github.com/zoobzio/sigil"
	"go.mongodb.org/mongo-driver/bson"
)

// rootKey holds the encoded tree inside the top-level document.
const rootKey = "v"

// bsonFormat implements sigil.Format for BSON.
type bsonFormat struct{}

// New returns a BSON format.
func New() sigil.Format {
	return &bsonFormat{}
}

// ContentType returns the MIME type for BSON.
func (f *bsonFormat) ContentType() string {
	return "application/bson"
}

// Marshal encodes v as BSON.
func (f *bsonFormat) Marshal(v any) ([]byte, error) {
	return bson.Marshal(bson.D{{Key: rootKey, Value: v}})
}

// Unmarshal decodes BSON data into v, which must be a *any.
func (f *bsonFormat) Unmarshal(data []byte, v any) error {
	target, ok := v.(*any)
	if !ok {
		return fmt.Errorf("bson: unmarshal target must be *any, got %T", v)
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	*target = normalize(doc[rootKey])
	return nil
}

// normalize converts BSON container types into plain JSON shapes.
func normalize(v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]any, len(val))
		for key, inner := range val {
			out[key] = normalize(inner)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalize(inner)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, inner := range val {
			out[key] = normalize(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalize(inner)
		}
		return out
	}
	return v
}
