// Package json provides a JSON format backed by goccy/go-json.
//
// The output is standard JSON text, interchangeable with the default format
// of sigil; this package trades the standard library for throughput.
package json

import (
	gojson "github.com/goccy/go-json"
	"github.com/zoobzio/sigil"
)

// jsonFormat implements sigil.Format for JSON.
type jsonFormat struct{}

// New returns a JSON format.
func New() sigil.Format {
	return &jsonFormat{}
}

// ContentType returns the MIME type for JSON.
func (f *jsonFormat) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON.
func (f *jsonFormat) Marshal(v any) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (f *jsonFormat) Unmarshal(data []byte, v any) error {
	return gojson.Unmarshal(data, v)
}
