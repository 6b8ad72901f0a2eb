// Package yaml provides a YAML format implementation.
package yaml

import (
	"github.com/zoobzio/sigil"
	"gopkg.in/yaml.v3"
)

// yamlFormat implements sigil.Format for YAML.
type yamlFormat struct{}

// New returns a YAML format.
func New() sigil.Format {
	return &yamlFormat{}
}

// ContentType returns the MIME type for YAML.
func (f *yamlFormat) ContentType() string {
	return "application/yaml"
}

// Marshal encodes v as YAML.
func (f *yamlFormat) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// Unmarshal decodes YAML data into v.
// Mappings with string keys decode as map[string]any, which is what
// sigil.Codec.Decode expects.
func (f *yamlFormat) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}
