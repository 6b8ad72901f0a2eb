package sigil

import "encoding/json"

// Format provides content-type aware marshaling of encoded trees.
//
// Encode produces only nil, strings, booleans, numbers, []any and
// map[string]any, so any format able to carry that shape can serve as the
// wire. Unmarshal must produce the same shape; integer kinds other than
// float64 are accepted by Decode.
type Format interface {
	// ContentType returns the MIME type for this format (e.g., "application/json").
	ContentType() string

	// Marshal encodes an encoded tree into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v, which is always a *any.
	Unmarshal(data []byte, v any) error
}

// jsonFormat is the default Format: standard JSON text.
type jsonFormat struct{}

func (jsonFormat) ContentType() string {
	return "application/json"
}

func (jsonFormat) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonFormat) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

var _ Format = jsonFormat{}
