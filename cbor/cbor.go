// Package cbor provides a CBOR format implementation.
//
// Trees are written with Core Deterministic Encoding (RFC 8949 §4.2), so the
// same value always produces the same bytes.
package cbor

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/zoobzio/sigil"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cbor: encoder initialization failed: " + err.Error())
	}

	// Maps decoded into any must be map[string]any for sigil.Codec.Decode.
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("cbor: decoder initialization failed: " + err.Error())
	}
}

// cborFormat implements sigil.Format for CBOR.
type cborFormat struct{}

// New returns a CBOR format.
func New() sigil.Format {
	return &cborFormat{}
}

// ContentType returns the MIME type for CBOR.
func (f *cborFormat) ContentType() string {
	return "application/cbor"
}

// Marshal encodes v as deterministic CBOR.
func (f *cborFormat) Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
// Non-negative integers come back as uint64 and negative ones as int64.
func (f *cborFormat) Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
