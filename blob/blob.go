// Package blob moves large byte slices out of encoded trees.
//
// Byte slices are encoded inline as base64 unless a Table is attached to the
// call's context, in which case slices at or above a size threshold are
// stored in the table and replaced by a small integer reference:
//
//	t := blob.NewTable()
//	ctx := blob.WithTable(ctx, t)
//	tree, _ := c.Encode(ctx, map[string]any{"image": png})
//	// tree == {"image": {"$": "blob", "ref": 0}}, t.Blobs()[0] == png
//
// The caller ships the table next to the tree by whatever means it likes and
// attaches a table holding the same blobs when decoding. Identical slices are
// stored once.
package blob

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"

	"github.com/zoobzio/sigil"
	"golang.org/x/crypto/blake2b"
)

// ID is the default type id of the blob transformer.
var ID = sigil.StringID("blob")

// DefaultThreshold is the default size, in bytes, at which slices move to the table.
const DefaultThreshold = 1024

// ErrUnknownRef indicates a reference that the attached table cannot resolve.
var ErrUnknownRef = errors.New("unknown blob reference")

// Table collects blobs for one encode call, or serves them to one decode call.
// A Table is not safe for concurrent use.
type Table struct {
	blobs [][]byte
	index map[[blake2b.Size256]byte]int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{index: make(map[[blake2b.Size256]byte]int)}
}

// Load returns a table serving the given blobs, indexed by position.
func Load(blobs [][]byte) *Table {
	t := NewTable()
	for _, b := range blobs {
		t.blobs = append(t.blobs, b)
		t.index[blake2b.Sum256(b)] = len(t.blobs) - 1
	}
	return t
}

// Put stores b and returns its reference. Identical contents share a reference.
func (t *Table) Put(b []byte) int {
	sum := blake2b.Sum256(b)
	if ref, ok := t.index[sum]; ok {
		return ref
	}
	t.blobs = append(t.blobs, b)
	t.index[sum] = len(t.blobs) - 1
	return len(t.blobs) - 1
}

// Get returns the blob stored under ref.
func (t *Table) Get(ref int) ([]byte, bool) {
	if ref < 0 || ref >= len(t.blobs) {
		return nil, false
	}
	return t.blobs[ref], true
}

// Len returns the number of distinct blobs.
func (t *Table) Len() int {
	return len(t.blobs)
}

// Blobs returns the stored blobs in reference order.
func (t *Table) Blobs() [][]byte {
	return t.blobs
}

type tableKey struct{}

// WithTable attaches t to ctx.
func WithTable(ctx context.Context, t *Table) context.Context {
	return context.WithValue(ctx, tableKey{}, t)
}

// FromContext returns the table attached to ctx, if any.
func FromContext(ctx context.Context) (*Table, bool) {
	t, ok := ctx.Value(tableKey{}).(*Table)
	return t, ok && t != nil
}

// Transformer returns a transformer for []byte using the given type id.
// Slices of at least threshold bytes go to the context's table when one is
// attached; a threshold of zero or less uses DefaultThreshold.
func Transformer(id sigil.TypeID, threshold int) sigil.Transformer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	return sigil.Transformer{
		Encoder: &sigil.Encoder{
			Filter: sigil.EncoderFilter{Class: reflect.TypeFor[[]byte]()},
			Handler: func(ctx context.Context, _ *sigil.Codec, v any) (sigil.TypeID, any, error) {
				b := v.([]byte)
				if b == nil {
					return sigil.NoID, nil, nil
				}
				if t, ok := FromContext(ctx); ok && len(b) >= threshold {
					return id, map[string]any{"ref": t.Put(b)}, nil
				}
				return id, map[string]any{"base64": base64.StdEncoding.EncodeToString(b)}, nil
			},
		},
		Decoder: &sigil.Decoder{
			ID: id,
			Handler: func(ctx context.Context, _ *sigil.Codec, _ sigil.TypeID, payload map[string]any) (any, error) {
				if raw, ok := payload["ref"]; ok {
					return resolve(ctx, raw)
				}
				encoded, ok := payload["base64"].(string)
				if !ok {
					return nil, fmt.Errorf("blob payload needs %q or %q", "ref", "base64")
				}
				return base64.StdEncoding.DecodeString(encoded)
			},
		},
	}
}

// resolve looks a reference up in the context's table.
func resolve(ctx context.Context, raw any) ([]byte, error) {
	ref, ok := sigil.AsInt64(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownRef, raw)
	}
	t, ok := FromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: %d (no table attached)", ErrUnknownRef, ref)
	}
	b, ok := t.Get(int(ref))
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRef, ref)
	}
	return b, nil
}
