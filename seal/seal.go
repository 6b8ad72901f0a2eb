// Package seal encrypts values inside an encoded tree.
//
// Wrapping a value in Sealed hides it behind authenticated encryption:
//
//	enc, _ := seal.AES(key)
//	c, _ := sigil.New(sigil.WithTransformers(seal.Transformer(seal.ID, enc)))
//	tree, _ := c.Encode(ctx, map[string]any{"ssn": seal.Sealed{Value: "078-05-1120"}})
//	// tree == {"ssn": {"$": "sealed", "data": "<base64>"}}
//
// The wrapped value is encoded with the same codec, rendered as JSON text and
// encrypted, so it may hold anything the codec can encode, including other
// tagged values. Decoding with the same key returns a Sealed holding the
// decoded value.
package seal

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/zoobzio/sigil"
)

// ID is the default type id of the seal transformer.
var ID = sigil.StringID("sealed")

// Sealed marks a value for encryption.
type Sealed struct {
	Value any
}

// Transformer returns a transformer that encrypts Sealed values with enc.
func Transformer(id sigil.TypeID, enc Encryptor) sigil.Transformer {
	return sigil.Type(id,
		func(ctx context.Context, c *sigil.Codec, s Sealed) (map[string]any, error) {
			text, err := c.Stringify(ctx, s.Value)
			if err != nil {
				return nil, err
			}
			ciphertext, err := enc.Encrypt([]byte(text))
			if err != nil {
				return nil, fmt.Errorf("seal: %w", err)
			}
			return map[string]any{"data": base64.StdEncoding.EncodeToString(ciphertext)}, nil
		},
		func(ctx context.Context, c *sigil.Codec, payload map[string]any) (Sealed, error) {
			encoded, ok := payload["data"].(string)
			if !ok {
				return Sealed{}, fmt.Errorf("%q must be a string, got %T", "data", payload["data"])
			}
			ciphertext, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return Sealed{}, fmt.Errorf("decode data: %w", err)
			}
			plaintext, err := enc.Decrypt(ciphertext)
			if err != nil {
				return Sealed{}, err
			}
			v, err := c.Parse(ctx, string(plaintext))
			if err != nil {
				return Sealed{}, err
			}
			return Sealed{Value: v}, nil
		},
	)
}
