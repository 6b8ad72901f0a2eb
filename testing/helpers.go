// Package testing provides test utilities for sigil.
// The fixtures exercise every built-in transformer together with blob, seal
// and struct transformers, so format and integration tests can share them.
package testing

import (
	"context"
	"math/big"
	"net/url"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/sigil"
	"github.com/zoobzio/sigil/blob"
	"github.com/zoobzio/sigil/builtin"
	"github.com/zoobzio/sigil/seal"
)

// AccountID is the type id of the Account struct transformer.
var AccountID = sigil.StringID("account")

// TestKey returns a valid 32-byte key for testing.
func TestKey() []byte {
	return []byte("32-byte-key-for-aes-256-encrypt!")
}

// TestEncryptor returns an AES encryptor configured for testing.
func TestEncryptor() seal.Encryptor {
	enc, err := seal.AES(TestKey())
	if err != nil {
		panic(err)
	}
	return enc
}

// Account is a struct fixture whose fields need a transformer each.
type Account struct {
	ID      string         `sigil:"id"`
	Created time.Time      `sigil:"created"`
	Balance *big.Int       `sigil:"balance"`
	Site    *url.URL       `sigil:"site"`
	Tags    builtin.Set    `sigil:"tags"`
	Avatar  []byte         `sigil:"avatar"`
	SSN     seal.Sealed    `sigil:"ssn"`
	Limits  map[string]int `sigil:"limits"`
}

// Transformers returns every transformer the fixtures need.
func Transformers() []sigil.Transformer {
	return append(builtin.All(),
		blob.Transformer(blob.ID, 64),
		seal.Transformer(seal.ID, TestEncryptor()),
		sigil.Struct[Account](AccountID),
	)
}

// NewCodec returns a codec with Transformers installed.
func NewCodec(opts ...sigil.Option) (*sigil.Codec, error) {
	return sigil.New(append([]sigil.Option{sigil.WithTransformers(Transformers()...)}, opts...)...)
}

// SampleAccount returns a populated Account.
func SampleAccount() Account {
	balance, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	site, _ := url.Parse("https://example.com/ada")
	return Account{
		ID:      "acct-1",
		Created: time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC),
		Balance: balance,
		Site:    site,
		Tags:    builtin.NewSet("admin", "beta"),
		Avatar:  []byte{0x89, 'P', 'N', 'G'},
		SSN:     seal.Sealed{Value: "078-05-1120"},
		Limits:  map[string]int{"daily": 10, "$": 1},
	}
}

// MixedTree returns a plain value mixing JSON data, every built-in type and
// user keys that collide with the default marker.
func MixedTree() map[string]any {
	return map[string]any{
		"name":      "ada",
		"count":     3,
		"missing":   sigil.Undefined,
		"when":      time.UnixMilli(1_700_000_000_000).UTC(),
		"big":       big.NewInt(-42),
		"set":       builtin.NewSet(1, 2, 3),
		"map":       builtin.Map{}.Set("k", []any{true, nil}),
		"$":         map[string]any{"$": []any{1}},
		"nested":    []any{map[string]any{"$": "not a tag"}},
		"url":       mustURL("https://example.com/?q=1"),
		"avatar":    []byte("tiny"),
		"secret":    seal.Sealed{Value: map[string]any{"pin": "1234"}},
		"unchanged": []any{"a", 1.5, false},
	}
}

func mustURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// EventCapture records capitan events for a set of signals.
// Thread-safe for concurrent use in tests.
type EventCapture struct {
	mu     sync.Mutex
	counts map[string]int
	errors []error
}

// NewEventCapture hooks the given signals on c.
func NewEventCapture(c *capitan.Capitan, signals ...capitan.Signal) *EventCapture {
	ec := &EventCapture{counts: make(map[string]int)}
	for _, signal := range signals {
		c.Hook(signal, func(_ context.Context, e *capitan.Event) {
			err, hasErr := sigil.KeyError.From(e)

			ec.mu.Lock()
			defer ec.mu.Unlock()
			ec.counts[signal.Name()]++
			if hasErr {
				ec.errors = append(ec.errors, err)
			}
		})
	}
	return ec
}

// Count returns how many events were seen for signal.
func (ec *EventCapture) Count(signal capitan.Signal) int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.counts[signal.Name()]
}

// Errors returns the errors carried by captured events.
func (ec *EventCapture) Errors() []error {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return append([]error(nil), ec.errors...)
}
