// Package builtin provides transformers for common Go types that JSON cannot
// represent: Undefined, time.Time, *big.Int, *regexp.Regexp, Set, Map and
// *url.URL.
//
// Every transformer is installed through the public sigil registry API:
//
//	c, err := sigil.New(sigil.WithTransformers(builtin.All()...))
//
// Type ids are fixed small integers; custom transformers should use string
// ids to stay clear of them.
package builtin

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/zoobzio/sigil"
)

// Type ids of the built-in transformers.
var (
	UndefinedID = sigil.IntID(0)
	DateID      = sigil.IntID(1)
	BigIntID    = sigil.IntID(2)
	RegExpID    = sigil.IntID(3)
	SetID       = sigil.IntID(4)
	MapID       = sigil.IntID(5)
	URLID       = sigil.IntID(6)
)

// isoLayout renders instants in UTC with millisecond precision.
const isoLayout = "2006-01-02T15:04:05.000Z"

// All returns every built-in transformer, ordered by type id.
func All() []sigil.Transformer {
	return []sigil.Transformer{
		Undefined(),
		Date(),
		BigInt(),
		RegExp(),
		SetTransformer(),
		MapTransformer(),
		URL(),
	}
}

// Undefined encodes sigil.Undefined as {"$": 0}.
func Undefined() sigil.Transformer {
	return sigil.Transformer{
		Encoder: &sigil.Encoder{
			Filter: sigil.EncoderFilter{Kind: sigil.KindUndefined},
			Handler: func(context.Context, *sigil.Codec, any) (sigil.TypeID, any, error) {
				return UndefinedID, map[string]any{}, nil
			},
		},
		Decoder: &sigil.Decoder{
			ID: UndefinedID,
			Handler: func(context.Context, *sigil.Codec, sigil.TypeID, map[string]any) (any, error) {
				return sigil.Undefined, nil
			},
		},
	}
}

// Date encodes time.Time as {"$": 1, "iso": "1970-01-01T00:00:00.000Z"}.
// Instants are written in UTC and truncated to milliseconds; decoded times
// are in UTC.
func Date() sigil.Transformer {
	return sigil.Type(DateID,
		func(_ context.Context, _ *sigil.Codec, t time.Time) (map[string]any, error) {
			return map[string]any{"iso": t.UTC().Format(isoLayout)}, nil
		},
		func(_ context.Context, _ *sigil.Codec, payload map[string]any) (time.Time, error) {
			iso, err := stringField(payload, "iso")
			if err != nil {
				return time.Time{}, err
			}
			t, err := time.Parse(time.RFC3339Nano, iso)
			if err != nil {
				return time.Time{}, fmt.Errorf("parse date: %w", err)
			}
			return t.UTC(), nil
		},
	)
}

// BigInt encodes *big.Int as {"$": 2, "bigint": "<decimal>"}.
func BigInt() sigil.Transformer {
	return sigil.Transformer{
		Encoder: &sigil.Encoder{
			Filter: sigil.EncoderFilter{Kind: sigil.KindBigInt},
			Handler: func(_ context.Context, _ *sigil.Codec, v any) (sigil.TypeID, any, error) {
				n := v.(*big.Int)
				if n == nil {
					return sigil.NoID, nil, nil
				}
				return BigIntID, map[string]any{"bigint": n.String()}, nil
			},
		},
		Decoder: &sigil.Decoder{
			ID: BigIntID,
			Handler: func(_ context.Context, _ *sigil.Codec, _ sigil.TypeID, payload map[string]any) (any, error) {
				digits, err := stringField(payload, "bigint")
				if err != nil {
					return nil, err
				}
				n, ok := new(big.Int).SetString(digits, 10)
				if !ok {
					return nil, fmt.Errorf("invalid bigint %q", digits)
				}
				return n, nil
			},
		},
	}
}

// RegExp encodes *regexp.Regexp as {"$": 3, "source": ..., "flags": ""}.
//
// Go patterns carry their flags inline, so encoded flags are always empty.
// On decode, flags i, m and s become inline flags; g, y, u and d have no Go
// equivalent and are ignored; anything else is rejected.
func RegExp() sigil.Transformer {
	return nilSafe(sigil.Type(RegExpID,
		func(_ context.Context, _ *sigil.Codec, re *regexp.Regexp) (map[string]any, error) {
			return map[string]any{"source": re.String(), "flags": ""}, nil
		},
		func(_ context.Context, _ *sigil.Codec, payload map[string]any) (*regexp.Regexp, error) {
			source, err := stringField(payload, "source")
			if err != nil {
				return nil, err
			}
			flags, _ := payload["flags"].(string)
			inline, err := inlineFlags(flags)
			if err != nil {
				return nil, err
			}
			return regexp.Compile(inline + source)
		},
	))
}

// inlineFlags translates pattern flags into a Go inline flag group.
func inlineFlags(flags string) (string, error) {
	var b strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			if !strings.ContainsRune(b.String(), f) {
				b.WriteRune(f)
			}
		case 'g', 'y', 'u', 'd':
		default:
			return "", fmt.Errorf("unsupported regexp flag %q", f)
		}
	}
	if b.Len() == 0 {
		return "", nil
	}
	return "(?" + b.String() + ")", nil
}

// URL encodes *url.URL as {"$": 6, "url": "..."}.
func URL() sigil.Transformer {
	return nilSafe(sigil.Type(URLID,
		func(_ context.Context, _ *sigil.Codec, u *url.URL) (map[string]any, error) {
			return map[string]any{"url": u.String()}, nil
		},
		func(_ context.Context, _ *sigil.Codec, payload map[string]any) (*url.URL, error) {
			raw, err := stringField(payload, "url")
			if err != nil {
				return nil, err
			}
			return url.Parse(raw)
		},
	))
}

// nilSafe makes a pointer transformer emit untagged null for nil pointers.
func nilSafe(t sigil.Transformer) sigil.Transformer {
	handler := t.Encoder.Handler
	enc := *t.Encoder
	enc.Handler = func(ctx context.Context, c *sigil.Codec, v any) (sigil.TypeID, any, error) {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return sigil.NoID, nil, nil
		}
		return handler(ctx, c, v)
	}
	t.Encoder = &enc
	return t
}

// stringField reads a required string payload field.
func stringField(payload map[string]any, key string) (string, error) {
	raw, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("missing %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%q must be a string, got %T", key, raw)
	}
	return s, nil
}
