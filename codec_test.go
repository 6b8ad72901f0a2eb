package sigil

import (
	"context"
	"errors"
	"math/big"
	"math/rand/v2"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"
)

// testDate is a minimal class-filtered transformer for time.Time, keyed at 1.
func testDate() Transformer {
	return Type(IntID(1),
		func(_ context.Context, _ *Codec, t time.Time) (map[string]any, error) {
			return map[string]any{"iso": t.UTC().Format("2006-01-02T15:04:05.000Z")}, nil
		},
		func(_ context.Context, _ *Codec, payload map[string]any) (time.Time, error) {
			iso, _ := payload["iso"].(string)
			return time.Parse(time.RFC3339Nano, iso)
		},
	)
}

func newTestCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestEncode_Primitives(t *testing.T) {
	c := newTestCodec(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"string", "test", "test"},
		{"float", 1.5, 1.5},
		{"int", 123, 123},
		{"true", true, true},
		{"false", false, false},
		{"nil", nil, nil},
		{"array", []any{1, 2, 3}, []any{1, 2, 3}},
		{"object", map[string]any{"a": 1, "b": 2}, map[string]any{"a": 1, "b": 2}},
		{"empty object", map[string]any{}, map[string]any{}},
		{"empty array", []any{}, []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Encode(ctx, tt.in)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Encode() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecode_Primitives(t *testing.T) {
	c := newTestCodec(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   any
	}{
		{"string", "test"},
		{"float", 1.5},
		{"int8", int8(4)},
		{"uint64", uint64(7)},
		{"bool", true},
		{"nil", nil},
		{"array", []any{1.0, "x", nil}},
		{"object", map[string]any{"a": 1.0, "b": []any{true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Decode(ctx, tt.in)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.in) {
				t.Errorf("Decode() = %#v, want %#v", got, tt.in)
			}
		})
	}
}

func TestEncode_PreservesArrayOrder(t *testing.T) {
	c := newTestCodec(t, WithTransformers(testDate()))
	ctx := context.Background()

	in := []any{1, time.UnixMilli(42_000), "2", nil}
	got, err := c.Encode(ctx, in)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	want := []any{
		1,
		map[string]any{"$": int64(1), "iso": "1970-01-01T00:00:42.000Z"},
		"2",
		nil,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Encode() = %#v, want %#v", got, want)
	}
}

func TestEncode_EscapesMarker(t *testing.T) {
	c := newTestCodec(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   map[string]any
		want map[string]any
	}{
		{
			name: "scalar",
			in:   map[string]any{"$": 1, "a": 2},
			want: map[string]any{"$": []any{1}, "a": 2},
		},
		{
			name: "one-element array",
			in:   map[string]any{"$": []any{1}, "a": 2},
			want: map[string]any{"$": []any{[]any{1}}, "a": 2},
		},
		{
			name: "nested raw object",
			in:   map[string]any{"$": map[string]any{"$": "x"}},
			want: map[string]any{"$": []any{map[string]any{"$": []any{"x"}}}},
		},
		{
			name: "null",
			in:   map[string]any{"$": nil},
			want: map[string]any{"$": []any{nil}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Encode(ctx, tt.in)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Encode() = %#v, want %#v", got, tt.want)
			}

			back, err := c.Decode(ctx, got)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if !reflect.DeepEqual(back, any(tt.in)) {
				t.Errorf("Decode() = %#v, want %#v", back, tt.in)
			}
		})
	}
}

func TestEncode_EscapedTaggedValue(t *testing.T) {
	c := newTestCodec(t, WithTransformers(testDate()))
	ctx := context.Background()

	when := time.UnixMilli(1000).UTC()
	in := map[string]any{"$": when}

	got, err := c.Encode(ctx, in)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	want := map[string]any{"$": []any{map[string]any{"$": int64(1), "iso": "1970-01-01T00:00:01.000Z"}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Encode() = %#v, want %#v", got, want)
	}

	back, err := c.Decode(ctx, got)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	m, ok := back.(map[string]any)
	if !ok {
		t.Fatalf("Decode() = %T, want map", back)
	}
	if got, ok := m["$"].(time.Time); !ok || !got.Equal(when) {
		t.Errorf("Decode()[$] = %#v, want %v", m["$"], when)
	}
}

func TestDecode_CustomMarker(t *testing.T) {
	c := newTestCodec(t, WithMarker("@type"), WithTransformers(testDate()))
	ctx := context.Background()

	if c.Marker() != "@type" {
		t.Errorf("Marker() = %q, want %q", c.Marker(), "@type")
	}

	got, err := c.Encode(ctx, map[string]any{"$": 1, "@type": "user"})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	want := map[string]any{"$": 1, "@type": []any{"user"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Encode() = %#v, want %#v", got, want)
	}

	tagged, err := c.Encode(ctx, time.UnixMilli(0))
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if m := tagged.(map[string]any); m["@type"] != int64(1) {
		t.Errorf("Encode(date) = %#v, want @type marker", tagged)
	}
}

func TestNew_EmptyMarker(t *testing.T) {
	_, err := New(WithMarker(""))
	if !errors.Is(err, ErrInvalidMarker) {
		t.Errorf("New() error = %v, want ErrInvalidMarker", err)
	}
}

func TestDecode_UnknownTypeID(t *testing.T) {
	c := newTestCodec(t)

	_, err := c.Decode(context.Background(), map[string]any{"$": 9999.0})
	if !errors.Is(err, ErrUnknownTypeID) {
		t.Fatalf("Decode() error = %v, want ErrUnknownTypeID", err)
	}

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Decode() error should be *DecodeError, got %T", err)
	}
	if de.ID != IntID(9999) {
		t.Errorf("DecodeError.ID = %v, want 9999", de.ID)
	}
}

func TestDecode_MalformedMarker(t *testing.T) {
	c := newTestCodec(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   map[string]any
	}{
		{"bool", map[string]any{"$": true}},
		{"null", map[string]any{"$": nil}},
		{"fraction", map[string]any{"$": 1.5}},
		{"empty array", map[string]any{"$": []any{}}},
		{"two-element array", map[string]any{"$": []any{1.0, 2.0}}},
		{"object", map[string]any{"$": map[string]any{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(ctx, tt.in)
			if !errors.Is(err, ErrUnknownTypeID) {
				t.Errorf("Decode() error = %v, want ErrUnknownTypeID", err)
			}
		})
	}
}

func TestDecode_NonJSONValue(t *testing.T) {
	c := newTestCodec(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   any
	}{
		{"func", func() {}},
		{"struct", struct{ A int }{1}},
		{"time", time.Now()},
		{"typed slice", []string{"a"}},
		{"typed map", map[string]int{"a": 1}},
		{"nested", map[string]any{"a": []any{struct{}{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(ctx, tt.in)
			if !errors.Is(err, ErrNonJSONValue) {
				t.Errorf("Decode() error = %v, want ErrNonJSONValue", err)
			}
		})
	}
}

func TestDecode_NonJSONValuePath(t *testing.T) {
	c := newTestCodec(t)

	_, err := c.Decode(context.Background(), map[string]any{"a/b": []any{1.0, struct{}{}}})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Decode() error should be *DecodeError, got %v", err)
	}
	if de.Path != "/a~1b/1" {
		t.Errorf("DecodeError.Path = %q, want %q", de.Path, "/a~1b/1")
	}
}

func TestEncode_UnhandledValue(t *testing.T) {
	c := newTestCodec(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   any
	}{
		{"struct", struct{}{}},
		{"time", time.UnixMilli(0)},
		{"bigint", big.NewInt(1)},
		{"undefined", Undefined},
		{"symbol", NewSymbol("s")},
		{"func", func() {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Encode(ctx, tt.in)
			if !errors.Is(err, ErrUnhandledValue) {
				t.Errorf("Encode() error = %v, want ErrUnhandledValue", err)
			}
		})
	}
}

func TestEncode_UnhandledValuePath(t *testing.T) {
	c := newTestCodec(t)

	_, err := c.Encode(context.Background(), map[string]any{"list": []any{1, 2, Undefined}})
	var ee *EncodeError
	if !errors.As(err, &ee) {
		t.Fatalf("Encode() error should be *EncodeError, got %v", err)
	}
	if ee.Path != "/list/2" {
		t.Errorf("EncodeError.Path = %q, want %q", ee.Path, "/list/2")
	}
}

func TestEncode_IllegalEncoderResult(t *testing.T) {
	tests := []struct {
		name    string
		payload any
	}{
		{"marker in payload", map[string]any{"$": 5}},
		{"array payload", []any{1}},
		{"string payload", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCodec(t)
			c.RegisterEncoder(Encoder{
				Filter: EncoderFilter{Kind: KindUndefined},
				Handler: func(context.Context, *Codec, any) (TypeID, any, error) {
					return IntID(1), tt.payload, nil
				},
			})

			_, err := c.Encode(context.Background(), Undefined)
			if !errors.Is(err, ErrIllegalEncoderResult) {
				t.Errorf("Encode() error = %v, want ErrIllegalEncoderResult", err)
			}
		})
	}
}

func TestEncode_UntaggedResult(t *testing.T) {
	c := newTestCodec(t)
	c.RegisterEncoder(Encoder{
		Filter: EncoderFilter{Kind: KindFunction},
		Handler: func(context.Context, *Codec, any) (TypeID, any, error) {
			return NoID, "function", nil
		},
	})

	got, err := c.Encode(context.Background(), []any{func() {}})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if !reflect.DeepEqual(got, []any{"function"}) {
		t.Errorf("Encode() = %#v, want [function]", got)
	}
}

func TestEncode_NilPayload(t *testing.T) {
	c := newTestCodec(t)
	c.RegisterEncoder(Encoder{
		Filter: EncoderFilter{Kind: KindUndefined},
		Handler: func(context.Context, *Codec, any) (TypeID, any, error) {
			return StringID("undef"), nil, nil
		},
	})

	got, err := c.Encode(context.Background(), Undefined)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{"$": "undef"}) {
		t.Errorf("Encode() = %#v, want {$: undef}", got)
	}
}

func TestEncode_HandlerError(t *testing.T) {
	boom := errors.New("boom")
	c := newTestCodec(t)
	c.RegisterEncoder(Encoder{
		Filter: EncoderFilter{Kind: KindSymbol},
		Handler: func(context.Context, *Codec, any) (TypeID, any, error) {
			return NoID, nil, boom
		},
	})

	_, err := c.Encode(context.Background(), map[string]any{"s": NewSymbol("x")})
	if !errors.Is(err, ErrTransformerFailed) {
		t.Errorf("Encode() error = %v, want ErrTransformerFailed", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Encode() error = %v, should wrap cause", err)
	}
}

func TestDecode_HandlerError(t *testing.T) {
	boom := errors.New("boom")
	c := newTestCodec(t)
	if err := c.RegisterDecoder(Decoder{
		ID: StringID("x"),
		Handler: func(context.Context, *Codec, TypeID, map[string]any) (any, error) {
			return nil, boom
		},
	}); err != nil {
		t.Fatalf("RegisterDecoder() error: %v", err)
	}

	_, err := c.Decode(context.Background(), []any{map[string]any{"$": "x"}})
	if !errors.Is(err, ErrTransformerFailed) || !errors.Is(err, boom) {
		t.Errorf("Decode() error = %v, want ErrTransformerFailed wrapping boom", err)
	}
	var de *DecodeError
	if errors.As(err, &de) && de.Path != "/0" {
		t.Errorf("DecodeError.Path = %q, want %q", de.Path, "/0")
	}
}

func TestDecode_PayloadExcludesMarker(t *testing.T) {
	c := newTestCodec(t)
	var seen map[string]any
	if err := c.RegisterDecoder(Decoder{
		ID: StringID("p"),
		Handler: func(_ context.Context, _ *Codec, _ TypeID, payload map[string]any) (any, error) {
			seen = payload
			return "ok", nil
		},
	}); err != nil {
		t.Fatalf("RegisterDecoder() error: %v", err)
	}

	in := map[string]any{"$": "p", "a": 1.0}
	if _, err := c.Decode(context.Background(), in); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !reflect.DeepEqual(seen, map[string]any{"a": 1.0}) {
		t.Errorf("payload = %#v, want {a: 1}", seen)
	}
	if _, ok := in["$"]; !ok {
		t.Error("Decode() should not mutate its input")
	}
}

func TestEndToEnd_Date(t *testing.T) {
	c := newTestCodec(t, WithTransformers(testDate()))
	ctx := context.Background()

	in := map[string]any{"num": 1, "when": time.UnixMilli(1000).UTC()}

	encoded, err := c.Encode(ctx, in)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	want := map[string]any{
		"num":  1,
		"when": map[string]any{"$": int64(1), "iso": "1970-01-01T00:00:01.000Z"},
	}
	if !reflect.DeepEqual(encoded, want) {
		t.Fatalf("Encode() = %#v, want %#v", encoded, want)
	}

	decoded, err := c.Decode(ctx, encoded)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	m, ok := decoded.(map[string]any)
	if !ok || len(m) != 2 {
		t.Fatalf("Decode() = %#v, want two-key map", decoded)
	}
	if m["num"] != 1 {
		t.Errorf("num = %#v, want 1", m["num"])
	}
	if when, ok := m["when"].(time.Time); !ok || !when.Equal(time.UnixMilli(1000)) {
		t.Errorf("when = %#v, want epoch+1s", m["when"])
	}
}

func TestStringifyParse(t *testing.T) {
	c := newTestCodec(t, WithTransformers(testDate()))
	ctx := context.Background()

	text, err := c.Stringify(ctx, map[string]any{"num": 1, "when": time.UnixMilli(1000)})
	if err != nil {
		t.Fatalf("Stringify() error: %v", err)
	}
	want := `{"num":1,"when":{"$":1,"iso":"1970-01-01T00:00:01.000Z"}}`
	if text != want {
		t.Errorf("Stringify() = %s, want %s", text, want)
	}

	v, err := c.Parse(ctx, text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	m := v.(map[string]any)
	if m["num"] != 1.0 {
		t.Errorf("num = %#v, want 1", m["num"])
	}
	if when, ok := m["when"].(time.Time); !ok || !when.Equal(time.UnixMilli(1000)) {
		t.Errorf("when = %#v, want epoch+1s", m["when"])
	}
}

func TestParse_Invalid(t *testing.T) {
	c := newTestCodec(t)

	_, err := c.Parse(context.Background(), "{not json")
	if !errors.Is(err, ErrUnmarshal) {
		t.Errorf("Parse() error = %v, want ErrUnmarshal", err)
	}
	var fe *FormatError
	if !errors.As(err, &fe) || fe.ContentType != "application/json" {
		t.Errorf("Parse() error should be *FormatError for application/json, got %v", err)
	}
}

func TestMarshal_UnsupportedNumber(t *testing.T) {
	c := newTestCodec(t)

	// NaN is encodable as a number but has no JSON text form.
	_, err := c.Marshal(context.Background(), []any{nan()})
	if !errors.Is(err, ErrMarshal) {
		t.Errorf("Marshal() error = %v, want ErrMarshal", err)
	}
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}

// counterKey carries a mutable counter through one call.
type counterKey struct{}

func TestContext_ThreadedToTransformers(t *testing.T) {
	c := newTestCodec(t)
	c.RegisterEncoder(Encoder{
		Filter: EncoderFilter{Kind: KindUndefined},
		Handler: func(ctx context.Context, _ *Codec, _ any) (TypeID, any, error) {
			n := ctx.Value(counterKey{}).(*int)
			*n++
			return StringID("u"), map[string]any{"seq": *n}, nil
		},
	})
	if err := c.RegisterDecoder(Decoder{
		ID: StringID("u"),
		Handler: func(ctx context.Context, _ *Codec, _ TypeID, payload map[string]any) (any, error) {
			n := ctx.Value(counterKey{}).(*int)
			*n++
			return payload["seq"], nil
		},
	}); err != nil {
		t.Fatalf("RegisterDecoder() error: %v", err)
	}

	var count int
	ctx := context.WithValue(context.Background(), counterKey{}, &count)

	encoded, err := c.Encode(ctx, []any{Undefined, map[string]any{"x": Undefined}})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if count != 2 {
		t.Errorf("encode count = %d, want 2", count)
	}

	decoded, err := c.Decode(ctx, encoded)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if count != 4 {
		t.Errorf("decode count = %d, want 4", count)
	}
	want := []any{1, map[string]any{"x": 2}}
	if !reflect.DeepEqual(decoded, want) {
		t.Errorf("Decode() = %#v, want %#v", decoded, want)
	}
}

func TestEncode_NilContext(t *testing.T) {
	c := newTestCodec(t)

	//nolint:staticcheck // nil context is tolerated
	got, err := c.Encode(nil, []any{"a"})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if !reflect.DeepEqual(got, []any{"a"}) {
		t.Errorf("Encode() = %#v", got)
	}
}

// randomTree builds a JSON tree biased toward marker keys and one-element
// arrays, the shapes escaping has to disambiguate.
func randomTree(r *rand.Rand, depth int) any {
	if depth == 0 {
		switch r.IntN(4) {
		case 0:
			return nil
		case 1:
			return r.IntN(2) == 0
		case 2:
			return float64(r.IntN(100))
		default:
			return []string{"$", "a", "", "[1]"}[r.IntN(4)]
		}
	}

	switch r.IntN(3) {
	case 0:
		// One-element array, possibly wrapping another.
		return []any{randomTree(r, depth-1)}
	case 1:
		n := r.IntN(3)
		out := make([]any, n)
		for i := range out {
			out[i] = randomTree(r, depth-1)
		}
		return out
	default:
		out := map[string]any{"$": randomTree(r, depth-1)}
		if r.IntN(2) == 0 {
			out["a"] = randomTree(r, depth-1)
		}
		return out
	}
}

func TestEscaping_RandomTrees(t *testing.T) {
	c := newTestCodec(t)
	ctx := context.Background()
	r := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 500; i++ {
		in := randomTree(r, 1+r.IntN(6))

		tree, err := c.Encode(ctx, in)
		if err != nil {
			t.Fatalf("Encode(%#v) error: %v", in, err)
		}
		out, err := c.Decode(ctx, tree)
		if err != nil {
			t.Fatalf("Decode(%#v) error: %v", tree, err)
		}
		if !reflect.DeepEqual(out, in) {
			t.Fatalf("round trip mismatch:\n in:  %#v\n out: %#v", in, out)
		}

		text, err := c.Stringify(ctx, in)
		if err != nil {
			t.Fatalf("Stringify() error: %v", err)
		}
		parsed, err := c.Parse(ctx, text)
		if err != nil {
			t.Fatalf("Parse(%s) error: %v", text, err)
		}
		if !reflect.DeepEqual(parsed, in) {
			t.Fatalf("text round trip mismatch for %s:\n in:  %#v\n out: %#v", text, in, parsed)
		}
	}
}

func TestEscaping_DeepChain(t *testing.T) {
	c := newTestCodec(t)
	ctx := context.Background()

	// {"$": {"$": {"$": ... [[["x"]]] ...}}} several levels deep.
	var in any = []any{[]any{[]any{"x"}}}
	for i := 0; i < 8; i++ {
		in = map[string]any{"$": in}
	}

	tree, err := c.Encode(ctx, in)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	out, err := c.Decode(ctx, tree)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("Decode() = %#v, want %#v", out, in)
	}
}

func TestCodec_ConcurrentCalls(t *testing.T) {
	c := newTestCodec(t, WithTransformers(testDate()))
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				in := map[string]any{
					"$":    "user",
					"when": time.UnixMilli(int64(w*1000 + i)).UTC(),
					"list": []any{strconv.Itoa(w), float64(i)},
				}
				text, err := c.Stringify(ctx, in)
				if err != nil {
					errs <- err
					return
				}
				out, err := c.Parse(ctx, text)
				if err != nil {
					errs <- err
					return
				}
				m := out.(map[string]any)
				when, ok := m["when"].(time.Time)
				if m["$"] != "user" || !ok || !when.Equal(in["when"].(time.Time)) {
					errs <- errors.New("round trip mismatch: " + text)
					return
				}
			}
		}(w)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
