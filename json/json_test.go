package json

import (
	"context"
	"reflect"
	"testing"

	"github.com/zoobzio/sigil"
)

func TestNew(t *testing.T) {
	f := New()
	if f == nil {
		t.Error("New() should return non-nil format")
	}
}

func TestContentType(t *testing.T) {
	f := New()
	if f.ContentType() != "application/json" {
		t.Errorf("ContentType() = %q, want %q", f.ContentType(), "application/json")
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	f := New()

	original := map[string]any{
		"$":    float64(1),
		"iso":  "1970-01-01T00:00:01.000Z",
		"list": []any{"a", true, nil},
	}

	data, err := f.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored any
	if err := f.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if !reflect.DeepEqual(restored, original) {
		t.Errorf("round-trip failed: got %#v, want %#v", restored, original)
	}
}

func TestMarshalNil(t *testing.T) {
	f := New()

	data, err := f.Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal(nil) error: %v", err)
	}

	if string(data) != "null" {
		t.Errorf("Marshal(nil) = %q, want %q", data, "null")
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	f := New()

	var v any
	err := f.Unmarshal([]byte("invalid json"), &v)
	if err == nil {
		t.Error("Unmarshal(invalid) should return error")
	}
}

func TestCodecEscapedRoundTrip(t *testing.T) {
	c, err := sigil.New(sigil.WithFormat(New()))
	if err != nil {
		t.Fatalf("sigil.New() error: %v", err)
	}

	original := map[string]any{"$": []any{float64(1)}, "a": float64(2)}

	data, err := c.Marshal(context.Background(), original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `{"$":[[1]],"a":2}` {
		t.Errorf("Marshal() = %s, want %s", data, `{"$":[[1]],"a":2}`)
	}

	restored, err := c.Unmarshal(context.Background(), data)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !reflect.DeepEqual(restored, original) {
		t.Errorf("round-trip failed: got %#v, want %#v", restored, original)
	}
}
