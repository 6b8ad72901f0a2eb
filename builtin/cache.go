package builtin

import (
	"sync"

	"github.com/zoobzio/sigil"
)

var (
	cache   = make(map[string]*sigil.Codec)
	cacheMu sync.RWMutex
)

// Use returns a shared codec with every built-in transformer installed,
// serializing with f. Codecs are cached by content type, so callers in the
// same process share one instance per format. A nil format selects JSON.
//
// Shared codecs must not be registered into; build a dedicated codec with
// sigil.New for custom transformers.
func Use(f sigil.Format) (*sigil.Codec, error) {
	key := "application/json"
	if f != nil {
		key = f.ContentType()
	}

	// Fast path: read-lock cache check
	cacheMu.RLock()
	if cached, ok := cache[key]; ok {
		cacheMu.RUnlock()
		return cached, nil
	}
	cacheMu.RUnlock()

	// Slow path: build and cache with write-lock
	cacheMu.Lock()
	defer cacheMu.Unlock()

	// Double-check pattern
	if cached, ok := cache[key]; ok {
		return cached, nil
	}

	c, err := sigil.New(
		sigil.WithFormat(f),
		sigil.WithTransformers(All()...),
	)
	if err != nil {
		return nil, err
	}

	cache[key] = c
	return c, nil
}

// Reset clears the shared codec cache.
// This is primarily useful for test isolation.
func Reset() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = make(map[string]*sigil.Codec)
}
