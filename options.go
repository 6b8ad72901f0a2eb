package sigil

import "github.com/zoobzio/capitan"

type config struct {
	marker       string
	format       Format
	capitan      *capitan.Capitan
	transformers []Transformer
}

// Option configures a Codec.
type Option func(*config)

// WithMarker sets the reserved key that carries type ids. Defaults to "$".
// The marker is fixed for the lifetime of the codec.
func WithMarker(marker string) Option {
	return func(c *config) {
		c.marker = marker
	}
}

// WithTransformers registers transformers in order during New.
func WithTransformers(transformers ...Transformer) Option {
	return func(c *config) {
		c.transformers = append(c.transformers, transformers...)
	}
}

// WithFormat sets the format used by Marshal and Unmarshal. Defaults to JSON.
// Stringify and Parse always use JSON text.
func WithFormat(f Format) Option {
	return func(c *config) {
		if f != nil {
			c.format = f
		}
	}
}

// WithCapitan routes codec events to a specific capitan instance instead of
// the package default.
func WithCapitan(c *capitan.Capitan) Option {
	return func(cfg *config) {
		cfg.capitan = c
	}
}
