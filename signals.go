package sigil

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for codec events.
var (
	SignalCodecCreated          = capitan.NewSignal("sigil.codec.created", "Codec instantiated")
	SignalTransformerRegistered = capitan.NewSignal("sigil.transformer.registered", "Transformer added to a codec registry")
	SignalEncodeComplete        = capitan.NewSignal("sigil.encode.complete", "Encode operation finished")
	SignalDecodeComplete        = capitan.NewSignal("sigil.decode.complete", "Decode operation finished")
	SignalMarshalComplete       = capitan.NewSignal("sigil.marshal.complete", "Marshal operation finished")
	SignalUnmarshalComplete     = capitan.NewSignal("sigil.unmarshal.complete", "Unmarshal operation finished")
)

// Keys for typed event data.
var (
	KeyMarker      = capitan.NewStringKey("marker")
	KeyContentType = capitan.NewStringKey("content_type")
	KeyTypeID      = capitan.NewStringKey("type_id")
	KeyFilter      = capitan.NewStringKey("filter")
	KeySize        = capitan.NewKey[int]("size", "int")
	KeyDuration    = capitan.NewKey[time.Duration]("duration", "time.Duration")
	KeyError       = capitan.NewKey[error]("error", "error")
)

// emit routes an event to the codec's capitan instance, or the default one.
func (c *Codec) emit(ctx context.Context, signal capitan.Signal, fields ...capitan.Field) {
	if c.capitan != nil {
		c.capitan.Emit(ctx, signal, fields...)
		return
	}
	capitan.Emit(ctx, signal, fields...)
}

// emitCodecCreated emits an event when a codec is constructed.
func (c *Codec) emitCodecCreated(ctx context.Context) {
	c.emit(ctx, SignalCodecCreated,
		KeyMarker.Field(c.marker),
		KeyContentType.Field(c.format.ContentType()),
	)
}

// emitTransformerRegistered emits an event for each registered encoder or decoder.
func (c *Codec) emitTransformerRegistered(ctx context.Context, id TypeID, filter string) {
	c.emit(ctx, SignalTransformerRegistered,
		KeyMarker.Field(c.marker),
		KeyTypeID.Field(id.String()),
		KeyFilter.Field(filter),
	)
}

// emitComplete emits a completion event for a top-level operation.
func (c *Codec) emitComplete(ctx context.Context, signal capitan.Signal, duration time.Duration, size int, err error) {
	fields := []capitan.Field{
		KeyMarker.Field(c.marker),
		KeyContentType.Field(c.format.ContentType()),
		KeyDuration.Field(duration),
	}
	if size >= 0 {
		fields = append(fields, KeySize.Field(size))
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
	}
	c.emit(ctx, signal, fields...)
}
