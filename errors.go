package sigil

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrUnhandledValue indicates no encoder resolved for a value during encode.
	ErrUnhandledValue = errors.New("unhandled value")

	// ErrUnknownTypeID indicates a tagged mapping carries a type id with no matching decoder.
	ErrUnknownTypeID = errors.New("unknown type id")

	// ErrIllegalEncoderResult indicates an encoder produced a payload that reuses the marker key
	// or is not a mapping.
	ErrIllegalEncoderResult = errors.New("illegal encoder result")

	// ErrDuplicateTypeID indicates two exact-match decoders claimed the same type id.
	ErrDuplicateTypeID = errors.New("duplicate type id")

	// ErrNonJSONValue indicates decode received input outside the JSON value domain.
	ErrNonJSONValue = errors.New("non-JSON value")

	// ErrTransformerFailed indicates an encode or decode handler returned an error.
	ErrTransformerFailed = errors.New("transformer failed")

	// ErrInvalidTransformer indicates an encoder or decoder without a handler, or an
	// encoder filtered on an undeclared Kind.
	ErrInvalidTransformer = errors.New("invalid transformer")

	// ErrInvalidMarker indicates the configured marker key is empty.
	ErrInvalidMarker = errors.New("invalid marker key")

	// ErrMarshal indicates the format failed to marshal the encoded tree.
	ErrMarshal = errors.New("marshal failed")

	// ErrUnmarshal indicates the format failed to unmarshal input data.
	ErrUnmarshal = errors.New("unmarshal failed")
)

// EncodeError represents a failure while encoding a value.
// Path is a JSON Pointer to the node that failed, relative to the top-level value.
type EncodeError struct {
	Err   error  // Underlying sentinel error
	Path  string // JSON Pointer to the failing node
	Value any    // Value that could not be encoded
	Cause error  // Error returned by a transformer, if any
}

func (e *EncodeError) Error() string {
	var b strings.Builder
	b.WriteString("encode")
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	fmt.Fprintf(&b, ": %s", e.Err.Error())
	if e.Value != nil && e.Cause == nil {
		fmt.Fprintf(&b, " (%T)", e.Value)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *EncodeError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// DecodeError represents a failure while decoding a tree.
type DecodeError struct {
	Err   error  // Underlying sentinel error
	Path  string // JSON Pointer to the failing node
	ID    any    // Raw marker value, when the failure concerns a tagged mapping
	Value any    // Offending input
	Cause error  // Error returned by a transformer, if any
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("decode")
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	fmt.Fprintf(&b, ": %s", e.Err.Error())
	if e.ID != nil {
		fmt.Fprintf(&b, " %v", e.ID)
	} else if errors.Is(e.Err, ErrNonJSONValue) {
		fmt.Fprintf(&b, " (%T)", e.Value)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *DecodeError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// RegistrationError represents a rejected registration or configuration.
type RegistrationError struct {
	Err    error  // Underlying sentinel error
	ID     TypeID // Type id that was rejected, if any
	Detail string // What was wrong with the rejected transformer, if anything
}

func (e *RegistrationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Detail)
	}
	if e.ID.Valid() {
		return fmt.Sprintf("%s: %s is already registered", e.Err.Error(), e.ID)
	}
	return e.Err.Error()
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// FormatError represents a marshal/unmarshal error from a Format.
type FormatError struct {
	Err         error  // Underlying sentinel error (ErrMarshal, ErrUnmarshal)
	ContentType string // Content type of the failing format
	Cause       error  // Original error from the format
}

func (e *FormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %v", e.Err.Error(), e.ContentType, e.Cause)
	}
	return fmt.Sprintf("%s (%s)", e.Err.Error(), e.ContentType)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *FormatError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// newEncodeError creates an EncodeError rooted at the current node.
func newEncodeError(sentinel error, value any, cause error) error {
	return &EncodeError{
		Err:   sentinel,
		Value: value,
		Cause: cause,
	}
}

// newDecodeError creates a DecodeError rooted at the current node.
func newDecodeError(sentinel error, id, value any, cause error) error {
	return &DecodeError{
		Err:   sentinel,
		ID:    id,
		Value: value,
		Cause: cause,
	}
}

// newFormatError creates a FormatError for marshal/unmarshal failures.
func newFormatError(sentinel error, contentType string, cause error) error {
	return &FormatError{
		Err:         sentinel,
		ContentType: contentType,
		Cause:       cause,
	}
}

// wrapEncodeHandlerError turns an error returned by an encode handler into a
// typed error. Errors already produced by a nested Encode call pass through so
// their sentinel and path survive.
func wrapEncodeHandlerError(value any, err error) error {
	var ee *EncodeError
	if errors.As(err, &ee) {
		return err
	}
	return newEncodeError(ErrTransformerFailed, value, err)
}

// wrapDecodeHandlerError is the decode counterpart of wrapEncodeHandlerError.
func wrapDecodeHandlerError(id, value any, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return newDecodeError(ErrTransformerFailed, id, value, err)
}

// PrefixPath prepends segments to the JSON Pointer of an EncodeError or
// DecodeError, so a transformer that encodes or decodes nested values can
// report where in its payload a failure happened. PrefixPath(err, "values", "2")
// turns path "/x" into "/values/2/x". Other errors are returned unchanged.
func PrefixPath(err error, segments ...string) error {
	for i := len(segments) - 1; i >= 0; i-- {
		err = prefixPath(err, segments[i])
	}
	return err
}

// prefixPath prepends a path segment to a typed codec error while the
// recursion unwinds. Other errors are returned unchanged.
func prefixPath(err error, segment string) error {
	switch e := err.(type) {
	case *EncodeError:
		e.Path = "/" + escapePointer(segment) + e.Path
	case *DecodeError:
		e.Path = "/" + escapePointer(segment) + e.Path
	}
	return err
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// escapePointer escapes a reference token per RFC 6901.
func escapePointer(s string) string {
	return pointerEscaper.Replace(s)
}
