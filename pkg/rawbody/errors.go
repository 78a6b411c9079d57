package rawbody

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a collection failure.
type Kind uint8

const (
	// KindNone is the kind of a nil error.
	KindNone Kind = iota
	// KindSource marks an error reported by the source itself.
	KindSource
	KindInvalidSource
	KindSourceEncodingConflict
	KindUnsupportedEncoding
	KindEntityTooLarge
	KindLengthMismatch
	KindInvalidOption
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSource:
		return "source"
	case KindInvalidSource:
		return "invalid source"
	case KindSourceEncodingConflict:
		return "source encoding conflict"
	case KindUnsupportedEncoding:
		return "unsupported encoding"
	case KindEntityTooLarge:
		return "entity too large"
	case KindLengthMismatch:
		return "length mismatch"
	case KindInvalidOption:
		return "invalid option"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

type classified interface {
	error
	Kind() Kind
	StatusCode() int
	Type() string
}

var (
	_ classified = (*InvalidSourceError)(nil)
	_ classified = (*SourceEncodingError)(nil)
	_ classified = (*UnsupportedEncodingError)(nil)
	_ classified = (*EntityTooLargeError)(nil)
	_ classified = (*LengthMismatchError)(nil)
	_ classified = (*OptionError)(nil)
)

// InvalidSourceError reports a source that cannot produce data.
type InvalidSourceError struct{}

func (e *InvalidSourceError) Error() string   { return "stream is not readable" }
func (e *InvalidSourceError) Kind() Kind      { return KindInvalidSource }
func (e *InvalidSourceError) StatusCode() int { return http.StatusInternalServerError }
func (e *InvalidSourceError) Type() string    { return "stream.not.readable" }

// SourceEncodingError reports a source that already emits decoded text.
type SourceEncodingError struct {
	Encoding string
}

func (e *SourceEncodingError) Error() string   { return "stream encoding should not be set" }
func (e *SourceEncodingError) Kind() Kind      { return KindSourceEncodingConflict }
func (e *SourceEncodingError) StatusCode() int { return http.StatusInternalServerError }
func (e *SourceEncodingError) Type() string    { return "stream.encoding.set" }

// UnsupportedEncodingError reports an encoding name that could not be resolved.
type UnsupportedEncodingError struct {
	Encoding string
}

func (e *UnsupportedEncodingError) Error() string   { return "specified encoding unsupported" }
func (e *UnsupportedEncodingError) Kind() Kind      { return KindUnsupportedEncoding }
func (e *UnsupportedEncodingError) StatusCode() int { return http.StatusUnsupportedMediaType }
func (e *UnsupportedEncodingError) Type() string    { return "encoding.unsupported" }

// EntityTooLargeError reports a body exceeding the limit. Received is the
// count at the chunk that crossed the limit, or zero when the declared length
// alone exceeded it. Expected is -1 when no length was declared.
type EntityTooLargeError struct {
	Received int64
	Expected int64
	Limit    int64
}

func (e *EntityTooLargeError) Error() string   { return "request entity too large" }
func (e *EntityTooLargeError) Kind() Kind      { return KindEntityTooLarge }
func (e *EntityTooLargeError) StatusCode() int { return http.StatusRequestEntityTooLarge }
func (e *EntityTooLargeError) Type() string    { return "entity.too.large" }

// LengthMismatchError reports a source that ended after delivering a different
// number of bytes than declared.
type LengthMismatchError struct {
	Received int64
	Expected int64
}

func (e *LengthMismatchError) Error() string {
	return "request size did not match content length"
}
func (e *LengthMismatchError) Kind() Kind      { return KindLengthMismatch }
func (e *LengthMismatchError) StatusCode() int { return http.StatusBadRequest }
func (e *LengthMismatchError) Type() string    { return "request.size.invalid" }

// OptionError reports an invalid option value.
type OptionError struct {
	Option string
	Err    error
}

func (e *OptionError) Error() string   { return fmt.Sprintf("invalid %s option: %v", e.Option, e.Err) }
func (e *OptionError) Unwrap() error   { return e.Err }
func (e *OptionError) Kind() Kind      { return KindInvalidOption }
func (e *OptionError) StatusCode() int { return http.StatusInternalServerError }
func (e *OptionError) Type() string    { return "option.invalid" }

// KindOf returns the classification of err. Errors not produced by this
// package are reported as KindSource.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var c classified
	if errors.As(err, &c) {
		return c.Kind()
	}
	return KindSource
}

// StatusCode returns the HTTP status matching err, 500 when err carries none.
func StatusCode(err error) int {
	var c interface{ StatusCode() int }
	if errors.As(err, &c) {
		return c.StatusCode()
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether err was caused by the data sent rather than
// by the integration or the transport.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindEntityTooLarge, KindLengthMismatch:
		return true
	}
	return false
}
