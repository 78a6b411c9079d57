// Package charset resolves character encoding names and decodes byte streams
// into UTF-8 text. Decoding is incremental: bytes may be written in arbitrary
// chunks, including chunks that split a multi-byte sequence, and the decoder
// flushes any pending tail state on Close.
//
// Names are matched case-insensitively. "utf-8" strips a leading byte order
// mark. "utf-16" and "utf-32" honor a byte order mark and default to little
// endian without one. The explicit-endian forms never switch endianness.
// Any other name is resolved through the IANA registry and then the WHATWG
// encoding index.
package charset

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// Default is the encoding used when text decoding is requested without a name.
const Default = "utf-8"

// ErrUnsupported is returned for encoding names that cannot be resolved.
var ErrUnsupported = errors.New("unsupported encoding")

var unicodeEncodings = map[string]encoding.Encoding{
	"utf8":     unicode.UTF8BOM,
	"utf-8":    unicode.UTF8BOM,
	"utf16":    unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16":   unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf16le":  unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16le": unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"ucs2":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"ucs-2":    unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf16be":  unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf-16be": unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf32":    utf32.UTF32(utf32.LittleEndian, utf32.UseBOM),
	"utf-32":   utf32.UTF32(utf32.LittleEndian, utf32.UseBOM),
	"utf32le":  utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
	"utf-32le": utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
	"utf32be":  utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
	"utf-32be": utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
}

// Lookup returns the encoding registered under name.
func Lookup(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnsupported)
	}
	if enc, ok := unicodeEncodings[key]; ok {
		return enc, nil
	}
	// ianaindex knows some names it cannot decode and returns a nil encoding for them
	if enc, err := ianaindex.IANA.Encoding(key); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(key); err == nil && enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, name)
}

// Supported reports whether name resolves to an encoding.
func Supported(name string) bool {
	_, err := Lookup(name)
	return err == nil
}

// NewDecoder returns a writer that decodes everything written to it from the
// named encoding and writes UTF-8 text to dst. Close must be called once the
// input is complete so that a trailing partial sequence is flushed.
func NewDecoder(name string, dst io.Writer) (io.WriteCloser, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return transform.NewWriter(dst, enc.NewDecoder()), nil
}

// NewReader returns a reader yielding the UTF-8 decoding of r.
func NewReader(name string, r io.Reader) (io.Reader, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// Decode decodes p from the named encoding.
func Decode(name string, p []byte) (string, error) {
	enc, err := Lookup(name)
	if err != nil {
		return "", err
	}
	b, _, err := transform.Bytes(enc.NewDecoder(), p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Encode encodes s into the named encoding.
func Encode(name, s string) ([]byte, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	// a leading BOM is accepted when decoding utf-8 but never produced
	if enc == unicode.UTF8BOM {
		enc = unicode.UTF8
	}
	b, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	return b, err
}
