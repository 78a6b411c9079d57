// Package httprange parses single byte ranges of an HTTP Range header.
//
// Only the bytes unit and a single range are supported; multipart range
// responses are rarely used and are not served by this module.
package httprange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Range is a satisfiable byte range of a representation.
type Range struct {
	Start  int64
	Length int64
	// Header is the matching Content-Range value.
	Header string
}

var ErrInvalid = errors.New("invalid range header format")

// Parse resolves header against a representation of size bytes. The forms
// "bytes=a-b", "bytes=a-" and "bytes=-n" are accepted. An end beyond the
// representation is clamped to its last byte; a start beyond it is an error.
func Parse(header string, size int64) (*Range, error) {
	unit, spec, ok := strings.Cut(strings.TrimSpace(header), "=")
	if !ok || unit != "bytes" || strings.Contains(spec, ",") {
		return nil, ErrInvalid
	}
	first, last, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return nil, ErrInvalid
	}

	var start, end int64
	switch {
	case first == "" && last == "":
		return nil, ErrInvalid
	case first == "":
		n, err := parse(last)
		if err != nil || n == 0 {
			return nil, ErrInvalid
		}
		if n > size {
			n = size
		}
		start, end = size-n, size-1
	default:
		var err error
		if start, err = parse(first); err != nil {
			return nil, err
		}
		end = size - 1
		if last != "" {
			if end, err = parse(last); err != nil {
				return nil, err
			}
			if end >= size {
				end = size - 1
			}
		}
	}

	if start >= size || start > end {
		return nil, ErrInvalid
	}
	return &Range{
		Start:  start,
		Length: end - start + 1,
		Header: fmt.Sprintf("bytes %d-%d/%d", start, end, size),
	}, nil
}

func parse(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, ErrInvalid
	}
	return n, nil
}
