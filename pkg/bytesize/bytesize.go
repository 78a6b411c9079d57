// Package bytesize converts human-readable byte sizes such as "1gb" or "512kb"
// to byte counts and back. Units are binary (1kb = 1024 bytes), case-insensitive,
// and may carry an optional "b" or "ib" suffix.
package bytesize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/docker/go-units"
)

// ErrInvalid is returned when a size string cannot be parsed.
var ErrInvalid = errors.New("invalid byte size")

var abbrs = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// Parse parses s into a byte count. A bare number is taken as bytes.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalid)
	}
	n, err := units.RAMInBytes(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return n, nil
}

// Format renders n using the largest binary unit that keeps the value >= 1,
// e.g. 1536 -> "1.5KB".
func Format(n int64) string {
	if n < 0 {
		return "-" + Format(-n)
	}
	return units.CustomSize("%.4g%s", float64(n), 1024.0, abbrs)
}
