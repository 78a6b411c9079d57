package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tt := []struct {
		name     string
		input    string
		expected int64
		err      bool
	}{
		{name: "bare number", input: "100", expected: 100},
		{name: "bytes suffix", input: "12b", expected: 12},
		{name: "kilobytes", input: "512kb", expected: 512 * 1024},
		{name: "megabytes upper case", input: "1MB", expected: 1 << 20},
		{name: "gigabytes", input: "1gb", expected: 1 << 30},
		{name: "iec suffix", input: "2GiB", expected: 2 << 30},
		{name: "fraction", input: "1.5mb", expected: 1572864},
		{name: "space before unit", input: "10 kb", expected: 10240},
		{name: "surrounding space", input: "  1kb ", expected: 1024},
		{name: "empty", input: "", err: true},
		{name: "unknown unit", input: "1xb", err: true},
		{name: "negative", input: "-1kb", err: true},
		{name: "garbage", input: "lots", err: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			n, err := Parse(tc.input)
			if tc.err {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, n)
		})
	}
}

func TestFormat(t *testing.T) {
	tt := []struct {
		input    int64
		expected string
	}{
		{0, "0B"},
		{12, "12B"},
		{1024, "1KB"},
		{1536, "1.5KB"},
		{1 << 20, "1MB"},
		{1 << 30, "1GB"},
		{-2048, "-2KB"},
	}

	for _, tc := range tt {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, Format(tc.input))
		})
	}
}
