package rawbody

import (
	"fmt"

	"github.com/forscht/rawbody/pkg/bytesize"
	"github.com/forscht/rawbody/pkg/charset"
)

const unset = -1

type config struct {
	limit    int64
	length   int64
	encoding string
}

func newConfig(opts []Option) (config, error) {
	cfg := config{limit: unset, length: unset}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Option configures one collection.
type Option func(*config) error

// WithLimit caps the number of bytes accepted from the source.
func WithLimit(n int64) Option {
	return func(c *config) error {
		if n < 0 {
			return &OptionError{Option: "limit", Err: fmt.Errorf("negative value %d", n)}
		}
		c.limit = n
		return nil
	}
}

// WithLimitString caps the number of bytes accepted from the source using a
// human readable size such as "1mb".
func WithLimitString(s string) Option {
	return func(c *config) error {
		n, err := bytesize.Parse(s)
		if err != nil {
			return &OptionError{Option: "limit", Err: err}
		}
		c.limit = n
		return nil
	}
}

// WithLength declares how many bytes the source is expected to deliver,
// usually taken from a Content-Length header.
func WithLength(n int64) Option {
	return func(c *config) error {
		if n < 0 {
			return &OptionError{Option: "length", Err: fmt.Errorf("negative value %d", n)}
		}
		c.length = n
		return nil
	}
}

// WithEncoding decodes the collected bytes from the named encoding into
// UTF-8 text. An empty name leaves the body raw.
func WithEncoding(name string) Option {
	return func(c *config) error {
		c.encoding = name
		return nil
	}
}

// WithDefaultEncoding decodes the collected bytes as UTF-8.
func WithDefaultEncoding() Option {
	return WithEncoding(charset.Default)
}

// Config is the file representation of the collection options.
type Config struct {
	Limit    string `mapstructure:"limit" validate:"omitempty,bytesize"`
	Encoding string `mapstructure:"encoding" validate:"omitempty,charset"`
}

// Options converts c into collection options. Empty fields are left unset.
func (c Config) Options() []Option {
	var opts []Option
	if c.Limit != "" {
		opts = append(opts, WithLimitString(c.Limit))
	}
	if c.Encoding != "" {
		opts = append(opts, WithEncoding(c.Encoding))
	}
	return opts
}
