package rawbody

import (
	"bytes"
	"io"
	"sync"

	"github.com/forscht/rawbody/pkg/charset"
	"github.com/forscht/rawbody/pkg/stream"
)

// settleFunc receives the outcome of a collection. It is called at most once.
type settleFunc func(body *Body, err error)

// collector buffers one source. Its signal handlers run on the source's
// goroutine; abort may run concurrently from a canceled context, so all state
// is guarded by mu.
type collector struct {
	mu       sync.Mutex
	src      stream.Stream
	cfg      config
	detach   func()
	raw      *bytes.Buffer
	text     *bytes.Buffer
	dec      io.WriteCloser
	received int64
	settle   settleFunc
}

// start validates the options, runs the pre-flight checks on s and attaches
// a collector to it. The returned collector is nil when the operation was
// settled before any byte could be read.
func start(s stream.Stream, settle settleFunc, opts []Option) *collector {
	cfg, err := newConfig(opts)
	if err != nil {
		settle(nil, err)
		return nil
	}

	c := &collector{src: s, cfg: cfg, settle: settle}
	if cfg.encoding != "" {
		c.text = new(bytes.Buffer)
		dec, err := charset.NewDecoder(cfg.encoding, c.text)
		if err != nil {
			settle(nil, &UnsupportedEncodingError{Encoding: cfg.encoding})
			return nil
		}
		c.dec = dec
	} else {
		c.raw = new(bytes.Buffer)
	}

	if err := guard(s, cfg); err != nil {
		settle(nil, err)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.detach = s.Listen(c)
	return c
}

// guard rejects sources that must not be collected. A source whose declared
// length exceeds the limit is resumed without listeners so it drains.
func guard(s stream.Stream, cfg config) error {
	if s == nil {
		return &InvalidSourceError{}
	}
	if r, ok := s.(interface{ Readable() bool }); ok && !r.Readable() {
		return &InvalidSourceError{}
	}
	if e, ok := s.(interface{ Encoding() string }); ok {
		if enc := e.Encoding(); enc != "" {
			return &SourceEncodingError{Encoding: enc}
		}
	}
	if cfg.limit != unset && cfg.length != unset && cfg.length > cfg.limit {
		s.Resume()
		return &EntityTooLargeError{Expected: cfg.length, Limit: cfg.limit}
	}
	return nil
}

func (c *collector) OnData(chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settle == nil {
		return
	}

	c.received += int64(len(chunk))
	if c.cfg.limit != unset && c.received > c.cfg.limit {
		c.src.Pause()
		c.finish(nil, &EntityTooLargeError{
			Received: c.received,
			Expected: c.cfg.length,
			Limit:    c.cfg.limit,
		})
		return
	}

	var err error
	if c.dec != nil {
		_, err = c.dec.Write(chunk)
	} else {
		_, err = c.raw.Write(chunk)
	}
	if err != nil {
		c.src.Pause()
		c.finish(nil, err)
	}
}

func (c *collector) OnEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settle == nil {
		return
	}

	if c.cfg.length != unset && c.received != c.cfg.length {
		c.finish(nil, &LengthMismatchError{Received: c.received, Expected: c.cfg.length})
		return
	}

	body := &Body{received: c.received, encoding: c.cfg.encoding}
	if c.dec != nil {
		if err := c.dec.Close(); err != nil {
			c.finish(nil, err)
			return
		}
		body.data = c.text.Bytes()
	} else {
		body.data = c.raw.Bytes()
	}
	c.finish(body, nil)
}

func (c *collector) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finish(nil, err)
}

// OnClose only detaches; the terminal signal before it settles.
func (c *collector) OnClose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detach != nil {
		c.detach()
		c.detach = nil
	}
}

// abort settles a pending collection with err and pauses the source.
func (c *collector) abort(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settle == nil {
		return
	}
	c.src.Pause()
	c.finish(nil, err)
}

// finish consumes the settle func. Callers hold c.mu.
func (c *collector) finish(body *Body, err error) {
	settle := c.settle
	if settle == nil {
		return
	}
	c.settle = nil
	c.release()
	settle(body, err)
}

// release detaches the collector and drops its buffers. Callers hold c.mu.
func (c *collector) release() {
	if c.detach != nil {
		c.detach()
		c.detach = nil
	}
	c.raw = nil
	c.text = nil
	c.dec = nil
}
