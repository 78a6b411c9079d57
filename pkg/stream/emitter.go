package stream

import (
	"bytes"
	"io"
	"sync"

	"github.com/forscht/rawbody/pkg/charset"
)

// Emitter is a Stream driven by its owner: every Write becomes a data signal
// delivered on the writer's goroutine before Write returns. A paused Emitter
// refuses writes with ErrPaused, which is how consumers push back on a
// producer that has no buffer of its own.
type Emitter struct {
	registry

	mu       sync.Mutex
	paused   bool
	ended    bool
	closed   bool
	encoding string
	dec      io.WriteCloser
	text     bytes.Buffer
}

// NewEmitter returns an open, unpaused Emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Listen attaches l.
func (e *Emitter) Listen(l Listener) func() {
	return e.registry.Listen(l)
}

// Write emits a copy of p as one data signal.
func (e *Emitter) Write(p []byte) (int, error) {
	e.mu.Lock()
	switch {
	case e.ended || e.closed:
		e.mu.Unlock()
		return 0, ErrClosed
	case e.paused:
		e.mu.Unlock()
		return 0, ErrPaused
	}
	chunk, err := e.chunk(p)
	e.mu.Unlock()
	if err != nil {
		return 0, err
	}

	if len(chunk) > 0 {
		e.emitData(chunk)
	}
	return len(p), nil
}

// chunk copies p, decoding it first in text mode. Callers hold e.mu.
func (e *Emitter) chunk(p []byte) ([]byte, error) {
	if e.dec == nil {
		return append([]byte(nil), p...), nil
	}
	if _, err := e.dec.Write(p); err != nil {
		return nil, err
	}
	return e.drain(), nil
}

func (e *Emitter) drain() []byte {
	if e.text.Len() == 0 {
		return nil
	}
	out := append([]byte(nil), e.text.Bytes()...)
	e.text.Reset()
	return out
}

// End signals that no more data follows.
func (e *Emitter) End() {
	e.mu.Lock()
	if e.ended || e.closed {
		e.mu.Unlock()
		return
	}
	e.ended = true
	var tail []byte
	var err error
	if e.dec != nil {
		err = e.dec.Close()
		tail = e.drain()
	}
	e.mu.Unlock()

	if len(tail) > 0 {
		e.emitData(tail)
	}
	if err != nil {
		e.emitError(err)
		return
	}
	e.emitEnd()
}

// Fail signals that the source failed with err.
func (e *Emitter) Fail(err error) {
	e.mu.Lock()
	if e.ended || e.closed {
		e.mu.Unlock()
		return
	}
	e.ended = true
	e.mu.Unlock()

	e.emitError(err)
}

// Close releases the Emitter. Listeners of an Emitter that had not ended
// receive ErrAborted, then every listener receives close.
func (e *Emitter) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	aborted := !e.ended
	e.ended = true
	e.closed = true
	e.mu.Unlock()

	if aborted {
		e.emitError(ErrAborted)
	}
	e.emitClose()
	return nil
}

// Pause makes further writes fail with ErrPaused.
func (e *Emitter) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

// Resume accepts writes again.
func (e *Emitter) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
}

// Paused reports whether the Emitter was paused.
func (e *Emitter) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Readable reports whether the Emitter can still emit data.
func (e *Emitter) Readable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.ended && !e.closed
}

// SetEncoding switches the Emitter to text mode: written bytes are decoded
// from the named encoding and emitted as UTF-8.
func (e *Emitter) SetEncoding(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	dec, err := charset.NewDecoder(name, &e.text)
	if err != nil {
		return err
	}
	e.dec = dec
	e.encoding = name
	return nil
}

// Encoding returns the text encoding set with SetEncoding, if any.
func (e *Emitter) Encoding() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encoding
}
