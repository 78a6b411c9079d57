package stream

import (
	"io"
	"sync"

	"github.com/forscht/rawbody/pkg/charset"
)

// DefaultChunkSize is the largest chunk a Reader emits unless configured otherwise.
const DefaultChunkSize = 16 * 1024

// Reader turns an io.Reader into a Stream. A single pump goroutine, started
// when the first listener attaches or on Resume, reads chunks and delivers
// them in order. When the underlying reader is an io.Closer it is closed once
// the stream ends, fails or is closed.
type Reader struct {
	registry

	r         io.Reader
	src       io.Reader
	chunkSize int

	mu       sync.Mutex
	cond     *sync.Cond
	paused   bool
	flowing  bool
	ended    bool
	closed   bool
	encoding string
}

// Option configures a Reader.
type Option func(*Reader)

// WithChunkSize sets the largest chunk emitted in one data signal.
func WithChunkSize(n int) Option {
	return func(s *Reader) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// NewReader returns a Reader streaming r. Nothing is read until a listener
// attaches or Resume is called.
func NewReader(r io.Reader, opts ...Option) *Reader {
	s := &Reader{r: r, src: r, chunkSize: DefaultChunkSize}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen attaches l and starts the flow unless the stream is paused.
func (s *Reader) Listen(l Listener) func() {
	detach := s.registry.Listen(l)

	s.mu.Lock()
	start := !s.paused && s.idle()
	if start {
		s.flowing = true
	}
	s.mu.Unlock()

	if start {
		go s.pump()
	}
	return detach
}

// Pause stops data signals. A chunk already being delivered completes.
func (s *Reader) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume restarts the flow, starting it if needed.
func (s *Reader) Resume() {
	s.mu.Lock()
	s.paused = false
	start := s.idle()
	if start {
		s.flowing = true
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	if start {
		go s.pump()
	}
}

// Paused reports whether the stream was paused.
func (s *Reader) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Readable reports whether the stream can still emit data.
func (s *Reader) Readable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.ended && !s.closed
}

// SetEncoding switches the stream to text mode: chunks are decoded from the
// named encoding and emitted as UTF-8. It must be called before data flows.
func (s *Reader) SetEncoding(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flowing {
		return ErrFlowing
	}
	src, err := charset.NewReader(name, s.r)
	if err != nil {
		return err
	}
	s.src = src
	s.encoding = name
	return nil
}

// Encoding returns the text encoding set with SetEncoding, if any.
func (s *Reader) Encoding() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoding
}

// Close tears the stream down. Listeners of a stream that had not ended
// receive ErrAborted, then every listener receives close.
func (s *Reader) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	aborted := !s.ended
	s.ended = true
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	err := s.release()
	if aborted {
		s.emitError(ErrAborted)
	}
	s.emitClose()
	return err
}

// idle reports whether the pump may be started. Callers hold s.mu.
func (s *Reader) idle() bool {
	return !s.flowing && !s.ended && !s.closed
}

func (s *Reader) pump() {
	for {
		if !s.wait() {
			return
		}
		chunk := make([]byte, s.chunkSize)
		n, err := s.src.Read(chunk)
		if n > 0 {
			// a chunk read before a Pause is held until Resume
			if !s.wait() {
				return
			}
			s.emitData(chunk[:n])
		}
		if err == io.EOF {
			s.finish(nil)
			return
		}
		if err != nil {
			s.finish(err)
			return
		}
	}
}

// wait blocks while the stream is paused and reports whether it is still open.
func (s *Reader) wait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.paused && !s.closed {
		s.cond.Wait()
	}
	return !s.closed
}

// finish releases the underlying reader, then emits the terminal signal
// followed by close.
func (s *Reader) finish(err error) {
	s.mu.Lock()
	if s.ended || s.closed {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.closed = true
	s.mu.Unlock()

	_ = s.release()
	if err != nil {
		s.emitError(err)
	} else {
		s.emitEnd()
	}
	s.emitClose()
}

func (s *Reader) release() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
