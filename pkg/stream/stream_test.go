package stream

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects signals and reports close on done.
type recorder struct {
	mu     sync.Mutex
	data   bytes.Buffer
	chunks int
	events []string
	err    error
	done   chan struct{}
	once   sync.Once
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{})}
}

func (r *recorder) OnData(chunk []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.Write(chunk)
	r.chunks++
	if len(r.events) == 0 || r.events[len(r.events)-1] != "data" {
		r.events = append(r.events, "data")
	}
}

func (r *recorder) OnEnd() { r.add("end", nil) }

func (r *recorder) OnError(err error) { r.add("error", err) }

func (r *recorder) OnClose() {
	r.add("close", nil)
	r.once.Do(func() { close(r.done) })
}

func (r *recorder) add(ev string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if err != nil {
		r.err = err
	}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for close")
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestReaderDeliversChunksInOrder(t *testing.T) {
	input := strings.Repeat("abcdefghij", 100)
	src := &closeTracker{Reader: strings.NewReader(input)}
	s := NewReader(src, WithChunkSize(64))

	rec := newRecorder()
	s.Listen(rec)
	rec.wait(t)

	assert.Equal(t, input, rec.data.String())
	assert.Equal(t, 16, rec.chunks)
	assert.Equal(t, []string{"data", "end", "close"}, rec.events)
	assert.True(t, src.closed)
	assert.False(t, s.Readable())
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestReaderError(t *testing.T) {
	boom := errors.New("BOOM")
	s := NewReader(failingReader{boom})

	rec := newRecorder()
	s.Listen(rec)
	rec.wait(t)

	assert.Equal(t, []string{"error", "close"}, rec.events)
	assert.ErrorIs(t, rec.err, boom)
}

func TestReaderPauseBeforeListen(t *testing.T) {
	s := NewReader(strings.NewReader("hello"))
	s.Pause()

	rec := newRecorder()
	s.Listen(rec)

	time.Sleep(20 * time.Millisecond)
	rec.mu.Lock()
	assert.Empty(t, rec.events)
	rec.mu.Unlock()
	assert.True(t, s.Paused())

	s.Resume()
	rec.wait(t)
	assert.Equal(t, "hello", rec.data.String())
}

func TestReaderPauseFromHandler(t *testing.T) {
	s := NewReader(strings.NewReader(strings.Repeat("x", 100)), WithChunkSize(10))

	got := make(chan int, 100)
	s.Listen(Funcs{Data: func(chunk []byte) {
		got <- len(chunk)
		s.Pause()
	}})

	require.Equal(t, 10, <-got)
	select {
	case <-got:
		t.Fatal("data delivered while paused")
	case <-time.After(30 * time.Millisecond):
	}
	assert.True(t, s.Paused())
	require.NoError(t, s.Close())
}

func TestReaderCloseAborts(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := NewReader(pr)

	rec := newRecorder()
	s.Listen(rec)
	require.NoError(t, s.Close())
	rec.wait(t)

	assert.Equal(t, []string{"error", "close"}, rec.events)
	assert.ErrorIs(t, rec.err, ErrAborted)
	assert.NoError(t, s.Close())
}

func TestReaderResumeWithoutListenerDrains(t *testing.T) {
	src := &closeTracker{Reader: strings.NewReader(strings.Repeat("y", 1<<16))}
	s := NewReader(src, WithChunkSize(1024))
	s.Resume()

	assert.Eventually(t, func() bool { return !s.Readable() }, time.Second, time.Millisecond)
	assert.True(t, src.closed)
}

func TestReaderSetEncoding(t *testing.T) {
	s := NewReader(bytes.NewReader([]byte{0xbf, 0x43}))
	require.NoError(t, s.SetEncoding("iso-8859-1"))
	assert.Equal(t, "iso-8859-1", s.Encoding())

	rec := newRecorder()
	s.Listen(rec)
	rec.wait(t)
	assert.Equal(t, "¿C", rec.data.String())

	assert.ErrorIs(t, s.SetEncoding("utf-8"), ErrFlowing)
	assert.Error(t, NewReader(strings.NewReader("")).SetEncoding("nope"))
}

func TestEmitterSignals(t *testing.T) {
	e := NewEmitter()
	rec := newRecorder()
	e.Listen(rec)

	buf := []byte("foobar,")
	n, err := e.Write(buf)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	// the emitted chunk is a copy
	buf[0] = 'X'

	_, err = e.Write([]byte("yay!!"))
	require.NoError(t, err)
	e.End()
	require.NoError(t, e.Close())
	rec.wait(t)

	assert.Equal(t, "foobar,yay!!", rec.data.String())
	assert.Equal(t, []string{"data", "end", "close"}, rec.events)

	_, err = e.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEmitterPause(t *testing.T) {
	e := NewEmitter()
	e.Pause()
	_, err := e.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrPaused)
	assert.True(t, e.Paused())

	e.Resume()
	_, err = e.Write([]byte("x"))
	assert.NoError(t, err)
}

func TestEmitterFailThenClose(t *testing.T) {
	e := NewEmitter()
	rec := newRecorder()
	e.Listen(rec)

	boom := errors.New("BOOM")
	e.Fail(boom)
	e.Fail(errors.New("ignored"))
	e.End()
	require.NoError(t, e.Close())
	rec.wait(t)

	assert.Equal(t, []string{"error", "close"}, rec.events)
	assert.ErrorIs(t, rec.err, boom)
}

func TestEmitterDetachInsideHandler(t *testing.T) {
	e := NewEmitter()

	var calls int
	var detach func()
	detach = e.Listen(Funcs{Data: func([]byte) {
		calls++
		detach()
	}})
	second := newRecorder()
	e.Listen(second)

	_, _ = e.Write([]byte("a"))
	_, _ = e.Write([]byte("b"))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "ab", second.data.String())
	assert.Equal(t, 1, e.Listeners())

	detach()
	assert.Equal(t, 1, e.Listeners())
}

func TestEmitterTextMode(t *testing.T) {
	e := NewEmitter()
	require.NoError(t, e.SetEncoding("utf-16le"))
	rec := newRecorder()
	e.Listen(rec)

	// "hé" split in the middle of the second code unit
	_, _ = e.Write([]byte{0x68, 0x00, 0xe9})
	_, _ = e.Write([]byte{0x00})
	e.End()
	_ = e.Close()
	rec.wait(t)

	assert.Equal(t, "hé", rec.data.String())
	assert.Equal(t, "utf-16le", e.Encoding())
}
