package rawbody

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forscht/rawbody/pkg/charset"
	"github.com/forscht/rawbody/pkg/stream"
)

const fixture = "hello, world!"

func readerStream(s string, chunk int) *stream.Reader {
	return stream.NewReader(strings.NewReader(s), stream.WithChunkSize(chunk))
}

func wait(t *testing.T, f *Future) (*Body, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	body, err := f.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return body, err
}

func TestCollect(t *testing.T) {
	input := strings.Repeat("0123456789", 10)

	tt := []struct {
		name     string
		opts     []Option
		wantErr  Kind
		received int64
		expected int64
	}{
		{name: "no options"},
		{name: "limit equal to size", opts: []Option{WithLimit(100)}},
		{name: "limit above size", opts: []Option{WithLimit(101)}},
		{name: "length", opts: []Option{WithLength(100)}},
		{name: "length and limit", opts: []Option{WithLength(100), WithLimit(100)}},
		{name: "limit string", opts: []Option{WithLimitString("1kb")}},
		{
			name:     "limit below size",
			opts:     []Option{WithLimit(25)},
			wantErr:  KindEntityTooLarge,
			received: 30,
			expected: -1,
		},
		{
			name:     "length too short",
			opts:     []Option{WithLength(99)},
			wantErr:  KindLengthMismatch,
			received: 100,
			expected: 99,
		},
		{
			name:     "length too long",
			opts:     []Option{WithLength(101)},
			wantErr:  KindLengthMismatch,
			received: 100,
			expected: 101,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			body, err := wait(t, Collect(readerStream(input, 10), tc.opts...))
			if tc.wantErr == KindNone {
				require.NoError(t, err)
				assert.Equal(t, input, body.String())
				assert.Equal(t, 100, body.Len())
				assert.EqualValues(t, 100, body.Received())
				assert.False(t, body.Decoded())
				return
			}
			require.Error(t, err)
			assert.Nil(t, body)
			assert.Equal(t, tc.wantErr, KindOf(err))
			switch e := err.(type) {
			case *EntityTooLargeError:
				assert.Equal(t, tc.received, e.Received)
				assert.Equal(t, tc.expected, e.Expected)
				assert.EqualValues(t, 25, e.Limit)
			case *LengthMismatchError:
				assert.Equal(t, tc.received, e.Received)
				assert.Equal(t, tc.expected, e.Expected)
			default:
				t.Fatalf("unexpected error type %T", err)
			}
		})
	}
}

func TestEmptyBodyWithLimit(t *testing.T) {
	e := stream.NewEmitter()
	f := Collect(e, WithLength(0), WithLimit(1))
	e.End()

	body, err := wait(t, f)
	require.NoError(t, err)
	assert.Equal(t, 0, body.Len())
}

func TestDeclaredLengthMatches(t *testing.T) {
	e := stream.NewEmitter()
	f := Collect(e, WithLength(13))
	_, _ = e.Write([]byte("hello, "))
	_, _ = e.Write([]byte("world!"))
	e.End()

	body, err := wait(t, f)
	require.NoError(t, err)
	assert.Equal(t, fixture, body.String())
	assert.Equal(t, 13, body.Len())
}

func TestEmptyBodyShorterThanDeclared(t *testing.T) {
	e := stream.NewEmitter()
	f := Collect(e, WithLength(1), WithLimit(2))
	e.End()

	_, err := wait(t, f)
	var mismatch *LengthMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.EqualValues(t, 0, mismatch.Received)
	assert.EqualValues(t, 1, mismatch.Expected)
	assert.Equal(t, 400, StatusCode(err))
}

func TestLimitWinsOverLengthMismatch(t *testing.T) {
	e := stream.NewEmitter()
	f := Collect(e, WithLength(1), WithLimit(2))
	_, _ = e.Write([]byte(fixture))
	e.End()

	_, err := wait(t, f)
	var tooLarge *EntityTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.EqualValues(t, 13, tooLarge.Received)
	assert.EqualValues(t, 1, tooLarge.Expected)
	assert.EqualValues(t, 2, tooLarge.Limit)
	assert.True(t, e.Paused())
	assert.Equal(t, 0, e.Listeners())
}

// endless never ends and counts the bytes handed out.
type endless struct{ n atomic.Int64 }

func (r *endless) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	r.n.Add(int64(len(p)))
	return len(p), nil
}

func TestEndlessSourceStopsAtLimit(t *testing.T) {
	src := &endless{}
	s := stream.NewReader(src, stream.WithChunkSize(1024))
	defer s.Close()

	_, err := wait(t, Collect(s, WithLimit(10*1024+1)))
	var tooLarge *EntityTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.EqualValues(t, 11*1024, tooLarge.Received)
	assert.True(t, s.Paused())

	// a paused reader holds at most one more chunk
	read := src.n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, src.n.Load(), read+1024)
	assert.LessOrEqual(t, read, int64(12*1024))
}

func TestGuard(t *testing.T) {
	closed := stream.NewEmitter()
	_ = closed.Close()

	decoded := readerStream(fixture, 4)
	require.NoError(t, decoded.SetEncoding("utf-8"))

	tt := []struct {
		name string
		src  stream.Stream
		opts []Option
		kind Kind
		code int
	}{
		{name: "nil source", src: nil, kind: KindInvalidSource, code: 500},
		{name: "closed source", src: closed, kind: KindInvalidSource, code: 500},
		{name: "decoded source", src: decoded, kind: KindSourceEncodingConflict, code: 500},
		{name: "bad limit", src: stream.NewEmitter(), opts: []Option{WithLimitString("1 parsec")}, kind: KindInvalidOption, code: 500},
		{name: "negative limit", src: stream.NewEmitter(), opts: []Option{WithLimit(-1)}, kind: KindInvalidOption, code: 500},
		{name: "negative length", src: stream.NewEmitter(), opts: []Option{WithLength(-5)}, kind: KindInvalidOption, code: 500},
		{name: "unknown encoding", src: stream.NewEmitter(), opts: []Option{WithEncoding("klingon")}, kind: KindUnsupportedEncoding, code: 415},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			f := Collect(tc.src, tc.opts...)
			select {
			case <-f.Done():
			default:
				t.Fatal("future not settled by a rejected source")
			}
			body, err := f.Result()
			assert.Nil(t, body)
			assert.Equal(t, tc.kind, KindOf(err))
			assert.Equal(t, tc.code, StatusCode(err))
			assert.False(t, IsClientError(err))
		})
	}
}

func TestGuardDeclaredLengthAboveLimit(t *testing.T) {
	src := &endless{}
	s := stream.NewReader(io.LimitReader(src, 4096), stream.WithChunkSize(512))

	_, err := wait(t, Collect(s, WithLength(4096), WithLimit(1024)))
	var tooLarge *EntityTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.EqualValues(t, 0, tooLarge.Received)
	assert.EqualValues(t, 4096, tooLarge.Expected)
	assert.EqualValues(t, 1024, tooLarge.Limit)
	assert.True(t, IsClientError(err))

	assert.Eventually(t, func() bool { return !s.Readable() }, time.Second, time.Millisecond)
	assert.EqualValues(t, 4096, src.n.Load())
	assert.Equal(t, 0, s.Listeners())
}

func TestSourceErrorSettlesOnce(t *testing.T) {
	e := stream.NewEmitter()
	boom := errors.New("BOOM")

	var calls atomic.Int32
	results := make(chan error, 2)
	ReadFunc(e, func(body *Body, err error) {
		calls.Add(1)
		results <- err
	})

	_, _ = e.Write([]byte("partial"))
	e.Fail(boom)
	_ = e.Close()

	select {
	case err := <-results:
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, KindSource, KindOf(err))
		assert.False(t, IsClientError(err))
	case <-time.After(5 * time.Second):
		t.Fatal("callback not invoked")
	}
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 0, e.Listeners())
}

func TestAbortedSource(t *testing.T) {
	pr, pw := io.Pipe()
	s := stream.NewReader(pr)
	f := Collect(s, WithLength(100))

	_, err := pw.Write([]byte("half"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = wait(t, f)
	assert.ErrorIs(t, err, stream.ErrAborted)
}

func TestCallbackNeverInline(t *testing.T) {
	// unbuffered: an inline callback would block ReadFunc forever
	ch := make(chan error)
	ReadFunc(nil, func(_ *Body, err error) { ch <- err })

	select {
	case err := <-ch:
		assert.Equal(t, KindInvalidSource, KindOf(err))
	case <-time.After(5 * time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestDefer(t *testing.T) {
	e := stream.NewEmitter()
	thunk := Defer(e, WithLimit(64))
	assert.Equal(t, 0, e.Listeners())

	ch := make(chan *Body, 1)
	thunk(func(body *Body, err error) {
		assert.NoError(t, err)
		ch <- body
	})
	assert.Equal(t, 1, e.Listeners())

	_, _ = e.Write([]byte(fixture))
	e.End()

	select {
	case body := <-ch:
		assert.Equal(t, fixture, body.String())
	case <-time.After(5 * time.Second):
		t.Fatal("thunk did not complete")
	}
}

func TestReadCanceled(t *testing.T) {
	e := stream.NewEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Read(ctx, e)
		done <- err
	}()

	require.Eventually(t, func() bool { return e.Listeners() == 1 }, time.Second, time.Millisecond)
	_, _ = e.Write([]byte("some"))
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, KindSource, KindOf(err))
	case <-time.After(5 * time.Second):
		t.Fatal("Read did not return")
	}
	assert.True(t, e.Paused())
	assert.Equal(t, 0, e.Listeners())
}

type trackedReader struct {
	io.Reader
	closed atomic.Bool
}

func (r *trackedReader) Close() error {
	r.closed.Store(true)
	return nil
}

func TestReadAll(t *testing.T) {
	ctx := context.Background()

	r := &trackedReader{Reader: strings.NewReader(fixture)}
	body, err := ReadAll(ctx, r, WithLength(13))
	require.NoError(t, err)
	assert.Equal(t, fixture, body.String())
	assert.True(t, r.closed.Load())

	r = &trackedReader{Reader: io.LimitReader(&endless{}, 1<<20)}
	_, err = ReadAll(ctx, r, WithLimitString("64kb"))
	assert.Equal(t, KindEntityTooLarge, KindOf(err))
	assert.True(t, r.closed.Load())

	_, err = ReadAll(ctx, nil)
	assert.Equal(t, KindInvalidSource, KindOf(err))
}

func TestEncoding(t *testing.T) {
	text := "¿Cómo estás?"

	tt := []struct {
		name     string
		encoding string
	}{
		{name: "utf-8", encoding: "utf-8"},
		{name: "latin1", encoding: "iso-8859-1"},
		{name: "utf-16le", encoding: "utf-16le"},
		{name: "utf-16be", encoding: "utf-16be"},
		{name: "utf-32le", encoding: "utf-32le"},
		{name: "windows-1252", encoding: "windows-1252"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := charset.Encode(tc.encoding, text)
			require.NoError(t, err)

			// one byte per chunk splits every multi-byte sequence
			e := stream.NewEmitter()
			f := Collect(e, WithEncoding(tc.encoding))
			for i := range raw {
				_, _ = e.Write(raw[i : i+1])
			}
			e.End()

			body, err := wait(t, f)
			require.NoError(t, err)
			assert.Equal(t, text, body.String())
			assert.EqualValues(t, len(raw), body.Received())
			assert.Equal(t, tc.encoding, body.Encoding())
			assert.True(t, body.Decoded())

			back, err := charset.Encode(tc.encoding, body.String())
			require.NoError(t, err)
			assert.Equal(t, raw, back)
		})
	}
}

func TestDefaultEncodingStripsBOM(t *testing.T) {
	raw := append([]byte{0xef, 0xbb, 0xbf}, fixture...)
	s := stream.NewReader(strings.NewReader(string(raw)), stream.WithChunkSize(2))

	body, err := wait(t, Collect(s, WithDefaultEncoding()))
	require.NoError(t, err)
	assert.Equal(t, fixture, body.String())
	assert.EqualValues(t, 16, body.Received())
	assert.Equal(t, "utf-8", body.Encoding())
}

func TestRawRoundTrip(t *testing.T) {
	raw := make([]byte, 256)
	for i := range raw {
		raw[i] = byte(i)
	}
	body, err := ReadAll(context.Background(), strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, raw, body.Bytes())
}

func TestErrorClassification(t *testing.T) {
	source := errors.New("connection reset")

	tt := []struct {
		err    error
		kind   Kind
		status int
		client bool
	}{
		{err: nil, kind: KindNone, status: 500},
		{err: source, kind: KindSource, status: 500},
		{err: &InvalidSourceError{}, kind: KindInvalidSource, status: 500},
		{err: &SourceEncodingError{Encoding: "utf-8"}, kind: KindSourceEncodingConflict, status: 500},
		{err: &UnsupportedEncodingError{Encoding: "x"}, kind: KindUnsupportedEncoding, status: 415},
		{err: &EntityTooLargeError{}, kind: KindEntityTooLarge, status: 413, client: true},
		{err: &LengthMismatchError{}, kind: KindLengthMismatch, status: 400, client: true},
		{err: &OptionError{Option: "limit", Err: source}, kind: KindInvalidOption, status: 500},
		{err: fmt.Errorf("ingest: %w", &EntityTooLargeError{}), kind: KindEntityTooLarge, status: 413, client: true},
	}

	for _, tc := range tt {
		t.Run(tc.kind.String(), func(t *testing.T) {
			assert.Equal(t, tc.kind, KindOf(tc.err))
			if tc.err == nil {
				return
			}
			assert.Equal(t, tc.status, StatusCode(tc.err))
			assert.Equal(t, tc.client, IsClientError(tc.err))
		})
	}

	assert.ErrorIs(t, &OptionError{Option: "limit", Err: source}, source)
	assert.Equal(t, "request entity too large", (&EntityTooLargeError{}).Error())
	assert.Equal(t, "entity.too.large", (&EntityTooLargeError{}).Type())
	assert.Equal(t, "request.size.invalid", (&LengthMismatchError{}).Type())
}

func TestConfigOptions(t *testing.T) {
	cfg, err := newConfig(Config{Limit: "1mb", Encoding: "utf-8"}.Options())
	require.NoError(t, err)
	assert.EqualValues(t, 1<<20, cfg.limit)
	assert.EqualValues(t, unset, cfg.length)
	assert.Equal(t, "utf-8", cfg.encoding)

	cfg, err = newConfig(Config{}.Options())
	require.NoError(t, err)
	assert.EqualValues(t, unset, cfg.limit)
	assert.Empty(t, cfg.encoding)

	_, err = newConfig(Config{Limit: "lots"}.Options())
	var optErr *OptionError
	require.ErrorAs(t, err, &optErr)
	assert.Equal(t, "limit", optErr.Option)
}
