// Package rawbody buffers a byte stream, such as an HTTP request body, into
// memory while enforcing a size limit and an optional declared length.
//
// The same collection is exposed through several surfaces: Collect returns a
// Future, ReadFunc invokes a callback, Defer returns a thunk, and Read and
// ReadAll block. Every surface settles exactly once, and the listener is
// detached from the source on every path.
package rawbody

import (
	"context"
	"io"

	"github.com/forscht/rawbody/pkg/stream"
)

// Collect starts buffering s and returns the pending outcome.
func Collect(s stream.Stream, opts ...Option) *Future {
	f := newFuture()
	if c := start(s, f.resolve, opts); c != nil {
		f.abort = c.abort
	}
	return f
}

// ReadFunc buffers s and calls done with the outcome. done always runs on
// its own goroutine, never before ReadFunc returns.
func ReadFunc(s stream.Stream, done func(*Body, error), opts ...Option) {
	start(s, func(body *Body, err error) {
		go done(body, err)
	}, opts)
}

// Thunk starts a deferred collection and reports its outcome to done.
type Thunk func(done func(*Body, error))

// Defer returns a Thunk that buffers s once invoked.
func Defer(s stream.Stream, opts ...Option) Thunk {
	return func(done func(*Body, error)) {
		ReadFunc(s, done, opts...)
	}
}

// Read buffers s and blocks until the outcome is known or ctx is done.
func Read(ctx context.Context, s stream.Stream, opts ...Option) (*Body, error) {
	return Collect(s, opts...).Wait(ctx)
}

// ReadAll streams r through a stream.Reader and buffers it. The reader is
// closed once the collection settled, which also closes r if it is an
// io.Closer.
func ReadAll(ctx context.Context, r io.Reader, opts ...Option) (*Body, error) {
	if r == nil {
		return nil, &InvalidSourceError{}
	}
	s := stream.NewReader(r)
	defer s.Close()
	return Read(ctx, s, opts...)
}
