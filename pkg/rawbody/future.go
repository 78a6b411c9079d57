package rawbody

import (
	"context"
)

// Future is the pending outcome of a collection. It is settled exactly once.
type Future struct {
	done  chan struct{}
	body  *Body
	err   error
	abort func(error)
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve is the settle func of the collection backing f.
func (f *Future) resolve(body *Body, err error) {
	f.body, f.err = body, err
	close(f.done)
}

// Done is closed once the collection settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome. It must only be called after Done is closed.
func (f *Future) Result() (*Body, error) {
	return f.body, f.err
}

// Wait blocks until the collection settles or ctx is done. In the latter case
// the collection is settled with the context error and the source is paused.
func (f *Future) Wait(ctx context.Context) (*Body, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
	}
	if f.abort != nil {
		f.abort(ctx.Err())
	}
	<-f.done
	return f.Result()
}
