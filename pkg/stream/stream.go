// Package stream models a push-style byte source. A Stream delivers four
// signals to its listeners: data (a chunk arrived), end (the source is
// exhausted), error (the source failed) and close (the source released its
// resources, after end, after error, or on its own when it is torn down).
//
// Signals of one stream are delivered serially, never concurrently with each
// other. A listener may detach itself or pause the stream from inside a signal
// handler; it must not call Close from inside one.
package stream

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrAborted is delivered as an error signal when a stream is closed
	// before it ended.
	ErrAborted = errors.New("request aborted")
	// ErrClosed is returned when writing to an ended or closed Emitter.
	ErrClosed = errors.New("stream is closed")
	// ErrPaused is returned when writing to a paused Emitter.
	ErrPaused = errors.New("stream is paused")
	// ErrFlowing is returned by SetEncoding once data started flowing.
	ErrFlowing = errors.New("stream is already flowing")
)

// Listener receives stream signals.
type Listener interface {
	OnData(chunk []byte)
	OnEnd()
	OnError(err error)
	OnClose()
}

// Stream is a source of byte chunks.
type Stream interface {
	// Listen attaches l and returns a function that detaches it. The detach
	// function is idempotent.
	Listen(l Listener) (detach func())
	// Pause asks the stream to stop emitting data signals.
	Pause()
	// Resume restarts emission. A resumed stream without listeners discards
	// its data.
	Resume()
}

type subscription struct {
	l      Listener
	active atomic.Bool
}

// registry holds the listeners of a stream. The subscription slice is
// replaced on every change, so a snapshot taken for dispatch never changes
// underneath it.
type registry struct {
	mu     sync.Mutex
	subs   []*subscription
	emitMu sync.Mutex
}

func (r *registry) Listen(l Listener) func() {
	sub := &subscription{l: l}
	sub.active.Store(true)

	r.mu.Lock()
	subs := make([]*subscription, 0, len(r.subs)+1)
	r.subs = append(append(subs, r.subs...), sub)
	r.mu.Unlock()

	return func() { r.detach(sub) }
}

func (r *registry) detach(sub *subscription) {
	if !sub.active.CompareAndSwap(true, false) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := make([]*subscription, 0, len(r.subs))
	for _, s := range r.subs {
		if s != sub {
			subs = append(subs, s)
		}
	}
	r.subs = subs
}

// Listeners returns the number of attached listeners.
func (r *registry) Listeners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *registry) emit(fn func(Listener)) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	subs := r.subs
	r.mu.Unlock()

	for _, sub := range subs {
		// skip listeners detached by an earlier handler of this signal
		if sub.active.Load() {
			fn(sub.l)
		}
	}
}

func (r *registry) emitData(chunk []byte) { r.emit(func(l Listener) { l.OnData(chunk) }) }
func (r *registry) emitEnd()              { r.emit(func(l Listener) { l.OnEnd() }) }
func (r *registry) emitError(err error)   { r.emit(func(l Listener) { l.OnError(err) }) }
func (r *registry) emitClose()            { r.emit(func(l Listener) { l.OnClose() }) }

// Funcs adapts plain functions to a Listener. Nil fields are ignored.
type Funcs struct {
	Data  func(chunk []byte)
	End   func()
	Error func(err error)
	Close func()
}

func (f Funcs) OnData(chunk []byte) {
	if f.Data != nil {
		f.Data(chunk)
	}
}

func (f Funcs) OnEnd() {
	if f.End != nil {
		f.End()
	}
}

func (f Funcs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

func (f Funcs) OnClose() {
	if f.Close != nil {
		f.Close()
	}
}
