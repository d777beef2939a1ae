package capture

import (
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Sink is the borrowed view of an active stream. The session keeps
// ownership; a scanner binds the sink for the length of one scan and reads
// frames until Done is closed.
type Sink struct {
	mu     sync.RWMutex
	stream Stream
	closed bool
	done   chan struct{}
	bound  atomic.Bool
}

func newSink(stream Stream) *Sink {
	return &Sink{
		stream: stream,
		done:   make(chan struct{}),
	}
}

// ReadFrame reads the next frame from the underlying stream. It returns
// ErrStreamEnded once the owning session has closed. The caller must close
// the returned Mat.
func (s *Sink) ReadFrame() (*gocv.Mat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStreamEnded
	}
	return s.stream.ReadFrame()
}

// Done is closed when the owning session releases the stream.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether the owning session has released the stream.
func (s *Sink) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Bind claims the sink for a single consumer. The returned release func is
// safe to call more than once.
func (s *Sink) Bind() (release func(), err error) {
	if !s.bound.CompareAndSwap(false, true) {
		return nil, ErrSinkAlreadyBound
	}
	var once sync.Once
	return func() {
		once.Do(func() { s.bound.Store(false) })
	}, nil
}

// close waits for in-flight reads before marking the sink ended, so the
// stream can be stopped safely afterwards.
func (s *Sink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
