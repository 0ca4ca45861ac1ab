package realtime

import (
	"context"
	"errors"
	"sync"
)

// fakeSource records opened streams and lets tests push events or drop the
// connection.
type fakeSource struct {
	mu           sync.Mutex
	connected    bool
	lost         chan struct{}
	failConnects int
	connects     int
	streams      []*fakeStream
}

func newFakeSource() *fakeSource {
	lost := make(chan struct{})
	close(lost)
	return &fakeSource{lost: lost}
}

func (f *fakeSource) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connected {
		return nil
	}
	if f.failConnects > 0 {
		f.failConnects--
		return errors.New("dial refused")
	}
	f.connected = true
	f.lost = make(chan struct{})
	return nil
}

func (f *fakeSource) Open(ctx context.Context, topic string, b Binding, sink Sink) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil, ErrNotConnected
	}
	s := &fakeStream{topic: topic, binding: b, sink: sink, done: make(chan struct{})}
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeSource) Lost() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lost
}

func (f *fakeSource) Close() error {
	f.drop()
	return nil
}

// drop simulates a network loss.
func (f *fakeSource) drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connected {
		f.connected = false
		close(f.lost)
	}
}

func (f *fakeSource) isConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// live returns the open streams for topic.
func (f *fakeSource) live(topic string) []*fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeStream
	for _, s := range f.streams {
		if s.topic == topic && !s.isClosed() {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeSource) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.streams {
		if !s.isClosed() {
			n++
		}
	}
	return n
}

// emit pushes ev to every open stream of topic.
func (f *fakeSource) emit(topic string, ev Event) {
	for _, s := range f.live(topic) {
		s.sink(ev)
	}
}

type fakeStream struct {
	topic   string
	binding Binding
	sink    Sink

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func (s *fakeStream) Close(ctx context.Context) error {
	s.end()
	return nil
}

func (s *fakeStream) Done() <-chan struct{} { return s.done }

// end marks the stream closed; called directly it simulates the server
// ending one channel while the connection stays up.
func (s *fakeStream) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
