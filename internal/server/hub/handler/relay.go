package handler

import (
	"sync"

	"github.com/Alwanly/social-hub/internal/server/hub/dto"
)

const relayBuffer = 64

// relay fans realtime events out to every open event stream. A stream that
// falls a full buffer behind misses events instead of blocking delivery.
type relay struct {
	mu      sync.Mutex
	clients map[chan dto.RealtimeEvent]struct{}
	closed  bool
}

func newRelay() *relay {
	return &relay{clients: make(map[chan dto.RealtimeEvent]struct{})}
}

// add registers a stream. The channel is closed by remove or by close.
func (r *relay) add() (chan dto.RealtimeEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false
	}
	ch := make(chan dto.RealtimeEvent, relayBuffer)
	r.clients[ch] = struct{}{}
	return ch, true
}

func (r *relay) remove(ch chan dto.RealtimeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[ch]; ok {
		delete(r.clients, ch)
		close(ch)
	}
}

// publish returns the number of streams that dropped ev.
func (r *relay) publish(ev dto.RealtimeEvent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for ch := range r.clients {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	return dropped
}

func (r *relay) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *relay) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for ch := range r.clients {
		delete(r.clients, ch)
		close(ch)
	}
}
