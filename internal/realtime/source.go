package realtime

import (
	"context"
	"errors"
)

var ErrNotConnected = errors.New("realtime: source not connected")

// Sink receives the events of one opened stream.
type Sink func(Event)

// Stream is one opened channel on a Source.
type Stream interface {
	Close(ctx context.Context) error
	// Done is closed once the stream stops delivering, whether closed here
	// or ended by the source.
	Done() <-chan struct{}
}

// Source is the push connection channels are multiplexed over.
type Source interface {
	// Connect opens the connection; it is a no-op when already connected.
	Connect(ctx context.Context) error
	// Open starts delivering the changes selected by b to sink.
	Open(ctx context.Context, topic string, b Binding, sink Sink) (Stream, error)
	// Lost is closed when the current connection ends.
	Lost() <-chan struct{}
	// Close ends the connection and every stream on it.
	Close() error
}
