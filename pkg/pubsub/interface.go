package pubsub

import "context"

// Message represents a pub/sub message
type Message struct {
	Channel string
	Payload string
}

// Publisher defines the interface for publishing messages
type Publisher interface {
	// Publish publishes a message to a channel
	Publish(ctx context.Context, channel string, message string) error
	Close() error
}

// Subscription is one independent listener on a channel.
type Subscription interface {
	// C delivers messages until the subscription is closed or the broker goes away.
	C() <-chan Message
	// Done is closed when delivery stops for any reason.
	Done() <-chan struct{}
	Close() error
}

// Subscriber defines the interface for subscribing to messages
type Subscriber interface {
	// Subscribe opens an independent subscription; two calls for the same
	// channel receive the same messages on separate Subscriptions.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

// PubSub combines Publisher and Subscriber
type PubSub interface {
	Publisher
	Subscriber
}
