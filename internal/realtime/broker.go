package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/pubsub"
	"go.uber.org/zap"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// BrokerSource reads row changes that the local backend publishes on the
// change bus. Filters are applied on the receiving side.
type BrokerSource struct {
	bus    pubsub.Subscriber
	logger *logger.CanonicalLogger

	mu        sync.Mutex
	connected bool
	lost      chan struct{}
}

func NewBrokerSource(bus pubsub.Subscriber, log *logger.CanonicalLogger) *BrokerSource {
	lost := make(chan struct{})
	close(lost)
	return &BrokerSource{bus: bus, logger: log, lost: lost}
}

func (s *BrokerSource) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return nil
	}
	if p, ok := s.bus.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	s.connected = true
	s.lost = make(chan struct{})
	return nil
}

func (s *BrokerSource) Open(ctx context.Context, topic string, b Binding, sink Sink) (Stream, error) {
	if b.Filter != "" {
		if _, _, err := ParseFilter(b.Filter); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	lost := s.lost
	s.mu.Unlock()

	sub, err := s.bus.Subscribe(ctx, models.ChangeTopic(b.Schema, b.Table))
	if err != nil {
		return nil, err
	}

	st := &brokerStream{sub: sub, stop: make(chan struct{}), ended: make(chan struct{})}
	go s.pump(topic, b, sub, st.stop, lost, st.ended, sink)
	return st, nil
}

func (s *BrokerSource) pump(topic string, b Binding, sub pubsub.Subscription, stop, lost <-chan struct{}, ended chan<- struct{}, sink Sink) {
	defer close(ended)
	defer sub.Close()
	for {
		select {
		case <-stop:
			return
		case <-lost:
			return
		case <-sub.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			var change models.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				s.logger.Warn("dropping malformed change", logger.Channel(topic), zap.Error(err))
				continue
			}
			ev := EventFromModel(change)
			if !b.Matches(ev) {
				continue
			}
			// a stream closed while this message was in flight must not deliver it
			select {
			case <-stop:
				return
			default:
			}
			sink(ev)
		}
	}
}

func (s *BrokerSource) Lost() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lost
}

func (s *BrokerSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		s.connected = false
		close(s.lost)
	}
	return nil
}

type brokerStream struct {
	sub   pubsub.Subscription
	once  sync.Once
	stop  chan struct{}
	ended chan struct{}
}

func (b *brokerStream) Close(ctx context.Context) error {
	b.once.Do(func() { close(b.stop) })
	return nil
}

func (b *brokerStream) Done() <-chan struct{} {
	return b.ended
}

// EventFromModel converts a change bus message.
func EventFromModel(c models.ChangeEvent) Event {
	return Event{
		Kind:            EventKind(c.Event),
		Schema:          c.Schema,
		Table:           c.Table,
		New:             c.New,
		Old:             c.Old,
		CommitTimestamp: c.CommitTimestamp,
	}
}
