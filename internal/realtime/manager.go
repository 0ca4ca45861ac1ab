// Package realtime tracks named row-change subscriptions over one push
// connection and keeps them alive across connection loss.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/metrics"
	"github.com/Alwanly/social-hub/pkg/retry"
	"go.uber.org/zap"
)

var (
	ErrNilCallback = errors.New("realtime: nil callback")
	ErrEmptyName   = errors.New("realtime: empty channel name")
	ErrSuspended   = errors.New("realtime: manager suspended")
	ErrClosed      = errors.New("realtime: manager closed")
)

// Handle identifies a tracked subscription.
type Handle struct {
	Name    string
	Binding Binding
}

type subscription struct {
	name     string
	binding  Binding
	callback Callback
	replay   ReplayFunc

	// guarded by Manager.mu
	stream   Stream
	opening  bool
	lastSeen time.Time
}

// SubscribeOption customizes one subscription.
type SubscribeOption func(*subscription)

// WithReplay lets the subscription catch up after a reconnect.
func WithReplay(fn ReplayFunc) SubscribeOption {
	return func(s *subscription) { s.replay = fn }
}

// Option customizes a Manager.
type Option func(*Manager)

// WithBackoff sets the reconnect backoff. MaxRetries is ignored; the manager
// retries until its context ends.
func WithBackoff(cfg retry.Config) Option {
	return func(m *Manager) { m.backoff = cfg }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// Manager owns every channel handle. At most one subscription exists per
// channel name; subscribing again replaces the previous one.
type Manager struct {
	source  Source
	logger  *logger.CanonicalLogger
	metrics *metrics.Metrics
	backoff retry.Config

	// serializes connect-and-reopen cycles
	cycle sync.Mutex

	mu            sync.Mutex
	subs          map[string]*subscription
	state         State
	gen           uint64
	suspended     bool
	closed        bool
	connectedOnce bool

	wake chan struct{}
}

func NewManager(source Source, log *logger.CanonicalLogger, opts ...Option) *Manager {
	m := &Manager{
		source: source,
		logger: log,
		backoff: retry.Config{
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
			Jitter:         true,
		},
		subs:  make(map[string]*subscription),
		state: StateDisconnected,
		wake:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.backoff.MaxRetries = -1
	return m
}

// Subscribe opens the channel of kind for keyParts and routes its events to cb.
func (m *Manager) Subscribe(ctx context.Context, kind Kind, keyParts []string, cb Callback, opts ...SubscribeOption) (Handle, error) {
	name, binding, err := Resolve(kind, keyParts...)
	if err != nil {
		return Handle{}, err
	}
	return m.SubscribeChannel(ctx, name, binding, cb, opts...)
}

// SubscribeChannel tracks an arbitrary channel name. A previous subscription
// under the same name is closed first; its callback never fires again.
// While disconnected the subscription is registered and opened on connect.
func (m *Manager) SubscribeChannel(ctx context.Context, name string, b Binding, cb Callback, opts ...SubscribeOption) (Handle, error) {
	if name == "" {
		return Handle{}, ErrEmptyName
	}
	if cb == nil {
		return Handle{}, ErrNilCallback
	}

	sub := &subscription{name: name, binding: b, callback: cb}
	for _, opt := range opts {
		opt(sub)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Handle{}, ErrClosed
	}
	old := m.subs[name]
	m.subs[name] = sub
	var oldStream Stream
	if old != nil {
		oldStream = old.stream
		old.stream = nil
	}
	live := m.state == StateSubscribed
	n := len(m.subs)
	m.mu.Unlock()

	m.metrics.SetOpenSubscriptions(n)

	if old != nil {
		m.logger.Debug("replacing subscription", logger.Channel(name))
		if oldStream != nil {
			if err := oldStream.Close(ctx); err != nil {
				m.logger.Warn("failed to close replaced stream", logger.Channel(name), zap.Error(err))
			}
		}
	}

	if live {
		if err := m.open(ctx, sub); err != nil {
			m.mu.Lock()
			if m.subs[name] == sub {
				delete(m.subs, name)
			}
			n = len(m.subs)
			m.mu.Unlock()
			m.metrics.SetOpenSubscriptions(n)
			return Handle{}, fmt.Errorf("open channel %s: %w", name, err)
		}
	}

	m.logger.Debug("subscribed", logger.Channel(name), zap.String(logger.FieldTable, b.Table))
	return Handle{Name: name, Binding: b}, nil
}

// Unsubscribe closes and forgets name. Unknown names are a no-op.
func (m *Manager) Unsubscribe(ctx context.Context, name string) error {
	m.mu.Lock()
	sub, ok := m.subs[name]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.subs, name)
	stream := sub.stream
	sub.stream = nil
	n := len(m.subs)
	m.mu.Unlock()

	m.metrics.SetOpenSubscriptions(n)
	m.logger.Debug("unsubscribed", logger.Channel(name))

	if stream != nil {
		if err := stream.Close(ctx); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", name, err)
		}
	}
	return nil
}

// UnsubscribeAll closes and forgets every subscription.
func (m *Manager) UnsubscribeAll(ctx context.Context) error {
	m.mu.Lock()
	subs := m.subs
	m.subs = make(map[string]*subscription)
	m.mu.Unlock()

	m.metrics.SetOpenSubscriptions(0)

	var errs []error
	for name, sub := range subs {
		m.mu.Lock()
		stream := sub.stream
		sub.stream = nil
		m.mu.Unlock()
		if stream == nil {
			continue
		}
		if err := stream.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe %s: %w", name, err))
		}
	}
	if len(subs) > 0 {
		m.logger.Info("unsubscribed all channels", zap.Int("count", len(subs)))
	}
	return errors.Join(errs...)
}

// Names returns the tracked channel names in order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.subs))
	for name := range m.subs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect opens the connection once and opens every pending subscription.
func (m *Manager) Connect(ctx context.Context) error {
	m.cycle.Lock()
	defer m.cycle.Unlock()

	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrClosed
	case m.suspended:
		m.mu.Unlock()
		return ErrSuspended
	}
	wasSubscribed := m.state == StateSubscribed
	if !wasSubscribed {
		m.state = StateReconnecting
	}
	m.mu.Unlock()

	if err := m.source.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	type pendingSub struct {
		sub   *subscription
		since time.Time
	}

	m.mu.Lock()
	if m.suspended || m.closed {
		m.mu.Unlock()
		return ErrSuspended
	}
	m.state = StateSubscribed
	reconnected := m.connectedOnce && !wasSubscribed
	m.connectedOnce = true
	var pending []pendingSub
	for _, sub := range m.subs {
		if sub.stream == nil && !sub.opening {
			pending = append(pending, pendingSub{sub: sub, since: sub.lastSeen})
		}
	}
	m.mu.Unlock()

	if reconnected {
		m.metrics.Reconnect("success")
		m.logger.Info("realtime reconnected", zap.Int("channels", len(pending)))
	}

	for _, p := range pending {
		if err := m.open(ctx, p.sub); err != nil {
			m.logger.Error("failed to reopen channel", logger.Channel(p.sub.name), zap.Error(err))
			continue
		}
		if p.sub.replay != nil && !p.since.IsZero() {
			m.replay(ctx, p.sub, p.since)
		}
	}
	return nil
}

// open claims sub and opens its stream. A stream opened for a connection that
// has since been lost is discarded and opened again if a new one is up.
func (m *Manager) open(ctx context.Context, sub *subscription) error {
	for {
		m.mu.Lock()
		if m.subs[sub.name] != sub || sub.stream != nil || sub.opening {
			m.mu.Unlock()
			return nil
		}
		sub.opening = true
		gen := m.gen
		m.mu.Unlock()

		stream, err := m.source.Open(ctx, topicFor(sub.name), sub.binding, func(ev Event) {
			m.deliver(sub, ev)
		})

		m.mu.Lock()
		sub.opening = false
		stale := gen != m.gen
		current := m.subs[sub.name] == sub
		live := m.state == StateSubscribed
		if err != nil {
			m.mu.Unlock()
			if stale {
				// the reconnect cycle reopens it
				return nil
			}
			return err
		}
		if !current || !stale {
			if current {
				sub.stream = stream
			}
			m.mu.Unlock()
			if current {
				go m.watch(sub, stream)
			} else {
				_ = stream.Close(ctx)
			}
			return nil
		}
		m.mu.Unlock()

		_ = stream.Close(ctx)
		if !live {
			return nil
		}
	}
}

// watch notices a stream the source ended on its own, such as a channel the
// server closed, and hands the subscription back to Run to reopen.
func (m *Manager) watch(sub *subscription, stream Stream) {
	<-stream.Done()

	m.mu.Lock()
	if m.closed || m.suspended || m.subs[sub.name] != sub || sub.stream != stream {
		m.mu.Unlock()
		return
	}
	sub.stream = nil
	m.mu.Unlock()

	m.metrics.Reconnect("channel_ended")
	m.logger.Warn("realtime channel ended by the source", logger.Channel(sub.name))
	m.signal()
}

func (m *Manager) deliver(sub *subscription, ev Event) {
	m.mu.Lock()
	if m.subs[sub.name] != sub {
		m.mu.Unlock()
		return
	}
	if ev.CommitTimestamp.After(sub.lastSeen) {
		sub.lastSeen = ev.CommitTimestamp
	}
	cb := sub.callback
	m.mu.Unlock()

	m.metrics.RealtimeEvent(ev.Table, string(ev.Kind))
	cb(ev)
}

func (m *Manager) replay(ctx context.Context, sub *subscription, since time.Time) {
	events, err := sub.replay(ctx, since)
	if err != nil {
		m.logger.Error("replay failed", logger.Channel(sub.name), zap.Error(err))
		return
	}
	delivered := 0
	for _, ev := range events {
		if !ev.CommitTimestamp.After(since) || !sub.binding.Matches(ev) {
			continue
		}
		m.deliver(sub, ev)
		delivered++
	}
	m.logger.Debug("replayed missed events", logger.Channel(sub.name), zap.Int("count", delivered))
}

// Run keeps the connection up until ctx ends: it connects with backoff,
// reopens every channel after a loss and waits while suspended.
func (m *Manager) Run(ctx context.Context) error {
	for {
		m.mu.Lock()
		suspended, closed := m.suspended, m.closed
		m.mu.Unlock()

		if closed {
			return nil
		}
		if suspended {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-m.wake:
				continue
			}
		}

		if err := m.reconnect(ctx); err != nil {
			if errors.Is(err, ErrSuspended) || errors.Is(err, ErrClosed) {
				continue
			}
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.source.Lost():
			m.markLost(ctx)
		case <-m.wake:
		}
	}
}

func (m *Manager) reconnect(ctx context.Context) error {
	return retry.WithNotify(ctx, m.backoff, func(ctx context.Context) error {
		err := m.Connect(ctx)
		if errors.Is(err, ErrSuspended) || errors.Is(err, ErrClosed) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt int, err error, wait time.Duration) {
		m.metrics.Reconnect("failure")
		m.logger.Warn("realtime connect failed",
			zap.Int(logger.FieldAttempt, attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	})
}

// markLost moves to reconnecting and drops the dead streams.
func (m *Manager) markLost(ctx context.Context) {
	m.mu.Lock()
	if m.suspended || m.closed {
		m.mu.Unlock()
		return
	}
	m.state = StateReconnecting
	m.gen++
	streams := m.detachStreams()
	m.mu.Unlock()

	m.logger.Warn("realtime connection lost", zap.String(logger.FieldState, string(StateReconnecting)))
	for _, s := range streams {
		_ = s.Close(ctx)
	}
}

// detachStreams must be called with m.mu held.
func (m *Manager) detachStreams() []Stream {
	var streams []Stream
	for _, sub := range m.subs {
		if sub.stream != nil {
			streams = append(streams, sub.stream)
			sub.stream = nil
		}
	}
	return streams
}

// Suspend closes the connection and every stream but keeps the
// registrations, for when the host goes to the background.
func (m *Manager) Suspend(ctx context.Context) error {
	m.mu.Lock()
	if m.suspended || m.closed {
		m.mu.Unlock()
		return nil
	}
	m.suspended = true
	m.state = StateDisconnected
	m.gen++
	streams := m.detachStreams()
	m.mu.Unlock()

	for _, s := range streams {
		_ = s.Close(ctx)
	}
	err := m.source.Close()
	m.signal()
	m.logger.Info("realtime suspended", zap.Int("channels", m.Len()))
	return err
}

// Resume reconnects and reopens every registration, replaying what was
// missed where a replay function was given. On failure Run keeps retrying.
func (m *Manager) Resume(ctx context.Context) error {
	m.mu.Lock()
	if !m.suspended || m.closed {
		m.mu.Unlock()
		return nil
	}
	m.suspended = false
	m.mu.Unlock()

	m.signal()
	m.logger.Info("realtime resuming")
	return m.Connect(ctx)
}

// Close tears down every subscription and the connection. The manager cannot
// be reused.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	err := m.UnsubscribeAll(ctx)

	m.mu.Lock()
	m.closed = true
	m.state = StateDisconnected
	m.gen++
	m.mu.Unlock()

	if cerr := m.source.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	m.signal()
	return err
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
