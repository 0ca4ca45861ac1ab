package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/metrics"
	"github.com/Alwanly/social-hub/pkg/retry"
	"github.com/stretchr/testify/require"
)

func newConnectedManager(t *testing.T) (*Manager, *fakeSource) {
	t.Helper()
	src := newFakeSource()
	m := NewManager(src, logger.NewNop(),
		WithMetrics(metrics.New()),
		WithBackoff(retry.Config{InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}),
	)
	require.NoError(t, m.Connect(context.Background()))
	return m, src
}

func noop(Event) {}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	m, src := newConnectedManager(t)
	ctx := context.Background()

	h, err := m.Subscribe(ctx, KindPosts, nil, noop)
	require.NoError(t, err)
	require.Equal(t, "posts", h.Name)

	require.NoError(t, m.Unsubscribe(ctx, h.Name))
	require.Zero(t, m.Len())
	require.Zero(t, src.liveCount())

	require.NoError(t, m.Unsubscribe(ctx, h.Name))
	require.NoError(t, m.Unsubscribe(ctx, "never-opened"))
}

func TestResubscribeKeepsOneHandle(t *testing.T) {
	m, src := newConnectedManager(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := m.Subscribe(ctx, KindNotifications, []string{"u1"}, noop)
		require.NoError(t, err)
	}

	require.Equal(t, 1, m.Len())
	require.Equal(t, []string{"notifications:u1"}, m.Names())
	require.Len(t, src.live(topicFor("notifications:u1")), 1)
}

func TestUnsubscribeAllEmptiesAnySize(t *testing.T) {
	for _, n := range []int{0, 1, 7} {
		m, src := newConnectedManager(t)
		ctx := context.Background()
		for i := 0; i < n; i++ {
			_, err := m.SubscribeChannel(ctx, ChannelName(KindMessages, string(rune('a'+i))), Binding{Table: "messages"}, noop)
			require.NoError(t, err)
		}
		require.Equal(t, n, m.Len())

		require.NoError(t, m.UnsubscribeAll(ctx))
		require.Zero(t, m.Len(), "n=%d", n)
		require.Zero(t, src.liveCount(), "n=%d", n)
	}
}

func TestReplacedCallbackNeverFires(t *testing.T) {
	m, src := newConnectedManager(t)
	ctx := context.Background()
	topic := topicFor("messages:chat-42")

	var first, second atomic.Int32
	_, err := m.Subscribe(ctx, KindMessages, []string{"chat-42"}, func(Event) { first.Add(1) })
	require.NoError(t, err)
	stale := src.live(topic)
	require.Len(t, stale, 1)

	_, err = m.Subscribe(ctx, KindMessages, []string{"chat-42"}, func(ev Event) {
		require.Equal(t, EventInsert, ev.Kind)
		second.Add(1)
	})
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())

	insert := Event{Kind: EventInsert, Table: "messages", New: map[string]any{"id": "m1", "chat_id": "chat-42"}}
	src.emit(topic, insert)
	// a late delivery on the replaced stream is dropped
	stale[0].sink(insert)

	require.Equal(t, int32(0), first.Load())
	require.Equal(t, int32(1), second.Load())
}

func TestEveryEventCarriesItsKind(t *testing.T) {
	m, src := newConnectedManager(t)
	ctx := context.Background()

	var mu sync.Mutex
	var kinds []EventKind
	_, err := m.Subscribe(ctx, KindPosts, nil, func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})
	require.NoError(t, err)

	for _, k := range []EventKind{EventInsert, EventUpdate, EventDelete} {
		src.emit(topicFor("posts"), Event{Kind: k, Table: "posts"})
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []EventKind{EventInsert, EventUpdate, EventDelete}, kinds)
}

func TestSubscribeBeforeConnectOpensLater(t *testing.T) {
	src := newFakeSource()
	m := NewManager(src, logger.NewNop())
	ctx := context.Background()

	_, err := m.Subscribe(ctx, KindDeals, nil, noop)
	require.NoError(t, err)
	require.Equal(t, StateDisconnected, m.State())
	require.Zero(t, src.liveCount())

	require.NoError(t, m.Connect(ctx))
	require.Equal(t, StateSubscribed, m.State())
	require.Len(t, src.live(topicFor("deals")), 1)
}

func TestRejectsBadInput(t *testing.T) {
	m, _ := newConnectedManager(t)
	ctx := context.Background()

	_, err := m.Subscribe(ctx, KindPosts, nil, nil)
	require.ErrorIs(t, err, ErrNilCallback)
	_, err = m.Subscribe(ctx, KindMessages, nil, noop)
	require.ErrorIs(t, err, ErrMissingKey)
	_, err = m.SubscribeChannel(ctx, "", Binding{}, noop)
	require.ErrorIs(t, err, ErrEmptyName)
	require.Zero(t, m.Len())
}

func TestRunReconnectsAndReplays(t *testing.T) {
	src := newFakeSource()
	src.failConnects = 2
	m := NewManager(src, logger.NewNop(),
		WithBackoff(retry.Config{InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	var replayedSince atomic.Value

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	replay := func(ctx context.Context, since time.Time) ([]Event, error) {
		replayedSince.Store(since)
		return []Event{
			{Kind: EventInsert, Table: "messages", New: map[string]any{"id": "old", "chat_id": "c1"}, CommitTimestamp: t0},
			{Kind: EventInsert, Table: "messages", New: map[string]any{"id": "missed", "chat_id": "c1"}, CommitTimestamp: t0.Add(time.Minute)},
			{Kind: EventInsert, Table: "messages", New: map[string]any{"id": "other", "chat_id": "c2"}, CommitTimestamp: t0.Add(time.Minute)},
		}, nil
	}

	_, err := m.Subscribe(ctx, KindMessages, []string{"c1"}, func(ev Event) {
		mu.Lock()
		got = append(got, ev.New["id"].(string))
		mu.Unlock()
	}, WithReplay(replay))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	topic := topicFor("messages:c1")
	require.Eventually(t, func() bool { return len(src.live(topic)) == 1 }, 2*time.Second, time.Millisecond)
	require.Equal(t, StateSubscribed, m.State())

	src.emit(topic, Event{Kind: EventInsert, Table: "messages", New: map[string]any{"id": "live", "chat_id": "c1"}, CommitTimestamp: t0})

	src.drop()
	require.Eventually(t, func() bool {
		return src.isConnected() && len(src.live(topic)) == 1 && m.State() == StateSubscribed
	}, 2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, time.Millisecond)

	mu.Lock()
	require.Equal(t, []string{"live", "missed"}, got)
	mu.Unlock()
	require.Equal(t, t0, replayedSince.Load().(time.Time))
	require.Equal(t, 1, m.Len())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestRunReopensChannelEndedBySource(t *testing.T) {
	m, src := newConnectedManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	replay := func(ctx context.Context, since time.Time) ([]Event, error) {
		return []Event{
			{Kind: EventInsert, Table: "notifications", New: map[string]any{"id": "missed", "user_id": "u1"}, CommitTimestamp: t0.Add(time.Minute)},
		}, nil
	}
	_, err := m.Subscribe(ctx, KindNotifications, []string{"u1"}, func(ev Event) {
		mu.Lock()
		got = append(got, ev.New["id"].(string))
		mu.Unlock()
	}, WithReplay(replay))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	topic := topicFor("notifications:u1")
	live := src.live(topic)
	require.Len(t, live, 1)
	src.emit(topic, Event{Kind: EventInsert, Table: "notifications", New: map[string]any{"id": "live", "user_id": "u1"}, CommitTimestamp: t0})

	// the server ends the one channel; the connection stays up
	live[0].end()
	require.True(t, src.isConnected())

	require.Eventually(t, func() bool {
		reopened := src.live(topic)
		return len(reopened) == 1 && reopened[0] != live[0]
	}, 2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, time.Millisecond)

	mu.Lock()
	require.Equal(t, []string{"live", "missed"}, got)
	mu.Unlock()
	require.Equal(t, StateSubscribed, m.State())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestUnsubscribedStreamIsNotReopened(t *testing.T) {
	m, src := newConnectedManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := m.Subscribe(ctx, KindPosts, nil, noop)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.NoError(t, m.Unsubscribe(ctx, "posts"))
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, src.liveCount())
	require.Equal(t, 0, m.Len())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestSuspendKeepsRegistrationsAndResumeReopens(t *testing.T) {
	m, src := newConnectedManager(t)
	ctx := context.Background()

	_, err := m.Subscribe(ctx, KindPosts, nil, noop)
	require.NoError(t, err)
	_, err = m.Subscribe(ctx, KindNotifications, []string{"u1"}, noop)
	require.NoError(t, err)

	require.NoError(t, m.Suspend(ctx))
	require.Equal(t, StateDisconnected, m.State())
	require.Equal(t, 2, m.Len())
	require.Zero(t, src.liveCount())
	require.False(t, src.isConnected())

	// subscribing while suspended only registers
	_, err = m.Subscribe(ctx, KindTopics, nil, noop)
	require.NoError(t, err)
	require.Zero(t, src.liveCount())

	require.NoError(t, m.Resume(ctx))
	require.Equal(t, StateSubscribed, m.State())
	require.Equal(t, 3, src.liveCount())
}

func TestCloseTearsDownAndRejects(t *testing.T) {
	m, src := newConnectedManager(t)
	ctx := context.Background()

	_, err := m.Subscribe(ctx, KindListings, nil, noop)
	require.NoError(t, err)

	require.NoError(t, m.Close(ctx))
	require.Zero(t, m.Len())
	require.Zero(t, src.liveCount())

	_, err = m.Subscribe(ctx, KindListings, nil, noop)
	require.ErrorIs(t, err, ErrClosed)
	require.NoError(t, m.Run(ctx))
}
