package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Alwanly/social-hub/internal/data"
	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/pubsub"
	"github.com/stretchr/testify/require"
)

func publishChange(t *testing.T, bus pubsub.Publisher, change models.ChangeEvent) {
	t.Helper()
	raw, err := json.Marshal(change)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), models.ChangeTopic(change.Schema, change.Table), string(raw)))
}

func TestBrokerSourceFiltersByBinding(t *testing.T) {
	bus := pubsub.NewMemory(16)
	defer bus.Close()

	src := NewBrokerSource(bus, logger.NewNop())
	ctx := context.Background()
	require.NoError(t, src.Connect(ctx))

	got := make(chan Event, 4)
	stream, err := src.Open(ctx, topicFor("messages:c1"), Binding{Schema: "public", Table: "messages", Filter: "chat_id=eq.c1"}, func(ev Event) {
		got <- ev
	})
	require.NoError(t, err)

	publishChange(t, bus, models.ChangeEvent{Event: "INSERT", Schema: "public", Table: "messages", New: map[string]any{"id": "m2", "chat_id": "c2"}})
	publishChange(t, bus, models.ChangeEvent{Event: "INSERT", Schema: "public", Table: "messages", New: map[string]any{"id": "m1", "chat_id": "c1"}})

	select {
	case ev := <-got:
		require.Equal(t, EventInsert, ev.Kind)
		require.Equal(t, "m1", ev.New["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("matching change not delivered")
	}

	require.NoError(t, stream.Close(ctx))
	publishChange(t, bus, models.ChangeEvent{Event: "INSERT", Schema: "public", Table: "messages", New: map[string]any{"id": "m3", "chat_id": "c1"}})
	select {
	case ev := <-got:
		t.Fatalf("closed stream delivered %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerSourceRequiresConnect(t *testing.T) {
	src := NewBrokerSource(pubsub.NewMemory(1), logger.NewNop())
	_, err := src.Open(context.Background(), "realtime:posts", Binding{Table: "posts"}, func(Event) {})
	require.ErrorIs(t, err, ErrNotConnected)

	select {
	case <-src.Lost():
	default:
		t.Fatal("Lost must be closed before connect")
	}
}

func TestManagerOverBroker(t *testing.T) {
	bus := pubsub.NewMemory(16)
	defer bus.Close()

	m := NewManager(NewBrokerSource(bus, logger.NewNop()), logger.NewNop())
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))

	got := make(chan Event, 1)
	_, err := m.Subscribe(ctx, KindNotifications, []string{"u1"}, func(ev Event) { got <- ev })
	require.NoError(t, err)

	publishChange(t, bus, models.ChangeEvent{Event: "UPDATE", Schema: "public", Table: "notifications",
		New: map[string]any{"id": "n1", "user_id": "u1", "read": true},
		Old: map[string]any{"id": "n1", "user_id": "u1", "read": false},
	})

	select {
	case ev := <-got:
		require.Equal(t, EventUpdate, ev.Kind)
		require.Equal(t, false, ev.Old["read"])
	case <-time.After(2 * time.Second):
		t.Fatal("notification change not delivered")
	}

	require.NoError(t, m.UnsubscribeAll(ctx))
	require.Zero(t, m.Len())
}

func TestBackendReplayOverLocalStyleBackend(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &replayBackend{rows: []map[string]any{
		{"id": "m1", "chat_id": "42", "created_at": since.Add(time.Second).Format(time.RFC3339Nano)},
		{"id": "m2", "chat_id": "42", "created_at": "garbage"},
	}}
	_, binding, err := Resolve(KindMessages, "42")
	if err != nil {
		t.Fatal(err)
	}

	events, err := BackendReplay(b, binding)(context.Background(), since)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Kind != EventInsert || events[0].New["id"] != "m1" {
		t.Fatalf("events = %+v", events)
	}
	if b.table != "messages" || len(b.query.Filters) != 2 || b.query.Filters[1].Value != "42" {
		t.Fatalf("query = %s %+v", b.table, b.query)
	}
}

type replayBackend struct {
	data.Backend
	rows  []map[string]any
	table string
	query data.Query
}

func (r *replayBackend) Select(_ context.Context, table string, q data.Query, out any) error {
	r.table, r.query = table, q
	*(out.(*[]map[string]any)) = r.rows
	return nil
}
