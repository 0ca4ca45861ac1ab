package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// phoenixServer accepts joins and lets the test push changes to the client.
type phoenixServer struct {
	t        *testing.T
	upgrader websocket.Upgrader
	mu       sync.Mutex
	conn     *websocket.Conn
	joins    chan phoenixMessage
	leaves   chan phoenixMessage
	tokens   chan phoenixMessage
}

func newPhoenixServer(t *testing.T) (*phoenixServer, *httptest.Server) {
	ps := &phoenixServer{
		t:      t,
		joins:  make(chan phoenixMessage, 8),
		leaves: make(chan phoenixMessage, 8),
		tokens: make(chan phoenixMessage, 8),
	}
	ts := httptest.NewServer(http.HandlerFunc(ps.handle))
	return ps, ts
}

func (ps *phoenixServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/realtime/v1/websocket" || r.URL.Query().Get("apikey") != "anon" {
		http.Error(w, "bad endpoint", http.StatusNotFound)
		return
	}
	conn, err := ps.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ps.mu.Lock()
	ps.conn = conn
	ps.mu.Unlock()

	for {
		var msg phoenixMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Event {
		case "phx_join":
			ps.joins <- msg
			ps.send(phoenixMessage{Topic: msg.Topic, Event: "phx_reply", Ref: msg.Ref}, map[string]any{"status": "ok", "response": map[string]any{}})
		case "phx_leave":
			ps.leaves <- msg
			// v1 serializer: the close names the left join in ref only
			ps.send(phoenixMessage{Topic: msg.Topic, Event: "phx_reply", Ref: msg.Ref}, map[string]any{"status": "ok", "response": map[string]any{}})
			ps.send(phoenixMessage{Topic: msg.Topic, Event: "phx_close", Ref: msg.JoinRef}, map[string]any{})
		case "access_token":
			ps.tokens <- msg
		}
	}
}

func (ps *phoenixServer) send(msg phoenixMessage, payload any) {
	raw, _ := json.Marshal(payload)
	msg.Payload = raw
	ps.mu.Lock()
	defer ps.mu.Unlock()
	_ = ps.conn.WriteJSON(msg)
}

func (ps *phoenixServer) dropConnection() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	_ = ps.conn.Close()
}

func TestRealtimeJoinAndDispatch(t *testing.T) {
	ps, ts := newPhoenixServer(t)
	defer ts.Close()

	rt := NewRealtimeClient(ts.URL, "anon", WithJoinTimeout(2*time.Second))
	ctx := context.Background()
	require.NoError(t, rt.Connect(ctx))
	defer rt.Disconnect()

	got := make(chan PostgresChange, 1)
	ch, err := rt.Join(ctx, "realtime:messages:chat-42", PostgresChangesConfig{Table: "messages", Filter: "chat_id=eq.chat-42"}, func(c PostgresChange) {
		got <- c
	})
	require.NoError(t, err)
	require.Equal(t, "realtime:messages:chat-42", ch.Topic())

	join := <-ps.joins
	var joinPayload struct {
		Config struct {
			PostgresChanges []PostgresChangesConfig `json:"postgres_changes"`
		} `json:"config"`
	}
	require.NoError(t, json.Unmarshal(join.Payload, &joinPayload))
	require.Len(t, joinPayload.Config.PostgresChanges, 1)
	require.Equal(t, "public", joinPayload.Config.PostgresChanges[0].Schema)
	require.Equal(t, "*", joinPayload.Config.PostgresChanges[0].Event)

	ps.send(phoenixMessage{Topic: "realtime:messages:chat-42", Event: "postgres_changes"}, map[string]any{
		"data": map[string]any{
			"type":             "INSERT",
			"schema":           "public",
			"table":            "messages",
			"commit_timestamp": "2024-05-01T10:00:00Z",
			"record":           map[string]any{"id": "m1", "chat_id": "chat-42"},
		},
	})

	select {
	case change := <-got:
		require.Equal(t, "INSERT", change.Type)
		require.Equal(t, "m1", change.Record["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("change not dispatched")
	}

	require.NoError(t, rt.Leave(ctx, ch))
	select {
	case leave := <-ps.leaves:
		require.Equal(t, ch.Topic(), leave.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("leave not sent")
	}
}

func insertPayload(id string) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"type":             "INSERT",
			"schema":           "public",
			"table":            "messages",
			"commit_timestamp": "2024-05-01T10:00:00Z",
			"record":           map[string]any{"id": id, "chat_id": "chat-42"},
		},
	}
}

func TestRealtimeRejoinSurvivesCloseOfPreviousJoin(t *testing.T) {
	ps, ts := newPhoenixServer(t)
	defer ts.Close()

	rt := NewRealtimeClient(ts.URL, "anon", WithJoinTimeout(2*time.Second))
	ctx := context.Background()
	require.NoError(t, rt.Connect(ctx))
	defer rt.Disconnect()

	const topic = "realtime:messages:chat-42"
	cfg := PostgresChangesConfig{Table: "messages", Filter: "chat_id=eq.chat-42"}

	first, err := rt.Join(ctx, topic, cfg, func(PostgresChange) {})
	require.NoError(t, err)
	<-ps.joins
	require.NoError(t, rt.Leave(ctx, first))

	got := make(chan PostgresChange, 1)
	second, err := rt.Join(ctx, topic, cfg, func(c PostgresChange) { got <- c })
	require.NoError(t, err)
	<-ps.joins

	ps.send(phoenixMessage{Topic: topic, Event: "postgres_changes"}, insertPayload("m2"))

	select {
	case change := <-got:
		require.Equal(t, "m2", change.Record["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("replacement channel never received the insert")
	}

	select {
	case <-first.Done():
	default:
		t.Fatal("left channel should be done")
	}
	select {
	case <-second.Done():
		t.Fatal("replacement channel ended by the close of the previous join")
	default:
	}
}

func TestRealtimeServerErrorEndsChannel(t *testing.T) {
	ps, ts := newPhoenixServer(t)
	defer ts.Close()

	rt := NewRealtimeClient(ts.URL, "anon", WithJoinTimeout(2*time.Second))
	ctx := context.Background()
	require.NoError(t, rt.Connect(ctx))
	defer rt.Disconnect()

	got := make(chan PostgresChange, 1)
	ch, err := rt.Join(ctx, "realtime:notifications:u1", PostgresChangesConfig{Table: "notifications"}, func(c PostgresChange) { got <- c })
	require.NoError(t, err)
	join := <-ps.joins

	// frames without any ref are ignored
	ps.send(phoenixMessage{Topic: ch.Topic(), Event: "phx_error"}, map[string]any{})
	ps.send(phoenixMessage{Topic: ch.Topic(), Event: "postgres_changes"}, insertPayload("n1"))
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("channel dropped by an unreferenced error frame")
	}

	ps.send(phoenixMessage{Topic: ch.Topic(), Event: "phx_error", Ref: join.Ref}, map[string]any{})
	select {
	case <-ch.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("server error did not end the channel")
	}
	require.True(t, rt.Connected())
}

func TestRealtimeSetAuthPushesTokenToJoinedChannels(t *testing.T) {
	ps, ts := newPhoenixServer(t)
	defer ts.Close()

	rt := NewRealtimeClient(ts.URL, "anon", WithJoinTimeout(2*time.Second))
	ctx := context.Background()
	rt.SetAuth("first-token")
	require.NoError(t, rt.Connect(ctx))
	defer rt.Disconnect()

	ch, err := rt.Join(ctx, "realtime:notifications:u1", PostgresChangesConfig{Table: "notifications"}, nil)
	require.NoError(t, err)
	join := <-ps.joins
	var joinPayload struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(join.Payload, &joinPayload))
	require.Equal(t, "first-token", joinPayload.AccessToken)

	rt.SetAuth("rotated-token")

	select {
	case msg := <-ps.tokens:
		require.Equal(t, ch.Topic(), msg.Topic)
		require.Equal(t, join.Ref, msg.JoinRef)
		var payload struct {
			AccessToken string `json:"access_token"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		require.Equal(t, "rotated-token", payload.AccessToken)
	case <-time.After(2 * time.Second):
		t.Fatal("rotated token not pushed to the joined channel")
	}
}

func TestRealtimeLostClosesOnDrop(t *testing.T) {
	ps, ts := newPhoenixServer(t)
	defer ts.Close()

	rt := NewRealtimeClient(ts.URL, "anon")
	require.NoError(t, rt.Connect(context.Background()))
	lost := rt.Lost()

	// wait for the server side to register the connection
	require.Eventually(t, func() bool {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		return ps.conn != nil
	}, 2*time.Second, 10*time.Millisecond)

	ps.dropConnection()

	select {
	case <-lost:
	case <-time.After(2 * time.Second):
		t.Fatal("Lost was not closed after the server dropped the connection")
	}
	require.False(t, rt.Connected())

	_, err := rt.Join(context.Background(), "realtime:posts", PostgresChangesConfig{Table: "posts"}, nil)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestLostBeforeConnectIsClosed(t *testing.T) {
	rt := NewRealtimeClient("http://localhost:1", "anon")
	select {
	case <-rt.Lost():
	default:
		t.Fatal("expected closed channel before first connect")
	}
}
