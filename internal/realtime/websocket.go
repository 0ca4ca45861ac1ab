package realtime

import (
	"context"
	"time"

	"github.com/Alwanly/social-hub/pkg/supabase"
)

// WebsocketSource multiplexes channels over the hosted collaborator's
// realtime websocket.
type WebsocketSource struct {
	client *supabase.RealtimeClient
}

func NewWebsocketSource(client *supabase.RealtimeClient) *WebsocketSource {
	return &WebsocketSource{client: client}
}

func (s *WebsocketSource) Connect(ctx context.Context) error {
	return s.client.Connect(ctx)
}

func (s *WebsocketSource) Open(ctx context.Context, topic string, b Binding, sink Sink) (Stream, error) {
	cfg := supabase.PostgresChangesConfig{
		Event:  "*",
		Schema: b.Schema,
		Table:  b.Table,
		Filter: b.Filter,
	}
	ch, err := s.client.Join(ctx, topic, cfg, func(c supabase.PostgresChange) {
		sink(EventFromChange(c))
	})
	if err != nil {
		return nil, err
	}
	return &websocketStream{client: s.client, channel: ch}, nil
}

func (s *WebsocketSource) Lost() <-chan struct{} {
	return s.client.Lost()
}

func (s *WebsocketSource) Close() error {
	return s.client.Disconnect()
}

type websocketStream struct {
	client  *supabase.RealtimeClient
	channel *supabase.Channel
}

func (w *websocketStream) Close(ctx context.Context) error {
	return w.client.Leave(ctx, w.channel)
}

func (w *websocketStream) Done() <-chan struct{} {
	return w.channel.Done()
}

// EventFromChange converts a collaborator change payload.
func EventFromChange(c supabase.PostgresChange) Event {
	ev := Event{
		Kind:   EventKind(c.Type),
		Schema: c.Schema,
		Table:  c.Table,
		New:    c.Record,
		Old:    c.OldRecord,
	}
	if ts, err := time.Parse(time.RFC3339Nano, c.CommitTimestamp); err == nil {
		ev.CommitTimestamp = ts
	}
	return ev
}
