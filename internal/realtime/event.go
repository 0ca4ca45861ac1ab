package realtime

import (
	"context"
	"time"
)

// EventKind tags every delivered change.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

// Event is one row change. New is empty for deletes, Old may be empty for
// inserts and for updates on tables without full replica identity.
type Event struct {
	Kind            EventKind
	Schema          string
	Table           string
	New             map[string]any
	Old             map[string]any
	CommitTimestamp time.Time
}

// Callback receives the events of one subscription. Callbacks run on the
// delivering goroutine; a slow callback delays later events of its channel.
type Callback func(Event)

// ReplayFunc returns the changes committed after since. It is called after a
// reconnect so a subscriber can catch up on what it missed.
type ReplayFunc func(ctx context.Context, since time.Time) ([]Event, error)

// State of the realtime connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateReconnecting State = "reconnecting"
	StateSubscribed   State = "subscribed"
)
