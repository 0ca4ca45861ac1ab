package realtime

import (
	"context"
	"time"

	"github.com/Alwanly/social-hub/internal/data"
)

const replayLimit = 200

// BackendReplay catches a channel up by reading rows of its table created
// after since. Only inserts can be recovered this way; updates and deletes
// missed during the gap are not replayed.
func BackendReplay(backend data.Backend, b Binding) ReplayFunc {
	return func(ctx context.Context, since time.Time) ([]Event, error) {
		filters := []data.Filter{data.Gt("created_at", since.UTC())}
		if b.Filter != "" {
			column, value, err := ParseFilter(b.Filter)
			if err != nil {
				return nil, err
			}
			filters = append(filters, data.Eq(column, value))
		}

		var rows []map[string]any
		err := backend.Select(ctx, b.Table, data.Query{
			Filters: filters,
			Orders:  []data.Order{{Column: "created_at", Ascending: true}},
			Limit:   replayLimit,
		}, &rows)
		if err != nil {
			return nil, err
		}

		events := make([]Event, 0, len(rows))
		for _, row := range rows {
			ts, _ := row["created_at"].(string)
			at, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				continue
			}
			events = append(events, Event{
				Kind:            EventInsert,
				Schema:          b.Schema,
				Table:           b.Table,
				New:             row,
				Old:             map[string]any{},
				CommitTimestamp: at,
			})
		}
		return events, nil
	}
}
